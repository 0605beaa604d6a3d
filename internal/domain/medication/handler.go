package medication

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/schoolcare/healthd/internal/platform/apperr"
	"github.com/schoolcare/healthd/internal/platform/auth"
	"github.com/schoolcare/healthd/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	guardian := auth.RequireRole(auth.RoleGuardian)
	nurse := auth.RequireRole(auth.RoleNurse)

	api.POST("/medication-requests", h.Submit, guardian)
	api.PUT("/medication-requests/:id", h.Edit, guardian)
	api.POST("/medication-requests/:id/decision", h.Decide, nurse)

	read := api.Group("", auth.RequireRole(auth.RoleGuardian, auth.RoleNurse))
	read.GET("/medication-requests/:id", h.Get)
	read.GET("/students/:studentId/medication-requests", h.ListByStudent)
	api.GET("/medication-requests", h.ListByStatus, nurse)
}

func (h *Handler) Submit(c echo.Context) error {
	var in SubmitInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	// A guardian always submits as themselves; a payload guardian_id is
	// only honored for admins acting on a guardian's behalf.
	if actor, ok := auth.ActorFromContext(c.Request().Context()); ok {
		if actor.Role == auth.RoleGuardian || in.GuardianID == uuid.Nil {
			in.GuardianID = actor.AccountID
		}
	}
	req, err := h.svc.Submit(c.Request().Context(), in)
	if err != nil {
		status, body := apperr.Response(err)
		return c.JSON(status, body)
	}
	return c.JSON(http.StatusCreated, req)
}

type editRequest struct {
	ParentNote  string `json:"parent_note"`
	Medications []Item `json:"medications"`
}

func (h *Handler) Edit(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var in editRequest
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	req, err := h.svc.Edit(c.Request().Context(), id, in.ParentNote, in.Medications)
	if err != nil {
		status, body := apperr.Response(err)
		return c.JSON(status, body)
	}
	return c.JSON(http.StatusOK, req)
}

type decideRequest struct {
	Decision  string  `json:"decision"`
	NurseNote *string `json:"nurse_note,omitempty"`
}

func (h *Handler) Decide(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var in decideRequest
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	actor, _ := auth.ActorFromContext(c.Request().Context())
	req, err := h.svc.Decide(c.Request().Context(), id, in.Decision, in.NurseNote, actor.AccountID)
	if err != nil {
		status, body := apperr.Response(err)
		return c.JSON(status, body)
	}
	return c.JSON(http.StatusOK, req)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	req, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		status, body := apperr.Response(err)
		return c.JSON(status, body)
	}
	return c.JSON(http.StatusOK, req)
}

func (h *Handler) ListByStudent(c echo.Context) error {
	studentID, err := uuid.Parse(c.Param("studentId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid student id")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByStudent(c.Request().Context(), studentID, pg.Limit, pg.Offset)
	if err != nil {
		status, body := apperr.Response(err)
		return c.JSON(status, body)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListByStatus(c echo.Context) error {
	status := c.QueryParam("status")
	if status == "" {
		status = StatusPending
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByStatus(c.Request().Context(), status, pg.Limit, pg.Offset)
	if err != nil {
		st, body := apperr.Response(err)
		return c.JSON(st, body)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
