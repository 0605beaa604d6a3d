package medicalevent

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
	nurse := auth.RequireRole(auth.RoleNurse)
	admin := auth.RequireRole(auth.RoleAdmin)

	read := api.Group("", auth.RequireRole(auth.RoleNurse, auth.RoleGuardian))
	read.GET("/medical-events/:id", h.GetEvent)
	read.GET("/students/:studentId/medical-events", h.ListByStudent)

	api.POST("/medical-events", h.CreateEvent, nurse)
	api.DELETE("/medical-events/:id", h.DeleteEvent, admin)
}

func (h *Handler) CreateEvent(c echo.Context) error {
	var in CreateEventInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if actor, ok := auth.ActorFromContext(c.Request().Context()); ok && in.NurseID == uuid.Nil {
		in.NurseID = actor.AccountID
	}
	evt, err := h.svc.CreateEvent(c.Request().Context(), in)
	if err != nil {
		status, body := apperr.Response(err)
		return c.JSON(status, body)
	}
	return c.JSON(http.StatusCreated, evt)
}

func (h *Handler) GetEvent(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	evt, err := h.svc.GetEvent(c.Request().Context(), id)
	if err != nil {
		status, body := apperr.Response(err)
		return c.JSON(status, body)
	}
	return c.JSON(http.StatusOK, evt)
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

func (h *Handler) DeleteEvent(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteEvent(c.Request().Context(), id); err != nil {
		status, body := apperr.Response(err)
		return c.JSON(status, body)
	}
	return c.NoContent(http.StatusNoContent)
}
