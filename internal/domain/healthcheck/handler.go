package healthcheck

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
	admin := auth.RequireRole(auth.RoleAdmin)
	nurse := auth.RequireRole(auth.RoleNurse)

	api.POST("/health-check-assignments", h.CreateAssignments, admin)
	api.POST("/health-check-assignments/:id/result", h.RecordResult, nurse)
	api.GET("/health-check-assignments/mine", h.ListMine, nurse)

	read := api.Group("", auth.RequireRole(auth.RoleNurse, auth.RoleGuardian))
	read.GET("/health-check-assignments/:id", h.Get)
	read.GET("/students/:studentId/health-check-assignments", h.ListByStudent)
}

func (h *Handler) CreateAssignments(c echo.Context) error {
	var in CreateAssignmentsInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	assignments, err := h.svc.CreateAssignments(c.Request().Context(), in)
	if err != nil {
		status, body := apperr.Response(err)
		return c.JSON(status, body)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"assignments": assignments,
		"count":       len(assignments),
	})
}

func (h *Handler) RecordResult(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var in ResultInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	actor, _ := auth.ActorFromContext(c.Request().Context())
	a, err := h.svc.RecordResult(c.Request().Context(), id, actor.AccountID, actor.IsAdmin(), in)
	if err != nil {
		status, body := apperr.Response(err)
		return c.JSON(status, body)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	a, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		status, body := apperr.Response(err)
		return c.JSON(status, body)
	}
	return c.JSON(http.StatusOK, a)
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

func (h *Handler) ListMine(c echo.Context) error {
	actor, _ := auth.ActorFromContext(c.Request().Context())
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByNurse(c.Request().Context(), actor.AccountID, pg.Limit, pg.Offset)
	if err != nil {
		status, body := apperr.Response(err)
		return c.JSON(status, body)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
