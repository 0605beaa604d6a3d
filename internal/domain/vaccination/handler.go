package vaccination

import (
	"net/http"
	"time"

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
	guardian := auth.RequireRole(auth.RoleGuardian)

	api.POST("/vaccination-campaigns", h.CreateCampaign, admin)
	api.POST("/vaccination-campaigns/:id/consents", h.RecordConsent, guardian)
	api.POST("/vaccination-campaigns/:id/records", h.RecordVaccination, nurse)
	api.POST("/vaccination-records/:id/follow-ups", h.RecordFollowUp, nurse)

	read := api.Group("", auth.RequireRole(auth.RoleNurse, auth.RoleGuardian))
	read.GET("/vaccination-campaigns", h.ListCampaigns)
	read.GET("/vaccination-campaigns/:id", h.GetCampaign)
	read.GET("/vaccination-campaigns/:id/records", h.ListRecords)
	read.GET("/vaccination-records/:id/follow-ups", h.ListFollowUps)
	api.GET("/vaccination-campaigns/:id/consents", h.ListConsents, nurse)
}

func (h *Handler) CreateCampaign(c echo.Context) error {
	var in CreateCampaignInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	campaign, err := h.svc.CreateCampaign(c.Request().Context(), in)
	if err != nil {
		status, body := apperr.Response(err)
		return c.JSON(status, body)
	}
	return c.JSON(http.StatusCreated, campaign)
}

func (h *Handler) GetCampaign(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	campaign, err := h.svc.GetCampaign(c.Request().Context(), id)
	if err != nil {
		status, body := apperr.Response(err)
		return c.JSON(status, body)
	}
	return c.JSON(http.StatusOK, campaign)
}

func (h *Handler) ListCampaigns(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListCampaigns(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		status, body := apperr.Response(err)
		return c.JSON(status, body)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

type consentRequest struct {
	StudentID uuid.UUID `json:"student_id"`
	IsAgreed  *bool     `json:"is_agreed"`
	Note      string    `json:"note"`
}

func (h *Handler) RecordConsent(c echo.Context) error {
	campaignID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid campaign id")
	}
	var in consentRequest
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if in.IsAgreed == nil {
		status, body := apperr.Response(apperr.Validation("is_agreed", "is required"))
		return c.JSON(status, body)
	}
	consent, err := h.svc.RecordConsent(c.Request().Context(), campaignID, in.StudentID, *in.IsAgreed, in.Note)
	if err != nil {
		status, body := apperr.Response(err)
		return c.JSON(status, body)
	}
	return c.JSON(http.StatusOK, consent)
}

func (h *Handler) ListConsents(c echo.Context) error {
	campaignID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid campaign id")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListConsents(c.Request().Context(), campaignID, pg.Limit, pg.Offset)
	if err != nil {
		status, body := apperr.Response(err)
		return c.JSON(status, body)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) RecordVaccination(c echo.Context) error {
	campaignID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid campaign id")
	}
	var in RecordVaccinationInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	in.CampaignID = campaignID
	if actor, ok := auth.ActorFromContext(c.Request().Context()); ok && in.NurseID == uuid.Nil {
		in.NurseID = actor.AccountID
	}
	rec, err := h.svc.RecordVaccination(c.Request().Context(), in)
	if err != nil {
		status, body := apperr.Response(err)
		return c.JSON(status, body)
	}
	return c.JSON(http.StatusCreated, rec)
}

func (h *Handler) ListRecords(c echo.Context) error {
	campaignID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid campaign id")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListRecords(c.Request().Context(), campaignID, pg.Limit, pg.Offset)
	if err != nil {
		status, body := apperr.Response(err)
		return c.JSON(status, body)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

type followUpRequest struct {
	ObservedAt time.Time `json:"observed_at"`
	Reaction   string    `json:"reaction"`
	Note       string    `json:"note"`
}

func (h *Handler) RecordFollowUp(c echo.Context) error {
	recordID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid record id")
	}
	var in followUpRequest
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	f, err := h.svc.RecordFollowUp(c.Request().Context(), recordID, in.ObservedAt, in.Reaction, in.Note)
	if err != nil {
		status, body := apperr.Response(err)
		return c.JSON(status, body)
	}
	return c.JSON(http.StatusCreated, f)
}

func (h *Handler) ListFollowUps(c echo.Context) error {
	recordID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid record id")
	}
	items, err := h.svc.ListFollowUps(c.Request().Context(), recordID)
	if err != nil {
		status, body := apperr.Response(err)
		return c.JSON(status, body)
	}
	return c.JSON(http.StatusOK, items)
}
