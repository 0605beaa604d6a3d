package inventory

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

	read := api.Group("", nurse)
	read.GET("/inventory-items", h.ListItems)
	read.GET("/inventory-items/:id", h.GetItem)
	read.GET("/inventory-items/:id/available", h.GetAvailable)

	write := api.Group("", admin)
	write.POST("/inventory-items", h.CreateItem)
	write.POST("/inventory-items/:id/restock", h.Restock)
}

func (h *Handler) CreateItem(c echo.Context) error {
	var item Item
	if err := c.Bind(&item); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateItem(c.Request().Context(), &item); err != nil {
		status, body := apperr.Response(err)
		return c.JSON(status, body)
	}
	return c.JSON(http.StatusCreated, item)
}

func (h *Handler) GetItem(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	item, err := h.svc.GetItem(c.Request().Context(), id)
	if err != nil {
		status, body := apperr.Response(err)
		return c.JSON(status, body)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *Handler) GetAvailable(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	qty, err := h.svc.GetAvailable(c.Request().Context(), id)
	if err != nil {
		status, body := apperr.Response(err)
		return c.JSON(status, body)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"item_id": id, "quantity_on_hand": qty})
}

func (h *Handler) ListItems(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListItems(c.Request().Context(), c.QueryParam("kind"), pg.Limit, pg.Offset)
	if err != nil {
		status, body := apperr.Response(err)
		return c.JSON(status, body)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

type restockRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) Restock(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req restockRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	item, err := h.svc.Restock(c.Request().Context(), id, req.Quantity)
	if err != nil {
		status, body := apperr.Response(err)
		return c.JSON(status, body)
	}
	return c.JSON(http.StatusOK, item)
}
