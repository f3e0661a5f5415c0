package anomaly

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/carenet/carenet/internal/platform/auth"
	"github.com/carenet/carenet/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	group := api.Group("/anomalies", auth.RequireRole(auth.RoleAdmin, auth.RoleInsurer))
	group.POST("/scan", h.Scan)
	group.GET("", h.ListAlerts)
}

// scanResponse is the JSON body for POST /anomalies/scan.
type scanResponse struct {
	Success     bool    `json:"success"`
	AlertsCount int     `json:"alerts_count"`
	Alerts      []Alert `json:"alerts"`
}

func (h *Handler) Scan(c echo.Context) error {
	requestedBy := auth.UserEmailFromContext(c.Request().Context())

	result, err := h.svc.Scan(c.Request().Context(), requestedBy)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"error":   err.Error(),
		})
	}

	alerts := result.Alerts
	if alerts == nil {
		alerts = []Alert{}
	}
	return c.JSON(http.StatusOK, scanResponse{
		Success:     true,
		AlertsCount: result.Count,
		Alerts:      alerts,
	})
}

func (h *Handler) ListAlerts(c echo.Context) error {
	pg := pagination.FromContext(c)
	ctx := c.Request().Context()

	if t := c.QueryParam("type"); t != "" {
		alerts, total, err := h.svc.ListAlertsByType(ctx, AlertType(t), pg.Limit, pg.Offset)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, pagination.NewResponse(alerts, total, pg.Limit, pg.Offset))
	}

	alerts, total, err := h.svc.ListAlerts(ctx, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(alerts, total, pg.Limit, pg.Offset))
}
