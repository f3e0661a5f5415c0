package eligibility

import (
	"net/http"

	"github.com/google/uuid"
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
	checkGroup := api.Group("", auth.RequireRole(auth.RoleAdmin, auth.RoleSecretary, auth.RoleClinicAdmin, auth.RoleInsurer))
	checkGroup.POST("/eligibility/check", h.RunCheck)
	checkGroup.GET("/eligibility/checks", h.ListChecks)
	checkGroup.GET("/eligibility/checks/:id", h.GetCheck)
}

// checkRequest is the JSON body for POST /eligibility/check.
type checkRequest struct {
	InsuranceNumber string     `json:"insurance_number"`
	PatientID       *uuid.UUID `json:"patient_id,omitempty"`
}

func (h *Handler) RunCheck(c echo.Context) error {
	var req checkRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	checkedBy := auth.UserEmailFromContext(c.Request().Context())
	ch, err := h.svc.RunCheck(c.Request().Context(), req.InsuranceNumber, req.PatientID, checkedBy)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, ch)
}

func (h *Handler) GetCheck(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ch, err := h.svc.GetCheck(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "eligibility check not found")
	}
	return c.JSON(http.StatusOK, ch)
}

func (h *Handler) ListChecks(c echo.Context) error {
	pg := pagination.FromContext(c)

	if num := c.QueryParam("insurance_number"); num != "" {
		checks, total, err := h.svc.ListChecksByInsuranceNumber(c.Request().Context(), num, pg.Limit, pg.Offset)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, pagination.NewResponse(checks, total, pg.Limit, pg.Offset))
	}

	checks, total, err := h.svc.ListChecks(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(checks, total, pg.Limit, pg.Offset))
}
