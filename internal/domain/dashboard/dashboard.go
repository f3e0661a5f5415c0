package dashboard

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"

	"github.com/carenet/carenet/internal/platform/auth"
)

// MeasureDefinition defines a dashboard measure with its SQL query.
type MeasureDefinition struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	SQL         string   `json:"sql"`
	Parameters  []string `json:"parameters"`
}

// MeasureReport holds the results of evaluating a measure.
type MeasureReport struct {
	MeasureID   string                   `json:"measure_id"`
	MeasureName string                   `json:"measure_name"`
	GeneratedAt time.Time                `json:"generated_at"`
	Results     []map[string]interface{} `json:"results"`
	Parameters  map[string]string        `json:"parameters,omitempty"`
}

// PredefinedMeasures is the list of available dashboard measures.
var PredefinedMeasures = []MeasureDefinition{
	{
		ID:          "consultations-per-clinic-per-day",
		Name:        "Consultations per Clinic per Day",
		Description: "Daily consultation volume for each clinic over the last 30 days",
		SQL: `SELECT clinic_name, date_trunc('day', date) AS day, COUNT(*) AS total
			FROM consultation
			WHERE date >= NOW() - INTERVAL '30 days'
			GROUP BY clinic_name, day
			ORDER BY day DESC, total DESC`,
		Parameters: []string{},
	},
	{
		ID:          "biometric-validation-rate",
		Name:        "Biometric Validation Rate",
		Description: "Share of consultations with a successful fingerprint validation, per clinic",
		SQL: `SELECT clinic_name,
			COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN biometric_validation THEN 1 ELSE 0 END), 0) AS validated,
			ROUND(COALESCE(SUM(CASE WHEN biometric_validation THEN 1 ELSE 0 END), 0)::numeric / NULLIF(COUNT(*), 0), 4) AS rate
			FROM consultation
			GROUP BY clinic_name
			ORDER BY rate DESC NULLS LAST`,
		Parameters: []string{},
	},
	{
		ID:          "claim-totals-by-status",
		Name:        "Claim Totals by Status",
		Description: "Claim counts and amounts grouped by lifecycle status",
		SQL: `SELECT status, COUNT(*) AS total, COALESCE(SUM(amount_cents), 0) AS amount_cents
			FROM claim
			GROUP BY status
			ORDER BY total DESC`,
		Parameters: []string{},
	},
	{
		ID:          "payment-sums",
		Name:        "Payment Sums",
		Description: "Settled payment volume per month",
		SQL: `SELECT date_trunc('month', paid_at) AS month, currency, COUNT(*) AS payments, SUM(amount_cents) AS amount_cents
			FROM payment
			GROUP BY month, currency
			ORDER BY month DESC`,
		Parameters: []string{},
	},
	{
		ID:          "top-clinics-by-volume",
		Name:        "Top Clinics by Volume",
		Description: "Clinics ranked by consultation count over the last 30 days",
		SQL: `SELECT clinic_name, COUNT(*) AS total
			FROM consultation
			WHERE date >= NOW() - INTERVAL '30 days'
			GROUP BY clinic_name
			ORDER BY total DESC
			LIMIT 10`,
		Parameters: []string{},
	},
	{
		ID:          "patient-enrollment",
		Name:        "Patient Enrollment",
		Description: "Patient counts by biometric enrollment status",
		SQL: `SELECT biometric_status, COUNT(*) AS total, COALESCE(SUM(CASE WHEN active THEN 1 ELSE 0 END), 0) AS active_count
			FROM patient
			GROUP BY biometric_status
			ORDER BY total DESC`,
		Parameters: []string{},
	},
}

// Handler provides HTTP handlers for the dashboard API.
type Handler struct {
	pool *pgxpool.Pool
}

func NewHandler(pool *pgxpool.Pool) *Handler {
	return &Handler{pool: pool}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	group := api.Group("/dashboard", auth.RequireRole(auth.RoleAdmin, auth.RoleClinicAdmin, auth.RoleInsurer))
	group.GET("/measures", h.ListMeasures)
	group.GET("/measures/:id", h.EvaluateMeasure)
}

// ListMeasures returns all available measure definitions.
func (h *Handler) ListMeasures(c echo.Context) error {
	return c.JSON(http.StatusOK, PredefinedMeasures)
}

// EvaluateMeasure executes a measure's SQL and returns the results.
func (h *Handler) EvaluateMeasure(c echo.Context) error {
	measure := FindMeasure(c.Param("id"))
	if measure == nil {
		return echo.NewHTTPError(http.StatusNotFound, "measure not found")
	}

	params := map[string]string{}
	for _, p := range measure.Parameters {
		if v := c.QueryParam(p); v != "" {
			params[p] = v
		}
	}

	results, err := h.executeSQL(c.Request().Context(), measure.SQL)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("query failed: %v", err))
	}

	return c.JSON(http.StatusOK, MeasureReport{
		MeasureID:   measure.ID,
		MeasureName: measure.Name,
		GeneratedAt: time.Now(),
		Results:     results,
		Parameters:  params,
	})
}

// executeSQL runs a SQL query and returns results as a slice of maps.
func (h *Handler) executeSQL(ctx context.Context, sql string) ([]map[string]interface{}, error) {
	rows, err := h.pool.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	var results []map[string]interface{}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}

		row := make(map[string]interface{}, len(fieldDescs))
		for i, fd := range fieldDescs {
			row[string(fd.Name)] = values[i]
		}
		results = append(results, row)
	}

	if results == nil {
		results = []map[string]interface{}{}
	}

	return results, nil
}

// FindMeasure looks up a measure by ID.
func FindMeasure(id string) *MeasureDefinition {
	for i := range PredefinedMeasures {
		if PredefinedMeasures[i].ID == id {
			return &PredefinedMeasures[i]
		}
	}
	return nil
}
