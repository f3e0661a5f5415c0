package anomaly

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/carenet/carenet/internal/platform/notification"
)

// WindowSource supplies the consultation snapshot for one scan. Implemented
// by the consultation repository; kept as an interface so the scanner does
// not depend on that package.
type WindowSource interface {
	ConsultationWindow(ctx context.Context, from, to time.Time) ([]Record, error)
}

type Service struct {
	repo     Repository
	source   WindowSource
	notifier *notification.Manager
	cfg      ScanConfig
	logger   zerolog.Logger
}

func NewService(repo Repository, source WindowSource, notifier *notification.Manager, cfg ScanConfig, logger zerolog.Logger) *Service {
	if cfg.WindowDays <= 0 {
		cfg = DefaultScanConfig()
	}
	return &Service{repo: repo, source: source, notifier: notifier, cfg: cfg, logger: logger}
}

// Scan fetches the trailing consultation window, runs the detection rules,
// and returns the result. Alert persistence and the summary notification are
// best-effort: failures are logged and the ScanResult is returned regardless.
// Only a failed window fetch aborts the scan.
func (s *Service) Scan(ctx context.Context, requestedBy string) (*ScanResult, error) {
	now := time.Now().UTC()
	from := now.Add(-time.Duration(s.cfg.WindowDays) * 24 * time.Hour)

	records, err := s.source.ConsultationWindow(ctx, from, now)
	if err != nil {
		return nil, fmt.Errorf("fetch consultation window: %w", err)
	}

	result := ComputeAlerts(records, s.cfg)

	for i := range result.Alerts {
		if err := s.repo.Create(ctx, &result.Alerts[i]); err != nil {
			s.logger.Warn().Err(err).
				Str("alert_type", string(result.Alerts[i].Type)).
				Msg("failed to persist anomaly alert")
		}
	}

	if result.Count > 0 {
		s.notifySummary(ctx, &result, now, requestedBy)
	}

	s.logger.Info().
		Int("records", len(records)).
		Int("alerts", result.Count).
		Msg("anomaly scan completed")

	return &result, nil
}

// notifySummary sends one summary notification per scan to the requesting
// principal. Failures are logged, never surfaced.
func (s *Service) notifySummary(ctx context.Context, result *ScanResult, scannedAt time.Time, recipient string) {
	if s.notifier == nil || recipient == "" {
		return
	}

	counts := make(map[AlertType]int)
	var order []AlertType
	for _, a := range result.Alerts {
		if counts[a.Type] == 0 {
			order = append(order, a.Type)
		}
		counts[a.Type]++
	}
	var parts []string
	for _, t := range order {
		parts = append(parts, string(t)+": "+strconv.Itoa(counts[t]))
	}

	_, err := s.notifier.SendFromTemplate(ctx, "anomaly-summary", map[string]string{
		"alert_count": strconv.Itoa(result.Count),
		"scan_date":   scannedAt.Format("2006-01-02"),
		"window_days": strconv.Itoa(s.cfg.WindowDays),
		"breakdown":   strings.Join(parts, ", "),
	}, recipient)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to send anomaly scan summary")
	}
}

func (s *Service) ListAlerts(ctx context.Context, limit, offset int) ([]*Alert, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) ListAlertsByType(ctx context.Context, t AlertType, limit, offset int) ([]*Alert, int, error) {
	return s.repo.ListByType(ctx, t, limit, offset)
}
