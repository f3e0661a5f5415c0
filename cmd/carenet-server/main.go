package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/carenet/carenet/internal/config"
	"github.com/carenet/carenet/internal/domain/anomaly"
	"github.com/carenet/carenet/internal/domain/billing"
	"github.com/carenet/carenet/internal/domain/clinic"
	"github.com/carenet/carenet/internal/domain/consultation"
	"github.com/carenet/carenet/internal/domain/dashboard"
	"github.com/carenet/carenet/internal/domain/eligibility"
	"github.com/carenet/carenet/internal/domain/patient"
	"github.com/carenet/carenet/internal/platform/auth"
	"github.com/carenet/carenet/internal/platform/biometric"
	"github.com/carenet/carenet/internal/platform/blobstore"
	"github.com/carenet/carenet/internal/platform/db"
	"github.com/carenet/carenet/internal/platform/middleware"
	"github.com/carenet/carenet/internal/platform/notification"
)

// patientDirectory adapts the patient service to the directory interfaces
// the consultation and billing packages declare, avoiding circular imports.
type patientDirectory struct {
	svc *patient.Service
}

func (d *patientDirectory) PatientDisplay(ctx context.Context, id uuid.UUID) (string, string, error) {
	p, err := d.svc.GetPatient(ctx, id)
	if err != nil {
		return "", "", err
	}
	return p.FullName(), p.InsuranceNumber, nil
}

func (d *patientDirectory) PatientEmail(ctx context.Context, id uuid.UUID) (string, error) {
	p, err := d.svc.GetPatient(ctx, id)
	if err != nil {
		return "", err
	}
	if p.Email == nil {
		return "", nil
	}
	return *p.Email, nil
}

// clinicDirectory adapts the clinic service the same way.
type clinicDirectory struct {
	svc *clinic.Service
}

func (d *clinicDirectory) ClinicName(ctx context.Context, id uuid.UUID) (string, error) {
	cl, err := d.svc.GetClinic(ctx, id)
	if err != nil {
		return "", err
	}
	return cl.Name, nil
}

// consultationWindowSource feeds the anomaly scanner from the consultation
// service, converting rows to scanner records.
type consultationWindowSource struct {
	svc *consultation.Service
}

func (s *consultationWindowSource) ConsultationWindow(ctx context.Context, from, to time.Time) ([]anomaly.Record, error) {
	rows, err := s.svc.ListWindow(ctx, from, to)
	if err != nil {
		return nil, err
	}
	records := make([]anomaly.Record, 0, len(rows))
	for _, con := range rows {
		records = append(records, anomaly.Record{
			ID:                  con.ID,
			PatientID:           con.PatientID,
			PatientName:         con.PatientName,
			InsuranceNumber:     con.InsuranceNumber,
			ClinicID:            con.ClinicID,
			ClinicName:          con.ClinicName,
			CreatedAt:           con.Date,
			BiometricValidation: con.BiometricValidation,
		})
	}
	return records, nil
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "carenet-server",
		Short: "CareNet clinical coordination API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the CareNet API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.RequestTimeout(30 * time.Second))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Auth middleware
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:   cfg.AuthIssuer,
			Audience: cfg.AuthAudience,
			JWKSURL:  cfg.AuthJWKSURL,
		}))
	}

	apiV1 := e.Group("/api/v1")

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})

	// Notification manager: log senders locally, optional Kafka mirror
	var publisher notification.EventPublisher
	var kafkaPub *notification.KafkaPublisher
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPub = notification.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		publisher = kafkaPub
		defer kafkaPub.Close()
		logger.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaTopic).Msg("kafka notification mirror enabled")
	}
	notifier := notification.NewManager(
		&notification.LogEmailSender{Logger: logger},
		&notification.LogSMSSender{Logger: logger},
		publisher,
		notification.NewTemplateEngine(),
		logger,
	)
	notifHandler := notification.NewHandler(notifier)
	notifHandler.RegisterRoutes(apiV1)

	// Biometric deep-link builder for the mobile scanner app
	linker := biometric.NewLinker(cfg.ScannerScheme, cfg.ScannerCallbackURL)

	// Document storage: S3-compatible when configured, in-memory otherwise
	var store blobstore.BlobStore
	if cfg.S3Bucket != "" {
		s3Store, err := blobstore.NewS3Store(ctx, blobstore.S3Config{
			Bucket:   cfg.S3Bucket,
			Region:   cfg.S3Region,
			Endpoint: cfg.S3Endpoint,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to initialize S3 document store")
		}
		store = s3Store
		logger.Info().Str("bucket", cfg.S3Bucket).Msg("S3 document storage enabled")
	} else {
		store = blobstore.NewInMemoryBlobStore()
		logger.Warn().Msg("S3_BUCKET not set; documents are stored in memory and lost on restart")
	}
	blobHandler := blobstore.NewBlobHandler(store)
	blobHandler.RegisterRoutes(apiV1)

	// -- Domain services --

	clinicRepo := clinic.NewRepo(pool)
	clinicSvc := clinic.NewService(clinicRepo)
	clinic.NewHandler(clinicSvc).RegisterRoutes(apiV1)

	eligRepo := eligibility.NewRepo(pool)
	eligSvc := eligibility.NewService(eligRepo, eligibility.FormatVerifier{}, logger)
	eligibility.NewHandler(eligSvc).RegisterRoutes(apiV1)

	patientRepo := patient.NewRepo(pool)
	patientSvc := patient.NewService(patientRepo, linker, notifier, logger)
	patientSvc.SetEligibilityChecker(eligSvc)
	patient.NewHandler(patientSvc).RegisterRoutes(apiV1)

	patients := &patientDirectory{svc: patientSvc}
	clinics := &clinicDirectory{svc: clinicSvc}

	conRepo := consultation.NewRepo(pool)
	conSvc := consultation.NewService(conRepo, patients, clinics, linker)
	consultation.NewHandler(conSvc).RegisterRoutes(apiV1)

	billingRepo := billing.NewRepo(pool)
	billingSvc := billing.NewService(billingRepo, patients, clinics, notifier, logger)
	billing.NewHandler(billingSvc).RegisterRoutes(apiV1)

	scanCfg := anomaly.ScanConfig{
		WindowDays:            cfg.ScanWindowDays,
		RapidSuccessionMin:    int(cfg.ScanRapidMinutes),
		VolumeThresholdPerDay: int(cfg.ScanVolumePerDay),
	}
	anomalyRepo := anomaly.NewRepo(pool)
	anomalySvc := anomaly.NewService(anomalyRepo, &consultationWindowSource{svc: conSvc}, notifier, scanCfg, logger)
	anomaly.NewHandler(anomalySvc).RegisterRoutes(apiV1)

	dashboard.NewHandler(pool).RegisterRoutes(apiV1)

	// Start server with graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
