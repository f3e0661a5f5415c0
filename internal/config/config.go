package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port         string   `mapstructure:"PORT"`
	Env          string   `mapstructure:"ENV"`
	DatabaseURL  string   `mapstructure:"DATABASE_URL"`
	DBMaxConns   int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns   int32    `mapstructure:"DB_MIN_CONNS"`
	AuthIssuer   string   `mapstructure:"AUTH_ISSUER"`
	AuthJWKSURL  string   `mapstructure:"AUTH_JWKS_URL"`
	AuthAudience string   `mapstructure:"AUTH_AUDIENCE"`
	CORSOrigins  []string `mapstructure:"CORS_ORIGINS"`

	RateLimitRPS   float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int     `mapstructure:"RATE_LIMIT_BURST"`

	// Anomaly scan window and thresholds.
	ScanWindowDays   int     `mapstructure:"SCAN_WINDOW_DAYS"`
	ScanRapidMinutes float64 `mapstructure:"SCAN_RAPID_MINUTES"`
	ScanVolumePerDay float64 `mapstructure:"SCAN_VOLUME_PER_DAY"`

	// Kafka summary notifications. Empty broker list disables publishing.
	KafkaBrokers []string `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic   string   `mapstructure:"KAFKA_TOPIC"`

	// S3-backed report storage. Empty bucket falls back to in-memory storage.
	S3Bucket   string `mapstructure:"S3_BUCKET"`
	S3Region   string `mapstructure:"S3_REGION"`
	S3Endpoint string `mapstructure:"S3_ENDPOINT"`

	// Deep-link scheme for the mobile biometric scanner app.
	ScannerScheme      string `mapstructure:"SCANNER_SCHEME"`
	ScannerCallbackURL string `mapstructure:"SCANNER_CALLBACK_URL"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("SCAN_WINDOW_DAYS", 7)
	v.SetDefault("SCAN_RAPID_MINUTES", 15)
	v.SetDefault("SCAN_VOLUME_PER_DAY", 20)
	v.SetDefault("KAFKA_TOPIC", "carenet.anomaly-scans")
	v.SetDefault("SCANNER_SCHEME", "carenet-scan")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("AUTH_ISSUER")
	v.BindEnv("AUTH_JWKS_URL")
	v.BindEnv("AUTH_AUDIENCE")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")
	v.BindEnv("SCAN_WINDOW_DAYS")
	v.BindEnv("SCAN_RAPID_MINUTES")
	v.BindEnv("SCAN_VOLUME_PER_DAY")
	v.BindEnv("KAFKA_BROKERS")
	v.BindEnv("KAFKA_TOPIC")
	v.BindEnv("S3_BUCKET")
	v.BindEnv("S3_REGION")
	v.BindEnv("S3_ENDPOINT")
	v.BindEnv("SCANNER_SCHEME")
	v.BindEnv("SCANNER_CALLBACK_URL")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		if origins := v.GetString("CORS_ORIGINS"); origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}
	if cfg.KafkaBrokers == nil {
		if brokers := v.GetString("KAFKA_BROKERS"); brokers != "" {
			cfg.KafkaBrokers = strings.Split(brokers, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() {
		log.Println("WARNING: Server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: DevAuthMiddleware is active; all requests get admin access.")
		log.Println("WARNING: Set ENV=production and configure AUTH_ISSUER for production.")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run. Outside development
// AUTH_ISSUER must be set so that real JWT authentication is enforced, and the
// scan parameters must be sane.
func (c *Config) Validate() error {
	if !c.IsDev() && c.AuthIssuer == "" {
		return fmt.Errorf(
			"AUTH_ISSUER must be set when ENV=%q; refusing to start without authentication configuration", c.Env)
	}
	if c.ScanWindowDays <= 0 {
		return fmt.Errorf("SCAN_WINDOW_DAYS must be positive, got %d", c.ScanWindowDays)
	}
	if c.ScanRapidMinutes <= 0 {
		return fmt.Errorf("SCAN_RAPID_MINUTES must be positive, got %v", c.ScanRapidMinutes)
	}
	if c.ScanVolumePerDay <= 0 {
		return fmt.Errorf("SCAN_VOLUME_PER_DAY must be positive, got %v", c.ScanVolumePerDay)
	}
	if c.S3Bucket != "" && c.S3Region == "" && c.S3Endpoint == "" {
		return fmt.Errorf("S3_REGION or S3_ENDPOINT is required when S3_BUCKET is set")
	}
	return nil
}
