package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string `mapstructure:"PORT"`
	Env         string `mapstructure:"ENV"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32  `mapstructure:"DB_MIN_CONNS"`

	DHISBaseURL  string `mapstructure:"DHIS_BASE_URL"`
	DHISUsername string `mapstructure:"DHIS_USERNAME"`
	DHISPassword string `mapstructure:"DHIS_PASSWORD"`
	// DHISVersion pins the tracker API version; empty means discover it from
	// /api/system/info at startup.
	DHISVersion string `mapstructure:"DHIS_VERSION"`

	AdminJWTSecret string `mapstructure:"ADMIN_JWT_SECRET"`

	ScriptCacheSize int           `mapstructure:"SCRIPT_CACHE_SIZE"`
	ScriptCacheTTL  time.Duration `mapstructure:"SCRIPT_CACHE_TTL"`

	PollInterval  time.Duration `mapstructure:"POLL_INTERVAL"`
	PollBatchSize int           `mapstructure:"POLL_BATCH_SIZE"`
	PollEnabled   bool          `mapstructure:"POLL_ENABLED"`

	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("SCRIPT_CACHE_SIZE", 256)
	v.SetDefault("SCRIPT_CACHE_TTL", "2m")
	v.SetDefault("POLL_INTERVAL", "30s")
	v.SetDefault("POLL_BATCH_SIZE", 100)
	v.SetDefault("POLL_ENABLED", true)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("DHIS_BASE_URL")
	v.BindEnv("DHIS_USERNAME")
	v.BindEnv("DHIS_PASSWORD")
	v.BindEnv("DHIS_VERSION")
	v.BindEnv("ADMIN_JWT_SECRET")
	v.BindEnv("SCRIPT_CACHE_SIZE")
	v.BindEnv("SCRIPT_CACHE_TTL")
	v.BindEnv("POLL_INTERVAL")
	v.BindEnv("POLL_BATCH_SIZE")
	v.BindEnv("POLL_ENABLED")
	v.BindEnv("CORS_ORIGINS")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run. The tracker
// connection is always required; the admin API secret only outside
// development.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DHISBaseURL == "" {
		return fmt.Errorf("DHIS_BASE_URL is required")
	}
	if c.DHISUsername == "" || c.DHISPassword == "" {
		return fmt.Errorf("DHIS_USERNAME and DHIS_PASSWORD are required")
	}
	if !c.IsDev() && c.AdminJWTSecret == "" {
		return fmt.Errorf("ADMIN_JWT_SECRET is required when ENV is not development")
	}
	if c.ScriptCacheSize <= 0 {
		return fmt.Errorf("SCRIPT_CACHE_SIZE must be positive, got %d", c.ScriptCacheSize)
	}
	if c.PollBatchSize <= 0 {
		return fmt.Errorf("POLL_BATCH_SIZE must be positive, got %d", c.PollBatchSize)
	}
	return nil
}
