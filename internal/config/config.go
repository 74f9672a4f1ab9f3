package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/commission-cli/internal/commission"
)

// Config holds the full application configuration.
type Config struct {
	Source     SourceConfig     `yaml:"source" mapstructure:"source"`
	Salesforce SalesforceConfig `yaml:"salesforce" mapstructure:"salesforce"`
	Commission CommissionConfig `yaml:"commission" mapstructure:"commission"`
	Refresh    RefreshConfig    `yaml:"refresh" mapstructure:"refresh"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// SourceConfig selects where contract and project rows are read from.
type SourceConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // postgres | sqlite | file | salesforce
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	// File source: one export per table.
	ContractsPath string `yaml:"contracts_path" mapstructure:"contracts_path"`
	ProjectsPath  string `yaml:"projects_path" mapstructure:"projects_path"`
}

// SalesforceConfig holds Salesforce JWT auth settings.
type SalesforceConfig struct {
	ClientID     string  `yaml:"client_id" mapstructure:"client_id"`
	Username     string  `yaml:"username" mapstructure:"username"`
	KeyPath      string  `yaml:"key_path" mapstructure:"key_path"`
	LoginURL     string  `yaml:"login_url" mapstructure:"login_url"`
	RateLimitRPS float64 `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
}

// CommissionConfig holds the commission business constants.
type CommissionConfig struct {
	DeductionFactor float64                      `yaml:"deduction_factor" mapstructure:"deduction_factor"`
	DefaultRates    []commission.SalespersonRate `yaml:"default_rates" mapstructure:"default_rates"`
	FallbackRate    float64                      `yaml:"fallback_rate" mapstructure:"fallback_rate"`
	UnassignedRate  float64                      `yaml:"unassigned_rate" mapstructure:"unassigned_rate"`
	View            string                       `yaml:"view" mapstructure:"view"`
}

// RefreshConfig configures the periodic re-fetch loop.
type RefreshConfig struct {
	IntervalSecs int `yaml:"interval_secs" mapstructure:"interval_secs"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("COMMISSION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("source.driver", "postgres")
	v.SetDefault("source.max_conns", 4)
	v.SetDefault("salesforce.login_url", "https://login.salesforce.com")
	v.SetDefault("salesforce.rate_limit_rps", 5.0)
	v.SetDefault("commission.deduction_factor", 0.875)
	v.SetDefault("commission.default_rates", []map[string]any{
		{"match": "SNOUSSI ZOUH", "rate": 0.306},
	})
	v.SetDefault("commission.fallback_rate", 0.03)
	v.SetDefault("commission.unassigned_rate", 0.087)
	v.SetDefault("commission.view", "all")
	v.SetDefault("refresh.interval_secs", 30)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the settings required by a command mode are present.
// Modes: "compute" (any command that reads rows) and "serve" (compute plus the
// HTTP listener). All problems are reported together.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "compute", "serve":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	switch c.Source.Driver {
	case "postgres":
		if c.Source.DatabaseURL == "" {
			errs = append(errs, "source.database_url is required for the postgres source (COMMISSION_SOURCE_DATABASE_URL)")
		}
	case "sqlite":
		if c.Source.DatabaseURL == "" {
			errs = append(errs, "source.database_url is required for the sqlite source")
		}
	case "file":
		if c.Source.ContractsPath == "" || c.Source.ProjectsPath == "" {
			errs = append(errs, "source.contracts_path and source.projects_path are required for the file source")
		}
	case "salesforce":
		if c.Salesforce.ClientID == "" {
			errs = append(errs, "salesforce.client_id is required (COMMISSION_SALESFORCE_CLIENT_ID)")
		}
		if c.Salesforce.KeyPath == "" {
			errs = append(errs, "salesforce.key_path is required")
		}
	default:
		errs = append(errs, fmt.Sprintf("unsupported source driver %q", c.Source.Driver))
	}

	switch c.Commission.View {
	case "", "all", "marketing", "commission":
	default:
		errs = append(errs, fmt.Sprintf("unsupported commission.view %q", c.Commission.View))
	}
	if c.Commission.DeductionFactor <= 0 || c.Commission.DeductionFactor > 1 {
		errs = append(errs, fmt.Sprintf("commission.deduction_factor must be in (0, 1], got %v", c.Commission.DeductionFactor))
	}
	if c.Refresh.IntervalSecs < 0 {
		errs = append(errs, "refresh.interval_secs must be >= 0")
	}

	if mode == "serve" && c.Server.Port <= 0 {
		errs = append(errs, "server.port must be > 0")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
