package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix scopes the environment variables read by Load. A double
// underscore descends into a section: PANEL_PROVISION__BIN_DIR sets
// provision.bin_dir.
const EnvPrefix = "PANEL_"

type Config struct {
	DatabaseURL       string        `koanf:"database_url"`
	HTTPListenAddr    string        `koanf:"http_listen_addr"`
	MetricsListenAddr string        `koanf:"metrics_listen_addr"`
	ServiceName       string        `koanf:"service_name"`
	LogLevel          string        `koanf:"log_level"`
	LogFile           string        `koanf:"log_file"`
	JWTSecret         string        `koanf:"jwt_secret"`
	JWTIssuer         string        `koanf:"jwt_issuer"`
	SessionTTL        time.Duration `koanf:"session_ttl"`
	LoginRatePerMin   int           `koanf:"login_rate_per_min"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
	Provision         Provision     `koanf:"provision"`
}

// Provision configures how provisioning commands are run on the host.
type Provision struct {
	UseSudo  bool   `koanf:"use_sudo"`
	SudoPath string `koanf:"sudo_path"`
	BinDir   string `koanf:"bin_dir"`
	// DryRun logs commands instead of running them.
	DryRun bool `koanf:"dry_run"`
}

func defaults() Config {
	return Config{
		HTTPListenAddr:  ":8080",
		ServiceName:     "panel-api",
		LogLevel:        "info",
		JWTIssuer:       "vpanel",
		SessionTTL:      time.Hour,
		LoginRatePerMin: 5,
		ShutdownTimeout: 15 * time.Second,
		Provision: Provision{
			UseSudo:  true,
			SudoPath: "sudo",
		},
	}
}

// Load builds the configuration from, in increasing precedence: built-in
// defaults, the YAML file named by PANEL_CONFIG, and PANEL_* environment
// variables. A .env file in the working directory is loaded first when
// present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if path := os.Getenv(EnvPrefix + "CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := defaults()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	return strings.ToLower(strings.ReplaceAll(s, "__", "."))
}

// Validate reports every missing or malformed required setting at once.
func (c *Config) Validate() error {
	var missing []string
	if c.DatabaseURL == "" {
		missing = append(missing, EnvPrefix+"DATABASE_URL")
	}
	if c.JWTSecret == "" {
		missing = append(missing, EnvPrefix+"JWT_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}

	var errs []error
	if len(c.JWTSecret) < 32 {
		errs = append(errs, fmt.Errorf("%sJWT_SECRET must be at least 32 bytes", EnvPrefix))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, fmt.Errorf("%sSESSION_TTL must be positive", EnvPrefix))
	}
	if c.LoginRatePerMin <= 0 {
		errs = append(errs, fmt.Errorf("%sLOGIN_RATE_PER_MIN must be positive", EnvPrefix))
	}
	return errors.Join(errs...)
}
