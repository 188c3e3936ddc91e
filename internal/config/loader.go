package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config captures the settings of the scheduler service. Values come from an
// optional YAML file and are overridden by SCHEDULER_* environment variables.
type Config struct {
	HTTP struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"http"`

	Database struct {
		Path        string        `yaml:"path"`
		BusyTimeout time.Duration `yaml:"busy_timeout"`
		JournalMode string        `yaml:"journal_mode"`
	} `yaml:"database"`

	Redis struct {
		Address  string        `yaml:"address"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		LockTTL  time.Duration `yaml:"lock_ttl"`
	} `yaml:"redis"`

	Auth struct {
		JWTSecret string         `yaml:"jwt_secret"`
		JWTIssuer string         `yaml:"jwt_issuer"`
		APIKeys   []APIKeyConfig `yaml:"api_keys"`
	} `yaml:"auth"`

	RateLimit struct {
		AvailabilityRPS   float64 `yaml:"availability_rps"`
		AvailabilityBurst int     `yaml:"availability_burst"`
	} `yaml:"rate_limit"`

	Metrics struct {
		Enabled bool `yaml:"enabled"`
		Port    int  `yaml:"port"`
	} `yaml:"metrics"`

	Scheduling struct {
		TimeZone string `yaml:"time_zone"`
	} `yaml:"scheduling"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// APIKeyConfig declares one machine credential. Hash is an argon2id or bcrypt
// hash of the key secret.
type APIKeyConfig struct {
	ID          string   `yaml:"id"`
	Hash        string   `yaml:"hash"`
	Subject     string   `yaml:"subject"`
	Permissions []string `yaml:"permissions"`
}

// Defaults returns the configuration used when nothing overrides it.
func Defaults() Config {
	var cfg Config
	cfg.HTTP.Port = 8080
	cfg.HTTP.ReadTimeout = 15 * time.Second
	cfg.HTTP.WriteTimeout = 30 * time.Second
	cfg.HTTP.ShutdownTimeout = 10 * time.Second
	cfg.Database.Path = "data/scheduler.db"
	cfg.Database.BusyTimeout = 5 * time.Second
	cfg.Database.JournalMode = "WAL"
	cfg.Redis.LockTTL = 30 * time.Second
	cfg.RateLimit.AvailabilityRPS = 20
	cfg.RateLimit.AvailabilityBurst = 40
	cfg.Metrics.Port = 9090
	cfg.Scheduling.TimeZone = "UTC"
	cfg.Log.Level = "info"
	cfg.Log.Format = "json"
	return cfg
}

// Load builds the configuration. A .env file in the working directory is
// loaded first when present, then the YAML file at path (optional, ${VAR}
// placeholders expanded), then the environment overrides.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf(".env の読み込みに失敗しました: %w", err)
	}

	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("設定ファイルを読み込めません: %w", err)
		}
		data = []byte(os.ExpandEnv(string(data)))
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("設定ファイルの形式が不正です: %w", err)
		}
	}

	invalid := applyEnvironment(&cfg)
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("環境変数の値が不正です: %s", strings.Join(invalid, ", "))
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnvironment(cfg *Config) []string {
	invalid := make([]string, 0, 2)

	positiveInt := func(key string, dst *int) {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			n, err := strconv.Atoi(value)
			if err != nil || n <= 0 {
				invalid = append(invalid, key)
				return
			}
			*dst = n
		}
	}
	duration := func(key string, dst *time.Duration) {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			d, err := time.ParseDuration(value)
			if err != nil || d <= 0 {
				invalid = append(invalid, key)
				return
			}
			*dst = d
		}
	}
	str := func(key string, dst *string) {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			*dst = value
		}
	}

	positiveInt("SCHEDULER_HTTP_PORT", &cfg.HTTP.Port)
	duration("SCHEDULER_HTTP_SHUTDOWN_TIMEOUT", &cfg.HTTP.ShutdownTimeout)
	str("SCHEDULER_DB_PATH", &cfg.Database.Path)
	duration("SCHEDULER_DB_BUSY_TIMEOUT", &cfg.Database.BusyTimeout)
	str("SCHEDULER_REDIS_ADDR", &cfg.Redis.Address)
	str("SCHEDULER_REDIS_PASSWORD", &cfg.Redis.Password)
	duration("SCHEDULER_LOCK_TTL", &cfg.Redis.LockTTL)
	str("SCHEDULER_JWT_SECRET", &cfg.Auth.JWTSecret)
	str("SCHEDULER_JWT_ISSUER", &cfg.Auth.JWTIssuer)
	positiveInt("SCHEDULER_RATE_LIMIT_BURST", &cfg.RateLimit.AvailabilityBurst)
	positiveInt("SCHEDULER_METRICS_PORT", &cfg.Metrics.Port)
	str("SCHEDULER_TIMEZONE", &cfg.Scheduling.TimeZone)
	str("SCHEDULER_LOG_LEVEL", &cfg.Log.Level)
	str("SCHEDULER_LOG_FORMAT", &cfg.Log.Format)

	if value := strings.TrimSpace(os.Getenv("SCHEDULER_REDIS_DB")); value != "" {
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			invalid = append(invalid, "SCHEDULER_REDIS_DB")
		} else {
			cfg.Redis.DB = n
		}
	}
	if value := strings.TrimSpace(os.Getenv("SCHEDULER_RATE_LIMIT_RPS")); value != "" {
		rps, err := strconv.ParseFloat(value, 64)
		if err != nil || rps <= 0 {
			invalid = append(invalid, "SCHEDULER_RATE_LIMIT_RPS")
		} else {
			cfg.RateLimit.AvailabilityRPS = rps
		}
	}
	if value := strings.TrimSpace(os.Getenv("SCHEDULER_METRICS_ENABLED")); value != "" {
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			invalid = append(invalid, "SCHEDULER_METRICS_ENABLED")
		} else {
			cfg.Metrics.Enabled = enabled
		}
	}

	return invalid
}

// Validate reports missing or inconsistent settings.
func (c Config) Validate() error {
	if c.Auth.JWTSecret == "" && len(c.Auth.APIKeys) == 0 {
		return fmt.Errorf("必須の環境変数が設定されていません: SCHEDULER_JWT_SECRET")
	}

	invalid := make([]string, 0, 2)
	if c.HTTP.Port <= 0 {
		invalid = append(invalid, "http.port")
	}
	if c.Database.Path == "" {
		invalid = append(invalid, "database.path")
	}
	if _, err := time.LoadLocation(c.Scheduling.TimeZone); err != nil {
		invalid = append(invalid, "scheduling.time_zone")
	}
	if c.Metrics.Enabled && (c.Metrics.Port <= 0 || c.Metrics.Port == c.HTTP.Port) {
		invalid = append(invalid, "metrics.port")
	}
	for i, key := range c.Auth.APIKeys {
		if key.ID == "" || key.Hash == "" || strings.Contains(key.ID, ".") {
			invalid = append(invalid, fmt.Sprintf("auth.api_keys[%d]", i))
		}
	}
	if len(invalid) > 0 {
		return fmt.Errorf("設定値が不正です: %s", strings.Join(invalid, ", "))
	}
	return nil
}

// Location returns the scheduling time zone. Validate guarantees it loads.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Scheduling.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}
