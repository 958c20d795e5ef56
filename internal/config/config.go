package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultBaseURL is the backend used when nothing is configured.
const DefaultBaseURL = "http://localhost:8001"

type Config struct {
	App     AppConfig     `mapstructure:"app"`
	API     APIConfig     `mapstructure:"api"`
	Server  ServerConfig  `mapstructure:"server"`
	Session SessionConfig `mapstructure:"session"`
	Log     LogConfig     `mapstructure:"log"`
}

type AppConfig struct {
	Environment string `mapstructure:"environment"`
}

// APIConfig points at the catalogue backend.
type APIConfig struct {
	BaseURL             string        `mapstructure:"base_url"`
	Timeout             time.Duration `mapstructure:"timeout"`
	AnalysisBaseTimeout time.Duration `mapstructure:"analysis_base_timeout"`
	AnalysisAttempts    int           `mapstructure:"analysis_attempts"`
	RetryAll            bool          `mapstructure:"retry_all"`
}

type ServerConfig struct {
	Address        string   `mapstructure:"address"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type SessionConfig struct {
	Secret string `mapstructure:"secret"`
	Cookie string `mapstructure:"cookie"`
	File   string `mapstructure:"file"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

func (c APIConfig) Validate() error {
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return fmt.Errorf("api.base_url must be an http(s) URL, got %q", c.BaseURL)
	}
	if c.AnalysisAttempts < 1 {
		return fmt.Errorf("api.analysis_attempts must be >= 1")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.environment", "development")
	v.SetDefault("api.base_url", DefaultBaseURL)
	v.SetDefault("api.timeout", 60*time.Second)
	v.SetDefault("api.analysis_base_timeout", 180*time.Second)
	v.SetDefault("api.analysis_attempts", 3)
	v.SetDefault("api.retry_all", false)
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("session.secret", "kakomon-dev-session-key")
	v.SetDefault("session.cookie", "kakomon_session")
	v.SetDefault("session.file", ".kakomon-session.json")
	v.SetDefault("log.level", "info")
}

// Load reads .env (if any), the optional config file at path and KAKOMON_*
// environment variables, in increasing precedence. A missing config file is
// not an error; everything has a default.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("KAKOMON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("kakomon")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.API.BaseURL = strings.TrimRight(cfg.API.BaseURL, "/")
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = DefaultBaseURL
	}

	if err := cfg.API.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
