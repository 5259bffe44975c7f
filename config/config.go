package config

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/caarlos0/env"
	"github.com/joho/godotenv"
)

// Fixed pipeline parameters. Runtime-tunable settings (stacking on/off,
// anchor time) live in the cache document and override the env defaults.
const (
	EventLength           = 50 * time.Minute
	SubmissionCacheMaxAge = time.Hour
	DaysBack              = 60
	DaysFwd               = 60
	RepeatDays            = 180
	DefaultStackStart     = "08:25"
)

type Config struct {
	Host string `env:"HOST" envDefault:"127.0.0.1"`
	Port int    `env:"PORT" envDefault:"4588"`

	SchoologyKey    string `env:"SCHOOLOGY_KEY"`
	SchoologySecret string `env:"SCHOOLOGY_SECRET"`
	SchoologyUID    string `env:"SCHOOLOGY_UID"`

	DataDir            string `env:"DATA_DIR" envDefault:"./resources"`
	TimezoneName       string `env:"TIMEZONE"`
	CourseDueTimesJSON string `env:"COURSE_DUE_TIMES_JSON" envDefault:"{}"`
	StackEvents        bool   `env:"STACK_EVENTS" envDefault:"true"`

	CertPath string `env:"CERT_PATH"`
	KeyPath  string `env:"KEY_PATH"`
	Debug    bool   `env:"DEBUG" envDefault:"false"`

	// Derived fields, filled in by Load.
	Timezone       *time.Location    `env:"-"`
	CourseDueTimes map[string]string `env:"-"`
}

// Load reads configuration from the environment, loading a .env file
// first when one is present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if cfg.TimezoneName == "" {
		cfg.Timezone = time.Local
	} else {
		tz, err := time.LoadLocation(cfg.TimezoneName)
		if err != nil {
			return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
		}
		cfg.Timezone = tz
	}

	cfg.CourseDueTimes = map[string]string{}
	if cfg.CourseDueTimesJSON != "" {
		if err := json.Unmarshal([]byte(cfg.CourseDueTimesJSON), &cfg.CourseDueTimes); err != nil {
			return nil, fmt.Errorf("invalid COURSE_DUE_TIMES_JSON: %w", err)
		}
	}

	return cfg, nil
}

// BaseURL is the externally reachable base for the mark/unmark action
// links injected into item descriptions.
func (c *Config) BaseURL() string {
	return fmt.Sprintf("https://%s:%d", c.Host, c.Port)
}

// HasUser reports whether a Schoology user identity is configured.
func (c *Config) HasUser() bool {
	return c.SchoologyUID != ""
}

// HasAPICredentials reports whether the LMS API can be called at all.
func (c *Config) HasAPICredentials() bool {
	return c.SchoologyKey != "" && c.SchoologySecret != ""
}
