package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/NetPo4ki/go-fanin/coordinator"
)

// EnvPrefix is prepended to every variable name.
const EnvPrefix = "FANIN_"

// PolicyAll runs every policy in turn.
const PolicyAll = "all"

// Config drives cmd/fanin.
type Config struct {
	Services       []string      `env:"SERVICES" envDefault:"service1,service2,service3"`
	Inputs         []string      `env:"INPUTS" envDefault:"msg1,msg2,msg3"`
	Failing        []string      `env:"FAILING"`
	Delay          time.Duration `env:"DELAY" envDefault:"100ms"`
	Jitter         time.Duration `env:"JITTER" envDefault:"50ms"`
	Fallback       string        `env:"FALLBACK" envDefault:"FALLBACK"`
	Policy         string        `env:"POLICY" envDefault:"all"`
	Timeout        time.Duration `env:"TIMEOUT" envDefault:"5s"`
	MaxConcurrency int           `env:"MAX_CONCURRENCY" envDefault:"0"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	MetricsAddr    string        `env:"METRICS_ADDR"`
	TraceStdout    bool          `env:"TRACE_STDOUT" envDefault:"false"`
}

// Error is returned for configuration that cannot be used.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string { return fmt.Sprintf("config %s: %s", e.Field, e.Message) }

var errParse = errors.New("failed to parse configuration")

// Load reads an optional .env file, then the environment, and validates the
// result.
func Load() (Config, error) {
	// a missing .env file is fine
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv parses the current environment without touching .env files.
func FromEnv() (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, errors.Join(errParse, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	if len(c.Services) == 0 {
		return &Error{Field: "SERVICES", Message: "at least one service is required"}
	}
	if len(c.Services) != len(c.Inputs) {
		return &Error{Field: "INPUTS", Message: fmt.Sprintf("expected %d inputs, got %d", len(c.Services), len(c.Inputs))}
	}
	for _, id := range c.Failing {
		if !slices.Contains(c.Services, id) {
			return &Error{Field: "FAILING", Message: fmt.Sprintf("unknown service %q", id)}
		}
	}
	if _, err := c.Modes(); err != nil {
		return &Error{Field: "POLICY", Message: err.Error()}
	}
	if c.Delay < 0 {
		return &Error{Field: "DELAY", Message: "cannot be negative"}
	}
	if c.Jitter < 0 {
		return &Error{Field: "JITTER", Message: "cannot be negative"}
	}
	if c.Timeout <= 0 {
		return &Error{Field: "TIMEOUT", Message: "must be positive"}
	}
	return nil
}

// Modes returns the policies to run.
func (c Config) Modes() ([]coordinator.Mode, error) {
	if strings.EqualFold(strings.TrimSpace(c.Policy), PolicyAll) {
		return []coordinator.Mode{coordinator.ModeFailFast, coordinator.ModeFailPartial, coordinator.ModeFailSoft}, nil
	}
	m, err := coordinator.ParseMode(c.Policy)
	if err != nil {
		return nil, err
	}
	return []coordinator.Mode{m}, nil
}

// IsFailing reports whether the service id is configured to fail.
func (c Config) IsFailing(id string) bool { return slices.Contains(c.Failing, id) }
