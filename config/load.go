package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Service holds the settings of the curve daemon and its HTTP surface.
type Service struct {
	LogLevel   string        `yaml:"log_level"`
	LogPretty  bool          `yaml:"log_pretty"`
	DBDriver   string        `yaml:"db_driver"` // sqlite or postgres
	DBDSN      string        `yaml:"db_dsn"`
	Listen     string        `yaml:"listen"`
	QuotesPath string        `yaml:"quotes_path"`
	Schedule   string        `yaml:"schedule"` // cron spec; empty means Interval
	Interval   time.Duration `yaml:"interval"`
}

// File is the on-disk YAML layout.
type File struct {
	Numerics Config  `yaml:"numerics"`
	Service  Service `yaml:"service"`
}

// DefaultService mirrors the defaults used when no file is present.
var DefaultService = Service{
	LogLevel: "info",
	DBDriver: "sqlite",
	DBDSN:    "file:latent.db?_pragma=busy_timeout(5000)",
	Listen:   ":8085",
	Interval: time.Minute,
}

// Load reads path (if non-empty) over the defaults, then applies LATENT_*
// environment overrides. A .env file in the working directory is loaded first
// when present.
func Load(path string) (File, error) {
	_ = godotenv.Load()

	f := File{Numerics: DefaultConfig, Service: DefaultService}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return File{}, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &f); err != nil {
			return File{}, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := applyEnv(&f); err != nil {
		return File{}, err
	}
	if err := f.Numerics.Validate(); err != nil {
		return File{}, err
	}
	return f, nil
}

// Validate rejects settings the solvers cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.ConvergenceTolerance <= 0 {
		errs = append(errs, errors.New("convergence_tolerance must be positive"))
	}
	if c.MaxIterations <= 0 {
		errs = append(errs, errors.New("max_iterations must be positive"))
	}
	if c.DampingFactor <= 0 {
		errs = append(errs, errors.New("damping_factor must be positive"))
	}
	if c.DerivativeStep <= 0 {
		errs = append(errs, errors.New("derivative_step must be positive"))
	}
	if c.MaxSeriesTerms <= 0 {
		errs = append(errs, errors.New("max_series_terms must be positive"))
	}
	if c.QuadratureNodes <= 0 {
		errs = append(errs, errors.New("quadrature_nodes must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid numerics config: %w", errors.Join(errs...))
	}
	return nil
}

func applyEnv(f *File) error {
	f.Service.LogLevel = getEnv("LATENT_LOG_LEVEL", f.Service.LogLevel)
	f.Service.DBDriver = getEnv("LATENT_DB_DRIVER", f.Service.DBDriver)
	f.Service.DBDSN = getEnv("LATENT_DB_DSN", f.Service.DBDSN)
	f.Service.Listen = getEnv("LATENT_LISTEN", f.Service.Listen)
	f.Service.QuotesPath = getEnv("LATENT_QUOTES_PATH", f.Service.QuotesPath)
	f.Service.Schedule = getEnv("LATENT_SCHEDULE", f.Service.Schedule)

	var err error
	if f.Service.LogPretty, err = getEnvBool("LATENT_LOG_PRETTY", f.Service.LogPretty); err != nil {
		return err
	}
	if v := os.Getenv("LATENT_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid LATENT_INTERVAL: %w", err)
		}
		f.Service.Interval = d
	}
	if f.Numerics.MaxIterations, err = getEnvInt("LATENT_MAX_ITERATIONS", f.Numerics.MaxIterations); err != nil {
		return err
	}
	if f.Numerics.ConvergenceTolerance, err = getEnvFloat("LATENT_TOLERANCE", f.Numerics.ConvergenceTolerance); err != nil {
		return err
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
