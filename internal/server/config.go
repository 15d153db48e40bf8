package server

import (
	stderrors "errors"
	"fmt"
	"time"

	"github.com/victornm/quizzer/internal/storage"
)

type Config struct {
	HTTP struct {
		Port        int32
		CORSOrigins []string
	}

	GRPC struct {
		Port int32
	}

	DB struct {
		Driver string
		DSN    string
	}

	Redis struct {
		Addrs    []string
		Pass     string
		Prefix   string
		CacheTTL time.Duration
	}

	Grading struct {
		StrictCheckbox bool
	}
}

// DefaultConfig runs against a local SQLite file and a local Redis.
func DefaultConfig() Config {
	var c Config
	c.HTTP.Port = 8080
	c.HTTP.CORSOrigins = []string{"*"}
	c.GRPC.Port = 9090
	c.DB.Driver = string(storage.DriverSQLite)
	c.DB.DSN = "file:quizzer.db"
	c.Redis.Addrs = []string{"localhost:6379"}
	c.Redis.Prefix = "quizzer"
	c.Redis.CacheTTL = 10 * time.Minute
	return c
}

func (c *Config) Validate() error {
	var errs []error

	if c.HTTP.Port <= 0 {
		errs = append(errs, fmt.Errorf("http port must be positive, got %d", c.HTTP.Port))
	}
	if c.GRPC.Port <= 0 {
		errs = append(errs, fmt.Errorf("grpc port must be positive, got %d", c.GRPC.Port))
	}
	if c.HTTP.Port == c.GRPC.Port {
		errs = append(errs, fmt.Errorf("http and grpc ports must differ, both are %d", c.HTTP.Port))
	}

	switch storage.Driver(c.DB.Driver) {
	case storage.DriverSQLite, storage.DriverPostgres:
	default:
		errs = append(errs, fmt.Errorf("db driver must be %q or %q, got %q", storage.DriverSQLite, storage.DriverPostgres, c.DB.Driver))
	}

	if len(c.Redis.Addrs) == 0 {
		errs = append(errs, fmt.Errorf("redis addrs must not be empty"))
	}
	if c.Redis.Prefix == "" {
		errs = append(errs, fmt.Errorf("redis prefix must not be empty"))
	}
	if c.Redis.CacheTTL < 0 {
		errs = append(errs, fmt.Errorf("redis cache ttl must not be negative, got %s", c.Redis.CacheTTL))
	}

	return stderrors.Join(errs...)
}
