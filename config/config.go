// Package config loads process configuration from environment variables
// into tagged structs. A .env file in the working directory, if present, is
// read once before the first load; variables already set take precedence.
//
//	type Settings struct {
//		DSN   string `env:"FSM_DB_DSN,required"`
//		Table string `env:"FSM_DB_TABLE" envDefault:"vehicles"`
//	}
//
//	var s Settings
//	err := config.Load(&s)
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	// ErrNilPointer is returned when Load is given a nil pointer.
	ErrNilPointer = errors.New("config: nil pointer")
	// ErrParsingConfig is returned when environment variables do not fit the struct.
	ErrParsingConfig = errors.New("config: failed to parse environment")
)

var defaultEnvLoaded sync.Once

// Load fills v from the environment.
func Load[T any](v *T) error {
	defaultEnvLoaded.Do(func() {
		// The .env file is optional.
		_ = godotenv.Load()
	})

	return parse(v, env.Options{})
}

// LoadFrom fills v from the variables in the given dotenv files, falling
// back to the process environment for anything they do not set. The process
// environment is not modified.
func LoadFrom[T any](v *T, files ...string) error {
	vars, err := godotenv.Read(files...)
	if err != nil {
		return fmt.Errorf("config: read %v: %w", files, err)
	}

	environment := env.ToMap(os.Environ())
	for k, val := range vars {
		if _, set := environment[k]; !set {
			environment[k] = val
		}
	}

	return parse(v, env.Options{Environment: environment})
}

// MustLoad works like Load but panics if configuration loading fails.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("Failed to load required configuration: %v", err))
	}
}

func parse[T any](v *T, opts env.Options) error {
	if v == nil {
		return ErrNilPointer
	}

	if err := env.ParseWithOptions(v, opts); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}

	return nil
}

// Logging is the logging configuration shared by the binaries.
type Logging struct {
	JSON        bool       `env:"LOG_JSON"         envDefault:"false"`
	Level       slog.Level `env:"LOG_LEVEL"        envDefault:"INFO"`
	LegacyLevel slog.Level `env:"LEGACY_LOG_LEVEL" envDefault:"INFO"`
	Output      string     `env:"LOG_OUTPUT"       envDefault:"stderr"`
	OTel        bool       `env:"LOG_OTEL"         envDefault:"false"`
}

// Database selects the store used by the record commands. Driver is one of
// sqlite, postgres, redis or mongo. Table names the table, key prefix or
// collection; Name is the MongoDB database.
type Database struct {
	Driver string `env:"FSM_DB_DRIVER" envDefault:"sqlite"`
	DSN    string `env:"FSM_DB_DSN"`
	Table  string `env:"FSM_DB_TABLE"  envDefault:"records"`
	Name   string `env:"FSM_DB_NAME"   envDefault:"lifecycle"`
}

// Graphviz configures image rendering.
type Graphviz struct {
	Binary string `env:"FSM_DOT_BIN" envDefault:"dot"`
}
