// Copyright 2016 Patrick Brosi
// Authors: info@patrickbrosi.de
//
// Use of this source code is governed by a GPL v2
// license that can be found in the LICENSE file

// Package config loads the configuration of a reconciliation run from a
// YAML file, a .env file and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// InputConfig contains the input file locations
type InputConfig struct {
	Dataset      string `yaml:"dataset"`
	Fragments    string `yaml:"fragments"`
	StopRegistry string `yaml:"stopRegistry"`
}

// ReconcileConfig contains the tolerances and switches of the processors
type ReconcileConfig struct {
	MaxConnectDistance float64 `yaml:"maxConnectDistance" validate:"gte=0"`
	ShapeEpsilon       float64 `yaml:"shapeEpsilon" validate:"gte=0"`
	DropIdentical      bool    `yaml:"dropIdentical"`
	DropEmptyCalendars bool    `yaml:"dropEmptyCalendars"`
	Sequential         bool    `yaml:"sequential"`
}

// OutputConfig contains the output locations, empty values disable an output
type OutputConfig struct {
	Path        string `yaml:"path"`
	Assignments string `yaml:"assignments"`
	Paths       string `yaml:"paths"`
	Diagnostics string `yaml:"diagnostics"`
	Metrics     string `yaml:"metrics"`

	IdBase         int     `yaml:"idBase" validate:"gte=2,lte=36"`
	ShapeMaxEqDist float64 `yaml:"shapeMaxEqDist" validate:"gte=0"`
}

// LogConfig contains logging configuration
type LogConfig struct {
	Level     string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	TopGroups int    `yaml:"topGroups" validate:"gte=0"`
}

// NATSConfig contains the progress notification target
type NATSConfig struct {
	URL    string `yaml:"url" validate:"omitempty,url"`
	Prefix string `yaml:"prefix"`
}

// DatabaseConfig contains the diagnostics store connection
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// AppConfig is the root configuration structure
type AppConfig struct {
	Input     InputConfig     `yaml:"input"`
	Reconcile ReconcileConfig `yaml:"reconcile"`
	Output    OutputConfig    `yaml:"output"`
	Log       LogConfig       `yaml:"log"`
	NATS      NATSConfig      `yaml:"nats"`
	Database  DatabaseConfig  `yaml:"database"`
}

// Environment variables overriding the file configuration
const (
	EnvDatabaseURL = "RECONCILE_DATABASE_URL"
	EnvNATSURL     = "NATS_URL"
	EnvLogLevel    = "RECONCILE_LOG_LEVEL"
)

var validate = validator.New()

// Default returns the configuration used if no file is given
func Default() *AppConfig {
	return &AppConfig{
		Reconcile: ReconcileConfig{
			MaxConnectDistance: 10,
			ShapeEpsilon:       1.0,
		},
		Output: OutputConfig{
			Path:   "gtfs-out",
			IdBase: 10,
		},
		Log: LogConfig{
			Level:     "info",
			TopGroups: 10,
		},
		NATS: NATSConfig{
			Prefix: "reconcile",
		},
	}
}

// Load reads the YAML file at path on top of the defaults, applies
// overrides from envFiles and the environment and validates the result.
// An empty path skips the file. Without envFiles, a .env file in the
// working directory is used if present.
func Load(path string, envFiles ...string) (*AppConfig, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	dotenv, err := readEnvFiles(envFiles)
	if err != nil {
		return nil, err
	}

	cfg.applyEnv(func(key string) string {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
		return strings.TrimSpace(dotenv[key])
	})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks all constraints of the configuration
func (c *AppConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c *AppConfig) applyEnv(getenv func(string) string) {
	if v := getenv(EnvDatabaseURL); v != "" {
		c.Database.URL = v
	}
	if v := getenv(EnvNATSURL); v != "" {
		c.NATS.URL = v
	}
	if v := getenv(EnvLogLevel); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
}

func readEnvFiles(files []string) (map[string]string, error) {
	if len(files) == 0 {
		m, err := godotenv.Read()
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read .env: %w", err)
		}
		return m, nil
	}

	m, err := godotenv.Read(files...)
	if err != nil {
		return nil, fmt.Errorf("read env files: %w", err)
	}
	return m, nil
}
