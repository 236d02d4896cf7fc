// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the zsls YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/zsls/services/zs/workspace"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Environment overrides, applied after the file.
const (
	EnvProjectRoot = "ZSLS_PROJECT_ROOT"
	EnvSystemRoot  = "ZSLS_SYSTEM_ROOT"
	EnvLogLevel    = "ZSLS_LOG_LEVEL"
	EnvParser      = "ZSLS_PARSER"
)

// Config is the complete server configuration.
type Config struct {
	ProjectRoot string   `yaml:"project_root"`
	SystemRoot  string   `yaml:"system_root"`
	IncludeDirs []string `yaml:"include_dirs" validate:"dive,required"`
	SystemEntry string   `yaml:"system_entry" validate:"required"`
	MaxFileSize int64    `yaml:"max_file_size" validate:"gt=0"`

	// Parser names the parser backend: zs or tree-sitter-java.
	Parser string `yaml:"parser" validate:"oneof=zs tree-sitter-java"`

	Log       LogConfig       `yaml:"log"`
	HTTP      HTTPConfig      `yaml:"http"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Watch     WatchConfig     `yaml:"watch"`
}

// LogConfig configures pkg/logging.
type LogConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
	Dir   string `yaml:"dir"`
	JSON  bool   `yaml:"json"`
}

// HTTPConfig configures the HTTP API.
type HTTPConfig struct {
	Addr string `yaml:"addr" validate:"required,hostname_port"`
}

// TelemetryConfig selects otel exporters.
type TelemetryConfig struct {
	TraceExporter  string `yaml:"trace_exporter" validate:"oneof=none stdout otlp"`
	MetricExporter string `yaml:"metric_exporter" validate:"oneof=none stdout prometheus"`
	OTLPEndpoint   string `yaml:"otlp_endpoint" validate:"required_if=TraceExporter otlp"`
	OTLPInsecure   bool   `yaml:"otlp_insecure"`
	Prometheus     bool   `yaml:"prometheus"`
}

// WatchConfig configures the file watcher.
type WatchConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Debounce time.Duration `yaml:"debounce" validate:"gte=0"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		ProjectRoot: ".",
		SystemEntry: workspace.DefaultSystemEntry,
		MaxFileSize: 10 * 1024 * 1024,
		Parser:      workspace.ParserZS,
		Log:         LogConfig{Level: "info"},
		HTTP:        HTTPConfig{Addr: ":8088"},
		Telemetry:   TelemetryConfig{TraceExporter: "none", MetricExporter: "none"},
		Watch:       WatchConfig{Enabled: true, Debounce: workspace.DefaultDebounce},
	}
}

var validate = validator.New()

// Load reads the configuration at path.
//
// Description:
//
//	Starts from Default, overlays the YAML file, then applies the
//	ZSLS_* environment overrides, and validates the result. An empty path
//	skips the file.
//
// Outputs:
//
//	Config - The validated configuration.
//	error  - A read or YAML error, or a wrapped ErrInvalidConfig.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvProjectRoot); v != "" {
		c.ProjectRoot = v
	}
	if v := os.Getenv(EnvSystemRoot); v != "" {
		c.SystemRoot = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if v := os.Getenv(EnvParser); v != "" {
		c.Parser = strings.ToLower(v)
	}
}

// Validate checks the struct tags.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]error, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Errorf("%s: failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(msgs...))
		}
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Workspace returns the include search configuration.
func (c Config) Workspace() workspace.Config {
	return workspace.Config{
		ProjectRoot: c.ProjectRoot,
		SystemRoot:  c.SystemRoot,
		IncludeDirs: c.IncludeDirs,
		SystemEntry: c.SystemEntry,
	}
}
