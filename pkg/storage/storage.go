// Copyright 2020-2022 The OS-NVR Authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; either version 2 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"dashgps/pkg/loader"
	"dashgps/pkg/pair"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// Worker isolation modes.
const (
	IsolationGoroutine = "goroutine"
	IsolationProcess   = "process"
)

// Environment variables that override env.yaml.
const (
	EnvPort          = "DASHGPS_PORT"
	EnvRecordingsDir = "DASHGPS_RECORDINGS_DIR"
	EnvWorkers       = "DASHGPS_WORKERS"
	EnvUseWorkers    = "DASHGPS_USE_WORKERS"
	EnvIsolation     = "DASHGPS_ISOLATION"
	EnvPairWindow    = "DASHGPS_PAIR_WINDOW"
	EnvLogDB         = "DASHGPS_LOG_DB"
)

// ConfigEnv stores system configuration.
type ConfigEnv struct {
	Port          int    `yaml:"port"`
	HomeDir       string `yaml:"homeDir"`
	RecordingsDir string `yaml:"recordingsDir"`
	LogDB         string `yaml:"logDB"`

	// Number of workers, 0 uses the number of logical cpus.
	Workers    int           `yaml:"workers"`
	UseWorkers *bool         `yaml:"useWorkers"`
	Isolation  string        `yaml:"isolation"`
	PairWindow time.Duration `yaml:"pairWindow"`

	// Format detection rules in priority order.
	Formats []loader.Rule `yaml:"formats"`

	ConfigDir string `yaml:"-"`
}

// Errors.
var (
	ErrPathNotAbsolute  = errors.New("path is not absolute")
	ErrInvalidIsolation = errors.New("invalid isolation")
	ErrInvalidValue     = errors.New("invalid value")
)

// LookupEnvFunc is used for mocking.
type LookupEnvFunc func(string) (string, bool)

// NewConfigEnv return new environment configuration.
// Variables from the process environment and from a
// ".env" file next to envPath override the yaml values.
func NewConfigEnv(envPath string, envYAML []byte) (*ConfigEnv, error) {
	dotenv, err := godotenv.Read(filepath.Join(filepath.Dir(envPath), ".env"))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read .env: %w", err)
	}
	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
	return newConfigEnv(envPath, envYAML, lookup)
}

func newConfigEnv(envPath string, envYAML []byte, lookup LookupEnvFunc) (*ConfigEnv, error) { //nolint:funlen
	var env ConfigEnv

	if err := yaml.Unmarshal(envYAML, &env); err != nil {
		return nil, fmt.Errorf("unmarshal env.yaml: %w", err)
	}
	if err := env.applyOverrides(lookup); err != nil {
		return nil, err
	}

	env.ConfigDir = filepath.Dir(envPath)

	if env.Port == 0 {
		env.Port = 2020
	}
	if env.HomeDir == "" {
		env.HomeDir = filepath.Dir(env.ConfigDir)
	}
	if env.RecordingsDir == "" {
		env.RecordingsDir = filepath.Join(env.HomeDir, "recordings")
	}
	if env.LogDB == "" {
		env.LogDB = filepath.Join(env.HomeDir, "logs.db")
	}
	if env.UseWorkers == nil {
		useWorkers := true
		env.UseWorkers = &useWorkers
	}
	if env.Isolation == "" {
		env.Isolation = IsolationGoroutine
	}
	if env.PairWindow == 0 {
		env.PairWindow = pair.Window
	}
	if len(env.Formats) == 0 {
		env.Formats = loader.DefaultRules
	}

	if env.Workers < 0 {
		return nil, fmt.Errorf("workers '%v': %w", env.Workers, ErrInvalidValue)
	}
	if env.PairWindow < 0 {
		return nil, fmt.Errorf("pairWindow '%v': %w", env.PairWindow, ErrInvalidValue)
	}
	if env.Isolation != IsolationGoroutine && env.Isolation != IsolationProcess {
		return nil, fmt.Errorf("%w: %q", ErrInvalidIsolation, env.Isolation)
	}
	if err := loader.ValidateRules(env.Formats); err != nil {
		return nil, fmt.Errorf("formats: %w", err)
	}

	if !filepath.IsAbs(env.HomeDir) {
		return nil, fmt.Errorf("homeDir '%v': %w", env.HomeDir, ErrPathNotAbsolute)
	}
	if !filepath.IsAbs(env.RecordingsDir) {
		return nil, fmt.Errorf("recordingsDir '%v': %w", env.RecordingsDir, ErrPathNotAbsolute)
	}
	if !filepath.IsAbs(env.LogDB) {
		return nil, fmt.Errorf("logDB '%v': %w", env.LogDB, ErrPathNotAbsolute)
	}

	return &env, nil
}

func (env *ConfigEnv) applyOverrides(lookup LookupEnvFunc) error {
	if v, ok := lookup(EnvPort); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%v: %w", EnvPort, err)
		}
		env.Port = port
	}
	if v, ok := lookup(EnvRecordingsDir); ok {
		env.RecordingsDir = v
	}
	if v, ok := lookup(EnvWorkers); ok {
		workers, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%v: %w", EnvWorkers, err)
		}
		env.Workers = workers
	}
	if v, ok := lookup(EnvUseWorkers); ok {
		useWorkers, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%v: %w", EnvUseWorkers, err)
		}
		env.UseWorkers = &useWorkers
	}
	if v, ok := lookup(EnvIsolation); ok {
		env.Isolation = v
	}
	if v, ok := lookup(EnvPairWindow); ok {
		window, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%v: %w", EnvPairWindow, err)
		}
		env.PairWindow = window
	}
	if v, ok := lookup(EnvLogDB); ok {
		env.LogDB = v
	}
	return nil
}

// WorkersEnabled returns false if the worker pool is disabled.
func (env ConfigEnv) WorkersEnabled() bool {
	return env.UseWorkers == nil || *env.UseWorkers
}

// PrepareEnvironment prepares directories.
func (env ConfigEnv) PrepareEnvironment() error {
	err := os.MkdirAll(env.RecordingsDir, 0o700)
	if err != nil && !errors.Is(err, os.ErrExist) {
		return fmt.Errorf("create recordings directory: %v: %w", env.RecordingsDir, err)
	}

	err = os.MkdirAll(filepath.Dir(env.LogDB), 0o700)
	if err != nil && !errors.Is(err, os.ErrExist) {
		return fmt.Errorf("create log directory: %v: %w", env.LogDB, err)
	}
	return nil
}
