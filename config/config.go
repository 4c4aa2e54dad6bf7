// Copyright 2020-2021 Dolthub, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads the engine configuration from YAML with
// environment overrides.
package config

import (
	"io/ioutil"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
	"gopkg.in/src-d/go-errors.v1"
	yaml "gopkg.in/yaml.v2"
)

const (
	// DebugEnv enables analyzer debug logs when set.
	DebugEnv = "DEBUG_ANALYZER"
	// LogLevelEnv overrides the log level.
	LogLevelEnv = "CAGG_LOG_LEVEL"
	// StorePathEnv overrides the record store directory.
	StorePathEnv = "CAGG_STORE_PATH"

	// DefaultLogLevel is the log level when none is configured.
	DefaultLogLevel = "info"
	// DefaultScheduleFloor is the shortest refresh interval when none is
	// configured.
	DefaultScheduleFloor = "1m"
)

// ErrInvalidConfig is returned when a configuration cannot be used.
var ErrInvalidConfig = errors.NewKind("invalid configuration: %s")

// Config of the engine.
type Config struct {
	// Debug logs every analyzer rule.
	Debug bool `yaml:"debug"`
	// Verbose prints the assembled queries.
	Verbose  bool   `yaml:"verbose"`
	LogLevel string `yaml:"log_level"`
	// StorePath is the directory of the record store. Records are kept in
	// memory only when it is empty.
	StorePath string `yaml:"store_path"`
	// Catalog is a YAML catalog fixture loaded on start.
	Catalog       string `yaml:"catalog"`
	ScheduleFloor string `yaml:"schedule_floor"`
	User          string `yaml:"user"`
	CatalogOwner  string `yaml:"catalog_owner"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		LogLevel:      DefaultLogLevel,
		ScheduleFloor: DefaultScheduleFloor,
	}
}

// Parse decodes a YAML configuration on top of the defaults.
func Parse(data []byte) (*Config, error) {
	c := Default()
	if err := yaml.UnmarshalStrict(data, c); err != nil {
		return nil, ErrInvalidConfig.Wrap(err, "yaml")
	}
	return c, nil
}

// Load reads the configuration file at path, or the defaults if path is
// empty, and applies the environment overrides.
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		data, err := ioutil.ReadFile(path)
		if err != nil {
			return nil, err
		}

		c, err = Parse(data)
		if err != nil {
			return nil, err
		}
	}

	c.ApplyEnv(os.LookupEnv)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// ApplyEnv overrides the configuration with the variables found by lookup.
// A DEBUG_ANALYZER variable that is set but not a boolean turns debug on.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(DebugEnv); ok {
		debug, err := cast.ToBoolE(v)
		c.Debug = err != nil || debug
	}
	if v, ok := lookup(LogLevelEnv); ok {
		c.LogLevel = v
	}
	if v, ok := lookup(StorePathEnv); ok {
		c.StorePath = v
	}
}

// Validate checks the values that need parsing.
func (c *Config) Validate() error {
	if _, err := c.Level(); err != nil {
		return err
	}
	_, err := c.Floor()
	return err
}

// Level returns the logrus level of the configuration.
func (c *Config) Level() (logrus.Level, error) {
	if c.LogLevel == "" {
		return logrus.InfoLevel, nil
	}
	lvl, err := logrus.ParseLevel(strings.TrimSpace(c.LogLevel))
	if err != nil {
		return 0, ErrInvalidConfig.Wrap(err, "log_level")
	}
	return lvl, nil
}

// Floor returns the shortest interval between two refreshes of a
// continuous aggregate.
func (c *Config) Floor() (time.Duration, error) {
	if c.ScheduleFloor == "" {
		return time.Minute, nil
	}
	d, err := cast.ToDurationE(c.ScheduleFloor)
	if err != nil {
		return 0, ErrInvalidConfig.Wrap(err, "schedule_floor")
	}
	if d <= 0 {
		return 0, ErrInvalidConfig.New("schedule_floor must be positive")
	}
	return d, nil
}
