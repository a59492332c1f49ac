// Copyright 2026 The Fleetvisor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use file except in compliance with the License.
// You may obtain a copy of the license at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config holds the fleet definition.  Defaults are compiled
// in; a YAML file may override them at startup.  Nothing here is
// consulted again once the supervisor is running.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gdamore/fleetvisor"
)

// Compiled-in defaults.
var (
	DefaultMembers = []int{3000, 3001, 3002}
	DefaultCommand = []string{"node", "test.js"}
)

const (
	DefaultLogFile = "fleet_log.txt"
)

// Config describes the fleet and how to launch it, as read from YAML.
type Config struct {
	Members     []int    `yaml:"members"`
	Command     []string `yaml:"command"`
	Env         []string `yaml:"env,omitempty"`
	PortFlag    string   `yaml:"portFlag,omitempty"`
	FellowsFlag string   `yaml:"fellowsFlag,omitempty"`
	Dir         string   `yaml:"dir,omitempty"`
	LogFile     string   `yaml:"logFile,omitempty"`
	Marker      string   `yaml:"marker,omitempty"`
	Listen      string   `yaml:"listen,omitempty"`
}

// Default returns the compiled-in configuration.
func Default() *Config {
	return &Config{
		Members:     append([]int(nil), DefaultMembers...),
		Command:     append([]string(nil), DefaultCommand...),
		PortFlag:    fleetvisor.DefaultPortFlag,
		FellowsFlag: fleetvisor.DefaultFellowsFlag,
		LogFile:     DefaultLogFile,
		Marker:      fleetvisor.DefaultMarker,
	}
}

// Load reads a YAML file over the defaults and validates the result.
// Keys that are absent keep their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Default()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Validate checks that the configuration describes a usable fleet.
func (c *Config) Validate() error {
	if _, err := fleetvisor.NewFleet(c.Members); err != nil {
		return err
	}
	if len(c.Command) == 0 || strings.TrimSpace(c.Command[0]) == "" {
		return errors.New("no worker command")
	}
	if c.PortFlag != "" && strings.Count(c.PortFlag, "%") != 1 {
		return fmt.Errorf("portFlag %q needs exactly one verb", c.PortFlag)
	}
	if c.FellowsFlag != "" && strings.Count(c.FellowsFlag, "%") != 1 {
		return fmt.Errorf("fellowsFlag %q needs exactly one verb", c.FellowsFlag)
	}
	if c.LogFile == "" {
		return errors.New("no log file")
	}
	return nil
}

// Fleet returns the configured members.
func (c *Config) Fleet() ([]fleetvisor.Member, error) {
	return fleetvisor.NewFleet(c.Members)
}

// BaseDir is where workers run and where a relative log file lives.
func (c *Config) BaseDir() string {
	if c.Dir != "" {
		return c.Dir
	}
	return fleetvisor.DefaultDir()
}

// LogPath resolves the log file against BaseDir.
func (c *Config) LogPath() string {
	if filepath.IsAbs(c.LogFile) {
		return c.LogFile
	}
	return filepath.Join(c.BaseDir(), c.LogFile)
}

// Launcher returns a launcher for the configured worker command.
func (c *Config) Launcher() *fleetvisor.CommandLauncher {
	return &fleetvisor.CommandLauncher{
		Args:        append([]string(nil), c.Command...),
		Dir:         c.BaseDir(),
		Env:         append([]string(nil), c.Env...),
		PortFlag:    c.PortFlag,
		FellowsFlag: c.FellowsFlag,
	}
}
