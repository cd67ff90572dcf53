// Package config loads the optional user defaults file (~/.runx/config.yml).
// Values there act as base defaults for the run command flags.
package config

import (
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/slok/runx/internal/model"
)

// Defaults are the user-provided default run options.
type Defaults struct {
	Timeout        time.Duration
	Encoding       string
	ValidExitCodes []int
	LiveOutput     bool
	History        bool
}

// Load loads a defaults file from a filesystem path. A missing file is
// reported as model.ErrNotFound so callers can treat it as "no defaults".
func Load(path string) (Defaults, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Defaults{History: true}, fmt.Errorf("config file %q: %w", path, model.ErrNotFound)
		}
		return Defaults{}, fmt.Errorf("reading config file: %w", err)
	}

	return parse(data)
}

// LoadFS is like Load over an fs.FS, mainly for tests.
func LoadFS(fsys fs.FS, path string) (Defaults, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return Defaults{}, fmt.Errorf("reading config file: %w", err)
	}

	return parse(data)
}

func parse(data []byte) (Defaults, error) {
	var cfg rawConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Defaults{}, fmt.Errorf("parsing YAML: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Defaults{}, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg.toModel()
}

// rawConfig represents the YAML structure of the defaults file.
type rawConfig struct {
	Timeout        string `yaml:"timeout"`
	Encoding       string `yaml:"encoding"`
	ValidExitCodes []int  `yaml:"valid_exit_codes"`
	LiveOutput     bool   `yaml:"live_output"`
	History        *bool  `yaml:"history"`
}

func (c rawConfig) validate() error {
	if c.Timeout != "" {
		d, err := time.ParseDuration(c.Timeout)
		if err != nil {
			return fmt.Errorf("timeout: %w: %w", err, model.ErrNotValid)
		}
		if d < 0 {
			return fmt.Errorf("timeout cannot be negative: %w", model.ErrNotValid)
		}
	}
	return nil
}

func (c rawConfig) toModel() (Defaults, error) {
	d := Defaults{
		Encoding:       c.Encoding,
		ValidExitCodes: c.ValidExitCodes,
		LiveOutput:     c.LiveOutput,
		History:        true,
	}

	if c.Timeout != "" {
		timeout, err := time.ParseDuration(c.Timeout)
		if err != nil {
			return Defaults{}, fmt.Errorf("timeout: %w", err)
		}
		d.Timeout = timeout
	}
	if c.History != nil {
		d.History = *c.History
	}

	return d, nil
}
