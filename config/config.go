// Copyright 2019 The go-daq Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config describes how logic acquisition processes are configured.
package config // import "github.com/go-daq/ad2/config"

import (
	"bytes"
	"io"
	"io/ioutil"
	"time"

	"github.com/go-daq/ad2/log"
	"github.com/go-daq/ad2/trigger"
	"golang.org/x/xerrors"
	"gopkg.in/yaml.v3"
)

// Acquire describes how a logic acquisition process should be configured.
type Acquire struct {
	Name  string    `yaml:"name"`  // name of the acquisition process
	Level log.Level `yaml:"level"` // verbosity level of the acquisition process

	Device     int    `yaml:"device"`  // enumeration index of the device to acquire
	SampleRate uint64 `yaml:"rate"`    // sample rate, in Hz
	Trigger    string `yaml:"trigger"` // trigger condition, e.g. "0=1,3=r"

	Output  string `yaml:"output"`   // session output: file path, tcp:// or ipc:// end-point
	Web     string `yaml:"web"`      // address of the HTTP monitoring server (optional)
	LogFile string `yaml:"log-file"` // path to a rotated log file (optional)

	Period time.Duration `yaml:"period"` // polling period
	Limit  int64         `yaml:"limit"`  // number of samples after which to stop (0: no limit)

	Sim  bool   `yaml:"sim"`  // use simulated devices
	Seed uint64 `yaml:"seed"` // seed of the simulated devices

	Args []string `yaml:"-"` // additional flag arguments
}

// Default returns the default acquisition configuration.
func Default() Acquire {
	return Acquire{
		Name:       "ad2",
		Level:      log.LvlInfo,
		SampleRate: 100,
		Output:     "out.ad2",
		Period:     100 * time.Millisecond,
	}
}

// Load reads the YAML configuration file at fname, on top of the default
// configuration.
func Load(fname string) (Acquire, error) {
	raw, err := ioutil.ReadFile(fname)
	if err != nil {
		return Acquire{}, xerrors.Errorf("config: could not read %q: %w", fname, err)
	}

	cfg, err := Decode(bytes.NewReader(raw))
	if err != nil {
		return cfg, xerrors.Errorf("config: could not load %q: %w", fname, err)
	}
	return cfg, nil
}

// Decode reads a YAML configuration from r, on top of the default
// configuration. Unknown fields are rejected.
func Decode(r io.Reader) (Acquire, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	err := dec.Decode(&cfg)
	switch {
	case err == io.EOF:
		// empty document.
	case err != nil:
		return cfg, xerrors.Errorf("config: could not decode YAML: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate checks the consistency of the configuration.
func (cfg Acquire) Validate() error {
	switch cfg.Level {
	case log.LvlSpew, log.LvlDebug, log.LvlInfo, log.LvlWarning, log.LvlError:
	default:
		return xerrors.Errorf("config: invalid verbosity level %d", int(cfg.Level))
	}
	if cfg.Device < 0 {
		return xerrors.Errorf("config: invalid device index %d", cfg.Device)
	}
	if cfg.SampleRate == 0 {
		return xerrors.Errorf("config: sample rate must be non-zero")
	}
	if _, err := trigger.Parse(cfg.Trigger); err != nil {
		return xerrors.Errorf("config: invalid trigger %q: %w", cfg.Trigger, err)
	}
	if cfg.Output == "" {
		return xerrors.Errorf("config: missing session output")
	}
	if cfg.Period <= 0 {
		return xerrors.Errorf("config: invalid polling period %v", cfg.Period)
	}
	if cfg.Limit < 0 {
		return xerrors.Errorf("config: invalid sample limit %d", cfg.Limit)
	}
	return nil
}
