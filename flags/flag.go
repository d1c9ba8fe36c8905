// Copyright 2019 The go-daq Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package flags provides an easy creation of standard flag parameters for
// logic acquisition processes.
package flags // import "github.com/go-daq/ad2/flags"

import (
	"flag"
	"os"

	"github.com/go-daq/ad2/config"
	"github.com/go-daq/ad2/log"
	"golang.org/x/xerrors"
)

// New parses the command-line flags into an acquisition configuration.
// It exits the process on invalid flags or configuration.
func New() config.Acquire {
	cfg, err := Parse(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("could not configure acquisition: %+v", err)
	}
	return cfg
}

// Parse parses args with fs into an acquisition configuration.
//
// When a -cfg YAML file is given, it provides the base configuration and
// only the flags explicitly set on the command line override it.
func Parse(fs *flag.FlagSet, args []string) (config.Acquire, error) {
	var (
		def = config.Default()
		cmd = def
		lvl string
		cfg string
	)

	fs.StringVar(&cfg, "cfg", "", "path to a YAML configuration file")
	fs.StringVar(&cmd.Name, "id", def.Name, "name of the acquisition process")
	fs.StringVar(&lvl, "lvl", "INFO", "msgstream level")
	fs.IntVar(&cmd.Device, "dev", def.Device, "enumeration index of the device")
	fs.Uint64Var(&cmd.SampleRate, "rate", def.SampleRate, "sample rate (Hz)")
	fs.StringVar(&cmd.Trigger, "trigger", def.Trigger, "trigger condition (e.g. 0=1,3=r)")
	fs.StringVar(&cmd.Output, "o", def.Output, "session output (file, tcp://addr:port, ipc://path)")
	fs.StringVar(&cmd.Web, "web", def.Web, "[addr]:port of the HTTP monitoring server")
	fs.StringVar(&cmd.LogFile, "log-file", def.LogFile, "path to a rotated log file")
	fs.DurationVar(&cmd.Period, "period", def.Period, "polling period")
	fs.Int64Var(&cmd.Limit, "limit", def.Limit, "number of samples after which to stop (0: no limit)")
	fs.BoolVar(&cmd.Sim, "sim", def.Sim, "use simulated devices")
	fs.Uint64Var(&cmd.Seed, "seed", def.Seed, "seed of the simulated devices")

	err := fs.Parse(args)
	if err != nil {
		return cmd, err
	}

	lv, err := log.ParseLevel(lvl)
	if err != nil {
		return cmd, xerrors.Errorf("flags: invalid -lvl: %w", err)
	}
	cmd.Level = lv
	cmd.Args = fs.Args()

	if cfg == "" {
		return cmd, cmd.Validate()
	}

	base, err := config.Load(cfg)
	if err != nil {
		return cmd, err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "id":
			base.Name = cmd.Name
		case "lvl":
			base.Level = cmd.Level
		case "dev":
			base.Device = cmd.Device
		case "rate":
			base.SampleRate = cmd.SampleRate
		case "trigger":
			base.Trigger = cmd.Trigger
		case "o":
			base.Output = cmd.Output
		case "web":
			base.Web = cmd.Web
		case "log-file":
			base.LogFile = cmd.LogFile
		case "period":
			base.Period = cmd.Period
		case "limit":
			base.Limit = cmd.Limit
		case "sim":
			base.Sim = cmd.Sim
		case "seed":
			base.Seed = cmd.Seed
		}
	})
	base.Args = cmd.Args

	return base, base.Validate()
}
