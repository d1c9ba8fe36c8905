// Copyright 2020 The go-daq Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command ad2-acquire records the logic channels of an AnalogDiscovery2
// into a session file or publishes them on a socket.
//
// Usage: ad2-acquire [options]
//
// ex:
//
//  $> ad2-acquire -sim -rate=200 -trigger=3=r -o out.ad2 -limit=10000
//  $> ad2-acquire -cfg acq.yaml -o tcp://127.0.0.1:44000 -web :8080
package main // import "github.com/go-daq/ad2/cmd/ad2-acquire"

import (
	"context"
	"io"
	"os"
	"os/signal"

	"github.com/go-daq/ad2"
	"github.com/go-daq/ad2/config"
	"github.com/go-daq/ad2/dwf"
	"github.com/go-daq/ad2/dwf/dwfsim"
	"github.com/go-daq/ad2/flags"
	"github.com/go-daq/ad2/internal/iomux"
	"github.com/go-daq/ad2/log"
	"github.com/go-daq/ad2/session"
	"github.com/go-daq/ad2/webmon"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
)

func main() {
	cfg := flags.New()

	var stdout io.Writer = os.Stdout
	if cfg.LogFile != "" {
		f := log.NewRotatingFile(cfg.LogFile, 100, 3)
		defer f.Close()
		stdout = io.MultiWriter(os.Stdout, f)
	}
	msg := log.NewMsgStream(cfg.Name, cfg.Level, iomux.NewWriter(stdout))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt)
	go func() {
		select {
		case <-sigc:
			msg.Infof("received interrupt, stopping acquisition...")
			cancel()
		case <-ctx.Done():
		}
	}()

	err := run(ctx, cfg, msg)
	if err != nil {
		msg.Errorf("could not run acquisition: %+v", err)
		os.Exit(1)
	}
}

func newLibrary(cfg config.Acquire) (dwf.Library, error) {
	if cfg.Sim {
		return dwfsim.New(dwfsim.Config{
			Devices: cfg.Device + 1,
			Seed:    cfg.Seed,
		}), nil
	}
	return dwf.SDK()
}

func run(ctx context.Context, cfg config.Acquire, msg log.MsgStream) error {
	lib, err := newLibrary(cfg)
	if err != nil {
		return xerrors.Errorf("could not load instrument library: %w", err)
	}

	devs, err := ad2.Scan(lib, msg)
	if err != nil {
		return xerrors.Errorf("could not scan devices: %w", err)
	}
	if cfg.Device >= len(devs) {
		return xerrors.Errorf("no device #%d (found %d device(s))", cfg.Device, len(devs))
	}
	dev := devs[cfg.Device]
	msg.Infof("using %v (SDK %s)", dev, dev.Version)

	err = dev.Set(ad2.KeySampleRate, cfg.SampleRate)
	if err != nil {
		return xerrors.Errorf("could not configure sample rate: %w", err)
	}
	err = dev.Set(ad2.KeyTriggerMatch, cfg.Trigger)
	if err != nil {
		return xerrors.Errorf("could not configure trigger: %w", err)
	}

	sink, err := session.Create(cfg.Output)
	if err != nil {
		return xerrors.Errorf("could not create session output: %w", err)
	}
	defer func() {
		if sink != nil {
			_ = sink.Close()
		}
	}()

	err = ad2.Open(dev)
	if err != nil {
		return xerrors.Errorf("could not open device: %w", err)
	}
	defer ad2.Close(dev)

	acq := ad2.NewAcquisition(dev, sink, ad2.Options{
		Name:   cfg.Name,
		Period: cfg.Period,
		Limit:  cfg.Limit,
	})

	grp, ctx := errgroup.WithContext(ctx)
	wctx, wcancel := context.WithCancel(ctx)
	defer wcancel()

	grp.Go(func() error {
		defer wcancel()
		return acq.Run(ctx)
	})

	if cfg.Web != "" {
		web := webmon.New(cfg.Web, msg, acq)
		grp.Go(func() error {
			return web.Run(wctx)
		})
	}

	err = grp.Wait()
	if err != nil {
		return err
	}

	stats := acq.Stats()
	msg.Infof("recorded %d samples in %d packets (%d polls)", stats.Samples, stats.Packets, stats.Polls)

	err = sink.Close()
	sink = nil
	if err != nil {
		return xerrors.Errorf("could not close session output: %w", err)
	}
	return nil
}
