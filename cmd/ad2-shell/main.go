// Copyright 2020 The go-daq Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command ad2-shell is an interactive shell to scan, configure and
// drive AnalogDiscovery2 logic acquisitions.
//
// Usage: ad2-shell [options]
//
// ex:
//
//  $> ad2-shell -sim
//  ad2> scan
//  ad2> open 0
//  ad2> set samplerate 200
//  ad2> set triggermatch 3=r
//  ad2> start 1000 out.ad2
//  ad2> quit
package main // import "github.com/go-daq/ad2/cmd/ad2-shell"

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-daq/ad2"
	"github.com/go-daq/ad2/dwf"
	"github.com/go-daq/ad2/dwf/dwfsim"
	"github.com/go-daq/ad2/log"
	"github.com/go-daq/ad2/session"
	"github.com/go-daq/ad2/trigger"
	"github.com/peterh/liner"
	"golang.org/x/xerrors"
)

func main() {
	var (
		sim    = flag.Bool("sim", false, "use simulated instruments")
		ndevs  = flag.Int("sim-devs", 1, "number of simulated instruments")
		seed   = flag.Uint64("seed", 1234, "seed of the simulated instruments")
		lvl    = flag.String("lvl", "INFO", "message level (DEBUG|INFO|WARN|ERROR)")
		period = flag.Duration("period", ad2.DefaultPeriod, "polling period of acquisitions")
	)
	flag.Parse()

	level, err := log.ParseLevel(*lvl)
	if err != nil {
		log.Fatalf("could not parse message level: %+v", err)
	}
	msg := log.NewMsgStream("ad2-shell", level, os.Stderr)

	var lib dwf.Library
	switch {
	case *sim:
		lib = dwfsim.New(dwfsim.Config{Devices: *ndevs, Seed: *seed})
	default:
		lib, err = dwf.SDK()
		if err != nil {
			log.Fatalf("could not load instrument library: %+v", err)
		}
	}

	sh := newShell(lib, os.Stdout, msg)
	sh.period = *period
	defer sh.close()

	err = sh.loop(context.Background())
	if err != nil {
		msg.Errorf("shell error: %+v", err)
		os.Exit(1)
	}
}

type shell struct {
	lib    dwf.Library
	out    io.Writer
	msg    log.MsgStream
	period time.Duration

	devs []*ad2.Device
	cur  *ad2.Device
}

func newShell(lib dwf.Library, out io.Writer, msg log.MsgStream) *shell {
	return &shell{
		lib:    lib,
		out:    out,
		msg:    msg,
		period: ad2.DefaultPeriod,
	}
}

var cmds = []string{
	"close", "devices", "get", "help", "list", "open", "quit", "scan", "set", "start", "trigger",
}

func (sh *shell) loop(ctx context.Context) error {
	term := liner.NewLiner()
	defer term.Close()
	term.SetCtrlCAborts(true)
	term.SetCompleter(complete)

	hist := filepath.Join(os.TempDir(), ".ad2-shell.history")
	if f, err := os.Open(hist); err == nil {
		_, _ = term.ReadHistory(f)
		f.Close()
	}
	defer func() {
		f, err := os.Create(hist)
		if err != nil {
			return
		}
		defer f.Close()
		_, _ = term.WriteHistory(f)
	}()

	for {
		line, err := term.Prompt("ad2> ")
		switch {
		case err == liner.ErrPromptAborted || err == io.EOF:
			fmt.Fprintln(sh.out)
			return nil
		case err != nil:
			return xerrors.Errorf("could not read command: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		term.AppendHistory(line)

		quit, err := sh.exec(ctx, line)
		if err != nil {
			fmt.Fprintf(sh.out, "error: %v\n", err)
		}
		if quit {
			return nil
		}
	}
}

func complete(line string) []string {
	var out []string
	for _, cmd := range cmds {
		if strings.HasPrefix(cmd, line) {
			out = append(out, cmd)
		}
	}
	return out
}

// exec runs a single command line.
func (sh *shell) exec(ctx context.Context, line string) (quit bool, err error) {
	args := strings.Fields(line)
	if len(args) == 0 {
		return false, nil
	}
	cmd, args := args[0], args[1:]
	switch cmd {
	case "help":
		sh.help()
	case "quit", "exit":
		return true, nil
	case "scan":
		err = sh.scan()
	case "devices":
		sh.devices()
	case "open":
		err = sh.open(args)
	case "close":
		err = sh.closeDev()
	case "get":
		err = sh.get(args)
	case "set":
		err = sh.set(args)
	case "list":
		err = sh.list(args)
	case "trigger":
		err = sh.trigger(args)
	case "start":
		err = sh.start(ctx, args)
	default:
		err = xerrors.Errorf("unknown command %q (try help)", cmd)
	}
	return false, err
}

func (sh *shell) help() {
	fmt.Fprint(sh.out, `commands:
  scan                  scan for instruments
  devices               list scanned instruments
  open <idx>            open the instrument <idx>
  close                 close the current instrument
  get <key>             get a configuration value
  set <key> <value>     set a configuration value
  list <key>            list the possible values of a key
  trigger <x=r,y=1>     translate a trigger into instrument masks
  start [n] [output]    acquire n samples (0: until interrupted) into output
  quit                  leave the shell
`)
}

func (sh *shell) scan() error {
	for _, dev := range sh.devs {
		if dev.IsOpen() {
			_ = ad2.Close(dev)
		}
	}
	sh.cur = nil

	devs, err := ad2.Scan(sh.lib, sh.msg)
	if err != nil {
		return err
	}
	sh.devs = devs
	sh.devices()
	return nil
}

func (sh *shell) devices() {
	if len(sh.devs) == 0 {
		fmt.Fprintf(sh.out, "no device\n")
		return
	}
	for _, dev := range sh.devs {
		mark := " "
		if dev == sh.cur {
			mark = "*"
		}
		state := "closed"
		if dev.IsOpen() {
			state = "open"
		}
		fmt.Fprintf(sh.out, "%s %v [%s]\n", mark, dev, state)
	}
}

func (sh *shell) device() (*ad2.Device, error) {
	if sh.cur == nil {
		return nil, xerrors.Errorf("no device selected (try open)")
	}
	return sh.cur, nil
}

func (sh *shell) open(args []string) error {
	if len(args) != 1 {
		return xerrors.Errorf("usage: open <idx>")
	}
	i, err := strconv.Atoi(args[0])
	if err != nil || i < 0 || i >= len(sh.devs) {
		return xerrors.Errorf("invalid device index %q (%d device(s) scanned)", args[0], len(sh.devs))
	}
	dev := sh.devs[i]
	err = ad2.Open(dev)
	if err != nil {
		return err
	}
	sh.cur = dev
	fmt.Fprintf(sh.out, "opened %v\n", dev)
	return nil
}

func (sh *shell) closeDev() error {
	dev, err := sh.device()
	if err != nil {
		return err
	}
	return ad2.Close(dev)
}

func (sh *shell) get(args []string) error {
	if len(args) != 1 {
		return xerrors.Errorf("usage: get <key>")
	}
	key, err := ad2.ParseKey(args[0])
	if err != nil {
		return err
	}
	dev, err := sh.device()
	if err != nil {
		return err
	}
	v, err := dev.Get(key)
	if err != nil {
		return err
	}
	switch v := v.(type) {
	case *trigger.Spec:
		if v == nil {
			fmt.Fprintf(sh.out, "%v: none\n", key)
			return nil
		}
		fmt.Fprintf(sh.out, "%v: %s\n", key, v)
	default:
		fmt.Fprintf(sh.out, "%v: %v\n", key, v)
	}
	return nil
}

func (sh *shell) set(args []string) error {
	if len(args) < 2 {
		return xerrors.Errorf("usage: set <key> <value>")
	}
	key, err := ad2.ParseKey(args[0])
	if err != nil {
		return err
	}
	dev, err := sh.device()
	if err != nil {
		return err
	}
	v := strings.Join(args[1:], " ")
	if key == ad2.KeyTriggerMatch && v == "none" {
		return dev.Set(key, nil)
	}
	return dev.Set(key, v)
}

func (sh *shell) list(args []string) error {
	if len(args) != 1 {
		return xerrors.Errorf("usage: list <key>")
	}
	key, err := ad2.ParseKey(args[0])
	if err != nil {
		return err
	}
	v, err := ad2.List(key)
	if err != nil {
		return err
	}
	switch v := v.(type) {
	case []ad2.Option:
		for _, opt := range v {
			fmt.Fprintf(sh.out, "  %v\n", opt)
		}
	case []uint64:
		for _, rate := range v {
			fmt.Fprintf(sh.out, "  %d Hz\n", rate)
		}
	case []trigger.Kind:
		for _, k := range v {
			fmt.Fprintf(sh.out, "  %v (%s)\n", k, k.Name())
		}
	default:
		fmt.Fprintf(sh.out, "  %v\n", v)
	}
	return nil
}

func (sh *shell) trigger(args []string) error {
	if len(args) != 1 {
		return xerrors.Errorf("usage: trigger <ch=kind,...>")
	}
	spec, err := trigger.Parse(args[0])
	if err != nil {
		return err
	}
	masks, degraded := trigger.Translate(spec, sh.msg)
	fmt.Fprintf(sh.out, "low=0x%04x high=0x%04x rise=0x%04x fall=0x%04x\n",
		masks.Low, masks.High, masks.Rise, masks.Fall,
	)
	if degraded {
		fmt.Fprintf(sh.out, "(trigger could not be represented exactly)\n")
	}
	return nil
}

func (sh *shell) start(ctx context.Context, args []string) error {
	dev, err := sh.device()
	if err != nil {
		return err
	}
	if len(args) > 2 {
		return xerrors.Errorf("usage: start [n] [output]")
	}

	var limit int64
	if len(args) > 0 {
		limit, err = strconv.ParseInt(args[0], 10, 64)
		if err != nil || limit < 0 {
			return xerrors.Errorf("invalid number of samples %q", args[0])
		}
	}

	var (
		rec  session.Recorder
		sink session.Sink = &rec
		out  session.SinkCloser
	)
	if len(args) > 1 {
		out, err = session.Create(args[1])
		if err != nil {
			return err
		}
		defer func() {
			if out != nil {
				_ = out.Close()
			}
		}()
		sink = out
	}

	if !dev.IsOpen() {
		err = ad2.Open(dev)
		if err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt)
	defer signal.Stop(sigc)
	go func() {
		select {
		case <-sigc:
			cancel()
		case <-ctx.Done():
		}
	}()

	acq := ad2.NewAcquisition(dev, sink, ad2.Options{
		Period: sh.period,
		Limit:  limit,
	})
	err = acq.Run(ctx)
	stats := acq.Stats()
	fmt.Fprintf(sh.out, "%v: %v, %d samples in %d packets (%d polls)\n",
		acq.Name(), acq.State(), stats.Samples, stats.Packets, stats.Polls,
	)
	if err != nil {
		return err
	}

	if out != nil {
		err = out.Close()
		out = nil
		return err
	}
	kinds := make(map[session.Kind]int)
	for _, k := range rec.Kinds() {
		kinds[k]++
	}
	keys := make([]session.Kind, 0, len(kinds))
	for k := range kinds {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	for _, k := range keys {
		fmt.Fprintf(sh.out, "  %v: %d\n", k, kinds[k])
	}
	return nil
}

func (sh *shell) close() {
	for _, dev := range sh.devs {
		if !dev.IsOpen() {
			continue
		}
		err := ad2.Close(dev)
		if err != nil {
			sh.msg.Errorf("could not close %v: %+v", dev, err)
		}
	}
}
