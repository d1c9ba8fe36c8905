// Copyright 2020 The go-daq Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dwfsim simulates the digital-in instrument of WaveForms devices.
//
// A simulated device walks through the Config, Prefill, Armed and Triggered
// states, one state per status read, and then produces pseudo-random
// sample words until it has recorded Samples words (if non-zero).
package dwfsim // import "github.com/go-daq/ad2/dwf/dwfsim"

import (
	"fmt"
	"sync"

	"github.com/go-daq/ad2/dwf"
	"golang.org/x/exp/rand"
	"golang.org/x/xerrors"
)

// Config describes the behaviour of simulated devices.
type Config struct {
	Devices int    // number of enumerated devices
	Seed    uint64 // seed of the sample generator

	Chunk   int // number of samples made available per status read once triggered
	Samples int // total number of samples to record before Done (0: unlimited)
	Toggle  int // a channel toggles once every Toggle samples, on average

	LossAfter int // inject lost samples after that many triggered reads (0: never)
}

// Library is a simulated dwf.Library.
type Library struct {
	cfg Config

	mu   sync.Mutex
	open map[int]bool
}

// New returns a new simulated library.
func New(cfg Config) *Library {
	if cfg.Devices <= 0 {
		cfg.Devices = 1
	}
	if cfg.Chunk <= 0 {
		cfg.Chunk = 1000
	}
	if cfg.Toggle <= 0 {
		cfg.Toggle = 8
	}
	return &Library{cfg: cfg, open: make(map[int]bool)}
}

func (lib *Library) Enum() (int, error) { return lib.cfg.Devices, nil }

func (lib *Library) valid(i int) error {
	if i < 0 || i >= lib.cfg.Devices {
		return xerrors.Errorf("dwfsim: invalid device index %d", i)
	}
	return nil
}

func (lib *Library) DeviceName(i int) (string, error) {
	if err := lib.valid(i); err != nil {
		return "", err
	}
	return "Analog Discovery 2", nil
}

func (lib *Library) SerialNumber(i int) (string, error) {
	if err := lib.valid(i); err != nil {
		return "", err
	}
	return fmt.Sprintf("SN:210321A%05X", i), nil
}

func (lib *Library) Version() (string, error) { return "3.12.2-sim", nil }

func (lib *Library) Open(i int) (dwf.Handle, error) {
	if err := lib.valid(i); err != nil {
		return nil, err
	}

	lib.mu.Lock()
	defer lib.mu.Unlock()
	if lib.open[i] {
		return nil, xerrors.Errorf("dwfsim: device #%d is busy", i)
	}
	lib.open[i] = true

	return &Handle{
		lib:   lib,
		idx:   i,
		cfg:   lib.cfg,
		rnd:   rand.New(rand.NewSource(lib.cfg.Seed + uint64(i))),
		state: dwf.Ready,
	}, nil
}

func (lib *Library) release(i int) {
	lib.mu.Lock()
	defer lib.mu.Unlock()
	delete(lib.open, i)
}

// Handle is a simulated opened device.
type Handle struct {
	lib *Library
	idx int
	cfg Config
	rnd *rand.Rand

	Mode     dwf.AcqMode
	Divider  uint32
	Format   int
	Position uint32
	Source   dwf.TrigSrc
	Masks    [4]uint32 // low, high, rise, fall

	state  dwf.State
	reads  int    // number of triggered status reads
	total  int    // number of samples made available so far
	avail  int    // samples available since last StatusRecord
	word   uint16 // last generated sample word
	closed bool
}

func (h *Handle) check() error {
	if h.closed {
		return xerrors.Errorf("dwfsim: device #%d is closed", h.idx)
	}
	return nil
}

func (h *Handle) AcquisitionModeSet(mode dwf.AcqMode) error {
	h.Mode = mode
	return h.check()
}

func (h *Handle) DividerSet(div uint32) error {
	if div == 0 {
		return xerrors.Errorf("dwfsim: invalid divider 0")
	}
	h.Divider = div
	return h.check()
}

func (h *Handle) SampleFormatSet(bits int) error {
	switch bits {
	case 8, 16, 32:
	default:
		return xerrors.Errorf("dwfsim: invalid sample format %d", bits)
	}
	h.Format = bits
	return h.check()
}

func (h *Handle) TriggerPositionSet(n uint32) error {
	h.Position = n
	return h.check()
}

func (h *Handle) TriggerSourceSet(src dwf.TrigSrc) error {
	h.Source = src
	return h.check()
}

func (h *Handle) TriggerSet(low, high, rise, fall uint32) error {
	h.Masks = [4]uint32{low, high, rise, fall}
	return h.check()
}

func (h *Handle) Configure(reconfigure, start bool) error {
	if err := h.check(); err != nil {
		return err
	}
	if !start {
		h.state = dwf.Ready
		return nil
	}
	h.state = dwf.Config
	h.reads = 0
	h.total = 0
	h.avail = 0
	return nil
}

// StatusRecord reports the samples made available by the last status read.
func (h *Handle) StatusRecord() (avail, lost, corrupt int, err error) {
	if err := h.check(); err != nil {
		return 0, 0, 0, err
	}
	if h.cfg.LossAfter > 0 && h.reads > h.cfg.LossAfter {
		lost = h.cfg.Chunk
	}
	return h.avail, lost, 0, nil
}

// Status advances the simulated acquisition by one step.
func (h *Handle) Status(read bool) (dwf.State, error) {
	if err := h.check(); err != nil {
		return 0, err
	}
	if !read {
		return h.state, nil
	}

	switch h.state {
	case dwf.Config:
		h.state = dwf.Prefill
	case dwf.Prefill:
		h.state = dwf.Armed
	case dwf.Armed:
		h.state = dwf.Triggered
	case dwf.Triggered:
		h.reads++
		n := h.cfg.Chunk
		if h.cfg.Samples > 0 && h.total+n >= h.cfg.Samples {
			n = h.cfg.Samples - h.total
			h.state = dwf.Done
		}
		h.avail = n
		h.total += n
	case dwf.Done:
		h.avail = 0
	}
	return h.state, nil
}

// StatusData fills buf with little-endian 16-bit sample words.
func (h *Handle) StatusData(buf []byte) error {
	if err := h.check(); err != nil {
		return err
	}
	if len(buf)%2 != 0 {
		return xerrors.Errorf("dwfsim: odd data length %d", len(buf))
	}
	for i := 0; i < len(buf); i += 2 {
		if h.rnd.Intn(h.cfg.Toggle) == 0 {
			h.word ^= 1 << uint(h.rnd.Intn(16))
		}
		buf[i] = byte(h.word)
		buf[i+1] = byte(h.word >> 8)
	}
	return nil
}

func (h *Handle) Close() error {
	if h.closed {
		return xerrors.Errorf("dwfsim: device #%d already closed", h.idx)
	}
	h.closed = true
	h.lib.release(h.idx)
	return nil
}

var (
	_ dwf.Library = (*Library)(nil)
	_ dwf.Handle  = (*Handle)(nil)
)
