// Copyright 2020 The go-daq Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ad2 // import "github.com/go-daq/ad2"

import (
	"bytes"
	"context"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/go-daq/ad2/dwf"
	"github.com/go-daq/ad2/dwf/dwfsim"
	"github.com/go-daq/ad2/dwf/dwftest"
	"github.com/go-daq/ad2/fsm"
	"github.com/go-daq/ad2/internal/iomux"
	"github.com/go-daq/ad2/log"
	"github.com/go-daq/ad2/session"
	"github.com/go-daq/ad2/trigger"
	"golang.org/x/xerrors"
)

func simDevice(t *testing.T, cfg dwfsim.Config) (*Device, *dwfsim.Library) {
	t.Helper()
	lib := dwfsim.New(cfg)
	devs, err := Scan(lib, nil)
	if err != nil {
		t.Fatalf("could not scan: %+v", err)
	}
	dev := devs[0]
	err = Open(dev)
	if err != nil {
		t.Fatalf("could not open device: %+v", err)
	}
	return dev, lib
}

func TestAcquisition(t *testing.T) {
	dev, _ := simDevice(t, dwfsim.Config{Seed: 1234, Chunk: 100, Samples: 1000})

	var rec session.Recorder
	acq := NewAcquisition(dev, &rec, Options{Period: time.Millisecond})
	if got := acq.State(); got != fsm.Idle {
		t.Fatalf("invalid initial state: %v", got)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := acq.Run(ctx)
	if err != nil {
		t.Fatalf("could not run acquisition: %+v", err)
	}
	if got := acq.State(); got != fsm.Stopped {
		t.Fatalf("invalid final state: %v", got)
	}
	if dev.IsOpen() {
		t.Fatalf("device should be closed after run")
	}

	stats := acq.Stats()
	if stats.Samples != 1000 || stats.Packets != 10 {
		t.Fatalf("invalid stats: %+v", stats)
	}

	pkts := rec.Packets()
	if got, want := len(pkts), 12; got != want {
		t.Fatalf("invalid number of packets: got=%d, want=%d", got, want)
	}
	if pkts[0].Kind != session.KindHeader || pkts[len(pkts)-1].Kind != session.KindEnd {
		t.Fatalf("invalid session framing: %v", rec.Kinds())
	}
	hdr := pkts[0].Header
	if hdr.Device != "Analog Discovery 2" || hdr.SampleRate != DefaultRate {
		t.Fatalf("invalid header: %v", pkts[0])
	}
	for _, pkt := range pkts[1 : len(pkts)-1] {
		if pkt.Kind != session.KindLogic || pkt.Logic.Length != 200 || pkt.Logic.UnitSize != 2 {
			t.Fatalf("invalid logic packet: %v", pkt)
		}
	}

	// the handle was released: the device can be opened again.
	err = Open(dev)
	if err != nil {
		t.Fatalf("could not re-open device: %+v", err)
	}
	_ = Close(dev)
}

func TestAcquisitionConfig(t *testing.T) {
	lib := dwfsim.New(dwfsim.Config{Chunk: 10, Samples: 10})
	dev := NewDevice(lib, 0, nil)
	err := dev.Set(KeySampleRate, 200)
	if err != nil {
		t.Fatalf("could not set sample rate: %+v", err)
	}
	err = dev.Set(KeyTriggerMatch, "3=r,4=e")
	if err != nil {
		t.Fatalf("could not set trigger: %+v", err)
	}

	err = Open(dev)
	if err != nil {
		t.Fatalf("could not open device: %+v", err)
	}
	hdl := dev.hdl.(*dwfsim.Handle)

	var rec session.Recorder
	acq := NewAcquisition(dev, &rec, Options{Period: time.Millisecond})
	err = acq.Run(context.Background())
	if err != nil {
		t.Fatalf("could not run acquisition: %+v", err)
	}

	if got, want := hdl.Divider, uint32(500000); got != want {
		t.Fatalf("invalid divider: got=%d, want=%d", got, want)
	}
	if got, want := hdl.Masks, [4]uint32{0, 0, 0x0018, 0x0010}; got != want {
		t.Fatalf("invalid masks: got=%#v, want=%#v", got, want)
	}
	if hdl.Mode != dwf.AcqModeRecord || hdl.Source != dwf.TrigSrcDetectorDigitalIn {
		t.Fatalf("invalid acquisition setup: mode=%v, src=%v", hdl.Mode, hdl.Source)
	}
	if got := rec.Packets()[0].Header.SampleRate; got != 200 {
		t.Fatalf("invalid header sample rate: %d", got)
	}
}

func TestAcquisitionLimit(t *testing.T) {
	dev, _ := simDevice(t, dwfsim.Config{Seed: 1, Chunk: 100})

	var rec session.Recorder
	acq := NewAcquisition(dev, &rec, Options{Period: time.Millisecond, Limit: 250})
	err := acq.Run(context.Background())
	if err != nil {
		t.Fatalf("could not run acquisition: %+v", err)
	}

	var lens []int
	for _, pkt := range rec.Packets() {
		if pkt.Kind == session.KindLogic {
			lens = append(lens, pkt.Logic.Length)
		}
	}
	if want := []int{200, 200, 100}; !reflect.DeepEqual(lens, want) {
		t.Fatalf("invalid packet lengths: got=%v, want=%v", lens, want)
	}
	if got := acq.Stats().Samples; got != 250 {
		t.Fatalf("invalid number of samples: %d", got)
	}
}

func TestAcquisitionDataLoss(t *testing.T) {
	dev, _ := simDevice(t, dwfsim.Config{Chunk: 10, LossAfter: 3})

	var rec session.Recorder
	acq := NewAcquisition(dev, &rec, Options{Period: time.Millisecond})
	err := acq.Run(context.Background())
	if !xerrors.Is(err, ErrDataLoss) {
		t.Fatalf("invalid error: got=%v, want=%v", err, ErrDataLoss)
	}
	if got := acq.State(); got != fsm.Error {
		t.Fatalf("invalid state: %v", got)
	}
	if !xerrors.Is(acq.Err(), ErrDataLoss) {
		t.Fatalf("invalid recorded error: %v", acq.Err())
	}
	if dev.IsOpen() {
		t.Fatalf("device should be closed after failure")
	}
	kinds := rec.Kinds()
	if kinds[len(kinds)-1] != session.KindEnd {
		t.Fatalf("session should be ended: %v", kinds)
	}
}

func TestAcquisitionStartFailure(t *testing.T) {
	lib := newTestLib(1)
	dev := NewDevice(lib, 0, nil)
	err := Open(dev)
	if err != nil {
		t.Fatalf("could not open device: %+v", err)
	}
	hdl := lib.Handles[0]
	hdl.FailOn = "Configure"

	var rec session.Recorder
	acq := NewAcquisition(dev, &rec, Options{Period: time.Millisecond})
	err = acq.Run(context.Background())
	if err == nil {
		t.Fatalf("expected an error")
	}
	if got := acq.State(); got != fsm.Error {
		t.Fatalf("invalid state: %v", got)
	}
	if !hdl.Closed || dev.IsOpen() {
		t.Fatalf("handle should be released on start failure")
	}
	want := []session.Kind{session.KindHeader, session.KindEnd}
	if got := rec.Kinds(); !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid packets: got=%v, want=%v", got, want)
	}
}

func TestAcquisitionCancel(t *testing.T) {
	lib := newTestLib(1)
	dev := NewDevice(lib, 0, nil)
	err := Open(dev)
	if err != nil {
		t.Fatalf("could not open device: %+v", err)
	}
	hdl := lib.Handles[0]
	hdl.Replies = []dwftest.Reply{{State: dwf.Armed}}

	var rec session.Recorder
	acq := NewAcquisition(dev, &rec, Options{
		Period:  time.Millisecond,
		Trigger: &trigger.Spec{Stages: []trigger.Stage{{Matches: []trigger.Match{{Channel: 0, Kind: trigger.One}}}}},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err = acq.Run(ctx)
	if err != nil {
		t.Fatalf("could not run acquisition: %+v", err)
	}
	if got := acq.State(); got != fsm.Stopped {
		t.Fatalf("invalid state: %v", got)
	}
	if acq.Stats().Polls == 0 {
		t.Fatalf("acquisition should have polled the device")
	}
	if !hdl.Closed {
		t.Fatalf("handle should be released")
	}
	want := []session.Kind{session.KindHeader, session.KindEnd}
	if got := rec.Kinds(); !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid packets: got=%v, want=%v", got, want)
	}
}

func TestAcquisitionClosedDevice(t *testing.T) {
	dev := NewDevice(newTestLib(1), 0, nil)
	var rec session.Recorder
	acq := NewAcquisition(dev, &rec, Options{})
	err := acq.Run(context.Background())
	if !xerrors.Is(err, ErrDevClosed) {
		t.Fatalf("invalid error: got=%v, want=%v", err, ErrDevClosed)
	}
	if len(rec.Packets()) != 0 {
		t.Fatalf("no packet should be sent for a closed device")
	}
}

func TestRunAll(t *testing.T) {
	lib := dwfsim.New(dwfsim.Config{Devices: 2, Chunk: 50, Samples: 200})
	out := iomux.NewWriter(new(bytes.Buffer))
	devs, err := Scan(lib, log.NewMsgStream("ad2", log.LvlInfo, out))
	if err != nil {
		t.Fatalf("could not scan: %+v", err)
	}

	recs := make([]session.Recorder, len(devs))
	acqs := make([]*Acquisition, len(devs))
	for i, dev := range devs {
		err := Open(dev)
		if err != nil {
			t.Fatalf("could not open device #%d: %+v", i, err)
		}
		acqs[i] = NewAcquisition(dev, &recs[i], Options{Period: time.Millisecond})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err = RunAll(ctx, acqs...)
	if err != nil {
		t.Fatalf("could not run acquisitions: %+v", err)
	}

	for i, acq := range acqs {
		if got := acq.Stats().Samples; got != 200 {
			t.Fatalf("acquisition #%d: invalid number of samples: %d", i, got)
		}
		if acq.Name() != devs[i].String() {
			t.Fatalf("acquisition #%d: invalid name %q", i, acq.Name())
		}
	}

	if got, want := strings.Count(out.String(), " armed "), len(acqs); got != want {
		t.Fatalf("invalid number of armed acquisitions in log: got=%d, want=%d\n%s", got, want, out)
	}
}
