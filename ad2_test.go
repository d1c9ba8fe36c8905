// Copyright 2020 The go-daq Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ad2 // import "github.com/go-daq/ad2"

import (
	"bytes"
	"reflect"
	"strconv"
	"testing"

	"github.com/go-daq/ad2/dwf"
	"github.com/go-daq/ad2/dwf/dwftest"
	"github.com/go-daq/ad2/log"
	"github.com/go-daq/ad2/session"
	"github.com/go-daq/ad2/trigger"
	"golang.org/x/xerrors"
)

func newTestLib(n int) *dwftest.Library {
	lib := &dwftest.Library{Vers: "3.12.2"}
	for i := 0; i < n; i++ {
		lib.Devices = append(lib.Devices, dwftest.Device{
			Name:   "Analog Discovery 2",
			Serial: "SN:210321A00" + string(rune('A'+i)),
		})
	}
	return lib
}

// openTestDevice returns an opened device and its fake handle.
func openTestDevice(t *testing.T, replies ...dwftest.Reply) (*Device, *dwftest.Handle) {
	t.Helper()
	lib := newTestLib(1)
	dev := NewDevice(lib, 0, nil)
	err := Open(dev)
	if err != nil {
		t.Fatalf("could not open device: %+v", err)
	}
	hdl := lib.Handles[0]
	hdl.Replies = replies
	return dev, hdl
}

func TestScan(t *testing.T) {
	lib := newTestLib(2)
	devs, err := Scan(lib, nil)
	if err != nil {
		t.Fatalf("could not scan: %+v", err)
	}
	if got, want := len(devs), 2; got != want {
		t.Fatalf("invalid number of devices: got=%d, want=%d", got, want)
	}

	for i, dev := range devs {
		if dev.Index != i {
			t.Fatalf("invalid index: got=%d, want=%d", dev.Index, i)
		}
		if dev.Name != "Analog Discovery 2" || dev.Vendor != "Digilent" {
			t.Fatalf("invalid device description: %v", dev)
		}
		if dev.Serial != lib.Devices[i].Serial {
			t.Fatalf("invalid serial: got=%q, want=%q", dev.Serial, lib.Devices[i].Serial)
		}
		if dev.Version != "3.12.2" {
			t.Fatalf("invalid version: %q", dev.Version)
		}
		if dev.IsOpen() {
			t.Fatalf("scanned device should be closed")
		}
		if got, want := dev.SampleRate(), uint64(DefaultRate); got != want {
			t.Fatalf("invalid default rate: got=%d, want=%d", got, want)
		}
		if len(dev.Groups) != 1 || dev.Groups[0].Name != "Logic" {
			t.Fatalf("invalid channel groups: %+v", dev.Groups)
		}
		chans := dev.Groups[0].Channels
		if len(chans) != NumChannels {
			t.Fatalf("invalid number of channels: %d", len(chans))
		}
		for j, ch := range chans {
			if ch.Index != j || !ch.Enabled || ch.Name != strconv.Itoa(j) {
				t.Fatalf("invalid channel %d: %+v", j, ch)
			}
		}
	}
}

func TestScanError(t *testing.T) {
	lib := newTestLib(1)
	lib.Err = xerrors.New("no usb")
	_, err := Scan(lib, nil)
	if err == nil {
		t.Fatalf("expected an error")
	}
}

func TestOpenClose(t *testing.T) {
	lib := newTestLib(1)
	dev := NewDevice(lib, 0, nil)

	err := Close(dev)
	if err != nil {
		t.Fatalf("could not close never-opened device: %+v", err)
	}

	err = Open(dev)
	if err != nil {
		t.Fatalf("could not open device: %+v", err)
	}
	if !dev.IsOpen() {
		t.Fatalf("device should be open")
	}

	err = Open(dev)
	if !xerrors.Is(err, ErrDevOpen) {
		t.Fatalf("invalid error: got=%v, want=%v", err, ErrDevOpen)
	}
	if len(lib.Handles) != 1 {
		t.Fatalf("second open should not request a new handle")
	}

	for i := 0; i < 2; i++ {
		err = Close(dev)
		if err != nil {
			t.Fatalf("close #%d: %+v", i, err)
		}
		if dev.IsOpen() {
			t.Fatalf("close #%d: device should be closed", i)
		}
	}

	if got, want := lib.Handles[0].Names(), []string{"Close"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid calls: got=%v, want=%v", got, want)
	}
}

func TestOpenError(t *testing.T) {
	lib := newTestLib(1)
	lib.Err = xerrors.New("device busy")
	dev := NewDevice(lib, 0, nil)
	err := Open(dev)
	if err == nil {
		t.Fatalf("expected an error")
	}
	if dev.IsOpen() {
		t.Fatalf("device should not be open")
	}
}

func TestStart(t *testing.T) {
	dev, hdl := openTestDevice(t)

	masks := trigger.Masks{Low: 0x0001, High: 0x0002, Rise: 0x0008, Fall: 0x8000}
	err := Start(dev, masks, 100)
	if err != nil {
		t.Fatalf("could not start: %+v", err)
	}

	want := []dwftest.Call{
		{Name: "AcquisitionModeSet", Args: []interface{}{dwf.AcqModeRecord}},
		{Name: "DividerSet", Args: []interface{}{uint32(1000000)}},
		{Name: "SampleFormatSet", Args: []interface{}{16}},
		{Name: "TriggerPositionSet", Args: []interface{}{uint32(100000)}},
		{Name: "TriggerSourceSet", Args: []interface{}{dwf.TrigSrcDetectorDigitalIn}},
		{Name: "TriggerSet", Args: []interface{}{uint32(0x0001), uint32(0x0002), uint32(0x0008), uint32(0x8000)}},
		{Name: "Configure", Args: []interface{}{true, true}},
	}
	if !reflect.DeepEqual(hdl.Calls, want) {
		t.Fatalf("invalid configuration sequence:\ngot = %v\nwant= %v", hdl.Calls, want)
	}
}

func TestStartDivider(t *testing.T) {
	for _, tt := range []struct {
		rate uint64
		want uint32
	}{
		{1, 100000000},
		{100, 1000000},
		{200, 500000},
		{3, 33333333},
		{100000000, 1},
	} {
		dev, hdl := openTestDevice(t)
		err := Start(dev, trigger.Masks{}, tt.rate)
		if err != nil {
			t.Fatalf("rate=%d: could not start: %+v", tt.rate, err)
		}
		call, ok := hdl.Find("DividerSet")
		if !ok {
			t.Fatalf("rate=%d: no divider set", tt.rate)
		}
		if got := call.Args[0].(uint32); got != tt.want {
			t.Fatalf("rate=%d: invalid divider: got=%d, want=%d", tt.rate, got, tt.want)
		}
	}
}

func TestStartPreconditions(t *testing.T) {
	dev, hdl := openTestDevice(t)
	err := Start(dev, trigger.Masks{Rise: 1}, 0)
	if !xerrors.Is(err, ErrZeroRate) {
		t.Fatalf("invalid error: got=%v, want=%v", err, ErrZeroRate)
	}
	if len(hdl.Calls) != 0 {
		t.Fatalf("instrument should not be touched: %v", hdl.Calls)
	}

	closed := NewDevice(newTestLib(1), 0, nil)
	err = Start(closed, trigger.Masks{}, 100)
	if !xerrors.Is(err, ErrDevClosed) {
		t.Fatalf("invalid error: got=%v, want=%v", err, ErrDevClosed)
	}
}

func TestStartFailure(t *testing.T) {
	dev, hdl := openTestDevice(t)
	hdl.FailOn = "TriggerSourceSet"
	hdl.Err = xerrors.New("usb transfer error")

	err := Start(dev, trigger.Masks{}, 100)
	if !xerrors.Is(err, hdl.Err) {
		t.Fatalf("invalid error: got=%v, want=%v", err, hdl.Err)
	}

	want := []string{
		"AcquisitionModeSet",
		"DividerSet",
		"SampleFormatSet",
		"TriggerPositionSet",
		"TriggerSourceSet",
	}
	if got := hdl.Names(); !reflect.DeepEqual(got, want) {
		t.Fatalf("sequence should stop at first failure:\ngot = %v\nwant= %v", got, want)
	}
}

func TestPoll(t *testing.T) {
	for _, tt := range []struct {
		name  string
		reply dwftest.Reply
		want  OutcomeKind
		n     int
	}{
		{"config", dwftest.Reply{Avail: 0, State: dwf.Config}, Continue, 0},
		{"armed-no-data", dwftest.Reply{Avail: 0, State: dwf.Armed}, Continue, 0},
		{"armed-data", dwftest.Reply{Avail: 10, State: dwf.Armed}, Continue, 0},
		{"prefill-data", dwftest.Reply{Avail: 10, State: dwf.Prefill}, Continue, 0},
		{"config-data", dwftest.Reply{Avail: 10, State: dwf.Config}, Continue, 0},
		{"triggered-no-data", dwftest.Reply{Avail: 0, State: dwf.Triggered}, Continue, 0},
		{"triggered", dwftest.Reply{Avail: 500, State: dwf.Triggered}, SamplesReady, 500},
		{"done", dwftest.Reply{Avail: 42, State: dwf.Done}, SamplesReady, 42},
		{"lost", dwftest.Reply{Avail: 500, Lost: 1, State: dwf.Triggered}, Error, 0},
		{"corrupt", dwftest.Reply{Avail: 0, Corrupt: 3, State: dwf.Armed}, Error, 0},
		{"lost-config", dwftest.Reply{Lost: 2, State: dwf.Config}, Error, 0},
	} {
		t.Run(tt.name, func(t *testing.T) {
			dev, hdl := openTestDevice(t, tt.reply)
			out, err := Poll(dev)
			if err != nil {
				t.Fatalf("could not poll: %+v", err)
			}
			if out.Kind != tt.want {
				t.Fatalf("invalid outcome: got=%v, want=%v", out.Kind, tt.want)
			}
			if out.Samples != tt.n {
				t.Fatalf("invalid number of samples: got=%d, want=%d", out.Samples, tt.n)
			}
			for _, name := range hdl.Names() {
				switch name {
				case "StatusRecord", "Status":
				default:
					t.Fatalf("poll issued a non-query call %q", name)
				}
			}
			if tt.want == Error {
				if _, ok := hdl.Find("Status"); ok {
					t.Fatalf("phase should not be queried on data loss")
				}
			}
		})
	}
}

func TestPollIdempotent(t *testing.T) {
	dev, hdl := openTestDevice(t, dwftest.Reply{Avail: 0, State: dwf.Armed})
	for i := 0; i < 5; i++ {
		out, err := Poll(dev)
		if err != nil {
			t.Fatalf("poll #%d: %+v", i, err)
		}
		if out.Kind != Continue {
			t.Fatalf("poll #%d: invalid outcome %v", i, out)
		}
	}
	if got, want := len(hdl.Calls), 10; got != want {
		t.Fatalf("invalid number of calls: got=%d, want=%d", got, want)
	}
}

func TestPollFailure(t *testing.T) {
	for _, name := range []string{"StatusRecord", "Status"} {
		t.Run(name, func(t *testing.T) {
			dev, hdl := openTestDevice(t, dwftest.Reply{Avail: 10, State: dwf.Triggered})
			hdl.FailOn = name
			out, err := Poll(dev)
			if err == nil {
				t.Fatalf("expected an error")
			}
			if out.Kind != Error {
				t.Fatalf("invalid outcome: %v", out)
			}
		})
	}

	_, err := Poll(NewDevice(newTestLib(1), 0, nil))
	if !xerrors.Is(err, ErrDevClosed) {
		t.Fatalf("invalid error: got=%v, want=%v", err, ErrDevClosed)
	}
}

func TestEmit(t *testing.T) {
	dev, hdl := openTestDevice(t)
	hdl.Data = []byte{0x08, 0x00, 0xff, 0x7f}

	var rec session.Recorder
	err := Emit(dev, 3, &rec)
	if err != nil {
		t.Fatalf("could not emit: %+v", err)
	}

	pkts := rec.Packets()
	if len(pkts) != 1 {
		t.Fatalf("invalid number of packets: %d", len(pkts))
	}
	pkt := pkts[0]
	if pkt.Kind != session.KindLogic {
		t.Fatalf("invalid packet kind: %v", pkt.Kind)
	}
	if pkt.Logic.Length != 6 || pkt.Logic.UnitSize != 2 {
		t.Fatalf("invalid packet: %v", pkt)
	}
	want := []byte{0x08, 0x00, 0xff, 0x7f, 0x08, 0x00}
	if !bytes.Equal(pkt.Logic.Data, want) {
		t.Fatalf("invalid payload: got=%x, want=%x", pkt.Logic.Data, want)
	}
	if pkt.Logic.Word(1) != 0x7fff {
		t.Fatalf("channel bits should not be masked: 0x%04x", pkt.Logic.Word(1))
	}
}

func TestEmitTooLarge(t *testing.T) {
	dev, hdl := openTestDevice(t)

	var rec session.Recorder
	err := Emit(dev, MaxBurst/UnitSize, &rec)
	if err != nil {
		t.Fatalf("could not emit a full burst: %+v", err)
	}

	err = Emit(dev, MaxBurst/UnitSize+1, &rec)
	if !xerrors.Is(err, ErrBurstTooLarge) {
		t.Fatalf("invalid error: got=%v, want=%v", err, ErrBurstTooLarge)
	}
	if got := len(rec.Packets()); got != 1 {
		t.Fatalf("no packet should be emitted on overflow: got %d packets", got)
	}

	n := 0
	for _, name := range hdl.Names() {
		if name == "StatusData" {
			n++
		}
	}
	if n != 1 {
		t.Fatalf("instrument should not be read on overflow: %d reads", n)
	}
}

func TestEmitErrors(t *testing.T) {
	dev, hdl := openTestDevice(t)
	hdl.FailOn = "StatusData"

	var rec session.Recorder
	err := Emit(dev, 10, &rec)
	if err == nil {
		t.Fatalf("expected an error")
	}
	if len(rec.Packets()) != 0 {
		t.Fatalf("no packet should be emitted on read failure")
	}

	err = Emit(dev, -1, &rec)
	if !xerrors.Is(err, ErrInvalidArg) {
		t.Fatalf("invalid error: got=%v, want=%v", err, ErrInvalidArg)
	}
}

func TestEndToEnd(t *testing.T) {
	buf := new(bytes.Buffer)
	lib := newTestLib(1)
	dev := NewDevice(lib, 0, log.NewMsgStream("ad2", log.LvlWarning, buf))

	err := Open(dev)
	if err != nil {
		t.Fatalf("could not open device: %+v", err)
	}
	hdl := lib.Handles[0]
	hdl.Replies = []dwftest.Reply{
		{Avail: 0, State: dwf.Armed},
		{Avail: 500, State: dwf.Triggered},
	}

	spec := &trigger.Spec{Stages: []trigger.Stage{
		{Matches: []trigger.Match{{Channel: 3, Kind: trigger.Rising}}},
	}}
	masks, degraded := trigger.Translate(spec, dev.Msg())
	if degraded {
		t.Fatalf("single stage trigger should not be degraded")
	}
	if want := (trigger.Masks{Rise: 0x0008}); masks != want {
		t.Fatalf("invalid masks: got=%v, want=%v", masks, want)
	}

	err = Start(dev, masks, 100)
	if err != nil {
		t.Fatalf("could not start: %+v", err)
	}
	if call, _ := hdl.Find("DividerSet"); call.Args[0].(uint32) != 1000000 {
		t.Fatalf("invalid divider: %v", call)
	}

	out, err := Poll(dev)
	if err != nil || out.Kind != Continue {
		t.Fatalf("invalid first poll: out=%v, err=%+v", out, err)
	}

	out, err = Poll(dev)
	if err != nil || out.Kind != SamplesReady || out.Samples != 500 {
		t.Fatalf("invalid second poll: out=%v, err=%+v", out, err)
	}

	var rec session.Recorder
	err = Emit(dev, out.Samples, &rec)
	if err != nil {
		t.Fatalf("could not emit: %+v", err)
	}
	pkt := rec.Packets()[0]
	if pkt.Logic.Length != 1000 || pkt.Logic.UnitSize != 2 {
		t.Fatalf("invalid packet: %v", pkt)
	}

	err = Close(dev)
	if err != nil {
		t.Fatalf("could not close: %+v", err)
	}
	if !hdl.Closed {
		t.Fatalf("handle should be closed")
	}

	if buf.Len() != 0 {
		t.Fatalf("unexpected messages:\n%s", buf.String())
	}
}
