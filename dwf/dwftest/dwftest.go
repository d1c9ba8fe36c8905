// Copyright 2020 The go-daq Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dwftest provides scriptable fakes of the dwf interfaces.
package dwftest // import "github.com/go-daq/ad2/dwf/dwftest"

import (
	"fmt"

	"github.com/go-daq/ad2/dwf"
	"golang.org/x/xerrors"
)

// Call is one recorded call made on a Handle.
type Call struct {
	Name string
	Args []interface{}
}

func (c Call) String() string {
	return fmt.Sprintf("%s%v", c.Name, c.Args)
}

// Reply is one scripted answer to StatusRecord+Status.
type Reply struct {
	Avail   int
	Lost    int
	Corrupt int
	State   dwf.State
}

// Library is a fake dwf.Library exposing a fixed set of devices.
type Library struct {
	Devices []Device
	Vers    string

	Handles []*Handle // handles created by Open, in order.
	Err     error     // error returned by Enum and Open, if any.
}

// Device describes an enumerated fake device.
type Device struct {
	Name   string
	Serial string
}

func (lib *Library) Enum() (int, error) {
	if lib.Err != nil {
		return 0, lib.Err
	}
	return len(lib.Devices), nil
}

func (lib *Library) DeviceName(i int) (string, error) {
	if i < 0 || i >= len(lib.Devices) {
		return "", xerrors.Errorf("dwftest: invalid device index %d", i)
	}
	return lib.Devices[i].Name, nil
}

func (lib *Library) SerialNumber(i int) (string, error) {
	if i < 0 || i >= len(lib.Devices) {
		return "", xerrors.Errorf("dwftest: invalid device index %d", i)
	}
	return lib.Devices[i].Serial, nil
}

func (lib *Library) Version() (string, error) {
	return lib.Vers, nil
}

func (lib *Library) Open(i int) (dwf.Handle, error) {
	if lib.Err != nil {
		return nil, lib.Err
	}
	if i < 0 || i >= len(lib.Devices) {
		return nil, xerrors.Errorf("dwftest: invalid device index %d", i)
	}
	h := &Handle{}
	lib.Handles = append(lib.Handles, h)
	return h, nil
}

// Handle is a fake dwf.Handle.
//
// Status replies are consumed from Replies, one per StatusRecord call.
// The last reply is repeated once the script is exhausted.
type Handle struct {
	Calls   []Call
	Replies []Reply
	Data    []byte // bytes served by StatusData, cycled.

	// FailOn makes the named method return Err.
	FailOn string
	Err    error

	Closed bool

	cur int
}

func (h *Handle) record(name string, args ...interface{}) error {
	h.Calls = append(h.Calls, Call{Name: name, Args: args})
	if h.FailOn == name {
		if h.Err == nil {
			return xerrors.Errorf("dwftest: %s failed", name)
		}
		return h.Err
	}
	return nil
}

// Names returns the names of the recorded calls.
func (h *Handle) Names() []string {
	o := make([]string, len(h.Calls))
	for i, c := range h.Calls {
		o[i] = c.Name
	}
	return o
}

// Find returns the first recorded call with the given name.
func (h *Handle) Find(name string) (Call, bool) {
	for _, c := range h.Calls {
		if c.Name == name {
			return c, true
		}
	}
	return Call{}, false
}

func (h *Handle) AcquisitionModeSet(mode dwf.AcqMode) error {
	return h.record("AcquisitionModeSet", mode)
}

func (h *Handle) DividerSet(div uint32) error {
	return h.record("DividerSet", div)
}

func (h *Handle) SampleFormatSet(bits int) error {
	return h.record("SampleFormatSet", bits)
}

func (h *Handle) TriggerPositionSet(n uint32) error {
	return h.record("TriggerPositionSet", n)
}

func (h *Handle) TriggerSourceSet(src dwf.TrigSrc) error {
	return h.record("TriggerSourceSet", src)
}

func (h *Handle) TriggerSet(low, high, rise, fall uint32) error {
	return h.record("TriggerSet", low, high, rise, fall)
}

func (h *Handle) Configure(reconfigure, start bool) error {
	return h.record("Configure", reconfigure, start)
}

func (h *Handle) reply(i int) Reply {
	switch {
	case len(h.Replies) == 0:
		return Reply{State: dwf.Config}
	case i < 0:
		i = 0
	case i >= len(h.Replies):
		i = len(h.Replies) - 1
	}
	return h.Replies[i]
}

// StatusRecord starts a new poll: it advances the reply script.
func (h *Handle) StatusRecord() (avail, lost, corrupt int, err error) {
	err = h.record("StatusRecord")
	if err != nil {
		return 0, 0, 0, err
	}
	rep := h.reply(h.cur)
	h.cur++
	return rep.Avail, rep.Lost, rep.Corrupt, nil
}

func (h *Handle) Status(read bool) (dwf.State, error) {
	err := h.record("Status", read)
	if err != nil {
		return 0, err
	}
	return h.reply(h.cur - 1).State, nil
}

func (h *Handle) StatusData(buf []byte) error {
	err := h.record("StatusData", len(buf))
	if err != nil {
		return err
	}
	if len(h.Data) == 0 {
		return nil
	}
	for i := range buf {
		buf[i] = h.Data[i%len(h.Data)]
	}
	return nil
}

func (h *Handle) Close() error {
	err := h.record("Close")
	if err != nil {
		return err
	}
	h.Closed = true
	return nil
}

var (
	_ dwf.Library = (*Library)(nil)
	_ dwf.Handle  = (*Handle)(nil)
)
