// Copyright 2020 The go-daq Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ad2 // import "github.com/go-daq/ad2"

import (
	"fmt"
	"strconv"

	"github.com/go-daq/ad2/dwf"
	"github.com/go-daq/ad2/log"
	"github.com/go-daq/ad2/trigger"
	"golang.org/x/xerrors"
)

// Channel is a logic input of a device.
type Channel struct {
	Index   int
	Name    string
	Enabled bool
}

// ChannelGroup is a named set of channels.
type ChannelGroup struct {
	Name     string
	Channels []Channel
}

// Device is an enumerated instrument.
//
// A Device exclusively owns its instrument handle between a successful
// Open and the matching Close.
type Device struct {
	Index   int    // enumeration index
	Vendor  string
	Name    string
	Serial  string
	Version string // version of the SDK firmwares

	Groups []ChannelGroup

	lib  dwf.Library
	msg  log.MsgStream
	hdl  dwf.Handle
	open bool
	rate uint64        // sample rate, in Hz
	trig *trigger.Spec // trigger of the next acquisition
}

// NewDevice returns the device at enumeration index idx of lib.
// The device is closed, with the default sample rate.
func NewDevice(lib dwf.Library, idx int, msg log.MsgStream) *Device {
	if msg == nil {
		msg = log.Discard
	}
	dev := &Device{
		Index:  idx,
		Vendor: "Digilent",
		lib:    lib,
		msg:    msg,
		rate:   DefaultRate,
	}

	grp := ChannelGroup{Name: "Logic", Channels: make([]Channel, NumChannels)}
	for i := range grp.Channels {
		grp.Channels[i] = Channel{Index: i, Name: strconv.Itoa(i), Enabled: true}
	}
	dev.Groups = []ChannelGroup{grp}
	return dev
}

// Scan enumerates the instruments attached to lib.
func Scan(lib dwf.Library, msg log.MsgStream) ([]*Device, error) {
	if msg == nil {
		msg = log.Discard
	}

	n, err := lib.Enum()
	if err != nil {
		return nil, xerrors.Errorf("ad2: could not enumerate devices: %w", err)
	}

	vers, err := lib.Version()
	if err != nil {
		return nil, xerrors.Errorf("ad2: could not retrieve SDK version: %w", err)
	}

	devs := make([]*Device, 0, n)
	for i := 0; i < n; i++ {
		dev := NewDevice(lib, i, msg)
		dev.Version = vers

		dev.Name, err = lib.DeviceName(i)
		if err != nil {
			return nil, xerrors.Errorf("ad2: could not retrieve name of device #%d: %w", i, err)
		}

		dev.Serial, err = lib.SerialNumber(i)
		if err != nil {
			return nil, xerrors.Errorf("ad2: could not retrieve serial number of device #%d: %w", i, err)
		}

		msg.Debugf("found %v", dev)
		devs = append(devs, dev)
	}

	return devs, nil
}

func (dev *Device) String() string {
	return fmt.Sprintf("%s %s (%s) #%d", dev.Vendor, dev.Name, dev.Serial, dev.Index)
}

// IsOpen reports whether the device holds an instrument handle.
func (dev *Device) IsOpen() bool { return dev.open }

// SampleRate returns the current sample rate, in Hz.
func (dev *Device) SampleRate() uint64 { return dev.rate }

// Msg returns the message stream of the device.
func (dev *Device) Msg() log.MsgStream { return dev.msg }

// Open acquires the instrument handle of dev.
// Opening an already opened device fails with ErrDevOpen and leaves
// the device untouched.
func Open(dev *Device) error {
	if dev.open {
		dev.msg.Errorf("device %d already open", dev.Index)
		return ErrDevOpen
	}

	hdl, err := dev.lib.Open(dev.Index)
	if err != nil {
		dev.msg.Errorf("error opening device number %d", dev.Index)
		dev.open = false
		return xerrors.Errorf("ad2: could not open device #%d: %w", dev.Index, err)
	}

	dev.hdl = hdl
	dev.open = true
	return nil
}

// Close releases the instrument handle of dev.
// Closing a closed device is a no-op.
func Close(dev *Device) error {
	if !dev.open {
		return nil
	}

	hdl := dev.hdl
	dev.hdl = nil
	dev.open = false

	err := hdl.Close()
	if err != nil {
		return xerrors.Errorf("ad2: could not close device #%d: %w", dev.Index, err)
	}
	return nil
}
