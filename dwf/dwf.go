// Copyright 2020 The go-daq Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dwf describes the subset of the Digilent WaveForms SDK used to
// drive the digital-in (logic analyzer) instrument of an AnalogDiscovery2.
//
// The SDK itself is reached through a Library value. A cgo binding is
// available with the "dwf" build tag; package dwfsim provides a simulator.
package dwf // import "github.com/go-daq/ad2/dwf"

import (
	"fmt"
)

// Library enumerates and opens instruments.
type Library interface {
	// Enum returns the number of instruments attached to the host.
	Enum() (int, error)
	// DeviceName returns the name of the i-th enumerated instrument.
	DeviceName(i int) (string, error)
	// SerialNumber returns the serial number of the i-th enumerated instrument.
	SerialNumber(i int) (string, error)
	// Version returns the version of the SDK (and thus of the firmwares it ships).
	Version() (string, error)
	// Open opens the i-th enumerated instrument.
	Open(i int) (Handle, error)
}

// Handle is an opened instrument.
//
// Every method is a synchronous, non-blocking call into the SDK.
// None of them is retried.
type Handle interface {
	AcquisitionModeSet(mode AcqMode) error
	DividerSet(div uint32) error
	SampleFormatSet(bits int) error
	TriggerPositionSet(n uint32) error
	TriggerSourceSet(src TrigSrc) error
	TriggerSet(low, high, rise, fall uint32) error
	Configure(reconfigure, start bool) error

	// StatusRecord returns the number of samples available, lost and
	// corrupted since the last call.
	StatusRecord() (avail, lost, corrupt int, err error)
	// Status returns the acquisition state of the instrument.
	Status(read bool) (State, error)
	// StatusData copies len(buf) bytes of acquired samples into buf.
	StatusData(buf []byte) error

	Close() error
}

// AcqMode is an acquisition mode.
type AcqMode int

const (
	AcqModeSingle     AcqMode = 0
	AcqModeScanShift  AcqMode = 1
	AcqModeScanScreen AcqMode = 2
	AcqModeRecord     AcqMode = 3
)

func (m AcqMode) String() string {
	switch m {
	case AcqModeSingle:
		return "single"
	case AcqModeScanShift:
		return "scan-shift"
	case AcqModeScanScreen:
		return "scan-screen"
	case AcqModeRecord:
		return "record"
	}
	return fmt.Sprintf("AcqMode(%d)", int(m))
}

// TrigSrc is a trigger source.
type TrigSrc uint8

const (
	TrigSrcNone              TrigSrc = 0
	TrigSrcPC                TrigSrc = 1
	TrigSrcDetectorAnalogIn  TrigSrc = 2
	TrigSrcDetectorDigitalIn TrigSrc = 3
)

func (src TrigSrc) String() string {
	switch src {
	case TrigSrcNone:
		return "none"
	case TrigSrcPC:
		return "pc"
	case TrigSrcDetectorAnalogIn:
		return "detector-analog-in"
	case TrigSrcDetectorDigitalIn:
		return "detector-digital-in"
	}
	return fmt.Sprintf("TrigSrc(%d)", uint8(src))
}

// State is the acquisition phase reported by the instrument.
// Values follow the SDK encoding.
type State uint8

const (
	Ready     State = 0
	Armed     State = 1
	Done      State = 2
	Triggered State = 3 // also known as "running": samples are being captured.
	Config    State = 4
	Prefill   State = 5
	Wait      State = 7
)

// Waiting reports whether the instrument has not started capturing yet.
func (st State) Waiting() bool {
	switch st {
	case Config, Armed, Prefill:
		return true
	}
	return false
}

func (st State) String() string {
	switch st {
	case Ready:
		return "ready"
	case Armed:
		return "armed"
	case Done:
		return "done"
	case Triggered:
		return "triggered"
	case Config:
		return "config"
	case Prefill:
		return "prefill"
	case Wait:
		return "wait"
	default:
		panic(fmt.Errorf("invalid state value %d", uint8(st)))
	}
}
