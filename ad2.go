// Copyright 2020 The go-daq Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ad2 drives the logic analyzer of Digilent AnalogDiscovery2-class
// instruments.
//
// An acquisition is a sequence of calls on an opened Device:
//
//  Open -> Start -> Poll, Poll, ... (Emit on SamplesReady) -> Close
//
// The functions of this package never block on the instrument and never
// retry a failed call. They must not be invoked concurrently for the same
// Device. Acquisition composes them on a timer.
package ad2 // import "github.com/go-daq/ad2"

import (
	"golang.org/x/xerrors"
)

const (
	BaseClock       = 100000000 // base clock of the digital-in instrument, in Hz
	TriggerPosition = 100000    // number of samples acquired after the trigger
	SampleFormat    = 16        // bits per sample word, one per channel
	UnitSize        = 2         // bytes per sample word
	MaxBurst        = 1 << 20   // maximum number of bytes emitted by one packet

	NumChannels = 16
	DefaultRate = 100 // default sample rate, in Hz
)

var (
	ErrDevClosed     = xerrors.New("ad2: device closed")
	ErrDevOpen       = xerrors.New("ad2: device already open")
	ErrZeroRate      = xerrors.New("ad2: sample rate must be non-zero")
	ErrBurstTooLarge = xerrors.New("ad2: burst exceeds buffer capacity")
	ErrDataLoss      = xerrors.New("ad2: samples lost or corrupted")
	ErrNotApplicable = xerrors.New("ad2: configuration key not applicable")
	ErrInvalidArg    = xerrors.New("ad2: invalid argument")
)
