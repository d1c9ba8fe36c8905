// Copyright 2020 The go-daq Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fsm describes the states of a logic acquisition.
package fsm // import "github.com/go-daq/ad2/fsm"

import (
	"fmt"
)

// Status describes the current status of an acquisition.
type Status uint8

const (
	Idle    Status = iota // device opened, acquisition not started
	Armed                 // instrument configured, waiting for the trigger
	Running               // samples are being streamed
	Stopped               // acquisition ended, session closed
	Error                 // acquisition aborted on an error
)

func (st Status) String() string {
	switch st {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	case Error:
		return "error"
	default:
		panic(fmt.Errorf("invalid status value %d", uint8(st)))
	}
}

// Done reports whether the acquisition has ended.
func (st Status) Done() bool {
	return st == Stopped || st == Error
}
