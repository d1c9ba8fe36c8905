// Copyright 2020 The go-daq Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ad2 // import "github.com/go-daq/ad2"

import (
	"github.com/go-daq/ad2/dwf"
	"github.com/go-daq/ad2/trigger"
	"golang.org/x/xerrors"
)

// Start configures the digital-in instrument of dev to record samples
// at rate Hz, gated by masks, and arms it.
//
// The first failing instrument call aborts the sequence. The instrument is
// left in whatever state that call left it in.
func Start(dev *Device, masks trigger.Masks, rate uint64) error {
	if !dev.open {
		return ErrDevClosed
	}
	if rate == 0 {
		return ErrZeroRate
	}

	var (
		hdl = dev.hdl
		div = uint32(BaseClock / rate)
	)

	dev.msg.Spewf("start: rate=%d Hz, divider=%d, trigger=%v", rate, div, masks)

	for _, step := range []struct {
		name string
		fct  func() error
	}{
		{"acquisition mode", func() error { return hdl.AcquisitionModeSet(dwf.AcqModeRecord) }},
		{"divider", func() error { return hdl.DividerSet(div) }},
		{"sample format", func() error { return hdl.SampleFormatSet(SampleFormat) }},
		{"trigger position", func() error { return hdl.TriggerPositionSet(TriggerPosition) }},
		{"trigger source", func() error { return hdl.TriggerSourceSet(dwf.TrigSrcDetectorDigitalIn) }},
		{"trigger masks", func() error {
			return hdl.TriggerSet(
				uint32(masks.Low), uint32(masks.High),
				uint32(masks.Rise), uint32(masks.Fall),
			)
		}},
		{"configuration", func() error { return hdl.Configure(true, true) }},
	} {
		err := step.fct()
		if err != nil {
			return xerrors.Errorf("ad2: could not set %s of device #%d: %w", step.name, dev.Index, err)
		}
	}

	return nil
}
