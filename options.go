// Copyright 2020 The go-daq Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ad2 // import "github.com/go-daq/ad2"

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-daq/ad2/trigger"
	"golang.org/x/xerrors"
)

// Key identifies a configuration parameter.
type Key uint32

const (
	KeyInvalid Key = iota
	KeyConn
	KeyContinuous
	KeySampleRate
	KeyTriggerMatch
	KeyScanOptions
	KeyDeviceOptions
)

var keyNames = map[Key]string{
	KeyConn:          "conn",
	KeyContinuous:    "continuous",
	KeySampleRate:    "samplerate",
	KeyTriggerMatch:  "triggermatch",
	KeyScanOptions:   "scan-options",
	KeyDeviceOptions: "device-options",
}

func (k Key) String() string {
	if v, ok := keyNames[k]; ok {
		return v
	}
	return fmt.Sprintf("Key(%d)", uint32(k))
}

// ParseKey returns the key named v.
func ParseKey(v string) (Key, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	for k, name := range keyNames {
		if name == v {
			return k, nil
		}
	}
	return KeyInvalid, xerrors.Errorf("ad2: unknown configuration key %q: %w", v, ErrNotApplicable)
}

// Cap is a set of capabilities of a configuration key.
type Cap uint8

const (
	CapGet Cap = 1 << iota
	CapSet
	CapList
)

func (c Cap) String() string {
	var o []string
	if c&CapGet != 0 {
		o = append(o, "get")
	}
	if c&CapSet != 0 {
		o = append(o, "set")
	}
	if c&CapList != 0 {
		o = append(o, "list")
	}
	return strings.Join(o, "|")
}

// Option is a configuration key supported by a device, with its capabilities.
type Option struct {
	Key Key
	Cap Cap
}

func (o Option) String() string {
	if o.Cap == 0 {
		return o.Key.String()
	}
	return o.Key.String() + " (" + o.Cap.String() + ")"
}

var (
	// SampleRates lists the supported sample rates, in Hz.
	SampleRates = []uint64{1, 10, 50, 100, 200}

	// TriggerMatches lists the supported trigger match kinds.
	TriggerMatches = []trigger.Kind{
		trigger.Zero,
		trigger.One,
		trigger.Rising,
		trigger.Falling,
		trigger.Edge,
	}

	scanOptions = []Option{{Key: KeyConn}}

	deviceOptions = []Option{
		{Key: KeyContinuous},
		{Key: KeyConn, Cap: CapGet},
		{Key: KeySampleRate, Cap: CapGet | CapSet | CapList},
		{Key: KeyTriggerMatch, Cap: CapGet | CapSet | CapList},
	}
)

// Get returns the current value of the configuration key.
func (dev *Device) Get(key Key) (interface{}, error) {
	switch key {
	case KeyConn:
		return dev.Serial, nil
	case KeySampleRate:
		return dev.rate, nil
	case KeyTriggerMatch:
		dev.msg.Spewf("get: trigger match")
		return dev.trig, nil
	default:
		return nil, xerrors.Errorf("ad2: could not get %v: %w", key, ErrNotApplicable)
	}
}

// Set modifies the value of the configuration key.
//
// Sample rates must be one of SampleRates and may be given as an integer
// or a string. Trigger matches may be given as a *trigger.Spec or as text.
func (dev *Device) Set(key Key, v interface{}) error {
	dev.msg.Spewf("set(key=%v)", key)
	switch key {
	case KeySampleRate:
		rate, err := rateFrom(v)
		if err != nil {
			return err
		}
		if !validRate(rate) {
			return xerrors.Errorf("ad2: unsupported sample rate %d Hz: %w", rate, ErrInvalidArg)
		}
		dev.rate = rate
		dev.msg.Spewf("set the sample rate to %d Hz", rate)
		return nil

	case KeyTriggerMatch:
		switch v := v.(type) {
		case nil:
			dev.trig = nil
		case *trigger.Spec:
			dev.trig = v
		case string:
			spec, err := trigger.Parse(v)
			if err != nil {
				return xerrors.Errorf("ad2: invalid trigger %q (%v): %w", v, err, ErrInvalidArg)
			}
			dev.trig = spec
		default:
			return xerrors.Errorf("ad2: invalid trigger value type %T: %w", v, ErrInvalidArg)
		}
		return nil

	default:
		return xerrors.Errorf("ad2: could not set %v: %w", key, ErrNotApplicable)
	}
}

// List returns the possible values of the configuration key.
func List(key Key) (interface{}, error) {
	switch key {
	case KeyScanOptions:
		return append([]Option(nil), scanOptions...), nil
	case KeyDeviceOptions:
		return append([]Option(nil), deviceOptions...), nil
	case KeySampleRate:
		return append([]uint64(nil), SampleRates...), nil
	case KeyTriggerMatch:
		return append([]trigger.Kind(nil), TriggerMatches...), nil
	default:
		return nil, xerrors.Errorf("ad2: could not list %v: %w", key, ErrNotApplicable)
	}
}

func validRate(rate uint64) bool {
	for _, v := range SampleRates {
		if v == rate {
			return true
		}
	}
	return false
}

func rateFrom(v interface{}) (uint64, error) {
	switch v := v.(type) {
	case uint64:
		return v, nil
	case int:
		if v < 0 {
			return 0, xerrors.Errorf("ad2: negative sample rate %d: %w", v, ErrInvalidArg)
		}
		return uint64(v), nil
	case string:
		rate, err := strconv.ParseUint(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(v), "Hz")), 10, 64)
		if err != nil {
			return 0, xerrors.Errorf("ad2: invalid sample rate %q: %w", v, ErrInvalidArg)
		}
		return rate, nil
	default:
		return 0, xerrors.Errorf("ad2: invalid sample rate type %T: %w", v, ErrInvalidArg)
	}
}
