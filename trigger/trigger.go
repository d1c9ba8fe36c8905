// Copyright 2020 The go-daq Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package trigger describes logic trigger conditions and translates them
// into the edge/level bitmasks understood by the digital-in detector.
package trigger // import "github.com/go-daq/ad2/trigger"

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-daq/ad2/log"
	"golang.org/x/xerrors"
)

// NumChannels is the number of logic channels a trigger may refer to.
const NumChannels = 16

// Kind is the condition a channel must meet.
type Kind uint8

const (
	Zero    Kind = iota + 1 // level low
	One                     // level high
	Rising                  // rising edge
	Falling                 // falling edge
	Edge                    // any edge
)

// Kinds lists the trigger conditions supported by the instrument.
var Kinds = []Kind{Zero, One, Rising, Falling, Edge}

func (k Kind) String() string {
	switch k {
	case Zero:
		return "0"
	case One:
		return "1"
	case Rising:
		return "r"
	case Falling:
		return "f"
	case Edge:
		return "e"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Name returns the descriptive name of the condition.
func (k Kind) Name() string {
	switch k {
	case Zero:
		return "level-low"
	case One:
		return "level-high"
	case Rising:
		return "rising-edge"
	case Falling:
		return "falling-edge"
	case Edge:
		return "any-edge"
	}
	return k.String()
}

// Match is a single (channel, condition) pair.
type Match struct {
	Channel int
	Kind    Kind
}

// Stage is a group of matches that must all be met at once.
type Stage struct {
	Matches []Match
}

// Spec is an ordered sequence of trigger stages.
type Spec struct {
	Name   string
	Stages []Stage
}

// String returns the textual form of the spec, as accepted by Parse.
func (spec *Spec) String() string {
	if spec == nil {
		return ""
	}
	stages := make([]string, len(spec.Stages))
	for i, stage := range spec.Stages {
		ms := make([]string, len(stage.Matches))
		for j, m := range stage.Matches {
			ms[j] = strconv.Itoa(m.Channel) + "=" + m.Kind.String()
		}
		stages[i] = strings.Join(ms, ",")
	}
	return strings.Join(stages, ";")
}

// Masks are the four per-channel bitmasks of the digital-in detector.
//
// The detector fires when every channel with a bit set meets its condition.
type Masks struct {
	Low  uint16
	High uint16
	Rise uint16
	Fall uint16
}

// IsZero reports whether no trigger condition is set: the instrument free-runs.
func (m Masks) IsZero() bool {
	return m == Masks{}
}

func (m Masks) String() string {
	return fmt.Sprintf("low=0x%04x high=0x%04x rise=0x%04x fall=0x%04x", m.Low, m.High, m.Rise, m.Fall)
}

// Translate computes the hardware masks of a trigger spec.
//
// Only the first stage is honored: the instrument has a single stage.
// degraded is true when later stages were dropped.
// A nil or empty spec yields zero masks.
// Translate panics if a match refers to a channel outside [0, NumChannels).
func Translate(spec *Spec, msg log.MsgStream) (masks Masks, degraded bool) {
	if msg == nil {
		msg = log.Discard
	}
	if spec == nil || len(spec.Stages) == 0 {
		msg.Spewf("trigger is nil")
		return masks, false
	}

	msg.Spewf("trigger with name %q found", spec.Name)
	if len(spec.Stages) > 1 {
		msg.Warnf("staged triggers are not supported with this device: ignoring %d stage(s)", len(spec.Stages)-1)
		degraded = true
	}

	for _, m := range spec.Stages[0].Matches {
		if m.Channel < 0 || m.Channel >= NumChannels {
			panic(xerrors.Errorf("trigger: invalid channel %d", m.Channel))
		}
		bit := uint16(1) << uint(m.Channel)
		msg.Spewf("match channel=%d kind=%v", m.Channel, m.Kind.Name())
		switch m.Kind {
		case Zero:
			masks.Low |= bit
		case One:
			masks.High |= bit
		case Rising:
			masks.Rise |= bit
		case Falling:
			masks.Fall |= bit
		case Edge:
			masks.Rise |= bit
			masks.Fall |= bit
		default:
			msg.Errorf("unhandled trigger kind %v on channel %d", m.Kind, m.Channel)
		}
	}

	return masks, degraded
}

// Parse parses a trigger spec of the form "0=r,3=1;5=f".
//
// Matches of a stage are separated by commas, stages by semicolons.
// Conditions are 0, 1, r (rising), f (falling) and e (any edge).
func Parse(v string) (*Spec, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}

	var spec Spec
	for i, stage := range strings.Split(v, ";") {
		var st Stage
		for _, m := range strings.Split(stage, ",") {
			m = strings.TrimSpace(m)
			if m == "" {
				continue
			}
			toks := strings.Split(m, "=")
			if len(toks) != 2 {
				return nil, xerrors.Errorf("trigger: invalid match %q in stage %d", m, i)
			}
			ch, err := strconv.Atoi(strings.TrimSpace(toks[0]))
			if err != nil {
				return nil, xerrors.Errorf("trigger: invalid channel in match %q: %w", m, err)
			}
			if ch < 0 || ch >= NumChannels {
				return nil, xerrors.Errorf("trigger: channel %d out of range [0, %d)", ch, NumChannels)
			}
			kind, err := parseKind(strings.TrimSpace(toks[1]))
			if err != nil {
				return nil, xerrors.Errorf("trigger: invalid match %q: %w", m, err)
			}
			st.Matches = append(st.Matches, Match{Channel: ch, Kind: kind})
		}
		if len(st.Matches) == 0 {
			return nil, xerrors.Errorf("trigger: empty stage %d", i)
		}
		spec.Stages = append(spec.Stages, st)
	}

	return &spec, nil
}

func parseKind(v string) (Kind, error) {
	switch strings.ToLower(v) {
	case "0", "l", "low":
		return Zero, nil
	case "1", "h", "high":
		return One, nil
	case "r", "rise", "rising":
		return Rising, nil
	case "f", "fall", "falling":
		return Falling, nil
	case "e", "edge":
		return Edge, nil
	}
	return 0, xerrors.Errorf("unknown condition %q", v)
}
