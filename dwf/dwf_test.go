// Copyright 2020 The go-daq Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dwf // import "github.com/go-daq/ad2/dwf"

import "testing"

func TestState(t *testing.T) {
	for _, tt := range []struct {
		state   State
		want    string
		waiting bool
		panics  bool
	}{
		{state: Ready, want: "ready"},
		{state: Config, want: "config", waiting: true},
		{state: Armed, want: "armed", waiting: true},
		{state: Prefill, want: "prefill", waiting: true},
		{state: Triggered, want: "triggered"},
		{state: Done, want: "done"},
		{state: Wait, want: "wait"},
		{state: State(6), panics: true},
	} {
		t.Run(tt.want, func(t *testing.T) {
			if tt.panics {
				defer func() {
					err := recover()
					if err == nil {
						t.Fatalf("expected a panic")
					}
					if got, want := err.(error).Error(), "invalid state value 6"; got != want {
						t.Fatalf("invalid panic string.\ngot = %q\nwant= %q\n", got, want)
					}
				}()
			}

			got := tt.state.String()
			if got != tt.want {
				t.Fatalf("invalid stringer value.\ngot = %q\nwant= %q\n", got, tt.want)
			}
			if got, want := tt.state.Waiting(), tt.waiting; got != want {
				t.Fatalf("invalid waiting value: got=%v, want=%v", got, want)
			}
		})
	}
}

func TestEnumStrings(t *testing.T) {
	for _, tt := range []struct {
		v    interface{ String() string }
		want string
	}{
		{AcqModeRecord, "record"},
		{AcqModeSingle, "single"},
		{AcqMode(42), "AcqMode(42)"},
		{TrigSrcDetectorDigitalIn, "detector-digital-in"},
		{TrigSrcNone, "none"},
		{TrigSrc(42), "TrigSrc(42)"},
	} {
		if got := tt.v.String(); got != tt.want {
			t.Fatalf("invalid stringer value: got=%q, want=%q", got, tt.want)
		}
	}
}
