// Copyright 2020 The go-daq Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package session // import "github.com/go-daq/ad2/session"

import (
	"context"
	"io"
	"sync"
)

// Recorder is an in-memory Sink keeping every packet it receives.
// A Recorder is also a Source, replaying the recorded packets in order.
type Recorder struct {
	mu   sync.Mutex
	pkts []Packet
	cur  int
}

func (rec *Recorder) Send(ctx context.Context, pkt Packet) error {
	rec.mu.Lock()
	rec.pkts = append(rec.pkts, pkt)
	rec.mu.Unlock()
	return nil
}

func (rec *Recorder) Recv(ctx context.Context) (Packet, error) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.cur >= len(rec.pkts) {
		return Packet{}, io.EOF
	}
	pkt := rec.pkts[rec.cur]
	rec.cur++
	return pkt, nil
}

// Packets returns a copy of the recorded packets.
func (rec *Recorder) Packets() []Packet {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	out := make([]Packet, len(rec.pkts))
	copy(out, rec.pkts)
	return out
}

// Kinds returns the kinds of the recorded packets.
func (rec *Recorder) Kinds() []Kind {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	out := make([]Kind, len(rec.pkts))
	for i, pkt := range rec.pkts {
		out[i] = pkt.Kind
	}
	return out
}

var (
	_ Sink   = (*Recorder)(nil)
	_ Source = (*Recorder)(nil)
)
