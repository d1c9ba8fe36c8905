// Copyright 2020 The go-daq Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package session defines the packets emitted by an acquisition and the
// sinks that carry them to consumers.
//
// A session is a Header packet, followed by any number of Logic packets,
// and terminated by an End packet.
package session // import "github.com/go-daq/ad2/session"

import (
	"context"
	"fmt"
	"time"
)

// Kind is the type of a packet.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindHeader
	KindLogic
	KindEnd
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindHeader:
		return "header"
	case KindLogic:
		return "logic"
	case KindEnd:
		return "end"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Header opens a session.
type Header struct {
	Device     string    // name of the acquiring device
	SampleRate uint64    // sample rate in Hz
	Start      time.Time // start of the acquisition
}

// Logic carries raw logic samples.
//
// Data holds Length bytes of sample words, UnitSize bytes each,
// in the byte order produced by the instrument.
type Logic struct {
	Length   int
	UnitSize int
	Data     []byte
}

// Samples returns the number of sample words in the packet.
func (l *Logic) Samples() int {
	if l.UnitSize <= 0 {
		return 0
	}
	return l.Length / l.UnitSize
}

// Word returns the i-th sample word of a 2-byte-unit packet,
// reading the bytes in little-endian order.
func (l *Logic) Word(i int) uint16 {
	return uint16(l.Data[2*i]) | uint16(l.Data[2*i+1])<<8
}

// Packet is a typed unit of a session.
type Packet struct {
	Kind   Kind
	Header *Header // non-nil for KindHeader
	Logic  *Logic  // non-nil for KindLogic
}

// NewHeader returns a Header packet.
func NewHeader(hdr Header) Packet {
	return Packet{Kind: KindHeader, Header: &hdr}
}

// NewLogic returns a Logic packet, taking ownership of data.
func NewLogic(unit int, data []byte) Packet {
	return Packet{Kind: KindLogic, Logic: &Logic{
		Length:   len(data),
		UnitSize: unit,
		Data:     data,
	}}
}

// NewEnd returns an End packet.
func NewEnd() Packet {
	return Packet{Kind: KindEnd}
}

func (pkt Packet) String() string {
	switch pkt.Kind {
	case KindHeader:
		return fmt.Sprintf("header{device=%q rate=%d start=%v}",
			pkt.Header.Device, pkt.Header.SampleRate, pkt.Header.Start.UTC().Format(time.RFC3339))
	case KindLogic:
		return fmt.Sprintf("logic{len=%d unit=%d}", pkt.Logic.Length, pkt.Logic.UnitSize)
	}
	return pkt.Kind.String()
}

// Sink consumes the packets of a session.
//
// Once Send returns, the sink owns the packet and its data.
type Sink interface {
	Send(ctx context.Context, pkt Packet) error
}

// Source produces the packets of a session.
type Source interface {
	// Recv returns the next packet, or io.EOF when no packets are left.
	Recv(ctx context.Context) (Packet, error)
}

// SinkFunc adapts a function into a Sink.
type SinkFunc func(ctx context.Context, pkt Packet) error

func (f SinkFunc) Send(ctx context.Context, pkt Packet) error { return f(ctx, pkt) }

var (
	_ Sink = (SinkFunc)(nil)
)
