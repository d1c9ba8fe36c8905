// Copyright 2020 The go-daq Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ad2 // import "github.com/go-daq/ad2"

import (
	"context"
	"fmt"

	"github.com/go-daq/ad2/dwf"
	"github.com/go-daq/ad2/session"
	"golang.org/x/xerrors"
)

// OutcomeKind is the decision taken by Poll.
type OutcomeKind uint8

const (
	Continue     OutcomeKind = iota // nothing to read yet
	Error                           // samples were lost or corrupted
	SamplesReady                    // samples can be emitted
)

func (k OutcomeKind) String() string {
	switch k {
	case Continue:
		return "continue"
	case Error:
		return "error"
	case SamplesReady:
		return "samples-ready"
	}
	return fmt.Sprintf("OutcomeKind(%d)", uint8(k))
}

// Status is the instrument status read by one poll.
type Status struct {
	Avail   int
	Lost    int
	Corrupt int
	State   dwf.State
}

// Outcome is the result of Poll.
type Outcome struct {
	Kind    OutcomeKind
	Samples int    // number of samples ready, for SamplesReady
	Status  Status // instrument status the decision was taken on
}

func (o Outcome) String() string {
	if o.Kind == SamplesReady {
		return fmt.Sprintf("%v(%d)", o.Kind, o.Samples)
	}
	return o.Kind.String()
}

// Poll reads the status of the instrument and decides whether samples
// are ready to be emitted.
//
// Poll only queries the instrument: calling it repeatedly while the
// instrument is waiting for its trigger has no other effect.
// Failing instrument calls are returned with an Error outcome.
func Poll(dev *Device) (Outcome, error) {
	if !dev.open {
		return Outcome{Kind: Error}, ErrDevClosed
	}

	var (
		out Outcome
		err error
	)

	out.Status.Avail, out.Status.Lost, out.Status.Corrupt, err = dev.hdl.StatusRecord()
	if err != nil {
		out.Kind = Error
		return out, xerrors.Errorf("ad2: could not read record status of device #%d: %w", dev.Index, err)
	}
	dev.msg.Spewf("avail = %d", out.Status.Avail)

	if out.Status.Lost > 0 || out.Status.Corrupt > 0 {
		dev.msg.Errorf("samples lost=%d, samples corrupt=%d", out.Status.Lost, out.Status.Corrupt)
		out.Kind = Error
		return out, nil
	}

	out.Status.State, err = dev.hdl.Status(true)
	if err != nil {
		out.Kind = Error
		return out, xerrors.Errorf("ad2: could not read status of device #%d: %w", dev.Index, err)
	}

	if out.Status.Avail == 0 || out.Status.State.Waiting() {
		dev.msg.Spewf("waiting for trigger")
		out.Kind = Continue
		return out, nil
	}

	out.Kind = SamplesReady
	out.Samples = out.Status.Avail
	return out, nil
}

// Emit reads n samples from the instrument of dev and sends them as
// one logic packet to sink.
//
// Emit fails with ErrBurstTooLarge, without reading from the instrument
// nor sending anything, if n samples do not fit in MaxBurst bytes.
func Emit(dev *Device, n int, sink session.Sink) error {
	return EmitContext(context.Background(), dev, n, sink)
}

// EmitContext is like Emit but sends the packet with the provided context.
func EmitContext(ctx context.Context, dev *Device, n int, sink session.Sink) error {
	if !dev.open {
		return ErrDevClosed
	}
	if n < 0 {
		return xerrors.Errorf("ad2: invalid number of samples %d: %w", n, ErrInvalidArg)
	}
	if n > MaxBurst/UnitSize {
		return xerrors.Errorf("ad2: could not emit %d samples (max=%d): %w",
			n, MaxBurst/UnitSize, ErrBurstTooLarge,
		)
	}

	buf := make([]byte, n*UnitSize)
	err := dev.hdl.StatusData(buf)
	if err != nil {
		return xerrors.Errorf("ad2: could not read samples from device #%d: %w", dev.Index, err)
	}

	err = sink.Send(ctx, session.NewLogic(UnitSize, buf))
	if err != nil {
		return xerrors.Errorf("ad2: could not send logic packet: %w", err)
	}
	return nil
}
