// Copyright 2020 The go-daq Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package session // import "github.com/go-daq/ad2/session"

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"math"

	"github.com/pkg/errors"
)

// Writer is a Sink that writes length-prefixed packets to an io.Writer.
type Writer struct {
	w   io.Writer
	hdr []byte
}

// NewWriter returns a Writer sink writing to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w, hdr: make([]byte, 4)}
}

func (w *Writer) Send(ctx context.Context, pkt Packet) error {
	raw, err := pkt.MarshalBinary()
	if err != nil {
		return errors.Wrap(err, "could not marshal packet for sending")
	}

	binary.LittleEndian.PutUint32(w.hdr, uint32(len(raw)))
	_, err = io.Copy(w.w, io.MultiReader(bytes.NewReader(w.hdr), bytes.NewReader(raw)))
	if err != nil {
		return errors.Wrapf(err, "could not send %v packet", pkt.Kind)
	}
	return nil
}

// Reader is a Source reading packets written by a Writer.
type Reader struct {
	r   io.Reader
	hdr []byte
}

// NewReader returns a Reader source reading from r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r, hdr: make([]byte, 4)}
}

// Recv returns the next packet, or io.EOF at the end of the stream.
func (r *Reader) Recv(ctx context.Context) (Packet, error) {
	select {
	case <-ctx.Done():
		return Packet{}, ctx.Err()
	default:
	}

	_, err := io.ReadFull(r.r, r.hdr)
	if err != nil {
		if err == io.EOF {
			return Packet{}, io.EOF
		}
		return Packet{}, errors.Wrap(err, "could not receive packet header")
	}

	n := binary.LittleEndian.Uint32(r.hdr)
	if n == 0 || n >= math.MaxInt32 {
		return Packet{}, errors.Errorf("corrupted packet (len=%d)", n)
	}

	raw := make([]byte, n)
	_, err = io.ReadFull(r.r, raw)
	if err != nil {
		return Packet{}, errors.Wrap(err, "could not receive packet body")
	}

	var pkt Packet
	err = pkt.UnmarshalBinary(raw)
	return pkt, err
}

var (
	_ Sink   = (*Writer)(nil)
	_ Source = (*Reader)(nil)
)
