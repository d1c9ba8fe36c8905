// Copyright 2020 The go-daq Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package session // import "github.com/go-daq/ad2/session"

import (
	"bytes"
	"encoding/binary"
	"io"
	"time"

	"github.com/pkg/errors"
)

type encoder struct {
	w   io.Writer
	err error

	buf []byte
}

func newEncoder(w io.Writer) *encoder {
	return &encoder{w: w, buf: make([]byte, 8)}
}

func (enc *encoder) writeU8(v uint8) {
	if enc.err != nil {
		return
	}
	enc.buf[0] = v
	_, enc.err = enc.w.Write(enc.buf[:1])
}

func (enc *encoder) writeU32(v uint32) {
	if enc.err != nil {
		return
	}
	binary.LittleEndian.PutUint32(enc.buf[:4], v)
	_, enc.err = enc.w.Write(enc.buf[:4])
}

func (enc *encoder) writeU64(v uint64) {
	if enc.err != nil {
		return
	}
	binary.LittleEndian.PutUint64(enc.buf[:8], v)
	_, enc.err = enc.w.Write(enc.buf[:8])
}

func (enc *encoder) writeI64(v int64) {
	enc.writeU64(uint64(v))
}

func (enc *encoder) writeStr(v string) {
	enc.writeU32(uint32(len(v)))
	if enc.err != nil {
		return
	}
	_, enc.err = io.WriteString(enc.w, v)
}

func (enc *encoder) writeBytes(p []byte) {
	enc.writeU32(uint32(len(p)))
	if enc.err != nil {
		return
	}
	_, enc.err = enc.w.Write(p)
}

type decoder struct {
	r   io.Reader
	err error
	buf []byte
}

func newDecoder(r io.Reader) *decoder {
	return &decoder{r: r, buf: make([]byte, 8)}
}

func (dec *decoder) load(n int) {
	if dec.err != nil {
		copy(dec.buf, []byte{0, 0, 0, 0, 0, 0, 0, 0})
		return
	}
	_, dec.err = io.ReadFull(dec.r, dec.buf[:n])
}

func (dec *decoder) readU8() uint8 {
	dec.load(1)
	return dec.buf[0]
}

func (dec *decoder) readU32() uint32 {
	dec.load(4)
	return binary.LittleEndian.Uint32(dec.buf[:4])
}

func (dec *decoder) readU64() uint64 {
	dec.load(8)
	return binary.LittleEndian.Uint64(dec.buf[:8])
}

func (dec *decoder) readI64() int64 {
	return int64(dec.readU64())
}

func (dec *decoder) readBytes() []byte {
	n := dec.readU32()
	if n == 0 || dec.err != nil {
		return nil
	}
	p := make([]byte, n)
	_, dec.err = io.ReadFull(dec.r, p)
	return p
}

func (dec *decoder) readStr() string {
	return string(dec.readBytes())
}

// MarshalBinary encodes the packet: a kind byte followed by a kind-specific body.
func (pkt Packet) MarshalBinary() ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := newEncoder(buf)
	enc.writeU8(uint8(pkt.Kind))
	switch pkt.Kind {
	case KindHeader:
		if pkt.Header == nil {
			return nil, errors.New("session: header packet without header")
		}
		enc.writeStr(pkt.Header.Device)
		enc.writeU64(pkt.Header.SampleRate)
		enc.writeI64(pkt.Header.Start.UnixNano())
	case KindLogic:
		if pkt.Logic == nil {
			return nil, errors.New("session: logic packet without payload")
		}
		if pkt.Logic.Length != len(pkt.Logic.Data) {
			return nil, errors.Errorf(
				"session: logic packet length mismatch (len=%d, data=%d)",
				pkt.Logic.Length, len(pkt.Logic.Data),
			)
		}
		enc.writeU8(uint8(pkt.Logic.UnitSize))
		enc.writeBytes(pkt.Logic.Data)
	case KindEnd:
		// no body.
	default:
		return nil, errors.Errorf("session: invalid packet kind %v", pkt.Kind)
	}
	return buf.Bytes(), enc.err
}

// UnmarshalBinary decodes a packet encoded with MarshalBinary.
func (pkt *Packet) UnmarshalBinary(p []byte) error {
	dec := newDecoder(bytes.NewReader(p))
	*pkt = Packet{Kind: Kind(dec.readU8())}
	switch pkt.Kind {
	case KindHeader:
		var hdr Header
		hdr.Device = dec.readStr()
		hdr.SampleRate = dec.readU64()
		hdr.Start = time.Unix(0, dec.readI64())
		pkt.Header = &hdr
	case KindLogic:
		unit := int(dec.readU8())
		data := dec.readBytes()
		pkt.Logic = &Logic{Length: len(data), UnitSize: unit, Data: data}
	case KindEnd:
	default:
		if dec.err == nil {
			return errors.Errorf("session: invalid packet kind %v", pkt.Kind)
		}
	}
	return errors.Wrap(dec.err, "session: could not decode packet")
}
