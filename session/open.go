// Copyright 2020 The go-daq Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package session // import "github.com/go-daq/ad2/session"

import (
	"bufio"
	"context"
	"os"
	"strings"

	"golang.org/x/xerrors"
)

// SinkCloser is a Sink that must be closed once the session is over.
type SinkCloser interface {
	Sink
	Close() error
}

// SourceCloser is a Source that must be closed once consumed.
type SourceCloser interface {
	Source
	Close() error
}

// Create creates a sink for addr.
// Socket end-points (tcp://, ipc://, unix://) are served by a PUB socket,
// anything else names a file, optionally prefixed with file://.
func Create(addr string) (SinkCloser, error) {
	if IsSocketAddr(addr) {
		return NewPub(addr)
	}

	f, err := os.Create(strings.TrimPrefix(addr, "file://"))
	if err != nil {
		return nil, xerrors.Errorf("session: could not create output file: %w", err)
	}
	buf := bufio.NewWriter(f)
	return &fileSink{Writer: NewWriter(buf), f: f, buf: buf}, nil
}

// Open opens a source for addr, the counterpart of Create.
func Open(addr string) (SourceCloser, error) {
	if IsSocketAddr(addr) {
		return NewSub(addr)
	}

	f, err := os.Open(strings.TrimPrefix(addr, "file://"))
	if err != nil {
		return nil, xerrors.Errorf("session: could not open input file: %w", err)
	}
	return &fileSource{Reader: NewReader(bufio.NewReader(f)), f: f}, nil
}

type fileSink struct {
	*Writer
	f   *os.File
	buf *bufio.Writer
}

func (fs *fileSink) Send(ctx context.Context, pkt Packet) error {
	err := fs.Writer.Send(ctx, pkt)
	if err != nil {
		return err
	}
	if pkt.Kind == KindEnd {
		return fs.buf.Flush()
	}
	return nil
}

func (fs *fileSink) Close() error {
	err := fs.buf.Flush()
	if err != nil {
		_ = fs.f.Close()
		return xerrors.Errorf("session: could not flush output file: %w", err)
	}
	err = fs.f.Close()
	if err != nil {
		return xerrors.Errorf("session: could not close output file: %w", err)
	}
	return nil
}

type fileSource struct {
	*Reader
	f *os.File
}

func (fs *fileSource) Close() error {
	return fs.f.Close()
}

var (
	_ SinkCloser   = (*fileSink)(nil)
	_ SourceCloser = (*fileSource)(nil)
	_ SinkCloser   = (*Pub)(nil)
	_ SourceCloser = (*Sub)(nil)
)
