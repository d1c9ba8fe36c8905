// Copyright 2020 The go-daq Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package iomux provides goroutine safe I/O primitives shared by
// concurrent acquisitions.
package iomux // import "github.com/go-daq/ad2/internal/iomux"

import (
	"fmt"
	"io"
	"sync"
)

// Writer is a goroutine-safe io.Writer.
//
// Writer also implements the Sync method of log.WriteSyncer,
// forwarding it to the underlying writer when it has one.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (w *Writer) Write(p []byte) (int, error) {
	w.mu.Lock()
	n, err := w.w.Write(p)
	w.mu.Unlock()
	return n, err
}

func (w *Writer) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if s, ok := w.w.(interface{ Sync() error }); ok {
		return s.Sync()
	}
	return nil
}

// String returns the content written so far when the underlying
// writer is a fmt.Stringer, such as a bytes.Buffer.
func (w *Writer) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if s, ok := w.w.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%v", w.w)
}

var (
	_ io.Writer = (*Writer)(nil)
)
