// Copyright 2020 The go-daq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package log // import "github.com/go-daq/ad2/log"

import (
	"io"

	"gopkg.in/natefinch/lumberjack.v2"
)

// File is a size-rotated log file.
type File struct {
	lj *lumberjack.Logger
}

// NewRotatingFile creates a log file that is rotated once it reaches
// maxSize megabytes. At most maxBackups old files are kept.
func NewRotatingFile(fname string, maxSize, maxBackups int) *File {
	return &File{
		lj: &lumberjack.Logger{
			Filename:   fname,
			MaxSize:    maxSize,
			MaxBackups: maxBackups,
			Compress:   true,
		},
	}
}

func (f *File) Write(p []byte) (int, error) { return f.lj.Write(p) }

// Sync is a no-op: lumberjack does not buffer writes.
func (f *File) Sync() error { return nil }

// Rotate closes the current file and opens a new one.
func (f *File) Rotate() error { return f.lj.Rotate() }

func (f *File) Close() error { return f.lj.Close() }

var (
	_ WriteSyncer = (*File)(nil)
	_ io.Closer   = (*File)(nil)
)
