// Copyright 2020 The go-daq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package log provides routines for logging messages.
package log // import "github.com/go-daq/ad2/log"

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/xerrors"
)

// Level regulates the verbosity level of a component.
type Level int

// Default verbosity levels.
const (
	LvlSpew    Level = -20 // LvlSpew defines the SPEW verbosity level
	LvlDebug   Level = -10 // LvlDebug defines the DBG verbosity level
	LvlInfo    Level = 0   // LvlInfo defines the INFO verbosity level
	LvlWarning Level = 10  // LvlWarning defines the WARN verbosity level
	LvlError   Level = 20  // LvlError defines the ERR verbosity level
)

func (lvl Level) msgstring() string {
	switch lvl {
	case LvlSpew:
		return "SPEW"
	case LvlDebug:
		return "DBG "
	case LvlInfo:
		return "INFO"
	case LvlWarning:
		return "WARN"
	case LvlError:
		return "ERR "
	}
	panic(xerrors.Errorf("log: invalid log.Level value [%d]", int(lvl)))
}

// String prints the human-readable representation of a Level value.
func (lvl Level) String() string {
	switch lvl {
	case LvlSpew:
		return "SPEW"
	case LvlDebug:
		return "DEBUG"
	case LvlInfo:
		return "INFO"
	case LvlWarning:
		return "WARN"
	case LvlError:
		return "ERROR"
	}
	panic(xerrors.Errorf("log: invalid log.Level value [%d]", int(lvl)))
}

// ParseLevel parses a verbosity level from its name or its integer value.
func ParseLevel(v string) (Level, error) {
	v = strings.ToLower(v)
	switch {
	case strings.HasPrefix(v, "spew"):
		return LvlSpew, nil
	case strings.HasPrefix(v, "dbg"), strings.HasPrefix(v, "debug"):
		return LvlDebug, nil
	case strings.HasPrefix(v, "info"):
		return LvlInfo, nil
	case strings.HasPrefix(v, "warn"):
		return LvlWarning, nil
	case strings.HasPrefix(v, "err"):
		return LvlError, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, xerrors.Errorf("log: unknown level value %q: %w", v, err)
	}
	return Level(i), nil
}

// UnmarshalText implements encoding.TextUnmarshaler, so levels can be
// read from configuration files.
func (lvl *Level) UnmarshalText(p []byte) error {
	v, err := ParseLevel(string(p))
	if err != nil {
		return err
	}
	*lvl = v
	return nil
}

// MsgStream provides access to verbosity-defined formated messages, a la fmt.Printf.
type MsgStream interface {
	Spewf(format string, a ...interface{}) (int, error)
	Debugf(format string, a ...interface{}) (int, error)
	Infof(format string, a ...interface{}) (int, error)
	Warnf(format string, a ...interface{}) (int, error)
	Errorf(format string, a ...interface{}) (int, error)

	Msg(lvl Level, format string, a ...interface{}) (int, error)
}

// WriteSyncer is an io.Writer which can be sync'ed/flushed.
type WriteSyncer interface {
	io.Writer
	Sync() error
}

type msgstream struct {
	lvl Level
	w   WriteSyncer
	n   string
}

var (
	Default MsgStream = newMsgStream("ad2", LvlInfo, os.Stdout)

	// Discard is a MsgStream that drops every message.
	Discard MsgStream = discard{}
)

// Debugf displays a (formated) DBG message
func Debugf(format string, a ...interface{}) (int, error) {
	return Default.Debugf(format, a...)
}

// Infof displays a (formated) INFO message
func Infof(format string, a ...interface{}) (int, error) {
	return Default.Infof(format, a...)
}

// Warnf displays a (formated) WARN message
func Warnf(format string, a ...interface{}) (int, error) {
	return Default.Warnf(format, a...)
}

// Errorf displays a (formated) ERR message
func Errorf(format string, a ...interface{}) (int, error) {
	return Default.Errorf(format, a...)
}

// Fatalf displays a (formated) ERR message and exits the process.
func Fatalf(format string, a ...interface{}) {
	Default.Errorf(format, a...)
	os.Exit(1)
}

// NewMsgStream creates a new MsgStream value with name name and minimum
// verbosity level lvl.
// This MsgStream will print messages into w.
func NewMsgStream(name string, lvl Level, w io.Writer) MsgStream {
	return newMsgStream(name, lvl, w)
}

func newMsgStream(name string, lvl Level, w io.Writer) msgstream {
	var ws WriteSyncer
	switch w := w.(type) {
	case nil:
		ws = os.Stdout
	case WriteSyncer:
		ws = w
	default:
		ws = nopSyncer{w}
	}

	return msgstream{
		lvl: lvl,
		w:   ws,
		n:   fmt.Sprintf("%-20s ", name),
	}
}

// Spewf displays a (formated) SPEW message
func (msg msgstream) Spewf(format string, a ...interface{}) (int, error) {
	return msg.Msg(LvlSpew, format, a...)
}

// Debugf displays a (formated) DBG message
func (msg msgstream) Debugf(format string, a ...interface{}) (int, error) {
	return msg.Msg(LvlDebug, format, a...)
}

// Infof displays a (formated) INFO message
func (msg msgstream) Infof(format string, a ...interface{}) (int, error) {
	return msg.Msg(LvlInfo, format, a...)
}

// Warnf displays a (formated) WARN message
func (msg msgstream) Warnf(format string, a ...interface{}) (int, error) {
	defer msg.flush()
	return msg.Msg(LvlWarning, format, a...)
}

// Errorf displays a (formated) ERR message
func (msg msgstream) Errorf(format string, a ...interface{}) (int, error) {
	defer msg.flush()
	return msg.Msg(LvlError, format, a...)
}

// Msg displays a (formated) message with level lvl.
func (msg msgstream) Msg(lvl Level, format string, a ...interface{}) (int, error) {
	if lvl < msg.lvl {
		return 0, nil
	}
	eol := ""
	if !strings.HasSuffix(format, "\n") {
		eol = "\n"
	}
	format = msg.n + lvl.msgstring() + " " + format + eol
	return fmt.Fprintf(msg.w, format, a...)
}

func (msg msgstream) flush() error {
	return msg.w.Sync()
}

type nopSyncer struct {
	io.Writer
}

func (nopSyncer) Sync() error { return nil }

type discard struct{}

func (discard) Spewf(string, ...interface{}) (int, error)      { return 0, nil }
func (discard) Debugf(string, ...interface{}) (int, error)     { return 0, nil }
func (discard) Infof(string, ...interface{}) (int, error)      { return 0, nil }
func (discard) Warnf(string, ...interface{}) (int, error)      { return 0, nil }
func (discard) Errorf(string, ...interface{}) (int, error)     { return 0, nil }
func (discard) Msg(Level, string, ...interface{}) (int, error) { return 0, nil }
