// Copyright 2020 The go-daq Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build dwf
// +build dwf

package dwf // import "github.com/go-daq/ad2/dwf"

// #cgo LDFLAGS: -ldwf
// #include <stdbool.h>
// #include <digilent/waveforms/dwf.h>
import "C"

import (
	"unsafe"

	"golang.org/x/xerrors"
)

// SDK returns the Library backed by the WaveForms shared library.
func SDK() (Library, error) {
	return sdk{}, nil
}

type sdk struct{}

func lastError() error {
	var msg [512]C.char
	C.FDwfGetLastErrorMsg(&msg[0])
	return xerrors.Errorf("dwf: %s", C.GoString(&msg[0]))
}

func ok(rc C.int) error {
	if rc != 0 {
		return nil
	}
	return lastError()
}

func cbool(v bool) C.int {
	if v {
		return 1
	}
	return 0
}

func (sdk) Enum() (int, error) {
	var n C.int
	err := ok(C.FDwfEnum(C.enumfilterAll, &n))
	return int(n), err
}

func (sdk) DeviceName(i int) (string, error) {
	var name [32]C.char
	err := ok(C.FDwfEnumDeviceName(C.int(i), &name[0]))
	return C.GoString(&name[0]), err
}

func (sdk) SerialNumber(i int) (string, error) {
	var sn [32]C.char
	err := ok(C.FDwfEnumSN(C.int(i), &sn[0]))
	return C.GoString(&sn[0]), err
}

func (sdk) Version() (string, error) {
	var vers [32]C.char
	err := ok(C.FDwfGetVersion(&vers[0]))
	return C.GoString(&vers[0]), err
}

func (sdk) Open(i int) (Handle, error) {
	var hdwf C.HDWF
	err := ok(C.FDwfDeviceOpen(C.int(i), &hdwf))
	if err != nil {
		return nil, xerrors.Errorf("could not open device #%d: %w", i, err)
	}
	return &handle{hdwf: hdwf}, nil
}

type handle struct {
	hdwf C.HDWF
}

func (h *handle) AcquisitionModeSet(mode AcqMode) error {
	return ok(C.FDwfDigitalInAcquisitionModeSet(h.hdwf, C.ACQMODE(mode)))
}

func (h *handle) DividerSet(div uint32) error {
	return ok(C.FDwfDigitalInDividerSet(h.hdwf, C.uint(div)))
}

func (h *handle) SampleFormatSet(bits int) error {
	return ok(C.FDwfDigitalInSampleFormatSet(h.hdwf, C.int(bits)))
}

func (h *handle) TriggerPositionSet(n uint32) error {
	return ok(C.FDwfDigitalInTriggerPositionSet(h.hdwf, C.uint(n)))
}

func (h *handle) TriggerSourceSet(src TrigSrc) error {
	return ok(C.FDwfDigitalInTriggerSourceSet(h.hdwf, C.TRIGSRC(src)))
}

func (h *handle) TriggerSet(low, high, rise, fall uint32) error {
	return ok(C.FDwfDigitalInTriggerSet(h.hdwf, C.uint(low), C.uint(high), C.uint(rise), C.uint(fall)))
}

func (h *handle) Configure(reconfigure, start bool) error {
	return ok(C.FDwfDigitalInConfigure(h.hdwf, cbool(reconfigure), cbool(start)))
}

func (h *handle) StatusRecord() (avail, lost, corrupt int, err error) {
	var a, l, c C.int
	err = ok(C.FDwfDigitalInStatusRecord(h.hdwf, &a, &l, &c))
	return int(a), int(l), int(c), err
}

func (h *handle) Status(read bool) (State, error) {
	var sts C.DwfState
	err := ok(C.FDwfDigitalInStatus(h.hdwf, cbool(read), &sts))
	return State(sts), err
}

func (h *handle) StatusData(buf []byte) error {
	if len(buf) == 0 {
		return nil
	}
	return ok(C.FDwfDigitalInStatusData(h.hdwf, unsafe.Pointer(&buf[0]), C.int(len(buf))))
}

func (h *handle) Close() error {
	return ok(C.FDwfDeviceClose(h.hdwf))
}

var (
	_ Library = (*sdk)(nil)
	_ Handle  = (*handle)(nil)
)
