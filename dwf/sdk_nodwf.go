// Copyright 2020 The go-daq Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !dwf
// +build !dwf

package dwf // import "github.com/go-daq/ad2/dwf"

import "golang.org/x/xerrors"

// ErrNoSDK is returned by SDK when the package was built without the "dwf" tag.
var ErrNoSDK = xerrors.New("dwf: WaveForms SDK support not compiled in (build with -tags dwf)")

// SDK returns the Library backed by the WaveForms shared library.
func SDK() (Library, error) {
	return nil, ErrNoSDK
}
