// Copyright 2019 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jit

import (
	"io/ioutil"
	"log"
	"os"
)

// PrintDebugInfo selects, at package init, whether this package's
// logger writes to stderr, following the same package-level switch as
// package wasm, package ir, and package calltable. The lowering code
// makes no logger calls, so nothing is printed either way.
var PrintDebugInfo = false

var logger *log.Logger

func init() {
	w := ioutil.Discard
	if PrintDebugInfo {
		w = os.Stderr
	}
	logger = log.New(w, "jit: ", log.Lshortfile)
}
