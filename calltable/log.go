// Copyright 2019 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package calltable

import (
	"io/ioutil"
	"log"
	"os"
)

// PrintDebugInfo controls whether this package logs table growth and
// shrink events, following the same package-level debug switch as
// package wasm and package ir.
var PrintDebugInfo = false

var logger *log.Logger

func init() {
	w := ioutil.Discard
	if PrintDebugInfo {
		w = os.Stderr
	}
	logger = log.New(w, "calltable: ", log.Lshortfile)
}
