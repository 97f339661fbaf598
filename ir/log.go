// Copyright 2019 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ir

import (
	"io/ioutil"
	"log"
	"os"
)

// PrintDebugInfo gates the package's diagnostic logging, off by default
// following the rest of the module's logging convention.
var PrintDebugInfo = false

var logger *log.Logger

func init() {
	w := ioutil.Discard
	if PrintDebugInfo {
		w = os.Stderr
	}
	logger = log.New(w, "ir: ", log.Lshortfile)
}
