// Copyright 2019 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ir

import "github.com/twitchyliquid64/golang-asm/obj/x86"

// CreateGetGlobal loads global i and pushes it onto the runtime operand
// stack. Mirrors CreateGetLocal exactly, against the module-wide globals
// slice (regGlobals) rather than the per-call locals slice.
func (b *Builder) CreateGetGlobal(i int, t Type) Value {
	b.fn.indexedLoad(regGlobals, i, x86.REG_AX)
	b.fn.pushStack(x86.REG_AX)
	return Value{typ: t}
}

// CreateSetGlobal pops the top of the runtime operand stack into global i.
func (b *Builder) CreateSetGlobal(i int) {
	b.fn.popStack(x86.REG_AX)
	b.fn.indexedStore(regGlobals, i, x86.REG_AX)
}
