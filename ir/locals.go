// Copyright 2019 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ir

import "github.com/twitchyliquid64/golang-asm/obj/x86"

// CreateGetLocal loads local i and pushes it onto the runtime operand
// stack.
func (b *Builder) CreateGetLocal(i int, t Type) Value {
	b.fn.indexedLoad(regLocals, i, x86.REG_AX)
	b.fn.pushStack(x86.REG_AX)
	return Value{typ: t}
}

// CreateSetLocal pops the top of the runtime operand stack into local i.
func (b *Builder) CreateSetLocal(i int) {
	b.fn.popStack(x86.REG_AX)
	b.fn.indexedStore(regLocals, i, x86.REG_AX)
}

// CreateTeeLocal stores the top of the runtime operand stack into local i
// without popping it.
func (b *Builder) CreateTeeLocal(i int) {
	b.fn.peekStack(x86.REG_AX)
	b.fn.indexedStore(regLocals, i, x86.REG_AX)
}
