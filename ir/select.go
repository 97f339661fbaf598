// Copyright 2019 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ir

import (
	"github.com/twitchyliquid64/golang-asm/obj"
	"github.com/twitchyliquid64/golang-asm/obj/x86"
)

// CreateSelect pops a condition, then the false-branch value, then the
// true-branch value (bytecode's documented operand order for `select`),
// and pushes whichever value the non-zero-ness of the condition picks,
// via a conditional move rather than a branch — select has no side
// effect on either side worth skipping.
func (b *Builder) CreateSelect(t Type) Value {
	fn := b.fn
	fn.popStack(x86.REG_CX)   // condition
	fn.popStack(x86.REG_DX)   // false value
	fn.popStack(x86.REG_AX)   // true value
	fn.emitRegConst(x86.ACMPQ, x86.REG_CX, 0)
	p := fn.newProg()
	p.prog.As = obj.As(x86.ACMOVQEQ)
	p.prog.To.Type = obj.TYPE_REG
	p.prog.To.Reg = x86.REG_AX
	p.prog.From.Type = obj.TYPE_REG
	p.prog.From.Reg = x86.REG_DX
	fn.emit(p)
	fn.pushStack(x86.REG_AX)
	return Value{typ: t}
}
