// Copyright 2019 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ir

import "github.com/twitchyliquid64/golang-asm/obj/x86"

// CreateConst pushes a literal of type t holding the raw bit pattern
// bits onto the runtime operand stack. Callers pass math.Float64bits(f)
// or math.Float32bits(f) (zero-extended) for float literals, exactly as
// the reference interpreter's execution stack carries floats.
func (b *Builder) CreateConst(t Type, bits uint64) Const {
	b.fn.emitRegConst(x86.AMOVQ, x86.REG_AX, int64(bits))
	b.fn.pushStack(x86.REG_AX)
	return Const{Value: Value{typ: t}, Bits: bits}
}
