// Copyright 2019 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ir

import (
	"github.com/twitchyliquid64/golang-asm/obj"
	"github.com/twitchyliquid64/golang-asm/obj/x86"
)

const regMemBase = x86.REG_R15

// MemImmediate carries a load/store's static alignment hint and byte
// offset, passed through from disasm.MemImmediate unchanged — the
// facade does not itself validate alignment (a misaligned access is
// merely slower on this backend, never unsafe, since every address is
// masked into the reserved region before dereference).
type MemImmediate struct {
	AlignLog2 uint32
	Offset    uint32
}

// coerceAddress masks the top-of-stack i32 address into the linear
// memory's reserved guard region: addr = (addr + imm.Offset) &
// (endOffset-1), a single AND against a power-of-two mask that makes an
// out-of-bounds access wrap harmlessly inside the guard pages rather
// than reach host memory, following the five-step address coercion this
// facade's backend-IR doc describes. endOffset must be a power of two
// (the indirect-call table and linear memory reservations both are, by
// construction of package calltable / the memory-growth path in package
// jit).
func (fn *Func) coerceAddress(reg int16, imm MemImmediate, endOffsetMask int64) {
	if imm.Offset != 0 {
		fn.emitRegConst(x86.AADDL, reg, int64(imm.Offset))
	}
	fn.emitRegConst(x86.AANDQ, reg, endOffsetMask)
}

// CreateLoad pops an i32 address, coerces it per coerceAddress, and
// pushes the width-bytes value loaded from memBase+address, zero- or
// sign-extended to t's width per signed.
func (b *Builder) CreateLoad(t Type, widthBytes int, signed bool, imm MemImmediate, endOffsetMask int64) Value {
	fn := b.fn
	fn.popStack(x86.REG_AX)
	fn.coerceAddress(x86.REG_AX, imm, endOffsetMask)
	p := fn.newProg()
	p.prog.As = loadOpcode(widthBytes, signed, t)
	p.prog.From.Type = obj.TYPE_MEM
	p.prog.From.Reg = regMemBase
	p.prog.From.Scale = 1
	p.prog.From.Index = x86.REG_AX
	p.prog.To.Type = obj.TYPE_REG
	p.prog.To.Reg = x86.REG_AX
	fn.emit(p)
	fn.pushStack(x86.REG_AX)
	return Value{typ: t}
}

func loadOpcode(widthBytes int, signed bool, t Type) obj.As {
	switch widthBytes {
	case 1:
		if signed {
			return x86.AMOVBQSX
		}
		return x86.AMOVBQZX
	case 2:
		if signed {
			return x86.AMOVWQSX
		}
		return x86.AMOVWQZX
	case 4:
		if signed {
			return x86.AMOVLQSX
		}
		return x86.AMOVLQZX
	default:
		if t == F32 {
			return x86.AMOVL
		}
		return x86.AMOVQ
	}
}

// CreateStore pops a value of type t and an i32 address (address popped
// second, matching bytecode's store operand order: address then value),
// coerces the address, and stores the low widthBytes of the value.
func (b *Builder) CreateStore(t Type, widthBytes int, imm MemImmediate, endOffsetMask int64) {
	fn := b.fn
	fn.popStack(x86.REG_CX) // value
	fn.popStack(x86.REG_AX) // address
	fn.coerceAddress(x86.REG_AX, imm, endOffsetMask)
	p := fn.newProg()
	p.prog.As = storeOpcode(widthBytes, t)
	p.prog.To.Type = obj.TYPE_MEM
	p.prog.To.Reg = regMemBase
	p.prog.To.Scale = 1
	p.prog.To.Index = x86.REG_AX
	p.prog.From.Type = obj.TYPE_REG
	p.prog.From.Reg = x86.REG_CX
	fn.emit(p)
}

func storeOpcode(widthBytes int, t Type) obj.As {
	switch widthBytes {
	case 1:
		return x86.AMOVB
	case 2:
		return x86.AMOVW
	case 4:
		return x86.AMOVL
	default:
		return x86.AMOVQ
	}
}

// CreateCurrentMemory and CreateGrowMemory are always routed through
// hostabi: GrowMemory mutates and CurrentMemory reads global, shared
// memory-bookkeeping state (commit size, guard-page remap) that this
// per-function facade has no access to and must not attempt to
// synchronize itself.

// CreateCurrentMemory pushes the memory's current size in page units.
func (b *Builder) CreateCurrentMemory(target CodePointer) Value {
	return b.emitIntrinsicCall(target, 0, I32)
}

// CreateGrowMemory pops a delta in page units and pushes the previous
// size, or -1 if the host intrinsic declined to grow.
func (b *Builder) CreateGrowMemory(target CodePointer) Value {
	return b.emitIntrinsicCall(target, 1, I32)
}
