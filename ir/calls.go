// Copyright 2019 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ir

import (
	"github.com/twitchyliquid64/golang-asm/obj"
	"github.com/twitchyliquid64/golang-asm/obj/x86"
)

// CodePointer is a constant, resolved-at-module-construction native entry
// point: an imported function, a host intrinsic, or (for call_indirect) a
// value loaded at runtime from a table slot. ModuleContext (package jit)
// is the only place these are minted from real addresses; the facade
// only ever treats them as opaque 8-byte constants to load into a
// register and CALL through.
type CodePointer struct {
	// Addr is the resolved native address for a compile-time-constant
	// code pointer (imports, intrinsics, defined functions). Zero for a
	// runtime-resolved pointer (call_indirect's table slot read), which
	// instead arrives via CreateCallThroughRegister.
	Addr uint64
}

func (fn *Func) loadCodePointerConst(target CodePointer, reg int16) {
	fn.emitRegConst(x86.AMOVQ, reg, int64(target.Addr))
}

func (fn *Func) emitCall(reg int16) {
	p := fn.newProg()
	p.prog.As = obj.ACALL
	p.prog.To.Type = obj.TYPE_REG
	p.prog.To.Reg = reg
	fn.emit(p)
}

// emitIntrinsicCall pops numArgs values into argument registers (by
// convention RSI, RDX, RCX, R8, R9 — this facade never emits more than
// four-argument intrinsic calls, matching hostabi's signatures), calls
// target, and if resultType != None pushes RAX typed as resultType.
// Every result, float or int, is the raw bit pattern left in RAX:
// hostabi's intrinsics return float results via their bit pattern in
// RAX exactly as the rest of this facade carries floats.
func (b *Builder) emitIntrinsicCall(target CodePointer, numArgs int, resultType Type) Value {
	// argRegs' last slot (R9) doubles as regGlobals (frame.go); no call
	// through emitIntrinsicCall passes more than two arguments (the
	// three-argument signature-mismatch trap is called directly by
	// CreateCheckedTableLoad), so the two reservations never collide.
	argRegs := [...]int16{x86.REG_SI, x86.REG_DX, x86.REG_CX, x86.REG_R8, x86.REG_R9}
	fn := b.fn
	for i := numArgs - 1; i >= 0; i-- {
		fn.popStack(argRegs[i])
	}
	fn.loadCodePointerConst(target, x86.REG_AX)
	fn.emitCall(x86.REG_AX)
	if resultType != None {
		fn.pushStack(x86.REG_AX)
	}
	return Value{typ: resultType}
}

// CreateCall emits a direct call to target (an import or a sibling
// defined function), popping numArgs arguments and pushing a result of
// type resultType if resultType != None.
func (b *Builder) CreateCall(target CodePointer, numArgs int, resultType Type) Value {
	return b.emitIntrinsicCall(target, numArgs, resultType)
}

// CreateCallThroughRegister pops a code-pointer Value (already validated
// by the caller against the indirect-call table's type tag) off the
// runtime stack, pops numArgs arguments, calls through it, and pushes a
// result of resultType if non-None. Used exclusively by call_indirect.
func (b *Builder) CreateCallThroughRegister(numArgs int, resultType Type) Value {
	fn := b.fn
	argRegs := [...]int16{x86.REG_SI, x86.REG_DX, x86.REG_CX, x86.REG_R8, x86.REG_R9}
	fn.popStack(x86.REG_AX) // the code pointer, pushed by the caller just before this
	for i := numArgs - 1; i >= 0; i-- {
		fn.popStack(argRegs[i])
	}
	fn.emitCall(x86.REG_AX)
	if resultType != None {
		fn.pushStack(x86.REG_AX)
	}
	return Value{typ: resultType}
}

// CreateConstCodePointer pushes a constant code pointer onto the runtime
// operand stack, e.g. for an import's resolved address surfaced to
// bytecode that treats functions as first-class values, or for loading a
// table slot's code pointer ahead of CreateCallThroughRegister.
func (b *Builder) CreateConstCodePointer(ptr CodePointer) Value {
	b.fn.loadCodePointerConst(ptr, x86.REG_AX)
	b.fn.pushStack(x86.REG_AX)
	return Value{typ: I64}
}
