// Copyright 2019 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ir

import (
	"github.com/twitchyliquid64/golang-asm/obj"
	"github.com/twitchyliquid64/golang-asm/obj/x86"
)

// FloatBinOp names a floating-point binary operator directly realizable
// in SSE2; the transcendental and rounding operators are routed through
// hostabi intrinsics instead (see CreateFloatIntrinsicOp).
type FloatBinOp int

const (
	FAdd FloatBinOp = iota
	FSub
	FMul
	FDiv
)

func floatMovAndOp(t Type, op FloatBinOp) (mov, arith obj.As) {
	if t == F32 {
		mov = x86.AMOVL
		switch op {
		case FAdd:
			arith = x86.AADDSS
		case FSub:
			arith = x86.ASUBSS
		case FMul:
			arith = x86.AMULSS
		case FDiv:
			arith = x86.ADIVSS
		}
		return
	}
	mov = x86.AMOVQ
	switch op {
	case FAdd:
		arith = x86.AADDSD
	case FSub:
		arith = x86.ASUBSD
	case FMul:
		arith = x86.AMULSD
	case FDiv:
		arith = x86.ADIVSD
	}
	return
}

// CreateFloatBinOp pops two values of type t (F32 or F64, carried as raw
// bit patterns in general-purpose registers exactly like integers),
// moves them into XMM registers, performs op, and pushes the raw bit
// pattern of the result.
func (b *Builder) CreateFloatBinOp(op FloatBinOp, t Type) Value {
	fn := b.fn
	mov, arith := floatMovAndOp(t, op)
	fn.popStack(x86.REG_CX)
	fn.popStack(x86.REG_AX)
	fn.emitGPToXMM(mov, x86.REG_AX, x86.REG_X0)
	fn.emitGPToXMM(mov, x86.REG_CX, x86.REG_X1)
	p := fn.newProg()
	p.prog.As = arith
	p.prog.To.Type = obj.TYPE_REG
	p.prog.To.Reg = x86.REG_X0
	p.prog.From.Type = obj.TYPE_REG
	p.prog.From.Reg = x86.REG_X1
	fn.emit(p)
	fn.emitXMMToGP(mov, x86.REG_X0, x86.REG_AX)
	fn.pushStack(x86.REG_AX)
	return Value{typ: t}
}

func (fn *Func) emitGPToXMM(mov obj.As, gp, xmm int16) {
	p := fn.newProg()
	p.prog.As = mov
	p.prog.From.Type = obj.TYPE_REG
	p.prog.From.Reg = gp
	p.prog.To.Type = obj.TYPE_REG
	p.prog.To.Reg = xmm
	fn.emit(p)
}

func (fn *Func) emitXMMToGP(mov obj.As, xmm, gp int16) {
	p := fn.newProg()
	p.prog.As = mov
	p.prog.From.Type = obj.TYPE_REG
	p.prog.From.Reg = xmm
	p.prog.To.Type = obj.TYPE_REG
	p.prog.To.Reg = gp
	fn.emit(p)
}

// FloatCmpOp names a floating-point comparison. Per bytecode semantics
// every comparison against a NaN operand is false (and the NaN-aware
// UCOMISS/UCOMISD flags make that the natural outcome for all but the
// not-equal case, which the lowering must additionally OR with the
// parity flag — left to package jit, which has the block-splitting
// machinery to do so without an extra reserved register here).
type FloatCmpOp int

const (
	FEq FloatCmpOp = iota
	FNe
	FLt
	FGt
	FLe
	FGe
)

var floatCmpSetCC = map[FloatCmpOp]obj.As{
	FEq: x86.ASETEQ,
	FNe: x86.ASETNE,
	FLt: x86.ASETCS,
	FGt: x86.ASETHI,
	FLe: x86.ASETLS,
	FGe: x86.ASETCC,
}

// CreateFloatCmpOp pops two values of type t and pushes an i32 0/1.
func (b *Builder) CreateFloatCmpOp(op FloatCmpOp, t Type) Value {
	fn := b.fn
	mov := x86.AMOVQ
	ucomi := obj.As(x86.AUCOMISD)
	if t == F32 {
		mov = x86.AMOVL
		ucomi = x86.AUCOMISS
	}
	fn.popStack(x86.REG_CX)
	fn.popStack(x86.REG_AX)
	fn.emitGPToXMM(mov, x86.REG_AX, x86.REG_X0)
	fn.emitGPToXMM(mov, x86.REG_CX, x86.REG_X1)
	p := fn.newProg()
	p.prog.As = ucomi
	p.prog.From.Type = obj.TYPE_REG
	p.prog.From.Reg = x86.REG_X1
	p.prog.To.Type = obj.TYPE_REG
	p.prog.To.Reg = x86.REG_X0
	fn.emit(p)
	fn.emitRegConst(x86.AMOVQ, x86.REG_AX, 0)
	set := fn.newProg()
	set.prog.As = floatCmpSetCC[op]
	set.prog.To.Type = obj.TYPE_REG
	set.prog.To.Reg = x86.REG_AX
	fn.emit(set)
	fn.pushStack(x86.REG_AX)
	return Value{typ: I32}
}

// CreateFloatNeg flips the sign bit of the top-of-stack value of type t
// via an XOR mask, without routing through a host intrinsic — sign flip
// needs no rounding-mode or NaN-payload awareness.
func (b *Builder) CreateFloatNeg(t Type) Value {
	fn := b.fn
	fn.popStack(x86.REG_AX)
	mask := int64(1) << 63
	if t == F32 {
		mask = int64(1) << 31
	}
	fn.emitRegConst(x86.AMOVQ, x86.REG_CX, mask)
	fn.emitRegReg(x86.AXORQ, x86.REG_AX, x86.REG_CX)
	fn.pushStack(x86.REG_AX)
	return Value{typ: t}
}

// CreateFloatAbs clears the sign bit, the mirror of CreateFloatNeg.
func (b *Builder) CreateFloatAbs(t Type) Value {
	fn := b.fn
	fn.popStack(x86.REG_AX)
	mask := ^(int64(1) << 63)
	if t == F32 {
		mask = int64(^uint32(1 << 31))
	}
	fn.emitRegConst(x86.AMOVQ, x86.REG_CX, mask)
	fn.emitRegReg(x86.AANDQ, x86.REG_AX, x86.REG_CX)
	fn.pushStack(x86.REG_AX)
	return Value{typ: t}
}

// CreateFloatCopysign combines lhs's magnitude with rhs's sign bit, a
// bare bitwise operation needing no host intrinsic: AND lhs clear of its
// own sign bit, AND rhs down to just its sign bit, OR the two together.
func (b *Builder) CreateFloatCopysign(t Type) Value {
	fn := b.fn
	signMask := int64(1) << 63
	magMask := ^(int64(1) << 63)
	if t == F32 {
		signMask = int64(1) << 31
		magMask = int64(^uint32(1 << 31))
	}
	fn.popStack(x86.REG_CX) // rhs (sign source)
	fn.popStack(x86.REG_AX) // lhs (magnitude source)
	fn.emitRegConst(x86.AMOVQ, x86.REG_DX, signMask)
	fn.emitRegReg(x86.AANDQ, x86.REG_CX, x86.REG_DX)
	fn.emitRegConst(x86.AMOVQ, x86.REG_DX, magMask)
	fn.emitRegReg(x86.AANDQ, x86.REG_AX, x86.REG_DX)
	fn.emitRegReg(x86.AORQ, x86.REG_AX, x86.REG_CX)
	fn.pushStack(x86.REG_AX)
	return Value{typ: t}
}

// CreateFloatSqrt emits SQRTSS/SQRTSD directly; sqrt needs no host
// intrinsic, unlike the rounding family.
func (b *Builder) CreateFloatSqrt(t Type) Value {
	fn := b.fn
	mov, sqrt := x86.AMOVQ, obj.As(x86.ASQRTSD)
	if t == F32 {
		mov, sqrt = x86.AMOVL, x86.ASQRTSS
	}
	fn.popStack(x86.REG_AX)
	fn.emitGPToXMM(mov, x86.REG_AX, x86.REG_X0)
	p := fn.newProg()
	p.prog.As = sqrt
	p.prog.To.Type = obj.TYPE_REG
	p.prog.To.Reg = x86.REG_X0
	p.prog.From.Type = obj.TYPE_REG
	p.prog.From.Reg = x86.REG_X0
	fn.emit(p)
	fn.emitXMMToGP(mov, x86.REG_X0, x86.REG_AX)
	fn.pushStack(x86.REG_AX)
	return Value{typ: t}
}

// FloatIntrinsicOp names a floating-point operator routed through a host
// intrinsic rather than emitted inline: min/max (NaN-propagation and
// +-0 tie-breaking rules bytecode mandates and SSE2's MINSS/MAXSS get
// backwards) and the four IEEE rounding modes, which x86-64 has no
// single-instruction form for short of SSE4.1 ROUNDSD — assumed absent
// to keep the generated code portable across the AMD64 baseline.
type FloatIntrinsicOp int

const (
	FMin FloatIntrinsicOp = iota
	FMax
	FCeil
	FFloor
	FTrunc
	FNearest
)

// CreateFloatIntrinsicOp pops one or two operands of type t (FMin/FMax
// take two; the rounding ops take one) and calls the corresponding
// hostabi entry point, pushing its raw-bit-pattern result.
func (b *Builder) CreateFloatIntrinsicOp(op FloatIntrinsicOp, t Type, target CodePointer) Value {
	numArgs := 1
	if op == FMin || op == FMax {
		numArgs = 2
	}
	return b.emitIntrinsicCall(target, numArgs, t)
}
