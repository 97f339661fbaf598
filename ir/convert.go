// Copyright 2019 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ir

import (
	"github.com/twitchyliquid64/golang-asm/obj"
	"github.com/twitchyliquid64/golang-asm/obj/x86"
)

// ConvertOp names an inline, trap-free numeric conversion: width
// extension/truncation and bit reinterpretation. Float<->int conversions
// that can overflow or see a NaN/infinity input are routed through
// hostabi (CreateFloatToIntOp) instead, since they need a trap.
type ConvertOp int

const (
	// I32WrapI64 truncates the low 32 bits of an i64, a bare mask.
	I32WrapI64 ConvertOp = iota
	// I64ExtendI32S / I64ExtendI32U sign/zero-extend an i32 to i64.
	I64ExtendI32S
	I64ExtendI32U
	// F32DemoteF64 / F64PromoteF32 convert between float widths.
	F32DemoteF64
	F64PromoteF32
	// ReinterpretI32AsF32, ReinterpretF32AsI32, ReinterpretI64AsF64,
	// ReinterpretF64AsI64 are no-ops on this facade: every value is
	// already carried as a raw bit pattern, so reinterpretation only
	// changes the Value's reported Type.
	ReinterpretI32AsF32
	ReinterpretF32AsI32
	ReinterpretI64AsF64
	ReinterpretF64AsI64
)

var convertResultType = map[ConvertOp]Type{
	I32WrapI64:          I32,
	I64ExtendI32S:       I64,
	I64ExtendI32U:       I64,
	F32DemoteF64:        F32,
	F64PromoteF32:       F64,
	ReinterpretI32AsF32: F32,
	ReinterpretF32AsI32: I32,
	ReinterpretI64AsF64: F64,
	ReinterpretF64AsI64: I64,
}

// CreateConvert emits op on the top-of-stack value.
func (b *Builder) CreateConvert(op ConvertOp) Value {
	fn := b.fn
	fn.popStack(x86.REG_AX)
	switch op {
	case I32WrapI64:
		fn.emitRegConst(x86.AANDQ, x86.REG_AX, 0xFFFFFFFF)
	case I64ExtendI32S:
		p := fn.newProg()
		p.prog.As = x86.AMOVLQSX
		p.prog.From.Type = obj.TYPE_REG
		p.prog.From.Reg = x86.REG_AX
		p.prog.To.Type = obj.TYPE_REG
		p.prog.To.Reg = x86.REG_AX
		fn.emit(p)
	case I64ExtendI32U:
		fn.emitRegConst(x86.AANDQ, x86.REG_AX, 0xFFFFFFFF)
	case F32DemoteF64:
		fn.emitGPToXMM(x86.AMOVQ, x86.REG_AX, x86.REG_X0)
		cvt := fn.newProg()
		cvt.prog.As = x86.ACVTSD2SS
		cvt.prog.From.Type = obj.TYPE_REG
		cvt.prog.From.Reg = x86.REG_X0
		cvt.prog.To.Type = obj.TYPE_REG
		cvt.prog.To.Reg = x86.REG_X0
		fn.emit(cvt)
		fn.emitXMMToGP(x86.AMOVL, x86.REG_X0, x86.REG_AX)
	case F64PromoteF32:
		fn.emitGPToXMM(x86.AMOVL, x86.REG_AX, x86.REG_X0)
		cvt := fn.newProg()
		cvt.prog.As = x86.ACVTSS2SD
		cvt.prog.From.Type = obj.TYPE_REG
		cvt.prog.From.Reg = x86.REG_X0
		cvt.prog.To.Type = obj.TYPE_REG
		cvt.prog.To.Reg = x86.REG_X0
		fn.emit(cvt)
		fn.emitXMMToGP(x86.AMOVQ, x86.REG_X0, x86.REG_AX)
	case ReinterpretI32AsF32, ReinterpretF32AsI32, ReinterpretI64AsF64, ReinterpretF64AsI64:
		// bit pattern unchanged; only the reported type changes.
	}
	fn.pushStack(x86.REG_AX)
	return Value{typ: convertResultType[op]}
}

// SignedOrUnsigned distinguishes the two float->int conversion families;
// bytecode's *_s and *_u variants trap identically on NaN/out-of-range
// input but differ in how the host intrinsic saturates/reinterprets.
type SignedOrUnsigned int

const (
	Signed SignedOrUnsigned = iota
	Unsigned
)

// CreateFloatToIntOp converts the top-of-stack float of type from to an
// integer of type to, trapping via target (hostabi's
// float_to_{signed,unsigned}_int_trap) if the value is NaN or outside
// the target type's representable range, per bytecode's documented
// trapping conversion semantics. The intrinsic receives the float's raw
// bits and a 0/1 flag that is 1 when from is F64.
func (b *Builder) CreateFloatToIntOp(from, to Type, sign SignedOrUnsigned, target CodePointer) Value {
	var isF64 uint64
	if from == F64 {
		isF64 = 1
	}
	b.CreateConst(I32, isF64)
	return b.emitIntrinsicCall(target, 2, to)
}

// CreateIntToFloatOp converts the top-of-stack integer of type from to a
// float of type to. Unlike the reverse direction this never traps, but
// still needs host help for the unsigned-to-float case (CVTSI2SD treats
// its source as signed), so it is routed uniformly through a host
// intrinsic as well.
func (b *Builder) CreateIntToFloatOp(from, to Type, sign SignedOrUnsigned, target CodePointer) Value {
	return b.emitIntrinsicCall(target, 1, to)
}
