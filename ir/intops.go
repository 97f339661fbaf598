// Copyright 2019 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ir

import (
	"github.com/twitchyliquid64/golang-asm/obj"
	"github.com/twitchyliquid64/golang-asm/obj/x86"
)

// IntBinOp names an integer binary operator. Widths are carried
// separately via the Type argument to CreateIntBinOp, matching bytecode's
// i32.* / i64.* operator pairs sharing identical semantics modulo width.
type IntBinOp int

const (
	Add IntBinOp = iota
	Sub
	Mul
	DivS
	DivU
	RemS
	RemU
	And
	Or
	Xor
	Shl
	ShrS
	ShrU
	Rotl
	Rotr
)

func widthOps(t Type) (add, sub, mul, and, or, xor, shl, sarOrShr, cmp, mov obj.As) {
	if t == I32 {
		return x86.AADDL, x86.ASUBL, x86.AMULL, x86.AANDL, x86.AORL, x86.AXORL, x86.ASHLL, x86.ASHRL, x86.ACMPL, x86.AMOVL
	}
	return x86.AADDQ, x86.ASUBQ, x86.AMULQ, x86.AANDQ, x86.AORQ, x86.AXORQ, x86.ASHLQ, x86.ASHRQ, x86.ACMPQ, x86.AMOVQ
}

// CreateIntBinOp emits op on two values of type t (I32 or I64), guarding
// division and remainder against a zero divisor (and, for signed
// division, the INT_MIN / -1 overflow case; signed remainder of INT_MIN
// by -1 yields 0 without trapping) by calling divTrap — the host's
// divide_by_zero_trap intrinsic — instead of letting the backend raise
// SIGFPE. Shift and rotate counts are masked to the operand width
// (5 bits for I32, 6 for I64) before use, matching bytecode's modular
// shift-count semantics.
func (b *Builder) CreateIntBinOp(op IntBinOp, t Type, divTrap CodePointer) Value {
	fn := b.fn
	add, sub, mul, and, or, xor, shl, shr, _, _ := widthOps(t)
	fn.popStack(x86.REG_CX) // rhs
	fn.popStack(x86.REG_AX) // lhs

	switch op {
	case Add:
		fn.emitRegReg(add, x86.REG_AX, x86.REG_CX)
	case Sub:
		fn.emitRegReg(sub, x86.REG_AX, x86.REG_CX)
	case Mul:
		fn.emitRegReg(mul, x86.REG_AX, x86.REG_CX)
	case And:
		fn.emitRegReg(and, x86.REG_AX, x86.REG_CX)
	case Or:
		fn.emitRegReg(or, x86.REG_AX, x86.REG_CX)
	case Xor:
		fn.emitRegReg(xor, x86.REG_AX, x86.REG_CX)
	case Shl, ShrS, ShrU:
		mask := int64(31)
		if t == I64 {
			mask = 63
		}
		fn.emitRegConst(x86.AANDQ, x86.REG_CX, mask)
		as := shl
		if op != Shl {
			as = shr
			if op == ShrS {
				if t == I32 {
					as = x86.ASARL
				} else {
					as = x86.ASARQ
				}
			}
		}
		fn.emitShiftByCL(as, x86.REG_AX)
	case Rotl, Rotr:
		mask := int64(31)
		if t == I64 {
			mask = 63
		}
		fn.emitRegConst(x86.AANDQ, x86.REG_CX, mask)
		as := x86.AROLQ
		if t == I32 {
			as = x86.AROLL
		}
		if op == Rotr {
			if t == I32 {
				as = x86.ARORL
			} else {
				as = x86.ARORQ
			}
		}
		fn.emitShiftByCL(as, x86.REG_AX)
	case DivS, DivU, RemS, RemU:
		fn.emitGuardedDivRem(op, t, divTrap)
	}

	fn.pushStack(x86.REG_AX)
	return Value{typ: t}
}

// emitShiftByCL emits `as reg, CL` — every shift/rotate form the reference
// backend issues takes its count from CL implicitly.
func (fn *Func) emitShiftByCL(as obj.As, reg int16) {
	p := fn.newProg()
	p.prog.As = as
	p.prog.To.Type = obj.TYPE_REG
	p.prog.To.Reg = reg
	p.prog.From.Type = obj.TYPE_REG
	p.prog.From.Reg = x86.REG_CX
	fn.emit(p)
}

// emitGuardedDivRem assumes lhs is in AX and rhs in CX. It traps via
// divTrap for a zero divisor. The signed forms additionally guard the
// INT_MIN / -1 pair, the other input combination IDIV faults on (#DE,
// quotient overflow): div_s traps through divTrap exactly like a zero
// divisor, while rem_s does not trap (its mathematical result, 0, never
// overflows) and is produced directly without executing IDIV at all.
func (fn *Func) emitGuardedDivRem(op IntBinOp, t Type, divTrap CodePointer) {
	_, _, _, _, _, _, _, _, cmp, mov := widthOps(t)

	zeroCheck := fn.newProg()
	zeroCheck.prog.As = cmp
	zeroCheck.prog.From.Type = obj.TYPE_REG
	zeroCheck.prog.From.Reg = x86.REG_CX
	zeroCheck.prog.To.Type = obj.TYPE_CONST
	zeroCheck.prog.To.Offset = 0
	fn.emit(zeroCheck)
	jne := fn.newProg()
	jne.prog.As = x86.AJNE
	jne.prog.To.Type = obj.TYPE_BRANCH
	fn.emit(jne)
	fn.loadCodePointerConst(divTrap, x86.REG_BX)
	callTrap := fn.newProg()
	callTrap.prog.As = obj.ACALL
	callTrap.prog.To.Type = obj.TYPE_REG
	callTrap.prog.To.Reg = x86.REG_BX
	fn.emit(callTrap)
	undef := fn.newProg()
	undef.prog.As = obj.AUNDEF
	fn.emit(undef)

	if op != DivS && op != RemS {
		xorDX := fn.newProg()
		xorDX.prog.As = x86.AXORQ
		xorDX.prog.To.Type = obj.TYPE_REG
		xorDX.prog.To.Reg = x86.REG_DX
		xorDX.prog.From.Type = obj.TYPE_REG
		xorDX.prog.From.Reg = x86.REG_DX
		fn.emit(xorDX)
		jne.prog.Pcond = xorDX.prog
		div := fn.newProg()
		if t == I32 {
			div.prog.As = x86.ADIVL
		} else {
			div.prog.As = x86.ADIVQ
		}
		div.prog.To.Type = obj.TYPE_REG
		div.prog.To.Reg = x86.REG_CX
		fn.emit(div)
		if op == RemU {
			fn.emitRegReg(mov, x86.REG_AX, x86.REG_DX)
		}
		return
	}

	intMin := int64(-1) << 31
	if t == I64 {
		intMin = int64(-1) << 63
	}
	rhsCheck := fn.newProg()
	rhsCheck.prog.As = cmp
	rhsCheck.prog.From.Type = obj.TYPE_REG
	rhsCheck.prog.From.Reg = x86.REG_CX
	rhsCheck.prog.To.Type = obj.TYPE_CONST
	rhsCheck.prog.To.Offset = -1
	fn.emit(rhsCheck)
	jne.prog.Pcond = rhsCheck.prog
	jneRhs := fn.newProg()
	jneRhs.prog.As = x86.AJNE
	jneRhs.prog.To.Type = obj.TYPE_BRANCH
	fn.emit(jneRhs)

	lhsCheck := fn.newProg()
	lhsCheck.prog.As = cmp
	lhsCheck.prog.From.Type = obj.TYPE_REG
	lhsCheck.prog.From.Reg = x86.REG_AX
	lhsCheck.prog.To.Type = obj.TYPE_CONST
	lhsCheck.prog.To.Offset = intMin
	fn.emit(lhsCheck)
	jneLhs := fn.newProg()
	jneLhs.prog.As = x86.AJNE
	jneLhs.prog.To.Type = obj.TYPE_BRANCH
	fn.emit(jneLhs)

	// Fallthrough from both checks: rhs == -1 and lhs == INT_MIN, the
	// overflow case.
	var skip *progNode
	if op == DivS {
		fn.loadCodePointerConst(divTrap, x86.REG_BX)
		callOverflowTrap := fn.newProg()
		callOverflowTrap.prog.As = obj.ACALL
		callOverflowTrap.prog.To.Type = obj.TYPE_REG
		callOverflowTrap.prog.To.Reg = x86.REG_BX
		fn.emit(callOverflowTrap)
		undefOverflow := fn.newProg()
		undefOverflow.prog.As = obj.AUNDEF
		fn.emit(undefOverflow)
	} else {
		fn.emitRegConst(x86.AMOVQ, x86.REG_AX, 0)
		skip = fn.newProg()
		skip.prog.As = obj.AJMP
		skip.prog.To.Type = obj.TYPE_BRANCH
		fn.emit(skip)
	}

	cdq := fn.newProg()
	jneRhs.prog.Pcond = cdq.prog
	jneLhs.prog.Pcond = cdq.prog
	if t == I32 {
		cdq.prog.As = x86.ACDQ
	} else {
		cdq.prog.As = x86.ACQO
	}
	fn.emit(cdq)
	idiv := fn.newProg()
	if t == I32 {
		idiv.prog.As = x86.AIDIVL
	} else {
		idiv.prog.As = x86.AIDIVQ
	}
	idiv.prog.To.Type = obj.TYPE_REG
	idiv.prog.To.Reg = x86.REG_CX
	fn.emit(idiv)
	if op == RemS {
		fn.emitRegReg(mov, x86.REG_AX, x86.REG_DX)
	}

	if skip != nil {
		tail := fn.newProg()
		tail.prog.As = obj.ANOP
		fn.emit(tail)
		skip.prog.Pcond = tail.prog
	}
}

// IntUnaryOp names an integer unary operator.
type IntUnaryOp int

const (
	Clz IntUnaryOp = iota
	Ctz
	Popcnt
	Eqz
)

// CreateIntUnaryOp emits op on the top of the runtime operand stack. Clz
// and Ctz of zero are defined (per bytecode semantics) as the operand
// width, which BSR/BSF do not produce directly; the lowering corrects
// for that with a conditional move keyed off BSR/BSF's documented
// undefined-on-zero-input flag behavior.
func (b *Builder) CreateIntUnaryOp(op IntUnaryOp, t Type) Value {
	fn := b.fn
	fn.popStack(x86.REG_AX)
	width := int64(32)
	if t == I64 {
		width = 64
	}

	switch op {
	case Popcnt:
		p := fn.newProg()
		p.prog.As = x86.APOPCNTQ
		if t == I32 {
			p.prog.As = x86.APOPCNTL
		}
		p.prog.To.Type = obj.TYPE_REG
		p.prog.To.Reg = x86.REG_AX
		p.prog.From.Type = obj.TYPE_REG
		p.prog.From.Reg = x86.REG_AX
		fn.emit(p)
	case Ctz:
		fn.emitBitScan(x86.ABSFQ, x86.ABSFL, t, width)
	case Clz:
		fn.emitBitScanReverse(t, width)
	case Eqz:
		fn.emitRegConst(x86.ACMPQ, x86.REG_AX, 0)
		fn.emitRegConst(x86.AMOVQ, x86.REG_AX, 0)
		sete := fn.newProg()
		sete.prog.As = x86.ASETEQ
		sete.prog.To.Type = obj.TYPE_REG
		sete.prog.To.Reg = x86.REG_AX
		fn.emit(sete)
	}
	fn.pushStack(x86.REG_AX)
	if op == Eqz {
		return Value{typ: I32}
	}
	return Value{typ: t}
}

func (fn *Func) emitBitScan(as64, as32 obj.As, t Type, width int64) {
	as := as64
	if t == I32 {
		as = as32
	}
	p := fn.newProg()
	p.prog.As = as
	p.prog.To.Type = obj.TYPE_REG
	p.prog.To.Reg = x86.REG_AX
	p.prog.From.Type = obj.TYPE_REG
	p.prog.From.Reg = x86.REG_AX
	fn.emit(p)
	// BSF leaves ZF=1 and an undefined result when the input is zero;
	// CMOVEQ corrects the result to the operand width in that case.
	fn.emitRegConst(x86.AMOVQ, x86.REG_CX, width)
	cmov := fn.newProg()
	cmov.prog.As = x86.ACMOVQEQ
	cmov.prog.To.Type = obj.TYPE_REG
	cmov.prog.To.Reg = x86.REG_AX
	cmov.prog.From.Type = obj.TYPE_REG
	cmov.prog.From.Reg = x86.REG_CX
	fn.emit(cmov)
}

func (fn *Func) emitBitScanReverse(t Type, width int64) {
	as := x86.ABSRQ
	if t == I32 {
		as = x86.ABSRL
	}
	p := fn.newProg()
	p.prog.As = as
	p.prog.To.Type = obj.TYPE_REG
	p.prog.To.Reg = x86.REG_AX
	p.prog.From.Type = obj.TYPE_REG
	p.prog.From.Reg = x86.REG_AX
	fn.emit(p)
	// BSR returns the index of the highest set bit; clz = width-1-index.
	// A zero input sets ZF, so AX is replaced by -1 (MOV leaves the flags
	// alone), which the SUB/NEG below turn into width.
	fn.emitRegConst(x86.AMOVQ, x86.REG_CX, -1)
	cmov := fn.newProg()
	cmov.prog.As = x86.ACMOVQEQ
	cmov.prog.To.Type = obj.TYPE_REG
	cmov.prog.To.Reg = x86.REG_AX
	cmov.prog.From.Type = obj.TYPE_REG
	cmov.prog.From.Reg = x86.REG_CX
	fn.emit(cmov)
	sub := fn.newProg()
	sub.prog.As = x86.ASUBQ
	sub.prog.To.Type = obj.TYPE_REG
	sub.prog.To.Reg = x86.REG_AX
	sub.prog.From.Type = obj.TYPE_CONST
	sub.prog.From.Offset = width - 1
	fn.emit(sub)
	neg := fn.newProg()
	neg.prog.As = x86.ANEGQ
	neg.prog.To.Type = obj.TYPE_REG
	neg.prog.To.Reg = x86.REG_AX
	fn.emit(neg)
}

// IntCmpOp names an integer comparison. Results are always an i32 0/1.
type IntCmpOp int

const (
	Eq IntCmpOp = iota
	Ne
	LtS
	LtU
	GtS
	GtU
	LeS
	LeU
	GeS
	GeU
)

var intCmpSetCC = map[IntCmpOp]obj.As{
	Eq:  x86.ASETEQ,
	Ne:  x86.ASETNE,
	LtS: x86.ASETLT,
	LtU: x86.ASETCS,
	GtS: x86.ASETGT,
	GtU: x86.ASETHI,
	LeS: x86.ASETLE,
	LeU: x86.ASETLS,
	GeS: x86.ASETGE,
	GeU: x86.ASETCC,
}

// CreateIntCmpOp pops two operands of type t and pushes an i32 0/1.
func (b *Builder) CreateIntCmpOp(op IntCmpOp, t Type) Value {
	fn := b.fn
	_, _, _, _, _, _, _, _, cmp, _ := widthOps(t)
	fn.popStack(x86.REG_CX)
	fn.popStack(x86.REG_AX)
	p := fn.newProg()
	p.prog.As = cmp
	p.prog.From.Type = obj.TYPE_REG
	p.prog.From.Reg = x86.REG_AX
	p.prog.To.Type = obj.TYPE_REG
	p.prog.To.Reg = x86.REG_CX
	fn.emit(p)
	fn.emitRegConst(x86.AMOVQ, x86.REG_AX, 0)
	set := fn.newProg()
	set.prog.As = intCmpSetCC[op]
	set.prog.To.Type = obj.TYPE_REG
	set.prog.To.Reg = x86.REG_AX
	fn.emit(set)
	fn.pushStack(x86.REG_AX)
	return Value{typ: I32}
}
