// Copyright 2019 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jit

import (
	"math"

	"github.com/go-interpreter/wagon-jit/disasm"
	"github.com/go-interpreter/wagon-jit/ir"
	ops "github.com/go-interpreter/wagon-jit/wasm/operators"
)

func float32bits(f float32) uint32 { return math.Float32bits(f) }
func float64bits(f float64) uint64 { return math.Float64bits(f) }

// numericHandler lowers one fully-self-describing numeric operator
// (no immediates, fixed arity from the opcode alone): every
// arithmetic/comparison/bit-intrinsic/float operator.
type numericHandler func(l *lowering) error

func intBinHandler(op ir.IntBinOp, t ir.Type) numericHandler {
	return func(l *lowering) error {
		l.fs.pop()
		l.fs.pop()
		if !l.fs.unreachable {
			l.b.CreateIntBinOp(op, t, l.mc.Intrinsics.DivideByZeroTrap)
		}
		l.fs.push(t)
		return nil
	}
}

func intCmpHandler(op ir.IntCmpOp, t ir.Type) numericHandler {
	return func(l *lowering) error {
		l.fs.pop()
		l.fs.pop()
		if !l.fs.unreachable {
			l.b.CreateIntCmpOp(op, t)
		}
		l.fs.push(ir.I32)
		return nil
	}
}

func intUnaryHandler(op ir.IntUnaryOp, t ir.Type, resultI32 bool) numericHandler {
	return func(l *lowering) error {
		l.fs.pop()
		if !l.fs.unreachable {
			l.b.CreateIntUnaryOp(op, t)
		}
		if resultI32 {
			l.fs.push(ir.I32)
		} else {
			l.fs.push(t)
		}
		return nil
	}
}

func floatCopysignHandler(t ir.Type) numericHandler {
	return func(l *lowering) error {
		l.fs.pop()
		l.fs.pop()
		if !l.fs.unreachable {
			l.b.CreateFloatCopysign(t)
		}
		l.fs.push(t)
		return nil
	}
}

func floatBinHandler(op ir.FloatBinOp, t ir.Type) numericHandler {
	return func(l *lowering) error {
		l.fs.pop()
		l.fs.pop()
		if !l.fs.unreachable {
			l.b.CreateFloatBinOp(op, t)
		}
		l.fs.push(t)
		return nil
	}
}

func floatCmpHandler(op ir.FloatCmpOp, t ir.Type) numericHandler {
	return func(l *lowering) error {
		l.fs.pop()
		l.fs.pop()
		if !l.fs.unreachable {
			l.b.CreateFloatCmpOp(op, t)
		}
		l.fs.push(ir.I32)
		return nil
	}
}

func floatUnaryHandler(kind int, t ir.Type, target func(mc *ModuleContext) ir.CodePointer) numericHandler {
	const (
		kNeg = iota
		kAbs
		kSqrt
		kCeil
		kFloor
		kTrunc
		kNearest
	)
	return func(l *lowering) error {
		l.fs.pop()
		if !l.fs.unreachable {
			switch kind {
			case kNeg:
				l.b.CreateFloatNeg(t)
			case kAbs:
				l.b.CreateFloatAbs(t)
			case kSqrt:
				l.b.CreateFloatSqrt(t)
			case kCeil:
				l.b.CreateFloatIntrinsicOp(ir.FCeil, t, target(l.mc))
			case kFloor:
				l.b.CreateFloatIntrinsicOp(ir.FFloor, t, target(l.mc))
			case kTrunc:
				l.b.CreateFloatIntrinsicOp(ir.FTrunc, t, target(l.mc))
			case kNearest:
				l.b.CreateFloatIntrinsicOp(ir.FNearest, t, target(l.mc))
			}
		}
		l.fs.push(t)
		return nil
	}
}

func floatMinMaxHandler(op ir.FloatIntrinsicOp, t ir.Type, target func(mc *ModuleContext) ir.CodePointer) numericHandler {
	return func(l *lowering) error {
		l.fs.pop()
		l.fs.pop()
		if !l.fs.unreachable {
			l.b.CreateFloatIntrinsicOp(op, t, target(l.mc))
		}
		l.fs.push(t)
		return nil
	}
}

func convertHandler(op ir.ConvertOp, resultType ir.Type) numericHandler {
	return func(l *lowering) error {
		l.fs.pop()
		if !l.fs.unreachable {
			l.b.CreateConvert(op)
		}
		l.fs.push(resultType)
		return nil
	}
}

func floatToIntHandler(from, to ir.Type, sign ir.SignedOrUnsigned, target func(mc *ModuleContext) ir.CodePointer) numericHandler {
	return func(l *lowering) error {
		l.fs.pop()
		if !l.fs.unreachable {
			l.b.CreateFloatToIntOp(from, to, sign, target(l.mc))
		}
		l.fs.push(to)
		return nil
	}
}

func intToFloatHandler(from, to ir.Type, sign ir.SignedOrUnsigned, target func(mc *ModuleContext) ir.CodePointer) numericHandler {
	return func(l *lowering) error {
		l.fs.pop()
		if !l.fs.unreachable {
			l.b.CreateIntToFloatOp(from, to, sign, target(l.mc))
		}
		l.fs.push(to)
		return nil
	}
}

var numericHandlers = map[byte]numericHandler{
	ops.I32Eqz: intUnaryHandler(ir.Eqz, ir.I32, true),
	ops.I64Eqz: intUnaryHandler(ir.Eqz, ir.I64, true),

	ops.I32Eq: intCmpHandler(ir.Eq, ir.I32), ops.I32Ne: intCmpHandler(ir.Ne, ir.I32),
	ops.I32LtS: intCmpHandler(ir.LtS, ir.I32), ops.I32LtU: intCmpHandler(ir.LtU, ir.I32),
	ops.I32GtS: intCmpHandler(ir.GtS, ir.I32), ops.I32GtU: intCmpHandler(ir.GtU, ir.I32),
	ops.I32LeS: intCmpHandler(ir.LeS, ir.I32), ops.I32LeU: intCmpHandler(ir.LeU, ir.I32),
	ops.I32GeS: intCmpHandler(ir.GeS, ir.I32), ops.I32GeU: intCmpHandler(ir.GeU, ir.I32),

	ops.I64Eq: intCmpHandler(ir.Eq, ir.I64), ops.I64Ne: intCmpHandler(ir.Ne, ir.I64),
	ops.I64LtS: intCmpHandler(ir.LtS, ir.I64), ops.I64LtU: intCmpHandler(ir.LtU, ir.I64),
	ops.I64GtS: intCmpHandler(ir.GtS, ir.I64), ops.I64GtU: intCmpHandler(ir.GtU, ir.I64),
	ops.I64LeS: intCmpHandler(ir.LeS, ir.I64), ops.I64LeU: intCmpHandler(ir.LeU, ir.I64),
	ops.I64GeS: intCmpHandler(ir.GeS, ir.I64), ops.I64GeU: intCmpHandler(ir.GeU, ir.I64),

	ops.F32Eq: floatCmpHandler(ir.FEq, ir.F32), ops.F32Ne: floatCmpHandler(ir.FNe, ir.F32),
	ops.F32Lt: floatCmpHandler(ir.FLt, ir.F32), ops.F32Gt: floatCmpHandler(ir.FGt, ir.F32),
	ops.F32Le: floatCmpHandler(ir.FLe, ir.F32), ops.F32Ge: floatCmpHandler(ir.FGe, ir.F32),
	ops.F64Eq: floatCmpHandler(ir.FEq, ir.F64), ops.F64Ne: floatCmpHandler(ir.FNe, ir.F64),
	ops.F64Lt: floatCmpHandler(ir.FLt, ir.F64), ops.F64Gt: floatCmpHandler(ir.FGt, ir.F64),
	ops.F64Le: floatCmpHandler(ir.FLe, ir.F64), ops.F64Ge: floatCmpHandler(ir.FGe, ir.F64),

	ops.I32Clz: intUnaryHandler(ir.Clz, ir.I32, false), ops.I32Ctz: intUnaryHandler(ir.Ctz, ir.I32, false),
	ops.I32Popcnt: intUnaryHandler(ir.Popcnt, ir.I32, false),
	ops.I32Add:    intBinHandler(ir.Add, ir.I32), ops.I32Sub: intBinHandler(ir.Sub, ir.I32),
	ops.I32Mul:  intBinHandler(ir.Mul, ir.I32),
	ops.I32DivS: intBinHandler(ir.DivS, ir.I32), ops.I32DivU: intBinHandler(ir.DivU, ir.I32),
	ops.I32RemS: intBinHandler(ir.RemS, ir.I32), ops.I32RemU: intBinHandler(ir.RemU, ir.I32),
	ops.I32And: intBinHandler(ir.And, ir.I32), ops.I32Or: intBinHandler(ir.Or, ir.I32), ops.I32Xor: intBinHandler(ir.Xor, ir.I32),
	ops.I32Shl: intBinHandler(ir.Shl, ir.I32), ops.I32ShrS: intBinHandler(ir.ShrS, ir.I32), ops.I32ShrU: intBinHandler(ir.ShrU, ir.I32),
	ops.I32Rotl: intBinHandler(ir.Rotl, ir.I32), ops.I32Rotr: intBinHandler(ir.Rotr, ir.I32),

	ops.I64Clz: intUnaryHandler(ir.Clz, ir.I64, false), ops.I64Ctz: intUnaryHandler(ir.Ctz, ir.I64, false),
	ops.I64Popcnt: intUnaryHandler(ir.Popcnt, ir.I64, false),
	ops.I64Add:    intBinHandler(ir.Add, ir.I64), ops.I64Sub: intBinHandler(ir.Sub, ir.I64),
	ops.I64Mul:  intBinHandler(ir.Mul, ir.I64),
	ops.I64DivS: intBinHandler(ir.DivS, ir.I64), ops.I64DivU: intBinHandler(ir.DivU, ir.I64),
	ops.I64RemS: intBinHandler(ir.RemS, ir.I64), ops.I64RemU: intBinHandler(ir.RemU, ir.I64),
	ops.I64And: intBinHandler(ir.And, ir.I64), ops.I64Or: intBinHandler(ir.Or, ir.I64), ops.I64Xor: intBinHandler(ir.Xor, ir.I64),
	ops.I64Shl: intBinHandler(ir.Shl, ir.I64), ops.I64ShrS: intBinHandler(ir.ShrS, ir.I64), ops.I64ShrU: intBinHandler(ir.ShrU, ir.I64),
	ops.I64Rotl: intBinHandler(ir.Rotl, ir.I64), ops.I64Rotr: intBinHandler(ir.Rotr, ir.I64),

	ops.F32Add: floatBinHandler(ir.FAdd, ir.F32), ops.F32Sub: floatBinHandler(ir.FSub, ir.F32),
	ops.F32Mul: floatBinHandler(ir.FMul, ir.F32), ops.F32Div: floatBinHandler(ir.FDiv, ir.F32),
	ops.F64Add: floatBinHandler(ir.FAdd, ir.F64), ops.F64Sub: floatBinHandler(ir.FSub, ir.F64),
	ops.F64Mul: floatBinHandler(ir.FMul, ir.F64), ops.F64Div: floatBinHandler(ir.FDiv, ir.F64),

	ops.F32Copysign: floatCopysignHandler(ir.F32),
	ops.F64Copysign: floatCopysignHandler(ir.F64),

	ops.F32Min: floatMinMaxHandler(ir.FMin, ir.F32, func(mc *ModuleContext) ir.CodePointer { return mc.Intrinsics.FloatMin32 }),
	ops.F32Max: floatMinMaxHandler(ir.FMax, ir.F32, func(mc *ModuleContext) ir.CodePointer { return mc.Intrinsics.FloatMax32 }),
	ops.F64Min: floatMinMaxHandler(ir.FMin, ir.F64, func(mc *ModuleContext) ir.CodePointer { return mc.Intrinsics.FloatMin64 }),
	ops.F64Max: floatMinMaxHandler(ir.FMax, ir.F64, func(mc *ModuleContext) ir.CodePointer { return mc.Intrinsics.FloatMax64 }),

	ops.F32Neg: floatUnaryHandler(0, ir.F32, nil), ops.F32Abs: floatUnaryHandler(1, ir.F32, nil), ops.F32Sqrt: floatUnaryHandler(2, ir.F32, nil),
	ops.F64Neg: floatUnaryHandler(0, ir.F64, nil), ops.F64Abs: floatUnaryHandler(1, ir.F64, nil), ops.F64Sqrt: floatUnaryHandler(2, ir.F64, nil),

	ops.F32Ceil: floatUnaryHandler(3, ir.F32, func(mc *ModuleContext) ir.CodePointer { return mc.Intrinsics.FloatCeil32 }),
	ops.F32Floor: floatUnaryHandler(4, ir.F32, func(mc *ModuleContext) ir.CodePointer { return mc.Intrinsics.FloatFloor32 }),
	ops.F32Trunc: floatUnaryHandler(5, ir.F32, func(mc *ModuleContext) ir.CodePointer { return mc.Intrinsics.FloatTrunc32 }),
	ops.F32Nearest: floatUnaryHandler(6, ir.F32, func(mc *ModuleContext) ir.CodePointer { return mc.Intrinsics.FloatNearest32 }),
	ops.F64Ceil: floatUnaryHandler(3, ir.F64, func(mc *ModuleContext) ir.CodePointer { return mc.Intrinsics.FloatCeil64 }),
	ops.F64Floor: floatUnaryHandler(4, ir.F64, func(mc *ModuleContext) ir.CodePointer { return mc.Intrinsics.FloatFloor64 }),
	ops.F64Trunc: floatUnaryHandler(5, ir.F64, func(mc *ModuleContext) ir.CodePointer { return mc.Intrinsics.FloatTrunc64 }),
	ops.F64Nearest: floatUnaryHandler(6, ir.F64, func(mc *ModuleContext) ir.CodePointer { return mc.Intrinsics.FloatNearest64 }),

	ops.I32WrapI64: convertHandler(ir.I32WrapI64, ir.I32),
	ops.I64ExtendSI32: convertHandler(ir.I64ExtendI32S, ir.I64), ops.I64ExtendUI32: convertHandler(ir.I64ExtendI32U, ir.I64),
	ops.F32DemoteF64: convertHandler(ir.F32DemoteF64, ir.F32), ops.F64PromoteF32: convertHandler(ir.F64PromoteF32, ir.F64),
	ops.I32ReinterpretF32: convertHandler(ir.ReinterpretF32AsI32, ir.I32), ops.F32ReinterpretI32: convertHandler(ir.ReinterpretI32AsF32, ir.F32),
	ops.I64ReinterpretF64: convertHandler(ir.ReinterpretF64AsI64, ir.I64), ops.F64ReinterpretI64: convertHandler(ir.ReinterpretI64AsF64, ir.F64),

	ops.I32TruncSF32: floatToIntHandler(ir.F32, ir.I32, ir.Signed, func(mc *ModuleContext) ir.CodePointer { return mc.Intrinsics.FloatToInt32S }),
	ops.I32TruncUF32: floatToIntHandler(ir.F32, ir.I32, ir.Unsigned, func(mc *ModuleContext) ir.CodePointer { return mc.Intrinsics.FloatToInt32U }),
	ops.I32TruncSF64: floatToIntHandler(ir.F64, ir.I32, ir.Signed, func(mc *ModuleContext) ir.CodePointer { return mc.Intrinsics.FloatToInt32S }),
	ops.I32TruncUF64: floatToIntHandler(ir.F64, ir.I32, ir.Unsigned, func(mc *ModuleContext) ir.CodePointer { return mc.Intrinsics.FloatToInt32U }),
	ops.I64TruncSF32: floatToIntHandler(ir.F32, ir.I64, ir.Signed, func(mc *ModuleContext) ir.CodePointer { return mc.Intrinsics.FloatToInt64S }),
	ops.I64TruncUF32: floatToIntHandler(ir.F32, ir.I64, ir.Unsigned, func(mc *ModuleContext) ir.CodePointer { return mc.Intrinsics.FloatToInt64U }),
	ops.I64TruncSF64: floatToIntHandler(ir.F64, ir.I64, ir.Signed, func(mc *ModuleContext) ir.CodePointer { return mc.Intrinsics.FloatToInt64S }),
	ops.I64TruncUF64: floatToIntHandler(ir.F64, ir.I64, ir.Unsigned, func(mc *ModuleContext) ir.CodePointer { return mc.Intrinsics.FloatToInt64U }),

	ops.F32ConvertSI32: intToFloatHandler(ir.I32, ir.F32, ir.Signed, func(mc *ModuleContext) ir.CodePointer { return mc.Intrinsics.IntToFloat32S }),
	ops.F32ConvertUI32: intToFloatHandler(ir.I32, ir.F32, ir.Unsigned, func(mc *ModuleContext) ir.CodePointer { return mc.Intrinsics.IntToFloat32U }),
	ops.F32ConvertSI64: intToFloatHandler(ir.I64, ir.F32, ir.Signed, func(mc *ModuleContext) ir.CodePointer { return mc.Intrinsics.IntToFloat32S }),
	ops.F32ConvertUI64: intToFloatHandler(ir.I64, ir.F32, ir.Unsigned, func(mc *ModuleContext) ir.CodePointer { return mc.Intrinsics.IntToFloat32U }),
	ops.F64ConvertSI32: intToFloatHandler(ir.I32, ir.F64, ir.Signed, func(mc *ModuleContext) ir.CodePointer { return mc.Intrinsics.IntToFloat64S }),
	ops.F64ConvertUI32: intToFloatHandler(ir.I32, ir.F64, ir.Unsigned, func(mc *ModuleContext) ir.CodePointer { return mc.Intrinsics.IntToFloat64U }),
	ops.F64ConvertSI64: intToFloatHandler(ir.I64, ir.F64, ir.Signed, func(mc *ModuleContext) ir.CodePointer { return mc.Intrinsics.IntToFloat64S }),
	ops.F64ConvertUI64: intToFloatHandler(ir.I64, ir.F64, ir.Unsigned, func(mc *ModuleContext) ir.CodePointer { return mc.Intrinsics.IntToFloat64U }),
}

func isLoadOp(code byte) bool {
	switch code {
	case ops.I32Load, ops.I64Load, ops.F32Load, ops.F64Load,
		ops.I32Load8s, ops.I32Load8u, ops.I32Load16s, ops.I32Load16u,
		ops.I64Load8s, ops.I64Load8u, ops.I64Load16s, ops.I64Load16u,
		ops.I64Load32s, ops.I64Load32u:
		return true
	}
	return false
}

func isStoreOp(code byte) bool {
	switch code {
	case ops.I32Store, ops.I64Store, ops.F32Store, ops.F64Store,
		ops.I32Store8, ops.I32Store16, ops.I64Store8, ops.I64Store16, ops.I64Store32:
		return true
	}
	return false
}

// loadShape/storeShape map an opcode to the ir-level (type, width,
// signed) triple disasm's generic MemImmediate decoding doesn't carry.
func loadShape(code byte) (t ir.Type, widthBytes int, signed bool) {
	switch code {
	case ops.I32Load:
		return ir.I32, 4, false
	case ops.I64Load:
		return ir.I64, 8, false
	case ops.F32Load:
		return ir.F32, 4, false
	case ops.F64Load:
		return ir.F64, 8, false
	case ops.I32Load8s:
		return ir.I32, 1, true
	case ops.I32Load8u:
		return ir.I32, 1, false
	case ops.I32Load16s:
		return ir.I32, 2, true
	case ops.I32Load16u:
		return ir.I32, 2, false
	case ops.I64Load8s:
		return ir.I64, 1, true
	case ops.I64Load8u:
		return ir.I64, 1, false
	case ops.I64Load16s:
		return ir.I64, 2, true
	case ops.I64Load16u:
		return ir.I64, 2, false
	case ops.I64Load32s:
		return ir.I64, 4, true
	case ops.I64Load32u:
		return ir.I64, 4, false
	}
	return ir.None, 0, false
}

func storeShape(code byte) (t ir.Type, widthBytes int) {
	switch code {
	case ops.I32Store:
		return ir.I32, 4
	case ops.I64Store:
		return ir.I64, 8
	case ops.F32Store:
		return ir.F32, 4
	case ops.F64Store:
		return ir.F64, 8
	case ops.I32Store8:
		return ir.I32, 1
	case ops.I32Store16:
		return ir.I32, 2
	case ops.I64Store8:
		return ir.I64, 1
	case ops.I64Store16:
		return ir.I64, 2
	case ops.I64Store32:
		return ir.I64, 4
	}
	return ir.None, 0
}

func (l *lowering) visitLoad(instr disasm.Instr) error {
	t, width, signed := loadShape(instr.Op.Code)
	l.fs.pop() // address
	if !l.fs.unreachable {
		imm := instr.Immediates[0].(disasm.MemImmediate)
		l.b.CreateLoad(t, width, signed, ir.MemImmediate{AlignLog2: imm.AlignLog2, Offset: imm.Offset}, l.mc.MemEndOffsetMask)
	}
	l.fs.push(t)
	return nil
}

func (l *lowering) visitStore(instr disasm.Instr) error {
	t, width := storeShape(instr.Op.Code)
	l.fs.pop() // value
	l.fs.pop() // address
	if !l.fs.unreachable {
		imm := instr.Immediates[0].(disasm.MemImmediate)
		l.b.CreateStore(t, width, ir.MemImmediate{AlignLog2: imm.AlignLog2, Offset: imm.Offset}, l.mc.MemEndOffsetMask)
	}
	return nil
}
