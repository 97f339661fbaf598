// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package operators holds the opcode table for the bytecode instruction
// set: for every opcode, its mnemonic, argument types, and return type
// (wasm.ValueType(wasm.BlockTypeEmpty) for operators that push nothing).
package operators

import (
	"fmt"

	"github.com/go-interpreter/wagon-jit/wasm"
)

// Op represents a single operator, along with the types it pops off
// (Args) and pushes onto (Returns) the operand stack. Polymorphic
// operators (control-flow, drop, select, ...) carry no fixed arity here;
// their stack effect is computed by the caller.
type Op struct {
	Code       byte
	Name       string
	Polymorphic bool
	Args       []wasm.ValueType
	Returns    wasm.ValueType
}

// IsValid reports whether op was produced by New for a recognized opcode.
func (op Op) IsValid() bool {
	return op.Name != ""
}

var ops [256]Op

// ErrInvalidOp is returned by New for an opcode with no entry in the table.
type ErrInvalidOp byte

func (e ErrInvalidOp) Error() string {
	return fmt.Sprintf("operators: invalid opcode 0x%x", byte(e))
}

// New looks up the Op for a given opcode byte.
func New(code byte) (Op, error) {
	op := ops[code]
	if !op.IsValid() {
		return op, ErrInvalidOp(code)
	}
	return op, nil
}

func newOp(code byte, name string, args []wasm.ValueType, returns wasm.ValueType) byte {
	ops[code] = Op{Code: code, Name: name, Args: args, Returns: returns}
	return code
}

func newPolymorphicOp(code byte, name string) byte {
	ops[code] = Op{Code: code, Name: name, Polymorphic: true}
	return code
}

var (
	Unreachable = newPolymorphicOp(0x00, "unreachable")
	Nop         = newOp(0x01, "nop", nil, wasm.ValueType(wasm.BlockTypeEmpty))
	Block       = newPolymorphicOp(0x02, "block")
	Loop        = newPolymorphicOp(0x03, "loop")
	If          = newPolymorphicOp(0x04, "if")
	Else        = newPolymorphicOp(0x05, "else")
	End         = newPolymorphicOp(0x0b, "end")
	Br          = newPolymorphicOp(0x0c, "br")
	BrIf        = newPolymorphicOp(0x0d, "br_if")
	BrTable     = newPolymorphicOp(0x0e, "br_table")
	Return      = newPolymorphicOp(0x0f, "return")
	Call        = newPolymorphicOp(0x10, "call")
	CallIndirect = newPolymorphicOp(0x11, "call_indirect")

	Drop   = newPolymorphicOp(0x1a, "drop")
	Select = newPolymorphicOp(0x1b, "select")

	// The value type of locals/globals isn't known to the opcode table
	// (it depends on the referenced local/global's declared type), so
	// these report Returns = none and have their actual stack effect
	// computed from the referenced index by the caller.
	GetLocal  = newOp(0x20, "get_local", nil, wasm.ValueType(wasm.BlockTypeEmpty))
	SetLocal  = newOp(0x21, "set_local", nil, wasm.ValueType(wasm.BlockTypeEmpty))
	TeeLocal  = newOp(0x22, "tee_local", nil, wasm.ValueType(wasm.BlockTypeEmpty))
	GetGlobal = newOp(0x23, "get_global", nil, wasm.ValueType(wasm.BlockTypeEmpty))
	SetGlobal = newOp(0x24, "set_global", nil, wasm.ValueType(wasm.BlockTypeEmpty))

	I32Load    = newOp(0x28, "i32.load", []wasm.ValueType{wasm.ValueTypeI32}, wasm.ValueTypeI32)
	I64Load    = newOp(0x29, "i64.load", []wasm.ValueType{wasm.ValueTypeI32}, wasm.ValueTypeI64)
	F32Load    = newOp(0x2a, "f32.load", []wasm.ValueType{wasm.ValueTypeI32}, wasm.ValueTypeF32)
	F64Load    = newOp(0x2b, "f64.load", []wasm.ValueType{wasm.ValueTypeI32}, wasm.ValueTypeF64)
	I32Load8s  = newOp(0x2c, "i32.load8_s", []wasm.ValueType{wasm.ValueTypeI32}, wasm.ValueTypeI32)
	I32Load8u  = newOp(0x2d, "i32.load8_u", []wasm.ValueType{wasm.ValueTypeI32}, wasm.ValueTypeI32)
	I32Load16s = newOp(0x2e, "i32.load16_s", []wasm.ValueType{wasm.ValueTypeI32}, wasm.ValueTypeI32)
	I32Load16u = newOp(0x2f, "i32.load16_u", []wasm.ValueType{wasm.ValueTypeI32}, wasm.ValueTypeI32)
	I64Load8s  = newOp(0x30, "i64.load8_s", []wasm.ValueType{wasm.ValueTypeI32}, wasm.ValueTypeI64)
	I64Load8u  = newOp(0x31, "i64.load8_u", []wasm.ValueType{wasm.ValueTypeI32}, wasm.ValueTypeI64)
	I64Load16s = newOp(0x32, "i64.load16_s", []wasm.ValueType{wasm.ValueTypeI32}, wasm.ValueTypeI64)
	I64Load16u = newOp(0x33, "i64.load16_u", []wasm.ValueType{wasm.ValueTypeI32}, wasm.ValueTypeI64)
	I64Load32s = newOp(0x34, "i64.load32_s", []wasm.ValueType{wasm.ValueTypeI32}, wasm.ValueTypeI64)
	I64Load32u = newOp(0x35, "i64.load32_u", []wasm.ValueType{wasm.ValueTypeI32}, wasm.ValueTypeI64)

	I32Store   = newOp(0x36, "i32.store", []wasm.ValueType{wasm.ValueTypeI32, wasm.ValueTypeI32}, wasm.ValueType(wasm.BlockTypeEmpty))
	I64Store   = newOp(0x37, "i64.store", []wasm.ValueType{wasm.ValueTypeI32, wasm.ValueTypeI64}, wasm.ValueType(wasm.BlockTypeEmpty))
	F32Store   = newOp(0x38, "f32.store", []wasm.ValueType{wasm.ValueTypeI32, wasm.ValueTypeF32}, wasm.ValueType(wasm.BlockTypeEmpty))
	F64Store   = newOp(0x39, "f64.store", []wasm.ValueType{wasm.ValueTypeI32, wasm.ValueTypeF64}, wasm.ValueType(wasm.BlockTypeEmpty))
	I32Store8  = newOp(0x3a, "i32.store8", []wasm.ValueType{wasm.ValueTypeI32, wasm.ValueTypeI32}, wasm.ValueType(wasm.BlockTypeEmpty))
	I32Store16 = newOp(0x3b, "i32.store16", []wasm.ValueType{wasm.ValueTypeI32, wasm.ValueTypeI32}, wasm.ValueType(wasm.BlockTypeEmpty))
	I64Store8  = newOp(0x3c, "i64.store8", []wasm.ValueType{wasm.ValueTypeI32, wasm.ValueTypeI64}, wasm.ValueType(wasm.BlockTypeEmpty))
	I64Store16 = newOp(0x3d, "i64.store16", []wasm.ValueType{wasm.ValueTypeI32, wasm.ValueTypeI64}, wasm.ValueType(wasm.BlockTypeEmpty))
	I64Store32 = newOp(0x3e, "i64.store32", []wasm.ValueType{wasm.ValueTypeI32, wasm.ValueTypeI64}, wasm.ValueType(wasm.BlockTypeEmpty))

	CurrentMemory = newOp(0x3f, "current_memory", nil, wasm.ValueTypeI32)
	GrowMemory    = newOp(0x40, "grow_memory", []wasm.ValueType{wasm.ValueTypeI32}, wasm.ValueTypeI32)

	I32Const = newOp(0x41, "i32.const", nil, wasm.ValueTypeI32)
	I64Const = newOp(0x42, "i64.const", nil, wasm.ValueTypeI64)
	F32Const = newOp(0x43, "f32.const", nil, wasm.ValueTypeF32)
	F64Const = newOp(0x44, "f64.const", nil, wasm.ValueTypeF64)
)

func newCmpOp(code byte, name string, operand wasm.ValueType) byte {
	return newOp(code, name, []wasm.ValueType{operand, operand}, wasm.ValueTypeI32)
}

func newUnaryOp(code byte, name string, t wasm.ValueType) byte {
	return newOp(code, name, []wasm.ValueType{t}, t)
}

func newBinOp(code byte, name string, t wasm.ValueType) byte {
	return newOp(code, name, []wasm.ValueType{t, t}, t)
}

var (
	I32Eqz = newOp(0x45, "i32.eqz", []wasm.ValueType{wasm.ValueTypeI32}, wasm.ValueTypeI32)
	I32Eq  = newCmpOp(0x46, "i32.eq", wasm.ValueTypeI32)
	I32Ne  = newCmpOp(0x47, "i32.ne", wasm.ValueTypeI32)
	I32LtS = newCmpOp(0x48, "i32.lt_s", wasm.ValueTypeI32)
	I32LtU = newCmpOp(0x49, "i32.lt_u", wasm.ValueTypeI32)
	I32GtS = newCmpOp(0x4a, "i32.gt_s", wasm.ValueTypeI32)
	I32GtU = newCmpOp(0x4b, "i32.gt_u", wasm.ValueTypeI32)
	I32LeS = newCmpOp(0x4c, "i32.le_s", wasm.ValueTypeI32)
	I32LeU = newCmpOp(0x4d, "i32.le_u", wasm.ValueTypeI32)
	I32GeS = newCmpOp(0x4e, "i32.ge_s", wasm.ValueTypeI32)
	I32GeU = newCmpOp(0x4f, "i32.ge_u", wasm.ValueTypeI32)

	I64Eqz = newOp(0x50, "i64.eqz", []wasm.ValueType{wasm.ValueTypeI64}, wasm.ValueTypeI32)
	I64Eq  = newCmpOp(0x51, "i64.eq", wasm.ValueTypeI64)
	I64Ne  = newCmpOp(0x52, "i64.ne", wasm.ValueTypeI64)
	I64LtS = newCmpOp(0x53, "i64.lt_s", wasm.ValueTypeI64)
	I64LtU = newCmpOp(0x54, "i64.lt_u", wasm.ValueTypeI64)
	I64GtS = newCmpOp(0x55, "i64.gt_s", wasm.ValueTypeI64)
	I64GtU = newCmpOp(0x56, "i64.gt_u", wasm.ValueTypeI64)
	I64LeS = newCmpOp(0x57, "i64.le_s", wasm.ValueTypeI64)
	I64LeU = newCmpOp(0x58, "i64.le_u", wasm.ValueTypeI64)
	I64GeS = newCmpOp(0x59, "i64.ge_s", wasm.ValueTypeI64)
	I64GeU = newCmpOp(0x5a, "i64.ge_u", wasm.ValueTypeI64)

	F32Eq = newCmpOp(0x5b, "f32.eq", wasm.ValueTypeF32)
	F32Ne = newCmpOp(0x5c, "f32.ne", wasm.ValueTypeF32)
	F32Lt = newCmpOp(0x5d, "f32.lt", wasm.ValueTypeF32)
	F32Gt = newCmpOp(0x5e, "f32.gt", wasm.ValueTypeF32)
	F32Le = newCmpOp(0x5f, "f32.le", wasm.ValueTypeF32)
	F32Ge = newCmpOp(0x60, "f32.ge", wasm.ValueTypeF32)

	F64Eq = newCmpOp(0x61, "f64.eq", wasm.ValueTypeF64)
	F64Ne = newCmpOp(0x62, "f64.ne", wasm.ValueTypeF64)
	F64Lt = newCmpOp(0x63, "f64.lt", wasm.ValueTypeF64)
	F64Gt = newCmpOp(0x64, "f64.gt", wasm.ValueTypeF64)
	F64Le = newCmpOp(0x65, "f64.le", wasm.ValueTypeF64)
	F64Ge = newCmpOp(0x66, "f64.ge", wasm.ValueTypeF64)

	I32Clz    = newUnaryOp(0x67, "i32.clz", wasm.ValueTypeI32)
	I32Ctz    = newUnaryOp(0x68, "i32.ctz", wasm.ValueTypeI32)
	I32Popcnt = newUnaryOp(0x69, "i32.popcnt", wasm.ValueTypeI32)
	I32Add    = newBinOp(0x6a, "i32.add", wasm.ValueTypeI32)
	I32Sub    = newBinOp(0x6b, "i32.sub", wasm.ValueTypeI32)
	I32Mul    = newBinOp(0x6c, "i32.mul", wasm.ValueTypeI32)
	I32DivS   = newBinOp(0x6d, "i32.div_s", wasm.ValueTypeI32)
	I32DivU   = newBinOp(0x6e, "i32.div_u", wasm.ValueTypeI32)
	I32RemS   = newBinOp(0x6f, "i32.rem_s", wasm.ValueTypeI32)
	I32RemU   = newBinOp(0x70, "i32.rem_u", wasm.ValueTypeI32)
	I32And    = newBinOp(0x71, "i32.and", wasm.ValueTypeI32)
	I32Or     = newBinOp(0x72, "i32.or", wasm.ValueTypeI32)
	I32Xor    = newBinOp(0x73, "i32.xor", wasm.ValueTypeI32)
	I32Shl    = newBinOp(0x74, "i32.shl", wasm.ValueTypeI32)
	I32ShrS   = newBinOp(0x75, "i32.shr_s", wasm.ValueTypeI32)
	I32ShrU   = newBinOp(0x76, "i32.shr_u", wasm.ValueTypeI32)
	I32Rotl   = newBinOp(0x77, "i32.rotl", wasm.ValueTypeI32)
	I32Rotr   = newBinOp(0x78, "i32.rotr", wasm.ValueTypeI32)

	I64Clz    = newUnaryOp(0x79, "i64.clz", wasm.ValueTypeI64)
	I64Ctz    = newUnaryOp(0x7a, "i64.ctz", wasm.ValueTypeI64)
	I64Popcnt = newUnaryOp(0x7b, "i64.popcnt", wasm.ValueTypeI64)
	I64Add    = newBinOp(0x7c, "i64.add", wasm.ValueTypeI64)
	I64Sub    = newBinOp(0x7d, "i64.sub", wasm.ValueTypeI64)
	I64Mul    = newBinOp(0x7e, "i64.mul", wasm.ValueTypeI64)
	I64DivS   = newBinOp(0x7f, "i64.div_s", wasm.ValueTypeI64)
	I64DivU   = newBinOp(0x80, "i64.div_u", wasm.ValueTypeI64)
	I64RemS   = newBinOp(0x81, "i64.rem_s", wasm.ValueTypeI64)
	I64RemU   = newBinOp(0x82, "i64.rem_u", wasm.ValueTypeI64)
	I64And    = newBinOp(0x83, "i64.and", wasm.ValueTypeI64)
	I64Or     = newBinOp(0x84, "i64.or", wasm.ValueTypeI64)
	I64Xor    = newBinOp(0x85, "i64.xor", wasm.ValueTypeI64)
	I64Shl    = newBinOp(0x86, "i64.shl", wasm.ValueTypeI64)
	I64ShrS   = newBinOp(0x87, "i64.shr_s", wasm.ValueTypeI64)
	I64ShrU   = newBinOp(0x88, "i64.shr_u", wasm.ValueTypeI64)
	I64Rotl   = newBinOp(0x89, "i64.rotl", wasm.ValueTypeI64)
	I64Rotr   = newBinOp(0x8a, "i64.rotr", wasm.ValueTypeI64)

	F32Abs      = newUnaryOp(0x8b, "f32.abs", wasm.ValueTypeF32)
	F32Neg      = newUnaryOp(0x8c, "f32.neg", wasm.ValueTypeF32)
	F32Ceil     = newUnaryOp(0x8d, "f32.ceil", wasm.ValueTypeF32)
	F32Floor    = newUnaryOp(0x8e, "f32.floor", wasm.ValueTypeF32)
	F32Trunc    = newUnaryOp(0x8f, "f32.trunc", wasm.ValueTypeF32)
	F32Nearest  = newUnaryOp(0x90, "f32.nearest", wasm.ValueTypeF32)
	F32Sqrt     = newUnaryOp(0x91, "f32.sqrt", wasm.ValueTypeF32)
	F32Add      = newBinOp(0x92, "f32.add", wasm.ValueTypeF32)
	F32Sub      = newBinOp(0x93, "f32.sub", wasm.ValueTypeF32)
	F32Mul      = newBinOp(0x94, "f32.mul", wasm.ValueTypeF32)
	F32Div      = newBinOp(0x95, "f32.div", wasm.ValueTypeF32)
	F32Min      = newBinOp(0x96, "f32.min", wasm.ValueTypeF32)
	F32Max      = newBinOp(0x97, "f32.max", wasm.ValueTypeF32)
	F32Copysign = newBinOp(0x98, "f32.copysign", wasm.ValueTypeF32)

	F64Abs      = newUnaryOp(0x99, "f64.abs", wasm.ValueTypeF64)
	F64Neg      = newUnaryOp(0x9a, "f64.neg", wasm.ValueTypeF64)
	F64Ceil     = newUnaryOp(0x9b, "f64.ceil", wasm.ValueTypeF64)
	F64Floor    = newUnaryOp(0x9c, "f64.floor", wasm.ValueTypeF64)
	F64Trunc    = newUnaryOp(0x9d, "f64.trunc", wasm.ValueTypeF64)
	F64Nearest  = newUnaryOp(0x9e, "f64.nearest", wasm.ValueTypeF64)
	F64Sqrt     = newUnaryOp(0x9f, "f64.sqrt", wasm.ValueTypeF64)
	F64Add      = newBinOp(0xa0, "f64.add", wasm.ValueTypeF64)
	F64Sub      = newBinOp(0xa1, "f64.sub", wasm.ValueTypeF64)
	F64Mul      = newBinOp(0xa2, "f64.mul", wasm.ValueTypeF64)
	F64Div      = newBinOp(0xa3, "f64.div", wasm.ValueTypeF64)
	F64Min      = newBinOp(0xa4, "f64.min", wasm.ValueTypeF64)
	F64Max      = newBinOp(0xa5, "f64.max", wasm.ValueTypeF64)
	F64Copysign = newBinOp(0xa6, "f64.copysign", wasm.ValueTypeF64)
)

// conversionTypeName maps the dotted component of a conversion operator's
// name (the part before or after the slash) to its value type.
var conversionTypeName = map[string]wasm.ValueType{
	"i32": wasm.ValueTypeI32,
	"i64": wasm.ValueTypeI64,
	"f32": wasm.ValueTypeF32,
	"f64": wasm.ValueTypeF64,
}

// newConversionOp infers the argument and return types for a conversion
// operator from its name, which always takes the form "<ret>.<op>/<arg>"
// (e.g. "i32.trunc_s/f32", "f64.reinterpret/i64").
func newConversionOp(code byte, name string) byte {
	dot := 0
	for i, r := range name {
		if r == '.' {
			dot = i
			break
		}
	}
	slash := len(name)
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '/' {
			slash = i
			break
		}
	}
	ret := conversionTypeName[name[:dot]]
	arg := conversionTypeName[name[slash+1:]]
	return newOp(code, name, []wasm.ValueType{arg}, ret)
}

var (
	I32WrapI64     = newConversionOp(0xa7, "i32.wrap/i64")
	I32TruncSF32   = newConversionOp(0xa8, "i32.trunc_s/f32")
	I32TruncUF32   = newConversionOp(0xa9, "i32.trunc_u/f32")
	I32TruncSF64   = newConversionOp(0xaa, "i32.trunc_s/f64")
	I32TruncUF64   = newConversionOp(0xab, "i32.trunc_u/f64")
	I64ExtendSI32  = newConversionOp(0xac, "i64.extend_s/i32")
	I64ExtendUI32  = newConversionOp(0xad, "i64.extend_u/i32")
	I64TruncSF32   = newConversionOp(0xae, "i64.trunc_s/f32")
	I64TruncUF32   = newConversionOp(0xaf, "i64.trunc_u/f32")
	I64TruncSF64   = newConversionOp(0xb0, "i64.trunc_s/f64")
	I64TruncUF64   = newConversionOp(0xb1, "i64.trunc_u/f64")
	F32ConvertSI32 = newConversionOp(0xb2, "f32.convert_s/i32")
	F32ConvertUI32 = newConversionOp(0xb3, "f32.convert_u/i32")
	F32ConvertSI64 = newConversionOp(0xb4, "f32.convert_s/i64")
	F32ConvertUI64 = newConversionOp(0xb5, "f32.convert_u/i64")
	F32DemoteF64   = newConversionOp(0xb6, "f32.demote/f64")
	F64ConvertSI32 = newConversionOp(0xb7, "f64.convert_s/i32")
	F64ConvertUI32 = newConversionOp(0xb8, "f64.convert_u/i32")
	F64ConvertSI64 = newConversionOp(0xb9, "f64.convert_s/i64")
	F64ConvertUI64 = newConversionOp(0xba, "f64.convert_u/i64")
	F64PromoteF32  = newConversionOp(0xbb, "f64.promote/f32")

	I32ReinterpretF32 = newConversionOp(0xbc, "i32.reinterpret/f32")
	I64ReinterpretF64 = newConversionOp(0xbd, "i64.reinterpret/f64")
	F32ReinterpretI32 = newConversionOp(0xbe, "f32.reinterpret/i32")
	F64ReinterpretI64 = newConversionOp(0xbf, "f64.reinterpret/i64")
)
