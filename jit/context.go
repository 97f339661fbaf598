// Copyright 2019 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jit

import (
	"fmt"

	"github.com/go-interpreter/wagon-jit/disasm"
	"github.com/go-interpreter/wagon-jit/ir"
	"github.com/go-interpreter/wagon-jit/wasm"
)

// Intrinsics bundles the resolved host entry points a ModuleContext
// bakes into every lowered function, one ir.CodePointer per hostabi
// method the lowering visitor can call into. An embedder builds this by
// taking the address of its own hostabi.Intrinsics implementation's
// methods (or of trampolines wrapping them) and is responsible for
// every address remaining valid for the compiled module's lifetime.
type Intrinsics struct {
	UnreachableTrap                ir.CodePointer
	DivideByZeroTrap                ir.CodePointer
	IndirectCallOOBTrap             ir.CodePointer
	IndirectCallSignatureMismatch   ir.CodePointer
	CurrentMemory                   ir.CodePointer
	GrowMemory                      ir.CodePointer
	FloatMin32, FloatMax32          ir.CodePointer
	FloatMin64, FloatMax64          ir.CodePointer
	FloatCeil32, FloatFloor32       ir.CodePointer
	FloatTrunc32, FloatNearest32    ir.CodePointer
	FloatCeil64, FloatFloor64       ir.CodePointer
	FloatTrunc64, FloatNearest64    ir.CodePointer
	FloatToInt32S, FloatToInt32U    ir.CodePointer
	FloatToInt64S, FloatToInt64U    ir.CodePointer
	IntToFloat32S, IntToFloat32U    ir.CodePointer
	IntToFloat64S, IntToFloat64U    ir.CodePointer
}

// ModuleContext drives the lowering of every defined function in a
// parsed wasm.Module into an ir.Module, resolving cross-function
// concerns once: the module's function index space (for direct calls),
// its global index space's declared
// types (for get_global/set_global), and the reserved host intrinsics
// every function may call into. It corresponds to component B of the
// lowering pipeline's component split: everything funcState/lower need
// that isn't local to a single function body.
type ModuleContext struct {
	Module     *wasm.Module
	Intrinsics Intrinsics

	// FuncCodePointers holds a resolved ir.CodePointer per entry in the
	// module's function index space (imports first, then defined
	// functions), filled in by the embedder once native addresses are
	// known for imports and as defined functions are compiled.
	FuncCodePointers []ir.CodePointer

	// GlobalTypes is the declared value type of every entry in the
	// module's global index space, used to type get_global's pushed
	// value without re-deriving it from the section on every access.
	GlobalTypes []ir.Type

	// TableElemEndOffsetMask is the indirect-call table's reserved
	// region size minus one. The lowering does not read it: call_indirect's
	// range check is the explicit compare against the element count
	// published at TableSite.
	TableElemEndOffsetMask int64

	// MemEndOffsetMask is the linear memory reservation's equivalent
	// mask, used by every load/store's address coercion.
	MemEndOffsetMask int64

	// TableSite resolves the indirect-call table's base address and
	// published element-count address, for call_indirect's bounds check.
	// Populated by the embedder once the module's calltable.Table has
	// been constructed.
	TableSite ir.TableCallSite
}

// TypeOf maps a wasm.ValueType (or the empty block type) to its ir.Type.
func TypeOf(vt wasm.ValueType) ir.Type {
	switch vt {
	case wasm.ValueTypeI32:
		return ir.I32
	case wasm.ValueTypeI64:
		return ir.I64
	case wasm.ValueTypeF32:
		return ir.F32
	case wasm.ValueTypeF64:
		return ir.F64
	default:
		return ir.None
	}
}

// CompileFunction lowers one function body (already decoded into a flat
// instruction list by disasm.Decoder) into a new ir.Func, appending it
// to mod. funcIndex is this function's position among defined functions
// (i.e. excluding imports), used only to name the ir.Func ("func%d").
// localTypes is the declared type of every
// non-parameter local, in declaration order (a function body's locals
// vector, flattened from its run-length-encoded LocalEntry groups) —
// get_local/set_local/tee_local beyond the parameters resolve against
// this rather than assuming i32.
func (mc *ModuleContext) CompileFunction(mod *ir.Module, funcIndex int, sig *wasm.FunctionSig, localTypes []ir.Type, body []disasm.Instr) (*ir.Func, error) {
	paramTypes := make([]ir.Type, len(sig.ParamTypes))
	for i, pt := range sig.ParamTypes {
		paramTypes[i] = TypeOf(pt)
	}
	resultType := ir.None
	if len(sig.ReturnTypes) > 0 {
		resultType = TypeOf(sig.ReturnTypes[0])
	}

	numLocals := len(paramTypes) + len(localTypes)
	fn, err := ir.NewFunc(fmt.Sprintf("func%d", funcIndex), paramTypes, resultType, numLocals)
	if err != nil {
		return nil, err
	}
	mod.AddFunc(fn)

	b := ir.NewBuilder(fn)
	l := &lowering{
		mc:         mc,
		b:          b,
		fs:         newFuncState(b),
		sig:        sig,
		localTypes: localTypes,
	}
	if err := l.run(body, resultType); err != nil {
		return nil, fmt.Errorf("jit: compiling %s: %w", fn.Name(), err)
	}
	return fn, nil
}
