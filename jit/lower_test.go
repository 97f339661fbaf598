// Copyright 2019 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jit

import (
	"testing"

	"github.com/go-interpreter/wagon-jit/disasm"
	"github.com/go-interpreter/wagon-jit/ir"
	"github.com/go-interpreter/wagon-jit/wasm"
	ops "github.com/go-interpreter/wagon-jit/wasm/operators"
)

// testIntrinsics returns a set of distinguishable, non-zero fake code
// pointers so a test can at least assert each intrinsic is wired to
// something other than the zero value.
func testIntrinsics() Intrinsics {
	return Intrinsics{
		UnreachableTrap:               ir.CodePointer{Addr: 0x1001},
		DivideByZeroTrap:              ir.CodePointer{Addr: 0x1002},
		IndirectCallOOBTrap:           ir.CodePointer{Addr: 0x1003},
		IndirectCallSignatureMismatch: ir.CodePointer{Addr: 0x1004},
		CurrentMemory:                 ir.CodePointer{Addr: 0x1005},
		GrowMemory:                    ir.CodePointer{Addr: 0x1006},
	}
}

func testModuleContext(sigs []wasm.FunctionSig, fis []wasm.Function) *ModuleContext {
	return &ModuleContext{
		Module: &wasm.Module{
			Types:              &wasm.SectionTypes{Entries: sigs},
			FunctionIndexSpace: fis,
		},
		Intrinsics:             testIntrinsics(),
		TableElemEndOffsetMask: 0xffff,
		MemEndOffsetMask:       0xffff,
		TableSite:              ir.TableCallSite{BaseAddr: 0x2000, NumElementsAddr: 0x2008},
	}
}

func instr(op byte, immediates ...interface{}) disasm.Instr {
	o, err := ops.New(op)
	if err != nil {
		panic(err)
	}
	return disasm.Instr{Op: o, Immediates: immediates}
}

func compile(t *testing.T, mc *ModuleContext, sig *wasm.FunctionSig, localTypes []ir.Type, body []disasm.Instr) *ir.Func {
	t.Helper()
	mod := ir.NewModule()
	fn, err := mc.CompileFunction(mod, 0, sig, localTypes, body)
	if err != nil {
		t.Fatalf("CompileFunction: %v", err)
	}
	return fn
}

// Scenario 1 (spec.md §8): (i32,i32)->i32 { get_local 0; get_local 1;
// i32.add; end } must lower to an entry block plus an exit block, the
// exit terminated by a return, with the add's result the only thing on
// the exit's join.
func TestCompileAddFunction(t *testing.T) {
	sig := &wasm.FunctionSig{ParamTypes: []wasm.ValueType{wasm.ValueTypeI32, wasm.ValueTypeI32}, ReturnTypes: []wasm.ValueType{wasm.ValueTypeI32}}
	mc := testModuleContext([]wasm.FunctionSig{*sig}, []wasm.Function{{Sig: sig}})

	body := []disasm.Instr{
		instr(ops.GetLocal, uint32(0)),
		instr(ops.GetLocal, uint32(1)),
		instr(ops.I32Add),
		instr(ops.End),
	}
	fn := compile(t, mc, sig, nil, body)

	blocks := fn.Blocks()
	if len(blocks) != 2 {
		t.Fatalf("len(Blocks()) = %d, want 2 (entry, exit)", len(blocks))
	}
	exit := blocks[len(blocks)-1]
	if !exit.Terminated() {
		t.Error("exit block not terminated")
	}
}

// Scenario 2: ()->i32 { i32.const 1; if i32; i32.const 42; else;
// i32.const 7; end; end } must produce a well-formed if/else with both
// arms feeding the same join and the outer function frame forwarding
// that join's value to the return.
func TestCompileIfElse(t *testing.T) {
	sig := &wasm.FunctionSig{ReturnTypes: []wasm.ValueType{wasm.ValueTypeI32}}
	mc := testModuleContext([]wasm.FunctionSig{*sig}, []wasm.Function{{Sig: sig}})

	body := []disasm.Instr{
		instr(ops.I32Const, int32(1)),
		instr(ops.If, wasm.BlockType(wasm.ValueTypeI32)),
		instr(ops.I32Const, int32(42)),
		instr(ops.Else),
		instr(ops.I32Const, int32(7)),
		instr(ops.End), // closes the if
		instr(ops.End), // closes the function
	}
	fn := compile(t, mc, sig, nil, body)

	// then, else_or_end, if.end, exit: four blocks beyond entry.
	if got := len(fn.Blocks()); got < 4 {
		t.Fatalf("len(Blocks()) = %d, want at least 4", got)
	}
	exit := fn.Blocks()[len(fn.Blocks())-1]
	if !exit.Terminated() {
		t.Error("exit block not terminated")
	}
}

// Boundary: an `if` with no explicit `else` must still synthesize an
// empty else arm branching straight to the if's end block.
func TestIfWithoutElseSynthesizesEmptyElse(t *testing.T) {
	sig := &wasm.FunctionSig{ReturnTypes: []wasm.ValueType{wasm.ValueTypeI32}}
	mc := testModuleContext([]wasm.FunctionSig{*sig}, []wasm.Function{{Sig: sig}})

	body := []disasm.Instr{
		instr(ops.I32Const, int32(1)),
		instr(ops.If, wasm.BlockType(wasm.ValueTypeI32)),
		instr(ops.I32Const, int32(42)),
		instr(ops.End), // no else: closes the if
		instr(ops.End), // closes the function
	}
	fn := compile(t, mc, sig, nil, body)

	var elseBlk *ir.BasicBlock
	for _, b := range fn.Blocks() {
		if b.Name() == "if.else_or_end" {
			elseBlk = b
		}
	}
	if elseBlk == nil {
		t.Fatal("no if.else_or_end block found")
	}
	if !elseBlk.Terminated() {
		t.Error("synthesized empty else block is not terminated")
	}
}

// Scenario 3: (i32)->i32 { get_local 0; i32.const 0; i32.div_s; end }
// must not panic while lowering and must push exactly one i32 result
// (the divide-by-zero guard is inline in the same block and therefore
// invisible to a block-count assertion, but the lowering itself must
// complete and leave the operand stack correctly typed).
func TestCompileDivSLowersWithoutPanic(t *testing.T) {
	sig := &wasm.FunctionSig{ParamTypes: []wasm.ValueType{wasm.ValueTypeI32}, ReturnTypes: []wasm.ValueType{wasm.ValueTypeI32}}
	mc := testModuleContext([]wasm.FunctionSig{*sig}, []wasm.Function{{Sig: sig}})

	body := []disasm.Instr{
		instr(ops.GetLocal, uint32(0)),
		instr(ops.I32Const, int32(0)),
		instr(ops.I32DivS),
		instr(ops.End),
	}
	fn := compile(t, mc, sig, nil, body)
	if len(fn.Blocks()) != 2 {
		t.Fatalf("len(Blocks()) = %d, want 2", len(fn.Blocks()))
	}
}

// Scenario 4: (i32)->i32 { get_local 0; i32.const -1; i32.rem_s; end }
// lowers to the guarded rem_s sequence (INT_MIN / -1 special-cased to 0)
// without panicking or invoking a div instruction directly.
func TestCompileRemSIntMinGuardLowersWithoutPanic(t *testing.T) {
	sig := &wasm.FunctionSig{ParamTypes: []wasm.ValueType{wasm.ValueTypeI32}, ReturnTypes: []wasm.ValueType{wasm.ValueTypeI32}}
	mc := testModuleContext([]wasm.FunctionSig{*sig}, []wasm.Function{{Sig: sig}})

	body := []disasm.Instr{
		instr(ops.GetLocal, uint32(0)),
		instr(ops.I32Const, int32(-1)),
		instr(ops.I32RemS),
		instr(ops.End),
	}
	compile(t, mc, sig, nil, body)
}

// Scenario 5: call_indirect through a table slot lowers to a checked
// table load followed by a register call, without touching the direct
// FuncCodePointers table.
func TestCompileCallIndirect(t *testing.T) {
	calleeSig := wasm.FunctionSig{ParamTypes: []wasm.ValueType{wasm.ValueTypeI32}, ReturnTypes: []wasm.ValueType{wasm.ValueTypeI32}}
	sig := &wasm.FunctionSig{ReturnTypes: []wasm.ValueType{wasm.ValueTypeI32}}
	mc := testModuleContext([]wasm.FunctionSig{calleeSig, *sig}, []wasm.Function{{Sig: sig}})

	body := []disasm.Instr{
		instr(ops.I32Const, int32(1)), // arg
		instr(ops.I32Const, int32(0)), // table index
		instr(ops.CallIndirect, uint32(0), uint32(0)),
		instr(ops.End),
	}
	fn := compile(t, mc, sig, nil, body)
	if len(fn.Blocks()) != 2 {
		t.Fatalf("len(Blocks()) = %d, want 2", len(fn.Blocks()))
	}
}

// call_indirect against an out-of-range type index must fail to lower
// rather than silently continuing with a zero-value signature.
func TestCompileCallIndirectBadTypeIndex(t *testing.T) {
	sig := &wasm.FunctionSig{ReturnTypes: []wasm.ValueType{wasm.ValueTypeI32}}
	mc := testModuleContext([]wasm.FunctionSig{*sig}, []wasm.Function{{Sig: sig}})

	body := []disasm.Instr{
		instr(ops.I32Const, int32(0)),
		instr(ops.CallIndirect, uint32(7), uint32(0)),
		instr(ops.End),
	}
	mod := ir.NewModule()
	if _, err := mc.CompileFunction(mod, 0, sig, nil, body); err == nil {
		t.Error("CompileFunction with out-of-range call_indirect type index = nil error, want error")
	}
}

// Boundary: br_table with an empty case list must still forward the
// argument to the default target exactly once, and must not panic.
func TestBrTableEmptyCasesForwardsDefault(t *testing.T) {
	sig := &wasm.FunctionSig{ReturnTypes: []wasm.ValueType{wasm.ValueTypeI32}}
	mc := testModuleContext([]wasm.FunctionSig{*sig}, []wasm.Function{{Sig: sig}})

	body := []disasm.Instr{
		instr(ops.Block, wasm.BlockType(wasm.ValueTypeI32)),
		instr(ops.I32Const, int32(9)),
		instr(ops.I32Const, int32(0)), // br_table index
		instr(ops.BrTable, uint32(0), uint32(0)), // zero cases, default depth 0
		instr(ops.End), // unreachable after br_table, but still balances the block
		instr(ops.End), // closes the function
	}
	compile(t, mc, sig, nil, body)
}

// Boundary: a frame whose is_reachable becomes false before its matching
// end must still produce a well-formed end block via the zero-synthesis
// path (no join read of an uninitialized slot).
func TestUnreachableFrameProducesZeroSynthesizedJoin(t *testing.T) {
	sig := &wasm.FunctionSig{ReturnTypes: []wasm.ValueType{wasm.ValueTypeI32}}
	mc := testModuleContext([]wasm.FunctionSig{*sig}, []wasm.Function{{Sig: sig}})

	body := []disasm.Instr{
		instr(ops.Unreachable),
		instr(ops.Block, wasm.BlockType(wasm.ValueTypeI32)),
		instr(ops.End), // never reached, join never fed
		instr(ops.Drop),
		instr(ops.I32Const, int32(0)),
		instr(ops.End), // closes the function
	}
	compile(t, mc, sig, nil, body)
}

// Boundary: a function whose body has no explicit return falls through
// the implicit function-level block and must still terminate cleanly —
// this is the regression case for run()/visitEnd's shared responsibility
// for closing the function-level control frame.
func TestCompileFallthroughNoExplicitReturn(t *testing.T) {
	sig := &wasm.FunctionSig{ParamTypes: []wasm.ValueType{wasm.ValueTypeI32}, ReturnTypes: []wasm.ValueType{wasm.ValueTypeI32}}
	mc := testModuleContext([]wasm.FunctionSig{*sig}, []wasm.Function{{Sig: sig}})

	body := []disasm.Instr{
		instr(ops.GetLocal, uint32(0)),
		instr(ops.End),
	}
	fn := compile(t, mc, sig, nil, body)
	exit := fn.Blocks()[len(fn.Blocks())-1]
	if !exit.Terminated() {
		t.Error("exit block not terminated on fallthrough")
	}
}

// A function with an explicit early `return` followed by the function's
// own closing `end` must not double-close the function-level frame.
func TestCompileExplicitReturnThenEnd(t *testing.T) {
	sig := &wasm.FunctionSig{ParamTypes: []wasm.ValueType{wasm.ValueTypeI32}, ReturnTypes: []wasm.ValueType{wasm.ValueTypeI32}}
	mc := testModuleContext([]wasm.FunctionSig{*sig}, []wasm.Function{{Sig: sig}})

	body := []disasm.Instr{
		instr(ops.GetLocal, uint32(0)),
		instr(ops.Return),
		instr(ops.End),
	}
	fn := compile(t, mc, sig, nil, body)
	exit := fn.Blocks()[len(fn.Blocks())-1]
	if !exit.Terminated() {
		t.Error("exit block not terminated")
	}
}

// A void function (no result) must not attempt to pop a return value.
func TestCompileVoidFunction(t *testing.T) {
	sig := &wasm.FunctionSig{}
	mc := testModuleContext([]wasm.FunctionSig{*sig}, []wasm.Function{{Sig: sig}})

	body := []disasm.Instr{
		instr(ops.End),
	}
	fn := compile(t, mc, sig, nil, body)
	exit := fn.Blocks()[len(fn.Blocks())-1]
	if !exit.Terminated() {
		t.Error("exit block not terminated")
	}
}

// A direct call resolves through FuncCodePointers and pops exactly its
// declared argument count.
func TestCompileDirectCall(t *testing.T) {
	calleeSig := wasm.FunctionSig{ParamTypes: []wasm.ValueType{wasm.ValueTypeI32, wasm.ValueTypeI32}, ReturnTypes: []wasm.ValueType{wasm.ValueTypeI32}}
	sig := &wasm.FunctionSig{ReturnTypes: []wasm.ValueType{wasm.ValueTypeI32}}
	mc := testModuleContext([]wasm.FunctionSig{calleeSig, *sig}, []wasm.Function{{Sig: &calleeSig}, {Sig: sig}})
	mc.FuncCodePointers = []ir.CodePointer{{Addr: 0x3000}, {}}

	body := []disasm.Instr{
		instr(ops.I32Const, int32(1)),
		instr(ops.I32Const, int32(2)),
		instr(ops.Call, uint32(0)),
		instr(ops.End),
	}
	compile(t, mc, sig, nil, body)
}

// Calling a target with no resolved code pointer is a lowering error.
func TestCompileDirectCallUnresolvedCodePointer(t *testing.T) {
	calleeSig := wasm.FunctionSig{ReturnTypes: []wasm.ValueType{wasm.ValueTypeI32}}
	sig := &wasm.FunctionSig{ReturnTypes: []wasm.ValueType{wasm.ValueTypeI32}}
	mc := testModuleContext([]wasm.FunctionSig{calleeSig, *sig}, []wasm.Function{{Sig: &calleeSig}, {Sig: sig}})
	// FuncCodePointers deliberately left empty.

	body := []disasm.Instr{
		instr(ops.Call, uint32(0)),
		instr(ops.End),
	}
	mod := ir.NewModule()
	if _, err := mc.CompileFunction(mod, 0, sig, nil, body); err == nil {
		t.Error("CompileFunction with unresolved call target = nil error, want error")
	}
}
