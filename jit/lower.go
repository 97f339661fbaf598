// Copyright 2019 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jit

import (
	"fmt"

	"github.com/go-interpreter/wagon-jit/disasm"
	"github.com/go-interpreter/wagon-jit/ir"
	"github.com/go-interpreter/wagon-jit/wasm"
	ops "github.com/go-interpreter/wagon-jit/wasm/operators"
)

// lowering is the per-function visitor state: the module-wide resolved
// addresses (mc), the builder emitting into the function currently
// being compiled (b), and the operand/control tracker (fs).
type lowering struct {
	mc  *ModuleContext
	b   *ir.Builder
	fs  *funcState
	sig *wasm.FunctionSig

	// localTypes is the declared type of every non-parameter local, in
	// declaration order; see CompileFunction's doc comment.
	localTypes []ir.Type
}

// run lowers body into l.b's function. The implicit outermost block is
// pushed as a control frame of its own, sharing the function's single
// exit block as both its branch target and its end block; falling off
// the end of the function then behaves exactly like an explicit
// `return` into that frame. Every bytecode function body is itself
// terminated by an `end` operator closing that implicit block (the
// same encoding a nested `block`/`if`/`loop` uses), so the decoded
// stream's own trailing End instruction — dispatched through the usual
// step/visitEnd path below — is what actually pops this frame, forwards
// its result through the join (or synthesizes a typed zero if nothing
// reachable ever fed it), and leaves the insertion point at exit. run
// only has to emit the final return once that has happened.
func (l *lowering) run(body []disasm.Instr, resultType ir.Type) error {
	exit := l.b.CreateBlock("exit")
	l.fs.pushControl(frameBlock, resultType, exit, exit)

	for _, instr := range body {
		if err := l.step(instr); err != nil {
			return fmt.Errorf("instruction %d (%s): %w", instr.Index, instr.Op.Name, err)
		}
	}

	if len(l.fs.frames) != 0 {
		panic(fmt.Sprintf("jit: function body ended with %d unclosed control frame(s)", len(l.fs.frames)))
	}
	l.b.SetInsertPoint(exit)
	l.b.CreateReturn(resultType != ir.None)
	return nil
}

// step dispatches a single instruction. While l.fs.unreachable is set,
// every case still tracks control-frame nesting (block/loop/if/else/end
// must stay balanced) but emits no code — this is the "unreachable skip
// visitor" the package doc describes, folded into the main dispatch as
// a guard rather than a second visitor type, since every branch here
// already has to know its own stack effect regardless.
func (l *lowering) step(instr disasm.Instr) error {
	switch instr.Op.Code {
	case ops.Block, ops.Loop, ops.If:
		return l.visitBlockLike(instr)
	case ops.Else:
		return l.visitElse()
	case ops.End:
		return l.visitEnd()
	case ops.Unreachable:
		if !l.fs.unreachable {
			l.b.CreateUnreachable(l.mc.Intrinsics.UnreachableTrap)
		}
		l.fs.unreachable = true
		return nil
	case ops.Br:
		return l.visitBr(instr.Immediates[0].(uint32))
	case ops.BrIf:
		return l.visitBrIf(instr.Immediates[0].(uint32))
	case ops.BrTable:
		return l.visitBrTable(instr)
	case ops.Return:
		return l.visitReturn()
	case ops.Drop:
		if !l.fs.unreachable {
			l.fs.pop()
		}
		return nil
	case ops.Select:
		return l.visitSelect()
	case ops.Call:
		return l.visitCall(instr.Immediates[0].(uint32))
	case ops.CallIndirect:
		return l.visitCallIndirect(instr.Immediates[0].(uint32))
	case ops.GetLocal:
		return l.visitGetLocal(instr.Immediates[0].(uint32))
	case ops.SetLocal:
		return l.visitSetLocal(instr.Immediates[0].(uint32))
	case ops.TeeLocal:
		return l.visitTeeLocal(instr.Immediates[0].(uint32))
	case ops.GetGlobal:
		return l.visitGetGlobal(instr.Immediates[0].(uint32))
	case ops.SetGlobal:
		return l.visitSetGlobal(instr.Immediates[0].(uint32))
	case ops.I32Const:
		return l.visitConst(ir.I32, uint64(uint32(instr.Immediates[0].(int32))))
	case ops.I64Const:
		return l.visitConst(ir.I64, uint64(instr.Immediates[0].(int64)))
	case ops.F32Const:
		return l.visitConst(ir.F32, uint64(floatBitsOf32(instr.Immediates[0])))
	case ops.F64Const:
		return l.visitConst(ir.F64, floatBitsOf64(instr.Immediates[0]))
	case ops.CurrentMemory:
		return l.visitCurrentMemory()
	case ops.GrowMemory:
		return l.visitGrowMemory()
	}

	if isLoadOp(instr.Op.Code) {
		return l.visitLoad(instr)
	}
	if isStoreOp(instr.Op.Code) {
		return l.visitStore(instr)
	}
	if h, ok := numericHandlers[instr.Op.Code]; ok {
		return h(l)
	}
	return fmt.Errorf("jit: unhandled operator %s (0x%x)", instr.Op.Name, instr.Op.Code)
}

func floatBitsOf32(v interface{}) uint32 {
	f := v.(float32)
	return float32bits(f)
}
func floatBitsOf64(v interface{}) uint64 {
	f := v.(float64)
	return float64bits(f)
}

func (l *lowering) visitConst(t ir.Type, bits uint64) error {
	if l.fs.unreachable {
		l.fs.push(t)
		return nil
	}
	l.b.CreateConst(t, bits)
	l.fs.push(t)
	return nil
}

func (l *lowering) visitGetLocal(idx uint32) error {
	t := l.localType(idx)
	if !l.fs.unreachable {
		l.b.CreateGetLocal(int(idx), t)
	}
	l.fs.push(t)
	return nil
}

func (l *lowering) visitSetLocal(idx uint32) error {
	l.fs.pop()
	if !l.fs.unreachable {
		l.b.CreateSetLocal(int(idx))
	}
	return nil
}

func (l *lowering) visitTeeLocal(idx uint32) error {
	t := l.fs.top()
	if !l.fs.unreachable {
		l.b.CreateTeeLocal(int(idx))
	}
	_ = t
	return nil
}

func (l *lowering) localType(idx uint32) ir.Type {
	if int(idx) < len(l.sig.ParamTypes) {
		return TypeOf(l.sig.ParamTypes[idx])
	}
	i := int(idx) - len(l.sig.ParamTypes)
	if i < len(l.localTypes) {
		return l.localTypes[i]
	}
	// Out of range only if the source wasn't validated; validation
	// guarantees every local index a function body references is
	// declared either as a parameter or in its locals vector.
	return ir.I32
}

func (l *lowering) visitGetGlobal(idx uint32) error {
	t := ir.I32
	if int(idx) < len(l.mc.GlobalTypes) {
		t = l.mc.GlobalTypes[idx]
	}
	if !l.fs.unreachable {
		l.b.CreateGetGlobal(int(idx), t)
	}
	l.fs.push(t)
	return nil
}

func (l *lowering) visitSetGlobal(idx uint32) error {
	l.fs.pop()
	if !l.fs.unreachable {
		l.b.CreateSetGlobal(int(idx))
	}
	return nil
}

func (l *lowering) visitCurrentMemory() error {
	if !l.fs.unreachable {
		l.b.CreateCurrentMemory(l.mc.Intrinsics.CurrentMemory)
	}
	l.fs.push(ir.I32)
	return nil
}

func (l *lowering) visitGrowMemory() error {
	l.fs.pop()
	if !l.fs.unreachable {
		l.b.CreateGrowMemory(l.mc.Intrinsics.GrowMemory)
	}
	l.fs.push(ir.I32)
	return nil
}

func (l *lowering) visitSelect() error {
	l.fs.pop() // condition
	falseType := l.fs.pop()
	trueType := l.fs.pop()
	t := trueType
	if t == ir.None {
		t = falseType
	}
	if !l.fs.unreachable {
		l.b.CreateSelect(t)
	}
	l.fs.push(t)
	return nil
}
