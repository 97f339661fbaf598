// Copyright 2019 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jit

import (
	"fmt"

	"github.com/go-interpreter/wagon-jit/ir"
	"github.com/go-interpreter/wagon-jit/wasm"
)

// callArity returns (numArgs, resultType) for the wasm function-index
// space entry at idx, consulting the module's type section through its
// FunctionIndexSpace the way the rest of ModuleContext resolves
// signatures.
func (mc *ModuleContext) callArity(idx uint32) (int, ir.Type, error) {
	fis := mc.Module.FunctionIndexSpace
	if int(idx) >= len(fis) {
		return 0, ir.None, fmt.Errorf("jit: call target %d out of range (have %d functions)", idx, len(fis))
	}
	sig := fis[idx].Sig
	rt := ir.None
	if len(sig.ReturnTypes) > 0 {
		rt = TypeOf(sig.ReturnTypes[0])
	}
	return len(sig.ParamTypes), rt, nil
}

func (l *lowering) visitCall(idx uint32) error {
	numArgs, resultType, err := l.mc.callArity(idx)
	if err != nil {
		return err
	}
	if l.fs.unreachable {
		l.fs.truncateToHeight(max0(len(l.fs.stack) - numArgs))
		l.fs.push(resultType)
		if resultType == ir.None {
			l.fs.pop()
		}
		return nil
	}
	l.fs.popN(numArgs)
	if int(idx) >= len(l.mc.FuncCodePointers) {
		return fmt.Errorf("jit: call target %d has no resolved code pointer", idx)
	}
	l.b.CreateCall(l.mc.FuncCodePointers[idx], numArgs, resultType)
	if resultType != ir.None {
		l.fs.push(resultType)
	}
	return nil
}

// visitCallIndirect takes the callee's type index from the instruction's
// immediates (the reserved table-index byte, always zero in wasm1, is not
// read), then emits a bounds- and signature-checked
// load of the table slot's code pointer ahead of the call.
func (l *lowering) visitCallIndirect(typeIndex uint32) error {
	sig, err := l.mc.typeByIndex(typeIndex)
	if err != nil {
		return err
	}
	numArgs := len(sig.ParamTypes)
	resultType := ir.None
	if len(sig.ReturnTypes) > 0 {
		resultType = TypeOf(sig.ReturnTypes[0])
	}

	if l.fs.unreachable {
		l.fs.pop() // table index
		l.fs.truncateToHeight(max0(len(l.fs.stack) - numArgs))
		if resultType != ir.None {
			l.fs.push(resultType)
		}
		return nil
	}

	// Operand order on both the runtime stack and fs's type tracker is
	// args..., index (index pushed last, on top). CreateCheckedTableLoad
	// consumes the index and leaves a code pointer in its place;
	// CreateCallThroughRegister then consumes that code pointer followed
	// by the args beneath it — so fs only drops the index's type here,
	// and drops the args' types after the call, mirroring the runtime
	// pop order exactly.
	l.fs.pop() // table element index
	l.b.CreateCheckedTableLoad(l.mc.TableSite, typeIndex, l.mc.Intrinsics.IndirectCallOOBTrap, l.mc.Intrinsics.IndirectCallSignatureMismatch)
	l.b.CreateCallThroughRegister(numArgs, resultType)
	l.fs.popN(numArgs)
	if resultType != ir.None {
		l.fs.push(resultType)
	}
	return nil
}

func (mc *ModuleContext) typeByIndex(idx uint32) (*wasm.FunctionSig, error) {
	if int(idx) >= len(mc.Module.Types.Entries) {
		return nil, fmt.Errorf("jit: call_indirect type index %d out of range", idx)
	}
	return &mc.Module.Types.Entries[idx], nil
}

func max0(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
