// Copyright 2019 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ir

import (
	"github.com/twitchyliquid64/golang-asm/obj"
	"github.com/twitchyliquid64/golang-asm/obj/x86"
)

// tableSlotSize is the indirect-call table's per-element physical layout
// (calltable.slot: TypeTag, CodePointer, each a uint64), duplicated here
// rather than imported so the backend-IR facade stays free of a
// dependency on the runtime table package it is generating accesses
// into — the two are grounded on the same WAVM Table.cpp layout
// independently.
const tableSlotSize = 16

// TableCallSite bundles the resolved, module-lifetime-stable addresses a
// checked call_indirect needs: the indirect-call table's base address
// (calltable.Table.BaseAddress) and the address of its published element
// count. Both are baked in once per module by package jit's
// ModuleContext, which owns the calltable.Table instance.
type TableCallSite struct {
	BaseAddr        uint64
	NumElementsAddr uint64
}

// CreateCheckedTableLoad pops an i32 element index, traps via oobTrap if
// it is out of range against the table's current element count, traps
// via sigMismatchTrap if the slot's recorded type tag doesn't match
// expectedSig, and otherwise pushes the slot's code pointer — ready for
// CreateCallThroughRegister. Grounded on WAVM's Table::getElement bounds
// and tag validation (Source/Runtime/Table.cpp).
func (b *Builder) CreateCheckedTableLoad(site TableCallSite, expectedSig uint32, oobTrap, sigMismatchTrap CodePointer) Value {
	fn := b.fn
	fn.popStack(x86.REG_AX) // element index
	// The index is consumed (shifted into an offset) below; stash the
	// original value for indirect_call_signature_mismatch's first arg.
	fn.emitRegReg(x86.AMOVQ, x86.REG_DI, x86.REG_AX)

	fn.emitRegConst(x86.AMOVQ, x86.REG_DX, int64(site.NumElementsAddr))
	loadCount := fn.newProg()
	loadCount.prog.As = x86.AMOVL
	loadCount.prog.From.Type = obj.TYPE_MEM
	loadCount.prog.From.Reg = x86.REG_DX
	loadCount.prog.To.Type = obj.TYPE_REG
	loadCount.prog.To.Reg = x86.REG_DX
	fn.emit(loadCount)

	cmpBound := fn.newProg()
	cmpBound.prog.As = x86.ACMPL
	cmpBound.prog.From.Type = obj.TYPE_REG
	cmpBound.prog.From.Reg = x86.REG_AX
	cmpBound.prog.To.Type = obj.TYPE_REG
	cmpBound.prog.To.Reg = x86.REG_DX
	fn.emit(cmpBound)

	jb := fn.newProg() // AX < DX (unsigned): in range, skip the trap
	jb.prog.As = x86.AJCS
	jb.prog.To.Type = obj.TYPE_BRANCH
	fn.emit(jb)
	fn.loadCodePointerConst(oobTrap, x86.REG_BX)
	callOOB := fn.newProg()
	callOOB.prog.As = obj.ACALL
	callOOB.prog.To.Type = obj.TYPE_REG
	callOOB.prog.To.Reg = x86.REG_BX
	fn.emit(callOOB)
	undef1 := fn.newProg()
	undef1.prog.As = obj.AUNDEF
	fn.emit(undef1)

	// In-range path: slot address = base + index*tableSlotSize.
	shl := fn.newProg()
	shl.prog.As = x86.ASHLQ
	shl.prog.To.Type = obj.TYPE_REG
	shl.prog.To.Reg = x86.REG_AX
	shl.prog.From.Type = obj.TYPE_CONST
	shl.prog.From.Offset = 4 // log2(tableSlotSize)
	fn.emit(shl)
	jb.prog.Pcond = shl.prog

	fn.emitRegConst(x86.AMOVQ, x86.REG_CX, int64(site.BaseAddr))
	fn.emitRegReg(x86.AADDQ, x86.REG_CX, x86.REG_AX) // CX = slot address

	loadTag := fn.newProg()
	loadTag.prog.As = x86.AMOVQ
	loadTag.prog.From.Type = obj.TYPE_MEM
	loadTag.prog.From.Reg = x86.REG_CX
	loadTag.prog.From.Offset = 0
	loadTag.prog.To.Type = obj.TYPE_REG
	loadTag.prog.To.Reg = x86.REG_DX
	fn.emit(loadTag)

	cmpTag := fn.newProg()
	cmpTag.prog.As = x86.ACMPQ
	cmpTag.prog.From.Type = obj.TYPE_REG
	cmpTag.prog.From.Reg = x86.REG_DX
	cmpTag.prog.To.Type = obj.TYPE_CONST
	cmpTag.prog.To.Offset = int64(expectedSig)
	fn.emit(cmpTag)

	je := fn.newProg()
	je.prog.As = x86.AJEQ
	je.prog.To.Type = obj.TYPE_BRANCH
	fn.emit(je)
	// indirect_call_signature_mismatch(index i32, observed_type_tag i64,
	// table_handle i64): DX already holds the slot's tag from loadTag
	// above, so only the index and table handle need moving into place.
	// This path never returns (it ends in AUNDEF), so clobbering CX (the
	// slot address, no longer needed) for the table handle is safe.
	fn.emitRegReg(x86.AMOVQ, x86.REG_SI, x86.REG_DI)
	fn.emitRegConst(x86.AMOVQ, x86.REG_CX, int64(site.BaseAddr))
	fn.loadCodePointerConst(sigMismatchTrap, x86.REG_BX)
	callSig := fn.newProg()
	callSig.prog.As = obj.ACALL
	callSig.prog.To.Type = obj.TYPE_REG
	callSig.prog.To.Reg = x86.REG_BX
	fn.emit(callSig)
	undef2 := fn.newProg()
	undef2.prog.As = obj.AUNDEF
	fn.emit(undef2)

	loadPtr := fn.newProg()
	loadPtr.prog.As = x86.AMOVQ
	loadPtr.prog.From.Type = obj.TYPE_MEM
	loadPtr.prog.From.Reg = x86.REG_CX
	loadPtr.prog.From.Offset = 8
	loadPtr.prog.To.Type = obj.TYPE_REG
	loadPtr.prog.To.Reg = x86.REG_AX
	fn.emit(loadPtr)
	je.prog.Pcond = loadPtr.prog

	fn.pushStack(x86.REG_AX)
	return Value{typ: I64}
}
