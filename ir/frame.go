// Copyright 2019 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ir

import (
	asm "github.com/twitchyliquid64/golang-asm"
	"github.com/twitchyliquid64/golang-asm/obj"
	"github.com/twitchyliquid64/golang-asm/obj/x86"
)

// Details of the AMD64 realization of the facade, following the
// reference backend's reserved-register discipline:
//  - R10 - pointer to the runtime operand-stack slice header
//  - R11 - pointer to the locals slice header
//  - R14 - pointer to the join-slot slice header (one extra reserved
//          register over the reference backend: joins need their own
//          backing store distinct from locals and the operand stack)
//  - R9  - pointer to the globals slice header
//  - R15 - linear-memory base address (regMemBase, memory.go)
// Scratch registers: RAX, RBX, RCX, RDX, R8, R12, R13.
//
// Every value — int or float — is carried as a raw 8-byte bit pattern,
// exactly as the reference interpreter's execution stack ([]uint64)
// stores floats via math.Float64bits. This keeps load/store helpers
// generic across Type without a separate floating-point register class.
const (
	regStack   = x86.REG_R10
	regLocals  = x86.REG_R11
	regJoins   = x86.REG_R14
	regGlobals = x86.REG_R9
)

// progNode wraps a single emitted instruction for sequencing purposes
// (BasicBlock.first/last, pendingJump targets). next threads the nodes
// of a single block together for diagnostic traversal (Module.String);
// golang-asm's own Prog.Link already threads the full function, but a
// second, block-scoped link keeps block printing simple.
type progNode struct {
	prog *obj.Prog
	next *progNode
}

// Func is one backend-IR function: an ordered set of basic blocks sharing
// a single golang-asm builder and frame layout.
type Func struct {
	name       string
	paramTypes []Type
	resultType Type

	asmBuilder *asm.Builder
	blocks     []*BasicBlock
	cur        *BasicBlock

	numLocals int
	numJoins  int

	// pseudoLine counts the instructions created by newProg. It is not
	// attached to any instruction: the emitted code carries no debug
	// info and no pseudo line numbers.
	pseudoLine int
}

// NewFunc allocates a Func with an empty entry block. paramTypes are the
// types of the function's parameters (locals 0..len(paramTypes)-1);
// resultType is None for a function with no result.
func NewFunc(name string, paramTypes []Type, resultType Type, numLocals int) (*Func, error) {
	b, err := asm.NewBuilder("amd64", 128)
	if err != nil {
		return nil, err
	}
	fn := &Func{
		name:       name,
		paramTypes: paramTypes,
		resultType: resultType,
		asmBuilder: b,
		numLocals:  numLocals,
	}
	entry := newBlock(fn, "entry")
	fn.blocks = append(fn.blocks, entry)
	fn.cur = entry
	return fn, nil
}

// Name returns the function's symbol name.
func (fn *Func) Name() string { return fn.name }

// Blocks returns the function's basic blocks in creation order, for
// diagnostics and tests.
func (fn *Func) Blocks() []*BasicBlock { return fn.blocks }

// NumJoins returns the number of join nodes allocated in the function,
// for diagnostics and tests.
func (fn *Func) NumJoins() int { return fn.numJoins }

func (fn *Func) newProg() *progNode {
	p := fn.asmBuilder.NewProg()
	fn.pseudoLine++
	return &progNode{prog: p}
}

func (fn *Func) emit(p *progNode) {
	fn.asmBuilder.AddInstruction(p.prog)
	fn.cur.append(p)
}

// emitRegMemMove is the shared shape behind every load/store helper
// below: MOVQ reg, offs(base) or MOVQ offs(base), reg.
func (fn *Func) emitRegMemMove(toReg bool, reg int16, base int16, offset int64) {
	p := fn.newProg()
	p.prog.As = x86.AMOVQ
	if toReg {
		p.prog.From.Type = obj.TYPE_MEM
		p.prog.From.Reg = base
		p.prog.From.Offset = offset
		p.prog.To.Type = obj.TYPE_REG
		p.prog.To.Reg = reg
	} else {
		p.prog.To.Type = obj.TYPE_MEM
		p.prog.To.Reg = base
		p.prog.To.Offset = offset
		p.prog.From.Type = obj.TYPE_REG
		p.prog.From.Reg = reg
	}
	fn.emit(p)
}

func (fn *Func) emitRegReg(as obj.As, dst, src int16) {
	p := fn.newProg()
	p.prog.As = as
	p.prog.To.Type = obj.TYPE_REG
	p.prog.To.Reg = dst
	p.prog.From.Type = obj.TYPE_REG
	p.prog.From.Reg = src
	fn.emit(p)
}

func (fn *Func) emitRegConst(as obj.As, dst int16, c int64) {
	p := fn.newProg()
	p.prog.As = as
	p.prog.To.Type = obj.TYPE_REG
	p.prog.To.Reg = dst
	p.prog.From.Type = obj.TYPE_CONST
	p.prog.From.Offset = c
	fn.emit(p)
}

// loadSliceBase loads the slice header's data pointer (first 8 bytes of
// the Go slice header shape the reference backend threads through: ptr,
// len, cap) out of the reserved register holding &slice into scratch.
func (fn *Func) loadSliceBase(sliceHeaderReg int16, scratch int16) {
	fn.emitRegMemMove(true, scratch, sliceHeaderReg, 0)
}

// --- runtime operand stack -------------------------------------------------

// pushStack appends the value in reg to the runtime operand stack,
// mirroring the reference backend's emitWasmStackPush.
func (fn *Func) pushStack(reg int16) {
	const scratchBase, scratchLen = x86.REG_R12, x86.REG_R13
	fn.loadSliceBase(regStack, scratchBase)
	fn.emitRegMemMove(true, scratchLen, regStack, 8)
	p := fn.newProg()
	p.prog.As = x86.ALEAQ
	p.prog.To.Type = obj.TYPE_REG
	p.prog.To.Reg = scratchBase
	p.prog.From.Type = obj.TYPE_MEM
	p.prog.From.Reg = scratchBase
	p.prog.From.Scale = 8
	p.prog.From.Index = scratchLen
	fn.emit(p)
	fn.emitRegMemMove(false, reg, scratchBase, 0)
	fn.emitRegConst(x86.AINCQ, scratchLen, 0)
	fn.emitRegMemMove(false, scratchLen, regStack, 8)
}

// popStack pops the top of the runtime operand stack into reg, mirroring
// emitWasmStackLoad but additionally shrinking the stack's length.
func (fn *Func) popStack(reg int16) {
	const scratchBase, scratchLen = x86.REG_R12, x86.REG_R13
	fn.emitRegMemMove(true, scratchLen, regStack, 8)
	fn.emitRegConst(x86.ADECQ, scratchLen, 0)
	fn.emitRegMemMove(false, scratchLen, regStack, 8)
	fn.loadSliceBase(regStack, scratchBase)
	p := fn.newProg()
	p.prog.As = x86.ALEAQ
	p.prog.To.Type = obj.TYPE_REG
	p.prog.To.Reg = scratchBase
	p.prog.From.Type = obj.TYPE_MEM
	p.prog.From.Reg = scratchBase
	p.prog.From.Scale = 8
	p.prog.From.Index = scratchLen
	fn.emit(p)
	fn.emitRegMemMove(true, reg, scratchBase, 0)
}

// peekStack reads the top of the runtime operand stack into reg without
// shrinking it — used by br_if, whose forwarded argument must remain on
// the stack for the fallthrough path.
func (fn *Func) peekStack(reg int16) {
	const scratchBase, scratchLen = x86.REG_R12, x86.REG_R13
	fn.emitRegMemMove(true, scratchLen, regStack, 8)
	fn.emitRegConst(x86.ADECQ, scratchLen, 0)
	fn.loadSliceBase(regStack, scratchBase)
	p := fn.newProg()
	p.prog.As = x86.ALEAQ
	p.prog.To.Type = obj.TYPE_REG
	p.prog.To.Reg = scratchBase
	p.prog.From.Type = obj.TYPE_MEM
	p.prog.From.Reg = scratchBase
	p.prog.From.Scale = 8
	p.prog.From.Index = scratchLen
	fn.emit(p)
	fn.emitRegMemMove(true, reg, scratchBase, 0)
}

// indexedLoad/indexedStore implement the shared shape behind local and
// join-slot accesses: a fixed, compile-time-constant index into the slice
// whose header pointer lives in sliceHeaderReg, following the reference
// backend's emitWasmLocalsLoad exactly (MOVQ index; MOVQ base, [hdr]; LEAQ
// base, [base+index*8]; MOVQ reg, [base]).
func (fn *Func) indexedLoad(sliceHeaderReg int16, index int, reg int16) {
	const scratchIdx, scratchBase = x86.REG_R12, x86.REG_R13
	fn.emitRegConst(x86.AMOVQ, scratchIdx, int64(index))
	fn.loadSliceBase(sliceHeaderReg, scratchBase)
	p := fn.newProg()
	p.prog.As = x86.ALEAQ
	p.prog.To.Type = obj.TYPE_REG
	p.prog.To.Reg = scratchBase
	p.prog.From.Type = obj.TYPE_MEM
	p.prog.From.Reg = scratchBase
	p.prog.From.Scale = 8
	p.prog.From.Index = scratchIdx
	fn.emit(p)
	fn.emitRegMemMove(true, reg, scratchBase, 0)
}

func (fn *Func) indexedStore(sliceHeaderReg int16, index int, reg int16) {
	const scratchIdx, scratchBase = x86.REG_R12, x86.REG_R13
	fn.emitRegConst(x86.AMOVQ, scratchIdx, int64(index))
	fn.loadSliceBase(sliceHeaderReg, scratchBase)
	p := fn.newProg()
	p.prog.As = x86.ALEAQ
	p.prog.To.Type = obj.TYPE_REG
	p.prog.To.Reg = scratchBase
	p.prog.From.Type = obj.TYPE_MEM
	p.prog.From.Reg = scratchBase
	p.prog.From.Scale = 8
	p.prog.From.Index = scratchIdx
	fn.emit(p)
	fn.emitRegMemMove(false, reg, scratchBase, 0)
}
