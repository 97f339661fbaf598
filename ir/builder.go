// Copyright 2019 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ir

import (
	"fmt"

	"github.com/twitchyliquid64/golang-asm/obj"
	"github.com/twitchyliquid64/golang-asm/obj/x86"
)

// Builder is the per-function typed builder the lowering visitor drives.
// It owns no state beyond a reference to the Func being built and its
// current insertion point; Values, Joins, and BasicBlocks all carry their
// own back-reference to the same Func.
type Builder struct {
	fn *Func
}

// NewBuilder returns a Builder for fn, with the insertion point at fn's
// entry block.
func NewBuilder(fn *Func) *Builder {
	return &Builder{fn: fn}
}

// Func returns the function being built.
func (b *Builder) Func() *Func { return b.fn }

// CreateBlock creates a new, empty basic block not yet reachable from
// anywhere. The caller links it in via CreateBranch/CreateCondBranch/
// CreateSwitch and must SetInsertPoint to it before emitting into it.
func (b *Builder) CreateBlock(name string) *BasicBlock {
	blk := newBlock(b.fn, fmt.Sprintf("%s.%d", name, len(b.fn.blocks)))
	b.fn.blocks = append(b.fn.blocks, blk)
	return blk
}

// SetInsertPoint moves the builder's insertion point to blk. Subsequent
// Emit calls append to blk.
func (b *Builder) SetInsertPoint(blk *BasicBlock) {
	b.fn.cur = blk
}

// CurrentBlock returns the block new instructions are currently appended
// to.
func (b *Builder) CurrentBlock() *BasicBlock {
	return b.fn.cur
}

// BranchWeights is an optional profiling hint attached to a conditional
// branch. It never changes emitted semantics, only (in a backend that
// honors it) block layout and prediction hints.
type BranchWeights struct {
	True, False uint32
}

// LikelyTrue and LikelyFalse are the two branch-weight hints the module
// emission context resolves once per module and threads through to every
// sandboxing check the lowering visitor emits (e.g. a call_indirect
// bounds check is expected to be taken rarely: LikelyFalse on the taken
// edge).
var (
	LikelyTrue  = BranchWeights{True: 2000, False: 1}
	LikelyFalse = BranchWeights{True: 1, False: 2000}
)

func (fn *Func) recordJump(as obj.As, target *BasicBlock) {
	p := fn.newProg()
	p.prog.As = as
	p.prog.To.Type = obj.TYPE_BRANCH
	fn.emit(p)
	fn.cur.pendingJumps = append(fn.cur.pendingJumps, &pendingJump{prog: p, target: target})
}

// CreateBranch emits an unconditional branch to target and terminates the
// current block.
func (b *Builder) CreateBranch(target *BasicBlock) {
	cur := b.fn.cur
	cur.recordJump(x86.AJMP, target)
	cur.terminated = true
}

func (blk *BasicBlock) recordJump(as obj.As, target *BasicBlock) {
	blk.fn.cur = blk
	blk.fn.recordJump(as, target)
}

// CreateCondBranch pops a 1-bit predicate value (produced by a prior
// comparison or an explicit non-zero test) and branches to ifTrue or
// ifFalse accordingly, terminating the current block. weights is an
// optional (non-zero) profiling hint.
func (b *Builder) CreateCondBranch(cond Value, ifTrue, ifFalse *BasicBlock, weights BranchWeights) {
	fn := b.fn
	fn.popStack(x86.REG_AX)
	cmp := fn.newProg()
	cmp.prog.As = x86.ACMPQ
	cmp.prog.From.Type = obj.TYPE_REG
	cmp.prog.From.Reg = x86.REG_AX
	cmp.prog.To.Type = obj.TYPE_CONST
	cmp.prog.To.Offset = 0
	fn.emit(cmp)

	jz := fn.newProg()
	jz.prog.As = x86.AJEQ
	jz.prog.To.Type = obj.TYPE_BRANCH
	fn.emit(jz)
	fn.cur.pendingJumps = append(fn.cur.pendingJumps, &pendingJump{prog: jz, target: ifFalse})

	fn.recordJump(x86.AJMP, ifTrue)
	fn.cur.terminated = true
}

// SwitchCase is one (value, target) pair of an indexed branch.
type SwitchCase struct {
	Value int64
	Block *BasicBlock
}

// CreateSwitch pops an i32 index and branches to cases[index].Block, or
// to def if the index matches no case (including out-of-range indices) —
// the bytecode's br_table semantics, where case values are always the
// dense range [0, len(cases)) supplied by the lowering visitor.
func (b *Builder) CreateSwitch(index Value, def *BasicBlock, cases []SwitchCase) {
	fn := b.fn
	fn.popStack(x86.REG_AX)
	for _, c := range cases {
		cmp := fn.newProg()
		cmp.prog.As = x86.ACMPQ
		cmp.prog.From.Type = obj.TYPE_REG
		cmp.prog.From.Reg = x86.REG_AX
		cmp.prog.To.Type = obj.TYPE_CONST
		cmp.prog.To.Offset = c.Value
		fn.emit(cmp)

		je := fn.newProg()
		je.prog.As = x86.AJEQ
		je.prog.To.Type = obj.TYPE_BRANCH
		fn.emit(je)
		fn.cur.pendingJumps = append(fn.cur.pendingJumps, &pendingJump{prog: je, target: c.Block})
	}
	fn.recordJump(x86.AJMP, def)
	fn.cur.terminated = true
}

// CreateUnreachable emits a call to the host's unreachable_trap intrinsic
// followed by a terminator; see hostabi.Intrinsics.UnreachableTrap.
func (b *Builder) CreateUnreachable(trapFn CodePointer) {
	b.emitIntrinsicCall(trapFn, 0, None)
	p := b.fn.newProg()
	p.prog.As = obj.AUNDEF
	b.fn.emit(p)
	b.fn.cur.terminated = true
}

// CreateReturn pops a result (if hasResult) into the ABI return register
// and emits a return, terminating the current block. The caller is
// responsible for having already branched every other exit path to the
// single return block this is emitted into, per spec.md's "return block
// dominating all returns" contract.
func (b *Builder) CreateReturn(hasResult bool) {
	fn := b.fn
	if hasResult {
		fn.popStack(x86.REG_AX)
	}
	p := fn.newProg()
	p.prog.As = obj.ARET
	fn.emit(p)
	fn.cur.terminated = true
}
