// Copyright 2019 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jit

import (
	"github.com/go-interpreter/wagon-jit/disasm"
	"github.com/go-interpreter/wagon-jit/ir"
	"github.com/go-interpreter/wagon-jit/wasm"
	ops "github.com/go-interpreter/wagon-jit/wasm/operators"
)

func blockResultType(bt wasm.BlockType) ir.Type {
	if bt == wasm.BlockTypeEmpty {
		return ir.None
	}
	return TypeOf(wasm.ValueType(bt))
}

type lowerError struct{ msg string }

func (e *lowerError) Error() string { return "jit: " + e.msg }

func lowerErrorf(msg string) error { return &lowerError{msg} }

var (
	errUnexpectedElse = lowerErrorf("else without matching if")
	errDuplicateElse  = lowerErrorf("duplicate else for the same if")
)

// visitBlockLike opens a block, loop, or if frame. All three share the
// same entry bookkeeping (a fresh result join, a new operand-stack
// baseline); they differ only in what branchTarget/end resolve to and,
// for if, whether the condition gates entry at all.
func (l *lowering) visitBlockLike(instr disasm.Instr) error {
	rt := blockResultType(instr.Immediates[0].(wasm.BlockType))

	switch instr.Op.Code {
	case ops.Block:
		end := l.b.CreateBlock("block.end")
		l.fs.pushControl(frameBlock, rt, end, end)
		return nil

	case ops.Loop:
		header := l.b.CreateBlock("loop.header")
		end := l.b.CreateBlock("loop.end")
		if !l.fs.unreachable {
			l.b.CreateBranch(header)
		}
		l.b.SetInsertPoint(header)
		cf := l.fs.pushControl(frameLoop, rt, header, end)
		// A branch to a loop always has arity 0 (it targets the header,
		// not the end) regardless of the loop's declared result type;
		// only the fallthrough path at the matching `end` feeds cf.join.
		cf.branchJoin = nil
		return nil

	case ops.If:
		thenBlk := l.b.CreateBlock("if.then")
		elseBlk := l.b.CreateBlock("if.else_or_end")
		end := l.b.CreateBlock("if.end")
		condType := l.fs.pop()
		if !l.fs.unreachable {
			l.b.CreateCondBranch(ir.ValueOf(condType), thenBlk, elseBlk, ir.BranchWeights{})
		}
		l.b.SetInsertPoint(thenBlk)
		cf := l.fs.pushControl(frameIf, rt, end, end)
		cf.elseBlk = elseBlk
		return nil
	}
	return nil
}

// visitElse closes an if's then-arm and opens its else-arm, both sharing
// the frame opened by the matching If.
func (l *lowering) visitElse() error {
	cf := l.fs.currentFrame()
	if cf.kind != frameIf {
		return errUnexpectedElse
	}
	if cf.elseSeen {
		return errDuplicateElse
	}
	cf.elseSeen = true

	if !l.fs.unreachable && cf.join != nil {
		t := l.fs.pop()
		cf.join.AddIncoming(ir.ValueOf(t), l.b.CurrentBlock())
	}
	if !l.b.CurrentBlock().Terminated() {
		l.b.CreateBranch(cf.end)
	}

	l.fs.truncateToHeight(cf.stackHeight)
	l.fs.unreachable = false
	l.b.SetInsertPoint(cf.elseBlk)
	return nil
}

// visitEnd closes the current frame, merging its result (if any) into the
// join and resuming emission in the frame's end block.
func (l *lowering) visitEnd() error {
	cf := l.fs.popControl()

	if !l.fs.unreachable && cf.join != nil {
		t := l.fs.pop()
		cf.join.AddIncoming(ir.ValueOf(t), l.b.CurrentBlock())
	}
	if !l.b.CurrentBlock().Terminated() {
		l.b.CreateBranch(cf.end)
	}

	if cf.kind == frameIf && !cf.elseSeen {
		// No else arm: the condition's false edge lands in elseBlk,
		// which for a value-less if just falls straight through to end.
		l.b.SetInsertPoint(cf.elseBlk)
		l.b.CreateBranch(cf.end)
	}

	l.b.SetInsertPoint(cf.end)
	l.fs.truncateToHeight(cf.stackHeight)
	l.fs.unreachable = false
	if cf.join != nil {
		// A join with no incoming was never fed from any reachable
		// predecessor (the frame's body was entered unreachable and
		// stayed that way) — it's dead code that must still type-check
		// downstream, so synthesize a typed zero instead of reading an
		// uninitialized join slot.
		if cf.join.NumIncoming() > 0 {
			cf.join.Read()
		} else {
			l.b.CreateConst(cf.resultType, 0)
		}
		l.fs.push(cf.resultType)
	}
	return nil
}

// visitBr unconditionally transfers control to the frame at depth,
// forwarding that frame's result (if any) through its join first.
func (l *lowering) visitBr(depth uint32) error {
	if l.fs.unreachable {
		return nil
	}
	cf := l.fs.frameAtDepth(depth)
	l.forwardBranchValue(cf)
	l.b.CreateBranch(cf.branchTarget)
	l.fs.unreachable = true
	return nil
}

// visitBrIf pops a condition and conditionally transfers to the frame at
// depth, falling through otherwise. Per bytecode semantics the frame's
// argument (if any) is peeked, not popped, since the fallthrough path
// still needs it on the stack.
func (l *lowering) visitBrIf(depth uint32) error {
	if l.fs.unreachable {
		return nil
	}
	condType := l.fs.pop()

	cf := l.fs.frameAtDepth(depth)
	if cf.branchJoin != nil {
		cf.branchJoin.AddIncomingPeek(ir.ValueOf(l.fs.top()), l.b.CurrentBlock())
	}

	fallthroughBlk := l.b.CreateBlock("br_if.fallthrough")
	l.b.CreateCondBranch(ir.ValueOf(condType), cf.branchTarget, fallthroughBlk, ir.LikelyFalse)
	l.b.SetInsertPoint(fallthroughBlk)
	return nil
}

// visitBrTable pops an index and transfers to targets[index], or to the
// default target if index is out of range.
func (l *lowering) visitBrTable(instr disasm.Instr) error {
	if l.fs.unreachable {
		return nil
	}
	count := int(instr.Immediates[0].(uint32))
	targets := make([]uint32, count)
	for i := 0; i < count; i++ {
		targets[i] = instr.Immediates[1+i].(uint32)
	}
	defaultDepth := instr.Immediates[1+count].(uint32)

	indexType := l.fs.pop()

	seen := make(map[*controlFrame]bool)
	peekJoin := func(cf *controlFrame) {
		if cf.branchJoin != nil && !seen[cf] {
			cf.branchJoin.AddIncomingPeek(ir.ValueOf(l.fs.top()), l.b.CurrentBlock())
			seen[cf] = true
		}
	}

	defCf := l.fs.frameAtDepth(defaultDepth)
	peekJoin(defCf)
	cases := make([]ir.SwitchCase, count)
	for i, depth := range targets {
		cf := l.fs.frameAtDepth(depth)
		peekJoin(cf)
		cases[i] = ir.SwitchCase{Value: int64(i), Block: cf.branchTarget}
	}
	l.b.CreateSwitch(ir.ValueOf(indexType), defCf.branchTarget, cases)
	l.fs.unreachable = true
	return nil
}

// visitReturn unconditionally transfers to the function's single exit
// frame (the outermost frame run() pushed), forwarding the function's
// result if it has one.
func (l *lowering) visitReturn() error {
	if l.fs.unreachable {
		return nil
	}
	cf := l.fs.frameAtDepth(uint32(len(l.fs.frames) - 1))
	l.forwardBranchValue(cf)
	l.b.CreateBranch(cf.branchTarget)
	l.fs.unreachable = true
	return nil
}

// forwardBranchValue pops and stores cf's result into its branch join,
// if it has one; br/return's forwarding semantics (the branch consumes
// the value, unlike br_if/br_table's peek). A branch to a loop frame
// has no branchJoin (see controlFrame.branchJoin) and pops nothing: a
// loop's branch target is always arity 0 independent of its declared
// result type.
func (l *lowering) forwardBranchValue(cf *controlFrame) {
	if cf.branchJoin == nil {
		return
	}
	t := l.fs.pop()
	cf.branchJoin.AddIncoming(ir.ValueOf(t), l.b.CurrentBlock())
}
