// Copyright 2019 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jit

import (
	"fmt"

	"github.com/go-interpreter/wagon-jit/ir"
)

// frameKind distinguishes the three structured-control shapes bytecode
// nests: plain blocks (entered once, branched-to-depth means "forward to
// end"), loops (branched-to-depth means "backward to header"), and ifs
// (which additionally track an else block created when the if opens).
type frameKind int

const (
	frameBlock frameKind = iota
	frameLoop
	frameIf
)

// controlFrame is one open block/loop/if, mirroring the reference
// frontend's controlFrame (see wazero's loweringState for the closest
// analogue in the retrieved corpus) but resolved directly against
// ir.BasicBlock/ir.Join instead of an intermediate SSA block list.
type controlFrame struct {
	kind frameKind

	// branchTarget is where a `br`/`br_if` targeting this depth jumps:
	// the loop header for frameLoop, the end block for frameBlock/frameIf.
	branchTarget *ir.BasicBlock

	// end is the block control resumes in once this frame's matching
	// `end` is reached; for a no-else frameIf the false condition goes
	// to elseBlk, which branches here.
	end *ir.BasicBlock

	resultType ir.Type
	join       *ir.Join // nil if resultType == ir.None

	// branchJoin is what a `br`/`br_if`/`br_table` targeting this frame
	// feeds, per spec's separate BranchTarget arity: for frameBlock/
	// frameIf a branch to depth and falling off the matching `end` merge
	// into the same result, so branchJoin is join itself. A loop's
	// branch target is its header, not its end — branching there is
	// always arity 0 regardless of the loop's declared result type, so
	// frameLoop clears this back to nil right after pushControl.
	branchJoin *ir.Join

	// stackHeight is the operand-stack depth when this frame was
	// entered, i.e. below any of the frame's own block-type arguments.
	stackHeight int

	// elseSeen marks that frameIf's `else` has already been processed,
	// so a second `else` is a lowering bug (the source wasn't validated,
	// or validation itself has a bug) rather than legal input.
	elseSeen bool

	// elseBlk is frameIf's condition-false target: reused as the else
	// arm's entry if an else is seen, or wired straight to end at the
	// matching `end` if not.
	elseBlk *ir.BasicBlock
}

// funcState tracks a single function's lowering: the typed operand
// stack and the open control-frame stack. Every push/pop assumes the
// bytecode has already passed structural validation outside this
// package — an imbalance here is a lowering defect, not malformed input, so
// methods panic instead of returning an error the caller would have no
// sane way to recover from mid-function.
type funcState struct {
	b      *ir.Builder
	stack  []ir.Type
	frames []*controlFrame

	// unreachable is set once an instruction makes the remainder of the
	// current frame statically dead (unreachable, br, br_table, return)
	// and cleared when the enclosing frame's `else`/`end` is reached.
	// While set, push/pop keep tracking operand types (pop yields
	// ir.None on an empty stack) but no ir code is emitted
	// for any operator the lowering visitor dispatches — see lower.go's
	// skip check.
	unreachable bool
}

func newFuncState(b *ir.Builder) *funcState {
	return &funcState{b: b}
}

func (fs *funcState) push(t ir.Type) { fs.stack = append(fs.stack, t) }

func (fs *funcState) pop() ir.Type {
	if len(fs.stack) == 0 {
		if fs.unreachable {
			// Popping past the bottom of the stack in unreachable code is
			// legal per bytecode's validation rules (the rest of the
			// block is polymorphic); synthesize a placeholder type.
			return ir.None
		}
		panic("jit: operand stack underflow")
	}
	t := fs.stack[len(fs.stack)-1]
	fs.stack = fs.stack[:len(fs.stack)-1]
	return t
}

func (fs *funcState) popN(n int) []ir.Type {
	out := make([]ir.Type, n)
	for i := n - 1; i >= 0; i-- {
		out[i] = fs.pop()
	}
	return out
}

func (fs *funcState) top() ir.Type {
	if len(fs.stack) == 0 {
		return ir.None
	}
	return fs.stack[len(fs.stack)-1]
}

// pushControl opens a new control frame of kind with result type rt,
// allocating its join (if rt != None) and the blocks the frame's
// branches and end resolve to.
func (fs *funcState) pushControl(kind frameKind, rt ir.Type, branchTarget, end *ir.BasicBlock) *controlFrame {
	var j *ir.Join
	if rt != ir.None {
		j = fs.b.CreateJoin(rt)
	}
	cf := &controlFrame{
		kind:         kind,
		branchTarget: branchTarget,
		end:          end,
		resultType:   rt,
		join:         j,
		branchJoin:   j,
		stackHeight:  len(fs.stack),
	}
	fs.frames = append(fs.frames, cf)
	return cf
}

// popControl closes the current control frame and returns it.
func (fs *funcState) popControl() *controlFrame {
	if len(fs.frames) == 0 {
		panic("jit: control stack underflow")
	}
	cf := fs.frames[len(fs.frames)-1]
	fs.frames = fs.frames[:len(fs.frames)-1]
	return cf
}

func (fs *funcState) currentFrame() *controlFrame {
	if len(fs.frames) == 0 {
		panic("jit: no open control frame")
	}
	return fs.frames[len(fs.frames)-1]
}

// frameAtDepth resolves a branch's relative depth (0 = innermost) to its
// control frame, per bytecode's br/br_if/br_table depth encoding.
func (fs *funcState) frameAtDepth(depth uint32) *controlFrame {
	idx := len(fs.frames) - 1 - int(depth)
	if idx < 0 || idx >= len(fs.frames) {
		panic(fmt.Sprintf("jit: branch depth %d out of range (have %d open frames)", depth, len(fs.frames)))
	}
	return fs.frames[idx]
}

// truncateToHeight resets the operand stack to height h, as required
// when entering unreachable code (the rest of the current frame is
// polymorphic: any further push/pop is synthesized) or when sealing a
// frame whose body left extra values the block signature doesn't carry
// (itself only legal in unreachable code, again per validation).
func (fs *funcState) truncateToHeight(h int) {
	if h > len(fs.stack) {
		h = len(fs.stack)
	}
	fs.stack = fs.stack[:h]
}
