// Copyright 2019 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ir

import "github.com/twitchyliquid64/golang-asm/obj/x86"

// Join is a block-entry value merge: the backend-IR realization of a
// bytecode block/if/loop signature's result. See the package doc for why
// this is a reserved frame slot rather than a native phi.
type Join struct {
	fn       *Func
	index    int
	typ      Type
	incoming int // number of AddIncoming/AddIncomingPeek calls so far
}

// Type returns the value type the join merges.
func (j *Join) Type() Type { return j.typ }

// NumIncoming reports how many predecessors have stored a value into this
// join so far. A join with zero incoming edges at read time is dead code
// reached from nowhere reachable; the lowering visitor synthesizes a
// typed zero for it instead of reading uninitialized frame memory.
func (j *Join) NumIncoming() int { return j.incoming }

// AddIncoming pops v (which must be the current top of the runtime
// operand stack — the facade never reorders emission) and stores it into
// the join's slot. Used by every forwarding site except br_if, whose
// argument must remain on the stack for its fallthrough path.
func (j *Join) AddIncoming(v Value, pred *BasicBlock) {
	if v.typ != j.typ {
		panic("ir: join type mismatch in AddIncoming")
	}
	j.fn.popStack(x86.REG_AX)
	j.fn.indexedStore(regJoins, j.index, x86.REG_AX)
	j.incoming++
}

// AddIncomingPeek stores v into the join's slot without removing it from
// the runtime operand stack (br_if's non-popping forward semantics).
func (j *Join) AddIncomingPeek(v Value, pred *BasicBlock) {
	if v.typ != j.typ {
		panic("ir: join type mismatch in AddIncomingPeek")
	}
	j.fn.peekStack(x86.REG_AX)
	j.fn.indexedStore(regJoins, j.index, x86.REG_AX)
	j.incoming++
}

// Read pushes the join's current value onto the runtime operand stack.
// Called once control reaches the join's block.
func (j *Join) Read() Value {
	j.fn.indexedLoad(regJoins, j.index, x86.REG_AX)
	j.fn.pushStack(x86.REG_AX)
	return Value{typ: j.typ}
}

// CreateJoin allocates a new join slot of type t. Per spec, a join for
// result type None is meaningless and CreateJoin returns nil for it.
func (b *Builder) CreateJoin(t Type) *Join {
	if t == None {
		return nil
	}
	j := &Join{fn: b.fn, typ: t, index: b.fn.numJoins}
	b.fn.numJoins++
	return j
}
