// Copyright 2019 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ir

import (
	asm "github.com/twitchyliquid64/golang-asm"
)

// BasicBlock is a straight-line run of instructions with a single entry
// point. Branches out of a block are only ever the last instruction
// emitted into it (CreateBranch, CreateCondBranch, CreateSwitch,
// CreateReturn, CreateUnreachable all terminate the block they're emitted
// into).
type BasicBlock struct {
	fn   *Func
	name string

	// first/last delimit this block's instructions in the function's
	// shared golang-asm program list. first is nil until at least one
	// instruction has been emitted into the block.
	first, last *asmProg

	// terminated is set once a terminator (branch/return/unreachable)
	// has been emitted. emit does not check it; callers (package jit)
	// consult Terminated before adding a fall-through branch.
	terminated bool

	// pendingJumps holds jump instructions emitted into this block
	// whose target is resolved lazily (forward branches to blocks not
	// yet positioned in program order). Resolved by Module.Seal.
	pendingJumps []*pendingJump
}

// Name returns the block's diagnostic label (e.g. "bb3", "loop.header").
func (b *BasicBlock) Name() string { return b.name }

// Terminated reports whether a terminator has already been emitted.
func (b *BasicBlock) Terminated() bool { return b.terminated }

// asmProg is a thin wrapper letting BasicBlock track a run of golang-asm
// *obj.Prog nodes without importing obj's package name into this file's
// public surface; see frame.go for the concrete type.
type asmProg = progNode

type pendingJump struct {
	prog   *progNode
	target *BasicBlock
}

func newBlock(fn *Func, name string) *BasicBlock {
	return &BasicBlock{fn: fn, name: name}
}

func (b *BasicBlock) append(p *progNode) {
	if b.first == nil {
		b.first = p
	} else {
		b.last.next = p
	}
	b.last = p
}

// builderFor returns the underlying golang-asm builder; not part of the
// stable API.
func (fn *Func) builderFor() *asm.Builder { return fn.asmBuilder }
