// Copyright 2019 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ir

import (
	"fmt"
	"strings"
)

// Module is the backend-IR realization of a compiled unit: an ordered
// set of Funcs sharing nothing but the name they were constructed under.
// ModuleContext (package jit) is responsible for lowering every defined
// function into one of these and retaining the slice for final
// assembly; this facade never calls Assemble itself, per the package
// doc's non-goal.
type Module struct {
	Funcs []*Func
}

// NewModule returns an empty Module.
func NewModule() *Module { return &Module{} }

// AddFunc appends fn to the module and returns it, for chaining with
// NewFunc at the call site.
func (m *Module) AddFunc(fn *Func) *Func {
	m.Funcs = append(m.Funcs, fn)
	return fn
}

// Seal resolves every pending intra-function jump recorded by
// CreateBranch/CreateCondBranch/CreateSwitch against its target
// BasicBlock's first instruction, and must be called exactly once per
// Func after all of its blocks have been built and before its asmBuilder
// is handed to golang-asm's Assemble. The facade defers this to Seal
// (rather than patching eagerly) because a branch's target block is
// frequently created after the branch that jumps to it — the lowering
// visitor builds blocks in source order but wires branches to
// not-yet-populated blocks routinely (e.g. a forward `br`).
func (m *Module) Seal() error {
	for _, fn := range m.Funcs {
		if err := fn.seal(); err != nil {
			return fmt.Errorf("ir: sealing %s: %w", fn.name, err)
		}
	}
	return nil
}

func (fn *Func) seal() error {
	for _, blk := range fn.blocks {
		for _, pj := range blk.pendingJumps {
			if pj.target.first == nil {
				return fmt.Errorf("branch target block %q is empty", pj.target.name)
			}
			pj.prog.prog.Pcond = pj.target.first.prog
		}
	}
	return nil
}

// String renders the module's blocks and instructions for diagnostics,
// in the same spirit as the reference backend's debug-only dumps gated
// behind PrintDebugInfo.
func (m *Module) String() string {
	var sb strings.Builder
	for _, fn := range m.Funcs {
		fmt.Fprintf(&sb, "func %s(%d locals) -> %s {\n", fn.name, fn.numLocals, fn.resultType)
		for _, blk := range fn.blocks {
			fmt.Fprintf(&sb, "  %s:\n", blk.name)
			for p := blk.first; p != nil; p = p.next {
				fmt.Fprintf(&sb, "    %v\n", p.prog)
			}
		}
		sb.WriteString("}\n")
	}
	return sb.String()
}
