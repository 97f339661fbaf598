// Copyright 2019 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ir is the backend-IR facade consumed by the bytecode lowering
// engine (package jit). It is a typed builder over basic blocks, join
// nodes (block-entry value merges), and arithmetic/memory/call/branch
// operators, backed by the same golang-asm instruction-emission idiom the
// reference JIT backend uses for straight-line code.
//
// A Join is the one concept with no direct x86 analogue: golang-asm emits
// flat instruction streams with no native phi. Join values are realized as
// a slot in the owning Func's join-slot array, addressed through a
// reserved register (see frame.go) — every predecessor
// stores its value into the slot immediately before branching to the join
// block, and every read of the Join loads it back. This is the standard
// out-of-SSA lowering technique (phi elimination via memory), chosen so
// that control-flow joins specified by the bytecode's block signatures
// have a concrete, inspectable backend representation without requiring a
// register allocator in this package.
//
// Final assembly, relocation, and linking of the instruction stream this
// package builds are out of scope: callers may inspect *Func's blocks and
// instruction counts for diagnostics, but this package never invokes the
// underlying golang-asm builder's Assemble step.
package ir
