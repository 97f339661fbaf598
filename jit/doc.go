// Copyright 2019 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package jit lowers a decoded bytecode function body into package ir's
// backend IR, in a single forward pass over the instruction stream
// disasm.Decoder produces. It owns everything the reference compiler
// split across disasm's stack-effect precomputation and
// exec/internal/compile's bytecode-to-bytecode branch patching: operand-
// stack and control-frame bookkeeping, branch-target resolution, and
// unreachable-code skipping, unified into one pass because ir.Builder's
// join-node API needs a function's block structure settled as it goes,
// not recovered afterward.
//
// funcState tracks two parallel stacks as it walks a function body: an
// operand-type stack (what CreateSetLocal et al. expect to find on top)
// and a control-frame stack (one entry per open block/loop/if, holding
// the ir.BasicBlock(s) and ir.Join a branch to that depth must target).
// Reaching a point the stack tracker cannot validate (the bytecode is
// taken to be structurally valid already; this package does not
// validate it) is a lowering bug, not a user error, and panics loudly
// rather than emitting wrong code silently; see funcState's doc comment.
//
// Unreachable code is skipped inline, not by a separate visitor: after
// an instruction that makes the rest of the current block statically
// unreachable (unreachable, br, br_table, return), funcState.unreachable
// is set and step emits no code for ordinary operators, while
// block/loop/if/else/end are still processed to keep the control-frame
// stack balanced. There is no separate depth counter for the skipped
// region.
package jit
