// Copyright 2019 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ir

// Value is a typed handle to a value produced by an Emit call. Unlike a
// conventional SSA value, it carries no register or memory location of
// its own: every Value the facade hands back corresponds to the top of
// the function's runtime operand stack at the moment it was produced,
// following the same stack-threaded code-generation style the reference
// JIT backend uses for straight-line arithmetic. Consumers (package jit)
// track Values purely for their Type; the facade is responsible for
// actually moving bytes at code-generation time.
type Value struct {
	typ Type
}

// Type returns the value's static type.
func (v Value) Type() Type { return v.typ }

// ValueOf constructs a Value of type t, for callers (package jit's
// control-flow lowering) that only ever track a stack of types and need
// to hand one back to a Join/CreateCondBranch/CreateSwitch call whose
// actual operand already lives on the runtime operand stack.
func ValueOf(t Type) Value { return Value{typ: t} }

// Const is a Value known to be a compile-time literal. It still lives on
// the runtime operand stack once emitted (CreateConst pushes it), but
// callers that need the literal bits back (e.g. for a table index
// comparison folded into a trap condition) can keep this alongside the
// plain Value.
type Const struct {
	Value
	Bits uint64 // raw bit pattern, reinterpreted per Type on push
}
