// Copyright 2019 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jit

import (
	"reflect"

	"github.com/go-interpreter/wagon-jit/hostabi"
	"github.com/go-interpreter/wagon-jit/ir"
)

// ResolveIntrinsics binds every Intrinsics field to impl's corresponding
// hostabi.Intrinsics method, taking the method value's code pointer via
// reflection — the one non-generated, host-side wiring helper SPEC_FULL's
// hostabi component description calls for. This is the one place in the
// lowering pipeline that reaches for reflect: everywhere else a CodePointer is a
// plain resolved constant (an import, a sibling function, a table slot),
// and this helper exists only to turn a Go method set into that same
// shape once per embedder-supplied Intrinsics value.
//
// The resulting CodePointer calls the method's underlying function with
// Go's own calling convention, not the raw-register convention
// emitIntrinsicCall uses for generated code; bridging the two is the
// embedder's trampoline to write (see ir/calls.go's doc comment on
// emitIntrinsicCall), same as assembling and relocating the final
// machine code is an out-of-scope next stage this module never performs.
func ResolveIntrinsics(impl hostabi.Intrinsics) Intrinsics {
	addr := func(method interface{}) ir.CodePointer {
		return ir.CodePointer{Addr: uint64(reflect.ValueOf(method).Pointer())}
	}
	return Intrinsics{
		UnreachableTrap:               addr(impl.UnreachableTrap),
		DivideByZeroTrap:              addr(impl.DivideByZeroTrap),
		IndirectCallOOBTrap:           addr(impl.IndirectCallOOB),
		IndirectCallSignatureMismatch: addr(impl.IndirectCallSignatureMismatch),
		CurrentMemory:                 addr(impl.CurrentMemory),
		GrowMemory:                    addr(impl.GrowMemory),
		FloatMin32:                    addr(impl.FloatMin32),
		FloatMax32:                    addr(impl.FloatMax32),
		FloatMin64:                    addr(impl.FloatMin64),
		FloatMax64:                    addr(impl.FloatMax64),
		FloatCeil32:                   addr(impl.FloatCeil32),
		FloatFloor32:                  addr(impl.FloatFloor32),
		FloatTrunc32:                  addr(impl.FloatTrunc32),
		FloatNearest32:                addr(impl.FloatNearest32),
		FloatCeil64:                   addr(impl.FloatCeil64),
		FloatFloor64:                  addr(impl.FloatFloor64),
		FloatTrunc64:                  addr(impl.FloatTrunc64),
		FloatNearest64:                addr(impl.FloatNearest64),
		FloatToInt32S:                 addr(impl.FloatToInt32S),
		FloatToInt32U:                 addr(impl.FloatToInt32U),
		FloatToInt64S:                 addr(impl.FloatToInt64S),
		FloatToInt64U:                 addr(impl.FloatToInt64U),
		IntToFloat32S:                 addr(impl.IntToFloat32S),
		IntToFloat32U:                 addr(impl.IntToFloat32U),
		IntToFloat64S:                 addr(impl.IntToFloat64S),
		IntToFloat64U:                 addr(impl.IntToFloat64U),
	}
}
