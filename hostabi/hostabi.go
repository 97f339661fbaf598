// Copyright 2019 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package hostabi defines the fixed set of host entry points the code
// package jit generates calls into: every "return to the host instead
// of letting hardware misbehave" sandboxing check, plus the handful of
// numeric operations AMD64 has no direct trapping or NaN-correct
// instruction for. ir.CodePointer values bound to these are resolved
// by package jit's ResolveIntrinsics and baked into the
// generated code as constants; this package only defines the calling
// contract an implementation must satisfy, the way the reference
// interpreter's wasm.Module.Import resolution defines what a host
// function must look like to satisfy an import.
package hostabi

// Intrinsics is the set of host functions a compiled module's generated
// code may call into. An implementation is supplied by the embedder
// (package jit's ResolveIntrinsics takes one). This package's Default
// (default.go) covers the traps and the numeric family; its
// CurrentMemory and GrowMemory panic, since they depend on the
// embedder's own memory management.
//
// Every method's raw-bits convention matches package ir: float
// arguments and results are the IEEE-754 bit pattern of the value,
// carried in the same general-purpose registers integers use.
type Intrinsics interface {
	// UnreachableTrap is called by an `unreachable` instruction's lowering
	// and never returns to the generated code that called it.
	UnreachableTrap()

	// DivideByZeroTrap is called ahead of a division/remainder whose
	// divisor is zero, or ahead of a signed division of INT_MIN by -1
	// (signed remainder of INT_MIN by -1 yields 0 and does not trap).
	// Never returns.
	DivideByZeroTrap()

	// IndirectCallOOB is called when a call_indirect's table index is
	// outside the table's current size. Never returns. The generated
	// call sequence loads no argument register for this call, so
	// tableIndex does not carry the failing index.
	IndirectCallOOB(tableIndex uint64)

	// IndirectCallSignatureMismatch is called when a call_indirect's
	// table slot's type tag does not match the call site's expected
	// signature. It receives the table index, the slot's tag and the
	// table's base address. Never returns.
	IndirectCallSignatureMismatch(tableIndex, actualTag, tableHandle uint64)

	// CurrentMemory returns the module's linear memory size in page
	// units (65536 bytes each).
	CurrentMemory() uint64

	// GrowMemory attempts to grow the module's linear memory by delta
	// pages, returning the previous size in pages, or ^uint64(0) (i.e.
	// -1 reinterpreted) if the host declines to grow it.
	GrowMemory(delta uint64) uint64

	// FloatMin32/FloatMax32/FloatMin64/FloatMax64 implement bytecode's
	// NaN-propagating, signed-zero-aware min/max, which SSE2's
	// MINSS/MAXSS get wrong on both counts.
	FloatMin32(a, b uint32) uint32
	FloatMax32(a, b uint32) uint32
	FloatMin64(a, b uint64) uint64
	FloatMax64(a, b uint64) uint64

	// FloatCeil32/Floor32/Trunc32/Nearest32 and their 64-bit counterparts
	// implement the four IEEE rounding modes bytecode exposes directly,
	// assuming an AMD64 baseline without SSE4.1's ROUNDSD.
	FloatCeil32(v uint32) uint32
	FloatFloor32(v uint32) uint32
	FloatTrunc32(v uint32) uint32
	FloatNearest32(v uint32) uint32
	FloatCeil64(v uint64) uint64
	FloatFloor64(v uint64) uint64
	FloatTrunc64(v uint64) uint64
	FloatNearest64(v uint64) uint64

	// FloatToInt32S/U and FloatToInt64S/U convert a float's raw bits to
	// an integer of the given width, trapping (never returning) if the
	// value is NaN or outside the target's representable range.
	FloatToInt32S(bits uint64, isF64 bool) uint64
	FloatToInt32U(bits uint64, isF64 bool) uint64
	FloatToInt64S(bits uint64, isF64 bool) uint64
	FloatToInt64U(bits uint64, isF64 bool) uint64

	// IntToFloat32S/U and IntToFloat64S/U are the non-trapping reverse
	// conversions, still routed through the host because CVTSI2SD
	// treats its source as signed and bytecode's *_u forms need the
	// unsigned interpretation.
	IntToFloat32S(v int64) uint32
	IntToFloat32U(v uint64) uint32
	IntToFloat64S(v int64) uint64
	IntToFloat64U(v uint64) uint64
}
