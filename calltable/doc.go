// Copyright 2019 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package calltable implements the indirect-call table: the
// runtime structure backing bytecode's call_indirect instruction.
//
// A Table keeps one representation of its data: slots, a physical array
// of {typeTag, codePointer} pairs that the generated call_indirect
// sequence indexes directly, with no interface-to-concrete-type dispatch
// on the hot path. There is no logical elements vector alongside it; a
// slot holds only its type tag and code pointer.
//
// The physical array lives inside a single large region of virtual
// address space reserved once at table creation (reserveElements slots,
// sized so that every possible 32-bit table index lands inside the
// reservation without a bounds check) and grown by committing
// additional pages rather than by reallocating and copying, exactly as
// the original implementation's Table::baseAddress reservation does:
// see createTable/growTable/shrinkTable in the reference runtime this
// package is grounded on. Index validity is an unsigned compare against
// the table's published element count plus a type-tag compare, never a
// copy.
package calltable
