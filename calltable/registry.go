// Copyright 2019 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package calltable

import "sync"

// tableRegistry tracks every live Table so IsAddressOwnedByAnyTable can
// answer a trap handler's "did this faulting address belong to a table
// reservation" question without each Table needing to broadcast its own
// bounds, mirroring the original implementation's global `tables`
// vector and isAddressOwnedByTable query.
type tableRegistry struct {
	mu     sync.Mutex
	tables []*Table
}

var registry = &tableRegistry{}

func (r *tableRegistry) add(t *Table) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tables = append(r.tables, t)
}

func (r *tableRegistry) remove(t *Table) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, tbl := range r.tables {
		if tbl == t {
			r.tables = append(r.tables[:i], r.tables[i+1:]...)
			return
		}
	}
}

// IsAddressOwnedByAnyTable reports whether addr falls inside the
// reserved (not necessarily committed) virtual memory range of any
// currently-live table. Used by the host's segfault handler to
// distinguish a genuine out-of-bounds call_indirect (expected, and
// turned into a trap) from an unrelated memory fault.
func IsAddressOwnedByAnyTable(addr uintptr) bool {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	for _, t := range registry.tables {
		start := t.BaseAddress()
		end := start + uintptr(len(t.region))
		if addr >= start && addr < end {
			return true
		}
	}
	return false
}
