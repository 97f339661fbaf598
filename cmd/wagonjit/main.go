// Copyright 2019 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command wagonjit lowers every defined function of a wasm module into
// the backend IR and prints a per-function summary, for manual
// inspection of the lowering pipeline. It does not assemble or execute
// anything: final register allocation, Assemble, and linking against a
// real host ABI are all out of scope (see the module's design notes).
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/go-interpreter/wagon-jit/calltable"
	"github.com/go-interpreter/wagon-jit/disasm"
	"github.com/go-interpreter/wagon-jit/ir"
	"github.com/go-interpreter/wagon-jit/jit"
	"github.com/go-interpreter/wagon-jit/wasm"
)

func main() {
	log.SetPrefix("wagonjit: ")
	log.SetFlags(0)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: wagonjit file.wasm\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	if err := run(os.Stdout, flag.Arg(0)); err != nil {
		log.Fatal(err)
	}
}

func run(w io.Writer, fname string) error {
	f, err := os.Open(fname)
	if err != nil {
		return err
	}
	defer f.Close()

	m, err := wasm.ReadModule(f, nil)
	if err != nil {
		return fmt.Errorf("could not read module: %w", err)
	}

	tbl, err := defaultTable(m)
	if err != nil {
		return fmt.Errorf("could not build indirect-call table: %w", err)
	}
	defer tbl.Close()

	mc := &jit.ModuleContext{
		Module: m,
		// Every trap/intrinsic entry point and every direct-call target
		// is, in a fully linked embedder, the address of a native
		// function. wagonjit only lowers and prints; it never assembles
		// or runs the result, so these stay at the zero CodePointer —
		// wiring real addresses is the embedder's job, not this CLI's.
		FuncCodePointers:       make([]ir.CodePointer, len(m.FunctionIndexSpace)),
		GlobalTypes:            globalTypes(m),
		TableElemEndOffsetMask: tableElemEndOffsetMask,
		MemEndOffsetMask:       memEndOffsetMask(m),
		TableSite: ir.TableCallSite{
			BaseAddr:        uint64(tbl.BaseAddress()),
			NumElementsAddr: 0,
		},
	}

	mod := ir.NewModule()

	defined := 0
	for i, fn := range m.FunctionIndexSpace {
		if fn.Body == nil {
			continue // imported function, no body to lower
		}

		dec := disasm.NewDecoder(fn.Body.Code)
		var body []disasm.Instr
		for {
			instr, err := dec.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				return fmt.Errorf("function %d: decoding body: %w", i, err)
			}
			body = append(body, instr)
		}

		var localTypes []ir.Type
		for _, le := range fn.Body.Locals {
			t := jit.TypeOf(le.Type)
			for j := uint32(0); j < le.Count; j++ {
				localTypes = append(localTypes, t)
			}
		}

		if _, err := mc.CompileFunction(mod, defined, fn.Sig, localTypes, body); err != nil {
			return fmt.Errorf("function %d: %w", i, err)
		}
		defined++
	}

	if err := mod.Seal(); err != nil {
		return fmt.Errorf("could not seal module: %w", err)
	}

	for _, fn := range mod.Funcs {
		joins := fn.NumJoins()
		fmt.Fprintf(w, "%s: %d block(s), %d join(s)\n", fn.Name(), len(fn.Blocks()), joins)
	}
	return nil
}

// tableElemEndOffsetMask mirrors calltable's per-table virtual memory
// reservation (1<<32 elements of 16 bytes each), duplicated here rather
// than imported for the same component-boundary reason ir/tablecall.go
// duplicates its own copy of the table's slot size.
const tableElemEndOffsetMask = 1<<36 - 1

// globalTypes flattens the module's global index space into the
// per-index value types jit.ModuleContext needs for get_global/set_global.
func globalTypes(m *wasm.Module) []ir.Type {
	types := make([]ir.Type, len(m.GlobalIndexSpace))
	for i, g := range m.GlobalIndexSpace {
		switch g.Type.Type {
		case wasm.ValueTypeI32:
			types[i] = ir.I32
		case wasm.ValueTypeI64:
			types[i] = ir.I64
		case wasm.ValueTypeF32:
			types[i] = ir.F32
		case wasm.ValueTypeF64:
			types[i] = ir.F64
		}
	}
	return types
}

// defaultTable builds a calltable.Table sized from the module's table
// section (table 0), or an empty, zero-max table if the module declares
// none — call_indirect's lowering still needs a TableCallSite to bake
// addresses into, even for a module that never uses it.
func defaultTable(m *wasm.Module) (*calltable.Table, error) {
	if m.Table == nil || len(m.Table.Entries) == 0 {
		return calltable.NewTable(0, 0)
	}
	lim := m.Table.Entries[0].Limits
	max := uint32(0) // calltable.NewTable treats 0 as unbounded
	if lim.Flags == 1 {
		max = lim.Maximum
	}
	return calltable.NewTable(lim.Initial, max)
}

// memEndOffsetMask derives the linear-memory address mask from the
// module's memory section (memory 0), defaulting to a single page when
// the module declares none. The reservation is rounded up to a power of
// two before deriving the mask: pages*pageSize - 1 is only a valid AND
// mask when pages*pageSize is itself a power of two, and most page
// counts (3, 5, 10, ...) are not.
func memEndOffsetMask(m *wasm.Module) int64 {
	const pageSize = 64 * 1024
	pages := uint32(1)
	if m.Memory != nil && len(m.Memory.Entries) > 0 {
		lim := m.Memory.Entries[0].Limits
		if lim.Flags == 1 {
			pages = lim.Maximum
		} else {
			pages = lim.Initial
		}
		if pages == 0 {
			pages = 1
		}
	}
	size := int64(pages) * pageSize
	return nextPowerOfTwo(size) - 1
}

// nextPowerOfTwo returns the smallest power of two >= n (n > 0).
func nextPowerOfTwo(n int64) int64 {
	p := int64(1)
	for p < n {
		p <<= 1
	}
	return p
}
