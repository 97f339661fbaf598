// Copyright 2019 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ir

import "testing"

func TestNewFuncEntryBlock(t *testing.T) {
	fn, err := NewFunc("add", []Type{I32, I32}, I32, 2)
	if err != nil {
		t.Fatal(err)
	}
	if got := len(fn.Blocks()); got != 1 {
		t.Fatalf("len(Blocks()) = %d, want 1", got)
	}
	if name := fn.Blocks()[0].Name(); name != "entry" {
		t.Errorf("entry block name = %q, want %q", name, "entry")
	}
}

func TestBuilderLocalsRoundTrip(t *testing.T) {
	fn, err := NewFunc("f", []Type{I32}, I32, 1)
	if err != nil {
		t.Fatal(err)
	}
	b := NewBuilder(fn)
	v := b.CreateGetLocal(0, I32)
	if v.Type() != I32 {
		t.Fatalf("GetLocal type = %v, want i32", v.Type())
	}
	b.CreateSetLocal(0)
	b.CreateTeeLocal(0)
	b.CreateReturn(false)
	if !b.CurrentBlock().Terminated() {
		t.Error("block should be terminated after CreateReturn")
	}
}

func TestCreateJoinNoneReturnsNil(t *testing.T) {
	fn, err := NewFunc("f", nil, None, 0)
	if err != nil {
		t.Fatal(err)
	}
	b := NewBuilder(fn)
	if j := b.CreateJoin(None); j != nil {
		t.Errorf("CreateJoin(None) = %v, want nil", j)
	}
	if j := b.CreateJoin(I32); j == nil {
		t.Error("CreateJoin(I32) = nil, want non-nil")
	}
}

func TestBranchSealResolvesForwardTarget(t *testing.T) {
	fn, err := NewFunc("f", nil, None, 0)
	if err != nil {
		t.Fatal(err)
	}
	b := NewBuilder(fn)
	target := b.CreateBlock("target")
	b.CreateBranch(target) // forward branch: target has no instructions yet

	b.SetInsertPoint(target)
	b.CreateReturn(false)

	m := NewModule()
	m.AddFunc(fn)
	if err := m.Seal(); err != nil {
		t.Fatalf("Seal() = %v, want nil", err)
	}
}

func TestSealUnreachedBlockErrors(t *testing.T) {
	fn, err := NewFunc("f", nil, None, 0)
	if err != nil {
		t.Fatal(err)
	}
	b := NewBuilder(fn)
	target := b.CreateBlock("dangling")
	b.CreateBranch(target) // target is never populated

	m := NewModule()
	m.AddFunc(fn)
	if err := m.Seal(); err == nil {
		t.Error("Seal() = nil, want error for empty branch target")
	}
}

func TestIntBinOpPushesResultType(t *testing.T) {
	fn, err := NewFunc("f", []Type{I32, I32}, I32, 0)
	if err != nil {
		t.Fatal(err)
	}
	b := NewBuilder(fn)
	b.CreateGetLocal(0, I32)
	b.CreateGetLocal(1, I32)
	v := b.CreateIntBinOp(Add, I32, CodePointer{})
	if v.Type() != I32 {
		t.Errorf("CreateIntBinOp result type = %v, want i32", v.Type())
	}
}

func TestIntCmpOpAlwaysI32(t *testing.T) {
	fn, err := NewFunc("f", []Type{I64, I64}, I32, 0)
	if err != nil {
		t.Fatal(err)
	}
	b := NewBuilder(fn)
	b.CreateGetLocal(0, I64)
	b.CreateGetLocal(1, I64)
	v := b.CreateIntCmpOp(LtS, I64)
	if v.Type() != I32 {
		t.Errorf("CreateIntCmpOp result type = %v, want i32", v.Type())
	}
}

func TestConstPreservesBits(t *testing.T) {
	fn, err := NewFunc("f", nil, I64, 0)
	if err != nil {
		t.Fatal(err)
	}
	b := NewBuilder(fn)
	c := b.CreateConst(I64, 0xdeadbeef)
	if c.Bits != 0xdeadbeef {
		t.Errorf("Bits = %x, want deadbeef", c.Bits)
	}
	if c.Type() != I64 {
		t.Errorf("Type() = %v, want i64", c.Type())
	}
}
