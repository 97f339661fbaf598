// Copyright 2019 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package calltable

import "testing"

func TestNewTableGrowsToMin(t *testing.T) {
	tbl, err := NewTable(4, 16)
	if err != nil {
		t.Fatal(err)
	}
	defer tbl.Close()
	if got := tbl.GetNumElements(); got != 4 {
		t.Errorf("GetNumElements() = %d, want 4", got)
	}
}

func TestSetAndReadElement(t *testing.T) {
	tbl, err := NewTable(1, 4)
	if err != nil {
		t.Fatal(err)
	}
	defer tbl.Close()

	if _, _, err := tbl.SetElement(0, 0xAA, 0xdeadbeef); err != nil {
		t.Fatal(err)
	}
	tag, ptr, err := tbl.Element(0)
	if err != nil {
		t.Fatal(err)
	}
	if tag != 0xAA || ptr != 0xdeadbeef {
		t.Errorf("Element(0) = (%x, %x), want (aa, deadbeef)", tag, ptr)
	}
}

func TestSetElementOutOfRange(t *testing.T) {
	tbl, err := NewTable(1, 4)
	if err != nil {
		t.Fatal(err)
	}
	defer tbl.Close()

	if _, _, err := tbl.SetElement(2, 1, 1); err == nil {
		t.Error("SetElement(2, ...) = nil error, want out-of-range error")
	}
}

func TestGrowZeroIsNoop(t *testing.T) {
	tbl, err := NewTable(2, 8)
	if err != nil {
		t.Fatal(err)
	}
	defer tbl.Close()

	prev, err := tbl.Grow(0)
	if err != nil {
		t.Fatal(err)
	}
	if prev != 2 {
		t.Errorf("Grow(0) previous = %d, want 2", prev)
	}
	if got := tbl.GetNumElements(); got != 2 {
		t.Errorf("GetNumElements() after Grow(0) = %d, want 2", got)
	}
}

func TestGrowExceedsMax(t *testing.T) {
	tbl, err := NewTable(1, 2)
	if err != nil {
		t.Fatal(err)
	}
	defer tbl.Close()

	if _, err := tbl.Grow(5); err != ErrGrowExceedsMax {
		t.Errorf("Grow(5) err = %v, want ErrGrowExceedsMax", err)
	}
}

func TestShrinkBelowMin(t *testing.T) {
	tbl, err := NewTable(2, 8)
	if err != nil {
		t.Fatal(err)
	}
	defer tbl.Close()

	if _, err := tbl.Shrink(2); err != ErrShrinkBelowMin {
		t.Errorf("Shrink(2) err = %v, want ErrShrinkBelowMin", err)
	}
}

// TestGrowShrinkSequence exercises spec.md §8 scenario 6 end to end: a
// table of {min=1, max=10} grown, shrunk twice (once legally, once past
// its minimum), with a set/read round trip on the surviving element.
func TestGrowShrinkSequence(t *testing.T) {
	tbl, err := NewTable(1, 10)
	if err != nil {
		t.Fatal(err)
	}
	defer tbl.Close()

	if got := tbl.GetNumElements(); got != 1 {
		t.Fatalf("GetNumElements() = %d, want 1", got)
	}

	prev, err := tbl.Grow(5)
	if err != nil {
		t.Fatal(err)
	}
	if prev != 1 {
		t.Errorf("Grow(5) previous = %d, want 1", prev)
	}
	if got := tbl.GetNumElements(); got != 6 {
		t.Errorf("GetNumElements() after Grow(5) = %d, want 6", got)
	}

	prev, err = tbl.Shrink(4)
	if err != nil {
		t.Fatal(err)
	}
	if prev != 6 {
		t.Errorf("Shrink(4) previous = %d, want 6", prev)
	}
	if got := tbl.GetNumElements(); got != 2 {
		t.Errorf("GetNumElements() after Shrink(4) = %d, want 2", got)
	}

	if _, err := tbl.Shrink(2); err != ErrShrinkBelowMin {
		t.Errorf("Shrink(2) err = %v, want ErrShrinkBelowMin (below min=1)", err)
	}
	if got := tbl.GetNumElements(); got != 2 {
		t.Errorf("GetNumElements() after failed Shrink(2) = %d, want unchanged 2", got)
	}

	if _, _, err := tbl.SetElement(0, 0xAA, 0xdeadbeef); err != nil {
		t.Fatal(err)
	}
	tag, ptr, err := tbl.Element(0)
	if err != nil {
		t.Fatal(err)
	}
	if tag != 0xAA || ptr != 0xdeadbeef {
		t.Errorf("Element(0) = (%x, %x), want (aa, deadbeef)", tag, ptr)
	}
}

func TestShrinkZeroIsNoop(t *testing.T) {
	tbl, err := NewTable(2, 8)
	if err != nil {
		t.Fatal(err)
	}
	defer tbl.Close()

	if err := growTo(tbl, 5); err != nil {
		t.Fatal(err)
	}
	prev, err := tbl.Shrink(0)
	if err != nil {
		t.Fatal(err)
	}
	if prev != 5 {
		t.Errorf("Shrink(0) previous = %d, want 5", prev)
	}
	if got := tbl.GetNumElements(); got != 5 {
		t.Errorf("GetNumElements() after Shrink(0) = %d, want unchanged 5", got)
	}
}

func growTo(tbl *Table, n uint32) error {
	cur := tbl.GetNumElements()
	if n <= cur {
		return nil
	}
	_, err := tbl.Grow(n - cur)
	return err
}

func TestIsAddressOwnedByAnyTable(t *testing.T) {
	tbl, err := NewTable(1, 4)
	if err != nil {
		t.Fatal(err)
	}
	defer tbl.Close()

	if !IsAddressOwnedByAnyTable(tbl.BaseAddress()) {
		t.Error("IsAddressOwnedByAnyTable(base) = false, want true")
	}
	if IsAddressOwnedByAnyTable(0) {
		t.Error("IsAddressOwnedByAnyTable(0) = true, want false")
	}
}

func TestCloseIdempotent(t *testing.T) {
	tbl, err := NewTable(1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := tbl.Close(); err != nil {
		t.Fatal(err)
	}
	if err := tbl.Close(); err != nil {
		t.Errorf("second Close() = %v, want nil", err)
	}
}
