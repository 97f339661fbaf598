// Copyright 2018 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package disasm_test

import (
	"io"
	"testing"

	"github.com/go-interpreter/wagon-jit/disasm"
	ops "github.com/go-interpreter/wagon-jit/wasm/operators"
)

func TestDecodeSimpleAdd(t *testing.T) {
	// get_local 0; get_local 1; i32.add; end
	code := []byte{
		ops.GetLocal, 0x00,
		ops.GetLocal, 0x01,
		ops.I32Add,
		ops.End,
	}
	d := disasm.NewDecoder(code)

	var got []byte
	for {
		instr, err := d.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		got = append(got, instr.Op.Code)
	}

	want := []byte{ops.GetLocal, ops.GetLocal, ops.I32Add, ops.End}
	if len(got) != len(want) {
		t.Fatalf("decoded %d instructions, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("instr[%d] = 0x%x, want 0x%x", i, got[i], want[i])
		}
	}
}

func TestDecodeImmediates(t *testing.T) {
	code := []byte{ops.I32Const, 0x2a, ops.End} // i32.const 42 (LEB128 single byte)
	d := disasm.NewDecoder(code)

	instr, err := d.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if len(instr.Immediates) != 1 {
		t.Fatalf("expected 1 immediate, got %d", len(instr.Immediates))
	}
	if v := instr.Immediates[0].(int32); v != 42 {
		t.Errorf("i32.const immediate = %d, want 42", v)
	}
}

func TestDecodeUnexpectedEOF(t *testing.T) {
	code := []byte{ops.I32Const} // missing immediate
	d := disasm.NewDecoder(code)
	if _, err := d.Next(); err != disasm.ErrUnexpectedEOF {
		t.Fatalf("err = %v, want ErrUnexpectedEOF", err)
	}
}

func TestDecodeInvalidOpcode(t *testing.T) {
	code := []byte{0xff}
	d := disasm.NewDecoder(code)
	if _, err := d.Next(); err == nil {
		t.Fatal("expected error for invalid opcode")
	}
}
