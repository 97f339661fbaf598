// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package disasm decodes a bytecode function's code bytes into a stream of
// operators with their immediates. It performs no stack-effect analysis:
// the lowering engine (package jit) computes stack height and reachability
// itself, in a single forward pass, as it consumes this stream. This is
// deliberately thinner than a full disassembly pass — block pairing,
// branch-target discard counts, and max-depth bookkeeping all live in the
// operand/control tracker now, not here.
package disasm

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"

	"github.com/go-interpreter/wagon-jit/wasm"
	"github.com/go-interpreter/wagon-jit/wasm/leb128"
	ops "github.com/go-interpreter/wagon-jit/wasm/operators"
)

// Instr is one decoded operator together with its immediate arguments.
// Valid Immediates element types are (u)int32, (u)int64, float32, float64,
// wasm.BlockType, and MemImmediate.
type Instr struct {
	Op         ops.Op
	Immediates []interface{}
	// Index is the instruction's position in the decoded stream,
	// monotonically increasing from zero. Package jit uses it to label
	// lowering errors; no debug info carrying it is emitted.
	Index int
}

// MemImmediate holds the alignment hint and byte offset of a load/store.
type MemImmediate struct {
	AlignLog2 uint32
	Offset    uint32
}

// ErrUnexpectedEOF is returned when the code stream ends in the middle of
// an operator's immediates.
var ErrUnexpectedEOF = errors.New("disasm: unexpected EOF while reading immediate")

// Decoder decodes a single function body's code bytes into a stream of
// Instr values, one per call to Next.
type Decoder struct {
	r     *bytes.Reader
	index int
}

// NewDecoder returns a Decoder over the given code bytes.
func NewDecoder(code []byte) *Decoder {
	return &Decoder{r: bytes.NewReader(code)}
}

// Next decodes and returns the next operator. It returns io.EOF once the
// stream is exhausted.
func (d *Decoder) Next() (Instr, error) {
	opcode, err := d.r.ReadByte()
	if err == io.EOF {
		return Instr{}, io.EOF
	} else if err != nil {
		return Instr{}, err
	}

	op, err := ops.New(opcode)
	if err != nil {
		return Instr{}, err
	}

	instr := Instr{Op: op, Index: d.index, Immediates: []interface{}{}}
	d.index++

	switch opcode {
	case ops.Block, ops.Loop, ops.If:
		sig, err := leb128.ReadVarint32(d.r)
		if err != nil {
			return Instr{}, ErrUnexpectedEOF
		}
		instr.Immediates = append(instr.Immediates, wasm.BlockType(sig))

	case ops.Br, ops.BrIf:
		depth, err := leb128.ReadVarUint32(d.r)
		if err != nil {
			return Instr{}, ErrUnexpectedEOF
		}
		instr.Immediates = append(instr.Immediates, depth)

	case ops.BrTable:
		targetCount, err := leb128.ReadVarUint32(d.r)
		if err != nil {
			return Instr{}, ErrUnexpectedEOF
		}
		instr.Immediates = append(instr.Immediates, targetCount)
		for i := uint32(0); i < targetCount; i++ {
			entry, err := leb128.ReadVarUint32(d.r)
			if err != nil {
				return Instr{}, ErrUnexpectedEOF
			}
			instr.Immediates = append(instr.Immediates, entry)
		}
		defaultTarget, err := leb128.ReadVarUint32(d.r)
		if err != nil {
			return Instr{}, ErrUnexpectedEOF
		}
		instr.Immediates = append(instr.Immediates, defaultTarget)

	case ops.Call, ops.CallIndirect:
		index, err := leb128.ReadVarUint32(d.r)
		if err != nil {
			return Instr{}, ErrUnexpectedEOF
		}
		instr.Immediates = append(instr.Immediates, index)
		if opcode == ops.CallIndirect {
			reserved, err := leb128.ReadVarUint32(d.r)
			if err != nil {
				return Instr{}, ErrUnexpectedEOF
			}
			instr.Immediates = append(instr.Immediates, reserved)
		}

	case ops.GetLocal, ops.SetLocal, ops.TeeLocal, ops.GetGlobal, ops.SetGlobal:
		index, err := leb128.ReadVarUint32(d.r)
		if err != nil {
			return Instr{}, ErrUnexpectedEOF
		}
		instr.Immediates = append(instr.Immediates, index)

	case ops.I32Const:
		v, err := leb128.ReadVarint32(d.r)
		if err != nil {
			return Instr{}, ErrUnexpectedEOF
		}
		instr.Immediates = append(instr.Immediates, v)

	case ops.I64Const:
		v, err := leb128.ReadVarint64(d.r)
		if err != nil {
			return Instr{}, ErrUnexpectedEOF
		}
		instr.Immediates = append(instr.Immediates, v)

	case ops.F32Const:
		var bits uint32
		if err := binary.Read(d.r, binary.LittleEndian, &bits); err != nil {
			return Instr{}, ErrUnexpectedEOF
		}
		instr.Immediates = append(instr.Immediates, math.Float32frombits(bits))

	case ops.F64Const:
		var bits uint64
		if err := binary.Read(d.r, binary.LittleEndian, &bits); err != nil {
			return Instr{}, ErrUnexpectedEOF
		}
		instr.Immediates = append(instr.Immediates, math.Float64frombits(bits))

	case ops.I32Load, ops.I64Load, ops.F32Load, ops.F64Load,
		ops.I32Load8s, ops.I32Load8u, ops.I32Load16s, ops.I32Load16u,
		ops.I64Load8s, ops.I64Load8u, ops.I64Load16s, ops.I64Load16u,
		ops.I64Load32s, ops.I64Load32u,
		ops.I32Store, ops.I64Store, ops.F32Store, ops.F64Store,
		ops.I32Store8, ops.I32Store16, ops.I64Store8, ops.I64Store16, ops.I64Store32:
		align, err := leb128.ReadVarUint32(d.r)
		if err != nil {
			return Instr{}, ErrUnexpectedEOF
		}
		offset, err := leb128.ReadVarUint32(d.r)
		if err != nil {
			return Instr{}, ErrUnexpectedEOF
		}
		instr.Immediates = append(instr.Immediates, MemImmediate{AlignLog2: align, Offset: offset})

	case ops.CurrentMemory, ops.GrowMemory:
		reserved, err := leb128.ReadVarUint32(d.r)
		if err != nil {
			return Instr{}, ErrUnexpectedEOF
		}
		instr.Immediates = append(instr.Immediates, reserved)
	}

	return instr, nil
}
