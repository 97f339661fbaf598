// Copyright 2019 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hostabi

import "math"

// TrapError is the panic value a Default implementation raises for
// every trapping intrinsic. A caller (or a test harness exercising
// Default directly) can recover it at the call boundary and
// turns it into an ordinary Go error, the same shape the reference
// interpreter's exec package already uses for trap propagation.
type TrapError struct {
	Reason string
}

func (e *TrapError) Error() string { return "hostabi: trap: " + e.Reason }

func trap(reason string) { panic(&TrapError{Reason: reason}) }

// Default is a host-independent Intrinsics implementation covering
// every method that needs no embedder-specific state (the traps, which
// raise TrapError, and the float rounding/min-max/conversion family);
// CurrentMemory and GrowMemory are left to embed and override, since
// those depend on memory bookkeeping Default has no access to.
type Default struct{}

func (Default) UnreachableTrap() { trap("unreachable") }

func (Default) DivideByZeroTrap() { trap("integer divide by zero") }

func (Default) IndirectCallOOB(tableIndex uint64) {
	trap("call_indirect: table index out of bounds")
}

func (Default) IndirectCallSignatureMismatch(tableIndex, actualTag, tableHandle uint64) {
	trap("call_indirect: signature mismatch")
}

func (Default) CurrentMemory() uint64 {
	panic("hostabi: Default does not implement CurrentMemory; embed and override")
}

func (Default) GrowMemory(delta uint64) uint64 {
	panic("hostabi: Default does not implement GrowMemory; embed and override")
}

func (Default) FloatMin32(a, b uint32) uint32 {
	fa, fb := math.Float32frombits(a), math.Float32frombits(b)
	if math.IsNaN(float64(fa)) || math.IsNaN(float64(fb)) {
		return math.Float32bits(float32(math.NaN()))
	}
	if fa == 0 && fb == 0 {
		if math.Signbit(float64(fa)) {
			return a
		}
		return b
	}
	if fa < fb {
		return a
	}
	return b
}

func (Default) FloatMax32(a, b uint32) uint32 {
	fa, fb := math.Float32frombits(a), math.Float32frombits(b)
	if math.IsNaN(float64(fa)) || math.IsNaN(float64(fb)) {
		return math.Float32bits(float32(math.NaN()))
	}
	if fa == 0 && fb == 0 {
		if !math.Signbit(float64(fa)) {
			return a
		}
		return b
	}
	if fa > fb {
		return a
	}
	return b
}

func (Default) FloatMin64(a, b uint64) uint64 {
	fa, fb := math.Float64frombits(a), math.Float64frombits(b)
	if math.IsNaN(fa) || math.IsNaN(fb) {
		return math.Float64bits(math.NaN())
	}
	if fa == 0 && fb == 0 {
		if math.Signbit(fa) {
			return a
		}
		return b
	}
	return math.Float64bits(math.Min(fa, fb))
}

func (Default) FloatMax64(a, b uint64) uint64 {
	fa, fb := math.Float64frombits(a), math.Float64frombits(b)
	if math.IsNaN(fa) || math.IsNaN(fb) {
		return math.Float64bits(math.NaN())
	}
	if fa == 0 && fb == 0 {
		if !math.Signbit(fa) {
			return a
		}
		return b
	}
	return math.Float64bits(math.Max(fa, fb))
}

func (Default) FloatCeil32(v uint32) uint32 {
	return math.Float32bits(float32(math.Ceil(float64(math.Float32frombits(v)))))
}
func (Default) FloatFloor32(v uint32) uint32 {
	return math.Float32bits(float32(math.Floor(float64(math.Float32frombits(v)))))
}
func (Default) FloatTrunc32(v uint32) uint32 {
	return math.Float32bits(float32(math.Trunc(float64(math.Float32frombits(v)))))
}
func (Default) FloatNearest32(v uint32) uint32 {
	return math.Float32bits(float32(math.RoundToEven(float64(math.Float32frombits(v)))))
}
func (Default) FloatCeil64(v uint64) uint64 {
	return math.Float64bits(math.Ceil(math.Float64frombits(v)))
}
func (Default) FloatFloor64(v uint64) uint64 {
	return math.Float64bits(math.Floor(math.Float64frombits(v)))
}
func (Default) FloatTrunc64(v uint64) uint64 {
	return math.Float64bits(math.Trunc(math.Float64frombits(v)))
}
func (Default) FloatNearest64(v uint64) uint64 {
	return math.Float64bits(math.RoundToEven(math.Float64frombits(v)))
}

func floatBitsToF64(bits uint64, isF64 bool) float64 {
	if isF64 {
		return math.Float64frombits(bits)
	}
	return float64(math.Float32frombits(uint32(bits)))
}

func (Default) FloatToInt32S(bits uint64, isF64 bool) uint64 {
	f := floatBitsToF64(bits, isF64)
	if math.IsNaN(f) || f < math.MinInt32 || f > math.MaxInt32 {
		trap("float to int conversion out of range")
	}
	return uint64(uint32(int32(f)))
}

func (Default) FloatToInt32U(bits uint64, isF64 bool) uint64 {
	f := floatBitsToF64(bits, isF64)
	if math.IsNaN(f) || f < 0 || f > math.MaxUint32 {
		trap("float to int conversion out of range")
	}
	return uint64(uint32(f))
}

func (Default) FloatToInt64S(bits uint64, isF64 bool) uint64 {
	f := floatBitsToF64(bits, isF64)
	if math.IsNaN(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		trap("float to int conversion out of range")
	}
	return uint64(int64(f))
}

func (Default) FloatToInt64U(bits uint64, isF64 bool) uint64 {
	f := floatBitsToF64(bits, isF64)
	if math.IsNaN(f) || f < 0 || f >= math.MaxUint64 {
		trap("float to int conversion out of range")
	}
	return uint64(f)
}

func (Default) IntToFloat32S(v int64) uint32 { return math.Float32bits(float32(v)) }
func (Default) IntToFloat32U(v uint64) uint32 { return math.Float32bits(float32(v)) }
func (Default) IntToFloat64S(v int64) uint64  { return math.Float64bits(float64(v)) }
func (Default) IntToFloat64U(v uint64) uint64 { return math.Float64bits(float64(v)) }
