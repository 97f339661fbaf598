// Copyright 2019 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hostabi

import (
	"math"
	"testing"
)

func TestFloatMin64NaNPropagates(t *testing.T) {
	nan := math.Float64bits(math.NaN())
	one := math.Float64bits(1)
	if got := (Default{}).FloatMin64(nan, one); !math.IsNaN(math.Float64frombits(got)) {
		t.Errorf("FloatMin64(NaN, 1) = %v, want NaN", math.Float64frombits(got))
	}
}

func TestFloatMin64SignedZero(t *testing.T) {
	negZero := math.Float64bits(math.Copysign(0, -1))
	posZero := math.Float64bits(0)
	got := (Default{}).FloatMin64(posZero, negZero)
	if !math.Signbit(math.Float64frombits(got)) {
		t.Error("FloatMin64(+0, -0) should prefer -0")
	}
}

func TestFloatToInt32SOutOfRange(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("FloatToInt32S(1e20) should trap")
		}
	}()
	(Default{}).FloatToInt32S(math.Float64bits(1e20), true)
}

func TestFloatToInt32SRoundTrip(t *testing.T) {
	got := (Default{}).FloatToInt32S(math.Float64bits(42), true)
	if int32(uint32(got)) != 42 {
		t.Errorf("FloatToInt32S(42) = %d, want 42", int32(uint32(got)))
	}
}

func TestIntToFloat64URoundTrip(t *testing.T) {
	bits := (Default{}).IntToFloat64U(42)
	if math.Float64frombits(bits) != 42 {
		t.Errorf("IntToFloat64U(42) = %v, want 42", math.Float64frombits(bits))
	}
}

func TestUnreachableTrapPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("UnreachableTrap did not panic")
		} else if _, ok := r.(*TrapError); !ok {
			t.Fatalf("recovered %T, want *TrapError", r)
		}
	}()
	(Default{}).UnreachableTrap()
}
