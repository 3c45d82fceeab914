// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package filter

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"

	"github.com/relabs-tech/forcetorque/internal/wrench"
)

func TestUpdateBeforeInitialize(t *testing.T) {
	var f Butterworth
	if _, err := f.Update(wrench.Wrench{1}); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("Update = %v, want ErrNotInitialized", err)
	}
}

func TestInitializeValidation(t *testing.T) {
	tests := []struct {
		dim    int
		cutoff float64
		want   error
	}{
		{6, 0.05, nil},
		{3, 0.49, nil},
		{6, 0, ErrCutoff},
		{6, 0.5, ErrCutoff},
		{6, -0.1, ErrCutoff},
		{6, math.NaN(), ErrCutoff},
		{4, 0.05, ErrDimension},
		{0, 0.05, ErrDimension},
	}
	for _, tt := range tests {
		var f Butterworth
		err := f.Initialize(tt.dim, tt.cutoff)
		if tt.want == nil && err != nil {
			t.Errorf("Initialize(%d, %g) = %v", tt.dim, tt.cutoff, err)
		}
		if tt.want != nil && !errors.Is(err, tt.want) {
			t.Errorf("Initialize(%d, %g) = %v, want %v", tt.dim, tt.cutoff, err, tt.want)
		}
	}
}

func TestCoefficientsHaveUnityDCGain(t *testing.T) {
	for _, fc := range []float64{0.01, 0.05, 0.2, 0.45} {
		var f Butterworth
		if err := f.Initialize(6, fc); err != nil {
			t.Fatal(err)
		}
		gain := (f.b[0] + f.b[1] + f.b[2]) / (1 - f.a[0] - f.a[1])
		if math.Abs(gain-1) > 1e-12 {
			t.Errorf("fc=%g: DC gain %g", fc, gain)
		}
	}
}

func TestFirstSampleIsB0(t *testing.T) {
	var f Butterworth
	if err := f.Initialize(6, DefaultCutoff); err != nil {
		t.Fatal(err)
	}
	out, err := f.Update(wrench.Wrench{1, 2, 3, 4, 5, 6})
	if err != nil {
		t.Fatal(err)
	}
	for i := range out {
		if want := f.b[0] * float64(i+1); math.Abs(out[i]-want) > 1e-15 {
			t.Errorf("channel %d = %g, want %g", i, out[i], want)
		}
	}
}

func TestStepResponseSettles(t *testing.T) {
	var f Butterworth
	if err := f.Initialize(6, DefaultCutoff); err != nil {
		t.Fatal(err)
	}
	step := wrench.Wrench{10, -5, 2, 0.5, -0.25, 1}
	var out wrench.Wrench
	for i := 0; i < 500; i++ {
		var err error
		out, err = f.Update(step)
		if err != nil {
			t.Fatal(err)
		}
	}
	if !floats.EqualApprox(out[:], step[:], 1e-9) {
		t.Fatalf("step response settled at %v, want %v", out, step)
	}
}

func TestAttenuatesAboveCutoff(t *testing.T) {
	var f Butterworth
	if err := f.Initialize(3, 0.02); err != nil {
		t.Fatal(err)
	}
	// Alternating input sits at the Nyquist frequency.
	peak := 0.0
	for i := 0; i < 400; i++ {
		v := 1.0
		if i%2 == 1 {
			v = -1
		}
		out, err := f.Update(wrench.Wrench{v, v, v})
		if err != nil {
			t.Fatal(err)
		}
		if i > 200 {
			peak = math.Max(peak, math.Abs(out[0]))
		}
	}
	if peak > 1e-6 {
		t.Fatalf("Nyquist input leaked through with amplitude %g", peak)
	}
}

func TestThreeAxisPassesTorquesThrough(t *testing.T) {
	var f Butterworth
	if err := f.Initialize(3, DefaultCutoff); err != nil {
		t.Fatal(err)
	}
	out, err := f.Update(wrench.Wrench{1, 1, 1, 7, 8, 9})
	if err != nil {
		t.Fatal(err)
	}
	if out[3] != 7 || out[4] != 8 || out[5] != 9 {
		t.Fatalf("unfiltered channels changed: %v", out)
	}
	if out[0] == 1 {
		t.Fatal("filtered channel passed through unchanged")
	}
}

func TestDeterministic(t *testing.T) {
	var a, b Butterworth
	if err := a.Initialize(6, 0.1); err != nil {
		t.Fatal(err)
	}
	if err := b.Initialize(6, 0.1); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 1000; i++ {
		x := float64(i)
		in := wrench.Wrench{math.Sin(x), math.Cos(x * 0.3), x * 0.01, -x, math.Sin(x * 7), 1}
		oa, _ := a.Update(in)
		ob, _ := b.Update(in)
		if oa != ob {
			t.Fatalf("sample %d: outputs diverged %v vs %v", i, oa, ob)
		}
	}
}

func TestReinitializeClearsState(t *testing.T) {
	var f Butterworth
	if err := f.Initialize(6, DefaultCutoff); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		f.Update(wrench.Wrench{100, 100, 100, 100, 100, 100})
	}
	if err := f.Initialize(6, DefaultCutoff); err != nil {
		t.Fatal(err)
	}
	out, _ := f.Update(wrench.Wrench{})
	if out != (wrench.Wrench{}) {
		t.Fatalf("state survived re-initialize: %v", out)
	}
}
