// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package filter provides a causal second-order Butterworth low-pass filter
// applied independently to each wrench channel.
package filter

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/relabs-tech/forcetorque/internal/wrench"
)

var (
	ErrNotInitialized = errors.New("filter: not initialized")
	ErrCutoff         = errors.New("filter: cutoff must be in (0, 0.5)")
	ErrDimension      = errors.New("filter: dimension must be 3 or 6")
)

// DefaultCutoff is the cutoff as a fraction of the sample rate.
const DefaultCutoff = 0.05

// Butterworth holds the coefficients and two-sample delay lines of the
// filter. The zero value must be initialized before use.
type Butterworth struct {
	dim    int
	cutoff float64

	b [3]float64 // feed-forward
	a [2]float64 // feedback, sign folded in

	// x[0] is the newest input, y[0] the newest output.
	x [3]*mat.VecDense
	y [3]*mat.VecDense
}

// Initialize sets the number of filtered channels and the cutoff frequency
// as a fraction of the sampling frequency, and clears the state.
//
// Coefficients come from the bilinear transform with frequency pre-warping:
//
//	η  = 1 / tan(π·fc),  q = √2
//	b0 = 1 / (1 + qη + η²),  b1 = 2·b0,  b2 = b0
//	a1 = 2(η² − 1)·b0,       a2 = −(1 − qη + η²)·b0
//	y[n] = b0·x[n] + b1·x[n−1] + b2·x[n−2] + a1·y[n−1] + a2·y[n−2]
func (f *Butterworth) Initialize(dimension int, cutoff float64) error {
	if dimension != 3 && dimension != 6 {
		return fmt.Errorf("%w, got %d", ErrDimension, dimension)
	}
	if !(cutoff > 0 && cutoff < 0.5) {
		return fmt.Errorf("%w, got %g", ErrCutoff, cutoff)
	}

	eta := 1 / math.Tan(math.Pi*cutoff)
	q := math.Sqrt2
	b0 := 1 / (1 + q*eta + eta*eta)

	f.dim = dimension
	f.cutoff = cutoff
	f.b = [3]float64{b0, 2 * b0, b0}
	f.a = [2]float64{2 * (eta*eta - 1) * b0, -(1 - q*eta + eta*eta) * b0}
	for i := range f.x {
		f.x[i] = mat.NewVecDense(dimension, nil)
		f.y[i] = mat.NewVecDense(dimension, nil)
	}
	return nil
}

// Dimension returns the number of filtered channels, 0 before Initialize.
func (f *Butterworth) Dimension() int { return f.dim }

// Cutoff returns the configured cutoff fraction.
func (f *Butterworth) Cutoff() float64 { return f.cutoff }

// Update advances every filtered channel by one sample and returns the
// filtered wrench. Channels past the filter dimension pass through.
func (f *Butterworth) Update(in wrench.Wrench) (wrench.Wrench, error) {
	if f.dim == 0 {
		return wrench.Wrench{}, ErrNotInitialized
	}

	// Shift delay lines, reusing the oldest vectors for the new sample.
	x2, y2 := f.x[2], f.y[2]
	f.x[2], f.x[1] = f.x[1], f.x[0]
	f.y[2], f.y[1] = f.y[1], f.y[0]
	f.x[0], f.y[0] = x2, y2

	for i := 0; i < f.dim; i++ {
		f.x[0].SetVec(i, in[i])
	}

	out := f.y[0]
	out.ScaleVec(f.b[0], f.x[0])
	out.AddScaledVec(out, f.b[1], f.x[1])
	out.AddScaledVec(out, f.b[2], f.x[2])
	out.AddScaledVec(out, f.a[0], f.y[1])
	out.AddScaledVec(out, f.a[1], f.y[2])

	res := in
	for i := 0; i < f.dim; i++ {
		res[i] = out.AtVec(i)
	}
	return res, nil
}
