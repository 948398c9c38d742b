// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package grid

import (
	"fmt"
	"iter"
	"strconv"
)

// =============================================================================
// Types
// =============================================================================

// Point is one run's parameter tuple.
//
// Trial is 1-based and only distinguishes repeated runs of the same
// parameters; it is never passed to the solver.
type Point struct {
	Temperature int
	Cooling     float64
	Equilibrium int
	NoImprove   int
	Trial       int
}

// String renders the point as "T=20 C=0.9 equ=1 noimp=1000 trial=1".
func (p Point) String() string {
	return fmt.Sprintf("T=%d C=%g equ=%d noimp=%d trial=%d",
		p.Temperature, p.Cooling, p.Equilibrium, p.NoImprove, p.Trial)
}

// Params returns the four solver parameters as decimal strings, in the order
// T, C, equ, noimp.
//
// Cooling uses the shortest representation that round-trips, so 0.9 renders
// as "0.9" and 0.999 as "0.999", never rounded or padded.
func (p Point) Params() [4]string {
	return [4]string{
		strconv.Itoa(p.Temperature),
		strconv.FormatFloat(p.Cooling, 'f', -1, 64),
		strconv.Itoa(p.Equilibrium),
		strconv.Itoa(p.NoImprove),
	}
}

// Axes holds the values of each sweep dimension.
//
// Values are used as given, in the given order. Duplicates are not removed
// and nothing is sorted.
type Axes struct {
	Temperatures       []int
	CoolingRatios      []float64
	EquilibriumLengths []int
	NoImproveCutoffs   []int
	Trials             int
}

// DefaultAxes returns the reference grid: 4 temperatures, 4 cooling ratios,
// 3 equilibrium lengths, 3 no-improvement cutoffs and 10 trials, for 1440
// tuples.
func DefaultAxes() Axes {
	return Axes{
		Temperatures:       []int{20, 100, 500, 1000},
		CoolingRatios:      []float64{0.9, 0.95, 0.99, 0.999},
		EquilibriumLengths: []int{1, 10, 100},
		NoImproveCutoffs:   []int{1000, 2000, 5000},
		Trials:             10,
	}
}

// =============================================================================
// Enumeration
// =============================================================================

// Size returns the number of tuples in the grid.
//
// An empty axis or a non-positive trial count yields 0.
func (a Axes) Size() int {
	if a.Trials <= 0 {
		return 0
	}
	return len(a.Temperatures) * len(a.CoolingRatios) *
		len(a.EquilibriumLengths) * len(a.NoImproveCutoffs) * a.Trials
}

// At returns the tuple at index i.
//
// # Description
//
// Decodes i as a mixed-radix number whose least significant digit is the
// trial and whose most significant digit is the temperature.
//
// # Inputs
//
//   - i: index in [0, Size())
//
// # Outputs
//
//   - Point: the tuple at that position in nested order
//
// # Examples
//
//	grid.DefaultAxes().At(0)  // T=20 C=0.9 equ=1 noimp=1000 trial=1
//	grid.DefaultAxes().At(10) // T=20 C=0.9 equ=1 noimp=2000 trial=1
//
// # Limitations
//
// Panics if i is out of range, like a slice index.
func (a Axes) At(i int) Point {
	if i < 0 || i >= a.Size() {
		panic(fmt.Sprintf("grid: index %d out of range [0, %d)", i, a.Size()))
	}

	trial := i % a.Trials
	i /= a.Trials
	n := i % len(a.NoImproveCutoffs)
	i /= len(a.NoImproveCutoffs)
	e := i % len(a.EquilibriumLengths)
	i /= len(a.EquilibriumLengths)
	c := i % len(a.CoolingRatios)
	i /= len(a.CoolingRatios)

	return Point{
		Temperature: a.Temperatures[i],
		Cooling:     a.CoolingRatios[c],
		Equilibrium: a.EquilibriumLengths[e],
		NoImprove:   a.NoImproveCutoffs[n],
		Trial:       trial + 1,
	}
}

// All returns every tuple with its index, in nested order.
//
// The sequence is lazy and can be ranged over any number of times.
func (a Axes) All() iter.Seq2[int, Point] {
	return a.From(0)
}

// From returns the tuples from index start onward.
//
// A start at or beyond Size yields nothing; a negative start is treated
// as 0.
//
// # Example
//
//	for i, p := range axes.From(done) {
//	    // resume after `done` completed runs
//	}
func (a Axes) From(start int) iter.Seq2[int, Point] {
	if start < 0 {
		start = 0
	}
	return func(yield func(int, Point) bool) {
		size := a.Size()
		for i := start; i < size; i++ {
			if !yield(i, a.At(i)) {
				return
			}
		}
	}
}
