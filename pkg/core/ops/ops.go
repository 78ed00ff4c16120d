// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package ops implements eager numerical primitives over tensors.Tensor: generalized dot
// products, convolutions, gather and the array manipulations layers need around them.
//
// Each op validates its inputs with the rules in shapeinference.go and panics (with an error
// carrying a stack trace) on invalid arguments, in the same way graph building functions
// do in GoMLX. Use exceptions.TryCatch[error] to convert those to errors.
//
// Ops never modify their inputs.
package ops

import (
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/linen/pkg/core/tensors"
)

// Precision selects the accumulation precision of the contractions (DotGeneral and ConvGeneral).
type Precision int

const (
	// PrecisionDefault accumulates in at least Float32: Float16 and BFloat16 inputs
	// accumulate in Float32, Float64 inputs in Float64.
	PrecisionDefault Precision = iota

	// PrecisionHigh is the same as PrecisionDefault on CPU.
	PrecisionHigh

	// PrecisionHighest accumulates always in Float64.
	PrecisionHighest
)

//go:generate go tool enumer -type=Precision -trimprefix=Precision -transform=snake -values -text -output=gen_precision_enumer.go ops.go

// accumulatorDType returns the dtype used to accumulate sums of products of operands of the given dtype.
func accumulatorDType(dtype dtypes.DType, precision Precision) dtypes.DType {
	if precision == PrecisionHighest || dtype == dtypes.Float64 {
		return dtypes.Float64
	}
	return dtypes.Float32
}

// IsFloat returns whether dtype is one of the float dtypes supported by the contractions.
func IsFloat(dtype dtypes.DType) bool {
	switch dtype {
	case dtypes.Float16, dtypes.BFloat16, dtypes.Float32, dtypes.Float64:
		return true
	}
	return false
}

// AdjustAxisToRank converts a negative axis to its non-negative equivalent for the given rank.
// It panics if the axis is out of range.
func AdjustAxisToRank(axis, rank int) int {
	adjusted := axis
	if adjusted < 0 {
		adjusted += rank
	}
	if adjusted < 0 || adjusted >= rank {
		exceptions.Panicf("axis %d out of range for rank %d", axis, rank)
	}
	return adjusted
}

// iotaSlice returns [start, start+1, ..., start+n-1].
func iotaSlice(start, n int) []int {
	s := make([]int, n)
	for ii := range s {
		s[ii] = start + ii
	}
	return s
}

// sliceWithValue returns a slice of size n filled with value.
func sliceWithValue(n, value int) []int {
	s := make([]int, n)
	for ii := range s {
		s[ii] = value
	}
	return s
}

// toAccumulator returns the flat values of t converted to the accumulator dtype.
func toAccumulator[A float32 | float64](t *tensors.Tensor, accDType dtypes.DType) []A {
	converted := ConvertDType(t, accDType)
	return tensors.FlatData[A](converted)
}

// complementAxes returns the axes in [0, rank) not in any of the given lists, in order.
func complementAxes(rank int, used ...[]int) []int {
	var free []int
	for axis := range rank {
		found := false
		for _, list := range used {
			if slices.Contains(list, axis) {
				found = true
				break
			}
		}
		if !found {
			free = append(free, axis)
		}
	}
	return free
}
