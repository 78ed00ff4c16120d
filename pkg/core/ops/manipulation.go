// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ops

import (
	"reflect"
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/gopjrt/dtypes/bfloat16"
	"github.com/gomlx/linen/pkg/core/shapes"
	"github.com/gomlx/linen/pkg/core/tensors"
	"github.com/x448/float16"
)

// ConvertDType returns x converted to dtype. If x already has the dtype it is returned as is.
//
// Conversions between integer dtypes (and Bool) go through int64, all others through float64.
// Float to integer conversions truncate towards zero.
func ConvertDType(x *tensors.Tensor, dtype dtypes.DType) *tensors.Tensor {
	if x.DType() == dtype {
		return x
	}
	dims := x.Shape().Dimensions
	if isIntegerOrBool(x.DType()) && isIntegerOrBool(dtype) {
		return tensors.FromInt64s(dtype, x.Int64s(), dims...)
	}
	return tensors.FromFloat64s(dtype, x.Float64s(), dims...)
}

func isIntegerOrBool(dtype dtypes.DType) bool {
	switch dtype {
	case dtypes.Bool, dtypes.Int8, dtypes.Int16, dtypes.Int32, dtypes.Int64,
		dtypes.Uint8, dtypes.Uint16, dtypes.Uint32, dtypes.Uint64:
		return true
	}
	return false
}

// Reshape returns a copy of x with new dimensions. The total size must be the same.
// One of the dimensions can be -1, in which case it is inferred from the others.
func Reshape(x *tensors.Tensor, dimensions ...int) *tensors.Tensor {
	outputShape := must1(reshapeShape(x.Shape(), dimensions))
	return tensors.FromFlat(outputShape, x.Clone().Flat())
}

// InsertAxes returns x with new axes of dimension 1 created just before the given axes, which
// refer to positions in the original x. An axis of -1 appends a new axis at the end.
// Other negative values count from the end, like everywhere else.
func InsertAxes(x *tensors.Tensor, beforeAxes ...int) *tensors.Tensor {
	rank := x.Rank()
	positions := make([]int, len(beforeAxes))
	for ii, axis := range beforeAxes {
		switch {
		case axis == -1:
			positions[ii] = rank
		case axis < 0:
			positions[ii] = axis + rank
		default:
			positions[ii] = axis
		}
		if positions[ii] < 0 || positions[ii] > rank {
			exceptions.Panicf("InsertAxes(%v): axis %d out of range for x shaped %s", beforeAxes, axis, x.Shape())
		}
	}
	slices.Sort(positions)
	dims := make([]int, 0, rank+len(positions))
	posIdx := 0
	for axis := 0; axis <= rank; axis++ {
		for posIdx < len(positions) && positions[posIdx] == axis {
			dims = append(dims, 1)
			posIdx++
		}
		if axis < rank {
			dims = append(dims, x.Shape().Dimensions[axis])
		}
	}
	return Reshape(x, dims...)
}

// Transpose permutes the axes of x: output axis i is x's axis permutation[i].
func Transpose(x *tensors.Tensor, permutation ...int) *tensors.Tensor {
	outputShape := must1(transposeShape(x.Shape(), permutation))
	inputStrides := x.Shape().Strides()
	permutedStrides := make([]int, len(permutation))
	for ii, axis := range permutation {
		permutedStrides[ii] = inputStrides[axis]
	}
	indices := make([]int, outputShape.Size())
	for flatIdx, outIdx := range outputShape.Iter() {
		srcIdx := 0
		for axis, idx := range outIdx {
			srcIdx += idx * permutedStrides[axis]
		}
		indices[flatIdx] = srcIdx
	}
	return tensors.FromFlat(outputShape, take(x.Flat(), indices))
}

// Concatenate joins the tensors along the given axis. All other dimensions and the dtype must match.
func Concatenate(axis int, inputs ...*tensors.Tensor) *tensors.Tensor {
	if len(inputs) == 0 {
		exceptions.Panicf("Concatenate requires at least one input")
	}
	axis = AdjustAxisToRank(axis, inputs[0].Rank())
	inputShapes := make([]shapes.Shape, len(inputs))
	for ii, input := range inputs {
		inputShapes[ii] = input.Shape()
	}
	outputShape := must1(concatenateShape(inputShapes, axis))

	// Copy blocks: for each position on the axes before `axis`, copy the contiguous
	// chunk of each input in turn.
	outerSize := 1
	for _, dim := range outputShape.Dimensions[:axis] {
		outerSize *= dim
	}
	outputV := reflect.MakeSlice(reflect.TypeOf(inputs[0].Flat()), 0, outputShape.Size())
	for outer := range outerSize {
		for _, input := range inputs {
			chunk := input.Size() / outerSize
			inputV := reflect.ValueOf(input.Flat())
			outputV = reflect.AppendSlice(outputV, inputV.Slice(outer*chunk, (outer+1)*chunk))
		}
	}
	return tensors.FromFlat(outputShape, outputV.Interface())
}

// take returns a new flat slice with flat[indices[i]] for each i.
func take(flat any, indices []int) any {
	switch typed := flat.(type) {
	case []float32:
		return takeGeneric(typed, indices)
	case []float64:
		return takeGeneric(typed, indices)
	case []float16.Float16:
		return takeGeneric(typed, indices)
	case []bfloat16.BFloat16:
		return takeGeneric(typed, indices)
	case []int8:
		return takeGeneric(typed, indices)
	case []int16:
		return takeGeneric(typed, indices)
	case []int32:
		return takeGeneric(typed, indices)
	case []int64:
		return takeGeneric(typed, indices)
	case []uint8:
		return takeGeneric(typed, indices)
	case []uint16:
		return takeGeneric(typed, indices)
	case []uint32:
		return takeGeneric(typed, indices)
	case []uint64:
		return takeGeneric(typed, indices)
	case []bool:
		return takeGeneric(typed, indices)
	case []complex64:
		return takeGeneric(typed, indices)
	case []complex128:
		return takeGeneric(typed, indices)
	}
	exceptions.Panicf("take: unsupported flat data type %T", flat)
	return nil
}

func takeGeneric[T any](flat []T, indices []int) []T {
	out := make([]T, len(indices))
	for ii, idx := range indices {
		out[ii] = flat[idx]
	}
	return out
}
