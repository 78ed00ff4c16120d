// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ops

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/linen/pkg/core/shapes"
	"github.com/gomlx/linen/pkg/core/tensors"
)

// Add returns lhs + rhs element-wise.
//
// Both must have the same dtype. A scalar is broadcast to the shape of the other operand,
// otherwise both must have the same rank and axes of dimension 1 are broadcast.
func Add(lhs, rhs *tensors.Tensor) *tensors.Tensor {
	outputShape := must1(binaryOpShape(lhs.Shape(), rhs.Shape()))
	lhsIndices := broadcastIndices(lhs.Shape(), outputShape)
	rhsIndices := broadcastIndices(rhs.Shape(), outputShape)
	switch outputShape.DType {
	case dtypes.Float32:
		return addFlat[float32](lhs, rhs, outputShape, lhsIndices, rhsIndices)
	case dtypes.Float64:
		return addFlat[float64](lhs, rhs, outputShape, lhsIndices, rhsIndices)
	case dtypes.Int8:
		return addFlat[int8](lhs, rhs, outputShape, lhsIndices, rhsIndices)
	case dtypes.Int16:
		return addFlat[int16](lhs, rhs, outputShape, lhsIndices, rhsIndices)
	case dtypes.Int32:
		return addFlat[int32](lhs, rhs, outputShape, lhsIndices, rhsIndices)
	case dtypes.Int64:
		return addFlat[int64](lhs, rhs, outputShape, lhsIndices, rhsIndices)
	case dtypes.Uint8:
		return addFlat[uint8](lhs, rhs, outputShape, lhsIndices, rhsIndices)
	case dtypes.Uint16:
		return addFlat[uint16](lhs, rhs, outputShape, lhsIndices, rhsIndices)
	case dtypes.Uint32:
		return addFlat[uint32](lhs, rhs, outputShape, lhsIndices, rhsIndices)
	case dtypes.Uint64:
		return addFlat[uint64](lhs, rhs, outputShape, lhsIndices, rhsIndices)
	case dtypes.Float16, dtypes.BFloat16:
		// Half precision values are added in Float32 and converted back.
		sum := Add(ConvertDType(lhs, dtypes.Float32), ConvertDType(rhs, dtypes.Float32))
		return ConvertDType(sum, outputShape.DType)
	}
	exceptions.Panicf("Add: dtype %s not supported", outputShape.DType)
	return nil
}

// addable lists the Go types of the dtypes Add handles natively.
type addable interface {
	int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64 | float32 | float64
}

func addFlat[T addable](lhs, rhs *tensors.Tensor, outputShape shapes.Shape,
	lhsIndices, rhsIndices []int) *tensors.Tensor {
	lhsFlat, rhsFlat := tensors.FlatData[T](lhs), tensors.FlatData[T](rhs)
	output := make([]T, outputShape.Size())
	for ii := range output {
		output[ii] = lhsFlat[lhsIndices[ii]] + rhsFlat[rhsIndices[ii]]
	}
	return tensors.FromFlat(outputShape, output)
}

// broadcastIndices maps each flat position of the output shape to the flat position of the
// operand, which is either a scalar or has the same rank with some axes of dimension 1.
func broadcastIndices(operand, output shapes.Shape) []int {
	indices := make([]int, output.Size())
	if operand.IsScalar() {
		return indices
	}
	strides := operand.Strides()
	for axis, dim := range operand.Dimensions {
		if dim == 1 {
			strides[axis] = 0
		}
	}
	for flatIdx, outIdx := range output.Iter() {
		srcIdx := 0
		for axis, idx := range outIdx {
			srcIdx += idx * strides[axis]
		}
		indices[flatIdx] = srcIdx
	}
	return indices
}
