// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ops

import (
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/linen/pkg/core/shapes"
	"github.com/gomlx/linen/pkg/core/tensors"
)

// DotGeneral takes as input lhs (left-hand-side) and rhs (right-hand-side) specifications
// for a general vector product -- a generalized "Einsum". Each axis can be:
//
//   - Just aligned (batch axes), so the output has the same axes as the inputs. The dimensions
//     must match in lhs and rhs.
//   - Crossed (default), in which case the output is the combination (concatenation) of the
//     dimensions.
//   - Contracted (contracting axes), where the output does multiply the values and reduce sum
//     those dimensions.
//
// The output has the batch axes first (in the order given), then the lhs cross axes, then the
// rhs cross axes, each in their original order. Both operands must have the same float dtype.
//
// The precision selects the accumulator type, see Precision.
func DotGeneral(lhs *tensors.Tensor, lhsContractingAxes, lhsBatchAxes []int,
	rhs *tensors.Tensor, rhsContractingAxes, rhsBatchAxes []int, precision Precision) *tensors.Tensor {
	if !IsFloat(lhs.DType()) {
		exceptions.Panicf("DotGeneral: only float dtypes are supported, got lhs=%s", lhs.Shape())
	}
	outputShape := must1(dotGeneralShape(lhs.Shape(), lhsContractingAxes, lhsBatchAxes,
		rhs.Shape(), rhsContractingAxes, rhsBatchAxes))
	lhsCrossAxes := complementAxes(lhs.Rank(), lhsContractingAxes, lhsBatchAxes)
	rhsCrossAxes := complementAxes(rhs.Rank(), rhsContractingAxes, rhsBatchAxes)

	batchSize := sizeOfAxes(lhs.Shape(), lhsBatchAxes)
	contractingSize := sizeOfAxes(lhs.Shape(), lhsContractingAxes)
	lhsCrossSize := sizeOfAxes(lhs.Shape(), lhsCrossAxes)
	rhsCrossSize := sizeOfAxes(rhs.Shape(), rhsCrossAxes)

	// Normalize both sides to [batch, cross, contracting], so the kernel works on contiguous rows.
	lhsNormalized := Transpose(lhs, slices.Concat(lhsBatchAxes, lhsCrossAxes, lhsContractingAxes)...)
	rhsNormalized := Transpose(rhs, slices.Concat(rhsBatchAxes, rhsCrossAxes, rhsContractingAxes)...)

	accDType := accumulatorDType(lhs.DType(), precision)
	var outputFlat any
	switch accDType {
	case dtypes.Float32:
		outputFlat = dotKernel(toAccumulator[float32](lhsNormalized, accDType), toAccumulator[float32](rhsNormalized, accDType),
			batchSize, lhsCrossSize, rhsCrossSize, contractingSize)
	default:
		outputFlat = dotKernel(toAccumulator[float64](lhsNormalized, accDType), toAccumulator[float64](rhsNormalized, accDType),
			batchSize, lhsCrossSize, rhsCrossSize, contractingSize)
	}
	output := tensors.FromFlat(outputShape.WithDType(accDType), outputFlat)
	return ConvertDType(output, outputShape.DType)
}

// dotKernel multiplies lhs shaped [batch, lhsCross, contracting] by rhs shaped
// [batch, rhsCross, contracting], returning [batch, lhsCross, rhsCross].
func dotKernel[A float32 | float64](lhs, rhs []A, batchSize, lhsCrossSize, rhsCrossSize, contractingSize int) []A {
	output := make([]A, batchSize*lhsCrossSize*rhsCrossSize)
	for b := range batchSize {
		for m := range lhsCrossSize {
			lhsStart := (b*lhsCrossSize + m) * contractingSize
			lhsRow := lhs[lhsStart : lhsStart+contractingSize]
			outputRow := output[(b*lhsCrossSize+m)*rhsCrossSize:]
			for n := range rhsCrossSize {
				rhsStart := (b*rhsCrossSize + n) * contractingSize
				rhsRow := rhs[rhsStart : rhsStart+contractingSize]
				var sum A
				for k, value := range lhsRow {
					sum += value * rhsRow[k]
				}
				outputRow[n] = sum
			}
		}
	}
	return output
}

// sizeOfAxes returns the product of the dimensions of the given axes (1 if there are none).
func sizeOfAxes(shape shapes.Shape, axes []int) int {
	size := 1
	for _, axis := range axes {
		size *= shape.Dimensions[axis]
	}
	return size
}
