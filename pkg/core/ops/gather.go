// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ops

import (
	"math"
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/linen/pkg/core/tensors"
)

// Gather slices of operand at the positions given by startIndices, following XLA semantics
// (https://openxla.org/xla/operation_semantics#gather):
//
//   - indexVectorAxis: axis of startIndices holding the index vectors. If equal to the rank of
//     startIndices, the index vectors are taken to be of size 1.
//   - offsetOutputAxes: output axes holding the sliced (non-collapsed) operand axes.
//   - collapsedSliceAxes: operand axes sliced with size 1 and dropped from the output.
//   - startIndexMap: operand axis indexed by each element of the index vector.
//   - sliceSizes: size of the slice on each operand axis.
//
// All other output axes are batch axes, taken in order from the startIndices axes.
//
// Like XLA, the start indices are clamped so that the whole slice stays within the operand.
func Gather(operand, startIndices *tensors.Tensor, indexVectorAxis int, offsetOutputAxes, collapsedSliceAxes,
	startIndexMap, sliceSizes []int) *tensors.Tensor {
	if !isIntegerOrBool(startIndices.DType()) {
		exceptions.Panicf("Gather: start indices must be of an integer dtype, got %s", startIndices.Shape())
	}
	outputShape := must1(gatherShape(operand.Shape(), startIndices.Shape(), indexVectorAxis, offsetOutputAxes,
		collapsedSliceAxes, startIndexMap, sliceSizes))
	indicesShape := startIndices.Shape()
	indices := startIndices.Int64s()
	if startIndices.DType() == dtypes.Uint64 {
		// Saturate, so values above MaxInt64 clamp to the end and not to 0.
		for ii, index := range tensors.FlatData[uint64](startIndices) {
			indices[ii] = int64(min(index, math.MaxInt64))
		}
	}
	operandShape := operand.Shape()

	sortedOffsetAxes := slices.Clone(offsetOutputAxes)
	slices.Sort(sortedOffsetAxes)
	outputBatchAxes := complementAxes(outputShape.Rank(), sortedOffsetAxes)
	indicesBatchAxes := complementAxes(indicesShape.Rank(), []int{indexVectorAxis})
	operandOffsetAxes := complementAxes(operandShape.Rank(), collapsedSliceAxes)
	hasIndexVectorAxis := indexVectorAxis < indicesShape.Rank()

	srcIndices := make([]int, outputShape.Size())
	indicesIdx := make([]int, indicesShape.Rank())
	operandIdx := make([]int, operandShape.Rank())
	for outputFlatIdx, outputIdx := range outputShape.Iter() {
		for ii, outputAxis := range outputBatchAxes {
			indicesIdx[indicesBatchAxes[ii]] = outputIdx[outputAxis]
		}
		clear(operandIdx)
		for vectorIdx, operandAxis := range startIndexMap {
			if hasIndexVectorAxis {
				indicesIdx[indexVectorAxis] = vectorIdx
			}
			start := indices[indicesShape.FlatIndex(indicesIdx)]
			maxStart := int64(operandShape.Dimensions[operandAxis] - sliceSizes[operandAxis])
			operandIdx[operandAxis] = int(min(max(start, 0), maxStart))
		}
		for ii, outputAxis := range sortedOffsetAxes {
			operandIdx[operandOffsetAxes[ii]] += outputIdx[outputAxis]
		}
		srcIndices[outputFlatIdx] = operandShape.FlatIndex(operandIdx)
	}
	return tensors.FromFlat(outputShape, take(operand.Flat(), srcIndices))
}
