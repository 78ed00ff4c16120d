// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ops

import (
	"slices"

	"github.com/gomlx/linen/pkg/core/shapes"
	"github.com/pkg/errors"
)

// must1 panics if err is not nil, otherwise returns value.
func must1[T any](value T, err error) T {
	if err != nil {
		panic(err)
	}
	return value
}

// ConvolveAxesConfig defines the interpretation of the input/kernel/output tensor axes.
// There must be the same number of spatial axes for each of the 3 tensors.
// Input and output have batch and channel axes. Kernel has input-channel and output-channel axes.
type ConvolveAxesConfig struct {
	InputBatch, InputChannels int
	InputSpatial              []int

	KernelInputChannels, KernelOutputChannels int
	KernelSpatial                             []int

	OutputBatch, OutputChannels int
	OutputSpatial               []int
}

// Clone returns a deep copy of the structure.
func (c ConvolveAxesConfig) Clone() ConvolveAxesConfig {
	c2 := c
	c2.InputSpatial = slices.Clone(c.InputSpatial)
	c2.KernelSpatial = slices.Clone(c.KernelSpatial)
	c2.OutputSpatial = slices.Clone(c.OutputSpatial)
	return c2
}

// ChannelsLastAxes returns the axes configuration for a "channels last" layout of the given rank:
// input and output are (batch, spatial..., channels) and the kernel is (spatial..., inputChannels,
// outputChannels).
func ChannelsLastAxes(rank int) ConvolveAxesConfig {
	spatialRank := rank - 2
	return ConvolveAxesConfig{
		InputBatch:           0,
		InputChannels:        rank - 1,
		InputSpatial:         iotaSlice(1, spatialRank),
		KernelInputChannels:  rank - 2,
		KernelOutputChannels: rank - 1,
		KernelSpatial:        iotaSlice(0, spatialRank),
		OutputBatch:          0,
		OutputChannels:       rank - 1,
		OutputSpatial:        iotaSlice(1, spatialRank),
	}
}

// checkAxes verifies that all axes are within [0, rank) and unique.
func checkAxes(name string, axes []int, rank int) error {
	seen := make(map[int]bool, len(axes))
	for _, axis := range axes {
		if axis < 0 || axis >= rank {
			return errors.Errorf("%s: axis %d out of range for rank %d", name, axis, rank)
		}
		if seen[axis] {
			return errors.Errorf("%s: axis %d given more than once in %v", name, axis, axes)
		}
		seen[axis] = true
	}
	return nil
}

func reshapeShape(operand shapes.Shape, dims []int) (shapes.Shape, error) {
	dims = slices.Clone(dims)
	inferred := -1
	knownSize := 1
	for axis, dim := range dims {
		switch {
		case dim == -1 && inferred == -1:
			inferred = axis
		case dim <= 0:
			return shapes.Invalid(), errors.Errorf("Reshape(%s, %v): invalid dimension %d", operand, dims, dim)
		default:
			knownSize *= dim
		}
	}
	if inferred >= 0 {
		if operand.Size()%knownSize != 0 {
			return shapes.Invalid(), errors.Errorf("Reshape(%s, %v): cannot infer dimension", operand, dims)
		}
		dims[inferred] = operand.Size() / knownSize
		knownSize *= dims[inferred]
	}
	if knownSize != operand.Size() {
		return shapes.Invalid(), errors.Errorf("Reshape(%s, %v): size %d doesn't match new size %d",
			operand, dims, operand.Size(), knownSize)
	}
	return shapes.Make(operand.DType, dims...), nil
}

func transposeShape(operand shapes.Shape, permutation []int) (shapes.Shape, error) {
	if len(permutation) != operand.Rank() {
		return shapes.Invalid(), errors.Errorf("Transpose(%s, %v): permutation must have one value per axis",
			operand, permutation)
	}
	if err := checkAxes("Transpose", permutation, operand.Rank()); err != nil {
		return shapes.Invalid(), err
	}
	output := operand.Clone()
	for ii, axis := range permutation {
		output.Dimensions[ii] = operand.Dimensions[axis]
	}
	return output, nil
}

func concatenateShape(inputs []shapes.Shape, axis int) (shapes.Shape, error) {
	output := inputs[0].Clone()
	for ii, input := range inputs[1:] {
		if input.DType != output.DType {
			return shapes.Invalid(), errors.Errorf("Concatenate: input #0 has dtype %s, input #%d has %s",
				output.DType, ii+1, input.DType)
		}
		if input.Rank() != output.Rank() {
			return shapes.Invalid(), errors.Errorf("Concatenate: input #0 has rank %d, input #%d has rank %d",
				output.Rank(), ii+1, input.Rank())
		}
		for d := range input.Rank() {
			if d == axis {
				output.Dimensions[d] += input.Dimensions[d]
			} else if input.Dimensions[d] != output.Dimensions[d] {
				return shapes.Invalid(), errors.Errorf("Concatenate: mismatched dimensions at axis %d: input #0 has %d, input #%d has %d",
					d, output.Dimensions[d], ii+1, input.Dimensions[d])
			}
		}
	}
	return output, nil
}

// binaryOpShape returns the shape of an element-wise binary operation. Scalars broadcast to any
// shape, otherwise the ranks must match and each axis must have the same dimension or be 1.
func binaryOpShape(lhs, rhs shapes.Shape) (shapes.Shape, error) {
	if lhs.DType != rhs.DType {
		return shapes.Invalid(), errors.Errorf("binary op: dtypes don't match: %s and %s", lhs, rhs)
	}
	if lhs.IsScalar() {
		return rhs.Clone(), nil
	}
	if rhs.IsScalar() {
		return lhs.Clone(), nil
	}
	if lhs.Rank() != rhs.Rank() {
		return shapes.Invalid(), errors.Errorf("binary op: ranks don't match: %s and %s", lhs, rhs)
	}
	output := lhs.Clone()
	for axis, dim := range rhs.Dimensions {
		switch {
		case dim == output.Dimensions[axis]:
		case output.Dimensions[axis] == 1:
			output.Dimensions[axis] = dim
		case dim != 1:
			return shapes.Invalid(), errors.Errorf("binary op: dimensions of axis %d don't broadcast: %s and %s",
				axis, lhs, rhs)
		}
	}
	return output, nil
}

// dotGeneralShape returns the output shape of DotGeneral: batch axes, then lhs cross axes,
// then rhs cross axes.
func dotGeneralShape(lhs shapes.Shape, lhsContracting, lhsBatch []int,
	rhs shapes.Shape, rhsContracting, rhsBatch []int) (shapes.Shape, error) {
	if lhs.DType != rhs.DType {
		return shapes.Invalid(), errors.Errorf("DotGeneral: lhs %s and rhs %s have different dtypes", lhs, rhs)
	}
	if len(lhsContracting) != len(rhsContracting) {
		return shapes.Invalid(), errors.Errorf("DotGeneral: number of contracting axes must match, got lhs %v and rhs %v",
			lhsContracting, rhsContracting)
	}
	if len(lhsBatch) != len(rhsBatch) {
		return shapes.Invalid(), errors.Errorf("DotGeneral: number of batch axes must match, got lhs %v and rhs %v",
			lhsBatch, rhsBatch)
	}
	if err := checkAxes("DotGeneral lhs", append(slices.Clone(lhsContracting), lhsBatch...), lhs.Rank()); err != nil {
		return shapes.Invalid(), err
	}
	if err := checkAxes("DotGeneral rhs", append(slices.Clone(rhsContracting), rhsBatch...), rhs.Rank()); err != nil {
		return shapes.Invalid(), err
	}
	for ii, lhsAxis := range lhsContracting {
		if lhs.Dimensions[lhsAxis] != rhs.Dimensions[rhsContracting[ii]] {
			return shapes.Invalid(), errors.Errorf("DotGeneral: contracting lhs axis %d (dim %d) and rhs axis %d (dim %d) differ, lhs=%s rhs=%s",
				lhsAxis, lhs.Dimensions[lhsAxis], rhsContracting[ii], rhs.Dimensions[rhsContracting[ii]], lhs, rhs)
		}
	}
	var dims []int
	for ii, lhsAxis := range lhsBatch {
		if lhs.Dimensions[lhsAxis] != rhs.Dimensions[rhsBatch[ii]] {
			return shapes.Invalid(), errors.Errorf("DotGeneral: batch lhs axis %d (dim %d) and rhs axis %d (dim %d) differ, lhs=%s rhs=%s",
				lhsAxis, lhs.Dimensions[lhsAxis], rhsBatch[ii], rhs.Dimensions[rhsBatch[ii]], lhs, rhs)
		}
		dims = append(dims, lhs.Dimensions[lhsAxis])
	}
	for _, axis := range complementAxes(lhs.Rank(), lhsContracting, lhsBatch) {
		dims = append(dims, lhs.Dimensions[axis])
	}
	for _, axis := range complementAxes(rhs.Rank(), rhsContracting, rhsBatch) {
		dims = append(dims, rhs.Dimensions[axis])
	}
	return shapes.Make(lhs.DType, dims...), nil
}

// gatherShape returns the output shape of a Gather operation, following XLA semantics.
func gatherShape(operand, startIndices shapes.Shape, indexVectorAxis int, offsetOutputAxes, collapsedSliceAxes,
	startIndexMap, sliceSizes []int) (shapes.Shape, error) {
	if operand.IsScalar() {
		return shapes.Invalid(), errors.Errorf("Gather requires a non-scalar operand, got %s", operand)
	}
	if err := checkAxes("Gather collapsedSliceAxes", collapsedSliceAxes, operand.Rank()); err != nil {
		return shapes.Invalid(), err
	}
	if len(sliceSizes) != operand.Rank() {
		return shapes.Invalid(), errors.Errorf("Gather: sliceSizes (%v) must have one value per operand axis (rank %d)",
			sliceSizes, operand.Rank())
	}
	for axis, sliceSize := range sliceSizes {
		if sliceSize < 0 || sliceSize > operand.Dimensions[axis] {
			return shapes.Invalid(), errors.Errorf("Gather: sliceSize %d for axis %d must be in [0, %d]",
				sliceSize, axis, operand.Dimensions[axis])
		}
	}
	for _, axis := range collapsedSliceAxes {
		if sliceSizes[axis] != 1 {
			return shapes.Invalid(), errors.Errorf("Gather: collapsed slice axis %d must have sliceSize 1, got %d",
				axis, sliceSizes[axis])
		}
	}
	if operand.Rank() != len(collapsedSliceAxes)+len(offsetOutputAxes) {
		return shapes.Invalid(), errors.Errorf("Gather: len(collapsedSliceAxes)=%d + len(offsetOutputAxes)=%d must equal operand rank %d",
			len(collapsedSliceAxes), len(offsetOutputAxes), operand.Rank())
	}
	if indexVectorAxis < 0 || indexVectorAxis > startIndices.Rank() {
		return shapes.Invalid(), errors.Errorf("Gather: indexVectorAxis=%d out of range for start indices %s",
			indexVectorAxis, startIndices)
	}
	indexVectorSize := 1
	batchRank := startIndices.Rank()
	if indexVectorAxis < startIndices.Rank() {
		indexVectorSize = startIndices.Dimensions[indexVectorAxis]
		batchRank--
	}
	if len(startIndexMap) != indexVectorSize {
		return shapes.Invalid(), errors.Errorf("Gather: startIndexMap (%v) must have one value per index vector element (%d)",
			startIndexMap, indexVectorSize)
	}
	if err := checkAxes("Gather startIndexMap", startIndexMap, operand.Rank()); err != nil {
		return shapes.Invalid(), err
	}

	outputRank := batchRank + len(offsetOutputAxes)
	if err := checkAxes("Gather offsetOutputAxes", offsetOutputAxes, outputRank); err != nil {
		return shapes.Invalid(), err
	}
	offsetDims := make([]int, 0, len(offsetOutputAxes))
	for axis, sliceSize := range sliceSizes {
		if !slices.Contains(collapsedSliceAxes, axis) {
			offsetDims = append(offsetDims, sliceSize)
		}
	}
	isOffsetAxis := make(map[int]bool, len(offsetOutputAxes))
	for _, axis := range offsetOutputAxes {
		isOffsetAxis[axis] = true
	}
	dims := make([]int, outputRank)
	offsetIdx, batchIdx := 0, 0
	for axis := range dims {
		if isOffsetAxis[axis] {
			dims[axis] = offsetDims[offsetIdx]
			offsetIdx++
			continue
		}
		if batchIdx == indexVectorAxis {
			batchIdx++
		}
		dims[axis] = startIndices.Dimensions[batchIdx]
		batchIdx++
	}
	return shapes.Make(operand.DType, dims...), nil
}

// convGeneralShape returns the output shape for ConvGeneral. Strides, paddings and dilations
// must already have one value per spatial axis.
func convGeneralShape(input, kernel shapes.Shape, axes ConvolveAxesConfig,
	strides []int, paddings [][2]int, inputDilations, kernelDilations []int,
	channelGroupCount int) (shapes.Shape, error) {
	errorf := func(format string, args ...any) (shapes.Shape, error) {
		return shapes.Invalid(), errors.Errorf("ConvGeneral: "+format, args...)
	}
	if input.DType != kernel.DType {
		return errorf("input %s and kernel %s have different dtypes", input, kernel)
	}
	rank := input.Rank()
	spatialRank := rank - 2
	if rank < 3 {
		return errorf("input needs to be at least rank-3 with batch, channels and spatial axes, got %s", input)
	}
	if kernel.Rank() != rank {
		return errorf("input %s and kernel %s have different rank", input, kernel)
	}
	if len(axes.InputSpatial) != spatialRank || len(axes.KernelSpatial) != spatialRank || len(axes.OutputSpatial) != spatialRank {
		return errorf("axes configuration %+v must have %d spatial axes", axes, spatialRank)
	}
	if err := checkAxes("ConvGeneral input axes", append([]int{axes.InputBatch, axes.InputChannels}, axes.InputSpatial...), rank); err != nil {
		return shapes.Invalid(), err
	}
	if err := checkAxes("ConvGeneral kernel axes", append([]int{axes.KernelInputChannels, axes.KernelOutputChannels}, axes.KernelSpatial...), rank); err != nil {
		return shapes.Invalid(), err
	}
	if err := checkAxes("ConvGeneral output axes", append([]int{axes.OutputBatch, axes.OutputChannels}, axes.OutputSpatial...), rank); err != nil {
		return shapes.Invalid(), err
	}
	if len(strides) != spatialRank || len(paddings) != spatialRank ||
		len(inputDilations) != spatialRank || len(kernelDilations) != spatialRank {
		return errorf("strides %v, paddings %v and dilations %v, %v must have one value per spatial axis (%d)",
			strides, paddings, inputDilations, kernelDilations, spatialRank)
	}

	inputChannels := input.Dimensions[axes.InputChannels]
	outputChannels := kernel.Dimensions[axes.KernelOutputChannels]
	if channelGroupCount < 1 {
		return errorf("channelGroupCount=%d must be >= 1", channelGroupCount)
	}
	if inputChannels%channelGroupCount != 0 {
		return errorf("input channels dimension %d must be divisible by channelGroupCount %d", inputChannels, channelGroupCount)
	}
	if outputChannels%channelGroupCount != 0 {
		return errorf("kernel output channels dimension %d must be divisible by channelGroupCount %d", outputChannels, channelGroupCount)
	}
	kernelInputChannels := kernel.Dimensions[axes.KernelInputChannels]
	if inputChannels != kernelInputChannels*channelGroupCount {
		return errorf("we must have inputChannels (=%d) = kernelInputChannels (=%d) * channelGroupCount (=%d), input=%s kernel=%s",
			inputChannels, kernelInputChannels, channelGroupCount, input, kernel)
	}

	dims := make([]int, rank)
	dims[axes.OutputBatch] = input.Dimensions[axes.InputBatch]
	dims[axes.OutputChannels] = outputChannels
	for spatialIdx, inputAxis := range axes.InputSpatial {
		stride, padding := strides[spatialIdx], paddings[spatialIdx]
		inputDilation, kernelDilation := inputDilations[spatialIdx], kernelDilations[spatialIdx]
		if stride < 1 || inputDilation < 1 || kernelDilation < 1 {
			return errorf("stride (%d), input dilation (%d) and kernel dilation (%d) of spatial axis #%d must be >= 1",
				stride, inputDilation, kernelDilation, spatialIdx)
		}
		effectiveInputDim := (input.Dimensions[inputAxis]-1)*inputDilation + 1
		kernelDim := kernel.Dimensions[axes.KernelSpatial[spatialIdx]]
		effectiveKernelDim := (kernelDim-1)*kernelDilation + 1
		paddedEffectiveInputDim := effectiveInputDim + padding[0] + padding[1]
		if effectiveKernelDim > paddedEffectiveInputDim {
			return errorf("effective kernel dimension %d for spatial axis #%d is larger than padded effective input dimension %d, input=%s kernel=%s padding=%v",
				effectiveKernelDim, spatialIdx, paddedEffectiveInputDim, input, kernel, padding)
		}
		dims[axes.OutputSpatial[spatialIdx]] = (paddedEffectiveInputDim-effectiveKernelDim)/stride + 1
	}
	return shapes.Make(input.DType, dims...), nil
}
