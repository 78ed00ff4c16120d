// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ops

import (
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/linen/pkg/core/shapes"
	"github.com/gomlx/linen/pkg/core/tensors"
)

// ConvGeneral is a generic convolution with support for:
//
//   - Arbitrary number of spatial axes.
//   - Arbitrary layout of the axes, see ConvolveAxesConfig.
//   - Strides and padding (low and high per spatial axis).
//   - Dilation of the input (lhs), used by transposed convolutions.
//   - Dilation of the kernel (rhs), aka. atrous convolution.
//   - Feature grouping on the input channels: with channelGroupCount = g, the input and output
//     channels are split in g groups, each convolved with its own slice of the kernel.
//
// Nil strides or dilations default to 1, nil paddings to 0, and a channelGroupCount < 1 to 1.
//
// Input is aka. operand (lhs); kernel is aka. filters (rhs). Semantics follow
// https://www.tensorflow.org/xla/operation_semantics#convwithgeneralpadding_convolution.
func ConvGeneral(input, kernel *tensors.Tensor, axes ConvolveAxesConfig,
	strides []int, paddings [][2]int,
	inputDilations, kernelDilations []int,
	channelGroupCount int, precision Precision) *tensors.Tensor {
	if !IsFloat(input.DType()) {
		exceptions.Panicf("ConvGeneral: only float dtypes are supported, got input=%s", input.Shape())
	}
	spatialRank := input.Rank() - 2
	if spatialRank < 1 {
		exceptions.Panicf("ConvGeneral: input needs to be at least rank-3, got %s", input.Shape())
	}
	channelGroupCount = max(channelGroupCount, 1)
	if strides == nil {
		strides = sliceWithValue(spatialRank, 1)
	}
	if paddings == nil {
		paddings = make([][2]int, spatialRank)
	}
	if inputDilations == nil {
		inputDilations = sliceWithValue(spatialRank, 1)
	}
	if kernelDilations == nil {
		kernelDilations = sliceWithValue(spatialRank, 1)
	}
	outputShape := must1(convGeneralShape(input.Shape(), kernel.Shape(), axes, strides, paddings,
		inputDilations, kernelDilations, channelGroupCount))

	accDType := accumulatorDType(input.DType(), precision)
	plan := &convPlan{
		axes:              axes.Clone(),
		strides:           slices.Clone(strides),
		paddings:          slices.Clone(paddings),
		inputDilations:    slices.Clone(inputDilations),
		kernelDilations:   slices.Clone(kernelDilations),
		channelGroupCount: channelGroupCount,
		inputShape:        input.Shape(),
		kernelShape:       kernel.Shape(),
		outputShape:       outputShape,
	}
	var outputFlat any
	switch accDType {
	case dtypes.Float32:
		outputFlat = convKernel(plan, toAccumulator[float32](input, accDType), toAccumulator[float32](kernel, accDType))
	default:
		outputFlat = convKernel(plan, toAccumulator[float64](input, accDType), toAccumulator[float64](kernel, accDType))
	}
	return ConvertDType(tensors.FromFlat(outputShape.WithDType(accDType), outputFlat), outputShape.DType)
}

// convPlan holds the validated parameters of a convolution.
type convPlan struct {
	axes              ConvolveAxesConfig
	strides           []int
	paddings          [][2]int
	inputDilations    []int
	kernelDilations   []int
	channelGroupCount int

	inputShape, kernelShape, outputShape shapes.Shape
}

// convKernel visits each output position once, summing over the kernel window and the input
// channels of the group of the output channel.
func convKernel[A float32 | float64](plan *convPlan, input, kernel []A) []A {
	axes := plan.axes
	spatialRank := len(axes.InputSpatial)
	inputStrides := plan.inputShape.Strides()
	kernelStrides := plan.kernelShape.Strides()

	dilatedInputDims := make([]int, spatialRank)
	kernelSpatialDims := make([]int, spatialRank)
	for spatialIdx, inputAxis := range axes.InputSpatial {
		dilatedInputDims[spatialIdx] = (plan.inputShape.Dimensions[inputAxis]-1)*plan.inputDilations[spatialIdx] + 1
		kernelSpatialDims[spatialIdx] = plan.kernelShape.Dimensions[axes.KernelSpatial[spatialIdx]]
	}
	kernelWindow := shapes.Make(dtypes.Int32, kernelSpatialDims...)
	kernelInputChannels := plan.kernelShape.Dimensions[axes.KernelInputChannels]
	outputChannelsPerGroup := plan.outputShape.Dimensions[axes.OutputChannels] / plan.channelGroupCount

	output := make([]A, plan.outputShape.Size())
	for outputFlatIdx, outputIdx := range plan.outputShape.Iter() {
		batchIdx := outputIdx[axes.OutputBatch]
		outputChannel := outputIdx[axes.OutputChannels]
		firstInputChannel := (outputChannel / outputChannelsPerGroup) * kernelInputChannels
		var sum A
	window:
		for _, kernelIdx := range kernelWindow.Iter() {
			inputBase := batchIdx * inputStrides[axes.InputBatch]
			kernelBase := outputChannel * kernelStrides[axes.KernelOutputChannels]
			for spatialIdx := range spatialRank {
				pos := outputIdx[axes.OutputSpatial[spatialIdx]]*plan.strides[spatialIdx] +
					kernelIdx[spatialIdx]*plan.kernelDilations[spatialIdx] - plan.paddings[spatialIdx][0]
				if pos < 0 || pos >= dilatedInputDims[spatialIdx] || pos%plan.inputDilations[spatialIdx] != 0 {
					// Padding or a hole created by the input dilation.
					continue window
				}
				inputBase += (pos / plan.inputDilations[spatialIdx]) * inputStrides[axes.InputSpatial[spatialIdx]]
				kernelBase += kernelIdx[spatialIdx] * kernelStrides[axes.KernelSpatial[spatialIdx]]
			}
			for kernelChannel := range kernelInputChannels {
				inputChannel := firstInputChannel + kernelChannel
				sum += input[inputBase+inputChannel*inputStrides[axes.InputChannels]] *
					kernel[kernelBase+kernelChannel*kernelStrides[axes.KernelInputChannels]]
			}
		}
		output[outputFlatIdx] = sum
	}
	return output
}
