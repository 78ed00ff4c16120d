// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package layers

import (
	"slices"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/linen/pkg/core/ops"
	"github.com/gomlx/linen/pkg/core/shapes"
	"github.com/gomlx/linen/pkg/core/tensors"
	"github.com/gomlx/linen/pkg/ml/context"
	"github.com/gomlx/linen/pkg/ml/initializers"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// This file contains all parts of the layers.Conv implementation.

// padMode selects how ConvBuilder computes the paddings.
type padMode int

const (
	padSame padMode = iota
	padValid
	padExplicit
)

// ConvBuilder is a helper to build a convolution layer. Create it with Conv, set the desired parameters,
// and when all is set, call Done.
type ConvBuilder struct {
	ctx                             *context.Context
	x                               *tensors.Tensor
	numSpatialDims                  int
	features                        int
	kernelSize                      []int
	strides                         []int
	padMode                         padMode
	paddings                        [][2]int
	inputDilations, kernelDilations []int
	featureGroupCount               int
	useBias                         bool
	dtype, paramDType               dtypes.DType
	precision                       ops.Precision
	kernelInit, biasInit            initializers.Initializer
	newScope                        bool
}

// Conv prepares a convolution of x, shaped [batch, <spatial dims...>, channels], producing
// the given number of output features (channels), for an arbitrary number of spatial
// dimensions (1D, 2D, 3D, etc.).
//
// It returns a ConvBuilder object for configuration: KernelSize must be set. Once it is set up,
// call ConvBuilder.Done and it will return the convolved x, shaped [batch, <output spatial dims...>, features].
//
// It includes support for padding ("SAME" by default), strides, input and kernel dilations,
// feature grouping, and an added bias. Browse through ConvBuilder to see the capabilities,
// and their defaults.
//
// The kernel has shape [<kernel size...>, channels/featureGroupCount, features].
func Conv(ctx *context.Context, x *tensors.Tensor, features int) *ConvBuilder {
	return &ConvBuilder{
		ctx:               ctx,
		x:                 x,
		numSpatialDims:    x.Rank() - 2,
		features:          features,
		padMode:           padSame,
		featureGroupCount: 1,
		useBias:           true,
		dtype:             dtypeFromContext(ctx),
		paramDType:        dtypes.Float32,
		precision:         precisionFromContext(ctx),
		kernelInit:        DefaultKernelInitializer,
		biasInit:          DefaultBiasInitializer,
		newScope:          true,
	}
}

// KernelSize sets the spatial dimensions of the kernel. A single value is used for every spatial axis.
// There is no default, and it must be set before Done is called.
func (conv *ConvBuilder) KernelSize(sizes ...int) *ConvBuilder {
	conv.kernelSize = slices.Clone(sizes)
	return conv
}

// Strides sets the strides of the convolution. A single value is used for every spatial axis.
// The default is 1.
//
// The stride is how many steps to move after a convolution. A value of 2 will half the input
// size, since a convolution will be done at every other position.
func (conv *ConvBuilder) Strides(strides ...int) *ConvBuilder {
	conv.strides = slices.Clone(strides)
	return conv
}

// PadSame pads the input such that the output spatial dimensions are ceil(input/stride).
// This is the default.
func (conv *ConvBuilder) PadSame() *ConvBuilder {
	conv.padMode = padSame
	conv.paddings = nil
	return conv
}

// PadValid removes any paddings, so if the kernel spatial dimensions > 1,
// the output shape will be reduced on the edges.
func (conv *ConvBuilder) PadValid() *ConvBuilder {
	conv.padMode = padValid
	conv.paddings = nil
	return conv
}

// Padding sets explicit (low, high) paddings for each spatial axis.
func (conv *ConvBuilder) Padding(paddings [][2]int) *ConvBuilder {
	conv.padMode = padExplicit
	conv.paddings = slices.Clone(paddings)
	return conv
}

// InputDilation sets the dilation of the input (aka. lhs dilation, or transposed convolution):
// (dilation-1) zeros are inserted between consecutive input elements.
// A single value is used for every spatial axis. Default is 1.
func (conv *ConvBuilder) InputDilation(dilations ...int) *ConvBuilder {
	conv.inputDilations = slices.Clone(dilations)
	return conv
}

// KernelDilation sets the dilation of the kernel (aka. rhs dilation, or atrous convolution).
// The effective kernel size used for the convolution will be `(kernel_size - 1) * dilation + 1`.
// A single value is used for every spatial axis. Default is 1.
func (conv *ConvBuilder) KernelDilation(dilations ...int) *ConvBuilder {
	conv.kernelDilations = slices.Clone(dilations)
	return conv
}

// FeatureGroupCount splits input and output channels into independent groups, each convolved
// with its own slice of the kernel. For depthwise convolution, set it to the number of input channels.
//
// Both the input channels and features must be divisible by it. Default is 1.
func (conv *ConvBuilder) FeatureGroupCount(groupCount int) *ConvBuilder {
	conv.featureGroupCount = groupCount
	return conv
}

// UseBias sets whether to add a trainable bias term to the convolution. Default is true.
func (conv *ConvBuilder) UseBias(useBias bool) *ConvBuilder {
	conv.useBias = useBias
	return conv
}

// DType sets the computation dtype. The default is given by the ParamDType hyperparameter,
// or Float32 if not set.
func (conv *ConvBuilder) DType(dtype dtypes.DType) *ConvBuilder {
	conv.dtype = dtype
	return conv
}

// Precision of the convolution. The default is given by the ParamPrecision hyperparameter.
func (conv *ConvBuilder) Precision(precision ops.Precision) *ConvBuilder {
	conv.precision = precision
	return conv
}

// KernelInitializer sets the kernel initializer. Default is DefaultKernelInitializer.
func (conv *ConvBuilder) KernelInitializer(init initializers.Initializer) *ConvBuilder {
	conv.kernelInit = init
	return conv
}

// BiasInitializer sets the bias initializer. Default is DefaultBiasInitializer.
func (conv *ConvBuilder) BiasInitializer(init initializers.Initializer) *ConvBuilder {
	conv.biasInit = init
	return conv
}

// ParamDType sets the dtype in which the parameters are stored. Default is Float32.
func (conv *ConvBuilder) ParamDType(dtype dtypes.DType) *ConvBuilder {
	conv.paramDType = dtype
	return conv
}

// CurrentScope configures the convolution not to create a sub-scope for the kernel weights it needs,
// and instead use the current one provided in Conv.
//
// By default, Conv will create a sub-scope named "conv".
func (conv *ConvBuilder) CurrentScope() *ConvBuilder {
	conv.newScope = false
	return conv
}

// Done indicates that the Conv layer is finished being configured. It then
// creates (or reuses) the kernel and bias and returns the convolved x.
func (conv *ConvBuilder) Done() *tensors.Tensor {
	const layer = "Conv"
	ctx := conv.ctx
	if conv.newScope {
		ctx = ctx.In("conv")
	}
	if conv.numSpatialDims < 1 {
		configErrorf("%s: x must be shaped [batch, <spatial dims...>, channels], got %s", layer, conv.x.Shape())
	}
	checkFeatures(layer, []int{conv.features})
	checkFloatDType(layer, "DType", conv.dtype)
	checkFloatDType(layer, "ParamDType", conv.paramDType)
	if len(conv.kernelSize) == 0 {
		configErrorf("%s: KernelSize must be set", layer)
	}
	kernelSize := broadcastToSpatial(layer, "kernel size", conv.kernelSize, conv.numSpatialDims)
	strides := conv.spatialOrOnes(layer, "strides", conv.strides)
	inputDilations := conv.spatialOrOnes(layer, "input dilation", conv.inputDilations)
	kernelDilations := conv.spatialOrOnes(layer, "kernel dilation", conv.kernelDilations)

	xShape := conv.x.Shape()
	rank := xShape.Rank()
	channels := xShape.Dim(-1)
	groups := conv.featureGroupCount
	if groups < 1 {
		configErrorf("%s: feature group count must be >= 1, got %d", layer, groups)
	}
	if channels%groups != 0 {
		panic(errors.Wrapf(ErrNotDivisible, "%s: input channels (%d) must be divisible by the feature group count (%d)",
			layer, channels, groups))
	}
	if conv.features%groups != 0 {
		panic(errors.Wrapf(ErrNotDivisible, "%s: features (%d) must be divisible by the feature group count (%d)",
			layer, conv.features, groups))
	}

	spatialDims := xShape.Dimensions[1 : rank-1]
	var paddings [][2]int
	switch conv.padMode {
	case padSame:
		paddings = SamePaddings(spatialDims, kernelSize, strides, kernelDilations)
	case padValid:
		paddings = make([][2]int, conv.numSpatialDims)
	case padExplicit:
		if len(conv.paddings) != conv.numSpatialDims {
			configErrorf("%s: %d paddings given, but x has %d spatial axes", layer, len(conv.paddings), conv.numSpatialDims)
		}
		for _, pad := range conv.paddings {
			if pad[0] < 0 || pad[1] < 0 {
				configErrorf("%s: paddings %v must be non-negative", layer, conv.paddings)
			}
		}
		paddings = conv.paddings
	}

	x := ops.ConvertDType(conv.x, conv.dtype)
	kernelShape := shapes.Make(conv.paramDType, slices.Concat(kernelSize, []int{channels / groups, conv.features})...)
	kernel := paramValue(ctx.Param("kernel", kernelShape, conv.kernelInit), conv.dtype)
	output := ops.ConvGeneral(x, kernel, ops.ChannelsLastAxes(rank), strides, paddings,
		inputDilations, kernelDilations, groups, conv.precision)
	if klog.V(2).Enabled() {
		klog.Infof("%s(%q): x=%s, kernel=%s, strides=%v, paddings=%v, dilations=%v/%v, groups=%d -> %s",
			layer, ctx.Scope(), xShape, kernelShape, strides, paddings, inputDilations, kernelDilations,
			groups, output.Shape())
	}

	if conv.useBias {
		biasVar := ctx.Param("bias", shapes.Make(conv.paramDType, conv.features), conv.biasInit)
		bias := paramValue(biasVar, conv.dtype)
		expandedDims := append(sliceWithValue(rank-1, 1), conv.features)
		output = ops.Add(output, ops.Reshape(bias, expandedDims...))
	}
	return output
}

// spatialOrOnes broadcasts values to the spatial axes, or returns 1 for each spatial axis if values is empty.
func (conv *ConvBuilder) spatialOrOnes(layer, name string, values []int) []int {
	if len(values) == 0 {
		return sliceWithValue(conv.numSpatialDims, 1)
	}
	return broadcastToSpatial(layer, name, values, conv.numSpatialDims)
}

// SamePaddings returns the (low, high) paddings for each spatial axis such that, without input
// dilation, the output dimension is ceil(dim/stride). The extra padding, if odd, goes to the high side.
//
// The paddings depend on the undilated input dimensions only, as XLA's SAME padding: with
// input dilation the output is larger than ceil(dim/stride).
func SamePaddings(inputDims, kernelSize, strides, kernelDilations []int) [][2]int {
	paddings := make([][2]int, len(inputDims))
	for ii, dim := range inputDims {
		effectiveKernel := (kernelSize[ii]-1)*kernelDilations[ii] + 1
		stride := strides[ii]
		out := (dim + stride - 1) / stride
		total := max((out-1)*stride+effectiveKernel-dim, 0)
		paddings[ii] = [2]int{total / 2, total - total/2}
	}
	return paddings
}
