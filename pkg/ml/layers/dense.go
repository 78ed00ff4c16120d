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
	"github.com/gomlx/linen/pkg/ml/random"
	"k8s.io/klog/v2"
)

// DefaultKernelInitializer is used for the kernels of Dense, DenseGeneral and Conv, if none is configured.
var DefaultKernelInitializer = initializers.LecunNormal

// DefaultBiasInitializer is used for the biases of Dense, DenseGeneral and Conv, if none is configured.
var DefaultBiasInitializer = initializers.Zeros

// DenseGeneralBuilder is a helper to build a DenseGeneral layer. Create it with DenseGeneral, set the
// desired parameters, and when all is set, call Done.
type DenseGeneralBuilder struct {
	ctx                  *context.Context
	x                    *tensors.Tensor
	features             []int
	axes, batchAxes      []int
	useBias              bool
	precision            ops.Precision
	kernelInit, biasInit initializers.Initializer
	paramDType           dtypes.DType
	newScope             bool
}

// DenseGeneral prepares a linear transformation of x contracting an arbitrary set of its axes
// (by default the last one) against a learned kernel, producing the given features.
//
// Optionally the leading axes of x can be declared as batch axes (BatchAxes): each batch
// position then has its own kernel (and bias) slice.
//
// The output has the batch axes first, then the axes of x that are neither batch nor contracted
// (in their original order), then the features.
//
// The kernel has shape [<batch dims...>, <contracted dims...>, <features...>] and the bias
// [<batch dims...>, <features...>]. With batch axes, each batch slice is initialized with a
// separate call to the initializer (on its flattened shape) with its own random stream.
//
// It returns a DenseGeneralBuilder for configuration: call Done to get the result.
func DenseGeneral(ctx *context.Context, x *tensors.Tensor) *DenseGeneralBuilder {
	return &DenseGeneralBuilder{
		ctx:        ctx,
		x:          x,
		axes:       []int{-1},
		useBias:    true,
		precision:  precisionFromContext(ctx),
		kernelInit: DefaultKernelInitializer,
		biasInit:   DefaultBiasInitializer,
		paramDType: dtypes.Float32,
		newScope:   true,
	}
}

// Features sets the output feature dimensions. There is no default, and at least one must be set.
func (b *DenseGeneralBuilder) Features(features ...int) *DenseGeneralBuilder {
	b.features = slices.Clone(features)
	return b
}

// Axes sets the axes of x to contract. Negative values are counted from the end. Default is -1.
func (b *DenseGeneralBuilder) Axes(axes ...int) *DenseGeneralBuilder {
	b.axes = slices.Clone(axes)
	return b
}

// BatchAxes sets the batch axes of x. They must be the leading axes, that is, the set {0, ..., k-1},
// given as non-negative values. Default is no batch axes.
func (b *DenseGeneralBuilder) BatchAxes(batchAxes ...int) *DenseGeneralBuilder {
	b.batchAxes = slices.Clone(batchAxes)
	return b
}

// UseBias sets whether to add a learned bias. Default is true.
func (b *DenseGeneralBuilder) UseBias(useBias bool) *DenseGeneralBuilder {
	b.useBias = useBias
	return b
}

// Precision of the contraction. The default is given by the ParamPrecision hyperparameter.
func (b *DenseGeneralBuilder) Precision(precision ops.Precision) *DenseGeneralBuilder {
	b.precision = precision
	return b
}

// KernelInitializer sets the initializer of each kernel slice. Default is DefaultKernelInitializer.
func (b *DenseGeneralBuilder) KernelInitializer(init initializers.Initializer) *DenseGeneralBuilder {
	b.kernelInit = init
	return b
}

// BiasInitializer sets the initializer of each bias slice. Default is DefaultBiasInitializer.
func (b *DenseGeneralBuilder) BiasInitializer(init initializers.Initializer) *DenseGeneralBuilder {
	b.biasInit = init
	return b
}

// ParamDType sets the dtype in which the parameters are stored. Default is Float32.
func (b *DenseGeneralBuilder) ParamDType(dtype dtypes.DType) *DenseGeneralBuilder {
	b.paramDType = dtype
	return b
}

// CurrentScope configures the layer to create its parameters in the context's current scope,
// instead of the sub-scope "dense_general".
func (b *DenseGeneralBuilder) CurrentScope() *DenseGeneralBuilder {
	b.newScope = false
	return b
}

// Done creates (or reuses) the parameters and returns the transformed x.
func (b *DenseGeneralBuilder) Done() *tensors.Tensor {
	const layer = "DenseGeneral"
	ctx := b.ctx
	if b.newScope {
		ctx = ctx.In("dense_general")
	}
	checkFeatures(layer, b.features)
	checkFloatDType(layer, "ParamDType", b.paramDType)
	xShape := b.x.Shape()
	rank := xShape.Rank()
	// Batch axes are checked as given: negative values are not leading axes.
	if len(b.batchAxes) > 0 {
		sortedBatch := slices.Sorted(slices.Values(b.batchAxes))
		for ii, axis := range sortedBatch {
			if axis != ii {
				configErrorf("%s: batch axes %v must be the leading axes of x, i.e. {0, ..., %d}",
					layer, b.batchAxes, len(sortedBatch)-1)
			}
		}
	}
	axes := normalizeAxes(layer, "axes", b.axes, rank)
	batchAxes := normalizeAxes(layer, "batch axes", b.batchAxes, rank)
	if len(axes) == 0 {
		configErrorf("%s: at least one axis to contract must be given", layer)
	}
	for _, axis := range axes {
		if slices.Contains(batchAxes, axis) {
			configErrorf("%s: axis %d is both contracted and a batch axis", layer, axis)
		}
	}

	dtype := dtypes.Float32
	if ops.IsFloat(xShape.DType) {
		dtype = xShape.DType
	}
	x := ops.ConvertDType(b.x, dtype)

	numBatch := len(batchAxes)
	batchShape := make([]int, numBatch)
	for ii, axis := range batchAxes {
		batchShape[ii] = xShape.Dimensions[axis]
	}
	contractedDims := make([]int, len(axes))
	for ii, axis := range axes {
		contractedDims[ii] = xShape.Dimensions[axis]
	}
	kernelDims := slices.Concat(batchShape, contractedDims, b.features)
	kernelShape := shapes.Make(b.paramDType, kernelDims...)
	kernelVar := ctx.Param("kernel", kernelShape,
		batchedInitializer(b.kernelInit, numBatch, product(contractedDims), product(b.features)))
	kernel := paramValue(kernelVar, dtype)

	kernelContracting := make([]int, len(axes))
	for ii := range kernelContracting {
		kernelContracting[ii] = numBatch + ii
	}
	kernelBatch := make([]int, numBatch)
	for ii := range kernelBatch {
		kernelBatch[ii] = ii
	}
	output := ops.DotGeneral(x, axes, batchAxes, kernel, kernelContracting, kernelBatch, b.precision)
	if klog.V(2).Enabled() {
		klog.Infof("%s(%q): x=%s, axes=%v, batch axes=%v, kernel=%s -> %s",
			layer, ctx.Scope(), xShape, axes, batchAxes, kernelShape, output.Shape())
	}

	if b.useBias {
		biasShape := shapes.Make(b.paramDType, slices.Concat(batchShape, b.features)...)
		biasVar := ctx.Param("bias", biasShape, batchedInitializer(b.biasInit, numBatch, product(b.features)))
		bias := paramValue(biasVar, dtype)
		numFree := rank - numBatch - len(axes)
		expandedDims := slices.Concat(batchShape, sliceWithValue(numFree, 1), b.features)
		output = ops.Add(output, ops.Reshape(bias, expandedDims...))
	}
	return output
}

// batchedInitializer returns an initializer for a parameter whose first numBatch axes are batch axes:
// it calls init once per batch position, each with its own random stream, on the flat slice
// shape sliceDims. The slices are concatenated and reshaped to the requested shape.
//
// Without batch axes it calls init once with rng itself.
func batchedInitializer(init initializers.Initializer, numBatch int, sliceDims ...int) initializers.Initializer {
	return func(rng *random.Random, shape shapes.Shape) *tensors.Tensor {
		sliceShape := shapes.Make(shape.DType, sliceDims...)
		if numBatch == 0 {
			return ops.Reshape(init(rng, sliceShape), shape.Dimensions...)
		}
		numSlices := product(shape.Dimensions[:numBatch])
		parts := make([]*tensors.Tensor, numSlices)
		for ii := range parts {
			parts[ii] = init(rng.Split(), sliceShape)
		}
		return ops.Reshape(ops.Concatenate(0, parts...), shape.Dimensions...)
	}
}

// DenseBuilder is a helper to build a Dense layer. Create it with Dense, set the desired parameters,
// and when all is set, call Done.
type DenseBuilder struct {
	ctx                  *context.Context
	x                    *tensors.Tensor
	features             int
	useBias              bool
	dtype, paramDType    dtypes.DType
	precision            ops.Precision
	kernelInit, biasInit initializers.Initializer
	newScope             bool
}

// Dense prepares a linear transformation of the last axis of x into the given number of features:
//
//	y = x @ kernel + bias
//
// x is converted to the computation dtype (see DenseBuilder.DType) first. The kernel has shape
// [x.Dim(-1), features] and the bias [features].
//
// It returns a DenseBuilder for configuration: call Done to get the result.
func Dense(ctx *context.Context, x *tensors.Tensor, features int) *DenseBuilder {
	return &DenseBuilder{
		ctx:        ctx,
		x:          x,
		features:   features,
		useBias:    true,
		dtype:      dtypeFromContext(ctx),
		paramDType: dtypes.Float32,
		precision:  precisionFromContext(ctx),
		kernelInit: DefaultKernelInitializer,
		biasInit:   DefaultBiasInitializer,
		newScope:   true,
	}
}

// UseBias sets whether to add a learned bias. Default is true.
func (b *DenseBuilder) UseBias(useBias bool) *DenseBuilder {
	b.useBias = useBias
	return b
}

// DType sets the computation dtype. The default is given by the ParamDType hyperparameter,
// or Float32 if not set.
func (b *DenseBuilder) DType(dtype dtypes.DType) *DenseBuilder {
	b.dtype = dtype
	return b
}

// Precision of the contraction. The default is given by the ParamPrecision hyperparameter.
func (b *DenseBuilder) Precision(precision ops.Precision) *DenseBuilder {
	b.precision = precision
	return b
}

// KernelInitializer sets the kernel initializer. Default is DefaultKernelInitializer.
func (b *DenseBuilder) KernelInitializer(init initializers.Initializer) *DenseBuilder {
	b.kernelInit = init
	return b
}

// BiasInitializer sets the bias initializer. Default is DefaultBiasInitializer.
func (b *DenseBuilder) BiasInitializer(init initializers.Initializer) *DenseBuilder {
	b.biasInit = init
	return b
}

// ParamDType sets the dtype in which the parameters are stored. Default is Float32.
func (b *DenseBuilder) ParamDType(dtype dtypes.DType) *DenseBuilder {
	b.paramDType = dtype
	return b
}

// CurrentScope configures the layer to create its parameters in the context's current scope,
// instead of the sub-scope "dense".
func (b *DenseBuilder) CurrentScope() *DenseBuilder {
	b.newScope = false
	return b
}

// Done creates (or reuses) the parameters and returns the transformed x.
func (b *DenseBuilder) Done() *tensors.Tensor {
	const layer = "Dense"
	ctx := b.ctx
	if b.newScope {
		ctx = ctx.In("dense")
	}
	checkFeatures(layer, []int{b.features})
	checkFloatDType(layer, "DType", b.dtype)
	checkFloatDType(layer, "ParamDType", b.paramDType)
	rank := b.x.Rank()
	if rank == 0 {
		configErrorf("%s: x must have rank >= 1, got %s", layer, b.x.Shape())
	}
	x := ops.ConvertDType(b.x, b.dtype)
	inputDim := x.Shape().Dim(-1)

	kernelShape := shapes.Make(b.paramDType, inputDim, b.features)
	kernel := paramValue(ctx.Param("kernel", kernelShape, b.kernelInit), b.dtype)
	output := ops.DotGeneral(x, []int{rank - 1}, nil, kernel, []int{0}, nil, b.precision)
	klog.V(2).Infof("%s(%q): x=%s, kernel=%s -> %s", layer, ctx.Scope(), b.x.Shape(), kernelShape, output.Shape())

	if b.useBias {
		biasVar := ctx.Param("bias", shapes.Make(b.paramDType, b.features), b.biasInit)
		bias := paramValue(biasVar, b.dtype)
		expandedDims := append(sliceWithValue(rank-1, 1), b.features)
		output = ops.Add(output, ops.Reshape(bias, expandedDims...))
	}
	return output
}

func checkFeatures(layer string, features []int) {
	if len(features) == 0 {
		configErrorf("%s: features must be set", layer)
	}
	for _, f := range features {
		if f <= 0 {
			configErrorf("%s: features %v must be positive", layer, features)
		}
	}
}
