// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package layers implements parameterized neural network layers on top of the eager ops:
// DenseGeneral, Dense, Conv and Embed.
//
// Layers are pure functions of their input and of the parameters stored in a *context.Context:
// parameters are created (and initialized) the first time a layer runs in a scope, and reused
// afterwards. Each layer is configured with a builder:
//
//	y := layers.Dense(ctx, x, 128).UseBias(false).Done()
//	y = layers.Conv(ctx.In("conv_0"), images, 32).KernelSize(3).Strides(2).Done()
//
// Invalid configurations panic with an error wrapping one of the sentinel errors below. Use
// context.ExecOnce to get them as returned errors.
package layers

import (
	"slices"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/linen/pkg/core/ops"
	"github.com/gomlx/linen/pkg/core/tensors"
	"github.com/gomlx/linen/pkg/ml/context"
	"github.com/pkg/errors"
)

var (
	// ErrInvalidConfig is wrapped by the errors of invalid layer configurations: batch axes that
	// are not the leading axes, axes out of range or repeated, invalid padding, etc.
	ErrInvalidConfig = errors.New("invalid layer configuration")

	// ErrNotDivisible is wrapped when the input channels of a convolution are not divisible
	// by its feature group count.
	ErrNotDivisible = errors.New("input channels not divisible by feature group count")

	// ErrInvalidDType is wrapped when the input of a layer has a dtype it doesn't accept.
	ErrInvalidDType = errors.New("invalid input dtype")

	// ErrIndexOutOfRange is wrapped when an embedding index is outside the table.
	ErrIndexOutOfRange = errors.New("index out of range")
)

var (
	// ParamPrecision is the context hyperparameter with the default ops.Precision of the
	// contractions of Dense, DenseGeneral and Conv. It can be set as an ops.Precision or
	// by name: "default", "high" or "highest".
	ParamPrecision = "layers_precision"

	// ParamDType is the context hyperparameter with the default computation dtype of Dense
	// and Conv. It can be set as a dtypes.DType or by name (e.g. "Float64").
	//
	// The default is Float32.
	ParamDType = "layers_dtype"
)

// configErrorf panics with an error wrapping ErrInvalidConfig.
func configErrorf(format string, args ...any) {
	panic(errors.Wrapf(ErrInvalidConfig, format, args...))
}

// normalizeAxes returns axes with negative values converted to non-negative ones, for the given rank.
// It panics with ErrInvalidConfig if any axis is out of range or repeated.
func normalizeAxes(layer, name string, axes []int, rank int) []int {
	normalized := make([]int, len(axes))
	for ii, axis := range axes {
		adjusted := axis
		if adjusted < 0 {
			adjusted += rank
		}
		if adjusted < 0 || adjusted >= rank {
			configErrorf("%s: %s %v has axis %d out of range for rank %d", layer, name, axes, axis, rank)
		}
		if slices.Contains(normalized[:ii], adjusted) {
			configErrorf("%s: %s %v has repeated axis %d", layer, name, axes, axis)
		}
		normalized[ii] = adjusted
	}
	return normalized
}

// broadcastToSpatial returns values as one value per spatial axis: a single value is repeated
// numSpatial times. It panics with ErrInvalidConfig on a length mismatch or non-positive values.
func broadcastToSpatial(layer, name string, values []int, numSpatial int) []int {
	if len(values) == 1 && numSpatial != 1 {
		values = slices.Repeat(values, numSpatial)
	}
	if len(values) != numSpatial {
		configErrorf("%s: %s %v must have 1 or %d values (one per spatial axis)", layer, name, values, numSpatial)
	}
	for _, v := range values {
		if v <= 0 {
			configErrorf("%s: %s %v must be positive", layer, name, values)
		}
	}
	return values
}

// precisionFromContext returns the default contraction precision configured in ctx.
func precisionFromContext(ctx *context.Context) ops.Precision {
	return context.GetParamOr(ctx, ParamPrecision, ops.PrecisionDefault)
}

// dtypeFromContext returns the default computation dtype configured in ctx.
func dtypeFromContext(ctx *context.Context) dtypes.DType {
	if value, found := ctx.GetParam(ParamDType); found {
		if name, ok := value.(string); ok {
			dtype, err := dtypes.DTypeString(name)
			if err != nil {
				configErrorf("hyperparameter %q=%q is not a valid dtype", ParamDType, name)
			}
			return dtype
		}
	}
	return context.GetParamOr(ctx, ParamDType, dtypes.Float32)
}

// checkFloatDType panics with ErrInvalidDType if dtype is not a float.
func checkFloatDType(layer, name string, dtype dtypes.DType) {
	if !ops.IsFloat(dtype) {
		panic(errors.Wrapf(ErrInvalidDType, "%s: %s must be a float dtype, got %s", layer, name, dtype))
	}
}

// paramValue returns the value of the variable converted to dtype.
func paramValue(v *context.Variable, dtype dtypes.DType) *tensors.Tensor {
	return ops.ConvertDType(v.Value(), dtype)
}

func product(values []int) int {
	p := 1
	for _, v := range values {
		p *= v
	}
	return p
}

func sliceWithValue(n, value int) []int {
	s := make([]int, n)
	for ii := range s {
		s[ii] = value
	}
	return s
}
