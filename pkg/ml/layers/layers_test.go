// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package layers

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/linen/pkg/core/ops"
	"github.com/gomlx/linen/pkg/core/shapes"
	"github.com/gomlx/linen/pkg/core/tensors"
	"github.com/gomlx/linen/pkg/ml/context"
	"github.com/gomlx/linen/pkg/ml/random"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execErr runs fn with ctx and returns the error it panicked with, if any.
func execErr(ctx *context.Context, fn func(ctx *context.Context) *tensors.Tensor) error {
	_, err := context.ExecOnce(ctx, fn)
	return err
}

// randomInput returns a tensor with values from a normal distribution.
func randomInput(seed uint64, dtype dtypes.DType, dims ...int) *tensors.Tensor {
	return random.NewWithSeed(seed).Normal(shapes.Make(dtype, dims...))
}

func TestNormalizeAxes(t *testing.T) {
	assert.Equal(t, []int{0, 3, 2}, normalizeAxes("test", "axes", []int{0, -1, 2}, 4))
	assert.Empty(t, normalizeAxes("test", "axes", nil, 4))

	err := execErr(context.New(), func(*context.Context) *tensors.Tensor {
		normalizeAxes("test", "axes", []int{4}, 4)
		return nil
	})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	err = execErr(context.New(), func(*context.Context) *tensors.Tensor {
		normalizeAxes("test", "axes", []int{1, -3}, 4)
		return nil
	})
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "repeated axis")
}

func TestBroadcastToSpatial(t *testing.T) {
	assert.Equal(t, []int{3, 3, 3}, broadcastToSpatial("test", "kernel size", []int{3}, 3))
	assert.Equal(t, []int{1, 2}, broadcastToSpatial("test", "strides", []int{1, 2}, 2))
	assert.Equal(t, []int{5}, broadcastToSpatial("test", "strides", []int{5}, 1))
	for _, values := range [][]int{{1, 2}, {0}, {2, -1, 1}} {
		err := execErr(context.New(), func(*context.Context) *tensors.Tensor {
			broadcastToSpatial("test", "strides", values, 3)
			return nil
		})
		assert.ErrorIs(t, err, ErrInvalidConfig, "values=%v", values)
	}
}

func TestHyperparameters(t *testing.T) {
	ctx := context.New()
	assert.Equal(t, ops.PrecisionDefault, precisionFromContext(ctx))
	assert.Equal(t, dtypes.Float32, dtypeFromContext(ctx))

	ctx.SetParam(ParamPrecision, "highest")
	ctx.SetParam(ParamDType, "Float64")
	assert.Equal(t, ops.PrecisionHighest, precisionFromContext(ctx))
	assert.Equal(t, dtypes.Float64, dtypeFromContext(ctx))

	// Scoped values override the parent's.
	sub := ctx.In("sub")
	sub.SetParam(ParamPrecision, ops.PrecisionHigh)
	sub.SetParam(ParamDType, dtypes.Float16)
	assert.Equal(t, ops.PrecisionHigh, precisionFromContext(sub))
	assert.Equal(t, dtypes.Float16, dtypeFromContext(sub))

	ctx.SetParam(ParamDType, "NotADType")
	err := execErr(ctx, func(ctx *context.Context) *tensors.Tensor {
		dtypeFromContext(ctx)
		return nil
	})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestSentinelErrorsAreDistinct(t *testing.T) {
	all := []error{ErrInvalidConfig, ErrNotDivisible, ErrInvalidDType, ErrIndexOutOfRange}
	for ii, err1 := range all {
		for jj, err2 := range all {
			assert.Equal(t, ii == jj, errors.Is(err1, err2), "%v vs %v", err1, err2)
		}
	}
}
