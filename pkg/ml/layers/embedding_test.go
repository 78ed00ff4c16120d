// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package layers

import (
	"math"
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/linen/pkg/core/tensors"
	"github.com/gomlx/linen/pkg/ml/context"
	"github.com/gomlx/linen/pkg/ml/initializers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
)

// embedRows returns, for each index, the corresponding row of the "/embed/embedding" table in ctx.
func embedRows(t *testing.T, ctx *context.Context, indices ...int) [][]float64 {
	table := ctx.InspectVariable("/embed", "embedding")
	require.NotNil(t, table)
	features := table.Shape().Dim(-1)
	values := table.Value().Float64s()
	rows := make([][]float64, len(indices))
	for ii, index := range indices {
		rows[ii] = values[index*features : (index+1)*features]
	}
	return rows
}

// splitRows splits a tensor shaped [..., features] into its rows.
func splitRows(x *tensors.Tensor) [][]float64 {
	features := x.Shape().Dim(-1)
	values := x.Float64s()
	rows := make([][]float64, 0, len(values)/features)
	for ii := 0; ii < len(values); ii += features {
		rows = append(rows, values[ii:ii+features])
	}
	return rows
}

func TestEmbed(t *testing.T) {
	const numEmbeddings, features = 5, 3
	ctx := context.NewWithSeed(1)
	x := tensors.FromValue([][]int32{{2}, {0}, {3}, {2}})
	y := Embed(ctx, x, numEmbeddings, features).Done()
	require.NoError(t, y.Shape().Check(dtypes.Float32, 4, features))
	assert.NoError(t, ctx.InspectVariable("/embed", "embedding").Shape().Check(dtypes.Float32, numEmbeddings, features))
	assert.Equal(t, embedRows(t, ctx, 2, 0, 3, 2), splitRows(y))

	// Reuse, with unsigned indices and two batch axes.
	y = Embed(ctx, tensors.FromValue([][][]uint64{{{4}, {1}, {0}}, {{1}, {1}, {3}}}), numEmbeddings, features).Done()
	require.NoError(t, y.Shape().Check(dtypes.Float32, 2, 3, features))
	assert.Equal(t, embedRows(t, ctx, 4, 1, 0, 1, 1, 3), splitRows(y))
	assert.Equal(t, 1, ctx.NumVariables())

	// A single index shaped [1] has no batch axes.
	y = Embed(ctx, tensors.FromValue([]int64{3}), numEmbeddings, features).Done()
	require.NoError(t, y.Shape().Check(dtypes.Float32, features))
	assert.Equal(t, embedRows(t, ctx, 3), splitRows(y))

	// A different table shape in the same scope conflicts.
	err := execErr(ctx, func(ctx *context.Context) *tensors.Tensor {
		return Embed(ctx, x, numEmbeddings+1, features).Done()
	})
	assert.Error(t, err)
}

func TestEmbedParamDType(t *testing.T) {
	ctx := context.New()
	y := Embed(ctx, tensors.FromValue([][]int64{{1}, {0}}), 2, 4).
		ParamDType(dtypes.Float64).Initializer(initializers.Constant(0.5)).Done()
	require.NoError(t, y.Shape().Check(dtypes.Float64, 2, 4))
	assert.Equal(t, []float64{0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5}, tensors.CopyFlatData[float64](y))
}

func TestEmbedInvalidInput(t *testing.T) {
	testCases := map[string]struct {
		fn      func(ctx *context.Context) *tensors.Tensor
		wantErr error
	}{
		"float indices": {
			fn: func(ctx *context.Context) *tensors.Tensor {
				return Embed(ctx, tensors.FromValue([][]float32{{1}}), 4, 2).Done()
			},
			wantErr: ErrInvalidDType,
		},
		"int8 indices": {
			fn: func(ctx *context.Context) *tensors.Tensor {
				return Embed(ctx, tensors.FromValue([][]int8{{1}}), 4, 2).Done()
			},
			wantErr: ErrInvalidDType,
		},
		"zero embeddings": {
			fn: func(ctx *context.Context) *tensors.Tensor {
				return Embed(ctx, tensors.FromValue([][]int32{{0}}), 0, 2).Done()
			},
			wantErr: ErrInvalidConfig,
		},
		"zero features": {
			fn: func(ctx *context.Context) *tensors.Tensor {
				return Embed(ctx, tensors.FromValue([][]int32{{0}}), 4, 0).Done()
			},
			wantErr: ErrInvalidConfig,
		},
		"invalid policy": {
			fn: func(ctx *context.Context) *tensors.Tensor {
				return Embed(ctx, tensors.FromValue([][]int32{{0}}), 4, 2).OutOfRange(OutOfRangePolicy(17)).Done()
			},
			wantErr: ErrInvalidConfig,
		},
		"missing index axis": {
			fn: func(ctx *context.Context) *tensors.Tensor {
				return Embed(ctx, tensors.FromValue([]int32{1, 2}), 4, 2).Done()
			},
			wantErr: ErrInvalidConfig,
		},
		"index axis of dimension 2": {
			fn: func(ctx *context.Context) *tensors.Tensor {
				return Embed(ctx, tensors.FromValue([][]int32{{1, 2}}), 4, 2).Done()
			},
			wantErr: ErrInvalidConfig,
		},
		"scalar index": {
			fn: func(ctx *context.Context) *tensors.Tensor {
				return Embed(ctx, tensors.FromScalar(int32(1)), 4, 2).Done()
			},
			wantErr: ErrInvalidConfig,
		},
		"index too large": {
			fn: func(ctx *context.Context) *tensors.Tensor {
				return Embed(ctx, tensors.FromValue([][]int32{{1}, {5}}), 5, 2).Done()
			},
			wantErr: ErrIndexOutOfRange,
		},
		"negative index": {
			fn: func(ctx *context.Context) *tensors.Tensor {
				return Embed(ctx, tensors.FromValue([][]int64{{-1}}), 5, 2).Done()
			},
			wantErr: ErrIndexOutOfRange,
		},
		"huge unsigned index": {
			fn: func(ctx *context.Context) *tensors.Tensor {
				return Embed(ctx, tensors.FromValue([][]uint64{{math.MaxUint64}}), 5, 2).Done()
			},
			wantErr: ErrIndexOutOfRange,
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			ctx := context.New()
			err := execErr(ctx, tc.fn)
			assert.ErrorIs(t, err, tc.wantErr)
			assert.Zero(t, ctx.NumVariables())
		})
	}
}

func TestEmbedOutOfRangePolicies(t *testing.T) {
	const numEmbeddings, features = 5, 2
	x := tensors.FromValue([][]int64{{7}, {-1}, {3}})

	ctx := context.NewWithSeed(3)
	y := Embed(ctx, x, numEmbeddings, features).OutOfRange(OutOfRangeClamp).Done()
	assert.Equal(t, embedRows(t, ctx, 4, 0, 3), splitRows(y))

	y = Embed(ctx, x, numEmbeddings, features).OutOfRange(OutOfRangeWrap).Done()
	assert.Equal(t, embedRows(t, ctx, 2, 4, 3), splitRows(y))

	y = Embed(ctx, tensors.FromValue([][]uint32{{12}, {4}}), numEmbeddings, features).OutOfRange(OutOfRangeWrap).Done()
	assert.Equal(t, embedRows(t, ctx, 2, 4), splitRows(y))

	// Unsigned indices above MaxInt64 clamp to the last row.
	y = Embed(ctx, tensors.FromValue([][]uint64{{1 << 63}, {4}}), numEmbeddings, features).OutOfRange(OutOfRangeClamp).Done()
	assert.Equal(t, embedRows(t, ctx, 4, 4), splitRows(y))

	// Policies by name.
	policy, err := OutOfRangePolicyString("wrap")
	require.NoError(t, err)
	assert.Equal(t, OutOfRangeWrap, policy)
	assert.Equal(t, "clamp", OutOfRangeClamp.String())
}

func TestEmbedDefaultInitializer(t *testing.T) {
	const numEmbeddings, features = 1000, 16
	ctx := context.NewWithSeed(5)
	_ = Embed(ctx, tensors.FromValue([][]int32{{0}}), numEmbeddings, features).Done()
	values := ctx.InspectVariable("/embed", "embedding").Value().Float64s()
	mean, std := stat.MeanStdDev(values, nil)
	assert.InDelta(t, 0, mean, 0.01)
	assert.InDelta(t, 1/math.Sqrt(features), std, 0.01, "stddev should be 1/sqrt(features)")
}
