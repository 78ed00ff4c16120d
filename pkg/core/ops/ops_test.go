// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ops

import (
	"math"
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/linen/pkg/core/tensors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"
)

func TestPrecision(t *testing.T) {
	assert.Equal(t, "highest", PrecisionHighest.String())
	p, err := PrecisionString("HIGH")
	require.NoError(t, err)
	assert.Equal(t, PrecisionHigh, p)
	_, err = PrecisionString("ultra")
	require.Error(t, err)
	assert.Equal(t, dtypes.Float32, accumulatorDType(dtypes.Float16, PrecisionDefault))
	assert.Equal(t, dtypes.Float64, accumulatorDType(dtypes.Float32, PrecisionHighest))
	assert.Equal(t, dtypes.Float64, accumulatorDType(dtypes.Float64, PrecisionDefault))
}

func TestAdd(t *testing.T) {
	t.Run("broadcast", func(t *testing.T) {
		lhs := tensors.FromValue([][]float32{{1, 2, 3}, {4, 5, 6}})
		rhs := tensors.FromValue([][]float32{{10, 20, 30}})
		got := Add(lhs, rhs)
		require.Equal(t, [][]float32{{11, 22, 33}, {14, 25, 36}}, got.Value())
		got = Add(tensors.FromValue([][]float32{{1}, {2}}), rhs)
		require.Equal(t, [][]float32{{11, 21, 31}, {12, 22, 32}}, got.Value())
	})
	t.Run("scalar", func(t *testing.T) {
		got := Add(tensors.FromScalar(int32(3)), tensors.FromValue([]int32{1, 2}))
		require.Equal(t, []int32{4, 5}, got.Value())
	})
	t.Run("integers", func(t *testing.T) {
		got := Add(tensors.FromValue([][]int64{{1, 2}, {3, 4}}), tensors.FromValue([][]int64{{10}, {20}}))
		require.Equal(t, [][]int64{{11, 12}, {23, 24}}, got.Value())
		got = Add(tensors.FromValue([]uint8{250, 1}), tensors.FromScalar(uint8(5)))
		require.Equal(t, []uint8{255, 6}, got.Value())
	})
	t.Run("float16", func(t *testing.T) {
		lhs := tensors.FromFlatDataAndDimensions([]float16.Float16{float16.Fromfloat32(1), float16.Fromfloat32(2)}, 2)
		got := Add(lhs, lhs)
		require.Equal(t, dtypes.Float16, got.DType())
		require.Equal(t, []float64{2, 4}, got.Float64s())
	})
	t.Run("errors", func(t *testing.T) {
		require.Panics(t, func() { _ = Add(tensors.FromValue([]float32{1, 2}), tensors.FromValue([]float64{1, 2})) })
		require.Panics(t, func() { _ = Add(tensors.FromValue([]float32{1, 2}), tensors.FromValue([]float32{1, 2, 3})) })
		require.Panics(t, func() { _ = Add(tensors.FromValue([]float32{1, 2}), tensors.FromValue([][]float32{{1, 2}})) })
	})
}

func TestManipulation(t *testing.T) {
	x := tensors.FromValue([][]float32{{1, 2, 3}, {4, 5, 6}})

	t.Run("Reshape", func(t *testing.T) {
		got := Reshape(x, 3, -1)
		require.Equal(t, [][]float32{{1, 2}, {3, 4}, {5, 6}}, got.Value())
		require.Panics(t, func() { _ = Reshape(x, 4, -1) })
		require.Panics(t, func() { _ = Reshape(x, 5) })
	})

	t.Run("InsertAxes", func(t *testing.T) {
		require.NoError(t, InsertAxes(x, -1).Shape().Check(dtypes.Float32, 2, 3, 1))
		require.NoError(t, InsertAxes(x, 0, 1).Shape().Check(dtypes.Float32, 1, 2, 1, 3))
		require.NoError(t, InsertAxes(x, 1, 1).Shape().Check(dtypes.Float32, 2, 1, 1, 3))
		require.Panics(t, func() { _ = InsertAxes(x, 4) })
	})

	t.Run("Transpose", func(t *testing.T) {
		got := Transpose(x, 1, 0)
		require.Equal(t, [][]float32{{1, 4}, {2, 5}, {3, 6}}, got.Value())
		x3 := tensors.FromValue([][][]int32{{{1, 2}, {3, 4}}, {{5, 6}, {7, 8}}})
		require.Equal(t, [][][]int32{{{1, 5}, {3, 7}}, {{2, 6}, {4, 8}}}, Transpose(x3, 2, 1, 0).Value())
		require.Panics(t, func() { _ = Transpose(x, 0, 0) })
	})

	t.Run("Concatenate", func(t *testing.T) {
		got := Concatenate(0, x, tensors.FromValue([][]float32{{7, 8, 9}}))
		require.Equal(t, [][]float32{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}}, got.Value())
		got = Concatenate(-1, x, tensors.FromValue([][]float32{{0}, {-1}}))
		require.Equal(t, [][]float32{{1, 2, 3, 0}, {4, 5, 6, -1}}, got.Value())
		require.Panics(t, func() { _ = Concatenate(0, x, tensors.FromValue([][]float32{{7, 8}})) })
	})

	t.Run("ConvertDType", func(t *testing.T) {
		require.Same(t, x, ConvertDType(x, dtypes.Float32))
		require.Equal(t, [][]int64{{1, 2, 3}, {4, 5, 6}}, ConvertDType(x, dtypes.Int64).Value())
		require.Equal(t, []uint8{1, 255}, ConvertDType(tensors.FromValue([]int32{1, 255}), dtypes.Uint8).Value())
		require.Equal(t, []float64{1.5}, ConvertDType(tensors.FromValue([]float32{1.5}), dtypes.BFloat16).Float64s())
	})
}

func TestGather(t *testing.T) {
	table := tensors.FromValue([][]float32{{0, 1}, {2, 3}, {4, 5}})
	lookup := func(indices *tensors.Tensor) *tensors.Tensor {
		rank := indices.Rank()
		return Gather(table, indices, rank-1, []int{rank - 1}, []int{0}, []int{0}, []int{1, 2})
	}
	got := lookup(tensors.FromValue([][]int32{{2}, {0}}))
	require.Equal(t, [][]float32{{4, 5}, {0, 1}}, got.Value())

	got = lookup(tensors.FromValue([][][]uint64{{{1}, {1}}, {{0}, {2}}}))
	require.Equal(t, [][][]float32{{{2, 3}, {2, 3}}, {{0, 1}, {4, 5}}}, got.Value())

	// Out-of-range start indices are clamped.
	got = lookup(tensors.FromValue([][]int64{{5}, {-1}}))
	require.Equal(t, [][]float32{{4, 5}, {0, 1}}, got.Value())

	// Unsigned indices above MaxInt64 are clamped to the last row.
	got = lookup(tensors.FromValue([][]uint64{{1 << 63}, {math.MaxUint64}, {1}}))
	require.Equal(t, [][]float32{{4, 5}, {4, 5}, {2, 3}}, got.Value())

	// Implicit index vector axis.
	got = Gather(table, tensors.FromValue([]int32{1, 2}), 1, []int{1}, []int{0}, []int{0}, []int{1, 2})
	require.Equal(t, [][]float32{{2, 3}, {4, 5}}, got.Value())

	require.Panics(t, func() { _ = lookup(tensors.FromValue([][]float32{{1}})) })
	require.Panics(t, func() {
		_ = Gather(table, tensors.FromValue([][]int32{{1}}), 1, []int{1}, []int{0}, []int{0}, []int{2, 2})
	})
}
