// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package shapes

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/require"
)

func TestShape(t *testing.T) {
	invalidShape := Invalid()
	require.False(t, invalidShape.Ok())

	shape0 := Make(dtypes.Float64)
	require.True(t, shape0.Ok())
	require.True(t, shape0.IsScalar())
	require.Equal(t, 0, shape0.Rank())
	require.Equal(t, 1, shape0.Size())
	require.Equal(t, 8, int(shape0.Memory()))

	shape1 := Make(dtypes.Float32, 4, 3, 2)
	require.False(t, shape1.IsScalar())
	require.Equal(t, 3, shape1.Rank())
	require.Equal(t, 4*3*2, shape1.Size())
	require.Equal(t, 4*4*3*2, int(shape1.Memory()))
	require.Equal(t, "(Float32)[4 3 2]", shape1.String())

	require.Panics(t, func() { _ = Make(dtypes.Float32, 3, 0) })
	require.True(t, shape1.Equal(Make(dtypes.Float32, 4, 3, 2)))
	require.False(t, shape1.Equal(Make(dtypes.Float64, 4, 3, 2)))
	require.True(t, shape1.EqualDimensions(Make(dtypes.Float64, 4, 3, 2)))
	require.Equal(t, dtypes.Int32, Scalar[int32]().DType)
}

func TestDim(t *testing.T) {
	shape := Make(dtypes.Float32, 4, 3, 2)
	require.Equal(t, 4, shape.Dim(0))
	require.Equal(t, 3, shape.Dim(1))
	require.Equal(t, 2, shape.Dim(2))
	require.Equal(t, 4, shape.Dim(-3))
	require.Equal(t, 2, shape.Dim(-1))
	require.Panics(t, func() { _ = shape.Dim(3) })
	require.Panics(t, func() { _ = shape.Dim(-4) })
}

func TestCheck(t *testing.T) {
	shape := Make(dtypes.Float32, 4, 3)
	require.NoError(t, shape.Check(dtypes.Float32, 4, 3))
	require.NoError(t, shape.CheckDims(-1, 3))
	require.Error(t, shape.Check(dtypes.Int32, 4, 3))
	require.Error(t, shape.CheckDims(4))
	require.Error(t, shape.CheckDims(4, 2))
	require.Panics(t, func() { shape.AssertDims(1, 3) })
	require.Panics(t, func() { AssertRank(shape, 3) })
}

func TestIter(t *testing.T) {
	shape := Make(dtypes.Float32, 2, 1, 3)
	require.Equal(t, []int{3, 3, 1}, shape.Strides())
	var got [][]int
	for flatIdx, indices := range shape.Iter() {
		require.Equal(t, flatIdx, shape.FlatIndex(indices))
		got = append(got, append([]int(nil), indices...))
	}
	require.Equal(t, [][]int{
		{0, 0, 0}, {0, 0, 1}, {0, 0, 2},
		{1, 0, 0}, {1, 0, 1}, {1, 0, 2},
	}, got)

	count := 0
	for range Make(dtypes.Int32).Iter() {
		count++
	}
	require.Equal(t, 1, count)
}
