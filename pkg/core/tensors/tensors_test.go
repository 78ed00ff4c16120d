// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package tensors

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/gopjrt/dtypes/bfloat16"
	"github.com/gomlx/linen/pkg/core/shapes"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"
)

func TestFromValue(t *testing.T) {
	got := FromValue([][]float32{{1, 2, 3}, {4, 5, 6}})
	require.NoError(t, got.Shape().Check(dtypes.Float32, 2, 3))
	require.Equal(t, []float32{1, 2, 3, 4, 5, 6}, FlatData[float32](got))
	if diff := cmp.Diff([][]float32{{1, 2, 3}, {4, 5, 6}}, got.Value()); diff != "" {
		t.Errorf("Value() mismatch (-want +got):\n%s", diff)
	}

	scalar := FromValue(int32(7))
	require.True(t, scalar.IsScalar())
	require.Equal(t, int32(7), scalar.Value())
	require.Equal(t, int32(7), ToScalar[int32](scalar))

	// Go int maps to Int64.
	ints := FromValue([][][]int{{{1}, {2}}})
	require.NoError(t, ints.Shape().Check(dtypes.Int64, 1, 2, 1))
	require.Equal(t, []int64{1, 2}, FlatData[int64](ints))

	require.Panics(t, func() { _ = FromValue([][]float32{{1, 2}, {3}}) })
	require.Panics(t, func() { _ = FromValue([]float32{}) })
}

func TestFromFlatDataAndDimensions(t *testing.T) {
	data := []float64{1, 2, 3, 4}
	got := FromFlatDataAndDimensions(data, 2, 2)
	data[0] = 100
	require.Equal(t, [][]float64{{1, 2}, {3, 4}}, got.Value())
	require.Panics(t, func() { _ = FromFlatDataAndDimensions(data, 3) })

	clone := got.Clone()
	MutableFlatData(clone, func(flat []float64) { flat[0] = -1 })
	require.Equal(t, 1.0, FlatData[float64](got)[0])
	require.False(t, got.Equal(clone))
	require.Panics(t, func() { _ = FlatData[float32](got) })
}

func TestFromShape(t *testing.T) {
	got := FromShape(shapes.Make(dtypes.Int32, 3))
	require.Equal(t, []int32{0, 0, 0}, got.Value())
	require.Equal(t, uintptr(12), got.Memory())
	filled := FromScalarAndDimensions(float32(0.5), 2)
	require.Equal(t, []float32{0.5, 0.5}, filled.Value())
}

func TestConversions(t *testing.T) {
	f16 := FromFlatDataAndDimensions([]float16.Float16{float16.Fromfloat32(1.5), float16.Fromfloat32(-2)}, 2)
	require.Equal(t, []float64{1.5, -2}, f16.Float64s())
	bf16 := FromFloat64s(dtypes.BFloat16, []float64{0.5, 3}, 2)
	require.Equal(t, bfloat16.FromFloat32(3), FlatData[bfloat16.BFloat16](bf16)[1])

	u := FromInt64s(dtypes.Uint32, []int64{1, 7}, 2)
	require.Equal(t, []uint32{1, 7}, FlatData[uint32](u))
	require.Equal(t, []int64{1, 7}, u.Int64s())
	f := FromInt64s(dtypes.Float32, []int64{3}, 1)
	require.Equal(t, []float32{3}, FlatData[float32](f))
	require.Equal(t, []int64{-1, 2}, FromValue([]float32{-1.7, 2.2}).Int64s())
}

func TestInDelta(t *testing.T) {
	a := FromValue([]float32{1, 2, 3})
	b := FromValue([]float32{1.001, 2, 2.999})
	require.True(t, a.InDelta(b, 0.01))
	require.False(t, a.InDelta(b, 1e-4))
	require.False(t, a.InDelta(FromValue([]float64{1, 2, 3}), 0.01))
}
