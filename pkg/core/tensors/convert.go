// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package tensors

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/gopjrt/dtypes/bfloat16"
	"github.com/gomlx/linen/pkg/core/shapes"
	"github.com/x448/float16"
	"golang.org/x/exp/constraints"
)

type realNumber interface {
	constraints.Integer | constraints.Float
}

func toFloat64s[T realNumber](flat []T) []float64 {
	out := make([]float64, len(flat))
	for ii, v := range flat {
		out[ii] = float64(v)
	}
	return out
}

func toInt64s[T realNumber](flat []T) []int64 {
	out := make([]int64, len(flat))
	for ii, v := range flat {
		out[ii] = int64(v)
	}
	return out
}

func fromFloat64s[T realNumber](values []float64) []T {
	out := make([]T, len(values))
	for ii, v := range values {
		out[ii] = T(v)
	}
	return out
}

func fromInt64s[T realNumber](values []int64) []T {
	out := make([]T, len(values))
	for ii, v := range values {
		out[ii] = T(v)
	}
	return out
}

// Float64s returns a copy of the values converted to float64.
// Bool is converted to 0 or 1.
func (t *Tensor) Float64s() []float64 {
	switch flat := t.flat.(type) {
	case []float64:
		return toFloat64s(flat)
	case []float32:
		return toFloat64s(flat)
	case []float16.Float16:
		out := make([]float64, len(flat))
		for ii, v := range flat {
			out[ii] = float64(v.Float32())
		}
		return out
	case []bfloat16.BFloat16:
		out := make([]float64, len(flat))
		for ii, v := range flat {
			out[ii] = float64(v.Float32())
		}
		return out
	case []int8:
		return toFloat64s(flat)
	case []int16:
		return toFloat64s(flat)
	case []int32:
		return toFloat64s(flat)
	case []int64:
		return toFloat64s(flat)
	case []uint8:
		return toFloat64s(flat)
	case []uint16:
		return toFloat64s(flat)
	case []uint32:
		return toFloat64s(flat)
	case []uint64:
		return toFloat64s(flat)
	case []bool:
		out := make([]float64, len(flat))
		for ii, v := range flat {
			if v {
				out[ii] = 1
			}
		}
		return out
	}
	exceptions.Panicf("Float64s: dtype %s not supported", t.DType())
	return nil
}

// Int64s returns a copy of the values converted to int64. Floats are truncated towards zero.
func (t *Tensor) Int64s() []int64 {
	switch flat := t.flat.(type) {
	case []int8:
		return toInt64s(flat)
	case []int16:
		return toInt64s(flat)
	case []int32:
		return toInt64s(flat)
	case []int64:
		return toInt64s(flat)
	case []uint8:
		return toInt64s(flat)
	case []uint16:
		return toInt64s(flat)
	case []uint32:
		return toInt64s(flat)
	case []uint64:
		return toInt64s(flat)
	case []bool:
		out := make([]int64, len(flat))
		for ii, v := range flat {
			if v {
				out[ii] = 1
			}
		}
		return out
	}
	values := t.Float64s()
	out := make([]int64, len(values))
	for ii, v := range values {
		out[ii] = int64(v)
	}
	return out
}

// FromFloat64s creates a tensor of the given dtype and dimensions from float64 values,
// converting each value. For Bool, non-zero values become true.
func FromFloat64s(dtype dtypes.DType, values []float64, dimensions ...int) *Tensor {
	shape := shapes.Make(dtype, dimensions...)
	if len(values) != shape.Size() {
		exceptions.Panicf("FromFloat64s(%s): got %d values", shape, len(values))
	}
	var flat any
	switch dtype {
	case dtypes.Float64:
		flat = fromFloat64s[float64](values)
	case dtypes.Float32:
		flat = fromFloat64s[float32](values)
	case dtypes.Float16:
		out := make([]float16.Float16, len(values))
		for ii, v := range values {
			out[ii] = float16.Fromfloat32(float32(v))
		}
		flat = out
	case dtypes.BFloat16:
		out := make([]bfloat16.BFloat16, len(values))
		for ii, v := range values {
			out[ii] = bfloat16.FromFloat64(v)
		}
		flat = out
	case dtypes.Int8:
		flat = fromFloat64s[int8](values)
	case dtypes.Int16:
		flat = fromFloat64s[int16](values)
	case dtypes.Int32:
		flat = fromFloat64s[int32](values)
	case dtypes.Int64:
		flat = fromFloat64s[int64](values)
	case dtypes.Uint8:
		flat = fromFloat64s[uint8](values)
	case dtypes.Uint16:
		flat = fromFloat64s[uint16](values)
	case dtypes.Uint32:
		flat = fromFloat64s[uint32](values)
	case dtypes.Uint64:
		flat = fromFloat64s[uint64](values)
	case dtypes.Bool:
		out := make([]bool, len(values))
		for ii, v := range values {
			out[ii] = v != 0
		}
		flat = out
	default:
		exceptions.Panicf("FromFloat64s: dtype %s not supported", dtype)
	}
	return &Tensor{shape: shape, flat: flat}
}

// FromInt64s creates an integer (or Bool) tensor of the given dtype and dimensions from int64 values.
// For other dtypes it converts through float64.
func FromInt64s(dtype dtypes.DType, values []int64, dimensions ...int) *Tensor {
	shape := shapes.Make(dtype, dimensions...)
	if len(values) != shape.Size() {
		exceptions.Panicf("FromInt64s(%s): got %d values", shape, len(values))
	}
	var flat any
	switch dtype {
	case dtypes.Int8:
		flat = fromInt64s[int8](values)
	case dtypes.Int16:
		flat = fromInt64s[int16](values)
	case dtypes.Int32:
		flat = fromInt64s[int32](values)
	case dtypes.Int64:
		flat = fromInt64s[int64](values)
	case dtypes.Uint8:
		flat = fromInt64s[uint8](values)
	case dtypes.Uint16:
		flat = fromInt64s[uint16](values)
	case dtypes.Uint32:
		flat = fromInt64s[uint32](values)
	case dtypes.Uint64:
		flat = fromInt64s[uint64](values)
	case dtypes.Bool:
		out := make([]bool, len(values))
		for ii, v := range values {
			out[ii] = v != 0
		}
		flat = out
	default:
		return FromFloat64s(dtype, toFloat64s(values), dimensions...)
	}
	return &Tensor{shape: shape, flat: flat}
}
