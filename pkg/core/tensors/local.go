// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package tensors

import (
	"fmt"
	"math"
	"reflect"
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/linen/pkg/core/shapes"
	"github.com/pkg/errors"
)

// FromScalar creates a tensor with the given scalar. The dtype is inferred from the value.
func FromScalar[T dtypes.Supported](value T) *Tensor {
	return FromScalarAndDimensions(value)
}

// FromScalarAndDimensions creates a tensor with the given dimensions, filled with value.
func FromScalarAndDimensions[T dtypes.Supported](value T, dimensions ...int) *Tensor {
	shape := shapes.Make(dtypes.FromGenericsType[T](), dimensions...)
	flat := make([]T, shape.Size())
	for ii := range flat {
		flat[ii] = value
	}
	return &Tensor{shape: shape, flat: flat}
}

// FromFlatDataAndDimensions creates a tensor with the given dimensions, filled with a copy of
// the flattened values given in data. The dtype is inferred from the data type.
//
// It panics if the size of data is wrong for the shape.
func FromFlatDataAndDimensions[T dtypes.Supported](data []T, dimensions ...int) *Tensor {
	dtype := dtypes.FromGenericsType[T]()
	shape := shapes.Make(dtype, dimensions...)
	if len(data) != shape.Size() {
		exceptions.Panicf("FromFlatDataAndDimensions(%s): data size is %d, but dimensions size is %d",
			shape, len(data), shape.Size())
	}
	t := FromShape(shape)
	// Go's int maps to Int32 or Int64 depending on the platform, so it needs a conversion.
	flatV := reflect.ValueOf(t.flat)
	dataV := reflect.ValueOf(data)
	if flatV.Type() == dataV.Type() {
		reflect.Copy(flatV, dataV)
		return t
	}
	for ii := range data {
		flatV.Index(ii).Set(dataV.Index(ii).Convert(flatV.Type().Elem()))
	}
	return t
}

// FromValue returns a tensor constructed from the given multidimensional slice (or scalar).
// All sub-slices of the same level must have the same length.
//
// It panics if the shape is not regular or if the type is not supported.
func FromValue(value any) *Tensor {
	if t, ok := value.(*Tensor); ok {
		return t
	}
	shape, err := shapeForValue(value)
	if err != nil {
		panic(errors.Wrapf(err, "cannot create tensor from %T", value))
	}
	t := FromShape(shape)
	flatV := reflect.ValueOf(t.flat)
	pos := 0
	var copyRecursively func(v reflect.Value)
	copyRecursively = func(v reflect.Value) {
		if v.Kind() == reflect.Slice {
			for ii := range v.Len() {
				copyRecursively(v.Index(ii))
			}
			return
		}
		flatV.Index(pos).Set(v.Convert(flatV.Type().Elem()))
		pos++
	}
	copyRecursively(reflect.ValueOf(value))
	return t
}

func shapeForValue(v any) (shapes.Shape, error) {
	var shape shapes.Shape
	err := shapeForValueRecursive(&shape, reflect.ValueOf(v), reflect.TypeOf(v))
	return shape, err
}

func shapeForValueRecursive(shape *shapes.Shape, v reflect.Value, t reflect.Type) error {
	if t == nil {
		return errors.New("nil value")
	}
	switch t.Kind() {
	case reflect.Slice:
		if v.Len() == 0 {
			return errors.Errorf("empty slice %T not valid for tensor conversion", v.Interface())
		}
		shape.Dimensions = append(shape.Dimensions, v.Len())
		prefix := shape.Clone()
		if err := shapeForValueRecursive(shape, v.Index(0), t.Elem()); err != nil {
			return err
		}
		for ii := 1; ii < v.Len(); ii++ {
			test := prefix.Clone()
			if err := shapeForValueRecursive(&test, v.Index(ii), t.Elem()); err != nil {
				return err
			}
			if !shape.Equal(test) {
				return errors.Errorf("sub-slices have irregular shapes, found shapes %s and %s", shape, test)
			}
		}
	case reflect.Pointer:
		return errors.Errorf("cannot convert pointer (%s) to a concrete value for tensors", t)
	default:
		shape.DType = dtypes.FromGoType(t)
		if shape.DType == dtypes.InvalidDType {
			return errors.Errorf("cannot convert type %s to a tensor dtype", t)
		}
	}
	return nil
}

// Value returns a multidimensional slice (or a scalar) with a copy of the tensor values.
func (t *Tensor) Value() any {
	flatV := reflect.ValueOf(t.flat)
	if t.IsScalar() {
		return flatV.Index(0).Interface()
	}
	var build func(start int, dims []int, stride int) reflect.Value
	build = func(start int, dims []int, stride int) reflect.Value {
		if len(dims) == 1 {
			out := reflect.MakeSlice(flatV.Type(), dims[0], dims[0])
			reflect.Copy(out, flatV.Slice(start, start+dims[0]))
			return out
		}
		subStride := stride / dims[0]
		sub := build(start, dims[1:], subStride)
		out := reflect.MakeSlice(reflect.SliceOf(sub.Type()), dims[0], dims[0])
		out.Index(0).Set(sub)
		for ii := 1; ii < dims[0]; ii++ {
			out.Index(ii).Set(build(start+ii*subStride, dims[1:], subStride))
		}
		return out
	}
	return build(0, t.shape.Dimensions, t.Size()).Interface()
}

// FlatData returns the underlying flat slice as []T. It panics if T doesn't match the dtype.
//
// The slice is owned by the tensor and shouldn't be changed, see MutableFlatData.
func FlatData[T dtypes.Supported](t *Tensor) []T {
	flat, ok := t.flat.([]T)
	if !ok {
		var v T
		exceptions.Panicf("FlatData[%T] is incompatible with tensor's dtype %s", v, t.DType())
	}
	return flat
}

// CopyFlatData returns a copy of the flat data as []T. It panics if T doesn't match the dtype.
func CopyFlatData[T dtypes.Supported](t *Tensor) []T {
	return slices.Clone(FlatData[T](t))
}

// MutableFlatData calls accessFn with the flat data of the tensor, which can be changed.
func MutableFlatData[T dtypes.Supported](t *Tensor, accessFn func(flat []T)) {
	accessFn(FlatData[T](t))
}

// ToScalar returns the single value of a scalar (or size 1) tensor.
func ToScalar[T dtypes.Supported](t *Tensor) T {
	if t.Size() != 1 {
		exceptions.Panicf("ToScalar: tensor %s has %d elements", t.shape, t.Size())
	}
	return FlatData[T](t)[0]
}

// Equal checks whether both tensors have the same shape and values.
func (t *Tensor) Equal(other *Tensor) bool {
	if t == other {
		return true
	}
	if !t.shape.Equal(other.shape) {
		return false
	}
	return reflect.DeepEqual(t.flat, other.flat)
}

// InDelta checks whether |t - other| <= delta for every element.
// If the shapes are different, it returns false. NaNs only match NaNs.
func (t *Tensor) InDelta(other *Tensor, delta float64) bool {
	if t == other {
		return true
	}
	if !t.shape.Equal(other.shape) {
		return false
	}
	values0, values1 := t.Float64s(), other.Float64s()
	for ii, v0 := range values0 {
		v1 := values1[ii]
		if math.IsNaN(v0) || math.IsNaN(v1) {
			if math.IsNaN(v0) != math.IsNaN(v1) {
				return false
			}
			continue
		}
		if math.Abs(v0-v1) > delta {
			return false
		}
	}
	return true
}

// GoStr returns a Go-syntax like representation, useful for debugging and tests.
func (t *Tensor) GoStr() string {
	return fmt.Sprintf("%s: %#v", t.shape, t.Value())
}
