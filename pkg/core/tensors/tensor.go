// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package tensors implements Tensor, a multidimensional array stored in a flat row-major
// Go slice, with its shapes.Shape.
//
// Tensors are treated as immutable values: operations in package ops never change their
// inputs, they always return new tensors. The only mutating accessor is MutableFlatData,
// used when building a new tensor.
package tensors

import (
	"fmt"
	"reflect"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/linen/pkg/core/shapes"
	"github.com/pkg/errors"
)

// Tensor is a multidimensional array with a shape and a flat data slice of the Go type
// that corresponds to its dtype.
type Tensor struct {
	shape shapes.Shape

	// flat holds a slice of the Go type for the dtype of shape, with shape.Size() elements.
	flat any
}

// FromShape returns a Tensor with the given shape, with the data initialized with zeros.
//
// It panics if you provide an invalid shape.
func FromShape(shape shapes.Shape) *Tensor {
	if !shape.Ok() {
		panic(errors.New("tensors.FromShape: invalid shape"))
	}
	goType := shape.DType.GoType()
	if goType == nil {
		exceptions.Panicf("tensors.FromShape(%s): dtype has no Go type", shape)
	}
	size := shape.Size()
	flatV := reflect.MakeSlice(reflect.SliceOf(goType), size, size)
	return &Tensor{shape: shape.Clone(), flat: flatV.Interface()}
}

// FromFlat creates a tensor that takes ownership of the given flat slice.
// The slice type must match the dtype of the shape and its length the shape size.
func FromFlat(shape shapes.Shape, flat any) *Tensor {
	flatV := reflect.ValueOf(flat)
	if flatV.Kind() != reflect.Slice || flatV.Type().Elem() != shape.DType.GoType() {
		exceptions.Panicf("tensors.FromFlat(%s): flat data of type %T doesn't match dtype", shape, flat)
	}
	if flatV.Len() != shape.Size() {
		exceptions.Panicf("tensors.FromFlat(%s): flat data has %d elements, shape requires %d",
			shape, flatV.Len(), shape.Size())
	}
	return &Tensor{shape: shape.Clone(), flat: flat}
}

// Shape of the tensor.
func (t *Tensor) Shape() shapes.Shape { return t.shape }

// DType of the tensor elements.
func (t *Tensor) DType() dtypes.DType { return t.shape.DType }

// Rank of the tensor.
func (t *Tensor) Rank() int { return t.shape.Rank() }

// IsScalar returns whether the tensor has rank 0.
func (t *Tensor) IsScalar() bool { return t.shape.IsScalar() }

// Size is the number of elements.
func (t *Tensor) Size() int { return t.shape.Size() }

// Memory is the number of bytes used by the elements.
func (t *Tensor) Memory() uintptr { return t.shape.Memory() }

// Flat returns the underlying flat slice, typed `[]T` for the dtype's Go type.
// It is owned by the tensor and shouldn't be changed.
func (t *Tensor) Flat() any { return t.flat }

// Clone returns a deep copy of the tensor.
func (t *Tensor) Clone() *Tensor {
	flatV := reflect.ValueOf(t.flat)
	cloneV := reflect.MakeSlice(flatV.Type(), flatV.Len(), flatV.Len())
	reflect.Copy(cloneV, flatV)
	return &Tensor{shape: t.shape.Clone(), flat: cloneV.Interface()}
}

// String prints the shape and, for tensors up to 1024 elements, the values.
func (t *Tensor) String() string {
	if t.Size() > 1024 {
		return fmt.Sprintf("%s: (%d elements)", t.shape, t.Size())
	}
	return fmt.Sprintf("%s: %v", t.shape, t.Value())
}
