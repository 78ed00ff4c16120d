// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package shapes

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
)

// UncheckedAxis can be used in CheckDims or AssertDims for an axis whose dimension doesn't matter.
const UncheckedAxis = int(-1)

// HasShape is implemented by objects with an associated Shape: tensors.Tensor,
// context.Variable and Shape itself.
type HasShape interface {
	Shape() Shape
}

// CheckDims checks that the shape has the given rank and dimensions. A value of -1 in
// dimensions is not checked.
func (s Shape) CheckDims(dimensions ...int) error {
	if s.Rank() != len(dimensions) {
		return errors.Errorf("shape %s has incompatible rank %d (wanted %d)", s, s.Rank(), len(dimensions))
	}
	for ii, wantDim := range dimensions {
		if wantDim != UncheckedAxis && s.Dimensions[ii] != wantDim {
			return errors.Errorf("shape %s axis %d has dimension %d, wanted %d (shape wanted=%v)",
				s, ii, s.Dimensions[ii], wantDim, dimensions)
		}
	}
	return nil
}

// Check that the shape has the given dtype, rank and dimensions. A value of -1 in
// dimensions is not checked.
func (s Shape) Check(dtype dtypes.DType, dimensions ...int) error {
	if dtype != s.DType {
		return errors.Errorf("shape %s has incompatible dtype %s (wanted %s)", s, s.DType, dtype)
	}
	return s.CheckDims(dimensions...)
}

// AssertDims is like CheckDims, but panics if it doesn't match.
func (s Shape) AssertDims(dimensions ...int) {
	if err := s.CheckDims(dimensions...); err != nil {
		exceptions.Panicf("shapes.AssertDims(%v): %+v", dimensions, err)
	}
}

// AssertRank panics if the object doesn't have the given rank.
func AssertRank(shaped HasShape, rank int) {
	if shaped.Shape().Rank() != rank {
		exceptions.Panicf("shapes.AssertRank(%d): shape %s has rank %d", rank, shaped.Shape(), shaped.Shape().Rank())
	}
}
