// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package initializers provides parameter initializers: functions that, given a random
// generator and a shape, return the initial value of a parameter.
//
// Random initializers return zeros for non-float dtypes.
package initializers

import (
	"math"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/linen/pkg/core/ops"
	"github.com/gomlx/linen/pkg/core/shapes"
	"github.com/gomlx/linen/pkg/core/tensors"
	"github.com/gomlx/linen/pkg/ml/random"
)

// Initializer returns the initial value of a parameter of the given shape.
// Stochastic initializers draw their values from rng.
type Initializer func(rng *random.Random, shape shapes.Shape) *tensors.Tensor

var (
	// Zeros initializes parameters with 0.
	Zeros Initializer = Constant(0)

	// Ones initializes parameters with 1.
	Ones Initializer = Constant(1)
)

// Constant returns an initializer that fills the parameter with value.
func Constant(value float64) Initializer {
	return func(_ *random.Random, shape shapes.Shape) *tensors.Tensor {
		values := make([]float64, shape.Size())
		for ii := range values {
			values[ii] = value
		}
		return tensors.FromFloat64s(shape.DType, values, shape.Dimensions...)
	}
}

// Uniform returns an initializer with values uniformly distributed in [0, scale).
func Uniform(scale float64) Initializer {
	return func(rng *random.Random, shape shapes.Shape) *tensors.Tensor {
		return sample(rng, shape, func(rng *random.Random, s shapes.Shape) []float64 {
			return scaled(rng.Uniform(s).Float64s(), scale, 0)
		})
	}
}

// Normal returns an initializer with values from a normal distribution with mean 0 and the given stddev.
func Normal(stddev float64) Initializer {
	return func(rng *random.Random, shape shapes.Shape) *tensors.Tensor {
		return sample(rng, shape, func(rng *random.Random, s shapes.Shape) []float64 {
			return scaled(rng.Normal(s).Float64s(), stddev, 0)
		})
	}
}

// TruncatedNormal returns an initializer with values from a normal distribution with mean 0
// and the given stddev, truncated to 2 standard deviations.
func TruncatedNormal(stddev float64) Initializer {
	return func(rng *random.Random, shape shapes.Shape) *tensors.Tensor {
		return sample(rng, shape, func(rng *random.Random, s shapes.Shape) []float64 {
			return scaled(rng.TruncatedNormal(s, -2, 2).Float64s(), stddev, 0)
		})
	}
}

// sample draws float64 values with sampleFn and converts them to the shape dtype.
// Non-float shapes get zeros.
func sample(rng *random.Random, shape shapes.Shape, sampleFn func(rng *random.Random, s shapes.Shape) []float64) *tensors.Tensor {
	if !ops.IsFloat(shape.DType) {
		return Zeros(rng, shape)
	}
	if rng == nil {
		exceptions.Panicf("initializer for %s requires a random number generator", shape)
	}
	values := sampleFn(rng, shape.WithDType(dtypes.Float64))
	return tensors.FromFloat64s(shape.DType, values, shape.Dimensions...)
}

// scaled returns values*scale + shift, in place.
func scaled(values []float64, scale, shift float64) []float64 {
	for ii, v := range values {
		values[ii] = v*scale + shift
	}
	return values
}

// truncatedNormalStddev is the standard deviation of a standard normal truncated to [-2, 2].
const truncatedNormalStddev = 0.87962566103423978

// VarianceScaling returns an initializer that adapts its scale to the shape of the parameter.
//
// With distribution DistributionTruncatedNormal or DistributionNormal, samples are drawn from a
// (truncated) normal with mean zero and stddev sqrt(scale / n), where n is the fan-in, the
// fan-out or their average, depending on mode. With DistributionUniform, samples are drawn from
// [-limit, limit] with limit = sqrt(3 * scale / n).
//
// inAxis and outAxis select the input and output axes of the parameter, see ComputeFans.
func VarianceScaling(scale float64, mode FanMode, distribution Distribution, inAxis, outAxis int) Initializer {
	if scale <= 0 {
		exceptions.Panicf("VarianceScaling: scale must be positive, got %g", scale)
	}
	return func(rng *random.Random, shape shapes.Shape) *tensors.Tensor {
		fanIn, fanOut := ComputeFans(shape, inAxis, outAxis)
		var denominator float64
		switch mode {
		case FanIn:
			denominator = fanIn
		case FanOut:
			denominator = fanOut
		case FanAvg:
			denominator = (fanIn + fanOut) / 2
		default:
			exceptions.Panicf("VarianceScaling: invalid mode %s", mode)
		}
		variance := scale / max(denominator, 1)
		return sample(rng, shape, func(rng *random.Random, s shapes.Shape) []float64 {
			switch distribution {
			case DistributionTruncatedNormal:
				stddev := math.Sqrt(variance) / truncatedNormalStddev
				return scaled(rng.TruncatedNormal(s, -2, 2).Float64s(), stddev, 0)
			case DistributionNormal:
				return scaled(rng.Normal(s).Float64s(), math.Sqrt(variance), 0)
			case DistributionUniform:
				limit := math.Sqrt(3 * variance)
				return scaled(rng.Uniform(s).Float64s(), 2*limit, -limit)
			}
			exceptions.Panicf("VarianceScaling: invalid distribution %s", distribution)
			return nil
		})
	}
}

// ComputeFans returns the fan-in and fan-out of a parameter of the given shape.
//
// The receptive field is the product of all dimensions except inAxis and outAxis, which
// are normalized if negative. fanIn = shape[inAxis] * receptiveField and
// fanOut = shape[outAxis] * receptiveField. Scalars have fans of 1, and for rank-1 shapes
// both fans are the dimension.
func ComputeFans(shape shapes.Shape, inAxis, outAxis int) (fanIn, fanOut float64) {
	switch shape.Rank() {
	case 0:
		return 1, 1
	case 1:
		return float64(shape.Dimensions[0]), float64(shape.Dimensions[0])
	}
	inAxis = ops.AdjustAxisToRank(inAxis, shape.Rank())
	outAxis = ops.AdjustAxisToRank(outAxis, shape.Rank())
	receptiveField := float64(shape.Size()) / float64(shape.Dimensions[inAxis]*shape.Dimensions[outAxis])
	fanIn = float64(shape.Dimensions[inAxis]) * receptiveField
	fanOut = float64(shape.Dimensions[outAxis]) * receptiveField
	return
}

var (
	// LecunNormal is variance scaling with scale 1, fan-in and a truncated normal distribution.
	LecunNormal = VarianceScaling(1, FanIn, DistributionTruncatedNormal, -2, -1)

	// LecunUniform is variance scaling with scale 1, fan-in and a uniform distribution.
	LecunUniform = VarianceScaling(1, FanIn, DistributionUniform, -2, -1)

	// GlorotNormal (aka. Xavier normal) is variance scaling with scale 1, fan-avg and a truncated normal distribution.
	GlorotNormal = VarianceScaling(1, FanAvg, DistributionTruncatedNormal, -2, -1)

	// GlorotUniform (aka. Xavier uniform) is variance scaling with scale 1, fan-avg and a uniform distribution.
	GlorotUniform = VarianceScaling(1, FanAvg, DistributionUniform, -2, -1)

	// HeNormal (aka. Kaiming normal) is variance scaling with scale 2, fan-in and a truncated normal distribution.
	HeNormal = VarianceScaling(2, FanIn, DistributionTruncatedNormal, -2, -1)

	// HeUniform (aka. Kaiming uniform) is variance scaling with scale 2, fan-in and a uniform distribution.
	HeUniform = VarianceScaling(2, FanIn, DistributionUniform, -2, -1)
)
