// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package random implements a seeded pseudo-random number generator producing tensors.
//
// A Random is deterministic given its seed: the same seed always generates the same values
// in the same order. Split and FoldIn derive new independent generators, which is how
// parameter initialization gets one stream per parameter (or per parameter slice).
//
// A Random is not safe for concurrent use: callers (e.g. context.Context) synchronize it.
package random

import (
	"hash/fnv"
	"math"
	"math/rand/v2"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/linen/pkg/core/ops"
	"github.com/gomlx/linen/pkg/core/shapes"
	"github.com/gomlx/linen/pkg/core/tensors"
)

// Random generates tensors with random values from a PCG source.
type Random struct {
	seed1, seed2 uint64
	rng          *rand.Rand
}

// New returns a Random seeded from the runtime random source, so it is different on each call.
func New() *Random {
	return newWithSeeds(rand.Uint64(), rand.Uint64())
}

// NewWithSeed returns a Random deterministically initialized from the given seed.
func NewWithSeed(seed uint64) *Random {
	return newWithSeeds(seed, 0x9E3779B97F4A7C15)
}

func newWithSeeds(seed1, seed2 uint64) *Random {
	return &Random{seed1: seed1, seed2: seed2, rng: rand.New(rand.NewPCG(seed1, seed2))}
}

// Split returns a new Random whose stream is independent of r. It advances r.
func (r *Random) Split() *Random {
	return newWithSeeds(r.rng.Uint64(), r.rng.Uint64())
}

// FoldIn returns a new Random derived from r's seed and data. It doesn't advance r, so the
// same data always yields the same stream for a given seed, regardless of how much r was used.
func (r *Random) FoldIn(data string) *Random {
	hasher := fnv.New64a()
	var seedBytes [16]byte
	for ii := range 8 {
		seedBytes[ii] = byte(r.seed1 >> (8 * ii))
		seedBytes[8+ii] = byte(r.seed2 >> (8 * ii))
	}
	_, _ = hasher.Write(seedBytes[:])
	_, _ = hasher.Write([]byte(data))
	hash := hasher.Sum64()
	return newWithSeeds(r.seed1^hash, r.seed2+hash)
}

// Uint64 returns the next raw value of the stream.
func (r *Random) Uint64() uint64 {
	return r.rng.Uint64()
}

// Uniform returns a tensor of the given shape with values uniformly distributed in [0, 1).
// The shape dtype must be a float.
func (r *Random) Uniform(shape shapes.Shape) *tensors.Tensor {
	checkFloat("Uniform", shape)
	values := make([]float64, shape.Size())
	for ii := range values {
		values[ii] = r.rng.Float64()
	}
	return fromFloat64s(shape, values)
}

// Normal returns a tensor of the given shape with values from the standard normal distribution.
func (r *Random) Normal(shape shapes.Shape) *tensors.Tensor {
	checkFloat("Normal", shape)
	values := make([]float64, shape.Size())
	for ii := range values {
		values[ii] = r.rng.NormFloat64()
	}
	return fromFloat64s(shape, values)
}

// TruncatedNormal returns a tensor with values from the standard normal distribution truncated
// to [lower, upper]. Values outside the interval are re-sampled.
func (r *Random) TruncatedNormal(shape shapes.Shape, lower, upper float64) *tensors.Tensor {
	checkFloat("TruncatedNormal", shape)
	if !(lower < upper) || math.IsNaN(lower) || math.IsNaN(upper) {
		exceptions.Panicf("TruncatedNormal: invalid interval [%g, %g]", lower, upper)
	}
	values := make([]float64, shape.Size())
	for ii := range values {
		for {
			v := r.rng.NormFloat64()
			if v >= lower && v <= upper {
				values[ii] = v
				break
			}
		}
	}
	return fromFloat64s(shape, values)
}

func checkFloat(name string, shape shapes.Shape) {
	if !ops.IsFloat(shape.DType) {
		exceptions.Panicf("random.%s(%s): only float dtypes are supported", name, shape)
	}
}

func fromFloat64s(shape shapes.Shape, values []float64) *tensors.Tensor {
	return tensors.FromFloat64s(shape.DType, values, shape.Dimensions...)
}
