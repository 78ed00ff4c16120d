// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package layers

import (
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/linen/pkg/core/ops"
	"github.com/gomlx/linen/pkg/core/shapes"
	"github.com/gomlx/linen/pkg/core/tensors"
	"github.com/gomlx/linen/pkg/ml/context"
	"github.com/gomlx/linen/pkg/ml/initializers"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// OutOfRangePolicy defines what Embed does with indices outside of [0, numEmbeddings).
type OutOfRangePolicy int

const (
	// OutOfRangeError panics with an error wrapping ErrIndexOutOfRange.
	OutOfRangeError OutOfRangePolicy = iota

	// OutOfRangeClamp clamps indices to [0, numEmbeddings-1].
	OutOfRangeClamp

	// OutOfRangeWrap takes indices modulo numEmbeddings, so -1 is the last embedding.
	OutOfRangeWrap
)

//go:generate go tool enumer -type=OutOfRangePolicy -trimprefix=OutOfRange -transform=snake -values -text -output=gen_outofrangepolicy_enumer.go embedding.go

// DefaultEmbeddingInitializer is variance scaling with scale 1, fan-in and a normal distribution,
// where the fan-in is the embedding features dimension.
var DefaultEmbeddingInitializer = initializers.VarianceScaling(1, initializers.FanIn, initializers.DistributionNormal, -2, 0)

// EmbedBuilder is a helper to build an Embed layer. Create it with Embed, set the desired parameters,
// and when all is set, call Done.
type EmbedBuilder struct {
	ctx                     *context.Context
	x                       *tensors.Tensor
	numEmbeddings, features int
	init                    initializers.Initializer
	paramDType              dtypes.DType
	outOfRange              OutOfRangePolicy
	newScope                bool
}

// Embed prepares a lookup of the integer indices in x into a learned table of numEmbeddings
// rows of the given features.
//
// x must be of dtype Int32, Int64, Uint32 or Uint64 and its last axis must have dimension 1
// (the index). All other axes are batch axes. To embed a [batch, seq] tensor of indices, reshape
// it to [batch, seq, 1] first.
//
// The output is shaped [<batch dims...>, features]: for x shaped [B, 1] the output is [B, features],
// and row i is the table row x[i, 0].
//
// The table is stored in the variable "embedding", shaped [numEmbeddings, features].
func Embed(ctx *context.Context, x *tensors.Tensor, numEmbeddings, features int) *EmbedBuilder {
	return &EmbedBuilder{
		ctx:           ctx,
		x:             x,
		numEmbeddings: numEmbeddings,
		features:      features,
		init:          DefaultEmbeddingInitializer,
		paramDType:    dtypes.Float32,
		outOfRange:    OutOfRangeError,
		newScope:      true,
	}
}

// Initializer sets the initializer of the table. Default is DefaultEmbeddingInitializer.
func (b *EmbedBuilder) Initializer(init initializers.Initializer) *EmbedBuilder {
	b.init = init
	return b
}

// ParamDType sets the dtype of the table, and hence of the output. Default is Float32.
func (b *EmbedBuilder) ParamDType(dtype dtypes.DType) *EmbedBuilder {
	b.paramDType = dtype
	return b
}

// OutOfRange sets the policy for indices outside of the table. Default is OutOfRangeError.
func (b *EmbedBuilder) OutOfRange(policy OutOfRangePolicy) *EmbedBuilder {
	b.outOfRange = policy
	return b
}

// CurrentScope configures the layer to create its table in the context's current scope,
// instead of the sub-scope "embed".
func (b *EmbedBuilder) CurrentScope() *EmbedBuilder {
	b.newScope = false
	return b
}

// Done creates (or reuses) the table and returns the embeddings of x.
func (b *EmbedBuilder) Done() *tensors.Tensor {
	const layer = "Embed"
	ctx := b.ctx
	if b.newScope {
		ctx = ctx.In("embed")
	}
	switch b.x.DType() {
	case dtypes.Int32, dtypes.Int64, dtypes.Uint32, dtypes.Uint64:
	default:
		panic(errors.Wrapf(ErrInvalidDType, "%s: input must be of dtype Int32, Int64, Uint32 or Uint64, got %s",
			layer, b.x.Shape()))
	}
	if b.numEmbeddings <= 0 || b.features <= 0 {
		configErrorf("%s: numEmbeddings (%d) and features (%d) must be positive", layer, b.numEmbeddings, b.features)
	}
	if !b.outOfRange.IsAOutOfRangePolicy() {
		configErrorf("%s: invalid out-of-range policy %s", layer, b.outOfRange)
	}

	if b.x.IsScalar() || b.x.Shape().Dim(-1) != 1 {
		configErrorf("%s: x must be shaped [<batch dims...>, 1], with a trailing index axis of dimension 1, got %s",
			layer, b.x.Shape())
	}
	x := b.applyOutOfRangePolicy(layer, b.x)

	tableShape := shapes.Make(b.paramDType, b.numEmbeddings, b.features)
	table := ctx.Param("embedding", tableShape, b.init).Value()
	rank := x.Rank()
	output := ops.Gather(table, x, rank-1, []int{rank - 1}, []int{0}, []int{0}, []int{1, b.features})
	klog.V(2).Infof("%s(%q): x=%s, table=%s -> %s", layer, ctx.Scope(), b.x.Shape(), tableShape, output.Shape())
	return output
}

// applyOutOfRangePolicy checks or adjusts the indices in x according to the configured policy.
// Clamping is left to ops.Gather.
func (b *EmbedBuilder) applyOutOfRangePolicy(layer string, x *tensors.Tensor) *tensors.Tensor {
	n := int64(b.numEmbeddings)
	switch b.outOfRange {
	case OutOfRangeError:
		for ii, index := range x.Int64s() {
			// Uint64 values above MaxInt64 show up as negative.
			if index < 0 || index >= n {
				panic(errors.Wrapf(ErrIndexOutOfRange, "%s: index %d (at flat position %d) out of range for %d embeddings",
					layer, index, ii, b.numEmbeddings))
			}
		}
	case OutOfRangeWrap:
		indices := x.Int64s()
		if x.DType() == dtypes.Uint64 {
			for ii, index := range tensors.CopyFlatData[uint64](x) {
				indices[ii] = int64(index % uint64(n))
			}
		} else {
			for ii, index := range indices {
				indices[ii] = ((index % n) + n) % n
			}
		}
		return tensors.FromInt64s(dtypes.Int64, indices, x.Shape().Dimensions...)
	}
	return x
}
