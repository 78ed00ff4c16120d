// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package context

import (
	"sync"
	"testing"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/linen/pkg/core/ops"
	"github.com/gomlx/linen/pkg/core/shapes"
	"github.com/gomlx/linen/pkg/core/tensors"
	"github.com/gomlx/linen/pkg/ml/initializers"
	"github.com/gomlx/linen/pkg/ml/random"
	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextScope(t *testing.T) {
	ctx := New()
	assert.Equal(t, RootScope, ctx.Scope())
	ctx2 := ctx.In("a").In("b")
	assert.Equal(t, "/a/b", ctx2.Scope())
	assert.Equal(t, "/layer_3", ctx.Inf("layer_%d", 3).Scope())
	assert.Equal(t, RootScope, ctx.Scope(), "In() must not change the original reference")
	assert.Panics(t, func() { ctx.In("") })
	assert.Panics(t, func() { ctx.In("a/b") })
	assert.Equal(t, "/a/x", JoinScope("/a", "x"))
	assert.Equal(t, "/x", JoinScope(RootScope, "x"))
}

func TestParams(t *testing.T) {
	ctx := New()
	ctx.SetParam("x", 10)
	ctx.SetParam("y", 20)
	ctxA := ctx.In("a")
	ctxA.SetParam("y", 30)
	ctxAB := ctxA.In("b")
	ctxAB.SetParam("x", 100)

	assert.Equal(t, 100, GetParamOr(ctxAB, "x", 0))
	assert.Equal(t, 30, GetParamOr(ctxAB, "y", 0))
	assert.Equal(t, 20, GetParamOr(ctx.In("c"), "y", 0))
	assert.Equal(t, 7, GetParamOr(ctxAB, "w", 7))
	assert.Equal(t, 100.0, GetParamOr(ctxAB, "x", 0.0), "int should be converted to float64")

	ctx.SetParam("precision", "highest")
	assert.Equal(t, ops.PrecisionHighest, GetParamOr(ctx, "precision", ops.PrecisionDefault))
	ctx.SetParam("precision", "bogus")
	assert.Panics(t, func() { GetParamOr(ctx, "precision", ops.PrecisionDefault) })
	ctx.SetParam("precision", nil)
	assert.Equal(t, ops.PrecisionDefault, GetParamOr(ctx, "precision", ops.PrecisionDefault))

	type entry struct {
		Scope, Key string
		Value      any
	}
	var got []entry
	ctx.EnumerateParams(func(scope, key string, value any) {
		got = append(got, entry{scope, key, value})
	})
	want := []entry{
		{"/", "precision", nil},
		{"/", "x", 10},
		{"/", "y", 20},
		{"/a", "y", 30},
		{"/a/b", "x", 100},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("EnumerateParams() mismatch (-want +got):\n%s", diff)
	}
}

func TestParamCreateOrFetch(t *testing.T) {
	ctx := NewWithSeed(42)
	shape := shapes.Make(dtypes.Float32, 3, 4)
	v := ctx.In("dense").Param("kernel", shape, initializers.LecunNormal)
	require.NotNil(t, v)
	assert.Equal(t, "/dense/kernel", v.ScopeAndName())
	assert.Equal(t, "kernel", v.Name())
	assert.Equal(t, "/dense", v.Scope())
	assert.True(t, v.Trainable)
	assert.True(t, v.Value().Shape().Equal(shape))

	// Fetching again returns the very same variable, even with a different initializer.
	v2 := ctx.In("dense").Param("kernel", shape, initializers.Zeros)
	assert.Same(t, v, v2)
	assert.Same(t, v, ctx.InspectVariable("/dense", "kernel"))
	assert.Same(t, v, ctx.In("dense").GetVariable("kernel"))
	assert.Nil(t, ctx.GetVariable("kernel"))

	// Different shape is an error.
	assert.Panics(t, func() { ctx.In("dense").Param("kernel", shapes.Make(dtypes.Float32, 4, 3), nil) })

	// Same seed, same values; variable values don't depend on creation order.
	ctx2 := NewWithSeed(42)
	_ = ctx2.In("other").Param("kernel", shape, initializers.LecunNormal)
	v3 := ctx2.In("dense").Param("kernel", shape, initializers.LecunNormal)
	assert.True(t, v.Value().Equal(v3.Value()))
	assert.False(t, v.Value().Equal(ctx2.InspectVariable("/other", "kernel").Value()))

	assert.Equal(t, 1, ctx.NumVariables())
	assert.Equal(t, 12, ctx.NumParameters())
	assert.Equal(t, uintptr(48), ctx.Memory())
	assert.Contains(t, ctx.Summary(), "1 variables")
}

func TestVariableWithValue(t *testing.T) {
	ctx := New()
	v := ctx.VariableWithValue("counter", []float32{1, 2, 3})
	assert.Equal(t, []float32{1, 2, 3}, tensors.CopyFlatData[float32](v.Value()))
	v2 := ctx.VariableWithValue("counter", []float32{7, 7, 7})
	assert.Same(t, v, v2)
	assert.Equal(t, []float32{1, 2, 3}, tensors.CopyFlatData[float32](v2.Value()), "existing value must not be overwritten")
	assert.Panics(t, func() { ctx.VariableWithValue("counter", []float32{1, 2}) })

	v.SetValue(tensors.FromValue([]float32{4, 5, 6}))
	assert.Equal(t, []float32{4, 5, 6}, tensors.CopyFlatData[float32](v.Value()))
	assert.Panics(t, func() { v.SetValue(tensors.FromValue([]float64{4, 5, 6})) })
}

func TestVariableWithShape(t *testing.T) {
	ctx := New().WithInitializer(initializers.Ones)
	v := ctx.VariableWithShape("w", shapes.Make(dtypes.Float64, 2))
	assert.Equal(t, []float64{1, 1}, tensors.CopyFlatData[float64](v.Value()))

	// Default initializer when none is set.
	v = New().VariableWithShape("w", shapes.Make(dtypes.Float32, 100))
	for _, x := range tensors.CopyFlatData[float32](v.Value()) {
		assert.LessOrEqual(t, x, float32(0.1))
		assert.GreaterOrEqual(t, x, float32(-0.1))
	}

	// Initializer returning the wrong shape.
	bad := func(_ *random.Random, _ shapes.Shape) *tensors.Tensor { return tensors.FromValue([]float32{1}) }
	assert.Panics(t, func() { New().Param("w", shapes.Make(dtypes.Float32, 2), bad) })
}

// constantLoader loads every variable named "bias" with a constant value.
type constantLoader struct {
	calls int
	value *tensors.Tensor
}

func (l *constantLoader) LoadVariable(_ *Context, _, name string) (*tensors.Tensor, bool) {
	l.calls++
	if name != "bias" {
		return nil, false
	}
	return l.value, true
}

func TestLoader(t *testing.T) {
	ctx := New()
	loader := &constantLoader{value: tensors.FromValue([]float32{3, 3})}
	ctx.SetLoader(loader)
	assert.Same(t, loader, ctx.Loader())

	bias := ctx.In("dense").Param("bias", shapes.Make(dtypes.Float32, 2), initializers.Zeros)
	assert.Equal(t, []float32{3, 3}, tensors.CopyFlatData[float32](bias.Value()))
	kernel := ctx.In("dense").Param("kernel", shapes.Make(dtypes.Float32, 2), initializers.Zeros)
	assert.Equal(t, []float32{0, 0}, tensors.CopyFlatData[float32](kernel.Value()))

	// Loader is called only once per variable.
	_ = ctx.In("dense").Param("bias", shapes.Make(dtypes.Float32, 2), initializers.Zeros)
	assert.Equal(t, 2, loader.calls)

	// Loaded value with the wrong shape.
	assert.Panics(t, func() { ctx.In("other").Param("bias", shapes.Make(dtypes.Float32, 3), nil) })
}

func TestConcurrentCreation(t *testing.T) {
	ctx := NewWithSeed(1)
	shape := shapes.Make(dtypes.Float32, 8, 8)
	const numWorkers = 16
	results := make([]*Variable, numWorkers)
	var wg sync.WaitGroup
	for ii := range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[ii] = ctx.In("shared").Param("kernel", shape, initializers.GlorotUniform)
		}()
	}
	wg.Wait()
	for _, v := range results {
		assert.Same(t, results[0], v)
	}
	assert.Equal(t, 1, ctx.NumVariables())
}

var errTest = errors.New("test failure")

func TestExecOnce(t *testing.T) {
	ctx := New()
	output, err := ExecOnce(ctx, func(ctx *Context) *tensors.Tensor {
		return tensors.FromScalar(float32(1))
	})
	require.NoError(t, err)
	assert.Equal(t, float32(1), tensors.ToScalar[float32](output))

	_, err = ExecOnce(ctx.In("failing"), func(ctx *Context) *tensors.Tensor {
		panic(errors.Wrap(errTest, "inside layer"))
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, errTest)
	assert.Contains(t, err.Error(), "/failing")

	_, err = ExecOnce(ctx, func(ctx *Context) *tensors.Tensor {
		exceptions.Panicf("engine failure %d", 3)
		return nil
	})
	assert.ErrorContains(t, err, "engine failure 3")

	assert.Panics(t, func() {
		MustExecOnce(ctx, func(ctx *Context) *tensors.Tensor { panic(errTest) })
	})
}
