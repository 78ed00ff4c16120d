// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"math"
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/linen/pkg/core/tensors"
	"github.com/gomlx/linen/pkg/ml/context"
	"github.com/gomlx/linen/pkg/ml/random"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInts(t *testing.T) {
	values, err := parseInts("input", "2, 8,-1")
	require.NoError(t, err)
	assert.Equal(t, []int{2, 8, -1}, values)

	values, err = parseInts("batch_axes", "")
	require.NoError(t, err)
	assert.Nil(t, values)

	_, err = parseInts("input", "2,x")
	assert.ErrorContains(t, err, "-input")
}

func TestParsePaddings(t *testing.T) {
	paddings, err := parsePaddings("1:1, 0:2")
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{1, 1}, {0, 2}}, paddings)

	for _, value := range []string{"1", "1:a", "1:1,2"} {
		_, err = parsePaddings(value)
		assert.Error(t, err, "value=%q", value)
	}
}

func TestVariableStats(t *testing.T) {
	mav, rms, maxAV := variableStats([]float64{1, -3, 0, 2})
	assert.InDelta(t, 1.5, mav, 1e-12)
	assert.InDelta(t, math.Sqrt(14.0/4), rms, 1e-12)
	assert.Equal(t, 3.0, maxAV)
}

func TestBuild(t *testing.T) {
	testCases := map[string]struct {
		cfg      layerConfig
		wantDims []int
	}{
		"dense": {
			cfg:      layerConfig{layer: "dense", inputDims: []int{2, 8}, features: []int{4}, useBias: true},
			wantDims: []int{2, 4},
		},
		"dense_general": {
			cfg: layerConfig{layer: "dense_general", inputDims: []int{3, 4, 5}, features: []int{2, 3},
				axes: []int{-1}, batchAxes: []int{0}},
			wantDims: []int{3, 4, 2, 3},
		},
		"conv": {
			cfg: layerConfig{layer: "conv", inputDims: []int{1, 8, 8, 3}, features: []int{4}, kernel: []int{3},
				strides: []int{2}, inputDilation: []int{1}, kernelDilation: []int{1}, padding: "same", groups: 1},
			wantDims: []int{1, 4, 4, 4},
		},
		"conv-explicit": {
			cfg: layerConfig{layer: "conv", inputDims: []int{1, 5, 3}, features: []int{2}, kernel: []int{3},
				strides: []int{1}, inputDilation: []int{1}, kernelDilation: []int{1}, padding: "0:1",
				paddings: [][2]int{{0, 1}}, groups: 1},
			wantDims: []int{1, 4, 2},
		},
		"embed": {
			cfg:      layerConfig{layer: "embed", inputDims: []int{6, 1}, features: []int{5}, numEmbeddings: 3},
			wantDims: []int{6, 5},
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			x := tc.cfg.randomInput(random.NewWithSeed(1))
			output, err := context.ExecOnce(context.New(), func(ctx *context.Context) *tensors.Tensor {
				return tc.cfg.build(ctx, x)
			})
			require.NoError(t, err)
			assert.NoError(t, output.Shape().Check(dtypes.Float32, tc.wantDims...))
		})
	}
}
