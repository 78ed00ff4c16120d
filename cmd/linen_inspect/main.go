// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// linen_inspect builds one layer on a random input and reports its output shape and the variables it created.
//
// Example:
//
//	linen_inspect -layer=conv -input=2,32,32,3 -features=16 -kernel=3 -strides=2
//	linen_inspect -layer=dense_general -input=4,8,16 -features=2,3 -batch_axes=0
package main

import (
	"flag"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/linen/pkg/core/ops"
	"github.com/gomlx/linen/pkg/core/shapes"
	"github.com/gomlx/linen/pkg/core/tensors"
	"github.com/gomlx/linen/pkg/ml/context"
	"github.com/gomlx/linen/pkg/ml/layers"
	"github.com/gomlx/linen/pkg/ml/random"
	"github.com/janpfeifer/must"
	"github.com/muesli/termenv"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"k8s.io/klog/v2"
)

var (
	flagLayer = flag.String("layer", "dense", "Layer to build: dense, dense_general, conv or embed.")
	flagInput = flag.String("input", "2,8", "Comma-separated dimensions of the random input. "+
		"For embed, the shape of the indices, whose last dimension must be 1 (e.g. 2,8,1).")
	flagFeatures       = flag.String("features", "4", "Comma-separated output features. Only dense_general takes more than one.")
	flagAxes           = flag.String("axes", "-1", "dense_general: comma-separated axes to contract.")
	flagBatchAxes      = flag.String("batch_axes", "", "dense_general: comma-separated leading batch axes.")
	flagKernel         = flag.String("kernel", "3", "conv: kernel size, one value or one per spatial axis.")
	flagStrides        = flag.String("strides", "1", "conv: strides, one value or one per spatial axis.")
	flagPadding        = flag.String("padding", "same", "conv: \"same\", \"valid\" or explicit \"low:high\" pairs per spatial axis, e.g. \"1:1,0:2\".")
	flagInputDilation  = flag.String("input_dilation", "1", "conv: input dilation, one value or one per spatial axis.")
	flagKernelDilation = flag.String("kernel_dilation", "1", "conv: kernel dilation, one value or one per spatial axis.")
	flagGroups         = flag.Int("groups", 1, "conv: feature group count.")
	flagNumEmbeddings  = flag.Int("num_embeddings", 10, "embed: number of rows of the table.")
	flagOutOfRange     = flag.String("out_of_range", "error", "embed: out-of-range policy, one of \"error\", \"clamp\" or \"wrap\".")
	flagNoBias         = flag.Bool("no_bias", false, "Disable the bias of dense, dense_general and conv.")
	flagSeed           = flag.Uint64("seed", 42, "Seed used for the parameters and the random input.")
	flagPrecision      = flag.String("precision", "default", "Precision of the contractions: \"default\", \"high\" or \"highest\".")
	flagDType          = flag.String("dtype", "Float32", "Computation dtype of dense and conv.")
	flagSteps          = flag.Int("steps", 1, "Number of forward passes to run, each with a new random input.")
	flagNoColor        = flag.Bool("no_color", false, "Disable colors in the output.")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	if *flagNoColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	}

	cfg, err := configFromFlags()
	if err != nil {
		klog.Fatalf("Invalid flags: %+v", err)
	}
	ctx := context.NewWithSeed(*flagSeed)
	ctx.SetParam(layers.ParamPrecision, cfg.precision)
	ctx.SetParam(layers.ParamDType, *flagDType)
	inputRng := random.NewWithSeed(*flagSeed).FoldIn("input")

	var output *tensors.Tensor
	bar := progressbar.NewOptions(*flagSteps,
		progressbar.OptionSetDescription("forward passes"),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("steps"),
		progressbar.OptionSetTheme(progressbar.ThemeASCII),
		progressbar.OptionSetVisibility(*flagSteps > 1),
		progressbar.OptionClearOnFinish(),
	)
	for range *flagSteps {
		x := cfg.randomInput(inputRng.Split())
		output, err = context.ExecOnce(ctx, func(ctx *context.Context) *tensors.Tensor {
			return cfg.build(ctx, x)
		})
		if err != nil {
			klog.Fatalf("Failed to build layer %q: %+v", *flagLayer, err)
		}
		must.M(bar.Add(1))
	}
	must.M(bar.Finish())

	fmt.Println(titleStyle.Render(fmt.Sprintf("Layer %q", *flagLayer)))
	summary := newPlainTable(false, lipgloss.Right, lipgloss.Left)
	summary.Row("input", cfg.inputShape().String())
	summary.Row("output", output.Shape().String())
	summary.Row("forward passes", humanize.Comma(int64(*flagSteps)))
	summary.Row("variables", ctx.Summary())
	fmt.Println(summary.Render())
	listVariables(ctx)
}

// layerConfig holds the parsed flags.
type layerConfig struct {
	layer                 string
	inputDims, features   []int
	axes, batchAxes       []int
	kernel, strides       []int
	inputDilation         []int
	kernelDilation        []int
	padding               string
	paddings              [][2]int
	groups, numEmbeddings int
	outOfRange            layers.OutOfRangePolicy
	useBias               bool
	precision             ops.Precision
}

// inputShape returns the shape of the random inputs.
func (cfg *layerConfig) inputShape() shapes.Shape {
	if cfg.layer == "embed" {
		return shapes.Make(dtypes.Int64, cfg.inputDims...)
	}
	return shapes.Make(dtypes.Float32, cfg.inputDims...)
}

// randomInput returns normally distributed values, or uniform indices for embed.
func (cfg *layerConfig) randomInput(rng *random.Random) *tensors.Tensor {
	shape := cfg.inputShape()
	if cfg.layer != "embed" {
		return rng.Normal(shape)
	}
	indices := make([]int64, shape.Size())
	for ii := range indices {
		indices[ii] = int64(rng.Uint64() % uint64(cfg.numEmbeddings))
	}
	return tensors.FromInt64s(dtypes.Int64, indices, shape.Dimensions...)
}

// build runs the configured layer on x.
func (cfg *layerConfig) build(ctx *context.Context, x *tensors.Tensor) *tensors.Tensor {
	switch cfg.layer {
	case "dense":
		return layers.Dense(ctx, x, cfg.features[0]).UseBias(cfg.useBias).Done()
	case "dense_general":
		return layers.DenseGeneral(ctx, x).
			Features(cfg.features...).
			Axes(cfg.axes...).
			BatchAxes(cfg.batchAxes...).
			UseBias(cfg.useBias).
			Done()
	case "conv":
		conv := layers.Conv(ctx, x, cfg.features[0]).
			KernelSize(cfg.kernel...).
			Strides(cfg.strides...).
			InputDilation(cfg.inputDilation...).
			KernelDilation(cfg.kernelDilation...).
			FeatureGroupCount(cfg.groups).
			UseBias(cfg.useBias)
		switch cfg.padding {
		case "same":
			conv.PadSame()
		case "valid":
			conv.PadValid()
		default:
			conv.Padding(cfg.paddings)
		}
		return conv.Done()
	case "embed":
		return layers.Embed(ctx, x, cfg.numEmbeddings, cfg.features[0]).OutOfRange(cfg.outOfRange).Done()
	}
	panic(fmt.Sprintf("unknown layer %q", cfg.layer))
}

// configFromFlags parses and validates the flags.
func configFromFlags() (*layerConfig, error) {
	cfg := &layerConfig{
		layer:         strings.ToLower(*flagLayer),
		padding:       strings.ToLower(*flagPadding),
		groups:        *flagGroups,
		numEmbeddings: *flagNumEmbeddings,
		useBias:       !*flagNoBias,
	}
	switch cfg.layer {
	case "dense", "dense_general", "conv", "embed":
	default:
		return nil, errors.Errorf("-layer=%q: must be one of dense, dense_general, conv or embed", *flagLayer)
	}
	var err error
	intLists := []struct {
		name, value string
		target      *[]int
	}{
		{"input", *flagInput, &cfg.inputDims},
		{"features", *flagFeatures, &cfg.features},
		{"axes", *flagAxes, &cfg.axes},
		{"batch_axes", *flagBatchAxes, &cfg.batchAxes},
		{"kernel", *flagKernel, &cfg.kernel},
		{"strides", *flagStrides, &cfg.strides},
		{"input_dilation", *flagInputDilation, &cfg.inputDilation},
		{"kernel_dilation", *flagKernelDilation, &cfg.kernelDilation},
	}
	for _, list := range intLists {
		*list.target, err = parseInts(list.name, list.value)
		if err != nil {
			return nil, err
		}
	}
	if len(cfg.features) == 0 {
		return nil, errors.Errorf("-features must be set")
	}
	if len(cfg.features) > 1 && cfg.layer != "dense_general" {
		return nil, errors.Errorf("-features=%q: only dense_general accepts more than one value", *flagFeatures)
	}
	if *flagSteps < 1 {
		return nil, errors.Errorf("-steps=%d must be at least 1", *flagSteps)
	}
	if cfg.layer == "embed" && cfg.numEmbeddings <= 0 {
		return nil, errors.Errorf("-num_embeddings=%d must be positive", cfg.numEmbeddings)
	}
	if cfg.padding != "same" && cfg.padding != "valid" {
		cfg.paddings, err = parsePaddings(*flagPadding)
		if err != nil {
			return nil, err
		}
	}
	cfg.precision, err = ops.PrecisionString(*flagPrecision)
	if err != nil {
		return nil, errors.Wrapf(err, "-precision=%q", *flagPrecision)
	}
	cfg.outOfRange, err = layers.OutOfRangePolicyString(*flagOutOfRange)
	if err != nil {
		return nil, errors.Wrapf(err, "-out_of_range=%q", *flagOutOfRange)
	}
	return cfg, nil
}
