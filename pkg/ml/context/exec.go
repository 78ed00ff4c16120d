// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package context

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/linen/pkg/core/tensors"
	"github.com/pkg/errors"
)

// ExecOnce calls fn with ctx and returns its output. Layers and ops report failures by
// panicking with an error: ExecOnce converts those panics into the returned error, so
// errors.Is can be used with the sentinel errors of the layers package.
//
// Panics with values that are not errors are not caught.
func ExecOnce(ctx *Context, fn func(ctx *Context) *tensors.Tensor) (output *tensors.Tensor, err error) {
	err = exceptions.TryCatch[error](func() {
		output = fn(ctx)
	})
	if err != nil {
		return nil, errors.WithMessagef(err, "ExecOnce in scope %q", ctx.Scope())
	}
	return output, nil
}

// MustExecOnce is like ExecOnce, but panics on error.
func MustExecOnce(ctx *Context, fn func(ctx *Context) *tensors.Tensor) *tensors.Tensor {
	output, err := ExecOnce(ctx, fn)
	if err != nil {
		panic(err)
	}
	return output
}
