// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package context

import (
	"sync"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/linen/pkg/core/shapes"
	"github.com/gomlx/linen/pkg/core/tensors"
	"github.com/gomlx/linen/pkg/ml/initializers"
)

// Variable is a named parameter of a model, owned by a Context. It's commonly used to store the
// weights (aka. parameters) of an ML model.
//
// Its shape is fixed at creation. The value can be replaced with SetValue (e.g.: by an optimizer),
// the layers never change it.
type Variable struct {
	name, scope string
	shape       shapes.Shape

	// Trainable indicates whether variable is trainable. If set to false it won't be
	// touched by trainers of the model.
	Trainable bool

	mu    sync.RWMutex
	value *tensors.Tensor
}

// Name of the variable within its scope.
func (v *Variable) Name() string { return v.name }

// Scope where the variable was created.
func (v *Variable) Scope() string { return v.scope }

// ScopeAndName returns the scope and name joined, e.g. "/dense/kernel". It uniquely identifies
// a variable in a Context.
func (v *Variable) ScopeAndName() string { return JoinScope(v.scope, v.name) }

// Shape of the variable.
func (v *Variable) Shape() shapes.Shape { return v.shape }

// String implements fmt.Stringer.
func (v *Variable) String() string {
	return v.ScopeAndName() + ": " + v.shape.String()
}

// Value returns the current value of the variable. The returned tensor must not be modified.
func (v *Variable) Value() *tensors.Tensor {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.value
}

// SetValue replaces the value of the variable. The new value must have the variable's shape.
func (v *Variable) SetValue(value *tensors.Tensor) {
	if value == nil || !value.Shape().Equal(v.shape) {
		exceptions.Panicf("Variable(%q).SetValue(): value shape %s doesn't match variable shape %s",
			v.ScopeAndName(), shapeOf(value), v.shape)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.value = value
}

// Param creates or returns an existing variable with the given name and shape in the current scope.
//
// If the variable doesn't exist yet, its value comes from the Loader, if one is configured and has
// it, otherwise from calling init with a random stream derived from the context seed and the
// variable's scope and name. If init is nil, the context initializer is used.
//
// It panics if the variable exists with a different shape, or if init returns a value of the wrong shape.
func (ctx *Context) Param(name string, shape shapes.Shape, init initializers.Initializer) *Variable {
	if name == "" {
		exceptions.Panicf("Context.Param(): variable name cannot be empty (scope %q)", ctx.scope)
	}
	if init == nil {
		init = ctx.Initializer()
	}
	data := ctx.data
	data.mu.Lock()
	defer data.mu.Unlock()

	key := JoinScope(ctx.scope, name)
	if v, found := data.variablesMap[key]; found {
		if !shape.Equal(v.shape) {
			exceptions.Panicf(
				"requested to reuse variable %q in scope %q, but with different shape from original: previous shape=%s, requested shape=%s",
				name, ctx.scope, v.shape, shape)
		}
		return v
	}

	v := &Variable{name: name, scope: ctx.scope, shape: shape, Trainable: true}
	if ctx.tryToLoad(v) {
		ctx.setVariable(v, "loaded")
		return v
	}
	value := init(data.rng.FoldIn(key), shape)
	if value == nil || !value.Shape().Equal(shape) {
		exceptions.Panicf("initializer for variable %q returned shape %s, wanted %s", key, shapeOf(value), shape)
	}
	v.value = value
	ctx.setVariable(v, "initialized")
	return v
}

// VariableWithShape creates or returns an existing variable with the given shape in the current scope.
// It is initialized with the current variable initializer set for the context (see WithInitializer).
// By default, variables are marked as trainable.
func (ctx *Context) VariableWithShape(name string, shape shapes.Shape) *Variable {
	return ctx.Param(name, shape, nil)
}

// VariableWithValue creates or returns a variable initialized with the given value in the current scope.
// If the variable already exists, its value is not overwritten, but the value shape must match.
//
// The value can be a *tensors.Tensor or a Go value accepted by tensors.FromValue.
// If a Loader is configured and has the variable, the loaded value is used instead.
func (ctx *Context) VariableWithValue(name string, value any) *Variable {
	valueT := valueToTensor(value)
	data := ctx.data
	data.mu.Lock()
	defer data.mu.Unlock()

	key := JoinScope(ctx.scope, name)
	if v, found := data.variablesMap[key]; found {
		if !valueT.Shape().Equal(v.shape) {
			exceptions.Panicf(
				"requested to reuse variable %q in scope %q, but with value with different shape from original: previous shape=%s, requested value shape=%s",
				name, ctx.scope, v.shape, valueT.Shape())
		}
		return v
	}

	v := &Variable{name: name, scope: ctx.scope, shape: valueT.Shape(), Trainable: true}
	if ctx.tryToLoad(v) {
		ctx.setVariable(v, "loaded")
		return v
	}
	v.value = valueT
	ctx.setVariable(v, "value")
	return v
}

func valueToTensor(value any) *tensors.Tensor {
	if t, ok := value.(*tensors.Tensor); ok {
		return t
	}
	return tensors.FromValue(value)
}

// tryToLoad tries to load the variable from the loader. It returns true if it succeeded.
// It must be called with the data lock held.
func (ctx *Context) tryToLoad(v *Variable) bool {
	loader := ctx.data.loader
	if loader == nil {
		return false
	}
	value, found := loader.LoadVariable(ctx, v.scope, v.name)
	if !found {
		return false
	}
	if value == nil || !value.Shape().Equal(v.shape) {
		exceptions.Panicf("loading of variable %q returned shape %s, but variable was created "+
			"with shape %s -- did some hyperparameter change since variable was saved that changed "+
			"the variable shape?", v.ScopeAndName(), shapeOf(value), v.shape)
	}
	v.value = value
	return true
}

// setVariable registers v. It must be called with the data lock held.
func (ctx *Context) setVariable(v *Variable, source string) {
	ctx.data.variablesMap[v.ScopeAndName()] = v
	ctx.data.variables = append(ctx.data.variables, v)
	ctx.logNewVariable(v, source)
}

// InspectVariable returns the variable with the given scope and name, or nil if it
// hasn't been created.
func (ctx *Context) InspectVariable(scope, name string) *Variable {
	ctx.data.mu.Lock()
	defer ctx.data.mu.Unlock()
	return ctx.data.variablesMap[JoinScope(scope, name)]
}

// GetVariable returns the variable with the given name in the current scope, or nil if it
// hasn't been created.
func (ctx *Context) GetVariable(name string) *Variable {
	return ctx.InspectVariable(ctx.scope, name)
}

// snapshot returns the variables in creation order.
func (ctx *Context) snapshot() []*Variable {
	ctx.data.mu.Lock()
	defer ctx.data.mu.Unlock()
	return append([]*Variable(nil), ctx.data.variables...)
}

// EnumerateVariables will call fn for each variable in the context, in creation order.
// fn may create new variables: they are not visited.
//
// Example:
//
//	fmt.Println("\nVariables:")
//	ctx.EnumerateVariables(func(v *context.Variable) {
//		fmt.Printf("\t%s::%s: shape=%s\n", v.Scope(), v.Name(), v.Shape())
//	})
func (ctx *Context) EnumerateVariables(fn func(v *Variable)) {
	for _, v := range ctx.snapshot() {
		fn(v)
	}
}

// NumVariables return the number of variables in this Context.
func (ctx *Context) NumVariables() int {
	ctx.data.mu.Lock()
	defer ctx.data.mu.Unlock()
	return len(ctx.data.variables)
}

// NumParameters returns the summed-up number of all variables.
// It ignores the `DType`, so a `float64` will count as much as a `uint8`.
func (ctx *Context) NumParameters() int {
	total := 0
	ctx.EnumerateVariables(func(v *Variable) {
		total += v.Shape().Size()
	})
	return total
}

// Memory returns the total number of bytes summed across all variables.
// It does not include associated pointers and structures, just the bytes used by the raw data.
func (ctx *Context) Memory() uintptr {
	var total uintptr
	ctx.EnumerateVariables(func(v *Variable) {
		total += v.Shape().Memory()
	})
	return total
}
