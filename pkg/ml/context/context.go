// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package context defines the Context and Variable types: Context is the parameter store used by
// the layers, organizing variables (learned parameters) and hyperparameters in scopes.
//
// The Context object is a thin wrapper that contains the current scope (similar to a current
// directory) and a link to the actual data. One changes scopes with Context.In("new_scope"): it
// returns a new Context with the new scope set, sharing all the data with the previous Context. E.g.:
//
//	ctx := context.NewWithSeed(42)
//	ctx.SetParam(layers.ParamPrecision, "highest")
//	y := layers.Dense(ctx.In("layer_0"), x, 64).Done()
//	y = layers.Dense(ctx.In("layer_1"), y, 10).Done()
//
// Variables are created lazily: the first request for a (scope, name) pair creates and initializes
// it, later requests return the same Variable. This is safe to do from multiple goroutines.
package context

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/exceptions"
	"github.com/gomlx/linen/pkg/core/shapes"
	"github.com/gomlx/linen/pkg/core/tensors"
	"github.com/gomlx/linen/pkg/ml/initializers"
	"github.com/gomlx/linen/pkg/ml/random"
	"k8s.io/klog/v2"
)

// Context organizes the variables and hyperparameters of a model in scopes.
//
// Only the current scope and initializer are part of the "reference" component of a Context: all
// other information is stored in the "data" component, shared among all Context references
// derived from the same New call.
type Context struct {
	// scope for currently created variables and registration.
	scope string

	// initializer is used by VariableWithShape. If nil, DefaultInitializer is used.
	initializer initializers.Initializer

	data *contextData
}

// contextData stores all context information and is shared among various Context, which
// serve only as scoped references.
type contextData struct {
	// mu protects all fields below.
	mu sync.Mutex

	// rng is the root of the random streams used to initialize variables. Each variable folds
	// its scope and name into it, so its value doesn't depend on creation order.
	rng *random.Random

	// params holds a model's building (hyper)parameters. Context is agnostic about their
	// semantics: they are interpreted by the various model components independently.
	params *scopedParams

	// variablesMap indexes variables by their ScopeAndName.
	variablesMap map[string]*Variable

	// variables is a plain list of all variables, in creation order.
	variables []*Variable

	// loader, if set, is called to check whether there is a previous value of the variable to use.
	loader Loader
}

// Loader can be implemented by any library providing loading of variables for
// Context. Loader implementations need to provide values on demand, as variables are created,
// even if they load everything up-front.
//
// LoadVariable is called while the context is locked, so it must not create or fetch
// variables in ctx.
type Loader interface {
	// LoadVariable tries to load the variable pointed by its scope and name.
	// If it's not found, returns false, and initialization continues as usual.
	//
	// It is called at most once for each variable.
	LoadVariable(ctx *Context, scope, name string) (value *tensors.Tensor, found bool)
}

const (
	// ScopeSeparator is used between levels of scope. Scope names cannot use this character.
	ScopeSeparator = "/"

	// RootScope is the scope at the very root.
	RootScope = ScopeSeparator
)

// DefaultInitializer is used by VariableWithShape when no initializer was configured with
// Context.WithInitializer.
var DefaultInitializer = initializers.TruncatedNormal(0.05)

// New returns an empty context, with a random generator seeded differently at each call.
func New() *Context {
	return newWithRandom(random.New())
}

// NewWithSeed returns an empty context whose variables are initialized deterministically
// from seed.
func NewWithSeed(seed uint64) *Context {
	return newWithRandom(random.NewWithSeed(seed))
}

func newWithRandom(rng *random.Random) *Context {
	return &Context{
		scope: RootScope,
		data: &contextData{
			rng:          rng,
			params:       newScopedParams(),
			variablesMap: make(map[string]*Variable),
		},
	}
}

// copy creates a copy of the Context, but sharing the same "data" component.
func (ctx *Context) copy() *Context {
	ctx2 := &Context{}
	*ctx2 = *ctx
	return ctx2
}

// JoinScope and name into a single string.
func JoinScope(scope, name string) string {
	if strings.HasSuffix(scope, ScopeSeparator) {
		return scope + name
	}
	if scope == "" {
		return name
	}
	return scope + ScopeSeparator + name
}

// Scope returns the full scope path.
func (ctx *Context) Scope() string {
	return ctx.scope
}

// In returns a new reference to the Context with the extra given scope. No ScopeSeparator ("/") is
// allowed in scope.
func (ctx *Context) In(scope string) *Context {
	if scope == "" {
		exceptions.Panicf("cannot use empty scope for Context.In()")
	}
	if strings.Contains(scope, ScopeSeparator) {
		exceptions.Panicf("cannot use separator %q in scope element %q", ScopeSeparator, scope)
	}
	ctx2 := ctx.copy()
	ctx2.scope = JoinScope(ctx.scope, scope)
	return ctx2
}

// Inf returns a new reference to the Context with the extra scope given by the formatted string.
func (ctx *Context) Inf(format string, args ...any) *Context {
	return ctx.In(fmt.Sprintf(format, args...))
}

// WithInitializer returns a new reference to the Context, with the initializer set.
// It is used by VariableWithShape.
func (ctx *Context) WithInitializer(initializer initializers.Initializer) *Context {
	ctx2 := ctx.copy()
	ctx2.initializer = initializer
	return ctx2
}

// Initializer returns the initializer used by VariableWithShape in this reference.
func (ctx *Context) Initializer() initializers.Initializer {
	if ctx.initializer == nil {
		return DefaultInitializer
	}
	return ctx.initializer
}

// GetParam returns the value for the given param key, searching successively from
// the current scope back to the root scope ("/"), in case the key is not found.
func (ctx *Context) GetParam(key string) (value any, found bool) {
	ctx.data.mu.Lock()
	defer ctx.data.mu.Unlock()
	return ctx.data.params.Get(ctx.scope, key)
}

// SetParam sets the given param in the current scope. It will be visible (by GetParam)
// within this scope and descendant scopes (but not by other scopes).
func (ctx *Context) SetParam(key string, value any) {
	ctx.data.mu.Lock()
	defer ctx.data.mu.Unlock()
	ctx.data.params.Set(ctx.scope, key, value)
}

// EnumerateParams calls fn for every hyperparameter set, in scope and then key order.
func (ctx *Context) EnumerateParams(fn func(scope, key string, value any)) {
	ctx.data.mu.Lock()
	defer ctx.data.mu.Unlock()
	ctx.data.params.Enumerate(fn)
}

// GetParamOr either returns the value for the given param key in the context `ctx`,
// searching successively from the current scope back to the root scope ("/"), or if the
// key is not found or the key is set to nil, it returns the given default value.
//
// It tries to cast the value to the given type. If it fails, it tries to convert the
// value to the given type (so an `int` will be converted to a `float64` transparently).
// A string is parsed with UnmarshalText if T implements encoding.TextUnmarshaler, which
// is how enum hyperparameters (e.g. ops.Precision) can be given by name.
// If that also fails, it panics.
func GetParamOr[T any](ctx *Context, key string, defaultValue T) T {
	valueAny, found := ctx.GetParam(key)
	if !found || valueAny == nil {
		return defaultValue
	}
	if value, ok := valueAny.(T); ok {
		return value
	}

	var t T
	v := reflect.ValueOf(valueAny)
	typeOfT := reflect.TypeOf(t)
	if v.Kind() == reflect.String {
		ptr := reflect.New(typeOfT)
		if unmarshaler, ok := ptr.Interface().(interface{ UnmarshalText([]byte) error }); ok {
			if err := unmarshaler.UnmarshalText([]byte(v.String())); err != nil {
				panic(err)
			}
			return ptr.Elem().Interface().(T)
		}
	}
	if !v.CanConvert(typeOfT) {
		exceptions.Panicf("GetParamOr[%T](ctx, %q): ctx(scope=%q)[%q]=(%T) %#v, and cannot be converted to %T",
			t, key, ctx.Scope(), key, valueAny, valueAny, t)
	}
	return v.Convert(typeOfT).Interface().(T)
}

// Loader returns the current configured Loader for this context. See SetLoader for details on how the
// Loader is used.
func (ctx *Context) Loader() Loader {
	ctx.data.mu.Lock()
	defer ctx.data.mu.Unlock()
	return ctx.data.loader
}

// SetLoader configures given loader to be used as the default Loader for this Context.
//
// Loader is used just after any new variable is created, either with VariableWithValue,
// VariableWithShape or Param. If the Loader has a value of the variable, it will use it
// instead of the initializer.
func (ctx *Context) SetLoader(loader Loader) {
	ctx.data.mu.Lock()
	defer ctx.data.mu.Unlock()
	ctx.data.loader = loader
}

// Summary returns a one line description of the variables in the context.
func (ctx *Context) Summary() string {
	return fmt.Sprintf("%d variables, %s parameters, %s",
		ctx.NumVariables(), humanize.Comma(int64(ctx.NumParameters())), humanize.Bytes(uint64(ctx.Memory())))
}

func (ctx *Context) logNewVariable(v *Variable, source string) {
	if klog.V(1).Enabled() {
		klog.Infof("context: created variable %q: shape=%s (%s)", v.ScopeAndName(), v.shape, source)
	}
}

// shapeOf is used in error messages.
func shapeOf(t *tensors.Tensor) shapes.Shape {
	if t == nil {
		return shapes.Invalid()
	}
	return t.Shape()
}
