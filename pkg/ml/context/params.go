// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package context

import (
	"maps"
	"slices"
	"strings"
)

// scopedParams maps (scope, key) to values of any type. A Get searches from the given
// scope up to the root scope and returns the first value found.
//
// Example: with
//
//	Scope: "/": { "x":10, "y": 20, "z": 40 }
//	Scope: "/a": { "y": 30 }
//	Scope: "/a/b": { "x": 100 }
//
// Get("/a/b", "x") is 100, Get("/a/b", "y") is 30, Get("/a/b", "z") is 40, and "w" is not found.
type scopedParams struct {
	scopeToMap map[string]map[string]any
}

func newScopedParams() *scopedParams {
	return &scopedParams{scopeToMap: make(map[string]map[string]any)}
}

// Set sets the value for the given key, in the given scope.
func (p *scopedParams) Set(scope, key string, value any) {
	dataMap, found := p.scopeToMap[scope]
	if !found {
		dataMap = make(map[string]any)
		p.scopeToMap[scope] = dataMap
	}
	dataMap[key] = value
}

// Get retrieves the value for the given key in the given scope or any parent scope.
func (p *scopedParams) Get(scope, key string) (value any, found bool) {
	for {
		if value, found = p.scopeToMap[scope][key]; found {
			return
		}
		if scope == RootScope || scope == "" {
			return nil, false
		}
		idx := strings.LastIndex(scope, ScopeSeparator)
		if idx <= 0 {
			scope = RootScope
		} else {
			scope = scope[:idx]
		}
	}
}

// Enumerate calls fn for all parameters, sorted by scope and then key.
func (p *scopedParams) Enumerate(fn func(scope, key string, value any)) {
	for _, scope := range slices.Sorted(maps.Keys(p.scopeToMap)) {
		keyValues := p.scopeToMap[scope]
		for _, key := range slices.Sorted(maps.Keys(keyValues)) {
			fn(scope, key, keyValues[key])
		}
	}
}
