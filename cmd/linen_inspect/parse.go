// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// parseInts parses a comma-separated list of integers. An empty value returns nil.
func parseInts(name, value string) ([]int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	parts := strings.Split(value, ",")
	values := make([]int, len(parts))
	for ii, part := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, errors.Wrapf(err, "-%s=%q: element #%d is not an integer", name, value, ii)
		}
		values[ii] = v
	}
	return values, nil
}

// parsePaddings parses explicit paddings given as "low:high" pairs separated by commas.
func parsePaddings(value string) ([][2]int, error) {
	parts := strings.Split(value, ",")
	paddings := make([][2]int, len(parts))
	for ii, part := range parts {
		low, high, found := strings.Cut(strings.TrimSpace(part), ":")
		if !found {
			return nil, errors.Errorf("-padding=%q: element #%d (%q) must be \"low:high\"", value, ii, part)
		}
		var err error
		for jj, s := range []string{low, high} {
			paddings[ii][jj], err = strconv.Atoi(s)
			if err != nil {
				return nil, errors.Wrapf(err, "-padding=%q: element #%d (%q)", value, ii, part)
			}
		}
	}
	return paddings, nil
}
