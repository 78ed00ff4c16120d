// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package initializers

// FanMode selects which fan VarianceScaling uses to normalize the variance.
type FanMode int

const (
	// FanIn uses the number of input units.
	FanIn FanMode = iota

	// FanOut uses the number of output units.
	FanOut

	// FanAvg uses the average of the number of input and output units.
	FanAvg
)

//go:generate go tool enumer -type=FanMode -transform=snake -values -text -output=gen_fanmode_enumer.go enums.go

// Distribution used by VarianceScaling to sample values.
type Distribution int

const (
	// DistributionTruncatedNormal samples from a normal distribution truncated to 2 standard deviations.
	DistributionTruncatedNormal Distribution = iota

	// DistributionNormal samples from a normal distribution.
	DistributionNormal

	// DistributionUniform samples from a uniform distribution.
	DistributionUniform
)

//go:generate go tool enumer -type=Distribution -trimprefix=Distribution -transform=snake -values -text -output=gen_distribution_enumer.go enums.go
