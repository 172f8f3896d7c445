// Copyright (C) 2025 dubistdu
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package pipeline orchestrates the synthetic data phases: generation,
// validation, failure labeling, analysis, correction, and the follow-up
// merge and comparison steps.
//
// Phases hand off through persisted JSON artifacts only, never through
// memory, so any phase can run standalone against the artifacts an earlier
// invocation left behind. A missing predecessor artifact is a ConfigError
// and aborts the phase before anything is written.
package pipeline

import (
	"fmt"
	"time"

	"github.com/dubistdu/synthetic-data-home-diy-repair/services/pipeline/analysis"
	"github.com/dubistdu/synthetic-data-home-diy-repair/services/pipeline/labeling"
)

// =============================================================================
// Defaults
// =============================================================================

const (
	// DefaultSamples is the batch size when --samples is not given.
	DefaultSamples = 20

	// DefaultModel is the oracle chat model when --model is not given.
	DefaultModel = "gpt-4o-mini"

	// DefaultOutputDir holds the run artifacts when --output-dir is not
	// given.
	DefaultOutputDir = "data"

	// DefaultRequestTimeout bounds each oracle call.
	DefaultRequestTimeout = 60 * time.Second

	// DefaultMinRequestInterval paces oracle calls so batch loops stay
	// inside API rate limits.
	DefaultMinRequestInterval = 500 * time.Millisecond
)

// =============================================================================
// ConfigError
// =============================================================================

// ConfigError reports invalid or missing configuration, including a missing
// predecessor artifact. It is always fatal to the phase that raises it and
// nothing is written once it has been raised.
type ConfigError struct {
	// Field is the offending flag or artifact name.
	Field string

	// Reason says what is wrong and, for missing artifacts, which command
	// produces them.
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// =============================================================================
// Config
// =============================================================================

// Config carries every knob a pipeline run needs.
//
// # Description
//
// The CLI builds one Config from its flags and passes it by value into New.
// Components never read flags or globals; everything they need arrives
// through this struct, which makes runs reproducible from the recorded
// configuration alone.
//
// # Fields
//
//   - Samples: number of records the generation phase produces.
//   - Seed: template rotation seed. Zero means unseeded, which starts the
//     rotation at the first template.
//   - Model: oracle chat model name.
//   - OutputDir: directory holding the run artifacts.
//   - InputQA: optional path to an external record file. When set, the
//     labeling phase judges that file instead of the structurally-valid
//     artifact, and the validation phase re-validates it instead of the
//     generation artifact.
//   - TargetFailureRate: analysis success criterion. Zero falls back to
//     the project default.
//   - Workers: concurrent records in the labeling phase.
//   - ModesFile: optional YAML file overriding the embedded failure-mode
//     criteria.
//   - RequestTimeout: per-oracle-call deadline.
//   - MinRequestInterval: minimum spacing between oracle calls. Zero
//     disables pacing.
type Config struct {
	Samples            int
	Seed               int64
	Model              string
	OutputDir          string
	InputQA            string
	TargetFailureRate  float64
	Workers            int
	ModesFile          string
	RequestTimeout     time.Duration
	MinRequestInterval time.Duration
}

// DefaultConfig returns the configuration a bare `diyrepair run` uses.
func DefaultConfig() Config {
	return Config{
		Samples:            DefaultSamples,
		Model:              DefaultModel,
		OutputDir:          DefaultOutputDir,
		TargetFailureRate:  analysis.DefaultTargetFailureRate,
		Workers:            labeling.DefaultWorkers,
		RequestTimeout:     DefaultRequestTimeout,
		MinRequestInterval: DefaultMinRequestInterval,
	}
}

// Validate checks the configuration and returns a ConfigError naming the
// first offending field.
func (c Config) Validate() error {
	if c.Samples < 1 {
		return &ConfigError{Field: "samples", Reason: fmt.Sprintf("must be at least 1, got %d", c.Samples)}
	}
	if c.Model == "" {
		return &ConfigError{Field: "model", Reason: "must not be empty"}
	}
	if c.OutputDir == "" {
		return &ConfigError{Field: "output-dir", Reason: "must not be empty"}
	}
	if c.TargetFailureRate < 0 || c.TargetFailureRate > 1 {
		return &ConfigError{Field: "target-rate", Reason: fmt.Sprintf("must be between 0 and 1, got %g", c.TargetFailureRate)}
	}
	if c.Workers < 1 {
		return &ConfigError{Field: "workers", Reason: fmt.Sprintf("must be at least 1, got %d", c.Workers)}
	}
	if c.RequestTimeout < 0 {
		return &ConfigError{Field: "request timeout", Reason: "must not be negative"}
	}
	if c.MinRequestInterval < 0 {
		return &ConfigError{Field: "min request interval", Reason: "must not be negative"}
	}
	return nil
}
