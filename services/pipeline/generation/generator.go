// Copyright (C) 2025 dubistdu
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package generation produces candidate repair Q&A records from the five
// domain templates via the oracle.
package generation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dubistdu/synthetic-data-home-diy-repair/pkg/logging"
	"github.com/dubistdu/synthetic-data-home-diy-repair/services/llm"
	"github.com/dubistdu/synthetic-data-home-diy-repair/services/pipeline/datatypes"
)

const (
	generationTemperature float32 = 0.7
	generationMaxTokens           = 1500
)

// Generator produces QARecords by cycling through the domain templates.
//
// Template assignment is deterministic: sample i uses
// templates[(i + offset) mod len(templates)] where the offset derives from
// the configured seed. Two runs with the same seed and sample count submit
// the same template sequence regardless of what the oracle returns.
//
// Generation runs sequentially. Trace IDs are minted in submission order
// before each oracle call, so record identity never depends on oracle
// latency or scheduling.
type Generator struct {
	oracle    llm.LLMClient
	log       *logging.Logger
	templates []Template
	offset    int

	// OnProgress, when set, is called after each sample completes with the
	// number done so far and the batch total.
	OnProgress func(done, total int)

	// Injection points for deterministic tests.
	now   func() time.Time
	newID func() string
}

// New builds a generator over the five domain templates.
//
// seed selects the starting template; 0 (the unseeded default) starts at
// the first template. Any seed value is valid, including negatives.
func New(oracle llm.LLMClient, log *logging.Logger, seed int64) (*Generator, error) {
	if oracle == nil {
		return nil, fmt.Errorf("generation: oracle must not be nil")
	}
	if log == nil {
		log = logging.Default()
	}
	templates, err := buildTemplates()
	if err != nil {
		return nil, err
	}
	return &Generator{
		oracle:    oracle,
		log:       log,
		templates: templates,
		offset:    seedOffset(seed, len(templates)),
		now:       time.Now,
		newID:     uuid.NewString,
	}, nil
}

// seedOffset maps an arbitrary seed onto a starting index in [0, n).
func seedOffset(seed int64, n int) int {
	if n <= 0 {
		return 0
	}
	off := int(seed % int64(n))
	if off < 0 {
		off += n
	}
	return off
}

// TemplatePlan returns the template names that Run would assign to each of
// the next samples, in order. The plan depends only on the seed and the
// sample count.
func (g *Generator) TemplatePlan(samples int) []string {
	plan := make([]string, 0, samples)
	for i := 0; i < samples; i++ {
		plan = append(plan, g.templateFor(i).Name)
	}
	return plan
}

func (g *Generator) templateFor(i int) Template {
	return g.templates[(i+g.offset)%len(g.templates)]
}

// Run generates samples records.
//
// Every attempt produces one GenerationResult, successful or not: oracle
// errors and malformed output are recorded on the failed row and the batch
// continues. Only context cancellation aborts the run, returning the rows
// completed so far alongside the context error.
func (g *Generator) Run(ctx context.Context, samples int) ([]datatypes.GenerationResult, error) {
	results := make([]datatypes.GenerationResult, 0, samples)

	for i := 0; i < samples; i++ {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		template := g.templateFor(i)
		g.log.Info("generating sample",
			"sample", i+1,
			"total", samples,
			"template", template.Name)

		row, err := g.generateOne(ctx, template)
		if err != nil {
			return results, err
		}
		results = append(results, row)
		if g.OnProgress != nil {
			g.OnProgress(len(results), samples)
		}
	}
	return results, nil
}

// generateOne performs a single oracle call and converts the outcome into
// an audit row. The trace ID is minted before the call. The returned error
// is non-nil only when the context was canceled mid-call.
func (g *Generator) generateOne(ctx context.Context, template Template) (datatypes.GenerationResult, error) {
	result := datatypes.GenerationResult{
		TraceID:             g.newID(),
		TemplateName:        template.Name,
		ValidationErrors:    []string{},
		GenerationTimestamp: g.now().UTC().Format(time.RFC3339),
	}

	temperature := generationTemperature
	maxTokens := generationMaxTokens
	raw, err := g.oracle.Generate(ctx, template.User, llm.GenerationParams{
		SystemPrompt: template.System,
		Temperature:  &temperature,
		MaxTokens:    &maxTokens,
	})
	if err != nil {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		g.log.Warn("generation attempt failed",
			"trace_id", result.TraceID,
			"template", template.Name,
			"error", err)
		result.ValidationErrors = []string{fmt.Sprintf("generation error: %v", err)}
		return result, nil
	}

	result.RawResponse = raw
	record, parseErrors := datatypes.ParseQARecord(raw)
	if record == nil {
		g.log.Warn("generated sample failed validation",
			"trace_id", result.TraceID,
			"template", template.Name,
			"errors", parseErrors)
		result.ValidationErrors = parseErrors
		return result, nil
	}

	record.TraceID = result.TraceID
	record.TemplateName = template.Name
	result.QAPair = record
	result.IsValid = true
	return result, nil
}
