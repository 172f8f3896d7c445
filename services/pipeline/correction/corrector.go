// Copyright (C) 2025 dubistdu
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package correction rewrites records the judge failed, steering the oracle
// with the same success criteria the judge scores against.
package correction

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dubistdu/synthetic-data-home-diy-repair/pkg/logging"
	"github.com/dubistdu/synthetic-data-home-diy-repair/services/llm"
	"github.com/dubistdu/synthetic-data-home-diy-repair/services/pipeline/datatypes"
	"github.com/dubistdu/synthetic-data-home-diy-repair/services/pipeline/modes"
)

const (
	correctionTemperature float32 = 0.5
	correctionMaxTokens           = 1500
)

// Corrector produces corrected candidates for judged failures.
//
// Correction is per-record and fail-soft: an oracle error or unusable output
// yields an invalid CorrectionRecord for audit and the batch continues. The
// merger ignores invalid corrections, so the failing original stays in the
// dataset rather than being replaced by garbage.
type Corrector struct {
	oracle   llm.LLMClient
	log      *logging.Logger
	registry *modes.Registry

	now func() time.Time
}

// New builds a Corrector over the configured failure-mode criteria.
func New(oracle llm.LLMClient, registry *modes.Registry, log *logging.Logger) (*Corrector, error) {
	if oracle == nil {
		return nil, fmt.Errorf("correction: oracle must not be nil")
	}
	if registry == nil {
		return nil, fmt.Errorf("correction: mode registry must not be nil")
	}
	if log == nil {
		log = logging.Default()
	}
	return &Corrector{
		oracle:   oracle,
		log:      log,
		registry: registry,
		now:      time.Now,
	}, nil
}

// Run corrects every row flagged as an overall failure, in input order.
//
// Rows that passed the judge are skipped without an oracle call. Only
// context cancellation aborts the run, returning the records completed so
// far alongside the context error.
func (c *Corrector) Run(ctx context.Context, rows []datatypes.FailureLabelRow) ([]datatypes.CorrectionRecord, error) {
	failed := make([]*datatypes.FailureLabelRow, 0, len(rows))
	for i := range rows {
		if rows[i].OverallFailure == 1 {
			failed = append(failed, &rows[i])
		}
	}

	results := make([]datatypes.CorrectionRecord, 0, len(failed))
	if len(failed) == 0 {
		c.log.Info("no failed records to correct", "total", len(rows))
		return results, nil
	}

	for i, row := range failed {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		c.log.Info("correcting sample",
			"sample", i+1,
			"total", len(failed),
			"trace_id", row.TraceID,
			"failed_modes", row.FailedModes())

		record, err := c.correctOne(ctx, row)
		if err != nil {
			return results, err
		}
		results = append(results, record)
	}

	valid := 0
	for i := range results {
		if results[i].IsValid {
			valid++
		}
	}
	c.log.Info("correction complete",
		"corrected", len(results),
		"valid", valid,
		"invalid", len(results)-valid)
	return results, nil
}

// correctOne performs a single correction call and converts the outcome into
// an audit record. The trace ID is copied from the failing row, never
// re-minted; the corrected record must replace its original under the same
// identity. The returned error is non-nil only when the context was canceled
// mid-call.
func (c *Corrector) correctOne(ctx context.Context, row *datatypes.FailureLabelRow) (datatypes.CorrectionRecord, error) {
	plan := planFixes(c.registry, row)
	result := datatypes.CorrectionRecord{
		TraceID:            row.TraceID,
		FailedModes:        plan.failed,
		Instructions:       plan.instructions,
		ValidationErrors:   []string{},
		CorrectedTimestamp: c.now().UTC().Format(time.RFC3339),
	}

	prompt, err := buildPrompt(row, plan)
	if err != nil {
		result.ValidationErrors = []string{fmt.Sprintf("correction error: %v", err)}
		return result, nil
	}

	temperature := correctionTemperature
	maxTokens := correctionMaxTokens
	raw, err := c.oracle.Generate(ctx, prompt, llm.GenerationParams{
		SystemPrompt: correctionSystemPrompt,
		Temperature:  &temperature,
		MaxTokens:    &maxTokens,
	})
	if err != nil {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		c.log.Warn("correction attempt failed",
			"trace_id", row.TraceID,
			"error", err)
		result.ValidationErrors = []string{fmt.Sprintf("correction error: %v", err)}
		return result, nil
	}

	result.RawResponse = strings.TrimSpace(raw)
	record, parseErrors := datatypes.ParseQARecord(raw)
	if record == nil {
		c.log.Warn("corrected sample failed validation",
			"trace_id", row.TraceID,
			"errors", parseErrors)
		result.ValidationErrors = parseErrors
		return result, nil
	}

	record.TraceID = row.TraceID
	result.QAPair = record
	result.IsValid = true
	return result, nil
}
