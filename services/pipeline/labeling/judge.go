// Copyright (C) 2025 dubistdu
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package labeling judges structurally valid records against the six
// failure modes using an LLM oracle. Each record receives one oracle call
// per mode; the verdict must be exactly "0" or "1". Records whose verdicts
// stay unusable after bounded retries are marked failed on every mode and
// flagged for manual review rather than dropped.
package labeling

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dubistdu/synthetic-data-home-diy-repair/pkg/logging"
	"github.com/dubistdu/synthetic-data-home-diy-repair/services/llm"
	"github.com/dubistdu/synthetic-data-home-diy-repair/services/pipeline/datatypes"
	"github.com/dubistdu/synthetic-data-home-diy-repair/services/pipeline/modes"
)

const (
	// judgeTemperature keeps verdicts near-deterministic.
	judgeTemperature float32 = 0.1

	// judgeMaxTokens is all a bare 0/1 verdict needs.
	judgeMaxTokens = 10

	judgeSystemPrompt = "You are an expert DIY repair evaluator. Respond with only 0 or 1."

	// DefaultWorkers bounds concurrent record evaluations when the caller
	// does not choose a worker count.
	DefaultWorkers = 4
)

// =============================================================================
// Judge
// =============================================================================

// Judge evaluates records against every registered failure mode.
type Judge struct {
	oracle   llm.LLMClient
	log      *logging.Logger
	registry *modes.Registry
	prompts  *promptSet
	workers  int
	retry    llm.RetryPolicy
	newID    func() string
}

// NewJudge builds a Judge. A nil logger falls back to the process default;
// a worker count below one falls back to DefaultWorkers.
func NewJudge(oracle llm.LLMClient, registry *modes.Registry, log *logging.Logger, workers int) (*Judge, error) {
	if oracle == nil {
		return nil, fmt.Errorf("labeling: oracle must not be nil")
	}
	if registry == nil {
		return nil, fmt.Errorf("labeling: mode registry must not be nil")
	}
	if log == nil {
		log = logging.Default()
	}
	if workers < 1 {
		workers = DefaultWorkers
	}
	return &Judge{
		oracle:   oracle,
		log:      log,
		registry: registry,
		prompts:  newPromptSet(registry),
		workers:  workers,
		retry:    llm.DefaultRetryPolicy(),
		newID:    uuid.NewString,
	}, nil
}

// Run labels every record and returns one row per input, in input order
// regardless of worker scheduling. Only context cancellation aborts the
// batch; per-record trouble is absorbed into fail-closed rows.
func (j *Judge) Run(ctx context.Context, records []datatypes.QARecord) ([]datatypes.FailureLabelRow, error) {
	rows := make([]datatypes.FailureLabelRow, len(records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.workers)
	for i := range records {
		g.Go(func() error {
			row, err := j.labelRecord(gctx, &records[i], i+1, len(records))
			if err != nil {
				return err
			}
			rows[i] = *row
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	j.log.Info("failure labeling complete",
		"total", len(rows),
		"workers", j.workers)
	return rows, nil
}

// labelRecord judges one record against all modes in canonical order. The
// returned error is non-nil only for context cancellation.
func (j *Judge) labelRecord(ctx context.Context, record *datatypes.QARecord, ordinal, total int) (*datatypes.FailureLabelRow, error) {
	row := datatypes.NewFailureLabelRow(record)
	if row.TraceID == "" {
		row.TraceID = j.newID()
	}
	j.log.Info("evaluating sample",
		"sample", ordinal,
		"total", total,
		"trace_id", row.TraceID)

	for _, mode := range j.registry.All() {
		verdict, raw, err := j.judgeMode(ctx, record, mode)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			j.failClosed(row, mode.Name, err)
			break
		}
		row.SetVerdict(mode.Name, verdict, raw)
	}
	row.FinalizeTotals()
	return row, nil
}

// judgeMode obtains one verdict, retrying oracle errors and unusable
// replies up to the retry policy's attempt budget.
func (j *Judge) judgeMode(ctx context.Context, record *datatypes.QARecord, mode modes.Mode) (int, string, error) {
	prompt, err := j.prompts.render(mode.Name, record)
	if err != nil {
		return 0, "", err
	}

	temperature := judgeTemperature
	maxTokens := judgeMaxTokens
	params := llm.GenerationParams{
		SystemPrompt: judgeSystemPrompt,
		Temperature:  &temperature,
		MaxTokens:    &maxTokens,
	}

	var lastErr error
	for attempt := 1; attempt <= j.retry.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleepContext(ctx, j.retry.Delay(attempt-1)); err != nil {
				return 0, "", err
			}
		}

		raw, err := j.oracle.Generate(ctx, prompt, params)
		if err != nil {
			if ctx.Err() != nil {
				return 0, "", ctx.Err()
			}
			lastErr = err
			j.log.Warn("judge call failed",
				"trace_id", record.TraceID,
				"mode", mode.Name,
				"attempt", attempt,
				"error", err)
			continue
		}

		verdict, perr := parseVerdict(raw)
		if perr != nil {
			lastErr = perr
			j.log.Warn("judge returned unusable verdict",
				"trace_id", record.TraceID,
				"mode", mode.Name,
				"attempt", attempt,
				"response", raw)
			continue
		}
		return verdict, strings.TrimSpace(raw), nil
	}
	return 0, "", fmt.Errorf("no usable %s verdict after %d attempts: %w",
		mode.Name, j.retry.MaxAttempts, lastErr)
}

// failClosed marks every mode failed and flags the row for manual review.
// Verdicts collected before the trouble keep their recorded responses; the
// mode that could not be judged records the error instead.
func (j *Judge) failClosed(row *datatypes.FailureLabelRow, modeName string, err error) {
	j.log.Warn("failing record closed on all modes",
		"trace_id", row.TraceID,
		"mode", modeName,
		"error", err)
	for _, name := range datatypes.FailureModeNames {
		response := row.Response(name)
		if name == modeName {
			response = fmt.Sprintf("Error: %v", err)
		}
		row.SetVerdict(name, 1, response)
	}
	row.NeedsReview = true
}

// parseVerdict accepts exactly "0" or "1" modulo surrounding whitespace.
func parseVerdict(raw string) (int, error) {
	switch strings.TrimSpace(raw) {
	case "0":
		return 0, nil
	case "1":
		return 1, nil
	}
	return 0, errors.New("verdict is not 0 or 1")
}

// sleepContext waits for d unless the context ends first.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
