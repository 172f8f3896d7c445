// Copyright (C) 2025 dubistdu
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package labeling

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dubistdu/synthetic-data-home-diy-repair/services/llm"
	"github.com/dubistdu/synthetic-data-home-diy-repair/services/pipeline/datatypes"
	"github.com/dubistdu/synthetic-data-home-diy-repair/services/pipeline/modes"
)

// =============================================================================
// Test Doubles
// =============================================================================

type judgeCall struct {
	prompt string
	params llm.GenerationParams
}

// judgeOracle answers judge calls through a reply function keyed on call
// index and prompt content. Safe for concurrent use.
type judgeOracle struct {
	mu    sync.Mutex
	calls []judgeCall
	reply func(call int, prompt string) (string, error)
}

func (o *judgeOracle) Generate(ctx context.Context, prompt string, params llm.GenerationParams) (string, error) {
	o.mu.Lock()
	n := len(o.calls)
	o.calls = append(o.calls, judgeCall{prompt: prompt, params: params})
	reply := o.reply
	o.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if reply == nil {
		return "0", nil
	}
	return reply(n, prompt)
}

func (o *judgeOracle) callCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.calls)
}

func (o *judgeOracle) call(i int) judgeCall {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls[i]
}

func labelFixture(traceID, question string) datatypes.QARecord {
	return datatypes.QARecord{
		TraceID:          traceID,
		Question:         question,
		Answer:           "Turn off the water, disassemble the handle, replace the worn parts, and reassemble.",
		EquipmentProblem: "Leaky kitchen faucet",
		ToolsRequired:    []string{"adjustable wrench", "screwdriver"},
		Steps:            []string{"Turn off water", "Disassemble handle", "Replace parts", "Reassemble and test"},
		SafetyInfo:       "Turn off the water supply before starting any work.",
		Tips:             "Take a photo before disassembly so you can reassemble correctly.",
	}
}

func newTestJudge(t *testing.T, oracle llm.LLMClient, workers int) *Judge {
	t.Helper()
	registry, err := modes.Load("")
	require.NoError(t, err)
	judge, err := NewJudge(oracle, registry, nil, workers)
	require.NoError(t, err)
	judge.retry = llm.RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    2 * time.Millisecond,
	}
	return judge
}

// =============================================================================
// Tests
// =============================================================================

func TestNewJudgeValidation(t *testing.T) {
	registry, err := modes.Load("")
	require.NoError(t, err)

	_, err = NewJudge(nil, registry, nil, 1)
	assert.Error(t, err)

	_, err = NewJudge(&judgeOracle{}, nil, nil, 1)
	assert.Error(t, err)
}

func TestJudgeAllPass(t *testing.T) {
	oracle := &judgeOracle{}
	judge := newTestJudge(t, oracle, 1)

	rows, err := judge.Run(context.Background(), []datatypes.QARecord{
		labelFixture("qa-1", "How can I fix a leaky kitchen faucet?"),
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	for _, mode := range datatypes.FailureModeNames {
		assert.Equal(t, 0, row.Verdict(mode), mode)
		assert.Equal(t, "0", row.Response(mode), mode)
	}
	assert.Equal(t, 0, row.OverallFailure)
	assert.Equal(t, 0, row.FailureCount)
	assert.False(t, row.NeedsReview)
	assert.Equal(t, len(datatypes.FailureModeNames), oracle.callCount())

	params := oracle.call(0).params
	assert.Equal(t, judgeSystemPrompt, params.SystemPrompt)
	require.NotNil(t, params.Temperature)
	assert.Equal(t, float32(0.1), *params.Temperature)
	require.NotNil(t, params.MaxTokens)
	assert.Equal(t, 10, *params.MaxTokens)
}

func TestJudgeFlagsFailedModes(t *testing.T) {
	oracle := &judgeOracle{
		reply: func(_ int, prompt string) (string, error) {
			if strings.Contains(prompt, "ADEQUATE SAFETY") {
				return "1", nil
			}
			return "0", nil
		},
	}
	judge := newTestJudge(t, oracle, 1)

	rows, err := judge.Run(context.Background(), []datatypes.QARecord{
		labelFixture("qa-1", "How can I fix a leaky kitchen faucet?"),
	})
	require.NoError(t, err)

	row := rows[0]
	assert.Equal(t, 1, row.Verdict(datatypes.ModeSafetyViolations))
	assert.Equal(t, 1, row.OverallFailure)
	assert.Equal(t, 1, row.FailureCount)
	assert.Equal(t, []string{datatypes.ModeSafetyViolations}, row.FailedModes())
	assert.False(t, row.NeedsReview)
}

func TestJudgeTrimsVerdictResponse(t *testing.T) {
	oracle := &judgeOracle{
		reply: func(int, string) (string, error) { return " 1\n", nil },
	}
	judge := newTestJudge(t, oracle, 1)

	rows, err := judge.Run(context.Background(), []datatypes.QARecord{
		labelFixture("qa-1", "How can I fix a leaky kitchen faucet?"),
	})
	require.NoError(t, err)

	row := rows[0]
	assert.Equal(t, 6, row.FailureCount)
	assert.Equal(t, "1", row.Response(datatypes.ModeIncompleteAnswer))
	assert.False(t, row.NeedsReview)
}

func TestJudgeRetriesUnusableVerdict(t *testing.T) {
	oracle := &judgeOracle{
		reply: func(call int, _ string) (string, error) {
			if call == 0 {
				return "definitely a 0", nil
			}
			return "0", nil
		},
	}
	judge := newTestJudge(t, oracle, 1)

	rows, err := judge.Run(context.Background(), []datatypes.QARecord{
		labelFixture("qa-1", "How can I fix a leaky kitchen faucet?"),
	})
	require.NoError(t, err)

	assert.Equal(t, 7, oracle.callCount(), "one retry plus six clean calls")
	row := rows[0]
	assert.Equal(t, 0, row.FailureCount)
	assert.False(t, row.NeedsReview)
}

func TestJudgeFailsClosedOnPersistentGarbage(t *testing.T) {
	oracle := &judgeOracle{
		reply: func(_ int, prompt string) (string, error) {
			if strings.Contains(prompt, "COMPLETE and SUFFICIENT") {
				return "the answer looks fine to me", nil
			}
			return "0", nil
		},
	}
	judge := newTestJudge(t, oracle, 1)

	rows, err := judge.Run(context.Background(), []datatypes.QARecord{
		labelFixture("qa-1", "How can I fix a leaky kitchen faucet?"),
	})
	require.NoError(t, err)

	// incomplete_answer is the first mode: three attempts, then the record
	// fails closed without calling the remaining modes.
	assert.Equal(t, 3, oracle.callCount())

	row := rows[0]
	for _, mode := range datatypes.FailureModeNames {
		assert.Equal(t, 1, row.Verdict(mode), mode)
	}
	assert.Equal(t, 6, row.FailureCount)
	assert.Equal(t, 1, row.OverallFailure)
	assert.True(t, row.NeedsReview)
	assert.Contains(t, row.Response(datatypes.ModeIncompleteAnswer), "Error:")
	assert.Contains(t, row.Response(datatypes.ModeIncompleteAnswer), "no usable")
	assert.Empty(t, row.Response(datatypes.ModeSafetyViolations))
}

func TestJudgeFailsClosedOnPersistentOracleError(t *testing.T) {
	oracle := &judgeOracle{
		reply: func(_ int, prompt string) (string, error) {
			if strings.Contains(prompt, "HIGH QUALITY and VALUABLE") {
				return "", errors.New("rate limited")
			}
			return "0", nil
		},
	}
	judge := newTestJudge(t, oracle, 1)

	rows, err := judge.Run(context.Background(), []datatypes.QARecord{
		labelFixture("qa-1", "How can I fix a leaky kitchen faucet?"),
	})
	require.NoError(t, err)

	// poor_quality_tips is the last mode: five clean calls, then three
	// failed attempts.
	assert.Equal(t, 8, oracle.callCount())

	row := rows[0]
	assert.True(t, row.NeedsReview)
	assert.Equal(t, 6, row.FailureCount)
	// Earlier verdicts are overwritten to failed but keep their recorded
	// responses for audit.
	assert.Equal(t, 1, row.Verdict(datatypes.ModeIncompleteAnswer))
	assert.Equal(t, "0", row.Response(datatypes.ModeIncompleteAnswer))
	assert.Contains(t, row.Response(datatypes.ModePoorQualityTips), "rate limited")
}

func TestJudgeMintsTraceIDWhenMissing(t *testing.T) {
	oracle := &judgeOracle{}
	judge := newTestJudge(t, oracle, 1)
	judge.newID = func() string { return "minted-1" }

	record := labelFixture("", "How can I fix a leaky kitchen faucet?")
	rows, err := judge.Run(context.Background(), []datatypes.QARecord{record})
	require.NoError(t, err)
	assert.Equal(t, "minted-1", rows[0].TraceID)
}

func TestJudgeKeepsInputOrderAndIsReplayable(t *testing.T) {
	questions := []string{
		"How can I fix a leaky kitchen faucet?",
		"How do I reset a tripped circuit breaker safely?",
		"What should I check when my dryer stops heating?",
		"How can I unclog a slow bathroom sink drain?",
		"How do I replace a worn furnace filter?",
		"What is the right way to patch a small drywall hole?",
	}
	records := make([]datatypes.QARecord, len(questions))
	for i, q := range questions {
		records[i] = labelFixture("qa-"+strconv.Itoa(i+1), q)
	}

	reply := func(_ int, prompt string) (string, error) {
		if strings.Contains(prompt, "dryer") && strings.Contains(prompt, "SAFETY") {
			return "1", nil
		}
		return "0", nil
	}

	run := func() []datatypes.FailureLabelRow {
		judge := newTestJudge(t, &judgeOracle{reply: reply}, 4)
		rows, err := judge.Run(context.Background(), records)
		require.NoError(t, err)
		return rows
	}

	first := run()
	second := run()

	require.Len(t, first, len(records))
	for i := range records {
		assert.Equal(t, records[i].TraceID, first[i].TraceID, "row %d out of order", i)
	}

	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, firstJSON, secondJSON, "two runs over the same input must match byte for byte")
}

func TestJudgeEmptyInput(t *testing.T) {
	oracle := &judgeOracle{}
	judge := newTestJudge(t, oracle, 2)

	rows, err := judge.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Equal(t, 0, oracle.callCount())
}

func TestJudgeCancelAborts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	judge := newTestJudge(t, &judgeOracle{}, 2)
	_, err := judge.Run(ctx, []datatypes.QARecord{
		labelFixture("qa-1", "How can I fix a leaky kitchen faucet?"),
	})
	assert.ErrorIs(t, err, context.Canceled)
}
