// Copyright (C) 2025 dubistdu
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Failure Mode Set Tests
// =============================================================================

func TestFailureModeNames_ClosedSet(t *testing.T) {
	require.Len(t, FailureModeNames, 6)

	for _, mode := range FailureModeNames {
		assert.True(t, IsFailureMode(mode), "mode %s should be recognized", mode)
	}
	assert.False(t, IsFailureMode("made_up_mode"))
	assert.False(t, IsFailureMode(""))
}

// =============================================================================
// FailureLabelRow Tests
// =============================================================================

func TestFailureLabelRow_RecordRoundTrip(t *testing.T) {
	record := validQARecord()

	row := NewFailureLabelRow(record)
	rebuilt := row.Record()

	assert.Equal(t, record, rebuilt)
	assert.Equal(t, 0, row.OverallFailure)
	assert.Equal(t, 0, row.FailureCount)
	assert.False(t, row.NeedsReview)
}

func TestFailureLabelRow_SetVerdictAndTotals(t *testing.T) {
	row := NewFailureLabelRow(validQARecord())

	row.SetVerdict(ModeSafetyViolations, 1, "1")
	row.SetVerdict(ModePoorQualityTips, 1, "1")
	row.SetVerdict(ModeIncompleteAnswer, 0, "0")
	row.FinalizeTotals()

	assert.Equal(t, 1, row.Verdict(ModeSafetyViolations))
	assert.Equal(t, "1", row.Response(ModeSafetyViolations))
	assert.Equal(t, 0, row.Verdict(ModeIncompleteAnswer))
	assert.Equal(t, 1, row.OverallFailure)
	assert.Equal(t, 2, row.FailureCount)
}

func TestFailureLabelRow_AllPassTotals(t *testing.T) {
	row := NewFailureLabelRow(validQARecord())

	for _, mode := range FailureModeNames {
		row.SetVerdict(mode, 0, "0")
	}
	row.FinalizeTotals()

	assert.Equal(t, 0, row.OverallFailure)
	assert.Equal(t, 0, row.FailureCount)
	assert.Empty(t, row.FailedModes())
}

func TestFailureLabelRow_FailedModes_CanonicalOrder(t *testing.T) {
	row := NewFailureLabelRow(validQARecord())

	// Set out of canonical order; FailedModes must come back in it.
	row.SetVerdict(ModePoorQualityTips, 1, "1")
	row.SetVerdict(ModeIncompleteAnswer, 1, "1")
	row.SetVerdict(ModeMissingContext, 1, "1")

	want := []string{ModeIncompleteAnswer, ModeMissingContext, ModePoorQualityTips}
	assert.Equal(t, want, row.FailedModes())
}

func TestFailureLabelRow_UnknownModeIgnored(t *testing.T) {
	row := NewFailureLabelRow(validQARecord())

	row.SetVerdict("made_up_mode", 1, "1")
	row.FinalizeTotals()

	assert.Equal(t, 0, row.Verdict("made_up_mode"))
	assert.Equal(t, "", row.Response("made_up_mode"))
	assert.Equal(t, 0, row.FailureCount)
}

func TestFailureLabelRow_FlatJSONShape(t *testing.T) {
	row := NewFailureLabelRow(validQARecord())
	row.SetVerdict(ModeUnrealisticTools, 1, "1")
	row.FinalizeTotals()

	data, err := json.Marshal(row)
	require.NoError(t, err)

	var flat map[string]any
	require.NoError(t, json.Unmarshal(data, &flat))

	// The artifact contract is a flat row: verdict and response columns sit
	// next to the record fields, not nested under a sub-object.
	assert.Contains(t, flat, "trace_id")
	assert.Contains(t, flat, "question")
	for _, mode := range FailureModeNames {
		assert.Contains(t, flat, mode)
		assert.Contains(t, flat, mode+"_response")
	}
	assert.Equal(t, float64(1), flat["unrealistic_tools"])
	assert.Equal(t, float64(1), flat["overall_failure"])
	assert.Equal(t, false, flat["needs_review"])
}

// =============================================================================
// HumanLabelRow Tests
// =============================================================================

func TestHumanLabelRow_Verdict(t *testing.T) {
	comment := "steps skip draining the tank"
	row := HumanLabelRow{
		TraceID:          "abc-123",
		SafetyViolations: 1,
		MissingContext:   1,
		Comment:          &comment,
		OverallFailure:   1,
	}

	assert.Equal(t, 1, row.Verdict(ModeSafetyViolations))
	assert.Equal(t, 1, row.Verdict(ModeMissingContext))
	assert.Equal(t, 0, row.Verdict(ModeIncompleteAnswer))
	assert.Equal(t, 0, row.Verdict("made_up_mode"))
}

func TestHumanLabelRow_ParsesNullComment(t *testing.T) {
	raw := `{"trace_id": "t1", "incomplete_answer": 1, "comment": null, "overall_failure": 1}`

	var row HumanLabelRow
	require.NoError(t, json.Unmarshal([]byte(raw), &row))

	assert.Equal(t, "t1", row.TraceID)
	assert.Equal(t, 1, row.Verdict(ModeIncompleteAnswer))
	assert.Nil(t, row.Comment)
}
