// Copyright (C) 2025 dubistdu
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package analysis

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dubistdu/synthetic-data-home-diy-repair/services/pipeline/datatypes"
)

// labeledRow builds a judged row failing exactly the named modes.
func labeledRow(traceID string, failed ...string) datatypes.FailureLabelRow {
	row := datatypes.FailureLabelRow{TraceID: traceID}
	for _, mode := range failed {
		row.SetVerdict(mode, 1, "1")
	}
	row.FinalizeTotals()
	return row
}

func TestRunSummaryCountsAndRates(t *testing.T) {
	rows := []datatypes.FailureLabelRow{
		labeledRow("t-1"),
		labeledRow("t-2", datatypes.ModeIncompleteAnswer),
		labeledRow("t-3", datatypes.ModeIncompleteAnswer, datatypes.ModeSafetyViolations),
		labeledRow("t-4"),
	}

	report := New(0, nil).Run(rows)
	s := report.Summary

	assert.Equal(t, 4, s.TotalSamples)
	require.NotNil(t, s.OverallFailureRate)
	assert.InDelta(t, 0.5, *s.OverallFailureRate, 1e-12)
	require.NotNil(t, s.OverallSuccessRate)
	assert.InDelta(t, 0.5, *s.OverallSuccessRate, 1e-12)
	assert.Equal(t, DefaultTargetFailureRate, s.TargetFailureRate)
	assert.False(t, s.TargetMet)

	assert.Equal(t, 2, s.FailureModeCounts[datatypes.ModeIncompleteAnswer])
	assert.Equal(t, 1, s.FailureModeCounts[datatypes.ModeSafetyViolations])
	assert.Equal(t, 0, s.FailureModeCounts[datatypes.ModeMissingContext])
	require.NotNil(t, s.FailureModeRates[datatypes.ModeIncompleteAnswer])
	assert.InDelta(t, 0.5, *s.FailureModeRates[datatypes.ModeIncompleteAnswer], 1e-12)
	require.NotNil(t, s.FailureModeRates[datatypes.ModeSafetyViolations])
	assert.InDelta(t, 0.25, *s.FailureModeRates[datatypes.ModeSafetyViolations], 1e-12)

	assert.Equal(t, []string{
		datatypes.ModeIncompleteAnswer,
		datatypes.ModeSafetyViolations,
		datatypes.ModeUnrealisticTools,
	}, s.MostCommonFailures)
	assert.Equal(t, []string{
		datatypes.ModeOvercomplicatedSolution,
		datatypes.ModeMissingContext,
		datatypes.ModePoorQualityTips,
	}, s.LeastCommonFailures)
	assert.Zero(t, s.NeedsReviewCount)
}

func TestRunTargetMetBoundary(t *testing.T) {
	a := New(0.25, nil)
	assert.Equal(t, 0.25, a.Target())

	atTarget := []datatypes.FailureLabelRow{
		labeledRow("t-1", datatypes.ModeIncompleteAnswer),
		labeledRow("t-2"),
		labeledRow("t-3"),
		labeledRow("t-4"),
	}
	assert.True(t, a.Run(atTarget).Summary.TargetMet)

	overTarget := []datatypes.FailureLabelRow{
		labeledRow("t-1", datatypes.ModeIncompleteAnswer),
		labeledRow("t-2", datatypes.ModeSafetyViolations),
		labeledRow("t-3"),
		labeledRow("t-4"),
	}
	assert.False(t, a.Run(overTarget).Summary.TargetMet)
}

func TestRunEmptyBatch(t *testing.T) {
	report := New(0, nil).Run(nil)
	s := report.Summary

	assert.Zero(t, s.TotalSamples)
	assert.Nil(t, s.OverallFailureRate)
	assert.Nil(t, s.OverallSuccessRate)
	assert.False(t, s.TargetMet)
	for _, mode := range datatypes.FailureModeNames {
		assert.Nil(t, s.FailureModeRates[mode])
		assert.Zero(t, s.FailureModeCounts[mode])
	}
	assert.Len(t, s.MostCommonFailures, 3)
	assert.Len(t, s.LeastCommonFailures, 3)
	assert.Empty(t, report.Patterns)
	assert.Empty(t, report.Recommendations)
	for _, a := range datatypes.FailureModeNames {
		for _, b := range datatypes.FailureModeNames {
			assert.Nil(t, report.Correlations[a][b])
		}
	}

	data, err := json.Marshal(report)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"overall_failure_rate":null`)
	assert.Contains(t, string(data), `"failure_patterns":{}`)
}

func TestRunPatternGrouping(t *testing.T) {
	rows := []datatypes.FailureLabelRow{
		labeledRow("t-1", datatypes.ModeIncompleteAnswer),
		labeledRow("t-2"),
		labeledRow("t-3", datatypes.ModeIncompleteAnswer),
		labeledRow("t-4", datatypes.ModeIncompleteAnswer, datatypes.ModePoorQualityTips),
		labeledRow("t-5"),
		labeledRow("t-6", datatypes.ModeIncompleteAnswer),
	}

	report := New(0, nil).Run(rows)
	require.Len(t, report.Patterns, 3)

	assert.Equal(t, "Incomplete Answer", report.Patterns[0].Name)
	assert.Equal(t, []int{0, 2, 5}, report.Patterns[0].Rows)
	assert.Equal(t, "No Failures", report.Patterns[1].Name)
	assert.Equal(t, []int{1, 4}, report.Patterns[1].Rows)
	assert.Equal(t, "Incomplete Answer + Poor Quality Tips", report.Patterns[2].Name)
	assert.Equal(t, []int{3}, report.Patterns[2].Rows)

	total := 0
	for _, g := range report.Patterns {
		total += len(g.Rows)
	}
	assert.Equal(t, len(rows), total)
}

func TestRunPatternTieKeepsFirstSeenOrder(t *testing.T) {
	rows := []datatypes.FailureLabelRow{
		labeledRow("t-1", datatypes.ModeSafetyViolations),
		labeledRow("t-2"),
		labeledRow("t-3", datatypes.ModeSafetyViolations),
		labeledRow("t-4"),
	}

	report := New(0, nil).Run(rows)
	require.Len(t, report.Patterns, 2)
	assert.Equal(t, "Safety Violations", report.Patterns[0].Name)
	assert.Equal(t, "No Failures", report.Patterns[1].Name)
}

func TestPatternNameTitleCasesModes(t *testing.T) {
	row := labeledRow("t-1",
		datatypes.ModeSafetyViolations,
		datatypes.ModeOvercomplicatedSolution,
		datatypes.ModeMissingContext)
	assert.Equal(t, "Safety Violations + Overcomplicated Solution + Missing Context", patternName(&row))

	clean := labeledRow("t-2")
	assert.Equal(t, "No Failures", patternName(&clean))
}

func TestRunCorrelations(t *testing.T) {
	rows := []datatypes.FailureLabelRow{
		labeledRow("t-1", datatypes.ModeIncompleteAnswer, datatypes.ModeSafetyViolations),
		labeledRow("t-2", datatypes.ModePoorQualityTips),
		labeledRow("t-3", datatypes.ModeIncompleteAnswer, datatypes.ModeSafetyViolations),
		labeledRow("t-4", datatypes.ModePoorQualityTips),
	}

	matrix := New(0, nil).Run(rows).Correlations
	require.Len(t, matrix, len(datatypes.FailureModeNames))
	for _, mode := range datatypes.FailureModeNames {
		require.Len(t, matrix[mode], len(datatypes.FailureModeNames))
	}

	identical := matrix[datatypes.ModeIncompleteAnswer][datatypes.ModeSafetyViolations]
	require.NotNil(t, identical)
	assert.InDelta(t, 1.0, *identical, 1e-12)

	diagonal := matrix[datatypes.ModeIncompleteAnswer][datatypes.ModeIncompleteAnswer]
	require.NotNil(t, diagonal)
	assert.InDelta(t, 1.0, *diagonal, 1e-12)

	opposite := matrix[datatypes.ModeIncompleteAnswer][datatypes.ModePoorQualityTips]
	require.NotNil(t, opposite)
	assert.InDelta(t, -1.0, *opposite, 1e-12)

	// missing_context never fires, so every pair touching it is undefined.
	assert.Nil(t, matrix[datatypes.ModeIncompleteAnswer][datatypes.ModeMissingContext])
	assert.Nil(t, matrix[datatypes.ModeMissingContext][datatypes.ModeIncompleteAnswer])
	assert.Nil(t, matrix[datatypes.ModeMissingContext][datatypes.ModeMissingContext])
}

func TestRunCountsNeedsReviewRows(t *testing.T) {
	flagged := labeledRow("t-1",
		datatypes.ModeIncompleteAnswer,
		datatypes.ModeSafetyViolations,
		datatypes.ModeUnrealisticTools,
		datatypes.ModeOvercomplicatedSolution,
		datatypes.ModeMissingContext,
		datatypes.ModePoorQualityTips)
	flagged.NeedsReview = true
	rows := []datatypes.FailureLabelRow{
		flagged,
		labeledRow("t-2"),
	}

	report := New(0, nil).Run(rows)
	assert.Equal(t, 1, report.Summary.NeedsReviewCount)
}

func TestRunRecommendations(t *testing.T) {
	rows := []datatypes.FailureLabelRow{
		labeledRow("t-1", datatypes.ModeIncompleteAnswer),
		labeledRow("t-2", datatypes.ModeIncompleteAnswer),
		labeledRow("t-3", datatypes.ModeIncompleteAnswer),
		labeledRow("t-4"),
	}

	report := New(0, nil).Run(rows)
	assert.Equal(t, []string{
		"Focus on improving 'incomplete answer' - it's the most common failure mode (75.0% failure rate)",
		"Good news: 25.0% of samples have no failures - analyze these for best practices",
		"High overall failure rate suggests need for better prompt engineering or model fine-tuning",
		"Final failure rate must be <= 6.32% to meet project success criterion. Run correction phase and re-label, or improve prompts.",
	}, report.Recommendations)
}

func TestRunRecommendationsOnCleanBatch(t *testing.T) {
	rows := []datatypes.FailureLabelRow{
		labeledRow("t-1"),
		labeledRow("t-2"),
	}

	report := New(0, nil).Run(rows)
	assert.True(t, report.Summary.TargetMet)
	assert.Equal(t, []string{
		"Focus on improving 'incomplete answer' - it's the most common failure mode (0.0% failure rate)",
		"Good news: 100.0% of samples have no failures - analyze these for best practices",
	}, report.Recommendations)
}

func TestReportMarshalKeepsPatternOrder(t *testing.T) {
	rows := []datatypes.FailureLabelRow{
		labeledRow("t-1", datatypes.ModeIncompleteAnswer),
		labeledRow("t-2"),
		labeledRow("t-3", datatypes.ModeIncompleteAnswer),
		labeledRow("t-4", datatypes.ModeIncompleteAnswer, datatypes.ModePoorQualityTips),
		labeledRow("t-5"),
		labeledRow("t-6", datatypes.ModeIncompleteAnswer),
	}

	data, err := json.Marshal(New(0, nil).Run(rows))
	require.NoError(t, err)
	assert.Contains(t, string(data),
		`"failure_patterns":{"Incomplete Answer":3,"No Failures":2,"Incomplete Answer + Poor Quality Tips":1}`)
	assert.Contains(t, string(data),
		`"detailed_patterns":{"Incomplete Answer":[0,2,5],"No Failures":[1,4],"Incomplete Answer + Poor Quality Tips":[3]}`)
}
