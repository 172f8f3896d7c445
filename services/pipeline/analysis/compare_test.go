// Copyright (C) 2025 dubistdu
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dubistdu/synthetic-data-home-diy-repair/services/pipeline/datatypes"
)

// humanRow builds a human label row failing exactly the named modes.
func humanRow(traceID string, failed ...string) datatypes.HumanLabelRow {
	row := datatypes.HumanLabelRow{TraceID: traceID}
	for _, mode := range failed {
		switch mode {
		case datatypes.ModeIncompleteAnswer:
			row.IncompleteAnswer = 1
		case datatypes.ModeSafetyViolations:
			row.SafetyViolations = 1
		case datatypes.ModeUnrealisticTools:
			row.UnrealisticTools = 1
		case datatypes.ModeOvercomplicatedSolution:
			row.OvercomplicatedSolution = 1
		case datatypes.ModeMissingContext:
			row.MissingContext = 1
		case datatypes.ModePoorQualityTips:
			row.PoorQualityTips = 1
		}
		row.OverallFailure = 1
	}
	return row
}

func TestCompareConfusionMatrix(t *testing.T) {
	judge := []datatypes.FailureLabelRow{
		labeledRow("t-1", datatypes.ModeIncompleteAnswer),
		labeledRow("t-2", datatypes.ModeIncompleteAnswer),
		labeledRow("t-3"),
		labeledRow("t-4"),
	}
	human := []datatypes.HumanLabelRow{
		humanRow("t-1", datatypes.ModeIncompleteAnswer),
		humanRow("t-2"),
		humanRow("t-3", datatypes.ModeIncompleteAnswer),
		humanRow("t-4"),
	}

	c, err := Compare(judge, human)
	require.NoError(t, err)
	assert.Equal(t, 4, c.ComparedSamples)
	require.Len(t, c.Modes, len(datatypes.FailureModeNames))

	m := c.Modes[datatypes.ModeIncompleteAnswer]
	assert.Equal(t, 1, m.TruePositives)
	assert.Equal(t, 1, m.TrueNegatives)
	assert.Equal(t, 1, m.FalsePositives)
	assert.Equal(t, 1, m.FalseNegatives)
	require.NotNil(t, m.Accuracy)
	assert.Equal(t, 0.5, *m.Accuracy)
	require.NotNil(t, m.Precision)
	assert.Equal(t, 0.5, *m.Precision)
	require.NotNil(t, m.Recall)
	assert.Equal(t, 0.5, *m.Recall)
	require.NotNil(t, m.F1)
	assert.Equal(t, 0.5, *m.F1)

	quiet := c.Modes[datatypes.ModeSafetyViolations]
	assert.Equal(t, 4, quiet.TrueNegatives)
	require.NotNil(t, quiet.Accuracy)
	assert.Equal(t, 1.0, *quiet.Accuracy)

	// 2 agreeing cells for incomplete_answer, 4 for each of the other five.
	assert.Equal(t, 0.9167, c.OverallAgreement)
}

func TestCompareJoinsOnTraceID(t *testing.T) {
	judge := []datatypes.FailureLabelRow{
		labeledRow("t-1", datatypes.ModeIncompleteAnswer),
		labeledRow("t-2", datatypes.ModeIncompleteAnswer),
		labeledRow("t-3"),
	}
	human := []datatypes.HumanLabelRow{
		humanRow("t-2", datatypes.ModeIncompleteAnswer),
		humanRow("t-3"),
		humanRow("t-4", datatypes.ModeSafetyViolations),
	}

	c, err := Compare(judge, human)
	require.NoError(t, err)
	assert.Equal(t, 2, c.ComparedSamples)

	m := c.Modes[datatypes.ModeIncompleteAnswer]
	assert.Equal(t, 1, m.TruePositives)
	assert.Equal(t, 1, m.TrueNegatives)
	assert.Zero(t, m.FalsePositives)
	assert.Zero(t, m.FalseNegatives)

	// t-4 exists only in the human set and must not leak in.
	sv := c.Modes[datatypes.ModeSafetyViolations]
	assert.Zero(t, sv.TruePositives)
	assert.Equal(t, 2, sv.TrueNegatives)
}

func TestCompareNoOverlap(t *testing.T) {
	judge := []datatypes.FailureLabelRow{labeledRow("t-1")}
	human := []datatypes.HumanLabelRow{humanRow("t-2")}

	_, err := Compare(judge, human)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no samples")

	_, err = Compare(judge, nil)
	require.Error(t, err)
}

func TestCompareZeroDenominatorMetricsAreNil(t *testing.T) {
	judge := []datatypes.FailureLabelRow{
		labeledRow("t-1"),
		labeledRow("t-2"),
	}
	human := []datatypes.HumanLabelRow{
		humanRow("t-1"),
		humanRow("t-2"),
	}

	c, err := Compare(judge, human)
	require.NoError(t, err)
	assert.Equal(t, 1.0, c.OverallAgreement)
	for _, mode := range datatypes.FailureModeNames {
		m := c.Modes[mode]
		assert.Equal(t, 2, m.TrueNegatives)
		require.NotNil(t, m.Accuracy)
		assert.Equal(t, 1.0, *m.Accuracy)
		assert.Nil(t, m.Precision)
		assert.Nil(t, m.Recall)
		assert.Nil(t, m.F1)
	}
}

func TestCompareRoundsToFourDecimals(t *testing.T) {
	judge := []datatypes.FailureLabelRow{
		labeledRow("t-1", datatypes.ModeIncompleteAnswer),
		labeledRow("t-2", datatypes.ModeIncompleteAnswer),
		labeledRow("t-3", datatypes.ModeIncompleteAnswer),
	}
	human := []datatypes.HumanLabelRow{
		humanRow("t-1", datatypes.ModeIncompleteAnswer),
		humanRow("t-2"),
		humanRow("t-3"),
	}

	c, err := Compare(judge, human)
	require.NoError(t, err)

	m := c.Modes[datatypes.ModeIncompleteAnswer]
	assert.Equal(t, 1, m.TruePositives)
	assert.Equal(t, 2, m.FalsePositives)
	require.NotNil(t, m.Accuracy)
	assert.Equal(t, 0.3333, *m.Accuracy)
	require.NotNil(t, m.Precision)
	assert.Equal(t, 0.3333, *m.Precision)
	require.NotNil(t, m.Recall)
	assert.Equal(t, 1.0, *m.Recall)
	require.NotNil(t, m.F1)
	assert.Equal(t, 0.5, *m.F1)
}

func TestCompareFirstHumanRowWinsOnDuplicateTrace(t *testing.T) {
	judge := []datatypes.FailureLabelRow{
		labeledRow("t-1", datatypes.ModeIncompleteAnswer),
	}
	human := []datatypes.HumanLabelRow{
		humanRow("t-1", datatypes.ModeIncompleteAnswer),
		humanRow("t-1"),
	}

	c, err := Compare(judge, human)
	require.NoError(t, err)
	m := c.Modes[datatypes.ModeIncompleteAnswer]
	assert.Equal(t, 1, m.TruePositives)
	assert.Zero(t, m.FalsePositives)
}
