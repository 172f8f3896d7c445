// Copyright (C) 2025 dubistdu
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package analysis

import (
	"errors"
	"math"

	"github.com/dubistdu/synthetic-data-home-diy-repair/services/pipeline/datatypes"
)

// =============================================================================
// Judge vs Human Comparison
// =============================================================================

// ModeAgreement is the confusion matrix for one failure mode, judge verdicts
// scored against human verdicts. "Positive" means the mode was flagged as
// failed (verdict 1).
//
// Metric fields are rounded to four decimal places; nil means the metric is
// undefined for this data (zero denominator) and serializes as JSON null.
type ModeAgreement struct {
	TruePositives  int      `json:"true_positives"`
	TrueNegatives  int      `json:"true_negatives"`
	FalsePositives int      `json:"false_positives"`
	FalseNegatives int      `json:"false_negatives"`
	Accuracy       *float64 `json:"accuracy"`
	Precision      *float64 `json:"precision"`
	Recall         *float64 `json:"recall"`
	F1             *float64 `json:"f1"`
}

// Comparison is the judge-vs-human agreement report, persisted as
// human_vs_llm_comparison.json. OverallAgreement is the fraction of
// (sample, mode) cells where both labelers gave the same verdict.
type Comparison struct {
	ComparedSamples  int                      `json:"compared_samples"`
	OverallAgreement float64                  `json:"overall_agreement"`
	Modes            map[string]ModeAgreement `json:"modes"`
}

// Compare scores judge labels against human labels for the samples present
// in both sets, joined on trace ID. Judge rows without a human counterpart
// and human rows without a judge counterpart are ignored. An empty join is
// an error: agreement over nothing is meaningless, and the likeliest cause
// is a half-filled human label file.
func Compare(judge []datatypes.FailureLabelRow, human []datatypes.HumanLabelRow) (*Comparison, error) {
	humanByTrace := make(map[string]*datatypes.HumanLabelRow, len(human))
	for i := range human {
		id := human[i].TraceID
		if id == "" {
			continue
		}
		if _, ok := humanByTrace[id]; !ok {
			humanByTrace[id] = &human[i]
		}
	}

	type pair struct {
		judge *datatypes.FailureLabelRow
		human *datatypes.HumanLabelRow
	}
	pairs := []pair{}
	for i := range judge {
		if h, ok := humanByTrace[judge[i].TraceID]; ok {
			pairs = append(pairs, pair{judge: &judge[i], human: h})
		}
	}
	if len(pairs) == 0 {
		return nil, errors.New("analysis: no samples carry both judge and human labels")
	}

	c := &Comparison{
		ComparedSamples: len(pairs),
		Modes:           make(map[string]ModeAgreement, len(datatypes.FailureModeNames)),
	}
	agreeCells := 0
	for _, mode := range datatypes.FailureModeNames {
		var m ModeAgreement
		for _, p := range pairs {
			j := p.judge.Verdict(mode) == 1
			h := p.human.Verdict(mode) == 1
			switch {
			case j && h:
				m.TruePositives++
			case !j && !h:
				m.TrueNegatives++
			case j && !h:
				m.FalsePositives++
			default:
				m.FalseNegatives++
			}
		}
		agreeCells += m.TruePositives + m.TrueNegatives

		m.Accuracy = round4Ptr(float64(m.TruePositives+m.TrueNegatives) / float64(len(pairs)))
		var precision, recall float64
		hasPrecision := m.TruePositives+m.FalsePositives > 0
		if hasPrecision {
			precision = float64(m.TruePositives) / float64(m.TruePositives+m.FalsePositives)
			m.Precision = round4Ptr(precision)
		}
		hasRecall := m.TruePositives+m.FalseNegatives > 0
		if hasRecall {
			recall = float64(m.TruePositives) / float64(m.TruePositives+m.FalseNegatives)
			m.Recall = round4Ptr(recall)
		}
		if hasPrecision && hasRecall && precision+recall > 0 {
			m.F1 = round4Ptr(2 * precision * recall / (precision + recall))
		}
		c.Modes[mode] = m
	}

	totalCells := len(pairs) * len(datatypes.FailureModeNames)
	c.OverallAgreement = math.Round(float64(agreeCells)/float64(totalCells)*10000) / 10000
	return c, nil
}

// round4Ptr rounds to four decimal places, the precision the persisted
// metrics carry.
func round4Ptr(v float64) *float64 {
	r := math.Round(v*10000) / 10000
	return &r
}
