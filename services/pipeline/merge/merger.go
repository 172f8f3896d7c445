// Copyright (C) 2025 dubistdu
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package merge folds valid corrections back into the active dataset so the
// result can be re-labeled.
package merge

import (
	"github.com/dubistdu/synthetic-data-home-diy-repair/pkg/logging"
	"github.com/dubistdu/synthetic-data-home-diy-repair/services/pipeline/datatypes"
)

// =============================================================================
// Summary
// =============================================================================

// Summary accounts for every record of one merge, persisted as
// merge_summary.json.
//
// The three buckets partition the dataset: Replaced + Uncorrected +
// Untouched == TotalRecords. Uncorrected records failed the judge but had no
// valid correction; they stay in the dataset unchanged and their trace IDs
// are listed so a later correction run can target them.
type Summary struct {
	TotalRecords      int      `json:"total_records"`
	Replaced          int      `json:"replaced"`
	Uncorrected       int      `json:"uncorrected"`
	Untouched         int      `json:"untouched"`
	UncorrectedTraces []string `json:"uncorrected_trace_ids"`
}

// =============================================================================
// Merger
// =============================================================================

// Merger replaces judged failures with their corrected counterparts.
//
// Replacement is keyed by trace ID, never appended, which makes the merge
// idempotent: applying the same correction set twice yields the same
// dataset. A record is replaced only when it both failed the latest labeling
// run and has a valid correction; everything else passes through unchanged.
type Merger struct {
	log *logging.Logger
}

// New builds a Merger. A nil logger falls back to the process default.
func New(log *logging.Logger) *Merger {
	if log == nil {
		log = logging.Default()
	}
	return &Merger{log: log}
}

// Run merges corrections into the dataset, preserving record order.
//
// labels is the latest failure-label matrix deciding which records count as
// failed; corrections supplies the candidate replacements. Corrections that
// are invalid, lack a corrected record, or belong to records that did not
// fail are ignored.
func (m *Merger) Run(
	dataset []datatypes.QARecord,
	labels []datatypes.FailureLabelRow,
	corrections []datatypes.CorrectionRecord,
) ([]datatypes.QARecord, Summary) {
	failedIDs := make(map[string]bool, len(labels))
	for i := range labels {
		if labels[i].OverallFailure == 1 {
			failedIDs[labels[i].TraceID] = true
		}
	}

	// Last valid correction wins when a trace was corrected more than once.
	correctedByID := make(map[string]*datatypes.QARecord, len(corrections))
	for i := range corrections {
		c := &corrections[i]
		if c.TraceID != "" && c.IsValid && c.QAPair != nil {
			correctedByID[c.TraceID] = c.QAPair
		}
	}

	merged := make([]datatypes.QARecord, 0, len(dataset))
	summary := Summary{
		TotalRecords:      len(dataset),
		UncorrectedTraces: []string{},
	}
	for i := range dataset {
		original := dataset[i]
		traceID := original.TraceID
		if !failedIDs[traceID] {
			summary.Untouched++
			merged = append(merged, original)
			continue
		}

		corrected, ok := correctedByID[traceID]
		if !ok {
			summary.Uncorrected++
			summary.UncorrectedTraces = append(summary.UncorrectedTraces, traceID)
			merged = append(merged, original)
			continue
		}

		replacement := *corrected
		replacement.TraceID = traceID
		if replacement.TemplateName == "" {
			// Corrections carry no provenance; keep the original's.
			replacement.TemplateName = original.TemplateName
		}
		summary.Replaced++
		merged = append(merged, replacement)
	}

	m.log.Info("merge complete",
		"total", summary.TotalRecords,
		"replaced", summary.Replaced,
		"uncorrected", summary.Uncorrected,
		"untouched", summary.Untouched)
	return merged, summary
}
