// Copyright (C) 2025 dubistdu
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package validation partitions generation output into records fit for
// labeling and records that are not. Two independent layers run in order:
// a structural schema layer (field shapes and bounds) and a deterministic
// quality rule layer (six named rules). A structural failure is terminal
// for the record; rules never run on it. No oracle is involved.
package validation

import (
	"errors"
	"sort"

	"github.com/dubistdu/synthetic-data-home-diy-repair/pkg/logging"
	"github.com/dubistdu/synthetic-data-home-diy-repair/services/pipeline/datatypes"
)

// commonErrorLimit caps the most-common structural error list in the summary.
const commonErrorLimit = 5

// =============================================================================
// RecordResult
// =============================================================================

// RecordResult holds the validation outcome for one generation result.
//
// # Description
//
// The two layers are reported separately: IsStructurallyValid covers the
// schema layer, RuleFailures the quality layer. A record passes overall only
// when it is structurally valid and no rule failed. RuleFailures stays empty
// for structurally invalid records because the rule layer never saw them.
//
// # Fields
//
//   - TraceID: identity of the record under test.
//   - IsStructurallyValid: schema layer verdict.
//   - StructuralErrors: schema layer reasons, empty when valid.
//   - RuleFailures: names of failed quality rules, in evaluation order.
//   - RuleReasons: one human-readable reason per failed rule, parallel to
//     RuleFailures.
type RecordResult struct {
	TraceID             string   `json:"trace_id"`
	IsStructurallyValid bool     `json:"is_structurally_valid"`
	StructuralErrors    []string `json:"structural_errors"`
	RuleFailures        []string `json:"rule_failures"`
	RuleReasons         []string `json:"rule_reasons"`
}

// Valid reports whether the record passed both layers.
func (r RecordResult) Valid() bool {
	return r.IsStructurallyValid && len(r.RuleFailures) == 0
}

// Outcome is the full result of validating one batch.
//
// Valid holds the clean records handed to downstream phases, in input order,
// each stamped with its trace ID. Records holds one RecordResult per input,
// also in input order, so callers can account for every record.
type Outcome struct {
	Valid   []datatypes.QARecord
	Records []RecordResult
	Summary datatypes.ValidationSummary
}

// =============================================================================
// Validator
// =============================================================================

// Validator runs the two-layer validation over generation results.
type Validator struct {
	log *logging.Logger
}

// New builds a Validator. A nil logger falls back to the process default.
func New(log *logging.Logger) *Validator {
	if log == nil {
		log = logging.Default()
	}
	return &Validator{log: log}
}

// Run validates a batch. Every input record lands in exactly one of three
// buckets: valid, structurally failed, or rule failed; the summary counts
// always add back up to the input size.
func (v *Validator) Run(results []datatypes.GenerationResult) Outcome {
	outcome := Outcome{
		Valid:   []datatypes.QARecord{},
		Records: make([]RecordResult, 0, len(results)),
	}

	structuralFailures := 0
	ruleFailures := 0
	allStructuralErrors := []string{}
	ruleCounts := map[string]int{}

	for _, result := range results {
		rr := RecordResult{
			TraceID:          result.TraceID,
			StructuralErrors: []string{},
			RuleFailures:     []string{},
			RuleReasons:      []string{},
		}

		if ok, reasons := structuralCheck(result); !ok {
			structuralFailures++
			rr.StructuralErrors = reasons
			allStructuralErrors = append(allStructuralErrors, reasons...)
			outcome.Records = append(outcome.Records, rr)
			v.log.Debug("record failed structural validation",
				"trace_id", result.TraceID,
				"errors", reasons)
			continue
		}
		rr.IsStructurallyValid = true

		rr.RuleFailures, rr.RuleReasons = EvaluateRules(result.QAPair)
		if len(rr.RuleFailures) > 0 {
			ruleFailures++
			for _, name := range rr.RuleFailures {
				ruleCounts[name]++
			}
			outcome.Records = append(outcome.Records, rr)
			v.log.Debug("record failed quality rules",
				"trace_id", result.TraceID,
				"rules", rr.RuleFailures)
			continue
		}

		record := *result.QAPair
		record.TraceID = result.TraceID
		outcome.Valid = append(outcome.Valid, record)
		outcome.Records = append(outcome.Records, rr)
	}

	total := len(results)
	rate := 0.0
	if total > 0 {
		rate = float64(len(outcome.Valid)) / float64(total) * 100
	}
	outcome.Summary = datatypes.ValidationSummary{
		TotalGenerated:     total,
		ValidSamples:       len(outcome.Valid),
		StructuralFailures: structuralFailures,
		RuleFailures:       ruleFailures,
		InvalidSamples:     structuralFailures + ruleFailures,
		ValidationRate:     rate,
		RuleFailureCounts:  ruleCounts,
		CommonErrors:       topCommonErrors(allStructuralErrors, commonErrorLimit),
	}

	v.log.Info("validation complete",
		"total", total,
		"valid", len(outcome.Valid),
		"structural_failures", structuralFailures,
		"rule_failures", ruleFailures)
	return outcome
}

// structuralCheck applies the schema layer to one generation result. Results
// already marked invalid keep their recorded errors; results without a QA
// pair cannot be checked further; everything else is re-validated so that
// externally supplied or hand-edited artifacts get the same treatment as
// fresh generation output.
func structuralCheck(result datatypes.GenerationResult) (bool, []string) {
	if !result.IsValid {
		if len(result.ValidationErrors) == 0 {
			return false, []string{}
		}
		return false, result.ValidationErrors
	}
	if result.QAPair == nil {
		return false, []string{"No valid Q&A pair generated"}
	}
	if err := result.QAPair.Validate(); err != nil {
		var serr *datatypes.StructuralError
		if errors.As(err, &serr) {
			return false, serr.Reasons
		}
		return false, []string{err.Error()}
	}
	return true, nil
}

// topCommonErrors returns the n most frequent errors, most frequent first.
// Ties keep first-seen order.
func topCommonErrors(errs []string, n int) []string {
	counts := map[string]int{}
	order := []string{}
	for _, e := range errs {
		if counts[e] == 0 {
			order = append(order, e)
		}
		counts[e]++
	}
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > n {
		order = order[:n]
	}
	return order
}
