// Copyright (C) 2025 dubistdu
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Failure-label row types for the judge phase and for human-produced labels.
package datatypes

// =============================================================================
// Failure Modes (closed set)
// =============================================================================

// The six failure modes. The set is closed: identical across runs, baked into
// the label artifact schema. Criteria text is configurable, the mode names
// are not.
const (
	ModeIncompleteAnswer        = "incomplete_answer"
	ModeSafetyViolations        = "safety_violations"
	ModeUnrealisticTools        = "unrealistic_tools"
	ModeOvercomplicatedSolution = "overcomplicated_solution"
	ModeMissingContext          = "missing_context"
	ModePoorQualityTips         = "poor_quality_tips"
)

// FailureModeNames lists the failure modes in canonical order. Every
// iteration over modes (judging, CSV columns, analysis, comparison) follows
// this order.
var FailureModeNames = []string{
	ModeIncompleteAnswer,
	ModeSafetyViolations,
	ModeUnrealisticTools,
	ModeOvercomplicatedSolution,
	ModeMissingContext,
	ModePoorQualityTips,
}

// IsFailureMode reports whether name is one of the six canonical modes.
func IsFailureMode(name string) bool {
	for _, m := range FailureModeNames {
		if m == name {
			return true
		}
	}
	return false
}

// =============================================================================
// Judge Label Rows
// =============================================================================

// FailureLabelRow is one judged record: the record content flattened next to
// a 0/1 verdict and the raw oracle response for each failure mode.
//
// # Description
//
// The row is flat by design. One row per record and one column pair per mode
// makes the JSON artifact directly convertible to the tabular CSV export and
// lets the analyzer treat mode columns as binary vectors.
//
// # Fields
//
// Verdict fields hold 1 when the record failed that mode, 0 when it passed.
// The paired *Response fields keep the verbatim oracle reply for audit.
//
//   - OverallFailure: 1 when any mode failed (OR over the six verdicts).
//   - FailureCount: Number of failed modes, 0-6.
//   - NeedsReview: Set when a verdict could not be parsed after bounded
//     retries and the record was marked failed on all modes. Flags the row
//     for manual review instead of silently trusting the fail-closed labels.
//
// Use Verdict, Response, and SetVerdict to access mode fields by name;
// FinalizeTotals recomputes the aggregate fields from the verdicts.
type FailureLabelRow struct {
	TraceID          string   `json:"trace_id"`
	Question         string   `json:"question"`
	Answer           string   `json:"answer"`
	EquipmentProblem string   `json:"equipment_problem"`
	ToolsRequired    []string `json:"tools_required"`
	Steps            []string `json:"steps"`
	SafetyInfo       string   `json:"safety_info"`
	Tips             string   `json:"tips"`

	IncompleteAnswer                int    `json:"incomplete_answer"`
	IncompleteAnswerResponse        string `json:"incomplete_answer_response"`
	SafetyViolations                int    `json:"safety_violations"`
	SafetyViolationsResponse        string `json:"safety_violations_response"`
	UnrealisticTools                int    `json:"unrealistic_tools"`
	UnrealisticToolsResponse        string `json:"unrealistic_tools_response"`
	OvercomplicatedSolution         int    `json:"overcomplicated_solution"`
	OvercomplicatedSolutionResponse string `json:"overcomplicated_solution_response"`
	MissingContext                  int    `json:"missing_context"`
	MissingContextResponse          string `json:"missing_context_response"`
	PoorQualityTips                 int    `json:"poor_quality_tips"`
	PoorQualityTipsResponse         string `json:"poor_quality_tips_response"`

	OverallFailure int  `json:"overall_failure"`
	FailureCount   int  `json:"failure_count"`
	NeedsReview    bool `json:"needs_review"`
}

// NewFailureLabelRow copies record content into a label row with all
// verdicts zeroed.
func NewFailureLabelRow(record *QARecord) *FailureLabelRow {
	return &FailureLabelRow{
		TraceID:          record.TraceID,
		Question:         record.Question,
		Answer:           record.Answer,
		EquipmentProblem: record.EquipmentProblem,
		ToolsRequired:    record.ToolsRequired,
		Steps:            record.Steps,
		SafetyInfo:       record.SafetyInfo,
		Tips:             record.Tips,
	}
}

// Record reconstructs the QARecord content embedded in the row.
func (r *FailureLabelRow) Record() *QARecord {
	return &QARecord{
		TraceID:          r.TraceID,
		Question:         r.Question,
		Answer:           r.Answer,
		EquipmentProblem: r.EquipmentProblem,
		ToolsRequired:    r.ToolsRequired,
		Steps:            r.Steps,
		SafetyInfo:       r.SafetyInfo,
		Tips:             r.Tips,
	}
}

// Verdict returns the 0/1 verdict for the named mode, 0 for unknown names.
func (r *FailureLabelRow) Verdict(mode string) int {
	switch mode {
	case ModeIncompleteAnswer:
		return r.IncompleteAnswer
	case ModeSafetyViolations:
		return r.SafetyViolations
	case ModeUnrealisticTools:
		return r.UnrealisticTools
	case ModeOvercomplicatedSolution:
		return r.OvercomplicatedSolution
	case ModeMissingContext:
		return r.MissingContext
	case ModePoorQualityTips:
		return r.PoorQualityTips
	}
	return 0
}

// Response returns the raw oracle response recorded for the named mode.
func (r *FailureLabelRow) Response(mode string) string {
	switch mode {
	case ModeIncompleteAnswer:
		return r.IncompleteAnswerResponse
	case ModeSafetyViolations:
		return r.SafetyViolationsResponse
	case ModeUnrealisticTools:
		return r.UnrealisticToolsResponse
	case ModeOvercomplicatedSolution:
		return r.OvercomplicatedSolutionResponse
	case ModeMissingContext:
		return r.MissingContextResponse
	case ModePoorQualityTips:
		return r.PoorQualityTipsResponse
	}
	return ""
}

// SetVerdict records the verdict and raw response for the named mode.
// Unknown mode names are ignored; callers iterate FailureModeNames.
func (r *FailureLabelRow) SetVerdict(mode string, verdict int, response string) {
	switch mode {
	case ModeIncompleteAnswer:
		r.IncompleteAnswer = verdict
		r.IncompleteAnswerResponse = response
	case ModeSafetyViolations:
		r.SafetyViolations = verdict
		r.SafetyViolationsResponse = response
	case ModeUnrealisticTools:
		r.UnrealisticTools = verdict
		r.UnrealisticToolsResponse = response
	case ModeOvercomplicatedSolution:
		r.OvercomplicatedSolution = verdict
		r.OvercomplicatedSolutionResponse = response
	case ModeMissingContext:
		r.MissingContext = verdict
		r.MissingContextResponse = response
	case ModePoorQualityTips:
		r.PoorQualityTips = verdict
		r.PoorQualityTipsResponse = response
	}
}

// FinalizeTotals recomputes OverallFailure and FailureCount from the
// per-mode verdicts. Call after the last SetVerdict.
func (r *FailureLabelRow) FinalizeTotals() {
	count := 0
	for _, mode := range FailureModeNames {
		count += r.Verdict(mode)
	}
	r.FailureCount = count
	if count > 0 {
		r.OverallFailure = 1
	} else {
		r.OverallFailure = 0
	}
}

// FailedModes returns the failed mode names in canonical order.
func (r *FailureLabelRow) FailedModes() []string {
	var failed []string
	for _, mode := range FailureModeNames {
		if r.Verdict(mode) == 1 {
			failed = append(failed, mode)
		}
	}
	return failed
}

// =============================================================================
// Human Label Rows
// =============================================================================

// HumanLabelRow is one human-labeled record from human_labels.json. Same
// verdict semantics as FailureLabelRow (1 = failed that mode) without the
// oracle response columns.
type HumanLabelRow struct {
	TraceID string `json:"trace_id"`

	IncompleteAnswer        int `json:"incomplete_answer"`
	SafetyViolations        int `json:"safety_violations"`
	UnrealisticTools        int `json:"unrealistic_tools"`
	OvercomplicatedSolution int `json:"overcomplicated_solution"`
	MissingContext          int `json:"missing_context"`
	PoorQualityTips         int `json:"poor_quality_tips"`

	Comment        *string `json:"comment"`
	OverallFailure int     `json:"overall_failure"`
}

// Verdict returns the 0/1 human verdict for the named mode, 0 for unknown
// names.
func (r *HumanLabelRow) Verdict(mode string) int {
	switch mode {
	case ModeIncompleteAnswer:
		return r.IncompleteAnswer
	case ModeSafetyViolations:
		return r.SafetyViolations
	case ModeUnrealisticTools:
		return r.UnrealisticTools
	case ModeOvercomplicatedSolution:
		return r.OvercomplicatedSolution
	case ModeMissingContext:
		return r.MissingContext
	case ModePoorQualityTips:
		return r.PoorQualityTips
	}
	return 0
}
