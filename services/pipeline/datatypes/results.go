// Copyright (C) 2025 dubistdu
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Per-phase result types for the generation, validation, and correction
// phases. These are the row shapes of the persisted JSON artifacts that hand
// work from one phase to the next.
package datatypes

// =============================================================================
// Generation Results
// =============================================================================

// GenerationResult is one audit row per generation attempt, successful or not.
//
// # Fields
//
//   - TraceID: Identifier minted for this attempt before the oracle call.
//     Assigned in submission order so identity is independent of oracle
//     scheduling and non-determinism.
//   - TemplateName: Template used for the attempt.
//   - QAPair: The parsed, validated record; nil when the attempt failed.
//   - RawResponse: Verbatim oracle output, empty when the call itself failed.
//   - IsValid: Whether the response parsed and passed structural validation.
//   - ValidationErrors: Messages explaining a failed attempt.
//   - GenerationTimestamp: RFC 3339 timestamp of the attempt.
//
// Failed attempts stay in the artifact; downstream phases filter on IsValid.
// No sample is silently dropped.
type GenerationResult struct {
	TraceID             string    `json:"trace_id"`
	TemplateName        string    `json:"template_name"`
	QAPair              *QARecord `json:"qa_pair"`
	RawResponse         string    `json:"raw_response"`
	IsValid             bool      `json:"is_valid"`
	ValidationErrors    []string  `json:"validation_errors"`
	GenerationTimestamp string    `json:"generation_timestamp"`
}

// =============================================================================
// Validation Summary
// =============================================================================

// ValidationSummary aggregates one validation run.
//
// The three failure buckets partition the input: every record is counted
// exactly once as valid, structurally failed, or rule failed, and
// ValidSamples + StructuralFailures + RuleFailures == TotalGenerated.
//
// # Fields
//
//   - TotalGenerated: Records examined, including failed generation attempts.
//   - ValidSamples: Records that passed both layers.
//   - StructuralFailures: Records failing the schema layer (terminal; rule
//     checks are not applied to these).
//   - RuleFailures: Structurally sound records failing at least one quality
//     rule.
//   - InvalidSamples: StructuralFailures + RuleFailures.
//   - ValidationRate: ValidSamples as a percentage of TotalGenerated; 0 when
//     the input was empty.
//   - RuleFailureCounts: Records failing each named rule. A record failing
//     several rules is counted under each of them.
//   - CommonErrors: The five most frequent structural error messages.
type ValidationSummary struct {
	TotalGenerated     int            `json:"total_generated"`
	ValidSamples       int            `json:"valid_samples"`
	StructuralFailures int            `json:"structural_failures"`
	RuleFailures       int            `json:"rule_failures"`
	InvalidSamples     int            `json:"invalid_samples"`
	ValidationRate     float64        `json:"validation_rate"`
	RuleFailureCounts  map[string]int `json:"rule_failure_counts"`
	CommonErrors       []string       `json:"common_errors"`
}

// =============================================================================
// Correction Results
// =============================================================================

// CorrectionRecord is one correction attempt for a record that failed the
// judge.
//
// # Fields
//
//   - TraceID: Copied verbatim from the failing record. A corrected record
//     replaces its original under the same identity; correction never mints
//     a new TraceID.
//   - FailedModes: The failure modes the judge flagged, canonical order.
//   - Instructions: Fix instruction sent to the oracle, keyed by mode. Only
//     failed modes appear; passing qualities are not re-prompted.
//   - QAPair: The corrected record, nil when the oracle output failed to
//     parse or validate. TraceID inside the record matches the top-level one.
//   - RawResponse: Verbatim oracle output.
//   - IsValid: Whether the corrected record parsed and validated.
//   - ValidationErrors: Messages explaining an invalid correction.
//   - CorrectedTimestamp: RFC 3339 timestamp of the attempt.
//
// An invalid correction keeps its row for audit; the merger only applies
// corrections with IsValid set and a non-nil QAPair.
type CorrectionRecord struct {
	TraceID            string            `json:"trace_id"`
	FailedModes        []string          `json:"failed_modes"`
	Instructions       map[string]string `json:"instructions"`
	QAPair             *QARecord         `json:"qa_pair"`
	RawResponse        string            `json:"raw_response"`
	IsValid            bool              `json:"is_valid"`
	ValidationErrors   []string          `json:"validation_errors"`
	CorrectedTimestamp string            `json:"corrected_timestamp"`
}
