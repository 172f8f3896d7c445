// Copyright (C) 2025 dubistdu
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes provides the record shapes shared by every pipeline phase.
//
// This file contains the QARecord domain model and its structural validation.
// Derived result and label types live in results.go and labels.go.
package datatypes

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// =============================================================================
// Field Constraints
// =============================================================================

const (
	// MinQuestionChars and MaxQuestionChars bound the question field.
	MinQuestionChars = 10
	MaxQuestionChars = 500

	// MinAnswerChars and MaxAnswerChars bound the answer field.
	MinAnswerChars = 20
	MaxAnswerChars = 2000

	// MinProblemChars and MaxProblemChars bound the equipment_problem field.
	MinProblemChars = 5
	MaxProblemChars = 200

	// MinTools and MaxTools bound the tools_required list length.
	MinTools = 1
	MaxTools = 15

	// MinSteps and MaxSteps bound the steps list length.
	MinSteps = 2
	MaxSteps = 20

	// MinSafetyChars and MaxSafetyChars bound the safety_info field.
	MinSafetyChars = 10
	MaxSafetyChars = 500

	// MinTipsChars and MaxTipsChars bound the tips field.
	MinTipsChars = 10
	MaxTipsChars = 500
)

// =============================================================================
// Shared Validator Instance
// =============================================================================

// qaValidate is the validator instance for pipeline datatypes.
// Initialized in init() with custom validators.
var qaValidate *validator.Validate

func init() {
	qaValidate = validator.New()

	// Register custom validator rejecting whitespace-only strings.
	_ = qaValidate.RegisterValidation("notblank", validateNotBlank)

	// Report errors under JSON field names so validation reasons match the
	// persisted artifact schema rather than Go identifiers.
	qaValidate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// validateNotBlank validates that a string field is not empty after trimming
// surrounding whitespace. The built-in "required" tag only rejects the empty
// string; whitespace-only content would otherwise slip through.
func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// =============================================================================
// QARecord
// =============================================================================

// QARecord is one generated repair Q&A artifact.
//
// # Description
//
// QARecord is the domain record every phase consumes. It is created by the
// generator, screened by the validator, graded by the judge, and optionally
// superseded by a corrected record carrying the same TraceID.
//
// # Fields
//
//   - TraceID: Stable identifier (UUID v4) assigned once when the record is
//     generated and never reassigned. The sole join key across phases; a
//     corrected record keeps the TraceID of the record it replaces.
//   - TemplateName: Name of the generation template that produced the record,
//     kept for provenance and template-order replay.
//   - Question: The repair question, 10-500 characters.
//   - Answer: Detailed answer, 20-2000 characters.
//   - EquipmentProblem: Equipment or problem being addressed, 5-200 characters.
//   - ToolsRequired: 1-15 tools, each non-blank. Order is meaningful.
//   - Steps: 2-20 instructions, each non-blank. Order is meaningful.
//   - SafetyInfo: Safety warnings, 10-500 characters.
//   - Tips: Additional tips, 10-500 characters.
//
// # Validation
//
// Uses go-playground/validator:
//   - All seven content fields: required, not whitespace-only
//   - String min/max bounds count characters, matching the limits above
//   - ToolsRequired and Steps: element counts bounded, every element non-blank
//
// TraceID and TemplateName are provenance, not content; they carry no
// validation tags and are omitted from JSON when empty.
type QARecord struct {
	TraceID          string   `json:"trace_id,omitempty"`
	TemplateName     string   `json:"template_name,omitempty"`
	Question         string   `json:"question" validate:"required,notblank,min=10,max=500"`
	Answer           string   `json:"answer" validate:"required,notblank,min=20,max=2000"`
	EquipmentProblem string   `json:"equipment_problem" validate:"required,notblank,min=5,max=200"`
	ToolsRequired    []string `json:"tools_required" validate:"required,min=1,max=15,dive,notblank"`
	Steps            []string `json:"steps" validate:"required,min=2,max=20,dive,notblank"`
	SafetyInfo       string   `json:"safety_info" validate:"required,notblank,min=10,max=500"`
	Tips             string   `json:"tips" validate:"required,notblank,min=10,max=500"`
}

// Validate checks the record against the structural schema.
//
// Returns nil when the record is structurally valid. Schema violations are
// returned as a *StructuralError whose Reasons list one human-readable message
// per failed constraint, phrased against JSON field names.
func (r *QARecord) Validate() error {
	err := qaValidate.Struct(r)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		reasons := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			reasons = append(reasons, reasonForFieldError(fe))
		}
		return &StructuralError{TraceID: r.TraceID, Reasons: reasons}
	}
	return err
}

// Normalize trims surrounding whitespace from every content field and list
// element. Oracle output routinely pads fields with spaces and newlines;
// normalizing before validation keeps the length bounds honest.
func (r *QARecord) Normalize() {
	r.Question = strings.TrimSpace(r.Question)
	r.Answer = strings.TrimSpace(r.Answer)
	r.EquipmentProblem = strings.TrimSpace(r.EquipmentProblem)
	r.SafetyInfo = strings.TrimSpace(r.SafetyInfo)
	r.Tips = strings.TrimSpace(r.Tips)
	for i, tool := range r.ToolsRequired {
		r.ToolsRequired[i] = strings.TrimSpace(tool)
	}
	for i, step := range r.Steps {
		r.Steps[i] = strings.TrimSpace(step)
	}
}

// reasonForFieldError converts a validator field error into the message
// format persisted in validation_errors and the validation summary.
func reasonForFieldError(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + ": field is required"
	case "notblank":
		return field + ": must not be blank"
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s: must contain at least %s items", field, fe.Param())
		}
		return fmt.Sprintf("%s: must be at least %s characters", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s: must contain at most %s items", field, fe.Param())
		}
		return fmt.Sprintf("%s: must be at most %s characters", field, fe.Param())
	default:
		return fmt.Sprintf("%s: failed %s validation", field, fe.Tag())
	}
}

// =============================================================================
// Oracle Output Parsing
// =============================================================================

// ParseQARecord parses raw oracle output into a normalized, structurally
// validated QARecord.
//
// # Description
//
// The oracle is instructed to return a bare JSON object but in practice often
// wraps it in a Markdown code fence; the fence is stripped before decoding.
// The parsed record is normalized and validated against the structural schema.
//
// # Outputs
//
//   - *QARecord: The validated record, nil when parsing or validation failed.
//   - []string: Artifact-ready error messages, empty on success. These are
//     persisted verbatim in the per-sample validation_errors field.
//
// TraceID and TemplateName are left empty; callers stamp provenance after a
// successful parse.
func ParseQARecord(raw string) (*QARecord, []string) {
	cleaned := stripCodeFences(raw)

	var record QARecord
	if err := json.Unmarshal([]byte(cleaned), &record); err != nil {
		return nil, []string{fmt.Sprintf("invalid JSON format: %v", err)}
	}

	record.Normalize()
	if err := record.Validate(); err != nil {
		var serr *StructuralError
		if errors.As(err, &serr) {
			return nil, serr.Reasons
		}
		return nil, []string{fmt.Sprintf("validation error: %v", err)}
	}
	return &record, nil
}

// stripCodeFences removes a surrounding Markdown code fence, with or without
// a language tag, returning the inner text trimmed. Input without a fence is
// returned trimmed.
func stripCodeFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		// Drop the language tag line ("json", "JSON", or empty).
		trimmed = trimmed[idx+1:]
	}
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}
