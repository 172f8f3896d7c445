// Copyright (C) 2025 dubistdu
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package validation

import (
	"fmt"
	"strings"

	"github.com/dubistdu/synthetic-data-home-diy-repair/services/pipeline/datatypes"
)

// =============================================================================
// Rule Names
// =============================================================================

// The six quality rules, in evaluation order. The names key the per-rule
// failure counts in the validation summary.
const (
	RuleQuestionSpecificity = "question_specificity"
	RuleAnswerCompleteness  = "answer_completeness"
	RuleToolsRealism        = "tools_realism"
	RuleStepClarity         = "step_clarity"
	RuleSafetyAdequacy      = "safety_adequacy"
	RuleTipsUsefulness      = "tips_usefulness"
)

// RuleNames lists every quality rule in evaluation order.
var RuleNames = []string{
	RuleQuestionSpecificity,
	RuleAnswerCompleteness,
	RuleToolsRealism,
	RuleStepClarity,
	RuleSafetyAdequacy,
	RuleTipsUsefulness,
}

// =============================================================================
// Thresholds
// =============================================================================

// Quality thresholds. The structural layer enforces the schema bounds; these
// sit above them and judge content, not shape.
const (
	minQuestionWords   = 4
	minAnswerWords     = 10
	answerWordsPerStep = 2
	minClearSteps      = 3
	minSafetyWords     = 4
	minTipsWords       = 4
)

// interrogativeLeads are words that open a well-formed question when no
// question mark is present.
var interrogativeLeads = map[string]bool{
	"how": true, "what": true, "why": true, "which": true, "where": true,
	"when": true, "who": true, "can": true, "could": true, "should": true,
	"would": true, "will": true, "is": true, "are": true, "do": true,
	"does": true,
}

// genericToolEntries are placeholder values that signal the oracle listed
// filler instead of naming real tools. Matched after normalization.
var genericToolEntries = map[string]bool{
	"tool": true, "tools": true, "equipment": true, "stuff": true,
	"things": true, "item": true, "items": true, "misc": true,
	"miscellaneous": true, "etc": true, "other": true, "others": true,
	"various": true, "various tools": true, "basic tools": true,
	"some tools": true, "any": true, "none": true, "n/a": true, "na": true,
	"tbd": true, "unknown": true, "placeholder": true,
}

// =============================================================================
// Rule Evaluation
// =============================================================================

type ruleCheck func(*datatypes.QARecord) (bool, string)

var ruleChecks = []struct {
	name  string
	check ruleCheck
}{
	{RuleQuestionSpecificity, checkQuestionSpecificity},
	{RuleAnswerCompleteness, checkAnswerCompleteness},
	{RuleToolsRealism, checkToolsRealism},
	{RuleStepClarity, checkStepClarity},
	{RuleSafetyAdequacy, checkSafetyAdequacy},
	{RuleTipsUsefulness, checkTipsUsefulness},
}

// EvaluateRules runs all six quality rules against a record. Every rule is
// evaluated even when an earlier one fails. The returned slices are parallel:
// failed rule names and one reason per failed rule.
func EvaluateRules(record *datatypes.QARecord) ([]string, []string) {
	failures := []string{}
	reasons := []string{}
	for _, rule := range ruleChecks {
		if ok, reason := rule.check(record); !ok {
			failures = append(failures, rule.name)
			reasons = append(reasons, reason)
		}
	}
	return failures, reasons
}

// checkQuestionSpecificity wants a question long enough to name a concrete
// problem and phrased as an actual question.
func checkQuestionSpecificity(record *datatypes.QARecord) (bool, string) {
	words := strings.Fields(record.Question)
	if len(words) < minQuestionWords {
		return false, fmt.Sprintf("Question has fewer than %d words", minQuestionWords)
	}
	if strings.Contains(record.Question, "?") {
		return true, ""
	}
	lead := strings.ToLower(strings.Trim(words[0], ",.:;!"))
	if interrogativeLeads[lead] {
		return true, ""
	}
	return false, "Question lacks interrogative structure"
}

// checkAnswerCompleteness wants an answer with enough substance to stand on
// its own and to cover the listed steps.
func checkAnswerCompleteness(record *datatypes.QARecord) (bool, string) {
	words := len(strings.Fields(record.Answer))
	if words < minAnswerWords {
		return false, fmt.Sprintf("Answer has fewer than %d words", minAnswerWords)
	}
	if required := len(record.Steps) * answerWordsPerStep; words < required {
		return false, "Answer is too short to cover all steps"
	}
	return true, ""
}

// checkToolsRealism bounds the tool count and rejects placeholder entries.
func checkToolsRealism(record *datatypes.QARecord) (bool, string) {
	count := len(record.ToolsRequired)
	if count < datatypes.MinTools || count > datatypes.MaxTools {
		return false, fmt.Sprintf("Tools required count must be between %d and %d",
			datatypes.MinTools, datatypes.MaxTools)
	}
	for _, tool := range record.ToolsRequired {
		if genericToolEntries[normalizeEntry(tool)] {
			return false, fmt.Sprintf("Tools required contains generic entry %q", tool)
		}
	}
	return true, ""
}

// checkStepClarity wants every step to carry text and the procedure to have
// enough steps to actually guide a repair.
func checkStepClarity(record *datatypes.QARecord) (bool, string) {
	for _, step := range record.Steps {
		if strings.TrimSpace(step) == "" {
			return false, "Steps contains entries that are empty or whitespace only"
		}
	}
	if len(record.Steps) < minClearSteps {
		return false, fmt.Sprintf("Steps list has fewer than %d entries", minClearSteps)
	}
	return true, ""
}

// checkSafetyAdequacy wants safety guidance with actual content.
func checkSafetyAdequacy(record *datatypes.QARecord) (bool, string) {
	if len(strings.Fields(record.SafetyInfo)) < minSafetyWords {
		return false, "Safety info is too brief to be adequate"
	}
	return true, ""
}

// checkTipsUsefulness wants tips with actual content that add something
// beyond restating the steps.
func checkTipsUsefulness(record *datatypes.QARecord) (bool, string) {
	if len(strings.Fields(record.Tips)) < minTipsWords {
		return false, "Tips is too brief to be useful"
	}
	tips := normalizeEntry(record.Tips)
	for _, step := range record.Steps {
		if tips == normalizeEntry(step) {
			return false, "Tips duplicates a step"
		}
	}
	if tips == normalizeEntry(strings.Join(record.Steps, " ")) {
		return false, "Tips duplicates the steps"
	}
	return true, ""
}

// normalizeEntry lower-cases, trims whitespace and a trailing period.
func normalizeEntry(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.TrimSuffix(s, ".")
}
