// Copyright (C) 2025 dubistdu
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package correction

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/prompts"

	"github.com/dubistdu/synthetic-data-home-diy-repair/services/pipeline/datatypes"
	"github.com/dubistdu/synthetic-data-home-diy-repair/services/pipeline/modes"
)

// correctionSystemPrompt frames the oracle as a fixer whose output faces the
// same judge again.
const correctionSystemPrompt = "You correct failed DIY repair Q&A so they pass quality checks. " +
	"Your output will be re-evaluated on the same 6 criteria; fix each reported failure so it would score success (0). " +
	"Return only valid JSON with the required fields."

// correctionSchemaBlock is the output schema quoted in every correction
// prompt. The field set must stay in sync with datatypes.QARecord.
const correctionSchemaBlock = `Return ONLY a valid JSON object with this exact structure:
{
  "question": "A specific question about DIY repair",
  "answer": "Detailed step-by-step answer with technical details",
  "equipment_problem": "Specific equipment or problem being addressed",
  "tools_required": ["list", "of", "specific", "tools", "needed"],
  "steps": ["step 1", "step 2", "step 3", "etc"],
  "safety_info": "Important safety warnings and precautions",
  "tips": "Professional tips and best practices"
}`

// correctionPromptTemplate renders the user prompt for one failed record.
var correctionPromptTemplate = prompts.NewPromptTemplate(
	`You are an expert home DIY repair technician. This Q&A pair failed quality checks. Your corrected version will be re-evaluated with the same criteria; you must fix it so it passes.

FAILURES TO FIX (do exactly what is needed so the judge scores 0 / success):
{{.fix_section}}

ORIGINAL Q&A PAIR:
Question: {{.question}}
Answer: {{.answer}}
Equipment Problem: {{.equipment_problem}}
Tools Required: {{.tools_required}}
Steps: {{.steps}}
Safety Info: {{.safety_info}}
Tips: {{.tips}}

TASK: Produce a CORRECTED Q&A that addresses every failure above. Keep the same topic and equipment problem. Each field must be substantive (no placeholders).

{{.schema}}`,
	[]string{"fix_section", "question", "answer", "equipment_problem",
		"tools_required", "steps", "safety_info", "tips", "schema"},
)

// Fallback for rows flagged as an overall failure without any single mode
// set, which only happens in hand-edited label files.
const (
	qualityMode           = "quality"
	qualityFixInstruction = "Improve overall quality so it would pass all 6 quality checks."
)

// fixPlan is the correction guidance for one failed row: the modes to fix
// and the instruction quoted for each.
type fixPlan struct {
	failed       []string
	instructions map[string]string
	section      string
}

// planFixes assembles the FAILURES TO FIX block for one row. Each line pairs
// the judge's success criteria with the mode's fix instruction so the oracle
// targets exactly the bar it will be re-scored against. Modes that passed
// are never mentioned; re-prompting passing qualities risks regressing them.
func planFixes(registry *modes.Registry, row *datatypes.FailureLabelRow) fixPlan {
	plan := fixPlan{
		failed:       row.FailedModes(),
		instructions: map[string]string{},
	}
	if plan.failed == nil {
		plan.failed = []string{}
	}
	if len(plan.failed) == 0 {
		plan.instructions[qualityMode] = qualityFixInstruction
		plan.section = "- " + qualityFixInstruction
		return plan
	}

	lines := make([]string, 0, len(plan.failed))
	for _, name := range plan.failed {
		mode, ok := registry.Get(name)
		success := mode.SuccessCriteria
		how := mode.FixInstruction
		if !ok {
			success = "Meet quality bar for this aspect."
			how = "Revise so the content satisfies: " + success
		}
		plan.instructions[name] = how
		lines = append(lines, fmt.Sprintf("- **%s**: Judge expects: \"%s\" -> To fix: %s", name, success, how))
	}
	plan.section = strings.Join(lines, "\n")
	return plan
}

// buildPrompt fills the correction template with the failed record and its
// fix plan. List fields are JSON-encoded so the oracle sees them bracketed
// identically on every run.
func buildPrompt(row *datatypes.FailureLabelRow, plan fixPlan) (string, error) {
	tools, err := json.Marshal(row.ToolsRequired)
	if err != nil {
		return "", fmt.Errorf("correction: encoding tools list: %w", err)
	}
	steps, err := json.Marshal(row.Steps)
	if err != nil {
		return "", fmt.Errorf("correction: encoding steps list: %w", err)
	}
	return correctionPromptTemplate.Format(map[string]any{
		"fix_section":       plan.section,
		"question":          row.Question,
		"answer":            row.Answer,
		"equipment_problem": row.EquipmentProblem,
		"tools_required":    string(tools),
		"steps":             string(steps),
		"safety_info":       row.SafetyInfo,
		"tips":              row.Tips,
		"schema":            correctionSchemaBlock,
	})
}
