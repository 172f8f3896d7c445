// Copyright (C) 2025 dubistdu
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package labeling

import (
	"encoding/json"
	"fmt"

	"github.com/tmc/langchaingo/prompts"

	"github.com/dubistdu/synthetic-data-home-diy-repair/services/pipeline/datatypes"
	"github.com/dubistdu/synthetic-data-home-diy-repair/services/pipeline/modes"
)

// judgeVars are the placeholders an evaluation prompt may reference. Every
// prompt gets the full set; unused variables are simply not referenced.
var judgeVars = []string{
	"question", "answer", "equipment_problem",
	"tools_required", "steps", "safety_info", "tips",
}

// promptSet holds one parsed evaluation template per failure mode, built
// once when the judge is constructed.
type promptSet struct {
	templates map[string]prompts.PromptTemplate
}

func newPromptSet(registry *modes.Registry) *promptSet {
	set := &promptSet{templates: map[string]prompts.PromptTemplate{}}
	for _, mode := range registry.All() {
		set.templates[mode.Name] = prompts.NewPromptTemplate(mode.EvaluationPrompt, judgeVars)
	}
	return set
}

// render fills the named mode's evaluation prompt with record content.
func (p *promptSet) render(modeName string, record *datatypes.QARecord) (string, error) {
	template, ok := p.templates[modeName]
	if !ok {
		return "", fmt.Errorf("labeling: no evaluation prompt for mode %q", modeName)
	}
	vars, err := promptVars(record)
	if err != nil {
		return "", err
	}
	return template.Format(vars)
}

// promptVars flattens a record into template variables. List fields are
// JSON-encoded so the oracle sees them bracketed identically on every run.
func promptVars(record *datatypes.QARecord) (map[string]any, error) {
	tools, err := json.Marshal(record.ToolsRequired)
	if err != nil {
		return nil, fmt.Errorf("labeling: encoding tools list: %w", err)
	}
	steps, err := json.Marshal(record.Steps)
	if err != nil {
		return nil, fmt.Errorf("labeling: encoding steps list: %w", err)
	}
	return map[string]any{
		"question":          record.Question,
		"answer":            record.Answer,
		"equipment_problem": record.EquipmentProblem,
		"tools_required":    string(tools),
		"steps":             string(steps),
		"safety_info":       record.SafetyInfo,
		"tips":              record.Tips,
	}, nil
}
