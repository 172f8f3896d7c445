// Copyright (C) 2025 dubistdu
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package generation

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/prompts"
)

// jsonSchemaBlock is the output schema shared by every generation template.
// Single place to update the structure; the field set must stay in sync with
// datatypes.QARecord.
const jsonSchemaBlock = `Return ONLY a valid JSON object with this exact structure:
{
    "question": "A specific question about the repair",
    "answer": "Detailed step-by-step answer with technical details",
    "equipment_problem": "Specific equipment or problem description",
    "tools_required": ["list", "of", "specific", "tools", "needed"],
    "steps": ["step 1", "step 2", "step 3", "etc"],
    "safety_info": "Important safety warnings and precautions",
    "tips": "Professional tips and best practices"
}`

// userPromptTemplate renders the user prompt for one repair domain. Rendered
// once per template at construction; the five domain bindings below share it.
var userPromptTemplate = prompts.NewPromptTemplate(
	`Generate a realistic {{.domain}} Q&A pair. {{.focus}}
{{.schema}}
{{.closing}}`,
	[]string{"domain", "focus", "schema", "closing"},
)

// Template is one fully rendered generation template: a system persona plus
// a user prompt carrying the shared output schema.
type Template struct {
	Name   string
	System string
	User   string
}

// templateDomain is the raw material for one template before rendering.
type templateDomain struct {
	name    string
	system  string
	focus   string
	closing string
}

// The five repair domains. Template order matters: sample-to-template
// assignment cycles through this slice.
var templateDomains = []templateDomain{
	{
		name:    "appliance_repair",
		system:  "You are an expert home appliance repair technician with 20+ years of experience.",
		focus:   "Focus on common household appliances like refrigerators, washing machines, dryers, dishwashers, or ovens.",
		closing: "Make it realistic and practical for a homeowner.",
	},
	{
		name:    "plumbing_repair",
		system:  "You are a professional plumber with extensive experience in residential plumbing repairs.",
		focus:   "Focus on common issues like leaks, clogs, fixture repairs, or pipe problems.",
		closing: "Make it realistic and safe for a homeowner to attempt.",
	},
	{
		name:    "electrical_repair",
		system:  "You are a licensed electrician specializing in safe home electrical repairs.",
		focus:   "Focus on SAFE homeowner-level electrical work like outlet replacement, switch repair, or light fixture installation.",
		closing: "Emphasize safety and when to call a professional. Only include repairs safe for homeowners.",
	},
	{
		name:    "hvac_maintenance",
		system:  "You are an HVAC technician specializing in homeowner maintenance and basic repairs.",
		focus:   "Focus on filter changes, thermostat issues, vent cleaning, or basic troubleshooting.",
		closing: "Focus on maintenance and basic repairs homeowners can safely perform.",
	},
	{
		name:    "general_home_repair",
		system:  "You are a skilled handyperson with expertise in general home repairs and maintenance.",
		focus:   "Focus on common issues like drywall repair, door/window problems, flooring issues, or basic carpentry.",
		closing: "Make it practical for a DIY homeowner with basic skills.",
	},
}

// buildTemplates renders the five domain templates.
func buildTemplates() ([]Template, error) {
	templates := make([]Template, 0, len(templateDomains))
	for _, d := range templateDomains {
		user, err := userPromptTemplate.Format(map[string]any{
			"domain":  domainLabel(d.name),
			"focus":   d.focus,
			"schema":  jsonSchemaBlock,
			"closing": d.closing,
		})
		if err != nil {
			return nil, fmt.Errorf("rendering template %s: %w", d.name, err)
		}
		templates = append(templates, Template{
			Name:   d.name,
			System: d.system,
			User:   user,
		})
	}
	return templates, nil
}

// domainLabel turns a template name into prompt prose ("appliance_repair"
// becomes "appliance repair").
func domainLabel(name string) string {
	return strings.ReplaceAll(name, "_", " ")
}
