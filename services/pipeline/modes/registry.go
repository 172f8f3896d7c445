// Copyright (C) 2025 dubistdu
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package modes loads the failure-mode criteria used by the judge and
// correction phases.
//
// The six mode names are a closed set defined in the datatypes package: the
// label artifact schema is built on them. What this package makes tunable is
// the text attached to each mode: its evaluation prompt, success and failure
// criteria, and fix instruction. A default criteria file is embedded in the
// binary; an external file can replace it without rebuilding, as long as it
// defines exactly the canonical modes.
package modes

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dubistdu/synthetic-data-home-diy-repair/services/pipeline/datatypes"
)

// MaxYAMLFileSize is the maximum allowed criteria file size (1MB).
// Prevents memory issues from oversized replacement files.
const MaxYAMLFileSize = 1024 * 1024

//go:embed failure_modes.yaml
var defaultModesYAML []byte

// =============================================================================
// Types
// =============================================================================

// Mode is one failure mode with its evaluation and correction text.
//
// # Fields
//
//   - Name: Canonical mode name, one of datatypes.FailureModeNames.
//   - Code: Short code for compact listings (e.g. "ia").
//   - Description: One-line summary of the defect.
//   - SuccessCriteria: What a passing record looks like. Quoted back to the
//     oracle during correction so the fix targets the same bar the judge
//     applies.
//   - FailureCriteria: What a failing record looks like.
//   - EvaluationPrompt: Go template rendered per record for the judge call.
//     May reference the record fields question, answer, equipment_problem,
//     tools_required, steps, safety_info, and tips.
//   - FixInstruction: Imperative guidance embedded in the correction prompt
//     when this mode failed.
type Mode struct {
	Name             string `yaml:"name"`
	Code             string `yaml:"code"`
	Description      string `yaml:"description"`
	SuccessCriteria  string `yaml:"success_criteria"`
	FailureCriteria  string `yaml:"failure_criteria"`
	EvaluationPrompt string `yaml:"evaluation_prompt"`
	FixInstruction   string `yaml:"fix_instruction"`
}

// modesFile is the root structure of the criteria YAML.
type modesFile struct {
	Modes []Mode `yaml:"modes"`
}

// Registry holds the loaded failure modes in canonical order.
//
// A Registry is immutable after Load and safe for concurrent use.
type Registry struct {
	// Source records where the criteria came from: "embedded" or the
	// external file path.
	Source string

	ordered []Mode
	byName  map[string]Mode
}

// =============================================================================
// Loading
// =============================================================================

// Load returns the failure-mode registry.
//
// With an empty path the embedded default criteria are used. Otherwise the
// file at path replaces them entirely; it must parse, stay under
// MaxYAMLFileSize, and define exactly the canonical mode set. Errors from an
// explicit path are returned, never silently downgraded to the defaults.
func Load(path string) (*Registry, error) {
	if path == "" {
		reg, err := parse(defaultModesYAML)
		if err != nil {
			return nil, fmt.Errorf("parsing embedded failure modes: %w", err)
		}
		reg.Source = "embedded"
		return reg, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading modes file: %w", err)
	}
	if info.Size() > MaxYAMLFileSize {
		return nil, fmt.Errorf("modes file too large: %d bytes (max %d)", info.Size(), MaxYAMLFileSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading modes file: %w", err)
	}

	reg, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing modes file %s: %w", path, err)
	}
	reg.Source = path
	return reg, nil
}

// parse deserializes and validates criteria YAML, normalizing mode order to
// the canonical one.
func parse(data []byte) (*Registry, error) {
	var file modesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}

	byName := make(map[string]Mode, len(file.Modes))
	codes := make(map[string]string, len(file.Modes))
	for _, mode := range file.Modes {
		if !datatypes.IsFailureMode(mode.Name) {
			return nil, fmt.Errorf("unknown failure mode %q: the mode set is fixed to %s",
				mode.Name, strings.Join(datatypes.FailureModeNames, ", "))
		}
		if _, dup := byName[mode.Name]; dup {
			return nil, fmt.Errorf("duplicate failure mode %q", mode.Name)
		}
		if err := checkModeFields(mode); err != nil {
			return nil, err
		}
		if prev, dup := codes[mode.Code]; dup {
			return nil, fmt.Errorf("mode %q reuses code %q already taken by %q", mode.Name, mode.Code, prev)
		}
		byName[mode.Name] = mode
		codes[mode.Code] = mode.Name
	}

	ordered := make([]Mode, 0, len(datatypes.FailureModeNames))
	for _, name := range datatypes.FailureModeNames {
		mode, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("missing failure mode %q: the mode set is fixed to %s",
				name, strings.Join(datatypes.FailureModeNames, ", "))
		}
		ordered = append(ordered, mode)
	}

	return &Registry{ordered: ordered, byName: byName}, nil
}

// checkModeFields rejects modes with empty text fields.
func checkModeFields(mode Mode) error {
	fields := map[string]string{
		"code":              mode.Code,
		"description":       mode.Description,
		"success_criteria":  mode.SuccessCriteria,
		"failure_criteria":  mode.FailureCriteria,
		"evaluation_prompt": mode.EvaluationPrompt,
		"fix_instruction":   mode.FixInstruction,
	}
	for name, value := range fields {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("mode %q: %s must not be empty", mode.Name, name)
		}
	}
	return nil
}

// =============================================================================
// Accessors
// =============================================================================

// All returns the modes in canonical order. The returned slice is a copy.
func (r *Registry) All() []Mode {
	out := make([]Mode, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Get returns the mode with the given canonical name.
func (r *Registry) Get(name string) (Mode, bool) {
	mode, ok := r.byName[name]
	return mode, ok
}
