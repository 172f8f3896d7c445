// Copyright (C) 2025 dubistdu
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package labeling

import (
	"strings"
	"testing"

	"github.com/dubistdu/synthetic-data-home-diy-repair/services/pipeline/datatypes"
	"github.com/dubistdu/synthetic-data-home-diy-repair/services/pipeline/modes"
)

func testPromptSet(t *testing.T) *promptSet {
	t.Helper()
	registry, err := modes.Load("")
	if err != nil {
		t.Fatalf("loading embedded modes: %v", err)
	}
	return newPromptSet(registry)
}

func TestRenderEmbedsRecordFields(t *testing.T) {
	set := testPromptSet(t)
	record := labelFixture("qa-1", "How can I fix a leaky kitchen faucet?")

	prompt, err := set.render(datatypes.ModeIncompleteAnswer, &record)
	if err != nil {
		t.Fatalf("render returned error: %v", err)
	}
	if !strings.Contains(prompt, record.Question) {
		t.Error("prompt missing the question")
	}
	if !strings.Contains(prompt, record.Answer) {
		t.Error("prompt missing the answer")
	}
	if !strings.Contains(prompt, `["Turn off water","Disassemble handle"`) {
		t.Errorf("prompt missing JSON-encoded steps:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Respond with only the number.") {
		t.Error("prompt missing the verdict instruction")
	}
}

func TestRenderAllModes(t *testing.T) {
	registry, err := modes.Load("")
	if err != nil {
		t.Fatalf("loading embedded modes: %v", err)
	}
	set := newPromptSet(registry)
	record := labelFixture("qa-1", "How can I fix a leaky kitchen faucet?")

	for _, mode := range registry.All() {
		prompt, err := set.render(mode.Name, &record)
		if err != nil {
			t.Fatalf("render(%s) returned error: %v", mode.Name, err)
		}
		if strings.Contains(prompt, "{{") {
			t.Errorf("mode %s left unrendered placeholders:\n%s", mode.Name, prompt)
		}
		if !strings.Contains(prompt, "Respond with only the number") {
			t.Errorf("mode %s prompt missing the verdict instruction", mode.Name)
		}
	}
}

func TestRenderUnknownMode(t *testing.T) {
	set := testPromptSet(t)
	record := labelFixture("qa-1", "How can I fix a leaky kitchen faucet?")

	if _, err := set.render("made_up_mode", &record); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestPromptVarsEncodeLists(t *testing.T) {
	record := labelFixture("qa-1", "How can I fix a leaky kitchen faucet?")
	vars, err := promptVars(&record)
	if err != nil {
		t.Fatalf("promptVars returned error: %v", err)
	}
	if got := vars["tools_required"]; got != `["adjustable wrench","screwdriver"]` {
		t.Errorf("tools_required = %v", got)
	}
	if got := vars["question"]; got != record.Question {
		t.Errorf("question = %v", got)
	}
}
