// Copyright (C) 2025 dubistdu
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package artifacts

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dubistdu/synthetic-data-home-diy-repair/services/pipeline/datatypes"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	return store
}

func TestNewStore_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")

	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("store directory not created: %v", err)
	}
	if !info.IsDir() {
		t.Error("store path is not a directory")
	}
	if store.Dir() != dir {
		t.Errorf("Dir() = %q, want %q", store.Dir(), dir)
	}
}

func TestNewStore_EmptyDir(t *testing.T) {
	_, err := NewStore("")
	if err == nil {
		t.Fatal("expected error for empty directory, got nil")
	}
}

func TestStore_WriteReadJSON(t *testing.T) {
	store := newTestStore(t)

	summary := datatypes.ValidationSummary{
		TotalGenerated: 20,
		ValidSamples:   17,
		RuleFailures:   2,
		CommonErrors:   []string{"question: must be at least 10 characters"},
	}
	if err := store.WriteJSON(ValidationSummaryFile, summary); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	var got datatypes.ValidationSummary
	if err := store.ReadJSON(ValidationSummaryFile, &got); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if got.TotalGenerated != 20 || got.ValidSamples != 17 {
		t.Errorf("round trip mismatch: %+v", got)
	}
}

func TestStore_WriteJSON_NoHTMLEscaping(t *testing.T) {
	store := newTestStore(t)

	if err := store.WriteJSON("raw.json", map[string]string{"raw": "a < b && c > d"}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	data, err := os.ReadFile(store.Path("raw.json"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), `<`) {
		t.Errorf("oracle text should not be HTML-escaped: %s", data)
	}
}

func TestStore_WriteJSON_LeavesNoTempFile(t *testing.T) {
	store := newTestStore(t)

	if err := store.WriteJSON("x.json", []int{1, 2, 3}); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(store.Dir())
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestStore_ReadJSON_Missing(t *testing.T) {
	store := newTestStore(t)

	var v []int
	err := store.ReadJSON("nope.json", &v)
	if err == nil {
		t.Fatal("expected error for missing artifact, got nil")
	}

	var serr *StoreError
	if !errors.As(err, &serr) {
		t.Fatalf("expected *StoreError, got %T", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing artifact should unwrap to os.ErrNotExist: %v", err)
	}
}

func TestStore_ReadJSON_Corrupt(t *testing.T) {
	store := newTestStore(t)
	if err := os.WriteFile(store.Path("bad.json"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	var v map[string]any
	err := store.ReadJSON("bad.json", &v)
	if err == nil {
		t.Fatal("expected error for corrupt artifact, got nil")
	}
	if errors.Is(err, os.ErrNotExist) {
		t.Error("corrupt artifact must not look like a missing one")
	}
}

func TestStore_Exists(t *testing.T) {
	store := newTestStore(t)

	if store.Exists(GenerationResultsFile) {
		t.Error("artifact should not exist yet")
	}
	if err := store.WriteJSON(GenerationResultsFile, []datatypes.GenerationResult{}); err != nil {
		t.Fatal(err)
	}
	if !store.Exists(GenerationResultsFile) {
		t.Error("artifact should exist after write")
	}
}

func TestStore_WriteCSV(t *testing.T) {
	store := newTestStore(t)

	header := []string{"trace_id", "overall_failure"}
	rows := [][]string{
		{"t1", "0"},
		{"t2", "1"},
	}
	if err := store.WriteCSV(FailureLabeledCSVFile, header, rows); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	data, err := os.ReadFile(store.Path(FailureLabeledCSVFile))
	if err != nil {
		t.Fatal(err)
	}
	want := "trace_id,overall_failure\nt1,0\nt2,1\n"
	if string(data) != want {
		t.Errorf("CSV content = %q, want %q", data, want)
	}
}

func TestStore_WriteJSON_OverwritesAtomically(t *testing.T) {
	store := newTestStore(t)

	if err := store.WriteJSON("x.json", []int{1}); err != nil {
		t.Fatal(err)
	}
	if err := store.WriteJSON("x.json", []int{1, 2}); err != nil {
		t.Fatal(err)
	}

	var got []int
	if err := store.ReadJSON("x.json", &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("expected overwritten content, got %v", got)
	}
}
