// Copyright (C) 2025 dubistdu
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package artifacts persists the JSON and CSV files that hand work from one
// pipeline phase to the next.
//
// The persisted files are the only interface between phases: no phase passes
// records to the next in memory, which is what makes every phase
// independently re-runnable. Writes are atomic (temp file + rename) so a
// phase that dies mid-write never leaves a half-written artifact for the
// next phase to trip over.
package artifacts

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// =============================================================================
// Artifact Filenames
// =============================================================================

// Canonical artifact filenames, relative to the store directory.
const (
	GenerationResultsFile  = "generation_results.json"
	StructurallyValidFile  = "structurally_valid_qa_pairs.json"
	ValidationSummaryFile  = "validation_summary.json"
	FailureLabeledJSONFile = "failure_labeled_data.json"
	FailureLabeledCSVFile  = "failure_labeled_data.csv"
	AnalysisReportFile     = "failure_analysis_report.json"
	CorrectedFile          = "corrected_qa_pairs.json"
	MergedFile             = "qa_after_correction.json"
	MergeSummaryFile       = "merge_summary.json"
	HumanLabelsFile        = "human_labels.json"
	ComparisonFile         = "human_vs_llm_comparison.json"
)

// =============================================================================
// Errors
// =============================================================================

// StoreError reports a failed artifact read or write. Artifact I/O failures
// are fatal for the running phase; earlier artifacts are never touched.
type StoreError struct {
	// Op is the failing operation: "read", "write", or "create dir".
	Op string

	// Path is the artifact path involved.
	Path string

	// Err is the underlying cause.
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("artifact %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// =============================================================================
// Store
// =============================================================================

// Store reads and writes pipeline artifacts under a single directory.
//
// Concurrent pipeline runs against the same directory are not coordinated;
// callers serialize runs or use distinct directories.
type Store struct {
	dir string
}

// NewStore opens a store rooted at dir, creating the directory if needed.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, &StoreError{Op: "create dir", Path: dir, Err: fmt.Errorf("directory must not be empty")}
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, &StoreError{Op: "create dir", Path: dir, Err: err}
	}
	return &Store{dir: dir}, nil
}

// Dir returns the store's root directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the absolute-or-relative path of a named artifact.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// Exists reports whether the named artifact is present.
func (s *Store) Exists(name string) bool {
	info, err := os.Stat(s.Path(name))
	return err == nil && !info.IsDir()
}

// WriteJSON marshals v with two-space indentation and writes it atomically.
//
// HTML escaping is disabled: artifacts carry verbatim oracle text and must
// round-trip it unchanged.
func (s *Store) WriteJSON(name string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return &StoreError{Op: "write", Path: s.Path(name), Err: err}
	}
	return s.writeAtomic(name, buf.Bytes())
}

// ReadJSON reads the named artifact into v. A missing artifact surfaces as a
// *StoreError wrapping os.ErrNotExist so callers can distinguish "phase not
// run yet" from corruption.
func (s *Store) ReadJSON(name string, v any) error {
	path := s.Path(name)
	data, err := os.ReadFile(path)
	if err != nil {
		return &StoreError{Op: "read", Path: path, Err: err}
	}
	if err := json.Unmarshal(data, v); err != nil {
		return &StoreError{Op: "read", Path: path, Err: err}
	}
	return nil
}

// WriteCSV writes a header plus rows atomically.
func (s *Store) WriteCSV(name string, header []string, rows [][]string) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return &StoreError{Op: "write", Path: s.Path(name), Err: err}
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return &StoreError{Op: "write", Path: s.Path(name), Err: err}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return &StoreError{Op: "write", Path: s.Path(name), Err: err}
	}
	return s.writeAtomic(name, buf.Bytes())
}

// writeAtomic writes data to a temp file in the store directory and renames
// it over the final path. Rename within one directory is atomic on POSIX
// filesystems.
func (s *Store) writeAtomic(name string, data []byte) error {
	final := s.Path(name)
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return &StoreError{Op: "write", Path: final, Err: err}
	}
	if err := os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return &StoreError{Op: "write", Path: final, Err: err}
	}
	return nil
}
