// Copyright (C) 2025 dubistdu
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package analysis aggregates the failure-label matrix into per-mode rates,
// pairwise correlations, failure-combination patterns, and recommendations.
//
// The package is pure: no oracle calls, no I/O. It consumes judged label rows
// and produces a Report; persisting the report is the caller's job.
//
// Undefined statistics stay undefined. A rate over zero samples and a
// correlation over a zero-variance column are reported as JSON null, never
// coerced to 0, so a reader can tell "measured as zero" apart from "nothing
// to measure".
package analysis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/dubistdu/synthetic-data-home-diy-repair/pkg/logging"
	"github.com/dubistdu/synthetic-data-home-diy-repair/services/pipeline/datatypes"
)

// DefaultTargetFailureRate is the project success criterion: an 80% or
// better reduction from the observed ~31.6% baseline failure rate.
const DefaultTargetFailureRate = 0.0632

// noFailuresPattern labels rows where every mode passed.
const noFailuresPattern = "No Failures"

// =============================================================================
// Report Types
// =============================================================================

// Summary holds the headline statistics of one analysis run.
//
// Rate fields are pointers: nil means the statistic is undefined (no samples)
// and serializes as JSON null. TargetMet is false whenever the overall rate
// is undefined; an empty dataset never passes.
type Summary struct {
	TotalSamples        int                 `json:"total_samples"`
	OverallFailureRate  *float64            `json:"overall_failure_rate"`
	OverallSuccessRate  *float64            `json:"overall_success_rate"`
	TargetFailureRate   float64             `json:"target_failure_rate"`
	TargetMet           bool                `json:"target_met"`
	FailureModeRates    map[string]*float64 `json:"failure_mode_rates"`
	FailureModeCounts   map[string]int      `json:"failure_mode_counts"`
	MostCommonFailures  []string            `json:"most_common_failures"`
	LeastCommonFailures []string            `json:"least_common_failures"`
	NeedsReviewCount    int                 `json:"needs_review_count"`
}

// PatternGroup is one distinct failure combination and the rows that show it.
// Name is the title-cased failed modes joined with " + ", or "No Failures"
// for all-pass rows. Rows holds zero-based input indices in input order.
type PatternGroup struct {
	Name string
	Rows []int
}

// Report is the full analysis output, persisted as
// failure_analysis_report.json.
//
// Patterns are ordered by occurrence count descending, first seen first on
// ties, and the custom marshaler keeps that order in the JSON object keys.
type Report struct {
	Summary         Summary
	Correlations    map[string]map[string]*float64
	Patterns        []PatternGroup
	Recommendations []string
}

type reportJSON struct {
	Summary          Summary                        `json:"summary"`
	Correlations     map[string]map[string]*float64 `json:"correlations"`
	FailurePatterns  orderedObject                  `json:"failure_patterns"`
	DetailedPatterns orderedObject                  `json:"detailed_patterns"`
	Recommendations  []string                       `json:"recommendations"`
}

func (r Report) MarshalJSON() ([]byte, error) {
	counts := make(orderedObject, 0, len(r.Patterns))
	details := make(orderedObject, 0, len(r.Patterns))
	for _, g := range r.Patterns {
		counts = append(counts, jsonMember{key: g.Name, value: len(g.Rows)})
		details = append(details, jsonMember{key: g.Name, value: g.Rows})
	}
	return json.Marshal(reportJSON{
		Summary:          r.Summary,
		Correlations:     r.Correlations,
		FailurePatterns:  counts,
		DetailedPatterns: details,
		Recommendations:  r.Recommendations,
	})
}

// jsonMember is one key/value pair of an orderedObject.
type jsonMember struct {
	key   string
	value any
}

// orderedObject marshals as a JSON object whose keys appear in slice order.
// Go maps marshal with keys sorted alphabetically, which would scramble the
// count-descending pattern order the artifact promises.
type orderedObject []jsonMember

func (o orderedObject) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(m.key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		value, err := json.Marshal(m.value)
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// =============================================================================
// Analyzer
// =============================================================================

// Analyzer computes failure statistics against a configured target rate.
type Analyzer struct {
	target float64
	log    *logging.Logger
}

// New builds an Analyzer. A target of zero or less falls back to
// DefaultTargetFailureRate; a nil logger falls back to the process default.
func New(target float64, log *logging.Logger) *Analyzer {
	if target <= 0 {
		target = DefaultTargetFailureRate
	}
	if log == nil {
		log = logging.Default()
	}
	return &Analyzer{target: target, log: log}
}

// Target returns the configured target failure rate.
func (a *Analyzer) Target() float64 {
	return a.target
}

// Run analyzes one batch of judged label rows.
func (a *Analyzer) Run(rows []datatypes.FailureLabelRow) *Report {
	groups := failurePatterns(rows)
	summary := a.summarize(rows, groups)
	report := &Report{
		Summary:         summary,
		Correlations:    correlations(rows),
		Patterns:        groups,
		Recommendations: a.recommend(summary, groups),
	}

	a.log.Info("analysis complete",
		"samples", summary.TotalSamples,
		"target_met", summary.TargetMet,
		"patterns", len(groups),
		"needs_review", summary.NeedsReviewCount)
	return report
}

// summarize computes the headline statistics. Mode ordering for most/least
// common sorts by count descending and keeps canonical mode order on ties,
// mirroring how a stable sort over the canonical list behaves.
func (a *Analyzer) summarize(rows []datatypes.FailureLabelRow, groups []PatternGroup) Summary {
	total := len(rows)
	s := Summary{
		TotalSamples:      total,
		TargetFailureRate: a.target,
		FailureModeRates:  make(map[string]*float64, len(datatypes.FailureModeNames)),
		FailureModeCounts: make(map[string]int, len(datatypes.FailureModeNames)),
	}

	overallFailed := 0
	for i := range rows {
		if rows[i].OverallFailure == 1 {
			overallFailed++
		}
		if rows[i].NeedsReview {
			s.NeedsReviewCount++
		}
	}
	for _, mode := range datatypes.FailureModeNames {
		count := 0
		for i := range rows {
			count += rows[i].Verdict(mode)
		}
		s.FailureModeCounts[mode] = count
		s.FailureModeRates[mode] = ratio(count, total)
	}

	s.OverallFailureRate = ratio(overallFailed, total)
	if s.OverallFailureRate != nil {
		success := 1 - *s.OverallFailureRate
		s.OverallSuccessRate = &success
		s.TargetMet = *s.OverallFailureRate <= a.target
	}

	ordered := append([]string(nil), datatypes.FailureModeNames...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return s.FailureModeCounts[ordered[i]] > s.FailureModeCounts[ordered[j]]
	})
	s.MostCommonFailures = ordered[:3]
	s.LeastCommonFailures = ordered[len(ordered)-3:]
	return s
}

// recommend derives action items from the summary. Nothing is recommended
// over an empty batch.
func (a *Analyzer) recommend(s Summary, groups []PatternGroup) []string {
	recs := []string{}
	if s.TotalSamples == 0 {
		return recs
	}

	top := s.MostCommonFailures[0]
	recs = append(recs, fmt.Sprintf(
		"Focus on improving '%s' - it's the most common failure mode (%.1f%% failure rate)",
		strings.ReplaceAll(top, "_", " "), *s.FailureModeRates[top]*100))

	for _, g := range groups {
		if g.Name == noFailuresPattern {
			success := float64(len(g.Rows)) / float64(s.TotalSamples)
			recs = append(recs, fmt.Sprintf(
				"Good news: %.1f%% of samples have no failures - analyze these for best practices",
				success*100))
			break
		}
	}
	if s.OverallFailureRate != nil && *s.OverallFailureRate > 0.5 {
		recs = append(recs,
			"High overall failure rate suggests need for better prompt engineering or model fine-tuning")
	}
	if !s.TargetMet {
		recs = append(recs, fmt.Sprintf(
			"Final failure rate must be <= %.2f%% to meet project success criterion. Run correction phase and re-label, or improve prompts.",
			a.target*100))
	}
	return recs
}

// =============================================================================
// Patterns
// =============================================================================

// failurePatterns groups rows by their exact failure combination, ordered by
// group size descending with first-seen order breaking ties.
func failurePatterns(rows []datatypes.FailureLabelRow) []PatternGroup {
	index := map[string]int{}
	groups := []PatternGroup{}
	for i := range rows {
		name := patternName(&rows[i])
		at, ok := index[name]
		if !ok {
			at = len(groups)
			index[name] = at
			groups = append(groups, PatternGroup{Name: name})
		}
		groups[at].Rows = append(groups[at].Rows, i)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return len(groups[i].Rows) > len(groups[j].Rows)
	})
	return groups
}

// patternName renders a row's failure combination as a readable label.
func patternName(row *datatypes.FailureLabelRow) string {
	failed := row.FailedModes()
	if len(failed) == 0 {
		return noFailuresPattern
	}
	title := cases.Title(language.English)
	parts := make([]string, len(failed))
	for i, mode := range failed {
		parts[i] = title.String(strings.ReplaceAll(mode, "_", " "))
	}
	return strings.Join(parts, " + ")
}

// =============================================================================
// Correlations
// =============================================================================

// correlations computes the pairwise Pearson matrix over the binary mode
// columns. Pairs involving a zero-variance column are nil, the diagonal
// included, so the artifact never reports a fabricated coefficient.
func correlations(rows []datatypes.FailureLabelRow) map[string]map[string]*float64 {
	columns := make(map[string][]float64, len(datatypes.FailureModeNames))
	for _, mode := range datatypes.FailureModeNames {
		col := make([]float64, len(rows))
		for i := range rows {
			col[i] = float64(rows[i].Verdict(mode))
		}
		columns[mode] = col
	}

	matrix := make(map[string]map[string]*float64, len(datatypes.FailureModeNames))
	for _, a := range datatypes.FailureModeNames {
		matrix[a] = make(map[string]*float64, len(datatypes.FailureModeNames))
		for _, b := range datatypes.FailureModeNames {
			if r, ok := pearson(columns[a], columns[b]); ok {
				v := r
				matrix[a][b] = &v
			} else {
				matrix[a][b] = nil
			}
		}
	}
	return matrix
}

// ratio returns count/total, nil when total is zero.
func ratio(count, total int) *float64 {
	if total == 0 {
		return nil
	}
	r := float64(count) / float64(total)
	return &r
}
