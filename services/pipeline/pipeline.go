// Copyright (C) 2025 dubistdu
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Phase sequencing, artifact preconditions, and the per-phase run methods.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dubistdu/synthetic-data-home-diy-repair/pkg/logging"
	"github.com/dubistdu/synthetic-data-home-diy-repair/pkg/telemetry"
	"github.com/dubistdu/synthetic-data-home-diy-repair/services/llm"
	"github.com/dubistdu/synthetic-data-home-diy-repair/services/pipeline/analysis"
	"github.com/dubistdu/synthetic-data-home-diy-repair/services/pipeline/artifacts"
	"github.com/dubistdu/synthetic-data-home-diy-repair/services/pipeline/correction"
	"github.com/dubistdu/synthetic-data-home-diy-repair/services/pipeline/datatypes"
	"github.com/dubistdu/synthetic-data-home-diy-repair/services/pipeline/generation"
	"github.com/dubistdu/synthetic-data-home-diy-repair/services/pipeline/labeling"
	"github.com/dubistdu/synthetic-data-home-diy-repair/services/pipeline/merge"
	"github.com/dubistdu/synthetic-data-home-diy-repair/services/pipeline/modes"
	"github.com/dubistdu/synthetic-data-home-diy-repair/services/pipeline/validation"
)

// =============================================================================
// Phases
// =============================================================================

// Phase identifies one pipeline phase.
type Phase string

const (
	PhaseGenerate Phase = "generate"
	PhaseValidate Phase = "validate"
	PhaseLabel    Phase = "label"
	PhaseAnalyze  Phase = "analyze"
	PhaseCorrect  Phase = "correct"
)

// Phases lists the pipeline phases in execution order.
var Phases = []Phase{PhaseGenerate, PhaseValidate, PhaseLabel, PhaseAnalyze, PhaseCorrect}

// NeedsOracle reports whether the phase calls the oracle. Callers use it to
// skip building an oracle client for runs that never leave the local disk.
func (p Phase) NeedsOracle() bool {
	switch p {
	case PhaseGenerate, PhaseLabel, PhaseCorrect:
		return true
	}
	return false
}

// ParsePhase maps a phase name to its Phase. Unknown names are a
// ConfigError listing the valid choices.
func ParsePhase(name string) (Phase, error) {
	for _, p := range Phases {
		if string(p) == name {
			return p, nil
		}
	}
	return "", &ConfigError{
		Field:  "phase",
		Reason: fmt.Sprintf("unknown phase %q, expected one of: %s", name, phaseNames()),
	}
}

// PhaseRange returns the contiguous phases from from through until,
// inclusive. A from that runs after until is a ConfigError.
func PhaseRange(from, until Phase) ([]Phase, error) {
	fi := phaseIndex(from)
	if fi < 0 {
		return nil, &ConfigError{Field: "from", Reason: fmt.Sprintf("unknown phase %q", from)}
	}
	ui := phaseIndex(until)
	if ui < 0 {
		return nil, &ConfigError{Field: "until", Reason: fmt.Sprintf("unknown phase %q", until)}
	}
	if fi > ui {
		return nil, &ConfigError{
			Field:  "from",
			Reason: fmt.Sprintf("phase %s runs after %s", from, until),
		}
	}
	return Phases[fi : ui+1], nil
}

func phaseIndex(p Phase) int {
	for i, candidate := range Phases {
		if candidate == p {
			return i
		}
	}
	return -1
}

func phaseNames() string {
	names := make([]string, len(Phases))
	for i, p := range Phases {
		names[i] = string(p)
	}
	return strings.Join(names, ", ")
}

// =============================================================================
// Pipeline
// =============================================================================

// Pipeline wires the phase services to the artifact store under one
// configuration.
//
// # Description
//
// Each Run method is one phase: load input artifacts, run the phase
// service, persist output artifacts. Methods check their preconditions
// before doing any work and write nothing when the phase fails, so an
// aborted run never clobbers the artifacts an earlier run produced.
//
// The oracle client may be nil for a pipeline that only runs the pure
// phases (analyze, merge, compare, stats); the oracle phases then refuse
// to start with a ConfigError instead of failing mid-batch.
type Pipeline struct {
	cfg      Config
	oracle   llm.LLMClient
	store    *artifacts.Store
	registry *modes.Registry
	log      *logging.Logger
	tracer   telemetry.Tracer

	// Progress, when set, receives per-sample completion counts from the
	// generation phase so callers can render a live counter.
	Progress func(done, total int)
}

// New builds a Pipeline: validates cfg, creates the output directory, and
// loads the failure-mode registry (embedded criteria unless cfg.ModesFile
// overrides them). A nil logger falls back to the process default, a nil
// tracer to the no-op tracer.
func New(cfg Config, oracle llm.LLMClient, log *logging.Logger, tracer telemetry.Tracer) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logging.Default()
	}
	if tracer == nil {
		tracer = telemetry.NewNopTracer()
	}
	store, err := artifacts.NewStore(cfg.OutputDir)
	if err != nil {
		return nil, err
	}
	registry, err := modes.Load(cfg.ModesFile)
	if err != nil {
		if cfg.ModesFile != "" {
			return nil, &ConfigError{Field: "modes-file", Reason: err.Error()}
		}
		return nil, err
	}
	return &Pipeline{
		cfg:      cfg,
		oracle:   oracle,
		store:    store,
		registry: registry,
		log:      log,
		tracer:   tracer,
	}, nil
}

// Modes returns the active failure-mode registry.
func (p *Pipeline) Modes() *modes.Registry {
	return p.registry
}

// =============================================================================
// Generation Phase
// =============================================================================

// GenerateOutcome summarizes one generation phase.
type GenerateOutcome struct {
	Total       int
	Valid       int
	Invalid     int
	ResultsPath string
	Elapsed     time.Duration
}

// RunGenerate produces cfg.Samples records and persists
// generation_results.json. Failed attempts are recorded in the artifact,
// never dropped; only cancellation aborts the phase.
func (p *Pipeline) RunGenerate(ctx context.Context) (outcome *GenerateOutcome, err error) {
	if err := p.needOracle("generation"); err != nil {
		return nil, err
	}
	ctx, end := p.tracer.StartSpan(ctx, "pipeline.generate", map[string]string{
		"samples": strconv.Itoa(p.cfg.Samples),
		"model":   p.cfg.Model,
	})
	defer func() { end(err) }()

	start := time.Now()
	generator, err := generation.New(p.oracle, p.log, p.cfg.Seed)
	if err != nil {
		return nil, err
	}
	generator.OnProgress = p.Progress
	results, err := generator.Run(ctx, p.cfg.Samples)
	if err != nil {
		return nil, err
	}
	if err = p.store.WriteJSON(artifacts.GenerationResultsFile, results); err != nil {
		return nil, err
	}

	outcome = &GenerateOutcome{
		Total:       len(results),
		ResultsPath: p.store.Path(artifacts.GenerationResultsFile),
		Elapsed:     time.Since(start),
	}
	for _, r := range results {
		if r.IsValid {
			outcome.Valid++
		} else {
			outcome.Invalid++
		}
	}
	p.log.Info("generation phase complete",
		"total", outcome.Total,
		"valid", outcome.Valid,
		"invalid", outcome.Invalid,
		"path", outcome.ResultsPath)
	return outcome, nil
}

// =============================================================================
// Validation Phase
// =============================================================================

// ValidateOutcome summarizes one validation phase.
type ValidateOutcome struct {
	Summary     datatypes.ValidationSummary
	ValidPath   string
	SummaryPath string
	Elapsed     time.Duration
}

// RunValidate re-validates the generation artifact and persists the
// structurally-valid set plus the validation summary. When cfg.InputQA is
// set, the external record file is validated instead, which lets corrected
// or hand-edited datasets re-enter the pipeline under the same checks as
// fresh generation output.
func (p *Pipeline) RunValidate(ctx context.Context) (outcome *ValidateOutcome, err error) {
	_, end := p.tracer.StartSpan(ctx, "pipeline.validate", nil)
	defer func() { end(err) }()

	start := time.Now()
	var results []datatypes.GenerationResult
	if p.cfg.InputQA != "" {
		records, rerr := readRecordsFile(p.cfg.InputQA)
		if rerr != nil {
			return nil, rerr
		}
		results = wrapRecords(records)
	} else {
		if err = p.requireArtifact(artifacts.GenerationResultsFile, "run 'diyrepair generate' first"); err != nil {
			return nil, err
		}
		if err = p.store.ReadJSON(artifacts.GenerationResultsFile, &results); err != nil {
			return nil, err
		}
	}

	out := validation.New(p.log).Run(results)
	if err = p.store.WriteJSON(artifacts.StructurallyValidFile, out.Valid); err != nil {
		return nil, err
	}
	if err = p.store.WriteJSON(artifacts.ValidationSummaryFile, out.Summary); err != nil {
		return nil, err
	}

	outcome = &ValidateOutcome{
		Summary:     out.Summary,
		ValidPath:   p.store.Path(artifacts.StructurallyValidFile),
		SummaryPath: p.store.Path(artifacts.ValidationSummaryFile),
		Elapsed:     time.Since(start),
	}
	p.log.Info("validation phase complete",
		"total", out.Summary.TotalGenerated,
		"valid", out.Summary.ValidSamples,
		"path", outcome.ValidPath)
	return outcome, nil
}

// wrapRecords adapts an externally supplied record list to the generation
// result shape the validator consumes.
func wrapRecords(records []datatypes.QARecord) []datatypes.GenerationResult {
	results := make([]datatypes.GenerationResult, len(records))
	for i := range records {
		results[i] = datatypes.GenerationResult{
			TraceID:      records[i].TraceID,
			TemplateName: records[i].TemplateName,
			QAPair:       &records[i],
			IsValid:      true,
		}
	}
	return results
}

// =============================================================================
// Labeling Phase
// =============================================================================

// LabelOutcome summarizes one labeling phase.
type LabelOutcome struct {
	Rows        int
	Failures    int
	NeedsReview int
	JSONPath    string
	CSVPath     string
	Elapsed     time.Duration
}

// RunLabel judges the structurally-valid artifact against every failure
// mode and persists the label matrix as JSON and CSV. When cfg.InputQA is
// set, that record file is judged instead; this is how a merged dataset
// gets re-labeled to measure the correction loop.
func (p *Pipeline) RunLabel(ctx context.Context) (outcome *LabelOutcome, err error) {
	if err := p.needOracle("labeling"); err != nil {
		return nil, err
	}
	ctx, end := p.tracer.StartSpan(ctx, "pipeline.label", map[string]string{
		"workers": strconv.Itoa(p.cfg.Workers),
		"model":   p.cfg.Model,
	})
	defer func() { end(err) }()

	start := time.Now()
	var records []datatypes.QARecord
	source := p.cfg.InputQA
	if source != "" {
		if records, err = readRecordsFile(source); err != nil {
			return nil, err
		}
	} else {
		if err = p.requireArtifact(artifacts.StructurallyValidFile, "run 'diyrepair validate' first"); err != nil {
			return nil, err
		}
		if err = p.store.ReadJSON(artifacts.StructurallyValidFile, &records); err != nil {
			return nil, err
		}
		source = p.store.Path(artifacts.StructurallyValidFile)
	}
	if len(records) == 0 {
		return nil, &ConfigError{Field: source, Reason: "no records to label"}
	}

	judge, err := labeling.NewJudge(p.oracle, p.registry, p.log, p.cfg.Workers)
	if err != nil {
		return nil, err
	}
	rows, err := judge.Run(ctx, records)
	if err != nil {
		return nil, err
	}
	if err = p.store.WriteJSON(artifacts.FailureLabeledJSONFile, rows); err != nil {
		return nil, err
	}
	if err = p.store.WriteCSV(artifacts.FailureLabeledCSVFile, labeling.LabelCSVHeader(), labeling.LabelCSVRows(rows)); err != nil {
		return nil, err
	}

	outcome = &LabelOutcome{
		Rows:     len(rows),
		JSONPath: p.store.Path(artifacts.FailureLabeledJSONFile),
		CSVPath:  p.store.Path(artifacts.FailureLabeledCSVFile),
		Elapsed:  time.Since(start),
	}
	for i := range rows {
		if rows[i].OverallFailure == 1 {
			outcome.Failures++
		}
		if rows[i].NeedsReview {
			outcome.NeedsReview++
		}
	}
	p.log.Info("labeling phase complete",
		"rows", outcome.Rows,
		"failures", outcome.Failures,
		"needs_review", outcome.NeedsReview,
		"path", outcome.JSONPath)
	return outcome, nil
}

// =============================================================================
// Analysis Phase
// =============================================================================

// AnalyzeOutcome summarizes one analysis phase.
type AnalyzeOutcome struct {
	Report     *analysis.Report
	ReportPath string
	Elapsed    time.Duration
}

// RunAnalyze computes failure statistics from the label matrix and
// persists the analysis report. Pure: no oracle involvement.
func (p *Pipeline) RunAnalyze(ctx context.Context) (outcome *AnalyzeOutcome, err error) {
	_, end := p.tracer.StartSpan(ctx, "pipeline.analyze", nil)
	defer func() { end(err) }()

	start := time.Now()
	if err = p.requireArtifact(artifacts.FailureLabeledJSONFile, "run 'diyrepair label' first"); err != nil {
		return nil, err
	}
	var rows []datatypes.FailureLabelRow
	if err = p.store.ReadJSON(artifacts.FailureLabeledJSONFile, &rows); err != nil {
		return nil, err
	}

	report := analysis.New(p.cfg.TargetFailureRate, p.log).Run(rows)
	if err = p.store.WriteJSON(artifacts.AnalysisReportFile, report); err != nil {
		return nil, err
	}

	outcome = &AnalyzeOutcome{
		Report:     report,
		ReportPath: p.store.Path(artifacts.AnalysisReportFile),
		Elapsed:    time.Since(start),
	}
	p.log.Info("analysis phase complete",
		"samples", report.Summary.TotalSamples,
		"target_met", report.Summary.TargetMet,
		"path", outcome.ReportPath)
	return outcome, nil
}

// =============================================================================
// Correction Phase
// =============================================================================

// CorrectOutcome summarizes one correction phase.
type CorrectOutcome struct {
	FailingRows      int
	ValidCorrections int
	Path             string
	Elapsed          time.Duration
}

// RunCorrect asks the oracle to rewrite every record the judge failed and
// persists the correction attempts, valid or not. Per-record failures are
// recorded and skipped; only cancellation aborts the phase.
func (p *Pipeline) RunCorrect(ctx context.Context) (outcome *CorrectOutcome, err error) {
	if err := p.needOracle("correction"); err != nil {
		return nil, err
	}
	ctx, end := p.tracer.StartSpan(ctx, "pipeline.correct", map[string]string{
		"model": p.cfg.Model,
	})
	defer func() { end(err) }()

	start := time.Now()
	if err = p.requireArtifact(artifacts.FailureLabeledJSONFile, "run 'diyrepair label' first"); err != nil {
		return nil, err
	}
	var rows []datatypes.FailureLabelRow
	if err = p.store.ReadJSON(artifacts.FailureLabeledJSONFile, &rows); err != nil {
		return nil, err
	}

	corrector, err := correction.New(p.oracle, p.registry, p.log)
	if err != nil {
		return nil, err
	}
	corrections, err := corrector.Run(ctx, rows)
	if err != nil {
		return nil, err
	}
	if err = p.store.WriteJSON(artifacts.CorrectedFile, corrections); err != nil {
		return nil, err
	}

	outcome = &CorrectOutcome{
		FailingRows: len(corrections),
		Path:        p.store.Path(artifacts.CorrectedFile),
		Elapsed:     time.Since(start),
	}
	for i := range corrections {
		if corrections[i].IsValid {
			outcome.ValidCorrections++
		}
	}
	p.log.Info("correction phase complete",
		"failing_rows", outcome.FailingRows,
		"valid_corrections", outcome.ValidCorrections,
		"path", outcome.Path)
	return outcome, nil
}

// =============================================================================
// Merge
// =============================================================================

// MergeOutcome summarizes one merge run.
type MergeOutcome struct {
	Summary     merge.Summary
	MergedPath  string
	SummaryPath string
	Elapsed     time.Duration
}

// RunMerge folds valid corrections back into the structurally-valid set
// and persists the merged dataset plus the merge summary. Pure: no oracle
// involvement, and merging the same corrections twice yields an identical
// dataset.
func (p *Pipeline) RunMerge(ctx context.Context) (outcome *MergeOutcome, err error) {
	_, end := p.tracer.StartSpan(ctx, "pipeline.merge", nil)
	defer func() { end(err) }()

	start := time.Now()
	if err = p.requireArtifact(artifacts.StructurallyValidFile, "run 'diyrepair validate' first"); err != nil {
		return nil, err
	}
	if err = p.requireArtifact(artifacts.FailureLabeledJSONFile, "run 'diyrepair label' first"); err != nil {
		return nil, err
	}
	if err = p.requireArtifact(artifacts.CorrectedFile, "run 'diyrepair correct' first"); err != nil {
		return nil, err
	}

	var (
		dataset     []datatypes.QARecord
		labels      []datatypes.FailureLabelRow
		corrections []datatypes.CorrectionRecord
	)
	if err = p.store.ReadJSON(artifacts.StructurallyValidFile, &dataset); err != nil {
		return nil, err
	}
	if err = p.store.ReadJSON(artifacts.FailureLabeledJSONFile, &labels); err != nil {
		return nil, err
	}
	if err = p.store.ReadJSON(artifacts.CorrectedFile, &corrections); err != nil {
		return nil, err
	}

	merged, summary := merge.New(p.log).Run(dataset, labels, corrections)
	if err = p.store.WriteJSON(artifacts.MergedFile, merged); err != nil {
		return nil, err
	}
	if err = p.store.WriteJSON(artifacts.MergeSummaryFile, summary); err != nil {
		return nil, err
	}

	outcome = &MergeOutcome{
		Summary:     summary,
		MergedPath:  p.store.Path(artifacts.MergedFile),
		SummaryPath: p.store.Path(artifacts.MergeSummaryFile),
		Elapsed:     time.Since(start),
	}
	p.log.Info("merge complete",
		"total", summary.TotalRecords,
		"replaced", summary.Replaced,
		"uncorrected", summary.Uncorrected,
		"path", outcome.MergedPath)
	return outcome, nil
}

// =============================================================================
// Comparison
// =============================================================================

// CompareOutcome summarizes one judge-vs-human comparison.
type CompareOutcome struct {
	Comparison *analysis.Comparison
	Path       string
	Elapsed    time.Duration
}

// RunCompare scores the judge's label matrix against human labels and
// persists the agreement report. Pure: no oracle involvement.
func (p *Pipeline) RunCompare(ctx context.Context) (outcome *CompareOutcome, err error) {
	_, end := p.tracer.StartSpan(ctx, "pipeline.compare", nil)
	defer func() { end(err) }()

	start := time.Now()
	if err = p.requireArtifact(artifacts.HumanLabelsFile, "hand-label records into this file first"); err != nil {
		return nil, err
	}
	if err = p.requireArtifact(artifacts.FailureLabeledJSONFile, "run 'diyrepair label' first"); err != nil {
		return nil, err
	}

	var judge []datatypes.FailureLabelRow
	if err = p.store.ReadJSON(artifacts.FailureLabeledJSONFile, &judge); err != nil {
		return nil, err
	}
	var human []datatypes.HumanLabelRow
	if err = p.store.ReadJSON(artifacts.HumanLabelsFile, &human); err != nil {
		return nil, err
	}

	comparison, err := analysis.Compare(judge, human)
	if err != nil {
		return nil, err
	}
	if err = p.store.WriteJSON(artifacts.ComparisonFile, comparison); err != nil {
		return nil, err
	}

	outcome = &CompareOutcome{
		Comparison: comparison,
		Path:       p.store.Path(artifacts.ComparisonFile),
		Elapsed:    time.Since(start),
	}
	p.log.Info("comparison complete",
		"compared_samples", comparison.ComparedSamples,
		"overall_agreement", comparison.OverallAgreement,
		"path", outcome.Path)
	return outcome, nil
}

// =============================================================================
// Stats
// =============================================================================

// GenerationStats counts the generation artifact.
type GenerationStats struct {
	Total       int
	Valid       int
	SuccessRate *float64 // percentage, nil when Total is zero
}

// ValidationStats counts the structurally-valid artifact.
type ValidationStats struct {
	ValidRecords int
	FinalRate    *float64 // percentage of generated records, nil without a generation count
}

// LabelStats counts the label artifact.
type LabelStats struct {
	Rows        int
	Failures    int
	FailureRate *float64 // percentage, nil when Rows is zero
	NeedsReview int
}

// CorrectionStats counts the correction artifact.
type CorrectionStats struct {
	Attempts int
	Valid    int
}

// StatsReport aggregates counts from whatever artifacts exist in the
// output directory. Sections for absent artifacts are nil.
type StatsReport struct {
	Dir         string
	Generation  *GenerationStats
	Validation  *ValidationStats
	Labels      *LabelStats
	Analysis    *analysis.Summary
	Corrections *CorrectionStats
	Merge       *merge.Summary
}

// Stats reads the persisted artifacts and reports their counts. It never
// calls the oracle and writes nothing; an empty output directory yields a
// report with every section nil.
func (p *Pipeline) Stats() (*StatsReport, error) {
	report := &StatsReport{Dir: p.store.Dir()}

	if p.store.Exists(artifacts.GenerationResultsFile) {
		var results []datatypes.GenerationResult
		if err := p.store.ReadJSON(artifacts.GenerationResultsFile, &results); err != nil {
			return nil, err
		}
		gen := &GenerationStats{Total: len(results)}
		for i := range results {
			if results[i].IsValid {
				gen.Valid++
			}
		}
		gen.SuccessRate = percentage(gen.Valid, gen.Total)
		report.Generation = gen
	}

	if p.store.Exists(artifacts.StructurallyValidFile) {
		var valid []datatypes.QARecord
		if err := p.store.ReadJSON(artifacts.StructurallyValidFile, &valid); err != nil {
			return nil, err
		}
		vs := &ValidationStats{ValidRecords: len(valid)}
		if report.Generation != nil {
			vs.FinalRate = percentage(len(valid), report.Generation.Total)
		}
		report.Validation = vs
	}

	if p.store.Exists(artifacts.FailureLabeledJSONFile) {
		var rows []datatypes.FailureLabelRow
		if err := p.store.ReadJSON(artifacts.FailureLabeledJSONFile, &rows); err != nil {
			return nil, err
		}
		ls := &LabelStats{Rows: len(rows)}
		for i := range rows {
			if rows[i].OverallFailure == 1 {
				ls.Failures++
			}
			if rows[i].NeedsReview {
				ls.NeedsReview++
			}
		}
		ls.FailureRate = percentage(ls.Failures, ls.Rows)
		report.Labels = ls
	}

	if p.store.Exists(artifacts.AnalysisReportFile) {
		// The full report does not round-trip (pattern maps are
		// write-only ordered objects); the summary section is enough
		// for stats.
		var stored struct {
			Summary analysis.Summary `json:"summary"`
		}
		if err := p.store.ReadJSON(artifacts.AnalysisReportFile, &stored); err != nil {
			return nil, err
		}
		report.Analysis = &stored.Summary
	}

	if p.store.Exists(artifacts.CorrectedFile) {
		var corrections []datatypes.CorrectionRecord
		if err := p.store.ReadJSON(artifacts.CorrectedFile, &corrections); err != nil {
			return nil, err
		}
		cs := &CorrectionStats{Attempts: len(corrections)}
		for i := range corrections {
			if corrections[i].IsValid {
				cs.Valid++
			}
		}
		report.Corrections = cs
	}

	if p.store.Exists(artifacts.MergeSummaryFile) {
		var summary merge.Summary
		if err := p.store.ReadJSON(artifacts.MergeSummaryFile, &summary); err != nil {
			return nil, err
		}
		report.Merge = &summary
	}

	return report, nil
}

// percentage returns count as a percentage of total, nil when total is
// zero. Empty inputs report "undefined", never a zero rate.
func percentage(count, total int) *float64 {
	if total == 0 {
		return nil
	}
	v := float64(count) / float64(total) * 100
	return &v
}

// =============================================================================
// Helpers
// =============================================================================

// requireArtifact turns a missing predecessor artifact into a ConfigError
// before the phase does any work.
func (p *Pipeline) requireArtifact(name, hint string) error {
	if !p.store.Exists(name) {
		return &ConfigError{
			Field:  name,
			Reason: fmt.Sprintf("not found in %s; %s", p.store.Dir(), hint),
		}
	}
	return nil
}

// needOracle guards the phases that call the oracle.
func (p *Pipeline) needOracle(phase string) error {
	if p.oracle == nil {
		return &ConfigError{
			Field:  "model",
			Reason: fmt.Sprintf("the %s phase needs an oracle client and none is configured", phase),
		}
	}
	return nil
}

// readRecordsFile loads the record list named by --input-qa.
func readRecordsFile(path string) ([]datatypes.QARecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &ConfigError{Field: "input-qa", Reason: fmt.Sprintf("file %s does not exist", path)}
		}
		return nil, &artifacts.StoreError{Op: "read", Path: path, Err: err}
	}
	var records []datatypes.QARecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, &artifacts.StoreError{Op: "read", Path: path, Err: err}
	}
	return records, nil
}
