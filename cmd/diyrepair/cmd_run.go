// Copyright (C) 2025 dubistdu
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dubistdu/synthetic-data-home-diy-repair/pkg/logging"
	"github.com/dubistdu/synthetic-data-home-diy-repair/pkg/telemetry"
	"github.com/dubistdu/synthetic-data-home-diy-repair/pkg/ux"
	"github.com/dubistdu/synthetic-data-home-diy-repair/services/llm"
	"github.com/dubistdu/synthetic-data-home-diy-repair/services/pipeline"
)

// spanFileName is where --trace writes exported spans, relative to the
// output directory.
const spanFileName = "trace_spans.jsonl"

var (
	appLog    *logging.Logger
	appTracer telemetry.Tracer
)

// readOnlyCommands never write artifacts; their runs skip the per-run log
// file and span file so inspecting a directory leaves it untouched.
var readOnlyCommands = map[string]bool{
	"stats": true,
	"modes": true,
}

// initRuntime is the root PersistentPreRunE: output mode, logger, and the
// optional span exporter, all derived from the global flags.
func initRuntime(cmd *cobra.Command, args []string) error {
	if quiet {
		ux.SetMode(ux.ModePlain)
	} else {
		ux.InitMode()
	}

	logDir := outputDir
	if readOnlyCommands[cmd.Name()] {
		logDir = ""
	}
	level, levelErr := logging.ParseLevel(logLevel)
	appLog = logging.New(logging.Config{
		Level:   level,
		LogDir:  logDir,
		Service: "diyrepair",
		Quiet:   quiet,
	})
	if levelErr != nil {
		appLog.Warn("unknown log level, using info", "value", logLevel)
	}

	if enableTrace && !readOnlyCommands[cmd.Name()] {
		tracer, err := telemetry.NewStdoutTracer(cmd.Context(), telemetry.Config{
			ServiceName: "diyrepair",
			Path:        filepath.Join(outputDir, spanFileName),
		})
		if err != nil {
			return err
		}
		appTracer = tracer
	}
	return nil
}

// closeRuntime flushes the span exporter and the log file. Called from
// main on both the success and the error path.
func closeRuntime() {
	if appTracer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := appTracer.Shutdown(ctx); err != nil {
			appLog.Warn("span exporter shutdown failed", "error", err)
		}
		cancel()
	}
	if appLog != nil {
		appLog.Close()
	}
}

// pipelineConfig materializes the global flags into a pipeline Config.
func pipelineConfig() pipeline.Config {
	cfg := pipeline.DefaultConfig()
	cfg.Samples = samples
	cfg.Seed = seed
	cfg.Model = model
	cfg.OutputDir = outputDir
	cfg.InputQA = inputQA
	cfg.TargetFailureRate = targetRate
	cfg.Workers = workers
	cfg.ModesFile = modesFile
	return cfg
}

// buildPipeline assembles a Pipeline from the global flags. The OpenAI
// client is only constructed when the requested phases call the oracle, so
// pure phases run without an API key.
func buildPipeline(needOracle bool) (*pipeline.Pipeline, error) {
	cfg := pipelineConfig()

	var oracle llm.LLMClient
	if needOracle {
		client, err := llm.NewOpenAIClient(llm.ClientConfig{
			Model:              cfg.Model,
			RequestTimeout:     cfg.RequestTimeout,
			MinRequestInterval: cfg.MinRequestInterval,
		})
		if err != nil {
			return nil, err
		}
		oracle = client
	}
	return pipeline.New(cfg, oracle, appLog, appTracer)
}

// =============================================================================
// run
// =============================================================================

func runPipeline(cmd *cobra.Command, args []string) error {
	phases, err := pipeline.PhaseRange(pipeline.Phase(fromPhase), pipeline.Phase(untilPhase))
	if err != nil {
		return err
	}
	p, err := buildPipeline(oracleNeeded(phases))
	if err != nil {
		return err
	}

	ux.Title("DIY Repair Synthetic Data Pipeline")
	ux.Muted(fmt.Sprintf("Phases: %s  Output: %s", joinPhases(phases), outputDir))

	for _, ph := range phases {
		if err := runPhase(cmd.Context(), p, ph); err != nil {
			return err
		}
	}
	ux.Success("All phases completed")
	return nil
}

// oracleNeeded reports whether any phase in the range calls the oracle.
func oracleNeeded(phases []pipeline.Phase) bool {
	for _, ph := range phases {
		if ph.NeedsOracle() {
			return true
		}
	}
	return false
}

func joinPhases(phases []pipeline.Phase) string {
	names := make([]string, len(phases))
	for i, ph := range phases {
		names[i] = string(ph)
	}
	return strings.Join(names, ", ")
}

// =============================================================================
// Single-phase commands
// =============================================================================

func runGenerate(cmd *cobra.Command, args []string) error {
	return runSingle(cmd, pipeline.PhaseGenerate)
}

func runValidate(cmd *cobra.Command, args []string) error {
	return runSingle(cmd, pipeline.PhaseValidate)
}

func runLabel(cmd *cobra.Command, args []string) error {
	return runSingle(cmd, pipeline.PhaseLabel)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	return runSingle(cmd, pipeline.PhaseAnalyze)
}

func runCorrect(cmd *cobra.Command, args []string) error {
	return runSingle(cmd, pipeline.PhaseCorrect)
}

func runSingle(cmd *cobra.Command, ph pipeline.Phase) error {
	p, err := buildPipeline(ph.NeedsOracle())
	if err != nil {
		return err
	}
	return runPhase(cmd.Context(), p, ph)
}

// =============================================================================
// Phase handlers
// =============================================================================

func runPhase(ctx context.Context, p *pipeline.Pipeline, ph pipeline.Phase) error {
	switch ph {
	case pipeline.PhaseGenerate:
		return generatePhase(ctx, p)
	case pipeline.PhaseValidate:
		return validatePhase(ctx, p)
	case pipeline.PhaseLabel:
		return labelPhase(ctx, p)
	case pipeline.PhaseAnalyze:
		return analyzePhase(ctx, p)
	case pipeline.PhaseCorrect:
		return correctPhase(ctx, p)
	}
	return fmt.Errorf("no handler for phase %q", ph)
}

func generatePhase(ctx context.Context, p *pipeline.Pipeline) error {
	spin := ux.NewProgressSpinner(fmt.Sprintf("Generating QA records with %s", model), samples)
	spin.Start()
	p.Progress = func(done, total int) { spin.SetProgress(done) }
	out, err := p.RunGenerate(ctx)
	p.Progress = nil
	if err != nil {
		spin.StopWithError("Generation failed")
		return err
	}
	spin.StopWithSuccess(fmt.Sprintf("Generated %d records in %s", out.Total, roundElapsed(out.Elapsed)))

	ux.PhaseSummary("Generation", []ux.SummaryRow{
		{Label: "Total generated", Value: strconv.Itoa(out.Total)},
		{Label: "Initially valid", Value: strconv.Itoa(out.Valid)},
		{Label: "Initial success rate", Value: formatPercent(percentOf(out.Valid, out.Total))},
		{Label: "Results file", Value: out.ResultsPath},
	})
	return nil
}

func validatePhase(ctx context.Context, p *pipeline.Pipeline) error {
	out, err := p.RunValidate(ctx)
	if err != nil {
		ux.Error("Validation failed")
		return err
	}

	rows := []ux.SummaryRow{
		{Label: "Total checked", Value: strconv.Itoa(out.Summary.TotalGenerated)},
		{Label: "Structurally valid", Value: strconv.Itoa(out.Summary.ValidSamples)},
		{Label: "Validation rate", Value: fmt.Sprintf("%.1f%%", out.Summary.ValidationRate)},
		{Label: "Valid records file", Value: out.ValidPath},
	}
	ux.PhaseSummary("Validation", rows)
	for i, msg := range out.Summary.CommonErrors {
		if i == 3 {
			break
		}
		ux.Warning(msg)
	}
	return nil
}

func labelPhase(ctx context.Context, p *pipeline.Pipeline) error {
	spin := ux.NewSpinner(fmt.Sprintf("Judging records against failure modes with %s", model))
	spin.Start()
	out, err := p.RunLabel(ctx)
	if err != nil {
		spin.StopWithError("Labeling failed")
		return err
	}
	spin.StopWithSuccess(fmt.Sprintf("Labeled %d records in %s", out.Rows, roundElapsed(out.Elapsed)))

	ux.PhaseSummary("Failure Labeling", []ux.SummaryRow{
		{Label: "Records judged", Value: strconv.Itoa(out.Rows)},
		{Label: "Flagged as failed", Value: strconv.Itoa(out.Failures)},
		{Label: "Failure rate", Value: formatPercent(percentOf(out.Failures, out.Rows))},
		{Label: "Needs review", Value: strconv.Itoa(out.NeedsReview)},
		{Label: "Label file", Value: out.JSONPath},
	})
	return nil
}

func analyzePhase(ctx context.Context, p *pipeline.Pipeline) error {
	out, err := p.RunAnalyze(ctx)
	if err != nil {
		ux.Error("Analysis failed")
		return err
	}

	summary := out.Report.Summary
	rows := []ux.SummaryRow{
		{Label: "Samples analyzed", Value: strconv.Itoa(summary.TotalSamples)},
		{Label: "Overall failure rate", Value: formatFraction(summary.OverallFailureRate)},
		{Label: "Target failure rate", Value: fmt.Sprintf("%.1f%%", summary.TargetFailureRate*100)},
		{Label: "Target met", Value: yesNo(summary.TargetMet)},
		{Label: "Report file", Value: out.ReportPath},
	}
	if len(summary.MostCommonFailures) > 0 {
		rows = append(rows, ux.SummaryRow{
			Label: "Most common failure",
			Value: summary.MostCommonFailures[0],
		})
	}
	ux.PhaseSummary("Failure Analysis", rows)
	return nil
}

func correctPhase(ctx context.Context, p *pipeline.Pipeline) error {
	spin := ux.NewSpinner(fmt.Sprintf("Correcting failed records with %s", model))
	spin.Start()
	out, err := p.RunCorrect(ctx)
	if err != nil {
		spin.StopWithError("Correction failed")
		return err
	}
	spin.StopWithSuccess(fmt.Sprintf("Corrected %d of %d failed records in %s",
		out.ValidCorrections, out.FailingRows, roundElapsed(out.Elapsed)))

	ux.PhaseSummary("Correction", []ux.SummaryRow{
		{Label: "Failed records", Value: strconv.Itoa(out.FailingRows)},
		{Label: "Valid corrections", Value: strconv.Itoa(out.ValidCorrections)},
		{Label: "Corrections file", Value: out.Path},
	})
	if out.FailingRows == 0 {
		ux.Info("No failed records; nothing to correct")
	}
	return nil
}

func roundElapsed(d time.Duration) time.Duration {
	if d < time.Second {
		return d.Round(time.Millisecond)
	}
	return d.Round(time.Second)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
