// Copyright (C) 2025 dubistdu
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"github.com/dubistdu/synthetic-data-home-diy-repair/services/pipeline"
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	samples     int
	seed        int64
	model       string
	outputDir   string
	inputQA     string
	targetRate  float64
	workers     int
	modesFile   string
	quiet       bool
	enableTrace bool
	logLevel    string

	fromPhase  string // first phase for `run --from`
	untilPhase string // last phase for `run --until`

	rootCmd = &cobra.Command{
		Use:   "diyrepair",
		Short: "Synthetic DIY home repair QA dataset pipeline",
		Long: `diyrepair builds a synthetic question/answer dataset for DIY home
				repair. It generates records with an LLM, validates their structure,
				judges them against six failure modes, analyzes the failure
				distribution, and rewrites the records that failed.

				Every phase persists its results as JSON under the output directory,
				so each phase can also be re-run standalone from those files.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: initRuntime, // Defined in cmd_run.go
	}

	// --- Pipeline ---
	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline phases in order",
		Args:  cobra.NoArgs,
		RunE:  runPipeline, // Defined in cmd_run.go
	}
	generateCmd = &cobra.Command{
		Use:   "generate",
		Short: "Generate synthetic QA records with the oracle",
		Args:  cobra.NoArgs,
		RunE:  runGenerate, // Defined in cmd_run.go
	}
	validateCmd = &cobra.Command{
		Use:   "validate",
		Short: "Keep the structurally valid records from the generation results",
		Args:  cobra.NoArgs,
		RunE:  runValidate, // Defined in cmd_run.go
	}
	labelCmd = &cobra.Command{
		Use:   "label",
		Short: "Judge every record against the failure-mode criteria",
		Args:  cobra.NoArgs,
		RunE:  runLabel, // Defined in cmd_run.go
	}
	analyzeCmd = &cobra.Command{
		Use:   "analyze",
		Short: "Compute failure statistics from the label matrix",
		Args:  cobra.NoArgs,
		RunE:  runAnalyze, // Defined in cmd_run.go
	}
	correctCmd = &cobra.Command{
		Use:   "correct",
		Short: "Rewrite the records the judge failed",
		Args:  cobra.NoArgs,
		RunE:  runCorrect, // Defined in cmd_run.go
	}

	// --- Dataset Maintenance ---
	mergeCmd = &cobra.Command{
		Use:   "merge",
		Short: "Fold valid corrections back into the dataset",
		Args:  cobra.NoArgs,
		RunE:  runMerge, // Defined in cmd_merge.go
	}
	compareCmd = &cobra.Command{
		Use:   "compare",
		Short: "Score the judge's labels against human labels",
		Args:  cobra.NoArgs,
		RunE:  runCompare, // Defined in cmd_compare.go
	}

	// --- Inspection ---
	statsCmd = &cobra.Command{
		Use:   "stats [output-dir]",
		Short: "Print counts from existing result files",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runStats, // Defined in cmd_stats.go
	}
	modesCmd = &cobra.Command{
		Use:   "modes",
		Short: "Print the active failure-mode criteria",
		Args:  cobra.NoArgs,
		RunE:  runModes, // Defined in cmd_modes.go
	}
)

// init runs when the Go program starts
func init() {
	defaults := pipeline.DefaultConfig()

	rootCmd.PersistentFlags().IntVar(&samples, "samples", defaults.Samples,
		"Number of QA records to generate")
	rootCmd.PersistentFlags().Int64Var(&seed, "seed", 0,
		"Template rotation seed (0 starts at the first template)")
	rootCmd.PersistentFlags().StringVar(&model, "model", defaults.Model,
		"Chat completion model for all oracle calls")
	rootCmd.PersistentFlags().StringVar(&outputDir, "output-dir", defaults.OutputDir,
		"Directory for result files")
	rootCmd.PersistentFlags().StringVar(&inputQA, "input-qa", "",
		"QA record file for validate/label instead of the stored artifact")
	rootCmd.PersistentFlags().Float64Var(&targetRate, "target-rate", defaults.TargetFailureRate,
		"Target overall failure rate checked by the analysis phase")
	rootCmd.PersistentFlags().IntVar(&workers, "workers", defaults.Workers,
		"Concurrent records during labeling")
	rootCmd.PersistentFlags().StringVar(&modesFile, "modes-file", "",
		"YAML file replacing the embedded failure-mode criteria")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false,
		"Suppress stderr logs and styled output")
	rootCmd.PersistentFlags().BoolVar(&enableTrace, "trace", false,
		"Export OpenTelemetry spans to a file in the output directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"Minimum log level (debug, info, warn, error)")

	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&fromPhase, "from", string(pipeline.PhaseGenerate),
		"First phase to run")
	runCmd.Flags().StringVar(&untilPhase, "until", string(pipeline.PhaseCorrect),
		"Last phase to run")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(labelCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(correctCmd)

	rootCmd.AddCommand(mergeCmd)
	rootCmd.AddCommand(compareCmd)

	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(modesCmd)
}
