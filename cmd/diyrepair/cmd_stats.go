// Copyright (C) 2025 dubistdu
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dubistdu/synthetic-data-home-diy-repair/services/pipeline"
)

const noResultsMessage = "No results files found. Run the generation phase first."

// runStats reports counts from whatever result files exist. Read-only: it
// never calls the oracle and exits 0 even when there is nothing to report.
func runStats(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		outputDir = args[0]
	}
	if _, err := os.Stat(outputDir); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Println(noResultsMessage)
			return nil
		}
		return err
	}

	p, err := buildPipeline(false)
	if err != nil {
		return err
	}
	report, err := p.Stats()
	if err != nil {
		return err
	}
	fmt.Print(renderStats(report))
	return nil
}

// renderStats formats a stats report section by section, skipping sections
// whose artifact is absent. Undefined rates print as n/a, never as 0.
func renderStats(report *pipeline.StatsReport) string {
	if report.Generation == nil && report.Validation == nil && report.Labels == nil &&
		report.Analysis == nil && report.Corrections == nil && report.Merge == nil {
		return noResultsMessage + "\n"
	}

	var b strings.Builder

	if report.Generation != nil {
		fmt.Fprintln(&b, "Generation Results Summary:")
		fmt.Fprintf(&b, "  Total generated: %d\n", report.Generation.Total)
		fmt.Fprintf(&b, "  Initially valid: %d\n", report.Generation.Valid)
		fmt.Fprintf(&b, "  Initial success rate: %s\n", formatPercent(report.Generation.SuccessRate))
		if report.Validation != nil {
			fmt.Fprintf(&b, "  Final valid after validation: %d\n", report.Validation.ValidRecords)
			fmt.Fprintf(&b, "  Final success rate: %s\n", formatPercent(report.Validation.FinalRate))
		}
	} else if report.Validation != nil {
		fmt.Fprintln(&b, "Validation:")
		fmt.Fprintf(&b, "  Structurally valid records: %d\n", report.Validation.ValidRecords)
	}

	if report.Labels != nil {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "Failure Labels:")
		fmt.Fprintf(&b, "  Records judged: %d\n", report.Labels.Rows)
		fmt.Fprintf(&b, "  Flagged as failed: %d\n", report.Labels.Failures)
		fmt.Fprintf(&b, "  Failure rate: %s\n", formatPercent(report.Labels.FailureRate))
		fmt.Fprintf(&b, "  Needs review: %d\n", report.Labels.NeedsReview)
	}

	if report.Analysis != nil {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "Analysis:")
		fmt.Fprintf(&b, "  Samples analyzed: %d\n", report.Analysis.TotalSamples)
		fmt.Fprintf(&b, "  Overall failure rate: %s\n", formatFraction(report.Analysis.OverallFailureRate))
		fmt.Fprintf(&b, "  Target failure rate: %.1f%%\n", report.Analysis.TargetFailureRate*100)
		fmt.Fprintf(&b, "  Target met: %s\n", yesNo(report.Analysis.TargetMet))
	}

	if report.Corrections != nil {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "Corrections:")
		fmt.Fprintf(&b, "  Attempted: %d\n", report.Corrections.Attempts)
		fmt.Fprintf(&b, "  Valid: %d\n", report.Corrections.Valid)
	}

	if report.Merge != nil {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "Merged Dataset:")
		fmt.Fprintf(&b, "  Total records: %d\n", report.Merge.TotalRecords)
		fmt.Fprintf(&b, "  Replaced with corrections: %d\n", report.Merge.Replaced)
		fmt.Fprintf(&b, "  Still uncorrected: %d\n", report.Merge.Uncorrected)
	}

	return b.String()
}

// =============================================================================
// Rate formatting
// =============================================================================

// percentOf returns count as a percentage of total, nil for an empty total.
func percentOf(count, total int) *float64 {
	if total == 0 {
		return nil
	}
	v := float64(count) / float64(total) * 100
	return &v
}

// formatPercent renders a percentage already scaled to 0-100. A nil value
// is an undefined rate and prints as n/a.
func formatPercent(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", *v)
}

// formatFraction renders a 0-1 fraction as a percentage, n/a when nil.
func formatFraction(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", *v*100)
}
