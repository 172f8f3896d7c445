// Copyright (C) 2025 dubistdu
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dubistdu/synthetic-data-home-diy-repair/pkg/ux"
)

func runMerge(cmd *cobra.Command, args []string) error {
	p, err := buildPipeline(false)
	if err != nil {
		return err
	}
	out, err := p.RunMerge(cmd.Context())
	if err != nil {
		ux.Error("Merge failed")
		return err
	}

	summary := out.Summary
	ux.PhaseSummary("Merge", []ux.SummaryRow{
		{Label: "Total records", Value: strconv.Itoa(summary.TotalRecords)},
		{Label: "Replaced", Value: strconv.Itoa(summary.Replaced)},
		{Label: "Untouched", Value: strconv.Itoa(summary.Untouched)},
		{Label: "Still uncorrected", Value: strconv.Itoa(summary.Uncorrected)},
		{Label: "Merged dataset", Value: out.MergedPath},
	})
	if summary.Uncorrected > 0 {
		ux.Warning(fmt.Sprintf("%d failed record(s) kept without a valid correction: %s",
			summary.Uncorrected, previewTraces(summary.UncorrectedTraces)))
	}
	return nil
}

// previewTraces lists up to three trace IDs and summarizes the rest.
func previewTraces(traces []string) string {
	const max = 3
	if len(traces) <= max {
		return strings.Join(traces, ", ")
	}
	return fmt.Sprintf("%s, and %d more", strings.Join(traces[:max], ", "), len(traces)-max)
}
