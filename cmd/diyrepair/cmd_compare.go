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

	"github.com/spf13/cobra"

	"github.com/dubistdu/synthetic-data-home-diy-repair/pkg/ux"
	"github.com/dubistdu/synthetic-data-home-diy-repair/services/pipeline/datatypes"
)

func runCompare(cmd *cobra.Command, args []string) error {
	p, err := buildPipeline(false)
	if err != nil {
		return err
	}
	out, err := p.RunCompare(cmd.Context())
	if err != nil {
		ux.Error("Comparison failed")
		return err
	}

	comparison := out.Comparison
	overall := comparison.OverallAgreement
	ux.PhaseSummary("Judge vs Human", []ux.SummaryRow{
		{Label: "Compared samples", Value: strconv.Itoa(comparison.ComparedSamples)},
		{Label: "Overall agreement", Value: formatFraction(&overall)},
		{Label: "Report file", Value: out.Path},
	})

	fmt.Println("Per-mode accuracy:")
	for _, name := range datatypes.FailureModeNames {
		mode, ok := comparison.Modes[name]
		if !ok {
			continue
		}
		fmt.Printf("  %-26s accuracy %-6s precision %-6s recall %-6s f1 %s\n",
			name,
			formatFraction(mode.Accuracy),
			formatFraction(mode.Precision),
			formatFraction(mode.Recall),
			formatFraction(mode.F1))
	}
	return nil
}
