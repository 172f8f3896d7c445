// Copyright (C) 2025 dubistdu
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package labeling

import (
	"strconv"
	"strings"

	"github.com/dubistdu/synthetic-data-home-diy-repair/services/pipeline/datatypes"
)

// csvListSeparator joins list fields in the CSV export. The JSON artifact
// stays the machine-readable one; the CSV is a review surface.
const csvListSeparator = "; "

// LabelCSVHeader returns the flat export columns: identity and record
// fields, one verdict/response pair per mode in canonical order, then the
// aggregates.
func LabelCSVHeader() []string {
	header := []string{
		"trace_id", "question", "answer", "equipment_problem",
		"tools_required", "steps", "safety_info", "tips",
	}
	for _, mode := range datatypes.FailureModeNames {
		header = append(header, mode, mode+"_response")
	}
	return append(header, "overall_failure", "failure_count", "needs_review")
}

// LabelCSVRows flattens label rows for the CSV export, one CSV row per
// label row, columns matching LabelCSVHeader.
func LabelCSVRows(rows []datatypes.FailureLabelRow) [][]string {
	out := make([][]string, 0, len(rows))
	for i := range rows {
		row := &rows[i]
		fields := []string{
			row.TraceID,
			row.Question,
			row.Answer,
			row.EquipmentProblem,
			strings.Join(row.ToolsRequired, csvListSeparator),
			strings.Join(row.Steps, csvListSeparator),
			row.SafetyInfo,
			row.Tips,
		}
		for _, mode := range datatypes.FailureModeNames {
			fields = append(fields,
				strconv.Itoa(row.Verdict(mode)),
				row.Response(mode))
		}
		fields = append(fields,
			strconv.Itoa(row.OverallFailure),
			strconv.Itoa(row.FailureCount),
			strconv.FormatBool(row.NeedsReview))
		out = append(out, fields)
	}
	return out
}
