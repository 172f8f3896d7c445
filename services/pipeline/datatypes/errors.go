// Copyright (C) 2025 dubistdu
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import "strings"

// StructuralError reports schema violations found on a single record.
//
// Record-level failures never abort a batch: callers record the reasons in
// the phase artifact and continue. Reasons are phrased against JSON field
// names so they can be persisted and counted verbatim.
type StructuralError struct {
	// TraceID of the offending record; empty when the record was never
	// assigned one (e.g. freshly parsed oracle output).
	TraceID string

	// Reasons holds one message per failed constraint.
	Reasons []string
}

func (e *StructuralError) Error() string {
	msg := "structural validation failed"
	if e.TraceID != "" {
		msg += " for " + e.TraceID
	}
	if len(e.Reasons) > 0 {
		msg += ": " + strings.Join(e.Reasons, "; ")
	}
	return msg
}
