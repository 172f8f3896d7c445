// Copyright (C) 2025 dubistdu
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package telemetry

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNopTracer(t *testing.T) {
	tracer := NewNopTracer()
	ctx := context.Background()

	spanCtx, finish := tracer.StartSpan(ctx, "phase.generate", map[string]string{"samples": "10"})
	if spanCtx != ctx {
		t.Error("NopTracer should return the context unchanged")
	}
	finish(nil)
	finish(errors.New("double finish must not panic"))

	if got := tracer.TraceID(spanCtx); got != "" {
		t.Errorf("NopTracer.TraceID() = %q, want empty", got)
	}
	if err := tracer.Shutdown(ctx); err != nil {
		t.Errorf("NopTracer.Shutdown() error = %v", err)
	}
}

func TestStdoutTracer_ExportsSpan(t *testing.T) {
	var buf bytes.Buffer
	ctx := context.Background()

	tracer, err := NewStdoutTracer(ctx, Config{Writer: &buf})
	if err != nil {
		t.Fatalf("NewStdoutTracer() error = %v", err)
	}

	spanCtx, finish := tracer.StartSpan(ctx, "phase.validate", map[string]string{"records": "5"})
	traceID := tracer.TraceID(spanCtx)
	if len(traceID) != 32 {
		t.Errorf("TraceID length = %d, want 32", len(traceID))
	}
	finish(nil)

	if err := tracer.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "phase.validate") {
		t.Errorf("exported spans missing span name, got: %s", out)
	}
	if !strings.Contains(out, "records") {
		t.Errorf("exported spans missing attribute, got: %s", out)
	}
}

func TestStdoutTracer_ErrorStatus(t *testing.T) {
	var buf bytes.Buffer
	ctx := context.Background()

	tracer, err := NewStdoutTracer(ctx, Config{Writer: &buf})
	if err != nil {
		t.Fatalf("NewStdoutTracer() error = %v", err)
	}

	_, finish := tracer.StartSpan(ctx, "phase.label", nil)
	finish(errors.New("judge unavailable"))

	if err := tracer.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if !strings.Contains(buf.String(), "judge unavailable") {
		t.Errorf("exported spans missing recorded error, got: %s", buf.String())
	}
}

func TestStdoutTracer_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spans.json")
	ctx := context.Background()

	tracer, err := NewStdoutTracer(ctx, Config{Path: path})
	if err != nil {
		t.Fatalf("NewStdoutTracer() error = %v", err)
	}
	_, finish := tracer.StartSpan(ctx, "phase.analyze", nil)
	finish(nil)
	if err := tracer.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading span file: %v", err)
	}
	if !strings.Contains(string(data), "phase.analyze") {
		t.Errorf("span file missing span, got: %s", data)
	}
}
