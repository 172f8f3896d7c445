// Copyright (C) 2025 dubistdu
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"testing"
	"time"

	"github.com/dubistdu/synthetic-data-home-diy-repair/services/pipeline"
)

func TestCommandRegistration(t *testing.T) {
	want := []string{
		"run", "generate", "validate", "label", "analyze", "correct",
		"merge", "compare", "stats", "modes",
	}
	registered := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		registered[cmd.Name()] = true
	}
	for _, name := range want {
		if !registered[name] {
			t.Errorf("command %q not registered on root", name)
		}
	}
}

func TestRunFlagDefaults(t *testing.T) {
	// Defaults come from the flag definitions, not the mutable globals.
	cases := []struct {
		flag string
		want string
	}{
		{"from", "generate"},
		{"until", "correct"},
	}
	for _, tc := range cases {
		f := runCmd.Flags().Lookup(tc.flag)
		if f == nil {
			t.Fatalf("run has no --%s flag", tc.flag)
		}
		if f.DefValue != tc.want {
			t.Errorf("--%s default = %q, want %q", tc.flag, f.DefValue, tc.want)
		}
	}
}

func TestGlobalFlagDefaults(t *testing.T) {
	cases := []struct {
		flag string
		want string
	}{
		{"samples", "20"},
		{"model", "gpt-4o-mini"},
		{"output-dir", "data"},
		{"workers", "4"},
		{"log-level", "info"},
		{"quiet", "false"},
		{"trace", "false"},
	}
	for _, tc := range cases {
		f := rootCmd.PersistentFlags().Lookup(tc.flag)
		if f == nil {
			t.Fatalf("root has no --%s flag", tc.flag)
		}
		if f.DefValue != tc.want {
			t.Errorf("--%s default = %q, want %q", tc.flag, f.DefValue, tc.want)
		}
	}
}

func TestPipelineConfigFromFlags(t *testing.T) {
	restore := snapshotFlags()
	defer restore()

	samples = 7
	seed = 42
	model = "gpt-4o"
	outputDir = "/tmp/out"
	inputQA = "external.json"
	targetRate = 0.25
	workers = 2
	modesFile = "modes.yaml"

	cfg := pipelineConfig()
	if cfg.Samples != 7 || cfg.Seed != 42 {
		t.Errorf("samples/seed = %d/%d, want 7/42", cfg.Samples, cfg.Seed)
	}
	if cfg.Model != "gpt-4o" {
		t.Errorf("model = %q", cfg.Model)
	}
	if cfg.OutputDir != "/tmp/out" {
		t.Errorf("output dir = %q", cfg.OutputDir)
	}
	if cfg.InputQA != "external.json" {
		t.Errorf("input qa = %q", cfg.InputQA)
	}
	if cfg.TargetFailureRate != 0.25 {
		t.Errorf("target rate = %v", cfg.TargetFailureRate)
	}
	if cfg.Workers != 2 {
		t.Errorf("workers = %d", cfg.Workers)
	}
	if cfg.ModesFile != "modes.yaml" {
		t.Errorf("modes file = %q", cfg.ModesFile)
	}
	// Timeouts are not flag-controlled and keep package defaults.
	if cfg.RequestTimeout <= 0 || cfg.MinRequestInterval <= 0 {
		t.Errorf("timeouts not defaulted: %v / %v", cfg.RequestTimeout, cfg.MinRequestInterval)
	}
}

func snapshotFlags() func() {
	prevSamples, prevSeed, prevModel := samples, seed, model
	prevOut, prevInput, prevModes := outputDir, inputQA, modesFile
	prevRate, prevWorkers := targetRate, workers
	return func() {
		samples, seed, model = prevSamples, prevSeed, prevModel
		outputDir, inputQA, modesFile = prevOut, prevInput, prevModes
		targetRate, workers = prevRate, prevWorkers
	}
}

func TestOracleNeeded(t *testing.T) {
	cases := []struct {
		name   string
		phases []pipeline.Phase
		want   bool
	}{
		{"full range", pipeline.Phases, true},
		{"pure middle", []pipeline.Phase{pipeline.PhaseValidate, pipeline.PhaseAnalyze}, false},
		{"label only", []pipeline.Phase{pipeline.PhaseLabel}, true},
		{"empty", nil, false},
	}
	for _, tc := range cases {
		if got := oracleNeeded(tc.phases); got != tc.want {
			t.Errorf("%s: oracleNeeded = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestJoinPhases(t *testing.T) {
	got := joinPhases([]pipeline.Phase{pipeline.PhaseValidate, pipeline.PhaseLabel})
	if got != "validate, label" {
		t.Errorf("joinPhases = %q", got)
	}
}

func TestRoundElapsed(t *testing.T) {
	if got := roundElapsed(1234 * time.Microsecond); got != time.Millisecond {
		t.Errorf("sub-second rounding = %v", got)
	}
	if got := roundElapsed(90*time.Second + 400*time.Millisecond); got != 90*time.Second {
		t.Errorf("second rounding = %v", got)
	}
}
