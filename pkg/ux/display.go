// Copyright (C) 2025 dubistdu
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
)

// OutputMode controls how much styling reaches the terminal.
type OutputMode string

const (
	// ModeStyled enables colors, icons, and boxes.
	ModeStyled OutputMode = "styled"

	// ModePlain outputs prefix-tagged plain text suitable for piping
	// and log capture.
	ModePlain OutputMode = "plain"
)

var (
	currentMode = ModeStyled
	modeMu      sync.RWMutex
)

// GetMode returns the current output mode.
func GetMode() OutputMode {
	modeMu.RLock()
	defer modeMu.RUnlock()
	return currentMode
}

// SetMode updates the current output mode.
func SetMode(m OutputMode) {
	modeMu.Lock()
	defer modeMu.Unlock()
	currentMode = m
}

// ParseMode converts a string to an OutputMode.
func ParseMode(s string) OutputMode {
	switch strings.ToLower(s) {
	case "plain", "machine", "quiet", "p", "q":
		return ModePlain
	default:
		return ModeStyled
	}
}

// InitMode initializes the output mode from environment and terminal
// state. DIYREPAIR_OUTPUT wins; otherwise piped stdout gets plain text.
func InitMode() {
	if env := os.Getenv("DIYREPAIR_OUTPUT"); env != "" {
		SetMode(ParseMode(env))
		return
	}
	if !isTerminal() {
		SetMode(ModePlain)
		return
	}
	SetMode(ModeStyled)
}

// isTerminal checks if stdout is a terminal.
func isTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Plain reports whether plain output is active.
func Plain() bool {
	return GetMode() == ModePlain
}
