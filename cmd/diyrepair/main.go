// Copyright (C) 2025 dubistdu
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// diyrepair is the CLI for the synthetic DIY repair QA data pipeline.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dubistdu/synthetic-data-home-diy-repair/pkg/ux"
)

func main() {
	// Ctrl-C cancels the command context; in-flight oracle batches stop
	// without writing partial artifacts.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	closeRuntime()
	if err != nil {
		ux.Error(err.Error())
		os.Exit(1)
	}
}
