package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dubistdu/synthetic-data-home-diy-repair/services/pipeline/modes"
)

// runModes prints the failure-mode criteria the judge and corrector will
// apply, either the embedded defaults or the --modes-file replacement.
func runModes(cmd *cobra.Command, args []string) error {
	registry, err := modes.Load(modesFile)
	if err != nil {
		return err
	}
	fmt.Print(renderModes(registry))
	return nil
}

func renderModes(registry *modes.Registry) string {
	out := fmt.Sprintf("Failure mode criteria (%s):\n", registry.Source)
	for _, mode := range registry.All() {
		out += fmt.Sprintf("\n%s (%s)\n", mode.Name, mode.Code)
		out += fmt.Sprintf("  %s\n", mode.Description)
		out += fmt.Sprintf("  Pass: %s\n", mode.SuccessCriteria)
		out += fmt.Sprintf("  Fail: %s\n", mode.FailureCriteria)
		out += fmt.Sprintf("  Fix:  %s\n", mode.FixInstruction)
	}
	return out
}
