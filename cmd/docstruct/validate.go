package main

import (
	"encoding/json"
	"fmt"

	"github.com/dgallion1/docstruct/internal/validate"
)

// Run executes the validate command.
func (c *ValidateCmd) Run(deps *Dependencies) error {
	report := validate.Run(deps.Index)

	if c.JSON {
		enc := json.NewEncoder(deps.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		for _, d := range report.Errors {
			fmt.Fprintf(deps.Stdout, "error: %s: %s\n", d.Type, d.Message)
		}
		for _, d := range report.Warnings {
			fmt.Fprintf(deps.Stdout, "warning: %s: %s\n", d.Type, d.Message)
		}
		fmt.Fprintf(deps.Stdout, "%d error(s), %d warning(s) in %dms\n",
			len(report.Errors), len(report.Warnings), report.ValidationTimeMS)
	}

	if !report.Valid {
		return fmt.Errorf("validation failed with %d error(s)", len(report.Errors))
	}
	return nil
}
