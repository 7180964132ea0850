package main

import (
	"fmt"

	"github.com/dgallion1/docstruct/internal/index"
	"github.com/dgallion1/docstruct/internal/search"
)

// Run executes the search command.
func (c *SearchCmd) Run(deps *Dependencies) error {
	if c.Scope != "" {
		if err := index.ValidatePath(c.Scope); err != nil {
			return err
		}
	}

	results := search.NewEngine(deps.Index).Search(c.Query, c.Scope, c.Max)
	if len(results) == 0 {
		fmt.Fprintln(deps.Stdout, "No results.")
		return nil
	}

	for _, res := range results {
		fmt.Fprintf(deps.Stdout, "%s:%d  (%.3f)\n  %s\n", res.Path, res.Line, res.Score, res.Context)
	}
	return nil
}
