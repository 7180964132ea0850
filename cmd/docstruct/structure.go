package main

import (
	"fmt"
	"strings"

	"github.com/dgallion1/docstruct/internal/docmodel"
)

// Run executes the structure command.
func (c *StructureCmd) Run(deps *Dependencies) error {
	for _, sec := range deps.Index.TopSections() {
		printTree(deps, sec, 0, c.MaxDepth)
	}
	fmt.Fprintf(deps.Stdout, "%d section(s) across %d document(s)\n",
		deps.Index.TotalSections(), len(deps.Index.Documents()))
	return nil
}

func printTree(deps *Dependencies, sec *docmodel.Section, depth, maxDepth int) {
	fmt.Fprintf(deps.Stdout, "%s%s  [%s]\n", strings.Repeat("  ", depth), sec.Title, sec.Path)
	if maxDepth > 0 && depth+1 >= maxDepth {
		return
	}
	for _, child := range sec.Children {
		printTree(deps, child, depth+1, maxDepth)
	}
}
