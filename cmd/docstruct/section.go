package main

import (
	"encoding/json"
	"fmt"

	"github.com/dgallion1/docstruct/internal/docmodel"
	"github.com/dgallion1/docstruct/internal/index"
	"github.com/dgallion1/docstruct/internal/mutate"
)

// Run executes the section command.
func (c *SectionCmd) Run(deps *Dependencies) error {
	if err := index.ValidatePath(c.Path); err != nil {
		return err
	}
	sec, ok := deps.Index.Section(c.Path)
	if !ok {
		suggestions := deps.Index.Suggestions(c.Path, 5)
		if len(suggestions) > 0 {
			fmt.Fprintln(deps.Stderr, "Did you mean:")
			for _, s := range suggestions {
				fmt.Fprintf(deps.Stderr, "  %s\n", s)
			}
		}
		return docmodel.NewError(docmodel.CodePathNotFound,
			fmt.Sprintf("section %q not found", c.Path), nil)
	}

	content, _ := deps.Index.SectionContent(c.Path)

	if c.JSON {
		enc := json.NewEncoder(deps.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"path":         sec.Path,
			"title":        sec.Title,
			"level":        sec.Level,
			"location":     sec.Location,
			"content":      content,
			"content_hash": mutate.Hash(content),
		})
	}

	fmt.Fprintln(deps.Stdout, content)
	return nil
}
