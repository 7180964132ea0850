// Package validate sweeps the structure index for structural defects:
// unresolved and circular includes (errors), orphaned files and lenient-parse
// findings (warnings). Validation is a read-only pass; it never repairs or
// mutates anything.
package validate

import (
	"fmt"
	"sort"
	"time"

	"github.com/dgallion1/docstruct/internal/docmodel"
	"github.com/dgallion1/docstruct/internal/index"
)

// Report is the result of one validation sweep. Valid is true exactly when
// no error-severity diagnostics were found; warnings never flip it.
type Report struct {
	Valid            bool                  `json:"valid"`
	Errors           []docmodel.Diagnostic `json:"errors"`
	Warnings         []docmodel.Diagnostic `json:"warnings"`
	ValidationTimeMS int64                 `json:"validation_time_ms"`
}

// Run validates the current state of the index.
func Run(ix *index.Index) Report {
	start := time.Now()
	report := Report{Valid: true}

	for _, d := range ix.Diagnostics() {
		if d.Severity == docmodel.SeverityError {
			report.Errors = append(report.Errors, d)
		} else {
			report.Warnings = append(report.Warnings, d)
		}
	}

	report.Warnings = append(report.Warnings, orphans(ix)...)

	for _, w := range ix.ParseWarnings() {
		report.Warnings = append(report.Warnings, docmodel.Diagnostic{
			Type:     docmodel.DiagnosticType(w.Type),
			Severity: docmodel.SeverityWarning,
			Path:     w.File,
			Message:  fmt.Sprintf("%s (line %d)", w.Message, w.Line),
		})
	}

	report.Valid = len(report.Errors) == 0
	report.ValidationTimeMS = time.Since(start).Milliseconds()
	return report
}

// orphans flags discovered files that contributed to no document: they exist
// on disk but are unreachable through any document root or include chain.
func orphans(ix *index.Index) []docmodel.Diagnostic {
	contributed := ix.ContributedFiles()
	var out []docmodel.Diagnostic
	for _, file := range ix.DiscoveredFiles() {
		if contributed[file] {
			continue
		}
		out = append(out, docmodel.NewDiagnostic(docmodel.DiagOrphanedFile, file,
			fmt.Sprintf("%s is not referenced by any document", file)))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}
