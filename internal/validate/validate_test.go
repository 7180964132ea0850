package validate

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/dgallion1/docstruct/internal/docmodel"
	"github.com/dgallion1/docstruct/internal/index"
	"github.com/dgallion1/docstruct/internal/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildIndex(t *testing.T, files map[string]string) *index.Index {
	t.Helper()
	dir := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	ix := index.New(dir, parser.OSLoader{}, 2, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, ix.Build(context.Background()))
	return ix
}

func TestRun_CleanTree(t *testing.T) {
	ix := buildIndex(t, map[string]string{
		"guide.adoc": "= Guide\n\n== Intro\n\ntext\n",
		"notes.md":   "# Notes\n\ncontent\n",
	})

	report := Run(ix)
	assert.True(t, report.Valid)
	assert.Empty(t, report.Errors)
	assert.Empty(t, report.Warnings)
	assert.GreaterOrEqual(t, report.ValidationTimeMS, int64(0))
}

func TestRun_OrphanIsWarningOnly(t *testing.T) {
	ix := buildIndex(t, map[string]string{
		"guide.adoc":       "= Guide\n\n== Intro\n\ntext\n",
		"parts/stray.adoc": "== Stray\n\nunreferenced\n",
	})

	report := Run(ix)
	assert.True(t, report.Valid, "orphans must not fail validation")
	assert.Empty(t, report.Errors)
	require.Len(t, report.Warnings, 1)
	w := report.Warnings[0]
	assert.Equal(t, docmodel.DiagOrphanedFile, w.Type)
	assert.Equal(t, docmodel.SeverityWarning, w.Severity)
	assert.Contains(t, w.Path, "stray.adoc")
}

func TestRun_UnresolvedIncludeIsError(t *testing.T) {
	ix := buildIndex(t, map[string]string{
		"guide.adoc": "= Guide\n\ninclude::missing.adoc[]\n",
	})

	report := Run(ix)
	assert.False(t, report.Valid)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, docmodel.DiagUnresolvedInclude, report.Errors[0].Type)
}

func TestRun_CircularIncludeIsError(t *testing.T) {
	ix := buildIndex(t, map[string]string{
		"main.adoc":    "= Main\n\ninclude::parts/x.adoc[]\n",
		"parts/x.adoc": "== X\n\ninclude::y.adoc[]\n",
		"parts/y.adoc": "== Y\n\ninclude::x.adoc[]\n",
	})

	report := Run(ix)
	assert.False(t, report.Valid)

	var circular []docmodel.Diagnostic
	for _, d := range report.Errors {
		if d.Type == docmodel.DiagCircularInclude {
			circular = append(circular, d)
		}
	}
	require.Len(t, circular, 1)
	assert.NotEmpty(t, circular[0].Chain)
}

func TestRun_ParseWarningsSurface(t *testing.T) {
	ix := buildIndex(t, map[string]string{
		"guide.adoc": "= Guide\n\n[source, go]\n----\nnever closed\n",
	})

	report := Run(ix)
	assert.True(t, report.Valid)
	require.NotEmpty(t, report.Warnings)
	assert.Equal(t, docmodel.DiagnosticType(docmodel.WarnUnclosedBlock), report.Warnings[0].Type)
}
