// Package search provides scoped, ranked full-text queries over the
// structure index. It is a read-only view: searching never mutates index
// state.
package search

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/dgallion1/docstruct/internal/index"
)

// Result is one search hit.
type Result struct {
	Path    string  `json:"path"`
	Line    int     `json:"line"`
	Context string  `json:"context"`
	Score   float64 `json:"score"`
}

// Engine searches the realized section contents of a structure index.
type Engine struct {
	index *index.Index
}

// NewEngine creates a search engine over idx.
func NewEngine(idx *index.Index) *Engine {
	return &Engine{index: idx}
}

// Search performs a case-insensitive term match over every section's
// realized content, optionally restricted to the subtree rooted at scope.
// Scoring combines term frequency with a length normalization so long
// sections are not unfairly favored; ties break by canonical path order.
func (e *Engine) Search(query, scope string, maxResults int) []Result {
	if maxResults <= 0 {
		maxResults = 50
	}
	if query == "" {
		return nil
	}
	// Case folding can change byte lengths, so the match runs on the original
	// text with a case-insensitive pattern. Offsets stay valid for slicing.
	needle, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(query))
	if err != nil {
		return nil
	}

	var results []Result
	for path, content := range e.index.Contents() {
		if scope != "" && !inScope(path, scope) {
			continue
		}
		matches := needle.FindAllStringIndex(content, -1)
		if len(matches) == 0 {
			continue
		}

		sec, ok := e.index.Section(path)
		if !ok {
			continue
		}

		first := matches[0]
		line := sec.Location.Line + strings.Count(content[:first[0]], "\n")

		results = append(results, Result{
			Path:    path,
			Line:    line,
			Context: contextSnippet(content, first[0], first[1]-first[0]),
			Score:   score(len(matches), len(content)),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Path < results[j].Path
	})
	if len(results) > maxResults {
		results = results[:maxResults]
	}
	return results
}

// inScope reports whether path lies in the subtree rooted at scope.
func inScope(path, scope string) bool {
	if path == scope {
		return true
	}
	return strings.HasPrefix(path, scope+".") || strings.HasPrefix(path, scope+":") ||
		strings.HasPrefix(path, scope+"/")
}

// score is term frequency normalized by section length: freq / log2(2+len).
func score(freq, contentLen int) float64 {
	return float64(freq) / math.Log2(float64(contentLen)+2)
}

// contextSnippet builds a whitespace-normalized snippet around the match.
func contextSnippet(content string, offset, matchLen int) string {
	const contextChars = 40
	start := offset - contextChars
	if start < 0 {
		start = 0
	}
	end := offset + matchLen + contextChars
	if end > len(content) {
		end = len(content)
	}
	snippet := strings.Join(strings.Fields(content[start:end]), " ")
	if start > 0 {
		snippet = "..." + snippet
	}
	if end < len(content) {
		snippet += "..."
	}
	return snippet
}
