// Package mutate edits documentation files in place under an optimistic
// locking and atomic-write contract, then repairs the structure index so
// in-memory state and on-disk content stay consistent.
package mutate

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/dgallion1/docstruct/internal/docmodel"
	"github.com/dgallion1/docstruct/internal/index"
)

// Position values accepted by InsertContent.
const (
	PositionBefore = "before"
	PositionAfter  = "after"
	PositionAppend = "append"
)

// Hash fingerprints content for optimistic locking.
func Hash(content string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(content))
}

// Engine applies section edits. All mutations of one physical file are
// serialized through the index's per-file lock; mutations of different files
// may proceed concurrently.
type Engine struct {
	index *index.Index
	log   *slog.Logger
}

// NewEngine creates a mutation engine bound to idx.
func NewEngine(idx *index.Index, log *slog.Logger) *Engine {
	return &Engine{index: idx, log: log}
}

// UpdateResult reports a completed update.
type UpdateResult struct {
	Success      bool                    `json:"success"`
	Path         string                  `json:"path"`
	Location     docmodel.SourceLocation `json:"location"`
	PreviousHash string                  `json:"previous_hash"`
	NewHash      string                  `json:"new_hash"`
}

// InsertResult reports a completed insertion.
type InsertResult struct {
	Success      bool                    `json:"success"`
	InsertedAt   docmodel.SourceLocation `json:"inserted_at"`
	PreviousHash string                  `json:"previous_hash"`
	NewHash      string                  `json:"new_hash"`
}

// UpdateSection replaces the on-disk span of the section at path with
// content. If expectedHash is non-empty and does not match the hash of the
// current span, nothing is written and a LOCK_CONFLICT error is returned.
// With preserveTitle, the original heading line is kept when the new content
// brings no heading of its own. The hashes returned cover the section span
// before and after the write.
func (e *Engine) UpdateSection(path, content string, preserveTitle bool, expectedHash string) (*UpdateResult, error) {
	sec, err := e.resolve(path)
	if err != nil {
		return nil, err
	}

	file := sec.Location.File
	lock := e.index.FileLock(file)
	lock.Lock()
	defer lock.Unlock()

	lines, hadTrailingNewline, err := readLines(file)
	if err != nil {
		return nil, docmodel.WrapError(docmodel.CodeWriteFailure, "read "+file, err)
	}

	start, end := sec.Location.Line, sec.Location.EndLine
	if end == 0 || end > len(lines) {
		end = len(lines)
	}

	currentSpan := strings.Join(lines[start-1:end], "\n")
	previousHash := Hash(currentSpan)

	// Compare-and-swap: the check and the write happen under the file lock
	// with no suspension point in between.
	if expectedHash != "" && expectedHash != previousHash {
		return nil, docmodel.NewError(docmodel.CodeLockConflict,
			fmt.Sprintf("hash conflict on %s: expected %s, current is %s", path, expectedHash, previousHash),
			map[string]any{"path": path, "expected_hash": expectedHash, "current_hash": previousHash})
	}

	newContent := content
	if preserveTitle && !startsWithHeading(newContent) {
		newContent = headingLine(sec) + "\n\n" + newContent
	}
	newContent = strings.TrimSuffix(newContent, "\n")

	var out []string
	out = append(out, lines[:start-1]...)
	out = append(out, strings.Split(newContent, "\n")...)
	out = append(out, lines[end:]...)

	if err := writeFileAtomic(file, joinLines(out, hadTrailingNewline)); err != nil {
		return nil, err
	}

	if err := e.index.RebuildDocument(file); err != nil {
		return nil, fmt.Errorf("rebuild index after update of %s: %w", file, err)
	}

	e.log.Info("section updated", "path", path, "file", file, "lines", fmt.Sprintf("%d-%d", start, end))

	return &UpdateResult{
		Success: true,
		Path:    path,
		Location: docmodel.SourceLocation{
			File:    file,
			Line:    start,
			EndLine: start + strings.Count(newContent, "\n"),
		},
		PreviousHash: previousHash,
		NewHash:      Hash(newContent),
	}, nil
}

// InsertContent inserts content relative to the section at path: "before"
// (immediately above its heading), "after" (below the section's last line,
// before its next sibling) or "append" (at the end of the section's own
// content, before its first child). Insertion never overwrites existing
// bytes, so no hash check is required; the returned hashes cover the whole
// file before and after the write.
func (e *Engine) InsertContent(path, position, content string) (*InsertResult, error) {
	switch position {
	case PositionBefore, PositionAfter, PositionAppend:
	default:
		return nil, fmt.Errorf("invalid position %q: must be before, after or append", position)
	}

	sec, err := e.resolve(path)
	if err != nil {
		return nil, err
	}

	file := sec.Location.File
	lock := e.index.FileLock(file)
	lock.Lock()
	defer lock.Unlock()

	raw, err := os.ReadFile(file)
	if err != nil {
		return nil, docmodel.WrapError(docmodel.CodeWriteFailure, "read "+file, err)
	}
	previousHash := Hash(string(raw))

	lines, hadTrailingNewline, err := readLines(file)
	if err != nil {
		return nil, docmodel.WrapError(docmodel.CodeWriteFailure, "read "+file, err)
	}

	start, end := sec.Location.Line, sec.Location.EndLine
	if end == 0 || end > len(lines) {
		end = len(lines)
	}

	var insertAt int // 0-based index of the line the content lands on
	switch position {
	case PositionBefore:
		insertAt = start - 1
	case PositionAfter:
		insertAt = end
	case PositionAppend:
		insertAt = ownContentEnd(sec, end)
	}

	inserted := strings.Split(strings.TrimSuffix(content, "\n"), "\n")
	var out []string
	out = append(out, lines[:insertAt]...)
	out = append(out, inserted...)
	out = append(out, lines[insertAt:]...)

	newFileContent := joinLines(out, hadTrailingNewline)
	if err := writeFileAtomic(file, newFileContent); err != nil {
		return nil, err
	}

	if err := e.index.RebuildDocument(file); err != nil {
		return nil, fmt.Errorf("rebuild index after insert at %s: %w", path, err)
	}

	e.log.Info("content inserted", "path", path, "position", position, "file", file, "line", insertAt+1)

	return &InsertResult{
		Success: true,
		InsertedAt: docmodel.SourceLocation{
			File:    file,
			Line:    insertAt + 1,
			EndLine: insertAt + len(inserted),
		},
		PreviousHash: previousHash,
		NewHash:      Hash(newFileContent),
	}, nil
}

// resolve maps a canonical path to its section, with suggestions on miss.
func (e *Engine) resolve(path string) (*docmodel.Section, error) {
	if err := index.ValidatePath(path); err != nil {
		return nil, err
	}
	sec, ok := e.index.Section(path)
	if !ok {
		return nil, docmodel.NewError(docmodel.CodePathNotFound,
			fmt.Sprintf("section %q not found", path),
			map[string]any{"requested_path": path, "suggestions": e.index.Suggestions(path, 5)})
	}
	return sec, nil
}

// ownContentEnd returns the 0-based insertion index at the end of the
// section's own content, before its first child's heading.
func ownContentEnd(sec *docmodel.Section, end int) int {
	for _, child := range sec.Children {
		if child.Location.File == sec.Location.File {
			return child.Location.Line - 1
		}
	}
	return end
}

// startsWithHeading reports whether content opens with its own AsciiDoc or
// Markdown heading marker.
func startsWithHeading(content string) bool {
	trimmed := strings.TrimLeft(content, "\n\t ")
	return strings.HasPrefix(trimmed, "=") || strings.HasPrefix(trimmed, "#")
}

// headingLine rebuilds a section's heading line from its level and title.
func headingLine(sec *docmodel.Section) string {
	marker := "="
	if strings.HasSuffix(strings.ToLower(sec.Location.File), ".md") ||
		strings.HasSuffix(strings.ToLower(sec.Location.File), ".markdown") {
		marker = "#"
	}
	return strings.Repeat(marker, sec.Level+1) + " " + sec.Title
}

// readLines splits a file into lines, reporting whether the file ended with
// a trailing newline so the write path can preserve it.
func readLines(file string) ([]string, bool, error) {
	raw, err := os.ReadFile(file)
	if err != nil {
		return nil, false, err
	}
	content := string(raw)
	trailing := strings.HasSuffix(content, "\n")
	content = strings.TrimSuffix(content, "\n")
	if content == "" {
		return []string{""}, trailing, nil
	}
	return strings.Split(content, "\n"), trailing, nil
}

func joinLines(lines []string, trailingNewline bool) string {
	out := strings.Join(lines, "\n")
	if trailingNewline {
		out += "\n"
	}
	return out
}
