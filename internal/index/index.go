// Package index merges per-file parse results into one hierarchical,
// path-addressable structure index. The index is built in full at startup
// and repaired incrementally after writes; readers take snapshot-style
// lookups under a read lock, writers are serialized per physical file.
package index

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/dgallion1/docstruct/internal/docmodel"
	"github.com/dgallion1/docstruct/internal/parser"
	"golang.org/x/sync/errgroup"
)

var includeTargetRe = regexp.MustCompile(`(?m)^include::(.+?)\[.*\]$`)

// Index is the process-wide structure index.
type Index struct {
	docsRoot    string
	loader      parser.Loader
	adoc        *parser.AsciidocParser
	md          *parser.MarkdownParser
	concurrency int
	log         *slog.Logger

	mu           sync.RWMutex
	docs         []*docmodel.Document
	byPath       map[string]*docmodel.Section
	byLevel      map[int][]*docmodel.Section
	elements     []*docmodel.Element
	content      map[string]string
	fileDocs     map[string][]*docmodel.Document
	fileSections map[string][]*docmodel.Section
	tops         []*docmodel.Section
	discovered   []string

	// rebuildMu serializes incremental rebuilds end to end, re-parse
	// included, so a slow re-parse cannot merge stale content over a
	// newer write to another file of the same document.
	rebuildMu sync.Mutex

	lockMu    sync.Mutex
	fileLocks map[string]*sync.Mutex
}

// New creates an empty index over docsRoot. Call Build before reading.
func New(docsRoot string, loader parser.Loader, concurrency int, log *slog.Logger) *Index {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Index{
		docsRoot:    docsRoot,
		loader:      loader,
		adoc:        parser.NewAsciidocParser(docsRoot, loader),
		md:          parser.NewMarkdownParser(docsRoot, loader),
		concurrency: concurrency,
		log:         log,
		fileLocks:   map[string]*sync.Mutex{},
	}
}

// SetMaxIncludeDepth bounds AsciiDoc include recursion for all builds.
func (ix *Index) SetMaxIncludeDepth(depth int) {
	ix.adoc.SetMaxIncludeDepth(depth)
}

// Build discovers documents under the docs root, parses them (independent
// documents in parallel) and merges the results into a fresh index.
func (ix *Index) Build(ctx context.Context) error {
	files, err := ix.discoverFiles()
	if err != nil {
		return fmt.Errorf("discover documents: %w", err)
	}

	roots := ix.documentRoots(files)

	var (
		resMu sync.Mutex
		docs  []*docmodel.Document
	)
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(ix.concurrency)
	for _, root := range roots {
		root := root
		g.Go(func() error {
			doc, err := ix.parseRoot(root)
			if err != nil {
				// A corrupt file aborts only its own document, not the index.
				ix.log.Warn("failed to parse document", "root", root.path, "error", err)
				return nil
			}
			resMu.Lock()
			docs = append(docs, doc)
			resMu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].RootPath < docs[j].RootPath })

	ix.mu.Lock()
	ix.docs = docs
	ix.discovered = files
	ix.merge()
	ix.mu.Unlock()

	ix.log.Info("index built",
		"documents", len(docs),
		"sections", ix.TotalSections(),
		"files", len(files),
	)
	return nil
}

// RebuildDocument re-parses the document owning file and re-merges only its
// subtree into the index. Paths of sections that no longer exist are dropped.
// Rebuilds run one at a time; readers stay unblocked until the merge.
func (ix *Index) RebuildDocument(file string) error {
	ix.rebuildMu.Lock()
	defer ix.rebuildMu.Unlock()

	doc := ix.DocumentForFile(file)
	if doc == nil {
		// File is new to the index; fall back to a full build.
		return ix.Build(context.Background())
	}

	var (
		fresh *docmodel.Document
		err   error
	)
	if doc.Format == "asciidoc" {
		fresh, err = ix.adoc.ParseFile(doc.RootPath)
	} else if isDir(doc.RootPath) {
		fresh, err = ix.md.ParseFolder(doc.RootPath)
	} else {
		fresh, err = ix.md.ParseFile(doc.RootPath)
	}
	if err != nil {
		return fmt.Errorf("reparse %s: %w", doc.RootPath, err)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	for i, d := range ix.docs {
		if d.RootPath == doc.RootPath {
			ix.docs[i] = fresh
			break
		}
	}
	ix.merge()
	return nil
}

// merge rebuilds the lookup maps from the live document set.
// Callers hold ix.mu.
func (ix *Index) merge() {
	ix.byPath = map[string]*docmodel.Section{}
	ix.byLevel = map[int][]*docmodel.Section{}
	ix.elements = nil
	ix.content = map[string]string{}
	ix.fileDocs = map[string][]*docmodel.Document{}
	ix.fileSections = map[string][]*docmodel.Section{}
	ix.tops = nil

	for _, doc := range ix.docs {
		for _, file := range doc.Files {
			ix.fileDocs[file] = append(ix.fileDocs[file], doc)
		}
		for _, root := range doc.Sections {
			ix.tops = append(ix.tops, root)
			root.Walk(func(s *docmodel.Section) {
				if prev, dup := ix.byPath[s.Path]; dup {
					ix.log.Warn("duplicate section path",
						"path", s.Path,
						"first", fmt.Sprintf("%s:%d", prev.Location.File, prev.Location.Line),
						"duplicate", fmt.Sprintf("%s:%d", s.Location.File, s.Location.Line),
					)
					return
				}
				ix.byPath[s.Path] = s
				ix.byLevel[s.Level] = append(ix.byLevel[s.Level], s)
				ix.fileSections[s.Location.File] = append(ix.fileSections[s.Location.File], s)
				ix.content[s.Path] = ix.realizeContent(s)
			})
		}
		ix.elements = append(ix.elements, doc.Elements...)
	}
}

// realizeContent reads the raw text span of a section from its physical file.
func (ix *Index) realizeContent(s *docmodel.Section) string {
	if isDir(s.Location.File) {
		return ""
	}
	content, err := ix.loader.ReadFile(s.Location.File)
	if err != nil {
		return ""
	}
	lines := strings.Split(content, "\n")
	start := s.Location.Line - 1
	end := s.Location.EndLine
	if end == 0 || end > len(lines) {
		end = len(lines)
	}
	if start < 0 || start >= len(lines) {
		return ""
	}
	return strings.Join(lines[start:end], "\n")
}

// Section returns the section at a canonical path.
func (ix *Index) Section(path string) (*docmodel.Section, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	s, ok := ix.byPath[path]
	return s, ok
}

// SectionContent returns the realized raw content span of a section.
func (ix *Index) SectionContent(path string) (string, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	c, ok := ix.content[path]
	return c, ok
}

// Contents returns a snapshot of path -> realized content for searching.
func (ix *Index) Contents() map[string]string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make(map[string]string, len(ix.content))
	for k, v := range ix.content {
		out[k] = v
	}
	return out
}

// TopSections returns the document-order roots of the forest.
func (ix *Index) TopSections() []*docmodel.Section {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return append([]*docmodel.Section(nil), ix.tops...)
}

// TotalSections counts every indexed section.
func (ix *Index) TotalSections() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.byPath)
}

// SectionsAtLevel returns all sections at one nesting level, document order.
func (ix *Index) SectionsAtLevel(level int) []*docmodel.Section {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return append([]*docmodel.Section(nil), ix.byLevel[level]...)
}

// Elements returns elements, optionally filtered by type and owning section.
func (ix *Index) Elements(elementType docmodel.ElementType, sectionPath string) []*docmodel.Element {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	var out []*docmodel.Element
	for _, el := range ix.elements {
		if elementType != "" && el.Type != elementType {
			continue
		}
		if sectionPath != "" && el.Section != sectionPath {
			continue
		}
		out = append(out, el)
	}
	return out
}

// Documents returns the live document set.
func (ix *Index) Documents() []*docmodel.Document {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return append([]*docmodel.Document(nil), ix.docs...)
}

// DocumentForFile returns the document whose manifest contains file, or nil.
func (ix *Index) DocumentForFile(file string) *docmodel.Document {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	docs := ix.fileDocs[file]
	if len(docs) == 0 {
		return nil
	}
	return docs[0]
}

// ContributedFiles returns the set of physical files that contributed
// content to at least one document.
func (ix *Index) ContributedFiles() map[string]bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make(map[string]bool, len(ix.fileDocs))
	for f := range ix.fileDocs {
		out[f] = true
	}
	return out
}

// DiscoveredFiles returns every documentation file found at build time.
func (ix *Index) DiscoveredFiles() []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return append([]string(nil), ix.discovered...)
}

// Diagnostics aggregates parse diagnostics across all documents.
func (ix *Index) Diagnostics() []docmodel.Diagnostic {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	var out []docmodel.Diagnostic
	for _, doc := range ix.docs {
		out = append(out, doc.Diagnostics...)
	}
	return out
}

// ParseWarnings aggregates lenient-policy parse warnings across documents.
func (ix *Index) ParseWarnings() []docmodel.ParseWarning {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	var out []docmodel.ParseWarning
	for _, doc := range ix.docs {
		out = append(out, doc.Warnings...)
	}
	return out
}

// FileLock returns the mutex serializing mutations of one physical file.
func (ix *Index) FileLock(file string) *sync.Mutex {
	ix.lockMu.Lock()
	defer ix.lockMu.Unlock()
	l, ok := ix.fileLocks[file]
	if !ok {
		l = &sync.Mutex{}
		ix.fileLocks[file] = l
	}
	return l
}

// Stats summarizes the index for health checks and project metadata.
type Stats struct {
	TotalDocuments  int            `json:"total_documents"`
	TotalSections   int            `json:"total_sections"`
	TotalElements   int            `json:"total_elements"`
	SectionsByLevel map[int]int    `json:"sections_by_level"`
	ElementsByType  map[string]int `json:"elements_by_type"`
}

// Stats returns current index statistics.
func (ix *Index) Stats() Stats {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	st := Stats{
		TotalDocuments:  len(ix.docs),
		TotalSections:   len(ix.byPath),
		TotalElements:   len(ix.elements),
		SectionsByLevel: map[int]int{},
		ElementsByType:  map[string]int{},
	}
	for level, secs := range ix.byLevel {
		st.SectionsByLevel[level] = len(secs)
	}
	for _, el := range ix.elements {
		st.ElementsByType[string(el.Type)]++
	}
	return st
}

// Suggestions finds existing paths similar to a path that was not found.
func (ix *Index) Suggestions(requested string, max int) []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	type scored struct {
		score int
		path  string
	}
	var candidates []scored
	for existing := range ix.byPath {
		if score := pathSimilarity(requested, existing); score > 0 {
			candidates = append(candidates, scored{score, existing})
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].path < candidates[j].path
	})
	if len(candidates) > max {
		candidates = candidates[:max]
	}
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.path
	}
	return out
}

// pathSimilarity scores how close two canonical paths are: same parent +10,
// same last segment +5, partial last segment +3, same first segment +2.
func pathSimilarity(requested, existing string) int {
	reqParts := splitPathSegments(requested)
	exParts := splitPathSegments(existing)
	score := 0

	if len(reqParts) > 1 && len(exParts) > 1 &&
		strings.Join(reqParts[:len(reqParts)-1], ".") == strings.Join(exParts[:len(exParts)-1], ".") {
		score += 10
	}

	reqLast := strings.ToLower(reqParts[len(reqParts)-1])
	exLast := strings.ToLower(exParts[len(exParts)-1])
	switch {
	case reqLast == exLast:
		score += 5
	case strings.Contains(exLast, reqLast) || strings.Contains(reqLast, exLast):
		score += 3
	}

	if reqParts[0] == exParts[0] {
		score += 2
	}
	return score
}

func splitPathSegments(path string) []string {
	docID, rest, ok := strings.Cut(path, ":")
	if !ok {
		return []string{path}
	}
	return append([]string{docID}, strings.Split(rest, ".")...)
}

// ValidatePath rejects malformed canonical paths with a stable error kind:
// at most one document separator, and dotted segments require a document
// identifier in front of them.
func ValidatePath(path string) error {
	if path == "" {
		return docmodel.NewError(docmodel.CodeMalformedPath, "empty path", nil)
	}
	if strings.Count(path, ":") > 1 {
		return docmodel.NewError(docmodel.CodeMalformedPath,
			"path may contain at most one ':' separator",
			map[string]any{"path": path})
	}
	docID, _, _ := strings.Cut(path, ":")
	if docID == "" || strings.Contains(docID, ".") {
		return docmodel.NewError(docmodel.CodeMalformedPath,
			"path must start with a document identifier followed by ':' and dot-separated segments",
			map[string]any{"path": path})
	}
	return nil
}

// rootCandidate is one document root discovered on disk.
type rootCandidate struct {
	path   string
	format string // "asciidoc", "markdown", "folder"
}

// discoverFiles lists every supported documentation file under docsRoot,
// skipping hidden directories.
func (ix *Index) discoverFiles() ([]string, error) {
	var files []string
	err := filepath.WalkDir(ix.docsRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != ix.docsRoot && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if parser.IsSupportedExtension(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// documentRoots decides which discovered files start documents:
//   - top-level AsciiDoc files that are not an include target of any file,
//   - top-level Markdown files,
//   - top-level directories containing Markdown (one folder document each).
//
// Everything deeper is reachable only through includes or folder traversal;
// what stays unreached becomes an orphaned_file warning at validation time.
func (ix *Index) documentRoots(files []string) []rootCandidate {
	includeTargets := ix.scanIncludeTargets(files)

	var roots []rootCandidate
	folders := map[string]bool{}
	for _, file := range files {
		dir := filepath.Dir(file)
		format := parser.FormatForFile(file)
		if dir == ix.docsRoot {
			if format == "asciidoc" {
				if !includeTargets[file] {
					roots = append(roots, rootCandidate{path: file, format: "asciidoc"})
				}
			} else {
				roots = append(roots, rootCandidate{path: file, format: "markdown"})
			}
			continue
		}
		if format == "markdown" {
			// Nested markdown is reached via its top-level folder.
			rel, err := filepath.Rel(ix.docsRoot, file)
			if err != nil {
				continue
			}
			top := filepath.Join(ix.docsRoot, strings.Split(filepath.ToSlash(rel), "/")[0])
			if !folders[top] {
				folders[top] = true
				roots = append(roots, rootCandidate{path: top, format: "folder"})
			}
		}
	}
	return roots
}

// scanIncludeTargets finds every file referenced by an include directive in
// any AsciiDoc file, without fully parsing.
func (ix *Index) scanIncludeTargets(files []string) map[string]bool {
	targets := map[string]bool{}
	for _, file := range files {
		if parser.FormatForFile(file) != "asciidoc" {
			continue
		}
		content, err := ix.loader.ReadFile(file)
		if err != nil {
			continue
		}
		for _, m := range includeTargetRe.FindAllStringSubmatch(content, -1) {
			targets[filepath.Join(filepath.Dir(file), m[1])] = true
		}
	}
	return targets
}

func (ix *Index) parseRoot(root rootCandidate) (*docmodel.Document, error) {
	switch root.format {
	case "asciidoc":
		return ix.adoc.ParseFile(root.path)
	case "folder":
		return ix.md.ParseFolder(root.path)
	default:
		return ix.md.ParseFile(root.path)
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
