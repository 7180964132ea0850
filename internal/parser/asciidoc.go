package parser

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dgallion1/docstruct/internal/docmodel"
)

var (
	adocHeadingRe   = regexp.MustCompile(`^(={1,6})\s+(.+?)(?:\s+=+)?$`)
	adocAttrRe      = regexp.MustCompile(`^:([a-zA-Z0-9_-]+):\s*(.*)$`)
	adocIncludeRe   = regexp.MustCompile(`^include::(.+?)\[(.*)\]$`)
	adocSourceRe    = regexp.MustCompile(`^\[source(?:,\s*([a-zA-Z0-9_+-]+))?\]$`)
	adocDiagramRe   = regexp.MustCompile(`^\[(plantuml|mermaid|ditaa)(?:,\s*([a-zA-Z0-9_-]+))?(?:,\s*([a-zA-Z0-9_]+))?\]$`)
	adocListingRe   = regexp.MustCompile(`^-{4,}$`)
	adocTableRe     = regexp.MustCompile(`^\|===$`)
	adocImageRe     = regexp.MustCompile(`^image::(.+?)\[(.*)\]$`)
	adocAdmonRe     = regexp.MustCompile(`^(NOTE|TIP|IMPORTANT|WARNING|CAUTION):\s*(.*)$`)
	adocUnordListRe = regexp.MustCompile(`^\*+\s+.+$`)
	adocOrdListRe   = regexp.MustCompile(`^\.+\s+.+$`)
	adocDescListRe  = regexp.MustCompile(`^\S.*::(\s+.+)?$`)
	adocAttrRefRe   = regexp.MustCompile(`\{([a-zA-Z0-9_-]+)\}`)
)

// expandedLine is one line of the include-expanded document, tagged with the
// physical file and line it came from.
type expandedLine struct {
	text         string
	file         string
	line         int
	resolvedFrom []string
}

// AsciidocParser builds a source-mapped section and element tree for one
// logical AsciiDoc document, recursively resolving include directives.
type AsciidocParser struct {
	baseDir         string
	loader          Loader
	maxIncludeDepth int
}

// NewAsciidocParser creates a parser rooted at baseDir. Canonical paths are
// derived from file locations relative to baseDir.
func NewAsciidocParser(baseDir string, loader Loader) *AsciidocParser {
	return &AsciidocParser{baseDir: baseDir, loader: loader, maxIncludeDepth: 20}
}

// SetMaxIncludeDepth bounds include recursion; directives past the limit are
// kept as literal text.
func (p *AsciidocParser) SetMaxIncludeDepth(depth int) {
	if depth > 0 {
		p.maxIncludeDepth = depth
	}
}

// ParseFile parses the AsciiDoc file at rootPath and its include closure.
// Structural problems in includes (missing targets, cycles) are recorded as
// diagnostics; they never abort the parse of the including file.
func (p *AsciidocParser) ParseFile(rootPath string) (*docmodel.Document, error) {
	content, err := p.loader.ReadFile(rootPath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rootPath, err)
	}

	doc := &docmodel.Document{
		RootPath: rootPath,
		Format:   "asciidoc",
		Files:    []string{rootPath},
		Attrs:    map[string]string{},
	}

	lines := splitLines(content)
	doc.Attrs = parseAttributes(lines)

	expanded := p.expandIncludes(lines, rootPath, 0, []string{rootPath}, doc)

	st := newAdocState(filePrefix(p.baseDir, rootPath), doc.Attrs)
	for _, el := range expanded {
		st.feed(el)
	}
	st.finish(expanded)

	doc.Sections = st.sections
	doc.Elements = st.elements
	doc.Warnings = append(doc.Warnings, st.warnings...)
	doc.Title = st.documentTitle

	if len(doc.Sections) == 0 {
		// Empty or heading-less file: synthesize a root section so the file
		// is still addressable.
		stem := fileStem(rootPath)
		end := len(lines)
		if end == 0 {
			end = 1
		}
		doc.Sections = []*docmodel.Section{{
			Path:     filePrefix(p.baseDir, rootPath),
			Title:    stem,
			Level:    0,
			Location: docmodel.SourceLocation{File: rootPath, Line: 1, EndLine: end},
		}}
		if doc.Title == "" {
			doc.Title = stem
		}
	}

	lineCounts := map[string]int{}
	for _, el := range expanded {
		if el.line > lineCounts[el.file] {
			lineCounts[el.file] = el.line
		}
	}
	if lineCounts[rootPath] == 0 {
		lineCounts[rootPath] = len(lines)
	}
	computeEndLines(doc.Sections, lineCounts)
	assignElementIndexes(doc.Sections, doc.Elements)

	return doc, nil
}

// expandIncludes inlines include targets depth-first, tagging every line with
// its physical origin. chain holds the files currently open on the recursion
// stack; membership there means a cycle.
func (p *AsciidocParser) expandIncludes(lines []string, file string, depth int, chain []string, doc *docmodel.Document) []expandedLine {
	var out []expandedLine

	resolvedFrom := append([]string(nil), chain[:len(chain)-1]...)

	for i, text := range lines {
		lineNum := i + 1
		m := adocIncludeRe.FindStringSubmatch(text)
		if m == nil || depth >= p.maxIncludeDepth {
			out = append(out, expandedLine{text: text, file: file, line: lineNum, resolvedFrom: resolvedFrom})
			continue
		}

		target := filepath.Join(filepath.Dir(file), m[1])

		if onStack(chain, target) {
			doc.Diagnostics = append(doc.Diagnostics, docmodel.NewDiagnostic(
				docmodel.DiagCircularInclude,
				target,
				fmt.Sprintf("circular include: %s -> %s", strings.Join(baseNames(chain), " -> "), filepath.Base(target)),
				append(append([]string(nil), chain...), target)...,
			))
			continue // skip the directive, keep parsing this file
		}

		included, err := p.loader.ReadFile(target)
		if err != nil {
			doc.Diagnostics = append(doc.Diagnostics, docmodel.NewDiagnostic(
				docmodel.DiagUnresolvedInclude,
				target,
				fmt.Sprintf("include target not found: %s (included from %s:%d)", m[1], file, lineNum),
			))
			continue
		}

		doc.Files = append(doc.Files, target)
		newChain := append(append([]string(nil), chain...), target)
		nested := p.expandIncludes(splitLines(included), target, depth+1, newChain, doc)
		out = append(out, nested...)
	}

	return out
}

func onStack(chain []string, target string) bool {
	for _, f := range chain {
		if f == target {
			return true
		}
	}
	return false
}

func baseNames(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = filepath.Base(p)
	}
	return out
}

// parseAttributes reads :name: value attribute lines from the document head,
// stopping at the first heading.
func parseAttributes(lines []string) map[string]string {
	attrs := map[string]string{}
	for _, line := range lines {
		if m := adocAttrRe.FindStringSubmatch(line); m != nil {
			attrs[m[1]] = strings.TrimSpace(m[2])
			continue
		}
		if adocHeadingRe.MatchString(line) {
			break
		}
	}
	return attrs
}

func substituteAttrs(text string, attrs map[string]string) string {
	if len(attrs) == 0 {
		return text
	}
	return adocAttrRefRe.ReplaceAllStringFunc(text, func(ref string) string {
		name := ref[1 : len(ref)-1]
		if v, ok := attrs[name]; ok {
			return v
		}
		return ref
	})
}

// adocState is the single-pass section and element builder. Sections and
// elements are built together so every element knows the canonical path of
// its enclosing section without a title lookup.
type adocState struct {
	prefix string
	attrs  map[string]string
	paths  pathTable

	sections      []*docmodel.Section
	stack         []*docmodel.Section
	documentTitle string
	currentPath   string

	elements []*docmodel.Element
	warnings []docmodel.ParseWarning

	pendingLang    string
	pendingDiagram *docmodel.Element
	openBlock      *docmodel.Element // code or diagram inside ---- fences
	openTable      *docmodel.Element
	openList       *docmodel.Element
	blockContent   []string
}

func newAdocState(prefix string, attrs map[string]string) *adocState {
	return &adocState{prefix: prefix, attrs: attrs, paths: pathTable{}}
}

func (st *adocState) feed(el expandedLine) {
	text := el.text

	if m := adocHeadingRe.FindStringSubmatch(text); m != nil && st.openBlock == nil && st.openTable == nil {
		st.closeList(el.line - 1)
		st.addSection(len(m[1])-1, substituteAttrs(strings.TrimSpace(m[2]), st.attrs), el)
		return
	}

	if m := adocSourceRe.FindStringSubmatch(text); m != nil && st.openBlock == nil {
		st.pendingLang = m[1]
		if st.pendingLang == "" {
			st.pendingLang = "plain"
		}
		return
	}

	if m := adocDiagramRe.FindStringSubmatch(text); m != nil && st.openBlock == nil {
		st.pendingDiagram = &docmodel.Element{
			Type:    docmodel.ElementDiagram,
			Subtype: m[1],
			Section: st.currentPath,
		}
		preview := []string{m[1]}
		if m[2] != "" {
			preview = append(preview, m[2])
		}
		if m[3] != "" {
			preview = append(preview, m[3])
		}
		st.pendingDiagram.Preview = "[" + strings.Join(preview, ", ") + "]"
		return
	}

	if adocListingRe.MatchString(text) {
		st.toggleListing(el)
		return
	}

	if st.openBlock != nil {
		st.blockContent = append(st.blockContent, text)
		return
	}

	if adocTableRe.MatchString(text) {
		st.toggleTable(el)
		return
	}

	if st.openTable != nil {
		st.blockContent = append(st.blockContent, text)
		return
	}

	if m := adocImageRe.FindStringSubmatch(text); m != nil {
		st.closeList(el.line - 1)
		st.elements = append(st.elements, &docmodel.Element{
			Type:     docmodel.ElementImage,
			Location: loc(el, el.line),
			Section:  st.currentPath,
			Target:   m[1],
			Alt:      m[2],
			Preview:  fmt.Sprintf("image::%s[%s]", m[1], m[2]),
		})
		return
	}

	if m := adocAdmonRe.FindStringSubmatch(text); m != nil {
		st.closeList(el.line - 1)
		st.elements = append(st.elements, &docmodel.Element{
			Type:     docmodel.ElementAdmonition,
			Location: loc(el, el.line),
			Section:  st.currentPath,
			Subtype:  m[1],
			Content:  m[2],
			Preview:  admonitionPreview(m[1], m[2]),
		})
		return
	}

	switch {
	case adocUnordListRe.MatchString(text):
		st.continueList("unordered", el)
	case adocOrdListRe.MatchString(text):
		st.continueList("ordered", el)
	case adocDescListRe.MatchString(text):
		st.continueList("description", el)
	default:
		if strings.TrimSpace(text) != "" {
			st.closeList(el.line - 1)
		}
	}
}

func (st *adocState) addSection(level int, title string, el expandedLine) {
	section := &docmodel.Section{
		Title:    title,
		Level:    level,
		Location: loc(el, 0),
	}

	if level == 0 {
		if st.documentTitle == "" {
			st.documentTitle = title
		}
		// A second document title in the same file still needs a unique path.
		section.Path = st.paths.unique(st.prefix)
		st.sections = append(st.sections, section)
		st.stack = []*docmodel.Section{section}
		st.currentPath = section.Path
		return
	}

	for len(st.stack) > 0 && st.stack[len(st.stack)-1].Level >= level {
		st.stack = st.stack[:len(st.stack)-1]
	}

	slug := Slugify(title)
	if len(st.stack) > 0 {
		parent := st.stack[len(st.stack)-1]
		if level > parent.Level+1 {
			st.warnings = append(st.warnings, docmodel.ParseWarning{
				Type: docmodel.WarnHeadingSkip,
				File: el.file,
				Line: el.line,
				Message: fmt.Sprintf("heading %q at level %d skips levels below its parent %q at level %d",
					title, level, parent.Title, parent.Level),
			})
		}
		var sectionPath string
		if parent.Level == 0 {
			sectionPath = slug
		} else {
			sectionPath = strings.SplitN(parent.Path, ":", 2)[1] + "." + slug
		}
		section.Path = st.paths.unique(st.prefix + ":" + sectionPath)
		parent.Children = append(parent.Children, section)
	} else {
		section.Path = st.paths.unique(st.prefix + ":" + slug)
		st.sections = append(st.sections, section)
	}

	st.stack = append(st.stack, section)
	st.currentPath = section.Path
}

func (st *adocState) toggleListing(el expandedLine) {
	if st.openBlock != nil {
		st.openBlock.Content = strings.Join(st.blockContent, "\n")
		st.openBlock.Location.EndLine = el.line
		st.openBlock = nil
		st.blockContent = nil
		return
	}

	st.closeList(el.line - 1)
	switch {
	case st.pendingDiagram != nil:
		st.pendingDiagram.Location = loc(el, 0)
		st.pendingDiagram.Section = st.currentPath
		st.elements = append(st.elements, st.pendingDiagram)
		st.openBlock = st.pendingDiagram
		st.pendingDiagram = nil
	case st.pendingLang != "":
		block := &docmodel.Element{
			Type:     docmodel.ElementCode,
			Location: loc(el, 0),
			Section:  st.currentPath,
			Language: st.pendingLang,
			Preview:  fmt.Sprintf("[source, %s]", st.pendingLang),
		}
		st.elements = append(st.elements, block)
		st.openBlock = block
	default:
		// Bare listing block with no [source] attribute, treat as plain code.
		block := &docmodel.Element{
			Type:     docmodel.ElementCode,
			Location: loc(el, 0),
			Section:  st.currentPath,
			Language: "plain",
			Preview:  "[source]",
		}
		st.elements = append(st.elements, block)
		st.openBlock = block
	}
	st.pendingLang = ""
	st.blockContent = nil
}

func (st *adocState) toggleTable(el expandedLine) {
	if st.openTable != nil {
		st.openTable.Content = strings.Join(st.blockContent, "\n")
		st.openTable.Location.EndLine = el.line
		st.openTable = nil
		st.blockContent = nil
		return
	}
	st.closeList(el.line - 1)
	table := &docmodel.Element{
		Type:     docmodel.ElementTable,
		Location: loc(el, 0),
		Section:  st.currentPath,
		Preview:  "|===",
	}
	st.elements = append(st.elements, table)
	st.openTable = table
	st.blockContent = nil
}

func (st *adocState) continueList(listType string, el expandedLine) {
	if st.openList == nil || st.openList.Subtype != listType {
		st.closeList(el.line - 1)
		st.openList = &docmodel.Element{
			Type:     docmodel.ElementList,
			Location: loc(el, el.line),
			Section:  st.currentPath,
			Subtype:  listType,
			Preview:  listType + " list",
		}
		st.elements = append(st.elements, st.openList)
	}
	st.openList.Content = joinNonEmpty(st.openList.Content, el.text)
	st.openList.Location.EndLine = el.line
}

func (st *adocState) closeList(endLine int) {
	if st.openList != nil && endLine >= st.openList.Location.Line {
		st.openList.Location.EndLine = endLine
	}
	st.openList = nil
}

// finish flags blocks left open at end of input and pins their end lines to
// the last line of their physical file.
func (st *adocState) finish(expanded []expandedLine) {
	lineCounts := map[string]int{}
	for _, el := range expanded {
		if el.line > lineCounts[el.file] {
			lineCounts[el.file] = el.line
		}
	}

	for _, open := range []*docmodel.Element{st.openBlock, st.openTable} {
		if open == nil {
			continue
		}
		open.Content = strings.Join(st.blockContent, "\n")
		open.Location.EndLine = lineCounts[open.Location.File]
		warnType := docmodel.WarnUnclosedBlock
		noun := string(open.Type) + " block"
		if open.Type == docmodel.ElementTable {
			warnType = docmodel.WarnUnclosedTable
			noun = "table"
		}
		st.warnings = append(st.warnings, docmodel.ParseWarning{
			Type:    warnType,
			File:    open.Location.File,
			Line:    open.Location.Line,
			Message: fmt.Sprintf("%s starting at line %d is not closed", noun, open.Location.Line),
		})
	}
	st.openBlock = nil
	st.openTable = nil
	st.openList = nil
}

func loc(el expandedLine, endLine int) docmodel.SourceLocation {
	return docmodel.SourceLocation{
		File:         el.file,
		Line:         el.line,
		EndLine:      endLine,
		ResolvedFrom: el.resolvedFrom,
	}
}

func admonitionPreview(kind, content string) string {
	if len(content) > 30 {
		return kind + ": " + content[:30] + "..."
	}
	return kind + ": " + content
}

func joinNonEmpty(a, b string) string {
	if a == "" {
		return b
	}
	return a + "\n" + b
}

func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(content, "\n"), "\n")
}
