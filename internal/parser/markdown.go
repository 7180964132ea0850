package parser

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dgallion1/docstruct/internal/docmodel"
	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	gparser "github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// MarkdownParser derives a source-mapped section and element tree from a
// single Markdown file. There is no include mechanism; cross-file structure
// comes from the folder hierarchy (see ParseFolder).
type MarkdownParser struct {
	baseDir string
	loader  Loader
	md      goldmark.Markdown
}

// NewMarkdownParser creates a parser rooted at baseDir.
func NewMarkdownParser(baseDir string, loader Loader) *MarkdownParser {
	return &MarkdownParser{
		baseDir: baseDir,
		loader:  loader,
		md: goldmark.New(
			goldmark.WithExtensions(extension.Table, meta.Meta),
		),
	}
}

// ParseFile parses one Markdown file into a Document. Front-matter is
// attached as metadata, never as a section or element.
func (p *MarkdownParser) ParseFile(path string) (*docmodel.Document, error) {
	content, err := p.loader.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	src := []byte(content)
	ctx := gparser.NewContext()
	root := p.md.Parser().Parse(text.NewReader(src), gparser.WithContext(ctx))

	doc := &docmodel.Document{
		RootPath: path,
		Format:   "markdown",
		Files:    []string{path},
		Meta:     meta.Get(ctx),
	}

	w := &mdWalker{
		src:    src,
		file:   path,
		lines:  newLineIndex(src),
		prefix: filePrefix(p.baseDir, path),
		paths:  pathTable{},
	}

	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		return w.visit(n), nil
	})

	doc.Sections = w.sections
	doc.Elements = w.elements
	doc.Warnings = w.warnings
	doc.Title = w.documentTitle
	if title, ok := doc.Meta["title"].(string); ok && title != "" {
		doc.Title = title
	}

	totalLines := len(splitLines(content))
	if len(doc.Sections) == 0 {
		stem := fileStem(path)
		end := totalLines
		if end == 0 {
			end = 1
		}
		doc.Sections = []*docmodel.Section{{
			Path:     w.prefix,
			Title:    stem,
			Level:    0,
			Location: docmodel.SourceLocation{File: path, Line: 1, EndLine: end},
		}}
		if doc.Title == "" {
			doc.Title = stem
		}
	}

	computeEndLines(doc.Sections, map[string]int{path: totalLines})
	assignElementIndexes(doc.Sections, doc.Elements)

	return doc, nil
}

// lineIndex maps byte offsets in the source to 1-based line numbers.
type lineIndex []int

func newLineIndex(src []byte) lineIndex {
	starts := []int{0}
	for i, b := range src {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

func (li lineIndex) lineAt(offset int) int {
	return sort.SearchInts(li, offset+1)
}

// mdWalker builds sections and elements from a goldmark AST walk. Headings
// nest on an explicit stack, the same way the AsciiDoc parser nests them:
// "#" is the document root (level 0), "##" is level 1, and so on.
type mdWalker struct {
	src    []byte
	file   string
	lines  lineIndex
	prefix string
	paths  pathTable

	sections      []*docmodel.Section
	stack         []*docmodel.Section
	documentTitle string
	currentPath   string

	elements []*docmodel.Element
	warnings []docmodel.ParseWarning
}

func (w *mdWalker) visit(n ast.Node) ast.WalkStatus {
	switch node := n.(type) {
	case *ast.Heading:
		w.addSection(node)
		return ast.WalkSkipChildren

	case *ast.FencedCodeBlock:
		w.addCode(node)
		return ast.WalkSkipChildren

	case *east.Table:
		w.addTable(node)
		return ast.WalkSkipChildren

	case *ast.List:
		w.addList(node)
		return ast.WalkSkipChildren

	case *ast.Image:
		w.addImage(node)
		return ast.WalkSkipChildren
	}
	return ast.WalkContinue
}

func (w *mdWalker) addSection(node *ast.Heading) {
	title := strings.TrimSpace(string(node.Text(w.src)))
	level := node.Level - 1
	line := w.nodeStartLine(node)

	section := &docmodel.Section{
		Title:    title,
		Level:    level,
		Location: docmodel.SourceLocation{File: w.file, Line: line},
	}

	if level == 0 {
		if w.documentTitle == "" {
			w.documentTitle = title
		}
		section.Path = w.paths.unique(w.prefix)
		w.sections = append(w.sections, section)
		w.stack = []*docmodel.Section{section}
		w.currentPath = section.Path
		return
	}

	for len(w.stack) > 0 && w.stack[len(w.stack)-1].Level >= level {
		w.stack = w.stack[:len(w.stack)-1]
	}

	slug := Slugify(title)
	if len(w.stack) > 0 {
		parent := w.stack[len(w.stack)-1]
		if level > parent.Level+1 {
			w.warnings = append(w.warnings, docmodel.ParseWarning{
				Type: docmodel.WarnHeadingSkip,
				File: w.file,
				Line: line,
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
		section.Path = w.paths.unique(w.prefix + ":" + sectionPath)
		parent.Children = append(parent.Children, section)
	} else {
		section.Path = w.paths.unique(w.prefix + ":" + slug)
		w.sections = append(w.sections, section)
	}

	w.stack = append(w.stack, section)
	w.currentPath = section.Path
}

func (w *mdWalker) addCode(node *ast.FencedCodeBlock) {
	lang := string(node.Language(w.src))
	if lang == "" {
		lang = "plain"
	}

	start, end, ok := w.nodeSpan(node)
	if !ok {
		if node.Info == nil {
			return
		}
		start = w.lines.lineAt(node.Info.Segment.Start)
		end = start + 1
	} else {
		// Lines() cover the fenced content; the fences sit one line outside.
		start--
		end++
	}

	var content []string
	lines := node.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		content = append(content, strings.TrimSuffix(string(seg.Value(w.src)), "\n"))
	}

	w.elements = append(w.elements, &docmodel.Element{
		Type:     docmodel.ElementCode,
		Location: docmodel.SourceLocation{File: w.file, Line: start, EndLine: end},
		Section:  w.currentPath,
		Language: lang,
		Content:  strings.Join(content, "\n"),
		Preview:  "```" + lang,
	})
}

func (w *mdWalker) addTable(node *east.Table) {
	start, end, ok := w.nodeSpan(node)
	if !ok {
		return
	}
	w.elements = append(w.elements, &docmodel.Element{
		Type:     docmodel.ElementTable,
		Location: docmodel.SourceLocation{File: w.file, Line: start, EndLine: end},
		Section:  w.currentPath,
		Preview:  "| table |",
	})
}

func (w *mdWalker) addList(node *ast.List) {
	start, end, ok := w.nodeSpan(node)
	if !ok {
		return
	}
	listType := "unordered"
	if node.IsOrdered() {
		listType = "ordered"
	}
	w.elements = append(w.elements, &docmodel.Element{
		Type:     docmodel.ElementList,
		Location: docmodel.SourceLocation{File: w.file, Line: start, EndLine: end},
		Section:  w.currentPath,
		Subtype:  listType,
		Preview:  listType + " list",
	})

	// A list may contain nested images or code; they are intentionally not
	// re-emitted as separate elements, matching the flat element model.
}

func (w *mdWalker) addImage(node *ast.Image) {
	target := string(node.Destination)
	alt := string(node.Text(w.src))
	line := 0
	if p := node.Parent(); p != nil {
		line = w.nodeStartLine(p)
	}
	if line == 0 {
		return
	}
	w.elements = append(w.elements, &docmodel.Element{
		Type:     docmodel.ElementImage,
		Location: docmodel.SourceLocation{File: w.file, Line: line, EndLine: line},
		Section:  w.currentPath,
		Target:   target,
		Alt:      alt,
		Preview:  fmt.Sprintf("![%s](%s)", alt, target),
	})
}

// nodeStartLine finds the first source line of a node via its own line
// segments or, failing that, the segments of its descendants.
func (w *mdWalker) nodeStartLine(n ast.Node) int {
	start, _, ok := w.nodeSpan(n)
	if !ok {
		return 1
	}
	return start
}

// nodeSpan computes the 1-based [start, end] line range covered by a node by
// collecting every text segment beneath it.
func (w *mdWalker) nodeSpan(n ast.Node) (int, int, bool) {
	minOff, maxOff := -1, -1
	var collect func(ast.Node)
	collect = func(node ast.Node) {
		if node.Type() == ast.TypeBlock {
			lines := node.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				minOff, maxOff = expandRange(minOff, maxOff, seg.Start, seg.Stop)
			}
		}
		if t, ok := node.(*ast.Text); ok {
			minOff, maxOff = expandRange(minOff, maxOff, t.Segment.Start, t.Segment.Stop)
		}
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			collect(c)
		}
	}
	collect(n)
	if minOff < 0 {
		return 0, 0, false
	}
	stop := maxOff - 1
	if stop < minOff {
		stop = minOff
	}
	return w.lines.lineAt(minOff), w.lines.lineAt(stop), true
}

func expandRange(minOff, maxOff, start, stop int) (int, int) {
	if minOff < 0 || start < minOff {
		minOff = start
	}
	if stop > maxOff {
		maxOff = stop
	}
	return minOff, maxOff
}
