package parser

import (
	"strings"
	"testing"

	"github.com/dgallion1/docstruct/internal/docmodel"
)

func TestMarkdownParser_SectionHierarchy(t *testing.T) {
	content := strings.Join([]string{
		"# My Document",
		"",
		"intro",
		"",
		"## Usage",
		"",
		"usage text",
		"",
		"### Advanced",
		"",
		"advanced text",
		"",
		"## FAQ",
		"",
		"answers",
		"",
	}, "\n")
	loader := MapLoader{"docs/readme.md": content}
	p := NewMarkdownParser("docs", loader)

	doc, err := p.ParseFile("docs/readme.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if doc.Title != "My Document" {
		t.Errorf("expected title %q, got %q", "My Document", doc.Title)
	}
	if len(doc.Sections) != 1 {
		t.Fatalf("expected 1 top section, got %d", len(doc.Sections))
	}

	root := doc.Sections[0]
	if root.Path != "readme" {
		t.Errorf("expected path %q, got %q", "readme", root.Path)
	}
	if root.Location.Line != 1 {
		t.Errorf("expected line 1, got %d", root.Location.Line)
	}
	if len(root.Children) != 2 {
		t.Fatalf("expected 2 children, got %d", len(root.Children))
	}

	usage := root.Children[0]
	if usage.Path != "readme:usage" {
		t.Errorf("expected readme:usage, got %q", usage.Path)
	}
	if usage.Location.Line != 5 {
		t.Errorf("expected usage at line 5, got %d", usage.Location.Line)
	}
	if len(usage.Children) != 1 || usage.Children[0].Path != "readme:usage.advanced" {
		t.Errorf("expected readme:usage.advanced child, got %v", usage.Children)
	}
	if usage.Location.EndLine != 12 {
		t.Errorf("usage span should include its subsection, got end %d", usage.Location.EndLine)
	}
}

func TestMarkdownParser_FrontMatter(t *testing.T) {
	content := "---\ntitle: Configured Title\nauthor: someone\n---\n\n# Heading\n\ntext\n"
	loader := MapLoader{"docs/page.md": content}
	p := NewMarkdownParser("docs", loader)

	doc, err := p.ParseFile("docs/page.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Title != "Configured Title" {
		t.Errorf("expected front-matter title, got %q", doc.Title)
	}
	if doc.Meta["author"] != "someone" {
		t.Errorf("expected author metadata, got %v", doc.Meta)
	}
	// Front matter is metadata, never a section.
	if len(doc.Sections) != 1 || doc.Sections[0].Title != "Heading" {
		t.Errorf("expected a single Heading section, got %v", doc.Sections)
	}
}

func TestMarkdownParser_CodeFence(t *testing.T) {
	content := "# Doc\n\n```go\nfmt.Println(\"hi\")\n```\n"
	loader := MapLoader{"docs/doc.md": content}
	p := NewMarkdownParser("docs", loader)

	doc, err := p.ParseFile("docs/doc.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Elements) != 1 {
		t.Fatalf("expected 1 element, got %d", len(doc.Elements))
	}
	code := doc.Elements[0]
	if code.Type != docmodel.ElementCode {
		t.Fatalf("expected code element, got %s", code.Type)
	}
	if code.Language != "go" {
		t.Errorf("expected language go, got %q", code.Language)
	}
	if code.Content != `fmt.Println("hi")` {
		t.Errorf("unexpected content %q", code.Content)
	}
	if code.Location.Line != 3 || code.Location.EndLine != 5 {
		t.Errorf("expected span 3-5 including fences, got %d-%d", code.Location.Line, code.Location.EndLine)
	}
	if code.Section != "doc" {
		t.Errorf("expected owning section doc, got %q", code.Section)
	}
}

func TestMarkdownParser_TableListImage(t *testing.T) {
	content := strings.Join([]string{
		"# Doc",
		"",
		"| a | b |",
		"|---|---|",
		"| 1 | 2 |",
		"",
		"- one",
		"- two",
		"",
		"![diagram](arch.png)",
		"",
	}, "\n")
	loader := MapLoader{"docs/doc.md": content}
	p := NewMarkdownParser("docs", loader)

	doc, err := p.ParseFile("docs/doc.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	byType := map[docmodel.ElementType]*docmodel.Element{}
	for _, el := range doc.Elements {
		byType[el.Type] = el
	}

	table := byType[docmodel.ElementTable]
	if table == nil {
		t.Fatal("expected a table element")
	}
	if table.Location.Line != 3 {
		t.Errorf("expected table at line 3, got %d", table.Location.Line)
	}

	list := byType[docmodel.ElementList]
	if list == nil {
		t.Fatal("expected a list element")
	}
	if list.Subtype != "unordered" {
		t.Errorf("expected unordered, got %q", list.Subtype)
	}
	if list.Location.Line != 7 || list.Location.EndLine != 8 {
		t.Errorf("list span: expected 7-8, got %d-%d", list.Location.Line, list.Location.EndLine)
	}

	img := byType[docmodel.ElementImage]
	if img == nil {
		t.Fatal("expected an image element")
	}
	if img.Target != "arch.png" {
		t.Errorf("expected target arch.png, got %q", img.Target)
	}
	if img.Location.Line != 10 {
		t.Errorf("expected image at line 10, got %d", img.Location.Line)
	}
}

func TestMarkdownParser_OrderedList(t *testing.T) {
	loader := MapLoader{"docs/doc.md": "# Doc\n\n1. first\n2. second\n"}
	p := NewMarkdownParser("docs", loader)

	doc, err := p.ParseFile("docs/doc.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Elements) != 1 {
		t.Fatalf("expected 1 element, got %d", len(doc.Elements))
	}
	if doc.Elements[0].Subtype != "ordered" {
		t.Errorf("expected ordered list, got %q", doc.Elements[0].Subtype)
	}
}

func TestMarkdownParser_HeadingSkipWarning(t *testing.T) {
	loader := MapLoader{"docs/doc.md": "# Doc\n\n### Deep\n\ntext\n"}
	p := NewMarkdownParser("docs", loader)

	doc, err := p.ParseFile("docs/doc.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Warnings) != 1 || doc.Warnings[0].Type != docmodel.WarnHeadingSkip {
		t.Fatalf("expected a heading_skip warning, got %v", doc.Warnings)
	}
}

func TestMarkdownParser_EmptyFile(t *testing.T) {
	loader := MapLoader{"docs/notes.md": ""}
	p := NewMarkdownParser("docs", loader)

	doc, err := p.ParseFile("docs/notes.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Sections) != 1 {
		t.Fatalf("expected synthesized root section, got %d", len(doc.Sections))
	}
	if doc.Sections[0].Title != "notes" {
		t.Errorf("expected title from stem, got %q", doc.Sections[0].Title)
	}
}

func TestMarkdownParser_NestedFilePrefix(t *testing.T) {
	loader := MapLoader{"docs/guides/install.md": "# Install\n\n## Linux\n\nsteps\n"}
	p := NewMarkdownParser("docs", loader)

	doc, err := p.ParseFile("docs/guides/install.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	root := doc.Sections[0]
	if root.Path != "guides/install" {
		t.Errorf("expected prefix guides/install, got %q", root.Path)
	}
	if len(root.Children) != 1 || root.Children[0].Path != "guides/install:linux" {
		t.Errorf("expected guides/install:linux, got %v", root.Children)
	}
}
