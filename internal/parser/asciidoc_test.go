package parser

import (
	"strings"
	"testing"

	"github.com/dgallion1/docstruct/internal/docmodel"
)

func TestAsciidocParser_SectionHierarchy(t *testing.T) {
	loader := MapLoader{
		"docs/guide.adoc": "= Guide\n\nintro\n\n== Security\n\nsecurity intro\n\n=== Authentication\n\nauth details\n\n== Usage\n\nrun it\n",
	}
	p := NewAsciidocParser("docs", loader)

	doc, err := p.ParseFile("docs/guide.adoc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if doc.Title != "Guide" {
		t.Errorf("expected title %q, got %q", "Guide", doc.Title)
	}
	if len(doc.Sections) != 1 {
		t.Fatalf("expected 1 top section, got %d", len(doc.Sections))
	}

	root := doc.Sections[0]
	if root.Path != "guide" {
		t.Errorf("expected root path %q, got %q", "guide", root.Path)
	}
	if root.Level != 0 {
		t.Errorf("expected root level 0, got %d", root.Level)
	}
	if len(root.Children) != 2 {
		t.Fatalf("expected 2 children, got %d", len(root.Children))
	}

	security := root.Children[0]
	if security.Path != "guide:security" {
		t.Errorf("expected path %q, got %q", "guide:security", security.Path)
	}
	if len(security.Children) != 1 {
		t.Fatalf("expected 1 child under security, got %d", len(security.Children))
	}
	auth := security.Children[0]
	if auth.Path != "guide:security.authentication" {
		t.Errorf("expected path %q, got %q", "guide:security.authentication", auth.Path)
	}
	if auth.Level != 2 {
		t.Errorf("expected level 2, got %d", auth.Level)
	}

	usage := root.Children[1]
	if usage.Path != "guide:usage" {
		t.Errorf("expected path %q, got %q", "guide:usage", usage.Path)
	}
}

func TestAsciidocParser_SectionSpans(t *testing.T) {
	loader := MapLoader{
		"docs/doc.adoc": "= Doc\n\n== Alpha\n\nalpha text\n\n== Beta\n\nbeta text\n",
	}
	p := NewAsciidocParser("docs", loader)

	doc, err := p.ParseFile("docs/doc.adoc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	root := doc.Sections[0]
	if root.Location.Line != 1 || root.Location.EndLine != 9 {
		t.Errorf("root span: expected 1-9, got %d-%d", root.Location.Line, root.Location.EndLine)
	}
	alpha := root.Children[0]
	if alpha.Location.Line != 3 || alpha.Location.EndLine != 6 {
		t.Errorf("alpha span: expected 3-6, got %d-%d", alpha.Location.Line, alpha.Location.EndLine)
	}
	beta := root.Children[1]
	if beta.Location.Line != 7 || beta.Location.EndLine != 9 {
		t.Errorf("beta span: expected 7-9, got %d-%d", beta.Location.Line, beta.Location.EndLine)
	}
}

func TestAsciidocParser_IncludeResolution(t *testing.T) {
	loader := MapLoader{
		"docs/guide.adoc":    "= Guide\n\nintro\n\ninclude::chapter1.adoc[]\n",
		"docs/chapter1.adoc": "== Chapter One\n\nchapter content\n",
	}
	p := NewAsciidocParser("docs", loader)

	doc, err := p.ParseFile("docs/guide.adoc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Diagnostics) != 0 {
		t.Fatalf("expected no diagnostics, got %v", doc.Diagnostics)
	}
	if len(doc.Files) != 2 {
		t.Fatalf("expected 2 contributing files, got %v", doc.Files)
	}

	root := doc.Sections[0]
	if len(root.Children) != 1 {
		t.Fatalf("expected 1 child, got %d", len(root.Children))
	}
	ch := root.Children[0]
	if ch.Path != "guide:chapter-one" {
		t.Errorf("expected path %q, got %q", "guide:chapter-one", ch.Path)
	}
	if ch.Location.File != "docs/chapter1.adoc" {
		t.Errorf("expected physical file %q, got %q", "docs/chapter1.adoc", ch.Location.File)
	}
	if ch.Location.Line != 1 {
		t.Errorf("expected line 1 in included file, got %d", ch.Location.Line)
	}
	if len(ch.Location.ResolvedFrom) != 1 || ch.Location.ResolvedFrom[0] != "docs/guide.adoc" {
		t.Errorf("expected resolved_from [docs/guide.adoc], got %v", ch.Location.ResolvedFrom)
	}
}

func TestAsciidocParser_CircularInclude(t *testing.T) {
	loader := MapLoader{
		"docs/a.adoc": "= A\n\ninclude::b.adoc[]\n\n== After\n\nstill parsed\n",
		"docs/b.adoc": "== B Section\n\ninclude::a.adoc[]\n\nb content\n",
	}
	p := NewAsciidocParser("docs", loader)

	doc, err := p.ParseFile("docs/a.adoc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var circular []docmodel.Diagnostic
	for _, d := range doc.Diagnostics {
		if d.Type == docmodel.DiagCircularInclude {
			circular = append(circular, d)
		}
	}
	if len(circular) != 1 {
		t.Fatalf("expected exactly 1 circular diagnostic, got %d: %v", len(circular), doc.Diagnostics)
	}
	if circular[0].Severity != docmodel.SeverityError {
		t.Errorf("expected error severity, got %s", circular[0].Severity)
	}
	wantChain := []string{"docs/a.adoc", "docs/b.adoc", "docs/a.adoc"}
	if len(circular[0].Chain) != len(wantChain) {
		t.Fatalf("expected chain %v, got %v", wantChain, circular[0].Chain)
	}
	for i, f := range wantChain {
		if circular[0].Chain[i] != f {
			t.Errorf("chain[%d]: expected %q, got %q", i, f, circular[0].Chain[i])
		}
	}

	// Everything outside the cycle still parses.
	root := doc.Sections[0]
	titles := map[string]bool{}
	for _, c := range root.Children {
		titles[c.Title] = true
	}
	if !titles["B Section"] || !titles["After"] {
		t.Errorf("expected sections from both files, got %v", titles)
	}
}

func TestAsciidocParser_UnresolvedInclude(t *testing.T) {
	loader := MapLoader{
		"docs/a.adoc": "= A\n\ninclude::missing.adoc[]\n\n== Rest\n\ntext\n",
	}
	p := NewAsciidocParser("docs", loader)

	doc, err := p.ParseFile("docs/a.adoc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Diagnostics) != 1 {
		t.Fatalf("expected 1 diagnostic, got %v", doc.Diagnostics)
	}
	d := doc.Diagnostics[0]
	if d.Type != docmodel.DiagUnresolvedInclude {
		t.Errorf("expected unresolved_include, got %s", d.Type)
	}
	if d.Path != "docs/missing.adoc" {
		t.Errorf("expected path docs/missing.adoc, got %q", d.Path)
	}
	if len(doc.Sections[0].Children) != 1 {
		t.Errorf("expected parse to continue past the bad include")
	}
}

func TestAsciidocParser_Elements(t *testing.T) {
	content := strings.Join([]string{
		"= Doc",
		"",
		"== Code",
		"",
		"[source, go]",
		"----",
		"func main() {}",
		"----",
		"",
		"NOTE: Be careful with this API.",
		"",
		"image::arch.png[Architecture]",
		"",
		"|===",
		"| a | b",
		"|===",
		"",
		"* one",
		"* two",
		"",
	}, "\n")
	loader := MapLoader{"docs/doc.adoc": content}
	p := NewAsciidocParser("docs", loader)

	doc, err := p.ParseFile("docs/doc.adoc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	byType := map[docmodel.ElementType]*docmodel.Element{}
	for _, el := range doc.Elements {
		byType[el.Type] = el
	}

	code := byType[docmodel.ElementCode]
	if code == nil {
		t.Fatal("expected a code element")
	}
	if code.Language != "go" {
		t.Errorf("expected language go, got %q", code.Language)
	}
	if code.Content != "func main() {}" {
		t.Errorf("expected code content, got %q", code.Content)
	}
	if code.Section != "doc:code" {
		t.Errorf("expected owning section doc:code, got %q", code.Section)
	}
	if code.Location.Line != 6 || code.Location.EndLine != 8 {
		t.Errorf("code span: expected 6-8, got %d-%d", code.Location.Line, code.Location.EndLine)
	}
	if code.Preview != "[source, go]" {
		t.Errorf("unexpected preview %q", code.Preview)
	}

	adm := byType[docmodel.ElementAdmonition]
	if adm == nil {
		t.Fatal("expected an admonition element")
	}
	if adm.Subtype != "NOTE" {
		t.Errorf("expected subtype NOTE, got %q", adm.Subtype)
	}

	img := byType[docmodel.ElementImage]
	if img == nil {
		t.Fatal("expected an image element")
	}
	if img.Target != "arch.png" || img.Alt != "Architecture" {
		t.Errorf("unexpected image %q %q", img.Target, img.Alt)
	}

	if byType[docmodel.ElementTable] == nil {
		t.Error("expected a table element")
	}

	list := byType[docmodel.ElementList]
	if list == nil {
		t.Fatal("expected a list element")
	}
	if list.Subtype != "unordered" {
		t.Errorf("expected unordered list, got %q", list.Subtype)
	}
	if list.Location.Line != 18 || list.Location.EndLine != 19 {
		t.Errorf("list span: expected 18-19, got %d-%d", list.Location.Line, list.Location.EndLine)
	}
}

func TestAsciidocParser_DiagramBlock(t *testing.T) {
	loader := MapLoader{
		"docs/d.adoc": "= D\n\n[plantuml, flow, svg]\n----\nA -> B\n----\n",
	}
	p := NewAsciidocParser("docs", loader)

	doc, err := p.ParseFile("docs/d.adoc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Elements) != 1 {
		t.Fatalf("expected 1 element, got %d", len(doc.Elements))
	}
	el := doc.Elements[0]
	if el.Type != docmodel.ElementDiagram {
		t.Fatalf("expected diagram, got %s", el.Type)
	}
	if el.Subtype != "plantuml" {
		t.Errorf("expected subtype plantuml, got %q", el.Subtype)
	}
	if el.Content != "A -> B" {
		t.Errorf("expected diagram source, got %q", el.Content)
	}
}

func TestAsciidocParser_AttributeSubstitution(t *testing.T) {
	loader := MapLoader{
		"docs/doc.adoc": ":product: Docstruct\n\n= {product} Guide\n\n== About {product}\n\ntext\n",
	}
	p := NewAsciidocParser("docs", loader)

	doc, err := p.ParseFile("docs/doc.adoc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Attrs["product"] != "Docstruct" {
		t.Errorf("expected attribute product=Docstruct, got %v", doc.Attrs)
	}
	if doc.Title != "Docstruct Guide" {
		t.Errorf("expected substituted title, got %q", doc.Title)
	}
	if doc.Sections[0].Children[0].Title != "About Docstruct" {
		t.Errorf("expected substituted section title, got %q", doc.Sections[0].Children[0].Title)
	}
}

func TestAsciidocParser_DuplicateTitlesDisambiguated(t *testing.T) {
	loader := MapLoader{
		"docs/doc.adoc": "= Doc\n\n== Setup\n\nfirst\n\n== Setup\n\nsecond\n",
	}
	p := NewAsciidocParser("docs", loader)

	doc, err := p.ParseFile("docs/doc.adoc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	root := doc.Sections[0]
	if len(root.Children) != 2 {
		t.Fatalf("expected 2 children, got %d", len(root.Children))
	}
	if root.Children[0].Path != "doc:setup" {
		t.Errorf("expected doc:setup, got %q", root.Children[0].Path)
	}
	if root.Children[1].Path != "doc:setup-2" {
		t.Errorf("expected doc:setup-2, got %q", root.Children[1].Path)
	}
}

func TestAsciidocParser_SecondDocumentTitleGetsUniquePath(t *testing.T) {
	loader := MapLoader{
		"docs/doc.adoc": "= First\n\nintro\n\n= Second\n\nmore\n",
	}
	p := NewAsciidocParser("docs", loader)

	doc, err := p.ParseFile("docs/doc.adoc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Title != "First" {
		t.Errorf("expected the first document title to win, got %q", doc.Title)
	}
	if len(doc.Sections) != 2 {
		t.Fatalf("expected 2 top sections, got %d", len(doc.Sections))
	}
	if doc.Sections[0].Path != "doc" {
		t.Errorf("expected path doc, got %q", doc.Sections[0].Path)
	}
	if doc.Sections[1].Path != "doc-2" {
		t.Errorf("expected path doc-2, got %q", doc.Sections[1].Path)
	}
}

func TestAsciidocParser_HeadingLevelSkipWarning(t *testing.T) {
	loader := MapLoader{
		"docs/doc.adoc": "= Doc\n\n=== Deep\n\ntext\n",
	}
	p := NewAsciidocParser("docs", loader)

	doc, err := p.ParseFile("docs/doc.adoc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Warnings) != 1 {
		t.Fatalf("expected 1 warning, got %v", doc.Warnings)
	}
	if doc.Warnings[0].Type != docmodel.WarnHeadingSkip {
		t.Errorf("expected heading_skip, got %s", doc.Warnings[0].Type)
	}
	// The skipping section is still indexed.
	if len(doc.Sections[0].Children) != 1 {
		t.Errorf("expected the deep section to be kept")
	}
}

func TestAsciidocParser_UnclosedBlockWarning(t *testing.T) {
	loader := MapLoader{
		"docs/doc.adoc": "= Doc\n\n[source, go]\n----\nnever closed\n",
	}
	p := NewAsciidocParser("docs", loader)

	doc, err := p.ParseFile("docs/doc.adoc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Warnings) != 1 {
		t.Fatalf("expected 1 warning, got %v", doc.Warnings)
	}
	w := doc.Warnings[0]
	if w.Type != docmodel.WarnUnclosedBlock {
		t.Errorf("expected unclosed_block, got %s", w.Type)
	}
	if w.Line != 4 {
		t.Errorf("expected warning at line 4, got %d", w.Line)
	}
}

func TestAsciidocParser_EmptyFile(t *testing.T) {
	loader := MapLoader{"docs/empty.adoc": ""}
	p := NewAsciidocParser("docs", loader)

	doc, err := p.ParseFile("docs/empty.adoc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Sections) != 1 {
		t.Fatalf("expected synthesized root section, got %d", len(doc.Sections))
	}
	root := doc.Sections[0]
	if root.Title != "empty" || root.Path != "empty" {
		t.Errorf("expected root named after the file stem, got %q/%q", root.Title, root.Path)
	}
	if root.Location.Line != 1 {
		t.Errorf("expected line 1, got %d", root.Location.Line)
	}
}

func TestAsciidocParser_ElementIndexesPerSection(t *testing.T) {
	content := strings.Join([]string{
		"= Doc",
		"",
		"== S1",
		"",
		"NOTE: first",
		"",
		"NOTE: second",
		"",
		"== S2",
		"",
		"NOTE: third",
		"",
	}, "\n")
	loader := MapLoader{"docs/doc.adoc": content}
	p := NewAsciidocParser("docs", loader)

	doc, err := p.ParseFile("docs/doc.adoc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Elements) != 3 {
		t.Fatalf("expected 3 elements, got %d", len(doc.Elements))
	}
	want := []struct {
		section string
		index   int
	}{
		{"doc:s1", 0},
		{"doc:s1", 1},
		{"doc:s2", 0},
	}
	for i, w := range want {
		el := doc.Elements[i]
		if el.Section != w.section || el.Index != w.index {
			t.Errorf("element[%d]: expected %s/%d, got %s/%d", i, w.section, w.index, el.Section, el.Index)
		}
	}
}
