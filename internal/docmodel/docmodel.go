// Package docmodel holds the shared value types used by the parsers,
// the structure index, and the mutation engine: source locations, typed
// content elements, sections, documents, and diagnostics.
package docmodel

// SourceLocation is a position in a physical source file. For content that
// arrived via an include directive, ResolvedFrom records the chain of
// including files (outermost first); File always names the physical file
// that contains the text.
type SourceLocation struct {
	File         string   `json:"file"`
	Line         int      `json:"line"`               // 1-based start line
	EndLine      int      `json:"end_line,omitempty"` // inclusive, 0 if unknown
	ResolvedFrom []string `json:"resolved_from,omitempty"`
}

// ElementType identifies a typed content fragment. The set is closed.
type ElementType string

const (
	ElementCode       ElementType = "code"
	ElementTable      ElementType = "table"
	ElementImage      ElementType = "image"
	ElementList       ElementType = "list"
	ElementDiagram    ElementType = "diagram"
	ElementAdmonition ElementType = "admonition"
)

// Element is a typed content fragment owned by a section.
type Element struct {
	Type     ElementType    `json:"type"`
	Location SourceLocation `json:"location"`
	Section  string         `json:"parent_section"` // canonical path of the owning section
	Index    int            `json:"index"`          // 0-based within the owning section
	Preview  string         `json:"preview,omitempty"`

	// Type-specific fields.
	Language string `json:"language,omitempty"` // code
	Content  string `json:"content,omitempty"`  // code, diagram, table, list
	Subtype  string `json:"subtype,omitempty"`  // diagram: plantuml/mermaid/ditaa; list: unordered/ordered/description; admonition: NOTE/TIP/...
	Target   string `json:"target,omitempty"`   // image target
	Alt      string `json:"alt,omitempty"`      // image alt text
}

// Section is a node in the document hierarchy. Path is the canonical
// hierarchical identifier and is unique across the whole index.
type Section struct {
	Path     string         `json:"path"`
	Title    string         `json:"title"`
	Level    int            `json:"level"` // 0 = document root
	Location SourceLocation `json:"location"`
	Children []*Section     `json:"children,omitempty"` // document order
	Elements []*Element     `json:"-"`
}

// Walk visits the section and all descendants in document order.
func (s *Section) Walk(fn func(*Section)) {
	fn(s)
	for _, c := range s.Children {
		c.Walk(fn)
	}
}

// Document is one top-level unit: an AsciiDoc root file with its include
// closure, or a Markdown file or folder.
type Document struct {
	RootPath string            // the root file or folder this document was parsed from
	Title    string            // document title (from metadata or filename)
	Format   string            // "asciidoc" or "markdown"
	Sections []*Section        // top-level sections
	Elements []*Element        // all elements, document order
	Files    []string          // every physical file that contributed content
	Meta     map[string]any    // front-matter metadata (markdown only)
	Attrs    map[string]string // document attributes (asciidoc only)

	Diagnostics []Diagnostic
	Warnings    []ParseWarning
}

// AllSections returns every section of the document in document order.
func (d *Document) AllSections() []*Section {
	var out []*Section
	for _, s := range d.Sections {
		s.Walk(func(sec *Section) { out = append(out, sec) })
	}
	return out
}

// DiagnosticType classifies structural defects found while parsing or
// validating. Unresolved and circular includes are errors; orphaned files
// are warnings. Severity is carried separately from the type.
type DiagnosticType string

const (
	DiagUnresolvedInclude DiagnosticType = "unresolved_include"
	DiagCircularInclude   DiagnosticType = "circular_include"
	DiagOrphanedFile      DiagnosticType = "orphaned_file"
)

// Severity distinguishes errors from warnings.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Diagnostic is one structural defect with the offending path(s).
type Diagnostic struct {
	Type     DiagnosticType `json:"type"`
	Severity Severity       `json:"severity"`
	Path     string         `json:"path"`            // offending file path
	Chain    []string       `json:"chain,omitempty"` // include chain for circular includes
	Message  string         `json:"message"`
}

// Severity of the three diagnostic types is fixed: include problems are
// errors, orphaned files are warnings.
func severityFor(t DiagnosticType) Severity {
	if t == DiagOrphanedFile {
		return SeverityWarning
	}
	return SeverityError
}

// NewDiagnostic builds a diagnostic with the severity implied by its type.
func NewDiagnostic(t DiagnosticType, path, message string, chain ...string) Diagnostic {
	return Diagnostic{
		Type:     t,
		Severity: severityFor(t),
		Path:     path,
		Chain:    chain,
		Message:  message,
	}
}

// ParseWarningType classifies lenient-policy findings that never fail a build.
type ParseWarningType string

const (
	WarnUnclosedBlock ParseWarningType = "unclosed_block"
	WarnUnclosedTable ParseWarningType = "unclosed_table"
	WarnHeadingSkip   ParseWarningType = "heading_skip"
)

// ParseWarning is a structural oddity detected during parsing.
type ParseWarning struct {
	Type    ParseWarningType `json:"type"`
	File    string           `json:"file"`
	Line    int              `json:"line"`
	Message string           `json:"message"`
}
