// Package parser turns raw AsciiDoc and Markdown markup into source-mapped
// document trees. The AsciiDoc parser resolves include directives across
// files; the Markdown parser derives structure from one file plus the folder
// hierarchy.
package parser

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dgallion1/docstruct/internal/docmodel"
)

// Loader reads file content for the parsers. The default implementation
// reads from the OS file system; tests substitute an in-memory map.
type Loader interface {
	ReadFile(path string) (string, error)
}

// OSLoader reads files from disk.
type OSLoader struct{}

func (OSLoader) ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// MapLoader serves content from memory, keyed by path.
type MapLoader map[string]string

func (m MapLoader) ReadFile(path string) (string, error) {
	content, ok := m[path]
	if !ok {
		return "", os.ErrNotExist
	}
	return content, nil
}

// SupportedExtensions lists file extensions the parsers can handle.
var SupportedExtensions = map[string]bool{
	".adoc":     true,
	".asciidoc": true,
	".md":       true,
	".markdown": true,
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	return SupportedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// FormatForFile returns "asciidoc" or "markdown" for a filename.
func FormatForFile(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".adoc", ".asciidoc":
		return "asciidoc"
	default:
		return "markdown"
	}
}

var (
	slugStrip    = regexp.MustCompile(`[^\pL\pN\s_-]`)
	slugSpace    = regexp.MustCompile(`[\s_]+`)
	slugCollapse = regexp.MustCompile(`-+`)
)

// Slugify converts a title to its canonical path segment: lowercase, spaces
// and underscores become dashes, punctuation is dropped, unicode letters are
// preserved.
func Slugify(text string) string {
	slug := slugStrip.ReplaceAllString(strings.ToLower(text), "")
	slug = slugSpace.ReplaceAllString(slug, "-")
	slug = slugCollapse.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// filePrefix is the relative path from baseDir to file without the
// extension, with forward slashes. It is the document identifier segment of
// every canonical path produced from that file.
func filePrefix(baseDir, file string) string {
	rel, err := filepath.Rel(baseDir, file)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = filepath.Base(file)
	}
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))
	return filepath.ToSlash(rel)
}

// fileStem is the base name of a file without its extension.
func fileStem(file string) string {
	base := filepath.Base(file)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// pathTable assigns unique canonical paths, disambiguating repeated slugs
// with an occurrence counter ("-2", "-3", ...). Collisions are expected when
// titles repeat; they are never an error.
type pathTable map[string]int

func (t pathTable) unique(path string) string {
	if _, seen := t[path]; !seen {
		t[path] = 1
		return path
	}
	t[path]++
	next := path + "-" + itoa(t[path])
	t[next] = 1
	return next
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// assignElementIndexes numbers elements 0-based within their owning section
// and attaches them to the section nodes.
func assignElementIndexes(sections []*docmodel.Section, elements []*docmodel.Element) {
	byPath := map[string]*docmodel.Section{}
	for _, root := range sections {
		root.Walk(func(s *docmodel.Section) { byPath[s.Path] = s })
	}
	counts := map[string]int{}
	for _, el := range elements {
		el.Index = counts[el.Section]
		counts[el.Section]++
		if sec, ok := byPath[el.Section]; ok {
			sec.Elements = append(sec.Elements, el)
		}
	}
}

// computeEndLines sets EndLine for every section: the line before the next
// section at the same or a shallower level in the same physical file, or the
// last line of that file. Descendant sections fall inside their parent's span.
func computeEndLines(sections []*docmodel.Section, lineCount map[string]int) {
	byFile := map[string][]*docmodel.Section{}
	for _, root := range sections {
		root.Walk(func(s *docmodel.Section) {
			byFile[s.Location.File] = append(byFile[s.Location.File], s)
		})
	}
	for _, secs := range byFile {
		sortSectionsByLine(secs)
		for i, sec := range secs {
			sec.Location.EndLine = lineCount[sec.Location.File]
			for j := i + 1; j < len(secs); j++ {
				if secs[j].Level <= sec.Level {
					sec.Location.EndLine = secs[j].Location.Line - 1
					break
				}
			}
			if sec.Location.EndLine < sec.Location.Line {
				sec.Location.EndLine = sec.Location.Line
			}
		}
	}
}

func sortSectionsByLine(secs []*docmodel.Section) {
	// Insertion sort; per-file section counts are small.
	for i := 1; i < len(secs); i++ {
		for j := i; j > 0 && secs[j].Location.Line < secs[j-1].Location.Line; j-- {
			secs[j], secs[j-1] = secs[j-1], secs[j]
		}
	}
}
