package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/dgallion1/docstruct/internal/docmodel"
)

var numericPrefixRe = regexp.MustCompile(`^(\d+)[-_.]?(.*)$`)

// ParseFolder parses a folder of Markdown files into one Document. The
// folder hierarchy supplies the structure: every directory becomes a node
// whose children are its files and subdirectories, index/README first, the
// rest in numeric-prefix-aware order.
func (p *MarkdownParser) ParseFolder(folderPath string) (*docmodel.Document, error) {
	info, err := os.Stat(folderPath)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", folderPath, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", folderPath)
	}

	doc := &docmodel.Document{
		RootPath: folderPath,
		Format:   "markdown",
		Title:    filepath.Base(folderPath),
	}

	root, err := p.parseDir(folderPath, doc)
	if err != nil {
		return nil, err
	}
	doc.Sections = []*docmodel.Section{root}
	return doc, nil
}

// parseDir builds the structural node for one directory and recurses into
// its sorted children.
func (p *MarkdownParser) parseDir(dir string, doc *docmodel.Document) (*docmodel.Section, error) {
	node := &docmodel.Section{
		Path:     filePrefix(p.baseDir, dir),
		Title:    filepath.Base(dir),
		Level:    0,
		Location: docmodel.SourceLocation{File: dir, Line: 1, EndLine: 1},
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	isDir := map[string]bool{}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if e.IsDir() {
			names = append(names, e.Name())
			isDir[e.Name()] = true
			continue
		}
		if strings.ToLower(filepath.Ext(e.Name())) == ".md" {
			names = append(names, e.Name())
		}
	}
	SortFolderEntries(names)

	for _, name := range names {
		child := filepath.Join(dir, name)
		if isDir[name] {
			sub, err := p.parseDir(child, doc)
			if err != nil {
				return nil, err
			}
			if len(sub.Children) > 0 {
				node.Children = append(node.Children, sub)
			}
			continue
		}

		fileDoc, err := p.ParseFile(child)
		if err != nil {
			// A corrupt file aborts only its own parse, not the folder's.
			doc.Warnings = append(doc.Warnings, docmodel.ParseWarning{
				Type:    docmodel.WarnUnclosedBlock,
				File:    child,
				Line:    1,
				Message: fmt.Sprintf("failed to parse: %v", err),
			})
			continue
		}
		doc.Files = append(doc.Files, fileDoc.Files...)
		doc.Elements = append(doc.Elements, fileDoc.Elements...)
		doc.Warnings = append(doc.Warnings, fileDoc.Warnings...)
		doc.Diagnostics = append(doc.Diagnostics, fileDoc.Diagnostics...)
		node.Children = append(node.Children, fileDoc.Sections...)
	}

	return node, nil
}

// SortFolderEntries orders directory entries in place: index/README first,
// then entries with a numeric prefix compared by their leading integer, then
// the rest in case-sensitive alphabetic order.
func SortFolderEntries(names []string) {
	sort.SliceStable(names, func(i, j int) bool {
		pi, ni, ri := folderSortKey(names[i])
		pj, nj, rj := folderSortKey(names[j])
		if pi != pj {
			return pi < pj
		}
		if pi == 1 && ni != nj {
			return ni < nj
		}
		return ri < rj
	})
}

// folderSortKey returns (priority, numericPrefix, remainder) for one entry.
func folderSortKey(name string) (int, int, string) {
	lower := strings.ToLower(name)
	if lower == "index.md" || lower == "readme.md" || lower == "index" || lower == "readme" {
		return 0, 0, ""
	}
	if m := numericPrefixRe.FindStringSubmatch(name); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil {
			return 1, n, m[2]
		}
	}
	return 2, 0, name
}
