package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dgallion1/docstruct/internal/docmodel"
	"github.com/dgallion1/docstruct/internal/index"
	"github.com/dgallion1/docstruct/internal/mutate"
	"github.com/dgallion1/docstruct/internal/validate"
	"github.com/go-chi/chi/v5"
)

// structureNode is the tree shape returned by the structure endpoint.
type structureNode struct {
	Path     string          `json:"path"`
	Title    string          `json:"title"`
	Level    int             `json:"level"`
	File     string          `json:"file"`
	Line     int             `json:"line"`
	Children []structureNode `json:"children,omitempty"`
}

func toStructureNode(sec *docmodel.Section, depth int) structureNode {
	node := structureNode{
		Path:  sec.Path,
		Title: sec.Title,
		Level: sec.Level,
		File:  sec.Location.File,
		Line:  sec.Location.Line,
	}
	if depth == 1 {
		return node
	}
	for _, child := range sec.Children {
		node.Children = append(node.Children, toStructureNode(child, depth-1))
	}
	return node
}

// handleStructure returns the merged document hierarchy, optionally truncated
// at max_depth levels (0 or absent means the full tree).
func (s *Server) handleStructure(w http.ResponseWriter, r *http.Request) {
	maxDepth := 0
	if v := r.URL.Query().Get("max_depth"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			jsonError(w, "max_depth must be a non-negative integer", http.StatusBadRequest)
			return
		}
		maxDepth = n
	}

	tops := s.index.TopSections()
	nodes := make([]structureNode, 0, len(tops))
	for _, sec := range tops {
		depth := maxDepth
		if depth == 0 {
			depth = -1 // unbounded
		}
		nodes = append(nodes, toStructureNode(sec, depth))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sections":       nodes,
		"total_sections": s.index.TotalSections(),
	})
}

// handleGetSection returns one section's raw content with its source span
// and the content hash a later update must present.
func (s *Server) handleGetSection(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	sec, err := s.lookup(path)
	if err != nil {
		writeError(w, err)
		return
	}

	content, _ := s.index.SectionContent(path)
	children := make([]string, 0, len(sec.Children))
	for _, c := range sec.Children {
		children = append(children, c.Path)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"path":         sec.Path,
		"title":        sec.Title,
		"level":        sec.Level,
		"location":     sec.Location,
		"format":       formatForSection(s.index, sec),
		"content":      content,
		"content_hash": mutate.Hash(content),
		"children":     children,
	})
}

// handleSectionsAtLevel lists every section at one nesting level.
func (s *Server) handleSectionsAtLevel(w http.ResponseWriter, r *http.Request) {
	level, err := strconv.Atoi(chi.URLParam(r, "level"))
	if err != nil || level < 0 {
		jsonError(w, "level must be a non-negative integer", http.StatusBadRequest)
		return
	}

	secs := s.index.SectionsAtLevel(level)
	out := make([]map[string]any, 0, len(secs))
	for _, sec := range secs {
		out = append(out, map[string]any{
			"path":  sec.Path,
			"title": sec.Title,
			"file":  sec.Location.File,
			"line":  sec.Location.Line,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"level":    level,
		"sections": out,
		"count":    len(out),
	})
}

var validElementTypes = map[docmodel.ElementType]bool{
	docmodel.ElementCode:       true,
	docmodel.ElementTable:      true,
	docmodel.ElementImage:      true,
	docmodel.ElementList:       true,
	docmodel.ElementDiagram:    true,
	docmodel.ElementAdmonition: true,
}

// handleElements lists typed content elements, filtered by type and/or
// owning section.
func (s *Server) handleElements(w http.ResponseWriter, r *http.Request) {
	elementType := docmodel.ElementType(r.URL.Query().Get("type"))
	if elementType != "" && !validElementTypes[elementType] {
		jsonError(w, fmt.Sprintf("unknown element type %q", elementType), http.StatusBadRequest)
		return
	}
	sectionPath := r.URL.Query().Get("section")
	if sectionPath != "" {
		if _, err := s.lookup(sectionPath); err != nil {
			writeError(w, err)
			return
		}
	}

	elements := s.index.Elements(elementType, sectionPath)
	writeJSON(w, http.StatusOK, map[string]any{
		"elements": elements,
		"count":    len(elements),
	})
}

// handleSearch runs a scoped full-text query over realized section content.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		jsonError(w, "q query parameter is required", http.StatusBadRequest)
		return
	}
	scope := r.URL.Query().Get("scope")
	if scope != "" {
		if err := index.ValidatePath(scope); err != nil {
			writeError(w, err)
			return
		}
	}

	maxResults := s.cfg.MaxSearchResults
	if v := r.URL.Query().Get("max_results"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			jsonError(w, "max_results must be a positive integer", http.StatusBadRequest)
			return
		}
		if n < maxResults {
			maxResults = n
		}
	}

	results := s.search.Search(q, scope, maxResults)
	writeJSON(w, http.StatusOK, map[string]any{
		"query":         q,
		"scope":         scope,
		"results":       results,
		"total_results": len(results),
	})
}

// handleMetadata returns section metadata when a path is given, otherwise
// project-level metadata for the whole documentation tree.
func (s *Server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		s.projectMetadata(w)
		return
	}

	sec, err := s.lookup(path)
	if err != nil {
		writeError(w, err)
		return
	}

	content, _ := s.index.SectionContent(path)
	meta := map[string]any{
		"path":          sec.Path,
		"title":         sec.Title,
		"level":         sec.Level,
		"location":      sec.Location,
		"child_count":   len(sec.Children),
		"element_count": len(sec.Elements),
		"content_hash":  mutate.Hash(content),
		"line_count":    sec.Location.EndLine - sec.Location.Line + 1,
		"word_count":    len(strings.Fields(content)),
	}
	if info, err := os.Stat(sec.Location.File); err == nil {
		meta["last_modified"] = info.ModTime().UTC().Format(time.RFC3339)
	}
	if doc := s.index.DocumentForFile(sec.Location.File); doc != nil {
		docMeta := map[string]any{
			"title":  doc.Title,
			"format": doc.Format,
		}
		if len(doc.Attrs) > 0 {
			docMeta["attributes"] = doc.Attrs
		}
		if len(doc.Meta) > 0 {
			docMeta["front_matter"] = doc.Meta
		}
		meta["document"] = docMeta
	}
	writeJSON(w, http.StatusOK, meta)
}

func (s *Server) projectMetadata(w http.ResponseWriter) {
	docs := s.index.Documents()
	out := make([]map[string]any, 0, len(docs))
	var lastModified time.Time
	for _, doc := range docs {
		out = append(out, map[string]any{
			"root_path": doc.RootPath,
			"title":     doc.Title,
			"format":    doc.Format,
			"files":     len(doc.Files),
			"sections":  len(doc.AllSections()),
		})
		for _, file := range doc.Files {
			if info, err := os.Stat(file); err == nil && info.ModTime().After(lastModified) {
				lastModified = info.ModTime()
			}
		}
	}
	meta := map[string]any{
		"docs_root":   s.cfg.DocsRoot,
		"documents":   out,
		"total_files": len(s.index.DiscoveredFiles()),
		"stats":       s.index.Stats(),
	}
	if !lastModified.IsZero() {
		meta["last_modified"] = lastModified.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, meta)
}

// handleValidate runs a validation sweep and reports errors and warnings.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, validate.Run(s.index))
}

type updateRequest struct {
	Path          string `json:"path"`
	Content       string `json:"content"`
	PreserveTitle bool   `json:"preserve_title"`
	ExpectedHash  string `json:"expected_hash"`
}

// handleUpdateSection atomically replaces a section's content under the
// optimistic locking contract.
func (s *Server) handleUpdateSection(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Path == "" {
		jsonError(w, "path is required", http.StatusBadRequest)
		return
	}

	result, err := s.mutate.UpdateSection(req.Path, req.Content, req.PreserveTitle, req.ExpectedHash)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type insertRequest struct {
	Path     string `json:"path"`
	Position string `json:"position"`
	Content  string `json:"content"`
}

// handleInsertContent inserts new content before, after or at the end of a
// section without overwriting existing lines.
func (s *Server) handleInsertContent(w http.ResponseWriter, r *http.Request) {
	var req insertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Path == "" {
		jsonError(w, "path is required", http.StatusBadRequest)
		return
	}
	switch req.Position {
	case mutate.PositionBefore, mutate.PositionAfter, mutate.PositionAppend:
	default:
		jsonError(w, "position must be before, after or append", http.StatusBadRequest)
		return
	}

	result, err := s.mutate.InsertContent(req.Path, req.Position, req.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// lookup resolves a canonical path or returns a typed error with suggestions.
func (s *Server) lookup(path string) (*docmodel.Section, error) {
	if err := index.ValidatePath(path); err != nil {
		return nil, err
	}
	sec, ok := s.index.Section(path)
	if !ok {
		return nil, docmodel.NewError(docmodel.CodePathNotFound,
			fmt.Sprintf("section %q not found", path),
			map[string]any{"requested_path": path, "suggestions": s.index.Suggestions(path, 5)})
	}
	return sec, nil
}

func formatForSection(ix *index.Index, sec *docmodel.Section) string {
	if doc := ix.DocumentForFile(sec.Location.File); doc != nil {
		return doc.Format
	}
	return ""
}
