package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/dgallion1/docstruct/internal/config"
	"github.com/dgallion1/docstruct/internal/index"
)

// Dependencies holds the shared state commands execute against.
type Dependencies struct {
	Ctx    context.Context
	Stdout io.Writer
	Stderr io.Writer
	Log    *slog.Logger
	Cfg    config.Config
	Index  *index.Index
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	DocsRoot string `short:"d" help:"Documentation root (overrides DOCSTRUCT_DOCS_ROOT)"`

	Serve     ServeCmd     `cmd:"" help:"Start the HTTP API server"`
	Validate  ValidateCmd  `cmd:"" help:"Validate the documentation structure"`
	Structure StructureCmd `cmd:"" help:"Print the merged document hierarchy"`
	Search    SearchCmd    `cmd:"" help:"Search section content"`
	Section   SectionCmd   `cmd:"" help:"Print one section's content"`
}

// ServeCmd is the "serve" subcommand.
type ServeCmd struct {
	Port string `short:"p" help:"Listen port (overrides DOCSTRUCT_PORT)"`
}

// ValidateCmd is the "validate" subcommand.
type ValidateCmd struct {
	JSON bool `help:"Print the full report as JSON"`
}

// StructureCmd is the "structure" subcommand.
type StructureCmd struct {
	MaxDepth int `short:"m" help:"Truncate the tree at this depth (0 = full)"`
}

// SearchCmd is the "search" subcommand.
type SearchCmd struct {
	Query string `arg:"" help:"Search term"`
	Scope string `short:"s" help:"Restrict to the subtree at this path"`
	Max   int    `short:"n" default:"20" help:"Maximum number of results"`
}

// SectionCmd is the "section" subcommand.
type SectionCmd struct {
	Path string `arg:"" help:"Canonical section path (doc:seg.seg)"`
	JSON bool   `help:"Print content with location and hash as JSON"`
}
