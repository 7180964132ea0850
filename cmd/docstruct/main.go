package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/dgallion1/docstruct/internal/config"
	"github.com/dgallion1/docstruct/internal/index"
	"github.com/dgallion1/docstruct/internal/parser"
)

func main() {
	ctx := context.Background()

	if err := Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Run executes the CLI with the given arguments.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	log := slog.New(slog.NewJSONHandler(stderr, nil))

	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
		Log:    log,
	}

	cli := &CLI{}
	kparser, err := kong.New(cli,
		kong.Name("docstruct"),
		kong.Description("Structure-aware access to AsciiDoc and Markdown documentation trees."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}),
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = kparser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'docstruct --help' to see available commands")
	}

	kongCtx, err := kparser.Parse(args)
	if err != nil {
		return err
	}

	cfg := config.Load()
	if cli.DocsRoot != "" {
		cfg.DocsRoot = cli.DocsRoot
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	deps.Cfg = cfg

	ix := index.New(cfg.DocsRoot, parser.OSLoader{}, cfg.BuildConcurrency, log)
	ix.SetMaxIncludeDepth(cfg.MaxIncludeDepth)
	if err := ix.Build(ctx); err != nil {
		return fmt.Errorf("failed to build structure index: %w", err)
	}
	deps.Index = ix

	return kongCtx.Run(deps)
}
