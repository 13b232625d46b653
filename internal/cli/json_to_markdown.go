package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/doitian/readwise-scripts/internal/exporters"
	"github.com/doitian/readwise-scripts/internal/importers"
)

// JSONToMarkdownCommand renders Readwise JSON records as one Markdown note
// per book.
type JSONToMarkdownCommand struct {
	Inputs      []string
	OutputDir   string
	Frontmatter bool
	Verbose     bool

	env *Env
}

func NewJSONToMarkdownCommand(env *Env) *JSONToMarkdownCommand {
	return &JSONToMarkdownCommand{env: env}
}

func (cmd *JSONToMarkdownCommand) ParseFlags(args []string) error {
	fs := newFlagSet(cmd.env, "json-to-markdown", "[options] [files...]",
		"Render highlights in Readwise JSON form as Markdown notes, one file per book.\n"+
			"Reads standard input when no file is given, or for \"-\".")
	fs.StringVar(&cmd.OutputDir, "o", cmd.env.Config.Markdown.OutputDir, "Output directory for Markdown files")
	fs.BoolVar(&cmd.Frontmatter, "frontmatter", false, "Prepend YAML frontmatter to each file")
	fs.BoolVar(&cmd.Verbose, "verbose", false, "Enable verbose logging")

	if err := fs.Parse(args); err != nil {
		return err
	}
	cmd.Inputs = fs.Args()
	return nil
}

func (cmd *JSONToMarkdownCommand) Run(ctx context.Context) error {
	outputDir, err := filepath.Abs(cmd.OutputDir)
	if err != nil {
		return fmt.Errorf("failed to get absolute path for output: %w", err)
	}

	records, err := convertInputs(cmd.env, importers.NewJSONConverter(), cmd.Inputs)
	if err != nil {
		return err
	}

	renderer := exporters.NewMarkdownRenderer(outputDir, cmd.Frontmatter)
	renderer.Verbose = cmd.Verbose
	if _, err := importers.NewPipeline(renderer).ImportRecords(ctx, records); err != nil {
		return fmt.Errorf("json-to-markdown: %w", err)
	}

	fmt.Fprintf(cmd.env.Stdout, "Wrote %d files with %d highlights to %s\n",
		renderer.Result.BooksProcessed, renderer.Result.HighlightsProcessed, outputDir)
	return nil
}
