package cli

import (
	"context"
	"fmt"

	"github.com/doitian/readwise-scripts/internal/applebooks"
	"github.com/doitian/readwise-scripts/internal/importers"
)

// AppleBooksCommand uploads the annotations stored by Apple Books.
type AppleBooksCommand struct {
	AnnotationDB string
	LibraryDB    string
	outputFlags

	env *Env
}

func NewAppleBooksCommand(env *Env) *AppleBooksCommand {
	return &AppleBooksCommand{env: env}
}

func (cmd *AppleBooksCommand) ParseFlags(args []string) error {
	fs := newFlagSet(cmd.env, "apple-books", "[options]",
		"Upload the highlights and notes stored by Apple Books.\n"+
			"The databases default to the ones under ~/Library/Containers/com.apple.iBooksX.")
	fs.StringVar(&cmd.AnnotationDB, "annotations", "", "Path to the AEAnnotation .sqlite database")
	fs.StringVar(&cmd.LibraryDB, "library", "", "Path to the BKLibrary .sqlite database")
	cmd.outputFlags.register(fs)

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("apple-books takes no arguments, got %q", fs.Args())
	}
	return nil
}

func (cmd *AppleBooksCommand) Run(ctx context.Context) error {
	exporter, err := cmd.exporter(cmd.env)
	if err != nil {
		return err
	}

	reader, err := applebooks.NewReader(cmd.AnnotationDB, cmd.LibraryDB)
	if err != nil {
		return fmt.Errorf("apple-books: %w", err)
	}
	records, err := reader.Records(ctx)
	if err != nil {
		return fmt.Errorf("apple-books: %w", err)
	}

	result, err := importers.NewPipeline(exporter).ImportRecords(ctx, records)
	if err != nil {
		return fmt.Errorf("apple-books: %w", err)
	}
	logResult(result, cmd.DryRun)
	return nil
}
