package cli

import (
	"context"
	"fmt"
	"log"

	"github.com/doitian/readwise-scripts/internal/importers"
)

// ImportCommand converts exported notes with one converter and uploads the
// records to Readwise.
type ImportCommand struct {
	Inputs []string
	outputFlags

	env         *Env
	converter   importers.Converter
	description string
}

func NewImportCommand(env *Env, converter importers.Converter, description string) *ImportCommand {
	return &ImportCommand{env: env, converter: converter, description: description}
}

func (cmd *ImportCommand) ParseFlags(args []string) error {
	fs := newFlagSet(cmd.env, cmd.converter.Name(), "[options] [files...]",
		cmd.description+"\nReads standard input when no file is given, or for \"-\".")
	cmd.outputFlags.register(fs)

	if err := fs.Parse(args); err != nil {
		return err
	}
	cmd.Inputs = fs.Args()
	return nil
}

func (cmd *ImportCommand) Run(ctx context.Context) error {
	exporter, err := cmd.exporter(cmd.env)
	if err != nil {
		return err
	}

	pipeline := importers.NewPipeline(exporter)

	var result importers.ImportResult
	if cmd.readsStdin() {
		result, err = pipeline.Import(ctx, cmd.converter, cmd.env.Stdin)
	} else {
		records, convErr := convertInputs(cmd.env, cmd.converter, cmd.Inputs)
		if convErr != nil {
			return convErr
		}
		if cmd.Verbose {
			log.Printf("%s: converted %d records from %d inputs", cmd.converter.Name(), len(records), len(cmd.Inputs))
		}
		result, err = pipeline.ImportRecords(ctx, records)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", cmd.converter.Name(), err)
	}
	logResult(result, cmd.DryRun)
	return nil
}

// readsStdin reports whether the only input is standard input.
func (cmd *ImportCommand) readsStdin() bool {
	return len(cmd.Inputs) == 0 || (len(cmd.Inputs) == 1 && cmd.Inputs[0] == "-")
}

// importCommands lists the converter backed commands in usage order.
var importCommands = []struct {
	converter   func() importers.Converter
	description string
}{
	{func() importers.Converter { return importers.NewBooxConverter() }, "Upload highlights from a Boox reading notes export"},
	{func() importers.Converter { return importers.NewWereadConverter() }, "Upload highlights from a WeRead notes export"},
	{func() importers.Converter { return importers.NewDukuConverter() }, "Upload highlights from a Duku notes export"},
	{func() importers.Converter { return importers.NewCSVConverter() }, "Upload highlights from a CSV file with Readwise column names"},
	{func() importers.Converter { return importers.NewKindleHTMLConverter() }, "Upload highlights from a Kindle notebook HTML export"},
	{func() importers.Converter { return importers.NewPDFExpertConverter() }, "Upload highlights from a PDF Expert annotation summary"},
	{func() importers.Converter { return importers.NewJSONConverter() }, "Upload highlights already in Readwise JSON form"},
	{func() importers.Converter { return importers.NewKindleClippingsConverter() }, "Upload highlights from Kindle 'My Clippings.txt'"},
	{func() importers.Converter { return importers.NewMarkdownConverter() }, "Upload highlights from Markdown files written by json-to-markdown (files or directories)"},
}
