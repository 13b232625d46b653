package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/doitian/readwise-scripts/internal/config"
	"github.com/doitian/readwise-scripts/internal/entities"
	"github.com/doitian/readwise-scripts/internal/exporters"
	"github.com/doitian/readwise-scripts/internal/importers"
	"github.com/doitian/readwise-scripts/internal/readwise"
)

// Command is one subcommand of the CLI.
type Command interface {
	ParseFlags(args []string) error
	Run(ctx context.Context) error
}

// Env carries the process streams and configuration so commands can run
// against buffers in tests.
type Env struct {
	Config *config.Config
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

func NewEnv(cfg *config.Config) *Env {
	return &Env{Config: cfg, Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
}

// outputFlags are shared by every command that ends in an upload.
type outputFlags struct {
	DryRun  bool
	Verbose bool
}

func (o *outputFlags) register(fs *flag.FlagSet) {
	fs.BoolVar(&o.DryRun, "n", false, "Print the highlights as JSON instead of uploading them")
	fs.BoolVar(&o.DryRun, "dry-run", false, "Same as -n")
	fs.BoolVar(&o.Verbose, "verbose", false, "Enable verbose logging")
}

// exporter returns the JSON printer in dry-run mode and the Readwise
// uploader otherwise.
func (o *outputFlags) exporter(env *Env) (importers.Exporter, error) {
	if o.DryRun {
		return exporters.NewJSONWriter(env.Stdout), nil
	}
	return newReadwiseClient(env.Config, o.Verbose)
}

func newReadwiseClient(cfg *config.Config, verbose bool) (*readwise.Client, error) {
	if cfg.Readwise.Token == "" {
		return nil, readwise.ErrMissingToken
	}
	return readwise.NewClient(readwise.Options{
		BaseURL:       cfg.Readwise.APIURL,
		Token:         cfg.Readwise.Token,
		UserAgent:     cfg.Readwise.UserAgent,
		Timeout:       cfg.Readwise.Timeout,
		MaxRetries:    cfg.Readwise.MaxRetries,
		RetryDelay:    cfg.Readwise.RetryDelay,
		MaxRetryDelay: cfg.Readwise.MaxRetryDelay,
		Verbose:       verbose,
	}), nil
}

// newFlagSet builds a flag set that reports errors to the caller instead of
// exiting, with the usage text written to stderr.
func newFlagSet(env *Env, name, usage, description string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(env.Stderr)
	fs.Usage = func() {
		fmt.Fprintf(env.Stderr, "Usage: %s %s %s\n\n", os.Args[0], name, usage)
		fmt.Fprintf(env.Stderr, "%s\n\n", description)
		fmt.Fprintf(env.Stderr, "Options:\n")
		fs.PrintDefaults()
	}
	return fs
}

// dirConverter is implemented by converters that also accept a directory.
type dirConverter interface {
	ConvertDir(dir string) ([]entities.Highlight, error)
}

// convertInputs converts each input on its own, in order, and concatenates
// the records. No input or "-" means standard input.
func convertInputs(env *Env, converter importers.Converter, inputs []string) ([]entities.Highlight, error) {
	if len(inputs) == 0 {
		inputs = []string{"-"}
	}

	var records []entities.Highlight
	for _, input := range inputs {
		converted, err := convertInput(env, converter, input)
		if err != nil {
			return nil, err
		}
		records = append(records, converted...)
	}
	return records, nil
}

func convertInput(env *Env, converter importers.Converter, input string) ([]entities.Highlight, error) {
	if input == "-" {
		return converter.Convert(env.Stdin)
	}

	info, err := os.Stat(input)
	if err != nil {
		return nil, fmt.Errorf("input not found: %w", err)
	}
	if info.IsDir() {
		dc, ok := converter.(dirConverter)
		if !ok {
			return nil, fmt.Errorf("%s: %s is a directory", converter.Name(), input)
		}
		return dc.ConvertDir(input)
	}

	file, err := os.Open(input)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", input, err)
	}
	defer file.Close()

	records, err := converter.Convert(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", input, err)
	}
	return records, nil
}

func logResult(result importers.ImportResult, dryRun bool) {
	action := "Uploaded"
	if dryRun {
		action = "Printed"
	}
	log.Printf("%s %d highlights (%d converted, %d merged, %d headings)",
		action, result.Exported, result.Converted, result.Merged, result.Headings)
}
