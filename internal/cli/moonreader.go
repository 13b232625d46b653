package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/doitian/readwise-scripts/internal/entities"
	"github.com/doitian/readwise-scripts/internal/importers"
	"github.com/doitian/readwise-scripts/internal/moonreader"
)

// MoonReaderCommand uploads the highlights from MoonReader backups.
type MoonReaderCommand struct {
	Inputs []string
	outputFlags

	env *Env
}

func NewMoonReaderCommand(env *Env) *MoonReaderCommand {
	return &MoonReaderCommand{env: env}
}

func (cmd *MoonReaderCommand) ParseFlags(args []string) error {
	fs := newFlagSet(cmd.env, "moonreader", "[options] <backup>...",
		"Upload the highlights and notes from MoonReader backups.\n"+
			"Each input is a .mrstd/.mrpro backup, a directory of backups (the latest\n"+
			"is used), or an extracted mrbooks.db.")
	cmd.outputFlags.register(fs)

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("moonreader needs a backup file or directory")
	}
	cmd.Inputs = fs.Args()
	return nil
}

func (cmd *MoonReaderCommand) Run(ctx context.Context) error {
	exporter, err := cmd.exporter(cmd.env)
	if err != nil {
		return err
	}

	var records []entities.Highlight
	for _, input := range cmd.Inputs {
		converted, err := moonreader.ReadBackup(ctx, input)
		if err != nil {
			return fmt.Errorf("moonreader: %s: %w", input, err)
		}
		records = append(records, converted...)
	}

	result, err := importers.NewPipeline(exporter).ImportRecords(ctx, records)
	if err != nil {
		return fmt.Errorf("moonreader: %w", err)
	}
	logResult(result, cmd.DryRun)
	return nil
}
