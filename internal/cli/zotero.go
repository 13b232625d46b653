package cli

import (
	"context"
	"fmt"

	"github.com/doitian/readwise-scripts/internal/importers"
	"github.com/doitian/readwise-scripts/internal/zotero"
)

// ZoteroCommand uploads the annotations of the items selected in Zotero.
type ZoteroCommand struct {
	outputFlags

	env *Env
}

func NewZoteroCommand(env *Env) *ZoteroCommand {
	return &ZoteroCommand{env: env}
}

func (cmd *ZoteroCommand) ParseFlags(args []string) error {
	fs := newFlagSet(cmd.env, "zotero", "[options]",
		"Upload the annotation notes of the items selected in Zotero.\n"+
			"Needs Zotero running with the Better BibTeX plugin. Image annotations are\n"+
			"copied into UPLOADS_DIR and linked from UPLOADS_SITE.")
	cmd.outputFlags.register(fs)

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("zotero takes no arguments, got %q", fs.Args())
	}
	return nil
}

func (cmd *ZoteroCommand) Run(ctx context.Context) error {
	exporter, err := cmd.exporter(cmd.env)
	if err != nil {
		return err
	}

	cfg := cmd.env.Config.Zotero
	images := zotero.NewImageStore(cfg.StorageDir, cfg.UploadsDir, cfg.UploadsSite)
	collector := zotero.NewCollector(zotero.NewClient(cfg.BetterBibTeXURL), zotero.NewNoteConverter(images))
	collector.Verbose = cmd.Verbose

	records, err := collector.Collect(ctx)
	if err != nil {
		return fmt.Errorf("zotero: %w", err)
	}

	result, err := importers.NewPipeline(exporter).ImportRecords(ctx, records)
	if err != nil {
		return fmt.Errorf("zotero: %w", err)
	}
	logResult(result, cmd.DryRun)
	return nil
}
