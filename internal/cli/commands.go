package cli

import (
	"fmt"
	"io"
)

// NewCommand returns the command registered under name.
func NewCommand(env *Env, name string) (Command, bool) {
	for _, ic := range importCommands {
		converter := ic.converter()
		if converter.Name() == name {
			return NewImportCommand(env, converter, ic.description), true
		}
	}

	switch name {
	case "zotero":
		return NewZoteroCommand(env), true
	case "apple-books":
		return NewAppleBooksCommand(env), true
	case "moonreader":
		return NewMoonReaderCommand(env), true
	case "json-to-markdown":
		return NewJSONToMarkdownCommand(env), true
	case "check-token":
		return NewCheckTokenCommand(env), true
	}
	return nil, false
}

func PrintUsage(w io.Writer, program string) {
	fmt.Fprintf(w, "Usage: %s <command> [options] [files...]\n\n", program)
	fmt.Fprintf(w, "Commands:\n")
	for _, ic := range importCommands {
		fmt.Fprintf(w, "  %-18s %s\n", ic.converter().Name(), ic.description)
	}
	fmt.Fprintf(w, "  %-18s %s\n", "zotero", "Upload annotations of the items selected in Zotero")
	fmt.Fprintf(w, "  %-18s %s\n", "apple-books", "Upload highlights stored by Apple Books on macOS")
	fmt.Fprintf(w, "  %-18s %s\n", "moonreader", "Upload highlights from MoonReader backups")
	fmt.Fprintf(w, "  %-18s %s\n", "json-to-markdown", "Render Readwise JSON as Markdown notes")
	fmt.Fprintf(w, "  %-18s %s\n", "check-token", "Check that READWISE_TOKEN is valid")
	fmt.Fprintf(w, "\nUse '%s <command> -h' for help on a specific command.\n", program)
}
