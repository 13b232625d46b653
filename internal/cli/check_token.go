package cli

import (
	"context"
	"fmt"
)

// CheckTokenCommand verifies READWISE_TOKEN against the Readwise auth endpoint.
type CheckTokenCommand struct {
	Verbose bool

	env *Env
}

func NewCheckTokenCommand(env *Env) *CheckTokenCommand {
	return &CheckTokenCommand{env: env}
}

func (cmd *CheckTokenCommand) ParseFlags(args []string) error {
	fs := newFlagSet(cmd.env, "check-token", "[options]", "Check that READWISE_TOKEN is accepted by Readwise.")
	fs.BoolVar(&cmd.Verbose, "verbose", false, "Enable verbose logging")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("check-token takes no arguments, got %q", fs.Args())
	}
	return nil
}

func (cmd *CheckTokenCommand) Run(ctx context.Context) error {
	client, err := newReadwiseClient(cmd.env.Config, cmd.Verbose)
	if err != nil {
		return err
	}
	if err := client.ValidateToken(ctx); err != nil {
		return err
	}
	fmt.Fprintln(cmd.env.Stdout, "Token is valid")
	return nil
}
