// Package cli implements feedctl, the operator tool for inspecting a
// feedline record store without going through the web server.
package cli

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/msomdec/feedline/internal/repository"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Backend      string
	DataDir      string
	DatabasePath string
	Format       string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for feedctl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "feedctl",
		Short: "Inspect a feedline record store",
		Long:  "feedctl reads the records, messages and follows kept by a feedline server.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Backend, "backend", "disk", "store backend (disk|sqlite)")
	cmd.PersistentFlags().StringVar(&opts.DataDir, "data-dir", "data", "record directory for the disk backend")
	cmd.PersistentFlags().StringVar(&opts.DatabasePath, "db", "feedline.db", "database file for the sqlite backend")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewUsersCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewFeedCommand(opts))

	return cmd
}

// openStore opens the existing backend selected by the global flags without
// creating or migrating it, so feedctl is safe to run beside a live server.
func (o *RootOptions) openStore(ctx context.Context) (*repository.Store, error) {
	st, err := repository.Open(ctx, o.Backend, o.DataDir, o.DatabasePath, repository.Existing())
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open store", err)
	}
	return st, nil
}
