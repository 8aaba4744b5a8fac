package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/msomdec/feedline/internal/service"
)

// NewUsersCommand creates the users command.
func NewUsersCommand(rootOpts *RootOptions) *cobra.Command {
	var exclude string

	cmd := &cobra.Command{
		Use:           "users",
		Short:         "List every registered identity",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := rootOpts.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			ids, err := service.NewDirectoryService(st.Records).ListIdentities(cmd.Context(), exclude)
			if err != nil {
				return WrapExitError(ExitCommandError, "list identities", err)
			}

			if rootOpts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), ids)
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&exclude, "exclude", "", "identity to leave out of the list")
	return cmd
}
