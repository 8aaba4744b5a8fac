package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/msomdec/feedline/internal/domain"
	"github.com/msomdec/feedline/internal/service"
)

type feedEntryOutput struct {
	Author    string  `json:"author"`
	Identity  string  `json:"identity"`
	Timestamp float64 `json:"timestamp"`
	Text      string  `json:"text"`
}

// NewFeedCommand creates the feed command.
func NewFeedCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "feed <identity>",
		Short:         "Print the merged feed an identity sees",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := rootOpts.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			rec, err := st.Records.Load(ctx, args[0])
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return WrapExitError(ExitFailure, "no such identity", err)
				}
				return WrapExitError(ExitCommandError, "load record", err)
			}

			feed, err := service.NewFeedService(st.Records).Aggregate(ctx, rec.Follows)
			if err != nil {
				return WrapExitError(ExitCommandError, "aggregate feed", err)
			}

			if rootOpts.Format == "json" {
				out := make([]feedEntryOutput, 0, len(feed))
				for _, e := range feed {
					out = append(out, feedEntryOutput(e))
				}
				return writeJSON(cmd.OutOrStdout(), out)
			}
			for _, e := range feed {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s <%s>: %s\n", formatTimestamp(e.Timestamp), e.Author, e.Identity, e.Text)
			}
			return nil
		},
	}
}
