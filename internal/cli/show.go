package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/msomdec/feedline/internal/domain"
)

const redacted = "[redacted]"

type messageOutput struct {
	Timestamp float64 `json:"timestamp"`
	Text      string  `json:"text"`
}

// recordOutput is the printable form of a record. The credential is
// never printed.
type recordOutput struct {
	Identity    string          `json:"identity"`
	DisplayName string          `json:"display_name"`
	Credential  string          `json:"credential"`
	Follows     []string        `json:"follows"`
	Messages    []messageOutput `json:"messages"`
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show <identity>",
		Short:         "Print one record with its credential redacted",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := rootOpts.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			rec, err := st.Records.Load(cmd.Context(), args[0])
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return WrapExitError(ExitFailure, "no such identity", err)
				}
				return WrapExitError(ExitCommandError, "load record", err)
			}

			out := recordOutput{
				Identity:    rec.Identity,
				DisplayName: rec.DisplayName,
				Credential:  redacted,
				Follows:     rec.Follows,
				Messages:    make([]messageOutput, 0, len(rec.Messages)),
			}
			for _, m := range rec.Messages {
				out.Messages = append(out.Messages, messageOutput{Timestamp: m.Timestamp, Text: m.Text})
			}

			if rootOpts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), out)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "identity:   %s\n", out.Identity)
			fmt.Fprintf(w, "nickname:   %s\n", out.DisplayName)
			fmt.Fprintf(w, "credential: %s\n", out.Credential)
			fmt.Fprintf(w, "follows:    %d\n", len(out.Follows))
			for _, f := range out.Follows {
				fmt.Fprintf(w, "  %s\n", f)
			}
			fmt.Fprintf(w, "messages:   %d\n", len(out.Messages))
			for _, m := range out.Messages {
				fmt.Fprintf(w, "  %s  %s\n", formatTimestamp(m.Timestamp), m.Text)
			}
			return nil
		},
	}
}
