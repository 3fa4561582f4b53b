package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sluiceproject/sluice/internal/journal"
)

// AuditOptions holds flags for the audit command.
type AuditOptions struct {
	*RootOptions
	Database string
	Run      string
}

// NewAuditCommand creates the audit command.
func NewAuditCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AuditOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect the emission journal",
		Long: `Print journaled emissions in sequence order: what the node emitted, for
which completion groups, and why groups failed.

Example:
  sluice audit --db ./emissions.db
  sluice audit --db ./emissions.db --run 01890a5d-... --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAudit(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to emission journal (required)")
	cmd.Flags().StringVar(&opts.Run, "run", "", "limit output to one run ID")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runAudit(cmd *cobra.Command, opts *AuditOptions) error {
	j, err := journal.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer j.Close()

	ctx := cmd.Context()

	var emissions []journal.Emission
	if opts.Run != "" {
		emissions, err = j.ReadRun(ctx, opts.Run)
	} else {
		emissions, err = j.ReadAll(ctx)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}

	return writeEmissions(cmd.OutOrStdout(), opts.Format, emissions)
}

// writeEmissions renders emissions in the requested format.
func writeEmissions(w io.Writer, format string, emissions []journal.Emission) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(emissions)
	}

	if len(emissions) == 0 {
		_, err := fmt.Fprintln(w, "journal is empty")
		return err
	}

	for _, em := range emissions {
		line := fmt.Sprintf("seq=%d run=%s outcome=%s group=[%s] outputs=%d",
			em.Seq, em.RunID, em.Outcome, strings.Join(em.Handles, ","), em.Outputs)
		if em.Error != "" {
			line += fmt.Sprintf(" error=%q", em.Error)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
