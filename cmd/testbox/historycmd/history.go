package historycmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"testbox/cmd/testbox/cmdutil"
	"testbox/cmd/testbox/ui"
	"testbox/internal/adapter/sqlite"
)

// Cmd returns the "testbox history" command.
func Cmd(g *cmdutil.Globals) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List recorded runs, or show the nodes of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if g.Config.History == "" {
				return fmt.Errorf("run history is disabled in the config")
			}
			store, err := sqlite.Open(g.Config.History)
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if len(args) == 1 {
				run, ok, err := store.GetRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("run %q not found", args[0])
				}
				records, err := store.NodeResults(cmd.Context(), run.ID)
				if err != nil {
					return err
				}
				fmt.Fprint(out, ui.Rows(
					ui.Labelled("Run", run.ID),
					ui.Labelled("Manifest", run.Manifest),
					ui.Labelled("Status", statusText(run.Status)),
					ui.Labelled("Started", run.StartedAt.Local().Format(time.DateTime)),
					ui.Labelled("Duration", duration(run)),
				))
				fmt.Fprintln(out, ui.Table([]string{"Node", "Kind", "Phase", "Message"}, nodeRows(records)))
				return nil
			}

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, ui.Mark(ui.ToneInfo, "No runs recorded yet."))
				return nil
			}
			fmt.Fprintln(out, ui.Table([]string{"Run", "Started", "Status", "Duration", "Manifest"}, runRows(runs)))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to list (0 for all)")
	return cmd
}

func runRows(runs []sqlite.Run) [][]string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			r.ID,
			r.StartedAt.Local().Format(time.DateTime),
			statusText(r.Status),
			duration(r),
			r.Manifest,
		})
	}
	return rows
}

func nodeRows(records []sqlite.NodeRecord) [][]string {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []string{rec.NodeID, rec.Kind, rec.Phase, rec.Message})
	}
	return rows
}

func statusText(status string) string {
	switch status {
	case sqlite.StatusPassed:
		return ui.Paint(ui.TonePass, status)
	case sqlite.StatusFailed, sqlite.StatusError:
		return ui.Paint(ui.ToneFail, status)
	default:
		return ui.Paint(ui.ToneWarn, status)
	}
}

func duration(r sqlite.Run) string {
	if r.FinishedAt.IsZero() {
		return "-"
	}
	return r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String()
}
