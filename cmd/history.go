package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"vuload/internal/cli"
	"vuload/internal/storage"
	"vuload/internal/tui/history"
	"vuload/internal/tui/styles"
)

var (
	historyDB    string
	historyLimit int
	historyTUI   bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List previous runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory(historyDB)
		if err != nil {
			return err
		}
		defer store.Close()

		items, err := store.List(historyLimit)
		if err != nil {
			return err
		}
		if historyTUI {
			_, err := tea.NewProgram(history.NewModel(items), tea.WithAltScreen()).Run()
			return errors.Wrap(err, "running history browser")
		}
		printHistory(cmd.OutOrStdout(), items)
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show the summary of one run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory(historyDB)
		if err != nil {
			return err
		}
		defer store.Close()

		item, err := store.Get(args[0])
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%s %s (%d VUs, %s)\n", item.Config.Method, item.Config.URL, item.Config.VUs, item.Config.Duration)
		cli.PrintSummary(w, item.Result)
		return nil
	},
}

func init() {
	historyCmd.PersistentFlags().StringVar(&historyDB, "history-db", "", "history database (default ~/.vuload/history.db)")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum runs to list, 0 for all")
	historyCmd.Flags().BoolVar(&historyTUI, "tui", false, "browse runs interactively")
	historyCmd.AddCommand(historyShowCmd)
}

func printHistory(w io.Writer, items []storage.HistoryItem) {
	if len(items) == 0 {
		fmt.Fprintln(w, styles.Subtle.Render("No runs recorded yet."))
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tURL\tVUS\tREQUESTS\tFAILED")
	for _, it := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\n",
			it.ID,
			it.Timestamp.Local().Format(time.DateTime),
			it.Config.URL,
			it.Config.VUs,
			it.Result.Count,
			it.Result.Failed(),
		)
	}
	tw.Flush()
}
