package cmd

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/KaramelBytes/datalens-cli/internal/history"
	"github.com/KaramelBytes/datalens-cli/internal/report"
	"github.com/KaramelBytes/datalens-cli/internal/utils"
	"github.com/spf13/cobra"
)

var histJSON bool

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List or show past profiling runs",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := requireHistory()
		if err != nil {
			return err
		}
		items, err := store.List()
		if err != nil {
			return err
		}
		if histJSON {
			b, err := utils.PrettyJSON(items)
			if err != nil {
				return err
			}
			fmt.Println(string(b))
			return nil
		}
		if len(items) == 0 {
			fmt.Println("No runs recorded")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSOURCE\tPROFILED\tROWS\tCOLS\tSCORE")
		for _, s := range items {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%.2f\n",
				s.ID, s.Source, s.ProfiledAt.Local().Format("2006-01-02 15:04"), s.Rows, s.Cols, s.Score)
		}
		return w.Flush()
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print the report of a recorded run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rec, err := loadRecord(args[0])
		if err != nil {
			return err
		}
		if histJSON {
			b, err := utils.PrettyJSON(rec)
			if err != nil {
				return err
			}
			fmt.Println(string(b))
			return nil
		}
		fmt.Printf("Run %s: %s, %s\n\n", rec.ID, rec.Source, rec.ProfiledAt.Local().Format("2006-01-02 15:04:05"))
		fmt.Println(report.Markdown(rec.Result))
		return nil
	},
}

func requireHistory() (*history.Store, error) {
	store := historyStore(false)
	if store == nil {
		return nil, errors.New("history is disabled (set save_history to true)")
	}
	return store, nil
}

func loadRecord(id string) (*history.Record, error) {
	store, err := requireHistory()
	if err != nil {
		return nil, err
	}
	rec, err := store.Load(id)
	if errors.Is(err, history.ErrNotFound) {
		return nil, fmt.Errorf("no run with id %s (see 'datalens history list')", id)
	}
	return rec, err
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.PersistentFlags().BoolVar(&histJSON, "json", false, "print JSON instead of text")
}
