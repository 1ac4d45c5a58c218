package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fentz26/taskscribe/internal/store"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show executed operations",
	RunE:  runHistory,
}

var historySessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List sessions",
	RunE:  runHistorySessions,
}

var (
	historySession string
	historyLimit   int
)

func init() {
	historyCmd.AddCommand(historySessionsCmd)
	historyCmd.Flags().StringVar(&historySession, "session", "", "Show one session's operations")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 50, "Maximum entries to show")
}

func openStore() (*store.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return store.New(cfg.HistoryDB)
}

func runHistory(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	var entries []store.HistoryEntry
	if historySession != "" {
		entries, err = st.HistoryForSession(historySession)
	} else {
		entries, err = st.RecentHistory(historyLimit)
	}
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No history.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tOPERATION\tTARGET\tRESULT\tDETAIL")
	for _, e := range entries {
		result := "ok"
		if !e.Success {
			result = "failed"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			e.CreatedAt.Local().Format("2006-01-02 15:04:05"), e.Kind, e.Target, result, e.Detail)
	}
	return w.Flush()
}

func runHistorySessions(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	sessions, err := st.ListSessions()
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Println("No sessions.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPROVIDER\tSTARTED\tENDED")
	for _, s := range sessions {
		ended := "-"
		if s.EndedAt != nil {
			ended = s.EndedAt.Local().Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			s.ID, s.Provider, s.StartedAt.Local().Format("2006-01-02 15:04:05"), ended)
	}
	return w.Flush()
}
