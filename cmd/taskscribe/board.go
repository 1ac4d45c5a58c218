package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/fentz26/taskscribe/internal/extract"
	"github.com/fentz26/taskscribe/internal/tui"
)

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Show the current board state",
	RunE:  runBoard,
}

var boardTUI bool

func init() {
	boardCmd.Flags().BoolVar(&boardTUI, "tui", false, "Browse the board interactively")
}

func runBoard(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	provider, err := newProvider(cfg)
	if err != nil {
		return err
	}
	snap, err := provider.Snapshot(cmd.Context())
	if err != nil {
		return fmt.Errorf("fetch board snapshot: %w", err)
	}

	if boardTUI {
		_, err := tea.NewProgram(tui.NewBoardModel(snap), tea.WithAltScreen()).Run()
		return err
	}
	fmt.Println(extract.FormatBoardState(snap))
	return nil
}
