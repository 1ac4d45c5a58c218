package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fentz26/taskscribe/internal/board"
	"github.com/fentz26/taskscribe/internal/board/notion"
	"github.com/fentz26/taskscribe/internal/board/trello"
	"github.com/fentz26/taskscribe/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "taskscribe",
	Short: "taskscribe - meeting transcripts to task board operations",
	Long: `taskscribe turns meeting transcripts into task board operations:
it extracts create/update/checklist/epic operations from spoken or written
meeting notes and applies them to a Trello board or Notion database.`,
	// No RunE - defaults to showing help when no subcommand is provided
}

var configPath string

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.taskscribe/config.yaml)")

	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(streamCmd)
	rootCmd.AddCommand(boardCmd)
	rootCmd.AddCommand(historyCmd)
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.Load(configPath)
	}
	return config.LoadFromHome()
}

func newProvider(cfg *config.Config) (board.Provider, error) {
	if err := cfg.ValidateProvider(); err != nil {
		return nil, err
	}
	switch cfg.Provider {
	case "trello":
		return trello.New(trello.Config{
			APIKey:  cfg.Trello.APIKey,
			Token:   cfg.Trello.Token,
			BoardID: cfg.Trello.BoardID,
		}), nil
	case "notion":
		return notion.New(notion.Config{
			APIKey:     cfg.Notion.APIKey,
			DatabaseID: cfg.Notion.DatabaseID,
		}), nil
	}
	return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
