package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/fentz26/taskscribe/internal/audit"
	"github.com/fentz26/taskscribe/internal/engine"
	"github.com/fentz26/taskscribe/internal/extract"
	"github.com/fentz26/taskscribe/internal/models"
	"github.com/fentz26/taskscribe/internal/ops"
	"github.com/fentz26/taskscribe/internal/store"
	"github.com/fentz26/taskscribe/internal/tui"
)

var applyCmd = &cobra.Command{
	Use:   "apply [file]",
	Short: "Apply operations from a JSON file or transcript",
	Long: `Apply reads a JSON array of operations (or, with --transcript, a plain
transcript to run through extraction first) and executes it against the
configured board. Reads stdin when the file is "-" or omitted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runApply,
}

var (
	applyTranscript bool
	applyVerify     bool
	applyYes        bool
)

func init() {
	applyCmd.Flags().BoolVar(&applyTranscript, "transcript", false, "Treat input as transcript text and extract operations first")
	applyCmd.Flags().BoolVar(&applyVerify, "verify", false, "Verify created tasks on a fresh snapshot, retrying each create once")
	applyCmd.Flags().BoolVar(&applyYes, "yes", false, "Skip the interactive review and apply everything")
}

func readInput(args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(args[0])
}

func runApply(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	provider, err := newProvider(cfg)
	if err != nil {
		return err
	}
	input, err := readInput(args)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	var batch []ops.Operation
	if applyTranscript {
		if err := cfg.ValidateOpenAI(); err != nil {
			return err
		}
		snap, err := provider.Snapshot(ctx)
		if err != nil {
			return fmt.Errorf("fetch board snapshot: %w", err)
		}
		extractor := extract.NewOpenAIExtractor(cfg.OpenAI.APIKey)
		batch, err = extractor.Extract(ctx, strings.TrimSpace(string(input)), snap, false)
		if err != nil {
			return err
		}
	} else {
		batch, err = ops.Decode(input)
		if err != nil {
			return err
		}
	}
	if len(batch) == 0 {
		fmt.Println("No operations to apply.")
		return nil
	}

	if !applyYes {
		review := tui.NewReviewModel(batch)
		if _, err := tea.NewProgram(review).Run(); err != nil {
			return err
		}
		if !review.Accepted() {
			fmt.Println("Cancelled.")
			return nil
		}
		batch = review.Selected()
		if len(batch) == 0 {
			fmt.Println("Nothing selected.")
			return nil
		}
	}

	executor := engine.New(provider)
	var results []models.OperationResult
	if applyVerify {
		results, err = engine.NewTurn(executor).Run(ctx, batch)
	} else {
		results, err = executor.Apply(ctx, batch)
	}
	if err != nil {
		return err
	}

	recordResults(cfg.HistoryDB, cfg.Provider, batch, results)

	fmt.Println(extract.SummarizeResults(results))
	for _, r := range results {
		if !r.Success {
			return fmt.Errorf("%d of %d operations failed", countFailed(results), len(results))
		}
	}
	return nil
}

func countFailed(results []models.OperationResult) int {
	n := 0
	for _, r := range results {
		if !r.Success {
			n++
		}
	}
	return n
}

// recordResults writes the batch outcome to the history database. History
// is best effort; a broken database never fails the apply.
func recordResults(dbPath, provider string, batch []ops.Operation, results []models.OperationResult) {
	st, err := store.New(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: open history db: %v\n", err)
		return
	}
	defer st.Close()
	session, err := st.CreateSession(provider)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: record session: %v\n", err)
		return
	}
	audit.NewRecorder(st, session.ID).RecordBatch(batch, results)
	if err := st.EndSession(session.ID); err != nil {
		fmt.Fprintf(os.Stderr, "warning: end session: %v\n", err)
	}
}
