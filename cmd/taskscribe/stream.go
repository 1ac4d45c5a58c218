package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fentz26/taskscribe/internal/audit"
	"github.com/fentz26/taskscribe/internal/dedup"
	"github.com/fentz26/taskscribe/internal/engine"
	"github.com/fentz26/taskscribe/internal/extract"
	"github.com/fentz26/taskscribe/internal/store"
	"github.com/fentz26/taskscribe/internal/stream"
)

var streamCmd = &cobra.Command{
	Use:   "stream [audio-file...]",
	Short: "Process audio chunks as a live meeting stream",
	Long: `Stream feeds audio chunk files through the live pipeline: transcribe,
extract operations against the running transcript, drop operations already
executed this session, and apply the rest to the board. Chunks are paced at
the configured chunk duration to mirror live capture.

Pass --session to resume an earlier session and keep its dedup ledger.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runStream,
}

var (
	streamSession string
	streamNoPace  bool
)

func init() {
	streamCmd.Flags().StringVar(&streamSession, "session", "", "Resume an existing session ID")
	streamCmd.Flags().BoolVar(&streamNoPace, "no-pace", false, "Feed chunks as fast as they are consumed")
}

// fileChunkSource replays prerecorded chunk files, one per NextChunk call,
// paced at the chunk duration to mimic live capture.
type fileChunkSource struct {
	paths []string
	pace  time.Duration
	next  int
}

func (s *fileChunkSource) NextChunk(ctx context.Context) (io.Reader, string, error) {
	if s.next >= len(s.paths) {
		return nil, "", io.EOF
	}
	if s.pace > 0 && s.next > 0 {
		select {
		case <-time.After(s.pace):
		case <-ctx.Done():
			return nil, "", ctx.Err()
		}
	}
	path := s.paths[s.next]
	s.next++
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	data, err := io.ReadAll(f)
	f.Close()
	if err != nil {
		return nil, "", err
	}
	return bytes.NewReader(data), path, nil
}

func runStream(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidateOpenAI(); err != nil {
		return err
	}
	provider, err := newProvider(cfg)
	if err != nil {
		return err
	}

	st, err := store.New(cfg.HistoryDB)
	if err != nil {
		return fmt.Errorf("open history db: %w", err)
	}
	defer st.Close()

	sessionID := streamSession
	if sessionID == "" {
		session, err := st.CreateSession(cfg.Provider)
		if err != nil {
			return fmt.Errorf("create session: %w", err)
		}
		sessionID = session.ID
		fmt.Printf("Session %s\n", sessionID)
	}

	pace := time.Duration(cfg.ChunkSeconds) * time.Second
	if streamNoPace {
		pace = 0
	}

	processor := &stream.Processor{
		Source:      &fileChunkSource{paths: args, pace: pace},
		Transcriber: extract.NewWhisperTranscriber(cfg.OpenAI.APIKey),
		Extractor:   extract.NewOpenAIExtractor(cfg.OpenAI.APIKey),
		Provider:    provider,
		Applier:     engine.New(provider),
		Ledger:      dedup.NewStoreLedger(st, sessionID),
		Recorder:    audit.NewRecorder(st, sessionID),
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = processor.Run(ctx)
	if endErr := st.EndSession(sessionID); endErr != nil {
		fmt.Fprintf(os.Stderr, "warning: end session: %v\n", endErr)
	}
	if err != nil && err != context.Canceled {
		return err
	}
	fmt.Println("Stream completed.")
	return nil
}
