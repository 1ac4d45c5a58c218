package stream

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/fentz26/taskscribe/internal/board/boardtest"
	"github.com/fentz26/taskscribe/internal/dedup"
	"github.com/fentz26/taskscribe/internal/engine"
	"github.com/fentz26/taskscribe/internal/models"
	"github.com/fentz26/taskscribe/internal/ops"
)

// scriptedSource feeds canned chunks, then EOF.
type scriptedSource struct {
	chunks []string
	next   int
}

func (s *scriptedSource) NextChunk(ctx context.Context) (io.Reader, string, error) {
	if s.next >= len(s.chunks) {
		return nil, "", io.EOF
	}
	chunk := s.chunks[s.next]
	s.next++
	return strings.NewReader(chunk), "chunk.wav", nil
}

// echoTranscriber returns the chunk bytes as the transcript.
type echoTranscriber struct{}

func (echoTranscriber) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	data, err := io.ReadAll(audio)
	return string(data), err
}

// repeatingExtractor proposes the same operation for every chunk, the way
// overlapping transcript windows re-surface instructions already handled.
type repeatingExtractor struct {
	calls int
}

func (e *repeatingExtractor) Extract(ctx context.Context, transcript string, snap *models.BoardSnapshot, streaming bool) ([]ops.Operation, error) {
	e.calls++
	return []ops.Operation{&ops.Create{Task: "Ship v1"}}, nil
}

func TestDedupSuppressesAcrossChunks(t *testing.T) {
	fake := boardtest.New()
	extractor := &repeatingExtractor{}

	p := &Processor{
		Source:      &scriptedSource{chunks: []string{"ship v one", "ship v one again"}},
		Transcriber: echoTranscriber{},
		Extractor:   extractor,
		Provider:    fake,
		Applier:     engine.New(fake),
		Ledger:      dedup.NewMemoryLedger(),
		JoinTimeout: 5 * time.Second,
	}
	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if extractor.calls != 2 {
		t.Errorf("Expected extraction per chunk, got %d calls", extractor.calls)
	}
	// The repeated operation executes exactly once.
	if got := fake.CallCount("CreateTask"); got != 1 {
		t.Errorf("Expected one CreateTask, got %d", got)
	}
	snap, _ := fake.Snapshot(context.Background())
	if len(snap.Tasks) != 1 {
		t.Errorf("Expected one task on the board, got %d", len(snap.Tasks))
	}
}

func TestTranscriptAccumulates(t *testing.T) {
	fake := boardtest.New()

	var transcripts []string
	p := &Processor{
		Source:      &scriptedSource{chunks: []string{"first part", "second part"}},
		Transcriber: echoTranscriber{},
		Extractor: extractorFunc(func(transcript string) ([]ops.Operation, error) {
			transcripts = append(transcripts, transcript)
			return nil, nil
		}),
		Provider:    fake,
		Applier:     engine.New(fake),
		JoinTimeout: 5 * time.Second,
	}
	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(transcripts) != 2 {
		t.Fatalf("Expected 2 extractions, got %d", len(transcripts))
	}
	if transcripts[0] != "first part" {
		t.Errorf("Unexpected first transcript: %q", transcripts[0])
	}
	if transcripts[1] != "first part second part" {
		t.Errorf("Expected accumulated transcript, got %q", transcripts[1])
	}
}

// signalSource is a scriptedSource that signals when it runs dry.
type signalSource struct {
	chunks  []string
	next    int
	drained chan struct{}
}

func (s *signalSource) NextChunk(ctx context.Context) (io.Reader, string, error) {
	if s.next >= len(s.chunks) {
		close(s.drained)
		return nil, "", io.EOF
	}
	chunk := s.chunks[s.next]
	s.next++
	return strings.NewReader(chunk), "chunk.wav", nil
}

// gateTranscriber blocks the first transcription until released, so a test
// can line up queue state before the consumer moves on.
type gateTranscriber struct {
	started chan struct{}
	release chan struct{}
	calls   int
}

func (g *gateTranscriber) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	g.calls++
	if g.calls == 1 {
		close(g.started)
		<-g.release
	}
	return "spoken words", nil
}

// A chunk already sitting in the queue at cancellation time is abandoned:
// only the call in flight finishes.
func TestCancellationAbandonsQueuedChunks(t *testing.T) {
	fake := boardtest.New()
	ctx, cancel := context.WithCancel(context.Background())

	tr := &gateTranscriber{started: make(chan struct{}), release: make(chan struct{})}
	src := &signalSource{chunks: []string{"chunk one", "chunk two"}, drained: make(chan struct{})}

	p := &Processor{
		Source:      src,
		Transcriber: tr,
		Extractor: extractorFunc(func(transcript string) ([]ops.Operation, error) {
			return nil, nil
		}),
		Provider:    fake,
		Applier:     engine.New(fake),
		JoinTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- p.Run(ctx) }()

	<-tr.started  // consumer is inside the first transcription
	<-src.drained // producer has queued the second chunk and ended
	cancel()
	close(tr.release)

	if err := <-errc; err != context.Canceled {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if tr.calls != 1 {
		t.Errorf("Expected queued chunk abandoned, got %d transcriptions", tr.calls)
	}
}

func TestCancellationStopsBetweenChunks(t *testing.T) {
	fake := boardtest.New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := &Processor{
		Source:      &scriptedSource{chunks: []string{"never read"}},
		Transcriber: echoTranscriber{},
		Extractor:   &repeatingExtractor{},
		Provider:    fake,
		Applier:     engine.New(fake),
		JoinTimeout: time.Second,
	}
	if err := p.Run(ctx); err != context.Canceled {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if got := fake.CallCount("CreateTask"); got != 0 {
		t.Errorf("Expected no writes after cancellation, got %d", got)
	}
}

type extractorFunc func(transcript string) ([]ops.Operation, error)

func (f extractorFunc) Extract(ctx context.Context, transcript string, snap *models.BoardSnapshot, streaming bool) ([]ops.Operation, error) {
	return f(transcript)
}
