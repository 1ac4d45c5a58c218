// Package stream runs the live-meeting pipeline: one producer records
// fixed-duration audio chunks, one consumer transcribes, extracts,
// deduplicates, and executes. The queue between them is the only coupling;
// closing it is the shutdown sentinel.
package stream

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"time"

	"github.com/fentz26/taskscribe/internal/audit"
	"github.com/fentz26/taskscribe/internal/board"
	"github.com/fentz26/taskscribe/internal/dedup"
	"github.com/fentz26/taskscribe/internal/extract"
	"github.com/fentz26/taskscribe/internal/models"
	"github.com/fentz26/taskscribe/internal/ops"
)

// ChunkSource produces audio chunks. NextChunk blocks for the chunk
// duration; io.EOF ends the stream.
type ChunkSource interface {
	NextChunk(ctx context.Context) (audio io.Reader, filename string, err error)
}

// Applier executes one operation batch. Satisfied by engine.Executor.
type Applier interface {
	Apply(ctx context.Context, batch []ops.Operation) ([]models.OperationResult, error)
}

// DefaultJoinTimeout bounds the post-producer drain of the consumer.
const DefaultJoinTimeout = 60 * time.Second

// Processor wires the streaming pipeline together.
type Processor struct {
	Source      ChunkSource
	Transcriber extract.Transcriber
	Extractor   extract.Extractor
	Provider    board.Provider
	Applier     Applier
	Ledger      dedup.Ledger
	// Recorder is optional; when set, executed operations land in history.
	Recorder *audit.Recorder
	// JoinTimeout caps the wait for the consumer after the producer ends.
	// Zero means DefaultJoinTimeout.
	JoinTimeout time.Duration

	// transcript accumulates across chunks so the extractor always sees
	// full context. Only the consumer touches it.
	transcript strings.Builder
}

type chunk struct {
	data     []byte
	filename string
}

// Run streams until the source is exhausted or ctx is cancelled. On
// cancellation both goroutines stop at their next queue poll; in-flight
// network calls finish but queued chunks are not started. After a normal
// end of source the consumer drains the queue within a bounded window and
// is abandoned, not killed, if it overruns.
func (p *Processor) Run(ctx context.Context) error {
	if p.Ledger == nil {
		p.Ledger = dedup.NewMemoryLedger()
	}
	joinTimeout := p.JoinTimeout
	if joinTimeout == 0 {
		joinTimeout = DefaultJoinTimeout
	}

	queue := make(chan chunk, 64)
	producerDone := make(chan struct{})
	consumerDone := make(chan struct{})

	go func() {
		defer close(producerDone)
		defer close(queue)
		p.produce(ctx, queue)
	}()
	go func() {
		defer close(consumerDone)
		p.consume(ctx, queue)
	}()

	<-producerDone
	select {
	case <-consumerDone:
	case <-time.After(joinTimeout):
		log.Printf("stream: consumer still draining after %s, continuing", joinTimeout)
	}
	return ctx.Err()
}

func (p *Processor) produce(ctx context.Context, queue chan<- chunk) {
	num := 0
	for {
		if ctx.Err() != nil {
			return
		}
		audio, filename, err := p.Source.NextChunk(ctx)
		if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
			return
		}
		if err != nil {
			log.Printf("stream: record chunk: %v", err)
			continue
		}
		data, err := io.ReadAll(audio)
		if err != nil {
			log.Printf("stream: read chunk: %v", err)
			continue
		}
		if len(data) == 0 {
			continue
		}
		num++
		log.Printf("stream: queued chunk %d (%d bytes)", num, len(data))
		queue <- chunk{data: data, filename: filename}
	}
}

func (p *Processor) consume(ctx context.Context, queue <-chan chunk) {
	for {
		select {
		case <-ctx.Done():
			// Queued chunks are abandoned on cancellation; only the call
			// already in flight finishes.
			return
		case c, ok := <-queue:
			if !ok {
				return
			}
			if ctx.Err() != nil {
				return
			}
			p.process(ctx, c)
		}
	}
}

// process handles one chunk end to end. Every failure is logged and the
// consumer moves on; a bad chunk never stops the stream.
func (p *Processor) process(ctx context.Context, c chunk) {
	text, err := p.Transcriber.Transcribe(ctx, strings.NewReader(string(c.data)), c.filename)
	if err != nil {
		log.Printf("stream: transcribe: %v", err)
		return
	}
	if text == "" {
		return
	}
	if p.transcript.Len() > 0 {
		p.transcript.WriteString(" ")
	}
	p.transcript.WriteString(text)
	log.Printf("stream: transcript chunk: %q", text)

	snap, err := p.Provider.Snapshot(ctx)
	if err != nil {
		log.Printf("stream: snapshot: %v", err)
		return
	}
	batch, err := p.Extractor.Extract(ctx, p.transcript.String(), snap, true)
	if err != nil {
		log.Printf("stream: extract: %v", err)
		return
	}
	if len(batch) == 0 {
		return
	}

	fresh := dedup.Filter(p.Ledger, batch)
	if len(fresh) == 0 {
		return
	}

	results, err := p.Applier.Apply(ctx, fresh)
	if err != nil {
		log.Printf("stream: apply: %v", err)
		return
	}
	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
		}
	}
	log.Printf("stream: processed %d/%d operations\n%s", succeeded, len(results), extract.SummarizeResults(results))
	if p.Recorder != nil {
		p.Recorder.RecordBatch(fresh, results)
	}
}
