package engine

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/roach88/markerset/internal/ir"
	"github.com/roach88/markerset/internal/logging"
)

// Pipeline feeds a Reconstructor from any number of producers through a
// single FIFO queue.
//
// Thread-safety model:
//   - Enqueue() and Close(): safe from any goroutine
//   - Run(): must be called from exactly one goroutine
type Pipeline struct {
	rec      *Reconstructor
	queue    *eventQueue
	logger   *slog.Logger
	rejected atomic.Int64
}

// NewPipeline wraps rec. The logger is used for rejected events and loop
// lifecycle; nil discards output.
func NewPipeline(rec *Reconstructor, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Pipeline{
		rec:    rec,
		queue:  newEventQueue(),
		logger: logger,
	}
}

// Enqueue submits ev. Returns false once the pipeline is closed.
func (p *Pipeline) Enqueue(ev ir.Event) bool {
	return p.queue.Enqueue(ev)
}

// Close stops accepting events. Run drains what is queued, then returns.
func (p *Pipeline) Close() {
	p.queue.Close()
}

// Rejected returns how many dequeued events the Reconstructor refused.
func (p *Pipeline) Rejected() int64 {
	return p.rejected.Load()
}

// Reconstructor returns the wrapped engine.
func (p *Pipeline) Reconstructor() *Reconstructor {
	return p.rec
}

// Run applies queued events in FIFO order until the queue is closed and
// drained (returns nil) or ctx is cancelled (returns ctx.Err()).
//
// A rejected event is logged and skipped; retrying it could only reorder
// the stream.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Debug("pipeline starting")

	for {
		ev, ok := p.queue.TryDequeue()
		if ok {
			if err := p.rec.Apply(ev); err != nil {
				p.rejected.Add(1)
				p.logger.Error("event rejected",
					"error", err,
					"kind", ev.Kind,
					"name", ev.Name,
					"at", ev.Time,
				)
			}
			continue
		}

		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping: context cancelled")
			p.queue.Close()
			return ctx.Err()

		case <-p.queue.Wait():
			// A closed signal channel fires immediately; stop once drained.
			if p.queue.Drained() {
				p.logger.Debug("pipeline stopping: queue closed")
				return nil
			}
		}
	}
}
