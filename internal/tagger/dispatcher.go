package tagger

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"cardtag/internal/card"
	"cardtag/internal/sink"
)

// Mode selects the dispatcher's execution model.
type Mode string

const (
	// ModeSequential processes one card at a time.
	ModeSequential Mode = "sequential"
	// ModeConcurrent submits every card up front with at most C calls in flight.
	ModeConcurrent Mode = "concurrent"
	// ModeBatch groups cards into fixed-size chunks, one call per chunk.
	ModeBatch Mode = "batch"
)

// ParseMode validates a mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeSequential, ModeConcurrent, ModeBatch:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown execution mode %q", s)
	}
}

// Stats summarizes one pipeline run.
type Stats struct {
	Attempted       int
	Succeeded       int
	Dropped         int
	PeakConcurrency int
	Elapsed         time.Duration
}

// Dispatcher runs the tagging pipeline over a card list in one of the three
// execution modes. A per-item failure is logged and dropped; it never aborts
// the run. Only context cancellation stops processing early.
type Dispatcher struct {
	tagger    *Tagger
	sink      *sink.Sink
	gate      *Gate
	chunkSize int
	logger    *zap.Logger
}

// NewDispatcher creates a dispatcher with an admission gate of the given
// capacity and the given batch chunk size.
func NewDispatcher(t *Tagger, s *sink.Sink, concurrency, chunkSize int, logger *zap.Logger) *Dispatcher {
	if chunkSize < 1 {
		chunkSize = 1
	}
	return &Dispatcher{
		tagger:    t,
		sink:      s,
		gate:      NewGate(concurrency),
		chunkSize: chunkSize,
		logger:    logger,
	}
}

// Run dispatches the cards in the given mode and returns run statistics.
func (d *Dispatcher) Run(ctx context.Context, mode Mode, cards []card.Card) (Stats, error) {
	start := time.Now()

	var err error
	switch mode {
	case ModeSequential:
		err = d.runSequential(ctx, cards)
	case ModeConcurrent:
		err = d.runConcurrent(ctx, cards)
	case ModeBatch:
		err = d.runBatch(ctx, cards)
	default:
		return Stats{}, fmt.Errorf("unknown execution mode %q", mode)
	}

	succeeded := d.sink.Successes()
	stats := Stats{
		Attempted:       len(cards),
		Succeeded:       succeeded,
		Dropped:         len(cards) - succeeded,
		PeakConcurrency: d.gate.Peak(),
		Elapsed:         time.Since(start),
	}
	return stats, err
}

func (d *Dispatcher) runSequential(ctx context.Context, cards []card.Card) error {
	for _, c := range cards {
		if err := ctx.Err(); err != nil {
			return err
		}
		d.processCard(ctx, c)
	}
	return nil
}

// runConcurrent submits every card up front. The admission gate bounds the
// number of in-flight remote calls; completion order is unordered. Each card
// is processed at most once.
func (d *Dispatcher) runConcurrent(ctx context.Context, cards []card.Card) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, c := range cards {
		g.Go(func() error {
			if err := d.gate.Acquire(ctx); err != nil {
				return err
			}
			result, err := d.tagCardGated(ctx, c)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				d.dropCard(c, err)
				return nil
			}
			d.writeResult(c, result)
			return nil
		})
	}
	return g.Wait()
}

// tagCardGated performs the retry-wrapped call and releases the gate slot
// before the result is handed to the sink.
func (d *Dispatcher) tagCardGated(ctx context.Context, c card.Card) (card.TagResult, error) {
	defer d.gate.Release()
	return d.tagger.TagCard(ctx, c)
}

func (d *Dispatcher) runBatch(ctx context.Context, cards []card.Card) error {
	for begin := 0; begin < len(cards); begin += d.chunkSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := begin + d.chunkSize
		if end > len(cards) {
			end = len(cards)
		}
		chunk := cards[begin:end]

		results, err := d.tagger.TagChunk(ctx, chunk)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			d.logger.Warn("dropping chunk after exhausting retries",
				zap.Int("chunk_start", begin),
				zap.Int("chunk_size", len(chunk)),
				zap.Error(err))
			continue
		}
		for i, result := range results {
			d.writeResult(chunk[i], result)
		}
	}
	return nil
}

func (d *Dispatcher) processCard(ctx context.Context, c card.Card) {
	result, err := d.tagger.TagCard(ctx, c)
	if err != nil {
		d.dropCard(c, err)
		return
	}
	d.writeResult(c, result)
}

func (d *Dispatcher) dropCard(c card.Card, err error) {
	d.logger.Warn("dropping card after exhausting retries",
		zap.String("card", c.Name),
		zap.String("oracle_id", c.OracleID),
		zap.Error(err))
}

func (d *Dispatcher) writeResult(c card.Card, result card.TagResult) {
	if err := d.sink.Append(result); err != nil {
		d.logger.Error("failed to persist result",
			zap.String("card", c.Name),
			zap.Error(err))
		return
	}
	d.logger.Debug("tagged card",
		zap.String("card", c.Name),
		zap.Int("successes", d.sink.Successes()))
}
