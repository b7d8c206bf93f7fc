package batch

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const (
	DefaultBatchSize = 50
	DefaultDelay     = 10 * time.Second
)

// Action processes one item. Implementations update the business counters
// (Succeeded, Skipped, Categories) themselves and consult the run's dry-run
// flag; the processor owns Processed and Errors.
type Action[T any] func(ctx context.Context, item T, stats *RunStatistics) error

// ItemProcessingError records one item's failure. It is contained: counted,
// logged, and the batch keeps going.
type ItemProcessingError struct {
	Index int
	Err   error
}

func (e *ItemProcessingError) Error() string {
	return fmt.Sprintf("failed to process item %d: %v", e.Index, e.Err)
}

func (e *ItemProcessingError) Unwrap() error { return e.Err }

// Processor dispatches items in contiguous chunks of at most BatchSize,
// strictly sequentially, sleeping Delay between chunks. The serial dispatch
// plus delay is the throttling-avoidance strategy for bulk Graph work:
// latency is traded for predictable, non-throttled throughput, so the
// processor must never be parallelized.
type Processor[T any] struct {
	BatchSize int
	Delay     time.Duration
	Logger    *slog.Logger

	sleep func(context.Context, time.Duration) error
}

func NewProcessor[T any](batchSize int, delay time.Duration) *Processor[T] {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if delay < 0 {
		delay = DefaultDelay
	}

	return &Processor[T]{
		BatchSize: batchSize,
		Delay:     delay,
		Logger:    slog.Default(),
		sleep:     waitFor,
	}
}

// Run processes items in order and returns the populated statistics. Item
// failures, including panics inside the action, are contained and counted;
// cancellation during an inter-chunk delay is fatal to the run.
func (p *Processor[T]) Run(ctx context.Context, items []T, action Action[T]) (*RunStatistics, error) {
	return p.RunWith(ctx, items, action, NewRunStatistics())
}

// RunWith is Run against caller-provided statistics, for drivers that count
// collection work before batching starts.
func (p *Processor[T]) RunWith(ctx context.Context, items []T, action Action[T], stats *RunStatistics) (*RunStatistics, error) {
	total := len(items)
	if total == 0 {
		stats.Finalize()
		return stats, nil
	}

	batches := (total + p.BatchSize - 1) / p.BatchSize
	p.Logger.Info("processing items in batches",
		"items", total,
		"batch_size", p.BatchSize,
		"batches", batches,
		"delay", p.Delay)

	for start := 0; start < total; start += p.BatchSize {
		end := start + p.BatchSize
		if end > total {
			end = total
		}

		p.Logger.Debug("processing batch",
			"batch", start/p.BatchSize+1,
			"batches", batches,
			"size", end-start)

		for i := start; i < end; i++ {
			if err := p.dispatch(ctx, items[i], i, action, stats); err != nil {
				stats.Errors++
				p.Logger.Error("item failed", "error", err)
			}
			stats.Processed++
		}

		if end < total {
			if err := p.sleep(ctx, p.Delay); err != nil {
				return nil, fmt.Errorf("aborted during batch delay: %w", err)
			}
		}
	}

	stats.Finalize()
	return stats, nil
}

// dispatch runs the action for one item, converting a panic into a contained
// item error so a single bad row cannot take down the run.
func (p *Processor[T]) dispatch(ctx context.Context, item T, index int, action Action[T], stats *RunStatistics) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ItemProcessingError{Index: index, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	if actionErr := action(ctx, item, stats); actionErr != nil {
		return &ItemProcessingError{Index: index, Err: actionErr}
	}
	return nil
}

func waitFor(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
