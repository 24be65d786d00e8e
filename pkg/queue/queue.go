// Package queue holds pending inbound chat messages between ingress and the worker.
package queue

import (
	"context"
	"log/slog"
	"time"

	"venuebot/pkg/metrics"
)

const DefaultPollInterval = 200 * time.Millisecond

// Queue is an ordered FIFO of raw message payloads.
//
// Pop reports false when the queue is empty. There is no acknowledgement:
// an item is consumed the moment Pop returns it.
type Queue interface {
	Push(ctx context.Context, payload []byte) error
	Pop(ctx context.Context) ([]byte, bool, error)
}

// Lener is implemented by queues that can report their backlog.
type Lener interface {
	Len(ctx context.Context) (int64, error)
}

// ObserveDepth publishes the current backlog of q to the depth gauge.
// It reports false when q cannot tell its length or the lookup fails.
func ObserveDepth(ctx context.Context, q Queue) (int64, bool) {
	lener, ok := q.(Lener)
	if !ok {
		return 0, false
	}

	depth, err := lener.Len(ctx)
	if err != nil {
		return 0, false
	}

	metrics.QueueDepth.Set(float64(depth))
	return depth, true
}

// DequeueOrWait blocks until an item is available or ctx is done.
//
// Empty polls and store errors both back off for interval before retrying.
func DequeueOrWait(ctx context.Context, q Queue, interval time.Duration, log *slog.Logger) ([]byte, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if log == nil {
		log = slog.Default()
	}

	failing := false
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		payload, ok, err := q.Pop(ctx)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			metrics.QueueErrors.WithLabelValues("pop").Inc()
			if !failing {
				log.Warn("Queue unavailable, retrying", "error", err, "interval", interval)
				failing = true
			} else {
				log.Debug("Queue still unavailable", "error", err)
			}
		case ok:
			if failing {
				log.Info("Queue available again")
			}
			metrics.MessagesDequeued.Inc()
			return payload, nil
		default:
			if failing {
				log.Info("Queue available again")
				failing = false
			}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
	}
}
