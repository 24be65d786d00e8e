package queue

import (
	"context"
	"sync"

	"venuebot/pkg/metrics"
)

// MemoryQueue is a process-local Queue for tests and single-process runs.
type MemoryQueue struct {
	mu    sync.Mutex
	items [][]byte
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{}
}

func (q *MemoryQueue) Push(ctx context.Context, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, append([]byte(nil), payload...))
	metrics.MessagesEnqueued.Inc()
	return nil
}

func (q *MemoryQueue) Pop(ctx context.Context) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, false, nil
	}

	head := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return head, true, nil
}

func (q *MemoryQueue) Len(context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.items)), nil
}
