// Package memory provides the queue implementation used for local
// development and tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/devilsangel360live/Hearth/internal/recipe"
)

// Queue is a bounded in-memory queue with context-aware operations.
// Enqueue never blocks: a full queue reports recipe.ErrQueueFull so the
// submitting handler can fail the job instead of stalling the request.
type Queue struct {
	ch      chan recipe.QueueItem
	closeMu sync.Mutex
	closed  bool
}

// NewQueue constructs a queue with the provided capacity.
func NewQueue(capacity int) *Queue {
	return &Queue{
		ch: make(chan recipe.QueueItem, capacity),
	}
}

// Enqueue pushes an item into the queue, or reports why it could not.
func (q *Queue) Enqueue(ctx context.Context, item recipe.QueueItem) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("enqueue canceled: %w", ctx.Err())
	case q.ch <- item:
		return nil
	default:
		return recipe.ErrQueueFull
	}
}

// Dequeue pops the next item, respecting context cancellation.
func (q *Queue) Dequeue(ctx context.Context) (recipe.QueueItem, error) {
	select {
	case <-ctx.Done():
		return recipe.QueueItem{}, fmt.Errorf("dequeue canceled: %w", ctx.Err())
	case item, ok := <-q.ch:
		if !ok {
			return recipe.QueueItem{}, errors.New("queue closed")
		}
		return item, nil
	}
}

// Len reports the number of queued items.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Close closes the underlying channel for shutdown.
func (q *Queue) Close() {
	q.closeMu.Lock()
	defer q.closeMu.Unlock()
	if q.closed {
		return
	}
	close(q.ch)
	q.closed = true
}
