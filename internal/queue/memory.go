package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// memoryChannelSize bounds each subject's backlog.
const memoryChannelSize = 10000

// ErrPublisherClosed is returned after Close.
var ErrPublisherClosed = errors.New("publisher closed")

// MemoryPublisher buffers messages per subject in process. Tests read them
// back with Drain.
type MemoryPublisher struct {
	channels map[string]chan []byte
	closed   bool
	mu       sync.RWMutex
}

func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{channels: make(map[string]chan []byte)}
}

// Publish never blocks: a full subject backlog is an error.
func (q *MemoryPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrPublisherClosed
	}
	ch, exists := q.channels[subject]
	if !exists {
		ch = make(chan []byte, memoryChannelSize)
		q.channels[subject] = ch
	}

	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)

	select {
	case ch <- dataCopy:
		return nil
	default:
		return fmt.Errorf("channel full for subject: %s", subject)
	}
}

func (q *MemoryPublisher) PublishBatch(ctx context.Context, messages []BatchMessage) (int, error) {
	successCount := 0
	for _, msg := range messages {
		if err := q.Publish(ctx, msg.Subject, msg.Data); err != nil {
			continue
		}
		successCount++
	}
	return successCount, nil
}

// Pending returns the number of buffered messages for subject.
func (q *MemoryPublisher) Pending(subject string) int {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if ch, exists := q.channels[subject]; exists {
		return len(ch)
	}
	return 0
}

// Drain removes and returns every buffered message for subject.
func (q *MemoryPublisher) Drain(subject string) [][]byte {
	q.mu.RLock()
	ch, exists := q.channels[subject]
	q.mu.RUnlock()
	if !exists {
		return nil
	}

	var out [][]byte
	for {
		select {
		case data, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, data)
		default:
			return out
		}
	}
}

func (q *MemoryPublisher) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	q.closed = true
	for subject, ch := range q.channels {
		close(ch)
		delete(q.channels, subject)
	}
	return nil
}
