package subscriber

import (
	"context"
	"fmt"
	"sync"

	"github.com/sensacare/vitals/internal/logging"
)

var memoryLog = logging.Global().With("component", "subscriber.memory")

const memoryBufferSize = 1000

type memorySubscription struct {
	handler MessageHandler
	ctx     context.Context
	cancel  context.CancelFunc
	ch      chan memoryMessage
}

type memoryMessage struct {
	subject string
	data    []byte
}

// MemorySubscriber receives messages sent with PublishToMemory. Handler
// errors are logged and the message is dropped.
type MemorySubscriber struct {
	subscriptions map[string]*memorySubscription
	mu            sync.Mutex
}

// memoryBroker fans PublishToMemory calls out to every MemorySubscriber in
// the process.
type memoryBroker struct {
	subscribers map[string][]*memorySubscription
	mu          sync.RWMutex
}

var broker = &memoryBroker{subscribers: make(map[string][]*memorySubscription)}

// PublishToMemory delivers data to every in-process subscriber of subject
// and returns how many received it.
func PublishToMemory(subject string, data []byte) int {
	broker.mu.RLock()
	subs := append([]*memorySubscription(nil), broker.subscribers[subject]...)
	broker.mu.RUnlock()

	delivered := 0
	for _, sub := range subs {
		select {
		case sub.ch <- memoryMessage{subject: subject, data: data}:
			delivered++
		default:
			memoryLog.Warn("Subscriber channel full, dropping message", "subject", subject)
		}
	}
	return delivered
}

func (b *memoryBroker) add(subject string, sub *memorySubscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[subject] = append(b.subscribers[subject], sub)
}

func (b *memoryBroker) remove(subject string, sub *memorySubscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subscribers[subject]
	for i, s := range subs {
		if s == sub {
			b.subscribers[subject] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(b.subscribers[subject]) == 0 {
		delete(b.subscribers, subject)
	}
}

func NewMemorySubscriber() (*MemorySubscriber, error) {
	return &MemorySubscriber{subscriptions: make(map[string]*memorySubscription)}, nil
}

func (s *MemorySubscriber) Subscribe(ctx context.Context, subject string, handler MessageHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.subscriptions[subject]; exists {
		return fmt.Errorf("already subscribed to subject: %s", subject)
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &memorySubscription{
		handler: handler,
		ctx:     subCtx,
		cancel:  cancel,
		ch:      make(chan memoryMessage, memoryBufferSize),
	}
	s.subscriptions[subject] = sub
	broker.add(subject, sub)

	go consumeMemory(sub)

	memoryLog.Debug("Subscribed to in-memory subject", "subject", subject)
	return nil
}

func consumeMemory(sub *memorySubscription) {
	for {
		select {
		case <-sub.ctx.Done():
			return
		case msg := <-sub.ch:
			if err := sub.handler(sub.ctx, msg.subject, msg.data); err != nil {
				memoryLog.Error("Failed to handle message", "subject", msg.subject, "error", err)
			}
		}
	}
}

func (s *MemorySubscriber) Unsubscribe(subject string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, exists := s.subscriptions[subject]
	if !exists {
		return fmt.Errorf("not subscribed to subject: %s", subject)
	}

	sub.cancel()
	broker.remove(subject, sub)
	delete(s.subscriptions, subject)
	return nil
}

func (s *MemorySubscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for subject, sub := range s.subscriptions {
		sub.cancel()
		broker.remove(subject, sub)
	}
	s.subscriptions = make(map[string]*memorySubscription)
	return nil
}
