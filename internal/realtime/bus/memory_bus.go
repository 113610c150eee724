package bus

import (
	"context"
	"fmt"
	"sync"

	"github.com/yungbote/coursegen-backend/internal/realtime"
)

// memoryBus fans out within one process. Used when Redis is not configured
// and in tests.
type memoryBus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]chan realtime.RunUpdate
	closed bool
}

func NewMemoryBus() Bus {
	return &memoryBus{subs: map[int]chan realtime.RunUpdate{}}
}

// Publish never blocks; a subscriber whose buffer is full misses the update.
func (b *memoryBus) Publish(ctx context.Context, msg realtime.RunUpdate) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return fmt.Errorf("bus closed")
	}
	for _, ch := range b.subs {
		select {
		case ch <- msg:
		default:
		}
	}
	return nil
}

func (b *memoryBus) StartForwarder(ctx context.Context, onMsg func(m realtime.RunUpdate)) error {
	if onMsg == nil {
		return fmt.Errorf("onMsg callback required")
	}
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return fmt.Errorf("bus closed")
	}
	id := b.nextID
	b.nextID++
	ch := make(chan realtime.RunUpdate, 64)
	b.subs[id] = ch
	b.mu.Unlock()

	go func() {
		defer b.unsubscribe(id)
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok {
					return
				}
				onMsg(m)
			}
		}
	}()
	return nil
}

func (b *memoryBus) unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
}

func (b *memoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
	return nil
}
