// Package live turns store writes into change notifications. A watcher runs
// its query once up front and again after every write to a topic it follows.
package live

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/recipelab/internal/logging"
)

// Topic names a group of records whose writes are announced together.
type Topic string

const (
	TopicRecipes   Topic = "recipes"
	TopicFavorites Topic = "favorites"
	TopicSettings  Topic = "settings"
)

type subscriber struct {
	topics  map[Topic]bool
	refresh func(ctx context.Context)
}

// Hub fans out write announcements to watchers.
type Hub struct {
	mu     sync.RWMutex
	next   uint64
	subs   map[uint64]*subscriber
	logger logging.Logger
}

func NewHub(l logging.Logger) *Hub {
	return &Hub{subs: make(map[uint64]*subscriber), logger: l}
}

// Publish re-runs the query of every watcher following one of topics.
// Watchers are refreshed on the caller's goroutine, after the write committed.
func (h *Hub) Publish(ctx context.Context, topics ...Topic) {
	h.mu.RLock()
	var targets []*subscriber
	for _, s := range h.subs {
		for _, t := range topics {
			if s.topics[t] {
				targets = append(targets, s)
				break
			}
		}
	}
	h.mu.RUnlock()

	for _, s := range targets {
		s.refresh(ctx)
	}
}

func (h *Hub) add(s *subscriber) func() {
	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = s
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}
}

// Len returns the number of active watchers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Watch runs q and returns its current value plus an unsubscribe func. After
// each write to one of topics q runs again and onChange receives the result.
// Query failures on refresh are logged and skipped.
func Watch[T any](ctx context.Context, h *Hub, topics []Topic, q func(ctx context.Context) (T, error), onChange func(T)) (T, func(), error) {
	current, err := q(ctx)
	if err != nil {
		var zero T
		return zero, func() {}, err
	}

	set := make(map[Topic]bool, len(topics))
	for _, t := range topics {
		set[t] = true
	}

	unsubscribe := h.add(&subscriber{
		topics: set,
		refresh: func(ctx context.Context) {
			v, err := q(ctx)
			if err != nil {
				h.logger.Warn(ctx, "live query refresh failed", "error", err)
				return
			}
			onChange(v)
		},
	})
	return current, unsubscribe, nil
}
