// Package broadcast carries the process-wide "theme changed" notification.
package broadcast

import (
	"sync"
	"time"
)

type Kind string

const KindThemeChanged Kind = "theme_changed"

type Event struct {
	Kind Kind `json:"kind"`
	// Origin identifies the publishing process so bridges can drop their own echoes.
	Origin string    `json:"origin,omitempty"`
	At     time.Time `json:"at"`
}

// Subject fans events out to subscribers. Handlers run synchronously on the
// publishing goroutine in subscription order and must not block.
type Subject struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[uint64]func(Event)
	order    []uint64
	taps     []func(Event)
}

func NewSubject() *Subject {
	return &Subject{handlers: make(map[uint64]func(Event))}
}

// Subscribe registers fn and returns the function that removes it. Calling
// the returned function more than once is harmless.
func (s *Subject) Subscribe(fn func(Event)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	s.handlers[id] = fn
	s.order = append(s.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.handlers, id)
			for i, existing := range s.order {
				if existing == id {
					s.order = append(s.order[:i], s.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Publish delivers event to every subscriber and to every outbound tap.
func (s *Subject) Publish(event Event) {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	s.deliver(event)

	s.mu.RLock()
	taps := append([]func(Event){}, s.taps...)
	s.mu.RUnlock()
	for _, tap := range taps {
		tap(event)
	}
}

// PublishThemeChanged is the common case.
func (s *Subject) PublishThemeChanged() {
	s.Publish(Event{Kind: KindThemeChanged})
}

// deliver notifies local subscribers only. Bridges use it for remote events so
// they are not sent back out.
func (s *Subject) deliver(event Event) {
	s.mu.RLock()
	handlers := make([]func(Event), 0, len(s.order))
	for _, id := range s.order {
		handlers = append(handlers, s.handlers[id])
	}
	s.mu.RUnlock()

	for _, handler := range handlers {
		handler(event)
	}
}

func (s *Subject) addTap(tap func(Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.taps = append(s.taps, tap)
}

func (s *Subject) SubscriberCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.handlers)
}
