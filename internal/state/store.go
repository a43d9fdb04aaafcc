// Package state holds the two values an operation publishes to the front
// end, the output text and the remote config text, and notifies
// subscribers on every write.
package state

import "sync"

// Field names which value changed.
type Field int

const (
	FieldOutput Field = iota
	FieldConfig
)

func (f Field) String() string {
	if f == FieldConfig {
		return "config"
	}
	return "output"
}

// Event is delivered to subscribers after each write.
type Event struct {
	Field Field
	Value string // the full value after the write
}

// Store is safe for concurrent use. Subscribers run synchronously on the
// writing goroutine, in subscription order, before the setter returns.
// A subscriber must not write to the store it is notified by.
type Store struct {
	mu     sync.RWMutex
	output string
	config string

	subMu  sync.Mutex
	nextID int
	subs   []subscriber
}

type subscriber struct {
	id int
	fn func(Event)
}

// New creates an empty store.
func New() *Store {
	return &Store{}
}

// Output returns the current output text.
func (s *Store) Output() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.output
}

// Config returns the current config text.
func (s *Store) Config() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// SetOutput overwrites the output text.
func (s *Store) SetOutput(v string) {
	s.mu.Lock()
	s.output = v
	s.mu.Unlock()
	s.notify(Event{Field: FieldOutput, Value: v})
}

// AppendOutput appends to the output text.
func (s *Store) AppendOutput(v string) {
	s.mu.Lock()
	s.output += v
	out := s.output
	s.mu.Unlock()
	s.notify(Event{Field: FieldOutput, Value: out})
}

// SetConfig overwrites the config text.
func (s *Store) SetConfig(v string) {
	s.mu.Lock()
	s.config = v
	s.mu.Unlock()
	s.notify(Event{Field: FieldConfig, Value: v})
}

// Subscribe registers fn for every future write. The returned func removes it.
func (s *Store) Subscribe(fn func(Event)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscriber{id: id, fn: fn})

	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

func (s *Store) notify(e Event) {
	s.subMu.Lock()
	subs := append([]subscriber(nil), s.subs...)
	s.subMu.Unlock()

	for _, sub := range subs {
		sub.fn(e)
	}
}
