// Package memory holds the rolling conversation log shared by every
// conversational turn the bridge serves.
//
// The log is bounded twice: turns older than the age window are dropped, and
// at most MaxTurns of the most recent turns are kept. Both bounds are applied
// on every Append and nowhere else.
package memory

import (
	"sync"
	"time"
)

const (
	// DefaultMaxTurns is the retained turn count.
	DefaultMaxTurns = 30

	// DefaultMaxAge is the trailing retention window.
	DefaultMaxAge = 24 * time.Hour
)

// Role attributes a turn to one side of the conversation.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one utterance. Turns are never modified after Append.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Store is a process-wide conversation log. It is safe for concurrent use;
// concurrent appends interleave in lock order.
type Store struct {
	mu       sync.Mutex
	turns    []Turn
	maxTurns int
	maxAge   time.Duration
	now      func() time.Time
}

// Option customizes a Store.
type Option func(*Store)

// WithMaxTurns overrides DefaultMaxTurns. Non-positive values are ignored.
func WithMaxTurns(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxTurns = n
		}
	}
}

// WithMaxAge overrides DefaultMaxAge. Non-positive values are ignored.
func WithMaxAge(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.maxAge = d
		}
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		maxTurns: DefaultMaxTurns,
		maxAge:   DefaultMaxAge,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append records a turn stamped with the current time and prunes the log.
func (s *Store) Append(role Role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.turns = append(s.turns, Turn{Role: role, Content: content, Timestamp: now})
	s.prune(now)
}

// prune drops turns older than the age window, then trims to maxTurns.
// Callers must hold s.mu.
func (s *Store) prune(now time.Time) {
	cutoff := now.Add(-s.maxAge)

	kept := s.turns[:0]
	for _, t := range s.turns {
		// A zero timestamp counts as fresh.
		if t.Timestamp.IsZero() || !t.Timestamp.Before(cutoff) {
			kept = append(kept, t)
		}
	}
	// Clear the tail so dropped contents can be collected.
	clear(s.turns[len(kept):])
	s.turns = kept

	if over := len(s.turns) - s.maxTurns; over > 0 {
		s.turns = append([]Turn(nil), s.turns[over:]...)
	}
}

// Snapshot returns a copy of the log in insertion order.
func (s *Store) Snapshot() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Len returns the number of retained turns.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns)
}
