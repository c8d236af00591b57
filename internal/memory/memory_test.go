package memory

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func TestNew_Defaults(t *testing.T) {
	s := New()
	require.Equal(t, DefaultMaxTurns, s.maxTurns)
	require.Equal(t, DefaultMaxAge, s.maxAge)
	require.Zero(t, s.Len())
	require.Empty(t, s.Snapshot())
}

func TestNew_IgnoresNonPositiveOptions(t *testing.T) {
	s := New(WithMaxTurns(0), WithMaxAge(-time.Second), WithClock(nil))
	require.Equal(t, DefaultMaxTurns, s.maxTurns)
	require.Equal(t, DefaultMaxAge, s.maxAge)
	require.NotNil(t, s.now)
}

func TestAppend_StampsCurrentTime(t *testing.T) {
	clock := newClock()
	s := New(WithClock(clock.Now))

	s.Append(RoleUser, "hello")

	snap := s.Snapshot()
	require.Len(t, snap, 1)
	require.Equal(t, Turn{Role: RoleUser, Content: "hello", Timestamp: clock.Now()}, snap[0])
}

func TestSnapshot_KeepsLastTurnsInOrder(t *testing.T) {
	cases := []int{0, 1, 29, 30, 31, 75}
	for _, n := range cases {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			clock := newClock()
			s := New(WithClock(clock.Now))
			for i := 0; i < n; i++ {
				s.Append(RoleUser, fmt.Sprintf("turn-%d", i))
				clock.Advance(time.Second)
			}

			snap := s.Snapshot()
			want := min(n, DefaultMaxTurns)
			require.Len(t, snap, want)
			for i, turn := range snap {
				require.Equal(t, fmt.Sprintf("turn-%d", n-want+i), turn.Content)
			}
		})
	}
}

func TestAppend_DropsTurnsOlderThanWindow(t *testing.T) {
	clock := newClock()
	s := New(WithClock(clock.Now))

	s.Append(RoleUser, "old question")
	s.Append(RoleAssistant, "old answer")
	clock.Advance(DefaultMaxAge + time.Minute)
	s.Append(RoleUser, "new question")

	snap := s.Snapshot()
	require.Len(t, snap, 1)
	require.Equal(t, "new question", snap[0].Content)
}

func TestAppend_KeepsTurnExactlyAtCutoff(t *testing.T) {
	clock := newClock()
	s := New(WithClock(clock.Now), WithMaxAge(time.Hour))

	s.Append(RoleUser, "edge")
	clock.Advance(time.Hour)
	s.Append(RoleAssistant, "reply")

	require.Equal(t, 2, s.Len())
}

func TestAppend_PruningIsNotLazy(t *testing.T) {
	clock := newClock()
	s := New(WithClock(clock.Now), WithMaxAge(time.Hour))

	s.Append(RoleUser, "stale soon")
	clock.Advance(2 * time.Hour)

	// No append happened since the turn expired, so it is still visible.
	require.Equal(t, 1, s.Len())

	s.Append(RoleUser, "fresh")
	require.Equal(t, 1, s.Len())
}

func TestAppend_AgeAndCountBoundsHoldAfterEveryWrite(t *testing.T) {
	clock := newClock()
	s := New(WithClock(clock.Now), WithMaxTurns(5), WithMaxAge(10*time.Minute))

	steps := []time.Duration{0, time.Minute, 3 * time.Minute, 7 * time.Minute, 30 * time.Second, 11 * time.Minute, time.Second}
	for i := 0; i < 40; i++ {
		clock.Advance(steps[i%len(steps)])
		s.Append(RoleUser, fmt.Sprintf("t%d", i))

		now := clock.Now()
		snap := s.Snapshot()
		require.LessOrEqual(t, len(snap), 5)
		for _, turn := range snap {
			require.False(t, turn.Timestamp.Before(now.Add(-10*time.Minute)), "turn %q too old", turn.Content)
		}
	}
}

func TestPrune_ZeroTimestampTreatedAsFresh(t *testing.T) {
	clock := newClock()
	s := New(WithClock(clock.Now), WithMaxAge(time.Hour))
	s.turns = []Turn{{Role: RoleUser, Content: "legacy"}}

	clock.Advance(48 * time.Hour)
	s.Append(RoleAssistant, "now")

	snap := s.Snapshot()
	require.Len(t, snap, 2)
	require.Equal(t, "legacy", snap[0].Content)
}

func TestSnapshot_IsACopy(t *testing.T) {
	s := New()
	s.Append(RoleUser, "original")

	snap := s.Snapshot()
	snap[0].Content = "mutated"

	require.Equal(t, "original", s.Snapshot()[0].Content)
}

func TestAppend_ConcurrentWritersStayBounded(t *testing.T) {
	s := New(WithMaxTurns(30))

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				s.Append(RoleUser, fmt.Sprintf("w%d-%d", w, i))
				_ = s.Snapshot()
			}
		}(w)
	}
	wg.Wait()

	require.Equal(t, 30, s.Len())
}
