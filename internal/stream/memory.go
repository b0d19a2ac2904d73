package stream

import (
	"context"
	"strconv"
	"sync"
	"time"
)

const (
	defaultMemoryBatch     = 50
	defaultMemoryClaimIdle = time.Minute
)

type memoryEntry struct {
	id          string
	payload     string
	acked       bool
	deliveredAt time.Time
}

// Memory is an in-process append-only log. Every new subscription starts at
// the oldest unacknowledged entry, and a live subscription re-offers entries
// left unacknowledged for longer than the claim idle window.
type Memory struct {
	mu        sync.Mutex
	entries   []memoryEntry
	notify    chan struct{}
	batch     int
	claimIdle time.Duration
}

type MemoryOption func(*Memory)

// WithClaimIdle sets how long a delivered entry may stay unacknowledged
// before it is offered again.
func WithClaimIdle(d time.Duration) MemoryOption {
	return func(m *Memory) {
		if d > 0 {
			m.claimIdle = d
		}
	}
}

func NewMemory(batch int, opts ...MemoryOption) *Memory {
	if batch <= 0 {
		batch = defaultMemoryBatch
	}
	m := &Memory{
		notify:    make(chan struct{}),
		batch:     batch,
		claimIdle: defaultMemoryClaimIdle,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) Publish(_ context.Context, payload string) (string, error) {
	m.mu.Lock()
	id := strconv.Itoa(len(m.entries) + 1)
	m.entries = append(m.entries, memoryEntry{id: id, payload: payload})
	close(m.notify)
	m.notify = make(chan struct{})
	m.mu.Unlock()
	return id, nil
}

func (m *Memory) Subscribe(_ context.Context) (Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cursor := len(m.entries)
	for i, e := range m.entries {
		if !e.acked {
			cursor = i
			break
		}
	}
	return &memorySubscription{log: m, cursor: cursor, closed: make(chan struct{})}, nil
}

// Pending returns the number of unacknowledged entries.
func (m *Memory) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.entries {
		if !e.acked {
			n++
		}
	}
	return n
}

// Acked reports whether the entry with id has been acknowledged.
func (m *Memory) Acked(id string) bool {
	idx, err := strconv.Atoi(id)
	if err != nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if idx < 1 || idx > len(m.entries) {
		return false
	}
	return m.entries[idx-1].acked
}

func (m *Memory) ack(idx int) {
	m.mu.Lock()
	m.entries[idx].acked = true
	m.mu.Unlock()
}

// deliver marks the entry as handed out at now. Callers hold m.mu.
func (m *Memory) deliver(idx int, now time.Time) Event {
	e := &m.entries[idx]
	e.deliveredAt = now
	return NewEvent(e.id, e.payload, func(context.Context) error {
		m.ack(idx)
		return nil
	})
}

type memorySubscription struct {
	log       *Memory
	cursor    int
	closeOnce sync.Once
	closed    chan struct{}
}

func (s *memorySubscription) Fetch(ctx context.Context) ([]Event, error) {
	for {
		select {
		case <-s.closed:
			return nil, ErrClosed
		default:
		}

		now := time.Now()
		s.log.mu.Lock()
		batch, nextClaim := s.claimIdle(now)
		for s.cursor < len(s.log.entries) && len(batch) < s.log.batch {
			idx := s.cursor
			s.cursor++
			if s.log.entries[idx].acked {
				continue
			}
			batch = append(batch, s.log.deliver(idx, now))
		}
		wait := s.log.notify
		s.log.mu.Unlock()

		if len(batch) > 0 {
			return batch, nil
		}

		var claim <-chan time.Time
		var timer *time.Timer
		if !nextClaim.IsZero() {
			timer = time.NewTimer(nextClaim.Sub(now))
			claim = timer.C
		}

		select {
		case <-ctx.Done():
			stopTimer(timer)
			return nil, ctx.Err()
		case <-s.closed:
			stopTimer(timer)
			return nil, ErrClosed
		case <-wait:
			stopTimer(timer)
		case <-claim:
		}
	}
}

// claimIdle collects entries behind the cursor that were delivered but not
// acked within the claim idle window. It also returns when the next such
// entry becomes claimable, zero when there is none. Callers hold log.mu.
func (s *memorySubscription) claimIdle(now time.Time) ([]Event, time.Time) {
	var (
		batch []Event
		next  time.Time
	)
	for idx := 0; idx < s.cursor && len(batch) < s.log.batch; idx++ {
		e := s.log.entries[idx]
		if e.acked || e.deliveredAt.IsZero() {
			continue
		}
		due := e.deliveredAt.Add(s.log.claimIdle)
		if !now.Before(due) {
			batch = append(batch, s.log.deliver(idx, now))
			continue
		}
		if next.IsZero() || due.Before(next) {
			next = due
		}
	}
	return batch, next
}

func stopTimer(t *time.Timer) {
	if t != nil {
		t.Stop()
	}
}

func (s *memorySubscription) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}
