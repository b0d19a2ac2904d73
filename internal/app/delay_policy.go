package app

import (
	"context"
	"sync"
	"time"
)

// Operation names understood by the HTTP layer.
const (
	OpSessionCreate    = "session.create"
	OpSessionDelete    = "session.delete"
	OpSessionCheck     = "session.check"
	OpOrderCreate      = "order.create"
	OpOrderGetProducts = "order.getProducts"
	OpOrderGetOrder    = "order.getOrder"
)

// DelayPolicy injects artificial latency per operation name.
type DelayPolicy struct {
	mu     sync.RWMutex
	delays map[string]time.Duration
}

func NewDelayPolicy(initial map[string]time.Duration) *DelayPolicy {
	p := &DelayPolicy{delays: make(map[string]time.Duration, len(initial))}
	p.Configure(initial)
	return p
}

// Configure merges delays into the table. Names are not validated.
func (p *DelayPolicy) Configure(delays map[string]time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for op, d := range delays {
		p.delays[op] = d
	}
}

// Replace swaps the whole table.
func (p *DelayPolicy) Replace(delays map[string]time.Duration) {
	next := make(map[string]time.Duration, len(delays))
	for op, d := range delays {
		next[op] = d
	}
	p.mu.Lock()
	p.delays = next
	p.mu.Unlock()
}

// Delays returns a copy of the table.
func (p *DelayPolicy) Delays() map[string]time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]time.Duration, len(p.delays))
	for op, d := range p.delays {
		out[op] = d
	}
	return out
}

// Delay returns the configured delay for operation, zero when absent.
func (p *DelayPolicy) Delay(operation string) time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.delays[operation]
}

// Apply waits for the operation's delay or until ctx is done, whichever is first.
func (p *DelayPolicy) Apply(ctx context.Context, operation string) {
	d := p.Delay(operation)
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
