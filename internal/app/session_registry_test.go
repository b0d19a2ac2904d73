package app

import (
	"sync"
	"testing"
	"time"

	"github.com/avgystin/practicalwork/internal/clock"
)

func TestSessionRegistry(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC)

	t.Run("unknown and empty tokens are invalid", func(t *testing.T) {
		t.Parallel()
		reg := NewSessionRegistry(clock.NewFixed(start))

		if reg.IsValid("") {
			t.Fatalf("expected empty token to be invalid")
		}
		if reg.IsValid("never-issued") {
			t.Fatalf("expected unknown token to be invalid")
		}
	})

	t.Run("created token is valid and unique", func(t *testing.T) {
		t.Parallel()
		reg := NewSessionRegistry(clock.NewFixed(start))

		a := reg.Create()
		b := reg.Create()
		if a == "" || a == b {
			t.Fatalf("expected distinct non-empty tokens, got %q and %q", a, b)
		}
		if !reg.IsValid(a) || !reg.IsValid(b) {
			t.Fatalf("expected fresh sessions to be valid")
		}
	})

	t.Run("expiry boundary", func(t *testing.T) {
		t.Parallel()
		clk := clock.NewManual(start)
		reg := NewSessionRegistry(clk)
		token := reg.Create()

		clk.Set(start.Add(defaultSessionTimeout - time.Millisecond))
		if !reg.IsValid(token) {
			t.Fatalf("expected session valid just before timeout")
		}

		clk.Set(start.Add(defaultSessionTimeout))
		if !reg.IsValid(token) {
			t.Fatalf("expected session valid exactly at timeout")
		}

		clk.Set(start.Add(defaultSessionTimeout + time.Millisecond))
		if reg.IsValid(token) {
			t.Fatalf("expected session invalid just after timeout")
		}
		if reg.Len() != 0 {
			t.Fatalf("expected expired session to be evicted, %d left", reg.Len())
		}

		clk.Set(start)
		if reg.IsValid(token) {
			t.Fatalf("expected evicted session to stay invalid")
		}
	})

	t.Run("validity checks do not extend the session", func(t *testing.T) {
		t.Parallel()
		clk := clock.NewManual(start)
		reg := NewSessionRegistry(clk, WithSessionTimeout(time.Minute))
		token := reg.Create()

		for i := 0; i < 5; i++ {
			clk.Advance(10 * time.Second)
			if !reg.IsValid(token) {
				t.Fatalf("expected valid at step %d", i)
			}
		}
		clk.Advance(11 * time.Second)
		if reg.IsValid(token) {
			t.Fatalf("expected expiry measured from creation time")
		}
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		t.Parallel()
		reg := NewSessionRegistry(clock.NewFixed(start))
		token := reg.Create()

		if !reg.Delete(token) {
			t.Fatalf("expected first delete to report true")
		}
		if reg.Delete(token) {
			t.Fatalf("expected second delete to report false")
		}
		if reg.IsValid(token) {
			t.Fatalf("expected deleted token to be invalid")
		}
	})

	t.Run("concurrent checks on an expired token", func(t *testing.T) {
		t.Parallel()
		clk := clock.NewManual(start)
		reg := NewSessionRegistry(clk)
		token := reg.Create()
		clk.Advance(defaultSessionTimeout + time.Second)

		var wg sync.WaitGroup
		for i := 0; i < 32; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if reg.IsValid(token) {
					t.Errorf("expected expired token to be invalid")
				}
			}()
		}
		wg.Wait()

		if reg.Len() != 0 {
			t.Fatalf("expected eviction, %d left", reg.Len())
		}
	})
}
