package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/avgystin/practicalwork/internal/app"
	"github.com/avgystin/practicalwork/internal/catalog"
	"github.com/avgystin/practicalwork/internal/clock"
	"github.com/avgystin/practicalwork/internal/domain"
	"github.com/avgystin/practicalwork/internal/metrics"
	"github.com/avgystin/practicalwork/internal/stream"
)

type testEnv struct {
	deps    RouterDeps
	cancels *stream.Memory
	clock   *clock.Manual
	delays  *app.DelayPolicy
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	clk := clock.NewManual(time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC))
	cancels := stream.NewMemory(0)
	delays := app.NewDelayPolicy(nil)

	return &testEnv{
		deps: RouterDeps{
			Sessions:    app.NewSessionRegistry(clk, app.WithSessionTimeout(time.Minute)),
			Delays:      delays,
			Orders:      app.NewOrderLedger(newMemOrderStore(), catalog.Default(), clk),
			Cancels:     app.NewCancellationRequester(cancels),
			Messages:    app.NewMessageService(stream.NewMemory(0), clk),
			Metrics:     metrics.New(),
			Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
			CORSOrigins: []string{"*"},
		},
		cancels: cancels,
		clock:   clk,
		delays:  delays,
	}
}

func newTestDeps(t *testing.T) RouterDeps {
	return newTestEnv(t).deps
}

func do(t *testing.T, h http.Handler, method, path, session, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if session != "" {
		req.Header.Set(SessionHeader, session)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestRouter_OrderLifecycle(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	router := NewRouter(env.deps)

	rec := do(t, router, http.MethodGet, "/session/create", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("create session: status %d", rec.Code)
	}
	var sess map[string]string
	decode(t, rec, &sess)
	token := sess["session_id"]

	rec = do(t, router, http.MethodPost, "/order/create", token, `{"product_name":"MacBook","quantity":3}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("create order: status %d (%s)", rec.Code, rec.Body.String())
	}
	var order orderResponse
	decode(t, rec, &order)
	if order.TotalPrice != 3 || order.OrderID == 0 {
		t.Fatalf("unexpected order: %+v", order)
	}

	id := strconv.FormatInt(order.OrderID, 10)
	rec = do(t, router, http.MethodGet, "/order/getOrder?order_id="+id+"&product_name=MacBook", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get order: status %d", rec.Code)
	}
	rec = do(t, router, http.MethodGet, "/order/getOrder?order_id="+id+"&product_name=iPhone", token, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("mismatch: expected 400, got %d", rec.Code)
	}

	rec = do(t, router, http.MethodPost, "/order/cancel", token, `{"order_id":`+id+`}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("cancel: expected 202, got %d", rec.Code)
	}
	if env.cancels.Pending() != 1 {
		t.Fatalf("expected one queued cancellation, got %d", env.cancels.Pending())
	}

	rec = do(t, router, http.MethodDelete, "/session/delete", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete session: status %d", rec.Code)
	}
	rec = do(t, router, http.MethodGet, "/order/getProducts", token, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("deleted session: expected 401, got %d", rec.Code)
	}
	rec = do(t, router, http.MethodDelete, "/session/delete", token, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("second delete: expected 401, got %d", rec.Code)
	}
}

func TestRouter_SessionExpiry(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	router := NewRouter(env.deps)

	var sess map[string]string
	decode(t, do(t, router, http.MethodGet, "/session/create", "", ""), &sess)
	token := sess["session_id"]

	env.clock.Advance(time.Minute)
	if rec := do(t, router, http.MethodGet, "/order/getProducts", token, ""); rec.Code != http.StatusOK {
		t.Fatalf("at exactly the timeout: expected 200, got %d", rec.Code)
	}

	env.clock.Advance(time.Millisecond)
	if rec := do(t, router, http.MethodGet, "/order/getProducts", token, ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("past the timeout: expected 401, got %d", rec.Code)
	}

	var check checkSessionResponse
	decode(t, do(t, router, http.MethodGet, "/order/Check?session_id="+token, "", ""), &check)
	if check.IsValid {
		t.Fatalf("expected expired session to be reported invalid")
	}
}

func TestRouter_InvalidSessionSkipsDelay(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.delays.Configure(map[string]time.Duration{app.OpOrderGetProducts: 5 * time.Second})
	router := NewRouter(env.deps)

	start := time.Now()
	rec := do(t, router, http.MethodGet, "/order/getProducts", "nope", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("expected rejection before the delay, took %s", elapsed)
	}
}

func TestRouter_ExposesMetrics(t *testing.T) {
	t.Parallel()
	router := NewRouter(newTestDeps(t))

	do(t, router, http.MethodGet, "/session/create", "", "")
	rec := do(t, router, http.MethodGet, "/metrics", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	for _, want := range []string{"practicalwork_sessions_created_total 1", `route="/session/create"`} {
		if !contains(rec.Body.String(), want) {
			t.Fatalf("expected %q in metrics output", want)
		}
	}
}

type memOrderStore struct {
	mu     sync.Mutex
	orders map[int64]domain.Order
	nextID int64
}

func newMemOrderStore() *memOrderStore {
	return &memOrderStore{orders: make(map[int64]domain.Order)}
}

func (s *memOrderStore) Save(_ context.Context, o domain.Order) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	o.ID = s.nextID
	s.orders[o.ID] = o
	return o, nil
}

func (s *memOrderStore) FindByID(_ context.Context, id int64) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (s *memOrderStore) DeleteByID(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[id]; !ok {
		return false, nil
	}
	delete(s.orders, id)
	return true, nil
}
