package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/avgystin/practicalwork/internal/app"
)

func TestHandleDelays(t *testing.T) {
	t.Parallel()

	policy := app.NewDelayPolicy(map[string]time.Duration{app.OpSessionCreate: 250 * time.Millisecond})

	rec := httptest.NewRecorder()
	HandleGetDelays(policy)(rec, httptest.NewRequest(http.MethodGet, "/delay", nil))
	var table map[string]int64
	if err := json.NewDecoder(rec.Body).Decode(&table); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if table[app.OpSessionCreate] != 250 {
		t.Fatalf("expected 250ms for %s, got %v", app.OpSessionCreate, table)
	}

	rec = httptest.NewRecorder()
	body := bytes.NewBufferString(`{"order.create":1000,"custom.op":5}`)
	HandleSetDelays(policy)(rec, httptest.NewRequest(http.MethodPost, "/delay", body))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if policy.Delay(app.OpOrderCreate) != time.Second {
		t.Fatalf("expected order.create to be 1s, got %s", policy.Delay(app.OpOrderCreate))
	}
	if policy.Delay(app.OpSessionCreate) != 250*time.Millisecond {
		t.Fatalf("expected merge to keep session.create")
	}
	if policy.Delay("custom.op") != 5*time.Millisecond {
		t.Fatalf("expected unknown operation to be stored as-is")
	}
}

func TestHandleSetDelays_Rejects(t *testing.T) {
	t.Parallel()

	for _, body := range []string{`{"order.create":-1}`, `{"order.create":"slow"}`, `not json`} {
		policy := app.NewDelayPolicy(nil)
		rec := httptest.NewRecorder()
		HandleSetDelays(policy)(rec, httptest.NewRequest(http.MethodPost, "/delay", bytes.NewBufferString(body)))

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %s: expected status 400, got %d", body, rec.Code)
		}
		if len(policy.Delays()) != 0 {
			t.Fatalf("body %s: expected table untouched, got %v", body, policy.Delays())
		}
	}
}

func TestHandleSetDelays_RejectsOverflow(t *testing.T) {
	t.Parallel()

	policy := app.NewDelayPolicy(nil)
	rec := httptest.NewRecorder()
	body := bytes.NewBufferString(`{"order.create":9300000000000}`)
	HandleSetDelays(policy)(rec, httptest.NewRequest(http.MethodPost, "/delay", body))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
	var resp errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Code != codeInvalidDelay {
		t.Fatalf("expected code %q, got %q", codeInvalidDelay, resp.Code)
	}
	if len(policy.Delays()) != 0 {
		t.Fatalf("expected table untouched, got %v", policy.Delays())
	}

	rec = httptest.NewRecorder()
	body = bytes.NewBufferString(`{"order.create":9223372036854}`)
	HandleSetDelays(policy)(rec, httptest.NewRequest(http.MethodPost, "/delay", body))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected largest delay to be accepted, got %d", rec.Code)
	}
	if policy.Delay(app.OpOrderCreate) <= 0 {
		t.Fatalf("expected a positive delay, got %s", policy.Delay(app.OpOrderCreate))
	}
}
