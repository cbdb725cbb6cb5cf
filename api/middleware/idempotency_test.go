package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	pkgerrors "github.com/angelmondragon/artmarket-backend/pkg/errors"
)

type fakeStore struct {
	data map[string]string
	ttls map[string]time.Duration
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	str, _ := value.(string)
	f.data[key] = str
	f.ttls[key] = ttl
	return nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	str, _ := value.(string)
	f.data[key] = str
	f.ttls[key] = ttl
	return true, nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

const acceptPath = "/api/v1/deliveries/artwork_order/7/accept"

func acceptRequest(key, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, acceptPath, strings.NewReader(body))
	req = req.WithContext(WithUser(req.Context(), 3, "delivery_partner"))
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	return req
}

func TestIdempotencyPassesThroughWithoutHeader(t *testing.T) {
	store := newFakeStore()
	calls := 0
	handler := Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), acceptRequest("", `{"delivery_fee":"500"}`))
	handler.ServeHTTP(httptest.NewRecorder(), acceptRequest("", `{"delivery_fee":"500"}`))

	if calls != 2 {
		t.Fatalf("expected handler to run twice got %d", calls)
	}
	if len(store.data) != 0 {
		t.Fatalf("expected nothing stored")
	}
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	store := newFakeStore()
	calls := 0
	handler := Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"data":{"id":7}}`))
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, acceptRequest("abc", `{"delivery_fee":"500"}`))
	if first.Code != http.StatusOK {
		t.Fatalf("expected first response 200 got %d", first.Code)
	}

	replay := httptest.NewRecorder()
	handler.ServeHTTP(replay, acceptRequest("abc", `{"delivery_fee":"500"}`))
	if replay.Code != http.StatusOK {
		t.Fatalf("expected replay status 200 got %d", replay.Code)
	}
	if replay.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("expected content-type header preserved")
	}
	if replay.Header().Get(replayHeader) != "true" {
		t.Fatalf("expected replay marker header")
	}
	if strings.TrimSpace(replay.Body.String()) != `{"data":{"id":7}}` {
		t.Fatalf("expected stored body got %s", replay.Body.String())
	}
	if calls != 1 {
		t.Fatalf("handler executed %d times, expected 1", calls)
	}
	for _, ttl := range store.ttls {
		if ttl != time.Hour {
			t.Fatalf("expected final record ttl 1h got %s", ttl)
		}
	}
}

func TestIdempotencyRejectsDuplicateWhileInFlight(t *testing.T) {
	store := newFakeStore()
	var duplicate *httptest.ResponseRecorder
	var handler http.Handler
	calls := 0
	handler = Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if duplicate == nil {
			duplicate = httptest.NewRecorder()
			handler.ServeHTTP(duplicate, acceptRequest("race", `{"delivery_fee":"500"}`))
		}
		w.WriteHeader(http.StatusOK)
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, acceptRequest("race", `{"delivery_fee":"500"}`))

	if first.Code != http.StatusOK {
		t.Fatalf("expected first request to succeed got %d", first.Code)
	}
	if duplicate.Code != http.StatusConflict {
		t.Fatalf("expected in-flight duplicate to get 409 got %d", duplicate.Code)
	}
	if !strings.Contains(duplicate.Body.String(), string(pkgerrors.CodeConflict)) {
		t.Fatalf("expected conflict code in body: %s", duplicate.Body.String())
	}
	if calls != 1 {
		t.Fatalf("handler executed %d times, expected 1", calls)
	}
}

func TestIdempotencyClaimUsesShortTTL(t *testing.T) {
	store := newFakeStore()
	var claimTTL time.Duration
	handler := Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, ttl := range store.ttls {
			claimTTL = ttl
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), acceptRequest("short", `{}`))
	if claimTTL != inflightTTL {
		t.Fatalf("expected claim ttl %s got %s", inflightTTL, claimTTL)
	}
}

func TestIdempotencyRejectsOversizedKey(t *testing.T) {
	handler := Idempotency(newFakeStore(), time.Hour, nil)(okHandler())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, acceptRequest(strings.Repeat("k", maxIdempotencyKeyLength+1), `{}`))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestIdempotencyDetectsBodyChange(t *testing.T) {
	store := newFakeStore()
	handler := Idempotency(store, time.Hour, nil)(okHandler())

	handler.ServeHTTP(httptest.NewRecorder(), acceptRequest("xyz", `{"delivery_fee":"500"}`))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, acceptRequest("xyz", `{"delivery_fee":"750"}`))
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse error response: %v", err)
	}
	if payload.Error.Code != string(pkgerrors.CodeIdempotency) {
		t.Fatalf("expected error code %s got %s", pkgerrors.CodeIdempotency, payload.Error.Code)
	}
}

func TestIdempotencyDoesNotStoreServerErrors(t *testing.T) {
	store := newFakeStore()
	calls := 0
	handler := Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), acceptRequest("retry-me", `{}`))
	handler.ServeHTTP(httptest.NewRecorder(), acceptRequest("retry-me", `{}`))
	if calls != 2 {
		t.Fatalf("expected retry to reach handler, calls=%d", calls)
	}
	if len(store.data) != 0 {
		t.Fatalf("expected claim released, have %v", store.data)
	}
}

func TestIdempotencyIgnoresReads(t *testing.T) {
	store := newFakeStore()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/deliveries", nil)
	req.Header.Set("Idempotency-Key", "abc")
	Idempotency(store, time.Hour, nil)(okHandler()).ServeHTTP(httptest.NewRecorder(), req)
	if len(store.data) != 0 {
		t.Fatalf("expected GET to bypass idempotency store")
	}
}
