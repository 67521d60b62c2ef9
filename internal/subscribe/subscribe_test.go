package subscribe

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestUpsertIsIdempotentOnEmail(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "subscribers.json"))

	first := Subscriber{
		Email:      "Reader@Example.com",
		Name:       "Reader",
		Languages:  []string{"en"},
		Subscribed: true,
		Date:       time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := store.Upsert(first); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	updated := first
	updated.Email = "reader@example.com"
	updated.Languages = []string{"en", "ru"}
	if err := store.Upsert(updated); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	if store.Len() != 1 {
		t.Fatalf("expected a single record, got %d", store.Len())
	}
	active := store.Active()
	if diff := cmp.Diff([]string{"en", "ru"}, active[0].Languages); diff != "" {
		t.Errorf("languages mismatch (-want +got):\n%s", diff)
	}
}

func TestUpsertRejectsEmptyEmail(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "subscribers.json"))
	if err := store.Upsert(Subscriber{Email: "   "}); err == nil {
		t.Fatal("expected error for empty email")
	}
}

func TestLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subscribers.json")

	store := NewStore(path)
	if err := store.Upsert(Subscriber{Email: "a@example.com", Subscribed: true}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := store.Upsert(Subscriber{Email: "b@example.com", Subscribed: false}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	reloaded := NewStore(path)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	if reloaded.Len() != 2 {
		t.Fatalf("expected 2 records after reload, got %d", reloaded.Len())
	}
	active := reloaded.Active()
	if len(active) != 1 || active[0].Email != "a@example.com" {
		t.Errorf("active = %+v", active)
	}
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "nope.json"))
	if err := store.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("expected empty store, got %d", store.Len())
	}
}

func TestUnsubscribeKeepsRecord(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "subscribers.json"))
	if err := store.Upsert(Subscriber{Email: "a@example.com", Subscribed: true}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := store.Unsubscribe("A@example.com"); err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}
	if store.Len() != 1 {
		t.Errorf("record should remain on file")
	}
	if len(store.Active()) != 0 {
		t.Errorf("unsubscribed record still active")
	}
}

func TestHandlerSubscribesFormPost(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "subscribers.json"))
	handler := Handler(store)

	form := url.Values{
		"email":     {"Reader@Example.com"},
		"name":      {"Reader"},
		"languages": {"en, he"},
	}
	req := httptest.NewRequest(http.MethodPost, "/subscribe", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"reader@example.com"`) {
		t.Errorf("response body = %s", rec.Body.String())
	}

	active := store.Active()
	if len(active) != 1 {
		t.Fatalf("expected one active subscriber, got %d", len(active))
	}
	if diff := cmp.Diff([]string{"en", "he"}, active[0].Languages); diff != "" {
		t.Errorf("languages mismatch (-want +got):\n%s", diff)
	}
}

func TestHandlerRejectsGetAndMissingEmail(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "subscribers.json"))
	handler := Handler(store)

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/subscribe", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/subscribe", strings.NewReader("name=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	handler(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing email status = %d", rec.Code)
	}
}
