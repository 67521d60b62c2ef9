// Package subscribe keeps the email digest subscriber list.
package subscribe

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"cynews/internal/logger"
)

// Subscriber is one digest recipient. Email is the identity: saving a
// subscriber with an existing email updates that record in place.
type Subscriber struct {
	Email      string    `json:"email"`
	Name       string    `json:"name,omitempty"`
	Languages  []string  `json:"languages,omitempty"`
	Countries  []string  `json:"countries,omitempty"`
	Subscribed bool      `json:"subscribed"`
	Date       time.Time `json:"date"`
}

// Store persists subscribers as a JSON array on disk.
type Store struct {
	mu   sync.Mutex
	path string
	subs []Subscriber
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.subs = nil
			return nil
		}
		return fmt.Errorf("read subscribers file: %w", err)
	}
	if len(data) == 0 {
		s.subs = nil
		return nil
	}
	if err := json.Unmarshal(data, &s.subs); err != nil {
		return fmt.Errorf("parse subscribers file: %w", err)
	}
	logger.Debug("Loaded subscribers", "count", len(s.subs))
	return nil
}

// Upsert adds the subscriber or replaces the existing record with the
// same email. The comparison is case-insensitive.
func (s *Store) Upsert(sub Subscriber) error {
	email := normalizeEmail(sub.Email)
	if email == "" {
		return fmt.Errorf("subscriber email is required")
	}
	sub.Email = email
	if sub.Date.IsZero() {
		sub.Date = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.subs {
		if existing.Email == email {
			s.subs[i] = sub
			return s.save()
		}
	}
	s.subs = append(s.subs, sub)
	return s.save()
}

// Unsubscribe marks the record inactive but keeps it on file.
func (s *Store) Unsubscribe(email string) error {
	email = normalizeEmail(email)

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.subs {
		if s.subs[i].Email == email {
			s.subs[i].Subscribed = false
			return s.save()
		}
	}
	return fmt.Errorf("subscriber not found: %s", email)
}

// Active returns subscribers that currently receive the digest.
func (s *Store) Active() []Subscriber {
	s.mu.Lock()
	defer s.mu.Unlock()

	var active []Subscriber
	for _, sub := range s.subs {
		if sub.Subscribed {
			active = append(active, sub)
		}
	}
	return active
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

func (s *Store) save() error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create subscribers dir: %w", err)
		}
	}
	data, err := json.MarshalIndent(s.subs, "", "  ")
	if err != nil {
		return fmt.Errorf("encode subscribers: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write subscribers file: %w", err)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Handler accepts subscription form posts when the bot runs as a
// long-lived service.
func Handler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid form", http.StatusBadRequest)
			return
		}

		email := r.FormValue("email")
		if normalizeEmail(email) == "" {
			http.Error(w, "email is required", http.StatusBadRequest)
			return
		}

		sub := Subscriber{
			Email:      email,
			Name:       strings.TrimSpace(r.FormValue("name")),
			Subscribed: true,
			Date:       time.Now().UTC(),
		}
		if langs := r.FormValue("languages"); langs != "" {
			sub.Languages = splitList(langs)
		}
		if countries := r.FormValue("countries"); countries != "" {
			sub.Countries = splitList(countries)
		}

		if err := store.Upsert(sub); err != nil {
			logger.Error("Failed to save subscriber", "error", err)
			http.Error(w, "could not save subscription", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"subscribed","email":%q}`, normalizeEmail(email))
	}
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
