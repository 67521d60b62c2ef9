package mailer

import (
	"net/smtp"
	"strings"
	"testing"
	"time"

	"cynews/internal/news"
)

func TestSendDigestComposesMultipartMessage(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte

	m := New("smtp.example.com", "587", "bot@example.com", "secret")
	m.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	items := []news.Item{
		{Title: "Parliament approves state budget", Link: "https://example.com/budget", Summary: "Narrow majority."},
		{Title: "Heatwave warning issued", Link: "https://example.com/heat"},
	}
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	if err := m.SendDigest("reader@example.com", "cyprusnews.example.com", items, now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotAddr != "smtp.example.com:587" {
		t.Errorf("addr = %q", gotAddr)
	}
	if gotFrom != "bot@example.com" {
		t.Errorf("from = %q", gotFrom)
	}
	if len(gotTo) != 1 || gotTo[0] != "reader@example.com" {
		t.Errorf("to = %v", gotTo)
	}

	msg := string(gotMsg)
	for _, want := range []string{
		"Subject: Cyprus News Digest — 1 June 2025 (2 new)",
		"multipart/alternative",
		"text/plain",
		"text/html",
		"Parliament approves state budget",
		"https://example.com/budget",
		"https://cyprusnews.example.com",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q", want)
		}
	}
}
