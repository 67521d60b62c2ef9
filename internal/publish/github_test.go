package publish

import (
	"context"
	"encoding/base64"
	"net/http"
	"testing"

	"github.com/h2non/gock"
)

func newTestClient() *Client {
	httpClient := &http.Client{}
	gock.InterceptClient(httpClient)
	return New("test-token", "someone", "news-site", httpClient)
}

func TestUploadFileUpdatesExisting(t *testing.T) {
	defer gock.Off()

	gock.New("https://api.github.com").
		Get("/repos/someone/news-site/contents/index.html").
		Reply(200).
		JSON(map[string]string{"sha": "abc123"})

	// The update must carry the SHA fetched by the probe.
	gock.New("https://api.github.com").
		Put("/repos/someone/news-site/contents/index.html").
		MatchType("json").
		JSON(map[string]string{
			"message": "update edition",
			"content": base64.StdEncoding.EncodeToString([]byte("<html></html>")),
			"sha":     "abc123",
		}).
		Reply(200).
		JSON(map[string]string{})

	client := newTestClient()
	err := client.UploadFile(context.Background(), "index.html", []byte("<html></html>"), "update edition")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !gock.IsDone() {
		t.Error("expected both probe and put requests")
	}
}

func TestUploadFileCreatesWhenMissing(t *testing.T) {
	defer gock.Off()

	gock.New("https://api.github.com").
		Get("/repos/someone/news-site/contents/CNAME").
		Reply(404)

	gock.New("https://api.github.com").
		Put("/repos/someone/news-site/contents/CNAME").
		MatchType("json").
		JSON(map[string]string{
			"message": "add CNAME",
			"content": base64.StdEncoding.EncodeToString([]byte("example.com\n")),
		}).
		Reply(201).
		JSON(map[string]string{})

	client := newTestClient()
	err := client.UploadFile(context.Background(), "CNAME", []byte("example.com\n"), "add CNAME")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !gock.IsDone() {
		t.Error("expected probe (404) then create PUT")
	}
}

func TestUploadFileReportsAPIError(t *testing.T) {
	defer gock.Off()

	gock.New("https://api.github.com").
		Get("/repos/someone/news-site/contents/index.html").
		Reply(200).
		JSON(map[string]string{"sha": "abc123"})

	gock.New("https://api.github.com").
		Put("/repos/someone/news-site/contents/index.html").
		Reply(422).
		JSON(map[string]string{"message": "Invalid request"})

	client := newTestClient()
	err := client.UploadFile(context.Background(), "index.html", []byte("x"), "update")
	if err == nil {
		t.Fatal("expected error on non-2xx PUT response")
	}
}

func TestUploadFileFailsWhenProbeErrors(t *testing.T) {
	defer gock.Off()

	gock.New("https://api.github.com").
		Get("/repos/someone/news-site/contents/index.html").
		Reply(500)

	client := newTestClient()
	err := client.UploadFile(context.Background(), "index.html", []byte("x"), "update")
	if err == nil {
		t.Fatal("expected error when revision probe fails")
	}
}
