package publish

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"cynews/internal/logger"
)

const defaultBaseURL = "https://api.github.com"

// Client pushes files to the static-site repository through the GitHub
// Contents API: fetch the current blob SHA, then PUT the new content.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	owner      string
	repo       string
}

func New(token, owner, repo string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    defaultBaseURL,
		token:      token,
		owner:      owner,
		repo:       repo,
	}
}

// HTTPClient exposes the underlying client for request interception in tests.
func (c *Client) HTTPClient() *http.Client { return c.httpClient }

type contentResponse struct {
	SHA string `json:"sha"`
}

type putRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	SHA     string `json:"sha,omitempty"`
}

// UploadFile creates or updates path in the target repository. A missing
// file (404 on the probe) means create; anything else reuses the SHA.
func (c *Client) UploadFile(ctx context.Context, path string, content []byte, message string) error {
	sha, err := c.currentSHA(ctx, path)
	if err != nil {
		return err
	}

	body, err := json.Marshal(putRequest{
		Message: message,
		Content: base64.StdEncoding.EncodeToString(content),
		SHA:     sha,
	})
	if err != nil {
		return fmt.Errorf("marshal upload request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.contentsURL(path), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build upload request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upload %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("upload %s: status %d: %s", path, resp.StatusCode, detail)
	}

	logger.Info("file published", "path", path, "status", resp.StatusCode)
	return nil
}

// currentSHA probes for the existing file's revision marker. 404 is not an
// error: it just means this upload is a create.
func (c *Client) currentSHA(ctx context.Context, path string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.contentsURL(path), nil)
	if err != nil {
		return "", fmt.Errorf("build probe request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("probe %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("probe %s: status %d", path, resp.StatusCode)
	}

	var current contentResponse
	if err := json.NewDecoder(resp.Body).Decode(&current); err != nil {
		return "", fmt.Errorf("decode probe response: %w", err)
	}
	return current.SHA, nil
}

func (c *Client) contentsURL(path string) string {
	return fmt.Sprintf("%s/repos/%s/%s/contents/%s", c.baseURL, c.owner, c.repo, path)
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Content-Type", "application/json")
}
