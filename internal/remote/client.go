// Package remote is a thin wrapper over the task store's REST contract.
// It issues the four CRUD operations and normalizes every transport-level
// fault and non-2xx response into a *RemoteError. Retry policy does not
// live here; a failed call is reported once and the caller decides.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ldi/tend/pkg/models"
)

// RemoteError is the single error shape for any failed store interaction.
// StatusCode is 0 for transport faults (network unreachable, timeout).
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("remote store unreachable: %s", e.Message)
	}
	return fmt.Sprintf("remote store returned %d: %s", e.StatusCode, e.Message)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the store at baseURL. No timeout is
// imposed here; pass a custom *http.Client to control the transport.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// List fetches the full task collection.
func (c *Client) List(ctx context.Context) ([]models.Task, error) {
	var tasks []models.Task
	if err := c.do(ctx, http.MethodGet, "/todos", nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// Create asks the store to create a task. The store assigns the ID and the
// creation timestamp.
func (c *Client) Create(ctx context.Context, title, description string) (*models.Task, error) {
	body := map[string]string{"title": title, "description": description}
	created := &models.Task{}
	if err := c.do(ctx, http.MethodPost, "/todos", body, created); err != nil {
		return nil, err
	}
	return created, nil
}

// Replace overwrites the task's mutable fields.
func (c *Client) Replace(ctx context.Context, id string, fields models.TaskFields) (*models.Task, error) {
	replaced := &models.Task{}
	if err := c.do(ctx, http.MethodPut, "/todos/"+id, fields, replaced); err != nil {
		return nil, err
	}
	return replaced, nil
}

// Remove deletes the task from the store.
func (c *Client) Remove(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/todos/"+id, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &RemoteError{StatusCode: 0, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &RemoteError{StatusCode: resp.StatusCode, Message: errorMessage(resp)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &RemoteError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("malformed response body: %v", err)}
		}
	}
	return nil
}

// errorMessage prefers the response body text, falling back to the status
// text when the body is empty or unreadable.
func errorMessage(resp *http.Response) string {
	data, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err == nil {
		if msg := strings.TrimSpace(string(data)); msg != "" {
			return msg
		}
	}
	return http.StatusText(resp.StatusCode)
}
