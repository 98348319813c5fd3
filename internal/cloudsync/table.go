package cloudsync

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"tasktracker/internal/task"
)

var (
	ErrUnauthorized = fmt.Errorf("tasktracker unauthorized")
	ErrNotFound     = fmt.Errorf("tasktracker not found")
)

// TableClient talks to the managed task-table collaborator: rows keyed
// by id and scoped by owner, mutated per record rather than by
// whole-document overwrite. Subscribe consumes the service's change
// feed so a remote edit triggers an immediate fetch instead of waiting
// for the next poll.
type TableClient struct {
	httpClient *http.Client
	baseURL    string
	token      string
	userID     string
}

func NewTableClient(httpClient *http.Client, baseURL, token, userID string) *TableClient {
	return &TableClient{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:      strings.TrimSpace(token),
		userID:     strings.TrimSpace(userID),
	}
}

// Select returns the owner's rows ordered by lastModified descending,
// tombstones included.
func (c *TableClient) Select(ctx context.Context) ([]task.Task, error) {
	var out struct {
		Tasks []task.Task `json:"tasks"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/tasks", nil, &out); err != nil {
		return nil, err
	}
	return out.Tasks, nil
}

// Insert publishes a newly created task as its own row.
func (c *TableClient) Insert(ctx context.Context, t task.Task) error {
	return c.do(ctx, http.MethodPost, "/api/tasks", t, nil)
}

// Update overwrites the row for the task's id.
func (c *TableClient) Update(ctx context.Context, t task.Task) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/api/tasks/%d/update", t.ID), t, nil)
}

// Purge deletes rows already tombstoned, and only those.
func (c *TableClient) Purge(ctx context.Context) (int, error) {
	var out struct {
		Purged int `json:"purged"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/purge", nil, &out); err != nil {
		return 0, err
	}
	return out.Purged, nil
}

// Subscribe streams change notifications for the owner's rows over
// SSE, invoking notify once per event until the context ends or the
// stream drops. Callers treat a returned error as "fall back to
// polling"; the scheduler keeps polling either way.
func (c *TableClient) Subscribe(ctx context.Context, notify func()) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/events", nil)
	if err != nil {
		return err
	}
	c.setHeaders(req)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("event stream status %d", resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 4096), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "data:") {
			notify()
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return io.EOF
}

func (c *TableClient) do(ctx context.Context, method, path string, body any, out any) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return err
	}
	c.setHeaders(req)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		return json.NewDecoder(resp.Body).Decode(out)
	}

	var eb struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&eb)
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	default:
		if strings.TrimSpace(eb.Error) != "" {
			return fmt.Errorf("tasktracker %d: %s", resp.StatusCode, eb.Error)
		}
		return fmt.Errorf("tasktracker status %d", resp.StatusCode)
	}
}

func (c *TableClient) setHeaders(req *http.Request) {
	if c.token != "" {
		token := c.token
		if !strings.HasPrefix(strings.ToLower(token), "bearer ") {
			token = "Bearer " + token
		}
		req.Header.Set("Authorization", token)
	}
	if c.userID != "" {
		req.Header.Set("X-User-ID", c.userID)
	}
}
