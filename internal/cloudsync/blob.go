package cloudsync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// BlobClient talks to the JSON-document collaborator: whole-collection
// uploads to a fixed filename and plain GETs of the last-written
// document with a cache-busting query parameter.
type BlobClient struct {
	httpClient *http.Client
	baseURL    string
	token      string
	userID     string
	filename   string

	mu      sync.Mutex
	lastURL string
}

type uploadRequest struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

type uploadResponse struct {
	URL   string `json:"url"`
	Error string `json:"error"`
}

func NewBlobClient(httpClient *http.Client, baseURL, token, userID, filename string) *BlobClient {
	return &BlobClient{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:      strings.TrimSpace(token),
		userID:     strings.TrimSpace(userID),
		filename:   filename,
	}
}

// Upload overwrites the named document with the serialized snapshot.
func (c *BlobClient) Upload(ctx context.Context, content []byte) error {
	body, err := json.Marshal(uploadRequest{Filename: c.filename, Content: string(content)})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/blob", bytes.NewReader(body))
	if err != nil {
		return err
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var out uploadResponse
	_ = json.NewDecoder(resp.Body).Decode(&out)
	if resp.StatusCode != http.StatusOK {
		if strings.TrimSpace(out.Error) != "" {
			return fmt.Errorf("blob upload %d: %s", resp.StatusCode, out.Error)
		}
		return fmt.Errorf("blob upload status %d", resp.StatusCode)
	}
	if out.URL != "" {
		url := out.URL
		if strings.HasPrefix(url, "/") {
			url = c.baseURL + url
		}
		c.mu.Lock()
		c.lastURL = url
		c.mu.Unlock()
	}
	return nil
}

// Fetch reads the current document. The t query parameter defeats any
// intermediate cache between the device and the store.
func (c *BlobClient) Fetch(ctx context.Context) ([]byte, error) {
	c.mu.Lock()
	url := c.lastURL
	c.mu.Unlock()
	if url == "" {
		url = c.baseURL + "/api/blob/" + c.filename
	}
	sep := "?"
	if strings.Contains(url, "?") {
		sep = "&"
	}
	url += sep + "t=" + strconv.FormatInt(time.Now().UnixMilli(), 10)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		// Nothing published yet; an empty document, not a failure.
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("blob fetch status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (c *BlobClient) setHeaders(req *http.Request) {
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
