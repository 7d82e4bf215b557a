package timerd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/workclock/workclock/internal/model"
	"github.com/workclock/workclock/internal/timer"
)

// Client talks to a running daemon over its loopback endpoint. It speaks
// the same protocol as an in-process authority, so observers and the
// settings service use either interchangeably.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient returns a client for the daemon listening on addr (host:port).
func NewClient(addr string) *Client {
	return &Client{
		baseURL:    "http://" + addr,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// Start asks the daemon to start or resume the timer.
func (c *Client) Start(ctx context.Context, req timer.StartRequest) error {
	return c.post(ctx, "/api/timer/start", req, nil)
}

// Pause asks the daemon to freeze the running timer.
func (c *Client) Pause(ctx context.Context) error {
	return c.post(ctx, "/api/timer/pause", nil, nil)
}

// Clear asks the daemon to reset the timer and drop its snapshot.
func (c *Client) Clear(ctx context.Context) error {
	return c.post(ctx, "/api/timer/clear", nil, nil)
}

// Status fetches the daemon's current timer snapshot.
func (c *Client) Status(ctx context.Context) (timer.StatusReply, error) {
	var reply timer.StatusReply
	err := c.do(ctx, http.MethodGet, "/api/timer/status", nil, &reply)
	return reply, err
}

// SettingsUpdated tells the daemon to reload and rebroadcast settings.
func (c *Client) SettingsUpdated(ctx context.Context, s model.Settings) error {
	return c.post(ctx, "/api/settings/updated", s, nil)
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	return c.do(ctx, http.MethodPost, path, in, out)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var payload io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		payload = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("timer daemon unreachable: %w: %v", timer.ErrUnavailable, err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := errorMessage(body)
		if resp.StatusCode == http.StatusServiceUnavailable {
			return fmt.Errorf("%w: %s", timer.ErrUnavailable, msg)
		}
		return fmt.Errorf("timer daemon error %d: %s", resp.StatusCode, msg)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// errorMessage pulls the error field out of a failure response, falling
// back to the raw body.
func errorMessage(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err == nil && e.Error != "" {
		return e.Error
	}
	return string(body)
}
