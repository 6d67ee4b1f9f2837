package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client talks to a Server. It satisfies store.Store so commands can use a
// remote macroweb process in place of a local database.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the server at baseURL
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 2 * time.Minute},
	}
}

// Save stores a macro under name
func (c *Client) Save(ctx context.Context, name, serialized string) error {
	return c.send(ctx, Message{Type: TypeSaveMacro, Name: strPtr(name), Macro: strPtr(serialized)}, nil)
}

// LoadAll returns every saved macro
func (c *Client) LoadAll(ctx context.Context) (map[string]string, error) {
	var resp macrosResponse
	if err := c.send(ctx, Message{Type: TypeLoadMacros}, &resp); err != nil {
		return nil, err
	}
	if resp.Macros == nil {
		resp.Macros = map[string]string{}
	}
	return resp.Macros, nil
}

// Delete removes a saved macro
func (c *Client) Delete(ctx context.Context, name string) error {
	return c.send(ctx, Message{Type: TypeDeleteMacro, Name: strPtr(name)}, nil)
}

// Close is a no-op; it exists to satisfy store.Store
func (c *Client) Close() error {
	return nil
}

// RelayKey forwards a key press to the server's page without waiting for it
// to be delivered.
func (c *Client) RelayKey(ctx context.Context, key string) error {
	return c.send(ctx, Message{Type: TypeRelayKey, Key: strPtr(key)}, nil)
}

// Run executes a serialized macro on the server's page
func (c *Client) Run(ctx context.Context, source []byte) (*RunReport, error) {
	var report RunReport
	if err := c.do(ctx, http.MethodPost, "/runs", source, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

func (c *Client) send(ctx context.Context, msg Message, out any) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, "/messages", body, out)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		var e errorResponse
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			return errors.New(e.Error)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
