// Package cli implements the interactive client for the code manager
// service.
package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"codemanager/internal/controller"
	"codemanager/internal/manager"
)

// Client is a thin HTTP client for the code manager API.
type Client struct {
	base string
	http *http.Client
}

// NewClient creates a client for the service at base, e.g.
// "http://localhost:8090".
func NewClient(base string) *Client {
	return &Client{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: 5 * time.Minute},
	}
}

// Health fetches the liveness banner.
func (c *Client) Health() (string, error) {
	resp, err := c.http.Get(c.base + "/health")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("health: %s", resp.Status)
	}
	return string(body), nil
}

// Metrics fetches queue occupancy.
func (c *Client) Metrics() (manager.Snapshot, error) {
	var snap manager.Snapshot
	resp, err := c.http.Get(c.base + "/metrics")
	if err != nil {
		return snap, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return snap, fmt.Errorf("metrics: %s", resp.Status)
	}
	err = json.NewDecoder(resp.Body).Decode(&snap)
	return snap, err
}

// SetMaxConcurrent changes the service's admission cap.
func (c *Client) SetMaxConcurrent(n int) error {
	return c.post("/max_concurrent", controller.CapacityRequest{MaxConcurrent: n}, nil)
}

// Run submits one execution and decodes the result.
func (c *Client) Run(req controller.RunRequest) (controller.RunResponse, error) {
	var out controller.RunResponse
	err := c.post("/run", req, &out)
	return out, err
}

func (c *Client) post(path string, in, out interface{}) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}
	resp, err := c.http.Post(c.base+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error  string `json:"error"`
			Detail string `json:"detail"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s: %s", apiErr.Error, apiErr.Detail)
		}
		return fmt.Errorf("%s %s: %s", http.MethodPost, path, resp.Status)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}
