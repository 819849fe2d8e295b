package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// packageListPath is the CKAN action returning every dataset name.
const packageListPath = "/api/3/action/package_list"

// maxErrorBody caps how much of an error response is read for logging.
const maxErrorBody = 4 << 10

// CKANClient talks to the action API of a CKAN instance.
type CKANClient struct {
	address    string
	apiKey     string
	httpClient *http.Client
}

// NewCKANClient creates a client for the CKAN instance at address.
// A nil httpClient means a client with a 30 second timeout.
func NewCKANClient(address, apiKey string, httpClient *http.Client) *CKANClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &CKANClient{
		address:    strings.TrimRight(address, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

// Address returns the base URL of the CKAN instance.
func (c *CKANClient) Address() string {
	return c.address
}

// ForInstance returns a client for another CKAN instance sharing this
// client's HTTP settings. The api key is only kept for the same instance.
func (c *CKANClient) ForInstance(address string) PackageLister {
	clone := *c
	clone.address = strings.TrimRight(address, "/")
	if clone.address != c.address {
		clone.apiKey = ""
	}
	return &clone
}

// actionResponse is the envelope every CKAN action returns.
type actionResponse struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result"`
	Error   *struct {
		Message string `json:"message"`
		Type    string `json:"__type"`
	} `json:"error"`
}

// PackageList returns the names of all datasets on the instance.
func (c *CKANClient) PackageList(ctx context.Context) ([]string, error) {
	var names []string
	if err := c.action(ctx, "package_list", packageListPath, &names); err != nil {
		return nil, err
	}
	return names, nil
}

func (c *CKANClient) action(ctx context.Context, operation, path string, out any) error {
	target := c.address + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", operation, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &UpstreamError{Operation: operation, URL: target, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		return &UpstreamError{Operation: operation, URL: target, StatusCode: resp.StatusCode}
	}

	var envelope actionResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return &UpstreamError{
			Operation:  operation,
			URL:        target,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("invalid response body: %w", err),
		}
	}

	if !envelope.Success {
		msg := "action reported failure"
		if envelope.Error != nil && envelope.Error.Message != "" {
			msg = envelope.Error.Message
		}
		return &UpstreamError{
			Operation:  operation,
			URL:        target,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("ckan: %s", msg),
		}
	}

	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return &UpstreamError{
			Operation:  operation,
			URL:        target,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("invalid result: %w", err),
		}
	}
	return nil
}
