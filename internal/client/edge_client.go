package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/vocalbooth/api/internal/config"
)

// FunctionInvoker is the hosted-function invocation channel every job
// submission and poll goes through.
type FunctionInvoker interface {
	Invoke(ctx context.Context, function string, payload interface{}, result interface{}) error
	InvokeRaw(ctx context.Context, function string, payload interface{}) (json.RawMessage, error)
}

// EdgeClient implements FunctionInvoker against the provider's hosted
// function endpoint. Every call carries a bearer credential.
type EdgeClient struct {
	httpClient *http.Client
	baseURL    string
	bearer     string
}

// NewEdgeClient creates a new hosted-function client
func NewEdgeClient(cfg *config.ProviderConfig) *EdgeClient {
	return &EdgeClient{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		baseURL: cfg.BaseURL,
		bearer:  cfg.ServiceKey,
	}
}

// IsConfigured returns true if the client has valid configuration
func (c *EdgeClient) IsConfigured() bool {
	return c.baseURL != "" && c.bearer != ""
}

// Invoke calls a hosted function and unmarshals the JSON response into result.
func (c *EdgeClient) Invoke(ctx context.Context, function string, payload interface{}, result interface{}) error {
	raw, err := c.InvokeRaw(ctx, function, payload)
	if err != nil {
		return err
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(raw, result); err != nil {
		return fmt.Errorf("failed to unmarshal %s response: %w", function, err)
	}
	return nil
}

// InvokeRaw calls a hosted function and returns the raw JSON response body.
// The caller credential is checked before any request is sent: a missing
// credential is an *AuthError, never a transport failure.
func (c *EdgeClient) InvokeRaw(ctx context.Context, function string, payload interface{}) (json.RawMessage, error) {
	if c.bearer == "" {
		return nil, &AuthError{Reason: "no provider credential configured"}
	}

	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", function, err)
	}

	url := fmt.Sprintf("%s/functions/v1/%s", c.baseURL, function)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.bearer)

	log.Printf("[Provider] → POST %s", url)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("[Provider] ✗ POST %s: request failed: %v", url, err)
		return nil, &TransportError{Op: function, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("[Provider] ✗ POST %s: failed to read response: %v", url, err)
		return nil, &TransportError{Op: function, Err: err}
	}

	log.Printf("[Provider] ← %d POST %s", resp.StatusCode, url)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &RemoteError{
			StatusCode: resp.StatusCode,
			Message:    extractErrorMessage(respBody),
		}
	}

	return respBody, nil
}

// extractErrorMessage pulls the provider's message out of an error body.
// Providers are inconsistent: {"error":{"message":...}}, {"error":"..."} and
// {"message":"..."} all occur. Falls back to the raw body verbatim.
func extractErrorMessage(body []byte) string {
	var nested struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &nested); err == nil && nested.Error.Message != "" {
		return nested.Error.Message
	}

	var flat struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &flat); err == nil {
		if flat.Error != "" {
			return flat.Error
		}
		if flat.Message != "" {
			return flat.Message
		}
	}

	return string(body)
}
