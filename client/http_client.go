package client

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// HTTPClient implements Client over the service's HTTP API
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	maxRetries uint64
}

// Option configures an HTTPClient
type Option func(*HTTPClient)

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) {
		c.httpClient = hc
	}
}

// WithMaxRetries sets how often idempotent reads are retried on transport
// errors and 5xx responses.
func WithMaxRetries(n uint64) Option {
	return func(c *HTTPClient) {
		c.maxRetries = n
	}
}

// New creates a new HTTP client for the service at baseURL
func New(baseURL string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		maxRetries: 3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ Client = (*HTTPClient)(nil)

// Register adds a digital identity
func (c *HTTPClient) Register(ctx context.Context, digitalID string) (*Identity, error) {
	var out Identity
	body := map[string]string{"digital_id": digitalID}
	if err := c.do(ctx, http.MethodPost, "/auth/register", body, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Challenge returns a fresh single-use nonce
func (c *HTTPClient) Challenge(ctx context.Context) (*Challenge, error) {
	var out Challenge
	if err := c.get(ctx, "/auth/challenge", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login submits a signed nonce and returns a session token
func (c *HTTPClient) Login(ctx context.Context, digitalID, nonce, signature string) (*Token, error) {
	var out Token
	body := map[string]string{
		"digital_id": digitalID,
		"nonce":      nonce,
		"signature":  signature,
	}
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout revokes the session token
func (c *HTTPClient) Logout(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, token, nil)
}

// Me resolves the session token to its identity
func (c *HTTPClient) Me(ctx context.Context, token string) (*Identity, error) {
	var out Identity
	if err := c.do(ctx, http.MethodGet, "/api/me", nil, token, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Key returns the key that verifies session tokens
func (c *HTTPClient) Key(ctx context.Context) (ed25519.PublicKey, error) {
	var out struct {
		Alg       string `json:"alg"`
		PublicKey string `json:"public_key"`
	}
	if err := c.get(ctx, "/auth/key", &out); err != nil {
		return nil, err
	}

	raw, err := base64.StdEncoding.DecodeString(out.PublicKey)
	if err != nil || len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("pqauth: malformed %s verification key", out.Alg)
	}
	return ed25519.PublicKey(raw), nil
}

// get performs an idempotent read with exponential backoff.
func (c *HTTPClient) get(ctx context.Context, path string, out any) error {
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries), ctx)

	return backoff.Retry(func() error {
		err := c.do(ctx, http.MethodGet, path, nil, "", out)
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode < http.StatusInternalServerError {
			return backoff.Permanent(err)
		}
		return err
	}, b)
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body any, token string, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("pqauth: failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("pqauth: failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("pqauth: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return &APIError{StatusCode: resp.StatusCode, Message: e.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("pqauth: failed to decode response: %w", err)
	}
	return nil
}
