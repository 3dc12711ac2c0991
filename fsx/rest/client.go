package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Client provides REST access to the fsx gateway.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a REST client. baseURL should include the API prefix,
// e.g. "http://localhost:8000/api".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetHTTPClient allows setting a custom HTTP client.
func (c *Client) SetHTTPClient(client *http.Client) {
	if client != nil {
		c.httpClient = client
	}
}

// Online fetches the current presence set.
func (c *Client) Online(ctx context.Context) (*OnlineResponse, error) {
	var resp OnlineResponse
	if err := c.get(ctx, "/online", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Register creates a new account.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AckResponse, error) {
	var resp AckResponse
	if err := c.post(ctx, "/register", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Login authenticates and returns a session token on success.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	var resp LoginResponse
	if err := c.post(ctx, "/login", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ForgotPassword asks the gateway to send a reset link. Any 2xx reply
// counts as accepted regardless of whether the account exists.
func (c *Client) ForgotPassword(ctx context.Context, req ForgotPasswordRequest) (*MessageResponse, error) {
	var resp MessageResponse
	if err := c.post(ctx, "/forgot-password", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ResetPassword redeems a reset token for a new password.
func (c *Client) ResetPassword(ctx context.Context, req ResetPasswordRequest) (*AckResponse, error) {
	var resp AckResponse
	if err := c.post(ctx, "/reset-password", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout tells the gateway to drop the user's core connection. The reply
// body is ignored; callers treat this as best effort.
func (c *Client) Logout(ctx context.Context, req LogoutRequest) error {
	return c.post(ctx, "/logout", req, nil)
}

// Helper methods

func (c *Client) post(ctx context.Context, path string, body, dest any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, dest)
}

func (c *Client) get(ctx context.Context, path string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.do(req, dest)
}

func (c *Client) do(req *http.Request, dest any) error {
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusBadGateway || resp.StatusCode == http.StatusServiceUnavailable {
		var detail struct {
			Detail string `json:"detail"`
		}
		_ = json.Unmarshal(body, &detail)
		if detail.Detail == "" {
			detail.Detail = "Core server unavailable"
		}
		return &UnavailableError{Status: resp.StatusCode, Detail: detail.Detail}
	}

	if resp.StatusCode >= 400 {
		var ack AckResponse
		_ = json.Unmarshal(body, &ack)
		return &APIError{Status: resp.StatusCode, Msg: ack.Msg}
	}

	if dest != nil {
		if err := json.Unmarshal(body, dest); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}
