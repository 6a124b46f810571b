package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"instant-chat/internal/ports"
)

// Client — клиент HTTP-API провайдера идентификации.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создает новый экземпляр Client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SendMagicCode запрашивает отправку одноразового кода на адрес почты.
func (c *Client) SendMagicCode(ctx context.Context, email string) error {
	resp, err := c.postJSON(ctx, "/api/auth/magic-code", map[string]string{"email": email})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusBadRequest:
		return ErrInvalidEmail
	default:
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
}

// VerifyMagicCode обменивает код на аутентифицированную учетную запись.
func (c *Client) VerifyMagicCode(ctx context.Context, email, code string) (*ports.Identity, error) {
	resp, err := c.postJSON(ctx, "/api/auth/verify", map[string]string{"email": email, "code": code})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return nil, ErrInvalidCode
	default:
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var ident ports.Identity
	if err := json.NewDecoder(resp.Body).Decode(&ident); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &ident, nil
}

func (c *Client) postJSON(ctx context.Context, path string, body interface{}) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return resp, nil
}
