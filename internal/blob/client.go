// Package blob содержит HTTP-клиент сервиса долговременного хранения
// бинарных объектов.
package blob

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

// Client — клиент для взаимодействия с API blob-хранилища.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient создает новый экземпляр Client. Токен — учетные данные записи;
// его наличие проверяется на этапе конфигурации.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second, // Общий таймаут для запросов
		},
	}
}

// Put загружает объект одной операцией и возвращает его публичный адрес.
// При ошибке на стороне хранилища частичное состояние не остается:
// запись одношаговая, повторная загрузка безопасна.
func (c *Client) Put(ctx context.Context, key string, data []byte, opts ports.PutOptions) (*ports.PutResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/"+key, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if opts.ContentType != "" {
		req.Header.Set("Content-Type", opts.ContentType)
	}
	if opts.Access != "" {
		req.Header.Set("X-Blob-Access", opts.Access)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var result ports.PutResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, nil
}
