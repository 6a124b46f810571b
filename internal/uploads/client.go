package uploads

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"instant-chat/internal/domain"
)

// Client — клиент конечной точки загрузки изображений.
// Перед отправкой он пытается определить размеры изображения;
// неудача декодирования не препятствует загрузке.
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

// UploadImage отправляет изображение на конечную точку загрузки
// и возвращает нормализованный дескриптор вложения.
func (c *Client) UploadImage(ctx context.Context, name string, data []byte) (*domain.ImageAttachment, error) {
	var b bytes.Buffer
	w := multipart.NewWriter(&b)

	fw, err := w.CreateFormFile("file", name)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := fw.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write file content: %w", err)
	}

	if width, height, ok := ProbeDimensions(data); ok {
		if err := w.WriteField("width", strconv.Itoa(width)); err != nil {
			return nil, fmt.Errorf("failed to write width field: %w", err)
		}
		if err := w.WriteField("height", strconv.Itoa(height)); err != nil {
			return nil, fmt.Errorf("failed to write height field: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/uploads", &b)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error != "" {
			return nil, fmt.Errorf("upload rejected: %s", errResp.Error)
		}
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var att domain.ImageAttachment
	if err := json.NewDecoder(resp.Body).Decode(&att); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &att, nil
}
