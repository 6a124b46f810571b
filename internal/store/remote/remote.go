// Package remote реализует ports.RealtimeStore поверх HTTP-API сервера:
// запросы и транзакции идут обычными POST-запросами, подписки — по
// вебсокету.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"instant-chat/internal/ports"
)

// Store — клиент удаленного хранилища.
type Store struct {
	baseURL    string
	httpClient *http.Client
	dialer     *websocket.Dialer
}

// New создает новый экземпляр Store.
func New(baseURL string) *Store {
	return &Store{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		dialer: websocket.DefaultDialer,
	}
}

// QueryOnce выполняет одноразовый запрос к коллекции.
func (s *Store) QueryOnce(ctx context.Context, query ports.Query) ([]ports.Record, error) {
	resp, err := s.postJSON(ctx, "/api/store/query", query)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var body struct {
		Records []ports.Record `json:"records"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return body.Records, nil
}

// Transact отправляет пакет обновлений. Сервер применяет его атомарно:
// либо весь пакет, либо ничего.
func (s *Store) Transact(ctx context.Context, upserts []ports.Upsert) error {
	resp, err := s.postJSON(ctx, "/api/store/transact", map[string]interface{}{"upserts": upserts})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var body struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error != "" {
			return fmt.Errorf("transaction rejected: %s", body.Error)
		}
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return nil
}

// Subscribe открывает вебсокет-подписку: первым кадром уходит запрос,
// дальше сервер присылает снимки коллекции.
func (s *Store) Subscribe(ctx context.Context, query ports.Query) (ports.Subscription, error) {
	conn, resp, err := s.dialer.DialContext(ctx, s.subscribeURL(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial store: %w", err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	if err := conn.WriteJSON(query); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to send subscription query: %w", err)
	}

	sub := &subscription{
		conn: conn,
		out:  make(chan []ports.Record),
		done: make(chan struct{}),
	}
	go sub.run(ctx)
	return sub, nil
}

func (s *Store) subscribeURL() string {
	url := s.baseURL + "/api/store/subscribe"
	switch {
	case strings.HasPrefix(url, "https://"):
		return "wss://" + strings.TrimPrefix(url, "https://")
	case strings.HasPrefix(url, "http://"):
		return "ws://" + strings.TrimPrefix(url, "http://")
	}
	return url
}

func (s *Store) postJSON(ctx context.Context, path string, body interface{}) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return resp, nil
}

// subscription читает кадры снимков из вебсокета.
type subscription struct {
	conn *websocket.Conn
	out  chan []ports.Record
	done chan struct{}
	once sync.Once
}

// Snapshots возвращает канал снимков коллекции. Канал закрывается
// при разрыве соединения или закрытии подписки.
func (s *subscription) Snapshots() <-chan []ports.Record {
	return s.out
}

// Close закрывает подписку и соединение.
func (s *subscription) Close() {
	s.once.Do(func() {
		close(s.done)
		s.conn.Close()
	})
}

func (s *subscription) run(ctx context.Context) {
	defer close(s.out)
	defer s.Close()

	// Отмена контекста рвет соединение и тем самым будит ReadJSON.
	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-s.done:
		}
	}()

	for {
		var frame struct {
			Records []ports.Record `json:"records"`
			Error   string         `json:"error"`
		}
		if err := s.conn.ReadJSON(&frame); err != nil {
			return
		}
		if frame.Error != "" {
			return
		}

		select {
		case s.out <- frame.Records:
		case <-s.done:
			return
		case <-ctx.Done():
			return
		}
	}
}
