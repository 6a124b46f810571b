// Package identity содержит клиент провайдера идентификации и встроенный
// выпускатель одноразовых кодов для локальной разработки.
package identity

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"instant-chat/internal/ports"
)

// issuedCode — выданный код с ограниченным сроком действия.
type issuedCode struct {
	code      string
	expiresAt time.Time
}

// DevIssuer — встроенный провайдер идентификации: выдает шестизначный
// одноразовый код на адрес почты и разрешает его в стабильную учетную
// запись. Идентификатор учетной записи закрепляется за адресом при первом
// входе и далее не меняется.
type DevIssuer struct {
	mu     sync.Mutex
	codes  map[string]issuedCode
	ids    map[string]string
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// NewDevIssuer создает новый экземпляр DevIssuer.
func NewDevIssuer(ttl time.Duration, logger *slog.Logger) *DevIssuer {
	if logger == nil {
		logger = slog.Default()
	}
	return &DevIssuer{
		codes:  make(map[string]issuedCode),
		ids:    make(map[string]string),
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// SendMagicCode выдает новый код для адреса почты. Код пишется в лог:
// почтовой доставки у встроенного провайдера нет.
func (i *DevIssuer) SendMagicCode(_ context.Context, email string) error {
	email = normalizeEmail(email)
	if !strings.Contains(email, "@") {
		return ErrInvalidEmail
	}

	code, err := generateCode()
	if err != nil {
		return fmt.Errorf("failed to generate code: %w", err)
	}

	i.mu.Lock()
	i.codes[email] = issuedCode{code: code, expiresAt: i.now().Add(i.ttl)}
	i.mu.Unlock()

	i.logger.Info("magic code issued", "email", email, "code", code)
	return nil
}

// VerifyMagicCode проверяет код и возвращает учетную запись.
// Код одноразовый: успешная проверка удаляет его.
func (i *DevIssuer) VerifyMagicCode(_ context.Context, email, code string) (*ports.Identity, error) {
	email = normalizeEmail(email)
	code = strings.TrimSpace(code)

	i.mu.Lock()
	defer i.mu.Unlock()

	issued, exists := i.codes[email]
	if !exists || issued.code != code || i.now().After(issued.expiresAt) {
		return nil, ErrInvalidCode
	}
	delete(i.codes, email)

	id, exists := i.ids[email]
	if !exists {
		id = uuid.NewString()
		i.ids[email] = id
	}

	return &ports.Identity{ID: id, Email: email}, nil
}

// PeekCode возвращает действующий код для адреса. Используется
// в тестах и средствах разработки.
func (i *DevIssuer) PeekCode(email string) (string, bool) {
	email = normalizeEmail(email)
	i.mu.Lock()
	defer i.mu.Unlock()

	issued, exists := i.codes[email]
	if !exists || i.now().After(issued.expiresAt) {
		return "", false
	}
	return issued.code, true
}

// CleanupExpired удаляет просроченные коды.
func (i *DevIssuer) CleanupExpired() {
	i.mu.Lock()
	defer i.mu.Unlock()

	now := i.now()
	for email, issued := range i.codes {
		if now.After(issued.expiresAt) {
			delete(i.codes, email)
		}
	}
}

// StartCleanupTicker запускает тикер для периодической очистки просроченных кодов.
func (i *DevIssuer) StartCleanupTicker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				i.CleanupExpired()
			}
		}
	}()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
