package uploads

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"

	"instant-chat/internal/domain"
	"instant-chat/internal/ports"
)

// inlineIDPrefix отличает идентификаторы встроенных вложений
// от ключей blob-хранилища.
const inlineIDPrefix = "inline-"

// InlineStrategy — резервная стратегия при отсутствии учетных данных
// blob-хранилища: вложение кодируется в самодостаточный data URI.
type InlineStrategy struct{}

// NewInlineStrategy создает новый экземпляр InlineStrategy.
func NewInlineStrategy() *InlineStrategy {
	return &InlineStrategy{}
}

// Store кодирует вложение в data URI без сетевых вызовов.
func (s *InlineStrategy) Store(_ context.Context, up ports.Upload) (*domain.ImageAttachment, error) {
	contentType := up.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}

	return &domain.ImageAttachment{
		ID:     inlineIDPrefix + uuid.NewString(),
		URL:    fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(up.Data)),
		Width:  up.Width,
		Height: up.Height,
		Name:   up.Name,
		Size:   up.Size,
	}, nil
}
