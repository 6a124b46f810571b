package uploads

import (
	"context"
	"fmt"
	"regexp"

	"github.com/google/uuid"

	"instant-chat/internal/domain"
	"instant-chat/internal/ports"
)

const (
	blobKeyPrefix      = "chat-images"
	defaultContentType = "application/octet-stream"
)

var whitespace = regexp.MustCompile(`\s+`)

// BlobStrategy — долговременная стратегия: вложение сохраняется
// в blob-хранилище с публичным доступом на чтение, идентификатором
// вложения становится ключ объекта.
type BlobStrategy struct {
	store ports.BlobStore
}

// NewBlobStrategy создает новый экземпляр BlobStrategy.
func NewBlobStrategy(store ports.BlobStore) *BlobStrategy {
	return &BlobStrategy{store: store}
}

// Store сохраняет вложение в blob-хранилище.
func (s *BlobStrategy) Store(ctx context.Context, up ports.Upload) (*domain.ImageAttachment, error) {
	key := whitespace.ReplaceAllString(fmt.Sprintf("%s/%s-%s", blobKeyPrefix, uuid.NewString(), up.Name), "-")
	contentType := up.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}

	result, err := s.store.Put(ctx, key, up.Data, ports.PutOptions{
		Access:      "public",
		ContentType: contentType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to put blob: %w", err)
	}

	return &domain.ImageAttachment{
		ID:     result.Pathname,
		URL:    result.URL,
		Width:  up.Width,
		Height: up.Height,
		Name:   up.Name,
		Size:   up.Size,
	}, nil
}
