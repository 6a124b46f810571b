// Package uploads реализует загрузку вложений-изображений: ограничение
// размера, выбор стратегии хранения и определение размеров изображения.
package uploads

import (
	"context"
	"fmt"
	"log/slog"

	"instant-chat/internal/domain"
	"instant-chat/internal/ports"
)

// MaxFileSizeBytes — ограничение размера вложения по умолчанию (5 MiB).
const MaxFileSizeBytes = 5 << 20

// Uploader принимает изображение, проверяет ограничение размера и передает
// файл стратегии хранения. Стратегия фиксируется при создании: наличие
// учетных данных blob-хранилища в конфигурации выбирает долговременную
// стратегию, иначе используется встроенная.
type Uploader struct {
	strategy ports.UploadStrategy
	maxBytes int64
	logger   *slog.Logger
}

// NewUploader создает новый экземпляр Uploader.
func NewUploader(strategy ports.UploadStrategy, maxBytes int64, logger *slog.Logger) *Uploader {
	if maxBytes <= 0 {
		maxBytes = MaxFileSizeBytes
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Uploader{
		strategy: strategy,
		maxBytes: maxBytes,
		logger:   logger,
	}
}

// Upload сохраняет изображение и возвращает нормализованный дескриптор
// вложения. Превышение ограничения размера отклоняется до обращения
// к стратегии.
func (u *Uploader) Upload(ctx context.Context, up ports.Upload) (*domain.ImageAttachment, error) {
	if len(up.Data) == 0 {
		return nil, ErrMissingFile
	}
	if up.Size == 0 {
		up.Size = int64(len(up.Data))
	}
	if up.Size > u.maxBytes {
		return nil, ErrFileTooLarge
	}

	att, err := u.strategy.Store(ctx, up)
	if err != nil {
		u.logger.Error("upload failed", "name", up.Name, "size", up.Size, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	u.logger.Info("attachment stored", "id", att.ID, "name", att.Name, "size", att.Size)
	return att, nil
}
