package ports

import (
	"context"

	"instant-chat/internal/domain"
)

// Record представляет одну запись коллекции в том виде,
// в котором её отдает хранилище.
type Record = map[string]interface{}

// Query описывает выборку из коллекции: необязательные фильтры
// равенства по полям и ограничение количества записей.
type Query struct {
	Collection string                 `json:"collection"`
	Where      map[string]interface{} `json:"where,omitempty"`
	Limit      int                    `json:"limit,omitempty"`
}

// Upsert описывает одну запись в транзакции. Поля сливаются
// с существующей записью; отсутствующие поля не затрагиваются.
type Upsert struct {
	Collection string                 `json:"collection"`
	ID         string                 `json:"id"`
	Fields     map[string]interface{} `json:"fields"`
}

// Subscription представляет живую подписку на выборку.
type Subscription interface {
	// Snapshots возвращает канал, в который доставляются снимки выборки.
	// Первый снимок доставляется сразу после подписки. Канал закрывается
	// при завершении подписки.
	Snapshots() <-chan []Record
	// Close останавливает доставку снимков. Выполняемые записи не отменяются.
	Close()
}

// RealtimeStore определяет контракт удаленного хранилища реального времени.
// Хранилище является единственным источником истины; локальное состояние —
// производная проекция, пересчитываемая по каждому снимку.
type RealtimeStore interface {
	// QueryOnce выполняет одноразовую выборку.
	QueryOnce(ctx context.Context, q Query) ([]Record, error)
	// Subscribe открывает живую подписку на выборку.
	Subscribe(ctx context.Context, q Query) (Subscription, error)
	// Transact применяет список upsert-ов атомарно: либо все, либо ни одного.
	// Результат виден всем подписчикам, включая инициатора, со следующим снимком.
	Transact(ctx context.Context, ops []Upsert) error
}

// PutOptions задает параметры сохранения объекта в blob-хранилище.
type PutOptions struct {
	Access      string
	ContentType string
}

// PutResult описывает сохраненный объект.
type PutResult struct {
	URL      string `json:"url"`
	Pathname string `json:"pathname"`
}

// BlobStore определяет контракт сервиса долговременного хранения
// бинарных объектов. Используется только при наличии учетных данных записи.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, opts PutOptions) (*PutResult, error)
}

// Upload описывает один загружаемый файл изображения.
// Width и Height заполняются вызывающей стороной по возможности.
type Upload struct {
	Name        string
	ContentType string
	Size        int64
	Data        []byte
	Width       int
	Height      int
}

// UploadStrategy определяет стратегию сохранения вложения.
// Стратегия выбирается один раз при старте из конфигурации.
type UploadStrategy interface {
	Store(ctx context.Context, up Upload) (*domain.ImageAttachment, error)
}

// Identity представляет аутентифицированную учетную запись,
// выданную провайдером идентификации. ID стабилен и неизменяем.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

// IdentityProvider определяет контракт провайдера идентификации
// (вход по одноразовому коду, отправляемому на почту).
type IdentityProvider interface {
	SendMagicCode(ctx context.Context, email string) error
	VerifyMagicCode(ctx context.Context, email, code string) (*Identity, error)
}
