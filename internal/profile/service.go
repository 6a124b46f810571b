package profile

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"instant-chat/internal/domain"
	"instant-chat/internal/ports"
)

const usersCollection = "users"

// Service разрешает аутентифицированную учетную запись в профиль пользователя,
// создает профиль при первом входе и редактирует существующий.
//
// Проверка уникальности имени пользователя выполняется как чтение-затем-запись
// и не защищена от гонки между конкурентными сессиями; без серверного
// уникального ограничения она остается UX-оптимизацией (см. DESIGN.md).
type Service struct {
	store  ports.RealtimeStore
	logger *slog.Logger
	now    func() time.Time
}

// NewService создает новый экземпляр Service.
func NewService(store ports.RealtimeStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Resolve ищет профиль для учетной записи. Возвращает ErrProfileNotFound,
// когда профиль еще не создан: в этом случае вызывающая сторона собирает
// отображаемое имя и имя пользователя и вызывает Create.
func (s *Service) Resolve(ctx context.Context, ident ports.Identity) (*domain.UserProfile, error) {
	recs, err := s.store.QueryOnce(ctx, ports.Query{
		Collection: usersCollection,
		Where:      map[string]interface{}{"id": ident.ID},
		Limit:      1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query profile: %w", err)
	}
	if len(recs) == 0 {
		return nil, ErrProfileNotFound
	}

	var p domain.UserProfile
	if err := domain.DecodeRecord(recs[0], &p); err != nil {
		return nil, fmt.Errorf("failed to decode profile: %w", err)
	}
	return &p, nil
}

// Create создает профиль для учетной записи. Ровно один профиль на учетную
// запись; метка accent вычисляется из почты (или ID, если почты нет)
// один раз и далее не пересчитывается.
func (s *Service) Create(ctx context.Context, ident ports.Identity, displayName, username string) (*domain.UserProfile, error) {
	name := strings.TrimSpace(displayName)
	if name == "" {
		return nil, ErrInvalidDisplayName
	}
	slug := SlugifyUsername(username)
	if slug == "" {
		return nil, ErrInvalidUsername
	}

	taken, err := s.usernameTaken(ctx, slug, ident.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProfileWrite, err)
	}
	if taken {
		return nil, ErrUsernameTaken
	}

	seed := ident.Email
	if seed == "" {
		seed = ident.ID
	}

	p := &domain.UserProfile{
		ID:          ident.ID,
		Email:       ident.Email,
		DisplayName: name,
		Username:    slug,
		Handle:      FormatHandle(slug),
		Accent:      PickAccentFromSeed(seed),
		CreatedAt:   s.now().UnixMilli(),
	}

	err = s.store.Transact(ctx, []ports.Upsert{{
		Collection: usersCollection,
		ID:         p.ID,
		Fields: map[string]interface{}{
			"id":          p.ID,
			"email":       p.Email,
			"displayName": p.DisplayName,
			"username":    p.Username,
			"handle":      p.Handle,
			"accent":      p.Accent,
			"createdAt":   p.CreatedAt,
		},
	}})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProfileWrite, err)
	}

	s.logger.Info("profile created", "user_id", p.ID, "username", p.Username)
	return p, nil
}

// Update перезаписывает изменяемые поля профиля одной атомарной записью.
// ID, почта, дата создания и метка accent сохраняются без изменений.
// Совпадение запрошенного имени пользователя с текущим не считается
// конфликтом; пустой avatarURL удаляет аватар.
func (s *Service) Update(ctx context.Context, current *domain.UserProfile, displayName, username, avatarURL string) (*domain.UserProfile, error) {
	name := strings.TrimSpace(displayName)
	if name == "" {
		return nil, ErrInvalidDisplayName
	}
	slug := SlugifyUsername(username)
	if slug == "" {
		return nil, ErrInvalidUsername
	}

	if slug != current.Username {
		taken, err := s.usernameTaken(ctx, slug, current.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrProfileWrite, err)
		}
		if taken {
			return nil, ErrUsernameTaken
		}
	}

	updated := *current
	updated.DisplayName = name
	updated.Username = slug
	updated.Handle = FormatHandle(slug)
	updated.AvatarURL = avatarURL

	err := s.store.Transact(ctx, []ports.Upsert{{
		Collection: usersCollection,
		ID:         current.ID,
		Fields: map[string]interface{}{
			"displayName": updated.DisplayName,
			"username":    updated.Username,
			"handle":      updated.Handle,
			"avatarUrl":   updated.AvatarURL,
		},
	}})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProfileWrite, err)
	}

	s.logger.Info("profile updated", "user_id", current.ID, "username", slug)
	return &updated, nil
}

// usernameTaken проверяет, занято ли имя пользователя другим профилем.
// Профиль с selfID не считается конфликтом.
func (s *Service) usernameTaken(ctx context.Context, username, selfID string) (bool, error) {
	recs, err := s.store.QueryOnce(ctx, ports.Query{
		Collection: usersCollection,
		Where:      map[string]interface{}{"username": username},
		Limit:      1,
	})
	if err != nil {
		return false, fmt.Errorf("failed to query username: %w", err)
	}
	if len(recs) == 0 {
		return false, nil
	}
	if id, ok := recs[0]["id"].(string); ok && id == selfID {
		return false, nil
	}
	return true, nil
}
