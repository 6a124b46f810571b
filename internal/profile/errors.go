package profile

import "errors"

// Ошибки операций с профилем. Проверяются через errors.Is на границе операции
// и преобразуются в текст для пользователя.
var (
	// ErrProfileNotFound возвращается, когда для учетной записи еще нет профиля.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrUsernameTaken возвращается, когда имя пользователя уже занято другим профилем.
	ErrUsernameTaken = errors.New("username is already taken")
	// ErrInvalidDisplayName возвращается, когда отображаемое имя пусто после обрезки пробелов.
	ErrInvalidDisplayName = errors.New("display name must not be empty")
	// ErrInvalidUsername возвращается, когда после нормализации не осталось допустимых символов.
	ErrInvalidUsername = errors.New("username must contain at least one letter or digit")
	// ErrProfileWrite оборачивает транспортные сбои при чтении или записи профиля.
	ErrProfileWrite = errors.New("failed to save profile")
)
