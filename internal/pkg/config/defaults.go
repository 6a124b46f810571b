package config

import "time"

// Значения конфигурации по умолчанию.
const (
	// Сервер
	DefaultServerHost      = "0.0.0.0"
	DefaultServerPort      = 8080
	DefaultReadTimeout     = 10 * time.Second
	DefaultWriteTimeout    = 10 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 15 * time.Second

	// Загрузки
	DefaultMaxFileSizeMB = 5

	// Провайдер идентификации
	DefaultMagicCodeTTL = 10 * time.Minute

	// Логирование
	DefaultLogLevel = "info"
)
