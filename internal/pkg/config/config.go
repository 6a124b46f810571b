// Package config предоставляет управление конфигурацией приложения.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// Server содержит конфигурацию HTTP-сервера.
type Server struct {
	Host                   string `json:"host" yaml:"host"`
	Port                   int    `json:"port" yaml:"port"`
	ShutdownTimeoutSeconds int    `json:"shutdown_timeout_seconds" yaml:"shutdown_timeout_seconds"`
}

// Store содержит конфигурацию удаленного хранилища реального времени
// (используется клиентом).
type Store struct {
	URL string `json:"url" yaml:"url"`
}

// Uploads содержит конфигурацию загрузки вложений.
// BlobToken не хранится в yaml: учетные данные записи читаются только
// из переменной окружения BLOB_READ_WRITE_TOKEN. Его наличие выбирает
// долговременную стратегию хранения вместо встроенной.
type Uploads struct {
	MaxFileSizeMB int    `json:"max_file_size_mb" yaml:"max_file_size_mb"`
	BlobBaseURL   string `json:"blob_base_url" yaml:"blob_base_url"`
	BlobToken     string `json:"-" yaml:"-"`
}

// Identity содержит конфигурацию провайдера идентификации.
type Identity struct {
	MagicCodeTTLMinutes int `json:"magic_code_ttl_minutes" yaml:"magic_code_ttl_minutes"`
}

// Logging содержит конфигурацию логирования.
type Logging struct {
	Level string `json:"level" yaml:"level"` // debug, info, warn, error
}

// Config содержит конфигурацию приложения.
type Config struct {
	Server   Server   `json:"server" yaml:"server"`
	Store    Store    `json:"store" yaml:"store"`
	Uploads  Uploads  `json:"uploads" yaml:"uploads"`
	Identity Identity `json:"identity" yaml:"identity"`
	Logging  Logging  `json:"logging" yaml:"logging"`
}

// defaultConfig возвращает конфигурацию со значениями по умолчанию.
func defaultConfig() *Config {
	return &Config{
		Server: Server{
			Host:                   DefaultServerHost,
			Port:                   DefaultServerPort,
			ShutdownTimeoutSeconds: int(DefaultShutdownTimeout.Seconds()),
		},
		Uploads: Uploads{
			MaxFileSizeMB: DefaultMaxFileSizeMB,
		},
		Identity: Identity{
			MagicCodeTTLMinutes: int(DefaultMagicCodeTTL.Minutes()),
		},
		Logging: Logging{
			Level: DefaultLogLevel,
		},
	}
}

// LoadConfig загружает конфигурацию приложения из config.yml,
// .env файла и переменных окружения.
func LoadConfig() (*Config, error) {
	// Загрузка переменных окружения из .env файла, если он существует
	if err := godotenv.Load(); err != nil {
		// Отсутствие .env файла — это нормально, полагаемся на окружение и config.yml
	}

	cfg := defaultConfig()
	if err := loadFromYAML("config.yml", cfg); err != nil {
		// Если config.yml отсутствует, используем переменные окружения
		if err := loadFromEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from env: %w", err)
		}
	}

	// Учетные данные blob-хранилища всегда берутся из окружения
	cfg.Uploads.BlobToken = os.Getenv("BLOB_READ_WRITE_TOKEN")

	return cfg, nil
}

// loadFromYAML загружает конфигурацию из YAML-файла поверх значений по умолчанию.
func loadFromYAML(filename string, cfg *Config) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse yaml config: %w", err)
	}

	return nil
}

// loadFromEnv загружает конфигурацию из переменных окружения.
func loadFromEnv(cfg *Config) error {
	cfg.Server.Host = getEnv("SERVER_HOST", cfg.Server.Host)

	port, err := getEnvAsInt("SERVER_PORT", cfg.Server.Port)
	if err != nil {
		return err
	}
	cfg.Server.Port = port

	shutdown, err := getEnvAsInt("SHUTDOWN_TIMEOUT_SECONDS", cfg.Server.ShutdownTimeoutSeconds)
	if err != nil {
		return err
	}
	cfg.Server.ShutdownTimeoutSeconds = shutdown

	maxSize, err := getEnvAsInt("MAX_FILE_SIZE_MB", cfg.Uploads.MaxFileSizeMB)
	if err != nil {
		return err
	}
	cfg.Uploads.MaxFileSizeMB = maxSize

	ttl, err := getEnvAsInt("MAGIC_CODE_TTL_MINUTES", cfg.Identity.MagicCodeTTLMinutes)
	if err != nil {
		return err
	}
	cfg.Identity.MagicCodeTTLMinutes = ttl

	cfg.Store.URL = getEnv("STORE_URL", cfg.Store.URL)
	cfg.Uploads.BlobBaseURL = getEnv("BLOB_BASE_URL", cfg.Uploads.BlobBaseURL)
	cfg.Logging.Level = getEnv("LOG_LEVEL", cfg.Logging.Level)

	return nil
}

// Address возвращает адрес сервера в формате "host:port".
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// MaxFileSizeBytes возвращает ограничение размера файла в байтах.
func (c *Config) MaxFileSizeBytes() int64 {
	return int64(c.Uploads.MaxFileSizeMB) << 20
}

// Validate проверяет, являются ли значения конфигурации допустимыми.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be a valid port number (1-65535)")
	}

	if c.Server.ShutdownTimeoutSeconds <= 0 {
		return fmt.Errorf("server.shutdown_timeout_seconds must be positive")
	}

	if c.Uploads.MaxFileSizeMB <= 0 {
		return fmt.Errorf("uploads.max_file_size_mb must be positive")
	}

	if c.Uploads.BlobToken != "" && c.Uploads.BlobBaseURL == "" {
		return fmt.Errorf("uploads.blob_base_url must be set when BLOB_READ_WRITE_TOKEN is present")
	}

	if c.Identity.MagicCodeTTLMinutes <= 0 {
		return fmt.Errorf("identity.magic_code_ttl_minutes must be positive")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		// all good
	default:
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}

	return nil
}

// getEnv извлекает значение переменной окружения или возвращает значение по умолчанию.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt извлекает значение переменной окружения как целое число.
func getEnvAsInt(key string, defaultValue int) (int, error) {
	strValue := os.Getenv(key)
	if strValue == "" {
		return defaultValue, nil
	}
	intValue, err := strconv.Atoi(strValue)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return intValue, nil
}
