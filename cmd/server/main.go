package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	daemon "github.com/sevlyar/go-daemon"

	"instant-chat/internal/blob"
	"instant-chat/internal/identity"
	applog "instant-chat/internal/log"
	"instant-chat/internal/pkg/config"
	"instant-chat/internal/ports"
	"instant-chat/internal/server"
	"instant-chat/internal/store/memstore"
	"instant-chat/internal/uploads"
)

func main() {
	if err := run(); err != nil {
		slog.Error("application run failed", "error", err)
		os.Exit(1)
	}
}

// run инкапсулирует всю логику инициализации и запуска приложения.
func run() error {
	var daemonize bool
	flag.BoolVar(&daemonize, "daemon", false, "run the server as a background daemon")
	flag.Parse()

	// 1. Загрузка конфигурации
	cfg, err := config.LoadConfig()
	if err != nil {
		// Логгер еще не инициализирован, выводим в stderr
		_, _ = fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Инициализация логгера с маскировкой секретов хранилища
	var level slog.Level
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := applog.NewMaskedLogger(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// 3. Валидация конфигурации (после инициализации логгера)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	// 4. Переход в фоновый режим по флагу
	if daemonize {
		dctx := &daemon.Context{
			PidFileName: "instant-chat.pid",
			PidFilePerm: 0644,
			LogFileName: "instant-chat.log",
			LogFilePerm: 0640,
		}
		child, err := dctx.Reborn()
		if err != nil {
			return fmt.Errorf("failed to daemonize: %w", err)
		}
		if child != nil {
			// Родительский процесс завершается сразу
			return nil
		}
		defer dctx.Release()
	}

	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	// 5. Инициализация зависимостей
	store := memstore.New()

	// Стратегия хранения вложений выбирается один раз при запуске:
	// при наличии токена блоб-хранилища файлы уходят туда, иначе
	// кодируются в data URI внутри записи сообщения.
	var strategy ports.UploadStrategy
	if cfg.Uploads.BlobToken != "" {
		strategy = uploads.NewBlobStrategy(blob.NewClient(cfg.Uploads.BlobBaseURL, cfg.Uploads.BlobToken))
		logger.Info("attachment storage: blob store", "base_url", cfg.Uploads.BlobBaseURL)
	} else {
		strategy = uploads.NewInlineStrategy()
		logger.Info("attachment storage: inline data URI")
	}
	uploader := uploads.NewUploader(strategy, cfg.MaxFileSizeBytes(), logger)

	issuer := identity.NewDevIssuer(time.Duration(cfg.Identity.MagicCodeTTLMinutes)*time.Minute, logger)
	issuer.StartCleanupTicker(appCtx, time.Minute)

	// 6. Создание HTTP-сервера
	srv, err := server.New(cfg, store, uploader, issuer, logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	// 7. Запуск сервера и graceful shutdown
	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		slog.Info("Starting server", "addr", cfg.Address())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Signal received, shutting down...")
	appCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeoutSeconds)*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	<-serverDone
	slog.Info("Application exited gracefully")
	return nil
}
