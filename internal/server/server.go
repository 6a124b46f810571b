// Package server предоставляет HTTP-поверхность хранилища: запросы и
// транзакции, подписки по вебсокету, загрузку изображений и выдачу
// одноразовых кодов входа.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"instant-chat/internal/identity"
	"instant-chat/internal/pkg/config"
	"instant-chat/internal/ports"
	"instant-chat/internal/uploads"
)

// Server представляет HTTP-сервер
type Server struct {
	HTTPServer *http.Server
	cfg        *config.Config
	store      ports.RealtimeStore
	uploader   *uploads.Uploader
	issuer     ports.IdentityProvider
	logger     *slog.Logger
	upgrader   websocket.Upgrader
}

// New создает новый экземпляр Server
func New(cfg *config.Config, store ports.RealtimeStore, uploader *uploads.Uploader, issuer ports.IdentityProvider, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:      cfg,
		store:    store,
		uploader: uploader,
		issuer:   issuer,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Клиенты подключаются с произвольных адресов.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	chiRouter := chi.NewRouter()

	// Промежуточное ПО
	chiRouter.Use(middleware.Logger)
	chiRouter.Use(middleware.Recoverer)

	// Конечная точка для проверки работоспособности
	chiRouter.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Маршруты API
	chiRouter.Route("/api", func(r chi.Router) {
		r.Post("/uploads", s.handleUpload)
		r.Route("/store", func(r chi.Router) {
			r.Post("/query", s.handleQuery)
			r.Post("/transact", s.handleTransact)
			r.Get("/subscribe", s.handleSubscribe)
		})
		r.Route("/auth", func(r chi.Router) {
			r.Post("/magic-code", s.handleMagicCode)
			r.Post("/verify", s.handleVerify)
		})
	})

	s.HTTPServer = &http.Server{
		Addr:         cfg.Address(),
		Handler:      chiRouter,
		ReadTimeout:  config.DefaultReadTimeout,
		WriteTimeout: config.DefaultWriteTimeout,
		IdleTimeout:  config.DefaultIdleTimeout,
	}

	return s, nil
}

// ListenAndServe запускает HTTP-сервер.
func (s *Server) ListenAndServe() error {
	return s.HTTPServer.ListenAndServe()
}

// Shutdown корректно останавливает HTTP-сервер.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.HTTPServer.Shutdown(ctx)
}

// handleUpload принимает изображение мультипарт-формой и возвращает
// готовую запись вложения. Размеры изображения клиент передает полями
// width и height: сервер не декодирует содержимое файла.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(s.cfg.MaxFileSizeBytes() + 1<<20); err != nil {
		writeError(w, http.StatusBadRequest, "Missing file")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing file")
		return
	}
	defer file.Close()

	if header.Size > s.cfg.MaxFileSizeBytes() {
		writeError(w, http.StatusBadRequest, "Images must be 5MB or smaller.")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Unable to upload image right now.")
		return
	}

	width, _ := strconv.Atoi(r.FormValue("width"))
	height, _ := strconv.Atoi(r.FormValue("height"))

	attachment, err := s.uploader.Upload(r.Context(), ports.Upload{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Data:        data,
		Width:       width,
		Height:      height,
	})
	if err != nil {
		if errors.Is(err, uploads.ErrFileTooLarge) {
			writeError(w, http.StatusBadRequest, "Images must be 5MB or smaller.")
			return
		}
		s.logger.Error("upload failed", "file", header.Filename, "error", err)
		writeError(w, http.StatusInternalServerError, "Unable to upload image right now.")
		return
	}

	writeJSON(w, http.StatusOK, attachment)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var query ports.Query
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid query")
		return
	}
	if query.Collection == "" {
		writeError(w, http.StatusBadRequest, "Collection is required")
		return
	}

	records, err := s.store.QueryOnce(r.Context(), query)
	if err != nil {
		s.logger.Error("query failed", "collection", query.Collection, "error", err)
		writeError(w, http.StatusInternalServerError, "Query failed")
		return
	}
	if records == nil {
		records = []ports.Record{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"records": records})
}

func (s *Server) handleTransact(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Upserts []ports.Upsert `json:"upserts"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid transaction")
		return
	}
	if len(req.Upserts) == 0 {
		writeError(w, http.StatusBadRequest, "Transaction is empty")
		return
	}

	if err := s.store.Transact(r.Context(), req.Upserts); err != nil {
		s.logger.Error("transaction failed", "upserts", len(req.Upserts), "error", err)
		writeError(w, http.StatusBadRequest, "Transaction rejected")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleSubscribe переводит соединение в вебсокет. Первый кадр от
// клиента — запрос подписки; дальше сервер шлет кадры со снимками
// до закрытия соединения любой из сторон.
func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	var query ports.Query
	if err := conn.ReadJSON(&query); err != nil {
		s.logger.Error("failed to read subscription query", "error", err)
		return
	}
	if query.Collection == "" {
		conn.WriteJSON(map[string]string{"error": "Collection is required"})
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sub, err := s.store.Subscribe(ctx, query)
	if err != nil {
		s.logger.Error("subscribe failed", "collection", query.Collection, "error", err)
		conn.WriteJSON(map[string]string{"error": "Subscribe failed"})
		return
	}
	defer sub.Close()

	// Горутина чтения: ее единственная задача — заметить закрытие
	// соединения клиентом и отменить подписку.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case records, ok := <-sub.Snapshots():
			if !ok {
				return
			}
			if records == nil {
				records = []ports.Record{}
			}
			if err := conn.WriteJSON(map[string]interface{}{"records": records}); err != nil {
				return
			}
		}
	}
}

func (s *Server) handleMagicCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	if err := s.issuer.SendMagicCode(r.Context(), req.Email); err != nil {
		if errors.Is(err, identity.ErrInvalidEmail) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("failed to issue magic code", "error", err)
		writeError(w, http.StatusInternalServerError, "Unable to send code right now")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	ident, err := s.issuer.VerifyMagicCode(r.Context(), req.Email, req.Code)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCode) {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		s.logger.Error("failed to verify magic code", "error", err)
		writeError(w, http.StatusInternalServerError, "Unable to verify code right now")
		return
	}

	writeJSON(w, http.StatusOK, ident)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
