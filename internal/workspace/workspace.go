// Package workspace синхронизирует сеанс чата: подписки на коллекции
// хранилища сворачиваются в производное состояние, а записи выполняются
// атомарными транзакциями.
package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"instant-chat/internal/domain"
	"instant-chat/internal/ports"
)

const (
	chatsCollection    = "chats"
	usersCollection    = "users"
	messagesCollection = "messages"
)

// Workspace держит производное состояние сеанса одного пользователя.
// Снимки подписок и локальный выбор чата обрабатываются одной горутиной,
// поэтому состояние всегда соответствует последнему наблюдаемому снимку.
type Workspace struct {
	store  ports.RealtimeStore
	user   ports.Identity
	logger *slog.Logger

	mu             sync.RWMutex
	chats          []domain.ChatRecord
	people         []domain.UserProfile
	messages       []domain.MessageRecord
	selectedChatID string
	resolvedChatID string

	selectCh chan string
	updates  chan struct{}
	done     chan struct{}
	once     sync.Once

	now   func() time.Time
	newID func() string
}

// New создает новый экземпляр Workspace.
func New(store ports.RealtimeStore, user ports.Identity, logger *slog.Logger) *Workspace {
	if logger == nil {
		logger = slog.Default()
	}
	return &Workspace{
		store:    store,
		user:     user,
		logger:   logger,
		selectCh: make(chan string),
		updates:  make(chan struct{}, 1),
		done:     make(chan struct{}),
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Open подписывается на коллекции чатов и профилей и запускает цикл
// синхронизации. Подписка на сообщения открывается и переоткрывается
// внутри цикла по мере смены активного чата.
func (w *Workspace) Open(ctx context.Context) error {
	chatsSub, err := w.store.Subscribe(ctx, ports.Query{Collection: chatsCollection})
	if err != nil {
		return fmt.Errorf("failed to subscribe to chats: %w", err)
	}

	usersSub, err := w.store.Subscribe(ctx, ports.Query{Collection: usersCollection})
	if err != nil {
		chatsSub.Close()
		return fmt.Errorf("failed to subscribe to users: %w", err)
	}

	go w.run(ctx, chatsSub, usersSub)
	return nil
}

// Close останавливает цикл синхронизации.
func (w *Workspace) Close() {
	w.once.Do(func() {
		close(w.done)
	})
}

// Updates возвращает канал уведомлений об изменении производного
// состояния. Канал сворачивает всплески: одно уведомление может
// покрывать несколько изменений.
func (w *Workspace) Updates() <-chan struct{} {
	return w.updates
}

// run — единственная горутина, изменяющая производное состояние.
func (w *Workspace) run(ctx context.Context, chatsSub, usersSub ports.Subscription) {
	defer chatsSub.Close()
	defer usersSub.Close()

	var (
		msgSub ports.Subscription
		msgCh  <-chan []ports.Record
	)
	defer func() {
		if msgSub != nil {
			msgSub.Close()
		}
	}()

	closeMessages := func() {
		if msgSub != nil {
			msgSub.Close()
			msgSub = nil
			msgCh = nil
		}
	}

	// reconcile переоткрывает подписку на сообщения, когда меняется
	// разрешенный активный чат. Накопленные сообщения прежнего чата
	// сбрасываются сразу, не дожидаясь первого снимка новой подписки.
	reconcile := func(previous string) {
		w.mu.RLock()
		resolved := w.resolvedChatID
		w.mu.RUnlock()
		if resolved == previous {
			return
		}

		closeMessages()
		w.mu.Lock()
		w.messages = nil
		w.mu.Unlock()

		if resolved == "" {
			return
		}
		sub, err := w.store.Subscribe(ctx, ports.Query{
			Collection: messagesCollection,
			Where:      map[string]interface{}{"chatId": resolved},
		})
		if err != nil {
			w.logger.Error("failed to subscribe to messages", "chat_id", resolved, "error", err)
			return
		}
		msgSub = sub
		msgCh = sub.Snapshots()
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case records, ok := <-chatsSub.Snapshots():
			if !ok {
				return
			}
			previous := w.applyChats(records)
			reconcile(previous)
			w.notify()
		case records, ok := <-usersSub.Snapshots():
			if !ok {
				return
			}
			w.applyPeople(records)
			w.notify()
		case records, ok := <-msgCh:
			if !ok {
				msgCh = nil
				continue
			}
			w.applyMessages(records)
			w.notify()
		case chatID := <-w.selectCh:
			previous := w.applySelection(chatID)
			reconcile(previous)
			w.notify()
		}
	}
}

// applyChats пересчитывает видимые чаты и разрешенный активный чат.
// Возвращает прежний разрешенный чат для сверки подписки на сообщения.
func (w *Workspace) applyChats(records []ports.Record) string {
	chats := decodeChats(records)

	w.mu.Lock()
	defer w.mu.Unlock()

	previous := w.resolvedChatID
	w.chats = VisibleChats(chats, w.user.ID)
	w.resolvedChatID = ResolveActiveChat(w.chats, w.selectedChatID)
	return previous
}

func (w *Workspace) applyPeople(records []ports.Record) {
	people := decodePeople(records)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.people = SortPeople(people)
}

func (w *Workspace) applyMessages(records []ports.Record) {
	messages := decodeMessages(records)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.messages = OrderMessages(messages)
}

func (w *Workspace) applySelection(chatID string) string {
	w.mu.Lock()
	defer w.mu.Unlock()

	previous := w.resolvedChatID
	w.selectedChatID = chatID
	w.resolvedChatID = ResolveActiveChat(w.chats, w.selectedChatID)
	return previous
}

// notify сворачивает уведомления: если получатель еще не прочитал
// предыдущее, новое не добавляется.
func (w *Workspace) notify() {
	select {
	case w.updates <- struct{}{}:
	default:
	}
}

// SelectChat запоминает явный выбор чата. Выбор невидимого чата
// не приводит к ошибке: он вступит в силу, когда чат станет виден.
func (w *Workspace) SelectChat(ctx context.Context, chatID string) error {
	select {
	case w.selectCh <- chatID:
		return nil
	case <-w.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CreateChat создает чат и, при непустом начальном тексте, первое
// сообщение одной транзакцией с общей меткой времени. Созданный чат
// становится выбранным.
func (w *Workspace) CreateChat(ctx context.Context, req domain.CreateChatRequest) (string, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return "", ErrEmptyChatName
	}

	participants := unionParticipants(req.ParticipantIDs, w.user.ID)
	if len(participants) == 0 {
		return "", ErrNoParticipants
	}

	chatID := w.newID()
	ts := w.now().UnixMilli()

	upserts := []ports.Upsert{{
		Collection: chatsCollection,
		ID:         chatID,
		Fields: map[string]interface{}{
			"id":            chatID,
			"name":          name,
			"participants":  participants,
			"createdAt":     ts,
			"lastMessageAt": ts,
		},
	}}

	if text := strings.TrimSpace(req.InitialMessage); text != "" {
		upserts = append(upserts, w.messageUpsert(chatID, text, nil, ts))
	}

	if err := w.store.Transact(ctx, upserts); err != nil {
		return "", fmt.Errorf("failed to create chat: %w", err)
	}

	w.logger.Info("chat created", "chat_id", chatID, "participants", len(participants))

	if err := w.SelectChat(ctx, chatID); err != nil {
		return chatID, err
	}
	return chatID, nil
}

// SendMessage отправляет сообщение в разрешенный активный чат. Запись
// сообщения и продвижение lastMessageAt чата выполняются одной
// транзакцией с одной меткой времени.
func (w *Workspace) SendMessage(ctx context.Context, payload domain.NewMessagePayload) error {
	w.mu.RLock()
	chatID := w.resolvedChatID
	w.mu.RUnlock()
	if chatID == "" {
		return ErrNoActiveChat
	}

	text := strings.TrimSpace(payload.Text)
	if text == "" && len(payload.Attachments) == 0 {
		return ErrEmptyMessage
	}

	ts := w.now().UnixMilli()
	upserts := []ports.Upsert{
		w.messageUpsert(chatID, text, payload.Attachments, ts),
		{
			Collection: chatsCollection,
			ID:         chatID,
			Fields:     map[string]interface{}{"lastMessageAt": ts},
		},
	}

	if err := w.store.Transact(ctx, upserts); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

func (w *Workspace) messageUpsert(chatID, text string, attachments []domain.ImageAttachment, ts int64) ports.Upsert {
	id := w.newID()
	fields := map[string]interface{}{
		"id":         id,
		"chatId":     chatID,
		"senderId":   w.user.ID,
		"senderName": w.senderName(),
		"content":    text,
		"createdAt":  ts,
	}
	if len(attachments) > 0 {
		fields["attachments"] = attachments
	}
	return ports.Upsert{Collection: messagesCollection, ID: id, Fields: fields}
}

// senderName денормализует имя отправителя в сообщение, чтобы история
// читалась без обращения к коллекции профилей.
func (w *Workspace) senderName() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, p := range w.people {
		if p.ID == w.user.ID {
			if p.DisplayName != "" {
				return p.DisplayName
			}
			return p.Username
		}
	}
	return w.user.Email
}

// Chats возвращает копию видимых чатов в порядке убывания активности.
func (w *Workspace) Chats() []domain.ChatRecord {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]domain.ChatRecord, len(w.chats))
	copy(out, w.chats)
	return out
}

// People возвращает копию известных профилей.
func (w *Workspace) People() []domain.UserProfile {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]domain.UserProfile, len(w.people))
	copy(out, w.people)
	return out
}

// Messages возвращает копию сообщений активного чата в каноническом порядке.
func (w *Workspace) Messages() []domain.MessageRecord {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]domain.MessageRecord, len(w.messages))
	copy(out, w.messages)
	return out
}

// ResolvedChatID возвращает идентификатор разрешенного активного чата
// или пустую строку.
func (w *Workspace) ResolvedChatID() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.resolvedChatID
}

// ActiveChat возвращает запись разрешенного активного чата.
func (w *Workspace) ActiveChat() (domain.ChatRecord, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, chat := range w.chats {
		if chat.ID == w.resolvedChatID {
			return chat, true
		}
	}
	return domain.ChatRecord{}, false
}

func decodeChats(records []ports.Record) []domain.ChatRecord {
	out := make([]domain.ChatRecord, 0, len(records))
	for _, rec := range records {
		var chat domain.ChatRecord
		if err := domain.DecodeRecord(rec, &chat); err != nil {
			continue
		}
		out = append(out, chat)
	}
	return out
}

func decodePeople(records []ports.Record) []domain.UserProfile {
	out := make([]domain.UserProfile, 0, len(records))
	for _, rec := range records {
		var profile domain.UserProfile
		if err := domain.DecodeRecord(rec, &profile); err != nil {
			continue
		}
		out = append(out, profile)
	}
	return out
}

func decodeMessages(records []ports.Record) []domain.MessageRecord {
	out := make([]domain.MessageRecord, 0, len(records))
	for _, rec := range records {
		var msg domain.MessageRecord
		if err := domain.DecodeRecord(rec, &msg); err != nil {
			continue
		}
		out = append(out, msg)
	}
	return out
}
