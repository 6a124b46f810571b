package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"instant-chat/internal/domain"
	"instant-chat/internal/identity"
	"instant-chat/internal/pkg/term"
	"instant-chat/internal/ports"
	"instant-chat/internal/profile"
	"instant-chat/internal/store/remote"
	"instant-chat/internal/uploads"
	"instant-chat/internal/workspace"
)

func main() {
	var serverAddr string
	flag.StringVar(&serverAddr, "server", "http://localhost:8080", "Server address")
	flag.Parse()

	// Клиентский логгер пишет только предупреждения, чтобы не мешать
	// интерактивному выводу.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	terminal := term.NewTerminal()

	// Вход по одноразовому коду
	ident, err := signIn(ctx, terminal, identity.NewClient(serverAddr))
	if err != nil {
		log.Fatalf("Не удалось войти: %v", err)
	}

	store := remote.New(serverAddr)
	profiles := profile.NewService(store, logger)

	// Разрешение учетной записи в профиль; при первом входе профиль создается
	me, err := resolveProfile(ctx, terminal, profiles, *ident)
	if err != nil {
		log.Fatalf("Не удалось подготовить профиль: %v", err)
	}
	terminal.Printf("Signed in as %s (%s)\n", me.DisplayName, me.Handle)

	ws := workspace.New(store, *ident, logger)
	if err := ws.Open(ctx); err != nil {
		log.Fatalf("Не удалось открыть рабочее пространство: %v", err)
	}
	defer ws.Close()

	uploadClient := uploads.NewClient(serverAddr)

	// Печать входящих сообщений по уведомлениям рабочего пространства
	printer := newPrinter(terminal, ws, me.ID)
	go printer.run(ctx)

	repl(ctx, terminal, ws, profiles, uploadClient, me)
}

// signIn проводит вход по одноразовому коду: почта, затем код из письма.
// Встроенный провайдер пишет код в лог сервера.
func signIn(ctx context.Context, terminal *term.Terminal, client *identity.Client) (*ports.Identity, error) {
	for {
		email, err := terminal.ReadLine("Email: ")
		if err != nil {
			return nil, err
		}

		if err := client.SendMagicCode(ctx, email); err != nil {
			if errors.Is(err, identity.ErrInvalidEmail) {
				terminal.Printf("%s\n", identity.ErrInvalidEmail)
				continue
			}
			return nil, err
		}

		code, err := terminal.ReadSecret("Code: ")
		if err != nil {
			return nil, err
		}

		ident, err := client.VerifyMagicCode(ctx, email, code)
		if err != nil {
			if errors.Is(err, identity.ErrInvalidCode) {
				terminal.Printf("%s\n", identity.ErrInvalidCode)
				continue
			}
			return nil, err
		}
		return ident, nil
	}
}

// resolveProfile возвращает существующий профиль или создает новый,
// предлагая значения по умолчанию, выведенные из почты.
func resolveProfile(ctx context.Context, terminal *term.Terminal, profiles *profile.Service, ident ports.Identity) (*domain.UserProfile, error) {
	me, err := profiles.Resolve(ctx, ident)
	if err == nil {
		return me, nil
	}
	if !errors.Is(err, profile.ErrProfileNotFound) {
		return nil, err
	}

	defaultName := profile.DefaultDisplayName(ident.Email)
	defaultUsername := profile.DefaultUsername(ident.Email)

	for {
		name, err := terminal.ReadLine(fmt.Sprintf("Display name [%s]: ", defaultName))
		if err != nil {
			return nil, err
		}
		if name == "" {
			name = defaultName
		}

		username, err := terminal.ReadLine(fmt.Sprintf("Username [%s]: ", defaultUsername))
		if err != nil {
			return nil, err
		}
		if username == "" {
			username = defaultUsername
		}

		me, err = profiles.Create(ctx, ident, name, username)
		if err != nil {
			if errors.Is(err, profile.ErrUsernameTaken) {
				terminal.Printf("Username @%s is taken, try another.\n", profile.SlugifyUsername(username))
				continue
			}
			return nil, err
		}
		return me, nil
	}
}

// repl — основной цикл команд.
func repl(ctx context.Context, terminal *term.Terminal, ws *workspace.Workspace, profiles *profile.Service, uploadClient *uploads.Client, me *domain.UserProfile) {
	terminal.Printf("Type /help for commands.\n")

	for {
		line, err := terminal.ReadLine("> ")
		if err != nil {
			return
		}
		if line == "" {
			continue
		}

		if !strings.HasPrefix(line, "/") {
			if err := ws.SendMessage(ctx, domain.NewMessagePayload{Text: line}); err != nil {
				terminal.Printf("%s\n", err)
			}
			continue
		}

		fields := strings.Fields(line)
		switch fields[0] {
		case "/help":
			terminal.Printf("/chats, /people, /select <id>, /new <name> [@username...], /upload <path>, /profile, /quit\n")
		case "/quit":
			return
		case "/chats":
			active := ws.ResolvedChatID()
			for _, chat := range ws.Chats() {
				marker := " "
				if chat.ID == active {
					marker = "*"
				}
				terminal.Printf("%s %s  %s\n", marker, chat.ID, chat.Name)
			}
		case "/people":
			for _, p := range ws.People() {
				terminal.Printf("%s  %s\n", p.Handle, p.DisplayName)
			}
		case "/select":
			if len(fields) < 2 {
				terminal.Printf("usage: /select <chat-id>\n")
				continue
			}
			if err := ws.SelectChat(ctx, fields[1]); err != nil {
				terminal.Printf("%s\n", err)
			}
		case "/new":
			if len(fields) < 2 {
				terminal.Printf("usage: /new <name> [@username...]\n")
				continue
			}
			var name string
			var participants []string
			for _, f := range fields[1:] {
				if strings.HasPrefix(f, "@") {
					if id, ok := lookupByHandle(ws.People(), f); ok {
						participants = append(participants, id)
					} else {
						terminal.Printf("unknown user %s\n", f)
					}
					continue
				}
				if name == "" {
					name = f
				} else {
					name += " " + f
				}
			}
			if _, err := ws.CreateChat(ctx, domain.CreateChatRequest{Name: name, ParticipantIDs: participants}); err != nil {
				terminal.Printf("%s\n", err)
			}
		case "/upload":
			if len(fields) < 2 {
				terminal.Printf("usage: /upload <path>\n")
				continue
			}
			data, err := os.ReadFile(fields[1])
			if err != nil {
				terminal.Printf("failed to read file: %v\n", err)
				continue
			}
			att, err := uploadClient.UploadImage(ctx, filepath.Base(fields[1]), data)
			if err != nil {
				terminal.Printf("%s\n", err)
				continue
			}
			if err := ws.SendMessage(ctx, domain.NewMessagePayload{Attachments: []domain.ImageAttachment{*att}}); err != nil {
				terminal.Printf("%s\n", err)
			}
		case "/profile":
			name, err := terminal.ReadLine(fmt.Sprintf("Display name [%s]: ", me.DisplayName))
			if err != nil {
				return
			}
			if name == "" {
				name = me.DisplayName
			}
			username, err := terminal.ReadLine(fmt.Sprintf("Username [%s]: ", me.Username))
			if err != nil {
				return
			}
			if username == "" {
				username = me.Username
			}
			updated, err := profiles.Update(ctx, me, name, username, me.AvatarURL)
			if err != nil {
				terminal.Printf("%s\n", err)
				continue
			}
			*me = *updated
			terminal.Printf("Profile saved: %s (%s)\n", me.DisplayName, me.Handle)
		default:
			terminal.Printf("unknown command %s\n", fields[0])
		}
	}
}

func lookupByHandle(people []domain.UserProfile, handle string) (string, bool) {
	for _, p := range people {
		if p.Handle == handle {
			return p.ID, true
		}
	}
	return "", false
}

// printer выводит сообщения активного чата по мере их появления.
type printer struct {
	terminal *term.Terminal
	ws       *workspace.Workspace
	selfID   string

	mu      sync.Mutex
	chatID  string
	printed int
}

func newPrinter(terminal *term.Terminal, ws *workspace.Workspace, selfID string) *printer {
	return &printer{terminal: terminal, ws: ws, selfID: selfID}
}

func (p *printer) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.ws.Updates():
			p.flush()
		}
	}
}

// flush печатает сообщения, появившиеся после предыдущего вызова.
// При смене активного чата история выводится заново.
func (p *printer) flush() {
	p.mu.Lock()
	defer p.mu.Unlock()

	chatID := p.ws.ResolvedChatID()
	if chatID != p.chatID {
		p.chatID = chatID
		p.printed = 0
		if chat, ok := p.ws.ActiveChat(); ok {
			p.terminal.Printf("--- %s ---\n", chat.Name)
		}
	}

	messages := p.ws.Messages()
	if p.printed > len(messages) {
		p.printed = len(messages)
	}
	for _, msg := range messages[p.printed:] {
		sender := msg.SenderName
		if msg.SenderID == p.selfID {
			sender = "you"
		}
		if msg.Content != "" {
			p.terminal.Printf("[%s] %s\n", sender, msg.Content)
		}
		for _, att := range msg.Attachments {
			p.terminal.Printf("[%s] image: %s (%dx%d)\n", sender, att.Name, att.Width, att.Height)
		}
	}
	p.printed = len(messages)
}
