package domain

// UserProfile представляет профиль пользователя в общем хранилище.
// Поле Username глобально уникально; Handle выводится как "@username".
// Accent назначается один раз при создании и больше не пересчитывается.
type UserProfile struct {
	ID          string `json:"id"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"displayName"`
	Username    string `json:"username"`
	Handle      string `json:"handle,omitempty"`
	Accent      string `json:"accent,omitempty"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
	CreatedAt   int64  `json:"createdAt,omitempty"`
}

// ChatRecord представляет именованный многопользовательский чат.
// LastMessageAt монотонно не убывает и обновляется при каждой отправке сообщения.
type ChatRecord struct {
	ID            string   `json:"id"`
	Name          string   `json:"name,omitempty"`
	Participants  []string `json:"participants,omitempty"`
	CreatedAt     int64    `json:"createdAt,omitempty"`
	LastMessageAt int64    `json:"lastMessageAt,omitempty"`
}

// MessageRecord представляет одно сообщение в чате.
// SenderName — денормализованный снимок отображаемого имени отправителя
// на момент отправки; при последующем переименовании он не обновляется.
// Сообщение неизменяемо и содержит хотя бы текст или одно вложение.
type MessageRecord struct {
	ID          string            `json:"id"`
	ChatID      string            `json:"chatId"`
	SenderID    string            `json:"senderId,omitempty"`
	SenderName  string            `json:"senderName,omitempty"`
	Content     string            `json:"content,omitempty"`
	Attachments []ImageAttachment `json:"attachments,omitempty"`
	CreatedAt   int64             `json:"createdAt,omitempty"`
}

// ImageAttachment представляет изображение, прикрепленное к сообщению или профилю.
// URL — либо адрес в долговременном blob-хранилище, либо самодостаточный data URI.
type ImageAttachment struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	Name   string `json:"name,omitempty"`
	Size   int64  `json:"size,omitempty"`
}

// NewMessagePayload описывает намерение отправить сообщение: текст,
// вложения или и то и другое.
type NewMessagePayload struct {
	Text        string            `json:"text,omitempty"`
	Attachments []ImageAttachment `json:"attachments,omitempty"`
}

// CreateChatRequest описывает намерение создать чат, опционально вместе
// с первым сообщением.
type CreateChatRequest struct {
	Name           string   `json:"name"`
	ParticipantIDs []string `json:"participantIds,omitempty"`
	InitialMessage string   `json:"initialMessage,omitempty"`
}
