package workspace

import "errors"

var (
	// ErrEmptyChatName возвращается при создании чата с пустым именем.
	ErrEmptyChatName = errors.New("chat name must not be empty")
	// ErrNoParticipants возвращается, когда после объединения с создателем
	// список участников пуст.
	ErrNoParticipants = errors.New("chat must have at least one participant")
	// ErrNoActiveChat возвращается при отправке сообщения без разрешенного
	// активного чата.
	ErrNoActiveChat = errors.New("select a chat before sending messages")
	// ErrEmptyMessage возвращается для сообщения без текста и вложений.
	// Транзакция при этом не выполняется.
	ErrEmptyMessage = errors.New("add text or an image before sending")
	// ErrClosed возвращается для операций над закрытым рабочим пространством.
	ErrClosed = errors.New("workspace is closed")
)
