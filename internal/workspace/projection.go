package workspace

import (
	"sort"
	"strings"

	"instant-chat/internal/domain"
)

// Чистые функции проекции: снимок подписки и локальный выбор отображаются
// в производное состояние. Входные срезы не изменяются.

// VisibleChats возвращает чаты, в которых участвует пользователь,
// отсортированные по убыванию последней активности. Равная активность
// упорядочивается по идентификатору чата, поэтому порядок детерминирован
// независимо от порядка доставки снимка.
func VisibleChats(chats []domain.ChatRecord, userID string) []domain.ChatRecord {
	var visible []domain.ChatRecord
	for _, chat := range chats {
		if containsString(chat.Participants, userID) {
			visible = append(visible, chat)
		}
	}
	sort.Slice(visible, func(i, j int) bool {
		if visible[i].LastMessageAt != visible[j].LastMessageAt {
			return visible[i].LastMessageAt > visible[j].LastMessageAt
		}
		return visible[i].ID < visible[j].ID
	})
	return visible
}

// ResolveActiveChat определяет чат для отображения: последний явный выбор,
// если он еще виден, иначе самый активный чат из видимого набора.
// Пустая строка означает, что активного чата нет и подписка на сообщения
// не открывается.
func ResolveActiveChat(visible []domain.ChatRecord, selectedID string) string {
	if selectedID != "" {
		for _, chat := range visible {
			if chat.ID == selectedID {
				return selectedID
			}
		}
	}
	if len(visible) > 0 {
		return visible[0].ID
	}
	return ""
}

// OrderMessages упорядочивает сообщения по возрастанию createdAt;
// равные метки времени упорядочиваются лексикографически по id.
// Порядок тотален: никакие два различных сообщения не равны,
// поэтому результат не зависит от порядка поступления из подписки.
func OrderMessages(messages []domain.MessageRecord) []domain.MessageRecord {
	out := make([]domain.MessageRecord, len(messages))
	copy(out, messages)
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt < out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// SortPeople сортирует профили по отображаемому имени без учета регистра;
// при пустом имени используется имя пользователя.
func SortPeople(profiles []domain.UserProfile) []domain.UserProfile {
	out := make([]domain.UserProfile, len(profiles))
	copy(out, profiles)
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(displayKey(out[i])) < strings.ToLower(displayKey(out[j]))
	})
	return out
}

func displayKey(p domain.UserProfile) string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.Username
}

func containsString(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}

// unionParticipants удаляет дубликаты и гарантирует, что создатель
// входит в список участников.
func unionParticipants(ids []string, creatorID string) []string {
	seen := make(map[string]bool, len(ids)+1)
	var out []string
	for _, id := range append([]string{creatorID}, ids...) {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
