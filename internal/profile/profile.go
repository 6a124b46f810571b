// Package profile реализует разрешение учетной записи в профиль пользователя
// и редактирование профиля с проверкой уникальности имени пользователя.
package profile

import (
	"regexp"
	"strings"
)

// accentPalette — фиксированная палитра визуальных меток профиля.
// Значения совпадают с унаследованным форматом отображения и не меняются:
// от них зависит внешний вид уже существующих профилей.
var accentPalette = []string{
	"from-rose-500 to-pink-500",
	"from-sky-500 to-cyan-500",
	"from-amber-500 to-orange-500",
	"from-violet-500 to-fuchsia-500",
	"from-emerald-500 to-teal-500",
	"from-indigo-500 to-blue-500",
	"from-lime-500 to-emerald-500",
	"from-slate-500 to-slate-700",
}

const maxUsernameLen = 32

var (
	disallowedRunes = regexp.MustCompile(`[^a-z0-9-]+`)
	repeatedDashes  = regexp.MustCompile(`-{2,}`)
	nameSeparators  = regexp.MustCompile(`[.\-_]`)
)

// SlugifyUsername нормализует имя пользователя: нижний регистр,
// только [a-z0-9-], не длиннее 32 символов. Пустой результат означает,
// что из исходного значения нельзя получить допустимое имя.
func SlugifyUsername(value string) string {
	s := strings.ToLower(strings.TrimSpace(value))
	s = disallowedRunes.ReplaceAllString(s, "-")
	s = repeatedDashes.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > maxUsernameLen {
		s = s[:maxUsernameLen]
	}
	return s
}

// DefaultDisplayName выводит отображаемое имя по умолчанию из локальной
// части адреса почты: токены, разделенные точкой, дефисом и подчеркиванием,
// с заглавной первой буквой.
func DefaultDisplayName(email string) string {
	local := strings.TrimSpace(localPart(email))
	if local == "" {
		return "New User"
	}
	var tokens []string
	for _, token := range nameSeparators.Split(local, -1) {
		if token == "" {
			continue
		}
		tokens = append(tokens, strings.ToUpper(token[:1])+token[1:])
	}
	if len(tokens) == 0 {
		return "New User"
	}
	return strings.Join(tokens, " ")
}

// DefaultUsername выводит имя пользователя по умолчанию из локальной
// части адреса почты.
func DefaultUsername(email string) string {
	local := strings.TrimSpace(localPart(email))
	if local == "" {
		local = "user"
	}
	normalized := SlugifyUsername(local)
	if normalized == "" {
		return "user"
	}
	return normalized
}

// FormatHandle возвращает имя пользователя в виде "@username".
func FormatHandle(username string) string {
	if strings.HasPrefix(username, "@") {
		return username
	}
	return "@" + username
}

// hashSeed повторяет унаследованную 32-битную хеш-функцию,
// чтобы существующие профили сохранили свои метки.
func hashSeed(seed string) int {
	var hash int32
	for _, r := range seed {
		hash = (hash << 5) - hash + int32(r)
	}
	if hash < 0 {
		hash = -hash
	}
	return int(hash)
}

// PickAccentFromSeed детерминированно выбирает метку из палитры по строке-семени.
func PickAccentFromSeed(seed string) string {
	if seed == "" {
		return accentPalette[len(accentPalette)-1]
	}
	return accentPalette[hashSeed(seed)%len(accentPalette)]
}

func localPart(email string) string {
	if at := strings.Index(email, "@"); at >= 0 {
		return email[:at]
	}
	return email
}
