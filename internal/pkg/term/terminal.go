// Package term содержит интерактивный ввод для клиента командной строки.
package term

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
	"golang.org/x/xerrors"
)

// Terminal обеспечивает интерактивный ввод через терминал.
type Terminal struct {
	in      *bufio.Reader
	out     io.Writer
	stdinfd int
}

// NewTerminal создает новый экземпляр Terminal поверх стандартных потоков.
func NewTerminal() *Terminal {
	return &Terminal{
		in:      bufio.NewReader(os.Stdin),
		out:     os.Stdout,
		stdinfd: int(os.Stdin.Fd()),
	}
}

// ReadLine выводит приглашение и читает строку без завершающего перевода.
func (t *Terminal) ReadLine(prompt string) (string, error) {
	fmt.Fprint(t.out, prompt)
	line, err := t.in.ReadString('\n')
	if err != nil {
		return "", xerrors.Errorf("failed to read line: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// ReadSecret читает строку без эха. Для неинтерактивного стандартного
// ввода откатывается к обычному чтению строки.
func (t *Terminal) ReadSecret(prompt string) (string, error) {
	fmt.Fprint(t.out, prompt)
	if !term.IsTerminal(t.stdinfd) {
		line, err := t.in.ReadString('\n')
		if err != nil {
			return "", xerrors.Errorf("failed to read secret: %w", err)
		}
		return strings.TrimSpace(line), nil
	}

	byteSecret, err := term.ReadPassword(t.stdinfd)
	if err != nil {
		return "", xerrors.Errorf("failed to read secret: %w", err)
	}
	fmt.Fprintln(t.out) // Новая строка после ввода
	return strings.TrimSpace(string(byteSecret)), nil
}

// Printf пишет форматированную строку в вывод терминала.
func (t *Terminal) Printf(format string, args ...interface{}) {
	fmt.Fprintf(t.out, format, args...)
}
