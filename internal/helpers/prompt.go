// Package helpers holds terminal prompts used by the CLI.
package helpers

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

const MinPasswordLength = 8

var (
	ErrPasswordTooShort    = fmt.Errorf("password must be at least %d characters long", MinPasswordLength)
	ErrPasswordInvalidChar = errors.New("password contains invalid characters (use letters, numbers, and special characters only)")
	ErrNotATerminal        = errors.New("stdin is not a terminal")
)

// PromptPassword reads a password from the terminal without echo. Callers
// should ZeroBytes the result when done.
func PromptPassword(prompt string) ([]byte, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, ErrNotATerminal
	}

	_, _ = fmt.Fprint(os.Stderr, prompt)
	pw, err := term.ReadPassword(fd)
	_, _ = fmt.Fprintln(os.Stderr)

	if err != nil {
		ZeroBytes(pw)
		return nil, fmt.Errorf("password input failed: %w", err)
	}
	if err := ValidatePassword(pw); err != nil {
		ZeroBytes(pw)
		return nil, err
	}
	return pw, nil
}

func ValidatePassword(pw []byte) error {
	if len(pw) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	for _, b := range pw {
		if !IsAllowedPasswordChar(b) {
			return ErrPasswordInvalidChar
		}
	}
	return nil
}

// IsAllowedPasswordChar accepts printable ASCII, space excluded.
func IsAllowedPasswordChar(b byte) bool {
	return b > ' ' && b <= '~'
}

func ZeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func PromptLineWithDefault(label, def string) string {
	return promptLine(os.Stdin, os.Stdout, label, def)
}

func promptLine(in io.Reader, out io.Writer, label, def string) string {
	if def != "" {
		_, _ = fmt.Fprintf(out, "%s [%s]: ", label, def)
	} else {
		_, _ = fmt.Fprintf(out, "%s: ", label)
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return def
	}

	line = strings.TrimSpace(line)
	if line == "" {
		return def
	}
	return line
}

// Confirm asks a yes/no question; anything but y/yes is no.
func Confirm(label string) bool {
	return confirm(os.Stdin, os.Stdout, label)
}

func confirm(in io.Reader, out io.Writer, label string) bool {
	ans := strings.ToLower(promptLine(in, out, label+" (y/N)", ""))
	return ans == "y" || ans == "yes"
}
