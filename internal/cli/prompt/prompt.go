// Package prompt provides interactive terminal input helpers: plain
// lines, yes/no confirmation and hidden password entry.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Line prompts for a single line of input.
func Line(reader io.Reader, writer io.Writer, label string) (string, error) {
	fmt.Fprintf(writer, "%s: ", label)

	scanner := bufio.NewScanner(reader)
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text()), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", fmt.Errorf("no input received")
}

// Confirm prompts for a yes/no answer. Anything other than y/yes
// (case-insensitive) is a no.
func Confirm(reader io.Reader, writer io.Writer, label string) (bool, error) {
	answer, err := Line(reader, writer, label+" [y/N]")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// Password prompts for a secret with hidden input when reader is an
// interactive terminal. Non-TTY input (pipes, tests) falls back to a
// plain line read.
func Password(reader io.Reader, writer io.Writer, label string) (string, error) {
	if f, ok := reader.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprintf(writer, "%s: ", label)
		secret, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(writer)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return strings.TrimSpace(string(secret)), nil
	}
	return Line(reader, writer, label)
}
