// Package prompt implements the domain.Prompter port for terminals and tests.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/daurydicaprio/nasback/internal/domain"
)

// Terminal is a Prompter that reads from an input stream and writes prompts
// to an output stream. Answering "q" or "quit" to any prompt aborts the flow.
type Terminal struct {
	in  *bufio.Reader
	out io.Writer

	// passwordFd is the file descriptor used for hidden password entry,
	// or -1 when input is not a terminal (passwords are then echoed).
	passwordFd int
}

// NewTerminal creates a Terminal prompter. Hidden password entry is enabled
// only when in is an interactive terminal.
func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	t := &Terminal{
		in:         bufio.NewReader(in),
		out:        out,
		passwordFd: -1,
	}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		t.passwordFd = int(f.Fd())
	}
	return t
}

// Input asks for a free-form value. An empty answer returns def.
func (t *Terminal) Input(prompt, def string) (string, error) {
	fmt.Fprintf(t.out, "%s: ", prompt)
	answer, err := t.readLine()
	if err != nil {
		return "", err
	}
	if answer == "" {
		return def, nil
	}
	return answer, nil
}

// Confirm asks a yes/no question. Empty and "n" answers mean no; anything
// else re-asks.
func (t *Terminal) Confirm(prompt string) (bool, error) {
	for {
		fmt.Fprintf(t.out, "%s (y/N): ", prompt)
		answer, err := t.readLine()
		if err != nil {
			return false, err
		}
		switch strings.ToLower(answer) {
		case "y", "yes":
			return true, nil
		case "n", "no", "":
			return false, nil
		}
	}
}

// Select presents a numbered menu and returns the zero-based index of the
// chosen option, re-asking until the answer is valid.
func (t *Terminal) Select(prompt string, options []string) (int, error) {
	if len(options) == 0 {
		return 0, &domain.InvalidInputError{Field: "selection", Reason: "no options to choose from"}
	}

	for i, option := range options {
		fmt.Fprintf(t.out, "%d) %s\n", i+1, option)
	}

	for {
		fmt.Fprintf(t.out, "%s (1-%d): ", prompt, len(options))
		answer, err := t.readLine()
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(answer)
		if err == nil && n >= 1 && n <= len(options) {
			return n - 1, nil
		}
		fmt.Fprintln(t.out, "Invalid selection, try again.")
	}
}

// Password asks for a secret. On a real terminal the input is not echoed.
// An empty answer is returned as-is so callers can generate one.
func (t *Terminal) Password(prompt string) (string, error) {
	fmt.Fprintf(t.out, "%s: ", prompt)

	if t.passwordFd >= 0 {
		secret, err := term.ReadPassword(t.passwordFd)
		fmt.Fprintln(t.out)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return strings.TrimSpace(string(secret)), nil
	}

	return t.readLine()
}

func (t *Terminal) readLine() (string, error) {
	line, err := t.in.ReadString('\n')
	if err != nil && line == "" {
		if err == io.EOF {
			return "", domain.ErrAborted
		}
		return "", err
	}

	answer := strings.TrimSpace(line)
	if strings.EqualFold(answer, "q") || strings.EqualFold(answer, "quit") {
		return "", domain.ErrAborted
	}
	return answer, nil
}

// Ensure Terminal implements domain.Prompter.
var _ domain.Prompter = (*Terminal)(nil)
