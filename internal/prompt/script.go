package prompt

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/daurydicaprio/nasback/internal/domain"
)

// Script is a Prompter fed from a queue of canned answers, for tests and
// automated harnesses. Every prompt shown is recorded.
type Script struct {
	answers []string

	// Prompts records each prompt in the order it was asked.
	Prompts []string
}

// NewScript creates a Script that answers prompts in order.
func NewScript(answers ...string) *Script {
	return &Script{answers: answers}
}

func (s *Script) next(prompt string) (string, error) {
	s.Prompts = append(s.Prompts, prompt)
	if len(s.answers) == 0 {
		return "", fmt.Errorf("script exhausted at prompt %q", prompt)
	}
	answer := s.answers[0]
	s.answers = s.answers[1:]
	return answer, nil
}

// Input returns the next scripted answer, or def when it is empty.
func (s *Script) Input(prompt, def string) (string, error) {
	answer, err := s.next(prompt)
	if err != nil {
		return "", err
	}
	if answer == "" {
		return def, nil
	}
	return answer, nil
}

// Confirm interprets the next scripted answer as yes/no.
func (s *Script) Confirm(prompt string) (bool, error) {
	answer, err := s.next(prompt)
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	case "n", "no", "":
		return false, nil
	default:
		return false, fmt.Errorf("script answer %q is not a yes/no", answer)
	}
}

// Select interprets the next scripted answer as a 1-based menu choice.
func (s *Script) Select(prompt string, options []string) (int, error) {
	answer, err := s.next(prompt)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(answer)
	if err != nil || n < 1 || n > len(options) {
		return 0, &domain.InvalidInputError{Field: "selection", Reason: fmt.Sprintf("script answer %q out of range", answer)}
	}
	return n - 1, nil
}

// Password returns the next scripted answer.
func (s *Script) Password(prompt string) (string, error) {
	return s.next(prompt)
}

// Ensure Script implements domain.Prompter.
var _ domain.Prompter = (*Script)(nil)
