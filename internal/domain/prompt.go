package domain

// Prompter abstracts interactive terminal input so the same flow logic can
// run under automated test harnesses with scripted responses.
type Prompter interface {
	// Input asks for a free-form value. An empty answer returns def.
	Input(prompt, def string) (string, error)

	// Confirm asks a yes/no question. Empty or "n" answers mean no.
	Confirm(prompt string) (bool, error)

	// Select presents a numbered menu and returns the zero-based index of
	// the chosen option, re-asking until the answer is valid.
	Select(prompt string, options []string) (int, error)

	// Password asks for a secret without echoing it. May return empty.
	Password(prompt string) (string, error)
}
