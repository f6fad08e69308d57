package cli

import (
	"errors"
	"io"
	"os"

	"github.com/manifoldco/promptui"
)

// ErrNoInput is returned when a prompt is given nothing to work with.
var ErrNoInput = errors.New("you must enter something")

// Prompter asks the operator questions. The zero value reads os.Stdin and
// writes os.Stdout.
type Prompter struct {
	Stdin  io.ReadCloser
	Stdout io.WriteCloser
}

func (p Prompter) stdin() io.ReadCloser {
	if p.Stdin == nil {
		return os.Stdin
	}

	return p.Stdin
}

func (p Prompter) stdout() io.WriteCloser {
	if p.Stdout == nil {
		return os.Stdout
	}

	return p.Stdout
}

// Confirm asks a yes/no question. Aborting counts as no.
func (p Prompter) Confirm(label string) (bool, error) {
	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
		Stdin:     p.stdin(),
		Stdout:    p.stdout(),
	}

	_, err := prompt.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrAbort) {
			return false, nil
		}

		return false, err
	}

	return true, nil
}

// String asks for a non-empty string.
func (p Prompter) String(label string) (string, error) {
	prompt := promptui.Prompt{
		Label: label,
		Validate: func(s string) error {
			if len(s) == 0 {
				return ErrNoInput
			}

			return nil
		},
		Stdin:  p.stdin(),
		Stdout: p.stdout(),
	}

	return prompt.Run()
}

// PromptConfirm asks a yes/no question on the terminal.
func PromptConfirm(label string) (bool, error) {
	return Prompter{}.Confirm(label)
}

// PromptString asks for a non-empty string on the terminal.
func PromptString(label string) (string, error) {
	return Prompter{}.String(label)
}
