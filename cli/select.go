package cli

import (
	"strings"

	"github.com/manifoldco/promptui"
)

// Select asks the operator to pick one of choices. Typing filters the list
// by prefix.
func (p Prompter) Select(label string, choices ...string) (string, error) {
	if len(choices) == 0 {
		return "", ErrNoInput
	}

	sel := &promptui.Select{
		Label: label,
		Items: choices,
		Searcher: func(input string, index int) bool {
			return input != "" && strings.HasPrefix(choices[index], input)
		},
		Stdin:  p.stdin(),
		Stdout: p.stdout(),
	}

	_, value, err := sel.Run()
	if err != nil {
		return "", err
	}

	return value, nil
}

// Select picks one of choices on the terminal.
func Select(label string, choices ...string) (string, error) {
	return Prompter{}.Select(label, choices...)
}
