// Package ui provides the interactive prompts tapbump uses when a decision
// needs the user, such as proceeding despite an existing pull request.
package ui

import (
	"fmt"

	"github.com/AlecAivazis/survey/v2"
)

// Confirm asks the user a yes/no question and returns the answer.
// The default answer is no.
func Confirm(message string) (bool, error) {
	var answer bool
	prompt := &survey.Confirm{
		Message: message,
		Default: false,
	}

	if err := survey.AskOne(prompt, &answer); err != nil {
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	}

	return answer, nil
}
