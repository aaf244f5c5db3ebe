// Package prompts manages the instructions sent to the inference engine.
// Each stage has built-in instructions and an immutable response spec;
// operators may activate one named override per stage.
package prompts

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxInstructionChars bounds an override so it cannot crowd the document
// text out of the engine's context window.
const MaxInstructionChars = 8000

type Prompt struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Stage        Stage     `json:"stage"`
	Instructions string    `json:"instructions"`
	Description  *string   `json:"description"`
	Active       bool      `json:"active"`
}

// Command is the body of a create or full update.
type Command struct {
	Name         string  `json:"name"`
	Stage        Stage   `json:"stage"`
	Instructions string  `json:"instructions"`
	Description  *string `json:"description"`
}

// Validate trims the command in place and rejects blank or oversized fields.
func (c *Command) Validate() error {
	c.Name = strings.TrimSpace(c.Name)
	c.Instructions = strings.TrimSpace(c.Instructions)

	if c.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidPrompt)
	}
	if _, err := ParseStage(string(c.Stage)); err != nil {
		return err
	}
	if c.Instructions == "" {
		return fmt.Errorf("%w: instructions are required", ErrInvalidPrompt)
	}
	if n := utf8.RuneCountInString(c.Instructions); n > MaxInstructionChars {
		return fmt.Errorf("%w: instructions are %d characters, limit %d", ErrInvalidPrompt, n, MaxInstructionChars)
	}
	return nil
}

// Effective is what a stage will actually send: the override in force (if
// any), the instructions it resolves to, and the fixed response spec.
type Effective struct {
	Stage        Stage   `json:"stage"`
	Override     *Prompt `json:"override"`
	Instructions string  `json:"instructions"`
	Spec         string  `json:"spec"`
}

// Composed joins instructions and spec the way Compose does.
func (e Effective) Composed() string {
	return e.Instructions + "\n\n" + e.Spec
}
