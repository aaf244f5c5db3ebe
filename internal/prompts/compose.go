package prompts

import (
	"context"
	"fmt"
)

// Instructor resolves the instructions in force for a stage.
type Instructor interface {
	Instructions(ctx context.Context, stage Stage) (string, error)
}

// Compose builds a stage's system prompt from its effective instructions
// and its response spec. A nil ps uses the built-in instructions.
func Compose(ctx context.Context, ps Instructor, stage Stage) (string, error) {
	var (
		instructions string
		err          error
	)
	if ps == nil {
		instructions, err = DefaultInstructions(stage)
	} else {
		instructions, err = ps.Instructions(ctx, stage)
	}
	if err != nil {
		return "", fmt.Errorf("load instructions for %s: %w", stage, err)
	}

	spec, err := Spec(stage)
	if err != nil {
		return "", fmt.Errorf("load spec for %s: %w", stage, err)
	}

	return Effective{Stage: stage, Instructions: instructions, Spec: spec}.Composed(), nil
}
