package prompts

import (
	"encoding/json"
	"slices"
)

// Stage is an inference-backed pipeline stage that a prompt can target.
type Stage string

const (
	StageSegment     Stage = "segment"
	StageVerifyVotes Stage = "verify_votes"
	StageSummarize   Stage = "summarize"
)

var stages = []Stage{StageSegment, StageVerifyVotes, StageSummarize}

func Stages() []Stage {
	return slices.Clone(stages)
}

func ParseStage(s string) (Stage, error) {
	if v := Stage(s); slices.Contains(stages, v) {
		return v, nil
	}
	return "", ErrInvalidStage
}

func (s *Stage) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v, err := ParseStage(raw)
	if err != nil {
		return err
	}
	*s = v
	return nil
}
