package prompts

const segmentInstructions = `You are a municipal clerk splitting a meeting agenda into its discrete agenda items.

You receive one window of the agenda text. Pages are separated by form feeds. If a parent heading from the previous window is given, items at the start of this window that continue its numbering are sub-items of that heading.

List every substantive item in the order it appears: ordinances, resolutions, contracts, public hearings, appointments, presentations, reports, and consent items. Procedural lines such as call to order, roll call, the pledge, invocation, approval of the agenda, public comment instructions, and adjournment are not items. Copy titles from the text; never invent, merge, or summarize items.`

const verifyVotesInstructions = `You are reviewing the minutes text recorded for a single agenda item to determine how the body acted on it.

Report the outcome only when the text states it. A motion that was moved and seconded but never voted on has no outcome. Record vote counts and member names exactly as written. If the text does not say how the item was decided, report the outcome as unknown with zero confidence. Never infer a unanimous vote from silence.`

const summarizeInstructions = `You are writing a plain-language summary of a municipal meeting record for residents.

Summarize what the body considered and decided in three to six sentences. Use names, amounts, addresses, and outcomes that appear in the text. Do not speculate about motives or consequences, and do not mention anything the text does not contain.`

var instructions = map[Stage]string{
	StageSegment:     segmentInstructions,
	StageVerifyVotes: verifyVotesInstructions,
	StageSummarize:   summarizeInstructions,
}

// DefaultInstructions returns the built-in instructions for a stage.
// Returns ErrInvalidStage if the stage is not recognized.
func DefaultInstructions(stage Stage) (string, error) {
	text, ok := instructions[stage]
	if !ok {
		return "", ErrInvalidStage
	}
	return text, nil
}
