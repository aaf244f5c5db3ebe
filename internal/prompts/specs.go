package prompts

const segmentSpec = `Respond with a JSON object matching this exact structure:

{
  "items": [
    {"marker": "<marker>", "title": "<title>", "description": "<description>", "page": 1, "parent_marker": ""}
  ],
  "last_heading": "<marker of the heading still open at the end of this window>"
}

Field constraints:
- marker: the item's number or letter as printed (e.g. "7", "B", "3a", "ii"); empty when unnumbered.
- title: the item's title copied from the text, without the marker.
- description: supporting text printed under the title, or an empty string.
- page: the 1-based page on which the item starts within the full document.
- parent_marker: the marker of the enclosing heading for nested sub-items, else "".
- last_heading: the marker of the top-level heading whose sub-items may continue in the next window, or "".

Behavioral constraints:
- Always respond with valid JSON, no markdown fencing
- Return an empty items array when the window holds no agenda items`

const verifyVotesSpec = `Respond with a JSON object matching this exact structure:

{
  "outcome": "<passed|failed|deferred|continued|unknown>",
  "tally": {"yes": 0, "no": 0, "abstain": 0, "absent": 0},
  "mover": "",
  "seconder": "",
  "votes": [{"member": "<name>", "vote": "<yes|no|abstain|absent>"}],
  "evidence": "<exact quote from the text supporting the outcome>",
  "confidence": 0.0
}

Field constraints:
- tally: null when the text gives no counts.
- votes: empty unless the text names how individual members voted.
- evidence: copied verbatim from the provided text; empty when outcome is unknown.
- confidence: 0.0 to 1.0.

Behavioral constraints:
- Always respond with valid JSON, no markdown fencing
- Use only the provided text`

const summarizeSpec = `Respond with a JSON object matching this exact structure:

{
  "summary": "<summary>"
}

Behavioral constraints:
- Always respond with valid JSON, no markdown fencing
- Plain sentences, no lists or headings`

var specs = map[Stage]string{
	StageSegment:     segmentSpec,
	StageVerifyVotes: verifyVotesSpec,
	StageSummarize:   summarizeSpec,
}

// Spec returns the built-in response specification for a stage.
// Response formats are fixed; prompt overrides replace instructions only.
// Returns ErrInvalidStage if the stage is not recognized.
func Spec(stage Stage) (string, error) {
	text, ok := specs[stage]
	if !ok {
		return "", ErrInvalidStage
	}
	return text, nil
}
