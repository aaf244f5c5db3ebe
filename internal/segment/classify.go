package segment

import (
	"strings"

	"github.com/JaimeStill/docket/pkg/fuzzy"
)

// Classifications assigned to agenda items.
const (
	ClassConsent       = "consent"
	ClassPublicHearing = "public_hearing"
	ClassOrdinance     = "ordinance"
	ClassResolution    = "resolution"
	ClassContract      = "contract"
	ClassAppointment   = "appointment"
	ClassPresentation  = "presentation"
	ClassReport        = "report"
	ClassGeneral       = "general"
)

// Rules are checked in order; the first keyword hit wins. Title hits beat
// description hits.
var classRules = []struct {
	class    string
	keywords []string
}{
	{ClassPublicHearing, []string{"public hearing", "hearing to consider"}},
	{ClassConsent, []string{"consent calendar", "consent agenda", "consent items"}},
	{ClassOrdinance, []string{"ordinance", "first reading", "second reading", "code amendment"}},
	{ClassResolution, []string{"resolution"}},
	{ClassContract, []string{"contract", "agreement", "purchase order", "bid award", "award of bid", "change order", "memorandum of understanding"}},
	{ClassAppointment, []string{"appoint", "reappoint", "nomination", "vacancy"}},
	{ClassPresentation, []string{"presentation", "proclamation", "recognition", "commendation"}},
	{ClassReport, []string{"report", "update", "briefing", "minutes of"}},
}

// Classify assigns a keyword classification to an item.
func Classify(title, description string) string {
	if c := classifyText(fuzzy.Normalize(title)); c != "" {
		return c
	}
	if c := classifyText(fuzzy.Normalize(description)); c != "" {
		return c
	}
	return ClassGeneral
}

func classifyText(norm string) string {
	if norm == "" {
		return ""
	}
	padded := " " + norm + " "
	for _, rule := range classRules {
		for _, kw := range rule.keywords {
			if strings.Contains(padded, " "+kw) {
				return rule.class
			}
		}
	}
	return ""
}
