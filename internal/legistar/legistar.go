// Package legistar is a client for the Legistar Web API, the authoritative
// external source of agenda items and roll-call votes for covered places.
package legistar

import (
	"strings"
)

// EventItem is one agenda line of a Legistar event.
type EventItem struct {
	ID              int     `json:"EventItemId"`
	EventID         int     `json:"EventItemEventId"`
	AgendaSequence  int     `json:"EventItemAgendaSequence"`
	MinutesSequence int     `json:"EventItemMinutesSequence"`
	AgendaNumber    string  `json:"EventItemAgendaNumber"`
	Title           string  `json:"EventItemTitle"`
	ActionName      string  `json:"EventItemActionName"`
	ActionText      string  `json:"EventItemActionText"`
	PassedFlag      *int    `json:"EventItemPassedFlag"`
	PassedFlagName  string  `json:"EventItemPassedFlagName"`
	RollCallFlag    int     `json:"EventItemRollCallFlag"`
	Tally           string  `json:"EventItemTally"`
	Mover           string  `json:"EventItemMover"`
	Seconder        string  `json:"EventItemSeconder"`
	MatterName      string  `json:"EventItemMatterName"`
	MatterType      string  `json:"EventItemMatterType"`
	AgendaNote      *string `json:"EventItemAgendaNote"`
	MinutesNote     *string `json:"EventItemMinutesNote"`
}

// Vote is one member's recorded vote on an event item.
type Vote struct {
	ID         int    `json:"VoteId"`
	PersonName string `json:"VotePersonName"`
	ValueName  string `json:"VoteValueName"`
	Sort       int    `json:"VoteSort"`
}

// Agendized reports whether the item carries a title worth segmenting.
// Legistar returns section headers and empty rows alongside real items.
func (i EventItem) Agendized() bool {
	return strings.TrimSpace(i.Title) != ""
}

// Outcome maps the item's passed flag and action to an outcome name, or
// "unknown" when Legistar records nothing decisive.
func (i EventItem) Outcome() string {
	action := strings.ToLower(i.ActionName + " " + i.PassedFlagName)
	switch {
	case strings.Contains(action, "defer"), strings.Contains(action, "table"):
		return "deferred"
	case strings.Contains(action, "continu"):
		return "continued"
	}
	if i.PassedFlag != nil {
		if *i.PassedFlag == 1 {
			return "passed"
		}
		return "failed"
	}
	switch {
	case strings.Contains(action, "fail"), strings.Contains(action, "denied"):
		return "failed"
	case strings.Contains(action, "pass"), strings.Contains(action, "adopt"), strings.Contains(action, "approv"):
		return "passed"
	}
	return "unknown"
}

// VoteValue normalizes a Legistar vote value name to yes, no, abstain, or absent.
func VoteValue(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "aye", "yes", "yea", "affirmative", "in favor":
		return "yes"
	case "nay", "no", "opposed", "negative":
		return "no"
	case "abstain", "abstained", "present", "recused", "recuse":
		return "abstain"
	}
	return "absent"
}
