package dashboard

import (
	"strconv"
	"strings"

	"github.com/youmna-rabie/incident-relay/internal/types"
)

// Tone groups cards by how loudly they should be shown.
type Tone string

const (
	ToneInfo     Tone = "info"
	ToneDispatch Tone = "dispatch"
	ToneAlert    Tone = "alert"
)

// Field is one labelled value on a card. Only fields with a value are
// included.
type Field struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Card is the presentation of one event, shared by the web page and the
// terminal dashboard.
type Card struct {
	Title        string  `json:"title"`
	Tone         Tone    `json:"tone"`
	Fields       []Field `json:"fields"`
	HighPriority bool    `json:"high_priority,omitempty"`
	// Unknown is set when the event tag was not recognized and the card
	// fell back to the info layout.
	Unknown bool `json:"unknown,omitempty"`
}

// Render builds the card for ev.
func Render(ev types.Event) Card {
	switch p := ev.Payload().(type) {
	case types.DispatchEmergencyServices:
		return renderDispatch(p)
	case types.TransferToHuman:
		return renderTransfer(p)
	case types.UpdateInformation:
		card := renderInfo(p)
		card.Unknown = !ev.Type.Known()
		return card
	default:
		return Card{Title: "Info Update", Tone: ToneInfo, Unknown: true}
	}
}

func renderInfo(p types.UpdateInformation) Card {
	card := Card{Title: "Info Update", Tone: ToneInfo}
	card.add("Location", p.Location)
	card.add("Caller Type", p.CallerType)
	card.add("Situation", p.Situation)
	card.add("Emergency Summary", p.EmergencySummary)
	if p.GravityScore != nil {
		card.add("Gravity", strconv.Itoa(*p.GravityScore)+"/5")
	}
	return card
}

func renderDispatch(p types.DispatchEmergencyServices) Card {
	service := "Emergency Services"
	if p.ServiceType != "" {
		service = titleCase(string(p.ServiceType))
	}
	card := Card{
		Title:        "Dispatch: " + service,
		Tone:         ToneDispatch,
		HighPriority: p.HighPriority(),
	}
	card.add("Service", string(p.ServiceType))
	card.add("Priority", p.Priority)
	return card
}

func renderTransfer(p types.TransferToHuman) Card {
	card := Card{Title: "Transfer to Human", Tone: ToneAlert}
	card.add("Transfer", yesNo(p.Transfer))
	card.add("Human Requested", yesNo(p.HumanRequested))
	return card
}

func (c *Card) add(label, value string) {
	if value == "" {
		return
	}
	c.Fields = append(c.Fields, Field{Label: label, Value: value})
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func yesNo(b *bool) string {
	switch {
	case b == nil:
		return ""
	case *b:
		return "yes"
	default:
		return "no"
	}
}
