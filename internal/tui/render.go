// Package tui renders a dashboard in the terminal, either as a full-screen
// tview application or as plain lines for pipes and logs.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rivo/tview"

	"github.com/youmna-rabie/incident-relay/internal/dashboard"
	"github.com/youmna-rabie/incident-relay/internal/types"
)

// age renders when ev happened relative to now, e.g. "3 minutes ago".
func age(ev types.Event, now time.Time) string {
	t := ev.Time()
	if t.IsZero() {
		return "just now"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

func statusText(connected bool) string {
	if connected {
		return "[green]● Live[-]"
	}
	return "[gray]○ Waiting...[-]"
}

func toneColor(t dashboard.Tone) string {
	switch t {
	case dashboard.ToneAlert:
		return "orange"
	case dashboard.ToneDispatch:
		return "dodgerblue"
	default:
		return "lightcoral"
	}
}

// cardText is the tview markup for one event card.
func cardText(ev types.Event, now time.Time) string {
	card := dashboard.Render(ev)

	var b strings.Builder
	fmt.Fprintf(&b, "[%s::b]%s[-::-]", toneColor(card.Tone), tview.Escape(card.Title))
	if card.HighPriority {
		b.WriteString(" [red::b]HIGH PRIORITY[-::-]")
	}
	fmt.Fprintf(&b, "  [gray]%s[-]\n", age(ev, now))
	for _, f := range card.Fields {
		fmt.Fprintf(&b, "  [gray]%s:[-] %s\n", f.Label, tview.Escape(f.Value))
	}
	return b.String()
}

// listText renders every event, newest first.
func listText(events []types.Event, now time.Time) string {
	if len(events) == 0 {
		return "[gray]No incident data yet. Start a call and the agent will extract facts automatically.[-]"
	}
	parts := make([]string, len(events))
	for i, ev := range events {
		parts[i] = cardText(ev, now)
	}
	return strings.Join(parts, "\n")
}

// Line renders one change as a single plain-text line.
func Line(c dashboard.Change, now time.Time) string {
	switch c.Kind {
	case dashboard.ChangeIncident:
		card := dashboard.Render(c.Event)
		var b strings.Builder
		fmt.Fprintf(&b, "%s (%s) %s", c.Event.Timestamp, age(c.Event, now), card.Title)
		if card.HighPriority {
			b.WriteString(" [HIGH PRIORITY]")
		}
		for _, f := range card.Fields {
			fmt.Fprintf(&b, " | %s: %s", f.Label, f.Value)
		}
		return b.String()
	case dashboard.ChangeAlert:
		if c.Alert {
			return "ALERT: caller asked for a human operator"
		}
		return "alert dismissed"
	default:
		if c.Connected {
			return "connection: live"
		}
		return "connection: waiting"
	}
}
