// Package logline turns raw text lines into session events.
//
// A line has the form "<timestamp> <username> <action>". The action is the
// last whitespace-separated field, the username the one before it, and the
// timestamp everything in front, so layouts containing spaces work.
package logline

import (
	"fmt"
	"strings"
	"time"

	"github.com/SoarinFerret/SessionTally/internal/session"
)

// DefaultLayout matches HH:MM:SS timestamps.
const DefaultLayout = "15:04:05"

type Parser struct {
	Layout string
}

func New(layout string) Parser {
	p := Parser{Layout: layout}
	p.Layout = p.layout()
	return p
}

// Parse returns the event on line, or false if the line is not parseable.
func (p Parser) Parse(line string) (session.Event, bool) {
	ev, err := p.parse(line)
	return ev, err == nil
}

// ParseErr is Parse with the reason a line was rejected.
func (p Parser) ParseErr(line string) (session.Event, error) {
	return p.parse(line)
}

func (p Parser) parse(line string) (session.Event, error) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return session.Event{}, fmt.Errorf("expected at least 3 fields, got %d", len(fields))
	}

	n := len(fields)
	action, ok := session.ParseAction(fields[n-1])
	if !ok {
		return session.Event{}, fmt.Errorf("unknown action %q", fields[n-1])
	}

	stamp := strings.Join(fields[:n-2], " ")
	ts, err := time.Parse(p.layout(), stamp)
	if err != nil {
		return session.Event{}, fmt.Errorf("invalid timestamp %q: %w", stamp, err)
	}

	return session.Event{
		Time:     ts,
		Username: fields[n-2],
		Action:   action,
	}, nil
}

// Format renders ev as a line Parse accepts with the same layout.
func (p Parser) Format(ev session.Event) string {
	return fmt.Sprintf("%s %s %s", ev.Time.Format(p.layout()), ev.Username, ev.Action)
}

// layout covers a zero Parser built without New.
func (p Parser) layout() string {
	if p.Layout == "" {
		return DefaultLayout
	}
	return p.Layout
}
