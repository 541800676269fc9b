package logline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SoarinFerret/SessionTally/internal/session"
)

func TestParse(t *testing.T) {
	p := New("")

	tests := []struct {
		name   string
		line   string
		want   session.Event
		wantOK bool
	}{
		{
			name:   "start",
			line:   "14:02:03 ALICE99 Start",
			want:   session.Event{Time: time.Date(0, 1, 1, 14, 2, 3, 0, time.UTC), Username: "ALICE99", Action: session.ActionStart},
			wantOK: true,
		},
		{
			name:   "end with surrounding whitespace",
			line:   "  14:04:05\tCHARLIE   End \n",
			want:   session.Event{Time: time.Date(0, 1, 1, 14, 4, 5, 0, time.UTC), Username: "CHARLIE", Action: session.ActionEnd},
			wantOK: true,
		},
		{name: "blank", line: "", wantOK: false},
		{name: "two fields", line: "14:02:03 Start", wantOK: false},
		{name: "bad action", line: "14:02:03 ALICE99 Pause", wantOK: false},
		{name: "lowercase action", line: "14:02:03 ALICE99 start", wantOK: false},
		{name: "bad time", line: "25:02:03 ALICE99 Start", wantOK: false},
		{name: "garbage", line: "this is not a log line", wantOK: false},
		{name: "extra timestamp field", line: "14:02:03 extra ALICE99 Start", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := p.Parse(tt.line)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestParse_LayoutWithSpaces(t *testing.T) {
	p := New("2006-01-02 15:04:05.000")
	got, ok := p.Parse("2024-06-03 10:00:00.250 bob End")
	require.True(t, ok)
	assert.Equal(t, "bob", got.Username)
	assert.Equal(t, session.ActionEnd, got.Action)
	assert.Equal(t, 250*time.Millisecond, time.Duration(got.Time.Nanosecond()))
}

func TestParseErr_Reason(t *testing.T) {
	_, err := New("").ParseErr("14:02:03 ALICE99 Pause")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown action")
}

func TestFormat_RoundTrip(t *testing.T) {
	p := New("")
	ev := session.Event{Time: time.Date(0, 1, 1, 9, 30, 0, 0, time.UTC), Username: "carol", Action: session.ActionStart}
	line := p.Format(ev)
	assert.Equal(t, "09:30:00 carol Start", line)

	got, ok := p.Parse(line)
	require.True(t, ok)
	assert.Equal(t, ev, got)
}

func TestParser_DefaultLayout(t *testing.T) {
	assert.Equal(t, DefaultLayout, New("").Layout)

	var zero Parser
	ev, ok := zero.Parse("09:15:00 bob Start")
	require.True(t, ok)
	assert.Equal(t, "09:15:00 bob Start", zero.Format(ev))
}
