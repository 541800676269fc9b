package session

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(0, 1, 1, 0, 0, 0, 0, time.UTC)

func at(sec int) time.Time {
	return epoch.Add(time.Duration(sec) * time.Second)
}

func ev(sec int, user string, a Action) Event {
	return Event{Time: at(sec), Username: user, Action: a}
}

func TestAccumulate_Empty(t *testing.T) {
	g, _, ok := Accumulate(nil)
	assert.False(t, ok)
	assert.Equal(t, 0, g.Len())
	assert.Empty(t, g.Users())
}

func TestAccumulate_GroupsInArrivalOrder(t *testing.T) {
	events := []Event{
		ev(30, "bob", ActionStart),
		ev(10, "alice", ActionStart),
		ev(20, "bob", ActionEnd),
		ev(40, "alice", ActionEnd),
	}

	g, b, ok := Accumulate(events)
	require.True(t, ok)

	assert.Equal(t, []string{"bob", "alice"}, g.Users())
	assert.Equal(t, Log{
		{Time: at(30), Action: ActionStart},
		{Time: at(20), Action: ActionEnd},
	}, g.Log("bob"))
	assert.Equal(t, Log{
		{Time: at(10), Action: ActionStart},
		{Time: at(40), Action: ActionEnd},
	}, g.Log("alice"))

	assert.Equal(t, at(10), b.Earliest)
	assert.Equal(t, at(40), b.Latest)
}

func TestCollector_BoundsTiesKeepFirstSeen(t *testing.T) {
	first := at(5).In(time.FixedZone("A", 0))
	second := at(5).In(time.FixedZone("B", 0))

	c := NewCollector()
	c.Add(Event{Time: first, Username: "a", Action: ActionStart})
	c.Add(Event{Time: second, Username: "b", Action: ActionEnd})

	b, ok := c.Bounds()
	require.True(t, ok)
	assert.Equal(t, "A", b.Earliest.Location().String())
	assert.Equal(t, "A", b.Latest.Location().String())
	assert.Equal(t, 2, c.Events())
}

func TestCollector_BoundsOrderIndependent(t *testing.T) {
	events := []Event{
		ev(7, "a", ActionStart),
		ev(3, "b", ActionEnd),
		ev(12, "a", ActionEnd),
		ev(9, "c", ActionStart),
		ev(3, "c", ActionEnd),
	}
	_, want, _ := Accumulate(events)

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		shuffled := append([]Event(nil), events...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		_, got, ok := Accumulate(shuffled)
		require.True(t, ok)
		assert.True(t, want.Earliest.Equal(got.Earliest))
		assert.True(t, want.Latest.Equal(got.Latest))
	}
}

func TestParseAction(t *testing.T) {
	a, ok := ParseAction("Start")
	assert.True(t, ok)
	assert.Equal(t, ActionStart, a)

	a, ok = ParseAction("End")
	assert.True(t, ok)
	assert.Equal(t, ActionEnd, a)

	_, ok = ParseAction("start")
	assert.False(t, ok)
	_, ok = ParseAction("Pause")
	assert.False(t, ok)
}
