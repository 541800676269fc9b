package session

// Grouped is the per-user view built by a Collector. Users are kept in the
// order they first appeared.
type Grouped struct {
	users []string
	logs  map[string]Log
}

// Users returns usernames in first-seen order.
func (g Grouped) Users() []string {
	return g.users
}

// Log returns the entries recorded for username.
func (g Grouped) Log(username string) Log {
	return g.logs[username]
}

// Len is the number of distinct users.
func (g Grouped) Len() int {
	return len(g.users)
}

// Collector groups events by user and tracks the global time bounds.
type Collector struct {
	grouped Grouped
	bounds  Bounds
	seen    bool
	events  int
}

func NewCollector() *Collector {
	return &Collector{
		grouped: Grouped{logs: make(map[string]Log)},
	}
}

// Add records ev. Ties on the bounds keep the first-seen timestamp.
func (c *Collector) Add(ev Event) {
	if !c.seen || ev.Time.Before(c.bounds.Earliest) {
		c.bounds.Earliest = ev.Time
	}
	if !c.seen || ev.Time.After(c.bounds.Latest) {
		c.bounds.Latest = ev.Time
	}
	c.seen = true
	c.events++

	if _, ok := c.grouped.logs[ev.Username]; !ok {
		c.grouped.users = append(c.grouped.users, ev.Username)
	}
	c.grouped.logs[ev.Username] = append(c.grouped.logs[ev.Username], Entry{Time: ev.Time, Action: ev.Action})
}

// Bounds reports the global bounds. ok is false until an event was added.
func (c *Collector) Bounds() (b Bounds, ok bool) {
	return c.bounds, c.seen
}

// Grouped returns the per-user logs collected so far.
func (c *Collector) Grouped() Grouped {
	return c.grouped
}

// Events is the number of events added.
func (c *Collector) Events() int {
	return c.events
}

// Accumulate collects events in one pass. When events is empty ok is false
// and the caller must not reconcile.
func Accumulate(events []Event) (g Grouped, b Bounds, ok bool) {
	c := NewCollector()
	for _, ev := range events {
		c.Add(ev)
	}
	b, ok = c.Bounds()
	return c.Grouped(), b, ok
}
