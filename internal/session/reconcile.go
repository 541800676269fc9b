package session

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// ReconcileLog pairs a user's Start/End entries in arrival order. The earliest
// pending Start closes first. An End with nothing pending is anchored at
// b.Earliest and every Start left pending at the end is closed at b.Latest.
// ok is false when the log produced no sessions.
func ReconcileLog(l Log, b Bounds) (s Summary, ok bool) {
	var (
		pending []time.Time
		head    int
		total   time.Duration
	)

	for _, e := range l {
		switch e.Action {
		case ActionStart:
			pending = append(pending, e.Time)
		case ActionEnd:
			if head < len(pending) {
				total += e.Time.Sub(pending[head])
				head++
				s.Matched++
			} else {
				total += e.Time.Sub(b.Earliest)
				s.DanglingEnds++
			}
			s.Sessions++
		}
	}

	for ; head < len(pending); head++ {
		total += b.Latest.Sub(pending[head])
		s.DanglingStarts++
		s.Sessions++
	}

	if s.Sessions == 0 {
		return Summary{}, false
	}
	s.TotalSeconds = total.Seconds()
	return s, true
}

// Reconcile builds the report for every user in g. b must already be final.
func Reconcile(g Grouped, b Bounds) Report {
	r := make(Report, g.Len())
	for _, user := range g.users {
		if s, ok := ReconcileLog(g.logs[user], b); ok {
			r[user] = s
		}
	}
	return r
}

// ReconcileConcurrent is Reconcile with up to workers users in flight.
// Each user's log is read by exactly one goroutine; b is shared read-only.
func ReconcileConcurrent(ctx context.Context, g Grouped, b Bounds, workers int) (Report, error) {
	if workers <= 1 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return Reconcile(g, b), nil
	}

	var (
		mu sync.Mutex
		r  = make(Report, g.Len())
	)

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for _, user := range g.users {
		user := user
		l := g.logs[user]
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			s, ok := ReconcileLog(l, b)
			if !ok {
				return nil
			}
			mu.Lock()
			r[user] = s
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return r, nil
}
