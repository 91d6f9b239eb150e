// Package ratelimit gates calls to external data sources by a per-minute
// spacing and an optional daily quota.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Quota is the call budget for one source.
type Quota struct {
	CallsPerMinute int `yaml:"calls_per_minute" mapstructure:"calls_per_minute"`
	DailyLimit     int `yaml:"daily_limit" mapstructure:"daily_limit"` // 0 = unlimited
}

// Interval is the minimum spacing between two calls.
func (q Quota) Interval() time.Duration {
	if q.CallsPerMinute <= 0 {
		return 0
	}
	return time.Minute / time.Duration(q.CallsPerMinute)
}

// state is the bookkeeping for one source. It lives only in memory.
type state struct {
	lastCall   time.Time
	nextFree   time.Time // earliest time the next call may start
	day        string
	callsToday int // booked or recorded calls on day
	pending    int // slots booked by Wait and not yet recorded
}

// Limiter tracks call timing per source. Sources without a quota are never
// limited. A Limiter is safe for concurrent use: Wait books a slot under the
// lock, so concurrent callers of one source are spaced by its interval.
type Limiter struct {
	mu     sync.Mutex
	quotas map[string]Quota
	states map[string]*state

	// nowFunc and sleepFunc allow test injection of time.
	nowFunc   func() time.Time
	sleepFunc func(ctx context.Context, d time.Duration) error
}

// New creates a Limiter for the given per-source quotas.
func New(quotas map[string]Quota) *Limiter {
	q := make(map[string]Quota, len(quotas))
	for name, quota := range quotas {
		q[name] = quota
	}
	return &Limiter{
		quotas:    q,
		states:    make(map[string]*state),
		nowFunc:   time.Now,
		sleepFunc: sleepCtx,
	}
}

// MayCall reports whether a call to source is allowed right now.
func (l *Limiter) MayCall(source string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.deficitLocked(source, l.nowFunc()) == 0
}

// Record notes that a call to source was made. Failed calls count too. A
// call whose slot was booked by Wait is not counted twice.
func (l *Limiter) Record(source string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()
	st := l.stateLocked(source)
	st.lastCall = now
	if next := now.Add(l.quotas[source].Interval()); next.After(st.nextFree) {
		st.nextFree = next
	}
	if st.pending > 0 {
		st.pending--
		return
	}
	rollDay(st, now)
	st.callsToday++
}

// Wait books the next free slot for source and blocks until it starts. The
// delay is computed once; Wait does not re-check or grow the delay
// afterwards. The booked call counts against the daily ceiling of the day
// the slot falls on.
func (l *Limiter) Wait(ctx context.Context, source string) error {
	l.mu.Lock()
	quota, ok := l.quotas[source]
	if !ok {
		l.mu.Unlock()
		return nil
	}
	now := l.nowFunc()
	st := l.stateLocked(source)
	rollDay(st, now)

	slot := now
	if st.nextFree.After(slot) {
		slot = st.nextFree
	}
	if quota.DailyLimit > 0 && dayKey(slot) == st.day && st.callsToday >= quota.DailyLimit {
		slot = nextMidnight(slot)
	}
	rollDay(st, slot)
	st.callsToday++
	st.pending++
	st.nextFree = slot.Add(quota.Interval())
	bookedDay := st.day
	l.mu.Unlock()

	d := slot.Sub(now)
	if d <= 0 {
		return nil
	}
	zap.L().Info("ratelimit: waiting for source",
		zap.String("source", source),
		zap.Duration("wait", d),
	)
	if err := l.sleepFunc(ctx, d); err != nil {
		l.release(source, bookedDay)
		return err
	}
	return nil
}

// release returns a slot booked by a Wait that was cancelled. The spacing
// already reserved is kept.
func (l *Limiter) release(source, day string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	st := l.stateLocked(source)
	if st.pending > 0 {
		st.pending--
	}
	if st.day == day && st.callsToday > 0 {
		st.callsToday--
	}
}

// Deficit returns how long until source may be called again.
func (l *Limiter) Deficit(source string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.deficitLocked(source, l.nowFunc())
}

// CallsToday returns the number of calls booked or recorded for source
// today.
func (l *Limiter) CallsToday(source string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	st, ok := l.states[source]
	if !ok || st.day != dayKey(l.nowFunc()) {
		return 0
	}
	return st.callsToday
}

func (l *Limiter) deficitLocked(source string, now time.Time) time.Duration {
	quota, ok := l.quotas[source]
	if !ok {
		return 0
	}
	st, ok := l.states[source]
	if !ok {
		return 0
	}

	if quota.DailyLimit > 0 && st.day == dayKey(now) && st.callsToday >= quota.DailyLimit {
		return nextMidnight(now).Sub(now)
	}
	if remaining := st.nextFree.Sub(now); remaining > 0 {
		return remaining
	}
	return 0
}

func (l *Limiter) stateLocked(source string) *state {
	st, ok := l.states[source]
	if !ok {
		st = &state{}
		l.states[source] = st
	}
	return st
}

func rollDay(st *state, t time.Time) {
	if day := dayKey(t); st.day != day {
		st.day = day
		st.callsToday = 0
	}
}

func nextMidnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, t.Location())
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
