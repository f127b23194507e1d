package timeline

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

var (
	ErrNotMonotonic = errors.New("timeline is not strictly increasing")
	ErrNoCalendar   = errors.New("calendar is not set")
)

// OverflowPolicy tells a calendar what to do when a date does not fall on a
// trading day.
type OverflowPolicy int

const (
	OverflowRaise OverflowPolicy = iota
	OverflowForward
	OverflowBackward
)

// Calendar is the external source of trading timestamps.
type Calendar interface {
	AddTradingDays(date time.Time, n int, policy OverflowPolicy) (time.Time, error)
	Timestamps(from, to time.Time, freq time.Duration) ([]time.Time, error)
}

// Timeline is an immutable strictly increasing sequence of timestamps.
type Timeline struct {
	timeStamps []time.Time
}

func New(timeStamps []time.Time) (Timeline, error) {
	for idx := 1; idx < len(timeStamps); idx++ {
		if !timeStamps[idx].After(timeStamps[idx-1]) {
			return Timeline{}, fmt.Errorf("timestamp %v at index %d does not follow %v: %w",
				timeStamps[idx], idx, timeStamps[idx-1], ErrNotMonotonic)
		}
	}

	cp := make([]time.Time, len(timeStamps))
	copy(cp, timeStamps)
	return Timeline{timeStamps: cp}, nil
}

func FromCalendar(calendar Calendar, from, to time.Time, freq time.Duration) (Timeline, error) {
	if calendar == nil {
		return Timeline{}, ErrNoCalendar
	}
	timeStamps, err := calendar.Timestamps(from, to, freq)
	if err != nil {
		return Timeline{}, fmt.Errorf("unable to generate timestamps from %v to %v: %w", from, to, err)
	}
	return New(timeStamps)
}

func (t Timeline) Len() int {
	return len(t.timeStamps)
}

// After returns the first timestamp strictly after ts.
func (t Timeline) After(ts time.Time) (time.Time, bool) {
	idx := sort.Search(len(t.timeStamps), func(i int) bool {
		return t.timeStamps[i].After(ts)
	})
	if idx == len(t.timeStamps) {
		return time.Time{}, false
	}
	return t.timeStamps[idx], true
}

func (t Timeline) First() (time.Time, bool) {
	if len(t.timeStamps) == 0 {
		return time.Time{}, false
	}
	return t.timeStamps[0], true
}

func (t Timeline) Contains(ts time.Time) bool {
	idx := sort.Search(len(t.timeStamps), func(i int) bool {
		return !t.timeStamps[i].Before(ts)
	})
	return idx < len(t.timeStamps) && t.timeStamps[idx].Equal(ts)
}

func (t Timeline) TimeStamps() []time.Time {
	cp := make([]time.Time, len(t.timeStamps))
	copy(cp, t.timeStamps)
	return cp
}
