package countdown

import (
	"fmt"
	"strings"
	"time"

	"github.com/mcdev12/auctionhouse/go/internal/apperr"
)

// Phase is where an auction sits relative to its start and end instants.
type Phase string

const (
	PhaseNotStarted Phase = "NotStarted"
	PhaseActive     Phase = "Active"
	PhaseEnded      Phase = "Ended"
	PhaseInvalid    Phase = "Invalid"
)

const (
	msPerSecond = int64(1000)
	msPerMinute = 60 * msPerSecond
	msPerHour   = 60 * msPerMinute
	msPerDay    = 24 * msPerHour
)

// Delta is a pure duration broken into display units. No calendar arithmetic.
type Delta struct {
	Days    int64 `json:"days"`
	Hours   int64 `json:"hours"`
	Minutes int64 `json:"minutes"`
	Seconds int64 `json:"seconds"`
}

// NewDelta breaks d down by successive integer division of its milliseconds.
// Negative durations yield the zero Delta.
func NewDelta(d time.Duration) Delta {
	ms := d.Milliseconds()
	if ms <= 0 {
		return Delta{}
	}
	days := ms / msPerDay
	ms %= msPerDay
	hours := ms / msPerHour
	ms %= msPerHour
	minutes := ms / msPerMinute
	ms %= msPerMinute
	return Delta{
		Days:    days,
		Hours:   hours,
		Minutes: minutes,
		Seconds: ms / msPerSecond,
	}
}

// TotalSeconds folds the breakdown back into whole seconds.
func (d Delta) TotalSeconds() int64 {
	return d.Days*86400 + d.Hours*3600 + d.Minutes*60 + d.Seconds
}

func (d Delta) IsZero() bool {
	return d == Delta{}
}

// String renders DD:HH:MM:SS, each part zero padded to two digits.
func (d Delta) String() string {
	return fmt.Sprintf("%02d:%02d:%02d:%02d", d.Days, d.Hours, d.Minutes, d.Seconds)
}

// Result is one evaluation of an auction clock.
type Result struct {
	Phase Phase `json:"phase"`
	Delta Delta `json:"delta"`
}

// Calculate derives the phase at now. NotStarted counts down to start,
// Active counts down to end, Ended carries a zero delta.
// An end before start is Invalid.
func Calculate(now, start, end time.Time) Result {
	if start.IsZero() || end.IsZero() || end.Before(start) {
		return Result{Phase: PhaseInvalid}
	}
	switch {
	case now.Before(start):
		return Result{Phase: PhaseNotStarted, Delta: NewDelta(start.Sub(now))}
	case now.Before(end):
		return Result{Phase: PhaseActive, Delta: NewDelta(end.Sub(now))}
	default:
		return Result{Phase: PhaseEnded}
	}
}

// Evaluate parses the raw listing fields and calculates the phase.
// Unparseable input returns an Invalid result and ErrInvalidTimeInput.
func Evaluate(now time.Time, startDate, startTime, end string) (Result, error) {
	startAt, endAt, err := ParseWindow(startDate, startTime, end)
	if err != nil {
		return Result{Phase: PhaseInvalid}, err
	}
	res := Calculate(now, startAt, endAt)
	if res.Phase == PhaseInvalid {
		return res, fmt.Errorf("end %s before start %s: %w", endAt.Format(time.RFC3339), startAt.Format(time.RFC3339), apperr.ErrInvalidTimeInput)
	}
	return res, nil
}

// ParseWindow parses a listing's start date, start time-of-day and end instant.
func ParseWindow(startDate, startTime, end string) (time.Time, time.Time, error) {
	startAt, err := CombineStart(startDate, startTime)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	endAt, err := ParseInstant(end)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return startAt, endAt, nil
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

var clockLayouts = []string{
	"15:04:05",
	"15:04",
}

// CombineStart takes the date part of date and the time of day of clock,
// both read as UTC, and returns the absolute start instant.
func CombineStart(date, clock string) (time.Time, error) {
	d, err := parseWith(dateLayouts, strings.TrimSpace(date))
	if err != nil {
		return time.Time{}, fmt.Errorf("start date %q: %w", date, apperr.ErrInvalidTimeInput)
	}
	c, err := parseClock(strings.TrimSpace(clock))
	if err != nil {
		return time.Time{}, fmt.Errorf("start time %q: %w", clock, apperr.ErrInvalidTimeInput)
	}
	d = d.UTC()
	return time.Date(d.Year(), d.Month(), d.Day(), c.Hour(), c.Minute(), c.Second(), 0, time.UTC), nil
}

// ParseInstant parses an absolute instant such as an RFC 3339 timestamp.
func ParseInstant(s string) (time.Time, error) {
	t, err := parseWith(dateLayouts, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("instant %q: %w", s, apperr.ErrInvalidTimeInput)
	}
	return t.UTC(), nil
}

func parseClock(s string) (time.Time, error) {
	if t, err := parseWith(clockLayouts, s); err == nil {
		return t, nil
	}
	// full timestamps are accepted for the time of day as well
	return parseWith(dateLayouts[:3], s)
}

func parseWith(layouts []string, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty value")
	}
	var lastErr error
	for _, layout := range layouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
