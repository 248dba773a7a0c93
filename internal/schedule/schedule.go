package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/markusmobius/go-dateparser"
)

// Entries come in two shapes:
//
//	"22:00 -> 06:00"   a time range; free-form timestamps, bare times fall on today
//	"Saturday"         a full-day window on that weekday
//	"December 25"      a full-day window on that date
//
// A schedule tag is a comma separated list of entries.

const rangeDelimiter = "->"

// Result classifies the evaluation of one entry against one instant.
type Result int

const (
	NotMatched Result = iota
	Matched
	Malformed
)

func (r Result) String() string {
	switch r {
	case Matched:
		return "matched"
	case NotMatched:
		return "not matched"
	case Malformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Window is the occurrence of an entry nearest to "now", with Start <= End.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains is inclusive at both bounds.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

func (w Window) IsZero() bool {
	return w.Start.IsZero() && w.End.IsZero()
}

// Evaluation is an explicit result so callers (and tests) can tell a
// malformed entry apart from a clean miss. Both count as "no match"
// when deciding power state; Reason is only set for Malformed.
type Evaluation struct {
	Result Result
	Window Window
	Reason string
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Split breaks a schedule tag into its entries, trimming whitespace and
// dropping empty segments.
func Split(tag string) []string {
	parts := strings.Split(tag, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Evaluate resolves one entry into a concrete window relative to now and
// tests membership. It never fails hard: unparseable entries come back
// as Malformed with a reason describing the expected syntax.
func Evaluate(entry string, now time.Time) Evaluation {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return Evaluation{Result: Malformed, Reason: "empty schedule entry"}
	}

	if strings.Contains(entry, rangeDelimiter) {
		return evaluateRange(entry, now)
	}
	return evaluateDay(entry, now)
}

func evaluateRange(entry string, now time.Time) Evaluation {
	parts := strings.Split(entry, rangeDelimiter)
	if len(parts) != 2 {
		return Evaluation{
			Result: Malformed,
			Reason: fmt.Sprintf("expected exactly one %q between start and end, got %d parts (want e.g. \"22:00 -> 06:00\")", rangeDelimiter, len(parts)),
		}
	}

	start, err := parseInstant(parts[0], now)
	if err != nil {
		return Evaluation{Result: Malformed, Reason: err.Error()}
	}
	end, err := parseInstant(parts[1], now)
	if err != nil {
		return Evaluation{Result: Malformed, Reason: err.Error()}
	}

	// A range like "22:00 -> 06:00" crosses midnight. Disambiguate with
	// now: inside today's evening half the window runs into tomorrow,
	// otherwise it started yesterday.
	if start.After(end) {
		midnight := startOfDay(now).AddDate(0, 0, 1)
		if !now.Before(start) && now.Before(midnight) {
			end = end.AddDate(0, 0, 1)
		} else {
			start = start.AddDate(0, 0, -1)
		}
	}

	return evaluationFor(Window{Start: start, End: end}, now)
}

func evaluateDay(token string, now time.Time) Evaluation {
	if wd, ok := weekdays[strings.ToLower(token)]; ok {
		if wd != now.Weekday() {
			// Another weekday never matches today; no window to resolve.
			return Evaluation{Result: NotMatched}
		}
		return evaluationFor(fullDay(now), now)
	}

	// Not a weekday name; treat it as a calendar date like "December 25".
	day, err := parseInstant(token, now)
	if err != nil {
		return Evaluation{
			Result: Malformed,
			Reason: fmt.Sprintf("%v (want a weekday name, a date like \"December 25\", or \"<start> -> <end>\")", err),
		}
	}
	return evaluationFor(fullDay(day), now)
}

func evaluationFor(w Window, now time.Time) Evaluation {
	if w.Contains(now) {
		return Evaluation{Result: Matched, Window: w}
	}
	return Evaluation{Result: NotMatched, Window: w}
}

// parseInstant parses a free-form timestamp. Partial inputs borrow the
// missing pieces from now, so a bare "22:00" lands on today.
func parseInstant(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}

	cfg := &dateparser.Configuration{
		CurrentTime:     now,
		DefaultTimezone: now.Location(),
	}
	dt, err := dateparser.Parse(cfg, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("unparseable timestamp %q: %w", s, err)
	}
	return dt.Time, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// fullDay is the whole-day window [00:00:00, 23:59:59] around t.
// Both bounds come from wall-clock fields; adding 24h would drift on
// DST transition days.
func fullDay(t time.Time) Window {
	y, m, d := t.Date()
	return Window{
		Start: time.Date(y, m, d, 0, 0, 0, 0, t.Location()),
		End:   time.Date(y, m, d, 23, 59, 59, 0, t.Location()),
	}
}
