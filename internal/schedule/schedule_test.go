package schedule

import (
	"testing"
	"time"
)

// 2026-08-29 is a Saturday.
func saturdayAt(hour, min int) time.Time {
	return time.Date(2026, 8, 29, hour, min, 0, 0, time.UTC)
}

func TestEvaluateSimpleRange(t *testing.T) {
	tests := []struct {
		name  string
		entry string
		now   time.Time
		want  Result
	}{
		{"inside", "09:00 -> 17:00", saturdayAt(12, 30), Matched},
		{"before start", "09:00 -> 17:00", saturdayAt(8, 59), NotMatched},
		{"after end", "09:00 -> 17:00", saturdayAt(17, 1), NotMatched},
		{"at start boundary", "09:00 -> 17:00", saturdayAt(9, 0), Matched},
		{"at end boundary", "09:00 -> 17:00", saturdayAt(17, 0), Matched},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := Evaluate(tt.entry, tt.now)
			if ev.Result != tt.want {
				t.Fatalf("Evaluate(%q, %s) = %s, want %s (reason: %s)", tt.entry, tt.now, ev.Result, tt.want, ev.Reason)
			}
		})
	}
}

func TestEvaluateMidnightCrossingEveningSide(t *testing.T) {
	now := saturdayAt(23, 0)
	ev := Evaluate("22:00 -> 06:00", now)
	if ev.Result != Matched {
		t.Fatalf("expected match at 23:00, got %s (reason: %s)", ev.Result, ev.Reason)
	}

	wantStart := time.Date(2026, 8, 29, 22, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2026, 8, 30, 6, 0, 0, 0, time.UTC)
	if !ev.Window.Start.Equal(wantStart) {
		t.Fatalf("window start = %s, want %s", ev.Window.Start, wantStart)
	}
	if !ev.Window.End.Equal(wantEnd) {
		t.Fatalf("window end = %s, want %s", ev.Window.End, wantEnd)
	}
}

func TestEvaluateMidnightCrossingMorningSide(t *testing.T) {
	now := saturdayAt(5, 0)
	ev := Evaluate("22:00 -> 06:00", now)
	if ev.Result != Matched {
		t.Fatalf("expected match at 05:00, got %s (reason: %s)", ev.Result, ev.Reason)
	}

	wantStart := time.Date(2026, 8, 28, 22, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2026, 8, 29, 6, 0, 0, 0, time.UTC)
	if !ev.Window.Start.Equal(wantStart) {
		t.Fatalf("window start = %s, want %s", ev.Window.Start, wantStart)
	}
	if !ev.Window.End.Equal(wantEnd) {
		t.Fatalf("window end = %s, want %s", ev.Window.End, wantEnd)
	}
}

func TestEvaluateMidnightCrossingDaytimeGap(t *testing.T) {
	// 07:00 is after the morning end and before the evening start.
	ev := Evaluate("22:00 -> 06:00", saturdayAt(7, 0))
	if ev.Result != NotMatched {
		t.Fatalf("expected no match at 07:00, got %s", ev.Result)
	}
}

func TestEvaluateMeridiemRange(t *testing.T) {
	ev := Evaluate("10PM -> 6AM", saturdayAt(23, 0))
	if ev.Result != Matched {
		t.Fatalf("expected match for 10PM -> 6AM at 23:00, got %s (reason: %s)", ev.Result, ev.Reason)
	}
}

func TestEvaluateWeekday(t *testing.T) {
	now := saturdayAt(14, 0)

	ev := Evaluate("Saturday", now)
	if ev.Result != Matched {
		t.Fatalf("expected Saturday to match on a Saturday, got %s", ev.Result)
	}
	wantStart := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2026, 8, 29, 23, 59, 59, 0, time.UTC)
	if !ev.Window.Start.Equal(wantStart) || !ev.Window.End.Equal(wantEnd) {
		t.Fatalf("full day window = [%s, %s], want [%s, %s]", ev.Window.Start, ev.Window.End, wantStart, wantEnd)
	}

	if ev := Evaluate("saturday", now); ev.Result != Matched {
		t.Fatalf("weekday match should be case-insensitive, got %s", ev.Result)
	}

	ev = Evaluate("Sunday", now)
	if ev.Result != NotMatched {
		t.Fatalf("expected Sunday not to match on a Saturday, got %s", ev.Result)
	}
	if !ev.Window.IsZero() {
		t.Fatalf("expected no window for a different weekday, got [%s, %s]", ev.Window.Start, ev.Window.End)
	}
}

func TestEvaluateWeekdayOnDSTTransitionDay(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tz database unavailable: %v", err)
	}

	// 2026-03-08 is a Sunday and the US spring-forward day; the local
	// day is only 23 hours long.
	now := time.Date(2026, 3, 8, 23, 30, 0, 0, loc)
	ev := Evaluate("Sunday", now)
	if ev.Result != Matched {
		t.Fatalf("expected Sunday to match at 23:30 local on a DST day, got %s (reason: %s)", ev.Result, ev.Reason)
	}

	wantEnd := time.Date(2026, 3, 8, 23, 59, 59, 0, loc)
	if !ev.Window.End.Equal(wantEnd) {
		t.Fatalf("window end = %s, want %s", ev.Window.End, wantEnd)
	}
}

func TestEvaluateCalendarDate(t *testing.T) {
	christmasNoon := time.Date(2026, 12, 25, 12, 0, 0, 0, time.UTC)
	if ev := Evaluate("December 25", christmasNoon); ev.Result != Matched {
		t.Fatalf("expected December 25 to match on Dec 25, got %s (reason: %s)", ev.Result, ev.Reason)
	}

	if ev := Evaluate("December 25", time.Date(2026, 12, 26, 0, 0, 1, 0, time.UTC)); ev.Result == Matched {
		t.Fatalf("expected December 25 not to match on Dec 26")
	}
}

func TestEvaluateMalformed(t *testing.T) {
	tests := []struct {
		name  string
		entry string
	}{
		{"three range parts", "10PM -> 6AM -> extra"},
		{"empty entry", "   "},
		{"unknown token", "Caturday"},
		{"empty range side", "22:00 -> "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := Evaluate(tt.entry, saturdayAt(12, 0))
			if ev.Result != Malformed {
				t.Fatalf("Evaluate(%q) = %s, want malformed", tt.entry, ev.Result)
			}
			if ev.Reason == "" {
				t.Fatalf("malformed evaluation should carry a reason")
			}
		})
	}
}

func TestSplit(t *testing.T) {
	got := Split(" 18:00->09:00, Saturday ,Sunday,, ")
	want := []string{"18:00->09:00", "Saturday", "Sunday"}
	if len(got) != len(want) {
		t.Fatalf("Split returned %d entries, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Split[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestMultiEntryTagMatchesWeekday(t *testing.T) {
	// On a Saturday at least the Saturday entry matches regardless of time.
	now := saturdayAt(12, 0)
	matched := false
	for _, entry := range Split("18:00->09:00,Saturday,Sunday") {
		if Evaluate(entry, now).Result == Matched {
			matched = true
			break
		}
	}
	if !matched {
		t.Fatalf("expected at least one entry to match on a Saturday")
	}
}
