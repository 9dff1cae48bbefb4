package schedule

import (
	"testing"
	"time"
)

func fixedCalculator(t *testing.T) (*Calculator, time.Time) {
	t.Helper()
	loc, err := time.LoadLocation("UTC")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	now := time.Date(2026, time.March, 10, 9, 30, 45, 123, loc)
	calc := NewCalculator(WithClock(func() time.Time { return now }), WithLocation(loc))
	return calc, now
}

func TestResolveRelativeTomorrowPM(t *testing.T) {
	calc, now := fixedCalculator(t)

	ts, err := calc.ResolveRelative("tomorrow", 3, 0, "pm")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want := time.Date(now.Year(), now.Month(), now.Day()+1, 15, 0, 0, 0, now.Location())
	if ts != want.UnixMilli() {
		t.Fatalf("got %d want %d", ts, want.UnixMilli())
	}
}

func TestResolveRelativeToday(t *testing.T) {
	calc, now := fixedCalculator(t)

	ts, err := calc.ResolveRelative("today", 18, 45, "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want := time.Date(now.Year(), now.Month(), now.Day(), 18, 45, 0, 0, now.Location())
	if ts != want.UnixMilli() {
		t.Fatalf("got %d want %d", ts, want.UnixMilli())
	}
}

func TestResolveDate(t *testing.T) {
	calc, _ := fixedCalculator(t)

	ts, err := calc.ResolveDate("2026-12-24", 9, 15, "am")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want := time.Date(2026, time.December, 24, 9, 15, 0, 0, time.UTC)
	if ts != want.UnixMilli() {
		t.Fatalf("got %d want %d", ts, want.UnixMilli())
	}
}

func TestMeridiemConversion(t *testing.T) {
	cases := []struct {
		hour     int
		meridiem string
		want     int
	}{
		{3, "pm", 15},
		{12, "pm", 12},
		{12, "am", 0},
		{7, "am", 7},
		{23, "", 23},
	}
	for _, tc := range cases {
		got, err := to24Hour(tc.hour, tc.meridiem)
		if err != nil {
			t.Fatalf("to24Hour(%d, %q): %v", tc.hour, tc.meridiem, err)
		}
		if got != tc.want {
			t.Fatalf("to24Hour(%d, %q) = %d, want %d", tc.hour, tc.meridiem, got, tc.want)
		}
	}
}

func TestRejectsOutOfRange(t *testing.T) {
	calc, _ := fixedCalculator(t)

	if _, err := calc.ResolveRelative("yesterday", 3, 0, "pm"); err == nil {
		t.Fatalf("expected error for unsupported day")
	}
	if _, err := calc.ResolveRelative("today", 13, 0, "pm"); err == nil {
		t.Fatalf("expected error for hour 13pm")
	}
	if _, err := calc.ResolveRelative("today", 25, 0, ""); err == nil {
		t.Fatalf("expected error for hour 25")
	}
	if _, err := calc.ResolveDate("2026-13-40", 9, 0, ""); err == nil {
		t.Fatalf("expected error for bad date")
	}
}

// Seconds and milliseconds are always zeroed on the resolved timestamp.
func TestResolvedTimestampZeroesSeconds(t *testing.T) {
	calc, now := fixedCalculator(t)

	ts, err := calc.ResolveRelative("today", 10, 5, "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	resolved := time.UnixMilli(ts).In(now.Location())
	if resolved.Second() != 0 || resolved.Nanosecond() != 0 {
		t.Fatalf("expected zeroed seconds, got %v", resolved)
	}
}
