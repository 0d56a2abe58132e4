package recurrence

import (
	"errors"
	"testing"
	"time"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func formatDates(ds []time.Time) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.Format("2006-01-02")
	}
	return out
}

func assertDates(t *testing.T, got []time.Time, want []string) {
	t.Helper()
	g := formatDates(got)
	if len(g) != len(want) {
		t.Fatalf("got %d dates %v, want %d %v", len(g), g, len(want), want)
	}
	for i := range want {
		if g[i] != want[i] {
			t.Errorf("date[%d] = %s, want %s", i, g[i], want[i])
		}
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		input string
		want  Rule
	}{
		{"daily", Daily()},
		{"weekly", Weekly(1)},
		{"biweekly", Biweekly()},
		{"monthly", Monthly()},
		{"Weekly", Weekly(1)},
		{" MONTHLY ", Monthly()},
		{"weekly:3", Weekly(3)},
	}

	for _, tt := range tests {
		got, err := Parse(tt.input)
		if err != nil {
			t.Errorf("Parse(%q) error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Parse(%q) = %+v, want %+v", tt.input, got, tt.want)
		}
	}
}

func TestParseErrors(t *testing.T) {
	tests := []string{
		"",
		"hourly",
		"yearly",
		"weekly:0",
		"weekly:x",
		"FREQ=WEEKLY",
	}

	for _, input := range tests {
		_, err := Parse(input)
		if !errors.Is(err, ErrUnknownRule) {
			t.Errorf("Parse(%q) err = %v, want ErrUnknownRule", input, err)
		}
	}
}

func TestStringRoundTrip(t *testing.T) {
	for _, r := range []Rule{Daily(), Weekly(1), Biweekly(), Weekly(4), Monthly()} {
		got, err := Parse(r.String())
		if err != nil {
			t.Fatalf("Parse(%q): %v", r.String(), err)
		}
		if got != r {
			t.Errorf("roundtrip %q -> %+v", r.String(), got)
		}
	}
	if (Rule{}).String() != "" {
		t.Errorf("zero rule String() = %q, want empty", Rule{}.String())
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		rule Rule
		want string
	}{
		{Daily(), "Repeats daily"},
		{Weekly(1), "Repeats weekly"},
		{Biweekly(), "Repeats every 2 weeks"},
		{Monthly(), "Repeats monthly"},
		{Rule{}, "Does not repeat"},
	}
	for _, tt := range tests {
		if got := tt.rule.Describe(); got != tt.want {
			t.Errorf("Describe() = %q, want %q", got, tt.want)
		}
	}
}

func TestWeeklyDates(t *testing.T) {
	got, err := Weekly(1).Dates(date("2025-01-01"), date("2025-01-22"))
	if err != nil {
		t.Fatalf("Dates: %v", err)
	}
	assertDates(t, got, []string{"2025-01-01", "2025-01-08", "2025-01-15", "2025-01-22"})
}

func TestBiweeklyDates(t *testing.T) {
	got, err := Biweekly().Dates(date("2025-01-01"), date("2025-02-11"))
	if err != nil {
		t.Fatalf("Dates: %v", err)
	}
	assertDates(t, got, []string{"2025-01-01", "2025-01-15", "2025-01-29"})
}

func TestDailyDates(t *testing.T) {
	got, err := Daily().Dates(date("2025-02-27"), date("2025-03-02"))
	if err != nil {
		t.Fatalf("Dates: %v", err)
	}
	assertDates(t, got, []string{"2025-02-27", "2025-02-28", "2025-03-01", "2025-03-02"})
}

func TestMonthlyClampsToMonthEnd(t *testing.T) {
	got, err := Monthly().Dates(date("2025-01-31"), date("2025-04-30"))
	if err != nil {
		t.Fatalf("Dates: %v", err)
	}
	assertDates(t, got, []string{"2025-01-31", "2025-02-28", "2025-03-31", "2025-04-30"})
}

func TestMonthlyLeapYear(t *testing.T) {
	got, err := Monthly().Dates(date("2024-01-30"), date("2024-03-30"))
	if err != nil {
		t.Fatalf("Dates: %v", err)
	}
	assertDates(t, got, []string{"2024-01-30", "2024-02-29", "2024-03-30"})
}

func TestMonthlyAcrossYear(t *testing.T) {
	got, err := Monthly().Dates(date("2025-11-15"), date("2026-02-14"))
	if err != nil {
		t.Fatalf("Dates: %v", err)
	}
	assertDates(t, got, []string{"2025-11-15", "2025-12-15", "2026-01-15"})
}

func TestSameStartAndEnd(t *testing.T) {
	for _, r := range []Rule{Daily(), Weekly(1), Monthly()} {
		got, err := r.Dates(date("2025-06-01"), date("2025-06-01"))
		if err != nil {
			t.Fatalf("%s: %v", r, err)
		}
		assertDates(t, got, []string{"2025-06-01"})
	}
}

func TestDatesIgnoresTimeOfDay(t *testing.T) {
	start := time.Date(2025, 1, 1, 23, 30, 0, 0, time.UTC)
	end := time.Date(2025, 1, 3, 1, 0, 0, 0, time.UTC)
	got, err := Daily().Dates(start, end)
	if err != nil {
		t.Fatalf("Dates: %v", err)
	}
	assertDates(t, got, []string{"2025-01-01", "2025-01-02", "2025-01-03"})
}

func TestEndBeforeStart(t *testing.T) {
	_, err := Weekly(1).Dates(date("2025-01-22"), date("2025-01-01"))
	if !errors.Is(err, ErrEndBeforeStart) {
		t.Errorf("err = %v, want ErrEndBeforeStart", err)
	}
}

func TestZeroRuleCannotExpand(t *testing.T) {
	_, err := Rule{}.Dates(date("2025-01-01"), date("2025-01-22"))
	if !errors.Is(err, ErrInvalidRule) {
		t.Errorf("err = %v, want ErrInvalidRule", err)
	}
}

func TestTooManyOccurrences(t *testing.T) {
	_, err := Daily().Dates(date("2025-01-01"), date("2030-01-01"))
	if !errors.Is(err, ErrTooManyOccurrences) {
		t.Errorf("daily err = %v, want ErrTooManyOccurrences", err)
	}

	_, err = Monthly().Dates(date("2025-01-01"), date("2100-01-01"))
	if !errors.Is(err, ErrTooManyOccurrences) {
		t.Errorf("monthly err = %v, want ErrTooManyOccurrences", err)
	}

	got, err := Daily().Dates(date("2025-01-01"), date("2025-01-01").AddDate(0, 0, MaxOccurrences-1))
	if err != nil {
		t.Fatalf("at cap: %v", err)
	}
	if len(got) != MaxOccurrences {
		t.Errorf("len = %d, want %d", len(got), MaxOccurrences)
	}
}

func TestUnmarshalText(t *testing.T) {
	var r Rule
	if err := r.UnmarshalText([]byte("biweekly")); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}
	if r != Biweekly() {
		t.Errorf("got %+v, want biweekly", r)
	}
	if err := r.UnmarshalText(nil); err != nil || !r.IsZero() {
		t.Errorf("empty text should give zero rule, got %+v err %v", r, err)
	}
	if err := r.UnmarshalText([]byte("sometimes")); !errors.Is(err, ErrUnknownRule) {
		t.Errorf("err = %v, want ErrUnknownRule", err)
	}
}
