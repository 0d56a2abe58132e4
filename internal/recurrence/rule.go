package recurrence

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrUnknownRule        = errors.New("unknown recurrence rule")
	ErrInvalidRule        = errors.New("invalid recurrence rule")
	ErrEndBeforeStart     = errors.New("recurrence end date is before start date")
	ErrTooManyOccurrences = errors.New("recurrence produces too many occurrences")
)

type freq int

const (
	freqNone freq = iota
	freqDaily
	freqWeekly
	freqMonthly
)

// Rule is a recurrence rule. The only valid rules are the ones returned by
// Daily, Weekly, Biweekly, Monthly and Parse; the zero Rule means "does not
// repeat" and cannot be expanded.
type Rule struct {
	freq     freq
	interval int
}

func Daily() Rule {
	return Rule{freq: freqDaily, interval: 1}
}

// Weekly repeats every n weeks. n below 1 is treated as 1.
func Weekly(n int) Rule {
	if n < 1 {
		n = 1
	}
	return Rule{freq: freqWeekly, interval: n}
}

func Biweekly() Rule {
	return Weekly(2)
}

// Monthly repeats on the start date's day of month, clamped to the last day
// of shorter months.
func Monthly() Rule {
	return Rule{freq: freqMonthly, interval: 1}
}

// Parse parses a rule name: "daily", "weekly", "biweekly", "monthly", or
// "weekly:N" for every N weeks. Names are case-insensitive.
func Parse(s string) (Rule, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	switch name {
	case "daily":
		return Daily(), nil
	case "weekly":
		return Weekly(1), nil
	case "biweekly":
		return Biweekly(), nil
	case "monthly":
		return Monthly(), nil
	}

	if n, ok := strings.CutPrefix(name, "weekly:"); ok {
		weeks, err := strconv.Atoi(n)
		if err != nil || weeks < 1 {
			return Rule{}, fmt.Errorf("%w: %q", ErrUnknownRule, s)
		}
		return Weekly(weeks), nil
	}

	return Rule{}, fmt.Errorf("%w: %q", ErrUnknownRule, s)
}

// IsZero reports whether r is the "does not repeat" rule.
func (r Rule) IsZero() bool {
	return r.freq == freqNone
}

// String returns the name Parse accepts for r, or "" for the zero Rule.
func (r Rule) String() string {
	switch r.freq {
	case freqDaily:
		return "daily"
	case freqWeekly:
		switch r.interval {
		case 1:
			return "weekly"
		case 2:
			return "biweekly"
		}
		return fmt.Sprintf("weekly:%d", r.interval)
	case freqMonthly:
		return "monthly"
	}
	return ""
}

// Describe returns a human-readable description of the rule.
func (r Rule) Describe() string {
	switch r.freq {
	case freqDaily:
		return "Repeats daily"
	case freqWeekly:
		if r.interval == 1 {
			return "Repeats weekly"
		}
		return fmt.Sprintf("Repeats every %d weeks", r.interval)
	case freqMonthly:
		return "Repeats monthly"
	}
	return "Does not repeat"
}

func (r Rule) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Rule) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*r = Rule{}
		return nil
	}
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
