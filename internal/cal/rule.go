package cal

import (
	"strconv"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

// Freq is a recurrence frequency unit.
type Freq int

const (
	FreqNone Freq = iota // absent or unrecognized
	FreqDaily
	FreqWeekly
	FreqMonthly
	FreqYearly
)

// Rule is the parsed form of an entry's recurrence rule text. Only the
// subset the expander acts on is modeled; other tokens are ignored.
type Rule struct {
	Freq     Freq
	Interval int       // always >= 1
	Until    *Temporal // inclusive bound on generated instants
	Count    int       // 0 means unset
}

// ParseRule tokenizes rule text of the form KEY=VALUE;KEY=VALUE;...
// Unknown keys and unparseable values fall back to their defaults.
func ParseRule(s string) Rule {
	r := Rule{Interval: 1}

	for _, tok := range strings.Split(s, ";") {
		key, value, ok := strings.Cut(strings.TrimSpace(tok), "=")
		if !ok {
			continue
		}
		switch key {
		case "FREQ":
			r.Freq = parseFreq(value)
		case "INTERVAL":
			if n, err := strconv.Atoi(value); err == nil && n > 0 {
				r.Interval = n
			}
		case "COUNT":
			if n, err := strconv.Atoi(value); err == nil && n > 0 {
				r.Count = n
			}
		case "UNTIL":
			if t, err := ParseTemporal(value); err == nil {
				r.Until = &t
			}
		}
	}

	return r
}

func parseFreq(s string) Freq {
	switch s {
	case "DAILY":
		return FreqDaily
	case "WEEKLY":
		return FreqWeekly
	case "MONTHLY":
		return FreqMonthly
	case "YEARLY":
		return FreqYearly
	default:
		return FreqNone
	}
}

// Advance moves t forward by interval units of f through calendar field
// arithmetic. AddDate normalizes overflow the way the expansion depends on
// (e.g. Jan 31 + 1 month rolls into March). FreqNone leaves t unchanged.
func Advance(t time.Time, interval int, f Freq) time.Time {
	switch f {
	case FreqDaily:
		return t.AddDate(0, 0, interval)
	case FreqWeekly:
		return t.AddDate(0, 0, 7*interval)
	case FreqMonthly:
		return t.AddDate(0, interval, 0)
	case FreqYearly:
		return t.AddDate(interval, 0, 0)
	default:
		return t
	}
}

// IgnoredRuleModifiers reports the RFC 5545 modifiers present in rule text
// that the expander does not act on, so loading can surface them as a
// warning instead of silently producing a different schedule. The full
// grammar parse is delegated to rrule-go; text it cannot parse at all
// yields nil (the restricted tokenizer still extracts what it can).
func IgnoredRuleModifiers(s string) []string {
	opt, err := rrule.StrToROption(s)
	if err != nil {
		return nil
	}

	var mods []string
	if len(opt.Byweekday) > 0 {
		mods = append(mods, "BYDAY")
	}
	if len(opt.Bymonthday) > 0 {
		mods = append(mods, "BYMONTHDAY")
	}
	if len(opt.Bymonth) > 0 {
		mods = append(mods, "BYMONTH")
	}
	if len(opt.Byyearday) > 0 {
		mods = append(mods, "BYYEARDAY")
	}
	if len(opt.Byweekno) > 0 {
		mods = append(mods, "BYWEEKNO")
	}
	if len(opt.Bysetpos) > 0 {
		mods = append(mods, "BYSETPOS")
	}
	if len(opt.Byhour) > 0 || len(opt.Byminute) > 0 || len(opt.Bysecond) > 0 {
		mods = append(mods, "BYHOUR/BYMINUTE/BYSECOND")
	}
	return mods
}
