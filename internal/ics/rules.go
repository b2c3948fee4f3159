package ics

import (
	"strconv"
	"strings"
	"time"
)

// Frequencies the expander knows how to walk.
const (
	freqWeekly  = "WEEKLY"
	freqMonthly = "MONTHLY"
)

// rule is one parsed recurrence rule. Unrecognized keys, COUNT included,
// are ignored.
type rule struct {
	freq       string
	interval   int
	until      time.Time
	hasUntil   bool
	byDay      []weekdayToken
	byMonthDay []int
	bySetPos   []int
	wkst       time.Weekday
}

// weekdayToken is one BYDAY entry: a weekday plus an optional signed
// ordinal (2MO is the second Monday, -1FR the last Friday; 0 means no
// ordinal).
type weekdayToken struct {
	day     time.Weekday
	ordinal int
}

// parseRule parses ';'-joined KEY=VALUE pairs. Values may be quote
// wrapped; UNTIL uses the Z grammar when it ends in Z and the civil/date
// grammar in loc otherwise (an inclusive bound). INTERVAL defaults to 1
// with a floor of 1; WKST defaults to Sunday.
func parseRule(text string, loc *time.Location) rule {
	r := rule{interval: 1, wkst: time.Sunday}
	for _, pair := range strings.Split(text, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		eq := strings.IndexByte(pair, '=')
		if eq < 0 {
			continue
		}
		key := strings.ToUpper(strings.TrimSpace(pair[:eq]))
		val := strings.Trim(strings.TrimSpace(pair[eq+1:]), `"`)
		switch key {
		case "FREQ":
			r.freq = strings.ToUpper(val)
		case "INTERVAL":
			if n, err := strconv.Atoi(val); err == nil && n > 1 {
				r.interval = n
			}
		case "UNTIL":
			if t, _, err := parseDateValue(val, loc); err == nil {
				r.until = t
				r.hasUntil = true
			}
		case "BYDAY":
			r.byDay = parseWeekdayTokens(val)
		case "BYMONTHDAY":
			r.byMonthDay = parseIntList(val)
		case "BYSETPOS":
			r.bySetPos = parseIntList(val)
		case "WKST":
			if d, ok := weekdayFromCode(val); ok {
				r.wkst = d
			}
		}
	}
	return r
}

func parseWeekdayTokens(val string) []weekdayToken {
	var tokens []weekdayToken
	for _, tok := range strings.Split(val, ",") {
		if wt, ok := parseWeekdayToken(tok); ok {
			tokens = append(tokens, wt)
		}
	}
	return tokens
}

func parseWeekdayToken(tok string) (weekdayToken, bool) {
	tok = strings.ToUpper(strings.TrimSpace(tok))
	if len(tok) < 2 {
		return weekdayToken{}, false
	}
	day, ok := weekdayFromCode(tok[len(tok)-2:])
	if !ok {
		return weekdayToken{}, false
	}
	ordinal := 0
	if len(tok) > 2 {
		n, err := strconv.Atoi(tok[:len(tok)-2])
		if err != nil || n == 0 {
			return weekdayToken{}, false
		}
		ordinal = n
	}
	return weekdayToken{day: day, ordinal: ordinal}, true
}

func weekdayFromCode(code string) (time.Weekday, bool) {
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case "SU":
		return time.Sunday, true
	case "MO":
		return time.Monday, true
	case "TU":
		return time.Tuesday, true
	case "WE":
		return time.Wednesday, true
	case "TH":
		return time.Thursday, true
	case "FR":
		return time.Friday, true
	case "SA":
		return time.Saturday, true
	}
	return time.Sunday, false
}

func parseIntList(val string) []int {
	var out []int
	for _, s := range strings.Split(val, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil || n == 0 {
			continue
		}
		out = append(out, n)
	}
	return out
}

// weekdayInTokens reports set membership by weekday alone; ordinal
// prefixes are ignored. Used by the WEEKLY walk and the BYSETPOS pool.
func weekdayInTokens(tokens []weekdayToken, wd time.Weekday) bool {
	for _, t := range tokens {
		if t.day == wd {
			return true
		}
	}
	return false
}

// matchesWeekdayToken is the full token match: the weekday must agree and,
// when the token carries an ordinal, the day must be that occurrence of
// its weekday within the month, negatives counting from the month's end.
func matchesWeekdayToken(tok weekdayToken, day time.Time) bool {
	if day.Weekday() != tok.day {
		return false
	}
	if tok.ordinal == 0 {
		return true
	}
	if tok.ordinal > 0 {
		return (day.Day()-1)/7+1 == tok.ordinal
	}
	return (daysInMonth(day)-day.Day())/7+1 == -tok.ordinal
}

func anyTokenMatchesDay(tokens []weekdayToken, day time.Time) bool {
	for _, t := range tokens {
		if matchesWeekdayToken(t, day) {
			return true
		}
	}
	return false
}

func daysInMonth(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
