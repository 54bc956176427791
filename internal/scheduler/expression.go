// Package scheduler drives scheduled jobs: a minute-granularity ticker
// that reads due jobs from the Memory Store and re-invokes the Agent
// Loop for each, headless, under a synthetic session id. Named distinctly
// from internal/tools/cron (the cron_schedule tool handler) since the two
// own different halves of the same feature — the tool validates and
// persists a job, the Scheduler fires it.
package scheduler

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// fieldRange bounds one of the five cron fields.
type fieldRange struct {
	min, max int
}

var (
	minuteRange = fieldRange{0, 59}
	hourRange   = fieldRange{0, 23}
	domRange    = fieldRange{1, 31}
	monthRange  = fieldRange{1, 12}
	dowRange    = fieldRange{0, 7} // 0 and 7 both mean Sunday
)

// Expression is a parsed 5-field cron expression (minute hour dom month
// dow), each field a set of allowed values.
type Expression struct {
	minute, hour, dom, month, dow map[int]bool
	domWildcard, dowWildcard      bool
}

// Parser implements tools/cron.ExpressionParser over the standard 5-field
// cron grammar. No cron-expression library surfaced anywhere in the
// example corpus, so this is a direct, from-scratch implementation of a
// closed, well-specified grammar rather than a library call.
type Parser struct{}

// NewParser builds a Parser.
func NewParser() *Parser { return &Parser{} }

// Validate reports whether expression parses as a valid 5-field cron
// expression.
func (p *Parser) Validate(expression string) error {
	_, err := Parse(expression)
	return err
}

// MinInterval computes the shortest gap between the next two fire times of
// expression, measured from now.
func (p *Parser) MinInterval(expression string) (time.Duration, error) {
	expr, err := Parse(expression)
	if err != nil {
		return 0, err
	}
	from := time.Now().UTC().Truncate(time.Minute)
	first, err := expr.Next(from)
	if err != nil {
		return 0, err
	}
	second, err := expr.Next(first.Add(time.Minute))
	if err != nil {
		return 0, err
	}
	return second.Sub(first), nil
}

// Parse parses a 5-field cron expression.
func Parse(expression string) (*Expression, error) {
	fields := strings.Fields(expression)
	if len(fields) != 5 {
		return nil, fmt.Errorf("cron expression %q: expected 5 fields (minute hour dom month dow), got %d", expression, len(fields))
	}

	minute, err := parseField(fields[0], minuteRange)
	if err != nil {
		return nil, fmt.Errorf("cron expression %q: minute field: %w", expression, err)
	}
	hour, err := parseField(fields[1], hourRange)
	if err != nil {
		return nil, fmt.Errorf("cron expression %q: hour field: %w", expression, err)
	}
	dom, err := parseField(fields[2], domRange)
	if err != nil {
		return nil, fmt.Errorf("cron expression %q: day-of-month field: %w", expression, err)
	}
	month, err := parseField(fields[3], monthRange)
	if err != nil {
		return nil, fmt.Errorf("cron expression %q: month field: %w", expression, err)
	}
	dow, err := parseField(fields[4], dowRange)
	if err != nil {
		return nil, fmt.Errorf("cron expression %q: day-of-week field: %w", expression, err)
	}
	normalizeDow(dow)

	return &Expression{
		minute:      minute,
		hour:        hour,
		dom:         dom,
		month:       month,
		dow:         dow,
		domWildcard: fields[2] == "*",
		dowWildcard: fields[4] == "*",
	}, nil
}

func normalizeDow(dow map[int]bool) {
	if dow[7] {
		delete(dow, 7)
		dow[0] = true
	}
}

// parseField parses one comma-separated cron field (supporting "*",
// "*/step", "a-b", "a-b/step", and bare values) into the set of values it
// allows within r.
func parseField(field string, r fieldRange) (map[int]bool, error) {
	out := make(map[int]bool)
	for _, part := range strings.Split(field, ",") {
		if err := parseFieldPart(part, r, out); err != nil {
			return nil, err
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty field")
	}
	return out, nil
}

func parseFieldPart(part string, r fieldRange, out map[int]bool) error {
	rangePart := part
	step := 1
	if i := strings.Index(part, "/"); i >= 0 {
		rangePart = part[:i]
		s, err := strconv.Atoi(part[i+1:])
		if err != nil || s <= 0 {
			return fmt.Errorf("invalid step in %q", part)
		}
		step = s
	}

	lo, hi := r.min, r.max
	switch {
	case rangePart == "*":
		// lo, hi already cover the full range.
	case strings.Contains(rangePart, "-"):
		bounds := strings.SplitN(rangePart, "-", 2)
		a, err1 := strconv.Atoi(bounds[0])
		b, err2 := strconv.Atoi(bounds[1])
		if err1 != nil || err2 != nil || a > b {
			return fmt.Errorf("invalid range %q", rangePart)
		}
		lo, hi = a, b
	default:
		v, err := strconv.Atoi(rangePart)
		if err != nil {
			return fmt.Errorf("invalid value %q", rangePart)
		}
		lo, hi = v, v
	}

	if lo < r.min || hi > r.max {
		return fmt.Errorf("value out of range [%d,%d]: %q", r.min, r.max, part)
	}
	for v := lo; v <= hi; v += step {
		out[v] = true
	}
	return nil
}

// Next parses expression and returns its first fire time strictly after
// from. Satisfies the Scheduler's NextCalculator contract.
func (p *Parser) Next(expression string, from time.Time) (time.Time, error) {
	expr, err := Parse(expression)
	if err != nil {
		return time.Time{}, err
	}
	return expr.Next(from)
}

// Next returns the first fire time strictly after from, searched minute by
// minute up to four years out (cron's own minimum granularity).
func (e *Expression) Next(from time.Time) (time.Time, error) {
	t := from.Truncate(time.Minute).Add(time.Minute)
	limit := from.AddDate(4, 0, 0)
	for t.Before(limit) {
		if e.matches(t) {
			return t, nil
		}
		t = t.Add(time.Minute)
	}
	return time.Time{}, fmt.Errorf("no fire time found within 4 years")
}

func (e *Expression) matches(t time.Time) bool {
	if !e.minute[t.Minute()] || !e.hour[t.Hour()] || !e.month[int(t.Month())] {
		return false
	}
	domMatch := e.dom[t.Day()]
	dowMatch := e.dow[int(t.Weekday())]
	switch {
	case e.domWildcard && e.dowWildcard:
		return true
	case e.domWildcard:
		return dowMatch
	case e.dowWildcard:
		return domMatch
	default:
		// Standard cron rule: when both fields are restricted, a match on
		// either is sufficient.
		return domMatch || dowMatch
	}
}

// fieldValues returns a field's allowed values, sorted, for debugging and
// tests.
func fieldValues(m map[int]bool) []int {
	out := make([]int, 0, len(m))
	for v := range m {
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}
