package pickem

import (
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// Tolerance is the absolute difference under which two parsed numeric or time
// values are considered equal.
const Tolerance = 1e-4

// NormalizeText trims, collapses inner whitespace and case-folds s.
func NormalizeText(s string) string {
	return cases.Fold().String(strings.Join(strings.Fields(s), " "))
}

// IsEmpty reports whether s carries no answer.
func IsEmpty(s string) bool {
	return strings.TrimSpace(s) == ""
}

// ParseNumber parses a count-style answer. Thousands separators and
// surrounding whitespace are ignored.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer(",", "", "_", "", " ", "").Replace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// ParseTime parses a duration answer into seconds. Accepted forms are plain
// seconds ("95"), clock notation ("1:35", "1:02:03.5") and Go durations
// ("1m35s").
func ParseTime(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if !strings.Contains(s, ":") {
		if v, ok := ParseNumber(s); ok {
			return v, v >= 0
		}
		d, err := time.ParseDuration(s)
		if err != nil || d < 0 {
			return 0, false
		}
		return d.Seconds(), true
	}

	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, false
	}
	var total float64
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			return 0, false
		}
		last := i == len(parts)-1
		var v float64
		if last {
			f, err := strconv.ParseFloat(p, 64)
			if err != nil {
				return 0, false
			}
			v = f
		} else {
			n, err := strconv.Atoi(p)
			if err != nil {
				return 0, false
			}
			v = float64(n)
		}
		if v < 0 || (i > 0 && v >= 60) {
			return 0, false
		}
		total = total*60 + v
	}
	return total, true
}

// ParseValue parses s according to the value type. Non-numeric types never
// parse.
func ParseValue(vt ValueType, s string) (float64, bool) {
	switch vt {
	case ValueNumerical:
		return ParseNumber(s)
	case ValueTime:
		return ParseTime(s)
	}
	return 0, false
}

// AnswersEqual compares two answers the way grading does: parsed values for
// numeric types, normalized text otherwise. Two empty answers are equal.
func AnswersEqual(vt ValueType, a, b string) bool {
	if IsEmpty(a) || IsEmpty(b) {
		return IsEmpty(a) == IsEmpty(b)
	}
	if vt.Numeric() {
		av, aok := ParseValue(vt, a)
		bv, bok := ParseValue(vt, b)
		if aok && bok {
			return math.Abs(av-bv) < Tolerance
		}
		if aok != bok {
			return false
		}
	}
	return NormalizeText(a) == NormalizeText(b)
}

// Grade is the outcome of grading one answer against one key value. Closest
// questions are never awarded directly: Deferred is set and Distance records
// how far the answer was from the key.
type Grade struct {
	Awarded  bool
	Deferred bool
	Distance float64
}

// GradeAnswer grades a player's answer against the key under q's rule. Empty or
// unparseable values never award points.
func GradeAnswer(q BonusQuestion, key, answer string) Grade {
	if IsEmpty(key) || IsEmpty(answer) {
		return Grade{}
	}
	if !q.ValueType.Numeric() {
		return Grade{Awarded: NormalizeText(key) == NormalizeText(answer)}
	}

	kv, ok := ParseValue(q.ValueType, key)
	if !ok {
		return Grade{}
	}
	pv, ok := ParseValue(q.ValueType, answer)
	if !ok {
		return Grade{}
	}

	switch q.Rule() {
	case RuleAtOrAbove:
		return Grade{Awarded: pv >= kv}
	case RuleAtOrBelow:
		return Grade{Awarded: pv <= kv}
	case RuleClosest:
		return Grade{Deferred: true, Distance: math.Abs(pv - kv)}
	default:
		return Grade{Awarded: math.Abs(pv-kv) < Tolerance}
	}
}

// WinnerMatches reports whether a winner pick matches the key winner. An empty
// key winner matches nothing.
func WinnerMatches(key, pick string) bool {
	if IsEmpty(key) || IsEmpty(pick) {
		return false
	}
	return NormalizeText(key) == NormalizeText(pick)
}
