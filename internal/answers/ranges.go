package answers

import (
	"strconv"
	"strings"
)

// Range is an inclusive question-number interval.
type Range struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

func FullRange() Range { return Range{Start: MinQuestion, End: MaxQuestion} }

func (r Range) Len() int { return r.End - r.Start + 1 }

func (r Range) Valid() bool {
	return r.Start >= MinQuestion && r.Start <= MaxQuestion &&
		r.End >= MinQuestion && r.End <= MaxQuestion &&
		r.Start <= r.End
}

// Within reports whether r lies entirely inside outer.
func (r Range) Within(outer Range) bool {
	return outer.Start <= r.Start && r.Start <= r.End && r.End <= outer.End
}

// Bounds holds range text as typed. Empty start means 1, empty end means 45.
type Bounds struct {
	Start string
	End   string
}

// Resolve returns false when either side is present but not an integer.
func (b Bounds) Resolve() (Range, bool) {
	start, ok := boundOr(b.Start, MinQuestion)
	if !ok {
		return Range{}, false
	}
	end, ok := boundOr(b.End, MaxQuestion)
	if !ok {
		return Range{}, false
	}
	return Range{Start: start, End: end}, true
}

func boundOr(s string, def int) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, true
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// CheckRange validates the interval and that count answers fill it exactly.
// It reports at most one problem; field names the form input for redisplay.
func CheckRange(label, field string, r Range, resolved bool, count int) Problems {
	var p Problems
	switch {
	case !resolved:
		p.Add(KindRange, field, "%s 범위를 입력하세요.", label)
	case !r.Valid():
		p.Add(KindRange, field, "%s 범위가 올바르지 않습니다. (%d~%d, 시작<=끝)", label, MinQuestion, MaxQuestion)
	case count != r.Len():
		p.Add(KindCount, field, "%s 답 개수는 %d개여야 합니다. (지금 %d개)", label, r.Len(), count)
	}
	return p
}

// CheckValues reports the out-of-domain tokens of a parsed answer string.
func CheckValues(label, field string, parsed Parsed) Problems {
	var p Problems
	if !parsed.OK() {
		p.Add(KindValue, field, "%s에 %d~%d가 아닌 값이 있습니다: %s", label, MinChoice, MaxChoice, parsed.InvalidList())
	}
	return p
}
