package answers

import (
	"sort"
	"strconv"
	"strings"
	"unicode"
)

const (
	MinQuestion = 1
	MaxQuestion = 45

	MinChoice = 1
	MaxChoice = 5
)

// Parsed is the outcome of reading a free-form answer string.
// Values keeps the in-domain answers in input order; Invalid keeps every token
// that could not be read as a choice in 1..5.
type Parsed struct {
	Values  []int
	Invalid []string
}

// Count is the number of answers the user typed, valid or not.
func (p Parsed) Count() int { return len(p.Values) + len(p.Invalid) }

func (p Parsed) OK() bool { return len(p.Invalid) == 0 }

// Parse accepts answers separated by whitespace, newlines or commas, or pasted as
// one contiguous run of digits ("12345").
func Parse(text string) Parsed {
	var out Parsed
	text = strings.TrimSpace(text)
	if text == "" {
		return out
	}

	// any Unicode space counts, so NBSP and U+3000 from pasted text split too
	tokens := strings.FieldsFunc(text, func(r rune) bool { return unicode.IsSpace(r) || r == ',' })
	joined := strings.Join(tokens, "")

	if onlyChoiceDigits(joined) {
		out.Values = make([]int, 0, len(joined))
		for _, ch := range joined {
			out.Values = append(out.Values, int(ch-'0'))
		}
		return out
	}

	for _, t := range tokens {
		n, err := strconv.Atoi(t)
		if err != nil || !isDigits(t) || n < MinChoice || n > MaxChoice {
			out.Invalid = append(out.Invalid, t)
			continue
		}
		out.Values = append(out.Values, n)
	}
	return out
}

// InvalidList renders the invalid tokens for a message: de-duplicated, numbers
// first in numeric order, then anything else.
func (p Parsed) InvalidList() string {
	seen := map[string]bool{}
	var nums []int
	var other []string
	for _, t := range p.Invalid {
		if seen[t] {
			continue
		}
		seen[t] = true
		if n, err := strconv.Atoi(t); err == nil && isDigits(t) {
			nums = append(nums, n)
			continue
		}
		other = append(other, t)
	}
	sort.Ints(nums)
	sort.Strings(other)

	parts := make([]string, 0, len(nums)+len(other))
	dup := map[int]bool{}
	for _, n := range nums {
		// "06" and "6" collapse to one entry
		if dup[n] {
			continue
		}
		dup[n] = true
		parts = append(parts, strconv.Itoa(n))
	}
	parts = append(parts, other...)
	return strings.Join(parts, ", ")
}

func onlyChoiceDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, ch := range s {
		if ch < '1' || ch > '5' {
			return false
		}
	}
	return true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, ch := range s {
		if ch < '0' || ch > '9' {
			return false
		}
	}
	return true
}
