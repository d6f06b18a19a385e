package answers

import (
	"fmt"
	"strings"
)

type Kind string

const (
	KindSelection   Kind = "selection"
	KindPairing     Kind = "pairing"
	KindRange       Kind = "range"
	KindCount       Kind = "count"
	KindValue       Kind = "value"
	KindName        Kind = "name"
	KindUnknownCat  Kind = "unknown_category"
	KindContainment Kind = "containment"
	KindMissingFile Kind = "missing_file"
	KindBadUpload   Kind = "bad_upload"
	KindMissingSht  Kind = "missing_sheet"
)

// Problem is one user-facing validation failure.
type Problem struct {
	Kind    Kind   `json:"kind"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// Problems accumulates failures so a form can report all of them at once.
type Problems []Problem

func (p *Problems) Add(kind Kind, field, format string, args ...any) {
	*p = append(*p, Problem{Kind: kind, Field: field, Message: fmt.Sprintf(format, args...)})
}

func (p *Problems) Merge(other Problems) { *p = append(*p, other...) }

func (p Problems) Messages() []string {
	out := make([]string, len(p))
	for i, pr := range p {
		out[i] = pr.Message
	}
	return out
}

func (p Problems) Has(kind Kind) bool {
	for _, pr := range p {
		if pr.Kind == kind {
			return true
		}
	}
	return false
}

// Err returns nil when there is nothing to report.
func (p Problems) Err() error {
	if len(p) == 0 {
		return nil
	}
	return &ValidationError{Problems: p}
}

type ValidationError struct {
	Problems Problems
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Problems.Messages(), "; ")
}
