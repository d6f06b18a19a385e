package http

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/mind-engage/mindengage-answerkey/internal/answers"
	"github.com/mind-engage/mindengage-answerkey/internal/keysheet"
)

const (
	newPrefix = "new_student"
	addPrefix = "add_student"

	defaultRows = 5
)

// rowCount reads {prefix}_count. Garbage reads as zero. Larger counts read one row
// past the limit so validation reports the overflow instead of dropping rows.
func rowCount(f url.Values, prefix string) int {
	n, err := strconv.Atoi(strings.TrimSpace(f.Get(prefix + "_count")))
	if err != nil || n < 0 {
		return 0
	}
	if n > keysheet.MaxStudents {
		return keysheet.MaxStudents + 1
	}
	return n
}

func studentsFromForm(f url.Values, prefix string) []keysheet.StudentInput {
	n := rowCount(f, prefix)
	out := make([]keysheet.StudentInput, 0, n)
	for i := 1; i <= n; i++ {
		k := func(name string) string { return prefix + "_" + strconv.Itoa(i) + "_" + name }
		out = append(out, keysheet.StudentInput{
			Index:    i,
			Name:     f.Get(k("name")),
			Category: f.Get(k("category")),
			Answers:  f.Get(k("answers")),
			Bounds:   answers.Bounds{Start: f.Get(k("start")), End: f.Get(k("end"))},
		})
	}
	return out
}

func newSubmissionFromForm(f url.Values) keysheet.NewSubmission {
	keys := make(map[string]keysheet.KeyInput, len(keysheet.Categories))
	for _, cat := range keysheet.Categories {
		keys[cat] = keysheet.KeyInput{
			Answers: f.Get("answers_" + cat),
			Bounds: answers.Bounds{
				Start: f.Get("answers_" + cat + "_start"),
				End:   f.Get("answers_" + cat + "_end"),
			},
		}
	}
	return keysheet.NewSubmission{
		Grade:       f.Get("grade"),
		Year:        f.Get("year"),
		Month:       f.Get("month"),
		Level:       f.Get("level"),
		Round:       f.Get("round"),
		School:      f.Get("school"),
		Categories:  f["categories"],
		Keys:        keys,
		Students:    studentsFromForm(f, newPrefix),
		FieldPrefix: newPrefix,
	}
}

func addSubmissionFromForm(f url.Values, filename string, file []byte) keysheet.AddSubmission {
	return keysheet.AddSubmission{
		Filename:    filename,
		File:        file,
		Students:    studentsFromForm(f, addPrefix),
		FieldPrefix: addPrefix,
	}
}

// rowsToShow keeps every row the user submitted and never shows fewer than the default.
func rowsToShow(f url.Values, prefix string) int {
	if n := rowCount(f, prefix); n > defaultRows {
		return n
	}
	return defaultRows
}
