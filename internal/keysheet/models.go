package keysheet

import (
	"github.com/mind-engage/mindengage-answerkey/internal/answers"
	"github.com/mind-engage/mindengage-answerkey/internal/sheet"
)

const (
	Common   = "공통"
	Speech   = "화작"
	Language = "언매"
)

// Categories is the fixed sheet order.
var Categories = []string{Common, Speech, Language}

// PairedCategories must be selected together.
var PairedCategories = [2]string{Speech, Language}

var Levels = []string{"입문", "기본", "실전"}

const (
	MinRound = 1
	MaxRound = 12
	MinYear  = 2000
	MaxYear  = 2100

	MaxStudents = 200
)

func IsCategory(c string) bool { return contains(Categories, c) }

// KeyInput is the raw key text for one category.
type KeyInput struct {
	Answers string
	Bounds  answers.Bounds
}

// StudentInput is one row of the student table as typed. Index is 1-based and only
// used in messages.
type StudentInput struct {
	Index    int
	Name     string
	Category string
	Answers  string
	Bounds   answers.Bounds
}

func (s StudentInput) blank() bool { return s.Name == "" && s.Answers == "" }

// NewSubmission builds a workbook from scratch.
type NewSubmission struct {
	Grade      string
	Year       string
	Month      string
	Level      string
	Round      string
	School     string
	Categories []string
	Keys       map[string]KeyInput
	Students   []StudentInput

	// FieldPrefix names student form fields in problems ("new_student").
	FieldPrefix string
}

// AddSubmission adds or updates students in an uploaded workbook.
type AddSubmission struct {
	Filename string
	File     []byte
	Students []StudentInput

	FieldPrefix string
}

// Student is a validated student row.
type Student struct {
	Name     string
	Category string
	Range    answers.Range
	Answers  []int
}

// NewPlan is a fully validated NewSubmission.
type NewPlan struct {
	Meta     sheet.Meta
	Keys     []sheet.Key
	Students []Student
}

func (p NewPlan) keyFor(cat string) (sheet.Key, bool) {
	for _, k := range p.Keys {
		if k.Category == cat {
			return k, true
		}
	}
	return sheet.Key{}, false
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
