package keysheet

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mind-engage/mindengage-answerkey/internal/answers"
	"github.com/mind-engage/mindengage-answerkey/internal/sheet"
)

// draft is a student row that passed its own checks far enough to be compared
// against a key. rangeOK is false when the row's own range was unusable.
type draft struct {
	in      StudentInput
	student Student
	rangeOK bool
	valid   bool
}

func field(prefix string, i int, name string) string {
	return fmt.Sprintf("%s_%d_%s", prefix, i, name)
}

// ValidateNew checks every field of a new-workbook submission and returns either a
// complete plan or all the problems found.
func ValidateNew(s NewSubmission) (NewPlan, answers.Problems) {
	var plan NewPlan
	var p answers.Problems

	plan.Meta, p = validateMeta(s)

	selected, catProblems := validateCategories(s.Categories)
	p.Merge(catProblems)

	for _, cat := range selected {
		in := s.Keys[cat]
		label := cat + " 정답"
		fieldName := "answers_" + cat
		parsed := answers.Parse(in.Answers)
		r, ok := in.Bounds.Resolve()

		keyProblems := answers.CheckRange(label, fieldName, r, ok, parsed.Count())
		keyProblems.Merge(answers.CheckValues(label, fieldName, parsed))
		p.Merge(keyProblems)
		if len(keyProblems) == 0 {
			plan.Keys = append(plan.Keys, sheet.Key{Category: cat, Range: r, Answers: parsed.Values})
		}
	}

	prefix := s.FieldPrefix
	if prefix == "" {
		prefix = "new_student"
	}
	drafts, studentProblems := parseStudents(prefix, s.Students)
	p.Merge(studentProblems)

	for _, d := range drafts {
		if d.in.Category == "" {
			continue
		}
		key, ok := plan.keyFor(d.in.Category)
		if !ok {
			// a selected category with a broken key was already reported
			if !contains(selected, d.in.Category) {
				p.Add(answers.KindUnknownCat, field(prefix, d.in.Index, "category"),
					"학생 '%s'이(가) 선택한 '%s' 카테고리는 정답이 입력되지 않았습니다.", d.student.Name, d.in.Category)
			}
			continue
		}
		if d.rangeOK && !d.student.Range.Within(key.Range) {
			p.Add(answers.KindContainment, field(prefix, d.in.Index, "start"),
				"학생 '%s' 범위(%d~%d)가 해당 카테고리 정답 범위(%d~%d)에 포함되지 않습니다.",
				d.student.Name, d.student.Range.Start, d.student.Range.End, key.Range.Start, key.Range.End)
			continue
		}
		if d.valid {
			plan.Students = append(plan.Students, d.student)
		}
	}

	if len(p) > 0 {
		return NewPlan{}, p
	}
	return plan, nil
}

func validateMeta(s NewSubmission) (sheet.Meta, answers.Problems) {
	var m sheet.Meta
	var p answers.Problems

	switch g := strings.TrimSpace(s.Grade); g {
	case "1", "2", "3":
		m.Grade, _ = strconv.Atoi(g)
	default:
		p.Add(answers.KindSelection, "grade", "학년(고1/고2/고3)을 선택하세요.")
	}

	m.School = strings.TrimSpace(s.School)
	if strings.ContainsAny(m.School, `/\:*?"<>|`) {
		p.Add(answers.KindSelection, "school", "학교 이름에 사용할 수 없는 문자가 있습니다.")
	}
	m.Level = strings.TrimSpace(s.Level)
	if (m.School == "" || m.Level != "") && !contains(Levels, m.Level) {
		p.Add(answers.KindSelection, "level", "레벨(%s)을 선택하세요.", strings.Join(Levels, "/"))
	}

	if n, err := strconv.Atoi(strings.TrimSpace(s.Round)); err != nil {
		p.Add(answers.KindSelection, "round", "회차를 숫자로 입력하세요.")
	} else if n < MinRound || n > MaxRound {
		p.Add(answers.KindSelection, "round", "회차는 %d~%d 사이여야 합니다.", MinRound, MaxRound)
	} else {
		m.Round = n
	}

	if n, err := strconv.Atoi(strings.TrimSpace(s.Year)); err != nil || n < MinYear || n > MaxYear {
		p.Add(answers.KindSelection, "year", "학년도를 올바르게 입력하세요.")
	} else {
		m.Year = n
	}

	if n, err := strconv.Atoi(strings.TrimSpace(s.Month)); err != nil || n < 1 || n > 12 {
		p.Add(answers.KindSelection, "month", "월은 1~12 사이여야 합니다.")
	} else {
		m.Month = n
	}
	return m, p
}

// validateCategories returns the selection in sheet order.
func validateCategories(in []string) ([]string, answers.Problems) {
	var p answers.Problems
	picked := map[string]bool{}
	for _, c := range in {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if !IsCategory(c) {
			p.Add(answers.KindSelection, "categories", "알 수 없는 카테고리입니다: %s", c)
			continue
		}
		picked[c] = true
	}

	var out []string
	for _, c := range Categories {
		if picked[c] {
			out = append(out, c)
		}
	}
	if len(out) == 0 && len(p) == 0 {
		p.Add(answers.KindSelection, "categories", "최소 한 개의 카테고리를 선택해야 합니다.")
	}

	a, b := PairedCategories[0], PairedCategories[1]
	if picked[a] && !picked[b] {
		p.Add(answers.KindPairing, "categories", "%s을 선택하면 %s 정답도 입력해야 합니다.", a, b)
	}
	if picked[b] && !picked[a] {
		p.Add(answers.KindPairing, "categories", "%s를 선택하면 %s 정답도 입력해야 합니다.", b, a)
	}
	return out, p
}

// parseStudents runs the per-row checks. Blank rows are skipped.
func parseStudents(prefix string, in []StudentInput) ([]draft, answers.Problems) {
	var p answers.Problems
	var out []draft
	if len(in) > MaxStudents {
		p.Add(answers.KindCount, prefix+"_count", "학생은 한 번에 최대 %d명까지 입력할 수 있습니다.", MaxStudents)
		in = in[:MaxStudents]
	}
	for _, s := range in {
		s.Name = strings.TrimSpace(s.Name)
		s.Category = strings.TrimSpace(s.Category)
		s.Answers = strings.TrimSpace(s.Answers)
		if s.blank() {
			continue
		}

		var rowProblems answers.Problems
		if s.Name == "" {
			rowProblems.Add(answers.KindName, field(prefix, s.Index, "name"), "%d번 학생 이름을 입력하세요.", s.Index)
		}
		if s.Category == "" {
			rowProblems.Add(answers.KindSelection, field(prefix, s.Index, "category"), "%d번 학생의 카테고리를 선택하세요.", s.Index)
		}

		parsed := answers.Parse(s.Answers)
		r, ok := s.Bounds.Resolve()
		rangeProblems := answers.CheckRange(
			fmt.Sprintf("%d번 학생(카테고리 %s)", s.Index, s.Category),
			field(prefix, s.Index, "answers"), r, ok, parsed.Count())
		rowProblems.Merge(rangeProblems)
		rowProblems.Merge(answers.CheckValues(fmt.Sprintf("%d번 학생 답안", s.Index), field(prefix, s.Index, "answers"), parsed))

		p.Merge(rowProblems)
		out = append(out, draft{
			in:      s,
			student: Student{Name: s.Name, Category: s.Category, Range: r, Answers: parsed.Values},
			rangeOK: ok && r.Valid(),
			valid:   len(rowProblems) == 0,
		})
	}
	return out, p
}

// checkWorkbook compares student rows against the sheets of an uploaded workbook.
func checkWorkbook(prefix string, w *sheet.Writer, drafts []draft) ([]Student, answers.Problems) {
	var p answers.Problems
	var out []Student
	missing := map[string]bool{}
	for _, d := range drafts {
		cat := d.in.Category
		if cat == "" {
			continue
		}
		if !w.HasSheet(cat) {
			if !missing[cat] {
				missing[cat] = true
				p.Add(answers.KindMissingSht, field(prefix, d.in.Index, "category"), "'%s' 시트가 엑셀에 없습니다.", cat)
			}
			continue
		}
		keyRange, ok, err := w.KeyRange(cat)
		if err != nil || !ok {
			p.Add(answers.KindUnknownCat, field(prefix, d.in.Index, "category"),
				"학생 '%s'이(가) 선택한 '%s' 카테고리는 정답이 입력되지 않았습니다.", d.student.Name, cat)
			continue
		}
		if d.rangeOK && !d.student.Range.Within(keyRange) {
			p.Add(answers.KindContainment, field(prefix, d.in.Index, "start"),
				"학생 '%s' 범위(%d~%d)가 해당 카테고리 정답 범위(%d~%d)에 포함되지 않습니다.",
				d.student.Name, d.student.Range.Start, d.student.Range.End, keyRange.Start, keyRange.End)
			continue
		}
		if d.valid {
			out = append(out, d.student)
		}
	}
	return out, p
}
