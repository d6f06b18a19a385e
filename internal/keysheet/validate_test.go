package keysheet

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-answerkey/internal/answers"
)

func digits(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteByte(byte('1' + i%5))
	}
	return b.String()
}

func validNew() NewSubmission {
	return NewSubmission{
		Grade: "3", Year: "2026", Month: "6", Level: "실전", Round: "4",
		Categories: []string{Common},
		Keys: map[string]KeyInput{
			Common: {Answers: digits(18), Bounds: answers.Bounds{Start: "1", End: "18"}},
		},
	}
}

func TestValidateNew_OK(t *testing.T) {
	s := validNew()
	s.Students = []StudentInput{
		{Index: 1, Name: " 김철수 ", Category: Common, Answers: "1 2 3", Bounds: answers.Bounds{Start: "1", End: "3"}},
		{Index: 2},
	}
	plan, p := ValidateNew(s)
	require.Empty(t, p)
	assert.Equal(t, 3, plan.Meta.Grade)
	assert.Equal(t, "실전 4회 2026학년도 6월 고3 모의고사 진단지.xlsx", plan.Meta.Filename())
	require.Len(t, plan.Keys, 1)
	assert.Equal(t, answers.Range{Start: 1, End: 18}, plan.Keys[0].Range)
	require.Len(t, plan.Students, 1)
	assert.Equal(t, "김철수", plan.Students[0].Name)
	assert.Equal(t, []int{1, 2, 3}, plan.Students[0].Answers)
}

func TestValidateNew_SelectionErrorsAccumulate(t *testing.T) {
	s := NewSubmission{Grade: "4", Level: "고급", Round: "abc", Year: "", Month: "13"}
	_, p := ValidateNew(s)
	msgs := p.Messages()
	assert.Contains(t, msgs, "학년(고1/고2/고3)을 선택하세요.")
	assert.Contains(t, msgs, "레벨(입문/기본/실전)을 선택하세요.")
	assert.Contains(t, msgs, "회차를 숫자로 입력하세요.")
	assert.Contains(t, msgs, "학년도를 올바르게 입력하세요.")
	assert.Contains(t, msgs, "월은 1~12 사이여야 합니다.")
	assert.Contains(t, msgs, "최소 한 개의 카테고리를 선택해야 합니다.")

	s = validNew()
	s.Round = "13"
	_, p = ValidateNew(s)
	assert.Equal(t, []string{"회차는 1~12 사이여야 합니다."}, p.Messages())
}

func TestValidateNew_SchoolReplacesLevel(t *testing.T) {
	s := validNew()
	s.Level = ""
	s.School = "한빛고"
	plan, p := ValidateNew(s)
	require.Empty(t, p)
	assert.True(t, strings.HasPrefix(plan.Meta.Filename(), "[한빛고] 4회"))

	s.School = "a/b"
	_, p = ValidateNew(s)
	assert.True(t, p.Has(answers.KindSelection))
}

func TestValidateNew_Pairing(t *testing.T) {
	s := validNew()
	s.Categories = []string{Common, Speech}
	s.Keys[Speech] = KeyInput{Answers: "12345", Bounds: answers.Bounds{Start: "35", End: "39"}}
	_, p := ValidateNew(s)
	require.Len(t, p, 1)
	assert.Equal(t, answers.KindPairing, p[0].Kind)
	assert.Equal(t, "화작을 선택하면 언매 정답도 입력해야 합니다.", p[0].Message)

	s.Categories = []string{Language}
	s.Keys[Language] = KeyInput{Answers: "12345", Bounds: answers.Bounds{Start: "35", End: "39"}}
	_, p = ValidateNew(s)
	require.Len(t, p, 1)
	assert.Equal(t, "언매를 선택하면 화작 정답도 입력해야 합니다.", p[0].Message)

	s.Categories = []string{Language, Speech, Speech}
	plan, p := ValidateNew(s)
	require.Empty(t, p)
	require.Len(t, plan.Keys, 2)
	assert.Equal(t, Speech, plan.Keys[0].Category, "sheet order is fixed")
}

func TestValidateNew_KeyProblems(t *testing.T) {
	s := validNew()
	s.Keys[Common] = KeyInput{Answers: digits(44)}
	_, p := ValidateNew(s)
	require.Len(t, p, 1)
	assert.Equal(t, answers.KindCount, p[0].Kind)
	assert.Contains(t, p[0].Message, "45개")

	s.Keys[Common] = KeyInput{Answers: "1 2 9", Bounds: answers.Bounds{Start: "1", End: "3"}}
	_, p = ValidateNew(s)
	require.Len(t, p, 1)
	assert.Equal(t, "공통 정답에 1~5가 아닌 값이 있습니다: 9", p[0].Message)

	s.Keys[Common] = KeyInput{Answers: "1", Bounds: answers.Bounds{Start: "x", End: "1"}}
	_, p = ValidateNew(s)
	require.Len(t, p, 1)
	assert.Equal(t, "공통 정답 범위를 입력하세요.", p[0].Message)
}

func TestValidateNew_StudentOutsideKeyRange(t *testing.T) {
	s := validNew()
	s.Students = []StudentInput{
		{Index: 1, Name: "이영희", Category: Common, Answers: "123451", Bounds: answers.Bounds{Start: "20", End: "25"}},
	}
	_, p := ValidateNew(s)
	require.Len(t, p, 1)
	assert.Equal(t, answers.KindContainment, p[0].Kind)
	assert.Equal(t, "학생 '이영희' 범위(20~25)가 해당 카테고리 정답 범위(1~18)에 포함되지 않습니다.", p[0].Message)
	assert.Equal(t, "new_student_1_start", p[0].Field)
}

func TestValidateNew_StudentProblems(t *testing.T) {
	s := validNew()
	s.Students = []StudentInput{
		{Index: 1, Name: "", Category: Common, Answers: "1"},
		{Index: 2, Name: "박", Category: Language, Answers: "12", Bounds: answers.Bounds{Start: "1", End: "2"}},
		{Index: 3, Name: "최", Category: Common, Answers: "1 7", Bounds: answers.Bounds{Start: "1", End: "2"}},
		{Index: 4, Name: "정", Category: "", Answers: "1", Bounds: answers.Bounds{Start: "1", End: "1"}},
	}
	_, p := ValidateNew(s)
	msgs := p.Messages()
	assert.Contains(t, msgs, "1번 학생 이름을 입력하세요.")
	assert.Contains(t, msgs, "1번 학생(카테고리 공통) 답 개수는 45개여야 합니다. (지금 1개)")
	assert.Contains(t, msgs, "학생 '박'이(가) 선택한 '언매' 카테고리는 정답이 입력되지 않았습니다.")
	assert.Contains(t, msgs, "3번 학생 답안에 1~5가 아닌 값이 있습니다: 7")
	assert.Contains(t, msgs, "4번 학생의 카테고리를 선택하세요.")
}

func TestValidateNew_UnknownCategory(t *testing.T) {
	s := validNew()
	s.Categories = []string{Common, "영어"}
	_, p := ValidateNew(s)
	assert.Equal(t, []string{"알 수 없는 카테고리입니다: 영어"}, p.Messages())
}

func TestValidateNew_TooManyStudentRows(t *testing.T) {
	s := validNew()
	s.Students = make([]StudentInput, MaxStudents+1)
	for i := range s.Students {
		s.Students[i].Index = i + 1
	}
	_, p := ValidateNew(s)
	require.Len(t, p, 1)
	assert.Equal(t, answers.KindCount, p[0].Kind)
	assert.Equal(t, "new_student_count", p[0].Field)
	assert.Equal(t, "학생은 한 번에 최대 200명까지 입력할 수 있습니다.", p[0].Message)
}
