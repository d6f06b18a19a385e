package keysheet

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/mind-engage/mindengage-answerkey/internal/answers"
	"github.com/mind-engage/mindengage-answerkey/internal/history"
	"github.com/mind-engage/mindengage-answerkey/internal/sheet"
	"github.com/mind-engage/mindengage-answerkey/internal/storage"
)

type fakeRecorder struct {
	entries []history.Entry
	err     error
}

func (f *fakeRecorder) Record(_ context.Context, e history.Entry) error {
	f.entries = append(f.entries, e)
	return f.err
}

func newTestService(t *testing.T) (*Service, *storage.MemStore, *fakeRecorder) {
	t.Helper()
	blobs := storage.NewMemStore()
	rec := &fakeRecorder{}
	n := 0
	svc := NewService(blobs, WithHistory(rec), WithIDFunc(func() string {
		n++
		return []string{"", "id-1", "id-2", "id-3", "id-4"}[n]
	}))
	return svc, blobs, rec
}

func openResult(t *testing.T, data []byte) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func cellValue(t *testing.T, f *excelize.File, sheetName, ref string) string {
	t.Helper()
	v, err := f.GetCellValue(sheetName, ref)
	require.NoError(t, err)
	return v
}

func fullSubmission() NewSubmission {
	return NewSubmission{
		Grade: "2", Year: "2026", Month: "9", Level: "기본", Round: "1",
		Categories: []string{Common, Speech, Language},
		Keys: map[string]KeyInput{
			Common:   {Answers: "12345 12345 12345 123", Bounds: answers.Bounds{Start: "1", End: "18"}},
			Speech:   {Answers: "5,4,3", Bounds: answers.Bounds{Start: "35", End: "37"}},
			Language: {Answers: "1 1 1", Bounds: answers.Bounds{Start: "35", End: "37"}},
		},
		Students: []StudentInput{
			{Index: 1, Name: "김", Category: Common, Answers: "11345", Bounds: answers.Bounds{Start: "1", End: "5"}},
			{Index: 2, Name: "이", Category: Speech, Answers: "543", Bounds: answers.Bounds{Start: "35", End: "37"}},
		},
	}
}

func TestCreateWorkbook(t *testing.T) {
	svc, blobs, rec := newTestService(t)
	ctx := WithActor(context.Background(), "kim")

	res, err := svc.CreateWorkbook(ctx, fullSubmission())
	require.NoError(t, err)
	assert.Equal(t, "id-1", res.ID)
	assert.Equal(t, "기본 1회 2026학년도 9월 고2 모의고사 진단지.xlsx", res.Filename)
	assert.Equal(t, "generated/id-1/"+res.Filename, res.Key)
	assert.Equal(t, 2, res.Students)

	rc, err := blobs.Get(res.Key)
	require.NoError(t, err)
	stored, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, res.Data, stored)

	f := openResult(t, res.Data)
	assert.Equal(t, []string{Common, Speech, Language}, f.GetSheetList())
	assert.Equal(t, "김", cellValue(t, f, Common, "C1"))
	assert.Equal(t, "1", cellValue(t, f, Common, "C3"))
	assert.Empty(t, cellValue(t, f, Common, "C7"))
	assert.Equal(t, "이", cellValue(t, f, Speech, "C1"))
	assert.Equal(t, "5", cellValue(t, f, Speech, "B36"))

	styleWrong, err := f.GetCellStyle(Common, "C3")
	require.NoError(t, err)
	styleRight, err := f.GetCellStyle(Common, "C2")
	require.NoError(t, err)
	assert.NotEqual(t, styleRight, styleWrong)

	require.Len(t, rec.entries, 1)
	e := rec.entries[0]
	assert.Equal(t, ModeNew, e.Mode)
	assert.Equal(t, "kim", e.CreatedBy)
	assert.Equal(t, []string{Common, Speech, Language}, e.Categories)
}

func TestCreateWorkbook_ValidationStoresNothing(t *testing.T) {
	svc, blobs, rec := newTestService(t)
	sub := fullSubmission()
	sub.Students = append(sub.Students, StudentInput{
		Index: 3, Name: "박", Category: Common, Answers: "123456", Bounds: answers.Bounds{Start: "20", End: "25"},
	})

	_, err := svc.CreateWorkbook(context.Background(), sub)
	var ve *answers.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.True(t, ve.Problems.Has(answers.KindContainment))
	assert.Empty(t, blobs.Keys())
	assert.Empty(t, rec.entries)
}

func TestCreateWorkbook_HistoryFailureIsNotFatal(t *testing.T) {
	svc, blobs, rec := newTestService(t)
	rec.err = errors.New("db down")
	res, err := svc.CreateWorkbook(context.Background(), fullSubmission())
	require.NoError(t, err)
	assert.Equal(t, []string{res.Key}, blobs.Keys())
}

func TestAddStudents_UpdatesExistingColumn(t *testing.T) {
	svc, _, rec := newTestService(t)
	created, err := svc.CreateWorkbook(context.Background(), fullSubmission())
	require.NoError(t, err)

	res, err := svc.AddStudents(context.Background(), AddSubmission{
		Filename: `C:\exams\진단지.xlsx`,
		File:     created.Data,
		Students: []StudentInput{
			{Index: 1, Name: "김", Category: Common, Answers: "12", Bounds: answers.Bounds{Start: "1", End: "2"}},
			{Index: 2, Name: "최", Category: Language, Answers: "2", Bounds: answers.Bounds{Start: "36", End: "36"}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "진단지.xlsx", res.Filename)
	assert.Equal(t, "updated/id-2/진단지.xlsx", res.Key)

	f := openResult(t, res.Data)
	rows, err := f.GetRows(Common)
	require.NoError(t, err)
	assert.Equal(t, []string{sheet.QuestionHeader, sheet.KeyHeader, "김"}, rows[0], "no duplicate column")
	assert.Equal(t, "2", cellValue(t, f, Common, "C3"))
	assert.Equal(t, "3", cellValue(t, f, Common, "C4"), "cells outside the new window are kept")

	fixed, err := f.GetCellStyle(Common, "C3")
	require.NoError(t, err)
	wrong, err := f.GetCellStyle(Language, "C37")
	require.NoError(t, err)
	assert.NotEqual(t, fixed, wrong)
	assert.Equal(t, "최", cellValue(t, f, Language, "C1"))

	require.Len(t, rec.entries, 2)
	assert.Equal(t, ModeAdd, rec.entries[1].Mode)
	assert.Equal(t, []string{Common, Language}, rec.entries[1].Categories)
}

func TestAddStudents_MissingSheetAndContainment(t *testing.T) {
	svc, blobs, _ := newTestService(t)
	w, err := sheet.Build([]sheet.Key{{Category: Common, Range: answers.Range{Start: 1, End: 18}, Answers: make([]int, 18)}})
	require.NoError(t, err)
	for q := 1; q <= 18; q++ {
		require.NoError(t, w.File().SetCellValue(Common, "B"+strconv.Itoa(q+1), 1))
	}
	data, err := w.Bytes()
	require.NoError(t, err)
	require.NoError(t, w.Close())

	_, err = svc.AddStudents(context.Background(), AddSubmission{
		Filename: "x.xlsx",
		File:     data,
		Students: []StudentInput{
			{Index: 1, Name: "a", Category: Speech, Answers: "1", Bounds: answers.Bounds{Start: "35", End: "35"}},
			{Index: 2, Name: "b", Category: Speech, Answers: "1", Bounds: answers.Bounds{Start: "35", End: "35"}},
			{Index: 3, Name: "c", Category: Common, Answers: "123451", Bounds: answers.Bounds{Start: "20", End: "25"}},
			{Index: 4, Name: "d", Category: Common, Answers: "9", Bounds: answers.Bounds{Start: "1", End: "1"}},
		},
	})
	var ve *answers.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, []string{
		"4번 학생 답안에 1~5가 아닌 값이 있습니다: 9",
		"'화작' 시트가 엑셀에 없습니다.",
		"학생 'c' 범위(20~25)가 해당 카테고리 정답 범위(1~18)에 포함되지 않습니다.",
	}, ve.Problems.Messages())
	assert.Empty(t, blobs.Keys())
}

func TestAddStudents_StructuralFailures(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.AddStudents(context.Background(), AddSubmission{})
	var ve *answers.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, []string{"엑셀 파일을 업로드하세요."}, ve.Problems.Messages())

	_, err = svc.AddStudents(context.Background(), AddSubmission{
		Filename: "notes.txt",
		File:     []byte("plain text"),
		Students: []StudentInput{{Index: 1, Name: "", Answers: "1"}},
	})
	require.True(t, errors.As(err, &ve))
	require.Len(t, ve.Problems, 1)
	assert.Equal(t, answers.KindBadUpload, ve.Problems[0].Kind)
}

func TestSafeFilename(t *testing.T) {
	assert.Equal(t, "a.xlsx", SafeFilename("a.xlsx"))
	assert.Equal(t, "passwd.xlsx", SafeFilename("../../etc/passwd"))
	assert.Equal(t, "report.xlsx", SafeFilename(`C:\Users\me\report.xls`))
	assert.Equal(t, "workbook.xlsx", SafeFilename(".."))
	assert.Equal(t, "a_b.XLSX", SafeFilename("a?b.XLSX"))
}
