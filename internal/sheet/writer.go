package sheet

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/mind-engage/mindengage-answerkey/internal/answers"
)

const (
	HeaderRow       = 1
	QuestionCol     = 1
	KeyCol          = 2
	FirstStudentCol = 3

	QuestionHeader = "문항 번호"
	KeyHeader      = "정답"

	WrongFillColor = "FFFF00"
)

// Writer performs the cell writes for key and student columns on an open workbook.
type Writer struct {
	f         *excelize.File
	wrongFill int
}

func NewWriter(f *excelize.File) (*Writer, error) {
	id, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{WrongFillColor}},
	})
	if err != nil {
		return nil, fmt.Errorf("highlight style: %w", err)
	}
	return &Writer{f: f, wrongFill: id}, nil
}

func (w *Writer) File() *excelize.File { return w.f }

// WrongStyle is the style id applied to answers that disagree with the key.
func (w *Writer) WrongStyle() int { return w.wrongFill }

// rowOf maps a question number to its sheet row (row 1 is the header).
func rowOf(q int) int { return q + 1 }

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

// WriteKey writes the headers, question numbers 1..45 in column A and the key in
// column B for questions inside r only.
func (w *Writer) WriteKey(sheet string, r answers.Range, key []int) error {
	if len(key) != r.Len() {
		return fmt.Errorf("key has %d answers for range %d~%d", len(key), r.Start, r.End)
	}
	if err := w.f.SetCellValue(sheet, cell(QuestionCol, HeaderRow), QuestionHeader); err != nil {
		return err
	}
	if err := w.f.SetCellValue(sheet, cell(KeyCol, HeaderRow), KeyHeader); err != nil {
		return err
	}
	for q := answers.MinQuestion; q <= answers.MaxQuestion; q++ {
		if err := w.f.SetCellValue(sheet, cell(QuestionCol, rowOf(q)), q); err != nil {
			return err
		}
	}
	for i, v := range key {
		if err := w.f.SetCellValue(sheet, cell(KeyCol, rowOf(r.Start+i)), v); err != nil {
			return err
		}
	}
	return nil
}

// StudentColumn finds the column whose header equals name, scanning from column 3.
func (w *Writer) StudentColumn(sheet, name string) (int, bool, error) {
	rows, err := w.f.GetRows(sheet)
	if err != nil {
		return 0, false, err
	}
	if len(rows) == 0 {
		return 0, false, nil
	}
	header := rows[0]
	for c := FirstStudentCol; c <= len(header); c++ {
		if strings.TrimSpace(header[c-1]) == name {
			return c, true, nil
		}
	}
	return 0, false, nil
}

// nextColumn is one past the rightmost used column, never left of column 3.
func (w *Writer) nextColumn(sheet string) (int, error) {
	rows, err := w.f.GetRows(sheet)
	if err != nil {
		return 0, err
	}
	widest := 0
	for _, row := range rows {
		if len(row) > widest {
			widest = len(row)
		}
	}
	if widest+1 < FirstStudentCol {
		return FirstStudentCol, nil
	}
	return widest + 1, nil
}

// UpsertStudent writes a student's answers for r into the column headed by name,
// creating the column if needed. Cells that disagree with a present key are
// highlighted and cells that agree lose any earlier highlight.
func (w *Writer) UpsertStudent(sheet, name string, r answers.Range, values []int) (col int, created bool, err error) {
	if len(values) != r.Len() {
		return 0, false, fmt.Errorf("student %q has %d answers for range %d~%d", name, len(values), r.Start, r.End)
	}
	col, found, err := w.StudentColumn(sheet, name)
	if err != nil {
		return 0, false, err
	}
	if !found {
		if col, err = w.nextColumn(sheet); err != nil {
			return 0, false, err
		}
		if err = w.f.SetCellValue(sheet, cell(col, HeaderRow), name); err != nil {
			return 0, false, err
		}
	}

	for i, v := range values {
		row := rowOf(r.Start + i)
		ref := cell(col, row)
		if err = w.f.SetCellValue(sheet, ref, v); err != nil {
			return 0, false, err
		}
		key, ok, kerr := w.keyAt(sheet, row)
		if kerr != nil {
			return 0, false, kerr
		}
		current, serr := w.f.GetCellStyle(sheet, ref)
		if serr != nil {
			return 0, false, serr
		}
		style := current
		switch {
		case ok && key != v:
			style = w.wrongFill
		case current == w.wrongFill:
			style = 0
		}
		if style != current {
			if err = w.f.SetCellStyle(sheet, ref, ref, style); err != nil {
				return 0, false, err
			}
		}
	}
	return col, !found, nil
}

// keyAt reads the raw value of column B, ignoring any number format. Empty, zero,
// fractional and non-numeric cells mean "no key".
func (w *Writer) keyAt(sheet string, row int) (int, bool, error) {
	raw, err := w.f.GetCellValue(sheet, cell(KeyCol, row), excelize.Options{RawCellValue: true})
	if err != nil {
		return 0, false, err
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f == 0 || f != math.Trunc(f) {
		return 0, false, nil
	}
	return int(f), true, nil
}

// KeyRange reports the first..last question that has a key in column B.
func (w *Writer) KeyRange(sheet string) (answers.Range, bool, error) {
	var r answers.Range
	found := false
	for q := answers.MinQuestion; q <= answers.MaxQuestion; q++ {
		_, ok, err := w.keyAt(sheet, rowOf(q))
		if err != nil {
			return answers.Range{}, false, err
		}
		if !ok {
			continue
		}
		if !found {
			r.Start = q
			found = true
		}
		r.End = q
	}
	return r, found, nil
}

// HasSheet reports whether the workbook contains a sheet with this exact name.
func (w *Writer) HasSheet(name string) bool {
	idx, err := w.f.GetSheetIndex(name)
	return err == nil && idx >= 0
}
