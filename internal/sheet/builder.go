package sheet

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/mind-engage/mindengage-answerkey/internal/answers"
)

// Meta identifies one mock exam; it only feeds the filename.
type Meta struct {
	Grade  int    `yaml:"grade"`
	Year   int    `yaml:"year"`
	Month  int    `yaml:"month"`
	Level  string `yaml:"level"`
	Round  int    `yaml:"round"`
	School string `yaml:"school"`
}

// Filename is deterministic in the metadata. A school name replaces the level token.
func (m Meta) Filename() string {
	lead := m.Level
	if m.School != "" {
		lead = "[" + m.School + "]"
	}
	return fmt.Sprintf("%s %d회 %d학년도 %d월 고%d 모의고사 진단지.xlsx", lead, m.Round, m.Year, m.Month, m.Grade)
}

// Key is the correct-answer block for one category sheet.
type Key struct {
	Category string
	Range    answers.Range
	Answers  []int
}

// Build creates a workbook with one sheet per key, in the given order.
func Build(keys []Key) (*Writer, error) {
	if len(keys) == 0 {
		return nil, errors.New("no categories to build")
	}
	f := excelize.NewFile()
	first := f.GetSheetName(0)
	for i, k := range keys {
		if i == 0 {
			if err := f.SetSheetName(first, k.Category); err != nil {
				_ = f.Close()
				return nil, fmt.Errorf("sheet %q: %w", k.Category, err)
			}
			continue
		}
		if _, err := f.NewSheet(k.Category); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("sheet %q: %w", k.Category, err)
		}
	}
	f.SetActiveSheet(0)

	w, err := NewWriter(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	for _, k := range keys {
		if err := w.WriteKey(k.Category, k.Range, k.Answers); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("write key %q: %w", k.Category, err)
		}
	}
	return w, nil
}

// Open reads an uploaded workbook.
func Open(data []byte) (*Writer, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	w, err := NewWriter(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return w, nil
}

// Bytes serializes the workbook.
func (w *Writer) Bytes() ([]byte, error) {
	buf, err := w.f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (w *Writer) Close() error { return w.f.Close() }
