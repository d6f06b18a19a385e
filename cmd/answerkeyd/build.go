package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mind-engage/mindengage-answerkey/internal/answers"
	"github.com/mind-engage/mindengage-answerkey/internal/keysheet"
	"github.com/mind-engage/mindengage-answerkey/internal/storage"
)

// scalar takes any YAML scalar as text, so `round: 3` and `answers: 12345`
// read the same as their quoted forms.
type scalar string

func (s *scalar) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a scalar", n.Line)
	}
	*s = scalar(n.Value)
	return nil
}

type keyFile struct {
	Start   scalar `yaml:"start"`
	End     scalar `yaml:"end"`
	Answers scalar `yaml:"answers"`
}

type studentFile struct {
	Name     scalar `yaml:"name"`
	Category scalar `yaml:"category"`
	Start    scalar `yaml:"start"`
	End      scalar `yaml:"end"`
	Answers  scalar `yaml:"answers"`
}

// examFile is the YAML form of the new-workbook form.
type examFile struct {
	Grade    scalar             `yaml:"grade"`
	Year     scalar             `yaml:"year"`
	Month    scalar             `yaml:"month"`
	Level    scalar             `yaml:"level"`
	Round    scalar             `yaml:"round"`
	School   scalar             `yaml:"school"`
	Keys     map[string]keyFile `yaml:"keys"`
	Students []studentFile      `yaml:"students"`
}

func decodeExam(r io.Reader) (keysheet.NewSubmission, error) {
	var ef examFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&ef); err != nil {
		return keysheet.NewSubmission{}, fmt.Errorf("decode exam: %w", err)
	}

	sub := keysheet.NewSubmission{
		Grade:    string(ef.Grade),
		Year:     string(ef.Year),
		Month:    string(ef.Month),
		Level:    string(ef.Level),
		Round:    string(ef.Round),
		School:   string(ef.School),
		Keys:     map[string]keysheet.KeyInput{},
		Students: studentsFrom(ef.Students),
	}
	for cat, k := range ef.Keys {
		sub.Categories = append(sub.Categories, cat)
		sub.Keys[cat] = keysheet.KeyInput{
			Answers: string(k.Answers),
			Bounds:  answers.Bounds{Start: string(k.Start), End: string(k.End)},
		}
	}
	return sub, nil
}

func studentsFrom(in []studentFile) []keysheet.StudentInput {
	out := make([]keysheet.StudentInput, len(in))
	for i, s := range in {
		out[i] = keysheet.StudentInput{
			Index:    i + 1,
			Name:     string(s.Name),
			Category: string(s.Category),
			Answers:  string(s.Answers),
			Bounds:   answers.Bounds{Start: string(s.Start), End: string(s.End)},
		}
	}
	return out
}

func decodeStudents(r io.Reader) ([]keysheet.StudentInput, error) {
	var doc struct {
		Students []studentFile `yaml:"students"`
	}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode students: %w", err)
	}
	return studentsFrom(doc.Students), nil
}

var (
	inFile   string
	outDir   string
	workbook string
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Create a workbook from an exam YAML file",
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(inFile)
		if err != nil {
			return err
		}
		defer f.Close()
		sub, err := decodeExam(f)
		if err != nil {
			return err
		}
		svc, err := localService(outDir)
		if err != nil {
			return err
		}
		res, err := svc.CreateWorkbook(cmd.Context(), sub)
		return report(cmd, res, err)
	},
}

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add or update students in an existing workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(inFile)
		if err != nil {
			return err
		}
		defer f.Close()
		students, err := decodeStudents(f)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(workbook)
		if err != nil {
			return err
		}
		svc, err := localService(outDir)
		if err != nil {
			return err
		}
		res, err := svc.AddStudents(cmd.Context(), keysheet.AddSubmission{
			Filename: filepath.Base(workbook),
			File:     data,
			Students: students,
		})
		return report(cmd, res, err)
	},
}

func init() {
	for _, c := range []*cobra.Command{buildCmd, addCmd} {
		c.Flags().StringVarP(&inFile, "file", "f", "", "YAML input")
		c.Flags().StringVarP(&outDir, "out", "o", ".", "output directory")
		_ = c.MarkFlagRequired("file")
	}
	addCmd.Flags().StringVarP(&workbook, "workbook", "w", "", "workbook to update")
	_ = addCmd.MarkFlagRequired("workbook")
}

func localService(dir string) (*keysheet.Service, error) {
	bs, err := storage.NewFSStore(dir)
	if err != nil {
		return nil, err
	}
	return keysheet.NewService(bs, keysheet.WithLogger(logger)), nil
}

// report prints every validation message on its own line.
func report(cmd *cobra.Command, res keysheet.Result, err error) error {
	var ve *answers.ValidationError
	if errors.As(err, &ve) {
		for _, m := range ve.Problems.Messages() {
			fmt.Fprintln(cmd.ErrOrStderr(), m)
		}
		return fmt.Errorf("%d problem(s) found", len(ve.Problems))
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), filepath.Join(outDir, filepath.FromSlash(res.Key)))
	return nil
}
