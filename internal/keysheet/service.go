package keysheet

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mind-engage/mindengage-answerkey/internal/answers"
	"github.com/mind-engage/mindengage-answerkey/internal/history"
	"github.com/mind-engage/mindengage-answerkey/internal/sheet"
	"github.com/mind-engage/mindengage-answerkey/internal/storage"
)

const (
	ModeNew = "new"
	ModeAdd = "add"
)

// Recorder stores one history entry per produced workbook.
type Recorder interface {
	Record(ctx context.Context, e history.Entry) error
}

// Result is a produced workbook, already persisted under Key.
type Result struct {
	ID       string
	Filename string
	Key      string
	Data     []byte
	Students int
}

type Service struct {
	blobs   storage.BlobStore
	history Recorder
	log     *zap.Logger
	newID   func() string
}

type Option func(*Service)

func WithHistory(r Recorder) Option     { return func(s *Service) { s.history = r } }
func WithLogger(l *zap.Logger) Option   { return func(s *Service) { s.log = l } }
func WithIDFunc(f func() string) Option { return func(s *Service) { s.newID = f } }

func NewService(blobs storage.BlobStore, opts ...Option) *Service {
	s := &Service{
		blobs: blobs,
		log:   zap.NewNop(),
		newID: func() string { return uuid.NewString() },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// CreateWorkbook validates the whole submission, builds the workbook in memory,
// writes the students and persists it once.
func (s *Service) CreateWorkbook(ctx context.Context, sub NewSubmission) (Result, error) {
	plan, problems := ValidateNew(sub)
	if err := problems.Err(); err != nil {
		return Result{}, err
	}

	w, err := sheet.Build(plan.Keys)
	if err != nil {
		return Result{}, fmt.Errorf("build workbook: %w", err)
	}
	defer w.Close()

	for _, st := range plan.Students {
		if _, _, err := w.UpsertStudent(st.Category, st.Name, st.Range, st.Answers); err != nil {
			return Result{}, fmt.Errorf("write student %q: %w", st.Name, err)
		}
	}

	cats := make([]string, len(plan.Keys))
	for i, k := range plan.Keys {
		cats[i] = k.Category
	}
	return s.persist(ctx, w, ModeNew, plan.Meta.Filename(), cats, len(plan.Students))
}

// AddStudents updates an uploaded workbook. An unreadable file is reported on its
// own since nothing else can be checked against it.
func (s *Service) AddStudents(ctx context.Context, sub AddSubmission) (Result, error) {
	prefix := sub.FieldPrefix
	if prefix == "" {
		prefix = "add_student"
	}
	drafts, problems := parseStudents(prefix, sub.Students)
	if len(sub.File) == 0 {
		problems.Add(answers.KindMissingFile, "excel_file", "엑셀 파일을 업로드하세요.")
		return Result{}, problems.Err()
	}

	w, err := sheet.Open(sub.File)
	if err != nil {
		s.log.Info("rejected upload", zap.String("filename", sub.Filename), zap.Error(err))
		var p answers.Problems
		p.Add(answers.KindBadUpload, "excel_file", "업로드한 파일이 엑셀 형식이 아닙니다. .xlsx로 저장된 파일을 업로드하세요.")
		return Result{}, p.Err()
	}
	defer w.Close()

	students, sheetProblems := checkWorkbook(prefix, w, drafts)
	problems.Merge(sheetProblems)
	if err := problems.Err(); err != nil {
		return Result{}, err
	}

	cats := []string{}
	for _, st := range students {
		if _, _, err := w.UpsertStudent(st.Category, st.Name, st.Range, st.Answers); err != nil {
			return Result{}, fmt.Errorf("write student %q: %w", st.Name, err)
		}
		if !contains(cats, st.Category) {
			cats = append(cats, st.Category)
		}
	}
	return s.persist(ctx, w, ModeAdd, SafeFilename(sub.Filename), cats, len(students))
}

func (s *Service) persist(ctx context.Context, w *sheet.Writer, mode, filename string, cats []string, students int) (Result, error) {
	data, err := w.Bytes()
	if err != nil {
		return Result{}, fmt.Errorf("serialize workbook: %w", err)
	}
	id := s.newID()
	dir := "generated"
	if mode == ModeAdd {
		dir = "updated"
	}
	key, err := s.blobs.Put(path.Join(dir, id, filename), bytes.NewReader(data))
	if err != nil {
		return Result{}, fmt.Errorf("store workbook: %w", err)
	}

	if s.history != nil {
		err := s.history.Record(ctx, history.Entry{
			ID:         id,
			Mode:       mode,
			Filename:   filename,
			BlobKey:    key,
			Categories: cats,
			Students:   students,
			CreatedBy:  ActorFromContext(ctx),
		})
		if err != nil {
			s.log.Warn("history record failed", zap.String("id", id), zap.Error(err))
		}
	}
	s.log.Info("workbook stored",
		zap.String("id", id),
		zap.String("mode", mode),
		zap.String("key", key),
		zap.Int("students", students),
		zap.Int("bytes", len(data)))

	return Result{ID: id, Filename: filename, Key: key, Data: data, Students: students}, nil
}

// SafeFilename keeps the upload's base name, drops path parts and control
// characters, and forces an .xlsx extension.
func SafeFilename(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	name = path.Base(name)
	name = strings.Map(func(r rune) rune {
		switch {
		case r < 0x20 || r == 0x7f:
			return -1
		case strings.ContainsRune(`/:*?"<>|`, r):
			return '_'
		}
		return r
	}, name)
	name = strings.Trim(strings.TrimSpace(name), ".")
	if name == "" || name == "/" {
		name = "workbook"
	}
	if !strings.EqualFold(path.Ext(name), ".xlsx") {
		name = strings.TrimSuffix(name, path.Ext(name)) + ".xlsx"
	}
	return name
}

type ctxKey struct{}

// WithActor tags the context with the user producing a workbook.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, ctxKey{}, actor)
}

func ActorFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKey{}).(string); ok {
		return v
	}
	return ""
}
