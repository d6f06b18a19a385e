package history

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

var ErrNotFound = errors.New("workbook not found")

// Entry is one produced workbook.
type Entry struct {
	ID         string   `json:"id"`
	Mode       string   `json:"mode"` // new|add
	Filename   string   `json:"filename"`
	BlobKey    string   `json:"blob_key"`
	Categories []string `json:"categories"`
	Students   int      `json:"students"`
	CreatedBy  string   `json:"created_by,omitempty"`
	CreatedAt  int64    `json:"created_at"`
}

type Repo struct {
	db  *sql.DB
	now func() time.Time
}

func NewRepo(db *sql.DB) *Repo { return &Repo{db: db, now: time.Now} }

func (r *Repo) Record(ctx context.Context, e Entry) error {
	if e.CreatedAt == 0 {
		e.CreatedAt = r.now().Unix()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO workbooks (id, mode, filename, blob_key, categories, students, created_by, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		e.ID, e.Mode, e.Filename, e.BlobKey, strings.Join(e.Categories, ","), e.Students, e.CreatedBy, e.CreatedAt)
	return err
}

func (r *Repo) Get(ctx context.Context, id string) (Entry, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, mode, filename, blob_key, categories, students, created_by, created_at
		 FROM workbooks WHERE id=$1`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	return e, err
}

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// Page clamps list paging: limit to 1..MaxLimit (DefaultLimit when unset) and
// offset to >= 0.
func Page(limit, offset int) (int, int) {
	switch {
	case limit <= 0:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// List returns the newest entries first.
func (r *Repo) List(ctx context.Context, limit, offset int) ([]Entry, error) {
	limit, offset = Page(limit, offset)
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, mode, filename, blob_key, categories, students, created_by, created_at
		 FROM workbooks ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (Entry, error) {
	var e Entry
	var cats string
	if err := s.Scan(&e.ID, &e.Mode, &e.Filename, &e.BlobKey, &cats, &e.Students, &e.CreatedBy, &e.CreatedAt); err != nil {
		return Entry{}, err
	}
	e.Categories = []string{}
	if cats != "" {
		e.Categories = strings.Split(cats, ",")
	}
	return e, nil
}
