package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/mind-engage/mindengage-answerkey/internal/answers"
	authmw "github.com/mind-engage/mindengage-answerkey/internal/auth/middleware"
	"github.com/mind-engage/mindengage-answerkey/internal/history"
	"github.com/mind-engage/mindengage-answerkey/internal/keysheet"
	"github.com/mind-engage/mindengage-answerkey/internal/rbac"
	"github.com/mind-engage/mindengage-answerkey/internal/storage"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// WorkbookService is the part of keysheet.Service the handlers call.
type WorkbookService interface {
	CreateWorkbook(ctx context.Context, sub keysheet.NewSubmission) (keysheet.Result, error)
	AddStudents(ctx context.Context, sub keysheet.AddSubmission) (keysheet.Result, error)
}

// HistoryReader is nil when the server runs without a database.
type HistoryReader interface {
	Get(ctx context.Context, id string) (history.Entry, error)
	List(ctx context.Context, limit, offset int) ([]history.Entry, error)
}

func (d Deps) page(r *http.Request, mode string, errs []string, form url.Values) indexPage {
	ctx := r.Context()
	return indexPage{
		Mode:       mode,
		Errors:     errs,
		Form:       form,
		Categories: keysheet.Categories,
		Levels:     keysheet.Levels,
		NewRows:    rowsToShow(form, newPrefix),
		AddRows:    rowsToShow(form, addPrefix),
		CanCreate:  rbac.Allowed(ctx, rbac.PermWorkbookCreate),
		CanUpdate:  rbac.Allowed(ctx, rbac.PermWorkbookUpdate),
		User:       authmw.SubjectFromContext(ctx),
		AuthOn:     d.Auth != nil,
		Version:    d.Version,
	}
}

func IndexHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render(w, d.Log, http.StatusOK, "index.html", d.page(r, "none", nil, nil))
	}
}

// SubmitHandler serves both form modes. Validation failures re-render the form
// with every message and the submitted values.
func SubmitHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, d.MaxUploadBytes)
		if err := r.ParseMultipartForm(d.MaxUploadBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				http.Error(w, "upload too large", http.StatusRequestEntityTooLarge)
				return
			}
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		if r.MultipartForm != nil {
			defer r.MultipartForm.RemoveAll()
		}

		ctx := keysheet.WithActor(r.Context(), authmw.SubjectFromContext(r.Context()))
		mode := r.FormValue("mode")

		var (
			res keysheet.Result
			err error
		)
		switch mode {
		case keysheet.ModeNew:
			if !rbac.Allowed(ctx, rbac.PermWorkbookCreate) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			res, err = d.Service.CreateWorkbook(ctx, newSubmissionFromForm(r.Form))
		case keysheet.ModeAdd:
			if !rbac.Allowed(ctx, rbac.PermWorkbookUpdate) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			name, data, ferr := readUpload(r, "excel_file")
			if ferr != nil {
				var tooBig *http.MaxBytesError
				if errors.As(ferr, &tooBig) {
					http.Error(w, "upload too large", http.StatusRequestEntityTooLarge)
					return
				}
				http.Error(w, "bad upload", http.StatusBadRequest)
				return
			}
			res, err = d.Service.AddStudents(ctx, addSubmissionFromForm(r.Form, name, data))
		default:
			render(w, d.Log, http.StatusBadRequest, "index.html",
				d.page(r, "none", []string{"알 수 없는 요청입니다."}, r.Form))
			return
		}

		if err != nil {
			var ve *answers.ValidationError
			if errors.As(err, &ve) {
				render(w, d.Log, http.StatusUnprocessableEntity, "index.html", d.page(r, mode, ve.Problems.Messages(), r.Form))
				return
			}
			d.Log.Error("workbook request failed",
				zap.String("mode", mode),
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.Error(err))
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeXLSX(w, res.Filename, res.Data)
	}
}

// readUpload returns a nil body when the field is absent.
func readUpload(r *http.Request, field string) (string, []byte, error) {
	f, hdr, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil, nil
	}
	if err != nil {
		return "", nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return "", nil, err
	}
	return hdr.Filename, data, nil
}

func writeXLSX(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

func HistoryHandler(hist HistoryReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if hist == nil {
			http.Error(w, "history disabled", http.StatusNotFound)
			return
		}
		limit, offset := history.Page(
			parseIntDefault(r.URL.Query().Get("limit"), history.DefaultLimit),
			parseIntDefault(r.URL.Query().Get("offset"), 0))
		list, err := hist.List(r.Context(), limit, offset)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if list == nil {
			list = []history.Entry{}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"items": list, "limit": limit, "offset": offset})
	}
}

// DownloadHandler re-serves a stored workbook by its history id.
func DownloadHandler(hist HistoryReader, bs storage.BlobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if hist == nil {
			http.Error(w, "history disabled", http.StatusNotFound)
			return
		}
		e, err := hist.Get(r.Context(), chi.URLParam(r, "id"))
		if errors.Is(err, history.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		rc, err := bs.Get(e.BlobKey)
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			http.Error(w, fmt.Sprintf("read workbook: %v", err), http.StatusInternalServerError)
			return
		}
		writeXLSX(w, e.Filename, data)
	}
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil && v >= 0 {
		return v
	}
	return def
}
