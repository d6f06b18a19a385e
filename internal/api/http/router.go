package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	authmw "github.com/mind-engage/mindengage-answerkey/internal/auth/middleware"
	"github.com/mind-engage/mindengage-answerkey/internal/logging"
	"github.com/mind-engage/mindengage-answerkey/internal/rbac"
	"github.com/mind-engage/mindengage-answerkey/internal/storage"
)

type Deps struct {
	Service WorkbookService
	Blobs   storage.BlobStore
	History HistoryReader       // optional
	Auth    *authmw.AuthService // nil: no login, every request is admin
	Log     *zap.Logger
	Ready   func(context.Context) error

	Version        string
	MaxUploadBytes int64
	CORSOrigins    []string
}

func NewRouter(d Deps) http.Handler {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.MaxUploadBytes <= 0 {
		d.MaxUploadBytes = 16 << 20
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, logging.Middleware(d.Log), middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(NoCache)
	if len(d.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   d.CORSOrigins,
			AllowedMethods:   []string{"GET", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Content-Length", "Content-Disposition"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", ReadyHandler(d.Ready))
	r.Get("/_version", VersionHandler(d.Version))

	if d.Auth != nil {
		r.Get("/login", LoginPageHandler(d.Log))
		r.Post("/login", LoginHandler(d.Auth, d.Log))
		r.Post("/logout", LogoutHandler())
	} else {
		r.Get("/login", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/", http.StatusSeeOther)
		})
	}

	r.Group(func(pr chi.Router) {
		if d.Auth != nil {
			pr.Use(authmw.JWTMiddleware(d.Auth))
		} else {
			pr.Use(authmw.Anonymous(rbac.RoleAdmin))
		}

		// the mode in the body decides which of the two is needed
		pr.With(rbac.RequireAny(rbac.PermWorkbookCreate, rbac.PermWorkbookUpdate)).
			Get("/", IndexHandler(d))
		pr.With(rbac.RequireAny(rbac.PermWorkbookCreate, rbac.PermWorkbookUpdate)).
			Post("/", SubmitHandler(d))

		pr.With(rbac.Require(rbac.PermHistoryView)).
			Get("/history", HistoryHandler(d.History))
		pr.With(rbac.Require(rbac.PermHistoryView)).
			Get("/workbooks/{id}", DownloadHandler(d.History, d.Blobs))
	})

	return r
}

func VersionHandler(v string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintf(w, "VERSION: %s", v)
	}
}

func ReadyHandler(ready func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ready != nil {
			if err := ready(r.Context()); err != nil {
				http.Error(w, "not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(200)
	}
}

// NoCache stops browsers from keeping stale pages, scripts or JSON.
func NoCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
		h.Set("Pragma", "no-cache")
		h.Set("Expires", "0")
		next.ServeHTTP(w, r)
	})
}
