package http

import (
	"embed"
	"html/template"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.New("").Funcs(template.FuncMap{
	"val": func(f url.Values, k string) string {
		if f == nil {
			return ""
		}
		return f.Get(k)
	},
	"checked": func(f url.Values, k, v string) bool {
		for _, x := range f[k] {
			if x == v {
				return true
			}
		}
		return false
	},
	"seq": func(n int) []int {
		out := make([]int, n)
		for i := range out {
			out[i] = i + 1
		}
		return out
	},
	"rowKey": func(prefix string, i int, name string) string {
		return prefix + "_" + strconv.Itoa(i) + "_" + name
	},
}).ParseFS(templateFS, "templates/*.html"))

type indexPage struct {
	Mode       string // new|add|none
	Errors     []string
	Form       url.Values
	Categories []string
	Levels     []string
	NewRows    int
	AddRows    int
	CanCreate  bool
	CanUpdate  bool
	User       string
	AuthOn     bool
	Version    string
}

type loginPage struct {
	Error    string
	Username string
}

func render(w http.ResponseWriter, log *zap.Logger, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pages.ExecuteTemplate(w, name, data); err != nil {
		log.Error("template exec", zap.String("template", name), zap.Error(err))
	}
}
