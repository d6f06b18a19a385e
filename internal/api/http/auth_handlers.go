package http

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	authmw "github.com/mind-engage/mindengage-answerkey/internal/auth/middleware"
)

func LoginPageHandler(log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render(w, log, http.StatusOK, "login.html", loginPage{})
	}
}

// LoginHandler checks a form login and sets the session cookie.
func LoginHandler(a *authmw.AuthService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		username := strings.TrimSpace(r.PostForm.Get("username"))
		acc, err := a.Authenticate(username, r.PostForm.Get("password"))
		if err != nil {
			log.Info("login failed", zap.String("username", username))
			render(w, log, http.StatusUnauthorized, "login.html", loginPage{
				Error:    "아이디 또는 비밀번호가 올바르지 않습니다.",
				Username: username,
			})
			return
		}
		tok, err := a.IssueJWT(acc.Username, acc.Role)
		if err != nil {
			http.Error(w, "token error", http.StatusInternalServerError)
			return
		}
		a.SetSession(w, r, tok)
		log.Info("login", zap.String("username", acc.Username), zap.String("role", acc.Role))
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

func LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authmw.ClearSession(w)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	}
}
