package main

import (
	"net/http"

	pkgerrors "github.com/Simplici0/partquote/internal/errors"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), s.logg, w, err)
		return
	}

	valid, err := s.auth.validateCredentials(req.Email, req.Password)
	if err != nil {
		writeError(r.Context(), s.logg, w, err)
		return
	}
	if !valid {
		writeError(r.Context(), s.logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials"))
		return
	}

	sess := s.auth.newSession(req.Email)
	s.auth.setSessionCookie(w, sess)
	s.logg.Info(s.logg.WithField(r.Context(), "user", sess.Email), "auth.login")
	writeSuccess(w, map[string]string{"email": sess.Email})
}

func (s *server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sess, ok := sessionFromContext(r.Context()); ok {
		s.carts.drop(sess.ID)
	}
	s.auth.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.PingContext(r.Context()); err != nil {
		writeError(r.Context(), s.logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database unavailable"))
		return
	}
	writeSuccess(w, map[string]string{"status": "ok"})
}
