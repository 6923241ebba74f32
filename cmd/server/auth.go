package main

import (
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

const sessionCookieName = "partquote_session"

type authService struct {
	db            *sqlx.DB
	sessionSecret []byte
	secureCookie  bool
}

// session identifies one login. Each login gets its own cart.
type session struct {
	Email string
	ID    string
}

func newAuthService(db *sqlx.DB, sessionSecret string, secureCookie bool) *authService {
	return &authService{db: db, sessionSecret: []byte(sessionSecret), secureCookie: secureCookie}
}

func (a *authService) validateCredentials(email, password string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var passwordHash string
	err := a.db.Get(&passwordHash, `SELECT password_hash FROM users WHERE email = ?`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query user credentials: %w", err)
	}

	err = bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("compare password hash: %w", err)
	}
	return true, nil
}

func (a *authService) newSession(email string) session {
	return session{Email: strings.ToLower(strings.TrimSpace(email)), ID: uuid.NewString()}
}

func (a *authService) createSessionValue(s session) string {
	payload := base64.RawURLEncoding.EncodeToString([]byte(s.ID + "|" + s.Email))
	mac := hmac.New(sha256.New, a.sessionSecret)
	_, _ = mac.Write([]byte(payload))
	signature := hex.EncodeToString(mac.Sum(nil))
	return payload + "." + signature
}

func (a *authService) verifySessionValue(value string) (session, bool) {
	parts := strings.Split(value, ".")
	if len(parts) != 2 {
		return session{}, false
	}

	payload := parts[0]
	signature := parts[1]

	mac := hmac.New(sha256.New, a.sessionSecret)
	_, _ = mac.Write([]byte(payload))
	expected := mac.Sum(nil)

	provided, err := hex.DecodeString(signature)
	if err != nil {
		return session{}, false
	}
	if !hmac.Equal(provided, expected) {
		return session{}, false
	}

	decoded, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return session{}, false
	}
	id, email, ok := strings.Cut(string(decoded), "|")
	if !ok || id == "" || email == "" {
		return session{}, false
	}

	return session{Email: email, ID: id}, true
}

func (a *authService) setSessionCookie(w http.ResponseWriter, s session) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    a.createSessionValue(s),
		Path:     "/",
		HttpOnly: true,
		Secure:   a.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (a *authService) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (a *authService) sessionFromRequest(r *http.Request) (session, bool) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return session{}, false
	}
	return a.verifySessionValue(cookie.Value)
}
