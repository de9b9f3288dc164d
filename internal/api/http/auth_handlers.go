package http

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	auth "github.com/quizdeck/quizdeck-api/internal/auth/middleware"
)

// POST /auth/login  { "username": "...", "password": "..." }
func LoginHandler(db *sql.DB, a *auth.AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		var id, hash, role string
		err := db.QueryRowContext(r.Context(),
			`SELECT id,password_hash,role FROM users WHERE username=$1`, req.Username).
			Scan(&id, &hash, &role)
		if errors.Is(err, sql.ErrNoRows) ||
			(err == nil && bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)) != nil) {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		tok, err := a.IssueJWT(id, role)
		if err != nil {
			http.Error(w, "issue token", http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]string{"access_token": tok, "role": role})
	}
}

// SeedAdmin inserts the configured admin account when it does not exist
// yet, so a fresh deployment is usable.
func SeedAdmin(db *sql.DB, username, passHash string) error {
	_, err := db.Exec(`INSERT INTO users (id,username,password_hash,role)
		VALUES ($1,$2,$3,'admin') ON CONFLICT (username) DO NOTHING`,
		username, username, passHash)
	return err
}
