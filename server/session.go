package server

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"tankarena/logging"
	"tankarena/protocol"
)

const sessionCookie = "userID"

// HandleSession 下发会话身份；已有 userID cookie 时沿用
// GET /session  返回 {"userID":"..."}
func (s *Server) HandleSession(w http.ResponseWriter, r *http.Request) {
	userID := ""
	if c, err := r.Cookie(sessionCookie); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			userID = c.Value
		}
	}
	if userID == "" {
		userID = uuid.NewString()
		logging.Log.Infow("session created", "userID", userID, "remote", r.RemoteAddr)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    userID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, protocol.Session{UserID: userID})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
