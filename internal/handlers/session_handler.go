package handlers

import (
	"net/http"

	jwtutil "github.com/Dias221467/Streak_Tracker/pkg/jwt"
	"github.com/Dias221467/Streak_Tracker/pkg/middleware"
	"github.com/sirupsen/logrus"
)

type sessionResponse struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
}

// SessionHandler reports the identity behind the bearer token.
func SessionHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{UserID: claims.UserID, Email: claims.Email})
}

// HealthHandler is the liveness probe.
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func requireUser(w http.ResponseWriter, r *http.Request) (*jwtutil.Claims, bool) {
	claims, err := middleware.CurrentUser(r.Context())
	if err != nil {
		logrus.WithField("path", r.URL.Path).Warn("Unauthorized access attempt")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return nil, false
	}
	return claims, true
}
