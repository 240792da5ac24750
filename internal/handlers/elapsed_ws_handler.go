package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/Dias221467/Streak_Tracker/internal/models"
	"github.com/Dias221467/Streak_Tracker/internal/repository"
	"github.com/Dias221467/Streak_Tracker/internal/services"
	jwtutil "github.com/Dias221467/Streak_Tracker/pkg/jwt"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ElapsedFrame is one update pushed to a live card.
type ElapsedFrame struct {
	HabitID string            `json:"habit_id"`
	Stats   models.HabitStats `json:"stats"`
	At      time.Time         `json:"at"`
}

// ElapsedHandler streams the time since a habit was last tracked.
type ElapsedHandler struct {
	Service   *services.HabitService
	JWTSecret string
	Tick      time.Duration
}

func NewElapsedHandler(service *services.HabitService, jwtSecret string, tick time.Duration) *ElapsedHandler {
	if tick <= 0 {
		tick = time.Second
	}
	return &ElapsedHandler{Service: service, JWTSecret: jwtSecret, Tick: tick}
}

// ElapsedWebSocketHandler authenticates with the token query parameter, since
// browsers cannot set headers on an upgrade, then pushes one frame per tick
// until the client goes away or the habit is deleted.
func (h *ElapsedHandler) ElapsedWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "Missing token", http.StatusUnauthorized)
		return
	}
	claims, err := jwtutil.ValidateToken(token, h.JWTSecret)
	if err != nil {
		logrus.WithError(err).Warn("WebSocket auth failed")
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}
	userID := claims.UserID
	habitID := mux.Vars(r)["id"]

	stats, err := h.Service.Stats(r.Context(), userID, habitID)
	if err != nil {
		writeServiceError(w, err, "Failed to fetch habit")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.WithError(err).Warn("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	log := logrus.WithFields(logrus.Fields{"userID": userID, "habitID": habitID})
	log.Info("Elapsed stream connected")
	defer log.Info("Elapsed stream disconnected")

	// The client sends nothing; reading only detects the close.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.Tick)
	defer ticker.Stop()

	if err := h.send(conn, habitID, stats); err != nil {
		return
	}
	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
			stats, err := h.Service.Stats(r.Context(), userID, habitID)
			if errors.Is(err, repository.ErrHabitNotFound) {
				h.closeWith(conn, "habit deleted")
				return
			}
			if err != nil {
				log.WithError(err).Warn("Failed to refresh elapsed time")
				continue
			}
			if err := h.send(conn, habitID, stats); err != nil {
				log.WithError(err).Debug("Elapsed frame write failed")
				return
			}
		}
	}
}

func (h *ElapsedHandler) send(conn *websocket.Conn, habitID string, stats models.HabitStats) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(ElapsedFrame{HabitID: habitID, Stats: stats, At: time.Now().UTC()})
}

func (h *ElapsedHandler) closeWith(conn *websocket.Conn, reason string) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}
