package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/Dias221467/Streak_Tracker/internal/models"
	"github.com/Dias221467/Streak_Tracker/internal/repository"
	"github.com/Dias221467/Streak_Tracker/internal/services"
	"github.com/Dias221467/Streak_Tracker/internal/streak"
	"github.com/Dias221467/Streak_Tracker/pkg/middleware"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// HabitHandler handles HTTP requests related to habits.
type HabitHandler struct {
	Service *services.HabitService
}

// NewHabitHandler creates a new instance of HabitHandler.
func NewHabitHandler(service *services.HabitService) *HabitHandler {
	return &HabitHandler{Service: service}
}

type createHabitRequest struct {
	Title string `json:"title"`
}

type notesRequest struct {
	Notes string `json:"notes"`
}

type resetRequest struct {
	Reason string `json:"reason"`
}

// CreateHabitHandler creates a habit for the signed-in user.
func (h *HabitHandler) CreateHabitHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req createHabitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logrus.WithError(err).Warn("Invalid request payload during habit creation")
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	habit, err := h.Service.CreateHabit(r.Context(), claims.UserID, req.Title)
	if err != nil {
		writeServiceError(w, err, "Failed to create habit")
		return
	}

	logrus.WithFields(logrus.Fields{
		"userID":  claims.UserID,
		"habitID": habit.ID,
	}).Info("Habit successfully created")

	writeJSON(w, http.StatusCreated, habit)
}

// GetHabitsHandler lists the user's habits as cards, newest first. A failed
// fetch is logged and answered with an empty list.
func (h *HabitHandler) GetHabitsHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireUser(w, r)
	if !ok {
		return
	}

	cards, err := h.Service.ListCards(r.Context(), claims.UserID)
	if err != nil {
		logrus.WithError(err).WithField("userID", claims.UserID).Error("Failed to fetch habits")
		cards = []models.HabitCard{}
	}
	writeJSON(w, http.StatusOK, cards)
}

// GetHabitHandler returns one card with its recent logs.
func (h *HabitHandler) GetHabitHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireUser(w, r)
	if !ok {
		return
	}
	habitID := mux.Vars(r)["id"]

	card, err := h.Service.GetCard(r.Context(), claims.UserID, habitID)
	if err != nil {
		writeServiceError(w, err, "Failed to fetch habit")
		return
	}
	writeJSON(w, http.StatusOK, card)
}

// GetHabitLogsHandler returns the most recent logs of a habit. As with the
// habit list, a failed fetch yields an empty list.
func (h *HabitHandler) GetHabitLogsHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireUser(w, r)
	if !ok {
		return
	}
	habitID := mux.Vars(r)["id"]

	logs, err := h.Service.RecentLogs(r.Context(), claims.UserID, habitID)
	if errors.Is(err, repository.ErrHabitNotFound) {
		http.Error(w, "Habit not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logrus.WithError(err).WithField("habitID", habitID).Error("Failed to fetch habit logs")
		logs = []models.HabitLog{}
	}
	writeJSON(w, http.StatusOK, logs)
}

// RecordProgressHandler adds a day to the streak.
func (h *HabitHandler) RecordProgressHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req notesRequest
	if !decodeOptional(w, r, &req) {
		return
	}

	card, err := h.Service.RecordProgress(r.Context(), claims.UserID, mux.Vars(r)["id"], req.Notes)
	if err != nil {
		writeServiceError(w, err, "Failed to record progress")
		return
	}
	writeJSON(w, http.StatusOK, card)
}

// StartTrackingHandler stamps the habit as tracked now.
func (h *HabitHandler) StartTrackingHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireUser(w, r)
	if !ok {
		return
	}

	card, err := h.Service.StartTracking(r.Context(), claims.UserID, mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err, "Failed to start tracking")
		return
	}
	writeJSON(w, http.StatusOK, card)
}

// AddNoteHandler appends a note to the habit's log.
func (h *HabitHandler) AddNoteHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req notesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	card, err := h.Service.AddNote(r.Context(), claims.UserID, mux.Vars(r)["id"], req.Notes)
	if err != nil {
		writeServiceError(w, err, "Failed to add note")
		return
	}
	writeJSON(w, http.StatusOK, card)
}

// ResetHandler zeroes the current streak. A reason is required.
func (h *HabitHandler) ResetHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req resetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	card, err := h.Service.Reset(r.Context(), claims.UserID, mux.Vars(r)["id"], req.Reason)
	if err != nil {
		writeServiceError(w, err, "Failed to reset streak")
		return
	}

	logrus.WithFields(logrus.Fields{
		"userID":  claims.UserID,
		"habitID": card.Habit.ID,
	}).Info("Streak reset")
	writeJSON(w, http.StatusOK, card)
}

// DeleteHabitHandler removes a habit and all of its logs.
func (h *HabitHandler) DeleteHabitHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireUser(w, r)
	if !ok {
		return
	}
	habitID := mux.Vars(r)["id"]

	if err := h.Service.DeleteHabit(r.Context(), claims.UserID, habitID); err != nil {
		writeServiceError(w, err, "Failed to delete habit")
		return
	}

	logrus.WithFields(logrus.Fields{
		"userID":  claims.UserID,
		"habitID": habitID,
	}).Info("Habit deleted")
	w.WriteHeader(http.StatusNoContent)
}

// writeServiceError maps service errors onto status codes. Anything that is
// not a validation or lookup failure is a persistence failure.
func writeServiceError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, middleware.ErrNotAuthenticated):
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	case errors.Is(err, streak.ErrTitleRequired),
		errors.Is(err, streak.ErrReasonRequired),
		errors.Is(err, streak.ErrNoteRequired):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, repository.ErrHabitNotFound):
		http.Error(w, "Habit not found", http.StatusNotFound)
	default:
		logrus.WithError(err).Error(msg)
		http.Error(w, msg, http.StatusInternalServerError)
	}
}

// decodeOptional decodes a JSON body if one was sent. An empty body, chunked
// or not, is fine.
func decodeOptional(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return true
		}
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Error("Failed to encode response")
	}
}
