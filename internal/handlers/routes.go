package handlers

import (
	"net/http"

	"github.com/Dias221467/Streak_Tracker/pkg/middleware"
	"github.com/gorilla/mux"
)

// NewRouter wires every route of the service.
func NewRouter(habits *HabitHandler, elapsed *ElapsedHandler, jwtSecret string) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/healthz", HealthHandler).Methods("GET")

	// Token travels in the query string for the upgrade.
	router.HandleFunc("/habits/{id}/elapsed/ws", elapsed.ElapsedWebSocketHandler).Methods("GET")

	sessionRoutes := router.PathPrefix("/session").Subrouter()
	sessionRoutes.Use(middleware.AuthMiddleware(jwtSecret))
	sessionRoutes.HandleFunc("", SessionHandler).Methods("GET")

	protectedRoutes := router.PathPrefix("/habits").Subrouter()
	protectedRoutes.Use(middleware.AuthMiddleware(jwtSecret))
	protectedRoutes.HandleFunc("", habits.CreateHabitHandler).Methods("POST")
	protectedRoutes.HandleFunc("", habits.GetHabitsHandler).Methods("GET")
	protectedRoutes.HandleFunc("/{id}", habits.GetHabitHandler).Methods("GET")
	protectedRoutes.HandleFunc("/{id}", habits.DeleteHabitHandler).Methods("DELETE")
	protectedRoutes.HandleFunc("/{id}/logs", habits.GetHabitLogsHandler).Methods("GET")
	protectedRoutes.HandleFunc("/{id}/progress", habits.RecordProgressHandler).Methods("POST")
	protectedRoutes.HandleFunc("/{id}/tracking", habits.StartTrackingHandler).Methods("POST")
	protectedRoutes.HandleFunc("/{id}/notes", habits.AddNoteHandler).Methods("POST")
	protectedRoutes.HandleFunc("/{id}/reset", habits.ResetHandler).Methods("POST")

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Not found", http.StatusNotFound)
	})

	router.Use(middleware.LoggingMiddleware)
	return router
}
