package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dias221467/Streak_Tracker/internal/config"
	"github.com/Dias221467/Streak_Tracker/internal/database"
	"github.com/Dias221467/Streak_Tracker/internal/handlers"
	"github.com/Dias221467/Streak_Tracker/internal/repository"
	"github.com/Dias221467/Streak_Tracker/internal/scheduler"
	"github.com/Dias221467/Streak_Tracker/internal/services"
	"github.com/Dias221467/Streak_Tracker/pkg/logger"
	"github.com/rs/cors"
)

func main() {
	// Load configuration from .env file
	cfg := config.LoadConfig()

	logger.InitLogger(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	logger.Log.Info("Logger initialized")

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	// --- Gateway ---
	gateway, err := openGateway(cfg)
	if err != nil {
		log.Fatalf("Database connection error: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := gateway.Close(ctx); err != nil {
			logger.Log.WithError(err).Warn("Failed to close gateway")
		}
	}()

	// --- Services ---
	habitService := services.NewHabitService(gateway, services.Options{
		CacheTTL:       cfg.CacheTTL,
		RecentLogLimit: cfg.RecentLogLimit,
	})

	purgeCron, err := scheduler.StartCachePurge(cfg.CachePurgeSchedule, habitService)
	if err != nil {
		log.Fatalf("Scheduler error: %v", err)
	}
	defer purgeCron.Stop()

	// --- Handlers ---
	habitHandler := handlers.NewHabitHandler(habitService)
	elapsedHandler := handlers.NewElapsedHandler(habitService, cfg.JWTSecret, cfg.ElapsedTick)
	router := handlers.NewRouter(habitHandler, elapsedHandler, cfg.JWTSecret)

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: c.Handler(router),
	}

	go func() {
		fmt.Printf("Server running on port %s\n", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.WithError(err).Fatal("Server stopped unexpectedly")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Log.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("Graceful shutdown failed")
	}
}

func openGateway(cfg *config.Config) (repository.HabitGateway, error) {
	switch cfg.DBDriver {
	case config.DriverMongo:
		db, err := database.ConnectDB(cfg)
		if err != nil {
			return nil, err
		}
		return repository.NewMongoGateway(db), nil
	case config.DriverPostgres:
		db, err := database.ConnectPostgres(cfg)
		if err != nil {
			return nil, err
		}
		return repository.NewPostgresGateway(db), nil
	case config.DriverMemory:
		logger.Log.Warn("Using in-memory storage; data is lost on restart")
		return repository.NewMemoryGateway(), nil
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q", cfg.DBDriver)
	}
}
