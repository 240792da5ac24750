package repository

import (
	"context"
	"errors"

	"github.com/Dias221467/Streak_Tracker/internal/models"
	"github.com/google/uuid"
)

// ErrHabitNotFound is returned when a habit does not exist or belongs to another user.
var ErrHabitNotFound = errors.New("habit not found")

// HabitGateway is the data access contract over the habits and habit_logs
// records. Every habit read or write is scoped to the owning user.
type HabitGateway interface {
	InsertHabit(ctx context.Context, habit *models.Habit) (*models.Habit, error)
	GetHabit(ctx context.Context, userID, habitID string) (*models.Habit, error)
	// ListHabits returns the user's habits, newest created first.
	ListHabits(ctx context.Context, userID string) ([]models.Habit, error)
	// ApplyMutation stores the habit's new counters and appends log in one
	// transaction: either both land or neither does.
	ApplyMutation(ctx context.Context, habit *models.Habit, log *models.HabitLog) (*models.HabitLog, error)
	// ListLogs returns a habit's logs, newest log date first. limit <= 0 means all.
	ListLogs(ctx context.Context, habitID string, limit int) ([]models.HabitLog, error)
	// DeleteHabit removes the habit together with all of its logs.
	DeleteHabit(ctx context.Context, userID, habitID string) error
	Close(ctx context.Context) error
}

func newID() string {
	return uuid.NewString()
}

var (
	_ HabitGateway = (*MongoGateway)(nil)
	_ HabitGateway = (*PostgresGateway)(nil)
	_ HabitGateway = (*MemoryGateway)(nil)
)
