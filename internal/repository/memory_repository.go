package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/Dias221467/Streak_Tracker/internal/models"
	"github.com/Dias221467/Streak_Tracker/pkg/logger"
)

// MemoryGateway keeps habits and logs in process memory. Used for local runs
// and tests; nothing survives a restart.
type MemoryGateway struct {
	mu     sync.RWMutex
	habits map[string]models.Habit
	logs   map[string][]models.HabitLog // habitID -> logs
}

func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{
		habits: make(map[string]models.Habit),
		logs:   make(map[string][]models.HabitLog),
	}
}

func (g *MemoryGateway) InsertHabit(ctx context.Context, habit *models.Habit) (*models.Habit, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	habit.ID = newID()
	g.habits[habit.ID] = *habit

	logger.Log.WithField("habit_id", habit.ID).Debug("Habit stored in memory")
	return habit, nil
}

func (g *MemoryGateway) GetHabit(ctx context.Context, userID, habitID string) (*models.Habit, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	h, ok := g.habits[habitID]
	if !ok || h.UserID != userID {
		return nil, ErrHabitNotFound
	}
	return &h, nil
}

func (g *MemoryGateway) ListHabits(ctx context.Context, userID string) ([]models.Habit, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	habits := []models.Habit{}
	for _, h := range g.habits {
		if h.UserID == userID {
			habits = append(habits, h)
		}
	}
	sort.Slice(habits, func(i, j int) bool {
		if habits[i].CreatedAt.Equal(habits[j].CreatedAt) {
			return habits[i].ID > habits[j].ID
		}
		return habits[i].CreatedAt.After(habits[j].CreatedAt)
	})
	return habits, nil
}

func (g *MemoryGateway) ApplyMutation(ctx context.Context, habit *models.Habit, log *models.HabitLog) (*models.HabitLog, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	stored, ok := g.habits[habit.ID]
	if !ok || stored.UserID != habit.UserID {
		return nil, ErrHabitNotFound
	}

	log.ID = newID()
	log.HabitID = habit.ID
	g.habits[habit.ID] = *habit
	g.logs[habit.ID] = append(g.logs[habit.ID], *log)
	return log, nil
}

func (g *MemoryGateway) ListLogs(ctx context.Context, habitID string, limit int) ([]models.HabitLog, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	logs := append([]models.HabitLog{}, g.logs[habitID]...)
	sort.SliceStable(logs, func(i, j int) bool {
		if logs[i].LogDate != logs[j].LogDate {
			return logs[i].LogDate > logs[j].LogDate
		}
		return logs[i].CreatedAt.After(logs[j].CreatedAt)
	})
	if limit > 0 && len(logs) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}

func (g *MemoryGateway) DeleteHabit(ctx context.Context, userID, habitID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	h, ok := g.habits[habitID]
	if !ok || h.UserID != userID {
		return ErrHabitNotFound
	}
	delete(g.habits, habitID)
	delete(g.logs, habitID)
	return nil
}

// CountLogs reports how many logs are stored for a habit, including none for deleted habits.
func (g *MemoryGateway) CountLogs(habitID string) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.logs[habitID])
}

func (g *MemoryGateway) Close(ctx context.Context) error {
	return nil
}
