package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Dias221467/Streak_Tracker/internal/cache"
	"github.com/Dias221467/Streak_Tracker/internal/models"
	"github.com/Dias221467/Streak_Tracker/internal/repository"
	"github.com/Dias221467/Streak_Tracker/internal/streak"
	"github.com/Dias221467/Streak_Tracker/pkg/logger"
	"github.com/sirupsen/logrus"
)

// Options tunes the habit service.
type Options struct {
	CacheTTL       time.Duration
	RecentLogLimit int
	Now            func() time.Time
}

// HabitService encapsulates the business logic for habits. It is the only
// reader and writer of the gateway and owns the caches in front of it.
type HabitService struct {
	gateway  repository.HabitGateway
	habits   *cache.Cache[[]models.Habit]    // userID -> habits, newest first
	logs     *cache.Cache[[]models.HabitLog] // habitID -> recent logs
	logLimit int
	now      func() time.Time

	mu    sync.Mutex
	locks map[string]chan struct{} // habitID -> single mutation slot
}

// NewHabitService creates a new instance of HabitService.
func NewHabitService(gateway repository.HabitGateway, opts Options) *HabitService {
	if opts.RecentLogLimit <= 0 {
		opts.RecentLogLimit = 5
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &HabitService{
		gateway:  gateway,
		habits:   cache.New[[]models.Habit](opts.CacheTTL),
		logs:     cache.New[[]models.HabitLog](opts.CacheTTL),
		logLimit: opts.RecentLogLimit,
		now:      opts.Now,
		locks:    make(map[string]chan struct{}),
	}
}

// CreateHabit validates the title and stores a habit with zeroed counters.
func (s *HabitService) CreateHabit(ctx context.Context, userID, title string) (*models.Habit, error) {
	habit, err := streak.NewHabit(userID, title, s.now())
	if err != nil {
		logger.Log.WithField("user_id", userID).Warn("Habit title is empty during creation")
		return nil, err
	}

	created, err := s.gateway.InsertHabit(ctx, &habit)
	if err != nil {
		logger.Log.WithError(err).Error("Service failed to create habit")
		return nil, fmt.Errorf("failed to create habit: %w", err)
	}
	s.habits.Invalidate(userID)

	logger.Log.WithFields(logrus.Fields{
		"user_id":  userID,
		"habit_id": created.ID,
	}).Info("Habit created in service layer")
	return created, nil
}

// ListCards returns one card per habit of the user, newest created first.
func (s *HabitService) ListCards(ctx context.Context, userID string) ([]models.HabitCard, error) {
	habits, err := s.listHabits(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	cards := make([]models.HabitCard, 0, len(habits))
	for _, h := range habits {
		cards = append(cards, models.HabitCard{Habit: h, Stats: streak.Stats(h, now)})
	}
	return cards, nil
}

// GetCard returns a single habit with its statistics and recent activity.
func (s *HabitService) GetCard(ctx context.Context, userID, habitID string) (*models.HabitCard, error) {
	habit, err := s.habit(ctx, userID, habitID)
	if err != nil {
		return nil, err
	}
	return s.card(ctx, *habit)
}

// Stats recomputes the derived statistics of one habit at the current time.
func (s *HabitService) Stats(ctx context.Context, userID, habitID string) (models.HabitStats, error) {
	habit, err := s.habit(ctx, userID, habitID)
	if err != nil {
		return models.HabitStats{}, err
	}
	return streak.Stats(*habit, s.now()), nil
}

// RecentLogs returns the newest logs of a habit, capped at the configured limit.
func (s *HabitService) RecentLogs(ctx context.Context, userID, habitID string) ([]models.HabitLog, error) {
	if _, err := s.habit(ctx, userID, habitID); err != nil {
		return nil, err
	}
	return s.recentLogs(ctx, habitID)
}

// RecordProgress adds a day to the streak. notes may be empty.
func (s *HabitService) RecordProgress(ctx context.Context, userID, habitID, notes string) (*models.HabitCard, error) {
	return s.mutate(ctx, userID, habitID, "record_progress", func(h models.Habit, now time.Time) (models.Habit, models.HabitLog, error) {
		updated, log := streak.RecordProgress(h, notes, now)
		return updated, log, nil
	})
}

// StartTracking stamps the habit as tracked now without changing its counters.
func (s *HabitService) StartTracking(ctx context.Context, userID, habitID string) (*models.HabitCard, error) {
	return s.mutate(ctx, userID, habitID, "start_tracking", func(h models.Habit, now time.Time) (models.Habit, models.HabitLog, error) {
		updated, log := streak.StartTracking(h, now)
		return updated, log, nil
	})
}

// AddNote appends a note. Empty text is rejected before the gateway is touched.
func (s *HabitService) AddNote(ctx context.Context, userID, habitID, text string) (*models.HabitCard, error) {
	if err := streak.ValidateNote(text); err != nil {
		return nil, err
	}
	return s.mutate(ctx, userID, habitID, "add_note", func(h models.Habit, now time.Time) (models.Habit, models.HabitLog, error) {
		return streak.AddNote(h, text, now)
	})
}

// Reset zeroes the current streak. A reason is required.
func (s *HabitService) Reset(ctx context.Context, userID, habitID, reason string) (*models.HabitCard, error) {
	if err := streak.ValidateReason(reason); err != nil {
		return nil, err
	}
	return s.mutate(ctx, userID, habitID, "reset", func(h models.Habit, now time.Time) (models.Habit, models.HabitLog, error) {
		return streak.Reset(h, reason, now)
	})
}

// DeleteHabit removes the habit and its whole log history. There is no undo.
func (s *HabitService) DeleteHabit(ctx context.Context, userID, habitID string) error {
	release, err := s.acquire(ctx, habitID)
	if err != nil {
		return err
	}
	defer release()

	if err := s.gateway.DeleteHabit(ctx, userID, habitID); err != nil {
		if !errors.Is(err, repository.ErrHabitNotFound) {
			logger.Log.WithField("habit_id", habitID).WithError(err).Error("Failed to delete habit")
		}
		return fmt.Errorf("failed to delete habit: %w", err)
	}
	s.habits.Invalidate(userID)
	s.logs.Forget(habitID)

	// Still holding the slot, so no one else is using it.
	s.mu.Lock()
	delete(s.locks, habitID)
	s.mu.Unlock()

	logger.Log.WithField("habit_id", habitID).Info("Habit deleted successfully in service layer")
	return nil
}

// PurgeExpired drops expired cache entries and reports how many went.
func (s *HabitService) PurgeExpired() int {
	return s.habits.Purge() + s.logs.Purge()
}

type mutation func(h models.Habit, now time.Time) (models.Habit, models.HabitLog, error)

// mutate runs one read-modify-write cycle on a habit: fetch the authoritative
// row, apply the streak rule, then persist counters and log atomically.
func (s *HabitService) mutate(ctx context.Context, userID, habitID, action string, fn mutation) (*models.HabitCard, error) {
	log := logger.Log.WithFields(logrus.Fields{
		"user_id":  userID,
		"habit_id": habitID,
		"action":   action,
	})

	release, err := s.acquire(ctx, habitID)
	if err != nil {
		return nil, err
	}
	defer release()

	current, err := s.gateway.GetHabit(ctx, userID, habitID)
	if err != nil {
		if !errors.Is(err, repository.ErrHabitNotFound) {
			log.WithError(err).Error("Failed to load habit for mutation")
		}
		return nil, fmt.Errorf("failed to load habit: %w", err)
	}

	updated, entry, err := fn(*current, s.now())
	if err != nil {
		return nil, err
	}
	if err := streak.CheckInvariant(updated); err != nil {
		log.WithError(err).Error("Refusing to store inconsistent habit")
		return nil, err
	}

	if _, err := s.gateway.ApplyMutation(ctx, &updated, &entry); err != nil {
		log.WithError(err).Error("Failed to persist habit mutation")
		return nil, fmt.Errorf("failed to %s: %w", action, err)
	}
	s.habits.Invalidate(userID)
	s.logs.Invalidate(habitID)

	log.WithFields(logrus.Fields{
		"current_streak": updated.CurrentStreak,
		"longest_streak": updated.LongestStreak,
	}).Info("Habit mutation applied")

	card, err := s.card(ctx, updated)
	if err != nil {
		log.WithError(err).Warn("Mutation stored but recent logs are unavailable")
		return &models.HabitCard{Habit: updated, Stats: streak.Stats(updated, s.now())}, nil
	}
	return card, nil
}

// acquire takes the single mutation slot of a habit, waiting for any
// mutation already in flight or for ctx to end.
func (s *HabitService) acquire(ctx context.Context, habitID string) (func(), error) {
	s.mu.Lock()
	slot, ok := s.locks[habitID]
	if !ok {
		slot = make(chan struct{}, 1)
		s.locks[habitID] = slot
	}
	s.mu.Unlock()

	select {
	case slot <- struct{}{}:
		return func() { <-slot }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *HabitService) listHabits(ctx context.Context, userID string) ([]models.Habit, error) {
	if habits, ok := s.habits.Get(userID); ok {
		return habits, nil
	}

	gen := s.habits.Generation(userID)
	habits, err := s.gateway.ListHabits(ctx, userID)
	if err != nil {
		logger.Log.WithField("user_id", userID).WithError(err).Error("Failed to fetch habits")
		return nil, fmt.Errorf("failed to fetch habits: %w", err)
	}
	s.habits.SetIfCurrent(userID, habits, gen)
	return habits, nil
}

// habit resolves one of the user's habits, from the cached list when possible.
func (s *HabitService) habit(ctx context.Context, userID, habitID string) (*models.Habit, error) {
	if habits, ok := s.habits.Get(userID); ok {
		for i := range habits {
			if habits[i].ID == habitID {
				h := habits[i]
				return &h, nil
			}
		}
	}

	h, err := s.gateway.GetHabit(ctx, userID, habitID)
	if err != nil {
		if !errors.Is(err, repository.ErrHabitNotFound) {
			logger.Log.WithField("habit_id", habitID).WithError(err).Error("Failed to get habit from repository")
		}
		return nil, fmt.Errorf("failed to get habit: %w", err)
	}
	return h, nil
}

func (s *HabitService) recentLogs(ctx context.Context, habitID string) ([]models.HabitLog, error) {
	if logs, ok := s.logs.Get(habitID); ok {
		return logs, nil
	}

	gen := s.logs.Generation(habitID)
	logs, err := s.gateway.ListLogs(ctx, habitID, s.logLimit)
	if err != nil {
		logger.Log.WithField("habit_id", habitID).WithError(err).Error("Failed to fetch logs")
		return nil, fmt.Errorf("failed to fetch logs: %w", err)
	}
	s.logs.SetIfCurrent(habitID, logs, gen)
	return logs, nil
}

func (s *HabitService) card(ctx context.Context, h models.Habit) (*models.HabitCard, error) {
	logs, err := s.recentLogs(ctx, h.ID)
	if err != nil {
		return nil, err
	}
	return &models.HabitCard{
		Habit:      h,
		Stats:      streak.Stats(h, s.now()),
		RecentLogs: logs,
	}, nil
}
