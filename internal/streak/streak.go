// Package streak holds the streak rules for habits: the counter mutations
// triggered by user actions and the statistics derived for display.
//
// Every function here is pure. Mutations return an updated copy of the habit
// together with the log entry that must be appended alongside it; persisting
// both is the caller's job.
package streak

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Dias221467/Streak_Tracker/internal/models"
	"github.com/dustin/go-humanize"
)

var (
	ErrTitleRequired  = errors.New("habit title is required")
	ErrReasonRequired = errors.New("reset reason is required")
	ErrNoteRequired   = errors.New("note text is required")
)

const day = 24 * time.Hour

// NewHabit builds a habit with zeroed counters, starting now.
func NewHabit(userID, title string, now time.Time) (models.Habit, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return models.Habit{}, ErrTitleRequired
	}
	return models.Habit{
		UserID:    userID,
		Title:     title,
		StartDate: now,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// RecordProgress adds one day to the current streak and raises the longest
// streak if needed. notes is optional.
func RecordProgress(h models.Habit, notes string, now time.Time) (models.Habit, models.HabitLog) {
	h.CurrentStreak++
	if h.CurrentStreak > h.LongestStreak {
		h.LongestStreak = h.CurrentStreak
	}
	h.UpdatedAt = now
	return h, newLog(h.ID, models.LogStatusSuccess, notes, now)
}

// StartTracking stamps the habit as tracked now. Counters are left alone.
func StartTracking(h models.Habit, now time.Time) (models.Habit, models.HabitLog) {
	tracked := now
	h.LastTrackedAt = &tracked
	h.UpdatedAt = now
	return h, newLog(h.ID, models.LogStatusSuccess, "", now)
}

// AddNote appends a free-text note without touching the counters.
func AddNote(h models.Habit, text string, now time.Time) (models.Habit, models.HabitLog, error) {
	if err := ValidateNote(text); err != nil {
		return h, models.HabitLog{}, err
	}
	h.UpdatedAt = now
	return h, newLog(h.ID, models.LogStatusNote, strings.TrimSpace(text), now), nil
}

// Reset zeroes the current streak. The longest streak is never decremented.
func Reset(h models.Habit, reason string, now time.Time) (models.Habit, models.HabitLog, error) {
	if err := ValidateReason(reason); err != nil {
		return h, models.HabitLog{}, err
	}
	reason = strings.TrimSpace(reason)
	reset := now
	h.CurrentStreak = 0
	h.LastResetDate = &reset
	h.LastTrackedAt = nil
	h.UpdatedAt = now
	return h, newLog(h.ID, models.LogStatusReset, reason, now), nil
}

func ValidateNote(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrNoteRequired
	}
	return nil
}

func ValidateReason(reason string) error {
	if strings.TrimSpace(reason) == "" {
		return ErrReasonRequired
	}
	return nil
}

// DaysSinceStart is the whole number of days, rounded up, between the start
// date and now. A start date in the future counts as zero.
func DaysSinceStart(h models.Habit, now time.Time) int {
	diff := now.Sub(h.StartDate)
	if diff <= 0 {
		return 0
	}
	return int(math.Ceil(float64(diff) / float64(day)))
}

// ElapsedSinceLastTracked splits the time since the last tracking action into
// days, hours and minutes. An unset timestamp reports zero.
func ElapsedSinceLastTracked(h models.Habit, now time.Time) models.Elapsed {
	if h.LastTrackedAt == nil {
		return models.Elapsed{}
	}
	d := now.Sub(*h.LastTrackedAt)
	if d <= 0 {
		return models.Elapsed{}
	}
	return models.Elapsed{
		Days:    int(d / day),
		Hours:   int(d % day / time.Hour),
		Minutes: int(d % time.Hour / time.Minute),
	}
}

// SuccessRate is the current streak as a rounded percentage of days since start.
func SuccessRate(h models.Habit, now time.Time) int {
	days := DaysSinceStart(h, now)
	if days <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(h.CurrentStreak) / float64(days)))
}

func Stats(h models.Habit, now time.Time) models.HabitStats {
	stats := models.HabitStats{
		DaysSinceStart: DaysSinceStart(h, now),
		SuccessRate:    SuccessRate(h, now),
		Elapsed:        ElapsedSinceLastTracked(h, now),
	}
	if h.LastTrackedAt != nil {
		stats.LastTrackedLabel = humanize.RelTime(*h.LastTrackedAt, now, "ago", "from now")
	}
	return stats
}

// CheckInvariant reports a habit whose counters are inconsistent.
func CheckInvariant(h models.Habit) error {
	if h.CurrentStreak < 0 || h.LongestStreak < 0 {
		return fmt.Errorf("habit %s has a negative streak", h.ID)
	}
	if h.LongestStreak < h.CurrentStreak {
		return fmt.Errorf("habit %s: longest streak %d below current %d", h.ID, h.LongestStreak, h.CurrentStreak)
	}
	return nil
}

// LogDate is the UTC calendar date of t, as stored on habit logs.
func LogDate(t time.Time) string {
	return t.UTC().Format(models.LogDateLayout)
}

func newLog(habitID string, status models.LogStatus, notes string, now time.Time) models.HabitLog {
	return models.HabitLog{
		HabitID:   habitID,
		LogDate:   LogDate(now),
		Status:    status,
		Notes:     notes,
		CreatedAt: now,
	}
}
