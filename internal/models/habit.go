package models

import "time"

// Habit is one tracked behaviour owned by a single user.
type Habit struct {
	ID            string     `bson:"_id" json:"id"`
	UserID        string     `bson:"user_id" json:"user_id"`
	Title         string     `bson:"title" json:"title"`
	StartDate     time.Time  `bson:"start_date" json:"start_date"`
	CurrentStreak int        `bson:"current_streak" json:"current_streak"`
	LongestStreak int        `bson:"longest_streak" json:"longest_streak"`
	LastResetDate *time.Time `bson:"last_reset_date,omitempty" json:"last_reset_date"`
	LastTrackedAt *time.Time `bson:"last_tracked_at,omitempty" json:"last_tracked_at"`
	CreatedAt     time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `bson:"updated_at" json:"updated_at"`
}

// HabitStats holds the display values derived from a habit. Never persisted.
type HabitStats struct {
	DaysSinceStart   int     `json:"days_since_start"`
	SuccessRate      int     `json:"success_rate"`
	Elapsed          Elapsed `json:"elapsed"`
	LastTrackedLabel string  `json:"last_tracked_label,omitempty"`
}

// Elapsed is the time since a habit was last tracked, split for display.
type Elapsed struct {
	Days    int `json:"days"`
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
}

// HabitCard is everything one dashboard card renders.
type HabitCard struct {
	Habit      Habit      `json:"habit"`
	Stats      HabitStats `json:"stats"`
	RecentLogs []HabitLog `json:"recent_logs,omitempty"`
}
