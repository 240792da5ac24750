package models

import "time"

type LogStatus string

const (
	LogStatusSuccess LogStatus = "success"
	LogStatusReset   LogStatus = "reset"
	LogStatusNote    LogStatus = "note"
)

// LogDateLayout is the calendar-date format of HabitLog.LogDate.
const LogDateLayout = "2006-01-02"

// HabitLog is an append-only record of one user action on a habit.
type HabitLog struct {
	ID        string    `bson:"_id" json:"id"`
	HabitID   string    `bson:"habit_id" json:"habit_id"`
	LogDate   string    `bson:"log_date" json:"log_date"`
	Status    LogStatus `bson:"status" json:"status"`
	Notes     string    `bson:"notes" json:"notes"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
