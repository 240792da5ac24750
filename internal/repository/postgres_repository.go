package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dias221467/Streak_Tracker/internal/models"
	"github.com/Dias221467/Streak_Tracker/pkg/logger"
)

// PostgresGateway talks to the relational backend. It expects:
//
//	habits(id uuid pk, user_id text, title text, start_date timestamptz,
//	       current_streak int, longest_streak int, last_reset_date timestamptz null,
//	       last_tracked_at timestamptz null, created_at timestamptz, updated_at timestamptz)
//	habit_logs(id uuid pk, habit_id uuid references habits(id) on delete cascade,
//	           log_date date, status text, notes text, created_at timestamptz)
type PostgresGateway struct {
	db *sql.DB
}

func NewPostgresGateway(db *sql.DB) *PostgresGateway {
	return &PostgresGateway{db: db}
}

const habitColumns = `id, user_id, title, start_date, current_streak, longest_streak,
       last_reset_date, last_tracked_at, created_at, updated_at`

func (g *PostgresGateway) InsertHabit(ctx context.Context, habit *models.Habit) (*models.Habit, error) {
	habit.ID = newID()

	_, err := g.db.ExecContext(ctx, `
INSERT INTO habits (`+habitColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		habit.ID, habit.UserID, habit.Title, habit.StartDate, habit.CurrentStreak, habit.LongestStreak,
		nullTime(habit.LastResetDate), nullTime(habit.LastTrackedAt), habit.CreatedAt, habit.UpdatedAt,
	)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to insert habit")
		return nil, fmt.Errorf("failed to insert habit: %w", err)
	}

	logger.Log.WithField("habit_id", habit.ID).Info("Habit created successfully")
	return habit, nil
}

func (g *PostgresGateway) GetHabit(ctx context.Context, userID, habitID string) (*models.Habit, error) {
	row := g.db.QueryRowContext(ctx, `SELECT `+habitColumns+` FROM habits WHERE id = $1 AND user_id = $2`, habitID, userID)

	h, err := scanHabit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrHabitNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find habit: %w", err)
	}
	return h, nil
}

func (g *PostgresGateway) ListHabits(ctx context.Context, userID string) ([]models.Habit, error) {
	rows, err := g.db.QueryContext(ctx, `SELECT `+habitColumns+` FROM habits WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch habits: %w", err)
	}
	defer rows.Close()

	habits := []models.Habit{}
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to decode habit: %w", err)
		}
		habits = append(habits, *h)
	}
	return habits, rows.Err()
}

func (g *PostgresGateway) ApplyMutation(ctx context.Context, habit *models.Habit, log *models.HabitLog) (*models.HabitLog, error) {
	log.ID = newID()
	log.HabitID = habit.ID

	err := g.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE habits
SET current_streak = $1, longest_streak = $2, last_reset_date = $3, last_tracked_at = $4, updated_at = $5
WHERE id = $6 AND user_id = $7`,
			habit.CurrentStreak, habit.LongestStreak, nullTime(habit.LastResetDate), nullTime(habit.LastTrackedAt),
			habit.UpdatedAt, habit.ID, habit.UserID,
		)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return ErrHabitNotFound
		}

		_, err = tx.ExecContext(ctx, `
INSERT INTO habit_logs (id, habit_id, log_date, status, notes, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`,
			log.ID, log.HabitID, log.LogDate, string(log.Status), log.Notes, log.CreatedAt,
		)
		return err
	})
	if errors.Is(err, ErrHabitNotFound) {
		return nil, err
	}
	if err != nil {
		logger.Log.WithError(err).WithField("habit_id", habit.ID).Error("Failed to apply habit mutation")
		return nil, fmt.Errorf("failed to apply habit mutation: %w", err)
	}
	return log, nil
}

func (g *PostgresGateway) ListLogs(ctx context.Context, habitID string, limit int) ([]models.HabitLog, error) {
	query := `
SELECT id, habit_id, to_char(log_date, 'YYYY-MM-DD'), status, notes, created_at
FROM habit_logs WHERE habit_id = $1
ORDER BY log_date DESC, created_at DESC`
	args := []interface{}{habitID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := g.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch habit logs: %w", err)
	}
	defer rows.Close()

	logs := []models.HabitLog{}
	for rows.Next() {
		var l models.HabitLog
		var status string
		if err := rows.Scan(&l.ID, &l.HabitID, &l.LogDate, &status, &l.Notes, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to decode habit log: %w", err)
		}
		l.Status = models.LogStatus(status)
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// DeleteHabit relies on the foreign key cascade, but clears logs explicitly
// as well so a schema without the cascade leaves no orphans.
func (g *PostgresGateway) DeleteHabit(ctx context.Context, userID, habitID string) error {
	err := g.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM habits WHERE id = $1 AND user_id = $2`, habitID, userID)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return ErrHabitNotFound
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM habit_logs WHERE habit_id = $1`, habitID)
		return err
	})
	if errors.Is(err, ErrHabitNotFound) {
		return err
	}
	if err != nil {
		logger.Log.WithError(err).WithField("habit_id", habitID).Error("Failed to delete habit")
		return fmt.Errorf("failed to delete habit: %w", err)
	}

	logger.Log.WithField("habit_id", habitID).Info("Habit deleted successfully")
	return nil
}

func (g *PostgresGateway) Close(ctx context.Context) error {
	return g.db.Close()
}

func (g *PostgresGateway) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Log.WithError(rbErr).Warn("Failed to roll back transaction")
		}
		return err
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanHabit(row rowScanner) (*models.Habit, error) {
	var h models.Habit
	var lastReset, lastTracked sql.NullTime
	err := row.Scan(
		&h.ID, &h.UserID, &h.Title, &h.StartDate, &h.CurrentStreak, &h.LongestStreak,
		&lastReset, &lastTracked, &h.CreatedAt, &h.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	h.LastResetDate = timePtr(lastReset)
	h.LastTrackedAt = timePtr(lastTracked)
	return &h, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}
