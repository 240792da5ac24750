package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Dias221467/Streak_Tracker/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockGateway(t *testing.T) (*PostgresGateway, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresGateway(db), mock
}

func sampleMutation() (*models.Habit, *models.HabitLog) {
	now := time.Date(2026, 5, 2, 10, 0, 0, 0, time.UTC)
	habit := &models.Habit{ID: "h1", UserID: "alice", CurrentStreak: 2, LongestStreak: 4, UpdatedAt: now}
	log := &models.HabitLog{LogDate: "2026-05-02", Status: models.LogStatusSuccess, CreatedAt: now}
	return habit, log
}

func TestPostgresGateway_ApplyMutation(t *testing.T) {
	t.Run("commits update and log together", func(t *testing.T) {
		g, mock := newMockGateway(t)
		habit, log := sampleMutation()

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("UPDATE habits")).
			WithArgs(2, 4, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), "h1", "alice").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO habit_logs")).
			WithArgs(sqlmock.AnyArg(), "h1", "2026-05-02", "success", "", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		stored, err := g.ApplyMutation(context.Background(), habit, log)
		require.NoError(t, err)
		assert.NotEmpty(t, stored.ID)
		assert.Equal(t, "h1", stored.HabitID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back when the log insert fails", func(t *testing.T) {
		g, mock := newMockGateway(t)
		habit, log := sampleMutation()

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("UPDATE habits")).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO habit_logs")).WillReturnError(errors.New("disk full"))
		mock.ExpectRollback()

		_, err := g.ApplyMutation(context.Background(), habit, log)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrHabitNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("foreign habit matches no row", func(t *testing.T) {
		g, mock := newMockGateway(t)
		habit, log := sampleMutation()
		habit.UserID = "mallory"

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("UPDATE habits")).
			WithArgs(2, 4, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), "h1", "mallory").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		_, err := g.ApplyMutation(context.Background(), habit, log)
		assert.ErrorIs(t, err, ErrHabitNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresGateway_ListLogs(t *testing.T) {
	created := time.Date(2026, 5, 2, 10, 0, 0, 0, time.UTC)
	columns := []string{"id", "habit_id", "log_date", "status", "notes", "created_at"}

	t.Run("newest first with limit", func(t *testing.T) {
		g, mock := newMockGateway(t)
		mock.ExpectQuery(regexp.QuoteMeta("ORDER BY log_date DESC, created_at DESC LIMIT $2")).
			WithArgs("h1", 2).
			WillReturnRows(sqlmock.NewRows(columns).
				AddRow("l3", "h1", "2026-05-02", "reset", "slipped up", created.Add(time.Hour)).
				AddRow("l2", "h1", "2026-05-02", "success", "", created))

		logs, err := g.ListLogs(context.Background(), "h1", 2)
		require.NoError(t, err)
		require.Len(t, logs, 2)
		assert.Equal(t, models.LogStatusReset, logs[0].Status)
		assert.Equal(t, "slipped up", logs[0].Notes)
		assert.Equal(t, "2026-05-02", logs[1].LogDate)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no limit", func(t *testing.T) {
		g, mock := newMockGateway(t)
		mock.ExpectQuery(regexp.QuoteMeta("ORDER BY log_date DESC, created_at DESC")).
			WithArgs("h1").
			WillReturnRows(sqlmock.NewRows(columns))

		logs, err := g.ListLogs(context.Background(), "h1", 0)
		require.NoError(t, err)
		assert.Empty(t, logs)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresGateway_DeleteHabit(t *testing.T) {
	t.Run("removes habit and logs", func(t *testing.T) {
		g, mock := newMockGateway(t)

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM habits WHERE")).
			WithArgs("h1", "alice").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM habit_logs WHERE")).
			WithArgs("h1").
			WillReturnResult(sqlmock.NewResult(0, 3))
		mock.ExpectCommit()

		require.NoError(t, g.DeleteHabit(context.Background(), "alice", "h1"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown habit rolls back", func(t *testing.T) {
		g, mock := newMockGateway(t)

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM habits WHERE")).
			WithArgs("h1", "mallory").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		assert.ErrorIs(t, g.DeleteHabit(context.Background(), "mallory", "h1"), ErrHabitNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
