package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dias221467/Streak_Tracker/internal/models"
	"github.com/Dias221467/Streak_Tracker/pkg/logger"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ApplyMutation updates the habit counters and inserts the log in one transaction
func (r *MongoGateway) ApplyMutation(ctx context.Context, habit *models.Habit, log *models.HabitLog) (*models.HabitLog, error) {
	log.ID = newID()
	log.HabitID = habit.ID

	_, err := r.withTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		res, err := r.habits.UpdateOne(sc,
			bson.M{"_id": habit.ID, "user_id": habit.UserID},
			bson.M{"$set": bson.M{
				"current_streak":  habit.CurrentStreak,
				"longest_streak":  habit.LongestStreak,
				"last_reset_date": habit.LastResetDate,
				"last_tracked_at": habit.LastTrackedAt,
				"updated_at":      habit.UpdatedAt,
			}},
		)
		if err != nil {
			return nil, err
		}
		if res.MatchedCount == 0 {
			return nil, ErrHabitNotFound
		}
		return r.logs.InsertOne(sc, log)
	})
	if errors.Is(err, ErrHabitNotFound) {
		return nil, err
	}
	if err != nil {
		logger.Log.WithError(err).WithFields(logrus.Fields{
			"habit_id": habit.ID,
			"status":   log.Status,
		}).Error("Failed to apply habit mutation")
		return nil, fmt.Errorf("failed to apply habit mutation: %w", err)
	}

	return log, nil
}

// ListLogs fetches the most recent logs of a habit
func (r *MongoGateway) ListLogs(ctx context.Context, habitID string, limit int) ([]models.HabitLog, error) {
	filter := bson.M{"habit_id": habitID}
	sort := bson.D{{Key: "log_date", Value: -1}, {Key: "created_at", Value: -1}}

	opts := options.Find().SetSort(sort)
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.logs.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch habit logs: %w", err)
	}
	defer cursor.Close(ctx)

	logs := []models.HabitLog{}
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, fmt.Errorf("failed to decode habit logs: %w", err)
	}
	return logs, nil
}
