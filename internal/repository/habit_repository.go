package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dias221467/Streak_Tracker/internal/models"
	"github.com/Dias221467/Streak_Tracker/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoGateway stores habits and their logs in two MongoDB collections.
// Mutations touching both run inside a multi-document transaction, which
// needs a replica set (Atlas clusters qualify).
type MongoGateway struct {
	client *mongo.Client
	habits *mongo.Collection
	logs   *mongo.Collection
}

// NewMongoGateway creates a new instance of MongoGateway
func NewMongoGateway(db *mongo.Database) *MongoGateway {
	return &MongoGateway{
		client: db.Client(),
		habits: db.Collection("habits"),
		logs:   db.Collection("habit_logs"),
	}
}

// InsertHabit creates a new habit in the database
func (r *MongoGateway) InsertHabit(ctx context.Context, habit *models.Habit) (*models.Habit, error) {
	habit.ID = newID()

	if _, err := r.habits.InsertOne(ctx, habit); err != nil {
		logger.Log.WithError(err).Error("Failed to insert habit")
		return nil, fmt.Errorf("failed to insert habit: %w", err)
	}

	logger.Log.WithField("habit_id", habit.ID).Info("Habit created successfully")
	return habit, nil
}

// GetHabit fetches a habit by its ID, scoped to its owner
func (r *MongoGateway) GetHabit(ctx context.Context, userID, habitID string) (*models.Habit, error) {
	var habit models.Habit

	err := r.habits.FindOne(ctx, bson.M{"_id": habitID, "user_id": userID}).Decode(&habit)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrHabitNotFound
	}
	if err != nil {
		logger.Log.WithError(err).WithField("habit_id", habitID).Error("Failed to find habit by ID")
		return nil, fmt.Errorf("failed to find habit: %w", err)
	}

	return &habit, nil
}

// ListHabits fetches all habits of a user, newest first
func (r *MongoGateway) ListHabits(ctx context.Context, userID string) ([]models.Habit, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.habits.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		logger.Log.WithError(err).WithField("user_id", userID).Error("Failed to fetch habits")
		return nil, fmt.Errorf("failed to fetch habits: %w", err)
	}
	defer cursor.Close(ctx)

	habits := []models.Habit{}
	if err := cursor.All(ctx, &habits); err != nil {
		logger.Log.WithError(err).Error("Failed to decode habits")
		return nil, fmt.Errorf("failed to decode habits: %w", err)
	}

	logger.Log.WithFields(map[string]interface{}{
		"user_id": userID,
		"count":   len(habits),
	}).Debug("Habits fetched successfully")
	return habits, nil
}

// DeleteHabit deletes a habit and all of its logs in one transaction
func (r *MongoGateway) DeleteHabit(ctx context.Context, userID, habitID string) error {
	_, err := r.withTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		res, err := r.habits.DeleteOne(sc, bson.M{"_id": habitID, "user_id": userID})
		if err != nil {
			return nil, err
		}
		if res.DeletedCount == 0 {
			return nil, ErrHabitNotFound
		}
		return r.logs.DeleteMany(sc, bson.M{"habit_id": habitID})
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

func (r *MongoGateway) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

func (r *MongoGateway) withTransaction(ctx context.Context, fn func(mongo.SessionContext) (interface{}, error)) (interface{}, error) {
	session, err := r.client.StartSession()
	if err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	return session.WithTransaction(ctx, fn)
}
