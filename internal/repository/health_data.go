package repository

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/chayanin-k/walkmate-api/internal/model"
)

// HealthDataRepository defines the interface for daily activity records.
type HealthDataRepository interface {
	Accumulate(ctx context.Context, userID, date string, sample model.HealthData) (*model.HealthData, error)
	GetByDate(ctx context.Context, userID, date string) (*model.HealthData, error)
	ListRange(ctx context.Context, userID, startDate, endDate string) ([]*model.HealthData, error)
	DeleteByUser(ctx context.Context, userID string) error
}

const healthDataCollection = "health_data"

type healthDataMongoRepository struct {
	db *mongo.Database
}

func NewHealthDataMongoRepository(
	ctx context.Context,
	logger *zerolog.Logger,
	db *mongo.Database,
) HealthDataRepository {
	collection := db.Collection(healthDataCollection)

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create health data indexes")
	}

	return &healthDataMongoRepository{db: db}
}

// Accumulate adds the sample's counters to the user's record for the given
// date, creating it when absent. The upsert with $inc keeps concurrent
// ingestion for the same day additive without a read-modify-write.
func (r *healthDataMongoRepository) Accumulate(
	ctx context.Context,
	userID, date string,
	sample model.HealthData,
) (*model.HealthData, error) {
	now := time.Now()

	result := r.db.Collection(healthDataCollection).FindOneAndUpdate(
		ctx,
		bson.M{"user_id": userID, "date": date},
		bson.M{
			"$inc": bson.M{
				"steps":    sample.Steps,
				"duration": sample.Duration,
				"calories": sample.Calories,
				"distance": sample.Distance,
			},
			"$set":         bson.M{"updated_at": now},
			"$setOnInsert": bson.M{"created_at": now},
		},
		options.FindOneAndUpdate().
			SetUpsert(true).
			SetReturnDocument(options.After),
	)
	if result.Err() != nil {
		return nil, result.Err()
	}

	var data model.HealthData
	if err := result.Decode(&data); err != nil {
		return nil, err
	}

	return &data, nil
}

func (r *healthDataMongoRepository) GetByDate(ctx context.Context, userID, date string) (*model.HealthData, error) {
	result := r.db.Collection(healthDataCollection).FindOne(ctx, bson.M{"user_id": userID, "date": date})
	if result.Err() != nil {
		return nil, result.Err()
	}

	var data model.HealthData
	if err := result.Decode(&data); err != nil {
		return nil, err
	}

	return &data, nil
}

func (r *healthDataMongoRepository) ListRange(
	ctx context.Context,
	userID, startDate, endDate string,
) ([]*model.HealthData, error) {
	cursor, err := r.db.Collection(healthDataCollection).Find(
		ctx,
		bson.M{
			"user_id": userID,
			"date":    bson.M{"$gte": startDate, "$lte": endDate},
		},
		options.Find().SetSort(bson.D{{Key: "date", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []*model.HealthData
	for cursor.Next(ctx) {
		var data model.HealthData
		if err := cursor.Decode(&data); err != nil {
			return nil, err
		}
		records = append(records, &data)
	}

	if err := cursor.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

func (r *healthDataMongoRepository) DeleteByUser(ctx context.Context, userID string) error {
	_, err := r.db.Collection(healthDataCollection).DeleteMany(ctx, bson.M{"user_id": userID})
	return err
}
