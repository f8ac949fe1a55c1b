package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"anamneseai/internal/model"
)

// TranscriptRepo stores the raw turn-by-turn exchange of a session, one
// document per patient message.
type TranscriptRepo interface {
	Append(ctx context.Context, entry *model.TranscriptRecord) error
	GetBySession(ctx context.Context, sessionID string) ([]*model.TranscriptRecord, error)
	DeleteBySession(ctx context.Context, sessionID string) error
}

type transcriptRepo struct {
	collection *mongo.Collection
}

func NewTranscriptRepo(client *mongo.Client, database string) TranscriptRepo {
	db := client.Database(database)
	return &transcriptRepo{
		collection: db.Collection("transcripts"),
	}
}

func (r *transcriptRepo) Append(ctx context.Context, entry *model.TranscriptRecord) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	result, err := r.collection.InsertOne(ctx, entry)
	if err != nil {
		return err
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		entry.ID = oid.Hex()
	}
	return nil
}

func (r *transcriptRepo) GetBySession(ctx context.Context, sessionID string) ([]*model.TranscriptRecord, error) {
	opts := options.Find().SetSort(bson.M{"turn": 1})
	cursor, err := r.collection.Find(ctx, bson.M{"sessionId": sessionID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []*model.TranscriptRecord
	if err = cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *transcriptRepo) DeleteBySession(ctx context.Context, sessionID string) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"sessionId": sessionID})
	return err
}
