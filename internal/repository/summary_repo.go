package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"anamneseai/internal/model"
)

// SummaryRepo stores the final clinical summary per session. Save is an
// upsert so a restarted session overwrites its earlier summary.
type SummaryRepo interface {
	Save(ctx context.Context, summary *model.SessionSummary) error
	GetBySession(ctx context.Context, sessionID string) (*model.SessionSummary, error)
}

type summaryRepo struct {
	collection *mongo.Collection
}

func NewSummaryRepo(client *mongo.Client, database string) SummaryRepo {
	db := client.Database(database)
	return &summaryRepo{
		collection: db.Collection("summaries"),
	}
}

func (r *summaryRepo) Save(ctx context.Context, summary *model.SessionSummary) error {
	if summary.GeneratedAt.IsZero() {
		summary.GeneratedAt = time.Now()
	}
	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"sessionId": summary.SessionID}, summary, opts)
	return err
}

func (r *summaryRepo) GetBySession(ctx context.Context, sessionID string) (*model.SessionSummary, error) {
	var summary model.SessionSummary
	err := r.collection.FindOne(ctx, bson.M{"sessionId": sessionID}).Decode(&summary)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, model.ErrSummaryNotReady
		}
		return nil, err
	}
	return &summary, nil
}
