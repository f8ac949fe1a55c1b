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

// SessionRepo is the durable store for interview sessions. Session ids are
// UUID strings assigned by the service, used directly as Mongo _id.
type SessionRepo interface {
	Create(ctx context.Context, session *model.SessionRecord) error
	GetByID(ctx context.Context, id string) (*model.SessionRecord, error)
	UpdateState(ctx context.Context, id string, state *model.ConversationState) error
	SetStatus(ctx context.Context, id string, status model.SessionStatus, completedAt *time.Time) error
	List(ctx context.Context) ([]*model.SessionRecord, error)
}

type sessionRepo struct {
	collection *mongo.Collection
}

func NewSessionRepo(client *mongo.Client, database string) SessionRepo {
	db := client.Database(database)
	return &sessionRepo{
		collection: db.Collection("sessions"),
	}
}

func (r *sessionRepo) Create(ctx context.Context, session *model.SessionRecord) error {
	if session.StartedAt.IsZero() {
		session.StartedAt = time.Now()
	}
	_, err := r.collection.InsertOne(ctx, session)
	return err
}

func (r *sessionRepo) GetByID(ctx context.Context, id string) (*model.SessionRecord, error) {
	var session model.SessionRecord
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, model.ErrSessionNotFound
		}
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepo) UpdateState(ctx context.Context, id string, state *model.ConversationState) error {
	update := bson.M{"$set": bson.M{"state": state}}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return model.ErrSessionNotFound
	}
	return nil
}

func (r *sessionRepo) SetStatus(ctx context.Context, id string, status model.SessionStatus, completedAt *time.Time) error {
	set := bson.M{"status": status}
	if completedAt != nil {
		set["completedAt"] = completedAt
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return model.ErrSessionNotFound
	}
	return nil
}

func (r *sessionRepo) List(ctx context.Context) ([]*model.SessionRecord, error) {
	opts := options.Find().SetSort(bson.M{"startedAt": -1})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var sessions []*model.SessionRecord
	if err = cursor.All(ctx, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}
