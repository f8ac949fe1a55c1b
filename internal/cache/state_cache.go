package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"anamneseai/internal/model"
)

// stateTTL keeps abandoned sessions from living in Redis forever. The Mongo
// session record stays the durable copy.
const stateTTL = 24 * time.Hour

// StateCache is the hot-path store for conversation state, keyed by session id.
type StateCache interface {
	Set(ctx context.Context, state *model.ConversationState) error
	// Get returns (nil, nil) on a cache miss.
	Get(ctx context.Context, sessionID string) (*model.ConversationState, error)
	Delete(ctx context.Context, sessionID string) error
}

type stateCache struct {
	client *redis.Client
}

func NewStateCache(client *redis.Client) StateCache {
	return &stateCache{
		client: client,
	}
}

func stateKey(sessionID string) string {
	return "interview:session:" + sessionID
}

func (c *stateCache) Set(ctx context.Context, state *model.ConversationState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, stateKey(state.SessionID), data, stateTTL).Err()
}

func (c *stateCache) Get(ctx context.Context, sessionID string) (*model.ConversationState, error) {
	data, err := c.client.Get(ctx, stateKey(sessionID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var state model.ConversationState
	err = json.Unmarshal([]byte(data), &state)
	return &state, err
}

func (c *stateCache) Delete(ctx context.Context, sessionID string) error {
	return c.client.Del(ctx, stateKey(sessionID)).Err()
}
