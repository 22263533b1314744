package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"docquiz/internal/model"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// QuestionCache holds per-document question lists. A nil slice with a nil
// error from Get means a miss.
type QuestionCache interface {
	GetByDocument(ctx context.Context, userID, documentID string) ([]*model.Question, error)
	SetByDocument(ctx context.Context, userID, documentID string, questions []*model.Question) error
	InvalidateDocument(ctx context.Context, userID, documentID string) error
}

func questionsKey(userID, documentID string) string {
	return fmt.Sprintf("questions:%s:doc:%s", userID, documentID)
}

type redisQuestionCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisQuestionCache creates a Redis-backed question cache
func NewRedisQuestionCache(client *redis.Client, ttl time.Duration) QuestionCache {
	return &redisQuestionCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *redisQuestionCache) GetByDocument(ctx context.Context, userID, documentID string) ([]*model.Question, error) {
	data, err := c.client.Get(ctx, questionsKey(userID, documentID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	questions := make([]*model.Question, 0)
	if err := json.Unmarshal([]byte(data), &questions); err != nil {
		return nil, err
	}
	return questions, nil
}

func (c *redisQuestionCache) SetByDocument(ctx context.Context, userID, documentID string, questions []*model.Question) error {
	data, err := json.Marshal(questions)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, questionsKey(userID, documentID), data, c.ttl).Err()
}

func (c *redisQuestionCache) InvalidateDocument(ctx context.Context, userID, documentID string) error {
	return c.client.Del(ctx, questionsKey(userID, documentID)).Err()
}

type memoryQuestionCache struct {
	cache *gocache.Cache
}

// NewMemoryQuestionCache is used when no Redis address is configured. Items
// are copied on the way in and out so callers never share slices.
func NewMemoryQuestionCache(ttl time.Duration) QuestionCache {
	return &memoryQuestionCache{
		cache: gocache.New(ttl, 2*ttl),
	}
}

func (c *memoryQuestionCache) GetByDocument(ctx context.Context, userID, documentID string) ([]*model.Question, error) {
	x, found := c.cache.Get(questionsKey(userID, documentID))
	if !found {
		return nil, nil
	}
	return cloneQuestions(x.([]model.Question)), nil
}

func (c *memoryQuestionCache) SetByDocument(ctx context.Context, userID, documentID string, questions []*model.Question) error {
	values := make([]model.Question, len(questions))
	for i, q := range questions {
		values[i] = *q
	}
	c.cache.Set(questionsKey(userID, documentID), values, gocache.DefaultExpiration)
	return nil
}

func (c *memoryQuestionCache) InvalidateDocument(ctx context.Context, userID, documentID string) error {
	c.cache.Delete(questionsKey(userID, documentID))
	return nil
}

func cloneQuestions(values []model.Question) []*model.Question {
	out := make([]*model.Question, len(values))
	for i := range values {
		q := values[i]
		q.Options = append([]string(nil), q.Options...)
		out[i] = &q
	}
	return out
}
