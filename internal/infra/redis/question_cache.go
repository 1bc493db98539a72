package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"yds-challenge-service/internal/app"
	"yds-challenge-service/internal/domain"
)

// QuestionCache caches catalog questions in Redis and falls back to the source on miss.
// Questions are stored as: SET question:{id} {json}
type QuestionCache struct {
	client *redis.Client
	source app.QuestionCatalog
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewQuestionCache(client *redis.Client, source app.QuestionCatalog, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		client: client,
		source: source,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SampleByCategory reads from the source and warms the cache with the sample,
// since every sampled question is looked up again while the room plays.
func (c *QuestionCache) SampleByCategory(ctx context.Context, category string, n int) ([]domain.Question, error) {
	questions, err := c.source.SampleByCategory(ctx, category, n)
	if err != nil {
		return nil, err
	}
	pipe := c.client.Pipeline()
	for _, q := range questions {
		raw, err := json.Marshal(q)
		if err != nil {
			continue
		}
		pipe.Set(ctx, questionKey(q.ID), raw, c.ttlWithJitter())
	}
	// best-effort warmup
	_, _ = pipe.Exec(ctx)
	return questions, nil
}

func (c *QuestionCache) Question(ctx context.Context, id int64) (domain.Question, error) {
	if q, ok := c.cached(ctx, id); ok {
		return q, nil
	}

	result, err, _ := c.sf.Do(strconv.FormatInt(id, 10), func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if q, ok := c.cached(ctx, id); ok {
			return q, nil
		}
		q, err := c.source.Question(ctx, id)
		if err != nil {
			return domain.Question{}, err
		}
		if raw, err := json.Marshal(q); err == nil {
			_ = c.client.Set(ctx, questionKey(id), raw, c.ttlWithJitter()).Err()
		}
		return q, nil
	})
	if err != nil {
		return domain.Question{}, err
	}
	return result.(domain.Question), nil
}

func (c *QuestionCache) cached(ctx context.Context, id int64) (domain.Question, bool) {
	// Misses and redis errors both fall through to the source.
	raw, err := c.client.Get(ctx, questionKey(id)).Bytes()
	if err != nil {
		return domain.Question{}, false
	}
	var q domain.Question
	if err := json.Unmarshal(raw, &q); err != nil {
		return domain.Question{}, false
	}
	return q, true
}

func questionKey(id int64) string {
	return "question:" + strconv.FormatInt(id, 10)
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
