package memory

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"yds-challenge-service/internal/app"
	"yds-challenge-service/internal/domain"
)

// CachedCatalog caches question lookups with TTL to avoid repeated DB hits.
// Sampling always goes to the source so rooms get fresh random sets.
type CachedCatalog struct {
	source app.QuestionCatalog
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand

	mu    sync.RWMutex
	cache map[int64]cachedQuestion
}

type cachedQuestion struct {
	question  domain.Question
	expiresAt time.Time
}

func NewCachedCatalog(source app.QuestionCatalog, ttl time.Duration) *CachedCatalog {
	return &CachedCatalog{
		source: source,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[int64]cachedQuestion),
	}
}

func (c *CachedCatalog) SampleByCategory(ctx context.Context, category string, n int) ([]domain.Question, error) {
	questions, err := c.source.SampleByCategory(ctx, category, n)
	if err != nil {
		return nil, err
	}
	now := c.clock()
	c.mu.Lock()
	for _, q := range questions {
		c.cache[q.ID] = cachedQuestion{question: q, expiresAt: now.Add(c.ttlWithJitter())}
	}
	c.mu.Unlock()
	return questions, nil
}

func (c *CachedCatalog) Question(ctx context.Context, id int64) (domain.Question, error) {
	if q, ok := c.lookup(id); ok {
		return q, nil
	}

	result, err, _ := c.sf.Do(strconv.FormatInt(id, 10), func() (interface{}, error) {
		if q, ok := c.lookup(id); ok {
			return q, nil
		}
		q, err := c.source.Question(ctx, id)
		if err != nil {
			return domain.Question{}, err
		}
		c.mu.Lock()
		c.cache[id] = cachedQuestion{question: q, expiresAt: c.clock().Add(c.ttlWithJitter())}
		c.mu.Unlock()
		return q, nil
	})
	if err != nil {
		return domain.Question{}, err
	}
	return result.(domain.Question), nil
}

func (c *CachedCatalog) lookup(id int64) (domain.Question, bool) {
	now := c.clock()
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.cache[id]
	if !ok || !entry.expiresAt.After(now) {
		return domain.Question{}, false
	}
	return entry.question, true
}

func (c *CachedCatalog) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
