package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// CodeReserver claims freshly generated room codes across instances.
// A claim is a key with a TTL: SET room:code:{code} 1 NX EX ttl.
// It only has to outlive the window between the store check and the insert;
// the store's unique index owns the code afterwards.
type CodeReserver struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCodeReserver(client *redis.Client, ttl time.Duration) *CodeReserver {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CodeReserver{client: client, ttl: ttl}
}

// Reserve reports whether this caller won the claim on code.
func (r *CodeReserver) Reserve(ctx context.Context, code string) (bool, error) {
	return r.client.SetNX(ctx, r.key(code), "1", r.ttl).Result()
}

// Release drops a claim, e.g. after the room has been deleted.
func (r *CodeReserver) Release(ctx context.Context, code string) error {
	return r.client.Del(ctx, r.key(code)).Err()
}

func (r *CodeReserver) key(code string) string {
	return "room:code:" + code
}
