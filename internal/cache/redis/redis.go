package redis

import (
	"context"
	"time"

	rdb "github.com/redis/go-redis/v9"
)

type Cache struct {
	c      *rdb.Client
	prefix string
}

func New(addr string, db int, prefix string) *Cache {
	return &Cache{c: rdb.NewClient(&rdb.Options{Addr: addr, DB: db}), prefix: prefix}
}

// Client expone el cliente subyacente (lo reutiliza el rate limiter).
func (r *Cache) Client() *rdb.Client { return r.c }

func (r *Cache) Get(k string) ([]byte, bool) {
	b, err := r.c.Get(context.Background(), r.prefix+k).Bytes()
	if err != nil {
		return nil, false
	}
	return b, true
}

func (r *Cache) Set(k string, v []byte, ttl time.Duration) {
	_ = r.c.Set(context.Background(), r.prefix+k, v, ttl).Err()
}

func (r *Cache) Delete(k string) { _ = r.c.Del(context.Background(), r.prefix+k).Err() }
