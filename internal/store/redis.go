package store

import (
	"context"

	rdb "github.com/redis/go-redis/v9"
)

// RedisStore implementa Store sobre redis. Útil cuando varias sesiones
// comparten el mismo backend de persistencia.
type RedisStore struct {
	c      *rdb.Client
	prefix string
}

// NewRedis crea un RedisStore.
func NewRedis(addr string, db int, prefix string) *RedisStore {
	return &RedisStore{
		c:      rdb.NewClient(&rdb.Options{Addr: addr, DB: db}),
		prefix: prefix,
	}
}

// NewRedisWithClient envuelve un cliente existente (tests, pools compartidos).
func NewRedisWithClient(c *rdb.Client, prefix string) *RedisStore {
	return &RedisStore{c: c, prefix: prefix}
}

func (r *RedisStore) key(k string) string {
	if r.prefix == "" {
		return k
	}
	return r.prefix + ":" + k
}

func (r *RedisStore) Get(key string) (string, error) {
	v, err := r.c.Get(context.Background(), r.key(key)).Result()
	if err == rdb.Nil {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

func (r *RedisStore) Set(key, value string) error {
	return r.c.Set(context.Background(), r.key(key), value, 0).Err()
}

func (r *RedisStore) Remove(key string) error {
	return r.c.Del(context.Background(), r.key(key)).Err()
}

func (r *RedisStore) Clear() error {
	ctx := context.Background()
	pattern := r.key("*")
	iter := r.c.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := r.c.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// Close cierra la conexión.
func (r *RedisStore) Close() error { return r.c.Close() }
