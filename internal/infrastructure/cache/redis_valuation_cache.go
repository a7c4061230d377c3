package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/jhoicas/inventario-ledger/internal/application/dto"
)

// RedisValuationCache guarda las líneas de valuación como JSON con TTL.
// La clave ya incluye la marca de agua del libro; el TTL solo limita el tamaño.
type RedisValuationCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisValuationCache crea el cliente; no verifica la conexión (ver Ping).
func NewRedisValuationCache(addr, password string, db int, ttl time.Duration) *RedisValuationCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisValuationCache{client: client, ttl: ttl}
}

func (c *RedisValuationCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisValuationCache) Close() error {
	return c.client.Close()
}

func (c *RedisValuationCache) Get(ctx context.Context, key string) ([]dto.ValuationLine, bool, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var lines []dto.ValuationLine
	if err := json.Unmarshal(val, &lines); err != nil {
		return nil, false, err
	}
	return lines, true, nil
}

func (c *RedisValuationCache) Set(ctx context.Context, key string, lines []dto.ValuationLine) error {
	payload, err := json.Marshal(lines)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, c.ttl).Err()
}
