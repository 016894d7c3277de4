package infra

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// CacheInvalidator deletes cached read views by key pattern after writes.
// Keys follow "<entidad>:list:*", "<entidad>:<id>" and "<entidad>:stats",
// so invalidating "<entidad>:*" covers all of them.
//
// Invalidation is best effort and idempotent: a Redis failure is logged and
// swallowed, never propagated to the write path.
type CacheInvalidator struct {
	rdb *redis.Client
}

func NewCacheInvalidator(rdb *redis.Client) *CacheInvalidator {
	return &CacheInvalidator{rdb: rdb}
}

// InvalidarEntidades borra todas las claves de cada entidad dada.
func (c *CacheInvalidator) InvalidarEntidades(ctx context.Context, entidades ...string) {
	for _, entidad := range entidades {
		c.invalidarPatron(ctx, entidad+":*")
	}
}

func (c *CacheInvalidator) invalidarPatron(ctx context.Context, patron string) {
	var cursor uint64
	var borradas int
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, patron, 100).Result()
		if err != nil {
			log.Warn().Err(err).Str("patron", patron).Msg("cache: scan falló, invalidación omitida")
			return
		}
		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				log.Warn().Err(err).Str("patron", patron).Msg("cache: del falló")
				return
			}
			borradas += len(keys)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	if borradas > 0 {
		log.Debug().Str("patron", patron).Int("claves", borradas).Msg("cache invalidado")
	}
}
