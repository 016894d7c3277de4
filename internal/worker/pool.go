package worker

import (
	"context"
	"encoding/json"
	"time"

	"farmastock/internal/infra"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const QueueInvalidacion = "jobs:invalidacion"

// Job is the generic envelope for all async tasks.
type Job struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// InvalidacionPayload lista las entidades cuyo cache debe invalidarse.
type InvalidacionPayload struct {
	Entidades []string `json:"entidades"`
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EnqueueInvalidacion pushes a cache invalidation job to Redis.
func (d *Dispatcher) EnqueueInvalidacion(ctx context.Context, entidades ...string) error {
	return d.enqueue(ctx, QueueInvalidacion, "invalidacion", InvalidacionPayload{Entidades: entidades})
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	job := Job{Type: jobType, Payload: data}
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}

// StartWorkerPool launches numWorkers goroutines consuming the invalidation
// queue. Each goroutine blocks on BRPOP — zero CPU when idle.
func StartWorkerPool(ctx context.Context, rdb *redis.Client, invalidator *infra.CacheInvalidator, numWorkers int) {
	for i := 0; i < numWorkers; i++ {
		go runWorker(ctx, rdb, invalidator, i)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
}

func runWorker(ctx context.Context, rdb *redis.Client, invalidator *infra.CacheInvalidator, id int) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// Blocking pop — waits up to 5s then loops to check ctx
			result, err := rdb.BRPop(ctx, 5*time.Second, QueueInvalidacion).Result()
			if err != nil {
				continue // timeout or context cancelled
			}
			if len(result) < 2 {
				continue
			}
			processJob(ctx, invalidator, result[1])
		}
	}
}

func processJob(ctx context.Context, invalidator *infra.CacheInvalidator, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Err(err).Msg("failed to unmarshal job")
		return
	}
	switch job.Type {
	case "invalidacion":
		var p InvalidacionPayload
		if err := json.Unmarshal(job.Payload, &p); err != nil {
			log.Error().Err(err).Msg("failed to unmarshal invalidacion payload")
			return
		}
		invalidator.InvalidarEntidades(ctx, p.Entidades...)
	default:
		log.Warn().Str("type", job.Type).Msg("unknown job type, dropping")
	}
}
