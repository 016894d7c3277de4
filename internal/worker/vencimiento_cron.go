package worker

// vencimiento_cron.go
// Background goroutine that periodically marks Activo lots past their
// fecha_vencimiento as Vencido. Expired lots stop counting towards warehouse
// occupancy, so the cron also triggers a cache invalidation.

import (
	"context"
	"time"

	"farmastock/internal/repository"

	"github.com/rs/zerolog/log"
)

// VencimientoCronConfig holds all dependencies for the expiry goroutine.
type VencimientoCronConfig struct {
	LoteRepo     repository.LoteRepository
	Dispatcher   *Dispatcher
	TickInterval time.Duration
}

// StartVencimientoCron launches a background goroutine that ticks on the
// configured interval and expires overdue lots. It respects the context for
// graceful shutdown.
func StartVencimientoCron(ctx context.Context, cfg VencimientoCronConfig) {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 15 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(cfg.TickInterval)
		defer ticker.Stop()

		log.Info().Dur("interval", cfg.TickInterval).Msg("vencimiento_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("vencimiento_cron: shutting down")
				return
			case <-ticker.C:
				expirarLotes(ctx, cfg)
			}
		}
	}()
}

func expirarLotes(ctx context.Context, cfg VencimientoCronConfig) {
	n, err := cfg.LoteRepo.MarcarVencidos(ctx, time.Now())
	if err != nil {
		log.Error().Err(err).Msg("vencimiento_cron: fallo al marcar lotes vencidos")
		return
	}
	if n == 0 {
		return
	}
	log.Info().Int64("lotes", n).Msg("vencimiento_cron: lotes marcados como vencidos")

	if cfg.Dispatcher != nil {
		if err := cfg.Dispatcher.EnqueueInvalidacion(ctx, "lotes", "bodegas"); err != nil {
			log.Warn().Err(err).Msg("vencimiento_cron: no se pudo encolar invalidación")
		}
	}
}
