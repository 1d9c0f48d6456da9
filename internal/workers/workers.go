package workers

import (
	"context"
	"sync"

	"github.com/MKhiriev/go-clinic-auth/internal/config"
	"github.com/MKhiriev/go-clinic-auth/internal/logger"
	"github.com/MKhiriev/go-clinic-auth/internal/store"
)

type Workers struct {
	workers []Worker
	wg      sync.WaitGroup
}

// NewWorkers builds the workers enabled by cfg. The session purger is left
// out when SessionPurgeInterval is zero.
func NewWorkers(storages *store.Storages, cfg config.App, logger *logger.Logger) *Workers {
	w := &Workers{}

	if cfg.SessionPurgeInterval > 0 {
		w.workers = append(w.workers, NewSessionPurger(storages.SessionRepository, cfg.SessionPurgeInterval, cfg.SessionRetention, logger))
	}

	logger.Info().Int("workers", len(w.workers)).Msg("workers created")
	return w
}

// Run starts every worker in its own goroutine and returns immediately.
func (w *Workers) Run(ctx context.Context) {
	for _, worker := range w.workers {
		w.wg.Add(1)
		go func(worker Worker) {
			defer w.wg.Done()
			worker.Run(ctx)
		}(worker)
	}
}

// Wait blocks until every started worker has returned.
func (w *Workers) Wait() {
	w.wg.Wait()
}
