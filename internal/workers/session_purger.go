// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package workers

import (
	"context"
	"time"

	"github.com/MKhiriev/go-clinic-auth/internal/logger"
	"github.com/MKhiriev/go-clinic-auth/internal/store"
)

// sessionPurger periodically deletes session rows that were revoked or
// expired more than retention ago. Live sessions are never touched, so the
// purge does not change what the auth gate accepts.
type sessionPurger struct {
	sessions  store.SessionRepository
	interval  time.Duration
	retention time.Duration
	now       func() time.Time
	logger    *logger.Logger
}

func NewSessionPurger(sessions store.SessionRepository, interval, retention time.Duration, logger *logger.Logger) Worker {
	return &sessionPurger{
		sessions:  sessions,
		interval:  interval,
		retention: retention,
		now:       time.Now,
		logger:    logger,
	}
}

func (p *sessionPurger) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info().Dur("interval", p.interval).Dur("retention", p.retention).Msg("session purger started")

	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("session purger stopped")
			return
		case <-ticker.C:
			p.purge(ctx)
		}
	}
}

func (p *sessionPurger) purge(ctx context.Context) {
	cutoff := p.now().Add(-p.retention)

	purged, err := p.sessions.PurgeSessions(ctx, cutoff)
	if err != nil {
		p.logger.Err(err).Time("cutoff", cutoff).Msg("session purge failed")
		return
	}
	if purged > 0 {
		p.logger.Info().Int64("purged", purged).Time("cutoff", cutoff).Msg("dead sessions purged")
	}
}
