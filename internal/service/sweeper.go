package service

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// ExpirySweeper periodically expires stale pending invitations
type ExpirySweeper struct {
	invitations *InvitationService
	clock       clockwork.Clock
	interval    time.Duration
}

// NewExpirySweeper creates a sweeper that runs every interval
func NewExpirySweeper(invitations *InvitationService, clock clockwork.Clock, interval time.Duration) *ExpirySweeper {
	return &ExpirySweeper{invitations: invitations, clock: clock, interval: interval}
}

// Run sweeps until ctx is cancelled
func (s *ExpirySweeper) Run(ctx context.Context) error {
	if s.interval <= 0 {
		log.Info().Msg("invitation sweeper disabled")
		<-ctx.Done()
		return nil
	}

	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	log.Info().Dur("interval", s.interval).Msg("invitation sweeper started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("invitation sweeper stopped")
			return nil
		case <-ticker.Chan():
			s.sweep(ctx)
		}
	}
}

func (s *ExpirySweeper) sweep(ctx context.Context) {
	n, err := s.invitations.SweepExpired(ctx)
	if err != nil {
		log.Error().Err(err).Int("expired", n).Msg("invitation sweep failed")
		return
	}
	if n > 0 {
		log.Info().Int("expired", n).Msg("expired stale invitations")
	}
}
