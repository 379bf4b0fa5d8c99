package service

import (
	"context"
	"log"
	"time"
)

// RunExpirySweeper periodically purges expired idempotency records and
// sessions until ctx is done. Lookups already ignore expired rows; this only
// bounds table growth.
func (s *Service) RunExpirySweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepExpired(ctx)
		}
	}
}

func (s *Service) sweepExpired(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	now := s.now()
	if n, err := s.store.PurgeExpiredIdempotencyKeys(sweepCtx, now); err != nil {
		log.Printf("WARN: idempotency sweep failed: %v", err)
	} else if n > 0 {
		log.Printf("INFO: purged %d expired idempotency records", n)
	}

	if n, err := s.store.PurgeExpiredSessions(sweepCtx, now); err != nil {
		log.Printf("WARN: session sweep failed: %v", err)
	} else if n > 0 {
		log.Printf("INFO: purged %d expired sessions", n)
	}
}
