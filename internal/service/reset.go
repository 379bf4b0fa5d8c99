package service

import (
	"context"
	"log"
	"net/http"

	"github.com/jjspscl/hunt-st-assessment/internal/domain"
)

// Reset clears tasks, details, conversations, sessions, login attempts and
// idempotency records.
func (s *Service) Reset(ctx context.Context) error {
	if err := s.store.ResetAll(ctx); err != nil {
		return domain.WrapError(domain.ErrCodeResetFailed, http.StatusInternalServerError, "failed to reset data", err)
	}
	log.Printf("INFO: all task data reset")
	s.publish(domain.TaskEventReset, nil, nil)
	return nil
}
