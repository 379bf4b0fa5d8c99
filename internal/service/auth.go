package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log"
	"net/http"

	"github.com/google/uuid"

	"github.com/jjspscl/hunt-st-assessment/internal/domain"
)

// AuthEnabled reports whether requests must carry a session.
func (s *Service) AuthEnabled() bool {
	return s.config.AuthEnabled()
}

// Login checks password for the client at ipAddress and opens a session.
// Repeated failures lock the address out for the configured window.
func (s *Service) Login(ctx context.Context, ipAddress, password string) (*domain.Session, error) {
	if !s.AuthEnabled() {
		return nil, domain.NewError(domain.ErrCodeValidation, http.StatusBadRequest, "authentication is not enabled")
	}
	if password == "" {
		return nil, domain.NewError(domain.ErrCodePasswordRequired, http.StatusBadRequest, "password is required")
	}

	now := s.now()
	attempt, err := s.store.GetLoginAttempt(ctx, ipAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to load login attempts: %w", err)
	}
	if attempt != nil && attempt.LockedUntil != nil && attempt.LockedUntil.After(now) {
		return nil, domain.NewError(domain.ErrCodeRateLimited, http.StatusTooManyRequests, "too many attempts, try again later")
	}

	if subtle.ConstantTimeCompare([]byte(password), []byte(s.config.SecretPassword)) != 1 {
		count := 1
		if attempt != nil && attempt.LockedUntil == nil {
			count = attempt.Attempts + 1
		}
		next := &domain.LoginAttempt{IPAddress: ipAddress, Attempts: count, LastAttempt: now}
		if count >= s.config.LoginMaxAttempts {
			until := now.Add(s.config.LoginLockout)
			next.LockedUntil = &until
		}
		if err := s.store.UpsertLoginAttempt(ctx, next); err != nil {
			log.Printf("WARN: failed to record login attempt: %v", err)
		}
		return nil, domain.NewError(domain.ErrCodeInvalidPassword, http.StatusUnauthorized, "invalid password")
	}

	if err := s.store.DeleteLoginAttempt(ctx, ipAddress); err != nil {
		log.Printf("WARN: failed to reset login attempts: %v", err)
	}

	session := &domain.Session{
		Token:     uuid.New().String(),
		CreatedAt: now,
		ExpiresAt: now.Add(s.config.SessionTTL),
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

// Logout deletes the session.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.store.DeleteSession(ctx, token); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// ValidateSession reports whether token names an unexpired session.
func (s *Service) ValidateSession(ctx context.Context, token string) bool {
	if token == "" {
		return false
	}
	session, err := s.store.GetSession(ctx, token)
	if err != nil {
		log.Printf("WARN: failed to load session: %v", err)
		return false
	}
	return session != nil && session.ExpiresAt.After(s.now())
}

// AuthStatus reports whether auth is required and whether token satisfies it.
func (s *Service) AuthStatus(ctx context.Context, token string) domain.AuthStatus {
	if !s.AuthEnabled() {
		return domain.AuthStatus{AuthRequired: false, Authenticated: true}
	}
	return domain.AuthStatus{AuthRequired: true, Authenticated: s.ValidateSession(ctx, token)}
}
