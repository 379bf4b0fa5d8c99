package domain

import "time"

// IdempotencyRecord caches the outcome of one chat turn for a time bucket.
type IdempotencyRecord struct {
	Key       string            `json:"key"`
	Status    IdempotencyStatus `json:"status"`
	Response  string            `json:"response"`
	CreatedAt time.Time         `json:"createdAt"`
	ExpiresAt time.Time         `json:"expiresAt"`
}

// Expired reports whether the record is no longer valid at now.
func (r *IdempotencyRecord) Expired(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}

// Session is an authenticated browser session.
type Session struct {
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// LoginAttempt tracks failed logins for one client address.
type LoginAttempt struct {
	IPAddress   string     `json:"ipAddress"`
	Attempts    int        `json:"attempts"`
	LastAttempt time.Time  `json:"lastAttempt"`
	LockedUntil *time.Time `json:"lockedUntil,omitempty"`
}

// Model is an upstream completion model.
type Model struct {
	ID      string `json:"id"`
	OwnedBy string `json:"ownedBy,omitempty"`
}
