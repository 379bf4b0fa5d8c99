// Package idempotency coalesces duplicate chat submissions into one cached turn.
//
// A key is the SHA-256 of the conversation id, the user text and the index of
// the fixed-width time bucket the request arrived in. The first request in a
// bucket reserves the key; duplicates either replay the completed response or
// wait for the reserving turn to finish.
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log"
	"strconv"
	"time"

	"github.com/jjspscl/hunt-st-assessment/internal/domain"
)

// Store is the persistence the cache needs.
type Store interface {
	GetIdempotencyRecord(ctx context.Context, key string) (*domain.IdempotencyRecord, error)
	ReserveIdempotencyKey(ctx context.Context, key string, now, expiresAt time.Time) (bool, error)
	CompleteIdempotencyKey(ctx context.Context, key, response string, now, expiresAt time.Time) (bool, error)
	ReleaseIdempotencyKey(ctx context.Context, key string) error
	DeleteExpiredIdempotencyKey(ctx context.Context, key string, now time.Time) error
}

// Options configures a Cache.
type Options struct {
	Bucket       time.Duration
	TTL          time.Duration
	Wait         time.Duration
	PollInterval time.Duration
	Now          func() time.Time
}

// Cache is the idempotency cache.
type Cache struct {
	store  Store
	bucket time.Duration
	ttl    time.Duration
	wait   time.Duration
	poll   time.Duration
	now    func() time.Time
}

// New creates a Cache. Zero options fall back to a 10s bucket, 10m TTL and 30s wait.
func New(store Store, opts Options) *Cache {
	c := &Cache{
		store:  store,
		bucket: opts.Bucket,
		ttl:    opts.TTL,
		wait:   opts.Wait,
		poll:   opts.PollInterval,
		now:    opts.Now,
	}
	if c.bucket <= 0 {
		c.bucket = 10 * time.Second
	}
	if c.ttl <= 0 {
		c.ttl = 10 * time.Minute
	}
	if c.wait <= 0 {
		c.wait = 30 * time.Second
	}
	if c.poll <= 0 {
		c.poll = 100 * time.Millisecond
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// ComputeKey returns the hex SHA-256 of conversationID, text and the bucket containing now.
func (c *Cache) ComputeKey(conversationID, text string, now time.Time) string {
	bucket := now.UnixMilli() / c.bucket.Milliseconds()
	h := sha256.New()
	h.Write([]byte(conversationID))
	h.Write([]byte{0})
	h.Write([]byte(text))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatInt(bucket, 10)))
	return hex.EncodeToString(h.Sum(nil))
}

// Lookup returns the completed response for key. Absent, pending and expired
// records are misses; expired rows are deleted.
func (c *Cache) Lookup(ctx context.Context, key string) (string, bool, error) {
	rec, err := c.store.GetIdempotencyRecord(ctx, key)
	if err != nil || rec == nil {
		return "", false, err
	}
	now := c.now()
	if rec.Expired(now) {
		if err := c.store.DeleteExpiredIdempotencyKey(ctx, key, now); err != nil {
			log.Printf("WARN: failed to delete expired idempotency key: %v", err)
		}
		return "", false, nil
	}
	if rec.Status != domain.IdempotencyStatusComplete {
		return "", false, nil
	}
	return rec.Response, true, nil
}

// Store records response under key for the configured TTL. The first
// completed response wins. Failures are logged and swallowed.
func (c *Cache) Store(ctx context.Context, key, response string) {
	now := c.now()
	stored, err := c.store.CompleteIdempotencyKey(ctx, key, response, now, now.Add(c.ttl))
	if err != nil {
		log.Printf("WARN: failed to store idempotency record: %v", err)
		return
	}
	if !stored {
		log.Printf("INFO: idempotency key %s already completed, keeping first response", shortKey(key))
	}
}

// Release drops the reservation held by key so a retry can run.
func (c *Cache) Release(ctx context.Context, key string) {
	if err := c.store.ReleaseIdempotencyKey(ctx, key); err != nil {
		log.Printf("WARN: failed to release idempotency key: %v", err)
	}
}

// Ticket is the outcome of Begin.
type Ticket struct {
	Key      string
	Cached   bool
	Response string
}

// Begin resolves a chat turn against the cache. It returns a cached ticket on
// a hit, otherwise reserves the key for the caller. A duplicate of a turn that
// is still running waits for it and returns domain.ErrTurnInProgress if it
// does not finish in time. Storage errors degrade to an uncached turn.
func (c *Cache) Begin(ctx context.Context, conversationID, text string) (*Ticket, error) {
	now := c.now()
	current := c.ComputeKey(conversationID, text, now)
	previous := c.ComputeKey(conversationID, text, now.Add(-c.bucket))

	var pending string
	for _, key := range []string{current, previous} {
		rec, err := c.store.GetIdempotencyRecord(ctx, key)
		if err != nil {
			log.Printf("WARN: idempotency lookup failed, continuing uncached: %v", err)
			return &Ticket{Key: current}, nil
		}
		if rec == nil {
			continue
		}
		if rec.Expired(now) {
			if err := c.store.DeleteExpiredIdempotencyKey(ctx, key, now); err != nil {
				log.Printf("WARN: failed to delete expired idempotency key: %v", err)
			}
			continue
		}
		if rec.Status == domain.IdempotencyStatusComplete {
			return &Ticket{Key: key, Cached: true, Response: rec.Response}, nil
		}
		if pending == "" {
			pending = key
		}
	}

	if pending != "" {
		return c.await(ctx, pending, current)
	}
	return c.reserveOrAwait(ctx, current)
}

func (c *Cache) reserveOrAwait(ctx context.Context, key string) (*Ticket, error) {
	now := c.now()
	reserved, err := c.store.ReserveIdempotencyKey(ctx, key, now, now.Add(c.ttl))
	if err != nil {
		log.Printf("WARN: idempotency reservation failed, continuing uncached: %v", err)
		return &Ticket{Key: key}, nil
	}
	if reserved {
		return &Ticket{Key: key}, nil
	}
	return c.await(ctx, key, key)
}

// await polls key until it completes. If the holder releases it, the caller
// takes over by reserving fallback.
func (c *Cache) await(ctx context.Context, key, fallback string) (*Ticket, error) {
	deadline := time.NewTimer(c.wait)
	defer deadline.Stop()
	ticker := time.NewTicker(c.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, domain.ErrTurnInProgress
		case <-ticker.C:
		}

		rec, err := c.store.GetIdempotencyRecord(ctx, key)
		if err != nil {
			log.Printf("WARN: idempotency poll failed: %v", err)
			continue
		}
		if rec != nil && rec.Status == domain.IdempotencyStatusComplete {
			return &Ticket{Key: key, Cached: true, Response: rec.Response}, nil
		}
		if rec == nil || rec.Expired(c.now()) {
			now := c.now()
			reserved, err := c.store.ReserveIdempotencyKey(ctx, fallback, now, now.Add(c.ttl))
			if err != nil {
				log.Printf("WARN: idempotency reservation failed, continuing uncached: %v", err)
				return &Ticket{Key: fallback}, nil
			}
			if reserved {
				return &Ticket{Key: fallback}, nil
			}
			key = fallback
		}
	}
}

func shortKey(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}
