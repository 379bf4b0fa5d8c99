// Package service wires the task tracker's stores, model client and tools
// into the operations exposed over HTTP, MCP and the CLI.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jjspscl/hunt-st-assessment/internal/adapter/llm"
	"github.com/jjspscl/hunt-st-assessment/internal/config"
	"github.com/jjspscl/hunt-st-assessment/internal/idempotency"
	"github.com/jjspscl/hunt-st-assessment/internal/policy"
	store "github.com/jjspscl/hunt-st-assessment/internal/repository"
	"github.com/jjspscl/hunt-st-assessment/internal/tools"
)

type Service struct {
	store        store.Store
	llmClient    llm.LLMClient
	config       *config.Config
	policyEngine *policy.Engine
	idem         *idempotency.Cache
	tools        *tools.Registry
	notifier     Notifier
	now          func() time.Time

	// runs tracks detached chat turns.
	runs sync.WaitGroup
}

// Option customizes a Service.
type Option func(*Service)

// WithNotifier sets the receiver of task events.
func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(store store.Store, llmClient llm.LLMClient, cfg *config.Config, policyEngine *policy.Engine, opts ...Option) *Service {
	s := &Service{
		store:        store,
		llmClient:    llmClient,
		config:       cfg,
		policyEngine: policyEngine,
		notifier:     nopNotifier{},
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.idem = idempotency.New(store, idempotency.Options{
		Bucket: cfg.IdempotencyBucket,
		TTL:    cfg.IdempotencyTTL,
		Wait:   cfg.IdempotencyWait,
		Now:    s.now,
	})

	var guard tools.Guard
	if policyEngine != nil {
		guard = policyEngine
	}
	s.tools = tools.NewRegistry(guard, policy.Limits{
		MaxBatch:       cfg.ToolMaxBatch,
		MaxDetailChars: cfg.ToolMaxDetailChars,
	})
	if err := tools.RegisterTaskTools(s.tools, s, s); err != nil {
		panic(err)
	}
	return s
}

// Tools returns the tool registry bound to this service.
func (s *Service) Tools() *tools.Registry {
	return s.tools
}

// Drain blocks until every running chat turn has finalized or ctx is done.
func (s *Service) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.runs.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("failed to drain chat turns: %w", ctx.Err())
	}
}

// Config returns the service configuration.
func (s *Service) Config() *config.Config {
	return s.config
}
