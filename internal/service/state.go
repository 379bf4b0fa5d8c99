package service

import (
	"log"

	"github.com/jjspscl/hunt-st-assessment/internal/domain"
)

var turnTransitions = map[domain.TurnState][]domain.TurnState{
	domain.TurnStateIdle:               {domain.TurnStateIdentityResolved, domain.TurnStateFailed},
	domain.TurnStateIdentityResolved:   {domain.TurnStateIdempotencyChecked, domain.TurnStateFailed},
	domain.TurnStateIdempotencyChecked: {domain.TurnStateCacheHit, domain.TurnStateInvoking, domain.TurnStateFailed},
	domain.TurnStateCacheHit:           {domain.TurnStateDone},
	domain.TurnStateInvoking:           {domain.TurnStateStreaming, domain.TurnStateFailed},
	domain.TurnStateStreaming:          {domain.TurnStateFinalizing, domain.TurnStateFailed},
	domain.TurnStateFinalizing:         {domain.TurnStateDone},
}

func canTransition(from, to domain.TurnState) bool {
	for _, s := range turnTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// advance moves *state to next, logging transitions the lifecycle does not allow.
func advance(state *domain.TurnState, next domain.TurnState) {
	if !canTransition(*state, next) {
		log.Printf("WARN: unexpected chat turn transition %s -> %s", *state, next)
	}
	*state = next
}
