package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/jjspscl/hunt-st-assessment/internal/domain"
)

// ResolveIdentity derives the conversation id for a caller: a hashed session
// token when the session is valid, else the client address, else anonymous.
// Callers behind one NAT share a conversation.
func (s *Service) ResolveIdentity(ctx context.Context, sessionToken, clientIP string) domain.Identity {
	if sessionToken != "" && s.ValidateSession(ctx, sessionToken) {
		sum := sha256.Sum256([]byte(sessionToken))
		return domain.Identity{
			ConversationID: "session:" + hex.EncodeToString(sum[:])[:16],
			Source:         domain.IdentitySourceSession,
		}
	}
	if clientIP != "" {
		return domain.Identity{ConversationID: "ip:" + clientIP, Source: domain.IdentitySourceIP}
	}
	return domain.Identity{ConversationID: "anonymous", Source: domain.IdentitySourceAnonymous}
}
