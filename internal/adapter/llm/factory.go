package llm

import (
	"log"
	"time"
)

// ModeMock indicates mock mode should be used.
const ModeMock = "MOCK"

// NewLLMClient creates an LLM client for mode.
// If mode is MOCK, returns a MockClient; otherwise returns a real Client.
func NewLLMClient(mode, baseURL, apiKey string, timeout time.Duration) LLMClient {
	if mode == ModeMock {
		log.Println("MODE=MOCK detected, using mock LLM client")
		return NewMockClient()
	}

	return NewClient(baseURL, apiKey, timeout)
}
