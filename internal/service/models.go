package service

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/jjspscl/hunt-st-assessment/internal/adapter/llm"
	"github.com/jjspscl/hunt-st-assessment/internal/domain"
)

const (
	settingActiveModel = "active_model"
	modelCheckTimeout  = 15 * time.Second
)

// ActiveModel returns the selected model, falling back to the configured default.
func (s *Service) ActiveModel(ctx context.Context) string {
	model, err := s.store.GetSetting(ctx, settingActiveModel)
	if err != nil {
		log.Printf("WARN: failed to load active model: %v", err)
	}
	if model == "" {
		return s.config.LLMModel
	}
	return model
}

// ListModels lists the upstream models and the active selection.
func (s *Service) ListModels(ctx context.Context) (*domain.ModelsResponse, error) {
	upstream, err := s.llmClient.ListModels(ctx)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeLLM, http.StatusBadGateway, "failed to list models", err)
	}
	models := make([]domain.Model, 0, len(upstream))
	for _, m := range upstream {
		models = append(models, domain.Model{ID: m.ID, OwnedBy: m.OwnedBy})
	}
	return &domain.ModelsResponse{Models: models, ActiveID: s.ActiveModel(ctx)}, nil
}

// SetActiveModel persists the model used by later chat turns. When the
// upstream list is reachable the id must appear in it, and the model must
// answer a one-message completion before it is saved.
func (s *Service) SetActiveModel(ctx context.Context, modelID string) error {
	modelID = strings.TrimSpace(modelID)
	if modelID == "" {
		return domain.NewError(domain.ErrCodeValidation, http.StatusBadRequest, "modelId is required")
	}

	upstream, err := s.llmClient.ListModels(ctx)
	if err != nil {
		log.Printf("WARN: could not verify model %s: %v", modelID, err)
	} else if len(upstream) > 0 {
		known := false
		for _, m := range upstream {
			if m.ID == modelID {
				known = true
				break
			}
		}
		if !known {
			return domain.NewError(domain.ErrCodeValidation, http.StatusBadRequest, "unknown model "+modelID)
		}
	}

	if err := s.checkModelHealth(ctx, modelID); err != nil {
		return err
	}

	if err := s.store.SetSetting(ctx, settingActiveModel, modelID); err != nil {
		return fmt.Errorf("failed to save active model: %w", err)
	}
	return nil
}

func (s *Service) checkModelHealth(ctx context.Context, modelID string) error {
	if s.config.LLMAPIKey == "" && !s.config.MockMode() {
		log.Printf("WARN: no LLM API key, skipping health check for model %s", modelID)
		return nil
	}
	checkCtx, cancel := context.WithTimeout(ctx, modelCheckTimeout)
	defer cancel()

	maxTokens := 1
	_, err := s.llmClient.CreateChatCompletion(checkCtx, &llm.ChatCompletionRequest{
		Model:     modelID,
		Messages:  []llm.ChatMessage{{Role: "user", Content: "ping"}},
		MaxTokens: &maxTokens,
	})
	if err != nil {
		return domain.WrapError(domain.ErrCodeLLM, http.StatusBadGateway, "model "+modelID+" did not respond", err)
	}
	return nil
}
