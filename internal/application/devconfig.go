package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/bnema/chatkit-broker/internal/domain"
	"github.com/bnema/chatkit-broker/internal/ports"
	"github.com/rs/zerolog"
)

var (
	ErrDevConfigDisabled = errors.New("developer overrides are disabled in production")
	ErrEmptyDevAPIKey    = errors.New("Enter an OpenAI API key to use for local development.")
)

// DevConfigService persists the local developer override in LocalStorage under
// domain.DevConfigStorageKey.
type DevConfigService struct {
	storage    ports.LocalStorage
	production bool
	logger     zerolog.Logger
}

func NewDevConfigService(storage ports.LocalStorage, production bool, logger zerolog.Logger) *DevConfigService {
	return &DevConfigService{
		storage:    storage,
		production: production,
		logger:     logger.With().Str("component", "dev_config").Logger(),
	}
}

func (s *DevConfigService) Enabled() bool {
	return s != nil && s.storage != nil && !s.production
}

// Load returns the stored override, or nil when there is none or it cannot be
// read or parsed.
func (s *DevConfigService) Load(ctx context.Context) *domain.DeveloperConfig {
	if !s.Enabled() {
		return nil
	}

	raw, ok, err := s.storage.GetItem(ctx, domain.DevConfigStorageKey)
	if err != nil {
		s.logger.Warn().Err(err).Msg("read developer config")
		return nil
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return nil
	}

	var stored struct {
		APIKey     *string `json:"apiKey"`
		WorkflowID *string `json:"workflowId"`
	}
	if err := json.Unmarshal([]byte(raw), &stored); err != nil || stored.APIKey == nil {
		s.logger.Warn().Msg("ignoring malformed developer config")
		return nil
	}

	cfg := &domain.DeveloperConfig{APIKey: *stored.APIKey}
	if stored.WorkflowID != nil {
		cfg.WorkflowID = *stored.WorkflowID
	}
	return cfg
}

func (s *DevConfigService) Save(ctx context.Context, apiKey string, workflowID string) (*domain.DeveloperConfig, error) {
	if !s.Enabled() {
		return nil, ErrDevConfigDisabled
	}

	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, ErrEmptyDevAPIKey
	}
	cfg := &domain.DeveloperConfig{APIKey: apiKey, WorkflowID: strings.TrimSpace(workflowID)}

	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encode developer config: %w", err)
	}
	if err := s.storage.SetItem(ctx, domain.DevConfigStorageKey, string(data)); err != nil {
		return nil, fmt.Errorf("could not store the developer key locally: %w", err)
	}
	return cfg, nil
}

// Clear removes the stored override. Failures only affect the local cache and
// are logged, not returned.
func (s *DevConfigService) Clear(ctx context.Context) {
	if s == nil || s.storage == nil {
		return
	}
	if err := s.storage.RemoveItem(ctx, domain.DevConfigStorageKey); err != nil {
		s.logger.Warn().Err(err).Msg("clear developer config")
	}
}
