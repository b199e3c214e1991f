package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/devrev/swissmatch/internal/store"
)

// MaxIdempotencyKeyLength bounds client supplied keys
const MaxIdempotencyKeyLength = 128

// IdempotencyService caches commit acknowledgements by client key
type IdempotencyService struct {
	idempotencyStore store.IdempotencyStore
	ttl              time.Duration
	logger           *zap.Logger
}

// NewIdempotencyService creates a new idempotency service
func NewIdempotencyService(
	idempotencyStore store.IdempotencyStore,
	ttl time.Duration,
	logger *zap.Logger,
) *IdempotencyService {
	return &IdempotencyService{
		idempotencyStore: idempotencyStore,
		ttl:              ttl,
		logger:           logger,
	}
}

// Get retrieves a cached commit response, or nil when none is stored
func (s *IdempotencyService) Get(ctx context.Context, tournamentID, idempotencyKey string) (*CommitResponse, error) {
	storeKey := s.buildStoreKey(tournamentID, idempotencyKey)

	data, err := s.idempotencyStore.Get(ctx, storeKey)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.logger.Debug("Idempotency key not found",
				zap.String("tournament_id", tournamentID),
				zap.String("idempotency_key", idempotencyKey))
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get idempotency response: %w", err)
	}

	var response CommitResponse
	if err := json.Unmarshal(data, &response); err != nil {
		s.logger.Error("Invalid idempotency response",
			zap.String("tournament_id", tournamentID),
			zap.Error(err))
		return nil, fmt.Errorf("invalid idempotency response: %w", err)
	}

	s.logger.Debug("Idempotency response found",
		zap.String("tournament_id", tournamentID),
		zap.String("idempotency_key", idempotencyKey))

	return &response, nil
}

// Store stores a commit response
func (s *IdempotencyService) Store(
	ctx context.Context,
	tournamentID, idempotencyKey string,
	response *CommitResponse,
) error {
	data, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("failed to encode idempotency response: %w", err)
	}

	storeKey := s.buildStoreKey(tournamentID, idempotencyKey)
	if err := s.idempotencyStore.Set(ctx, storeKey, data, s.ttl); err != nil {
		return fmt.Errorf("failed to store idempotency response: %w", err)
	}

	s.logger.Debug("Stored idempotency response",
		zap.String("tournament_id", tournamentID),
		zap.String("idempotency_key", idempotencyKey),
		zap.Duration("ttl", s.ttl))

	return nil
}

// Delete deletes an idempotency key
func (s *IdempotencyService) Delete(ctx context.Context, tournamentID, idempotencyKey string) error {
	storeKey := s.buildStoreKey(tournamentID, idempotencyKey)

	if err := s.idempotencyStore.Delete(ctx, storeKey); err != nil {
		return fmt.Errorf("failed to delete idempotency key: %w", err)
	}
	return nil
}

// buildStoreKey builds the store key for idempotency
func (s *IdempotencyService) buildStoreKey(tournamentID, idempotencyKey string) string {
	return fmt.Sprintf("%s:%s", tournamentID, idempotencyKey)
}

// ValidateIdempotencyKey reports whether a client key is acceptable:
// 1 to MaxIdempotencyKeyLength printable ASCII characters
func ValidateIdempotencyKey(idempotencyKey string) bool {
	if len(idempotencyKey) == 0 || len(idempotencyKey) > MaxIdempotencyKeyLength {
		return false
	}
	for _, c := range idempotencyKey {
		if c < 0x21 || c > 0x7e {
			return false
		}
	}
	return true
}
