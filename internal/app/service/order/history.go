package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/fatflowers/tgpass/internal/models"
	"github.com/fatflowers/tgpass/internal/repository"
	"github.com/fatflowers/tgpass/pkg/apperr"
	"github.com/fatflowers/tgpass/pkg/tool"
)

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 100
)

// History returns the user's transactions, newest first. limit is clamped to
// [1, MaxHistoryLimit]; zero or less means DefaultHistoryLimit.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]*models.Transaction, error) {
	if userID == "" {
		return nil, apperr.Validation("missing_user", "user id is required")
	}
	switch {
	case limit <= 0:
		limit = DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		limit = MaxHistoryLimit
	}
	txs, err := s.repo.ListTransactionsForUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	if txs == nil {
		txs = []*models.Transaction{}
	}
	return txs, nil
}

// GetTransaction loads one transaction. Ownership is checked by the caller.
func (s *Service) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	if !tool.IsUUID(id) {
		return nil, apperr.Validation("invalid_id", "transaction id is not a valid id")
	}
	tx, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("transaction_not_found", "transaction not found")
		}
		return nil, fmt.Errorf("load transaction %s: %w", id, err)
	}
	return tx, nil
}
