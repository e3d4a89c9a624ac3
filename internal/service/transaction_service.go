package service

import (
	"context"

	"github.com/sigayyury-ai/crmtowfirma-sub008/internal/domain"
	"github.com/sigayyury-ai/crmtowfirma-sub008/internal/repository"
)

type TransactionService interface {
	GetByID(ctx context.Context, id int) (*domain.Transaction, error)
	ListByStatus(ctx context.Context, status domain.MatchStatus, limit int) ([]domain.Transaction, error)
	// Delete soft-deletes a transaction; a later re-import of the same
	// export will not bring it back.
	Delete(ctx context.Context, id int) error
}

type transactionService struct {
	repo repository.TransactionRepository
}

func NewTransactionService(repo repository.TransactionRepository) TransactionService {
	return &transactionService{repo: repo}
}

func (s *transactionService) GetByID(ctx context.Context, id int) (*domain.Transaction, error) {
	if s.repo == nil {
		return nil, domain.ErrStorageDisabled
	}
	return s.repo.GetByID(ctx, id)
}

func (s *transactionService) ListByStatus(ctx context.Context, status domain.MatchStatus, limit int) ([]domain.Transaction, error) {
	if s.repo == nil {
		return nil, domain.ErrStorageDisabled
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.repo.ListByStatus(ctx, status, limit)
}

func (s *transactionService) Delete(ctx context.Context, id int) error {
	if s.repo == nil {
		return domain.ErrStorageDisabled
	}
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	return s.repo.SoftDelete(ctx, id)
}
