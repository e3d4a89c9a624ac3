package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/sigayyury-ai/crmtowfirma-sub008/internal/domain"
	"github.com/sigayyury-ai/crmtowfirma-sub008/internal/matcher"
	"github.com/sigayyury-ai/crmtowfirma-sub008/internal/parser"
	"github.com/sigayyury-ai/crmtowfirma-sub008/internal/repository"
	"github.com/sigayyury-ai/crmtowfirma-sub008/pkg/logger"
)

type IngestionService interface {
	// IngestStatement parses raw export bytes and ingests the result.
	IngestStatement(ctx context.Context, data []byte) (*domain.ImportSummary, error)
	// Ingest persists already-parsed transactions idempotently and runs the
	// matching engine over the pending inbound ones.
	Ingest(ctx context.Context, transactions []domain.Transaction) (*domain.ImportSummary, error)
}

type ingestionService struct {
	txRepo       repository.TransactionRepository
	proformaRepo repository.ProformaRepository
}

func NewIngestionService(txRepo repository.TransactionRepository, proformaRepo repository.ProformaRepository) IngestionService {
	return &ingestionService{txRepo: txRepo, proformaRepo: proformaRepo}
}

func (s *ingestionService) IngestStatement(ctx context.Context, data []byte) (*domain.ImportSummary, error) {
	return s.Ingest(ctx, parser.ParseStatement(data))
}

func (s *ingestionService) Ingest(ctx context.Context, transactions []domain.Transaction) (*domain.ImportSummary, error) {
	if s.txRepo == nil || s.proformaRepo == nil {
		return nil, domain.ErrStorageDisabled
	}

	summary := &domain.ImportSummary{ImportID: uuid.New().String()}

	logger.GetLogger().WithFields(map[string]interface{}{
		"import_id": summary.ImportID,
		"rows":      len(transactions),
	}).Info("Starting statement ingestion")

	// Duplicate hashes within one batch collapse before any database call;
	// the first occurrence wins.
	seen := make(map[string]bool)
	batch := make([]domain.Transaction, 0, len(transactions))
	for _, tx := range transactions {
		if seen[tx.ContentHash] {
			summary.Skipped++
			continue
		}
		seen[tx.ContentHash] = true
		batch = append(batch, tx)
	}

	fresh, err := s.dropKnownRows(ctx, batch, summary)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve existing records: %w", err)
	}

	if err := s.txRepo.BulkInsert(ctx, fresh); err != nil {
		return nil, fmt.Errorf("failed to persist transactions: %w", err)
	}
	summary.Processed = len(fresh)

	if err := s.matchPending(ctx, fresh, summary); err != nil {
		return nil, err
	}

	logger.GetLogger().WithFields(map[string]interface{}{
		"import_id":    summary.ImportID,
		"processed":    summary.Processed,
		"needs_review": summary.NeedsReview,
		"unmatched":    summary.Unmatched,
		"skipped":      summary.Skipped,
	}).Info("Statement ingestion completed")

	return summary, nil
}

// dropKnownRows removes from the batch every row the ledger already knows:
// same hash (soft-deleted rows stay deleted, re-import must not resurrect
// them) and the hash-drift case where the description changed upstream but
// the (date, amount, direction) triple already exists. In both cases the
// existing record wins, keeping any category or link it carries.
func (s *ingestionService) dropKnownRows(ctx context.Context, batch []domain.Transaction, summary *domain.ImportSummary) ([]domain.Transaction, error) {
	hashes := make([]string, 0, len(batch))
	for _, tx := range batch {
		hashes = append(hashes, tx.ContentHash)
	}

	existing, err := s.txRepo.GetByHashes(ctx, hashes)
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(existing))
	for _, tx := range existing {
		known[tx.ContentHash] = true
	}

	fresh := make([]domain.Transaction, 0, len(batch))
	for _, tx := range batch {
		if known[tx.ContentHash] {
			summary.Skipped++
			continue
		}

		duplicate, err := s.txRepo.FindDuplicate(ctx, tx.OperationDate, tx.Amount, tx.Direction)
		if err != nil {
			return nil, err
		}
		if duplicate != nil {
			logger.GetLogger().WithFields(map[string]interface{}{
				"content_hash": tx.ContentHash,
				"existing_id":  duplicate.ID,
			}).Info("Dropping hash-drifted duplicate")
			summary.Skipped++
			continue
		}

		fresh = append(fresh, tx)
	}
	return fresh, nil
}

// matchPending builds one shared matching context for the batch and scores
// every inbound transaction against it.
func (s *ingestionService) matchPending(ctx context.Context, inserted []domain.Transaction, summary *domain.ImportSummary) error {
	pending := make([]domain.Transaction, 0, len(inserted))
	for _, tx := range inserted {
		if tx.Direction == domain.In {
			pending = append(pending, tx)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	mc, err := matcher.BuildContext(ctx, s.proformaRepo, pending)
	if err != nil {
		return fmt.Errorf("failed to build matching context: %w", err)
	}

	hashes := make([]string, 0, len(pending))
	for _, tx := range pending {
		hashes = append(hashes, tx.ContentHash)
	}
	stored, err := s.txRepo.GetByHashes(ctx, hashes)
	if err != nil {
		return err
	}

	for i := range stored {
		tx := &stored[i]
		candidates := matcher.Match(*tx, mc)

		tx.MatchStatus = matcher.StatusFor(candidates)
		if len(candidates) > 0 {
			top := candidates[0]
			tx.MatchConfidence = top.Score
			tx.MatchReason = top.Reason
			if top.ProformaID != 0 {
				id := top.ProformaID
				tx.CandidateProformaID = &id
			}
		}

		if err := s.txRepo.UpdateMatchFields(ctx, tx); err != nil {
			logger.GetLogger().WithError(err).WithField("id", tx.ID).Error("Failed to store match result")
			continue
		}

		switch tx.MatchStatus {
		case domain.NeedsReview:
			summary.NeedsReview++
		default:
			summary.Unmatched++
		}
	}
	return nil
}
