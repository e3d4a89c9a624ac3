package service

import (
	"context"

	"github.com/sigayyury-ai/crmtowfirma-sub008/internal/aggregate"
	"github.com/sigayyury-ai/crmtowfirma-sub008/internal/domain"
	"github.com/sigayyury-ai/crmtowfirma-sub008/internal/repository"
	"github.com/sigayyury-ai/crmtowfirma-sub008/pkg/logger"
)

// ReviewService applies operator decisions on match suggestions. Matched
// status only ever originates here; the engine alone never confirms a link.
type ReviewService interface {
	ApproveMatch(ctx context.Context, transactionID, proformaID int) (*domain.Transaction, error)
	ClearMatch(ctx context.Context, transactionID int) (*domain.Transaction, error)
	MarkRefund(ctx context.Context, transactionID int) (*domain.Transaction, error)
	RecomputeAggregates(ctx context.Context, proformaID int) error
}

type reviewService struct {
	txRepo       repository.TransactionRepository
	proformaRepo repository.ProformaRepository
}

func NewReviewService(txRepo repository.TransactionRepository, proformaRepo repository.ProformaRepository) ReviewService {
	return &reviewService{txRepo: txRepo, proformaRepo: proformaRepo}
}

func (s *reviewService) ApproveMatch(ctx context.Context, transactionID, proformaID int) (*domain.Transaction, error) {
	if s.txRepo == nil || s.proformaRepo == nil {
		return nil, domain.ErrStorageDisabled
	}

	tx, err := s.txRepo.GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	proforma, err := s.proformaRepo.GetByID(ctx, proformaID)
	if err == domain.ErrProformaNotFound {
		return nil, domain.NewValidationError("proforma %d does not exist", proformaID)
	}
	if err != nil {
		return nil, err
	}
	if proforma.FullyPaid() {
		return nil, domain.NewValidationError("proforma %s is already fully paid", proforma.FullNumber)
	}

	previous := tx.LinkedProformaID()

	status := domain.Matched
	tx.ManualStatus = &status
	tx.ManualProformaID = &proformaID
	tx.Origin = domain.OriginManual
	if err := s.txRepo.UpdateManualFields(ctx, tx); err != nil {
		return nil, err
	}

	s.recomputeAffected(ctx, previous, &proformaID)
	return tx, nil
}

func (s *reviewService) ClearMatch(ctx context.Context, transactionID int) (*domain.Transaction, error) {
	if s.txRepo == nil || s.proformaRepo == nil {
		return nil, domain.ErrStorageDisabled
	}

	tx, err := s.txRepo.GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	previous := tx.LinkedProformaID()

	// Clearing drops the operator decision entirely; the automatic
	// suggestion becomes visible again.
	tx.ManualStatus = nil
	tx.ManualProformaID = nil
	tx.Origin = domain.OriginAuto
	if err := s.txRepo.UpdateManualFields(ctx, tx); err != nil {
		return nil, err
	}

	s.recomputeAffected(ctx, previous, nil)
	return tx, nil
}

func (s *reviewService) MarkRefund(ctx context.Context, transactionID int) (*domain.Transaction, error) {
	if s.txRepo == nil || s.proformaRepo == nil {
		return nil, domain.ErrStorageDisabled
	}

	tx, err := s.txRepo.GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	previous := tx.LinkedProformaID()

	status := domain.Unmatched
	tx.ManualStatus = &status
	tx.ManualProformaID = nil
	tx.Origin = domain.OriginManual
	if err := s.txRepo.UpdateManualFields(ctx, tx); err != nil {
		return nil, err
	}

	tx.Direction = domain.Out
	if err := s.txRepo.UpdateDirection(ctx, tx.ID, domain.Out); err != nil {
		return nil, err
	}

	s.recomputeAffected(ctx, previous, nil)
	return tx, nil
}

// RecomputeAggregates fully replaces a proforma's paid totals from a fresh
// read of its approved link set. Idempotent and safe to repeat; the last
// write always reflects the true underlying set.
func (s *reviewService) RecomputeAggregates(ctx context.Context, proformaID int) error {
	if s.txRepo == nil || s.proformaRepo == nil {
		return domain.ErrStorageDisabled
	}

	proforma, err := s.proformaRepo.GetByID(ctx, proformaID)
	if err != nil {
		return err
	}

	linked, err := s.txRepo.ListApprovedByProforma(ctx, proformaID)
	if err != nil {
		return err
	}

	totals := aggregate.Compute(proforma, linked)
	return s.proformaRepo.UpdatePaymentTotals(ctx, proformaID, totals.PaymentsTotal, totals.PaymentsTotalBaseCurrency)
}

// recomputeAffected triggers recomputation for every proforma whose link set
// changed. Failures are logged, never propagated: stale totals heal on the
// next trigger, a lost operator decision does not.
func (s *reviewService) recomputeAffected(ctx context.Context, previous, current *int) {
	for _, id := range []*int{previous, current} {
		if id == nil {
			continue
		}
		if previous != nil && current != nil && id == current && *previous == *current {
			continue
		}
		if err := s.RecomputeAggregates(ctx, *id); err != nil {
			logger.GetLogger().WithError(err).WithField("proforma_id", *id).Error("Failed to recompute aggregates")
		}
	}
}
