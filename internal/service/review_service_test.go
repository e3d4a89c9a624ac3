package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/sigayyury-ai/crmtowfirma-sub008/internal/domain"
)

func seedTransaction(repo *memTxRepo, hash string, amount float64, currency string) int {
	repo.seq++
	id := repo.seq
	repo.rows[id] = &domain.Transaction{
		ID:            id,
		ContentHash:   hash,
		OperationDate: time.Date(2025, 10, 30, 0, 0, 0, 0, time.UTC),
		Amount:        decimal.NewFromFloat(amount),
		Currency:      currency,
		Direction:     domain.In,
		MatchStatus:   domain.NeedsReview,
		Origin:        domain.OriginAuto,
	}
	return id
}

func openProforma(id int, currency string, total float64) *domain.Proforma {
	return &domain.Proforma{
		ID:               id,
		FullNumber:       "CO-PROF 1/2025",
		NormalizedNumber: "CO-PROF 1/2025",
		Currency:         currency,
		Total:            decimal.NewFromFloat(total),
		ExchangeRate:     decimal.NewFromInt(1),
		IssuedAt:         time.Now().AddDate(0, -1, 0),
	}
}

func TestApproveMatch_LinksAndRecomputes(t *testing.T) {
	txRepo := newMemTxRepo()
	proformaRepo := newMemProformaRepo(openProforma(1, "PLN", 2000))
	svc := NewReviewService(txRepo, proformaRepo)

	txID := seedTransaction(txRepo, "h1", 1000, "PLN")

	tx, err := svc.ApproveMatch(context.Background(), txID, 1)

	assert.NoError(t, err)
	assert.Equal(t, domain.Matched, tx.EffectiveStatus())
	assert.Equal(t, domain.OriginManual, tx.Origin)
	assert.True(t, proformaRepo.rows[1].PaymentsTotal.Equal(decimal.NewFromInt(1000)),
		"payments_total equals the sum of approved links exactly")
}

func TestApproveMatch_AggregateSumsAllLinks(t *testing.T) {
	txRepo := newMemTxRepo()
	proformaRepo := newMemProformaRepo(openProforma(1, "PLN", 5000))
	svc := NewReviewService(txRepo, proformaRepo)

	first := seedTransaction(txRepo, "h1", 1000, "PLN")
	second := seedTransaction(txRepo, "h2", 250.50, "PLN")

	_, err := svc.ApproveMatch(context.Background(), first, 1)
	assert.NoError(t, err)
	_, err = svc.ApproveMatch(context.Background(), second, 1)
	assert.NoError(t, err)

	assert.True(t, proformaRepo.rows[1].PaymentsTotal.Equal(decimal.NewFromFloat(1250.50)))

	// Repeating the recompute does not change the result.
	assert.NoError(t, svc.RecomputeAggregates(context.Background(), 1))
	assert.True(t, proformaRepo.rows[1].PaymentsTotal.Equal(decimal.NewFromFloat(1250.50)))
}

func TestApproveMatch_MissingProforma(t *testing.T) {
	txRepo := newMemTxRepo()
	svc := NewReviewService(txRepo, newMemProformaRepo())

	txID := seedTransaction(txRepo, "h1", 1000, "PLN")

	_, err := svc.ApproveMatch(context.Background(), txID, 99)

	var validationErr *domain.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestApproveMatch_FullyPaidProforma(t *testing.T) {
	paid := openProforma(1, "PLN", 1000)
	paid.PaymentsTotal = decimal.NewFromInt(1000)

	txRepo := newMemTxRepo()
	svc := NewReviewService(txRepo, newMemProformaRepo(paid))

	txID := seedTransaction(txRepo, "h1", 1000, "PLN")

	_, err := svc.ApproveMatch(context.Background(), txID, 1)

	var validationErr *domain.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestApproveMatch_RelinkRecomputesBothProformas(t *testing.T) {
	firstProforma := openProforma(1, "PLN", 2000)
	secondProforma := openProforma(2, "PLN", 2000)
	secondProforma.FullNumber = "CO-PROF 2/2025"
	secondProforma.NormalizedNumber = "CO-PROF 2/2025"

	txRepo := newMemTxRepo()
	proformaRepo := newMemProformaRepo(firstProforma, secondProforma)
	svc := NewReviewService(txRepo, proformaRepo)

	txID := seedTransaction(txRepo, "h1", 1000, "PLN")

	_, err := svc.ApproveMatch(context.Background(), txID, 1)
	assert.NoError(t, err)
	assert.True(t, proformaRepo.rows[1].PaymentsTotal.Equal(decimal.NewFromInt(1000)))

	_, err = svc.ApproveMatch(context.Background(), txID, 2)
	assert.NoError(t, err)

	assert.True(t, proformaRepo.rows[1].PaymentsTotal.IsZero(),
		"the proforma losing the link is recomputed too")
	assert.True(t, proformaRepo.rows[2].PaymentsTotal.Equal(decimal.NewFromInt(1000)))
}

func TestClearMatch_RestoresSuggestionAndRecomputes(t *testing.T) {
	txRepo := newMemTxRepo()
	proformaRepo := newMemProformaRepo(openProforma(1, "PLN", 2000))
	svc := NewReviewService(txRepo, proformaRepo)

	txID := seedTransaction(txRepo, "h1", 1000, "PLN")

	_, err := svc.ApproveMatch(context.Background(), txID, 1)
	assert.NoError(t, err)

	tx, err := svc.ClearMatch(context.Background(), txID)
	assert.NoError(t, err)

	assert.Nil(t, tx.ManualStatus)
	assert.Equal(t, domain.NeedsReview, tx.EffectiveStatus(),
		"the automatic suggestion becomes visible again")
	assert.True(t, proformaRepo.rows[1].PaymentsTotal.IsZero())
}

func TestMarkRefund_UnlinksAndFlipsDirection(t *testing.T) {
	txRepo := newMemTxRepo()
	proformaRepo := newMemProformaRepo(openProforma(1, "PLN", 2000))
	svc := NewReviewService(txRepo, proformaRepo)

	txID := seedTransaction(txRepo, "h1", 1000, "PLN")

	_, err := svc.ApproveMatch(context.Background(), txID, 1)
	assert.NoError(t, err)

	tx, err := svc.MarkRefund(context.Background(), txID)
	assert.NoError(t, err)

	assert.Equal(t, domain.Out, tx.Direction)
	assert.Equal(t, domain.Unmatched, tx.EffectiveStatus())
	assert.True(t, proformaRepo.rows[1].PaymentsTotal.IsZero(),
		"the unlinked proforma loses the payment")
}

func TestReview_StorageDisabled(t *testing.T) {
	svc := NewReviewService(nil, nil)

	_, err := svc.ApproveMatch(context.Background(), 1, 1)
	assert.ErrorIs(t, err, domain.ErrStorageDisabled)

	_, err = svc.ClearMatch(context.Background(), 1)
	assert.ErrorIs(t, err, domain.ErrStorageDisabled)

	_, err = svc.MarkRefund(context.Background(), 1)
	assert.ErrorIs(t, err, domain.ErrStorageDisabled)

	assert.ErrorIs(t, svc.RecomputeAggregates(context.Background(), 1), domain.ErrStorageDisabled)
}

func TestTransactionService_DeleteIsSoft(t *testing.T) {
	txRepo := newMemTxRepo()
	svc := NewTransactionService(txRepo)

	txID := seedTransaction(txRepo, "h1", 1000, "PLN")

	assert.NoError(t, svc.Delete(context.Background(), txID))

	_, err := svc.GetByID(context.Background(), txID)
	assert.ErrorIs(t, err, domain.ErrTransactionNotFound)
	assert.NotNil(t, txRepo.rows[txID], "the row itself stays in the ledger")
	assert.NotNil(t, txRepo.rows[txID].DeletedAt)
}
