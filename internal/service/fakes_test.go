package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sigayyury-ai/crmtowfirma-sub008/internal/domain"
)

// In-memory repository fakes mirroring the Postgres contracts.

type memTxRepo struct {
	seq  int
	rows map[int]*domain.Transaction
}

func newMemTxRepo() *memTxRepo {
	return &memTxRepo{rows: make(map[int]*domain.Transaction)}
}

func (m *memTxRepo) GetByHashes(_ context.Context, hashes []string) ([]domain.Transaction, error) {
	wanted := make(map[string]bool, len(hashes))
	for _, h := range hashes {
		wanted[h] = true
	}
	var out []domain.Transaction
	for _, tx := range m.rows {
		if wanted[tx.ContentHash] {
			out = append(out, *tx)
		}
	}
	return out, nil
}

func (m *memTxRepo) FindDuplicate(_ context.Context, date time.Time, amount decimal.Decimal, direction domain.Direction) (*domain.Transaction, error) {
	for _, tx := range m.rows {
		if tx.DeletedAt == nil && tx.OperationDate.Equal(date) &&
			tx.Amount.Equal(amount) && tx.Direction == direction {
			copied := *tx
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memTxRepo) BulkInsert(_ context.Context, transactions []domain.Transaction) error {
	for _, tx := range transactions {
		if m.byHash(tx.ContentHash) != nil {
			continue
		}
		m.seq++
		tx.ID = m.seq
		copied := tx
		m.rows[tx.ID] = &copied
	}
	return nil
}

func (m *memTxRepo) GetByID(_ context.Context, id int) (*domain.Transaction, error) {
	tx, ok := m.rows[id]
	if !ok || tx.DeletedAt != nil {
		return nil, domain.ErrTransactionNotFound
	}
	copied := *tx
	return &copied, nil
}

func (m *memTxRepo) ListByStatus(_ context.Context, status domain.MatchStatus, limit int) ([]domain.Transaction, error) {
	var out []domain.Transaction
	for _, tx := range m.rows {
		if tx.DeletedAt == nil && tx.EffectiveStatus() == status && len(out) < limit {
			out = append(out, *tx)
		}
	}
	return out, nil
}

func (m *memTxRepo) UpdateMatchFields(_ context.Context, t *domain.Transaction) error {
	tx := m.rows[t.ID]
	tx.MatchStatus = t.MatchStatus
	tx.MatchConfidence = t.MatchConfidence
	tx.MatchReason = t.MatchReason
	tx.CandidateProformaID = t.CandidateProformaID
	return nil
}

func (m *memTxRepo) UpdateManualFields(_ context.Context, t *domain.Transaction) error {
	tx := m.rows[t.ID]
	tx.ManualStatus = t.ManualStatus
	tx.ManualProformaID = t.ManualProformaID
	tx.Origin = t.Origin
	return nil
}

func (m *memTxRepo) UpdateDirection(_ context.Context, id int, direction domain.Direction) error {
	m.rows[id].Direction = direction
	return nil
}

func (m *memTxRepo) SoftDelete(_ context.Context, id int) error {
	now := time.Now()
	m.rows[id].DeletedAt = &now
	return nil
}

func (m *memTxRepo) ListApprovedByProforma(_ context.Context, proformaID int) ([]domain.Transaction, error) {
	var out []domain.Transaction
	for _, tx := range m.rows {
		if tx.DeletedAt != nil {
			continue
		}
		if tx.ManualStatus != nil && *tx.ManualStatus == domain.Matched &&
			tx.ManualProformaID != nil && *tx.ManualProformaID == proformaID {
			out = append(out, *tx)
		}
	}
	return out, nil
}

func (m *memTxRepo) byHash(hash string) *domain.Transaction {
	for _, tx := range m.rows {
		if tx.ContentHash == hash {
			return tx
		}
	}
	return nil
}

type memProformaRepo struct {
	rows map[int]*domain.Proforma
}

func newMemProformaRepo(proformas ...*domain.Proforma) *memProformaRepo {
	m := &memProformaRepo{rows: make(map[int]*domain.Proforma)}
	for _, p := range proformas {
		m.rows[p.ID] = p
	}
	return m
}

func (m *memProformaRepo) GetByID(_ context.Context, id int) (*domain.Proforma, error) {
	p, ok := m.rows[id]
	if !ok {
		return nil, domain.ErrProformaNotFound
	}
	copied := *p
	return &copied, nil
}

func (m *memProformaRepo) GetByNumbers(_ context.Context, numbers []string) ([]domain.Proforma, error) {
	wanted := make(map[string]bool, len(numbers))
	for _, n := range numbers {
		wanted[n] = true
	}
	var out []domain.Proforma
	for _, p := range m.rows {
		if wanted[p.NormalizedNumber] {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memProformaRepo) GetByBuyerNames(_ context.Context, names []string) ([]domain.Proforma, error) {
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}
	var out []domain.Proforma
	for _, p := range m.rows {
		if wanted[p.BuyerNormalizedName] {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memProformaRepo) ListOpen(_ context.Context, since time.Time, limit int) ([]domain.Proforma, error) {
	var out []domain.Proforma
	for _, p := range m.rows {
		if p.IssuedAt.After(since) && !p.FullyPaid() && len(out) < limit {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memProformaRepo) UpdatePaymentTotals(_ context.Context, id int, total, totalBase decimal.Decimal) error {
	p := m.rows[id]
	p.PaymentsTotal = total
	p.PaymentsTotalBaseCurrency = totalBase
	return nil
}
