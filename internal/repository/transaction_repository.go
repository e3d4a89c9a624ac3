package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/sigayyury-ai/crmtowfirma-sub008/internal/domain"
	"github.com/sigayyury-ai/crmtowfirma-sub008/pkg/logger"
)

type TransactionRepository interface {
	// GetByHashes returns rows for the given content hashes, soft-deleted
	// ones included; ingestion needs to see them to avoid resurrection.
	GetByHashes(ctx context.Context, hashes []string) ([]domain.Transaction, error)
	// FindDuplicate looks up an undeleted record with the same
	// (date, amount, direction) triple, the hash-drift identity.
	FindDuplicate(ctx context.Context, date time.Time, amount decimal.Decimal, direction domain.Direction) (*domain.Transaction, error)
	BulkInsert(ctx context.Context, transactions []domain.Transaction) error
	GetByID(ctx context.Context, id int) (*domain.Transaction, error)
	ListByStatus(ctx context.Context, status domain.MatchStatus, limit int) ([]domain.Transaction, error)
	UpdateMatchFields(ctx context.Context, tx *domain.Transaction) error
	UpdateManualFields(ctx context.Context, tx *domain.Transaction) error
	UpdateDirection(ctx context.Context, id int, direction domain.Direction) error
	SoftDelete(ctx context.Context, id int) error
	// ListApprovedByProforma returns every undeleted transaction manually
	// linked to the proforma; the aggregate input set.
	ListApprovedByProforma(ctx context.Context, proformaID int) ([]domain.Transaction, error)
}

type transactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

const transactionColumns = `
	id, content_hash, operation_date, description, account, category,
	amount, currency, direction, payer_name, payer_normalized_name,
	invoice_number_hint, match_status, match_confidence, match_reason,
	candidate_proforma_id, manual_status, manual_proforma_id, origin,
	deleted_at, created_at, updated_at
`

func (r *transactionRepository) GetByHashes(ctx context.Context, hashes []string) ([]domain.Transaction, error) {
	if len(hashes) == 0 {
		return nil, nil
	}

	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE content_hash = ANY($1)
	`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(hashes))
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to query transactions by hash")
		return nil, err
	}
	defer rows.Close()

	return scanTransactions(rows)
}

func (r *transactionRepository) FindDuplicate(ctx context.Context, date time.Time, amount decimal.Decimal, direction domain.Direction) (*domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE operation_date = $1 AND amount = $2 AND direction = $3
		  AND deleted_at IS NULL
		LIMIT 1
	`

	row := r.db.QueryRowContext(ctx, query, date, amount, direction)
	tx, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to query duplicate transaction")
		return nil, err
	}
	return tx, nil
}

func (r *transactionRepository) BulkInsert(ctx context.Context, transactions []domain.Transaction) error {
	if len(transactions) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to begin transaction")
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transactions (
			content_hash, operation_date, description, account, category,
			amount, currency, direction, payer_name, payer_normalized_name,
			invoice_number_hint, match_status, match_confidence, match_reason,
			candidate_proforma_id, origin
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (content_hash) DO NOTHING
	`)
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to prepare statement")
		return err
	}
	defer stmt.Close()

	for _, t := range transactions {
		_, err = stmt.ExecContext(ctx,
			t.ContentHash,
			t.OperationDate,
			t.Description,
			t.Account,
			t.Category,
			t.Amount,
			t.Currency,
			t.Direction,
			t.PayerName,
			t.PayerNormalizedName,
			t.InvoiceNumberHint,
			t.MatchStatus,
			t.MatchConfidence,
			t.MatchReason,
			t.CandidateProformaID,
			t.Origin,
		)
		if err != nil {
			logger.GetLogger().WithError(err).WithField("content_hash", t.ContentHash).Error("Failed to insert transaction")
			continue
		}
	}

	return tx.Commit()
}

func (r *transactionRepository) GetByID(ctx context.Context, id int) (*domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE id = $1 AND deleted_at IS NULL
	`

	tx, err := scanTransaction(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, domain.ErrTransactionNotFound
	}
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to get transaction")
		return nil, err
	}
	return tx, nil
}

func (r *transactionRepository) ListByStatus(ctx context.Context, status domain.MatchStatus, limit int) ([]domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE deleted_at IS NULL
		  AND COALESCE(manual_status, match_status) = $1
		ORDER BY operation_date DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, status, limit)
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to list transactions")
		return nil, err
	}
	defer rows.Close()

	return scanTransactions(rows)
}

func (r *transactionRepository) UpdateMatchFields(ctx context.Context, t *domain.Transaction) error {
	query := `
		UPDATE transactions
		SET match_status = $1, match_confidence = $2, match_reason = $3,
			candidate_proforma_id = $4, updated_at = NOW()
		WHERE id = $5
	`

	_, err := r.db.ExecContext(ctx, query,
		t.MatchStatus, t.MatchConfidence, t.MatchReason, t.CandidateProformaID, t.ID)
	if err != nil {
		logger.GetLogger().WithError(err).WithField("id", t.ID).Error("Failed to update match fields")
	}
	return err
}

func (r *transactionRepository) UpdateManualFields(ctx context.Context, t *domain.Transaction) error {
	query := `
		UPDATE transactions
		SET manual_status = $1, manual_proforma_id = $2, origin = $3,
			updated_at = NOW()
		WHERE id = $4
	`

	_, err := r.db.ExecContext(ctx, query, t.ManualStatus, t.ManualProformaID, t.Origin, t.ID)
	if err != nil {
		logger.GetLogger().WithError(err).WithField("id", t.ID).Error("Failed to update manual fields")
	}
	return err
}

func (r *transactionRepository) UpdateDirection(ctx context.Context, id int, direction domain.Direction) error {
	query := `
		UPDATE transactions
		SET direction = $1, updated_at = NOW()
		WHERE id = $2
	`

	_, err := r.db.ExecContext(ctx, query, direction, id)
	if err != nil {
		logger.GetLogger().WithError(err).WithField("id", id).Error("Failed to update direction")
	}
	return err
}

func (r *transactionRepository) SoftDelete(ctx context.Context, id int) error {
	query := `
		UPDATE transactions
		SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`

	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		logger.GetLogger().WithError(err).WithField("id", id).Error("Failed to soft delete transaction")
	}
	return err
}

func (r *transactionRepository) ListApprovedByProforma(ctx context.Context, proformaID int) ([]domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE manual_proforma_id = $1 AND manual_status = $2
		  AND deleted_at IS NULL
	`

	rows, err := r.db.QueryContext(ctx, query, proformaID, domain.Matched)
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to list approved transactions")
		return nil, err
	}
	defer rows.Close()

	return scanTransactions(rows)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var t domain.Transaction
	var category, reason, hint sql.NullString
	var manualStatus sql.NullString
	var candidateID, manualProformaID sql.NullInt64
	var deletedAt sql.NullTime

	err := row.Scan(
		&t.ID,
		&t.ContentHash,
		&t.OperationDate,
		&t.Description,
		&t.Account,
		&category,
		&t.Amount,
		&t.Currency,
		&t.Direction,
		&t.PayerName,
		&t.PayerNormalizedName,
		&hint,
		&t.MatchStatus,
		&t.MatchConfidence,
		&reason,
		&candidateID,
		&manualStatus,
		&manualProformaID,
		&t.Origin,
		&deletedAt,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Category = category.String
	t.MatchReason = reason.String
	t.InvoiceNumberHint = hint.String
	if candidateID.Valid {
		id := int(candidateID.Int64)
		t.CandidateProformaID = &id
	}
	if manualStatus.Valid {
		status := domain.MatchStatus(manualStatus.String)
		t.ManualStatus = &status
	}
	if manualProformaID.Valid {
		id := int(manualProformaID.Int64)
		t.ManualProformaID = &id
	}
	if deletedAt.Valid {
		t.DeletedAt = &deletedAt.Time
	}

	return &t, nil
}

func scanTransactions(rows *sql.Rows) ([]domain.Transaction, error) {
	var transactions []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			logger.GetLogger().WithError(err).Error("Failed to scan transaction")
			continue
		}
		transactions = append(transactions, *t)
	}
	return transactions, rows.Err()
}
