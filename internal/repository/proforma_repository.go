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

type ProformaRepository interface {
	GetByID(ctx context.Context, id int) (*domain.Proforma, error)
	GetByNumbers(ctx context.Context, numbers []string) ([]domain.Proforma, error)
	GetByBuyerNames(ctx context.Context, names []string) ([]domain.Proforma, error)
	ListOpen(ctx context.Context, since time.Time, limit int) ([]domain.Proforma, error)
	UpdatePaymentTotals(ctx context.Context, id int, total, totalBase decimal.Decimal) error
}

type proformaRepository struct {
	db *sql.DB
}

func NewProformaRepository(db *sql.DB) ProformaRepository {
	return &proformaRepository{db: db}
}

const proformaColumns = `
	id, fullnumber, normalized_number, currency, total, payments_total,
	payments_total_base_currency, buyer_name, buyer_normalized_name,
	exchange_rate, issued_at, created_at, updated_at
`

func (r *proformaRepository) GetByID(ctx context.Context, id int) (*domain.Proforma, error) {
	query := `
		SELECT ` + proformaColumns + `
		FROM proformas
		WHERE id = $1
	`

	p, err := scanProforma(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, domain.ErrProformaNotFound
	}
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to get proforma")
		return nil, err
	}
	return p, nil
}

func (r *proformaRepository) GetByNumbers(ctx context.Context, numbers []string) ([]domain.Proforma, error) {
	if len(numbers) == 0 {
		return nil, nil
	}

	query := `
		SELECT ` + proformaColumns + `
		FROM proformas
		WHERE normalized_number = ANY($1)
	`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(numbers))
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to query proformas by number")
		return nil, err
	}
	defer rows.Close()

	return scanProformas(rows)
}

func (r *proformaRepository) GetByBuyerNames(ctx context.Context, names []string) ([]domain.Proforma, error) {
	if len(names) == 0 {
		return nil, nil
	}

	query := `
		SELECT ` + proformaColumns + `
		FROM proformas
		WHERE buyer_normalized_name = ANY($1)
	`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(names))
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to query proformas by buyer")
		return nil, err
	}
	defer rows.Close()

	return scanProformas(rows)
}

func (r *proformaRepository) ListOpen(ctx context.Context, since time.Time, limit int) ([]domain.Proforma, error) {
	query := `
		SELECT ` + proformaColumns + `
		FROM proformas
		WHERE issued_at >= $1
		  AND total - payments_total > $2
		ORDER BY issued_at DESC
		LIMIT $3
	`

	rows, err := r.db.QueryContext(ctx, query, since, domain.FullyPaidEpsilon, limit)
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to list open proformas")
		return nil, err
	}
	defer rows.Close()

	return scanProformas(rows)
}

func (r *proformaRepository) UpdatePaymentTotals(ctx context.Context, id int, total, totalBase decimal.Decimal) error {
	query := `
		UPDATE proformas
		SET payments_total = $1, payments_total_base_currency = $2,
			updated_at = NOW()
		WHERE id = $3
	`

	_, err := r.db.ExecContext(ctx, query, total, totalBase, id)
	if err != nil {
		logger.GetLogger().WithError(err).WithField("id", id).Error("Failed to update payment totals")
	}
	return err
}

func scanProforma(row rowScanner) (*domain.Proforma, error) {
	var p domain.Proforma
	err := row.Scan(
		&p.ID,
		&p.FullNumber,
		&p.NormalizedNumber,
		&p.Currency,
		&p.Total,
		&p.PaymentsTotal,
		&p.PaymentsTotalBaseCurrency,
		&p.BuyerName,
		&p.BuyerNormalizedName,
		&p.ExchangeRate,
		&p.IssuedAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanProformas(rows *sql.Rows) ([]domain.Proforma, error) {
	var proformas []domain.Proforma
	for rows.Next() {
		p, err := scanProforma(rows)
		if err != nil {
			logger.GetLogger().WithError(err).Error("Failed to scan proforma")
			continue
		}
		proformas = append(proformas, *p)
	}
	return proformas, rows.Err()
}
