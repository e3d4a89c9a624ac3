package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Proforma represents a billing document progressively paid down by matched
// transactions. The payments_total fields are always derived from the current
// set of approved links, never hand-edited.
type Proforma struct {
	ID                        int             `json:"id" db:"id"`
	FullNumber                string          `json:"fullnumber" db:"fullnumber"`
	NormalizedNumber          string          `json:"normalized_number" db:"normalized_number"`
	Currency                  string          `json:"currency" db:"currency"`
	Total                     decimal.Decimal `json:"total" db:"total"`
	PaymentsTotal             decimal.Decimal `json:"payments_total" db:"payments_total"`
	PaymentsTotalBaseCurrency decimal.Decimal `json:"payments_total_base_currency" db:"payments_total_base_currency"`
	BuyerName                 string          `json:"buyer_name" db:"buyer_name"`
	BuyerNormalizedName       string          `json:"buyer_normalized_name" db:"buyer_normalized_name"`
	ExchangeRate              decimal.Decimal `json:"exchange_rate" db:"exchange_rate"`
	IssuedAt                  time.Time       `json:"issued_at" db:"issued_at"`
	CreatedAt                 time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt                 time.Time       `json:"updated_at" db:"updated_at"`
}

// FullyPaidEpsilon is the remaining balance below which a proforma stops being
// a match target.
var FullyPaidEpsilon = decimal.NewFromFloat(0.01)

// Remaining returns the unpaid balance. Over-payment yields a negative value
// on purpose; it must surface rather than be clamped.
func (p *Proforma) Remaining() decimal.Decimal {
	return p.Total.Sub(p.PaymentsTotal)
}

// FullyPaid reports whether the proforma has no meaningful balance left.
func (p *Proforma) FullyPaid() bool {
	return p.Remaining().LessThanOrEqual(FullyPaidEpsilon)
}
