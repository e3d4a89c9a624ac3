package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction tells whether money came in or went out
type Direction string

const (
	In  Direction = "in"
	Out Direction = "out"
)

// MatchStatus represents the reconciliation state of a transaction
type MatchStatus string

const (
	Unmatched   MatchStatus = "unmatched"
	NeedsReview MatchStatus = "needs_review"
	Matched     MatchStatus = "matched"
)

// MatchOrigin distinguishes an automatic suggestion from an operator decision
type MatchOrigin string

const (
	OriginAuto   MatchOrigin = "auto"
	OriginManual MatchOrigin = "manual"
)

// Transaction represents one normalized bank/card statement line
type Transaction struct {
	ID            int             `json:"id" db:"id"`
	ContentHash   string          `json:"content_hash" db:"content_hash"`
	OperationDate time.Time       `json:"operation_date" db:"operation_date"`
	Description   string          `json:"description" db:"description"`
	Account       string          `json:"account" db:"account"`
	Category      string          `json:"category" db:"category"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
	Currency      string          `json:"currency" db:"currency"`
	Direction     Direction       `json:"direction" db:"direction"`

	PayerName           string `json:"payer_name" db:"payer_name"`
	PayerNormalizedName string `json:"payer_normalized_name" db:"payer_normalized_name"`
	InvoiceNumberHint   string `json:"invoice_number_hint,omitempty" db:"invoice_number_hint"`

	// Automatic match fields, written by the matching engine.
	MatchStatus         MatchStatus `json:"match_status" db:"match_status"`
	MatchConfidence     int         `json:"match_confidence" db:"match_confidence"`
	MatchReason         string      `json:"match_reason,omitempty" db:"match_reason"`
	CandidateProformaID *int        `json:"candidate_proforma_id,omitempty" db:"candidate_proforma_id"`

	// Manual override fields, written only by operator actions. Once set they
	// take precedence over the automatic fields.
	ManualStatus     *MatchStatus `json:"manual_status,omitempty" db:"manual_status"`
	ManualProformaID *int         `json:"manual_proforma_id,omitempty" db:"manual_proforma_id"`
	Origin           MatchOrigin  `json:"origin" db:"origin"`

	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

// EffectiveStatus returns the status an operator sees: the manual decision if
// one exists, otherwise the engine's suggestion.
func (t *Transaction) EffectiveStatus() MatchStatus {
	if t.ManualStatus != nil {
		return *t.ManualStatus
	}
	if t.MatchStatus == "" {
		return Unmatched
	}
	return t.MatchStatus
}

// LinkedProformaID returns the proforma this transaction counts toward.
// Only a manually approved link ever contributes to aggregates.
func (t *Transaction) LinkedProformaID() *int {
	if t.ManualStatus != nil && *t.ManualStatus == Matched {
		return t.ManualProformaID
	}
	return nil
}

// MatchCandidate is a proposed (transaction, proforma) pairing. It is never an
// authoritative link until approved by an operator.
type MatchCandidate struct {
	ProformaID int    `json:"proforma_id"`
	FullNumber string `json:"fullnumber"`
	Score      int    `json:"score"`
	Reason     string `json:"reason"`
}

// ImportSummary reports the outcome of one statement ingestion
type ImportSummary struct {
	ImportID    string `json:"import_id"`
	Processed   int    `json:"processed"`
	Matched     int    `json:"matched"`
	NeedsReview int    `json:"needs_review"`
	Unmatched   int    `json:"unmatched"`
	Skipped     int    `json:"skipped"`
}
