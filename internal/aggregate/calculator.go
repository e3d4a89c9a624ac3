package aggregate

import (
	"github.com/shopspring/decimal"

	"github.com/sigayyury-ai/crmtowfirma-sub008/internal/domain"
)

// BaseCurrency is the bookkeeping currency all proforma totals are also
// reported in.
const BaseCurrency = "PLN"

// Totals is the recomputed paid-total pair for one proforma
type Totals struct {
	PaymentsTotal             decimal.Decimal
	PaymentsTotalBaseCurrency decimal.Decimal
}

// Compute recomputes a proforma's paid totals from the full set of
// transactions currently linked to it with approved status. Always a full
// replace, never an incremental delta, so repeated or out-of-order triggers
// converge to the same value.
func Compute(p *domain.Proforma, linked []domain.Transaction) Totals {
	buckets := make(map[string]decimal.Decimal)
	for _, tx := range linked {
		buckets[tx.Currency] = buckets[tx.Currency].Add(tx.Amount)
	}

	invoiceBucket := buckets[p.Currency]
	baseBucket := buckets[BaseCurrency]

	if !invoiceBucket.IsZero() {
		if p.Currency == BaseCurrency {
			return Totals{PaymentsTotal: invoiceBucket, PaymentsTotalBaseCurrency: invoiceBucket}
		}
		return Totals{
			PaymentsTotal:             invoiceBucket,
			PaymentsTotalBaseCurrency: invoiceBucket.Mul(rateOrOne(p.ExchangeRate)),
		}
	}

	// Payments arrived in the base currency only; take the base total
	// directly and back-fill the invoice-currency figure by reverse
	// conversion.
	if !baseBucket.IsZero() && p.Currency != BaseCurrency {
		return Totals{
			PaymentsTotal:             baseBucket.DivRound(rateOrOne(p.ExchangeRate), 2),
			PaymentsTotalBaseCurrency: baseBucket,
		}
	}

	return Totals{PaymentsTotal: decimal.Zero, PaymentsTotalBaseCurrency: decimal.Zero}
}

func rateOrOne(rate decimal.Decimal) decimal.Decimal {
	if rate.IsPositive() {
		return rate
	}
	return decimal.NewFromInt(1)
}
