package matcher

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/sigayyury-ai/crmtowfirma-sub008/internal/domain"
)

func proforma(id int, number, currency string, total, paid float64) *domain.Proforma {
	return &domain.Proforma{
		ID:                  id,
		FullNumber:          number,
		NormalizedNumber:    number,
		Currency:            currency,
		Total:               decimal.NewFromFloat(total),
		PaymentsTotal:       decimal.NewFromFloat(paid),
		BuyerNormalizedName: "jan kowalski",
		ExchangeRate:        decimal.NewFromInt(1),
	}
}

func emptyContext() *MatchingContext {
	return &MatchingContext{
		ByNumber: make(map[string]*domain.Proforma),
		ByBuyer:  make(map[string][]*domain.Proforma),
	}
}

func inbound(amount float64, currency string) domain.Transaction {
	return domain.Transaction{
		Amount:    decimal.NewFromFloat(amount),
		Currency:  currency,
		Direction: domain.In,
	}
}

func TestMatch_ByNumberExactAmount(t *testing.T) {
	// CO-PROF 143/2025: total 2000, remaining 1000; incoming 1000 tagged
	// with the number.
	p := proforma(1, "CO-PROF 143/2025", "PLN", 2000, 1000)
	mc := emptyContext()
	mc.ByNumber["CO-PROF 143/2025"] = p

	tx := inbound(1000, "PLN")
	tx.InvoiceNumberHint = "CO-PROF 143/2025"

	candidates := Match(tx, mc)

	assert.Equal(t, 1, len(candidates))
	assert.Equal(t, ScoreNumberExact, candidates[0].Score)
	assert.Equal(t, "by number", candidates[0].Reason)
	assert.Equal(t, 1, candidates[0].ProformaID)
}

func TestMatch_ByNumberAmountDiffers(t *testing.T) {
	p := proforma(1, "CO-PROF 143/2025", "PLN", 2000, 0)
	mc := emptyContext()
	mc.ByNumber["CO-PROF 143/2025"] = p

	tx := inbound(50, "PLN")
	tx.InvoiceNumberHint = "CO-PROF 143/2025"

	candidates := Match(tx, mc)

	assert.Equal(t, ScoreNumberAmountDiffers, candidates[0].Score)
	assert.Equal(t, "by number, amount differs", candidates[0].Reason)
}

func TestMatch_NumberHintWithoutProforma(t *testing.T) {
	tx := inbound(100, "PLN")
	tx.InvoiceNumberHint = "CO-PROF 9/2025"

	candidates := Match(tx, emptyContext())

	assert.Equal(t, 1, len(candidates))
	assert.Equal(t, ScoreNumberNoProforma, candidates[0].Score)
	assert.Equal(t, 0, candidates[0].ProformaID)
	assert.Equal(t, "CO-PROF 9/2025", candidates[0].FullNumber)
}

func TestMatch_HintReExtractedFromDescription(t *testing.T) {
	// Records ingested before hint extraction carry the number only in the
	// description text.
	p := proforma(1, "CO-PROF 143/2025", "PLN", 2000, 1000)
	mc := emptyContext()
	mc.ByNumber["CO-PROF 143/2025"] = p

	tx := inbound(1000, "PLN")
	tx.Description = "wpłata CO-PROF 143/2025"

	candidates := Match(tx, mc)

	assert.Equal(t, ScoreNumberExact, candidates[0].Score)
}

func TestMatch_ByName_HigherScoreWinsOnOverlap(t *testing.T) {
	// total 2000, remaining 1000, total/2 = 1000: both name conditions hold
	// at once and the candidate must carry the higher score.
	p := proforma(1, "CO-PROF 143/2025", "PLN", 2000, 1000)
	mc := emptyContext()
	mc.ByBuyer["jan kowalski"] = []*domain.Proforma{p}

	tx := inbound(1000, "PLN")
	tx.PayerNormalizedName = "jan kowalski"

	candidates := Match(tx, mc)

	assert.Equal(t, 1, len(candidates))
	assert.Equal(t, ScoreNameExactAmount, candidates[0].Score)
}

func TestMatch_ByName_Installment(t *testing.T) {
	// total 2000, nothing paid: 1000 hits the two-installment heuristic but
	// not the remaining balance.
	p := proforma(1, "CO-PROF 143/2025", "PLN", 2000, 0)
	mc := emptyContext()
	mc.ByBuyer["jan kowalski"] = []*domain.Proforma{p}

	tx := inbound(1000, "PLN")
	tx.PayerNormalizedName = "jan kowalski"

	candidates := Match(tx, mc)

	assert.Equal(t, ScoreNameInstallment, candidates[0].Score)
}

func TestMatch_ByName_AmountOff(t *testing.T) {
	p := proforma(1, "CO-PROF 143/2025", "PLN", 2000, 0)
	mc := emptyContext()
	mc.ByBuyer["jan kowalski"] = []*domain.Proforma{p}

	tx := inbound(333, "PLN")
	tx.PayerNormalizedName = "jan kowalski"

	candidates := Match(tx, mc)

	assert.Equal(t, ScoreNameOnly, candidates[0].Score)
}

func TestMatch_ByAmount_CurrencyIsolation(t *testing.T) {
	samePLN := proforma(1, "CO-PROF 1/2025", "PLN", 500, 0)
	otherEUR := proforma(2, "CO-PROF 2/2025", "EUR", 500, 0)
	mc := emptyContext()
	mc.Open = []*domain.Proforma{samePLN, otherEUR}

	candidates := Match(inbound(500, "PLN"), mc)

	assert.Equal(t, 1, len(candidates), "amount-only matching never crosses currencies")
	assert.Equal(t, 1, candidates[0].ProformaID)
	assert.Equal(t, ScoreAmountRemaining, candidates[0].Score)
}

func TestMatch_ByAmount_HalfOfTotal(t *testing.T) {
	p := proforma(1, "CO-PROF 1/2025", "PLN", 1000, 0)
	mc := emptyContext()
	mc.Open = []*domain.Proforma{p}

	candidates := Match(inbound(500, "PLN"), mc)

	assert.Equal(t, ScoreAmountHalf, candidates[0].Score)
	assert.Equal(t, "by amount, installment", candidates[0].Reason)
}

func TestMatch_StrongerStrategyKeepsProforma(t *testing.T) {
	// The same proforma is reachable by name and by open-list amount; only
	// the best-scoring candidate survives.
	p := proforma(1, "CO-PROF 143/2025", "PLN", 2000, 1000)
	mc := emptyContext()
	mc.ByBuyer["jan kowalski"] = []*domain.Proforma{p}
	mc.Open = []*domain.Proforma{p}

	tx := inbound(1000, "PLN")
	tx.PayerNormalizedName = "jan kowalski"

	candidates := Match(tx, mc)

	assert.Equal(t, 1, len(candidates))
	assert.Equal(t, ScoreNameExactAmount, candidates[0].Score)
}

func TestMatch_ToleranceIsAbsolute(t *testing.T) {
	p := proforma(1, "CO-PROF 143/2025", "PLN", 2000, 1000)
	mc := emptyContext()
	mc.ByNumber["CO-PROF 143/2025"] = p

	within := inbound(999.50, "PLN")
	within.InvoiceNumberHint = "CO-PROF 143/2025"
	assert.Equal(t, ScoreNumberExact, Match(within, mc)[0].Score)

	outside := inbound(990, "PLN")
	outside.InvoiceNumberHint = "CO-PROF 143/2025"
	assert.Equal(t, ScoreNumberAmountDiffers, Match(outside, mc)[0].Score)
}

func TestMatch_RankedDescending(t *testing.T) {
	byNumber := proforma(1, "CO-PROF 1/2025", "PLN", 2000, 1000)
	byAmount := proforma(2, "CO-PROF 2/2025", "PLN", 1000, 0)
	mc := emptyContext()
	mc.ByNumber["CO-PROF 1/2025"] = byNumber
	mc.Open = []*domain.Proforma{byAmount}

	tx := inbound(1000, "PLN")
	tx.InvoiceNumberHint = "CO-PROF 1/2025"

	candidates := Match(tx, mc)

	assert.Equal(t, 2, len(candidates))
	assert.Equal(t, ScoreNumberExact, candidates[0].Score)
	assert.Equal(t, ScoreAmountRemaining, candidates[1].Score)
}

func TestStatusFor_NeverAutoConfirms(t *testing.T) {
	assert.Equal(t, domain.Unmatched, StatusFor(nil))

	perfect := []domain.MatchCandidate{{ProformaID: 1, Score: ScoreNumberExact}}
	assert.Equal(t, domain.NeedsReview, StatusFor(perfect),
		"even a score-100 candidate needs an operator to confirm")
}
