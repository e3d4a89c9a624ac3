package matcher

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/sigayyury-ai/crmtowfirma-sub008/internal/domain"
	"github.com/sigayyury-ai/crmtowfirma-sub008/internal/normalize"
)

// Score table for the matching strategies. Kept as named constants so
// strategy changes stay auditable instead of hiding in inline literals.
const (
	ScoreNumberExact         = 100 // number hint resolves, amount within tolerance of remaining
	ScoreNumberAmountDiffers = 80  // number hint resolves, amount off
	ScoreNameExactAmount     = 80  // buyer name resolves, amount matches remaining
	ScoreNameInstallment     = 70  // buyer name resolves, amount matches half of total
	ScoreNameOnly            = 50  // buyer name resolves, amount does not line up
	ScoreAmountRemaining     = 60  // amount alone matches remaining, same currency
	ScoreAmountHalf          = 55  // amount alone matches half of total, same currency
	ScoreNumberNoProforma    = 30  // number hint present but proforma absent from context
)

// AmountTolerance is the absolute noise allowance for amount comparisons,
// covering rounding and transfer fees, not partial payment.
var AmountTolerance = decimal.NewFromInt(1)

// Match produces a ranked candidate list for one transaction. Pure function:
// the context is read-only and no state is carried between calls. The engine
// never confirms a match; that stays an operator decision even at score 100.
func Match(tx domain.Transaction, mc *MatchingContext) []domain.MatchCandidate {
	best := make(map[int]domain.MatchCandidate)

	matchByNumber(tx, mc, best)
	matchByBuyerName(tx, mc, best)
	matchByAmount(tx, mc, best)

	candidates := make([]domain.MatchCandidate, 0, len(best))
	for _, c := range best {
		candidates = append(candidates, c)
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].ProformaID < candidates[j].ProformaID
	})
	return candidates
}

// StatusFor derives the transaction status from its candidate list. A
// non-empty list means review, never an automatic confirmation.
func StatusFor(candidates []domain.MatchCandidate) domain.MatchStatus {
	if len(candidates) > 0 {
		return domain.NeedsReview
	}
	return domain.Unmatched
}

func matchByNumber(tx domain.Transaction, mc *MatchingContext, best map[int]domain.MatchCandidate) {
	hint := tx.InvoiceNumberHint
	if hint == "" {
		// Records ingested before hint extraction existed carry the number
		// only in the description.
		hint = normalize.ExtractInvoiceNumber(tx.Description)
	}
	if hint == "" {
		return
	}

	p, ok := mc.ByNumber[hint]
	if !ok {
		// A probably deleted or not-yet-synced proforma; surfaced with a low
		// score so the operator knows reconciliation data is incomplete.
		offer(best, domain.MatchCandidate{
			FullNumber: hint,
			Score:      ScoreNumberNoProforma,
			Reason:     "by number, proforma not found",
		})
		return
	}

	if withinTolerance(tx.Amount, p.Remaining()) {
		offer(best, candidate(p, ScoreNumberExact, "by number"))
		return
	}
	offer(best, candidate(p, ScoreNumberAmountDiffers, "by number, amount differs"))
}

func matchByBuyerName(tx domain.Transaction, mc *MatchingContext, best map[int]domain.MatchCandidate) {
	if tx.PayerNormalizedName == "" {
		return
	}

	for _, p := range mc.ByBuyer[tx.PayerNormalizedName] {
		// Both amount conditions can hold at once (remaining == total/2);
		// the candidate keeps the highest score that applies.
		switch {
		case withinTolerance(tx.Amount, p.Remaining()):
			offer(best, candidate(p, ScoreNameExactAmount, "by name, amount matches remaining"))
		case withinTolerance(tx.Amount, half(p.Total)):
			offer(best, candidate(p, ScoreNameInstallment, "by name, amount matches installment"))
		default:
			offer(best, candidate(p, ScoreNameOnly, "by name"))
		}
	}
}

func matchByAmount(tx domain.Transaction, mc *MatchingContext, best map[int]domain.MatchCandidate) {
	for _, p := range mc.Open {
		// Currency must match exactly here; unlike number or buyer identity,
		// an amount alone says nothing across currencies.
		if p.Currency != tx.Currency {
			continue
		}
		if _, taken := best[p.ID]; taken {
			continue
		}

		switch {
		case withinTolerance(tx.Amount, p.Remaining()):
			offer(best, candidate(p, ScoreAmountRemaining, "by amount"))
		case withinTolerance(tx.Amount, half(p.Total)):
			offer(best, candidate(p, ScoreAmountHalf, "by amount, installment"))
		}
	}
}

func candidate(p *domain.Proforma, score int, reason string) domain.MatchCandidate {
	return domain.MatchCandidate{
		ProformaID: p.ID,
		FullNumber: p.FullNumber,
		Score:      score,
		Reason:     reason,
	}
}

// offer keeps only the best-scoring candidate per proforma. The hint-without-
// proforma candidate has no id and keys at zero, which collides with nothing.
func offer(best map[int]domain.MatchCandidate, c domain.MatchCandidate) {
	if existing, ok := best[c.ProformaID]; ok && existing.Score >= c.Score {
		return
	}
	best[c.ProformaID] = c
}

func withinTolerance(amount, target decimal.Decimal) bool {
	return amount.Sub(target).Abs().LessThanOrEqual(AmountTolerance)
}

func half(total decimal.Decimal) decimal.Decimal {
	return total.Div(decimal.NewFromInt(2))
}
