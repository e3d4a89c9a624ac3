package matcher

import (
	"context"
	"time"

	"github.com/sigayyury-ai/crmtowfirma-sub008/internal/domain"
	"github.com/sigayyury-ai/crmtowfirma-sub008/internal/normalize"
	"github.com/sigayyury-ai/crmtowfirma-sub008/pkg/logger"
)

// ProformaLookup is the read-only invoice collaborator the context builder
// depends on.
type ProformaLookup interface {
	GetByNumbers(ctx context.Context, numbers []string) ([]domain.Proforma, error)
	GetByBuyerNames(ctx context.Context, names []string) ([]domain.Proforma, error)
	ListOpen(ctx context.Context, since time.Time, limit int) ([]domain.Proforma, error)
}

// Open-proforma window for amount-based matching.
const (
	openWindow    = 6 * 30 * 24 * time.Hour
	openListLimit = 1000
)

// MatchingContext holds the candidate proformas for one batch of
// transactions. It is read-only shared state; matching itself is pure.
type MatchingContext struct {
	ByNumber map[string]*domain.Proforma
	ByBuyer  map[string][]*domain.Proforma
	Open     []*domain.Proforma
}

// BuildContext loads candidate proformas for the whole batch with at most
// three repository round-trips. Fully paid proformas are excluded everywhere;
// they cannot be match targets.
func BuildContext(ctx context.Context, lookup ProformaLookup, transactions []domain.Transaction) (*MatchingContext, error) {
	numberSet := make(map[string]bool)
	buyerSet := make(map[string]bool)
	for _, tx := range transactions {
		hint := tx.InvoiceNumberHint
		if hint == "" {
			hint = normalize.ExtractInvoiceNumber(tx.Description)
		}
		if hint != "" {
			numberSet[hint] = true
		}
		if tx.PayerNormalizedName != "" {
			buyerSet[tx.PayerNormalizedName] = true
		}
	}

	mc := &MatchingContext{
		ByNumber: make(map[string]*domain.Proforma),
		ByBuyer:  make(map[string][]*domain.Proforma),
	}

	if len(numberSet) > 0 {
		byNumber, err := lookup.GetByNumbers(ctx, keys(numberSet))
		if err != nil {
			return nil, err
		}
		for i := range byNumber {
			p := &byNumber[i]
			if p.FullyPaid() {
				continue
			}
			mc.ByNumber[normalize.InvoiceNumber(p.FullNumber)] = p
		}
	}

	if len(buyerSet) > 0 {
		byBuyer, err := lookup.GetByBuyerNames(ctx, keys(buyerSet))
		if err != nil {
			return nil, err
		}
		for i := range byBuyer {
			p := &byBuyer[i]
			if p.FullyPaid() {
				continue
			}
			mc.ByBuyer[p.BuyerNormalizedName] = append(mc.ByBuyer[p.BuyerNormalizedName], p)
		}
	}

	open, err := lookup.ListOpen(ctx, time.Now().Add(-openWindow), openListLimit)
	if err != nil {
		return nil, err
	}
	for i := range open {
		p := &open[i]
		if p.FullyPaid() {
			continue
		}
		mc.Open = append(mc.Open, p)
	}

	logger.GetLogger().WithFields(map[string]interface{}{
		"by_number": len(mc.ByNumber),
		"by_buyer":  len(mc.ByBuyer),
		"open":      len(mc.Open),
	}).Debug("Matching context built")

	return mc, nil
}

func keys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}
