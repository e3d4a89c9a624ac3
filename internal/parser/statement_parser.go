package parser

import (
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sigayyury-ai/crmtowfirma-sub008/internal/domain"
	"github.com/sigayyury-ai/crmtowfirma-sub008/internal/normalize"
	"github.com/sigayyury-ai/crmtowfirma-sub008/pkg/logger"
)

// Dialect identifies the recognized statement export formats
type Dialect string

const (
	// DialectBank is the semicolon-delimited bank export with a fixed
	// "Data operacji" header marker and a preamble above it.
	DialectBank Dialect = "bank"
	// DialectCard is the comma-delimited card-processor export with a named
	// header row.
	DialectCard Dialect = "card"
)

const bankHeaderMarker = "data operacji"

var (
	refundKeywords  = []string{"zwrot", "refund", "reversal", "storno", "chargeback"}
	inboundTags     = []string{"przychody", "przychód", "wpływy", "wplywy", "income", "incoming"}
	outboundTags    = []string{"wydatki", "koszty", "expense", "outgoing"}
	expenseKeywords = []string{
		"faktura", "oplata", "opłata", "abonament", "skladka", "składka",
		"czynsz", "rata", "zakup", "leasing", "hosting", "subscription", "fee",
	}

	outboundMarker = "przelew wychodzący"

	addressStopWords = map[string]bool{
		"ul": true, "ulica": true, "al": true, "aleja": true, "os": true,
		"osiedle": true, "pl": true, "plac": true, "str": true, "street": true,
	}

	// Two to four capitalized words; bank exports carry names both as
	// "Jan Kowalski" and "JAN KOWALSKI".
	personalNameRe = regexp.MustCompile(`^\p{Lu}[\p{L}.]+(?:[ -]\p{Lu}[\p{L}.]+){1,3}$`)
	currencyCodeRe = regexp.MustCompile(`(?i)\b([A-Z]{3})\s*$`)
	digitRe        = regexp.MustCompile(`\d`)
	whitespaceRe   = regexp.MustCompile(`\s+`)
)

// ParseStatement converts raw export bytes into transaction records. It never
// fails on a malformed row; such rows are skipped and the rest of the
// statement is processed.
func ParseStatement(data []byte) []domain.Transaction {
	lines := splitLines(string(data))
	dialect, headerIdx, columns := detectDialect(lines)

	logger.GetLogger().WithFields(map[string]interface{}{
		"dialect": dialect,
		"lines":   len(lines),
	}).Debug("Parsing statement")

	var transactions []domain.Transaction
	for i := headerIdx + 1; i < len(lines); i++ {
		line := lines[i]
		if strings.TrimSpace(line) == "" {
			continue
		}

		var tx *domain.Transaction
		switch dialect {
		case DialectBank:
			tx = parseBankRow(line)
		case DialectCard:
			tx = parseCardRow(line, columns)
		}
		if tx == nil {
			logger.GetLogger().WithField("line", i+1).Debug("Skipping malformed row")
			continue
		}
		transactions = append(transactions, *tx)
	}

	return transactions
}

// detectDialect scans for the bank header marker first and falls back to the
// card export's named header row.
func detectDialect(lines []string) (Dialect, int, map[string]int) {
	for i, line := range lines {
		if strings.Contains(strings.ToLower(line), bankHeaderMarker) && strings.Contains(line, ";") {
			return DialectBank, i, nil
		}
	}

	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		cells, err := splitCells(line, ',')
		if err != nil {
			return DialectCard, i, nil
		}
		columns := mapColumns(cells)
		if _, ok := columns["date"]; ok {
			if _, ok := columns["amount"]; ok {
				return DialectCard, i, columns
			}
		}
		return DialectCard, i, nil
	}

	return DialectCard, -1, nil
}

// parseBankRow handles the fixed semicolon layout:
// date;description;account;category;amount
func parseBankRow(line string) *domain.Transaction {
	cells, err := splitCells(line, ';')
	if err != nil || len(cells) < 5 {
		return nil
	}

	date, err := parseDate(strings.TrimSpace(cells[0]))
	if err != nil {
		return nil
	}

	description := strings.TrimSpace(cells[1])
	account := strings.TrimSpace(cells[2])
	category := strings.TrimSpace(cells[3])

	return buildTransaction(line, date, description, account, category, cells[4], "")
}

// parseCardRow handles the named-header comma layout.
func parseCardRow(line string, columns map[string]int) *domain.Transaction {
	cells, err := splitCells(line, ',')
	if err != nil || columns == nil {
		return nil
	}

	cell := func(name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(cells) {
			return ""
		}
		return strings.TrimSpace(cells[idx])
	}

	date, err := parseDate(cell("date"))
	if err != nil {
		return nil
	}

	return buildTransaction(
		line, date, cell("description"), cell("account"), cell("category"),
		cell("amount"), cell("currency"),
	)
}

func buildTransaction(line string, date time.Time, description, account, category, amountCell, currencyCell string) *domain.Transaction {
	amount, currency, negative, ok := parseAmount(amountCell)
	if !ok {
		// Row is retained so an operator can see and fix it, per the
		// contract: unresolvable money text is not a reason to drop data.
		amount = decimal.Zero
		currency = ""
		negative = false
	}
	if currency == "" && currencyCell != "" {
		currency = strings.ToUpper(currencyCell)
	}

	payer := extractPayerName(description)
	direction := resolveDirection(description, category, payer, negative)

	return &domain.Transaction{
		ContentHash:         ContentHash(line),
		OperationDate:       date,
		Description:         description,
		Account:             account,
		Category:            category,
		Amount:              amount,
		Currency:            currency,
		Direction:           direction,
		PayerName:           payer,
		PayerNormalizedName: normalize.Name(payer),
		InvoiceNumberHint:   normalize.ExtractInvoiceNumber(description),
		MatchStatus:         domain.Unmatched,
		Origin:              domain.OriginAuto,
	}
}

// ContentHash fingerprints the verbatim source line with whitespace runs
// collapsed, so an upstream whitespace-only reformat keeps the hash stable
// while any genuine data change produces a new one.
func ContentHash(line string) string {
	canonical := whitespaceRe.ReplaceAllString(strings.TrimSpace(line), " ")
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

// parseAmount understands "425,00 PLN", "-1 234,56", "1,234.56 USD" and plain
// "100.00". Returns the unsigned magnitude plus the sign separately.
func parseAmount(s string) (decimal.Decimal, string, bool, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, "", false, false
	}

	currency := ""
	if m := currencyCodeRe.FindStringSubmatch(s); m != nil {
		currency = strings.ToUpper(m[1])
		s = strings.TrimSpace(s[:len(s)-len(m[0])])
	}

	negative := false
	switch {
	case strings.HasPrefix(s, "-"):
		negative = true
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}

	// Spaces (including non-breaking) are thousands separators.
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, " ", "")

	comma := strings.LastIndex(s, ",")
	dot := strings.LastIndex(s, ".")
	switch {
	case comma >= 0 && dot >= 0:
		// The later separator is the decimal one, the other marks thousands.
		if comma > dot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case comma >= 0:
		s = strings.Replace(s, ",", ".", 1)
	}

	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, "", false, false
	}
	if amount.IsNegative() {
		negative = true
		amount = amount.Abs()
	}
	return amount, currency, negative, true
}

// resolveDirection applies the precedence chain: refund keyword, category tag,
// amount sign. A narrow exception re-reads a negative amount as inbound when
// the payer looks like a personal name and the description carries no expense
// keyword; some banks export the counterpart side of a transfer with the
// wrong sign.
func resolveDirection(description, category, payer string, negative bool) domain.Direction {
	lowDesc := strings.ToLower(description)
	for _, kw := range refundKeywords {
		if strings.Contains(lowDesc, kw) {
			return domain.Out
		}
	}

	lowCat := strings.ToLower(category)
	for _, tag := range inboundTags {
		if strings.Contains(lowCat, tag) {
			return domain.In
		}
	}
	for _, tag := range outboundTags {
		if strings.Contains(lowCat, tag) {
			return domain.Out
		}
	}

	if negative {
		if personalNameRe.MatchString(payer) && !containsExpenseKeyword(lowDesc) {
			return domain.In
		}
		return domain.Out
	}
	return domain.In
}

func containsExpenseKeyword(lowDesc string) bool {
	for _, kw := range expenseKeywords {
		if strings.Contains(lowDesc, kw) {
			return true
		}
	}
	return false
}

// extractPayerName takes the text before the first comma or outbound-transfer
// marker and walks tokens forward until it hits an address stop-word, a token
// containing a digit, or an abbreviation. Deliberately permissive: a slightly
// short name beats swallowing an address tail.
func extractPayerName(description string) string {
	head := description
	if idx := strings.Index(head, ","); idx >= 0 {
		head = head[:idx]
	}
	if idx := strings.Index(strings.ToLower(head), outboundMarker); idx >= 0 {
		head = head[:idx]
	}

	var collected []string
	for _, token := range strings.Fields(head) {
		bare := strings.ToLower(strings.TrimRight(token, "."))
		if addressStopWords[bare] {
			break
		}
		if digitRe.MatchString(token) {
			break
		}
		if strings.HasSuffix(token, ".") && len(bare) <= 3 {
			break
		}
		collected = append(collected, token)
	}
	return strings.Join(collected, " ")
}

// splitCells splits one delimited line respecting quoted fields.
func splitCells(line string, delimiter rune) ([]string, error) {
	r := csv.NewReader(strings.NewReader(line))
	r.Comma = delimiter
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	cells, err := r.Read()
	if err == io.EOF {
		return nil, nil
	}
	return cells, err
}

func splitLines(data string) []string {
	data = strings.ReplaceAll(data, "\r\n", "\n")
	return strings.Split(data, "\n")
}

func mapColumns(header []string) map[string]int {
	aliases := map[string]string{
		"operation_date": "date", "operation date": "date", "data operacji": "date",
		"created": "date", "opis": "description", "opis operacji": "description",
		"kwota": "amount", "waluta": "currency", "rachunek": "account",
		"kategoria": "category",
	}

	columns := make(map[string]int)
	for i, col := range header {
		name := strings.ToLower(strings.TrimSpace(col))
		if canonical, ok := aliases[name]; ok {
			name = canonical
		}
		columns[name] = i
	}
	return columns
}

func parseDate(s string) (time.Time, error) {
	formats := []string{
		"2006-01-02",
		"02.01.2006",
		"02-01-2006",
		"2006/01/02",
		"02/01/2006",
		"2006-01-02 15:04:05",
		time.RFC3339,
	}

	var err error
	var t time.Time
	for _, format := range formats {
		if t, err = time.Parse(format, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}
