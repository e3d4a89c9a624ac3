package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)

	// Matches the proforma number family, e.g. "CO-PROF 143/2025",
	// "co prof.143 / 2025", "COPROF-143/2025". Spacing and separators between
	// the prefix and the id vary wildly across bank descriptions.
	invoiceNumberRe = regexp.MustCompile(`(?i)CO[\s\-_.]*PROF[\s\-_.]*(\d+)\s*/\s*(\d{4})`)

	diacriticsRemover = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// Name canonicalizes a payer or buyer name: lower case, diacritics stripped,
// whitespace collapsed. Used on both sides of the comparison so the exact
// folding rules matter less than applying them consistently.
func Name(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if folded, _, err := transform.String(diacriticsRemover, s); err == nil {
		s = folded
	}
	// Polish ł is not a combining mark, NFD leaves it alone
	s = strings.ReplaceAll(s, "ł", "l")
	return whitespaceRe.ReplaceAllString(s, " ")
}

// InvoiceNumber canonicalizes an invoice number to the "CO-PROF <id>/<year>"
// form so differently separated spellings compare equal.
func InvoiceNumber(s string) string {
	m := invoiceNumberRe.FindStringSubmatch(s)
	if m == nil {
		return strings.ToUpper(whitespaceRe.ReplaceAllString(strings.TrimSpace(s), " "))
	}
	return "CO-PROF " + m[1] + "/" + m[2]
}

// ExtractInvoiceNumber scans free text for an invoice number and returns it in
// canonical form, or "" when none is present.
func ExtractInvoiceNumber(s string) string {
	m := invoiceNumberRe.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return "CO-PROF " + m[1] + "/" + m[2]
}
