// Package extract recovers structured listings from alert-email HTML.
package extract

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"homescout-engine/internal/domain"
	"homescout-engine/internal/logging"
)

var (
	// ErrPriceParse means a matched price span held a non-numeric residue.
	ErrPriceParse = errors.New("unparsable price text")

	// ErrStructuralScan means no qualifying ancestor was found while
	// ascending for the link or address of a matched price.
	ErrStructuralScan = errors.New("no qualifying ancestor for match")
)

const (
	// priceMarker tags the monthly-price span in the provider template.
	priceMarker = "pcm"
	// currencySymbol prefixes prices in the provider template.
	currencySymbol = "£"
)

// Scanner locates price/address/link triples in one known alert template.
// The template is an external, versioned contract; on structural drift the
// scanner skips matches loudly rather than misparse.
type Scanner struct {
	log *logging.Logger
}

func NewScanner(log *logging.Logger) *Scanner {
	return &Scanner{log: log}
}

// Scan returns the listings found in one HTML body, in document order,
// collapsed by full (address, price, link) tuple. Per-match anomalies are
// logged and skipped; Scan fails only when the body is not parseable HTML
// at all.
func (s *Scanner) Scan(htmlBody string) ([]domain.Listing, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlBody))
	if err != nil {
		return nil, fmt.Errorf("parse alert html: %w", err)
	}

	var out []domain.Listing
	seen := map[domain.Listing]bool{}

	// Listing cards are tables with zeroed cell spacing/padding.
	doc.Find(`table[cellspacing="0"][cellpadding="0"]`).Each(func(_ int, table *goquery.Selection) {
		table.Find("span").Each(func(_ int, span *goquery.Selection) {
			text := span.Text()
			if !strings.Contains(strings.ToLower(text), priceMarker) {
				return
			}

			listing, err := s.scanMatch(span, text)
			if err != nil {
				s.log.Warnf("[extract] skipping price match %q: %v", strings.TrimSpace(text), err)
				return
			}
			if seen[listing] {
				return
			}
			seen[listing] = true
			out = append(out, listing)
		})
	})

	return out, nil
}

// scanMatch resolves one matched price span into a full listing by ascending
// the ancestor chain for the nearest following anchor (link) and the second
// following div (address).
func (s *Scanner) scanMatch(span *goquery.Selection, priceText string) (domain.Listing, error) {
	price, err := ParsePrice(priceText)
	if err != nil {
		return domain.Listing{}, err
	}

	node := span.Get(0)

	anchor := ascendToFollowing(node, "a", 0)
	if anchor == nil {
		return domain.Listing{}, fmt.Errorf("%w: no following anchor", ErrStructuralScan)
	}
	link := attrValue(anchor, "href")
	if link == "" {
		return domain.Listing{}, fmt.Errorf("%w: following anchor has no href", ErrStructuralScan)
	}

	addrDiv := ascendToFollowing(node, "div", 1)
	if addrDiv == nil {
		return domain.Listing{}, fmt.Errorf("%w: no following address block", ErrStructuralScan)
	}
	address := strings.TrimSpace(nodeText(addrDiv))
	if address == "" {
		return domain.Listing{}, fmt.Errorf("%w: empty address block", ErrStructuralScan)
	}

	return domain.Listing{Address: address, PricePerMonth: price, Link: link}, nil
}

// ParsePrice strips the currency symbol, thousands separators, the pcm
// suffix and surrounding whitespace, then parses the residue as an integer.
func ParsePrice(text string) (int, error) {
	cleaned := strings.ReplaceAll(text, " ", " ")
	cleaned = strings.ReplaceAll(cleaned, currencySymbol, "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = stripCaseInsensitive(cleaned, priceMarker)
	cleaned = strings.TrimSpace(cleaned)

	n, err := strconv.Atoi(cleaned)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrPriceParse, strings.TrimSpace(text))
	}
	return n, nil
}

// stripCaseInsensitive removes every case-insensitive occurrence of marker,
// comparing windows in place so multibyte runes around a match stay intact.
func stripCaseInsensitive(s, marker string) string {
	if marker == "" {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); {
		if i+len(marker) <= len(s) && strings.EqualFold(s[i:i+len(marker)], marker) {
			i += len(marker)
			continue
		}
		b.WriteByte(s[i])
		i++
	}
	return b.String()
}
