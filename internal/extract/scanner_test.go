package extract

import (
	"errors"
	"reflect"
	"testing"

	"homescout-engine/internal/domain"
	"homescout-engine/internal/logging"
)

const singleListingHTML = `
<html><body>
<table cellspacing="0" cellpadding="0">
  <tr><td>
    <div><span>£1,750 pcm</span></div>
    <div><a href="/property/123">View property</a></div>
    <div>12 Example Road, London</div>
  </td></tr>
</table>
</body></html>`

func newTestScanner() *Scanner { return NewScanner(logging.Discard()) }

func TestScanSingleListing(t *testing.T) {
	listings, err := newTestScanner().Scan(singleListingHTML)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	want := []domain.Listing{{
		Address:       "12 Example Road, London",
		PricePerMonth: 1750,
		Link:          "/property/123",
	}}
	if !reflect.DeepEqual(listings, want) {
		t.Errorf("Scan = %+v, want %+v", listings, want)
	}
}

func TestScanIsIdempotent(t *testing.T) {
	s := newTestScanner()

	first, err := s.Scan(singleListingHTML)
	if err != nil {
		t.Fatalf("first Scan failed: %v", err)
	}
	second, err := s.Scan(singleListingHTML)
	if err != nil {
		t.Fatalf("second Scan failed: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("scans differ: %+v vs %+v", first, second)
	}
}

func TestScanMultipleListingsInDocumentOrder(t *testing.T) {
	html := `
<table cellspacing="0" cellpadding="0">
  <tr><td>
    <div><span>£1,200 pcm</span></div>
    <div><a href="/property/1">View</a></div>
    <div>1 First Street, London</div>
  </td></tr>
</table>
<table cellspacing="0" cellpadding="0">
  <tr><td>
    <div><span>£2,400 pcm</span></div>
    <div><a href="/property/2">View</a></div>
    <div>2 Second Street, London</div>
  </td></tr>
</table>`

	listings, err := newTestScanner().Scan(html)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(listings) != 2 {
		t.Fatalf("expected 2 listings, got %d: %+v", len(listings), listings)
	}
	if listings[0].Address != "1 First Street, London" || listings[1].Address != "2 Second Street, London" {
		t.Errorf("wrong order: %+v", listings)
	}
}

func TestScanIgnoresNonMatchingTables(t *testing.T) {
	html := `
<table>
  <tr><td>
    <div><span>£999 pcm</span></div>
    <div><a href="/property/9">View</a></div>
    <div>9 Ignored Road</div>
  </td></tr>
</table>`

	listings, err := newTestScanner().Scan(html)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(listings) != 0 {
		t.Errorf("expected no listings from unmarked table, got %+v", listings)
	}
}

func TestScanSkipsUnparsablePrice(t *testing.T) {
	html := `
<table cellspacing="0" cellpadding="0">
  <tr><td>
    <div><span>POA pcm</span></div>
    <div><a href="/property/1">View</a></div>
    <div>1 Vague Street, London</div>
  </td></tr>
</table>
<table cellspacing="0" cellpadding="0">
  <tr><td>
    <div><span>£1,000 pcm</span></div>
    <div><a href="/property/2">View</a></div>
    <div>2 Clear Street, London</div>
  </td></tr>
</table>`

	listings, err := newTestScanner().Scan(html)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(listings) != 1 || listings[0].Address != "2 Clear Street, London" {
		t.Errorf("expected only the parseable listing, got %+v", listings)
	}
}

func TestScanSkipsMatchWithoutFollowingAnchor(t *testing.T) {
	// Price span with nothing after it: structural drift, skipped loudly.
	html := `
<table cellspacing="0" cellpadding="0">
  <tr><td><span>£900 pcm</span></td></tr>
</table>`

	listings, err := newTestScanner().Scan(html)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(listings) != 0 {
		t.Errorf("expected no listings, got %+v", listings)
	}
}

func TestScanFindsAnchorBeforePriceViaAscent(t *testing.T) {
	// The template often puts the card's anchor (on the photo) before the
	// price span. The walk must ascend until an ancestor's window covers it.
	html := `
<table cellspacing="0" cellpadding="0">
  <tr><td><a href="/property/77"><img src="x.jpg"/></a></td></tr>
  <tr><td><span>£1,100 pcm</span></td></tr>
  <tr><td>
    <div>Featured</div>
    <div>77 Ascent Avenue, London</div>
  </td></tr>
</table>`

	listings, err := newTestScanner().Scan(html)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(listings) != 1 {
		t.Fatalf("expected 1 listing, got %+v", listings)
	}
	got := listings[0]
	if got.Link != "/property/77" {
		t.Errorf("link = %q, want /property/77", got.Link)
	}
	if got.Address != "77 Ascent Avenue, London" {
		t.Errorf("address = %q", got.Address)
	}
	if got.PricePerMonth != 1100 {
		t.Errorf("price = %d, want 1100", got.PricePerMonth)
	}
}

func TestScanCollapsesDuplicateTuples(t *testing.T) {
	html := `
<table cellspacing="0" cellpadding="0">
  <tr><td>
    <div><span>£1,500 pcm</span><span>£1,500 pcm</span></div>
    <div><a href="/property/5">View</a></div>
    <div>5 Twice Road, London</div>
  </td></tr>
</table>`

	listings, err := newTestScanner().Scan(html)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(listings) != 1 {
		t.Errorf("expected duplicate tuples to collapse, got %+v", listings)
	}
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		text    string
		want    int
		wantErr bool
	}{
		{"£1,750 pcm", 1750, false},
		{" £2,100 PCM ", 2100, false},
		{"£1,234pcm", 1234, false},
		{"950 pcm", 950, false},
		{"£1,750 per month", 0, true},
		{"£abc pcm", 0, true},
		{"pcm", 0, true},
	}

	for _, tt := range tests {
		got, err := ParsePrice(tt.text)
		if tt.wantErr {
			if !errors.Is(err, ErrPriceParse) {
				t.Errorf("ParsePrice(%q) error = %v, want ErrPriceParse", tt.text, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParsePrice(%q) failed: %v", tt.text, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParsePrice(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}

func TestStripCaseInsensitive(t *testing.T) {
	tests := []struct {
		s      string
		marker string
		want   string
	}{
		{"£1500 pcm", "pcm", "£1500 "},
		{"£1500 PCM", "pcm", "£1500 "},
		{"pCmpcm", "pcm", ""},
		{"per month", "pcm", "per month"},
		{"anything", "", "anything"},
		// Runes whose lowercase form changes byte length must survive intact.
		{"İ1500PCM", "pcm", "İ1500"},
		{"ẞ1500 pcm ẞ", "pcm", "ẞ1500  ẞ"},
	}

	for _, tt := range tests {
		if got := stripCaseInsensitive(tt.s, tt.marker); got != tt.want {
			t.Errorf("stripCaseInsensitive(%q, %q) = %q, want %q", tt.s, tt.marker, got, tt.want)
		}
	}
}
