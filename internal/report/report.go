// Package report renders the ranked plain-text report of scouted locations.
// Rendering is deterministic and side-effect-free; every network call has
// already happened upstream.
package report

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"homescout-engine/internal/domain"
)

const (
	personColumnWidth = 9  // fits "Charlie:" with a space
	modeColumnWidth   = 20 // fits "(public transport):"
)

// Render sorts the locations by total commute minutes ascending and joins
// their blocks with blank-line separators.
func Render(locations []domain.ScoutedLocation) string {
	sorted := make([]domain.ScoutedLocation, len(locations))
	copy(sorted, locations)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TotalCommuteMinutes < sorted[j].TotalCommuteMinutes
	})

	blocks := make([]string, 0, len(sorted))
	for _, loc := range sorted {
		blocks = append(blocks, RenderLocation(loc))
	}
	return strings.Join(blocks, "\n\n\n")
}

// RenderLocation renders one location block in fixed section order.
func RenderLocation(loc domain.ScoutedLocation) string {
	var b strings.Builder

	section := func(header, value string) {
		b.WriteString("-------------- " + header + " ------------------\n")
		b.WriteString("\n")
		b.WriteString(value + "\n")
		b.WriteString("\n")
	}

	section("ADDRESS", loc.Listing.Address)
	section("GOOGLE MAPS", MapsLink(loc.Listing.Address))
	section("LISTING", loc.Listing.Link)
	section("PRICE PER MONTH", fmt.Sprintf("£%d", loc.Listing.PricePerMonth))

	b.WriteString(renderCommutes(loc.Commutes))
	b.WriteString("\n")
	b.WriteString(renderShops(loc.NearbyShops))

	return b.String()
}

// MapsLink returns a Google Maps search link for an address.
func MapsLink(address string) string {
	return "https://www.google.com/maps/search/" + strings.ReplaceAll(address, " ", "+")
}

func renderCommutes(commutes []domain.Commute) string {
	var b strings.Builder
	b.WriteString("--------------- COMMUTES -----------------\n")
	for _, c := range commutes {
		person := pad(c.Constraint.PersonName+":", personColumnWidth)
		mode := pad("("+c.Constraint.TransportMode.Pretty()+"):", modeColumnWidth)
		fmt.Fprintf(&b, "%sHome -> Work %s %d minutes\n", person, mode, c.Minutes)
	}
	return b.String()
}

func renderShops(shops []domain.Shop) string {
	var b strings.Builder
	b.WriteString("--------------- NEAREST SHOPS -----------------\n")
	if len(shops) == 0 {
		return b.String()
	}

	width := 0
	for _, s := range shops {
		if n := utf8.RuneCountInString(s.Name); n > width {
			width = n
		}
	}
	for _, s := range shops {
		fmt.Fprintf(&b, "%s%3d minutes (%.1fkm)\n", pad(s.Name+":", width+1), s.MinutesWalk, s.DistanceKm)
	}
	return b.String()
}

// pad right-pads to a column width counted in runes, not bytes.
func pad(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return s
	}
	return s + strings.Repeat(" ", width-n)
}
