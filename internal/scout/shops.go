package scout

import (
	"context"
	"fmt"
	"sort"

	"homescout-engine/internal/domain"
	"homescout-engine/internal/gmaps"
)

// maxNearbyShops caps how many places results are walked and reported.
const maxNearbyShops = 5

// ShopFinder enriches a surviving listing with its nearest shops.
type ShopFinder struct {
	router Router
	places PlaceSearcher
}

func NewShopFinder(router Router, places PlaceSearcher) *ShopFinder {
	return &ShopFinder{router: router, places: places}
}

// FindNearby queries for shops and supermarkets around the address, walks
// the first maxNearbyShops results and sorts them by walking minutes.
// Zero results is a valid empty list, not an error.
func (f *ShopFinder) FindNearby(ctx context.Context, address string) ([]domain.Shop, error) {
	query := fmt.Sprintf("Shops and supermarkets near %s", address)
	results, err := f.places.SearchText(ctx, query)
	if err != nil {
		return nil, err
	}

	if len(results) > maxNearbyShops {
		results = results[:maxNearbyShops]
	}

	shops := make([]domain.Shop, 0, len(results))
	for _, p := range results {
		minutes, km, err := f.router.TravelTime(ctx, address, p.FormattedAddress, domain.ModeWalk)
		if err != nil {
			return nil, err
		}
		shops = append(shops, domain.Shop{Name: p.Name, MinutesWalk: minutes, DistanceKm: km})
	}

	sort.SliceStable(shops, func(i, j int) bool {
		return shops[i].MinutesWalk < shops[j].MinutesWalk
	})
	return shops, nil
}

// PlaceSearcher is the places collaborator contract.
type PlaceSearcher interface {
	SearchText(ctx context.Context, query string) ([]gmaps.Place, error)
}
