package extract

import (
	"homescout-engine/internal/domain"
	"homescout-engine/internal/logging"
)

// ListingStore deduplicates listings by address across a whole batch.
// First seen wins, in retrieval order, so duplicate tie-breaks are
// deterministic.
type ListingStore struct {
	log   *logging.Logger
	index map[string]int
	order []domain.Listing
}

func NewListingStore(log *logging.Logger) *ListingStore {
	return &ListingStore{
		log:   log,
		index: make(map[string]int),
	}
}

// Add records a listing unless its address has been seen already.
// Returns true if the listing was newly added.
func (s *ListingStore) Add(l domain.Listing) bool {
	if _, dup := s.index[l.Address]; dup {
		s.log.Infof("[store] skipping %s: duplicate address", l.Address)
		return false
	}
	s.index[l.Address] = len(s.order)
	s.order = append(s.order, l)
	return true
}

// AddAll records each listing in order.
func (s *ListingStore) AddAll(listings []domain.Listing) {
	for _, l := range listings {
		s.Add(l)
	}
}

// Listings returns the deduplicated listings in first-seen order.
func (s *ListingStore) Listings() []domain.Listing {
	out := make([]domain.Listing, len(s.order))
	copy(out, s.order)
	return out
}

func (s *ListingStore) Len() int { return len(s.order) }
