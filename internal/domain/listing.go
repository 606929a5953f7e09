package domain

// Listing is a candidate rental property extracted from an alert email.
// Identity within a run is the address.
type Listing struct {
	Address       string
	PricePerMonth int
	Link          string
}

type Shop struct {
	Name        string
	MinutesWalk int
	DistanceKm  float64
}

// ScoutedLocation is a listing that passed every commute constraint,
// enriched with the evaluated commutes and nearby shops.
type ScoutedLocation struct {
	Listing             Listing
	Commutes            []Commute // constraint declaration order
	TotalCommuteMinutes int
	NearbyShops         []Shop // ascending by MinutesWalk, at most 5
}
