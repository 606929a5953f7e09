// Package scout evaluates extracted listings against commute constraints
// and enriches the survivors.
package scout

import (
	"context"

	"golang.org/x/sync/errgroup"

	"homescout-engine/internal/domain"
	"homescout-engine/internal/logging"
)

// Router is the routing collaborator contract.
type Router interface {
	TravelTime(ctx context.Context, origin, destination string, mode domain.TransportMode) (minutes int, distanceKm float64, err error)
}

// Evaluator gates listings by commute feasibility. A single violating
// commute excludes the whole listing: one unacceptable commute for any one
// person invalidates the property regardless of the others.
type Evaluator struct {
	router      Router
	shops       *ShopFinder
	constraints []domain.LocationConstraint
	log         *logging.Logger
	maxParallel int
}

func NewEvaluator(router Router, shops *ShopFinder, constraints []domain.LocationConstraint, log *logging.Logger, maxParallel int) *Evaluator {
	if maxParallel < 1 {
		maxParallel = 1
	}
	return &Evaluator{
		router:      router,
		shops:       shops,
		constraints: constraints,
		log:         log,
		maxParallel: maxParallel,
	}
}

// ScoutAll evaluates every listing, bounded-concurrently. Collaborator
// failures and constraint violations drop the affected listing only; the
// batch always completes. Survivors come back in listing order (the report
// applies its own sort).
func (e *Evaluator) ScoutAll(ctx context.Context, listings []domain.Listing) []domain.ScoutedLocation {
	results := make([]*domain.ScoutedLocation, len(listings))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.maxParallel)

	for i, listing := range listings {
		i, listing := i, listing
		g.Go(func() error {
			loc, err := e.scoutOne(gctx, listing)
			if err != nil {
				e.log.Warnf("[scout] skipping %s: %v", listing.Address, err)
				return nil
			}
			if loc == nil {
				return nil
			}
			results[i] = loc
			return nil
		})
	}
	_ = g.Wait()

	out := make([]domain.ScoutedLocation, 0, len(listings))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}

// scoutOne returns (nil, nil) when the listing violates a constraint, and an
// error when a collaborator failed.
func (e *Evaluator) scoutOne(ctx context.Context, listing domain.Listing) (*domain.ScoutedLocation, error) {
	commutes, total, err := e.evaluateCommutes(ctx, listing.Address)
	if err != nil {
		return nil, err
	}

	for _, c := range commutes {
		if c.IsViolation() {
			e.log.Infof("[scout] excluding %s: %s takes %d minutes (max %d)",
				listing.Address, c.Constraint, c.Minutes, c.Constraint.MaxTransportMinutes)
			return nil, nil
		}
	}

	shops, err := e.shops.FindNearby(ctx, listing.Address)
	if err != nil {
		return nil, err
	}

	e.log.Infof("[scout] keeping %s (total commute %d minutes)", listing.Address, total)
	return &domain.ScoutedLocation{
		Listing:             listing,
		Commutes:            commutes,
		TotalCommuteMinutes: total,
		NearbyShops:         shops,
	}, nil
}

// ScoutAddress evaluates one ad-hoc address without the violation gate,
// for inspecting a specific property from the command line.
func (e *Evaluator) ScoutAddress(ctx context.Context, address string) (*domain.ScoutedLocation, error) {
	commutes, total, err := e.evaluateCommutes(ctx, address)
	if err != nil {
		return nil, err
	}
	shops, err := e.shops.FindNearby(ctx, address)
	if err != nil {
		return nil, err
	}
	return &domain.ScoutedLocation{
		Listing:             domain.Listing{Address: address, PricePerMonth: -1, Link: "???"},
		Commutes:            commutes,
		TotalCommuteMinutes: total,
		NearbyShops:         shops,
	}, nil
}

// evaluateCommutes runs the constraints in declaration order. Checks within
// a listing stay sequential: the result order matters and the listing-level
// fan-out already saturates the API rate limit.
func (e *Evaluator) evaluateCommutes(ctx context.Context, address string) ([]domain.Commute, int, error) {
	commutes := make([]domain.Commute, 0, len(e.constraints))
	total := 0
	for _, constraint := range e.constraints {
		minutes, _, err := e.router.TravelTime(ctx, address, constraint.TargetAddress, constraint.TransportMode)
		if err != nil {
			return nil, 0, err
		}
		commutes = append(commutes, domain.Commute{Constraint: constraint, Minutes: minutes})
		total += minutes
	}
	return commutes, total, nil
}
