package domain

import "fmt"

// TransportMode is a Google Routes travel mode.
type TransportMode string

const (
	ModeBicycle TransportMode = "BICYCLE"
	ModeDrive   TransportMode = "DRIVE"
	ModeWalk    TransportMode = "WALK"
	ModeTransit TransportMode = "TRANSIT"
)

// Valid reports whether the mode is one the routing backend accepts.
func (m TransportMode) Valid() bool {
	switch m {
	case ModeBicycle, ModeDrive, ModeWalk, ModeTransit:
		return true
	}
	return false
}

// Pretty returns the human form used in reports.
func (m TransportMode) Pretty() string {
	switch m {
	case ModeBicycle:
		return "cycle"
	case ModeDrive:
		return "drive"
	case ModeWalk:
		return "walk"
	case ModeTransit:
		return "public transport"
	}
	return string(m)
}

// LocationConstraint is a maximum acceptable commute for one person to one
// destination by one transport mode. Loaded once per run, immutable.
type LocationConstraint struct {
	PersonName          string
	TargetName          string
	TargetAddress       string
	TransportMode       TransportMode
	MaxTransportMinutes int
}

func (c LocationConstraint) String() string {
	return fmt.Sprintf("%s -> %s (%s) in %d minutes",
		c.PersonName, c.TargetName, c.TransportMode.Pretty(), c.MaxTransportMinutes)
}

// Commute is the evaluated travel time for one constraint.
type Commute struct {
	Constraint LocationConstraint
	Minutes    int
}

func (c Commute) IsViolation() bool {
	return c.Minutes > c.Constraint.MaxTransportMinutes
}
