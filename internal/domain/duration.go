package domain

import "fmt"

// DurationUnit is the unit a caller supplies alongside an estimate value.
type DurationUnit string

const (
	UnitMinutes DurationUnit = "minutes"
	UnitHours   DurationUnit = "hours"
	UnitDays    DurationUnit = "days"
)

// DurationInput is a raw value + unit pair supplied on accept-class actions.
type DurationInput struct {
	Value int
	Unit  DurationUnit
}

// Minutes normalizes the input to whole minutes (hours x60, days x1440).
func (d DurationInput) Minutes() (int, error) {
	if d.Value <= 0 {
		return 0, fmt.Errorf("duration value must be positive, got %d", d.Value)
	}
	switch d.Unit {
	case UnitMinutes:
		return d.Value, nil
	case UnitHours:
		return d.Value * 60, nil
	case UnitDays:
		return d.Value * 1440, nil
	default:
		return 0, fmt.Errorf("unknown duration unit %q", d.Unit)
	}
}

// Label renders the input the way dashboards display estimates, e.g. "2 hours".
func (d DurationInput) Label() string {
	return fmt.Sprintf("%d %s", d.Value, d.Unit)
}
