package valueobjects

import (
	"fmt"
	"time"
)

// Cadence is the delivery rhythm of a recurring subscription. It is a closed
// set: construction goes through ParseCadence, so NextDate can switch
// exhaustively without a runtime "unsupported type" path.
type Cadence string

const (
	CadenceRecurringWeekly    Cadence = "recurring_weekly"
	CadenceRecurringBiweekly  Cadence = "recurring_biweekly"
	CadenceRecurringMonthly   Cadence = "recurring_monthly"
	CadenceRecurringQuarterly Cadence = "recurring_quarterly"
	CadenceRecurringYearly    Cadence = "recurring_yearly"
	CadenceSpontaneousWeekly  Cadence = "spontaneous_weekly"
	CadenceSpontaneousBiweekly Cadence = "spontaneous_biweekly"
	CadenceSpontaneousMonthly Cadence = "spontaneous_monthly"
)

var validCadences = map[Cadence]bool{
	CadenceRecurringWeekly:     true,
	CadenceRecurringBiweekly:   true,
	CadenceRecurringMonthly:    true,
	CadenceRecurringQuarterly:  true,
	CadenceRecurringYearly:     true,
	CadenceSpontaneousWeekly:   true,
	CadenceSpontaneousBiweekly: true,
	CadenceSpontaneousMonthly:  true,
}

// ParseCadence validates and returns a Cadence.
func ParseCadence(value string) (Cadence, error) {
	c := Cadence(value)
	if !validCadences[c] {
		return "", fmt.Errorf("invalid cadence: %s", value)
	}
	return c, nil
}

func (c Cadence) String() string {
	return string(c)
}

// IsSpontaneous reports whether this is a spontaneous-delivery variant.
func (c Cadence) IsSpontaneous() bool {
	switch c {
	case CadenceSpontaneousWeekly, CadenceSpontaneousBiweekly, CadenceSpontaneousMonthly:
		return true
	}
	return false
}

// NextDate advances from the given date by one cadence step. Spontaneous
// variants currently step by a fixed 7 days; the intended randomized offset
// is unspecified (TODO(product): confirm the spontaneous offset bounds).
func (c Cadence) NextDate(from time.Time) time.Time {
	switch c {
	case CadenceRecurringWeekly:
		return from.AddDate(0, 0, 7)
	case CadenceRecurringBiweekly:
		return from.AddDate(0, 0, 14)
	case CadenceRecurringMonthly:
		return from.AddDate(0, 1, 0)
	case CadenceRecurringQuarterly:
		return from.AddDate(0, 3, 0)
	case CadenceRecurringYearly:
		return from.AddDate(1, 0, 0)
	case CadenceSpontaneousWeekly, CadenceSpontaneousBiweekly, CadenceSpontaneousMonthly:
		return from.AddDate(0, 0, 7)
	}
	// Unreachable for values built through ParseCadence.
	return from.AddDate(0, 0, 7)
}

func (c Cadence) Validate() error {
	if !validCadences[c] {
		return fmt.Errorf("invalid cadence: %s", c)
	}
	return nil
}
