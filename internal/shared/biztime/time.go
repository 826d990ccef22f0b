// Package biztime provides utilities for business timezone calculations.
// All storage and transport use UTC; the business timezone is only used to
// compute date boundaries for the daily billing sweeps.
package biztime

import (
	"fmt"
	"sync"
	"time"
)

// DefaultTimezone is used when no business timezone is configured.
const DefaultTimezone = "UTC"

var (
	bizLocation     *time.Location
	bizLocationOnce sync.Once
	initErr         error
)

// Init initializes the business timezone. Should be called once at startup.
func Init(tz string) error {
	bizLocationOnce.Do(func() {
		if tz == "" {
			tz = DefaultTimezone
		}
		bizLocation, initErr = time.LoadLocation(tz)
	})
	return initErr
}

// MustInit initializes the business timezone and panics on error.
func MustInit(tz string) {
	if err := Init(tz); err != nil {
		panic(fmt.Sprintf("failed to initialize business timezone %q: %v", tz, err))
	}
}

// Location returns the business timezone location, auto-initializing with
// the default when Init was never called.
func Location() *time.Location {
	if bizLocation == nil {
		if err := Init(""); err != nil {
			panic(fmt.Sprintf("biztime: failed to auto-initialize: %v", err))
		}
	}
	return bizLocation
}

// NowUTC returns current time in UTC.
func NowUTC() time.Time {
	return time.Now().UTC()
}

// StartOfDayUTC returns the start of day (00:00:00) in business timezone,
// converted to UTC. Used by the due-subscription selection queries.
func StartOfDayUTC(t time.Time) time.Time {
	bt := t.In(Location())
	return time.Date(bt.Year(), bt.Month(), bt.Day(), 0, 0, 0, 0, Location()).UTC()
}

// EndOfDayUTC returns the end of day in business timezone, converted to UTC.
func EndOfDayUTC(t time.Time) time.Time {
	bt := t.In(Location())
	return time.Date(bt.Year(), bt.Month(), bt.Day(), 23, 59, 59, 999999999, Location()).UTC()
}

// CycleDate formats a renewal cycle date (the nextDeliveryDate the cycle was
// billed for) as the canonical YYYY-MM-DD key used for idempotency.
func CycleDate(t time.Time) string {
	return t.In(Location()).Format("2006-01-02")
}

// ToBizTimezone converts a UTC time to business timezone for display.
func ToBizTimezone(t time.Time) time.Time {
	return t.In(Location())
}
