package engine

import (
	"fmt"
	"time"
)

// Layout of the updateTime field on broker order rows.
const updateTimeLayout = "2006-01-02 15:04:05"

// withinWindow reports whether an order observation is fresh enough to act
// on. A full order-list fetch returns the whole day's history; only orders
// updated inside the trailing window are actionable. The boundary is
// inclusive: age == window is still actionable. Orders from the future
// (negative age, clock skew) are not.
func withinWindow(updateTime string, now time.Time, window time.Duration) (bool, error) {
	if updateTime == "" {
		return false, fmt.Errorf("empty updateTime")
	}
	t, err := time.ParseInLocation(updateTimeLayout, updateTime, now.Location())
	if err != nil {
		return false, fmt.Errorf("bad updateTime %q: %w", updateTime, err)
	}
	age := now.Sub(t)
	return age >= 0 && age <= window, nil
}
