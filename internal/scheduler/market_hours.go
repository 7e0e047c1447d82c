package scheduler

import (
	"time"
	_ "time/tzdata"
)

// Market session labels.
const (
	SessionPreMarket  = "pre_market"
	SessionOpen       = "open"
	SessionAfterHours = "after_hours"
	SessionClosed     = "closed"
)

var newYork = loadNewYork()

func loadNewYork() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.FixedZone("EST", -5*3600)
	}
	return loc
}

// MarketSession classifies t against the regular US equity session
// (09:30-16:00 New York time, Monday to Friday). Exchange holidays are not
// modelled.
func MarketSession(t time.Time) string {
	ny := t.In(newYork)
	if wd := ny.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return SessionClosed
	}
	minutes := ny.Hour()*60 + ny.Minute()
	switch {
	case minutes >= 4*60 && minutes < 9*60+30:
		return SessionPreMarket
	case minutes >= 9*60+30 && minutes < 16*60:
		return SessionOpen
	case minutes >= 16*60 && minutes < 20*60:
		return SessionAfterHours
	default:
		return SessionClosed
	}
}

// MarketOpen reports whether t falls inside the regular session.
func MarketOpen(t time.Time) bool {
	return MarketSession(t) == SessionOpen
}
