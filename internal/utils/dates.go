package utils

import (
	"time"

	"rentshare-backend/internal/domain"
)

// Overlaps reports whether the half-open ranges [aStart, aEnd) and
// [bStart, bEnd) share at least one day. Adjacent ranges do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd domain.Date) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// Intersection returns the overlapping part of two ranges. Only meaningful
// when Overlaps is true.
func Intersection(aStart, aEnd, bStart, bEnd domain.Date) (domain.Date, domain.Date) {
	start := aStart
	if bStart.After(start) {
		start = bStart
	}
	end := aEnd
	if bEnd.Before(end) {
		end = bEnd
	}
	return start, end
}

// Today returns the calendar date of now in UTC.
func Today(now time.Time) domain.Date {
	return domain.DateOf(now.UTC())
}
