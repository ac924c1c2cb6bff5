// Package estimation computes end-of-month balance projections from a
// balance snapshot. Everything here is pure and safe for concurrent use.
package estimation

import (
	"fmt"
	"time"

	"budget/internal/core"
)

// Bucket is a day-of-month range used to group expenses.
type Bucket int

const (
	Bucket1to7 Bucket = iota
	Bucket8to14
	Bucket15to21
	Bucket22toEnd
)

// Buckets lists all buckets in calendar order.
var Buckets = [...]Bucket{Bucket1to7, Bucket8to14, Bucket15to21, Bucket22toEnd}

func (b Bucket) String() string {
	switch b {
	case Bucket1to7:
		return "1-7"
	case Bucket8to14:
		return "8-14"
	case Bucket15to21:
		return "15-21"
	case Bucket22toEnd:
		return "22-end"
	default:
		return fmt.Sprintf("Bucket(%d)", int(b))
	}
}

// BucketOf maps a day of the month containing month to its bucket.
func BucketOf(day int, month core.Date) (Bucket, error) {
	if day < 1 || day > DaysInMonth(month) {
		return 0, fmt.Errorf("%w: %d for %04d-%02d", core.ErrInvalidDay, day, month.Year(), month.Month())
	}
	switch {
	case day <= 7:
		return Bucket1to7, nil
	case day <= 14:
		return Bucket8to14, nil
	case day <= 21:
		return Bucket15to21, nil
	default:
		return Bucket22toEnd, nil
	}
}

// BucketOfDate is BucketOf for the date's own day.
func BucketOfDate(d core.Date) Bucket {
	b, _ := BucketOf(d.Day(), d)
	return b
}

// LastDayOfMonth returns the last calendar day of the month containing d.
func LastDayOfMonth(d core.Date) core.Date {
	t := time.Date(d.Year(), time.Month(d.Month())+1, 0, 0, 0, 0, 0, time.UTC)
	return core.Date{Time: t}
}

// DaysInMonth returns 28-31 for the month containing d.
func DaysInMonth(d core.Date) int {
	return LastDayOfMonth(d).Day()
}

// Range returns the first and last day of the bucket in the month containing month.
func (b Bucket) Range(month core.Date) (core.Date, core.Date) {
	y, m := month.Year(), month.Month()
	switch b {
	case Bucket1to7:
		return core.NewDate(y, m, 1), core.NewDate(y, m, 7)
	case Bucket8to14:
		return core.NewDate(y, m, 8), core.NewDate(y, m, 14)
	case Bucket15to21:
		return core.NewDate(y, m, 15), core.NewDate(y, m, 21)
	default:
		return core.NewDate(y, m, 22), LastDayOfMonth(month)
	}
}
