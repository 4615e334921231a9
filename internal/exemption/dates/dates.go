// Package dates implements the activity-date validation engine: calendar
// date parsing, the ordered range policy (order, future bound, apart bound,
// past bound) and the article-code exemptions that waive the past-date rules.
package dates

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// Policy bounds, at day granularity.
const (
	// MaxYearsInFuture caps how far ahead an activity may start or end.
	MaxYearsInFuture = 10
	// MaxRangeYears caps the start-to-end span. Exactly this far apart is
	// allowed; one day more is not.
	MaxRangeYears = 1
)

// Rule identifies which policy check a date range failed. Each check has a
// distinct rule so the caller can route the failure to the correct form field.
type Rule string

const (
	RuleEndBeforeStart     Rule = "endBeforeStart"
	RuleStartTooFarFuture  Rule = "startTooFarFuture"
	RuleEndTooFarFuture    Rule = "endTooFarFuture"
	RuleEndTooFarApart     Rule = "endTooFarApart"
	RuleEndTodayOrFuture   Rule = "endTodayOrFuture"
	RuleStartTodayOrFuture Rule = "startTodayOrFuture"
	RuleYearTooEarly       Rule = "yearTooEarly"
	RuleYearTooLate        Rule = "yearTooLate"
)

// ErrInvalidDate reports a day/month/year triple that is not a real calendar
// date.
var ErrInvalidDate = errors.New("not a real calendar date")

// RangeError is a policy violation from ValidateDateRange or ValidateYear.
type RangeError struct {
	Rule Rule
}

func (e *RangeError) Error() string { return "date range invalid: " + string(e.Rule) }

// ValidationContext carries the caller-supplied validation context. The
// article code selects which checks apply; it replaces the source system's
// implicit framework-context channel.
type ValidationContext struct {
	ArticleCode string
}

// dateExemptArticles waive the past-date and minimum-year checks. They never
// waive the future-bound or apart-bound checks.
var dateExemptArticles = map[string]bool{
	"20": true,
	"34": true,
}

// IsDateExemptArticle reports whether the article code waives the past-date
// rules.
func IsDateExemptArticle(articleCode string) bool {
	return dateExemptArticles[articleCode]
}

// ParseDateParts validates a day/month/year triple into a calendar date.
// The triple must round-trip exactly through calendar normalization:
// "31 February" is rejected, not rolled forward into March.
func ParseDateParts(day, month, year string) (time.Time, error) {
	d, err := strconv.Atoi(strings.TrimSpace(day))
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	m, err := strconv.Atoi(strings.TrimSpace(month))
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	y, err := strconv.Atoi(strings.TrimSpace(year))
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	if y < 1 {
		return time.Time{}, ErrInvalidDate
	}

	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || t.Month() != time.Month(m) || t.Day() != d {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

// DateOnly truncates a time to its calendar date in UTC. All range checks
// operate at day granularity.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ValidateDateRange applies the range policy in a fixed order, returning the
// first violation:
//
//  1. end before start
//  2. start, then end, beyond today + MaxYearsInFuture (never waived)
//  3. end more than MaxRangeYears after start (never waived)
//  4. end, then start, before today (skipped for exempt articles)
func ValidateDateRange(start, end time.Time, vc ValidationContext, today time.Time) *RangeError {
	start, end, today = DateOnly(start), DateOnly(end), DateOnly(today)

	if end.Before(start) {
		return &RangeError{Rule: RuleEndBeforeStart}
	}

	horizon := today.AddDate(MaxYearsInFuture, 0, 0)
	if start.After(horizon) {
		return &RangeError{Rule: RuleStartTooFarFuture}
	}
	if end.After(horizon) {
		return &RangeError{Rule: RuleEndTooFarFuture}
	}

	if end.After(start.AddDate(MaxRangeYears, 0, 0)) {
		return &RangeError{Rule: RuleEndTooFarApart}
	}

	if !IsDateExemptArticle(vc.ArticleCode) {
		if end.Before(today) {
			return &RangeError{Rule: RuleEndTodayOrFuture}
		}
		if start.Before(today) {
			return &RangeError{Rule: RuleStartTodayOrFuture}
		}
	}

	return nil
}

// ValidateYear pre-checks a bare year against the allowed window. The
// minimum-year floor is skipped for exempt articles; the ceiling
// (current year + MaxYearsInFuture) is always enforced.
func ValidateYear(year int, vc ValidationContext, today time.Time) *RangeError {
	if !IsDateExemptArticle(vc.ArticleCode) && year < today.Year() {
		return &RangeError{Rule: RuleYearTooEarly}
	}
	if year > today.Year()+MaxYearsInFuture {
		return &RangeError{Rule: RuleYearTooLate}
	}
	return nil
}
