// Package validation glues the date and coordinate engines into form-level
// validators: it decides which error surfaces first and maps internal rule
// names onto the display messages the forms show.
package validation

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"marlin/internal/exemption/dates"
	"marlin/internal/exemption/models"
)

// Form field identifiers used in field-level error responses.
const (
	FieldStartDate = "startDate"
	FieldEndDate   = "endDate"
)

// FieldError is one field-level validation message.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ActivityDatesForm carries the six raw date parts as submitted.
type ActivityDatesForm struct {
	StartDay   string `json:"startDay"`
	StartMonth string `json:"startMonth"`
	StartYear  string `json:"startYear"`
	EndDay     string `json:"endDay"`
	EndMonth   string `json:"endMonth"`
	EndYear    string `json:"endYear"`
}

// rangeMessages maps each range rule to the field it belongs to and the
// message shown for it. Only the first rule in the engine's check order is
// ever surfaced for one submission.
var rangeMessages = map[dates.Rule]FieldError{
	dates.RuleEndBeforeStart: {
		Field:   FieldEndDate,
		Message: "The end date must be the same as or after the start date",
	},
	dates.RuleStartTooFarFuture: {
		Field:   FieldStartDate,
		Message: fmt.Sprintf("The start date must be within the next %d years", dates.MaxYearsInFuture),
	},
	dates.RuleEndTooFarFuture: {
		Field:   FieldEndDate,
		Message: fmt.Sprintf("The end date must be within the next %d years", dates.MaxYearsInFuture),
	},
	dates.RuleEndTooFarApart: {
		Field:   FieldEndDate,
		Message: fmt.Sprintf("The end date must be no more than %d year after the start date", dates.MaxRangeYears),
	},
	dates.RuleEndTodayOrFuture: {
		Field:   FieldEndDate,
		Message: "The end date must be today or in the future",
	},
	dates.RuleStartTodayOrFuture: {
		Field:   FieldStartDate,
		Message: "The start date must be today or in the future",
	},
}

// ValidateActivityYear pre-checks a bare year, typed before the rest of the
// date is known. Returns nil when the year could still produce a valid date.
func ValidateActivityYear(field string, year int, vc dates.ValidationContext, today time.Time) *FieldError {
	rerr := dates.ValidateYear(year, vc, today)
	if rerr == nil {
		return nil
	}
	switch rerr.Rule {
	case dates.RuleYearTooEarly:
		return &FieldError{Field: field, Message: "The year must be this year or later"}
	case dates.RuleYearTooLate:
		return &FieldError{
			Field:   field,
			Message: fmt.Sprintf("The year must be within the next %d years", dates.MaxYearsInFuture),
		}
	}
	return &FieldError{Field: field, Message: "The year is invalid"}
}

// ValidateActivityDates runs the full per-submission date validation: the
// structural day/month/year checks for start and end run independently (both
// can be reported together); the range policy runs only when both dates
// parse, and surfaces its first violation only.
func ValidateActivityDates(form ActivityDatesForm, vc dates.ValidationContext, today time.Time) (models.ActivityDates, []FieldError) {
	var errs []FieldError

	start, startErr := validateDatePart("start", FieldStartDate, form.StartDay, form.StartMonth, form.StartYear)
	if startErr != nil {
		errs = append(errs, *startErr)
	}
	end, endErr := validateDatePart("end", FieldEndDate, form.EndDay, form.EndMonth, form.EndYear)
	if endErr != nil {
		errs = append(errs, *endErr)
	}
	if len(errs) > 0 {
		return models.ActivityDates{}, errs
	}

	if rerr := dates.ValidateDateRange(start, end, vc, today); rerr != nil {
		fe, ok := rangeMessages[rerr.Rule]
		if !ok {
			fe = FieldError{Field: FieldStartDate, Message: "The activity dates are invalid"}
		}
		return models.ActivityDates{}, []FieldError{fe}
	}

	return models.ActivityDates{
		Start: start.Format(time.DateOnly),
		End:   end.Format(time.DateOnly),
	}, nil
}

// validateDatePart checks presence of the three parts, then parses the
// triple into a real calendar date.
func validateDatePart(label, field, day, month, year string) (time.Time, *FieldError) {
	var missing []string
	if strings.TrimSpace(day) == "" {
		missing = append(missing, "day")
	}
	if strings.TrimSpace(month) == "" {
		missing = append(missing, "month")
	}
	if strings.TrimSpace(year) == "" {
		missing = append(missing, "year")
	}

	switch len(missing) {
	case 3:
		return time.Time{}, &FieldError{Field: field, Message: fmt.Sprintf("Enter the %s date", label)}
	case 2, 1:
		return time.Time{}, &FieldError{
			Field:   field,
			Message: fmt.Sprintf("The %s date must include a %s", label, strings.Join(missing, " and a ")),
		}
	}

	t, err := dates.ParseDateParts(day, month, year)
	if err != nil {
		if errors.Is(err, dates.ErrInvalidDate) {
			return time.Time{}, &FieldError{Field: field, Message: fmt.Sprintf("The %s date must be a real date", label)}
		}
		return time.Time{}, &FieldError{Field: field, Message: fmt.Sprintf("The %s date is invalid", label)}
	}
	return t, nil
}
