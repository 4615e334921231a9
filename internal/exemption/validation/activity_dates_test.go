package validation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marlin/internal/exemption/coordinates"
	"marlin/internal/exemption/dates"
)

var today = time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)

func validForm() ActivityDatesForm {
	return ActivityDatesForm{
		StartDay: "1", StartMonth: "4", StartYear: "2026",
		EndDay: "1", EndMonth: "5", EndYear: "2026",
	}
}

func TestValidateActivityDates_Success(t *testing.T) {
	got, errs := ValidateActivityDates(validForm(), dates.ValidationContext{}, today)
	require.Empty(t, errs)
	assert.Equal(t, "2026-04-01", got.Start)
	assert.Equal(t, "2026-05-01", got.End)
}

func TestValidateActivityDates_StructuralErrors(t *testing.T) {
	t.Run("missing start date", func(t *testing.T) {
		form := validForm()
		form.StartDay, form.StartMonth, form.StartYear = "", "", ""
		_, errs := ValidateActivityDates(form, dates.ValidationContext{}, today)
		require.Len(t, errs, 1)
		assert.Equal(t, FieldStartDate, errs[0].Field)
		assert.Equal(t, "Enter the start date", errs[0].Message)
	})

	t.Run("partially missing parts name the gaps", func(t *testing.T) {
		form := validForm()
		form.EndMonth, form.EndYear = "", ""
		_, errs := ValidateActivityDates(form, dates.ValidationContext{}, today)
		require.Len(t, errs, 1)
		assert.Equal(t, FieldEndDate, errs[0].Field)
		assert.Equal(t, "The end date must include a month and a year", errs[0].Message)
	})

	t.Run("start and end structural errors are reported together", func(t *testing.T) {
		form := ActivityDatesForm{
			StartDay: "31", StartMonth: "2", StartYear: "2026", // Feb 31
			EndDay: "", EndMonth: "", EndYear: "",
		}
		_, errs := ValidateActivityDates(form, dates.ValidationContext{}, today)
		require.Len(t, errs, 2)
		assert.Equal(t, FieldStartDate, errs[0].Field)
		assert.Equal(t, "The start date must be a real date", errs[0].Message)
		assert.Equal(t, FieldEndDate, errs[1].Field)
		assert.Equal(t, "Enter the end date", errs[1].Message)
	})

	t.Run("range checks do not run when a date is structurally invalid", func(t *testing.T) {
		form := validForm()
		form.StartDay = "31"
		form.StartMonth = "2"
		// The end date is also before the start here, but only the
		// structural error may surface.
		form.EndYear = "2025"
		_, errs := ValidateActivityDates(form, dates.ValidationContext{}, today)
		require.Len(t, errs, 1)
		assert.Equal(t, "The start date must be a real date", errs[0].Message)
	})
}

func TestValidateActivityDates_RangeErrors(t *testing.T) {
	t.Run("first violation in policy order wins", func(t *testing.T) {
		// End before start AND both in the past: order fires first.
		form := ActivityDatesForm{
			StartDay: "2", StartMonth: "1", StartYear: "2020",
			EndDay: "1", EndMonth: "1", EndYear: "2020",
		}
		_, errs := ValidateActivityDates(form, dates.ValidationContext{}, today)
		require.Len(t, errs, 1)
		assert.Equal(t, FieldEndDate, errs[0].Field)
		assert.Equal(t, "The end date must be the same as or after the start date", errs[0].Message)
	})

	t.Run("future bound message", func(t *testing.T) {
		form := ActivityDatesForm{
			StartDay: "11", StartMonth: "3", StartYear: "2036",
			EndDay: "11", EndMonth: "3", EndYear: "2036",
		}
		_, errs := ValidateActivityDates(form, dates.ValidationContext{}, today)
		require.Len(t, errs, 1)
		assert.Equal(t, FieldStartDate, errs[0].Field)
		assert.Equal(t, "The start date must be within the next 10 years", errs[0].Message)
	})

	t.Run("apart bound message", func(t *testing.T) {
		form := ActivityDatesForm{
			StartDay: "1", StartMonth: "4", StartYear: "2026",
			EndDay: "2", EndMonth: "4", EndYear: "2027",
		}
		_, errs := ValidateActivityDates(form, dates.ValidationContext{}, today)
		require.Len(t, errs, 1)
		assert.Equal(t, "The end date must be no more than 1 year after the start date", errs[0].Message)
	})

	t.Run("past dates pass for exempt article codes", func(t *testing.T) {
		form := ActivityDatesForm{
			StartDay: "1", StartMonth: "1", StartYear: "2026",
			EndDay: "1", EndMonth: "2", EndYear: "2026",
		}
		got, errs := ValidateActivityDates(form, dates.ValidationContext{ArticleCode: "20"}, today)
		require.Empty(t, errs)
		assert.Equal(t, "2026-01-01", got.Start)

		_, errs = ValidateActivityDates(form, dates.ValidationContext{ArticleCode: "17"}, today)
		require.Len(t, errs, 1)
		assert.Equal(t, "The end date must be today or in the future", errs[0].Message)
	})
}

func TestValidateCentrePoint(t *testing.T) {
	t.Run("valid pair has no errors", func(t *testing.T) {
		assert.Empty(t, ValidateCentrePoint(CentrePointForm{Eastings: "123456", Northings: "654321"}))
	})

	t.Run("both fields can be reported together", func(t *testing.T) {
		errs := ValidateCentrePoint(CentrePointForm{Eastings: "", Northings: "12a"})
		require.Len(t, errs, 2)
		assert.Equal(t, "eastings", errs[0].Field)
		assert.Equal(t, "Enter the eastings", errs[0].Message)
		assert.Equal(t, "northings", errs[1].Field)
		assert.Equal(t, "The northings must be a number", errs[1].Message)
	})
}

func TestValidatePolygonForm(t *testing.T) {
	t.Run("too few points", func(t *testing.T) {
		errs := ValidatePolygon(PolygonForm{})
		require.Len(t, errs, 1)
		assert.Equal(t, "coordinates", errs[0].Field)
	})

	t.Run("bad point is addressed by index and axis", func(t *testing.T) {
		form := PolygonForm{}
		for _, e := range []string{"123456", "-1", "123456"} {
			form.Coordinates = append(form.Coordinates, coordinates.Pair{Eastings: e, Northings: "654321"})
		}
		errs := ValidatePolygon(form)
		require.Len(t, errs, 1)
		assert.Equal(t, "coordinates[1].eastings", errs[0].Field)
		assert.Equal(t, "Eastings must be a positive number", errs[0].Message)
	})
}
