package validation

import (
	"errors"
	"strconv"

	"marlin/internal/exemption/coordinates"
)

// CentrePointForm is the primary two-field coordinate entry form.
type CentrePointForm struct {
	Eastings  string `json:"eastings"`
	Northings string `json:"northings"`
}

// PolygonForm is the multi-point boundary entry form. Unknown sibling fields
// in the request body are ignored by the JSON decoder, matching the source
// schema's unknown-key tolerance.
type PolygonForm struct {
	Coordinates []coordinates.Pair `json:"coordinates"`
}

// ValidateCentrePoint checks both axes with the generic field-keyed
// messages. Both fields are reported when both are invalid.
func ValidateCentrePoint(form CentrePointForm) []FieldError {
	var errs []FieldError
	if err := coordinates.ValidateValue(form.Eastings, coordinates.Eastings, coordinates.Constants()); err != nil {
		errs = append(errs, FieldError{Field: string(coordinates.Eastings), Message: err.Message})
	}
	if err := coordinates.ValidateValue(form.Northings, coordinates.Northings, coordinates.Constants()); err != nil {
		errs = append(errs, FieldError{Field: string(coordinates.Northings), Message: err.Message})
	}
	return errs
}

// ValidatePolygon checks the boundary point list, surfacing the first
// failure the engine reports.
func ValidatePolygon(form PolygonForm) []FieldError {
	err := coordinates.ValidatePolygon(form.Coordinates)
	if err == nil {
		return nil
	}

	var pe *coordinates.PointError
	if errors.As(err, &pe) {
		return []FieldError{{Field: pointField(pe), Message: pe.Err.Message}}
	}
	return []FieldError{{Field: "coordinates", Message: err.Error()}}
}

func pointField(pe *coordinates.PointError) string {
	// coordinates[1].eastings style, zero-based like the site index.
	return "coordinates[" + strconv.Itoa(pe.Point-1) + "]." + string(pe.Err.Axis)
}
