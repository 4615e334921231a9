// Package sites holds the pure site-collection operations: the per-site
// field mutators, whole-collection resets, and the upload batch updater that
// keeps multiple site records consistent during wizard navigation. Nothing
// here touches the session store; callers commit the returned collections.
package sites

import (
	"encoding/json"
	"fmt"

	"marlin/internal/exemption/models"
	dErrors "marlin/pkg/domain-errors"
)

// Field names a mutable SiteDetail field. The string values match the
// session payload keys.
type Field string

const (
	FieldSiteName             Field = "siteName"
	FieldCoordinatesType      Field = "coordinatesType"
	FieldFileUploadType       Field = "fileUploadType"
	FieldCoordinatesEntry     Field = "coordinatesEntry"
	FieldCoordinateSystem     Field = "coordinateSystem"
	FieldCoordinates          Field = "coordinates"
	FieldCircleWidth          Field = "circleWidth"
	FieldExtractedCoordinates Field = "extractedCoordinates"
	FieldGeoJSON              Field = "geoJSON"
	FieldActivityDates        Field = "activityDates"
	FieldActivityDescription  Field = "activityDescription"
	FieldUploadedFile         Field = "uploadedFile"
	FieldS3Location           Field = "s3Location"
	FieldFeatureCount         Field = "featureCount"
	FieldUploadConfig         Field = "uploadConfig"
)

// Multi-site detail fields for UpdateMultipleSiteDetails.
const (
	FieldMultipleSitesEnabled Field = "multipleSitesEnabled"
	FieldSameActivityDates    Field = "sameActivityDates"
	FieldSameActivityDesc     Field = "sameActivityDescription"
)

// UpdateField sets one field on the site at index. A nil value clears the
// field so the key disappears from the session payload entirely rather than
// being stored as null. Returns the applied change keyed by field name for
// the caller's convenience.
func UpdateField(siteDetails []models.SiteDetail, index int, field Field, value any) (map[string]any, error) {
	if index < 0 || index >= len(siteDetails) {
		return nil, dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("site index %d out of range", index))
	}
	site := &siteDetails[index]

	switch field {
	case FieldSiteName:
		if err := setString(&site.SiteName, field, value); err != nil {
			return nil, err
		}
	case FieldCoordinatesType:
		if err := setString(&site.CoordinatesType, field, value); err != nil {
			return nil, err
		}
	case FieldFileUploadType:
		if err := setString(&site.FileUploadType, field, value); err != nil {
			return nil, err
		}
	case FieldCoordinatesEntry:
		if err := setString(&site.CoordinatesEntry, field, value); err != nil {
			return nil, err
		}
	case FieldCoordinateSystem:
		if err := setString(&site.CoordinateSystem, field, value); err != nil {
			return nil, err
		}
	case FieldCircleWidth:
		if err := setString(&site.CircleWidth, field, value); err != nil {
			return nil, err
		}
	case FieldActivityDescription:
		if err := setString(&site.ActivityDescription, field, value); err != nil {
			return nil, err
		}
	case FieldCoordinates:
		if err := setRaw(&site.Coordinates, field, value); err != nil {
			return nil, err
		}
	case FieldExtractedCoordinates:
		if err := setRaw(&site.ExtractedCoordinates, field, value); err != nil {
			return nil, err
		}
	case FieldUploadConfig:
		if err := setRaw(&site.UploadConfig, field, value); err != nil {
			return nil, err
		}
	case FieldGeoJSON:
		switch v := value.(type) {
		case nil:
			site.GeoJSON = nil
		case models.FeatureCollection:
			site.GeoJSON = &v
		case *models.FeatureCollection:
			site.GeoJSON = v
		case json.RawMessage: // JSON objects arrive raw from the transport
			fc, err := decodeInto[models.FeatureCollection](v, field)
			if err != nil {
				return nil, err
			}
			site.GeoJSON = fc
		default:
			return nil, badFieldValue(field, value)
		}
	case FieldActivityDates:
		switch v := value.(type) {
		case nil:
			site.ActivityDates = nil
		case models.ActivityDates:
			site.ActivityDates = &v
		case *models.ActivityDates:
			site.ActivityDates = v
		case json.RawMessage:
			ad, err := decodeInto[models.ActivityDates](v, field)
			if err != nil {
				return nil, err
			}
			site.ActivityDates = ad
		default:
			return nil, badFieldValue(field, value)
		}
	case FieldUploadedFile:
		switch v := value.(type) {
		case nil:
			site.UploadedFile = nil
		case models.UploadedFile:
			site.UploadedFile = &v
		case *models.UploadedFile:
			site.UploadedFile = v
		case json.RawMessage:
			up, err := decodeInto[models.UploadedFile](v, field)
			if err != nil {
				return nil, err
			}
			site.UploadedFile = up
		default:
			return nil, badFieldValue(field, value)
		}
	case FieldS3Location:
		switch v := value.(type) {
		case nil:
			site.S3Location = nil
		case models.S3Location:
			site.S3Location = &v
		case *models.S3Location:
			site.S3Location = v
		case json.RawMessage:
			loc, err := decodeInto[models.S3Location](v, field)
			if err != nil {
				return nil, err
			}
			site.S3Location = loc
		default:
			return nil, badFieldValue(field, value)
		}
	case FieldFeatureCount:
		switch v := value.(type) {
		case nil:
			site.FeatureCount = nil
		case int:
			site.FeatureCount = &v
		case float64: // JSON numbers decode as float64
			n := int(v)
			site.FeatureCount = &n
		default:
			return nil, badFieldValue(field, value)
		}
	default:
		return nil, dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("unknown site field %q", field))
	}

	return map[string]any{string(field): value}, nil
}

// UpdateMultipleSiteDetails shallow-merges one field into the multi-site
// settings. Unlike UpdateField, a nil value is stored as an explicit null
// rather than removing the key; readers depend on the difference.
func UpdateMultipleSiteDetails(md *models.MultipleSiteDetails, field Field, value any) (map[string]any, error) {
	if md == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "multiple site details missing")
	}

	switch field {
	case FieldMultipleSitesEnabled:
		switch v := value.(type) {
		case nil:
			md.MultipleSitesEnabled = false
		case bool:
			md.MultipleSitesEnabled = v
		default:
			return nil, badFieldValue(field, value)
		}
	case FieldSameActivityDates:
		if err := setString(&md.SameActivityDates, field, value); err != nil {
			return nil, err
		}
	case FieldSameActivityDesc:
		if err := setString(&md.SameActivityDesc, field, value); err != nil {
			return nil, err
		}
	default:
		return nil, dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("unknown multiple site field %q", field))
	}

	return map[string]any{string(field): value}, nil
}

// Delete removes the site at index, keeping the collection dense.
func Delete(siteDetails []models.SiteDetail, index int) ([]models.SiteDetail, error) {
	if index < 0 || index >= len(siteDetails) {
		return nil, dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("site index %d out of range", index))
	}
	out := make([]models.SiteDetail, 0, len(siteDetails)-1)
	out = append(out, siteDetails[:index]...)
	out = append(out, siteDetails[index+1:]...)
	return out, nil
}

// ApplyUploadBatch produces the replacement site collection after a geometry
// file upload. Shared upload metadata is derived once; for a multi-site file
// every uploaded feature becomes one site, joined to existing slots by
// position. The caller commits the result as a whole, never a partial splice.
func ApplyUploadBatch(existing []models.SiteDetail, status models.UploadStatus, geom models.UploadGeometry, loc models.S3Location, multipleSitesFile bool) ([]models.SiteDetail, error) {
	// Shared metadata comes from the first existing site when present;
	// coordinatesType falls back to "file" since this path only runs for
	// uploads.
	coordinatesType := models.CoordinatesTypeFile
	if len(existing) > 0 && existing[0].CoordinatesType != nil {
		coordinatesType = *existing[0].CoordinatesType
	}
	var fileUploadType *string
	if len(existing) > 0 && existing[0].FileUploadType != nil {
		v := *existing[0].FileUploadType
		fileUploadType = &v
	}
	uploaded := models.UploadedFile{Filename: status.Filename}
	featureCount := 1

	applyShared := func(site *models.SiteDetail) {
		ct := coordinatesType
		fc := featureCount
		up := uploaded
		location := loc
		site.CoordinatesType = &ct
		site.FileUploadType = fileUploadType
		site.UploadedFile = &up
		site.S3Location = &location
		site.FeatureCount = &fc
		site.UploadConfig = nil
	}

	if !multipleSitesFile {
		// A non-multi-site upload always represents "the" site: full
		// overwrite of slot 0, no merge with whatever was there.
		var site models.SiteDetail
		applyShared(&site)
		site.ExtractedCoordinates = geom.ExtractedCoordinates
		fc := geom.GeoJSON
		site.GeoJSON = &fc
		return []models.SiteDetail{site}, nil
	}

	var perFeature []json.RawMessage
	if len(geom.ExtractedCoordinates) > 0 {
		if err := json.Unmarshal(geom.ExtractedCoordinates, &perFeature); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput,
				"extracted coordinates must be a list for multi-site uploads")
		}
	}

	out := make([]models.SiteDetail, 0, len(geom.GeoJSON.Features))
	for i, feature := range geom.GeoJSON.Features {
		var site models.SiteDetail
		if i < len(existing) {
			site = existing[i] // unrelated fields on the slot survive
		}
		applyShared(&site)
		if i < len(perFeature) {
			site.ExtractedCoordinates = perFeature[i]
		} else {
			site.ExtractedCoordinates = nil
		}
		site.GeoJSON = &models.FeatureCollection{
			Type:     "FeatureCollection",
			Features: []json.RawMessage{feature},
		}
		out = append(out, site)
	}
	return out, nil
}

func setString(target **string, field Field, value any) error {
	switch v := value.(type) {
	case nil:
		*target = nil
	case string:
		*target = &v
	case *string:
		*target = v
	default:
		return badFieldValue(field, value)
	}
	return nil
}

func setRaw(target *json.RawMessage, field Field, value any) error {
	switch v := value.(type) {
	case nil:
		*target = nil
	case json.RawMessage:
		*target = v
	case []byte:
		*target = json.RawMessage(v)
	default:
		return badFieldValue(field, value)
	}
	return nil
}

func decodeInto[T any](raw json.RawMessage, field Field) (*T, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, fmt.Sprintf("malformed value for field %q", field))
	}
	return &v, nil
}

func badFieldValue(field Field, value any) error {
	return dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unsupported value type %T for field %q", value, field))
}
