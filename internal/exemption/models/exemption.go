package models

import (
	"encoding/json"
	"time"

	id "marlin/pkg/domain"
)

// Answer values for the yes/no wizard questions.
const (
	AnswerYes = "yes"
	AnswerNo  = "no"
)

// Coordinates provenance for a site.
const (
	CoordinatesTypeFile   = "file"
	CoordinatesTypeManual = "coordinates"
)

// Uploaded geometry file formats.
const (
	FileUploadTypeKML       = "kml"
	FileUploadTypeShapefile = "shapefile"
)

// Manual coordinate entry modes.
const (
	CoordinatesEntrySingle   = "single"
	CoordinatesEntryMultiple = "multiple"
)

// Exemption is the session-cached aggregate built across the multi-step
// wizard. It is created when the project-name step completes, mutated by
// every site-details step, and cleared on submission or sign-out.
//
// Invariants:
//   - SiteDetails is dense: index == site number - 1, no gaps
//   - each mutator rewrites the aggregate atomically (one session commit per
//     logical change); no partial per-field merges outside the named mutators
type Exemption struct {
	ID                  id.ExemptionID      `json:"id"`
	ProjectName         string              `json:"projectName"`
	MultipleSiteDetails MultipleSiteDetails `json:"multipleSiteDetails"`
	SiteDetails         []SiteDetail        `json:"siteDetails"`
	PublicRegister      *PublicRegister     `json:"publicRegister,omitempty"`
	MCMSContext         *MCMSContext        `json:"mcmsContext,omitempty"`
	CreatedAt           time.Time           `json:"createdAt"`
}

// ArticleCode returns the regulatory article code from the originating MCMS
// context, or "" when the exemption has none.
func (e *Exemption) ArticleCode() string {
	if e.MCMSContext == nil {
		return ""
	}
	return e.MCMSContext.ArticleCode
}

// MCMSContext carries the originating marine case management context. Only
// the article code is consumed here; the rest of the upstream payload is out
// of scope.
type MCMSContext struct {
	ArticleCode string `json:"articleCode,omitempty"`
}

// PublicRegister records the applicant's public-register consent answer.
type PublicRegister struct {
	Consent string `json:"consent"`
	Reason  string `json:"reason,omitempty"`
}

// MultipleSiteDetails drives whether activity dates and descriptions are
// unique per site or replicated across all sites.
//
// The Same* fields are pointers WITHOUT omitempty on purpose: clearing one
// stores an explicit null in the session payload, unlike SiteDetail fields
// where clearing removes the key. Downstream readers distinguish the two.
type MultipleSiteDetails struct {
	MultipleSitesEnabled bool    `json:"multipleSitesEnabled"`
	SameActivityDates    *string `json:"sameActivityDates"`
	SameActivityDesc     *string `json:"sameActivityDescription"`
}

// ActivityDates holds the validated activity window as ISO date strings.
// Once persisted, Start <= End and both were within the article's allowed
// bounds at write time; bounds are not re-checked on read.
type ActivityDates struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// SiteDetail describes one physical site within an exemption.
//
// Clearable fields are pointers with omitempty: setting one to nil removes
// the key from the session payload entirely, so "has field" checks see
// absence rather than null.
type SiteDetail struct {
	SiteName             *string            `json:"siteName,omitempty"`
	CoordinatesType      *string            `json:"coordinatesType,omitempty"`
	FileUploadType       *string            `json:"fileUploadType,omitempty"`
	CoordinatesEntry     *string            `json:"coordinatesEntry,omitempty"`
	CoordinateSystem     *string            `json:"coordinateSystem,omitempty"`
	Coordinates          json.RawMessage    `json:"coordinates,omitempty"`
	CircleWidth          *string            `json:"circleWidth,omitempty"`
	ExtractedCoordinates json.RawMessage    `json:"extractedCoordinates,omitempty"`
	GeoJSON              *FeatureCollection `json:"geoJSON,omitempty"`
	ActivityDates        *ActivityDates     `json:"activityDates,omitempty"`
	ActivityDescription  *string            `json:"activityDescription,omitempty"`
	UploadedFile         *UploadedFile      `json:"uploadedFile,omitempty"`
	S3Location           *S3Location        `json:"s3Location,omitempty"`
	FeatureCount         *int               `json:"featureCount,omitempty"`
	UploadConfig         json.RawMessage    `json:"uploadConfig,omitempty"`
}

// FeatureCollection is the consumed slice of the GeoJSON schema: the type
// marker and an ordered feature list. Features stay opaque; this service
// never interprets their geometry.
type FeatureCollection struct {
	Type     string            `json:"type"`
	Features []json.RawMessage `json:"features"`
}

// UploadedFile describes the file behind a processed upload.
type UploadedFile struct {
	Filename string `json:"filename"`
}

// UploadStatus is the external upload service's terminal status for one
// uploaded file.
type UploadStatus struct {
	Filename    string `json:"filename"`
	FileType    string `json:"fileType,omitempty"`
	ContentType string `json:"contentType,omitempty"`
}

// S3Location points at the stored upload.
type S3Location struct {
	Bucket   string `json:"s3Bucket"`
	Key      string `json:"s3Key"`
	Checksum string `json:"checksumSha256,omitempty"`
}

// UploadGeometry is the coordinate payload extracted from an uploaded
// geometry file. ExtractedCoordinates is kept opaque; for multi-site uploads
// it must decode as a list with one entry per feature.
type UploadGeometry struct {
	ExtractedCoordinates json.RawMessage   `json:"extractedCoordinates"`
	GeoJSON              FeatureCollection `json:"geoJSON"`
}
