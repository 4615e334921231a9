package sites

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marlin/internal/exemption/models"
	dErrors "marlin/pkg/domain-errors"
)

func strptr(s string) *string { return &s }

func TestUpdateField(t *testing.T) {
	t.Run("sets a string field", func(t *testing.T) {
		siteDetails := []models.SiteDetail{{}}
		change, err := UpdateField(siteDetails, 0, FieldSiteName, "North berth")
		require.NoError(t, err)
		require.NotNil(t, siteDetails[0].SiteName)
		assert.Equal(t, "North berth", *siteDetails[0].SiteName)
		assert.Equal(t, map[string]any{"siteName": "North berth"}, change)
	})

	t.Run("nil clears the field so the key is absent after a round trip", func(t *testing.T) {
		siteDetails := []models.SiteDetail{{
			ActivityDates: &models.ActivityDates{Start: "2026-04-01", End: "2026-05-01"},
		}}
		_, err := UpdateField(siteDetails, 0, FieldActivityDates, nil)
		require.NoError(t, err)
		assert.Nil(t, siteDetails[0].ActivityDates)

		raw, err := json.Marshal(siteDetails[0])
		require.NoError(t, err)
		var asMap map[string]any
		require.NoError(t, json.Unmarshal(raw, &asMap))
		_, present := asMap["activityDates"]
		assert.False(t, present, "cleared field must not serialize as null")
	})

	t.Run("rejects out of range index", func(t *testing.T) {
		_, err := UpdateField([]models.SiteDetail{{}}, 1, FieldSiteName, "x")
		require.Error(t, err)
		_, err = UpdateField(nil, 0, FieldSiteName, "x")
		require.Error(t, err)
	})

	t.Run("rejects mistyped values", func(t *testing.T) {
		_, err := UpdateField([]models.SiteDetail{{}}, 0, FieldSiteName, 42)
		require.Error(t, err)
	})

	t.Run("feature count accepts JSON decoded numbers", func(t *testing.T) {
		siteDetails := []models.SiteDetail{{}}
		_, err := UpdateField(siteDetails, 0, FieldFeatureCount, float64(3))
		require.NoError(t, err)
		require.NotNil(t, siteDetails[0].FeatureCount)
		assert.Equal(t, 3, *siteDetails[0].FeatureCount)
	})

	t.Run("struct fields accept raw JSON objects", func(t *testing.T) {
		siteDetails := []models.SiteDetail{{}}

		_, err := UpdateField(siteDetails, 0, FieldActivityDates,
			json.RawMessage(`{"start":"2027-05-01","end":"2027-05-20"}`))
		require.NoError(t, err)
		require.NotNil(t, siteDetails[0].ActivityDates)
		assert.Equal(t, "2027-05-01", siteDetails[0].ActivityDates.Start)
		assert.Equal(t, "2027-05-20", siteDetails[0].ActivityDates.End)

		_, err = UpdateField(siteDetails, 0, FieldGeoJSON,
			json.RawMessage(`{"type":"FeatureCollection","features":[{"id":"a"}]}`))
		require.NoError(t, err)
		require.NotNil(t, siteDetails[0].GeoJSON)
		assert.Len(t, siteDetails[0].GeoJSON.Features, 1)

		_, err = UpdateField(siteDetails, 0, FieldUploadedFile,
			json.RawMessage(`{"filename":"boundary.kml"}`))
		require.NoError(t, err)
		require.NotNil(t, siteDetails[0].UploadedFile)
		assert.Equal(t, "boundary.kml", siteDetails[0].UploadedFile.Filename)

		_, err = UpdateField(siteDetails, 0, FieldS3Location,
			json.RawMessage(`{"s3Bucket":"uploads","s3Key":"abc/boundary.kml"}`))
		require.NoError(t, err)
		require.NotNil(t, siteDetails[0].S3Location)
		assert.Equal(t, "uploads", siteDetails[0].S3Location.Bucket)
	})

	t.Run("struct fields reject malformed raw JSON", func(t *testing.T) {
		_, err := UpdateField([]models.SiteDetail{{}}, 0, FieldActivityDates,
			json.RawMessage(`{"start":`))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("only the addressed site changes", func(t *testing.T) {
		siteDetails := []models.SiteDetail{
			{SiteName: strptr("one")},
			{SiteName: strptr("two")},
		}
		_, err := UpdateField(siteDetails, 1, FieldSiteName, "renamed")
		require.NoError(t, err)
		assert.Equal(t, "one", *siteDetails[0].SiteName)
		assert.Equal(t, "renamed", *siteDetails[1].SiteName)
	})
}

func TestUpdateMultipleSiteDetails(t *testing.T) {
	t.Run("nil is stored as explicit null, not key removal", func(t *testing.T) {
		md := models.MultipleSiteDetails{SameActivityDates: strptr(models.AnswerYes)}
		_, err := UpdateMultipleSiteDetails(&md, FieldSameActivityDates, nil)
		require.NoError(t, err)
		assert.Nil(t, md.SameActivityDates)

		raw, err := json.Marshal(md)
		require.NoError(t, err)
		var asMap map[string]any
		require.NoError(t, json.Unmarshal(raw, &asMap))
		v, present := asMap["sameActivityDates"]
		assert.True(t, present, "cleared multi-site field keeps its key")
		assert.Nil(t, v)
	})

	t.Run("merges one field shallowly", func(t *testing.T) {
		md := models.MultipleSiteDetails{
			MultipleSitesEnabled: true,
			SameActivityDates:    strptr(models.AnswerNo),
		}
		_, err := UpdateMultipleSiteDetails(&md, FieldSameActivityDesc, models.AnswerYes)
		require.NoError(t, err)
		assert.True(t, md.MultipleSitesEnabled)
		assert.Equal(t, models.AnswerNo, *md.SameActivityDates)
		assert.Equal(t, models.AnswerYes, *md.SameActivityDesc)
	})
}

func TestDelete(t *testing.T) {
	siteDetails := []models.SiteDetail{
		{SiteName: strptr("a")},
		{SiteName: strptr("b")},
		{SiteName: strptr("c")},
	}

	t.Run("removes one site and keeps the collection dense", func(t *testing.T) {
		out, err := Delete(siteDetails, 1)
		require.NoError(t, err)
		require.Len(t, out, 2)
		assert.Equal(t, "a", *out[0].SiteName)
		assert.Equal(t, "c", *out[1].SiteName)
	})

	t.Run("rejects out of range index", func(t *testing.T) {
		_, err := Delete(siteDetails, 3)
		require.Error(t, err)
		_, err = Delete(siteDetails, -1)
		require.Error(t, err)
	})
}

func uploadFixture(features int) models.UploadGeometry {
	fc := models.FeatureCollection{Type: "FeatureCollection"}
	coords := make([]json.RawMessage, 0, features)
	for i := 0; i < features; i++ {
		fc.Features = append(fc.Features, json.RawMessage(
			`{"type":"Feature","properties":{"n":`+string(rune('0'+i))+`}}`))
		coords = append(coords, json.RawMessage(`[[123456,654321]]`))
	}
	raw, _ := json.Marshal(coords)
	return models.UploadGeometry{ExtractedCoordinates: raw, GeoJSON: fc}
}

func TestApplyUploadBatch_SingleSite(t *testing.T) {
	existing := []models.SiteDetail{{
		SiteName:       strptr("old name"),
		FileUploadType: strptr(models.FileUploadTypeKML),
		ActivityDates:  &models.ActivityDates{Start: "2026-04-01", End: "2026-05-01"},
	}}
	geom := uploadFixture(2)
	status := models.UploadStatus{Filename: "boundary.kml"}
	loc := models.S3Location{Bucket: "uploads", Key: "abc/boundary.kml"}

	out, err := ApplyUploadBatch(existing, status, geom, loc, false)
	require.NoError(t, err)
	require.Len(t, out, 1)

	site := out[0]
	// Full overwrite: nothing from the old slot 0 survives except the shared
	// fileUploadType derived from it.
	assert.Nil(t, site.SiteName)
	assert.Nil(t, site.ActivityDates)
	assert.Equal(t, models.FileUploadTypeKML, *site.FileUploadType)
	assert.Equal(t, models.CoordinatesTypeFile, *site.CoordinatesType)
	assert.Equal(t, "boundary.kml", site.UploadedFile.Filename)
	assert.Equal(t, loc, *site.S3Location)
	assert.Equal(t, 1, *site.FeatureCount)
	assert.Nil(t, site.UploadConfig)

	// The payload is carried verbatim, not per-feature wrapped.
	assert.Equal(t, geom.ExtractedCoordinates, site.ExtractedCoordinates)
	require.NotNil(t, site.GeoJSON)
	assert.Equal(t, geom.GeoJSON, *site.GeoJSON)
}

func TestApplyUploadBatch_MultiSite(t *testing.T) {
	existing := []models.SiteDetail{
		{
			SiteName:       strptr("first"),
			FileUploadType: strptr(models.FileUploadTypeShapefile),
			ActivityDates:  &models.ActivityDates{Start: "2026-04-01", End: "2026-05-01"},
		},
		{SiteName: strptr("second")},
	}
	geom := uploadFixture(3)
	status := models.UploadStatus{Filename: "sites.zip"}
	loc := models.S3Location{Bucket: "uploads", Key: "abc/sites.zip"}

	out, err := ApplyUploadBatch(existing, status, geom, loc, true)
	require.NoError(t, err)
	require.Len(t, out, 3, "one site per uploaded feature")

	var perFeature []json.RawMessage
	require.NoError(t, json.Unmarshal(geom.ExtractedCoordinates, &perFeature))

	for i, site := range out {
		require.NotNil(t, site.GeoJSON, "site %d", i)
		require.Len(t, site.GeoJSON.Features, 1, "site %d carries a singleton FeatureCollection", i)
		assert.Equal(t, geom.GeoJSON.Features[i], site.GeoJSON.Features[0], "site %d", i)
		assert.Equal(t, perFeature[i], site.ExtractedCoordinates, "site %d", i)
		assert.Equal(t, 1, *site.FeatureCount, "site %d", i)
		assert.Equal(t, models.FileUploadTypeShapefile, *site.FileUploadType, "site %d", i)
	}

	// Unrelated fields on existing slots survive the merge; new slots start
	// empty.
	assert.Equal(t, "first", *out[0].SiteName)
	require.NotNil(t, out[0].ActivityDates)
	assert.Equal(t, "second", *out[1].SiteName)
	assert.Nil(t, out[2].SiteName)
}

func TestApplyUploadBatch_EdgeCases(t *testing.T) {
	t.Run("multi-site upload with no existing sites", func(t *testing.T) {
		geom := uploadFixture(2)
		out, err := ApplyUploadBatch(nil, models.UploadStatus{Filename: "f.kml"}, geom, models.S3Location{}, true)
		require.NoError(t, err)
		require.Len(t, out, 2)
		assert.Nil(t, out[0].FileUploadType, "no first site to derive the upload type from")
	})

	t.Run("multi-site rejects non-list extracted coordinates", func(t *testing.T) {
		geom := uploadFixture(1)
		geom.ExtractedCoordinates = json.RawMessage(`{"not":"a list"}`)
		_, err := ApplyUploadBatch(nil, models.UploadStatus{}, geom, models.S3Location{}, true)
		require.Error(t, err)
	})

	t.Run("coordinatesType derives from the first existing site", func(t *testing.T) {
		existing := []models.SiteDetail{{CoordinatesType: strptr(models.CoordinatesTypeManual)}}
		out, err := ApplyUploadBatch(existing, models.UploadStatus{}, uploadFixture(1), models.S3Location{}, false)
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, models.CoordinatesTypeManual, *out[0].CoordinatesType)

		// With no first site to derive from it falls back to "file".
		out, err = ApplyUploadBatch(nil, models.UploadStatus{}, uploadFixture(1), models.S3Location{}, false)
		require.NoError(t, err)
		assert.Equal(t, models.CoordinatesTypeFile, *out[0].CoordinatesType)
	})

	t.Run("more features than extracted entries leaves the tail without coordinates", func(t *testing.T) {
		geom := uploadFixture(2)
		geom.ExtractedCoordinates = json.RawMessage(`[[[123456,654321]]]`)
		out, err := ApplyUploadBatch(nil, models.UploadStatus{}, geom, models.S3Location{}, true)
		require.NoError(t, err)
		require.Len(t, out, 2)
		assert.NotNil(t, out[0].ExtractedCoordinates)
		assert.Nil(t, out[1].ExtractedCoordinates)
	})
}
