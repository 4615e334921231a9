package handler

import (
	"marlin/internal/exemption/models"
	"marlin/internal/exemption/validation"
)

type createExemptionRequest struct {
	ProjectName string `json:"projectName"`
	ArticleCode string `json:"articleCode"`
}

type activityDatesRequest struct {
	SiteIndex int `json:"siteIndex"`
	validation.ActivityDatesForm
}

type activityDescriptionRequest struct {
	SiteIndex   int    `json:"siteIndex"`
	Description string `json:"activityDescription"`
}

type centrePointRequest struct {
	SiteIndex int `json:"siteIndex"`
	validation.CentrePointForm
}

type polygonRequest struct {
	SiteIndex int `json:"siteIndex"`
	validation.PolygonForm
}

type uploadRequest struct {
	UploadStatus      models.UploadStatus   `json:"uploadStatus"`
	Geometry          models.UploadGeometry `json:"geometry"`
	S3Location        models.S3Location     `json:"s3Location"`
	MultipleSitesFile bool                  `json:"multipleSitesFile"`
}

type updateSiteFieldRequest struct {
	Field string `json:"field"`
	Value any    `json:"value"`
}

type fieldErrorsResponse struct {
	Errors []validation.FieldError `json:"errors"`
}

type submitResponse struct {
	ApplicationReference string `json:"applicationReference"`
}
