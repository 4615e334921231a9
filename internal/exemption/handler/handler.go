package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"marlin/internal/exemption/models"
	"marlin/internal/exemption/sites"
	"marlin/internal/exemption/validation"
	"marlin/internal/platform/middleware"
	dErrors "marlin/pkg/domain-errors"
	"marlin/pkg/platform/httputil"
	"marlin/pkg/requestcontext"
)

// Service defines the exemption operations the HTTP surface needs.
type Service interface {
	CreateExemption(ctx context.Context, sessionID, projectName, articleCode string) (*models.Exemption, error)
	Exemption(ctx context.Context, sessionID string) (*models.Exemption, error)
	SaveActivityDates(ctx context.Context, sessionID string, siteIndex int, form validation.ActivityDatesForm) ([]validation.FieldError, error)
	CheckActivityYear(ctx context.Context, sessionID, field string, year int) (*validation.FieldError, error)
	SaveActivityDescription(ctx context.Context, sessionID string, siteIndex int, description string) error
	SaveCentrePoint(ctx context.Context, sessionID string, siteIndex int, form validation.CentrePointForm) ([]validation.FieldError, error)
	SavePolygon(ctx context.Context, sessionID string, siteIndex int, form validation.PolygonForm) ([]validation.FieldError, error)
	ApplyUpload(ctx context.Context, sessionID string, status models.UploadStatus, geom models.UploadGeometry, loc models.S3Location, multipleSitesFile bool) ([]models.SiteDetail, error)
	UpdateSiteField(ctx context.Context, sessionID string, siteIndex int, field sites.Field, value any) (map[string]any, error)
	UpdateMultipleSiteDetails(ctx context.Context, sessionID string, field sites.Field, value any) (map[string]any, error)
	DeleteSite(ctx context.Context, sessionID string, siteIndex int) error
	ResetSiteDetails(ctx context.Context, sessionID string) error
	SnapshotSiteDetails(ctx context.Context, sessionID string) error
	RestoreSiteDetails(ctx context.Context, sessionID string) error
	Submit(ctx context.Context, sessionID string) (string, error)
}

// Handler exposes the exemption wizard over HTTP.
type Handler struct {
	logger       *slog.Logger
	service      Service
	jwtValidator middleware.JWTValidator
}

// New creates a new exemption Handler. The JWT validator may be nil, in
// which case the submit route is left open (local development only).
func New(service Service, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		service:      service,
		jwtValidator: jwtValidator,
	}
}

// Register registers the exemption routes with the chi router. The session
// middleware must already be installed upstream.
func (h *Handler) Register(r chi.Router) {
	r.Route("/exemption", func(r chi.Router) {
		r.Post("/", h.handleCreateExemption)
		r.Get("/", h.handleGetExemption)
		r.Put("/activity-dates", h.handleSaveActivityDates)
		r.Get("/activity-dates/year", h.handleCheckActivityYear)
		r.Put("/activity-description", h.handleSaveActivityDescription)
		r.Patch("/multiple-site-details", h.handleUpdateMultipleSiteDetails)

		r.Route("/sites", func(r chi.Router) {
			r.Post("/coordinates", h.handleSaveCentrePoint)
			r.Post("/polygon", h.handleSavePolygon)
			r.Post("/upload", h.handleUpload)
			r.Post("/snapshot", h.handleSnapshotSites)
			r.Post("/restore", h.handleRestoreSites)
			r.Delete("/", h.handleResetSites)
			r.Patch("/{index}", h.handleUpdateSiteField)
			r.Delete("/{index}", h.handleDeleteSite)
		})

		if h.jwtValidator != nil {
			r.With(middleware.RequireAuth(h.jwtValidator, h.logger)).
				Post("/submit", h.handleSubmit)
		} else {
			r.Post("/submit", h.handleSubmit)
		}
	})
}

func (h *Handler) handleCreateExemption(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req createExemptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	exm, err := h.service.CreateExemption(ctx, requestcontext.SessionID(ctx), req.ProjectName, req.ArticleCode)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to create exemption")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, exm)
}

func (h *Handler) handleGetExemption(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	exm, err := h.service.Exemption(ctx, requestcontext.SessionID(ctx))
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to load exemption")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, exm)
}

func (h *Handler) handleSaveActivityDates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req activityDatesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	fieldErrs, err := h.service.SaveActivityDates(ctx, requestcontext.SessionID(ctx), req.SiteIndex, req.ActivityDatesForm)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to save activity dates")
		return
	}
	if len(fieldErrs) > 0 {
		httputil.WriteJSON(w, http.StatusUnprocessableEntity, fieldErrorsResponse{Errors: fieldErrs})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleCheckActivityYear(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	field := r.URL.Query().Get("field")
	if field != validation.FieldStartDate && field != validation.FieldEndDate {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "field must be startDate or endDate"))
		return
	}
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "year must be a number"))
		return
	}

	fe, err := h.service.CheckActivityYear(ctx, requestcontext.SessionID(ctx), field, year)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to check year")
		return
	}
	if fe != nil {
		httputil.WriteJSON(w, http.StatusUnprocessableEntity, fieldErrorsResponse{Errors: []validation.FieldError{*fe}})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSaveActivityDescription(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req activityDescriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	if err := h.service.SaveActivityDescription(ctx, requestcontext.SessionID(ctx), req.SiteIndex, req.Description); err != nil {
		h.writeServiceError(ctx, w, err, "failed to save activity description")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSaveCentrePoint(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req centrePointRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	fieldErrs, err := h.service.SaveCentrePoint(ctx, requestcontext.SessionID(ctx), req.SiteIndex, req.CentrePointForm)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to save coordinates")
		return
	}
	if len(fieldErrs) > 0 {
		httputil.WriteJSON(w, http.StatusUnprocessableEntity, fieldErrorsResponse{Errors: fieldErrs})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSavePolygon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req polygonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	fieldErrs, err := h.service.SavePolygon(ctx, requestcontext.SessionID(ctx), req.SiteIndex, req.PolygonForm)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to save polygon")
		return
	}
	if len(fieldErrs) > 0 {
		httputil.WriteJSON(w, http.StatusUnprocessableEntity, fieldErrorsResponse{Errors: fieldErrs})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req uploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	updated, err := h.service.ApplyUpload(ctx, requestcontext.SessionID(ctx),
		req.UploadStatus, req.Geometry, req.S3Location, req.MultipleSitesFile)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to apply upload")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"siteDetails": updated})
}

func (h *Handler) handleUpdateSiteField(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "site index must be a number"))
		return
	}

	var req updateSiteFieldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	change, err := h.service.UpdateSiteField(ctx, requestcontext.SessionID(ctx), index, sites.Field(req.Field), normalizeValue(req.Value))
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to update site field")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, change)
}

func (h *Handler) handleUpdateMultipleSiteDetails(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req updateSiteFieldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	change, err := h.service.UpdateMultipleSiteDetails(ctx, requestcontext.SessionID(ctx), sites.Field(req.Field), normalizeValue(req.Value))
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to update multiple site details")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, change)
}

func (h *Handler) handleDeleteSite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "site index must be a number"))
		return
	}

	if err := h.service.DeleteSite(ctx, requestcontext.SessionID(ctx), index); err != nil {
		h.writeServiceError(ctx, w, err, "failed to delete site")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleResetSites(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.service.ResetSiteDetails(ctx, requestcontext.SessionID(ctx)); err != nil {
		h.writeServiceError(ctx, w, err, "failed to reset site details")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSnapshotSites(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.service.SnapshotSiteDetails(ctx, requestcontext.SessionID(ctx)); err != nil {
		h.writeServiceError(ctx, w, err, "failed to snapshot site details")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRestoreSites(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.service.RestoreSiteDetails(ctx, requestcontext.SessionID(ctx)); err != nil {
		h.writeServiceError(ctx, w, err, "failed to restore site details")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reference, err := h.service.Submit(ctx, requestcontext.SessionID(ctx))
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to submit exemption")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, submitResponse{ApplicationReference: reference})
}

// normalizeValue re-encodes decoded JSON objects and lists as raw JSON so
// the field mutators can store them opaquely. Scalars and nulls pass
// through.
func normalizeValue(value any) any {
	switch value.(type) {
	case map[string]any, []any:
		raw, err := json.Marshal(value)
		if err != nil {
			return value
		}
		return json.RawMessage(raw)
	}
	return value
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, err error, msg string) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	} else {
		h.logger.WarnContext(ctx, msg,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	httputil.WriteError(w, err)
}
