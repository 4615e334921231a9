package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"marlin/internal/exemption/dates"
	"marlin/internal/exemption/metrics"
	"marlin/internal/exemption/models"
	"marlin/internal/exemption/sites"
	"marlin/internal/exemption/store/session"
	"marlin/internal/exemption/validation"
	id "marlin/pkg/domain"
	dErrors "marlin/pkg/domain-errors"
	"marlin/pkg/platform/audit"
	"marlin/pkg/platform/sentinel"
	"marlin/pkg/requestcontext"
)

// Backend submits completed exemptions to the marine case management
// system.
type Backend interface {
	SubmitExemption(ctx context.Context, exm *models.Exemption) (string, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service orchestrates the exemption wizard: it owns the load-mutate-commit
// cycle around the session cache, runs the validators, and fans out audit
// events and metrics.
type Service struct {
	cache          *session.Cache
	backend        Backend
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithBackend(backend Backend) Option {
	return func(s *Service) {
		s.backend = backend
	}
}

// New constructs a Service.
func New(cache *session.Cache, opts ...Option) *Service {
	s := &Service{
		cache:  cache,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateExemption starts a fresh exemption for the session, replacing any
// in-progress one. The article code ties the notification back to the
// originating marine case management context and drives date validation.
func (s *Service) CreateExemption(ctx context.Context, sessionID, projectName, articleCode string) (*models.Exemption, error) {
	projectName = strings.TrimSpace(projectName)
	if projectName == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "project name is required")
	}

	exm := &models.Exemption{
		ID:          id.NewExemptionID(),
		ProjectName: projectName,
		SiteDetails: []models.SiteDetail{},
		CreatedAt:   requestcontext.Now(ctx),
	}
	if articleCode != "" {
		exm.MCMSContext = &models.MCMSContext{ArticleCode: articleCode}
	}

	if err := s.cache.SaveExemption(ctx, sessionID, exm); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save exemption")
	}

	s.emitAudit(ctx, exm, audit.EventExemptionCreated, "", "")
	return exm, nil
}

// Exemption loads the session's in-progress exemption.
func (s *Service) Exemption(ctx context.Context, sessionID string) (*models.Exemption, error) {
	exm, err := s.cache.Exemption(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no exemption in progress")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load exemption")
	}
	return exm, nil
}

// SaveActivityDates validates the submitted date parts against the
// exemption's article and, when valid, writes the window onto the site at
// siteIndex. When the session has opted into shared dates the window is then
// replicated to every other site.
func (s *Service) SaveActivityDates(ctx context.Context, sessionID string, siteIndex int, form validation.ActivityDatesForm) ([]validation.FieldError, error) {
	exm, err := s.Exemption(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	vc := dates.ValidationContext{ArticleCode: exm.ArticleCode()}
	window, fieldErrs := validation.ValidateActivityDates(form, vc, requestcontext.Now(ctx))
	if len(fieldErrs) > 0 {
		s.incValidationFailures()
		return fieldErrs, nil
	}

	if err := s.ensureSite(exm, siteIndex); err != nil {
		return nil, err
	}
	exm.SiteDetails[siteIndex].ActivityDates = &window

	if err := s.cache.SaveExemption(ctx, sessionID, exm); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save activity dates")
	}

	if err := s.PropagateActivityDates(ctx, sessionID); err != nil {
		return nil, err
	}

	s.emitAudit(ctx, exm, audit.EventSiteDetailsUpdated, "activityDates", "")
	s.incSitesUpdated()
	return nil, nil
}

// PropagateActivityDates copies the first site's activity window onto every
// other site when the session has answered yes to shared dates. Each site is
// written and committed individually in ascending order; a failure part way
// leaves earlier sites updated.
func (s *Service) PropagateActivityDates(ctx context.Context, sessionID string) error {
	exm, err := s.Exemption(ctx, sessionID)
	if err != nil {
		return err
	}
	if !sameAnswer(exm.MultipleSiteDetails.SameActivityDates) {
		return nil
	}
	if len(exm.SiteDetails) == 0 || exm.SiteDetails[0].ActivityDates == nil {
		return nil
	}

	source := *exm.SiteDetails[0].ActivityDates
	for i := 1; i < len(exm.SiteDetails); i++ {
		w := source
		exm.SiteDetails[i].ActivityDates = &w
		if err := s.cache.SaveExemption(ctx, sessionID, exm); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to propagate activity dates")
		}
	}
	return nil
}

// PropagateActivityDescription is the description counterpart of
// PropagateActivityDates.
func (s *Service) PropagateActivityDescription(ctx context.Context, sessionID string) error {
	exm, err := s.Exemption(ctx, sessionID)
	if err != nil {
		return err
	}
	if !sameAnswer(exm.MultipleSiteDetails.SameActivityDesc) {
		return nil
	}
	if len(exm.SiteDetails) == 0 || exm.SiteDetails[0].ActivityDescription == nil {
		return nil
	}

	source := *exm.SiteDetails[0].ActivityDescription
	for i := 1; i < len(exm.SiteDetails); i++ {
		d := source
		exm.SiteDetails[i].ActivityDescription = &d
		if err := s.cache.SaveExemption(ctx, sessionID, exm); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to propagate activity description")
		}
	}
	return nil
}

// CheckActivityYear pre-checks a bare year as typed into the date picker,
// before the full date exists.
func (s *Service) CheckActivityYear(ctx context.Context, sessionID, field string, year int) (*validation.FieldError, error) {
	exm, err := s.Exemption(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	vc := dates.ValidationContext{ArticleCode: exm.ArticleCode()}
	fe := validation.ValidateActivityYear(field, year, vc, requestcontext.Now(ctx))
	if fe != nil {
		s.incValidationFailures()
	}
	return fe, nil
}

// SaveActivityDescription writes the activity description for one site,
// replicating it across sites when the shared-description answer is yes.
func (s *Service) SaveActivityDescription(ctx context.Context, sessionID string, siteIndex int, description string) error {
	description = strings.TrimSpace(description)
	if description == "" {
		s.incValidationFailures()
		return dErrors.New(dErrors.CodeValidation, "activity description is required")
	}

	exm, err := s.Exemption(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := s.ensureSite(exm, siteIndex); err != nil {
		return err
	}
	exm.SiteDetails[siteIndex].ActivityDescription = &description

	if err := s.cache.SaveExemption(ctx, sessionID, exm); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save activity description")
	}

	if err := s.PropagateActivityDescription(ctx, sessionID); err != nil {
		return err
	}

	s.emitAudit(ctx, exm, audit.EventSiteDetailsUpdated, "activityDescription", "")
	s.incSitesUpdated()
	return nil
}

// SaveCentrePoint validates a single centre-point coordinate pair and stores
// it on the site.
func (s *Service) SaveCentrePoint(ctx context.Context, sessionID string, siteIndex int, form validation.CentrePointForm) ([]validation.FieldError, error) {
	if fieldErrs := validation.ValidateCentrePoint(form); len(fieldErrs) > 0 {
		s.incValidationFailures()
		return fieldErrs, nil
	}
	return s.saveCoordinates(ctx, sessionID, siteIndex, models.CoordinatesEntrySingle, form)
}

// SavePolygon validates a set of boundary points and stores them on the
// site.
func (s *Service) SavePolygon(ctx context.Context, sessionID string, siteIndex int, form validation.PolygonForm) ([]validation.FieldError, error) {
	if fieldErrs := validation.ValidatePolygon(form); len(fieldErrs) > 0 {
		s.incValidationFailures()
		return fieldErrs, nil
	}
	return s.saveCoordinates(ctx, sessionID, siteIndex, models.CoordinatesEntryMultiple, form)
}

func (s *Service) saveCoordinates(ctx context.Context, sessionID string, siteIndex int, entry string, form any) ([]validation.FieldError, error) {
	exm, err := s.Exemption(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureSite(exm, siteIndex); err != nil {
		return nil, err
	}

	site := &exm.SiteDetails[siteIndex]
	coordinatesType := models.CoordinatesTypeManual
	site.CoordinatesType = &coordinatesType
	e := entry
	site.CoordinatesEntry = &e
	raw, err := json.Marshal(form)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode coordinates")
	}
	site.Coordinates = raw

	if err := s.cache.SaveExemption(ctx, sessionID, exm); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save coordinates")
	}

	s.emitAudit(ctx, exm, audit.EventSiteDetailsUpdated, "coordinates", "")
	s.incSitesUpdated()
	return nil, nil
}

// ApplyUpload replaces the site collection from a processed geometry file
// upload. The whole collection is committed at once, never a partial splice.
func (s *Service) ApplyUpload(ctx context.Context, sessionID string, status models.UploadStatus, geom models.UploadGeometry, loc models.S3Location, multipleSitesFile bool) ([]models.SiteDetail, error) {
	exm, err := s.Exemption(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	updated, err := sites.ApplyUploadBatch(exm.SiteDetails, status, geom, loc, multipleSitesFile)
	if err != nil {
		return nil, err
	}
	exm.SiteDetails = updated

	if err := s.cache.SaveExemption(ctx, sessionID, exm); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save uploaded sites")
	}

	s.emitAudit(ctx, exm, audit.EventUploadProcessed, "siteDetails", status.Filename)
	s.incUploadsProcessed()
	return updated, nil
}

// UpdateSiteField sets one field on one site. Passing a nil value clears
// the field.
func (s *Service) UpdateSiteField(ctx context.Context, sessionID string, siteIndex int, field sites.Field, value any) (map[string]any, error) {
	exm, err := s.Exemption(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureSite(exm, siteIndex); err != nil {
		return nil, err
	}

	change, err := sites.UpdateField(exm.SiteDetails, siteIndex, field, value)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SaveExemption(ctx, sessionID, exm); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save site field")
	}

	s.emitAudit(ctx, exm, audit.EventSiteDetailsUpdated, string(field), "")
	s.incSitesUpdated()
	return change, nil
}

// UpdateMultipleSiteDetails sets one field on the multi-site settings.
// Clearing a Same* answer stores an explicit null rather than removing the
// key.
func (s *Service) UpdateMultipleSiteDetails(ctx context.Context, sessionID string, field sites.Field, value any) (map[string]any, error) {
	exm, err := s.Exemption(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	change, err := sites.UpdateMultipleSiteDetails(&exm.MultipleSiteDetails, field, value)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SaveExemption(ctx, sessionID, exm); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save multiple site details")
	}

	s.emitAudit(ctx, exm, audit.EventSiteDetailsUpdated, string(field), "")
	s.incSitesUpdated()
	return change, nil
}

// DeleteSite removes the site at siteIndex, keeping the collection dense.
func (s *Service) DeleteSite(ctx context.Context, sessionID string, siteIndex int) error {
	exm, err := s.Exemption(ctx, sessionID)
	if err != nil {
		return err
	}

	remaining, err := sites.Delete(exm.SiteDetails, siteIndex)
	if err != nil {
		return err
	}
	exm.SiteDetails = remaining

	if err := s.cache.SaveExemption(ctx, sessionID, exm); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete site")
	}

	s.emitAudit(ctx, exm, audit.EventSiteDetailsUpdated, "siteDetails", "")
	s.incSitesUpdated()
	return nil
}

// ResetSiteDetails drops every site and the multi-site settings, returning
// the wizard to the start of the site journey.
func (s *Service) ResetSiteDetails(ctx context.Context, sessionID string) error {
	exm, err := s.Exemption(ctx, sessionID)
	if err != nil {
		return err
	}

	exm.MultipleSiteDetails = models.MultipleSiteDetails{}
	exm.SiteDetails = []models.SiteDetail{}

	if err := s.cache.SaveExemption(ctx, sessionID, exm); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to reset site details")
	}

	s.emitAudit(ctx, exm, audit.EventSiteDetailsReset, "siteDetails", "")
	return nil
}

// SnapshotSiteDetails stores a copy of the current sites so an abandoned
// edit can be rolled back with RestoreSiteDetails.
func (s *Service) SnapshotSiteDetails(ctx context.Context, sessionID string) error {
	exm, err := s.Exemption(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := s.cache.SaveSiteDetailsSnapshot(ctx, sessionID, exm.SiteDetails); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to snapshot site details")
	}
	return nil
}

// RestoreSiteDetails replaces the current sites with the last snapshot.
func (s *Service) RestoreSiteDetails(ctx context.Context, sessionID string) error {
	exm, err := s.Exemption(ctx, sessionID)
	if err != nil {
		return err
	}

	saved, err := s.cache.SavedSiteDetails(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "no saved site details to restore")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load saved site details")
	}

	exm.SiteDetails = saved
	if err := s.cache.SaveExemption(ctx, sessionID, exm); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to restore site details")
	}

	s.emitAudit(ctx, exm, audit.EventSiteDetailsUpdated, "siteDetails", "restored")
	return nil
}

// Submit sends the exemption to the case management system and, on success,
// destroys the session so the wizard cannot resubmit.
func (s *Service) Submit(ctx context.Context, sessionID string) (string, error) {
	if s.backend == nil {
		return "", dErrors.New(dErrors.CodeUnavailable, "submission backend not configured")
	}

	exm, err := s.Exemption(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if len(exm.SiteDetails) == 0 {
		return "", dErrors.New(dErrors.CodeValidation, "at least one site is required before submission")
	}

	reference, err := s.backend.SubmitExemption(ctx, exm)
	if err != nil {
		return "", err
	}

	if err := s.cache.Destroy(ctx, sessionID); err != nil {
		s.logger.ErrorContext(ctx, "failed to destroy session after submission",
			"error", err,
			"session_id", sessionID)
	}

	subject := "exemption"
	if contact := requestcontext.ContactID(ctx); !contact.IsNil() {
		subject = contact.String()
	}
	s.emitAudit(ctx, exm, audit.EventExemptionSubmitted, subject, reference)
	s.incSubmissions()
	return reference, nil
}

// Destroy drops the whole session, used on sign-out.
func (s *Service) Destroy(ctx context.Context, sessionID string) error {
	return s.cache.Destroy(ctx, sessionID)
}

// ensureSite grows the dense site collection so siteIndex is addressable.
// Only appending the next slot is allowed; skipping indexes would leave a
// gap.
func (s *Service) ensureSite(exm *models.Exemption, siteIndex int) error {
	if siteIndex < 0 || siteIndex > len(exm.SiteDetails) {
		return dErrors.New(dErrors.CodeBadRequest, "site index out of range")
	}
	if siteIndex == len(exm.SiteDetails) {
		exm.SiteDetails = append(exm.SiteDetails, models.SiteDetail{})
	}
	return nil
}

func sameAnswer(answer *string) bool {
	return answer != nil && *answer == models.AnswerYes
}

func (s *Service) emitAudit(ctx context.Context, exm *models.Exemption, event audit.AuditEvent, subject, detail string) {
	s.logger.InfoContext(ctx, string(event),
		"exemption_id", exm.ID,
		"subject", subject,
		"request_id", requestcontext.RequestID(ctx),
		"log_type", "audit")
	if s.auditPublisher == nil {
		return
	}
	_ = s.auditPublisher.Emit(ctx, audit.Event{
		SessionID:   requestcontext.SessionID(ctx),
		ExemptionID: exm.ID.String(),
		Action:      string(event),
		Subject:     subject,
		Detail:      detail,
		RequestID:   requestcontext.RequestID(ctx),
	})
}

func (s *Service) incSitesUpdated() {
	if s.metrics != nil {
		s.metrics.IncSitesUpdated()
	}
}

func (s *Service) incUploadsProcessed() {
	if s.metrics != nil {
		s.metrics.IncUploadsProcessed()
	}
}

func (s *Service) incValidationFailures() {
	if s.metrics != nil {
		s.metrics.IncValidationFailures()
	}
}

func (s *Service) incSubmissions() {
	if s.metrics != nil {
		s.metrics.IncSubmissions()
	}
}
