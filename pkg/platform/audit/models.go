// Package audit defines the audit events emitted from domain logic. Keep the
// event transport-agnostic so sinks (Kafka, memory) can fan out.
package audit

import "time"

// Event is emitted from domain logic to capture key actions.
type Event struct {
	Timestamp   time.Time `json:"timestamp"`
	SessionID   string    `json:"sessionId,omitempty"`
	ExemptionID string    `json:"exemptionId,omitempty"`
	Action      string    `json:"action"`
	Subject     string    `json:"subject,omitempty"`
	Detail      string    `json:"detail,omitempty"`
	RequestID   string    `json:"requestId,omitempty"`
}

type AuditEvent string

const (
	EventExemptionCreated   AuditEvent = "exemption_created"
	EventSiteDetailsUpdated AuditEvent = "site_details_updated"
	EventSiteDetailsReset   AuditEvent = "site_details_reset"
	EventUploadProcessed    AuditEvent = "upload_processed"
	EventExemptionSubmitted AuditEvent = "exemption_submitted"
)
