package domain

import (
	"github.com/google/uuid"

	dErrors "marlin/pkg/domain-errors"
)

// Typed UUID wrappers so an exemption ID can never be passed where a
// contact ID is expected. Parsing enforces the invariant that IDs are
// valid, non-nil UUIDs at trust boundaries.
type (
	ExemptionID uuid.UUID
	ContactID   uuid.UUID
)

func (id ExemptionID) String() string { return uuid.UUID(id).String() }
func (id ExemptionID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id ContactID) String() string { return uuid.UUID(id).String() }
func (id ContactID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// Text marshaling keeps the canonical UUID string form in JSON payloads.
func (id ExemptionID) MarshalText() ([]byte, error)  { return uuid.UUID(id).MarshalText() }
func (id *ExemptionID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id ContactID) MarshalText() ([]byte, error)    { return uuid.UUID(id).MarshalText() }
func (id *ContactID) UnmarshalText(b []byte) error   { return (*uuid.UUID)(id).UnmarshalText(b) }

// NewExemptionID mints a fresh exemption identifier.
func NewExemptionID() ExemptionID { return ExemptionID(uuid.New()) }

// ParseExemptionID parses and validates an exemption ID from its string form.
func ParseExemptionID(s string) (ExemptionID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return ExemptionID{}, err
	}
	return ExemptionID(u), nil
}

// ParseContactID parses and validates a contact ID from its string form.
func ParseContactID(s string) (ContactID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return ContactID{}, err
	}
	return ContactID(u), nil
}

func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "id is not a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be the nil UUID")
	}
	return u, nil
}
