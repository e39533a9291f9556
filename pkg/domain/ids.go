package domain

import (
	"github.com/google/uuid"

	dErrors "firmus/pkg/domain-errors"
)

// Typed IDs prevent cross-entity assignment at compile time. A CompanyID
// can never be passed where a TenantID is expected, so tenant context
// cannot be silently dropped or swapped on the way to a store.
//
// Invariant: IDs must be valid, non-empty, non-nil UUIDs. Construct via
// the Parse functions at trust boundaries; direct casting bypasses
// validation and is reserved for values already proven valid (store
// reads, generated IDs).
type (
	// TenantID identifies the tenant that owns a company record.
	TenantID uuid.UUID

	// CompanyID identifies a company whose legal profile is enriched.
	CompanyID uuid.UUID

	// ProfileID identifies a persisted legal profile row.
	ProfileID uuid.UUID

	// LookupID identifies one recorded registry lookup attempt.
	LookupID uuid.UUID
)

// parseUUID enforces the shared ID invariant. All Parse functions funnel
// through here so every ID type rejects the same inputs.
func parseUUID(s, what string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, what+" cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+what)
	}
	if id == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, what+" cannot be nil")
	}
	return id, nil
}

// ParseTenantID constructs a TenantID from external input.
func ParseTenantID(s string) (TenantID, error) {
	id, err := parseUUID(s, "tenant id")
	return TenantID(id), err
}

// ParseCompanyID constructs a CompanyID from external input.
func ParseCompanyID(s string) (CompanyID, error) {
	id, err := parseUUID(s, "company id")
	return CompanyID(id), err
}

// ParseProfileID constructs a ProfileID from external input.
func ParseProfileID(s string) (ProfileID, error) {
	id, err := parseUUID(s, "profile id")
	return ProfileID(id), err
}

// ParseLookupID constructs a LookupID from external input.
func ParseLookupID(s string) (LookupID, error) {
	id, err := parseUUID(s, "lookup id")
	return LookupID(id), err
}

// NewProfileID returns a fresh random ProfileID.
func NewProfileID() ProfileID { return ProfileID(uuid.New()) }

// NewLookupID returns a fresh random LookupID.
func NewLookupID() LookupID { return LookupID(uuid.New()) }

func (id TenantID) String() string  { return uuid.UUID(id).String() }
func (id CompanyID) String() string { return uuid.UUID(id).String() }
func (id ProfileID) String() string { return uuid.UUID(id).String() }
func (id LookupID) String() string  { return uuid.UUID(id).String() }

func (id TenantID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id CompanyID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ProfileID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id LookupID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }

// Text marshaling renders IDs as canonical UUID strings in JSON payloads.
// Unmarshaling goes through the Parse functions so wire input meets the
// same invariant as any other external input.

func (id TenantID) MarshalText() ([]byte, error)  { return []byte(id.String()), nil }
func (id CompanyID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id ProfileID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id LookupID) MarshalText() ([]byte, error)  { return []byte(id.String()), nil }

func (id *TenantID) UnmarshalText(b []byte) error {
	parsed, err := ParseTenantID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *CompanyID) UnmarshalText(b []byte) error {
	parsed, err := ParseCompanyID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *ProfileID) UnmarshalText(b []byte) error {
	parsed, err := ParseProfileID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *LookupID) UnmarshalText(b []byte) error {
	parsed, err := ParseLookupID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
