package types

import (
	"regexp"
	"strings"

	ierr "github.com/petshopone/fiscal-service/internal/errors"
	"github.com/samber/lo"
)

// ImportStatus tracks the lifecycle of a fiscal document import.
// Transitions: pending -> processing -> imported | error,
// error -> pending on retry.
type ImportStatus string

const (
	ImportStatusPending    ImportStatus = "pending"
	ImportStatusProcessing ImportStatus = "processing"
	ImportStatusImported   ImportStatus = "imported"
	ImportStatusError      ImportStatus = "error"
)

func (s ImportStatus) String() string {
	return string(s)
}

func (s ImportStatus) Validate() error {
	allowed := []ImportStatus{
		ImportStatusPending,
		ImportStatusProcessing,
		ImportStatusImported,
		ImportStatusError,
	}
	if !lo.Contains(allowed, s) {
		return ierr.NewError("invalid import status").
			WithHint("Invalid import status").
			WithReportableDetails(map[string]any{
				"status":  s,
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// CanTransitionTo reports whether the status transition is legal.
func (s ImportStatus) CanTransitionTo(next ImportStatus) bool {
	switch s {
	case ImportStatusPending:
		return next == ImportStatusProcessing
	case ImportStatusProcessing:
		return next == ImportStatusImported || next == ImportStatusError || next == ImportStatusPending
	case ImportStatusError:
		return next == ImportStatusPending
	case ImportStatusImported:
		return false
	default:
		return false
	}
}

// DocumentSchema identifies the kind of payload returned by the
// distribution service for a given document.
type DocumentSchema string

const (
	// DocumentSchemaSummary is the resNFe summary payload
	DocumentSchemaSummary DocumentSchema = "summary"
	// DocumentSchemaFull is the procNFe full payload with line items
	DocumentSchemaFull DocumentSchema = "full"
	// DocumentSchemaEvent covers event payloads (resEvento, procEventoNFe)
	DocumentSchemaEvent DocumentSchema = "event"
	// DocumentSchemaUnknown is anything else; kept for observability
	DocumentSchemaUnknown DocumentSchema = "unknown"
)

func (s DocumentSchema) String() string {
	return string(s)
}

// Environment selects between the production and homologation
// (test) webservice endpoints.
type Environment string

const (
	EnvironmentProduction   Environment = "production"
	EnvironmentHomologation Environment = "homologation"
)

func (e Environment) String() string {
	return string(e)
}

func (e Environment) Validate() error {
	allowed := []Environment{EnvironmentProduction, EnvironmentHomologation}
	if !lo.Contains(allowed, e) {
		return ierr.NewError("invalid environment").
			WithHint("Environment must be production or homologation").
			WithReportableDetails(map[string]any{
				"environment": e,
				"allowed":     allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// ImportFilter narrows NF-e import list queries
type ImportFilter struct {
	*QueryFilter
	ImportStatus *ImportStatus `json:"import_status,omitempty" form:"import_status"`
	AccessKey    *string       `json:"access_key,omitempty" form:"access_key"`
}

func NewImportFilter() *ImportFilter {
	return &ImportFilter{QueryFilter: NewDefaultQueryFilter()}
}

func (f *ImportFilter) Validate() error {
	if f.QueryFilter != nil {
		if err := f.QueryFilter.Validate(); err != nil {
			return err
		}
	}
	if f.ImportStatus != nil {
		if err := f.ImportStatus.Validate(); err != nil {
			return err
		}
	}
	return nil
}

var nonDigitRe = regexp.MustCompile(`\D`)

// NormalizeAccessKey strips everything that is not a digit from an
// access key, including the common "NFe" prefix and separators.
func NormalizeAccessKey(key string) string {
	return nonDigitRe.ReplaceAllString(strings.TrimSpace(key), "")
}

// ValidateAccessKey normalizes the key and requires exactly 44 digits.
func ValidateAccessKey(key string) (string, error) {
	normalized := NormalizeAccessKey(key)
	if len(normalized) != 44 {
		return "", ierr.NewError("invalid access key").
			WithHint("Access key must contain exactly 44 digits").
			WithReportableDetails(map[string]any{
				"length": len(normalized),
			}).
			Mark(ierr.ErrValidation)
	}
	return normalized, nil
}
