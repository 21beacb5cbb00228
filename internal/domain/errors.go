package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure for mapping at the HTTP boundary
type ErrorKind string

const (
	KindUnauthorized ErrorKind = "UNAUTHORIZED"
	KindForbidden    ErrorKind = "FORBIDDEN"
	KindNotFound     ErrorKind = "NOT_FOUND"
	KindValidation   ErrorKind = "VALIDATION_ERROR"
	KindConflict     ErrorKind = "CONFLICT"
	KindInternal     ErrorKind = "INTERNAL_ERROR"
)

// Machine-readable error codes returned in the response envelope
const (
	CodeUnauthorized                  = "UNAUTHORIZED"
	CodeProjectAccessDenied           = "PROJECT_ACCESS_DENIED"
	CodeInsufficientRole              = "INSUFFICIENT_ROLE"
	CodeNotFound                      = "NOT_FOUND"
	CodeValidation                    = "VALIDATION_ERROR"
	CodeConflict                      = "CONFLICT"
	CodeInternal                      = "INTERNAL_ERROR"
	CodeInvalidStatusTransition       = "INVALID_STATUS_TRANSITION"
	CodeAreaZoneRequired              = "AREA_ZONE_REQUIRED"
	CodeStructureIDRequired           = "STRUCTURE_ID_REQUIRED"
	CodeDuplicateLotNumber            = "DUPLICATE_LOT_NUMBER"
	CodeLotHasOpenNCR                 = "LOT_HAS_OPEN_NCR"
	CodeLotHasNCRs                    = "LOT_HAS_NCRS"
	CodeLotCompleted                  = "LOT_COMPLETED"
	CodeITPIncomplete                 = "ITP_INCOMPLETE"
	CodeHoldPointsUnreleased          = "HOLD_POINTS_UNRELEASED"
	CodeDuplicateNCRNumber            = "DUPLICATE_NCR_NUMBER"
	CodeQMApprovalRequired            = "QM_APPROVAL_REQUIRED"
	CodeQMApprovalNotRequired         = "QM_APPROVAL_NOT_REQUIRED"
	CodeConcessionJustification       = "CONCESSION_JUSTIFICATION_REQUIRED"
	CodeClientNotificationNotRequired = "CLIENT_NOTIFICATION_NOT_REQUIRED"
	CodeResponsibleUserNotMember      = "RESPONSIBLE_USER_NOT_MEMBER"
	CodeITPCompletionNotPermitted     = "ITP_COMPLETION_NOT_PERMITTED"
	CodeSelfVerification              = "SELF_VERIFICATION_NOT_ALLOWED"
	CodeNotCompleted                  = "ITEM_NOT_COMPLETED"
	CodeNotVerified                   = "ITEM_NOT_VERIFIED"
	CodeDuplicateITPInstance          = "DUPLICATE_ITP_INSTANCE"
	CodeHoldPointReleased             = "HOLD_POINT_ALREADY_RELEASED"
	CodeAdjustmentReasonRequired      = "ADJUSTMENT_REASON_REQUIRED"
	CodeRejectionReasonRequired       = "REJECTION_REASON_REQUIRED"
	CodeDocketNotDraft                = "DOCKET_NOT_DRAFT"
	CodeDuplicateDrawingNumber        = "DUPLICATE_DRAWING_NUMBER"
	CodeDrawingSuperseded             = "DRAWING_ALREADY_SUPERSEDED"
	CodeDuplicateMember               = "DUPLICATE_MEMBER"
	CodeSubcontractorNotOnProject     = "SUBCONTRACTOR_NOT_ON_PROJECT"
	CodeNotificationNotOwned          = "NOTIFICATION_NOT_OWNED"
)

// Error is the typed error raised by the access evaluator, state machines and services.
// It propagates unchanged to the HTTP boundary.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
	Field   string
	Details map[string]interface{}
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches on Kind, and on Code when the target carries one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

// Sentinels for errors.Is checks on kind only
var (
	ErrUnauthorized = &Error{Kind: KindUnauthorized}
	ErrForbidden    = &Error{Kind: KindForbidden}
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrValidation   = &Error{Kind: KindValidation}
	ErrConflict     = &Error{Kind: KindConflict}
)

func NewUnauthorizedError(message string) *Error {
	return &Error{Kind: KindUnauthorized, Code: CodeUnauthorized, Message: message}
}

func NewForbiddenError(code, message string) *Error {
	return &Error{Kind: KindForbidden, Code: code, Message: message}
}

// NewNotFoundError is also used for records hidden by tenant or subcontractor scope.
func NewNotFoundError(entity string) *Error {
	return &Error{Kind: KindNotFound, Code: CodeNotFound, Message: entity + " not found"}
}

// NewValidationError always names the offending field.
func NewValidationError(code, field, message string) *Error {
	return &Error{
		Kind:    KindValidation,
		Code:    code,
		Message: message,
		Field:   field,
		Details: map[string]interface{}{"field": field},
	}
}

func NewConflictError(code, message string) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: message}
}

// KindOf returns the kind of a typed error, or KindInternal for anything else.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsCode reports whether err is a typed error carrying the given code
func IsCode(err error, code string) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// ValidationMessages maps validator tags to human-readable messages
var ValidationMessages = map[string]string{
	"required": "This field is required",
	"email":    "Must be a valid email address",
	"max":      "Exceeds maximum length",
	"min":      "Below minimum length",
	"gte":      "Must be greater than or equal to minimum value",
	"gt":       "Must be greater than minimum value",
	"lte":      "Must be less than or equal to maximum value",
	"uuid":     "Must be a valid UUID",
	"oneof":    "Must be one of the allowed values",
	"dive":     "Contains an invalid value",
}

// GetValidationMessage returns a human-readable message for a validation tag
func GetValidationMessage(tag string) string {
	if msg, ok := ValidationMessages[tag]; ok {
		return msg
	}
	return "Validation failed: " + tag
}
