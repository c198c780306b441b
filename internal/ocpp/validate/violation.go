// Package validate implements the OCPP five-step violation taxonomy
// (FormationViolation, ProtocolError, TypeConstraintViolation,
// PropertyConstraintViolation, OccurrenceConstraintViolation). Action
// handlers check their payload one field at a time and stop at the first
// failure. Each field's own checks follow the order above, but the order
// is not applied across fields: when two fields fail with different
// codes, the code of the field checked first is reported.
package validate

import (
	"github.com/charging-platform/ocpp-central-system/internal/ocpp/envelope"
)

// Code is one of the OCPP CALLERROR codes the core emits.
type Code string

const (
	FormationViolation            Code = "FormationViolation"
	ProtocolError                 Code = "ProtocolError"
	TypeConstraintViolation       Code = "TypeConstraintViolation"
	PropertyConstraintViolation   Code = "PropertyConstraintViolation"
	OccurrenceConstraintViolation Code = "OccurrenceConstraintViolation"
	GenericError                  Code = "GenericError"
	NotImplemented                Code = "NotImplemented"
	NotSupported                  Code = "NotSupported"
)

// descriptions holds the literal CALLERROR description strings, carried
// over verbatim from the original system so wire-level error text does
// not change for existing integrations.
var descriptions = map[Code]string{
	FormationViolation:            "Payload for Action is syntactically incorrect or not conform the PDU structure for Action",
	ProtocolError:                 "Payload for Action is incomplete",
	TypeConstraintViolation:       `Payload for Action is syntactically correct but at least one of the fields violates data type constraints (e.g. "somestring": 12)`,
	PropertyConstraintViolation:   "Payload is syntactically correct but at least one field contains an invalid value",
	OccurrenceConstraintViolation: "Payload for Action is syntactically correct but atleast one of the fields violates occurence constraints",
	GenericError:                  "Generic Error",
	NotImplemented:                "Requested Action is not known by receiver",
	NotSupported:                  "Requested Action is recognized but not supported by the receiver",
}

// Violation is a typed validation failure carrying the OCPP error code it
// maps to. Handlers return it instead of a generic error so the
// dispatcher can turn it directly into a CALLERROR frame without string
// matching.
type Violation struct {
	Code    Code
	Details map[string]interface{}
}

func (v *Violation) Error() string {
	return string(v.Code) + ": " + descriptions[v.Code]
}

// New constructs a Violation for the given code.
func New(code Code) *Violation {
	return &Violation{Code: code}
}

// WithDetails attaches structured detail fields to the violation (used
// sparingly; spec.md's CALLERROR frames normally carry an empty {}).
func (v *Violation) WithDetails(details map[string]interface{}) *Violation {
	v.Details = details
	return v
}

// Frame renders the violation as a CALLERROR wire frame for uniqueID.
func (v *Violation) Frame(uniqueID string) ([]byte, error) {
	details := v.Details
	if details == nil {
		details = map[string]interface{}{}
	}
	return envelope.EmitCallError(uniqueID, string(v.Code), descriptions[v.Code], details)
}

// Description returns the canonical CALLERROR description text for code.
func Description(code Code) string {
	return descriptions[code]
}
