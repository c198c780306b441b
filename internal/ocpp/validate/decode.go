package validate

import (
	"encoding/json"
	"strings"
	"time"
)

// Fields is a parsed JSON object with its values still undecoded, so
// handlers can distinguish "absent" (ProtocolError) from "wrong type"
// (TypeConstraintViolation) from "out of range" (PropertyConstraintViolation)
// instead of letting a single json.Unmarshal collapse all three into one
// failure mode.
type Fields map[string]json.RawMessage

// ParseObject decodes a JSON object payload into Fields. A payload that
// is not a JSON object is a FormationViolation.
func ParseObject(payload json.RawMessage) (Fields, *Violation) {
	var f Fields
	if err := json.Unmarshal(payload, &f); err != nil {
		return nil, New(FormationViolation)
	}
	return f, nil
}

func (f Fields) has(key string) bool {
	_, ok := f[key]
	return ok
}

// errSentinel is the literal string value the wire format uses to mark a
// field as type-violating even though it arrived as a well-formed JSON
// string (original_source/nucli_sistema/ocpp_requests/*.c: every
// string-field check tests `strcmp(field, "err") == 0` ahead of any other
// validation).
const errSentinel = "err"

// RequiredString extracts a required, non-empty string field bounded by
// maxLen.
func (f Fields) RequiredString(key string, maxLen int) (string, *Violation) {
	raw, ok := f[key]
	if !ok {
		return "", New(ProtocolError)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", New(TypeConstraintViolation)
	}
	if s == errSentinel {
		return "", New(TypeConstraintViolation)
	}
	if s == "" {
		return "", New(ProtocolError)
	}
	if len(s) > maxLen {
		return "", New(OccurrenceConstraintViolation)
	}
	return s, nil
}

// OptionalString extracts an optional string field. If present it must be
// non-empty, well-typed, and bounded by maxLen. Returns ok=false when
// absent.
func (f Fields) OptionalString(key string, maxLen int) (value string, ok bool, violation *Violation) {
	raw, present := f[key]
	if !present {
		return "", false, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false, New(TypeConstraintViolation)
	}
	if s == errSentinel {
		return "", false, New(TypeConstraintViolation)
	}
	if s == "" {
		return "", false, New(ProtocolError)
	}
	if len(s) > maxLen {
		return "", false, New(OccurrenceConstraintViolation)
	}
	return s, true, nil
}

// RequiredInt extracts a required integer field, optionally bounded by
// [min, max] (pass min > max to skip range checking).
func (f Fields) RequiredInt(key string, min, max int) (int, *Violation) {
	raw, ok := f[key]
	if !ok {
		return 0, New(ProtocolError)
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, New(TypeConstraintViolation)
	}
	v := int(n)
	if min <= max && (v < min || v > max) {
		return 0, New(PropertyConstraintViolation)
	}
	return v, nil
}

// OptionalInt extracts an optional integer field.
func (f Fields) OptionalInt(key string, min, max int) (value int, ok bool, violation *Violation) {
	raw, present := f[key]
	if !present {
		return 0, false, nil
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, false, New(TypeConstraintViolation)
	}
	v := int(n)
	if min <= max && (v < min || v > max) {
		return 0, false, New(PropertyConstraintViolation)
	}
	return v, true, nil
}

// RequiredNumber extracts a required numeric field (no range check; used
// for meter readings where any finite value is acceptable).
func (f Fields) RequiredNumber(key string) (float64, *Violation) {
	raw, ok := f[key]
	if !ok {
		return 0, New(ProtocolError)
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, New(TypeConstraintViolation)
	}
	return n, nil
}

// RequiredEnum extracts a required string field and checks membership in
// valid. Wrong type is TypeConstraintViolation; a well-typed but
// out-of-range value is PropertyConstraintViolation.
func (f Fields) RequiredEnum(key string, valid []string) (string, *Violation) {
	raw, ok := f[key]
	if !ok {
		return "", New(ProtocolError)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", New(TypeConstraintViolation)
	}
	if s == "" {
		return "", New(ProtocolError)
	}
	if !contains(valid, s) {
		return "", New(PropertyConstraintViolation)
	}
	return s, nil
}

// OptionalEnum extracts an optional enum field.
func (f Fields) OptionalEnum(key string, valid []string) (value string, ok bool, violation *Violation) {
	raw, present := f[key]
	if !present {
		return "", false, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false, New(TypeConstraintViolation)
	}
	if !contains(valid, s) {
		return "", false, New(PropertyConstraintViolation)
	}
	return s, true, nil
}

// RequiredArray extracts a required, non-empty JSON array field.
func (f Fields) RequiredArray(key string) ([]json.RawMessage, *Violation) {
	raw, ok := f[key]
	if !ok {
		return nil, New(ProtocolError)
	}
	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err != nil {
		return nil, New(TypeConstraintViolation)
	}
	if len(arr) == 0 {
		return nil, New(ProtocolError)
	}
	return arr, nil
}

// OptionalArray extracts an optional JSON array field.
func (f Fields) OptionalArray(key string) ([]json.RawMessage, *Violation) {
	raw, present := f[key]
	if !present {
		return nil, nil
	}
	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err != nil {
		return nil, New(TypeConstraintViolation)
	}
	return arr, nil
}

// RequiredObject extracts a required nested JSON object.
func (f Fields) RequiredObject(key string) (Fields, *Violation) {
	raw, ok := f[key]
	if !ok {
		return nil, New(ProtocolError)
	}
	var nested Fields
	if err := json.Unmarshal(raw, &nested); err != nil {
		return nil, New(TypeConstraintViolation)
	}
	return nested, nil
}

// RequiredDateTime extracts a required RFC 3339 timestamp, tolerating
// either a Z or a numeric ±HH:MM offset and optional sub-second
// precision.
func (f Fields) RequiredDateTime(key string) (time.Time, *Violation) {
	raw, ok := f[key]
	if !ok {
		return time.Time{}, New(ProtocolError)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return time.Time{}, New(TypeConstraintViolation)
	}
	if s == errSentinel {
		return time.Time{}, New(TypeConstraintViolation)
	}
	if s == "" {
		return time.Time{}, New(ProtocolError)
	}
	t, err := ParseOCPPTime(s)
	if err != nil {
		return time.Time{}, New(PropertyConstraintViolation)
	}
	return t, nil
}

// ParseOCPPTime parses an RFC 3339 timestamp tolerating either a literal
// Z suffix or a numeric ±HH:MM offset, with or without sub-second
// precision.
func ParseOCPPTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &time.ParseError{Layout: time.RFC3339, Value: s}
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if strings.EqualFold(item, s) {
			return true
		}
	}
	return false
}
