package handlers

import (
	"context"

	"github.com/charging-platform/ocpp-central-system/internal/ocpp/validate"
	"github.com/charging-platform/ocpp-central-system/internal/session"
)

// dataTransfer implements spec.md §4.5 DataTransfer: the core has no
// vendor-specific semantics, so every well-formed request is acknowledged
// with UnknownMessageId. "data" carries no constrained shape in the spec
// and so is not further validated once present.
func dataTransfer(deps *Deps) Handler {
	return func(ctx context.Context, s *session.Session, uid string, fields validate.Fields) ([]byte, error) {
		if _, v := fields.RequiredString("vendorId", 255); v != nil {
			return violationFrame(uid, v)
		}
		if _, _, v := fields.OptionalString("messageId", 50); v != nil {
			return violationFrame(uid, v)
		}

		publish(deps, snapshotForConnectors(s, "dataTransfer"))
		return result(uid, map[string]interface{}{"status": "UnknownMessageId"})
	}
}
