package outbound

import (
	"context"
	"encoding/json"

	"github.com/charging-platform/ocpp-central-system/internal/authcache"
	"github.com/charging-platform/ocpp-central-system/internal/ocpp/validate"
	"github.com/charging-platform/ocpp-central-system/internal/session"
)

// standardConfigKeys are the recognised OCPP 1.6 configuration keys this
// core tracks on configKeys (spec.md §4.6: "each returned configurationKey
// whose key matches a recognised standard key updates configKeys[key]").
var standardConfigKeys = map[string]bool{
	"AllowOfflineTxForUnknownId": true,
	"AuthorizeRemoteTxRequests":  true,
	"ClockAlignedDataInterval":   true,
	"ConnectionTimeOut":          true,
	"GetConfigurationMaxKeys":    true,
	"HeartbeatInterval":          true,
	"LocalAuthorizeOffline":      true,
	"LocalPreAuthorize":          true,
	"MeterValueSampleInterval":   true,
	"NumberOfConnectors":         true,
	"ResetRetries":               true,
	"TransactionMessageAttempts": true,
}

// NewResultValidators builds the dispatcher's table of outbound-result
// validators (spec.md §4.4/§4.6).
func NewResultValidators(allowList authcache.AllowList) ResultValidators {
	return ResultValidators{
		"GetConfiguration": validateGetConfigurationResult(allowList),
	}
}

// validateGetConfigurationResult applies the five-step taxonomy to a
// GetConfiguration CALLRESULT and updates configKeys for every
// recognised key (spec.md §4.6).
func validateGetConfigurationResult(allowList authcache.AllowList) ResultValidator {
	return func(ctx context.Context, s *session.Session, payload json.RawMessage) *validate.Violation {
		fields, v := validate.ParseObject(payload)
		if v != nil {
			return v
		}

		rawKeys, v := fields.OptionalArray("configurationKey")
		if v != nil {
			return v
		}
		for _, raw := range rawKeys {
			kv, v := validate.ParseObject(raw)
			if v != nil {
				return v
			}
			key, v := kv.RequiredString("key", 50)
			if v != nil {
				return v
			}
			value, hasValue, v := kv.OptionalString("value", 500)
			if v != nil {
				return v
			}
			if standardConfigKeys[key] && hasValue {
				s.ConfigKeys[key] = value
				allowList.ConfigSet(ctx, s.ChargerID, key, value)
			}
		}

		// unknownKey carries arbitrary non-standard key names the charger
		// chooses, not the fixed-vocabulary configurationKey list above,
		// so it is only length-validated, at the wider bound spec.md §4.6
		// gives it (500) rather than the CiString50 bound configurationKey
		// entries use for their "key" field.
		rawUnknown, v := fields.OptionalArray("unknownKey")
		if v != nil {
			return v
		}
		for _, raw := range rawUnknown {
			var key string
			if err := json.Unmarshal(raw, &key); err != nil {
				return validate.New(validate.TypeConstraintViolation)
			}
			if len(key) > 500 {
				return validate.New(validate.OccurrenceConstraintViolation)
			}
		}
		return nil
	}
}
