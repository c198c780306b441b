// Package envelope implements the OCPP 1.6-J wire framing: the outermost
// JSON array that carries messageTypeId, uniqueId, and either an action
// plus payload (CALL), a payload (CALLRESULT), or an error triple
// (CALLERROR).
package envelope

import (
	"encoding/json"
	"fmt"
)

// MessageType is the first element of every OCPP envelope.
type MessageType int

const (
	CALL       MessageType = 2
	CALLRESULT MessageType = 3
	CALLERROR  MessageType = 4
)

func (t MessageType) String() string {
	switch t {
	case CALL:
		return "CALL"
	case CALLRESULT:
		return "CALLRESULT"
	case CALLERROR:
		return "CALLERROR"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}

// Envelope is the decoded form of one OCPP frame. Only the fields
// relevant to Type are populated. RawUniqueID keeps the exact bytes the
// peer sent for uniqueId so replies can echo it verbatim.
type Envelope struct {
	Type            MessageType
	UniqueID        string
	RawUniqueID     json.RawMessage
	Action          string
	Payload         json.RawMessage
	ErrorCode       string
	ErrorDescription string
	ErrorDetails    json.RawMessage
}

// ErrMalformed signals that the frame could not be decoded into one of
// the three OCPP shapes. Callers treat this as a FormationViolation.
var ErrMalformed = fmt.Errorf("malformed OCPP envelope")

// Parse decodes a raw text frame into an Envelope. A non-nil error always
// means the frame is not a well-formed OCPP envelope (FormationViolation);
// the returned Envelope, if non-nil, carries whatever prefix could be
// recovered (useful for echoing uniqueId in the error reply).
func Parse(raw []byte) (*Envelope, error) {
	var elements []json.RawMessage
	if err := json.Unmarshal(raw, &elements); err != nil {
		return nil, fmt.Errorf("%w: not a JSON array: %v", ErrMalformed, err)
	}
	if len(elements) < 2 {
		return nil, fmt.Errorf("%w: array too short", ErrMalformed)
	}

	var typeID int
	if err := json.Unmarshal(elements[0], &typeID); err != nil {
		return nil, fmt.Errorf("%w: messageTypeId not a number", ErrMalformed)
	}

	env := &Envelope{Type: MessageType(typeID), RawUniqueID: elements[1]}
	var uid string
	if err := json.Unmarshal(elements[1], &uid); err != nil {
		return env, fmt.Errorf("%w: uniqueId not a string", ErrMalformed)
	}
	env.UniqueID = uid

	switch MessageType(typeID) {
	case CALL:
		if len(elements) != 4 {
			return env, fmt.Errorf("%w: CALL must have 4 elements", ErrMalformed)
		}
		var action string
		if err := json.Unmarshal(elements[2], &action); err != nil {
			return env, fmt.Errorf("%w: action not a string", ErrMalformed)
		}
		env.Action = action
		env.Payload = elements[3]
		if !isJSONObject(elements[3]) {
			return env, fmt.Errorf("%w: CALL payload must be a JSON object", ErrMalformed)
		}
		return env, nil

	case CALLRESULT:
		if len(elements) != 3 {
			return env, fmt.Errorf("%w: CALLRESULT must have 3 elements", ErrMalformed)
		}
		env.Payload = elements[2]
		if !isJSONObject(elements[2]) {
			return env, fmt.Errorf("%w: CALLRESULT payload must be a JSON object", ErrMalformed)
		}
		return env, nil

	case CALLERROR:
		if len(elements) != 4 && len(elements) != 5 {
			return env, fmt.Errorf("%w: CALLERROR must have 4 or 5 elements", ErrMalformed)
		}
		var code, desc string
		if err := json.Unmarshal(elements[2], &code); err != nil {
			return env, fmt.Errorf("%w: errorCode not a string", ErrMalformed)
		}
		if err := json.Unmarshal(elements[3], &desc); err != nil {
			return env, fmt.Errorf("%w: errorDescription not a string", ErrMalformed)
		}
		env.ErrorCode = code
		env.ErrorDescription = desc
		if len(elements) == 5 {
			env.ErrorDetails = elements[4]
		} else {
			env.ErrorDetails = json.RawMessage(`{}`)
		}
		return env, nil

	default:
		return env, fmt.Errorf("%w: unrecognised messageTypeId %d", ErrMalformed, typeID)
	}
}

func isJSONObject(raw json.RawMessage) bool {
	var m map[string]json.RawMessage
	return json.Unmarshal(raw, &m) == nil
}

// EmitCall serialises an outbound CALL frame.
func EmitCall(uniqueID, action string, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal CALL payload: %w", err)
	}
	return json.Marshal([]interface{}{int(CALL), uniqueID, action, json.RawMessage(body)})
}

// EmitCallResult serialises a CALLRESULT reply, echoing uniqueID verbatim.
func EmitCallResult(uniqueID string, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal CALLRESULT payload: %w", err)
	}
	return json.Marshal([]interface{}{int(CALLRESULT), uniqueID, json.RawMessage(body)})
}

// EmitCallError serialises a CALLERROR reply.
func EmitCallError(uniqueID, errorCode, errorDescription string, errorDetails interface{}) ([]byte, error) {
	if errorDetails == nil {
		errorDetails = map[string]interface{}{}
	}
	details, err := json.Marshal(errorDetails)
	if err != nil {
		return nil, fmt.Errorf("marshal errorDetails: %w", err)
	}
	return json.Marshal([]interface{}{int(CALLERROR), uniqueID, errorCode, errorDescription, json.RawMessage(details)})
}
