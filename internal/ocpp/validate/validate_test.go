package validate

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func parse(t *testing.T, raw string) Fields {
	t.Helper()
	f, v := ParseObject(json.RawMessage(raw))
	assert.Nil(t, v)
	return f
}

func TestParseObject_NotAnObject(t *testing.T) {
	_, v := ParseObject(json.RawMessage(`[1,2,3]`))

	if assert.NotNil(t, v) {
		assert.Equal(t, FormationViolation, v.Code)
	}
}

func TestRequiredString(t *testing.T) {
	f := parse(t, `{"idTag":"ABC123","n":5,"empty":""}`)

	s, v := f.RequiredString("idTag", 20)
	assert.Nil(t, v)
	assert.Equal(t, "ABC123", s)

	_, v = f.RequiredString("missing", 20)
	assert.Equal(t, ProtocolError, v.Code)

	_, v = f.RequiredString("n", 20)
	assert.Equal(t, TypeConstraintViolation, v.Code)

	_, v = f.RequiredString("empty", 20)
	assert.Equal(t, ProtocolError, v.Code)

	_, v = f.RequiredString("idTag", 3)
	assert.Equal(t, OccurrenceConstraintViolation, v.Code)
}

func TestOptionalString(t *testing.T) {
	f := parse(t, `{"info":"hello"}`)

	val, ok, v := f.OptionalString("info", 20)
	assert.Nil(t, v)
	assert.True(t, ok)
	assert.Equal(t, "hello", val)

	val, ok, v = f.OptionalString("missing", 20)
	assert.Nil(t, v)
	assert.False(t, ok)
	assert.Equal(t, "", val)
}

// TestErrSentinel_IsTypeConstraintViolation covers spec.md §8 test 6: the
// literal string "err" marks a type violation ahead of any other check,
// for every string-extraction helper, not just a JSON-type mismatch.
func TestErrSentinel_IsTypeConstraintViolation(t *testing.T) {
	f := parse(t, `{"idTag":"err","info":"err","timestamp":"err"}`)

	_, v := f.RequiredString("idTag", 20)
	assert.Equal(t, TypeConstraintViolation, v.Code)

	_, ok, v := f.OptionalString("info", 20)
	assert.False(t, ok)
	assert.Equal(t, TypeConstraintViolation, v.Code)

	_, v = f.RequiredDateTime("timestamp")
	assert.Equal(t, TypeConstraintViolation, v.Code)
}

func TestRequiredInt(t *testing.T) {
	f := parse(t, `{"connectorId":1,"bad":"x","outOfRange":99}`)

	n, v := f.RequiredInt("connectorId", 0, 2)
	assert.Nil(t, v)
	assert.Equal(t, 1, n)

	_, v = f.RequiredInt("missing", 0, 2)
	assert.Equal(t, ProtocolError, v.Code)

	_, v = f.RequiredInt("bad", 0, 2)
	assert.Equal(t, TypeConstraintViolation, v.Code)

	_, v = f.RequiredInt("outOfRange", 0, 2)
	assert.Equal(t, PropertyConstraintViolation, v.Code)

	// min > max disables range checking entirely.
	n, v = f.RequiredInt("outOfRange", 5, 0)
	assert.Nil(t, v)
	assert.Equal(t, 99, n)
}

func TestRequiredEnum(t *testing.T) {
	f := parse(t, `{"status":"Available","bad":5}`)
	valid := []string{"Available", "Faulted"}

	s, v := f.RequiredEnum("status", valid)
	assert.Nil(t, v)
	assert.Equal(t, "Available", s)

	_, v = f.RequiredEnum("bad", valid)
	assert.Equal(t, TypeConstraintViolation, v.Code)

	_, v = f.RequiredEnum("missing", valid)
	assert.Equal(t, ProtocolError, v.Code)

	f2 := parse(t, `{"status":"Unknown"}`)
	_, v = f2.RequiredEnum("status", valid)
	assert.Equal(t, PropertyConstraintViolation, v.Code)
}

func TestRequiredArray(t *testing.T) {
	f := parse(t, `{"meterValue":[{"a":1}],"empty":[]}`)

	arr, v := f.RequiredArray("meterValue")
	assert.Nil(t, v)
	assert.Len(t, arr, 1)

	_, v = f.RequiredArray("empty")
	assert.Equal(t, ProtocolError, v.Code)

	_, v = f.RequiredArray("missing")
	assert.Equal(t, ProtocolError, v.Code)
}

func TestRequiredDateTime(t *testing.T) {
	f := parse(t, `{"timestamp":"2026-07-30T10:00:00Z","bad":"not-a-time"}`)

	ts, v := f.RequiredDateTime("timestamp")
	assert.Nil(t, v)
	assert.Equal(t, 2026, ts.Year())

	_, v = f.RequiredDateTime("bad")
	assert.Equal(t, PropertyConstraintViolation, v.Code)

	_, v = f.RequiredDateTime("missing")
	assert.Equal(t, ProtocolError, v.Code)
}

func TestViolation_FrameEchoesUniqueID(t *testing.T) {
	v := New(ProtocolError)

	frame, err := v.Frame("uid-42")

	assert.NoError(t, err)
	var parts []json.RawMessage
	assert.NoError(t, json.Unmarshal(frame, &parts))
	assert.Equal(t, `"uid-42"`, string(parts[1]))
	assert.Equal(t, `"ProtocolError"`, string(parts[2]))
}

func TestViolation_Error(t *testing.T) {
	v := New(FormationViolation)

	assert.Contains(t, v.Error(), "FormationViolation")
}
