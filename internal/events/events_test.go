package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_StampsIDAndTimestamp(t *testing.T) {
	e := New(TypeChargerBooted, 7, map[string]interface{}{"vendor": "Acme"})

	assert.NotEmpty(t, e.ID)
	assert.Equal(t, TypeChargerBooted, e.Type)
	assert.Equal(t, 7, e.ChargerID)
	assert.False(t, e.Timestamp.IsZero())
}

func TestNew_GeneratesDistinctIDs(t *testing.T) {
	e1 := New(TypeConnectorStatusChanged, 1, nil)
	e2 := New(TypeConnectorStatusChanged, 1, nil)

	assert.NotEqual(t, e1.ID, e2.ID)
}

func TestNoopBus_DiscardsEveryEvent(t *testing.T) {
	var bus Bus = NoopBus{}

	assert.NotPanics(t, func() {
		bus.Publish(New(TypeTransactionStarted, 1, nil))
	})
}
