package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRegisterIsIdempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		Register()
		Register()
	})
}

func TestRecordDatabaseQuery(t *testing.T) {
	before := testutil.ToFloat64(DBQueriesTotal.WithLabelValues(DBQueryTypeInsert, "false"))
	RecordDatabaseQuery(DBQueryTypeInsert, false, 0.01)
	after := testutil.ToFloat64(DBQueriesTotal.WithLabelValues(DBQueryTypeInsert, "false"))
	assert.Equal(t, before+1, after)
}

func TestRecordMessageBusOperation(t *testing.T) {
	before := testutil.ToFloat64(MessageBusOperationsTotal.WithLabelValues(MessageBusOperationSend, "true"))
	RecordMessageBusOperation(MessageBusOperationSend, true)
	after := testutil.ToFloat64(MessageBusOperationsTotal.WithLabelValues(MessageBusOperationSend, "true"))
	assert.Equal(t, before+1, after)
}
