package tracing

import (
	"context"
	"testing"

	"example.com/pacific/relief/config"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledTracerIsNoop(t *testing.T) {
	tracer, err := NewTracer(config.TracingConfig{AppName: "relief-test"})
	require.NoError(t, err)
	assert.Nil(t, tracer.App())

	ctx, txn := tracer.StartTransaction(context.Background(), "job")
	assert.Nil(t, txn)

	seg := tracer.StartSegment(ctx, "segment")
	assert.NotPanics(t, func() {
		seg.End()
		tracer.RecordError(ctx, errors.New("boom"))
		tracer.AddAttribute(ctx, "key", "value")
		tracer.EndTransaction(txn)
		tracer.Close()
	})
}
