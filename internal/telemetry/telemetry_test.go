package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.False(t, cfg.Enabled)
	assert.Equal(t, "ara-ipcbinding", cfg.ServiceName)
	assert.Equal(t, "dev", cfg.ServiceVersion)
	assert.Equal(t, "localhost:4317", cfg.Endpoint)
	assert.True(t, cfg.Insecure)
	assert.Equal(t, 1.0, cfg.SampleRate)
}

func TestInitDisabled(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.Enabled = false

	shutdown, err := Init(ctx, cfg)
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	err = shutdown(ctx)
	assert.NoError(t, err)

	assert.False(t, IsEnabled())
}

func TestTracerReturnsNoOp(t *testing.T) {
	tracer = nil
	enabled = false

	tr := Tracer()
	require.NotNil(t, tr)
}

func TestStartSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartSpan(ctx, "test.operation")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()
}

func TestSpanFromContext(t *testing.T) {
	ctx := context.Background()

	span := SpanFromContext(ctx)
	require.NotNil(t, span)
}

func TestAddEvent(t *testing.T) {
	ctx := context.Background()

	require.NotPanics(t, func() {
		AddEvent(ctx, "test.event")
	})
}

func TestRecordError(t *testing.T) {
	ctx := context.Background()

	require.NotPanics(t, func() {
		RecordError(ctx, nil)
	})
	require.NotPanics(t, func() {
		RecordError(ctx, errors.New("test error"))
	})
}

func TestSetStatus(t *testing.T) {
	ctx := context.Background()

	require.NotPanics(t, func() {
		SetStatus(ctx, codes.Ok, "success")
	})
	require.NotPanics(t, func() {
		SetStatus(ctx, codes.Error, "failed")
	})
}

func TestSetAttributes(t *testing.T) {
	ctx := context.Background()

	require.NotPanics(t, func() {
		SetAttributes(ctx, ConnectionID(1))
	})
}

func TestTraceID(t *testing.T) {
	ctx := context.Background()

	assert.Equal(t, "", TraceID(ctx))
}

func TestSpanID(t *testing.T) {
	ctx := context.Background()

	assert.Equal(t, "", SpanID(ctx))
}

func TestAttributeHelpers(t *testing.T) {
	t.Run("ConnectionID", func(t *testing.T) {
		attr := ConnectionID(7)
		assert.Equal(t, AttrConnectionID, string(attr.Key))
		assert.Equal(t, int64(7), attr.Value.AsInt64())
	})

	t.Run("PeerUID", func(t *testing.T) {
		attr := PeerUID(1000)
		assert.Equal(t, AttrPeerUID, string(attr.Key))
		assert.Equal(t, int64(1000), attr.Value.AsInt64())
	})

	t.Run("ServiceID", func(t *testing.T) {
		attr := ServiceID(0x1234)
		assert.Equal(t, AttrServiceID, string(attr.Key))
		assert.Equal(t, int64(0x1234), attr.Value.AsInt64())
	})

	t.Run("InstanceID", func(t *testing.T) {
		attr := InstanceID(1)
		assert.Equal(t, AttrInstanceID, string(attr.Key))
		assert.Equal(t, int64(1), attr.Value.AsInt64())
	})

	t.Run("MethodID", func(t *testing.T) {
		attr := MethodID(0x0100)
		assert.Equal(t, AttrMethodID, string(attr.Key))
		assert.Equal(t, int64(0x0100), attr.Value.AsInt64())
	})

	t.Run("TPOffset", func(t *testing.T) {
		attr := TPOffset(1024)
		assert.Equal(t, AttrTPOffset, string(attr.Key))
		assert.Equal(t, int64(1024), attr.Value.AsInt64())
	})

	t.Run("TPMore", func(t *testing.T) {
		attr := TPMore(true)
		assert.Equal(t, AttrTPMore, string(attr.Key))
		assert.True(t, attr.Value.AsBool())
	})

	t.Run("IntegrityLevel", func(t *testing.T) {
		attr := IntegrityLevel("ASIL-B")
		assert.Equal(t, AttrIntegrityLvl, string(attr.Key))
		assert.Equal(t, "ASIL-B", attr.Value.AsString())
	})
}

func TestStartConnectionSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartConnectionSpan(ctx, 1, 1000)
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()
}

func TestStartRequestSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartRequestSpan(ctx, 0x1234, 1, 0x0100, 1, 0x0001)
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()
}

func TestStartTPReassemblySpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartTPReassemblySpan(ctx, 1, 1024, true)
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()
}

func TestStartOfferSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartOfferSpan(ctx, SpanOfferService, 0x1234, 1, "QM")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()
}
