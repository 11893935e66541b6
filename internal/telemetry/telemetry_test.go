package telemetry

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestSetupDisabledIsNoop(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := Setup(false, &buf, "dev")
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "effect.LoadStatus")
	span.End()
	require.NoError(t, shutdown(context.Background()))
	assert.Zero(t, buf.Len())
}

func TestSetupExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := Setup(true, &buf, "dev")
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "effect.LoadStatus")
	span.End()
	require.NoError(t, shutdown(context.Background()))

	assert.Contains(t, buf.String(), `"Name":"effect.LoadStatus"`)
	assert.Contains(t, buf.String(), "gitk-core")
}
