package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "INFO", want: slog.LevelInfo},
		{in: "", want: slog.LevelInfo},
		{in: "warning", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "loud", want: slog.LevelInfo, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "warn", "json")
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown", "node_id", "t1")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"node_id":"t1"`)

	buf.Reset()
	logger, err = New(&buf, "debug", "text")
	require.NoError(t, err)
	logger.Debug("refresh")
	assert.Contains(t, buf.String(), "msg=refresh")

	_, err = New(&buf, "info", "xml")
	assert.Error(t, err)
	_, err = New(&buf, "nope", "text")
	assert.Error(t, err)
}

func TestContext(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))

	logger := slog.New(slog.DiscardHandler)
	ctx := WithLogger(context.Background(), logger)
	assert.Same(t, logger, FromContext(ctx))
}
