package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("verbose"))
}

func TestDetach_KeepsRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	reqLogger := zerolog.New(&buf).With().Str("request_id", "abc123").Logger()

	reqCtx, cancel := context.WithCancel(NewContext(context.Background(), &reqLogger))
	cancel()

	detached := Detach(reqCtx)
	assert.NoError(t, detached.Err())

	WithContext(detached).Info().Msg("background")
	assert.Contains(t, buf.String(), `"request_id":"abc123"`)
}
