package stream

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/ragstream/core"
)

func TestSSEWriter(t *testing.T) {
	rec := httptest.NewRecorder()

	w, err := NewSSEWriter(rec)
	require.NoError(t, err)

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "no", rec.Header().Get("X-Accel-Buffering"))

	require.NoError(t, w.Write(core.NewTextDeltaEvent("hello ")))
	require.NoError(t, w.Write(core.NewFinishedEvent(core.FinishReasonStop)))

	body := rec.Body.String()
	assert.Contains(t, body, `data: {"type":"text-delta","text_delta":"hello "}`)
	assert.Contains(t, body, `"finish_reason":"stop"`)
	assert.True(t, rec.Flushed)
}
