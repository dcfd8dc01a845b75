package httpapi

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteSuccess_EnvelopeShape(t *testing.T) {
	w := httptest.NewRecorder()
	writeSuccess(w, "hotspots", map[string]int{"a": 1})

	require.Equal(t, 200, w.Code)
	require.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.True(t, env.Success)
	require.Equal(t, "hotspots", env.Query)
}

func TestWriteError_AlwaysReturns200(t *testing.T) {
	w := httptest.NewRecorder()
	writeError(w, "boom")

	require.Equal(t, 200, w.Code)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.False(t, env.Success)
	require.Equal(t, "boom", env.Error)
}
