//nolint:revive // "api" package name is intentionally concise for this layer.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/tradedesk/internal/backend"
)

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()

	JSON(w, http.StatusOK, map[string]string{"foo": "bar"})

	resp := w.Result()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var got map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "bar", got["foo"])
}

func TestBackendFailure(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{"logical failure", &backend.APIError{StatusCode: 200, Message: "Trade not found"}, 200, "Trade not found"},
		{"upstream status", &backend.APIError{StatusCode: 500, Message: "boom"}, 500, "boom"},
		{"wrapped", fmt.Errorf("get trade: %w", &backend.APIError{StatusCode: 404}), 404, "backend returned status 404"},
		{"missing status", &backend.APIError{Message: "odd"}, http.StatusBadGateway, "odd"},
		{"transport", errTransport, http.StatusBadGateway, "trading backend unavailable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, msg := backendFailure(tt.err)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantMsg, msg)
		})
	}
}
