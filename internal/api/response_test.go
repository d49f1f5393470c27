package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloo-solutions/docsrag/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()

	JSON(w, http.StatusOK, map[string]string{"key": "value"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var result map[string]string
	err := json.Unmarshal(w.Body.Bytes(), &result)
	require.NoError(t, err)
	assert.Equal(t, "value", result["key"])
}

func TestJSON_NilData(t *testing.T) {
	w := httptest.NewRecorder()

	JSON(w, http.StatusNoContent, nil)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestError(t *testing.T) {
	w := httptest.NewRecorder()

	Error(w, http.StatusBadRequest, "invalid input")

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var result ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &result)
	require.NoError(t, err)
	assert.Equal(t, "invalid input", result.Error)
}

func TestDomainErrorToHTTP(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil error", nil, http.StatusOK},
		{"validation error", domain.ErrInvalidTopK, http.StatusBadRequest},
		{"not found error", domain.ErrConversationNotFound, http.StatusNotFound},
		{"unauthorized error", domain.ErrInvalidAPIKey, http.StatusUnauthorized},
		{"encoding error", domain.NewEncodingError("embed query", errors.New("timeout")), http.StatusServiceUnavailable},
		{"generation error", domain.NewGenerationError(3, errors.New("503")), http.StatusBadGateway},
		{"retrieval error", domain.NewRetrievalError("search", nil), http.StatusInternalServerError},
		{"wrapped domain error", fmt.Errorf("handler: %w", domain.ErrConversationNotFound), http.StatusNotFound},
		{"non-domain error", assert.AnError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := DomainErrorToHTTP(tt.err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestHandleError(t *testing.T) {
	t.Run("client error keeps detail", func(t *testing.T) {
		w := httptest.NewRecorder()

		HandleError(w, domain.ErrConversationNotFound)

		assert.Equal(t, http.StatusNotFound, w.Code)
		var result ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		assert.Contains(t, result.Error, "conversation not found")
		assert.Equal(t, domain.ErrCodeNotFound, result.Code)
	})

	t.Run("generation failure hides cause", func(t *testing.T) {
		w := httptest.NewRecorder()

		HandleError(w, domain.NewGenerationError(3, errors.New("sk-secret rejected")))

		assert.Equal(t, http.StatusBadGateway, w.Code)
		var result ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		assert.Equal(t, "generation failed after 3 attempts", result.Error)
		assert.Equal(t, domain.ErrCodeGeneration, result.Code)
	})

	t.Run("unknown error", func(t *testing.T) {
		w := httptest.NewRecorder()

		HandleError(w, errors.New("boom"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		var result ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		assert.Equal(t, "Internal Server Error", result.Error)
	})
}
