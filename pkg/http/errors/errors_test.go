package errors

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondError(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, http.StatusUnprocessableEntity, ErrCodePoolInsufficient, "Not enough questions")

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, ErrCodePoolInsufficient, body.Error)
	assert.Equal(t, "Not enough questions", body.Message)
}

func TestRespondValidationError(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondValidationError(rec, ErrCodeValidationFailed, "bad choice", "choice_index")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "choice_index", body.Field)
}

func TestRespondErrorWithDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondErrorWithDetails(rec, http.StatusUnprocessableEntity, ErrCodePoolInsufficient, "short", map[string]interface{}{"pool": "hard"})

	var body ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "hard", body.Details["pool"])
}

func TestRespondUnprocessable(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondUnprocessable(rec, ErrCodePoolInsufficient, "short", map[string]interface{}{"need": 40, "have": 12})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var body ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, ErrCodePoolInsufficient, body.Error)
	assert.Equal(t, float64(40), body.Details["need"])
	assert.Equal(t, float64(12), body.Details["have"])
}

func TestRespondMethodNotAllowed(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondMethodNotAllowed(rec)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	var body ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, ErrCodeInvalidRequest, body.Error)
}
