package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sekolah-service/internal/backup"
	"sekolah-service/internal/schoolimport/service"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{service.ErrNoFile, http.StatusBadRequest},
		{fmt.Errorf("%w: truncate", service.ErrInvalidStrategy), http.StatusBadRequest},
		{fmt.Errorf("%w: bad zip", service.ErrUnreadableFile), http.StatusBadRequest},
		{fmt.Errorf("%w: \"../x\"", backup.ErrInvalidFilename), http.StatusBadRequest},
		{backup.ErrBackupNotFound, http.StatusNotFound},
		{&http.MaxBytesError{Limit: 10}, http.StatusRequestEntityTooLarge},
		{fmt.Errorf("%w: disk full", service.ErrBackupFailed), http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, statusFor(c.err), c.err.Error())
	}
}

func TestWriteErrorBody(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, zerolog.Nop(), "Failed to import schools", fmt.Errorf("%w: disk full", service.ErrBackupFailed))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Failed to create backup. Import aborted for safety.", body["message"])
	assert.Contains(t, body["error"], "disk full")
	assert.NotContains(t, body, "backup")
}

func TestQueryInt(t *testing.T) {
	for q, want := range map[string]int{"": 30, "?keepDays=7": 7, "?keepDays=0": 30, "?keepDays=-3": 30, "?keepDays=abc": 30} {
		r := httptest.NewRequest(http.MethodDelete, "/cleanup"+q, nil)
		assert.Equal(t, want, queryInt(r, "keepDays", 30), q)
	}
}
