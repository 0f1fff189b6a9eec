package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sakif/botpanel/internal/apperror"
)

func TestWriteError_StatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"validation", apperror.ValidationFailed("token", "token is required"), http.StatusBadRequest, "validation_error"},
		{"not found", apperror.NotFound("account", "a1"), http.StatusNotFound, "not_found"},
		{"forbidden", apperror.Forbidden("no"), http.StatusForbidden, "forbidden"},
		{"conflict", apperror.Conflict("user", "u1"), http.StatusConflict, "conflict"},
		{"unauthenticated", apperror.Unauthenticated("login"), http.StatusUnauthorized, "unauthorized"},
		{"upstream", apperror.Upstream("could not start bot-1", errors.New("docker: socket closed")), http.StatusBadGateway, "upstream_failure"},
		{"wrapped", fmt.Errorf("service/account: %w", apperror.NotFound("account", "a1")), http.StatusNotFound, "not_found"},
		{"raw", errors.New("sqlite: database is locked"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			resp := decode[ErrorResponse](t, rec)
			assert.Equal(t, tt.wantType, resp.Error)
			assert.NotContains(t, rec.Body.String(), "docker: socket closed")
			assert.NotContains(t, rec.Body.String(), "database is locked")
		})
	}
}

func TestWriteError_ValidationFields(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, apperror.ValidationFailed("token", "token is required"))

	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, map[string]string{"token": "token is required"}, resp.Fields)
}
