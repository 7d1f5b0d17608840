package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	apperrors "tourhub/pkg/errors"
	"tourhub/pkg/validation"
)

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestWritePaginated_SetsHeadersAndEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	p := NewPagination(2, 20, 45)

	require.NoError(t, WritePaginated(rec, []string{"a"}, p))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "45", rec.Header().Get(HeaderTotalCount))
	assert.Equal(t, "3", rec.Header().Get(HeaderTotalPages))

	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 2, env.Pagination.Page)
	assert.Equal(t, 3, env.Pagination.TotalPages)
}

func TestNewPagination_ZeroTotal(t *testing.T) {
	p := NewPagination(1, 20, 0)
	assert.Equal(t, 0, p.TotalPages)
}

func TestTranslate(t *testing.T) {
	dupErr := mongo.WriteException{WriteErrors: mongo.WriteErrors{{
		Code:    11000,
		Message: `E11000 duplicate key error collection: tourhub.users index: email_1 dup key: { email: "a@b.co" }`,
	}}}

	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"app error keeps status", apperrors.Forbidden("nope"), http.StatusForbidden},
		{"wrapped app error", fmt.Errorf("ctx: %w", apperrors.NotFound("Booking")), http.StatusNotFound},
		{"validation errors", validation.Single("email", "email is required"), http.StatusBadRequest},
		{"duplicate key", dupErr, http.StatusConflict},
		{"invalid object id", fmt.Errorf("parse: %w", primitive.ErrInvalidHex), http.StatusBadRequest},
		{"expired jwt", fmt.Errorf("verify: %w", jwt.ErrTokenExpired), http.StatusUnauthorized},
		{"bad signature", jwt.ErrTokenSignatureInvalid, http.StatusUnauthorized},
		{"syntax error", &json.SyntaxError{}, http.StatusBadRequest},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantStatus, Translate(tt.err).HTTPStatus)
		})
	}
}

func TestTranslate_DuplicateKeyField(t *testing.T) {
	err := mongo.WriteException{WriteErrors: mongo.WriteErrors{{
		Code:    11000,
		Message: `E11000 duplicate key error collection: tourhub.tenants index: slug_1 dup key: { slug: "acme" }`,
	}}}
	appErr := Translate(err)
	assert.Equal(t, "slug", appErr.Details["field"])
}

func TestWriteError_SuppressesInternalMessage(t *testing.T) {
	ExposeInternalErrors(false)
	rec := httptest.NewRecorder()
	require.NoError(t, WriteError(rec, errors.New("connection refused to 10.0.0.3")))

	env := decodeEnvelope(t, rec)
	assert.False(t, env.Success)
	assert.Equal(t, "Internal server error", env.Error)

	ExposeInternalErrors(true)
	defer ExposeInternalErrors(false)
	rec = httptest.NewRecorder()
	require.NoError(t, WriteError(rec, errors.New("connection refused to 10.0.0.3")))
	assert.Equal(t, "connection refused to 10.0.0.3", decodeEnvelope(t, rec).Error)
}

func TestWriteError_ValidationFields(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteError(rec, validation.ValidationErrors{
		{Field: "email", Message: "email is required"},
		{Field: "password", Message: "password must be at least 8"},
	}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Len(t, env.Errors, 2)
	assert.Equal(t, "password", env.Errors[1].Field)
}

func TestExtractPage(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/attractions?page=3&limit=500", nil)
	p, err := ExtractPage(req)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Page)
	assert.Equal(t, 100, p.Limit)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/attractions?page=abc", nil)
	_, err = ExtractPage(req)
	assert.Error(t, err)
}
