package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ARUMANDESU/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"gitlab.com/codeauth/codeauth-backend/pkg/errorx"
	"gitlab.com/codeauth/codeauth-backend/pkg/validationx"
)

func handle(t *testing.T, err error, lang string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/x", nil)
	if lang != "" {
		req.Header.Set("Accept-Language", lang)
	}
	rec := httptest.NewRecorder()
	_, span := noop.NewTracerProvider().Tracer("test").Start(req.Context(), "test")

	NewErrorHandler().HandleError(rec, req, span, err, "test")

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestHandleError_AppError(t *testing.T) {
	rec, body := handle(t, errorx.Wrap(errorx.NewRateLimitExceededWithRetry(12), "op"), "")

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "12", rec.Header().Get("Retry-After"))
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", body["code"])
	assert.Equal(t, "Too many requests, please try again in 12 seconds", body["message"])
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestHandleError_ValidationErrors(t *testing.T) {
	req := struct {
		Email string
		Code  string
	}{Email: "nope", Code: ""}
	err := validation.ValidateStruct(&req,
		validation.Field(&req.Email, validationx.EmailRules...),
		validation.Field(&req.Code, validationx.VerificationCodeRules...),
	)
	require.Error(t, err)

	rec, body := handle(t, err, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_FAILED", body["code"])
	assert.Equal(t, "Code: cannot be blank; Email: must be a valid email address", body["message"])
}

func TestHandleError_SingleValidationError(t *testing.T) {
	err := validation.Validate("", validation.Required)

	rec, body := handle(t, err, "ru")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_FAILED", body["code"])
	assert.NotEqual(t, "cannot be blank", body["message"])
}

func TestHandleError_UnknownErrorIsInternal(t *testing.T) {
	rec, body := handle(t, errors.New("db exploded"), "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL_ERROR", body["code"])
	assert.NotContains(t, body["message"], "db exploded")
}

func TestLocalizer_FallsBackToEnglish(t *testing.T) {
	h := NewErrorHandler()
	err := errorx.NewInvalidCode()

	assert.Equal(t, "Invalid verification code", err.Localize(h.Localizer("")))
	assert.Equal(t, "Invalid verification code", err.Localize(h.Localizer("fr-FR")))
	assert.Equal(t, "Invalid verification code", err.Localize(h.Localizer(";;;garbage")))
	assert.Equal(t, "Неверный код подтверждения", err.Localize(h.Localizer("ru")))
}

func TestReadJSON(t *testing.T) {
	type payload struct {
		Email string `json:"email"`
	}

	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"email":"a@b.co"}`, false},
		{"empty", ``, true},
		{"syntax", `{"email":}`, true},
		{"unknown field", `{"email":"a@b.co","x":1}`, true},
		{"wrong type", `{"email":1}`, true},
		{"two values", `{"email":"a"}{"email":"b"}`, true},
		{"too large", `{"email":"` + strings.Repeat("a", maxRequestBodySize) + `"}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var p payload
			err := ReadJSON(httptest.NewRecorder(), req, &p)
			if !tt.wantErr {
				require.NoError(t, err)
				assert.Equal(t, "a@b.co", p.Email)
				return
			}
			assert.True(t, errorx.IsCode(err, errorx.CodeMalformedJSON), err)
		})
	}
}

func TestSuccess(t *testing.T) {
	rec := httptest.NewRecorder()
	Success(rec, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusCreated, Envelope{"id": "1"})

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "1", body["id"])
}
