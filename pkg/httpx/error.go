package httpx

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/ARUMANDESU/validation"
	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/language"

	codeauth "gitlab.com/codeauth/codeauth-backend"
	"gitlab.com/codeauth/codeauth-backend/pkg/errorx"
	"gitlab.com/codeauth/codeauth-backend/pkg/logging"
	"gitlab.com/codeauth/codeauth-backend/pkg/otelx"
)

var logger = logging.Named("codeauth/pkg/httpx")

var localeFiles = []string{
	"locales/en.toml",
	"locales/ru.toml",
	"locales/validation.en.toml",
	"locales/validation.ru.toml",
}

type ErrorHandler struct {
	logger  *slog.Logger
	matcher language.Matcher
	// localizers[i] serves the i-th tag given to matcher
	localizers []*i18n.Localizer
}

func NewErrorHandler() *ErrorHandler {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	for _, file := range localeFiles {
		if _, err := bundle.LoadMessageFileFS(codeauth.Locales, file); err != nil {
			panic(fmt.Sprintf("failed to load locale %s: %v", file, err))
		}
	}

	// the bundle's default language comes first, so it wins when nothing matches
	tags := bundle.LanguageTags()
	localizers := make([]*i18n.Localizer, len(tags))
	for i, tag := range tags {
		localizers[i] = i18n.NewLocalizer(bundle, tag.String())
	}

	return &ErrorHandler{
		logger:     logger,
		matcher:    language.NewMatcher(tags),
		localizers: localizers,
	}
}

// Localizer picks the best supported language for an Accept-Language header
// value, falling back to English.
func (h *ErrorHandler) Localizer(acceptLanguage string) *i18n.Localizer {
	wanted, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(wanted) == 0 {
		return h.localizers[0]
	}
	_, idx, _ := h.matcher.Match(wanted...)
	return h.localizers[idx]
}

// HandleError records err on span and writes it as a JSON error response.
// Application errors keep their code and status, validation errors become
// VALIDATION_FAILED and anything else is reported as INTERNAL_ERROR.
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, span trace.Span, err error, desc string) {
	otelx.RecordSpanError(span, err, desc)
	localizer := h.Localizer(r.Header.Get("Accept-Language"))

	var appErr *errorx.I18nError
	if errors.As(err, &appErr) {
		status := appErr.HTTPStatusCode()
		h.log(r, status, desc, err)

		if retryAfter, ok := appErr.RetryAfter(); ok {
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		}
		writeError(w, r, appErr.Code, appErr.Localize(localizer), status)
		return
	}

	var valErrs validation.Errors
	if errors.As(err, &valErrs) {
		h.log(r, http.StatusBadRequest, desc, err)
		writeError(w, r, errorx.CodeValidationFailed, localizeValidationErrors(localizer, valErrs), http.StatusBadRequest)
		return
	}

	var valErr validation.Error
	if errors.As(err, &valErr) {
		h.log(r, http.StatusBadRequest, desc, err)
		writeError(w, r, errorx.CodeValidationFailed, localizeValidationError(localizer, valErr), http.StatusBadRequest)
		return
	}

	h.log(r, http.StatusInternalServerError, desc, err)
	internalErr := errorx.NewInternalError()
	writeError(w, r, internalErr.Code, internalErr.Localize(localizer), internalErr.HTTPStatusCode())
}

func (h *ErrorHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	err := errorx.NewNotFound()
	writeError(w, r, err.Code, err.Localize(h.Localizer(r.Header.Get("Accept-Language"))), err.HTTPStatusCode())
}

func (h *ErrorHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	err := errorx.NewMethodNotAllowed()
	writeError(w, r, err.Code, err.Localize(h.Localizer(r.Header.Get("Accept-Language"))), err.HTTPStatusCode())
}

func (h *ErrorHandler) log(r *http.Request, status int, desc string, err error) {
	attrs := []any{
		slog.Int("status", status),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	}
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), desc, attrs...)
		return
	}
	h.logger.DebugContext(r.Context(), desc, attrs...)
}

func localizeValidationError(localizer *i18n.Localizer, valErr validation.Error) string {
	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    valErr.Code(),
		TemplateData: valErr.Params(),
	})
	if err != nil {
		return valErr.Error()
	}
	return msg
}

func localizeValidationErrors(localizer *i18n.Localizer, valErrs validation.Errors) string {
	fields := make([]string, 0, len(valErrs))
	for field := range valErrs {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var msg strings.Builder
	for i, field := range fields {
		if i > 0 {
			msg.WriteString("; ")
		}
		fieldErr := valErrs[field]
		var valErr validation.Error
		if errors.As(fieldErr, &valErr) {
			fmt.Fprintf(&msg, "%s: %s", field, localizeValidationError(localizer, valErr))
		} else {
			fmt.Fprintf(&msg, "%s: %s", field, fieldErr.Error())
		}
	}
	return msg.String()
}

func writeError(w http.ResponseWriter, r *http.Request,
	code errorx.Code,
	message string,
	status int,
) {
	response := Envelope{
		"code":    code,
		"message": message,
		"success": false,
	}

	err := WriteJSON(w, status, response, nil)
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to write error response", slog.String("error", err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
