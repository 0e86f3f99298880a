package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"veostudio/internal/domain"
	"veostudio/internal/middleware"
)

const (
	codeUnauthorized      = "unauthorized"
	codeNotFound          = "not_found"
	codeBadRequest        = "bad_request"
	codeInvalidPreset     = "invalid_preset"
	codeNoResult          = "no_result"
	codeConflict          = "conflict"
	codeCredentialFailure = "credential_failure"
	codeUpstreamBilling   = "upstream_billing"
	codeUpstreamError     = "upstream_error"
	codeInternal          = "internal"
)

var messages = map[string]map[string]string{
	"en": {
		codeUnauthorized:      "sign in required",
		codeNotFound:          "video not found",
		codeBadRequest:        "invalid request",
		codeInvalidPreset:     "unknown effect preset",
		codeNoResult:          "video content not available",
		codeConflict:          "the video was already started",
		codeCredentialFailure: "could not authenticate with the video engine",
		codeUpstreamBilling:   "billing is not enabled on the Google Cloud project; enable billing to generate videos",
		codeUpstreamError:     "the video engine returned status %d",
		codeInternal:          "internal server error",
		"submit_prefix":       "video engine connection failed: ",
	},
	"ar": {
		codeUnauthorized:      "يجب تسجيل الدخول",
		codeNotFound:          "الفيديو غير موجود",
		codeBadRequest:        "طلب غير صالح",
		codeInvalidPreset:     "تأثير غير معروف",
		codeNoResult:          "محتوى الفيديو غير متاح",
		codeConflict:          "تم بدء الفيديو بالفعل",
		codeCredentialFailure: "تعذر المصادقة مع محرك الفيديو",
		codeUpstreamBilling:   "الفوترة غير مفعلة في مشروع Google Cloud، يرجى تفعيلها لإنشاء الفيديوهات",
		codeUpstreamError:     "أعاد محرك الفيديو الحالة %d",
		codeInternal:          "خطأ داخلي في الخادم",
		"submit_prefix":       "فشل الاتصال بمحرك الفيديو: ",
	},
}

func message(r *http.Request, key string) string {
	catalog, ok := messages[middleware.LocaleFromContext(r.Context())]
	if !ok {
		catalog = messages["en"]
	}
	if msg, ok := catalog[key]; ok {
		return msg
	}
	return messages["en"][key]
}

// classify maps a service error to an HTTP status, an error code and the
// localized message shown to the user.
func classify(r *http.Request, err error) (int, string, string) {
	var upstream *domain.UpstreamError
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, codeUnauthorized, message(r, codeUnauthorized)
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, codeNotFound, message(r, codeNotFound)
	case errors.Is(err, domain.ErrInvalidPreset):
		return http.StatusBadRequest, codeInvalidPreset, message(r, codeInvalidPreset)
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest, codeBadRequest, message(r, codeBadRequest)
	case errors.Is(err, domain.ErrDuplicateOperation):
		return http.StatusConflict, codeConflict, message(r, codeConflict)
	case errors.Is(err, domain.ErrUpstreamBilling):
		return http.StatusBadGateway, codeUpstreamBilling, message(r, codeUpstreamBilling)
	case errors.Is(err, domain.ErrCredentialAcquisition):
		return http.StatusBadGateway, codeCredentialFailure, message(r, codeCredentialFailure)
	case errors.As(err, &upstream):
		return http.StatusBadGateway, codeUpstreamError, fmt.Sprintf(message(r, codeUpstreamError), upstream.StatusCode)
	default:
		return http.StatusInternalServerError, codeInternal, message(r, codeInternal)
	}
}

func (a *App) serviceError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, msg := classify(r, err)
	if status >= http.StatusInternalServerError {
		log := a.requestLogger(r)
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	a.error(w, status, code, msg)
}

// submitError is serviceError with the connection-failure prefix on
// upstream-side failures.
func (a *App) submitError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, msg := classify(r, err)
	if status >= http.StatusInternalServerError {
		msg = message(r, "submit_prefix") + msg
		log := a.requestLogger(r)
		log.Warn().Err(err).Str("code", code).Msg("video submission failed")
	}
	a.error(w, status, code, msg)
}
