package pkg

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
)

// ErrorBody, tüm hata yanıtlarının wire formatı:
//
//	{"error": {"code": 404, "message": "server not found"}}
//
// code her zaman HTTP status ile aynıdır. Client tek bir yapı bekler.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail, hata zarfının içi.
type ErrorDetail struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// JSON, başarılı bir yanıtı olduğu gibi serialize eder.
// Başarı yanıtları zarfsızdır; sadece hatalar ErrorBody zarfına girer.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[http] response encode: %v", err)
	}
}

// NoContent, gövdesiz 204 yanıtı gönderir.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Error, domain error'ını HTTP yanıtına çevirir.
// errors.Is ile error chain'i kontrol edilir; wrap edilmiş error'lar
// da doğru status'a düşer. Internal ve database hataları log'lanır
// ama mesajları client'a verilmez.
func Error(w http.ResponseWriter, err error) {
	status := mapErrorToStatus(err)
	msg := err.Error()

	if status == http.StatusInternalServerError {
		log.Printf("[http] internal error: %v", err)
		msg = "internal server error"
	}

	writeError(w, status, msg)
}

// ErrorWithMessage, sabit status ve mesajla hata yanıtı gönderir.
func ErrorWithMessage(w http.ResponseWriter, status int, message string) {
	writeError(w, status, message)
}

// RateLimited, 429 yanıtını Retry-After header'ı ile gönderir.
func RateLimited(w http.ResponseWriter, retryAfterSeconds int) {
	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
	writeError(w, http.StatusTooManyRequests, "too many requests")
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	body := ErrorBody{Error: ErrorDetail{Code: status, Message: message}}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("[http] error encode: %v", err)
	}
}

func mapErrorToStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		// ErrDatabase ve ErrInternal dahil her bilinmeyen error 500'dür.
		return http.StatusInternalServerError
	}
}
