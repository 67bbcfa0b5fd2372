package httpadapter

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/kirillkom/vehicle-checker/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch domain.KindOf(err) {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindRecognition:
		return http.StatusUnprocessableEntity
	case domain.KindConfiguration:
		return http.StatusServiceUnavailable
	case domain.KindRemote:
		return remoteStatus(err)
	case domain.KindNetwork:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func remoteStatus(err error) int {
	status := 0
	if de, ok := asDomainError(err); ok {
		status = de.Status
	}
	switch status {
	case http.StatusNotFound:
		return http.StatusNotFound
	case http.StatusBadRequest:
		return http.StatusUnprocessableEntity
	case http.StatusTooManyRequests:
		return http.StatusTooManyRequests
	case http.StatusServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request_failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"kind", domain.KindOf(err),
			"error", err,
		)
	}
	writeJSON(w, status, errorResponse{
		Error: domain.UserMessage(err),
		Kind:  string(domain.KindOf(err)),
	})
}

func asDomainError(err error) (*domain.Error, bool) {
	var de *domain.Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}
