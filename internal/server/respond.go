package server

import (
	"encoding/json"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songstream/internal/shared"
)

// ErrorBody is the detail of an error envelope.
type ErrorBody struct {
	Kind   shared.Kind `json:"kind"`
	Detail string      `json:"detail"`
}

// ErrorEnvelope is the JSON body of every failed response.
type ErrorEnvelope struct {
	Error ErrorBody `json:"error"`
}

var statuses = map[shared.Kind]int{
	shared.KindInputInvalid:        http.StatusBadRequest,
	shared.KindUnauthenticated:     http.StatusUnauthorized,
	shared.KindExchangeFailed:      http.StatusBadGateway,
	shared.KindExternalUnavailable: http.StatusBadGateway,
	shared.KindNotFound:            http.StatusNotFound,
	shared.KindCredentialMissing:   http.StatusBadRequest,
	shared.KindPersistenceFailure:  http.StatusInternalServerError,
	shared.KindTimeout:             http.StatusGatewayTimeout,
	shared.KindInternal:            http.StatusInternalServerError,
}

// StatusOf maps an error kind to its HTTP status.
func StatusOf(kind shared.Kind) int {
	if status, ok := statuses[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError answers with the error envelope. Internal errors are logged and their detail is not
// sent to the client.
func writeError(w http.ResponseWriter, logger *log.Logger, err error) {
	kind := shared.KindOf(err)
	detail := err.Error()

	switch kind {
	case shared.KindInternal:
		logger.Error("request failed", "error", err)
		detail = "internal server error"
	case shared.KindPersistenceFailure, shared.KindExternalUnavailable, shared.KindTimeout:
		logger.Warn("request failed", "kind", kind, "error", err)
	default:
		logger.Debug("request rejected", "kind", kind, "error", err)
	}

	writeJSON(w, StatusOf(kind), ErrorEnvelope{Error: ErrorBody{Kind: kind, Detail: detail}})
}
