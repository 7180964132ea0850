package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dgallion1/docstruct/internal/docmodel"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeError maps a domain error to its HTTP status, keeping the stable code
// and structured details in the body so clients can react programmatically.
func writeError(w http.ResponseWriter, err error) {
	var de *docmodel.Error
	if !errors.As(err, &de) {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, statusFor(de.Code), map[string]any{
		"error":   de.Message,
		"code":    de.Code,
		"details": de.Details,
	})
}

func statusFor(code docmodel.ErrorCode) int {
	switch code {
	case docmodel.CodePathNotFound:
		return http.StatusNotFound
	case docmodel.CodeLockConflict:
		return http.StatusConflict
	case docmodel.CodeMalformedPath:
		return http.StatusBadRequest
	case docmodel.CodeUnresolvedInclude, docmodel.CodeCircularInclude:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
