package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/formr/engine/internal/api/types"
	appErr "github.com/formr/engine/pkg/errors"
)

func reject(w http.ResponseWriter, r *http.Request, status int, code appErr.Code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.APIResponse{
		Success: false,
		Error:   &types.APIError{Code: string(code), Message: msg},
		Meta:    &types.Meta{RequestID: GetRequestID(r.Context())},
	})
}
