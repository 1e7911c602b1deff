package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/formr/engine/internal/api/middleware"
	"github.com/formr/engine/internal/api/types"
	appErr "github.com/formr/engine/pkg/errors"
	"github.com/formr/engine/pkg/logger"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError responds with the status for err's code. Server-side failures
// are logged with the request id; their details never reach the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := types.StatusOf(err)
	reqID := middleware.GetRequestID(r.Context())
	switch {
	case status >= http.StatusInternalServerError && status != http.StatusNotImplemented:
		logger.L().Error("request failed", zap.String("request_id", reqID), zap.Error(err))
	default:
		logger.L().Debug("request rejected", zap.String("request_id", reqID), zap.Error(err))
	}
	writeJSON(w, status, types.APIResponse{
		Success: false,
		Error:   types.FromAppError(err),
		Meta:    &types.Meta{RequestID: reqID},
	})
}

func writeErrorStr(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, types.APIResponse{
		Success: false,
		Error:   &types.APIError{Code: string(appErr.CodeInvalid), Message: msg},
		Meta:    &types.Meta{RequestID: middleware.GetRequestID(r.Context())},
	})
}

// decodeJSON reads a size-limited JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeErrorStr(w, r, http.StatusRequestEntityTooLarge, "request body too large")
		case errors.Is(err, io.EOF):
			writeErrorStr(w, r, http.StatusBadRequest, "request body is empty")
		default:
			writeErrorStr(w, r, http.StatusBadRequest, "invalid json")
		}
		return false
	}
	return true
}

// pathID parses the {id} route parameter.
func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, appErr.Validation([]appErr.FieldError{{Field: "id", Message: "Invalid id"}}))
		return uuid.Nil, false
	}
	return id, true
}

// tenantID returns the tenant the middleware resolved.
func tenantID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id := middleware.GetTenantID(r.Context())
	if id == uuid.Nil {
		writeError(w, r, appErr.New(appErr.CodeUnauthorized, "missing tenant"))
		return uuid.Nil, false
	}
	return id, true
}

// pagination reads page and page_size, defaulting to 1 and 20.
func pagination(r *http.Request) (page, size int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	size, _ = strconv.Atoi(r.URL.Query().Get("page_size"))
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return page, size
}

func pageBounds(page, size, total int) (start, end int) {
	start = (page - 1) * size
	end = start + size
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}
	return start, end
}

// etagMatches reports whether an If-None-Match or If-Match header lists etag.
func etagMatches(header, etag string) bool {
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		if part == "*" || part == etag || part == "W/"+etag {
			return true
		}
	}
	return false
}
