// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Memberd Contributors

package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/samber/oops"

	"github.com/memberd/memberd/internal/auth"
	"github.com/memberd/memberd/pkg/errutil"
)

// ErrorResponse is the JSON body for all error responses.
type ErrorResponse struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// statusByCode maps auth error codes onto HTTP status codes. Codes absent from
// the map are treated as internal errors.
var statusByCode = map[string]int{
	auth.CodeDuplicateEmail:          http.StatusConflict,
	auth.CodeLoginFailed:             http.StatusUnauthorized,
	auth.CodeUserNotFound:            http.StatusNotFound,
	auth.CodeInvalidToken:            http.StatusUnauthorized,
	auth.CodeTokenMismatch:           http.StatusUnauthorized,
	auth.CodeInvalidVerificationCode: http.StatusBadRequest,
	auth.CodeInvalidResetToken:       http.StatusBadRequest,
	auth.CodeInvalidInput:            http.StatusBadRequest,
}

// writeError translates err into the error response contract. Mapped codes
// surface their message; everything else becomes an opaque 500 so internal
// detail never leaks to clients.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	if oopsErr, ok := oops.AsOops(err); ok {
		code, _ := oopsErr.Code().(string)
		if status, mapped := statusByCode[code]; mapped {
			writeJSON(w, status, ErrorResponse{
				Status:  status,
				Code:    code,
				Message: oopsErr.Error(),
			})
			return
		}
	}

	errutil.LogError(s.logger, "request failed", err)
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Status:  http.StatusInternalServerError,
		Code:    "INTERNAL_ERROR",
		Message: "internal server error",
	})
}

// invalidInput writes a 400 response carrying the validation failure detail.
func (s *Server) invalidInput(w http.ResponseWriter, err error) {
	s.writeError(w, oops.Code(auth.CodeInvalidInput).Wrap(err))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Debug("response write failed", "error", err)
	}
}
