// Maps storage and analysis errors onto the coded API taxonomy.

package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/graphdesk/graphdesk/internal/analysis"
	"github.com/graphdesk/graphdesk/internal/server/dto"
	"github.com/graphdesk/graphdesk/internal/storage"
)

// apiError converts a domain error into a dto error carrying an HTTP status
// and machine code. Errors already carrying a status pass through; anything
// unrecognized becomes a 500 with the original wrapped for the log line.
func apiError(err error) error {
	if err == nil {
		return nil
	}
	var ews dto.ErrorWithStatus
	if errors.As(err, &ews) {
		return err
	}

	var conflict *storage.ConflictError
	if errors.As(err, &conflict) {
		return dto.Conflict(conflict.Error()).WithDetail("conflicts", conflict.Conflicts)
	}
	var fileErr *storage.FileError
	if errors.As(err, &fileErr) {
		switch fileErr.Code {
		case "SIZE_LIMIT_EXCEEDED":
			return dto.NewAPIError(http.StatusRequestEntityTooLarge, dto.ErrorCodeSizeLimitExceeded, fileErr.Message).
				WithDetail("fileName", fileErr.FileName)
		case "UNSUPPORTED_TYPE":
			return dto.UnsupportedType(fileErr.Message).WithDetail("fileName", fileErr.FileName)
		default:
			return dto.BadRequest(fileErr.Message).WithDetail("fileName", fileErr.FileName)
		}
	}
	var sizeErr *storage.SizeLimitError
	if errors.As(err, &sizeErr) {
		return dto.SizeLimitExceeded(sizeErr.Error(), sizeErr.Limit)
	}

	switch {
	case errors.Is(err, storage.ErrNotFound):
		return dto.NotFound("resource").Wrap(err)
	case errors.Is(err, storage.ErrInvalidReference):
		return dto.InvalidReference(err.Error())
	case errors.Is(err, storage.ErrFolderNotEmpty):
		return dto.FolderNotEmpty()
	case errors.Is(err, analysis.ErrUnavailable):
		return dto.DependencyUnavailable(err.Error())
	}
	return dto.InternalWithError("internal error", err)
}

// writeErrorResponse writes an error as a JSON response.
// Use this in raw http.HandlerFunc handlers that don't use server.Wrap.
func writeErrorResponse(w http.ResponseWriter, err error) {
	statusCode := http.StatusInternalServerError
	errorCode := dto.ErrorCodeInternal
	message := "internal error"
	var details map[string]any

	var ewsErr dto.ErrorWithStatus
	if errors.As(apiError(err), &ewsErr) {
		statusCode = ewsErr.StatusCode()
		errorCode = ewsErr.Code()
		message = ewsErr.Error()
		details = ewsErr.Details()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := dto.ErrorResponse{
		Error: dto.ErrorDetails{
			Code:    errorCode,
			Message: message,
		},
		Details: details,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.Error("Failed to encode error response", "error", err)
	}
}
