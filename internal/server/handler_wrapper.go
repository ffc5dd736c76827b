// Provides middleware for standardizing HTTP handlers.

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"

	"github.com/graphdesk/graphdesk/internal/server/dto"
	"github.com/graphdesk/graphdesk/internal/server/ratelimit"
	"github.com/graphdesk/graphdesk/internal/server/reqctx"
)

// Options carries the cross-cutting settings shared by every wrapped handler.
type Options struct {
	// Limiters routes requests to a rate limit tier. Nil disables limiting.
	Limiters *ratelimit.Config
	// MaxBodyBytes caps the raw request body. Zero means no cap.
	MaxBodyBytes int64
}

// addRequestMetadataToContext adds client IP and User-Agent to the context.
func addRequestMetadataToContext(ctx context.Context, r *http.Request) context.Context {
	ctx = reqctx.WithClientIP(ctx, reqctx.GetClientIP(r))
	ctx = reqctx.WithUserAgent(ctx, r.Header.Get("User-Agent"))
	return ctx
}

// checkRateLimit checks rate limit and wraps the response writer if needed.
// Returns the (possibly wrapped) writer and whether the request should proceed.
func checkRateLimit(w http.ResponseWriter, tier *ratelimit.Tier, ip string) (http.ResponseWriter, bool) {
	if tier == nil {
		return w, true
	}
	key := ratelimit.BuildKey(ip, tier.Name)
	result := tier.Limiter.Allow(key)
	w = ratelimit.NewResponseWriter(w, result)
	if !result.Allowed {
		writeRateLimitError(w, result)
		return w, false
	}
	return w, true
}

// checkMaxBytesError checks if an error is a MaxBytesError and returns it, or nil.
func checkMaxBytesError(err error) *http.MaxBytesError {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return maxBytesErr
	}
	return nil
}

// readAndDecodeBody reads the request body with size limit and decodes JSON into input.
// Returns false if an error occurred and was written to the response.
func readAndDecodeBody[In any](ctx context.Context, w http.ResponseWriter, r *http.Request, input *In, opts *Options) bool {
	if opts != nil && opts.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, opts.MaxBodyBytes)
	}

	body, err := io.ReadAll(r.Body)
	if err2 := r.Body.Close(); err == nil {
		err = err2
	}
	if err != nil {
		if maxBytesErr := checkMaxBytesError(err); maxBytesErr != nil {
			apiErr := dto.PayloadTooLarge(maxBytesErr.Limit)
			writeErrorResponseWithCode(w, apiErr.StatusCode(), apiErr.Code(), apiErr.Error(), apiErr.Details())
			return false
		}
		slog.ErrorContext(ctx, "Failed to read request body", "err", err)
		writeBadRequestError(w, "Failed to read request body")
		return false
	}

	if len(body) > 0 {
		d := json.NewDecoder(bytes.NewReader(body))
		d.DisallowUnknownFields()
		if err := d.Decode(input); err != nil {
			slog.ErrorContext(ctx, "Failed to decode request body", "err", err)
			writeBadRequestError(w, "Invalid request body")
			return false
		}
	}
	return true
}

// writeJSONResponse writes a JSON response or error response.
func writeJSONResponse[Out any](ctx context.Context, w http.ResponseWriter, output *Out, err error) {
	if err != nil {
		statusCode := http.StatusInternalServerError
		errorCode := dto.ErrorCodeInternal
		details := make(map[string]any)

		var ewsErr dto.ErrorWithStatus
		if errors.As(err, &ewsErr) {
			statusCode = ewsErr.StatusCode()
			errorCode = ewsErr.Code()
			if d := ewsErr.Details(); d != nil {
				details = d
			}
		}

		slog.ErrorContext(ctx, "Handler error", "err", err, "statusCode", statusCode, "code", errorCode)
		writeErrorResponseWithCode(w, statusCode, errorCode, err.Error(), details)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(output); err != nil {
		slog.ErrorContext(ctx, "Failed to encode response", "err", err)
	}
}

// Wrap wraps a handler function to work as an http.Handler.
// The function must have signature: func(context.Context, *In) (*Out, error)
// where In can be unmarshalled from JSON and Out is a struct.
// Path parameters can be extracted by tagging struct fields with `path:"name"`,
// query parameters with `query:"name"`. *In must implement dto.Validatable.
//
// Example:
//
//	type DocumentRequest struct {
//	    LibID string `path:"libID"`
//	    DocID string `path:"docID"`
//	}
//
//	func (h *DocumentHandler) Trash(ctx context.Context, req *DocumentRequest) (*Response, error)
func Wrap[In any, PtrIn interface {
	*In
	dto.Validatable
}, Out any](fn func(context.Context, PtrIn) (*Out, error), opts *Options) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := addRequestMetadataToContext(r.Context(), r)

		var ok bool
		if opts != nil {
			if tier := opts.Limiters.Match(r.Method, r.URL.Path); tier != nil {
				w, ok = checkRateLimit(w, tier, reqctx.GetClientIP(r))
				if !ok {
					return
				}
			}
		}

		input := new(In)
		if !readAndDecodeBody(ctx, w, r, input, opts) {
			return
		}

		populatePathParams(r, input)
		populateQueryParams(r, input)

		if err := PtrIn(input).Validate(); err != nil {
			handleValidationError(ctx, w, err)
			return
		}

		output, err := fn(ctx, PtrIn(input))
		writeJSONResponse(ctx, w, output, err)
	})
}

// populatePathParams extracts path parameters from the request and populates
// struct fields tagged with `path:"paramName"`.
func populatePathParams(r *http.Request, input any) {
	val := reflect.ValueOf(input)
	if val.Kind() != reflect.Pointer {
		return
	}
	elem := val.Elem()
	if elem.Kind() != reflect.Struct {
		return
	}

	typ := elem.Type()
	for i := range typ.NumField() {
		field := typ.Field(i)
		tag := field.Tag.Get("path")
		if tag == "" {
			continue
		}
		paramValue := r.PathValue(tag)
		if paramValue == "" {
			continue
		}
		if field.Type.Kind() == reflect.String {
			elem.Field(i).SetString(paramValue)
		}
	}
}

// populateQueryParams extracts query parameters from the request and populates
// struct fields tagged with `query:"paramName"`.
func populateQueryParams(r *http.Request, input any) {
	val := reflect.ValueOf(input)
	if val.Kind() != reflect.Pointer {
		return
	}
	elem := val.Elem()
	if elem.Kind() != reflect.Struct {
		return
	}

	query := r.URL.Query()
	typ := elem.Type()
	for i := range typ.NumField() {
		field := typ.Field(i)
		tag := field.Tag.Get("query")
		if tag == "" {
			continue
		}
		paramValue := query.Get(tag)
		if paramValue == "" {
			continue
		}
		fieldVal := elem.Field(i)
		switch field.Type.Kind() {
		case reflect.String:
			fieldVal.SetString(paramValue)
		case reflect.Int:
			if intVal, err := strconv.Atoi(paramValue); err == nil {
				fieldVal.SetInt(int64(intVal))
			}
		case reflect.Bool:
			if boolVal, err := strconv.ParseBool(paramValue); err == nil {
				fieldVal.SetBool(boolVal)
			}
		}
	}
}

// handleValidationError handles a validation error from a request's Validate method.
func handleValidationError(ctx context.Context, w http.ResponseWriter, err error) {
	statusCode := http.StatusBadRequest
	errorCode := dto.ErrorCodeValidationFailed
	details := make(map[string]any)

	var ewsErr dto.ErrorWithStatus
	if errors.As(err, &ewsErr) {
		statusCode = ewsErr.StatusCode()
		errorCode = ewsErr.Code()
		if d := ewsErr.Details(); d != nil {
			details = d
		}
	}

	slog.ErrorContext(ctx, "Validation error", "err", err, "statusCode", statusCode, "code", errorCode)
	writeErrorResponseWithCode(w, statusCode, errorCode, err.Error(), details)
}

// writeBadRequestError writes a 400 Bad Request error response as JSON (internal use).
func writeBadRequestError(w http.ResponseWriter, message string) {
	writeErrorResponseWithCode(w, http.StatusBadRequest, dto.ErrorCodeInternal, message, nil)
}

// writeErrorResponseWithCode writes a detailed error response as JSON with code and details.
func writeErrorResponseWithCode(w http.ResponseWriter, statusCode int, code dto.ErrorCode, message string, details map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := dto.ErrorResponse{
		Error: dto.ErrorDetails{
			Code:    code,
			Message: message,
		},
		Details: details,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.Error("Failed to encode error response", "error", err)
	}
}

// writeRateLimitError writes a 429 rate limit error response.
func writeRateLimitError(w http.ResponseWriter, result ratelimit.Result) {
	retryAfter := int(result.RetryAfter.Seconds())
	apiErr := dto.RateLimitExceeded(retryAfter)
	writeErrorResponseWithCode(w, apiErr.StatusCode(), apiErr.Code(), apiErr.Error(), apiErr.Details())
}
