// Package errors provides the tournament error taxonomy and its mapping onto
// gRPC status codes and HTTP responses.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// HTTPErrorCode represents the string error codes written to HTTP clients.
type HTTPErrorCode string

const (
	// General errors
	HTTPErrorUnknown        HTTPErrorCode = "UNKNOWN"
	HTTPErrorInvalidRequest HTTPErrorCode = "INVALID_REQUEST"
	HTTPErrorInternal       HTTPErrorCode = "INTERNAL_ERROR"
	HTTPErrorServiceDown    HTTPErrorCode = "SERVICE_UNAVAILABLE"
	HTTPErrorTimeout        HTTPErrorCode = "TIMEOUT"
	HTTPErrorRateLimited    HTTPErrorCode = "RATE_LIMITED"
	HTTPErrorNotFound       HTTPErrorCode = "NOT_FOUND"
	HTTPErrorConflict       HTTPErrorCode = "CONFLICT"
	HTTPErrorPrecondition   HTTPErrorCode = "FAILED_PRECONDITION"
)

// ErrorResponse represents the standard error response format.
type ErrorResponse struct {
	Status    string        `json:"status"`
	ErrorCode HTTPErrorCode `json:"error_code"`
	FaultCode int           `json:"fault_code,omitempty"`
	Message   string        `json:"message"`
	RequestID string        `json:"request_id,omitempty"`
}

// Handler provides error handling functionality.
type Handler struct {
	logger *zap.Logger
}

// NewHandler creates a new error handler.
func NewHandler(logger *zap.Logger) *Handler {
	return &Handler{
		logger: logger,
	}
}

// HandleError processes an error and writes an appropriate HTTP response.
func (h *Handler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := r.Header.Get("X-Request-ID")

	var te *TournamentError
	if stderrors.As(err, &te) {
		st := te.ToGRPCStatus()
		h.writeResponse(w, h.GRPCToHTTPStatus(st.Err()), HTTPErrorCode(te.Code.String()), int(te.Code), te.Error(), requestID)
		return
	}

	statusCode := h.GRPCToHTTPStatus(err)
	errorCode := h.GRPCToErrorCode(err)
	message := err.Error()

	if st, ok := status.FromError(err); ok {
		message = st.Message()
	}

	h.WriteErrorResponse(w, statusCode, errorCode, message, requestID)
}

// GRPCToHTTPStatus converts a gRPC error to an HTTP status code.
func (h *Handler) GRPCToHTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	st, ok := status.FromError(err)
	if !ok {
		return http.StatusInternalServerError
	}

	switch st.Code() {
	case codes.OK:
		return http.StatusOK
	case codes.InvalidArgument, codes.OutOfRange:
		return http.StatusBadRequest
	case codes.NotFound:
		return http.StatusNotFound
	case codes.AlreadyExists, codes.Aborted:
		return http.StatusConflict
	case codes.FailedPrecondition:
		return http.StatusPreconditionFailed
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	case codes.Unimplemented:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// GRPCToErrorCode converts a gRPC error to an HTTP error code.
func (h *Handler) GRPCToErrorCode(err error) HTTPErrorCode {
	if err == nil {
		return HTTPErrorUnknown
	}

	st, ok := status.FromError(err)
	if !ok {
		return HTTPErrorInternal
	}

	switch st.Code() {
	case codes.InvalidArgument, codes.OutOfRange:
		return HTTPErrorInvalidRequest
	case codes.NotFound:
		return HTTPErrorNotFound
	case codes.AlreadyExists, codes.Aborted:
		return HTTPErrorConflict
	case codes.FailedPrecondition:
		return HTTPErrorPrecondition
	case codes.ResourceExhausted:
		return HTTPErrorRateLimited
	case codes.Unavailable:
		return HTTPErrorServiceDown
	case codes.DeadlineExceeded:
		return HTTPErrorTimeout
	default:
		return HTTPErrorInternal
	}
}

// WriteErrorResponse writes a formatted error response to the HTTP response writer.
func (h *Handler) WriteErrorResponse(w http.ResponseWriter, statusCode int, errorCode HTTPErrorCode, message string, requestID string) {
	h.writeResponse(w, statusCode, errorCode, 0, message, requestID)
}

func (h *Handler) writeResponse(w http.ResponseWriter, statusCode int, errorCode HTTPErrorCode, faultCode int, message, requestID string) {
	h.logger.Warn("HTTP error response",
		zap.Int("status_code", statusCode),
		zap.String("error_code", string(errorCode)),
		zap.Int("fault_code", faultCode),
		zap.String("message", message),
		zap.String("request_id", requestID),
	)

	resp := ErrorResponse{
		Status:    "error",
		ErrorCode: errorCode,
		FaultCode: faultCode,
		Message:   message,
		RequestID: requestID,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(resp)
}

// WriteValidationError writes a validation error response.
func (h *Handler) WriteValidationError(w http.ResponseWriter, message string, requestID string) {
	h.WriteErrorResponse(w, http.StatusBadRequest, HTTPErrorInvalidRequest, message, requestID)
}

// WriteInternalError writes an internal error response.
func (h *Handler) WriteInternalError(w http.ResponseWriter, message string, requestID string) {
	h.WriteErrorResponse(w, http.StatusInternalServerError, HTTPErrorInternal, message, requestID)
}

// WriteRateLimitedError writes a rate limit exceeded response.
func (h *Handler) WriteRateLimitedError(w http.ResponseWriter, requestID string) {
	h.WriteErrorResponse(w, http.StatusTooManyRequests, HTTPErrorRateLimited, "rate limit exceeded", requestID)
}
