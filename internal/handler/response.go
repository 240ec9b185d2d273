package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"

	"replyflow/internal/service"

	"github.com/gorilla/mux"
)

// ErrorResponse represents the standard error response structure
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the error code and message
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data == nil {
		return nil
	}

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("ERROR: Failed to encode JSON response: %v", err)
		return err
	}

	return nil
}

// WriteError writes a structured JSON error response
func WriteError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	errResp := ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	}

	if err := json.NewEncoder(w).Encode(errResp); err != nil {
		log.Printf("ERROR: Failed to write error response: %v", err)
	}
}

// WriteCreated writes a 201 Created response with the given data
func WriteCreated(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusCreated, data)
}

// WriteOK writes a 200 OK response with the given data
func WriteOK(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusOK, data)
}

// WriteAccepted writes a 202 Accepted response for work handed to the worker
func WriteAccepted(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusAccepted, data)
}

// WriteNoContent writes a 204 No Content response
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// WriteValidationError writes a 400 Bad Request response with VALIDATION_ERROR code
func WriteValidationError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, "VALIDATION_ERROR", message)
}

// WriteNotFoundError writes a 404 Not Found response with RESOURCE_NOT_FOUND code
func WriteNotFoundError(w http.ResponseWriter, resource string, id interface{}) {
	message := fmt.Sprintf("%s with ID %v not found", resource, id)
	WriteError(w, http.StatusNotFound, "RESOURCE_NOT_FOUND", message)
}

// WriteInternalError writes a 500 response without exposing internal details
func WriteInternalError(w http.ResponseWriter) {
	WriteError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
}

// WriteBusinessLogicError writes a 400 Bad Request response with BUSINESS_LOGIC_ERROR code
func WriteBusinessLogicError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, "BUSINESS_LOGIC_ERROR", message)
}

// WriteConflictError writes a 409 Conflict response with CONFLICT code
func WriteConflictError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusConflict, "CONFLICT", message)
}

// HandleServiceError maps service layer errors to HTTP responses.
// Errors are matched with errors.As so wrapped service errors keep their status.
func HandleServiceError(w http.ResponseWriter, err error) {
	var (
		notFound   *service.NotFoundError
		validation *service.ValidationError
		business   *service.BusinessLogicError
		conflict   *service.ConflictError
		credits    *service.InsufficientCreditsError
		paused     *service.ContactPausedError
		inactive   *service.SequenceInactiveError
		changed    *service.SequenceChangedError
		limited    *service.RateLimitExceededError
		gw         *service.GatewaySendError
		model      *service.GenerativeModelError
	)

	switch {
	case errors.As(err, &notFound):
		WriteNotFoundError(w, notFound.Resource, notFound.ID)
	case errors.As(err, &validation):
		WriteValidationError(w, validation.Message)
	case errors.As(err, &business):
		WriteBusinessLogicError(w, business.Message)
	case errors.As(err, &inactive):
		WriteBusinessLogicError(w, inactive.Error())
	case errors.As(err, &conflict):
		WriteConflictError(w, conflict.Message)
	case errors.As(err, &paused):
		WriteConflictError(w, paused.Error())
	case errors.As(err, &changed):
		WriteConflictError(w, changed.Error())
	case errors.As(err, &credits):
		WriteError(w, http.StatusPaymentRequired, "INSUFFICIENT_CREDITS", credits.Error())
	case errors.As(err, &limited):
		WriteError(w, http.StatusTooManyRequests, "RATE_LIMITED", limited.Error())
	case errors.As(err, &gw):
		log.Printf("ERROR: Gateway call failed: %v", err)
		WriteError(w, http.StatusBadGateway, "GATEWAY_ERROR", fmt.Sprintf("gateway %s failed", gw.Op))
	case errors.As(err, &model):
		log.Printf("ERROR: Model call failed: %v", err)
		WriteError(w, http.StatusBadGateway, "MODEL_ERROR", "generative model unavailable")
	default:
		log.Printf("ERROR: Unhandled service error: %v", err)
		WriteInternalError(w)
	}
}

// decodeJSON parses the request body into dst, writing INVALID_JSON on failure.
// It reports whether decoding succeeded.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			WriteError(w, http.StatusBadRequest, "INVALID_JSON", "Request body is empty")
			return false
		}
		WriteError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON format")
		return false
	}
	return true
}

// pathID reads a positive integer route variable
func pathID(w http.ResponseWriter, r *http.Request, name, resource string) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)[name])
	if err != nil {
		WriteValidationError(w, fmt.Sprintf("invalid %s ID format", resource))
		return 0, false
	}
	if id <= 0 {
		WriteValidationError(w, fmt.Sprintf("%s ID must be greater than 0", resource))
		return 0, false
	}
	return id, true
}
