package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/Dosada05/esports-arena/services"
	"github.com/Dosada05/esports-arena/utils"
	"github.com/go-chi/chi/v5"
)

type jsonResponse map[string]interface{}

// apiError is the error body every endpoint returns.
type apiError struct {
	Code        int    `json:"code"`
	Field       string `json:"field,omitempty"`
	Description string `json:"description"`
	Message     string `json:"message"`
}

var namePattern = regexp.MustCompile(`^[a-zA-Z0-9_\- ]{3,35}$`)

func readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	maxBytes := 1_048_576 // 1MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var maxBytesError *http.MaxBytesError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")
		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q", unmarshalTypeError.Field)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return fmt.Errorf("body contains unknown key %s", fieldName)
		case errors.As(err, &maxBytesError):
			return fmt.Errorf("body must not be larger than %d bytes", maxBytes)
		default:
			return err
		}
	}

	err = dec.Decode(&struct{}{})
	if !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}

	return nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}, headers http.Header) error {
	js, err := json.MarshalIndent(data, "", "\t")
	if err != nil {
		return err
	}
	js = append(js, '\n')

	for key, value := range headers {
		w.Header()[key] = value
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(js)
	return err
}

func respond(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	if err := writeJSON(w, status, data, nil); err != nil {
		slog.ErrorContext(r.Context(), "failed to write response", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
}

func errorResponse(w http.ResponseWriter, r *http.Request, status int, body apiError) {
	if err := writeJSON(w, status, jsonResponse{"error": body}, nil); err != nil {
		slog.ErrorContext(r.Context(), "failed to write error response", slog.String("path", r.URL.Path), slog.Any("error", err))
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	slog.ErrorContext(r.Context(), "internal server error",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Any("error", err))
	errorResponse(w, r, http.StatusInternalServerError, apiError{
		Code:        0,
		Description: "internal error",
		Message:     "the server encountered a problem and could not process your request",
	})
}

func badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	errorResponse(w, r, http.StatusBadRequest, apiError{
		Code:        3,
		Field:       "body",
		Description: "body validation is wrong",
		Message:     err.Error(),
	})
}

func unauthorizedResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusUnauthorized, apiError{
		Code:        1,
		Field:       "token",
		Description: "authentication required",
		Message:     message,
	})
}

var kindStatus = map[services.ErrorKind]int{
	services.KindMissingField:        http.StatusBadRequest,
	services.KindValidationFailed:    http.StatusBadRequest,
	services.KindForbidden:           http.StatusForbidden,
	services.KindSelfActionForbidden: http.StatusForbidden,
	services.KindNotFound:            http.StatusNotFound,
	services.KindDuplicateResource:   http.StatusConflict,
	services.KindInvalidState:        http.StatusConflict,
	services.KindCapacityViolation:   http.StatusConflict,
}

func describe(e *services.Error) string {
	switch e.Kind {
	case services.KindMissingField:
		return e.Field + " is required"
	case services.KindValidationFailed:
		return e.Field + " validation is wrong"
	case services.KindNotFound:
		return e.Field + " not found"
	case services.KindDuplicateResource:
		return e.Field + " already exists"
	case services.KindForbidden, services.KindSelfActionForbidden:
		return "operation forbidden"
	case services.KindCapacityViolation:
		return e.Field + " capacity violated"
	}
	return e.Field + " state does not allow this operation"
}

// mapServiceErrorToHTTP writes the response for an error returned by a service.
func mapServiceErrorToHTTP(w http.ResponseWriter, r *http.Request, err error) {
	var svcErr *services.Error
	if !errors.As(err, &svcErr) {
		serverErrorResponse(w, r, err)
		return
	}

	status, ok := kindStatus[svcErr.Kind]
	if !ok {
		serverErrorResponse(w, r, err)
		return
	}
	if errors.Is(err, services.ErrInvalidCredentials) {
		status = http.StatusUnauthorized
	}
	if errors.Is(err, services.ErrLockTimeout) {
		status = http.StatusServiceUnavailable
	}

	errorResponse(w, r, status, apiError{
		Code:        svcErr.Code,
		Field:       svcErr.Field,
		Description: strings.TrimSpace(describe(svcErr)),
		Message:     svcErr.Message,
	})
}

// nameParam reads and validates a team or tournament name from the URL.
func nameParam(r *http.Request, key string) (string, error) {
	name := strings.TrimSpace(chi.URLParam(r, key))
	if name == "" {
		return "", services.MissingFieldError(key)
	}
	if !namePattern.MatchString(name) {
		return "", services.ValidationError(key, key+" must be 3-35 characters of letters, digits, spaces, '_' or '-'")
	}
	return name, nil
}

func idParam(r *http.Request, key string) (string, error) {
	id := chi.URLParam(r, key)
	if id == "" {
		return "", services.MissingFieldError(key)
	}
	if !utils.IsValidID(id) {
		return "", services.ValidationError(key, key+" must be 24 hex characters")
	}
	return id, nil
}
