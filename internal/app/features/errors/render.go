// internal/app/features/errors/render.go
package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/reddinamica/reddinamica/internal/app/system/inputval"
	"go.uber.org/zap"
)

// envelope is the body of every API response.
type envelope struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func write(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// Success writes {"status":"success","message":…,"data":…}.
func Success(w http.ResponseWriter, status int, message string, data any) {
	write(w, status, envelope{Status: "success", Message: message, Data: data})
}

// OK is Success with 200 and no message.
func OK(w http.ResponseWriter, data any) {
	Success(w, http.StatusOK, "", data)
}

// Error writes {"status":"error","message":…,"error":…}. When err is nil the
// message is repeated in the error field.
func Error(w http.ResponseWriter, status int, message string, err error) {
	detail := message
	if err != nil {
		detail = err.Error()
	}
	write(w, status, envelope{Status: "error", Message: message, Error: detail})
}

func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, message, nil)
}

func Unauthorized(w http.ResponseWriter) {
	Error(w, http.StatusUnauthorized, "Autenticación requerida", nil)
}

// Forbidden writes a 403 with the policy reason.
func Forbidden(w http.ResponseWriter, reason string) {
	if reason == "" {
		reason = "No tienes permisos para realizar esta acción"
	}
	Error(w, http.StatusForbidden, reason, nil)
}

func NotFound(w http.ResponseWriter, message string) {
	Error(w, http.StatusNotFound, message, nil)
}

func Conflict(w http.ResponseWriter, message string) {
	Error(w, http.StatusConflict, message, nil)
}

// Invalid writes a 400 for a malformed or failing request body. Field
// errors from inputval are returned under data.
func Invalid(w http.ResponseWriter, err error) {
	var fields inputval.Errors
	if stderrors.As(err, &fields) {
		write(w, http.StatusBadRequest, envelope{
			Status:  "error",
			Message: "Datos inválidos",
			Error:   fields.Error(),
			Data:    fields,
		})
		return
	}
	Error(w, http.StatusBadRequest, "Datos inválidos", err)
}

// ErrorLogger logs server-side failures before they are rendered.
type ErrorLogger struct {
	log *zap.Logger
}

func NewErrorLogger(log *zap.Logger) *ErrorLogger {
	if log == nil {
		log = zap.NewNop()
	}
	return &ErrorLogger{log: log}
}

// ServerError logs err with the request route and writes a 500 carrying
// the raw error message.
func (l *ErrorLogger) ServerError(w http.ResponseWriter, r *http.Request, message string, err error, fields ...zap.Field) {
	fields = append(fields,
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err))
	l.log.Error(message, fields...)
	Error(w, http.StatusInternalServerError, message, err)
}
