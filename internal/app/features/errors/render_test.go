package errors_test

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	apierr "github.com/reddinamica/reddinamica/internal/app/features/errors"
	"github.com/reddinamica/reddinamica/internal/app/system/inputval"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type body struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) body {
	t.Helper()
	var b body
	if err := json.Unmarshal(rec.Body.Bytes(), &b); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return b
}

func TestRenderers(t *testing.T) {
	tests := []struct {
		name   string
		render func(w http.ResponseWriter)
		code   int
		status string
		msg    string
	}{
		{"success", func(w http.ResponseWriter) { apierr.Success(w, http.StatusCreated, "Creado", map[string]int{"n": 1}) }, 201, "success", "Creado"},
		{"bad request", func(w http.ResponseWriter) { apierr.BadRequest(w, "Estado inválido") }, 400, "error", "Estado inválido"},
		{"unauthorized", func(w http.ResponseWriter) { apierr.Unauthorized(w) }, 401, "error", "Autenticación requerida"},
		{"forbidden", func(w http.ResponseWriter) { apierr.Forbidden(w, "Solo el docente") }, 403, "error", "Solo el docente"},
		{"forbidden default", func(w http.ResponseWriter) { apierr.Forbidden(w, "") }, 403, "error", "No tienes permisos para realizar esta acción"},
		{"not found", func(w http.ResponseWriter) { apierr.NotFound(w, "Lección no encontrada") }, 404, "error", "Lección no encontrada"},
		{"conflict", func(w http.ResponseWriter) { apierr.Conflict(w, "Conflicto") }, 409, "error", "Conflicto"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.render(rec)
			if rec.Code != tt.code {
				t.Errorf("code: got %d, want %d", rec.Code, tt.code)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("content type: got %q", ct)
			}
			b := decode(t, rec)
			if b.Status != tt.status || b.Message != tt.msg {
				t.Errorf("body: %+v", b)
			}
			if tt.status == "error" && b.Error == "" {
				t.Error("error envelopes always carry the error field")
			}
		})
	}
}

func TestInvalid_IncludesFieldErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	apierr.Invalid(rec, inputval.Errors{{Field: "grade", Rule: "max", Message: "El campo grade debe ser menor o igual a 5"}})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("code: got %d", rec.Code)
	}
	b := decode(t, rec)
	var fields []inputval.FieldError
	if err := json.Unmarshal(b.Data, &fields); err != nil || len(fields) != 1 || fields[0].Field != "grade" {
		t.Errorf("data: %s (%v)", b.Data, err)
	}
}

func TestServerError_LogsAndExposesCause(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	el := apierr.NewErrorLogger(zap.New(core))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/academic-lessons/x", nil)
	el.ServerError(rec, req, "Error al obtener la lección", stderrors.New("connection reset"))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("code: got %d", rec.Code)
	}
	if b := decode(t, rec); b.Error != "connection reset" {
		t.Errorf("error field: got %q", b.Error)
	}
	if logs.FilterMessage("Error al obtener la lección").Len() != 1 {
		t.Errorf("expected one log entry, got %v", logs.All())
	}
}
