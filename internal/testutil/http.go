package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/reddinamica/reddinamica/internal/app/system/auth"
	"github.com/reddinamica/reddinamica/internal/domain/models"
)

// AsUser returns an auth user for a fixture user.
func AsUser(u models.User) *auth.User {
	return &auth.User{ID: u.ID.Hex(), Name: u.FullName, Email: u.Email, Role: u.Role}
}

// NewJSONRequest builds a request with an optional JSON body. body may be
// nil, a string (sent verbatim) or any value to be JSON-encoded.
func NewJSONRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()

	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rdr = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, rdr)
	if rdr != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

// NewAuthenticatedRequest is NewJSONRequest with u in the context.
func NewAuthenticatedRequest(t *testing.T, method, target string, body any, u models.User) *http.Request {
	t.Helper()
	return auth.WithTestUser(NewJSONRequest(t, method, target, body), AsUser(u))
}

// Envelope is the API response wrapper.
type Envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

// DecodeEnvelope parses the recorder body as an API envelope and, when
// data is non-nil, decodes the data field into it.
func DecodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder, data any) Envelope {
	t.Helper()

	var env Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (body %s)", err, rec.Body.String())
	}
	if data != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, data); err != nil {
			t.Fatalf("decode data: %v (data %s)", err, string(env.Data))
		}
	}
	return env
}

// AssertStatus fails the test when the recorder status differs.
func AssertStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status code: got %d, want %d (body %s)", rec.Code, want, rec.Body.String())
	}
}
