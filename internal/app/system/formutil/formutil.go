// Package formutil decodes JSON request bodies into request structs and
// validates them.
//
// Example usage:
//
//	var req createGroupRequest
//	if err := formutil.Decode(w, r, &req, limits.MaxJSONBody); err != nil {
//		apierr.Invalid(w, err)
//		return
//	}
package formutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/reddinamica/reddinamica/internal/app/system/inputval"
)

// ErrEmptyBody is returned when a body is required but none was sent.
var ErrEmptyBody = errors.New("el cuerpo de la solicitud está vacío")

// DecodeJSON reads at most limit bytes of JSON into dst. An empty body is
// accepted and leaves dst untouched.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any, limit int64) error {
	if r.Body == nil {
		return nil
	}
	body := http.MaxBytesReader(w, r.Body, limit)
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("el cuerpo de la solicitud supera %d bytes", maxErr.Limit)
		}
		return fmt.Errorf("JSON inválido: %w", err)
	}
	return nil
}

// Decode is DecodeJSON followed by struct-tag validation. It returns
// ErrEmptyBody for a missing body and inputval.Errors for failed rules.
func Decode(w http.ResponseWriter, r *http.Request, dst any, limit int64) error {
	if r.Body == nil || r.ContentLength == 0 {
		return ErrEmptyBody
	}
	if err := DecodeJSON(w, r, dst, limit); err != nil {
		return err
	}
	return inputval.Struct(dst)
}

// SplitTags accepts tags either as a comma-separated string or as a JSON
// array and returns the trimmed, non-empty entries.
func SplitTags(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var parts []string
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		parts = strings.Split(s, ",")
	} else if err := json.Unmarshal(raw, &parts); err != nil {
		return nil, errors.New("tags debe ser un texto separado por comas o una lista")
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out, nil
}
