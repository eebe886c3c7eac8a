package inputval

import (
	"errors"
	"testing"
)

type gradeRequest struct {
	Grade    *float64 `json:"grade" validate:"required,min=0,max=5"`
	Feedback string   `json:"feedback" validate:"max=20"`
}

type inviteRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type createRequest struct {
	Title string `json:"title" validate:"notblank,max=200"`
	Group string `json:"academicGroup" validate:"required,objectid"`
}

func ptr(f float64) *float64 { return &f }

func TestStruct(t *testing.T) {
	tests := []struct {
		name   string
		in     any
		fields []string
	}{
		{"valid grade", gradeRequest{Grade: ptr(4.5)}, nil},
		{"zero grade is valid", gradeRequest{Grade: ptr(0)}, nil},
		{"missing grade", gradeRequest{}, []string{"grade"}},
		{"grade too high", gradeRequest{Grade: ptr(5.1)}, []string{"grade"}},
		{"negative grade", gradeRequest{Grade: ptr(-1)}, []string{"grade"}},
		{"long feedback", gradeRequest{Grade: ptr(3), Feedback: "esta retroalimentación es larga"}, []string{"feedback"}},
		{"valid invite", inviteRequest{Email: "ana@colegio.edu.co"}, nil},
		{"bad invite", inviteRequest{Email: "ana"}, []string{"email"}},
		{"blank title and bad id", createRequest{Title: "   ", Group: "x"}, []string{"title", "academicGroup"}},
		{"valid create", createRequest{Title: "Fracciones", Group: "64b7f0c2a1b2c3d4e5f60718"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.in)
			if tt.fields == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var ve Errors
			if !errors.As(err, &ve) {
				t.Fatalf("expected Errors, got %v", err)
			}
			if len(ve) != len(tt.fields) {
				t.Fatalf("got %d errors (%v), want %v", len(ve), ve, tt.fields)
			}
			for i, f := range tt.fields {
				if ve[i].Field != f {
					t.Errorf("error %d field: got %q, want %q", i, ve[i].Field, f)
				}
				if ve[i].Message == "" {
					t.Errorf("error %d has no message", i)
				}
			}
		})
	}
}

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{"docente@colegio.edu.co", true},
		{"user+tag@example.com", true},
		{"  ana@rd.co  ", true},
		{"", false},
		{"   ", false},
		{"user@", false},
		{"@example.com", false},
		{"User Name <user@example.com>", false},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			if got := IsValidEmail(tt.email); got != tt.want {
				t.Errorf("IsValidEmail(%q) = %v, want %v", tt.email, got, tt.want)
			}
		})
	}
}
