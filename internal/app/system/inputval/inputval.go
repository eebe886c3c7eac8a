// Package inputval validates decoded request bodies with struct tags and
// turns validator failures into user-facing messages.
package inputval

import (
	"reflect"
	"strings"
	"sync"

	validate "github.com/dalemusser/waffle/pantry/validate"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	once sync.Once
	v    *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		v = validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
		_ = v.RegisterValidation("objectid", func(fl validator.FieldLevel) bool {
			return primitive.IsValidObjectID(fl.Field().String())
		})
		_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
	})
	return v
}

// FieldError is one failed rule.
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// Errors is returned by Struct when any rule fails.
type Errors []FieldError

func (e Errors) Error() string {
	msgs := make([]string, len(e))
	for i, fe := range e {
		msgs[i] = fe.Message
	}
	return strings.Join(msgs, "; ")
}

// Struct validates s. It returns nil or Errors.
func Struct(s any) error {
	err := instance().Struct(s)
	if err == nil {
		return nil
	}
	ves, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	out := make(Errors, 0, len(ves))
	for _, fe := range ves {
		out = append(out, FieldError{Field: fe.Field(), Rule: fe.Tag(), Message: message(fe)})
	}
	return out
}

// IsValidEmail reports whether s is a syntactically valid address.
func IsValidEmail(s string) bool {
	s = strings.TrimSpace(s)
	return s != "" && validate.SimpleEmailValid(s) && instance().Var(s, "email") == nil
}

func message(fe validator.FieldError) string {
	f := fe.Field()
	switch fe.Tag() {
	case "required", "notblank":
		return "El campo " + f + " es obligatorio"
	case "email":
		return "El campo " + f + " debe ser un correo válido"
	case "objectid":
		return "El campo " + f + " debe ser un identificador válido"
	case "min":
		if fe.Kind() == reflect.String {
			return "El campo " + f + " debe tener al menos " + fe.Param() + " caracteres"
		}
		return "El campo " + f + " debe ser mayor o igual a " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return "El campo " + f + " debe tener como máximo " + fe.Param() + " caracteres"
		}
		return "El campo " + f + " debe ser menor o igual a " + fe.Param()
	case "oneof":
		return "El campo " + f + " debe ser uno de: " + fe.Param()
	}
	return "El campo " + f + " no es válido"
}
