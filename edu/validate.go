package edu

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// phonePattern matches Portuguese numbers the way the dashboard forms
// expect them: "+351 21 123 4567".
var phonePattern = regexp.MustCompile(`^\+351\s\d{2}\s\d{3}\s\d{4}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return fld.Name
		}
		return name
	})
	v.RegisterValidation("telefone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	v.RegisterStructValidation(contactoStructLevel, Contacto{})
	return v
}

// contactoStructLevel enforces that sender and receiver differ.
func contactoStructLevel(sl validator.StructLevel) {
	c := sl.Current().Interface().(Contacto)
	if c.EmissorID != nil && c.ReceptorID != nil && *c.EmissorID == *c.ReceptorID {
		sl.ReportError(c.ReceptorID, "receptor_id", "ReceptorID", "distinct", "")
	}
}

// Validate checks the field rules of a domain record. It returns one
// message per offending field, keyed by the field's wire name, or nil
// when the record is valid. Messages are user-facing and rendered inline
// by the dashboard forms.
func Validate(record interface{}) map[string]string {
	err := validate.Struct(record)
	if err == nil {
		return nil
	}
	fieldErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string]string{"_": err.Error()}
	}
	messages := make(map[string]string, len(fieldErrors))
	for _, fe := range fieldErrors {
		messages[fe.Field()] = message(fe)
	}
	return messages
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Campo obrigatório"
	case "email":
		return "Email inválido"
	case "telefone":
		return "Telefone inválido (formato: +351 21 123 4567)"
	case "gte":
		return "Deve ser um número não negativo"
	case "distinct":
		return "Emissor e receptor devem ser diferentes"
	default:
		return "Valor inválido"
	}
}
