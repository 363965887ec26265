package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MsgRequiredFields is the message for any missing required field.
const MsgRequiredFields = "Preencha todos os campos obrigatórios!"

// maxJSONBody bounds JSON request bodies.
const maxJSONBody = 1 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidationError carries a message that is safe to show to the user.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// DecodeJSON reads a JSON body into dst. Unknown fields are ignored.
func DecodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return &ValidationError{Message: "Corpo da requisição vazio."}
		}
		return &ValidationError{Message: "JSON inválido."}
	}
	return nil
}

// Validate runs the struct's validate tags.
func Validate(v interface{}) error {
	if err := validate.Struct(v); err != nil {
		return &ValidationError{Message: FormatValidationError(err)}
	}
	return nil
}

// DecodeAndValidate is DecodeJSON followed by Validate.
func DecodeAndValidate(r *http.Request, dst interface{}) error {
	if err := DecodeJSON(r, dst); err != nil {
		return err
	}
	return Validate(dst)
}

// FormatValidationError turns validator errors into one Portuguese message.
// Any missing required field collapses to MsgRequiredFields.
func FormatValidationError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	messages := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			return MsgRequiredFields
		}
		messages = append(messages, fieldErrorMessage(fe))
	}
	return strings.Join(messages, "; ")
}

func fieldErrorMessage(fe validator.FieldError) string {
	field := fieldName(fe.Field())

	switch fe.Tag() {
	case "email":
		return fmt.Sprintf("%s deve ser um email válido", field)
	case "min":
		if fe.Kind().String() == "string" {
			return fmt.Sprintf("%s deve ter no mínimo %s caracteres", field, fe.Param())
		}
		return fmt.Sprintf("%s deve ser no mínimo %s", field, fe.Param())
	case "max":
		if fe.Kind().String() == "string" {
			return fmt.Sprintf("%s deve ter no máximo %s caracteres", field, fe.Param())
		}
		return fmt.Sprintf("%s deve ser no máximo %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s inválido", field)
	}
}

func fieldName(field string) string {
	names := map[string]string{
		"Nome":      "Nome",
		"Sobrenome": "Sobrenome",
		"Username":  "Nome de usuário",
		"Telefone":  "Telefone",
		"Email":     "Email",
		"Cep":       "CEP",
		"Password":  "Senha",
		"Bio":       "Bio",
		"Content":   "Conteúdo",
	}
	if name, ok := names[field]; ok {
		return name
	}
	return field
}
