package validation

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"

	errors "github.com/frahmantamala/ad-user-manager/internal"
	"github.com/getkin/kin-openapi/openapi3"
)

// SchemaValidator checks raw JSON bodies against named component schemas of
// an OpenAPI document.
type SchemaValidator struct {
	doc *openapi3.T
}

func NewSchemaValidator(spec []byte) (*SchemaValidator, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(spec)
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("invalid openapi document: %w", err)
	}
	return &SchemaValidator{doc: doc}, nil
}

// ValidateBody returns a validation AppError when body is not JSON or does not
// satisfy the schema registered under name.
func (v *SchemaValidator) ValidateBody(name string, body []byte) *errors.AppError {
	ref, ok := v.doc.Components.Schemas[name]
	if !ok || ref.Value == nil {
		return errors.NewInternalError("unknown request schema "+name, nil)
	}

	var value interface{}
	if err := json.Unmarshal(body, &value); err != nil {
		return errors.NewValidationError("invalid JSON body", errors.ErrCodeValidationFailed)
	}

	if err := ref.Value.VisitJSON(value); err != nil {
		var schemaErr *openapi3.SchemaError
		if stderrors.As(err, &schemaErr) {
			field := strings.Join(schemaErr.JSONPointer(), ".")
			if field == "" {
				field = "body"
			}
			return errors.NewValidationFieldError(field, schemaErr.Reason, errors.ErrCodeValidationFailed)
		}
		return errors.NewValidationError(err.Error(), errors.ErrCodeValidationFailed)
	}
	return nil
}
