package httpadapter

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/kirillkom/vehicle-checker/internal/core/domain"
)

//go:embed openapi.yaml
var openAPIDocument []byte

type apiSpec struct {
	doc  *openapi3.T
	json []byte
}

func loadAPISpec(ctx context.Context) (*apiSpec, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(openAPIDocument)
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("validate openapi document: %w", err)
	}
	raw, err := doc.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("marshal openapi document: %w", err)
	}
	return &apiSpec{doc: doc, json: raw}, nil
}

// validate checks a decoded JSON value against a component schema.
func (s *apiSpec) validate(schemaName string, value any) error {
	ref, ok := s.doc.Components.Schemas[schemaName]
	if !ok || ref == nil || ref.Value == nil {
		return fmt.Errorf("openapi schema %q not found", schemaName)
	}
	if err := ref.Value.VisitJSON(value); err != nil {
		reason := err.Error()
		var schemaErr *openapi3.SchemaError
		if errors.As(err, &schemaErr) && schemaErr.Reason != "" {
			reason = schemaErr.Reason
			if field := schemaErr.JSONPointer(); len(field) > 0 {
				reason = fmt.Sprintf("%s: %s", field[len(field)-1], reason)
			}
		}
		return domain.NewError(domain.KindValidation, "Invalid request: "+reason, err)
	}
	return nil
}
