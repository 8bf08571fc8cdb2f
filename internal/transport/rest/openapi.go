package rest

import (
	"context"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

const DefaultOpenAPIPath = "./api/openapi.yml"

// LoadOpenAPI reads the API document served at /openapi.yml and checks that
// it is a valid OpenAPI 3 document.
func LoadOpenAPI(ctx context.Context, path string) (*openapi3.T, error) {
	if path == "" {
		path = DefaultOpenAPIPath
	}
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("invalid openapi document %s: %w", path, err)
	}
	return doc, nil
}
