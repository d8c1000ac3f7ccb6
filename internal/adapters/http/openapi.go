package httpadapter

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"
)

//go:embed openapi.yaml
var openapiSpec []byte

// RequestValidator checks incoming AI-endpoint requests against the embedded
// OpenAPI contract before any model tokens are spent on them.
type RequestValidator struct {
	router routers.Router
}

func NewRequestValidator() (*RequestValidator, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(openapiSpec)
	if err != nil {
		return nil, fmt.Errorf("load openapi spec: %w", err)
	}
	if err := doc.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("validate openapi spec: %w", err)
	}
	router, err := gorillamux.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("build openapi router: %w", err)
	}
	return &RequestValidator{router: router}, nil
}

// ValidateRequest validates method, path, and body. The body is buffered and
// restored so the handler can decode it afterwards.
func (v *RequestValidator) ValidateRequest(r *http.Request) error {
	route, pathParams, err := v.router.FindRoute(r)
	if err != nil {
		return fmt.Errorf("no contract for %s %s", r.Method, r.URL.Path)
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return fmt.Errorf("read request body: %w", err)
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	input := &openapi3filter.RequestValidationInput{
		Request:    r,
		PathParams: pathParams,
		Route:      route,
		Options: &openapi3filter.Options{
			AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
		},
	}
	err = openapi3filter.ValidateRequest(r.Context(), input)
	r.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("request does not match contract: %w", err)
	}
	return nil
}
