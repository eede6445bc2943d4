package apiclient

import (
	"context"
	"log/slog"

	"github.com/getkin/kin-openapi/openapi3"
)

// Drift describes undeclared response fields seen on one call.
type Drift struct {
	Route  string
	Method string
	Status int
	Keys   []string
}

// DriftReporter receives additional-key observations. Reporting is best
// effort: a failing reporter never fails the call.
type DriftReporter interface {
	ReportAdditionalKeys(ctx context.Context, d Drift) error
}

// ResponseValidator checks response bodies against their schema.
type ResponseValidator struct {
	engine   SchemaValidator
	logger   *slog.Logger
	reporter DriftReporter
}

// NewResponseValidator returns a validator using engine. A nil engine uses
// KinValidator, a nil logger slog.Default(). reporter may be nil.
func NewResponseValidator(engine SchemaValidator, logger *slog.Logger, reporter DriftReporter) *ResponseValidator {
	if engine == nil {
		engine = KinValidator{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ResponseValidator{engine: engine, logger: logger, reporter: reporter}
}

// Validate checks data against schema and returns the validated value.
// Undeclared fields are logged once per call with the route, method and
// key names; they do not fail the call. A structural mismatch is returned
// as a *ValidationError.
func (v *ResponseValidator) Validate(ctx context.Context, data any, schema *openapi3.Schema, route, method string) (any, error) {
	return v.validate(ctx, data, schema, route, method, 0)
}

func (v *ResponseValidator) validate(ctx context.Context, data any, schema *openapi3.Schema, route, method string, status int) (any, error) {
	res, err := v.engine.Validate(data, schema)
	if err != nil {
		return nil, &ValidationError{Route: route, Method: method, Status: status, Err: err}
	}
	if len(res.AdditionalKeys) > 0 {
		v.logger.WarnContext(ctx, "response has undeclared fields",
			"route", route, "method", method, "status", status, "keys", res.AdditionalKeys)
		if v.reporter != nil {
			d := Drift{Route: route, Method: method, Status: status, Keys: res.AdditionalKeys}
			if rerr := v.reporter.ReportAdditionalKeys(ctx, d); rerr != nil {
				v.logger.WarnContext(ctx, "drift report failed", "route", route, "method", method, "err", rerr)
			}
		}
	}
	return res.Value, nil
}
