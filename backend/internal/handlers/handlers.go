// Package handlers implements the user-listing functions.
package handlers

import (
	"encoding/json"

	"github.com/aws/aws-lambda-go/events"
	"github.com/basewarphq/bwobs/backend/internal/userstore"
	"github.com/basewarphq/bwobs/bwfn"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.uber.org/fx"
)

// SpanName names the span of every handler invocation.
const SpanName = "lambdaHandler"

// Env is the environment shared by the user functions.
type Env struct {
	bwfn.BaseEnvironment
	userstore.Config

	FaultRate float64 `env:"BW_FAULT_RATE" envDefault:"0" validate:"min=0,max=1"`
}

// Module provides the store and fault injector the handlers depend on.
var Module = fx.Options(
	userstore.Module,
	fx.Provide(
		func(e Env) userstore.Config { return e.Config },
		NewFaultInjector,
	),
)

// requestAttributes describes a function URL request on the span. Events of any other
// shape yield no attributes.
func requestAttributes(event json.RawMessage) []attribute.KeyValue {
	var req events.LambdaFunctionURLRequest
	if err := json.Unmarshal(event, &req); err != nil {
		return nil
	}

	var kv []attribute.KeyValue
	if m := req.RequestContext.HTTP.Method; m != "" {
		kv = append(kv, semconv.HTTPRequestMethodKey.String(m))
	}
	if req.RawPath != "" {
		kv = append(kv, semconv.URLPath(req.RawPath))
	}
	if ua := req.RequestContext.HTTP.UserAgent; ua != "" {
		kv = append(kv, semconv.UserAgentOriginal(ua))
	}
	return kv
}
