package bwfn

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/advdv/bhttp"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

type ctxKey int

const (
	ctxKeyLWAContext ctxKey = iota
)

// LWAContext contains Lambda execution context from the x-amzn-lambda-context header.
type LWAContext struct {
	RequestID          string       `json:"request_id"`
	Deadline           int64        `json:"deadline"`
	InvokedFunctionARN string       `json:"invoked_function_arn"`
	XRayTraceID        string       `json:"xray_trace_id"`
	EnvConfig          LWAEnvConfig `json:"env_config"`
}

// LWAEnvConfig contains Lambda function environment configuration.
type LWAEnvConfig struct {
	FunctionName string `json:"function_name"`
	Memory       int    `json:"memory"`
	Version      string `json:"version"`
	LogGroup     string `json:"log_group"`
	LogStream    string `json:"log_stream"`
}

// DeadlineTime returns the Lambda invocation deadline as a time.Time.
func (lc *LWAContext) DeadlineTime() time.Time {
	if lc.Deadline == 0 {
		return time.Time{}
	}
	return time.UnixMilli(lc.Deadline)
}

// RemainingTime returns the duration until the Lambda invocation deadline.
func (lc *LWAContext) RemainingTime() time.Duration {
	if lc.Deadline == 0 {
		return 0
	}
	remaining := time.Until(lc.DeadlineTime())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// withLWAContext parses the x-amzn-lambda-context header set by Lambda Web Adapter.
// A malformed header is ignored. When the header carries a deadline the request context
// is bounded by it.
func withLWAContext() bhttp.Middleware {
	return func(next bhttp.BareHandler) bhttp.BareHandler {
		return bhttp.BareHandlerFunc(func(w bhttp.ResponseWriter, r *http.Request) error {
			header := r.Header.Get("x-amzn-lambda-context")
			if header == "" {
				return next.ServeBareBHTTP(w, r)
			}
			var lc LWAContext
			if err := json.Unmarshal([]byte(header), &lc); err != nil {
				return next.ServeBareBHTTP(w, r)
			}

			ctx := context.WithValue(r.Context(), ctxKeyLWAContext, &lc)
			if deadline := lc.DeadlineTime(); !deadline.IsZero() {
				var cancel context.CancelFunc
				ctx, cancel = context.WithDeadline(ctx, deadline)
				defer cancel()
			}
			return next.ServeBareBHTTP(w, r.WithContext(ctx))
		})
	}
}

// LWA retrieves the LWAContext from the request context.
// Returns nil if not running behind Lambda Web Adapter.
func LWA(ctx context.Context) *LWAContext {
	lc, _ := ctx.Value(ctxKeyLWAContext).(*LWAContext)
	return lc
}

// InvocationAttributes returns the faas.* span attributes describing the current
// invocation, from either the Lambda runtime context or the LWA header.
func InvocationAttributes(ctx context.Context) []attribute.KeyValue {
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		attrs := []attribute.KeyValue{semconv.FaaSInvocationID(lc.AwsRequestID)}
		if lambdacontext.FunctionName != "" {
			attrs = append(attrs, semconv.FaaSName(lambdacontext.FunctionName))
		}
		return attrs
	}

	if lc := LWA(ctx); lc != nil {
		attrs := []attribute.KeyValue{semconv.FaaSInvocationID(lc.RequestID)}
		if lc.EnvConfig.FunctionName != "" {
			attrs = append(attrs, semconv.FaaSName(lc.EnvConfig.FunctionName))
		}
		return attrs
	}
	return nil
}
