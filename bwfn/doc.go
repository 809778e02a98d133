// Package bwfn is a small framework for single-handler functions that run on AWS Lambda,
// either through the Lambda runtime API or behind Lambda Web Adapter (LWA) in
// pass-through mode.
//
// # Overview
//
// bwfn handles the boilerplate around a function: environment parsing, structured
// logging, OpenTelemetry tracing, AWS SDK clients and graceful shutdown. Every invocation
// runs as a [bwuow] unit of work configured from the environment. A complete function is
// a single call:
//
//	bwfn.NewApp[Env](handlers.NewListUsers,
//	    bwfn.WithAWSClient(func(cfg aws.Config) *dynamodb.Client { return dynamodb.NewFromConfig(cfg) }),
//	    bwfn.WithFx(userstore.Module),
//	).Run()
//
// # Environment Configuration
//
// Define your environment by embedding [BaseEnvironment]:
//
//	type Env struct {
//	    bwfn.BaseEnvironment
//	    UsersTableName string `env:"BW_USERS_TABLE_NAME"`
//	}
//
// BaseEnvironment provides the following environment variables:
//
//	| Variable                      | Required | Default                     | Description                              |
//	|-------------------------------|----------|-----------------------------|------------------------------------------|
//	| BW_SERVICE_NAME               | Yes      | -                           | Service name for logging and tracing     |
//	| BW_LOG_LEVEL                  | No       | info                        | Log level (debug, info, warn, error)     |
//	| BW_OTEL_EXPORTER              | No       | stdout                      | Trace exporter: "stdout" or "xrayudp"    |
//	| BW_RUNTIME                    | No       | lambda                      | "lambda" or "http"                       |
//	| AWS_LWA_PORT                  | No       | 8080                        | Port of the http runtime                 |
//	| AWS_LWA_READINESS_CHECK_PATH  | No       | /health                     | Readiness path of the http runtime       |
//	| BW_ON_ERROR                   | No       | map-to-500                  | "map-to-500" or "rethrow"                |
//	| BW_SPAN_CLOSE                 | No       | before-return               | "before-return" or "in-cleanup-overriding-return" |
//	| BW_EMIT_LOGS                  | No       | onStart,onSuccess,onError   | Comma separated log points               |
//
// Setting OTEL_SDK_DISABLED=true replaces the tracer provider with a no-op.
//
// # Runtimes
//
// In the lambda runtime the handler is started with the aws-lambda-go runtime client and
// the returned envelope is the function response. The X-Ray trace header of the
// invocation is continued.
//
// In the http runtime the raw event is POSTed to "/" and the envelope's status and body
// are written as the HTTP response; a propagated failure becomes a 502. Requests are
// traced with otelhttp, except the readiness check.
//
// # Dependency Injection
//
// bwfn uses [go.uber.org/fx]. The handler constructor can depend on *[Runtime], the
// environment type, *zap.Logger and any provider added with [WithFx] or [WithAWSClient].
package bwfn
