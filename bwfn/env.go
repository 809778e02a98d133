package bwfn

import (
	"github.com/basewarphq/bwobs/bwuow"
	"github.com/caarlos0/env/v11"
	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap/zapcore"
)

const (
	// RuntimeLambda serves invocations through the Lambda runtime API.
	RuntimeLambda = "lambda"
	// RuntimeHTTP serves invocations over HTTP, for Lambda Web Adapter and local runs.
	RuntimeHTTP = "http"
)

// Environment defines the interface that all environment configurations must implement.
// Embed BaseEnvironment in your struct to satisfy this interface.
type Environment interface {
	serviceName() string
	logLevel() zapcore.Level
	otelExporter() string
	runtime() string
	port() int
	readinessCheckPath() string
	policy() bwuow.Policy
}

// BaseEnvironment contains the variables every function reads.
// Embed this in your custom environment struct.
type BaseEnvironment struct {
	ServiceName        string        `env:"BW_SERVICE_NAME,required" validate:"required"`
	LogLevel           zapcore.Level `env:"BW_LOG_LEVEL" envDefault:"info"`
	OtelExporter       string        `env:"BW_OTEL_EXPORTER" envDefault:"stdout" validate:"oneof=stdout xrayudp"`
	Runtime            string        `env:"BW_RUNTIME" envDefault:"lambda" validate:"oneof=lambda http"`
	Port               int           `env:"AWS_LWA_PORT" envDefault:"8080" validate:"min=1,max=65535"`
	ReadinessCheckPath string        `env:"AWS_LWA_READINESS_CHECK_PATH" envDefault:"/health" validate:"startswith=/"`

	OnError   bwuow.ErrorMode   `env:"BW_ON_ERROR" envDefault:"map-to-500"`
	SpanClose bwuow.CloseTiming `env:"BW_SPAN_CLOSE" envDefault:"before-return"`
	EmitLogs  bwuow.LogPoints   `env:"BW_EMIT_LOGS" envDefault:"onStart,onSuccess,onError"`
}

func (e BaseEnvironment) serviceName() string {
	return e.ServiceName
}
func (e BaseEnvironment) logLevel() zapcore.Level {
	return e.LogLevel
}
func (e BaseEnvironment) otelExporter() string {
	return e.OtelExporter
}
func (e BaseEnvironment) runtime() string {
	return e.Runtime
}
func (e BaseEnvironment) port() int {
	return e.Port
}
func (e BaseEnvironment) readinessCheckPath() string {
	return e.ReadinessCheckPath
}
func (e BaseEnvironment) policy() bwuow.Policy {
	return bwuow.Policy{
		OnError:         e.OnError,
		SpanCloseTiming: e.SpanClose,
		EmitLogs:        e.EmitLogs,
	}
}

var _ Environment = BaseEnvironment{}

// ParseEnv parses and validates environment variables into the given Environment type.
func ParseEnv[E Environment]() func() (E, error) {
	return func() (e E, err error) {
		if err := env.Parse(&e); err != nil {
			return e, errors.Wrap(err, "failed to parse environment")
		}
		if err := validator.New(validator.WithRequiredStructEnabled()).Struct(e); err != nil {
			return e, errors.Wrap(err, "invalid environment")
		}
		if err := e.policy().Validate(); err != nil {
			return e, err
		}
		return e, nil
	}
}
