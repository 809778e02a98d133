package bwfn

import (
	"context"

	"github.com/basewarphq/bwobs/bwlog"
	"github.com/basewarphq/bwobs/bwuow"
	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel/log"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewLogger builds the process logger: JSON to stdout at BW_LOG_LEVEL, tagged with the
// service name.
func NewLogger(lc fx.Lifecycle, env Environment) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(env.logLevel())
	cfg.DisableStacktrace = true

	logger, err := cfg.Build(zap.Fields(zap.String("service", env.serviceName())))
	if err != nil {
		return nil, errors.Wrap(err, "failed to build logger")
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			_ = logger.Sync() // stdout sync fails on some platforms
			return nil
		},
	})
	return logger, nil
}

type sinkParams struct {
	fx.In

	Logger         *zap.Logger
	LoggerProvider log.LoggerProvider `optional:"true"`
}

// provideLogSink writes unit-of-work records through zap, and additionally through the
// OpenTelemetry logs API when a logger provider is registered with WithOTelLogs.
func provideLogSink(p sinkParams) bwuow.LogSink {
	zs := bwlog.NewZapSink(p.Logger)
	if p.LoggerProvider == nil {
		return zs
	}
	return bwlog.Multi{zs, bwlog.NewOTelSink(p.LoggerProvider.Logger(instrumentationName))}
}
