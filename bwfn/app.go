package bwfn

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/basewarphq/bwobs/bwuow"
	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/basewarphq/bwobs/bwfn"

const stopTimeout = 5 * time.Second

// Handler handles a single invocation. The event is passed through undecoded; the
// returned envelope is what the caller receives.
type Handler func(ctx context.Context, event json.RawMessage) (bwuow.Envelope, error)

// App is a function process: it wires configuration, logging, tracing and AWS clients
// with fx and then serves invocations on the configured runtime.
type App struct {
	fx      *fx.App
	handler Handler
	env     Environment
	logger  *zap.Logger
	tp      trace.TracerProvider
	prop    propagation.TextMapPropagator

	stopOnce sync.Once
	stopErr  error
}

// Option configures an App.
type Option func(*appOptions)

type appOptions struct {
	fxOptions []fx.Option
}

// WithFx adds custom fx options, typically providers for the handler's dependencies.
func WithFx(opts ...fx.Option) Option {
	return func(o *appOptions) {
		o.fxOptions = append(o.fxOptions, opts...)
	}
}

// WithAWSClient registers an AWS SDK client for injection into constructors. The client
// shares the instrumented aws.Config so its calls are traced.
func WithAWSClient[T any](factory func(aws.Config) T) Option {
	return func(o *appOptions) {
		o.fxOptions = append(o.fxOptions, AWSClientProvider(factory))
	}
}

// WithOTelLogs additionally emits unit-of-work records through lp.
func WithOTelLogs(lp log.LoggerProvider) Option {
	return func(o *appOptions) {
		o.fxOptions = append(o.fxOptions, fx.Supply(fx.Annotate(lp, fx.As(new(log.LoggerProvider)))))
	}
}

// NewApp creates an App for environment E. handlerCtor is an fx constructor whose
// result is the invocation Handler; its parameters are injected.
func NewApp[E Environment](handlerCtor any, opts ...Option) *App {
	options := &appOptions{}
	for _, opt := range opts {
		opt(options)
	}

	app := &App{}
	fxOpts := []fx.Option{
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			l := &fxevent.ZapLogger{Logger: logger}
			l.UseLogLevel(zap.DebugLevel)
			return l
		}),
		fx.Provide(
			ParseEnv[E](),
			func(e E) Environment { return e },
			NewLogger,
			NewTracerProvider,
			NewPropagator,
			provideLogSink,
			bwuow.NewRunner,
			NewRuntime[E],
			provideAWSConfig,
			handlerCtor,
		),
	}
	fxOpts = append(fxOpts, options.fxOptions...)
	fxOpts = append(fxOpts, fx.Populate(&app.handler, &app.env, &app.logger, &app.tp, &app.prop))

	app.fx = fx.New(fxOpts...)
	return app
}

// Err returns any error that occurred while constructing the dependency graph.
func (a *App) Err() error {
	return a.fx.Err()
}

// Start starts the fx lifecycle and serves invocations until ctx is done. In the lambda
// runtime the Lambda runtime API owns the process and Start does not return normally.
func (a *App) Start(ctx context.Context) error {
	if err := a.fx.Err(); err != nil {
		return errors.Wrap(err, "failed to build app")
	}
	if err := a.fx.Start(ctx); err != nil {
		return errors.Wrap(err, "failed to start app")
	}

	switch a.env.runtime() {
	case RuntimeHTTP:
		err := serveHTTP(ctx, a.env, a.logger, a.HTTPHandler())
		return errors.CombineErrors(err, a.stop())
	default:
		lambda.StartWithOptions(a.lambdaHandler(),
			lambda.WithContext(ctx),
			lambda.WithEnableSIGTERM(func() { _ = a.stop() }),
		)
		return a.stop()
	}
}

// Run starts the app, stopping on SIGINT or SIGTERM. It exits the process on failure.
func (a *App) Run() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := a.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%+v\n", err)
		cancel()
		os.Exit(1) //nolint:gocritic
	}
}

// HTTPHandler returns the traced HTTP surface served in the http runtime.
func (a *App) HTTPHandler() http.Handler {
	mux := newMux(a.env, a.logger, a.handler)
	return withTracing(a.tp, a.prop, a.env.serviceName(), a.env.readinessCheckPath())(mux)
}

// lambdaHandler continues the trace carried by the Lambda runtime, if any.
func (a *App) lambdaHandler() Handler {
	return func(ctx context.Context, event json.RawMessage) (bwuow.Envelope, error) {
		return a.handler(extractLambdaTrace(ctx, a.prop), event)
	}
}

func extractLambdaTrace(ctx context.Context, prop propagation.TextMapPropagator) context.Context {
	header, _ := ctx.Value("x-amzn-trace-id").(string)
	if header == "" {
		header = os.Getenv("_X_AMZN_TRACE_ID")
	}
	if header == "" {
		return ctx
	}
	carrier := propagation.HeaderCarrier{}
	carrier.Set("X-Amzn-Trace-Id", header)
	return prop.Extract(ctx, carrier)
}

func (a *App) stop() error {
	a.stopOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		a.stopErr = a.fx.Stop(ctx)
	})
	return a.stopErr
}
