package bwfn

import (
	"context"

	"github.com/basewarphq/bwobs/bwlog"
	"github.com/basewarphq/bwobs/bwuow"
	"go.uber.org/zap"
)

// Runtime provides access to app-scoped dependencies.
// Inject this into handler constructors via fx instead of pulling from context.
//
// Example:
//
//	type Handlers struct {
//	    rt    *bwfn.Runtime[Env]
//	    store userstore.Store
//	}
//
//	func (h *Handlers) ListUsers(ctx context.Context, event json.RawMessage) (bwuow.Envelope, error) {
//	    return h.rt.Run(ctx, bwuow.Operation{
//	        Name:        "lambdaHandler",
//	        Input:       event,
//	        ResultField: "users",
//	        Do: func(ctx context.Context) (any, error) {
//	            return h.store.FetchUsers(ctx, 6)
//	        },
//	    })
//	}
type Runtime[E Environment] struct {
	env    E
	runner *bwuow.Runner
	logger *zap.Logger
}

// NewRuntime creates a new Runtime with the given dependencies.
func NewRuntime[E Environment](env E, runner *bwuow.Runner, logger *zap.Logger) *Runtime[E] {
	return &Runtime[E]{
		env:    env,
		runner: runner,
		logger: logger,
	}
}

// Env returns the environment configuration.
func (r *Runtime[E]) Env() E {
	return r.env
}

// Policy returns the unit-of-work policy configured through the environment.
func (r *Runtime[E]) Policy() bwuow.Policy {
	return r.env.policy()
}

// Logger returns a trace-correlated logger for ctx.
func (r *Runtime[E]) Logger(ctx context.Context) *zap.Logger {
	return bwlog.With(ctx, r.logger)
}

// Run executes op as a unit of work under the configured policy, tagging its span with
// the invocation attributes found in ctx.
func (r *Runtime[E]) Run(ctx context.Context, op bwuow.Operation) (bwuow.Envelope, error) {
	return r.RunWithPolicy(ctx, r.Policy(), op)
}

// RunWithPolicy is like Run but overrides the configured policy.
func (r *Runtime[E]) RunWithPolicy(ctx context.Context, policy bwuow.Policy, op bwuow.Operation) (bwuow.Envelope, error) {
	op.Attributes = append(InvocationAttributes(ctx), op.Attributes...)
	return r.runner.Run(ctx, policy, op)
}
