// Package bwuow runs a single operation as an observable unit of work: it opens a span,
// invokes the operation, records the outcome on the span, emits trace-correlated log
// records and shapes the response envelope returned to the function runtime.
//
// # Usage
//
// A [Runner] is built once at process start from an explicitly injected tracer provider
// and log sink, then shared by every invocation:
//
//	runner := bwuow.NewRunner(tp, bwlog.NewZapSink(logger))
//
//	env, err := runner.Run(ctx, bwuow.DefaultPolicy(), bwuow.Operation{
//	    Name:        "lambdaHandler",
//	    Input:       event,
//	    ResultField: "users",
//	    Do: func(ctx context.Context) (any, error) {
//	        return store.FetchUsers(ctx, 6)
//	    },
//	})
//
// # Policy
//
// [Policy] selects among the behaviors found in hand-written handlers:
//
//	| Field           | Values                                      | Default            |
//	|-----------------|---------------------------------------------|--------------------|
//	| OnError         | map-to-500, rethrow                         | map-to-500         |
//	| SpanCloseTiming | before-return, in-cleanup-overriding-return | before-return      |
//	| EmitLogs        | any of onStart, onSuccess, onError          | all (DefaultPolicy)|
//
// The in-cleanup-overriding-return timing exists for compatibility only: the deferred
// cleanup replaces the computed envelope, and any propagated failure, with
// [GenericEnvelope]. The failure is still recorded on the span first.
//
// # Guarantees
//
// Every call to [Runner.Run] opens exactly one span and closes it exactly once, on every
// exit path including a panic in the operation. Span status and exception are attached
// before the span is closed. Failures are wrapped in [OperationFailedError]; errors.Is
// with [ErrOperationFailed] matches them.
package bwuow
