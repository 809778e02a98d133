package bwfn

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/advdv/bhttp"
	"github.com/basewarphq/bwobs/bwlog"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

// maxEventSize matches the synchronous Lambda invocation payload limit.
const maxEventSize = 6 << 20

// Mux serves the invoke surface. Handlers write to a buffered response, so a returned
// error replaces anything written before it.
type Mux = bhttp.ServeMux[context.Context]

// newMux builds the HTTP surface used behind Lambda Web Adapter in pass-through mode:
// the readiness check and a single invoke route receiving the raw event as the body.
func newMux(env Environment, logger *zap.Logger, handler Handler) *Mux {
	mux := bhttp.NewCustomServeMux(
		bhttp.StdContextInit,
		-1, // unlimited buffer
		serveLogger{logger},
		http.NewServeMux(),
		bhttp.NewReverser(),
	)
	mux.Use(withErrorPayload(logger), withLWAContext())

	mux.HandleFunc("GET "+env.readinessCheckPath(), func(_ context.Context, w bhttp.ResponseWriter, _ *http.Request) error {
		w.WriteHeader(http.StatusOK)
		return nil
	})
	mux.HandleFunc("POST /{$}", invokeHandler(logger, handler))
	return mux
}

// invokeHandler writes the envelope status and body verbatim. A failure propagated by the
// handler is returned to the error middleware.
func invokeHandler(logger *zap.Logger, handler Handler) bhttp.HandlerFunc[context.Context] {
	return func(ctx context.Context, w bhttp.ResponseWriter, r *http.Request) error {
		if lc := LWA(ctx); lc != nil {
			bwlog.With(ctx, logger).Debug("lambda context",
				zap.String("request_id", lc.RequestID),
				zap.Duration("remaining", lc.RemainingTime()),
			)
		}

		event, err := io.ReadAll(io.LimitReader(r.Body, maxEventSize))
		if err != nil {
			return bhttp.NewError(bhttp.CodeBadRequest, errors.Wrap(err, "failed to read event"))
		}
		if len(event) == 0 {
			event = []byte("{}")
		}

		env, err := handler(ctx, json.RawMessage(event))
		if err != nil {
			return err
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(env.StatusCode)
		_, err = io.WriteString(w, env.Body)
		return err
	}
}

// withErrorPayload replaces the response of a failed handler with {"errorMessage": ...}.
// A bhttp.Error keeps its code. Any other error is a function error and maps to 502, the
// status Lambda reports for an unhandled function error.
func withErrorPayload(logger *zap.Logger) bhttp.Middleware {
	return func(next bhttp.BareHandler) bhttp.BareHandler {
		return bhttp.BareHandlerFunc(func(w bhttp.ResponseWriter, r *http.Request) error {
			err := next.ServeBareBHTTP(w, r)
			if err == nil {
				return nil
			}
			bwlog.Errorf(r.Context(), logger, "invocation failed: %v", err)

			status := http.StatusBadGateway
			if code := bhttp.CodeOf(err); code != bhttp.CodeUnknown {
				status = int(code)
			}

			w.Reset()
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			return json.NewEncoder(w).Encode(errorPayload(err))
		})
	}
}

func errorPayload(err error) map[string]string {
	return map[string]string{"errorMessage": err.Error()}
}

type serveLogger struct{ logger *zap.Logger }

func (l serveLogger) LogUnhandledServeError(err error) {
	l.logger.Error("unhandled serve error", zap.Error(err))
}

func (l serveLogger) LogImplicitFlushError(err error) {
	l.logger.Warn("failed to flush response", zap.Error(err))
}

// serveHTTP listens on AWS_LWA_PORT until ctx is done, then shuts down gracefully.
func serveHTTP(ctx context.Context, env Environment, logger *zap.Logger, handler http.Handler) error {
	srv := &http.Server{
		Addr:              net.JoinHostPort("", strconv.Itoa(env.port())),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		bwlog.Printf(ctx, logger, "listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "server failed")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "failed to shut down server")
	}
	return nil
}
