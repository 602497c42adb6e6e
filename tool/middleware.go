package tool

import (
	"context"
	"time"

	"github.com/callweave/callweave/logging"
)

// Invocation carries one tool execution through the middleware chain.
type Invocation struct {
	// Tool is the resolved target.
	Tool Tool
	// CallID correlates this execution with the model's function call.
	CallID string
	// Name is the requested tool name.
	Name string
	// Args are the parsed, merged arguments about to be validated/executed.
	Args map[string]any
	// Terminate may be set by middleware to stop the orchestration loop after
	// the current batch completes.
	Terminate bool
}

// Handler executes one tool invocation.
type Handler func(ctx context.Context, inv *Invocation) (any, error)

// Middleware wraps a Handler with cross-cutting behavior. A middleware may
// short-circuit by returning without calling next, and may set inv.Terminate
// to end the orchestration loop after the batch.
type Middleware func(next Handler) Handler

// Chain applies middlewares to h in onion order: the first middleware is
// outermost.
func Chain(h Handler, middlewares ...Middleware) Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// LoggingMiddleware logs start, completion, duration and errors per invocation.
func LoggingMiddleware(logger logging.Logger) Middleware {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return func(next Handler) Handler {
		return func(ctx context.Context, inv *Invocation) (any, error) {
			logger.Debug("tool.invoke.start", "tool", inv.Name, "call_id", inv.CallID)
			start := time.Now()
			result, err := next(ctx, inv)
			dur := time.Since(start)
			if err != nil {
				logger.Error("tool.invoke.error", "tool", inv.Name, "call_id", inv.CallID, "duration_ms", dur.Milliseconds(), "error", err.Error())
				return nil, err
			}
			logger.Info("tool.invoke.success", "tool", inv.Name, "call_id", inv.CallID, "duration_ms", dur.Milliseconds())
			return result, nil
		}
	}
}
