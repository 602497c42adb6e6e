package flow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/callweave/callweave/core"
	"github.com/callweave/callweave/tool"
)

// Messages surfaced to the model for each failure kind. Underlying error text
// is appended only when IncludeDetailedErrors is set.
const (
	msgUnknownTool     = "Requested tool not found."
	msgDeclarationOnly = "Tool has no local implementation."
	msgValidation      = "Tool arguments failed schema validation."
	msgExecution       = "Tool invocation failed."
)

// batchResult is the fan-in product of one concurrently executed call batch.
type batchResult struct {
	results   []core.FunctionResultContent
	anyFailed bool
	terminate bool
}

// executeCalls runs a batch of approved function calls concurrently, one
// goroutine per call, and fans back in before returning. Result ordering
// matches input ordering regardless of completion order because position is
// used to pair calls with the model-expected sequence. Every per-call failure
// is contained as data on its result; nothing here aborts the batch.
func (o *Orchestrator) executeCalls(ctx context.Context, calls []core.FunctionCallContent, reg *tool.Registry) batchResult {
	n := len(calls)
	br := batchResult{results: make([]core.FunctionResultContent, n)}
	if n == 0 {
		return br
	}

	batchStart := time.Now()
	var mu sync.Mutex // guards anyFailed / terminate
	var wg sync.WaitGroup
	for i := range calls {
		wg.Add(1)
		go func(idx int, fc core.FunctionCallContent) {
			defer wg.Done()
			result, terminate := o.executeOne(ctx, fc, reg)
			br.results[idx] = result
			mu.Lock()
			if result.Failed() {
				br.anyFailed = true
			}
			if terminate {
				br.terminate = true
			}
			mu.Unlock()
		}(i, calls[i])
	}
	wg.Wait()

	o.logger.Debug(
		"flow.tools.batch.complete",
		"count", n,
		"failed", br.anyFailed,
		"duration_ms", time.Since(batchStart).Milliseconds(),
	)
	return br
}

// executeOne resolves, validates and invokes a single call, recovering every
// failure (including panics) into the returned result.
func (o *Orchestrator) executeOne(ctx context.Context, fc core.FunctionCallContent, reg *tool.Registry) (core.FunctionResultContent, bool) {
	t, ok := reg.Resolve(fc.Name)
	if !ok {
		// The approval gate filters unknowns before execution; this is a
		// defensive terminal case, not a panic.
		return o.failedResult(fc, "UNKNOWN_TOOL", msgUnknownTool, fmt.Errorf("tool %s not found", fc.Name)), false
	}

	args := o.mergeArgs(fc.ParsedArguments())

	if v, ok := t.(tool.Validator); ok {
		if err := v.Validate(args); err != nil {
			return o.failedResult(fc, tool.CodeValidation, msgValidation, err), false
		}
	}

	inv := &tool.Invocation{Tool: t, CallID: fc.CallID, Name: fc.Name, Args: args}
	handler := tool.Chain(invokeHandler, o.middlewares...)

	start := time.Now()
	var (
		result any
		err    error
	)
	func() { // panic safety
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic recovered: %v", r)
				o.logger.Error("flow.tool.panic", "tool", fc.Name, "call_id", fc.CallID, "recover", r)
			}
		}()
		result, err = handler(ctx, inv)
	}()
	dur := time.Since(start)

	o.logger.Info(
		"flow.tool.executed",
		"tool", fc.Name,
		"call_id", fc.CallID,
		"duration_ms", dur.Milliseconds(),
		"error", err != nil,
	)

	if err != nil {
		msg := msgExecution
		if tool.ErrorCode(err) == tool.CodeDeclarationOnly {
			msg = msgDeclarationOnly
		}
		return o.failedResult(fc, tool.ErrorCode(err), msg, err), inv.Terminate
	}
	return core.FunctionResultContent{CallID: fc.CallID, Result: result}, inv.Terminate
}

// invokeHandler is the innermost handler of the middleware chain: it runs the
// tool's own invocation pathway, which enforces the declaration-only check
// and the per-tool invocation budgets.
func invokeHandler(ctx context.Context, inv *tool.Invocation) (any, error) {
	invoker, ok := inv.Tool.(tool.Invoker)
	if !ok {
		return nil, &tool.ToolError{Tool: inv.Name, Code: tool.CodeDeclarationOnly, Message: "tool has no local implementation"}
	}
	return invoker.Invoke(ctx, inv.Args)
}

// mergeArgs merges caller-supplied extra arguments with the model-parsed
// arguments; parsed-from-the-model values win on key conflicts.
func (o *Orchestrator) mergeArgs(parsed map[string]any) map[string]any {
	if len(o.extraArgs) == 0 {
		return parsed
	}
	merged := make(map[string]any, len(o.extraArgs)+len(parsed))
	for k, v := range o.extraArgs {
		merged[k] = v
	}
	for k, v := range parsed {
		merged[k] = v
	}
	return merged
}

func (o *Orchestrator) failedResult(fc core.FunctionCallContent, code, message string, err error) core.FunctionResultContent {
	callErr := &core.CallError{Code: code, Message: message}
	if o.cfg.IncludeDetailedErrors && err != nil {
		callErr.Detail = err.Error()
	}
	return core.FunctionResultContent{CallID: fc.CallID, Error: callErr}
}
