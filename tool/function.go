package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
)

// Func is the implementation signature for a FunctionTool. Arguments arrive
// already parsed and schema validated.
type Func func(ctx context.Context, args map[string]any) (any, error)

// Options configure a FunctionTool at construction time.
type Options struct {
	// Schema is the JSON Schema describing accepted arguments. When empty a
	// permissive object schema is used.
	Schema map[string]any
	// ApprovalMode gates execution behind external sign-off.
	ApprovalMode ApprovalMode
	// MaxInvocations bounds total invocations across an entire exchange.
	// 0 means unlimited.
	MaxInvocations int
	// MaxInvocationErrors bounds total failed invocations across an entire
	// exchange. 0 means unlimited.
	MaxInvocationErrors int
}

// FunctionTool adapts a plain Go function into a Tool.
//
// Responsibilities:
//   - Holds the JSON Schema parameter specification plus a compiled validator
//   - Tracks monotonically increasing invocation / invocation-error counters
//     and enforces the configured maxima before each execution
//   - Carries the approval mode inspected by the orchestration layer
//   - Normalizes error handling so callers receive *ToolError with consistent
//     codes (DECLARATION_ONLY, INVOCATION_LIMIT_EXCEEDED, ERROR_LIMIT_EXCEEDED,
//     VALIDATION_ERROR, EXECUTION_ERROR; custom codes preserved when the
//     implementation returns *ToolError directly)
//
// Concurrency:
//
//	Counter checks and increments serialize under an internal mutex so two
//	concurrent calls targeting the same tool observe a consistent budget.
//	The wrapped function executes outside the lock.
type FunctionTool struct {
	name        string
	description string
	schema      map[string]any
	resolved    *jsonschema.Resolved
	fn          Func
	approval    ApprovalMode
	maxInvs     int
	maxErrs     int

	mu   sync.Mutex
	invs int
	errs int
}

// New constructs a FunctionTool from an explicit schema and implementation.
// A nil fn produces a declaration-only tool (use Declared for clarity).
func New(name, description string, fn Func, optFns ...func(o *Options)) *FunctionTool {
	opts := Options{}
	for _, fnOpt := range optFns {
		fnOpt(&opts)
	}
	schema := opts.Schema
	if schema == nil {
		schema = map[string]any{"type": "object", "properties": map[string]any{}}
	}
	t := &FunctionTool{
		name:        name,
		description: description,
		schema:      schema,
		fn:          fn,
		approval:    opts.ApprovalMode,
		maxInvs:     opts.MaxInvocations,
		maxErrs:     opts.MaxInvocationErrors,
	}
	// Best effort: an uncompilable schema disables validation rather than
	// failing construction, matching how raw provider-supplied schemas are
	// treated.
	if resolved, err := compileSchema(schema); err == nil {
		t.resolved = resolved
	}
	return t
}

// Declared constructs a declaration-only tool: advertised to the model, never
// executed locally. Calls targeting it are handed back to the embedding caller.
func Declared(name, description string, schema map[string]any, optFns ...func(o *Options)) *FunctionTool {
	return New(name, description, nil, append(optFns, func(o *Options) { o.Schema = schema })...)
}

// NewTyped derives the input schema from the argument struct type T via JSON
// Schema reflection and wraps fn so it receives decoded, validated arguments.
//
// Example:
//
//	type WeatherArgs struct {
//		Location string `json:"location" description:"City name"`
//	}
//
//	weather, err := tool.NewTyped("get_weather", "Look up current weather",
//		func(ctx context.Context, args WeatherArgs) (any, error) {
//			return lookup(ctx, args.Location)
//		})
func NewTyped[T any](name, description string, fn func(ctx context.Context, args T) (any, error), optFns ...func(o *Options)) (*FunctionTool, error) {
	schema, err := SchemaFor[T]()
	if err != nil {
		return nil, fmt.Errorf("derive schema for %s: %w", name, err)
	}
	wrapped := func(ctx context.Context, args map[string]any) (any, error) {
		data, err := json.Marshal(args)
		if err != nil {
			return nil, &ToolError{Tool: name, Code: CodeValidation, Message: fmt.Sprintf("encode arguments: %v", err), Err: err}
		}
		var typed T
		if err := json.Unmarshal(data, &typed); err != nil {
			return nil, &ToolError{Tool: name, Code: CodeValidation, Message: fmt.Sprintf("decode arguments: %v", err), Err: err}
		}
		return fn(ctx, typed)
	}
	return New(name, description, wrapped, append(optFns, func(o *Options) { o.Schema = schema })...), nil
}

// Name returns the unique tool name used in function declarations and routing.
func (t *FunctionTool) Name() string { return t.name }

// Description returns the natural language description exposed to models.
func (t *FunctionTool) Description() string { return t.description }

// InputSchema returns the JSON Schema describing expected arguments.
func (t *FunctionTool) InputSchema() map[string]any { return t.schema }

// RequiresApproval implements ApprovalRequirer.
func (t *FunctionTool) RequiresApproval() bool { return t.approval == ApprovalAlways }

// IsExecutable implements Executable: false for declaration-only tools.
func (t *FunctionTool) IsExecutable() bool { return t.fn != nil }

// Invocations returns the total number of times this tool started executing.
func (t *FunctionTool) Invocations() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.invs
}

// InvocationErrors returns the total number of failed executions.
func (t *FunctionTool) InvocationErrors() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.errs
}

// Validate checks parsed arguments against the input schema. A tool whose
// schema could not be compiled validates vacuously.
func (t *FunctionTool) Validate(args map[string]any) error {
	if t.resolved == nil {
		return nil
	}
	normalized, err := normalizeArgs(args)
	if err != nil {
		return &ToolError{Tool: t.name, Code: CodeValidation, Message: fmt.Sprintf("parameter validation failed: %v", err), Err: err}
	}
	if err := t.resolved.Validate(normalized); err != nil {
		return &ToolError{Tool: t.name, Code: CodeValidation, Message: fmt.Sprintf("parameter validation failed: %v", err), Err: err}
	}
	return nil
}

// Invoke executes the tool. Failure order: declaration-only, invocation
// limit, error limit; then the invocation counter increments and the
// implementation runs. Any implementation error increments the error counter
// and is returned as (or wrapped into) a *ToolError. Counters are never reset
// between orchestration rounds; they bound the tool's total usage across an
// entire multi-round exchange.
func (t *FunctionTool) Invoke(ctx context.Context, args map[string]any) (any, error) {
	t.mu.Lock()
	switch {
	case t.fn == nil:
		t.mu.Unlock()
		return nil, &ToolError{Tool: t.name, Code: CodeDeclarationOnly, Message: "tool has no local implementation"}
	case t.maxInvs > 0 && t.invs >= t.maxInvs:
		t.mu.Unlock()
		return nil, &ToolError{Tool: t.name, Code: CodeInvocationLimit, Message: fmt.Sprintf("invocation limit of %d reached", t.maxInvs)}
	case t.maxErrs > 0 && t.errs >= t.maxErrs:
		t.mu.Unlock()
		return nil, &ToolError{Tool: t.name, Code: CodeErrorLimit, Message: fmt.Sprintf("invocation error limit of %d reached", t.maxErrs)}
	}
	t.invs++
	t.mu.Unlock()

	result, err := t.fn(ctx, args)
	if err != nil {
		t.mu.Lock()
		t.errs++
		t.mu.Unlock()
		if toolErr, ok := err.(*ToolError); ok {
			return nil, toolErr
		}
		return nil, &ToolError{Tool: t.name, Code: CodeExecution, Message: err.Error(), Err: err}
	}
	return result, nil
}

// normalizeArgs round-trips arguments through JSON so the validator sees the
// same value shapes a decoded payload would have (float64 numbers, []any
// slices) regardless of how the caller built the map.
func normalizeArgs(args map[string]any) (any, error) {
	if args == nil {
		return map[string]any{}, nil
	}
	data, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}
	var normalized any
	if err := json.Unmarshal(data, &normalized); err != nil {
		return nil, err
	}
	return normalized, nil
}
