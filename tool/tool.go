// Package tool implements the function / tool calling subsystem: named,
// schema-described capabilities the model can invoke, with schema validated
// arguments, per-tool invocation budgets, approval gating metadata and
// consistent error handling.
package tool

import "context"

// Tool is the minimal contract for a capability advertised to the model.
//
// Tool implementations should:
//   - Provide clear, descriptive names and descriptions
//   - Define proper JSON schema for their arguments
//   - Be thread-safe if used concurrently
type Tool interface {
	// Name returns the unique identifier for this tool.
	// Names should follow function naming conventions (snake_case recommended).
	Name() string

	// Description returns a human-readable description of what this tool does.
	// It is provided to the LLM to help it decide when and how to use the tool.
	Description() string

	// InputSchema returns a JSON Schema object describing the expected
	// argument format, used for validation and LLM function declarations.
	InputSchema() map[string]any
}

// Invoker is implemented by tools that can be executed locally. A registered
// Tool without an Invoker implementation is declaration-only: it is advertised
// to the model but execution is deferred to the embedding caller.
type Invoker interface {
	Invoke(ctx context.Context, args map[string]any) (any, error)
}

// Validator is implemented by tools that can validate parsed arguments
// against their input schema before execution.
type Validator interface {
	Validate(args map[string]any) error
}

// ApprovalMode controls whether a tool needs external sign-off before it runs.
type ApprovalMode int

const (
	// ApprovalNever executes without human involvement.
	ApprovalNever ApprovalMode = iota
	// ApprovalAlways suspends the round and emits an approval request for
	// every call targeting this tool.
	ApprovalAlways
)

// ApprovalRequirer exposes a tool's approval mode to the orchestration layer.
type ApprovalRequirer interface {
	RequiresApproval() bool
}

// Executable reports whether a tool carries a local implementation. Tools not
// implementing this interface are judged by whether they implement Invoker.
type Executable interface {
	IsExecutable() bool
}

// CanInvoke reports whether t can be executed locally, honoring both the
// Invoker and Executable interfaces.
func CanInvoke(t Tool) bool {
	if _, ok := t.(Invoker); !ok {
		return false
	}
	if e, ok := t.(Executable); ok {
		return e.IsExecutable()
	}
	return true
}

// RequiresApproval reports whether calls to t must be gated behind an
// external approval decision.
func RequiresApproval(t Tool) bool {
	if a, ok := t.(ApprovalRequirer); ok {
		return a.RequiresApproval()
	}
	return false
}
