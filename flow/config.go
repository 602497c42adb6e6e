package flow

import (
	"fmt"

	"github.com/callweave/callweave/tool"
)

// Default budgets applied by DefaultConfig.
const (
	DefaultMaxIterations        = 40
	DefaultMaxConsecutiveErrors = 3
)

// Config controls the orchestration loop for one embedding client or agent.
type Config struct {
	// Enabled toggles the loop. When false, calls pass straight through to
	// the underlying model caller.
	Enabled bool

	// MaxIterations bounds the number of model calls before the loop falls
	// back to a final plain-answer round. Must be >= 1.
	MaxIterations int

	// MaxConsecutiveErrors is the number of back-to-back failed tool rounds
	// after which the loop abandons tool use and forces a final plain-answer
	// round. Must be >= 0; 0 means the first failed round already does.
	MaxConsecutiveErrors int

	// TerminateOnUnknownCalls aborts the round with an UnknownToolError when
	// the model names a tool absent from the registry. When false such
	// batches are handed back to the caller unexecuted.
	TerminateOnUnknownCalls bool

	// AdditionalTools are known to the embedding caller but not advertised to
	// the model. Calls naming them are deferred rather than executed.
	AdditionalTools []tool.Tool

	// IncludeDetailedErrors copies underlying error text into tool results
	// surfaced to the model. Off by default to avoid leaking internals.
	IncludeDetailedErrors bool
}

// DefaultConfig returns the baseline loop configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:              true,
		MaxIterations:        DefaultMaxIterations,
		MaxConsecutiveErrors: DefaultMaxConsecutiveErrors,
	}
}

// Validate reports configuration errors. These are the only intrinsic fatal
// conditions of the loop besides the unknown-tool termination case.
func (c Config) Validate() error {
	if c.MaxIterations < 1 {
		return fmt.Errorf("flow: MaxIterations must be >= 1, got %d", c.MaxIterations)
	}
	if c.MaxConsecutiveErrors < 0 {
		return fmt.Errorf("flow: MaxConsecutiveErrors must be >= 0, got %d", c.MaxConsecutiveErrors)
	}
	return nil
}
