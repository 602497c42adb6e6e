// Package model defines the injected model-call boundary of the orchestration
// engine. The orchestrator is agnostic to wire format: it talks to a Caller
// and never touches provider request/response schemas itself. Adapters for
// concrete providers live in the subpackages.
package model

import (
	"context"

	"github.com/callweave/callweave/core"
	"github.com/callweave/callweave/tool"
)

// ToolChoice constrains how the model may use the advertised tools.
type ToolChoice string

const (
	// ToolChoiceAuto lets the model decide whether to call tools.
	ToolChoiceAuto ToolChoice = "auto"
	// ToolChoiceNone disables tool use for the call. The orchestrator uses
	// this for its fail-safe plain-answer round.
	ToolChoiceNone ToolChoice = "none"
	// ToolChoiceRequired forces the model to call at least one tool.
	ToolChoiceRequired ToolChoice = "required"
)

// Options carry per-call parameters. The orchestration loop re-reads Tools on
// every round because middleware may have changed the effective tool list.
type Options struct {
	// Instructions prepended as the system prompt, if any.
	Instructions string
	// Tools advertised to the model this round.
	Tools []tool.Tool
	// ToolChoice constrains tool use; empty means provider default (auto).
	ToolChoice ToolChoice
	// ConversationID, when set, tells the provider to continue a server-side
	// conversation; callers then send only incremental messages.
	ConversationID string
	// StructuredTarget, when non-nil, requests the final text be parsed into
	// this pointer as a structured output value.
	StructuredTarget any
	// Metadata is provider-specific passthrough.
	Metadata map[string]any
}

// Clone returns a copy safe for per-round mutation by the orchestrator.
func (o *Options) Clone() *Options {
	if o == nil {
		return &Options{}
	}
	cp := *o
	cp.Tools = append([]tool.Tool(nil), o.Tools...)
	return &cp
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"`
	SupportsTools bool   `json:"supports_tools"`
}

// Caller is the sole network boundary consumed by the orchestration loop.
type Caller interface {
	// Call performs one non-streaming model round trip.
	Call(ctx context.Context, messages []core.Message, opts *Options) (*core.Response, error)

	// Stream performs one streaming round trip, emitting fragments on the
	// returned update channel. Both channels are closed when the round ends;
	// at most one error is sent.
	Stream(ctx context.Context, messages []core.Message, opts *Options) (<-chan core.ResponseUpdate, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}
