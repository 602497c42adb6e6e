package core

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Content represents a polymorphic segment of message content. Concrete
// content types implement the unexported isContent marker enabling a closed set.
type Content interface{ isContent() }

// Annotation attaches provider metadata (citations, grounding references) to
// a text segment. Annotations survive fragment coalescing by concatenation.
type Annotation struct {
	Kind     string         // Annotation category (e.g. "citation")
	Value    string         // Primary payload (URL, quote, identifier)
	Metadata map[string]any // Optional producer-provided metadata
}

// TextContent is a plain text content segment.
type TextContent struct {
	Text        string // Plain UTF-8 text
	Annotations []Annotation
}

// isContent implements the Content interface for TextContent.
func (TextContent) isContent() {}

// ReasoningContent is a model reasoning (thinking) segment. Signature carries
// the provider's opaque verification token when one is emitted.
type ReasoningContent struct {
	Text      string
	Signature string
}

// isContent implements the Content interface for ReasoningContent.
func (ReasoningContent) isContent() {}

// FunctionCallContent describes a tool/function invocation requested by the
// model. Arguments accumulate as a raw JSON string across streaming fragments;
// providers that deliver structured arguments populate Args instead.
type FunctionCallContent struct {
	CallID    string         // Provider-assigned call identifier
	Name      string         // Tool / function name
	Arguments string         // Serialized argument payload (may be partial while streaming)
	Args      map[string]any // Structured arguments, when the provider supplies them parsed
}

// isContent implements the Content interface for FunctionCallContent.
func (FunctionCallContent) isContent() {}

// ErrCallIDMismatch is reported by Merge when two fragments carry different
// non-empty call identifiers and therefore must not be combined.
var ErrCallIDMismatch = fmt.Errorf("function call fragments have mismatched call ids")

// CanMerge reports whether other can be folded into this fragment, i.e. the
// call identifiers are equal or at most one of them is set.
func (c FunctionCallContent) CanMerge(other FunctionCallContent) bool {
	return c.CallID == "" || other.CallID == "" || c.CallID == other.CallID
}

// Merge folds a later fragment of the same call into this one: string
// arguments concatenate, structured arguments shallow-merge (later keys win).
// Fragments with differing non-empty CallIDs return ErrCallIDMismatch.
func (c FunctionCallContent) Merge(other FunctionCallContent) (FunctionCallContent, error) {
	if !c.CanMerge(other) {
		return c, fmt.Errorf("%w: %q vs %q", ErrCallIDMismatch, c.CallID, other.CallID)
	}
	merged := c
	if merged.CallID == "" {
		merged.CallID = other.CallID
	}
	if merged.Name == "" {
		merged.Name = other.Name
	}
	merged.Arguments += other.Arguments
	if other.Args != nil {
		if merged.Args == nil {
			merged.Args = make(map[string]any, len(other.Args))
		} else {
			// Copy before mutating so earlier snapshots stay stable.
			cp := make(map[string]any, len(merged.Args)+len(other.Args))
			for k, v := range merged.Args {
				cp[k] = v
			}
			merged.Args = cp
		}
		for k, v := range other.Args {
			merged.Args[k] = v
		}
	}
	return merged, nil
}

// ParsedArguments returns the structured argument map for this call: Args when
// present, otherwise a best-effort JSON parse of the accumulated Arguments
// string. Unparseable payloads are wrapped as {"raw": <string>} so the tool
// still sees what the model produced.
func (c FunctionCallContent) ParsedArguments() map[string]any {
	if c.Args != nil {
		return c.Args
	}
	if c.Arguments == "" {
		return map[string]any{}
	}
	var parsed map[string]any
	if err := json.Unmarshal([]byte(c.Arguments), &parsed); err != nil || parsed == nil {
		return map[string]any{"raw": c.Arguments}
	}
	return parsed
}

// CallError is the data form of a failed tool invocation carried on a
// FunctionResultContent. Code identifies the failure kind; Detail carries the
// underlying error text and is populated only when detailed errors are enabled.
type CallError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// Text renders the error the way the model sees it.
func (e *CallError) Text() string {
	if e.Detail != "" {
		return fmt.Sprintf("Error: %s: %s", e.Message, e.Detail)
	}
	return "Error: " + e.Message
}

// FunctionResultContent is the terminal outcome for exactly one function call.
// Error is nil on success.
type FunctionResultContent struct {
	CallID string
	Result any
	Error  *CallError
}

// isContent implements the Content interface for FunctionResultContent.
func (FunctionResultContent) isContent() {}

// Failed reports whether the call this result answers ended in an error.
func (r FunctionResultContent) Failed() bool { return r.Error != nil }

// Text renders the result as the plain text surfaced back to the model.
func (r FunctionResultContent) Text() string {
	if r.Error != nil {
		return r.Error.Text()
	}
	if s, ok := r.Result.(string); ok {
		return s
	}
	if r.Result == nil {
		return ""
	}
	if data, err := json.Marshal(r.Result); err == nil {
		return string(data)
	}
	return fmt.Sprintf("%v", r.Result)
}

// FunctionApprovalRequestContent asks an external party to approve a pending
// function call before it executes. ID is the approval correlation key and is
// distinct from the wrapped call's CallID so multiple pending approvals stay
// distinguishable.
type FunctionApprovalRequestContent struct {
	ID   string
	Call FunctionCallContent
}

// isContent implements the Content interface for FunctionApprovalRequestContent.
func (FunctionApprovalRequestContent) isContent() {}

// Response builds the matching approval response for this request.
func (c FunctionApprovalRequestContent) Response(approved bool) FunctionApprovalResponseContent {
	return FunctionApprovalResponseContent{ID: c.ID, Approved: approved, Call: c.Call}
}

// FunctionApprovalResponseContent records the external decision for a
// previously issued approval request.
type FunctionApprovalResponseContent struct {
	ID       string
	Approved bool
	Call     FunctionCallContent
}

// isContent implements the Content interface for FunctionApprovalResponseContent.
func (FunctionApprovalResponseContent) isContent() {}

// UsageContent carries a token usage delta inside a streaming fragment. The
// assembler sums it into the response aggregate instead of appending it as a
// message content item.
type UsageContent struct {
	Usage UsageDetails
}

// isContent implements the Content interface for UsageContent.
func (UsageContent) isContent() {}

// NewID generates a new unique identifier for messages and approval requests.
func NewID() string { return uuid.NewString() }
