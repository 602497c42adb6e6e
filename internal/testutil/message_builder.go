package testutil

import (
	"github.com/callweave/callweave/core"
)

// MessageBuilder provides a fluent helper for constructing messages in tests.
// Example:
//
//	msg := NewMessageBuilder().Assistant().Text("hi").Call("c1", "lookup", `{"q":"x"}`).Build()
//
// Chain only the parts you need; sensible defaults are applied.
type MessageBuilder struct {
	id       string
	role     core.Role
	contents []core.Content
}

// NewMessageBuilder creates a builder with default role assistant.
func NewMessageBuilder() *MessageBuilder { return &MessageBuilder{role: core.RoleAssistant} }

// ID overrides the auto-empty message ID (chainable).
func (b *MessageBuilder) ID(id string) *MessageBuilder { b.id = id; return b }

// Role sets an explicit role (chainable).
func (b *MessageBuilder) Role(r core.Role) *MessageBuilder { b.role = r; return b }

// User sets the user role (chainable).
func (b *MessageBuilder) User() *MessageBuilder { b.role = core.RoleUser; return b }

// Assistant sets the assistant role (chainable).
func (b *MessageBuilder) Assistant() *MessageBuilder { b.role = core.RoleAssistant; return b }

// Tool sets the tool role (chainable).
func (b *MessageBuilder) Tool() *MessageBuilder { b.role = core.RoleTool; return b }

// Text appends a plain text content item (chainable).
func (b *MessageBuilder) Text(t string) *MessageBuilder {
	b.contents = append(b.contents, core.TextContent{Text: t})
	return b
}

// Call appends a function call content item with a raw JSON argument string (chainable).
func (b *MessageBuilder) Call(callID, name, args string) *MessageBuilder {
	b.contents = append(b.contents, core.FunctionCallContent{CallID: callID, Name: name, Arguments: args})
	return b
}

// Result appends a successful function result content item (chainable).
func (b *MessageBuilder) Result(callID string, result any) *MessageBuilder {
	b.contents = append(b.contents, core.FunctionResultContent{CallID: callID, Result: result})
	return b
}

// FailedResult appends a failed function result content item (chainable).
func (b *MessageBuilder) FailedResult(callID, code, message string) *MessageBuilder {
	b.contents = append(b.contents, core.FunctionResultContent{
		CallID: callID,
		Error:  &core.CallError{Code: code, Message: message},
	})
	return b
}

// Approval appends an approval response wrapping the given call (chainable).
func (b *MessageBuilder) Approval(id string, approved bool, call core.FunctionCallContent) *MessageBuilder {
	b.contents = append(b.contents, core.FunctionApprovalResponseContent{ID: id, Approved: approved, Call: call})
	return b
}

// Add appends an arbitrary content item (chainable).
func (b *MessageBuilder) Add(c core.Content) *MessageBuilder {
	b.contents = append(b.contents, c)
	return b
}

// Build constructs the core.Message value.
func (b *MessageBuilder) Build() core.Message {
	return core.Message{ID: b.id, Role: b.role, Contents: b.contents}
}
