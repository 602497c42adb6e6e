package testutil

import (
	"github.com/callweave/callweave/core"
)

// ResponseBuilder helps construct model responses with fluent chaining for
// tests. Example:
//
//	resp := NewResponseBuilder().Message(msg).Finish(core.FinishToolCalls).Build()
type ResponseBuilder struct {
	messages []core.Message
	usage    core.UsageDetails
	finish   core.FinishReason
	convID   string
	respID   string
}

// NewResponseBuilder creates a new builder with finish reason "stop".
func NewResponseBuilder() *ResponseBuilder {
	return &ResponseBuilder{finish: core.FinishStop}
}

// Message appends a message (chainable).
func (b *ResponseBuilder) Message(m core.Message) *ResponseBuilder {
	b.messages = append(b.messages, m)
	return b
}

// AssistantText appends a plain assistant text message (chainable).
func (b *ResponseBuilder) AssistantText(text string) *ResponseBuilder {
	return b.Message(core.AssistantMessage(text))
}

// CallMessage appends an assistant message carrying one function call (chainable).
func (b *ResponseBuilder) CallMessage(callID, name, args string) *ResponseBuilder {
	return b.Message(NewMessageBuilder().Call(callID, name, args).Build())
}

// Usage sets the response usage counters (chainable).
func (b *ResponseBuilder) Usage(in, out int64) *ResponseBuilder {
	b.usage = core.UsageDetails{InputTokens: in, OutputTokens: out, TotalTokens: in + out}
	return b
}

// Finish sets the finish reason (chainable).
func (b *ResponseBuilder) Finish(r core.FinishReason) *ResponseBuilder {
	b.finish = r
	return b
}

// Conversation sets the provider conversation id (chainable).
func (b *ResponseBuilder) Conversation(id string) *ResponseBuilder {
	b.convID = id
	return b
}

// ID sets the provider response id (chainable).
func (b *ResponseBuilder) ID(id string) *ResponseBuilder {
	b.respID = id
	return b
}

// Build returns the assembled *core.Response.
func (b *ResponseBuilder) Build() *core.Response {
	return &core.Response{
		Messages:       b.messages,
		Usage:          b.usage,
		FinishReason:   b.finish,
		ConversationID: b.convID,
		ResponseID:     b.respID,
	}
}
