package core

import "strings"

// Role identifies the conversational author of a message.
type Role string

// Conversation roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message holds a role plus ordered heterogeneous content items. ID is
// optional; streaming providers use it to group fragments of one message.
type Message struct {
	ID       string    `json:"id,omitempty"`
	Role     Role      `json:"role"`
	Contents []Content `json:"contents"`
}

// NewTextMessage builds a single-text-content message.
func NewTextMessage(role Role, text string) Message {
	return Message{Role: role, Contents: []Content{TextContent{Text: text}}}
}

// SystemMessage is shorthand for a system-role text message.
func SystemMessage(text string) Message { return NewTextMessage(RoleSystem, text) }

// UserMessage is shorthand for a user-role text message.
func UserMessage(text string) Message { return NewTextMessage(RoleUser, text) }

// AssistantMessage is shorthand for an assistant-role text message.
func AssistantMessage(text string) Message { return NewTextMessage(RoleAssistant, text) }

// Text concatenates all plain text content in order.
func (m Message) Text() string {
	var sb strings.Builder
	for _, c := range m.Contents {
		if tc, ok := c.(TextContent); ok {
			sb.WriteString(tc.Text)
		}
	}
	return sb.String()
}

// FunctionCalls returns the function call contents preserving order.
func (m Message) FunctionCalls() []FunctionCallContent {
	var calls []FunctionCallContent
	for _, c := range m.Contents {
		if fc, ok := c.(FunctionCallContent); ok {
			calls = append(calls, fc)
		}
	}
	return calls
}

// FunctionResults returns the function result contents preserving order.
func (m Message) FunctionResults() []FunctionResultContent {
	var results []FunctionResultContent
	for _, c := range m.Contents {
		if fr, ok := c.(FunctionResultContent); ok {
			results = append(results, fr)
		}
	}
	return results
}

// ApprovalRequests returns the approval request contents preserving order.
func (m Message) ApprovalRequests() []FunctionApprovalRequestContent {
	var reqs []FunctionApprovalRequestContent
	for _, c := range m.Contents {
		if ar, ok := c.(FunctionApprovalRequestContent); ok {
			reqs = append(reqs, ar)
		}
	}
	return reqs
}

// ApprovalResponses returns the approval response contents preserving order.
func (m Message) ApprovalResponses() []FunctionApprovalResponseContent {
	var resps []FunctionApprovalResponseContent
	for _, c := range m.Contents {
		if ar, ok := c.(FunctionApprovalResponseContent); ok {
			resps = append(resps, ar)
		}
	}
	return resps
}

// HasCallID reports whether any function call or result in this message
// carries the given call id.
func (m Message) HasCallID(callID string) bool {
	for _, c := range m.Contents {
		switch v := c.(type) {
		case FunctionCallContent:
			if v.CallID == callID {
				return true
			}
		case FunctionResultContent:
			if v.CallID == callID {
				return true
			}
		}
	}
	return false
}

// Clone returns a shallow copy with its own content slice.
func (m Message) Clone() Message {
	cp := m
	cp.Contents = make([]Content, len(m.Contents))
	copy(cp.Contents, m.Contents)
	return cp
}

// CloneMessages shallow-copies a conversation slice so the orchestration loop
// can fold in tool activity without mutating caller-owned history.
func CloneMessages(msgs []Message) []Message {
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.Clone()
	}
	return out
}
