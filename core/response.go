package core

// FinishReason indicates why the model stopped producing output.
type FinishReason string

// Finish reasons normalized across providers.
const (
	FinishStop      FinishReason = "stop"
	FinishLength    FinishReason = "length"
	FinishToolCalls FinishReason = "tool_calls"
)

// UsageDetails captures aggregate token usage for a response.
type UsageDetails struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
	TotalTokens  int64 `json:"total_tokens"`
}

// Add sums another usage delta into this one.
func (u *UsageDetails) Add(other UsageDetails) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.TotalTokens += other.TotalTokens
}

// IsZero reports whether no counters are set.
func (u UsageDetails) IsZero() bool {
	return u.InputTokens == 0 && u.OutputTokens == 0 && u.TotalTokens == 0
}

// Response is one complete model response: ordered messages plus aggregate
// usage and provider correlation identifiers.
type Response struct {
	Messages         []Message    `json:"messages"`
	Usage            UsageDetails `json:"usage"`
	ConversationID   string       `json:"conversation_id,omitempty"`
	ResponseID       string       `json:"response_id,omitempty"`
	FinishReason     FinishReason `json:"finish_reason,omitempty"`
	StructuredOutput any          `json:"structured_output,omitempty"`
}

// Message returns the last message of the response, or nil when empty.
func (r *Response) Message() *Message {
	if len(r.Messages) == 0 {
		return nil
	}
	return &r.Messages[len(r.Messages)-1]
}

// Text returns the concatenated text of the last message.
func (r *Response) Text() string {
	m := r.Message()
	if m == nil {
		return ""
	}
	return m.Text()
}

// FunctionCalls returns every function call across all messages in order.
func (r *Response) FunctionCalls() []FunctionCallContent {
	var calls []FunctionCallContent
	for _, m := range r.Messages {
		calls = append(calls, m.FunctionCalls()...)
	}
	return calls
}

// UnmatchedFunctionCalls returns function calls that have no corresponding
// function result anywhere in the same response. These are the calls the
// orchestration loop still has to execute.
func (r *Response) UnmatchedFunctionCalls() []FunctionCallContent {
	answered := map[string]bool{}
	for _, m := range r.Messages {
		for _, fr := range m.FunctionResults() {
			answered[fr.CallID] = true
		}
	}
	var calls []FunctionCallContent
	for _, m := range r.Messages {
		for _, fc := range m.FunctionCalls() {
			if !answered[fc.CallID] {
				calls = append(calls, fc)
			}
		}
	}
	return calls
}

// Updates converts the response into the equivalent single-fragment-per-message
// update sequence. Feeding the result through a ResponseBuilder reproduces the
// response, which keeps streaming and non-streaming code paths interchangeable.
func (r *Response) Updates() []ResponseUpdate {
	updates := make([]ResponseUpdate, 0, len(r.Messages)+1)
	for _, m := range r.Messages {
		updates = append(updates, ResponseUpdate{
			MessageID: m.ID,
			Role:      m.Role,
			Contents:  m.Contents,
		})
	}
	final := ResponseUpdate{
		ConversationID: r.ConversationID,
		ResponseID:     r.ResponseID,
		FinishReason:   r.FinishReason,
	}
	if !r.Usage.IsZero() {
		final.Contents = []Content{UsageContent{Usage: r.Usage}}
	}
	updates = append(updates, final)
	return updates
}
