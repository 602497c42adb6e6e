package core

// ResponseUpdate is one increment of a streamed response: zero or more content
// deltas, optionally a message id/role marking which logical message the
// fragment belongs to, and optional response-level metadata.
//
// Fragments belonging to the same logical message share MessageID; when the id
// is absent, contiguous fragments with the same role belong together. A
// fragment whose id or role differs from the last open message starts a new
// message.
type ResponseUpdate struct {
	MessageID      string       `json:"message_id,omitempty"`
	Role           Role         `json:"role,omitempty"`
	Contents       []Content    `json:"contents,omitempty"`
	ConversationID string       `json:"conversation_id,omitempty"`
	ResponseID     string       `json:"response_id,omitempty"`
	FinishReason   FinishReason `json:"finish_reason,omitempty"`
}

// Text concatenates the plain text deltas carried by this fragment.
func (u ResponseUpdate) Text() string {
	var text string
	for _, c := range u.Contents {
		if tc, ok := c.(TextContent); ok {
			text += tc.Text
		}
	}
	return text
}
