package core

import (
	"encoding/json"

	"github.com/callweave/callweave/logging"
)

// BuilderOptions configure a ResponseBuilder.
type BuilderOptions struct {
	// StructuredTarget, when non-nil, receives a JSON parse of the final
	// concatenated text if the stream produced no structured value itself.
	// Must be a pointer. Parse failures are logged and swallowed.
	StructuredTarget any

	// Logger used for non-fatal assembly diagnostics. Defaults to NoOpLogger.
	Logger logging.Logger
}

// ResponseBuilder folds an ordered sequence of ResponseUpdate fragments into
// one Response. It is usable incrementally: call Add for each fragment, then
// Response once. The merge loop is O(fragments); text coalescing runs once in
// the finalization pass.
type ResponseBuilder struct {
	opts BuilderOptions
	resp Response
}

// NewResponseBuilder creates an empty builder.
func NewResponseBuilder(optFns ...func(o *BuilderOptions)) *ResponseBuilder {
	opts := BuilderOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &ResponseBuilder{opts: opts}
}

// Add folds one fragment into the accumulating response.
func (b *ResponseBuilder) Add(u ResponseUpdate) {
	if u.ConversationID != "" {
		b.resp.ConversationID = u.ConversationID
	}
	if u.ResponseID != "" {
		b.resp.ResponseID = u.ResponseID
	}
	if u.FinishReason != "" {
		b.resp.FinishReason = u.FinishReason
	}

	hasMessageContent := false
	for _, c := range u.Contents {
		if _, ok := c.(UsageContent); !ok {
			hasMessageContent = true
			break
		}
	}

	var open *Message
	if len(b.resp.Messages) > 0 {
		open = &b.resp.Messages[len(b.resp.Messages)-1]
	}
	if b.startsNewMessage(open, u) && (hasMessageContent || u.MessageID != "" || u.Role != "") {
		b.resp.Messages = append(b.resp.Messages, Message{ID: u.MessageID, Role: u.Role})
		open = &b.resp.Messages[len(b.resp.Messages)-1]
	}
	if open != nil {
		// Late-arriving identity fills gaps on the open message.
		if open.ID == "" {
			open.ID = u.MessageID
		}
		if open.Role == "" {
			open.Role = u.Role
		}
	}

	for _, c := range u.Contents {
		switch v := c.(type) {
		case UsageContent:
			b.resp.Usage.Add(v.Usage)
		case FunctionCallContent:
			b.appendFunctionCall(open, v)
		default:
			open.Contents = append(open.Contents, c)
		}
	}
}

// startsNewMessage applies the boundary rule: new if there is no open message,
// the fragment carries a non-empty id differing from the open message's id, or
// a non-empty role differing from the open message's role.
func (b *ResponseBuilder) startsNewMessage(open *Message, u ResponseUpdate) bool {
	if open == nil {
		return true
	}
	if u.MessageID != "" && open.ID != "" && u.MessageID != open.ID {
		return true
	}
	if u.Role != "" && open.Role != "" && u.Role != open.Role {
		return true
	}
	return false
}

// appendFunctionCall merges a call fragment into the trailing call of the open
// message when the call ids allow it, otherwise appends it as a new call.
func (b *ResponseBuilder) appendFunctionCall(open *Message, fc FunctionCallContent) {
	if n := len(open.Contents); n > 0 {
		if last, ok := open.Contents[n-1].(FunctionCallContent); ok && last.CanMerge(fc) {
			merged, err := last.Merge(fc)
			if err == nil {
				open.Contents[n-1] = merged
				return
			}
			b.opts.Logger.Warn("assemble.call_merge_failed", "error", err.Error())
		}
	}
	open.Contents = append(open.Contents, fc)
}

// Response runs the one-shot finalization pass and returns the assembled
// response: adjacent text fragments and adjacent reasoning fragments coalesce
// into single content items, and a requested structured output target is
// parsed from the final text when the stream produced none. Finalization is
// idempotent on already-coalesced content.
func (b *ResponseBuilder) Response() *Response {
	for i := range b.resp.Messages {
		b.resp.Messages[i].Contents = coalesceContents(b.resp.Messages[i].Contents)
	}
	b.parseStructuredOutput()
	return &b.resp
}

func (b *ResponseBuilder) parseStructuredOutput() {
	if b.opts.StructuredTarget == nil || b.resp.StructuredOutput != nil {
		return
	}
	text := b.resp.Text()
	if text == "" {
		return
	}
	if err := json.Unmarshal([]byte(text), b.opts.StructuredTarget); err != nil {
		b.opts.Logger.Debug("assemble.structured_parse_failed", "error", err.Error())
		return
	}
	b.resp.StructuredOutput = b.opts.StructuredTarget
}

// coalesceContents merges runs of adjacent TextContent and adjacent
// ReasoningContent, concatenating text and annotation lists.
func coalesceContents(contents []Content) []Content {
	if len(contents) < 2 {
		return contents
	}
	out := make([]Content, 0, len(contents))
	for _, c := range contents {
		if len(out) == 0 {
			out = append(out, c)
			continue
		}
		switch v := c.(type) {
		case TextContent:
			if last, ok := out[len(out)-1].(TextContent); ok {
				last.Text += v.Text
				last.Annotations = append(last.Annotations, v.Annotations...)
				out[len(out)-1] = last
				continue
			}
		case ReasoningContent:
			if last, ok := out[len(out)-1].(ReasoningContent); ok {
				last.Text += v.Text
				if v.Signature != "" {
					last.Signature = v.Signature
				}
				out[len(out)-1] = last
				continue
			}
		}
		out = append(out, c)
	}
	return out
}

// AssembleResponse folds a complete fragment sequence into one response.
func AssembleResponse(updates []ResponseUpdate, optFns ...func(o *BuilderOptions)) *Response {
	b := NewResponseBuilder(optFns...)
	for _, u := range updates {
		b.Add(u)
	}
	return b.Response()
}
