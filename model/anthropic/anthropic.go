// Package anthropic adapts the Anthropic Messages API (including streaming
// and tool use) to the model.Caller interface.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"

	"github.com/callweave/callweave/core"
	"github.com/callweave/callweave/model"
)

// Options configure the Anthropic adapter (model id, temperature, max tokens,
// API key). Extend via functional options to preserve stability.
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
}

// Caller wraps the Anthropic Messages API behind model.Caller.
type Caller struct {
	client *anthropic.Client
	opts   Options
}

func defaultOptions() Options {
	return Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
	}
}

// New creates a Caller using the official client.
func New(optFns ...func(o *Options)) *Caller {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := anthropic.NewClient(clientOpts...)
	return &Caller{client: &client, opts: opts}
}

// NewFromClient creates a Caller from an existing client.
func NewFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Caller {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Caller{client: client, opts: opts}
}

// Call implements model.Caller.
func (c *Caller) Call(ctx context.Context, messages []core.Message, opts *model.Options) (*core.Response, error) {
	params := c.buildParams(messages, opts)
	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic api error: %w", err)
	}

	var contents []core.Content
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			tb := block.AsText()
			if tb.Text != "" {
				contents = append(contents, core.TextContent{Text: tb.Text})
			}
		case "thinking":
			th := block.AsThinking()
			contents = append(contents, core.ReasoningContent{Text: th.Thinking, Signature: th.Signature})
		case "tool_use":
			tu := block.AsToolUse()
			args := ""
			if tu.Input != nil {
				if data, err := json.Marshal(tu.Input); err == nil {
					args = string(data)
				}
			}
			contents = append(contents, core.FunctionCallContent{
				CallID:    tu.ID,
				Name:      tu.Name,
				Arguments: args,
			})
		}
	}

	return &core.Response{
		Messages: []core.Message{{
			ID:       resp.ID,
			Role:     core.RoleAssistant,
			Contents: contents,
		}},
		Usage: core.UsageDetails{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
			TotalTokens:  resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
		ResponseID:   resp.ID,
		FinishReason: mapStopReason(string(resp.StopReason)),
	}, nil
}

// Stream implements model.Caller. Text and thinking deltas are forwarded as
// they arrive; tool-use argument deltas accumulate per content block and the
// complete call is emitted on block stop, so the assembler never sees a
// partially built call from this adapter.
func (c *Caller) Stream(ctx context.Context, messages []core.Message, opts *model.Options) (<-chan core.ResponseUpdate, <-chan error) {
	out := make(chan core.ResponseUpdate, 32)
	errCh := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errCh)

		params := c.buildParams(messages, opts)
		stream := c.client.Messages.NewStreaming(ctx, params)

		var (
			messageID string
			usage     core.UsageDetails
			finish    core.FinishReason
			calls     = map[int64]*core.FunctionCallContent{}
		)
		emit := func(contents ...core.Content) bool {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return false
			case out <- core.ResponseUpdate{MessageID: messageID, Role: core.RoleAssistant, Contents: contents}:
				return true
			}
		}

		for stream.Next() {
			event := stream.Current()
			switch variant := event.AsAny().(type) {
			case anthropic.MessageStartEvent:
				messageID = variant.Message.ID
				usage.InputTokens = variant.Message.Usage.InputTokens
			case anthropic.ContentBlockStartEvent:
				switch block := variant.ContentBlock.AsAny().(type) {
				case anthropic.ToolUseBlock:
					calls[variant.Index] = &core.FunctionCallContent{CallID: block.ID, Name: block.Name}
				case anthropic.ThinkingBlock:
					if block.Thinking != "" || block.Signature != "" {
						if !emit(core.ReasoningContent{Text: block.Thinking, Signature: block.Signature}) {
							return
						}
					}
				}
			case anthropic.ContentBlockDeltaEvent:
				switch delta := variant.Delta.AsAny().(type) {
				case anthropic.TextDelta:
					if delta.Text != "" {
						if !emit(core.TextContent{Text: delta.Text}) {
							return
						}
					}
				case anthropic.ThinkingDelta:
					if delta.Thinking != "" {
						if !emit(core.ReasoningContent{Text: delta.Thinking}) {
							return
						}
					}
				case anthropic.SignatureDelta:
					if delta.Signature != "" {
						if !emit(core.ReasoningContent{Signature: delta.Signature}) {
							return
						}
					}
				case anthropic.InputJSONDelta:
					if fc, ok := calls[variant.Index]; ok {
						fc.Arguments += delta.PartialJSON
					}
				}
			case anthropic.ContentBlockStopEvent:
				if fc, ok := calls[variant.Index]; ok {
					delete(calls, variant.Index)
					if !emit(*fc) {
						return
					}
				}
			case anthropic.MessageDeltaEvent:
				if variant.Usage.OutputTokens > 0 {
					usage.OutputTokens = variant.Usage.OutputTokens
				}
				if variant.Delta.StopReason != "" {
					finish = mapStopReason(string(variant.Delta.StopReason))
				}
			}
		}
		if err := stream.Err(); err != nil {
			errCh <- fmt.Errorf("anthropic streaming error: %w", err)
			return
		}

		usage.TotalTokens = usage.InputTokens + usage.OutputTokens
		final := core.ResponseUpdate{ResponseID: messageID, FinishReason: finish}
		if !usage.IsZero() {
			final.Contents = []core.Content{core.UsageContent{Usage: usage}}
		}
		select {
		case <-ctx.Done():
			errCh <- ctx.Err()
		case out <- final:
		}
	}()
	return out, errCh
}

// buildParams assembles the message request. System text (instructions plus
// any system-role messages) becomes system blocks; tool results embed as
// tool_result blocks on user messages per the Messages API shape. When tool
// use is disabled for the round the tool list is omitted entirely.
func (c *Caller) buildParams(messages []core.Message, opts *model.Options) anthropic.MessageNewParams {
	if opts == nil {
		opts = &model.Options{}
	}
	params := anthropic.MessageNewParams{
		Model:       c.opts.Model,
		Messages:    buildMessages(messages),
		MaxTokens:   c.opts.MaxTokens,
		Temperature: anthropic.Float(c.opts.Temperature),
	}
	if blocks := systemBlocks(messages, opts.Instructions); len(blocks) > 0 {
		params.System = blocks
	}
	if len(opts.Tools) == 0 || opts.ToolChoice == model.ToolChoiceNone {
		return params
	}
	tools := make([]anthropic.ToolUnionParam, len(opts.Tools))
	for i, t := range opts.Tools {
		schema := t.InputSchema()
		inputSchema := anthropic.ToolInputSchemaParam{
			Type:       constant.Object("object"),
			Properties: schema["properties"],
			Required:   schemaRequired(schema),
		}
		tu := anthropic.ToolUnionParamOfTool(inputSchema, t.Name())
		if desc := t.Description(); desc != "" {
			tu.OfTool.Description = anthropic.String(desc)
		}
		tools[i] = tu
	}
	params.Tools = tools
	if opts.ToolChoice == model.ToolChoiceRequired {
		params.ToolChoice = anthropic.ToolChoiceUnionParam{OfAny: &anthropic.ToolChoiceAnyParam{}}
	}
	return params
}

func systemBlocks(messages []core.Message, instructions string) []anthropic.TextBlockParam {
	var blocks []anthropic.TextBlockParam
	if instructions != "" {
		blocks = append(blocks, anthropic.TextBlockParam{Text: instructions})
	}
	for _, m := range messages {
		if m.Role != core.RoleSystem {
			continue
		}
		if text := m.Text(); text != "" {
			blocks = append(blocks, anthropic.TextBlockParam{Text: text})
		}
	}
	return blocks
}

func buildMessages(messages []core.Message) []anthropic.MessageParam {
	var out []anthropic.MessageParam
	for _, m := range messages {
		switch m.Role {
		case core.RoleSystem:
			// Handled as system blocks.
		case core.RoleAssistant:
			if blocks := assistantBlocks(m); len(blocks) > 0 {
				out = append(out, anthropic.NewAssistantMessage(blocks...))
			}
		case core.RoleTool:
			if blocks := toolResultBlocks(m); len(blocks) > 0 {
				out = append(out, anthropic.NewUserMessage(blocks...))
			}
		default:
			if text := m.Text(); text != "" {
				out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(text)))
			}
		}
	}
	return out
}

func assistantBlocks(m core.Message) []anthropic.ContentBlockParamUnion {
	var blocks []anthropic.ContentBlockParamUnion
	for _, c := range m.Contents {
		switch v := c.(type) {
		case core.TextContent:
			if v.Text != "" {
				blocks = append(blocks, anthropic.NewTextBlock(v.Text))
			}
		case core.FunctionCallContent:
			blocks = append(blocks, anthropic.NewToolUseBlock(v.CallID, callInput(v), v.Name))
		}
	}
	return blocks
}

func toolResultBlocks(m core.Message) []anthropic.ContentBlockParamUnion {
	var blocks []anthropic.ContentBlockParamUnion
	for _, fr := range m.FunctionResults() {
		blocks = append(blocks, anthropic.NewToolResultBlock(fr.CallID, fr.Text(), fr.Failed()))
	}
	return blocks
}

// callInput returns the structured input for a tool_use block, preferring
// already-parsed arguments over the raw JSON string.
func callInput(fc core.FunctionCallContent) any {
	if fc.Args != nil {
		return fc.Args
	}
	if fc.Arguments == "" {
		return map[string]any{}
	}
	var input any
	if err := json.Unmarshal([]byte(fc.Arguments), &input); err != nil {
		return fc.Arguments
	}
	return input
}

func schemaRequired(schema map[string]any) []string {
	raw, ok := schema["required"]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func mapStopReason(reason string) core.FinishReason {
	switch reason {
	case "max_tokens":
		return core.FinishLength
	case "tool_use":
		return core.FinishToolCalls
	default:
		return core.FinishStop
	}
}

// Info implements model.Caller.
func (c *Caller) Info() model.Info {
	return model.Info{
		Name:          string(c.opts.Model),
		Provider:      "anthropic",
		SupportsTools: true,
	}
}
