// Package openai adapts the OpenAI Chat Completions API (including streaming
// and function/tool calling) to the model.Caller interface. It converts the
// normalized message/content structures into the SDK's message format and back.
package openai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go"

	"github.com/callweave/callweave/core"
	"github.com/callweave/callweave/model"
)

// Options configure the OpenAI adapter. Fields mirror a subset of Chat
// Completion parameters intentionally kept minimal; extend via functional
// options without breaking callers.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
}

// Caller wraps the OpenAI Chat Completions API behind model.Caller.
type Caller struct {
	client *openai.Client
	opts   Options
}

// New creates a Caller using the default client (API key from environment).
func New(optFns ...func(o *Options)) *Caller {
	client := openai.NewClient()
	return NewFromClient(&client, optFns...)
}

// NewFromClient creates a Caller from an existing client.
func NewFromClient(client *openai.Client, optFns ...func(o *Options)) *Caller {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Caller{client: client, opts: opts}
}

// Call implements model.Caller.
func (c *Caller) Call(ctx context.Context, messages []core.Message, opts *model.Options) (*core.Response, error) {
	params := c.buildParams(messages, opts)
	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai: no choices returned")
	}
	ch0 := resp.Choices[0]

	contents := make([]core.Content, 0, len(ch0.Message.ToolCalls)+1)
	if ch0.Message.Content != "" {
		contents = append(contents, core.TextContent{Text: ch0.Message.Content})
	}
	for _, tc := range ch0.Message.ToolCalls {
		contents = append(contents, core.FunctionCallContent{
			CallID:    tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}

	return &core.Response{
		Messages: []core.Message{{
			ID:       resp.ID,
			Role:     core.RoleAssistant,
			Contents: contents,
		}},
		Usage: core.UsageDetails{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		},
		ResponseID:   resp.ID,
		FinishReason: mapFinishReason(ch0.FinishReason),
	}, nil
}

// Stream implements model.Caller. Text and tool-call argument deltas are
// emitted as they arrive; the assembler merges tool-call fragments by call id.
func (c *Caller) Stream(ctx context.Context, messages []core.Message, opts *model.Options) (<-chan core.ResponseUpdate, <-chan error) {
	out := make(chan core.ResponseUpdate, 32)
	errCh := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errCh)

		params := c.buildParams(messages, opts)
		params.StreamOptions = openai.ChatCompletionStreamOptionsParam{
			IncludeUsage: openai.Bool(true),
		}

		stream := c.client.Chat.Completions.NewStreaming(ctx, params)
		final := core.ResponseUpdate{}
		for stream.Next() {
			ck := stream.Current()
			final.ResponseID = ck.ID
			for _, choice := range ck.Choices {
				u := core.ResponseUpdate{MessageID: ck.ID, Role: core.RoleAssistant}
				if choice.Delta.Content != "" {
					u.Contents = append(u.Contents, core.TextContent{Text: choice.Delta.Content})
				}
				for _, tc := range choice.Delta.ToolCalls {
					u.Contents = append(u.Contents, core.FunctionCallContent{
						CallID:    tc.ID,
						Name:      tc.Function.Name,
						Arguments: tc.Function.Arguments,
					})
				}
				if choice.FinishReason != "" {
					final.FinishReason = mapFinishReason(choice.FinishReason)
				}
				if len(u.Contents) == 0 {
					continue
				}
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				case out <- u:
				}
			}
			if ck.Usage.TotalTokens > 0 {
				final.Contents = []core.Content{core.UsageContent{Usage: core.UsageDetails{
					InputTokens:  ck.Usage.PromptTokens,
					OutputTokens: ck.Usage.CompletionTokens,
					TotalTokens:  ck.Usage.TotalTokens,
				}}}
			}
		}
		if err := stream.Err(); err != nil {
			errCh <- fmt.Errorf("openai streaming error: %w", err)
			return
		}
		select {
		case <-ctx.Done():
			errCh <- ctx.Err()
		case out <- final:
		}
	}()
	return out, errCh
}

// buildParams assembles request parameters including tool definitions. When
// tool use is disabled for the round the tool list is omitted entirely.
func (c *Caller) buildParams(messages []core.Message, opts *model.Options) openai.ChatCompletionNewParams {
	if opts == nil {
		opts = &model.Options{}
	}
	params := openai.ChatCompletionNewParams{
		Messages:            buildMessages(messages, opts.Instructions),
		Model:               c.opts.Model,
		Temperature:         openai.Float(c.opts.Temperature),
		MaxCompletionTokens: openai.Int(c.opts.MaxCompletionTokens),
	}
	if len(opts.Tools) == 0 || opts.ToolChoice == model.ToolChoiceNone {
		return params
	}
	tools := make([]openai.ChatCompletionToolParam, len(opts.Tools))
	for i, t := range opts.Tools {
		tools[i] = openai.ChatCompletionToolParam{
			Type: "function",
			Function: openai.FunctionDefinitionParam{
				Name:        t.Name(),
				Description: openai.String(t.Description()),
				Parameters:  t.InputSchema(),
			},
		}
	}
	params.Tools = tools
	if opts.ToolChoice == model.ToolChoiceRequired {
		params.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{
			OfAuto: openai.String("required"),
		}
	}
	return params
}

// buildMessages converts normalized messages into OpenAI chat messages. Tool
// results become tool-role messages keyed by call id, immediately following
// the assistant message that requested them.
func buildMessages(messages []core.Message, instructions string) []openai.ChatCompletionMessageParamUnion {
	var out []openai.ChatCompletionMessageParamUnion
	if instructions != "" {
		out = append(out, openai.SystemMessage(instructions))
	}
	for _, m := range messages {
		text := m.Text()
		switch m.Role {
		case core.RoleSystem:
			out = append(out, openai.SystemMessage(text))
		case core.RoleUser:
			out = append(out, openai.UserMessage(text))
		case core.RoleAssistant:
			toolCalls := assistantToolCalls(m)
			if len(toolCalls) == 0 {
				out = append(out, openai.AssistantMessage(text))
				continue
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{
				OfAssistant: &openai.ChatCompletionAssistantMessageParam{
					Role:      "assistant",
					ToolCalls: toolCalls,
				},
			})
		case core.RoleTool:
			for _, fr := range m.FunctionResults() {
				out = append(out, openai.ToolMessage(fr.Text(), fr.CallID))
			}
		default:
			if text != "" {
				out = append(out, openai.UserMessage(text))
			}
		}
	}
	return out
}

func assistantToolCalls(m core.Message) []openai.ChatCompletionMessageToolCallParam {
	var toolCalls []openai.ChatCompletionMessageToolCallParam
	for _, fc := range m.FunctionCalls() {
		args := fc.Arguments
		if args == "" && fc.Args != nil {
			if data, err := json.Marshal(fc.Args); err == nil {
				args = string(data)
			}
		}
		if args == "" {
			args = "{}"
		}
		toolCalls = append(toolCalls, openai.ChatCompletionMessageToolCallParam{
			ID:   fc.CallID,
			Type: "function",
			Function: openai.ChatCompletionMessageToolCallFunctionParam{
				Name:      fc.Name,
				Arguments: args,
			},
		})
	}
	return toolCalls
}

func mapFinishReason(reason string) core.FinishReason {
	switch reason {
	case "length":
		return core.FinishLength
	case "tool_calls", "function_call":
		return core.FinishToolCalls
	default:
		return core.FinishStop
	}
}

// Info implements model.Caller.
func (c *Caller) Info() model.Info {
	return model.Info{
		Name:          c.opts.Model,
		Provider:      "openai",
		SupportsTools: true,
	}
}
