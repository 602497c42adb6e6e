// Package callweave provides a high-level façade over the tool-calling
// orchestration engine. Most applications interact with this package by:
//  1. Creating a Client via New() around a model caller
//  2. Registering tools (typed functions, plain functions or declarations)
//  3. Invoking conversations synchronously (Invoke) or as a live stream (Stream)
//
// The façade delegates loop mechanics to flow.Orchestrator while keeping
// setup ergonomics concise. Defaults are safe for local development and
// testing; production deployments typically supply a structured logger.
package callweave

import (
	"context"

	"github.com/callweave/callweave/core"
	"github.com/callweave/callweave/flow"
	"github.com/callweave/callweave/logging"
	"github.com/callweave/callweave/model"
	"github.com/callweave/callweave/tool"
)

// Options configure a Client.
type Options struct {
	// Config controls the orchestration loop budgets and gate behavior.
	Config flow.Config

	// Instructions prepended as the system prompt on every invocation.
	Instructions string

	// Tools advertised to the model.
	Tools []tool.Tool

	// Middlewares wrap every tool execution, first entry outermost.
	Middlewares []tool.Middleware

	// ExtraArgs are merged into every tool invocation's arguments.
	ExtraArgs map[string]any

	// Logger (defaults to NoOp logger if nil).
	Logger logging.Logger
}

// Client binds a model caller to the orchestration loop and a tool set.
type Client struct {
	opts         Options
	caller       model.Caller
	orchestrator *flow.Orchestrator
}

// New creates a Client around caller with optional overrides.
func New(caller model.Caller, optFns ...func(o *Options)) (*Client, error) {
	opts := Options{
		Config: flow.DefaultConfig(),
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	orchestrator, err := flow.New(caller, func(o *flow.Options) {
		o.Config = opts.Config
		o.Middlewares = opts.Middlewares
		o.ExtraArgs = opts.ExtraArgs
		o.Logger = opts.Logger
	})
	if err != nil {
		return nil, err
	}
	return &Client{opts: opts, caller: caller, orchestrator: orchestrator}, nil
}

// Model returns the underlying model caller.
func (c *Client) Model() model.Caller { return c.caller }

// Invoke runs one orchestrated exchange over the given conversation and
// returns the complete response, tool transcript included.
func (c *Client) Invoke(ctx context.Context, messages []core.Message, optFns ...func(o *model.Options)) (*core.Response, error) {
	return c.orchestrator.Invoke(ctx, messages, c.callOptions(optFns))
}

// InvokeText is a convenience wrapper for a single-user-message exchange.
func (c *Client) InvokeText(ctx context.Context, text string, optFns ...func(o *model.Options)) (*core.Response, error) {
	return c.Invoke(ctx, []core.Message{core.UserMessage(text)}, optFns...)
}

// Stream runs one orchestrated exchange, emitting fragments live. Assemble
// the drained updates with core.AssembleResponse to recover the full response.
func (c *Client) Stream(ctx context.Context, messages []core.Message, optFns ...func(o *model.Options)) (<-chan core.ResponseUpdate, <-chan error) {
	return c.orchestrator.Stream(ctx, messages, c.callOptions(optFns))
}

func (c *Client) callOptions(optFns []func(o *model.Options)) *model.Options {
	opts := &model.Options{
		Instructions: c.opts.Instructions,
		Tools:        append([]tool.Tool(nil), c.opts.Tools...),
	}
	for _, fn := range optFns {
		fn(opts)
	}
	return opts
}
