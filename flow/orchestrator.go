package flow

import (
	"context"
	"encoding/json"

	"github.com/callweave/callweave/core"
	"github.com/callweave/callweave/logging"
	"github.com/callweave/callweave/model"
	"github.com/callweave/callweave/tool"
)

// Options configure an Orchestrator.
type Options struct {
	// Config controls budgets and gate behavior. Defaults to DefaultConfig.
	Config Config

	// Middlewares wrap every tool execution, first entry outermost.
	Middlewares []tool.Middleware

	// ExtraArgs are merged into every tool invocation's arguments. Arguments
	// parsed from the model win on key conflicts.
	ExtraArgs map[string]any

	// Logger receives loop diagnostics. Defaults to NoOpLogger.
	Logger logging.Logger
}

// Orchestrator drives the tool-calling loop on top of an injected model
// caller. It is stateless across invocations; all per-invocation state lives
// in a loopState owned by the calling goroutine, so one Orchestrator may serve
// concurrent invocations.
type Orchestrator struct {
	caller      model.Caller
	cfg         Config
	middlewares []tool.Middleware
	extraArgs   map[string]any
	logger      logging.Logger
}

// New constructs an Orchestrator around caller.
func New(caller model.Caller, optFns ...func(o *Options)) (*Orchestrator, error) {
	opts := Options{Config: DefaultConfig(), Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	return &Orchestrator{
		caller:      caller,
		cfg:         opts.Config,
		middlewares: opts.Middlewares,
		extraArgs:   opts.ExtraArgs,
		logger:      opts.Logger,
	}, nil
}

// outcome is the per-round verdict of processResponse.
type outcome int

const (
	// outcomeContinue means tool results were folded in; call the model again.
	outcomeContinue outcome = iota
	// outcomeFinal means the response is ready to hand back: a plain answer,
	// an approval suspension or a deferred batch.
	outcomeFinal
	// outcomeBreak means the consecutive-error budget is exhausted; take the
	// fail-safe plain-answer path.
	outcomeBreak
	// outcomeTerminate means middleware requested the loop stop after this
	// batch; the accumulated transcript is the response.
	outcomeTerminate
)

// loopState is the mutable state of one orchestration invocation. It is owned
// by a single goroutine; the conversation list is mutated only between rounds,
// never concurrently.
type loopState struct {
	opts            *model.Options
	msgs            []core.Message
	transcript      []core.Message
	usage           core.UsageDetails
	conversationID  string
	incremental     bool
	consecutiveErrs int
}

func (o *Orchestrator) newLoopState(messages []core.Message, opts *model.Options) *loopState {
	st := &loopState{opts: opts.Clone(), msgs: core.CloneMessages(messages)}
	if st.opts.ConversationID != "" {
		st.conversationID = st.opts.ConversationID
		st.incremental = true
	}
	return st
}

// finalize prepends the accumulated tool transcript so a multi-round exchange
// is returned as one coherent transcript with tool activity preceding the
// final answer, and replaces per-round usage with the invocation aggregate.
func (st *loopState) finalize(resp *core.Response) *core.Response {
	if len(st.transcript) > 0 {
		resp.Messages = append(core.CloneMessages(st.transcript), resp.Messages...)
	}
	resp.Usage = st.usage
	if resp.ConversationID == "" {
		resp.ConversationID = st.conversationID
	}
	return resp
}

// Invoke runs the non-streaming orchestration loop: call the model, execute
// any requested tools, fold results back in and repeat until a final answer,
// an approval suspension, the iteration budget or the consecutive-error
// budget. When the loop is disabled the call passes straight through.
func (o *Orchestrator) Invoke(ctx context.Context, messages []core.Message, opts *model.Options) (*core.Response, error) {
	if !o.cfg.Enabled {
		return o.caller.Call(ctx, messages, opts)
	}

	st := o.newLoopState(messages, opts)
	if o.resolvePendingApprovals(ctx, st) {
		return o.failSafe(ctx, st)
	}

	for iter := 1; iter <= o.cfg.MaxIterations; iter++ {
		resp, err := o.caller.Call(ctx, st.msgs, st.opts)
		if err != nil {
			return nil, err
		}
		out, err := o.processResponse(ctx, st, resp, nil)
		if err != nil {
			return nil, err
		}
		switch out {
		case outcomeFinal:
			return o.finish(st, resp), nil
		case outcomeTerminate:
			o.logger.Info("flow.terminated_by_middleware", "iteration", iter)
			return o.finish(st, &core.Response{
				ResponseID:   resp.ResponseID,
				FinishReason: resp.FinishReason,
			}), nil
		case outcomeBreak:
			o.logger.Warn("flow.consecutive_errors_exhausted", "max", o.cfg.MaxConsecutiveErrors)
			return o.failSafe(ctx, st)
		}
		o.logger.Debug("flow.round.complete", "iteration", iter)
	}

	o.logger.Warn("flow.iterations_exhausted", "max", o.cfg.MaxIterations)
	return o.failSafe(ctx, st)
}

// Stream runs the streaming orchestration loop. Model fragments are forwarded
// to the returned channel as they arrive while being buffered internally, so
// round decisions happen on fully assembled responses with identical semantics
// to Invoke. Synthetic updates carry tool-result messages and approval
// requests. Both channels close when the loop ends; at most one error is sent.
func (o *Orchestrator) Stream(ctx context.Context, messages []core.Message, opts *model.Options) (<-chan core.ResponseUpdate, <-chan error) {
	if !o.cfg.Enabled {
		return o.caller.Stream(ctx, messages, opts)
	}

	out := make(chan core.ResponseUpdate, 16)
	errCh := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errCh)
		if err := o.streamLoop(ctx, messages, opts, out); err != nil {
			errCh <- err
		}
	}()
	return out, errCh
}

func (o *Orchestrator) streamLoop(ctx context.Context, messages []core.Message, opts *model.Options, out chan<- core.ResponseUpdate) error {
	st := o.newLoopState(messages, opts)
	emit := func(u core.ResponseUpdate) {
		select {
		case <-ctx.Done():
		case out <- u:
		}
	}

	if o.resolvePendingApprovals(ctx, st) {
		return o.failSafeStream(ctx, st, out)
	}

	for iter := 1; iter <= o.cfg.MaxIterations; iter++ {
		resp, err := o.streamRound(ctx, st.msgs, st.opts, out)
		if err != nil {
			return err
		}
		outc, err := o.processResponse(ctx, st, resp, emit)
		if err != nil {
			return err
		}
		switch outc {
		case outcomeFinal, outcomeTerminate:
			return nil
		case outcomeBreak:
			o.logger.Warn("flow.consecutive_errors_exhausted", "max", o.cfg.MaxConsecutiveErrors)
			return o.failSafeStream(ctx, st, out)
		}
		o.logger.Debug("flow.round.complete", "iteration", iter)
	}

	o.logger.Warn("flow.iterations_exhausted", "max", o.cfg.MaxIterations)
	return o.failSafeStream(ctx, st, out)
}

// streamRound performs one streaming model round trip, forwarding every
// fragment to out while folding them into a builder for the round decision.
func (o *Orchestrator) streamRound(ctx context.Context, msgs []core.Message, opts *model.Options, out chan<- core.ResponseUpdate) (*core.Response, error) {
	updates, errs := o.caller.Stream(ctx, msgs, opts)
	b := core.NewResponseBuilder(func(bo *core.BuilderOptions) { bo.Logger = o.logger })
	for u := range updates {
		b.Add(u)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case out <- u:
		}
	}
	if err := <-errs; err != nil {
		return nil, err
	}
	return b.Response(), nil
}

// processResponse applies the per-round decision to an assembled response.
// emit, when non-nil, receives synthetic updates for tool-result messages and
// approval requests so streaming consumers see the full transcript.
func (o *Orchestrator) processResponse(ctx context.Context, st *loopState, resp *core.Response, emit func(core.ResponseUpdate)) (outcome, error) {
	st.usage.Add(resp.Usage)
	if resp.ConversationID != "" {
		// The provider now holds history server-side; send only incremental
		// messages from here on.
		st.conversationID = resp.ConversationID
		st.incremental = true
		st.opts.ConversationID = resp.ConversationID
	}

	calls := resp.UnmatchedFunctionCalls()
	if len(calls) == 0 {
		return outcomeFinal, nil
	}

	reg := o.buildRegistry(st.opts)
	disp, err := classifyBatch(calls, reg, o.cfg)
	if err != nil {
		return 0, err
	}
	switch disp {
	case dispositionApprovalRequired:
		attachApprovalRequests(resp)
		if emit != nil {
			emitApprovalRequests(resp, emit)
		}
		o.logger.Info("flow.approval_required", "calls", len(calls))
		return outcomeFinal, nil
	case dispositionDeferred:
		o.logger.Debug("flow.batch_deferred", "calls", len(calls))
		return outcomeFinal, nil
	}

	br := o.executeCalls(ctx, calls, reg)
	toolMsg := toolMessage(br.results)
	if emit != nil {
		emit(core.ResponseUpdate{MessageID: toolMsg.ID, Role: toolMsg.Role, Contents: toolMsg.Contents})
	}

	st.transcript = append(st.transcript, resp.Messages...)
	st.transcript = append(st.transcript, toolMsg)
	if st.incremental {
		st.msgs = []core.Message{toolMsg}
	} else {
		st.msgs = append(st.msgs, resp.Messages...)
		st.msgs = append(st.msgs, toolMsg)
	}

	if br.terminate {
		return outcomeTerminate, nil
	}
	if br.anyFailed {
		st.consecutiveErrs++
		if st.consecutiveErrs >= o.cfg.MaxConsecutiveErrors {
			return outcomeBreak, nil
		}
	} else {
		st.consecutiveErrs = 0
	}
	return outcomeContinue, nil
}

// resolvePendingApprovals executes calls behind approved approval responses in
// the incoming conversation and folds decisions back into message history
// before the first model round. Returns true when the failures exhausted the
// consecutive-error budget, which sends the loop straight to the fail-safe.
func (o *Orchestrator) resolvePendingApprovals(ctx context.Context, st *loopState) bool {
	if !hasApprovalResponses(st.msgs) {
		return false
	}
	calls := approvedCalls(st.msgs)
	br := o.executeCalls(ctx, calls, o.buildRegistry(st.opts))
	st.msgs = reconcileApprovals(st.msgs, br.results)
	o.logger.Info("flow.approvals_resolved", "approved", len(calls), "failed", br.anyFailed)
	if br.anyFailed {
		st.consecutiveErrs++
		return st.consecutiveErrs >= o.cfg.MaxConsecutiveErrors
	}
	st.consecutiveErrs = 0
	return false
}

// failSafe makes one final model call with tool use disabled to obtain a
// plain answer once a budget is exhausted.
func (o *Orchestrator) failSafe(ctx context.Context, st *loopState) (*core.Response, error) {
	resp, err := o.caller.Call(ctx, st.msgs, failSafeOptions(st.opts))
	if err != nil {
		return nil, err
	}
	st.usage.Add(resp.Usage)
	return o.finish(st, resp), nil
}

func (o *Orchestrator) failSafeStream(ctx context.Context, st *loopState, out chan<- core.ResponseUpdate) error {
	_, err := o.streamRound(ctx, st.msgs, failSafeOptions(st.opts), out)
	return err
}

func failSafeOptions(opts *model.Options) *model.Options {
	cp := opts.Clone()
	cp.ToolChoice = model.ToolChoiceNone
	return cp
}

func (o *Orchestrator) finish(st *loopState, resp *core.Response) *core.Response {
	resp = st.finalize(resp)
	o.parseStructured(resp, st.opts.StructuredTarget)
	return resp
}

// parseStructured attempts a structured-output parse of the final text when
// the round itself produced none. Failures are logged and swallowed.
func (o *Orchestrator) parseStructured(resp *core.Response, target any) {
	if target == nil || resp.StructuredOutput != nil {
		return
	}
	text := resp.Text()
	if text == "" {
		return
	}
	if err := json.Unmarshal([]byte(text), target); err != nil {
		o.logger.Debug("flow.structured_parse_failed", "error", err.Error())
		return
	}
	resp.StructuredOutput = target
}

// buildRegistry re-indexes the tool list in effect this round. Middleware may
// have changed opts.Tools between rounds, so the registry is rebuilt per use.
func (o *Orchestrator) buildRegistry(opts *model.Options) *tool.Registry {
	reg := tool.NewRegistry(opts.Tools...)
	for _, t := range o.cfg.AdditionalTools {
		reg.RegisterAdditional(t)
	}
	return reg
}

// toolMessage wraps one batch's results in a single tool-role message.
func toolMessage(results []core.FunctionResultContent) core.Message {
	contents := make([]core.Content, len(results))
	for i, r := range results {
		contents[i] = r
	}
	return core.Message{ID: core.NewID(), Role: core.RoleTool, Contents: contents}
}

// emitApprovalRequests forwards the attached approval-request contents on the
// message that carried the original calls. Streaming consumers already saw
// the raw call fragments; assembly-side reconciliation tolerates a request
// whose call id coexists with its call in one message.
func emitApprovalRequests(resp *core.Response, emit func(core.ResponseUpdate)) {
	for _, m := range resp.Messages {
		reqs := m.ApprovalRequests()
		if len(reqs) == 0 {
			continue
		}
		contents := make([]core.Content, len(reqs))
		for i, r := range reqs {
			contents[i] = r
		}
		emit(core.ResponseUpdate{MessageID: m.ID, Role: m.Role, Contents: contents})
	}
}
