package flow

import (
	"fmt"

	"github.com/callweave/callweave/core"
	"github.com/callweave/callweave/tool"
)

// RejectedResultText is the synthetic result surfaced to the model when a
// human declines an approval request.
const RejectedResultText = "Tool call invocation was rejected by user"

// UnknownToolError aborts a round when the model names a tool absent from the
// registry and TerminateOnUnknownCalls is set.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("flow: model requested unknown tool %q", e.Name)
}

// disposition is the approval gate's verdict for one whole batch of pending
// calls. Gating is batch-atomic: a partially executed batch would
// desynchronize the call/result pairing expected by the model provider, so
// approval and deferral short-circuits apply to the entire round.
type disposition int

const (
	// dispositionExecute means every call may run this round.
	dispositionExecute disposition = iota
	// dispositionApprovalRequired means the whole batch becomes approval
	// requests and nothing executes this round.
	dispositionApprovalRequired
	// dispositionDeferred means the batch is handed back to the embedding
	// caller unchanged (declaration-only, additional-only or tolerated
	// unknown targets).
	dispositionDeferred
)

// classifyBatch applies the gate rules in order: any always-require-approval
// target gates the batch; else any declaration-only or additional-only target
// defers it; else an unknown target either aborts (TerminateOnUnknownCalls)
// or defers; else the batch executes.
func classifyBatch(calls []core.FunctionCallContent, reg *tool.Registry, cfg Config) (disposition, error) {
	deferred := false
	var unknown string
	for _, call := range calls {
		t, ok := reg.Resolve(call.Name)
		if !ok {
			if unknown == "" {
				unknown = call.Name
			}
			continue
		}
		if tool.RequiresApproval(t) {
			return dispositionApprovalRequired, nil
		}
		if !tool.CanInvoke(t) || reg.IsAdditional(call.Name) {
			deferred = true
		}
	}
	if deferred {
		return dispositionDeferred, nil
	}
	if unknown != "" {
		if cfg.TerminateOnUnknownCalls {
			return 0, &UnknownToolError{Name: unknown}
		}
		return dispositionDeferred, nil
	}
	return dispositionExecute, nil
}

// attachApprovalRequests replaces every unmatched function call in the
// response with an approval request wrapping it, suspending the loop until
// the caller replays the conversation with decisions attached.
func attachApprovalRequests(resp *core.Response) {
	answered := map[string]bool{}
	for _, m := range resp.Messages {
		for _, fr := range m.FunctionResults() {
			answered[fr.CallID] = true
		}
	}
	for mi := range resp.Messages {
		contents := resp.Messages[mi].Contents
		for ci, c := range contents {
			fc, ok := c.(core.FunctionCallContent)
			if !ok || answered[fc.CallID] {
				continue
			}
			contents[ci] = core.FunctionApprovalRequestContent{ID: core.NewID(), Call: fc}
		}
	}
}

// reconcileApprovals folds collected approval decisions back into the
// conversation. Each request content is replaced in place by its original
// function call so the call is visible to the model again; each response
// content is replaced by the matching execution result (approved, consumed
// from results in order) or a synthetic rejection result (declined). A
// request whose call id already appears elsewhere in the same message is
// dropped rather than duplicated.
//
// results must hold one entry per approved response, in the order the
// approved responses appear in the conversation.
func reconcileApprovals(msgs []core.Message, results []core.FunctionResultContent) []core.Message {
	out := make([]core.Message, 0, len(msgs))
	next := 0
	for _, m := range msgs {
		contents := make([]core.Content, 0, len(m.Contents))
		for _, c := range m.Contents {
			switch v := c.(type) {
			case core.FunctionApprovalRequestContent:
				if m.HasCallID(v.Call.CallID) {
					continue
				}
				contents = append(contents, v.Call)
			case core.FunctionApprovalResponseContent:
				if v.Approved {
					if next < len(results) {
						contents = append(contents, results[next])
						next++
						continue
					}
					// No computed result for this approval; keep the call
					// visible so a later round can still answer it.
					contents = append(contents, v.Call)
					continue
				}
				contents = append(contents, core.FunctionResultContent{
					CallID: v.Call.CallID,
					Result: RejectedResultText,
				})
			default:
				contents = append(contents, c)
			}
		}
		cp := m
		cp.Contents = contents
		out = append(out, cp)
	}
	return out
}

// approvedCalls extracts the calls behind approved, still-unreconciled
// approval responses in conversation order.
func approvedCalls(msgs []core.Message) []core.FunctionCallContent {
	var calls []core.FunctionCallContent
	for _, m := range msgs {
		for _, ar := range m.ApprovalResponses() {
			if ar.Approved {
				calls = append(calls, ar.Call)
			}
		}
	}
	return calls
}

// hasApprovalResponses reports whether the conversation still carries
// unreconciled approval responses.
func hasApprovalResponses(msgs []core.Message) bool {
	for _, m := range msgs {
		if len(m.ApprovalResponses()) > 0 {
			return true
		}
	}
	return false
}
