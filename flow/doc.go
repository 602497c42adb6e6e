// Package flow implements the tool-calling orchestration loop: it drives
// repeated model rounds, detects requested function calls, classifies each
// batch through the approval gate, executes approved calls concurrently with
// per-call fault isolation, folds results back into the conversation and
// terminates on a final answer, the iteration budget or the consecutive-error
// budget. The streaming and non-streaming variants share one round
// implementation; streaming only adds live fragment forwarding.
package flow
