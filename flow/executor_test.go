package flow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/callweave/callweave/core"
	"github.com/callweave/callweave/model"
	"github.com/callweave/callweave/tool"
)

func call(id, name, args string) core.FunctionCallContent {
	return core.FunctionCallContent{CallID: id, Name: name, Arguments: args}
}

func TestExecuteCalls_ResultOrderMatchesInputOrder(t *testing.T) {
	slow := tool.New("slow", "Sleeps first", func(_ context.Context, _ map[string]any) (any, error) {
		time.Sleep(30 * time.Millisecond)
		return "slow done", nil
	})
	fast := tool.New("fast", "Returns immediately", func(_ context.Context, _ map[string]any) (any, error) {
		return "fast done", nil
	})

	orch := newOrchestrator(t, model.NewMock())
	reg := tool.NewRegistry(slow, fast)
	br := orch.executeCalls(context.Background(), []core.FunctionCallContent{
		call("c1", "slow", "{}"),
		call("c2", "fast", "{}"),
	}, reg)

	require.Len(t, br.results, 2)
	assert.Equal(t, "c1", br.results[0].CallID)
	assert.Equal(t, "slow done", br.results[0].Result)
	assert.Equal(t, "c2", br.results[1].CallID)
	assert.Equal(t, "fast done", br.results[1].Result)
	assert.False(t, br.anyFailed)
}

func TestExecuteCalls_FailureContainedPerCall(t *testing.T) {
	good := tool.New("good", "Works", func(_ context.Context, _ map[string]any) (any, error) {
		return "ok", nil
	})
	bad := tool.New("bad", "Fails", func(_ context.Context, _ map[string]any) (any, error) {
		return nil, errors.New("backend down")
	})

	orch := newOrchestrator(t, model.NewMock())
	reg := tool.NewRegistry(good, bad)
	br := orch.executeCalls(context.Background(), []core.FunctionCallContent{
		call("c1", "bad", "{}"),
		call("c2", "good", "{}"),
	}, reg)

	assert.True(t, br.anyFailed)
	require.True(t, br.results[0].Failed())
	assert.Equal(t, tool.CodeExecution, br.results[0].Error.Code)
	assert.Equal(t, msgExecution, br.results[0].Error.Message)
	assert.Empty(t, br.results[0].Error.Detail)
	assert.False(t, br.results[1].Failed())
}

func TestExecuteCalls_PanicRecoveredIntoResult(t *testing.T) {
	panicky := tool.New("panicky", "Panics", func(_ context.Context, _ map[string]any) (any, error) {
		panic("unexpected state")
	})

	orch := newOrchestrator(t, model.NewMock())
	br := orch.executeCalls(context.Background(), []core.FunctionCallContent{
		call("c1", "panicky", "{}"),
	}, tool.NewRegistry(panicky))

	require.True(t, br.results[0].Failed())
	assert.True(t, br.anyFailed)
	assert.Equal(t, tool.CodeExecution, br.results[0].Error.Code)
}

func TestExecuteCalls_ValidationFailureSkipsExecution(t *testing.T) {
	strict := tool.New("strict", "Validates hard", func(_ context.Context, _ map[string]any) (any, error) {
		return "ran", nil
	}, func(o *tool.Options) {
		o.Schema = map[string]any{
			"type": "object",
			"properties": map[string]any{
				"n": map[string]any{"type": "integer"},
			},
			"required": []any{"n"},
		}
	})

	orch := newOrchestrator(t, model.NewMock())
	br := orch.executeCalls(context.Background(), []core.FunctionCallContent{
		call("c1", "strict", `{"n":"not-a-number"}`),
	}, tool.NewRegistry(strict))

	require.True(t, br.results[0].Failed())
	assert.Equal(t, tool.CodeValidation, br.results[0].Error.Code)
	assert.Equal(t, msgValidation, br.results[0].Error.Message)
	assert.Equal(t, 0, strict.Invocations())
}

func TestExecuteCalls_DetailedErrorsIncludeCause(t *testing.T) {
	bad := tool.New("bad", "Fails", func(_ context.Context, _ map[string]any) (any, error) {
		return nil, errors.New("backend down")
	})

	orch := newOrchestrator(t, model.NewMock(), func(o *Options) {
		o.Config.IncludeDetailedErrors = true
	})
	br := orch.executeCalls(context.Background(), []core.FunctionCallContent{
		call("c1", "bad", "{}"),
	}, tool.NewRegistry(bad))

	require.True(t, br.results[0].Failed())
	assert.Contains(t, br.results[0].Error.Detail, "backend down")
}

func TestExecuteCalls_UnknownToolSyntheticResult(t *testing.T) {
	orch := newOrchestrator(t, model.NewMock())
	br := orch.executeCalls(context.Background(), []core.FunctionCallContent{
		call("c1", "ghost", "{}"),
	}, tool.NewRegistry())

	require.True(t, br.results[0].Failed())
	assert.Equal(t, msgUnknownTool, br.results[0].Error.Message)
}

func TestExecuteCalls_RawArgumentFallbackReachesTool(t *testing.T) {
	var seen map[string]any
	lax := tool.New("lax", "Accepts anything", func(_ context.Context, args map[string]any) (any, error) {
		seen = args
		return "ok", nil
	})

	orch := newOrchestrator(t, model.NewMock())
	br := orch.executeCalls(context.Background(), []core.FunctionCallContent{
		call("c1", "lax", "garbled {not json"),
	}, tool.NewRegistry(lax))

	assert.False(t, br.results[0].Failed())
	assert.Equal(t, map[string]any{"raw": "garbled {not json"}, seen)
}

func TestExecuteCalls_EmptyBatch(t *testing.T) {
	orch := newOrchestrator(t, model.NewMock())
	br := orch.executeCalls(context.Background(), nil, tool.NewRegistry())
	assert.Empty(t, br.results)
	assert.False(t, br.anyFailed)
	assert.False(t, br.terminate)
}
