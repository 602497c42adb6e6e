package tool

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func numberSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"a": map[string]any{"type": "number"},
			"b": map[string]any{"type": "number"},
		},
		"required": []any{"a", "b"},
	}
}

// -------------------- FunctionTool Tests --------------------

func TestFunctionTool_Success(t *testing.T) {
	sum := New("sum", "Add numbers", func(_ context.Context, args map[string]any) (any, error) {
		return args["a"].(float64) + args["b"].(float64), nil
	}, func(o *Options) { o.Schema = numberSchema() })

	result, err := sum.Invoke(context.Background(), map[string]any{"a": 2.0, "b": 3.0})
	require.NoError(t, err)
	assert.Equal(t, 5.0, result)
	assert.Equal(t, 1, sum.Invocations())
	assert.Equal(t, 0, sum.InvocationErrors())
}

func TestFunctionTool_ValidateRejectsBadArguments(t *testing.T) {
	sum := New("sum", "Add numbers", func(_ context.Context, args map[string]any) (any, error) {
		return nil, nil
	}, func(o *Options) { o.Schema = numberSchema() })

	require.NoError(t, sum.Validate(map[string]any{"a": 1, "b": 2}))

	err := sum.Validate(map[string]any{"a": "not-a-number", "b": 2})
	require.Error(t, err)
	assert.Equal(t, CodeValidation, ErrorCode(err))

	err = sum.Validate(map[string]any{"a": 1})
	require.Error(t, err)
	assert.Equal(t, CodeValidation, ErrorCode(err))
}

func TestFunctionTool_InvocationLimit(t *testing.T) {
	tl := New("once", "Single use", func(_ context.Context, _ map[string]any) (any, error) {
		return "ok", nil
	}, func(o *Options) { o.MaxInvocations = 1 })

	_, err := tl.Invoke(context.Background(), nil)
	require.NoError(t, err)

	_, err = tl.Invoke(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, CodeInvocationLimit, ErrorCode(err))
	assert.Equal(t, 1, tl.Invocations())
}

func TestFunctionTool_ErrorLimit(t *testing.T) {
	boom := errors.New("boom")
	tl := New("flaky", "Always fails", func(_ context.Context, _ map[string]any) (any, error) {
		return nil, boom
	}, func(o *Options) { o.MaxInvocationErrors = 2 })

	for i := 0; i < 2; i++ {
		_, err := tl.Invoke(context.Background(), nil)
		require.Error(t, err)
		assert.Equal(t, CodeExecution, ErrorCode(err))
	}

	_, err := tl.Invoke(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, CodeErrorLimit, ErrorCode(err))
	assert.Equal(t, 2, tl.Invocations())
	assert.Equal(t, 2, tl.InvocationErrors())
}

func TestFunctionTool_DeclarationOnly(t *testing.T) {
	decl := Declared("external", "Handled by the embedding app", numberSchema())

	assert.False(t, decl.IsExecutable())
	assert.False(t, CanInvoke(decl))

	_, err := decl.Invoke(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, CodeDeclarationOnly, ErrorCode(err))
}

func TestFunctionTool_PreservesCustomToolError(t *testing.T) {
	custom := &ToolError{Tool: "picky", Code: "RATE_LIMITED", Message: "slow down"}
	tl := New("picky", "Returns custom errors", func(_ context.Context, _ map[string]any) (any, error) {
		return nil, custom
	})

	_, err := tl.Invoke(context.Background(), nil)
	require.Error(t, err)
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "RATE_LIMITED", toolErr.Code)
}

func TestFunctionTool_ApprovalMode(t *testing.T) {
	gated := New("dangerous", "Needs sign-off", func(_ context.Context, _ map[string]any) (any, error) {
		return "done", nil
	}, func(o *Options) { o.ApprovalMode = ApprovalAlways })

	assert.True(t, RequiresApproval(gated))
	assert.False(t, RequiresApproval(New("plain", "No gate", nil)))
}

func TestFunctionTool_ConcurrentCountersConsistent(t *testing.T) {
	tl := New("counted", "Concurrency safe", func(_ context.Context, _ map[string]any) (any, error) {
		return nil, nil
	}, func(o *Options) { o.MaxInvocations = 10 })

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = tl.Invoke(context.Background(), nil)
		}()
	}
	wg.Wait()
	assert.Equal(t, 10, tl.Invocations())
}

// -------------------- Typed Tool Tests --------------------

type weatherArgs struct {
	Location string `json:"location" description:"City name"`
	Unit     string `json:"unit,omitempty" enum:"celsius,fahrenheit"`
}

func TestNewTyped_SchemaAndDecoding(t *testing.T) {
	var got weatherArgs
	weather, err := NewTyped("get_weather", "Look up current weather",
		func(_ context.Context, args weatherArgs) (any, error) {
			got = args
			return "sunny", nil
		})
	require.NoError(t, err)

	schema := weather.InputSchema()
	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "location")
	assert.Contains(t, props, "unit")
	loc, ok := props["location"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "City name", loc["description"])
	unit, ok := props["unit"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []any{"celsius", "fahrenheit"}, unit["enum"])

	result, err := weather.Invoke(context.Background(), map[string]any{"location": "Seattle", "unit": "celsius"})
	require.NoError(t, err)
	assert.Equal(t, "sunny", result)
	assert.Equal(t, weatherArgs{Location: "Seattle", Unit: "celsius"}, got)
}

func TestNewTyped_ValidateEnforcesTypes(t *testing.T) {
	weather, err := NewTyped("get_weather", "Look up current weather",
		func(_ context.Context, args weatherArgs) (any, error) { return nil, nil })
	require.NoError(t, err)

	require.NoError(t, weather.Validate(map[string]any{"location": "Seattle"}))
	assert.Error(t, weather.Validate(map[string]any{"location": 42}))
}
