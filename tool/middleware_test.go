package tool

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChain_OnionOrder(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next Handler) Handler {
			return func(ctx context.Context, inv *Invocation) (any, error) {
				order = append(order, name+":before")
				result, err := next(ctx, inv)
				order = append(order, name+":after")
				return result, err
			}
		}
	}
	base := func(_ context.Context, _ *Invocation) (any, error) {
		order = append(order, "base")
		return "done", nil
	}

	result, err := Chain(base, mark("outer"), mark("inner"))(context.Background(), &Invocation{Name: "t"})
	require.NoError(t, err)
	assert.Equal(t, "done", result)
	assert.Equal(t, []string{"outer:before", "inner:before", "base", "inner:after", "outer:after"}, order)
}

func TestChain_ShortCircuit(t *testing.T) {
	called := false
	base := func(_ context.Context, _ *Invocation) (any, error) {
		called = true
		return nil, nil
	}
	cached := func(next Handler) Handler {
		return func(_ context.Context, _ *Invocation) (any, error) {
			return "cached", nil
		}
	}

	result, err := Chain(base, cached)(context.Background(), &Invocation{})
	require.NoError(t, err)
	assert.Equal(t, "cached", result)
	assert.False(t, called)
}

func TestChain_TerminateFlagVisibleToCaller(t *testing.T) {
	stop := func(next Handler) Handler {
		return func(ctx context.Context, inv *Invocation) (any, error) {
			inv.Terminate = true
			return next(ctx, inv)
		}
	}
	inv := &Invocation{Name: "t"}
	_, err := Chain(func(_ context.Context, _ *Invocation) (any, error) { return nil, nil }, stop)(context.Background(), inv)
	require.NoError(t, err)
	assert.True(t, inv.Terminate)
}

// -------------------- ToolError Tests --------------------

func TestToolError_UnwrapAndCode(t *testing.T) {
	cause := errors.New("disk full")
	err := &ToolError{Tool: "writer", Code: CodeExecution, Message: "write failed", Err: cause}

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "writer")
	assert.Contains(t, err.Error(), CodeExecution)
	assert.Equal(t, CodeExecution, ErrorCode(err))
	assert.Equal(t, CodeExecution, ErrorCode(errors.New("plain")))
}
