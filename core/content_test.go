package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -------------------- FunctionCallContent Merge Tests --------------------

func TestFunctionCallContent_MergeStringArguments(t *testing.T) {
	a := FunctionCallContent{CallID: "call-1", Name: "get_weather", Arguments: `{"loc`}
	b := FunctionCallContent{Arguments: `ation":`}
	c := FunctionCallContent{Arguments: `"Seattle"}`}

	ab, err := a.Merge(b)
	require.NoError(t, err)
	abc, err := ab.Merge(c)
	require.NoError(t, err)

	assert.Equal(t, "call-1", abc.CallID)
	assert.Equal(t, "get_weather", abc.Name)
	assert.Equal(t, `{"location":"Seattle"}`, abc.Arguments)
}

func TestFunctionCallContent_MergeAssociative(t *testing.T) {
	a := FunctionCallContent{CallID: "call-1", Arguments: "aa"}
	b := FunctionCallContent{Arguments: "bb"}
	c := FunctionCallContent{Arguments: "cc"}

	ab, err := a.Merge(b)
	require.NoError(t, err)
	left, err := ab.Merge(c)
	require.NoError(t, err)

	bc, err := b.Merge(c)
	require.NoError(t, err)
	right, err := a.Merge(bc)
	require.NoError(t, err)

	assert.Equal(t, left, right)
}

func TestFunctionCallContent_MergeMapArguments(t *testing.T) {
	a := FunctionCallContent{CallID: "call-1", Args: map[string]any{"x": 1, "y": "old"}}
	b := FunctionCallContent{Args: map[string]any{"y": "new", "z": true}}

	merged, err := a.Merge(b)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"x": 1, "y": "new", "z": true}, merged.Args)
	// Earlier snapshot is not mutated by the merge.
	assert.Equal(t, map[string]any{"x": 1, "y": "old"}, a.Args)
}

func TestFunctionCallContent_MergeCallIDMismatch(t *testing.T) {
	a := FunctionCallContent{CallID: "call-1", Arguments: "aa"}
	b := FunctionCallContent{CallID: "call-2", Arguments: "bb"}

	assert.False(t, a.CanMerge(b))
	_, err := a.Merge(b)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCallIDMismatch)
}

func TestFunctionCallContent_MergeFillsIdentity(t *testing.T) {
	a := FunctionCallContent{Arguments: "{"}
	b := FunctionCallContent{CallID: "call-9", Name: "lookup", Arguments: "}"}

	merged, err := a.Merge(b)
	require.NoError(t, err)
	assert.Equal(t, "call-9", merged.CallID)
	assert.Equal(t, "lookup", merged.Name)
	assert.Equal(t, "{}", merged.Arguments)
}

// -------------------- ParsedArguments Tests --------------------

func TestFunctionCallContent_ParsedArguments(t *testing.T) {
	fc := FunctionCallContent{Arguments: `{"location":"Seattle","days":3}`}
	args := fc.ParsedArguments()
	assert.Equal(t, "Seattle", args["location"])
	assert.Equal(t, float64(3), args["days"])
}

func TestFunctionCallContent_ParsedArgumentsPrefersStructured(t *testing.T) {
	fc := FunctionCallContent{Arguments: `{"a":1}`, Args: map[string]any{"b": 2}}
	assert.Equal(t, map[string]any{"b": 2}, fc.ParsedArguments())
}

func TestFunctionCallContent_ParsedArgumentsRawFallback(t *testing.T) {
	fc := FunctionCallContent{Arguments: `not json at all`}
	assert.Equal(t, map[string]any{"raw": "not json at all"}, fc.ParsedArguments())

	empty := FunctionCallContent{}
	assert.Empty(t, empty.ParsedArguments())
}

// -------------------- Result Rendering Tests --------------------

func TestFunctionResultContent_Text(t *testing.T) {
	ok := FunctionResultContent{CallID: "c1", Result: "sunny"}
	assert.False(t, ok.Failed())
	assert.Equal(t, "sunny", ok.Text())

	structured := FunctionResultContent{CallID: "c2", Result: map[string]any{"temp": 21}}
	assert.JSONEq(t, `{"temp":21}`, structured.Text())

	failed := FunctionResultContent{CallID: "c3", Error: &CallError{Code: "EXECUTION_ERROR", Message: "Tool invocation failed."}}
	assert.True(t, failed.Failed())
	assert.Equal(t, "Error: Tool invocation failed.", failed.Text())

	detailed := FunctionResultContent{CallID: "c4", Error: &CallError{Message: "Tool invocation failed.", Detail: "boom"}}
	assert.Equal(t, "Error: Tool invocation failed.: boom", detailed.Text())
}

// -------------------- Approval Content Tests --------------------

func TestFunctionApprovalRequestContent_Response(t *testing.T) {
	call := FunctionCallContent{CallID: "c1", Name: "delete_file"}
	req := FunctionApprovalRequestContent{ID: NewID(), Call: call}

	approved := req.Response(true)
	assert.Equal(t, req.ID, approved.ID)
	assert.True(t, approved.Approved)
	assert.Equal(t, call, approved.Call)

	declined := req.Response(false)
	assert.False(t, declined.Approved)
}

// -------------------- Message Helper Tests --------------------

func TestMessage_Accessors(t *testing.T) {
	m := Message{Role: RoleAssistant, Contents: []Content{
		TextContent{Text: "checking "},
		FunctionCallContent{CallID: "c1", Name: "lookup"},
		TextContent{Text: "now"},
		FunctionResultContent{CallID: "c1", Result: "ok"},
	}}

	assert.Equal(t, "checking now", m.Text())
	require.Len(t, m.FunctionCalls(), 1)
	require.Len(t, m.FunctionResults(), 1)
	assert.True(t, m.HasCallID("c1"))
	assert.False(t, m.HasCallID("c2"))
}

func TestCloneMessages_Isolation(t *testing.T) {
	orig := []Message{{Role: RoleUser, Contents: []Content{TextContent{Text: "hi"}}}}
	cp := CloneMessages(orig)
	cp[0].Contents = append(cp[0].Contents, TextContent{Text: " more"})
	require.Len(t, orig[0].Contents, 1)
}
