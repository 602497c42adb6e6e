package model

import (
	"context"
	"fmt"
	"sync"

	"github.com/callweave/callweave/core"
)

// Mock is a lightweight in-memory Caller useful for tests and examples. It
// replays enqueued responses in order and records the messages and options of
// every call; the streaming path decomposes each response into per-message
// fragments so assembly behaves like a real provider stream.
type Mock struct {
	mu        sync.Mutex
	info      Info
	responses []*core.Response
	calls     [][]core.Message
	options   []*Options
}

// NewMock constructs a Mock with basic tool support enabled.
func NewMock() *Mock {
	return &Mock{info: Info{Name: "mock", Provider: "mock", SupportsTools: true}}
}

// Enqueue appends a canned response replayed by the next Call/Stream.
func (m *Mock) Enqueue(resp *core.Response) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, resp)
	return m
}

// EnqueueText is shorthand for a plain assistant text response.
func (m *Mock) EnqueueText(text string) *Mock {
	return m.Enqueue(&core.Response{
		Messages:     []core.Message{core.AssistantMessage(text)},
		FinishReason: core.FinishStop,
	})
}

// CallCount returns how many rounds were requested so far.
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Calls returns the recorded message lists, one entry per round.
func (m *Mock) Calls() [][]core.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]core.Message(nil), m.calls...)
}

// OptionsAt returns the options recorded for round i.
func (m *Mock) OptionsAt(i int) *Options {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i < 0 || i >= len(m.options) {
		return nil
	}
	return m.options[i]
}

func (m *Mock) next(messages []core.Message, opts *Options) (*core.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, core.CloneMessages(messages))
	m.options = append(m.options, opts.Clone())
	if len(m.responses) == 0 {
		return nil, fmt.Errorf("mock: no response enqueued for call %d", len(m.calls))
	}
	resp := m.responses[0]
	m.responses = m.responses[1:]
	// Hand out a copy so orchestration-side mutation cannot leak between rounds.
	cp := *resp
	cp.Messages = core.CloneMessages(resp.Messages)
	return &cp, nil
}

// Call implements Caller.
func (m *Mock) Call(ctx context.Context, messages []core.Message, opts *Options) (*core.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.next(messages, opts)
}

// Stream implements Caller by replaying the next response as fragments.
func (m *Mock) Stream(ctx context.Context, messages []core.Message, opts *Options) (<-chan core.ResponseUpdate, <-chan error) {
	out := make(chan core.ResponseUpdate, 16)
	errCh := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errCh)
		resp, err := m.next(messages, opts)
		if err != nil {
			errCh <- err
			return
		}
		for _, u := range resp.Updates() {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case out <- u:
			}
		}
	}()
	return out, errCh
}

// Info implements Caller.
func (m *Mock) Info() Info { return m.info }
