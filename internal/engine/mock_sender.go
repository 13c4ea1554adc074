package engine

import (
	"context"
	"strings"
	"sync"

	"github.com/Veraticus/the-glossary-must-flow/internal/llm"
)

// MockSender is a test implementation of llm.Sender. It replays scripted
// responses in order and records every request.
type MockSender struct {
	// Respond, when set, answers requests once the script is exhausted.
	Respond func(call MockCall) llm.Response
	script  []llm.Response
	calls   []MockCall
	resets  int
	mu      sync.Mutex
}

// MockCall records one Send.
type MockCall struct {
	Kind     llm.TaskKind
	System   string
	User     string
	Messages []llm.Message
}

// Lines returns the user lines of the request.
func (c MockCall) Lines() []string {
	if c.User == "" {
		return nil
	}
	return strings.Split(c.User, "\n")
}

// NewMockSender creates a mock that replays script before falling back to
// Respond. With neither, every request is skipped.
func NewMockSender(script ...llm.Response) *MockSender {
	return &MockSender{script: script}
}

// Send implements llm.Sender.
func (m *MockSender) Send(_ context.Context, messages []llm.Message, kind llm.TaskKind) llm.Response {
	call := MockCall{Kind: kind, Messages: append([]llm.Message(nil), messages...)}
	for _, msg := range messages {
		switch msg.Role {
		case llm.RoleSystem:
			call.System = msg.Content
		case llm.RoleUser:
			call.User = msg.Content
		}
	}

	m.mu.Lock()
	m.calls = append(m.calls, call)
	if len(m.script) > 0 {
		resp := m.script[0]
		m.script = m.script[1:]
		m.mu.Unlock()
		return resp
	}
	respond := m.Respond
	m.mu.Unlock()

	if respond == nil {
		return llm.Response{Skip: true}
	}
	return respond(call)
}

// Reset implements the engine's per-run reset hook.
func (m *MockSender) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets++
}

// Calls returns a copy of all recorded calls.
func (m *MockSender) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	calls := make([]MockCall, len(m.calls))
	copy(calls, m.calls)
	return calls
}

// CallCount returns the number of Send calls.
func (m *MockSender) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Resets returns how many times Reset was called.
func (m *MockSender) Resets() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resets
}
