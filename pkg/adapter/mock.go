package adapter

import (
	"context"
	"fmt"
	"sync"
)

// MockClient is a scriptable Client for local runs and tests. Responses are
// keyed by qualified model identifier; queued responses are consumed FIFO
// before fixed responses, so one model (e.g. a judge) can answer a sequence
// of differently shaped calls deterministically.
type MockClient struct {
	mu        sync.Mutex
	responses map[string]string
	errors    map[string]error
	queues    map[string][]string
	script    func(qualifiedModel string, messages []Message, opts Options) (string, error)

	Calls []MockCall
}

// MockCall records one Complete invocation.
type MockCall struct {
	Model    string
	Messages []Message
	Opts     Options
}

// NewMockClient creates an empty mock client.
func NewMockClient() *MockClient {
	return &MockClient{
		responses: make(map[string]string),
		errors:    make(map[string]error),
		queues:    make(map[string][]string),
	}
}

// Respond sets a fixed response for a qualified model.
func (m *MockClient) Respond(qualifiedModel, response string) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[qualifiedModel] = response
	return m
}

// Fail makes calls to a qualified model return the given error.
func (m *MockClient) Fail(qualifiedModel string, err error) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[qualifiedModel] = err
	return m
}

// Queue appends responses consumed one per call for a qualified model.
func (m *MockClient) Queue(qualifiedModel string, responses ...string) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queues[qualifiedModel] = append(m.queues[qualifiedModel], responses...)
	return m
}

// Script installs a function consulted when no queue, error, or fixed
// response matches.
func (m *MockClient) Script(fn func(qualifiedModel string, messages []Message, opts Options) (string, error)) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = fn
	return m
}

// CallsTo returns how many calls were made to a qualified model.
func (m *MockClient) CallsTo(qualifiedModel string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, call := range m.Calls {
		if call.Model == qualifiedModel {
			n++
		}
	}
	return n
}

// Complete returns the scripted response for the qualified model.
func (m *MockClient) Complete(_ context.Context, qualifiedModel string, messages []Message, opts Options) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, MockCall{Model: qualifiedModel, Messages: messages, Opts: opts})

	if err, ok := m.errors[qualifiedModel]; ok {
		return "", err
	}
	if queue := m.queues[qualifiedModel]; len(queue) > 0 {
		response := queue[0]
		m.queues[qualifiedModel] = queue[1:]
		return response, nil
	}
	if response, ok := m.responses[qualifiedModel]; ok {
		return response, nil
	}
	if m.script != nil {
		return m.script(qualifiedModel, messages, opts)
	}
	return fmt.Sprintf("mock response: %s", qualifiedModel), nil
}
