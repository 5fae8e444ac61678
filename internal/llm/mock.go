package llm

import (
	"context"
	"sync"
)

// MockClient permite tests sin llamar a un LLM real. Si Responses no esta vacío,
// devuelve una respuesta por llamada en orden y luego repite la última.
type MockClient struct {
	Response  Completion
	Responses []Completion
	Err       error

	mu       sync.Mutex
	Requests []CompletionRequest
}

func (m *MockClient) Complete(ctx context.Context, req CompletionRequest) (Completion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests = append(m.Requests, req)
	if m.Err != nil {
		return Completion{}, m.Err
	}
	if n := len(m.Responses); n > 0 {
		i := len(m.Requests) - 1
		if i >= n {
			i = n - 1
		}
		return m.Responses[i], nil
	}
	return m.Response, nil
}

// Calls devuelve una copia de las requests recibidas.
func (m *MockClient) Calls() []CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]CompletionRequest(nil), m.Requests...)
}

var _ Gateway = (*MockClient)(nil)
