package reasoning

import "context"

// MockClient is a test double for the reasoning Client interface.
type MockClient struct {
	Response *Response
	Err      error
	Delay    func(ctx context.Context) error // optional, simulates a slow provider
	Calls    []string                        // records prompts sent
}

// Explain records the call and returns the mock response.
func (m *MockClient) Explain(ctx context.Context, prompt string) (*Response, error) {
	m.Calls = append(m.Calls, prompt)
	if m.Delay != nil {
		if err := m.Delay(ctx); err != nil {
			return nil, err
		}
	}
	return m.Response, m.Err
}
