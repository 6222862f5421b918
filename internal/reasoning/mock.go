package reasoning

import "context"

// MockGenerator is a scripted Generator for tests.
type MockGenerator struct {
	Response   string
	Err        error
	Calls      int
	LastPrompt string
}

func (m *MockGenerator) Generate(_ context.Context, prompt string) (string, error) {
	m.Calls++
	m.LastPrompt = prompt
	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}
