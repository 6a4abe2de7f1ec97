package ssh

import "context"

// MockExecutor is a test double that records commands and returns configured results.
type MockExecutor struct {
	ExecFunc func(ctx context.Context, command string) (*ExecResult, error)
	Commands []string
	Closed   bool
}

// Exec records the command and delegates to ExecFunc.
func (m *MockExecutor) Exec(ctx context.Context, command string) (*ExecResult, error) {
	m.Commands = append(m.Commands, command)
	if m.ExecFunc != nil {
		return m.ExecFunc(ctx, command)
	}
	return &ExecResult{}, nil
}

// Close marks the mock closed.
func (m *MockExecutor) Close() error {
	m.Closed = true
	return nil
}
