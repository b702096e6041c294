package lighthouse

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockRunner is a mock implementation of the Runner interface for testing.
type MockRunner struct {
	mock.Mock
}

// Run is the mock implementation of the Run method.
func (m *MockRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	callArgs := m.Called(ctx, name, args)
	var stdout, stderr []byte
	if v := callArgs.Get(0); v != nil {
		stdout = v.([]byte)
	}
	if v := callArgs.Get(1); v != nil {
		stderr = v.([]byte)
	}
	return stdout, stderr, callArgs.Error(2) //nolint:wrapcheck
}
