package llm

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/homework-assistant/pkg/anthropic"
	"github.com/sells-group/homework-assistant/pkg/nvidia"
)

type mockNVIDIA struct {
	mock.Mock
}

func (m *mockNVIDIA) Complete(ctx context.Context, req nvidia.CompletionRequest) (*nvidia.CompletionResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*nvidia.CompletionResponse), args.Error(1)
}

func (m *mockNVIDIA) Embed(ctx context.Context, model string, inputs []string) ([][]float32, error) {
	args := m.Called(ctx, model, inputs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

type mockAnthropic struct {
	mock.Mock
}

func (m *mockAnthropic) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}
