package mocks

import (
	"context"
	"net/url"

	"github.com/stretchr/testify/mock"
)

type MockRequester struct {
	mock.Mock
}

func (m *MockRequester) Get(ctx context.Context, path string, query url.Values) (any, error) {
	args := m.Called(ctx, path, query)
	return args.Get(0), args.Error(1)
}

func (m *MockRequester) Post(ctx context.Context, path string, body any) (any, error) {
	args := m.Called(ctx, path, body)
	return args.Get(0), args.Error(1)
}
