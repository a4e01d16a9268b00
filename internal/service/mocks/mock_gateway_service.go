package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"qualermcp/internal/model"
	"qualermcp/internal/service"
)

type MockGatewayService struct {
	mock.Mock
}

func (m *MockGatewayService) GetServiceOrder(ctx context.Context, id int64) (*model.ServiceOrder, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ServiceOrder), args.Error(1)
}

func (m *MockGatewayService) SearchServiceOrders(ctx context.Context, q service.ServiceOrderQuery) (*model.PaginatedResult[model.ServiceOrder], error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PaginatedResult[model.ServiceOrder]), args.Error(1)
}

func (m *MockGatewayService) GetAsset(ctx context.Context, id int64) (*model.Asset, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Asset), args.Error(1)
}

func (m *MockGatewayService) SearchAssets(ctx context.Context, q service.AssetQuery) (*model.PaginatedResult[model.Asset], error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PaginatedResult[model.Asset]), args.Error(1)
}

func (m *MockGatewayService) UploadDocument(ctx context.Context, soID int64, filename, contentBase64 string) (*model.UploadResult, error) {
	args := m.Called(ctx, soID, filename, contentBase64)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UploadResult), args.Error(1)
}

func (m *MockGatewayService) ListDocuments(ctx context.Context, soID int64) (*model.DocumentList, error) {
	args := m.Called(ctx, soID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DocumentList), args.Error(1)
}
