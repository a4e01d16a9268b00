package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"qualermcp/internal/apperr"
	"qualermcp/internal/model"
	"qualermcp/internal/normalize"
	"qualermcp/internal/upstream"
)

// ServiceOrderQuery filters a service order search. Nil fields are not applied.
type ServiceOrderQuery struct {
	Status           *string
	ClientCompanyID  *int64
	OrderNumber      *string
	AssignedEmployee *string
	Limit            *int
	Cursor           *string
}

// AssetQuery filters an asset search. ServerSide defaults to true.
type AssetQuery struct {
	Query           *string
	ClientCompanyID *int64
	Limit           *int
	Cursor          *string
	ServerSide      *bool
}

// GatewayService defines the operations exposed as agent tools.
type GatewayService interface {
	// GetServiceOrder fetches one service order; a missing order is NotFound.
	GetServiceOrder(ctx context.Context, id int64) (*model.ServiceOrder, error)

	// SearchServiceOrders filters server-side when upstream supports every
	// filter given and falls back to a local scan otherwise.
	SearchServiceOrders(ctx context.Context, q ServiceOrderQuery) (*model.PaginatedResult[model.ServiceOrder], error)

	// GetAsset fetches one asset; a missing asset is NotFound.
	GetAsset(ctx context.Context, id int64) (*model.Asset, error)

	// SearchAssets runs a free-text search over name, serial number, model and manufacturer.
	SearchAssets(ctx context.Context, q AssetQuery) (*model.PaginatedResult[model.Asset], error)

	// UploadDocument attaches a base64-encoded file to a service order.
	// Failures are reported in the result; the error is reserved for NotInitialized.
	UploadDocument(ctx context.Context, soID int64, filename, contentBase64 string) (*model.UploadResult, error)

	// ListDocuments lists the documents attached to a service order, in upstream order.
	ListDocuments(ctx context.Context, soID int64) (*model.DocumentList, error)
}

const (
	serviceOrdersPath = "/api/v1/service-orders"
	assetsPath        = "/api/v1/assets"
	assetSearchPath   = "/api/v1/assets/search"
)

const (
	filterStatus   = "status"
	filterCompany  = "client_company_id"
	filterNumber   = "order_number"
	filterEmployee = "assigned_employee"
	filterFreeText = "query"
)

var serviceOrderSpec = entitySpec[model.ServiceOrder]{
	kind:       model.KindServiceOrder,
	searchPath: serviceOrdersPath,
	listPath:   serviceOrdersPath,
	serverParams: map[string]string{
		filterStatus:  "status",
		filterCompany: "client_company_id",
	},
	fields: map[string]func(model.ServiceOrder) *string{
		filterStatus:   func(so model.ServiceOrder) *string { return so.Status },
		filterCompany:  func(so model.ServiceOrder) *string { return formatID(so.ClientCompanyID) },
		filterNumber:   func(so model.ServiceOrder) *string { return &so.Number },
		filterEmployee: func(so model.ServiceOrder) *string { return so.AssignedEmployee },
	},
	searchable: func(so model.ServiceOrder) []*string {
		return []*string{&so.Number, so.ClientCompanyName, so.Status}
	},
	normalize: normalize.ServiceOrder,
}

var assetSpec = entitySpec[model.Asset]{
	kind:       model.KindAsset,
	searchPath: assetSearchPath,
	listPath:   assetsPath,
	serverParams: map[string]string{
		filterFreeText: "q",
		filterCompany:  "client_company_id",
	},
	fields: map[string]func(model.Asset) *string{
		filterCompany: func(a model.Asset) *string { return formatID(a.ClientCompanyID) },
	},
	searchable: func(a model.Asset) []*string {
		return []*string{&a.Name, a.SerialNumber, a.Model, a.Manufacturer}
	},
	normalize: normalize.Asset,
}

// gatewayService is the concrete implementation of GatewayService.
type gatewayService struct {
	api upstream.Requester
}

// NewGatewayService constructs a GatewayService on top of the shared upstream client.
func NewGatewayService(api upstream.Requester) GatewayService {
	return &gatewayService{api: api}
}

func (s *gatewayService) client() (upstream.Requester, error) {
	if s.api == nil {
		return nil, apperr.NotInitialized("Qualer client")
	}
	return s.api, nil
}

func (s *gatewayService) GetServiceOrder(ctx context.Context, id int64) (*model.ServiceOrder, error) {
	if id <= 0 {
		return nil, apperr.InvalidArgument("so_id must be a positive integer, got %d", id)
	}
	api, err := s.client()
	if err != nil {
		return nil, err
	}
	raw, err := api.Get(ctx, fmt.Sprintf("%s/%d", serviceOrdersPath, id), nil)
	if err != nil {
		return nil, apperr.ForResource(err, string(model.KindServiceOrder), id)
	}
	so, err := normalize.ServiceOrder(raw)
	if err != nil {
		return nil, err
	}
	return &so, nil
}

func (s *gatewayService) SearchServiceOrders(ctx context.Context, q ServiceOrderQuery) (*model.PaginatedResult[model.ServiceOrder], error) {
	limit, err := resolveLimit(q.Limit)
	if err != nil {
		return nil, err
	}
	var filters []filter
	filters = textFilter(filters, filterStatus, q.Status, matchEqual)
	if filters, err = idFilter(filters, filterCompany, q.ClientCompanyID); err != nil {
		return nil, err
	}
	filters = textFilter(filters, filterNumber, q.OrderNumber, matchContains)
	filters = textFilter(filters, filterEmployee, q.AssignedEmployee, matchContains)

	api, err := s.client()
	if err != nil {
		return nil, err
	}
	return search(ctx, api, serviceOrderSpec, searchRequest{
		filters:    filters,
		limit:      limit,
		cursor:     deref(q.Cursor),
		serverSide: true,
	})
}

func (s *gatewayService) GetAsset(ctx context.Context, id int64) (*model.Asset, error) {
	if id <= 0 {
		return nil, apperr.InvalidArgument("asset_id must be a positive integer, got %d", id)
	}
	api, err := s.client()
	if err != nil {
		return nil, err
	}
	raw, err := api.Get(ctx, fmt.Sprintf("%s/%d", assetsPath, id), nil)
	if err != nil {
		return nil, apperr.ForResource(err, string(model.KindAsset), id)
	}
	a, err := normalize.Asset(raw)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *gatewayService) SearchAssets(ctx context.Context, q AssetQuery) (*model.PaginatedResult[model.Asset], error) {
	limit, err := resolveLimit(q.Limit)
	if err != nil {
		return nil, err
	}
	var filters []filter
	filters = textFilter(filters, filterFreeText, q.Query, matchText)
	if filters, err = idFilter(filters, filterCompany, q.ClientCompanyID); err != nil {
		return nil, err
	}

	api, err := s.client()
	if err != nil {
		return nil, err
	}
	serverSide := true
	if q.ServerSide != nil {
		serverSide = *q.ServerSide
	}
	return search(ctx, api, assetSpec, searchRequest{
		filters:    filters,
		limit:      limit,
		cursor:     deref(q.Cursor),
		serverSide: serverSide,
	})
}

// uploadRequest is the body of POST /api/v1/service-orders/{id}/documents.
type uploadRequest struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

func (s *gatewayService) UploadDocument(ctx context.Context, soID int64, filename, contentBase64 string) (*model.UploadResult, error) {
	api, err := s.client()
	if err != nil {
		return nil, err
	}
	if soID <= 0 {
		return failedUpload(apperr.InvalidArgument("so_id must be a positive integer, got %d", soID)), nil
	}
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return failedUpload(apperr.InvalidArgument("filename is required")), nil
	}
	content, err := base64.StdEncoding.DecodeString(contentBase64)
	if err != nil {
		return failedUpload(apperr.InvalidArgument("Invalid base64 encoding: %v", err)), nil
	}

	raw, err := api.Post(ctx, fmt.Sprintf("%s/%d/documents", serviceOrdersPath, soID), uploadRequest{
		Filename: filename,
		Content:  contentBase64,
	})
	if err != nil {
		err = apperr.ForResource(err, string(model.KindServiceOrder), soID)
		return &model.UploadResult{Success: false, Message: "Upload failed: " + err.Error()}, nil
	}
	return &model.UploadResult{
		Success:    true,
		DocumentID: normalize.DocumentID(raw),
		Message:    fmt.Sprintf("Uploaded %s (%d bytes)", filename, len(content)),
	}, nil
}

func failedUpload(err error) *model.UploadResult {
	return &model.UploadResult{Success: false, Message: err.Error()}
}

func (s *gatewayService) ListDocuments(ctx context.Context, soID int64) (*model.DocumentList, error) {
	if soID <= 0 {
		return nil, apperr.InvalidArgument("so_id must be a positive integer, got %d", soID)
	}
	api, err := s.client()
	if err != nil {
		return nil, err
	}
	raw, err := api.Get(ctx, fmt.Sprintf("%s/%d/documents", serviceOrdersPath, soID), nil)
	if err != nil {
		return nil, apperr.ForResource(err, string(model.KindServiceOrder), soID)
	}
	page, err := normalize.Page(model.KindDocument, raw)
	if err != nil {
		return nil, err
	}
	docs, err := normalize.Records(page.Items, func(v any) (model.Document, error) {
		return normalize.Document(soID, v)
	})
	if err != nil {
		return nil, err
	}
	return &model.DocumentList{ServiceOrderID: soID, Documents: docs}, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
