package toolserver

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"qualermcp/internal/apperr"
	"qualermcp/internal/model"
	"qualermcp/internal/service"
)

// Tool names, kept stable for agents that reference them.
const (
	ToolGetServiceOrder     = "get_service_order"
	ToolSearchServiceOrders = "search_service_orders"
	ToolGetAsset            = "get_asset"
	ToolSearchAssets        = "search_assets"
	ToolUploadDocument      = "upload_document_to_service_order"
	ToolListDocuments       = "list_service_order_documents"
)

// GetServiceOrderInput is the argument of get_service_order.
type GetServiceOrderInput struct {
	SOID int64 `json:"so_id" jsonschema:"Service order ID to retrieve"`
}

// SearchServiceOrdersInput is the argument of search_service_orders. Nil fields are not applied.
type SearchServiceOrdersInput struct {
	Status           *string `json:"status,omitempty" jsonschema:"Filter by status (e.g. Open, Closed)"`
	ClientCompanyID  *int64  `json:"client_company_id,omitempty" jsonschema:"Filter by client company ID"`
	OrderNumber      *string `json:"order_number,omitempty" jsonschema:"Case-insensitive substring of the service order number"`
	AssignedEmployee *string `json:"assigned_employee,omitempty" jsonschema:"Case-insensitive substring of the assigned employee name"`
	Limit            *int    `json:"limit,omitempty" jsonschema:"Maximum items to return (1-100), default 25"`
	Cursor           *string `json:"cursor,omitempty" jsonschema:"Pagination cursor from previous response"`
}

// GetAssetInput is the argument of get_asset.
type GetAssetInput struct {
	AssetID int64 `json:"asset_id" jsonschema:"Asset ID to retrieve"`
}

// SearchAssetsInput is the argument of search_assets. Nil fields are not applied.
type SearchAssetsInput struct {
	Query           *string `json:"query,omitempty" jsonschema:"Search query (name, serial number, model, manufacturer)"`
	ClientCompanyID *int64  `json:"client_company_id,omitempty" jsonschema:"Filter by client company ID"`
	Limit           *int    `json:"limit,omitempty" jsonschema:"Maximum items to return (1-100), default 25"`
	Cursor          *string `json:"cursor,omitempty" jsonschema:"Pagination cursor from previous response"`
	ServerSide      *bool   `json:"server_side,omitempty" jsonschema:"Use the upstream search endpoint (default true); false filters the full asset list locally"`
}

// UploadDocumentInput is the argument of upload_document_to_service_order.
type UploadDocumentInput struct {
	SOID          int64  `json:"so_id" jsonschema:"Service order ID to attach document to"`
	Filename      string `json:"filename" jsonschema:"Document filename with extension"`
	ContentBase64 string `json:"content_base64" jsonschema:"Base64-encoded file content"`
}

// ListDocumentsInput is the argument of list_service_order_documents.
type ListDocumentsInput struct {
	SOID int64 `json:"so_id" jsonschema:"Service order ID"`
}

func (s *Server) registerTools() {
	addTool(s, &mcp.Tool{
		Name: ToolGetServiceOrder,
		Description: "Fetch a single service order by its ID. Returns full details including status, " +
			"client info, and timestamps. Use this when you need current information about a specific SO.",
	}, func(ctx context.Context, in GetServiceOrderInput) (*model.ServiceOrder, error) {
		return s.svc.GetServiceOrder(ctx, in.SOID)
	})

	addTool(s, &mcp.Tool{
		Name: ToolSearchServiceOrders,
		Description: "Search service orders with optional filters and pagination. Status and client company " +
			"are filtered by the API and return a cursor for further pages. Order number or assigned employee " +
			"filters scan the full list locally and return an exact total without a cursor.",
	}, func(ctx context.Context, in SearchServiceOrdersInput) (*model.PaginatedResult[model.ServiceOrder], error) {
		return s.svc.SearchServiceOrders(ctx, service.ServiceOrderQuery{
			Status:           in.Status,
			ClientCompanyID:  in.ClientCompanyID,
			OrderNumber:      in.OrderNumber,
			AssignedEmployee: in.AssignedEmployee,
			Limit:            in.Limit,
			Cursor:           in.Cursor,
		})
	})

	addTool(s, &mcp.Tool{
		Name: ToolGetAsset,
		Description: "Fetch a single asset/equipment record by its ID. Returns full details including " +
			"serial number, model, manufacturer, and location.",
	}, func(ctx context.Context, in GetAssetInput) (*model.Asset, error) {
		return s.svc.GetAsset(ctx, in.AssetID)
	})

	addTool(s, &mcp.Tool{
		Name: ToolSearchAssets,
		Description: "Search assets with free-text query and optional filters. The query searches across " +
			"asset name, serial number, model, and manufacturer. Returns paginated results with a cursor " +
			"token for additional pages.",
	}, func(ctx context.Context, in SearchAssetsInput) (*model.PaginatedResult[model.Asset], error) {
		return s.svc.SearchAssets(ctx, service.AssetQuery{
			Query:           in.Query,
			ClientCompanyID: in.ClientCompanyID,
			Limit:           in.Limit,
			Cursor:          in.Cursor,
			ServerSide:      in.ServerSide,
		})
	})

	addTool(s, &mcp.Tool{
		Name: ToolUploadDocument,
		Description: "Upload and attach a document to a service order. The document content must be " +
			"base64-encoded. Common use cases: certificates of calibration, test reports, photos of " +
			"equipment, customer correspondence. Returns upload result with document ID on success.",
	}, func(ctx context.Context, in UploadDocumentInput) (*model.UploadResult, error) {
		return s.svc.UploadDocument(ctx, in.SOID, in.Filename, in.ContentBase64)
	})

	addTool(s, &mcp.Tool{
		Name:        ToolListDocuments,
		Description: "List all documents attached to a service order, in upstream order.",
	}, func(ctx context.Context, in ListDocumentsInput) (*model.DocumentList, error) {
		return s.svc.ListDocuments(ctx, in.SOID)
	})
}

// addTool registers call as a typed tool. Errors become tool error results
// prefixed with their kind so callers can tell NotFound from UpstreamError.
func addTool[In, Out any](s *Server, t *mcp.Tool, call func(context.Context, In) (*Out, error)) {
	mcp.AddTool(s.mcp, t, func(ctx context.Context, _ *mcp.CallToolRequest, in In) (*mcp.CallToolResult, Out, error) {
		var zero Out
		out, err := call(ctx, in)
		if err == nil && out == nil {
			err = apperr.NotInitialized(t.Name + " result")
		}
		s.metrics.ObserveTool(t.Name, toolOutcome(out, err))
		if err != nil {
			return nil, zero, fmt.Errorf("%s: %w", apperr.KindOf(err), err)
		}
		return nil, *out, nil
	})
}

func toolOutcome(out any, err error) string {
	if err != nil {
		return apperr.KindOf(err).String()
	}
	if r, ok := out.(*model.UploadResult); ok && !r.Success {
		return "rejected"
	}
	return "ok"
}
