package toolserver

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"qualermcp/internal/apperr"
	"qualermcp/internal/metrics"
	"qualermcp/internal/model"
	"qualermcp/internal/service"
	serviceMocks "qualermcp/internal/service/mocks"
)

func ptr[T any](v T) *T { return &v }

// connect starts a Server over in-memory transports and returns a client session.
func connect(t *testing.T, svc service.GatewayService, opts ...Option) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	srv := New(svc, "test", opts...)
	clientTransport, serverTransport := mcp.NewInMemoryTransports()

	ss, err := srv.MCP().Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

func callTool(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	return res
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return tc.Text
}

func TestServer_ListsToolsAndTemplates(t *testing.T) {
	cs := connect(t, new(serviceMocks.MockGatewayService))
	ctx := context.Background()

	tools, err := cs.ListTools(ctx, nil)
	require.NoError(t, err)
	var names []string
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
		assert.NotEmpty(t, tool.Description, tool.Name)
	}
	assert.ElementsMatch(t, []string{
		ToolGetServiceOrder,
		ToolSearchServiceOrders,
		ToolGetAsset,
		ToolSearchAssets,
		ToolUploadDocument,
		ToolListDocuments,
	}, names)

	templates, err := cs.ListResourceTemplates(ctx, nil)
	require.NoError(t, err)
	var uris []string
	for _, tmpl := range templates.ResourceTemplates {
		uris = append(uris, tmpl.URITemplate)
	}
	assert.ElementsMatch(t, []string{"entity://service-order/{id}", "entity://asset/{id}"}, uris)
}

func TestTool_GetServiceOrder(t *testing.T) {
	t.Run("returns the normalized record", func(t *testing.T) {
		svc := new(serviceMocks.MockGatewayService)
		svc.On("GetServiceOrder", mock.Anything, int64(1188722)).
			Return(&model.ServiceOrder{ID: 1188722, Number: "SO-1188722", Status: ptr("Open")}, nil)

		res := callTool(t, connect(t, svc), ToolGetServiceOrder, map[string]any{"so_id": 1188722})

		assert.False(t, res.IsError)
		var got model.ServiceOrder
		require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &got))
		assert.Equal(t, int64(1188722), got.ID)
		assert.Equal(t, "SO-1188722", got.Number)
		assert.Equal(t, "Open", *got.Status)
		svc.AssertExpectations(t)
	})

	t.Run("not found surfaces as a tool error", func(t *testing.T) {
		svc := new(serviceMocks.MockGatewayService)
		svc.On("GetServiceOrder", mock.Anything, int64(42)).
			Return(nil, apperr.NotFound(string(model.KindServiceOrder), 42))

		res := callTool(t, connect(t, svc), ToolGetServiceOrder, map[string]any{"so_id": 42})

		assert.True(t, res.IsError)
		assert.Contains(t, textOf(t, res), "NotFound")
		assert.Contains(t, textOf(t, res), "service order 42 not found")
	})

	t.Run("upstream error keeps status and body", func(t *testing.T) {
		svc := new(serviceMocks.MockGatewayService)
		svc.On("GetServiceOrder", mock.Anything, int64(7)).
			Return(nil, apperr.Upstream(503, "maintenance"))

		res := callTool(t, connect(t, svc), ToolGetServiceOrder, map[string]any{"so_id": 7})

		assert.True(t, res.IsError)
		assert.Contains(t, textOf(t, res), "API error: 503 - maintenance")
	})
}

func TestTool_SearchAssets_PassesQuery(t *testing.T) {
	svc := new(serviceMocks.MockGatewayService)
	total := 3
	svc.On("SearchAssets", mock.Anything, service.AssetQuery{
		Query:      ptr("torque"),
		Limit:      ptr(2),
		ServerSide: ptr(false),
	}).Return(&model.PaginatedResult[model.Asset]{
		Items:      []model.Asset{{ID: 1, Name: "Torque wrench"}, {ID: 3, Name: "Torque driver"}},
		TotalCount: &total,
		TotalMode:  model.TotalFiltered,
	}, nil)

	res := callTool(t, connect(t, svc), ToolSearchAssets, map[string]any{
		"query":       "torque",
		"limit":       2,
		"server_side": false,
	})

	require.False(t, res.IsError, textOf(t, res))
	var got model.PaginatedResult[model.Asset]
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &got))
	assert.Len(t, got.Items, 2)
	assert.Equal(t, 3, *got.TotalCount)
	assert.Equal(t, model.TotalFiltered, got.TotalMode)
	assert.Nil(t, got.NextCursor)
	svc.AssertExpectations(t)
}

func TestTool_SearchServiceOrders_InvalidLimit(t *testing.T) {
	svc := new(serviceMocks.MockGatewayService)
	svc.On("SearchServiceOrders", mock.Anything, service.ServiceOrderQuery{Limit: ptr(500)}).
		Return(nil, apperr.InvalidArgument("limit must be between 1 and 100, got 500"))

	res := callTool(t, connect(t, svc), ToolSearchServiceOrders, map[string]any{"limit": 500})

	assert.True(t, res.IsError)
	assert.Contains(t, textOf(t, res), "InvalidArgument")
}

func TestTool_UploadDocument_FailureIsNotToolError(t *testing.T) {
	svc := new(serviceMocks.MockGatewayService)
	svc.On("UploadDocument", mock.Anything, int64(10), "cert.pdf", "%%%").
		Return(&model.UploadResult{Success: false, Message: "Invalid base64 encoding: illegal base64 data at input byte 0"}, nil)

	res := callTool(t, connect(t, svc), ToolUploadDocument, map[string]any{
		"so_id":          10,
		"filename":       "cert.pdf",
		"content_base64": "%%%",
	})

	assert.False(t, res.IsError)
	var got model.UploadResult
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &got))
	assert.False(t, got.Success)
	assert.Contains(t, got.Message, "Invalid base64 encoding")
}

func TestTool_ListDocuments(t *testing.T) {
	svc := new(serviceMocks.MockGatewayService)
	svc.On("ListDocuments", mock.Anything, int64(12)).Return(&model.DocumentList{
		ServiceOrderID: 12,
		Documents: []model.Document{
			{ID: 2, ServiceOrderID: 12, Filename: "b.pdf"},
			{ID: 1, ServiceOrderID: 12, Filename: "a.pdf"},
		},
	}, nil)

	res := callTool(t, connect(t, svc), ToolListDocuments, map[string]any{"so_id": 12})

	require.False(t, res.IsError)
	var got model.DocumentList
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &got))
	require.Len(t, got.Documents, 2)
	assert.Equal(t, int64(2), got.Documents[0].ID)
	assert.Equal(t, int64(12), got.ServiceOrderID)
}

func TestTool_RecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)

	svc := new(serviceMocks.MockGatewayService)
	svc.On("GetAsset", mock.Anything, int64(5)).Return(&model.Asset{ID: 5, Name: "Caliper"}, nil)
	svc.On("GetAsset", mock.Anything, int64(6)).Return(nil, apperr.NotFound(string(model.KindAsset), 6))

	cs := connect(t, svc, WithMetrics(m))
	callTool(t, cs, ToolGetAsset, map[string]any{"asset_id": 5})
	callTool(t, cs, ToolGetAsset, map[string]any{"asset_id": 6})

	n, err := testutil.GatherAndCount(reg, "mcp_tool_calls_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestResource_ServiceOrder(t *testing.T) {
	svc := new(serviceMocks.MockGatewayService)
	svc.On("GetServiceOrder", mock.Anything, int64(42)).
		Return(&model.ServiceOrder{ID: 42, Number: "SO-42"}, nil)
	svc.On("GetServiceOrder", mock.Anything, int64(43)).
		Return(nil, apperr.NotFound(string(model.KindServiceOrder), 43))
	cs := connect(t, svc)
	ctx := context.Background()

	t.Run("renders indented json", func(t *testing.T) {
		res, err := cs.ReadResource(ctx, &mcp.ReadResourceParams{URI: "entity://service-order/42"})
		require.NoError(t, err)
		require.Len(t, res.Contents, 1)

		c := res.Contents[0]
		assert.Equal(t, "entity://service-order/42", c.URI)
		assert.Equal(t, "application/json", c.MIMEType)
		assert.Contains(t, c.Text, "\n  \"number\": \"SO-42\"")
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		_, err := cs.ReadResource(ctx, &mcp.ReadResourceParams{URI: "entity://service-order/43"})
		assert.Error(t, err)
	})

	t.Run("non-numeric id is not found", func(t *testing.T) {
		_, err := cs.ReadResource(ctx, &mcp.ReadResourceParams{URI: "entity://service-order/abc"})
		assert.Error(t, err)
	})
}

func TestResource_Asset(t *testing.T) {
	svc := new(serviceMocks.MockGatewayService)
	svc.On("GetAsset", mock.Anything, int64(31)).
		Return(&model.Asset{ID: 31, Name: "Caliper", SerialNumber: ptr("C-31")}, nil)

	res, err := connect(t, svc).ReadResource(context.Background(), &mcp.ReadResourceParams{URI: "entity://asset/31"})
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)

	var got model.Asset
	require.NoError(t, json.Unmarshal([]byte(res.Contents[0].Text), &got))
	assert.Equal(t, "C-31", *got.SerialNumber)
}
