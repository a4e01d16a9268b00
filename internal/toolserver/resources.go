package toolserver

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/go-logr/logr"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"qualermcp/internal/apperr"
)

const (
	serviceOrderURIPrefix = "entity://service-order/"
	assetURIPrefix        = "entity://asset/"
	jsonMIME              = "application/json"
)

func (s *Server) registerResources() {
	s.mcp.AddResourceTemplate(&mcp.ResourceTemplate{
		Name:        "service-order",
		Description: "Service order details as JSON.",
		URITemplate: serviceOrderURIPrefix + "{id}",
		MIMEType:    jsonMIME,
	}, entityResource(serviceOrderURIPrefix, s.svc.GetServiceOrder))

	s.mcp.AddResourceTemplate(&mcp.ResourceTemplate{
		Name:        "asset",
		Description: "Asset details as JSON.",
		URITemplate: assetURIPrefix + "{id}",
		MIMEType:    jsonMIME,
	}, entityResource(assetURIPrefix, s.svc.GetAsset))
}

// entityResource reads prefix+id through fetch and renders it as indented
// JSON. Unparseable ids and NotFound map to the protocol's not-found error.
func entityResource[T any](prefix string, fetch func(context.Context, int64) (*T, error)) mcp.ResourceHandler {
	return func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		uri := req.Params.URI
		id, err := strconv.ParseInt(strings.TrimPrefix(uri, prefix), 10, 64)
		if err != nil || id <= 0 {
			return nil, mcp.ResourceNotFoundError(uri)
		}

		v, err := fetch(ctx, id)
		if err != nil {
			if apperr.KindOf(err) == apperr.KindNotFound {
				return nil, mcp.ResourceNotFoundError(uri)
			}
			logr.FromContextOrDiscard(ctx).Error(err, "resource read failed", "kind", apperr.KindOf(err).String())
			return nil, err
		}

		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, err
		}
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{{URI: uri, MIMEType: jsonMIME, Text: string(b)}},
		}, nil
	}
}
