package normalize

import (
	"qualermcp/internal/apperr"
	"qualermcp/internal/model"
)

var (
	itemsAliases  = []string{"items", "Items", "data", "Data", "results", "documents", "Documents"}
	cursorAliases = []string{"next_cursor", "nextCursor", "NextCursor"}
	totalAliases  = []string{"total_count", "totalCount", "TotalCount", "total"}
)

// RawPage is an upstream list response with its envelope unwrapped but its
// items not yet normalized.
type RawPage struct {
	Items      []any
	NextCursor *string
	Total      *int
}

// Page unwraps a list response. Endpoints answer either with a bare JSON
// array or with an object carrying the items plus optional cursor and total
// under one of several spellings.
func Page(kind model.Kind, raw any) (RawPage, error) {
	switch v := raw.(type) {
	case []any:
		return RawPage{Items: v}, nil
	case []map[string]any:
		items := make([]any, len(v))
		for i := range v {
			items[i] = v[i]
		}
		return RawPage{Items: items}, nil
	}

	m, err := ToMap(kind, raw)
	if err != nil {
		return RawPage{}, err
	}
	var page RawPage
	if v, ok := lookup(m, itemsAliases); ok {
		items, ok := v.([]any)
		if !ok {
			return RawPage{}, &apperr.Error{Kind: apperr.KindSchema, Resource: string(kind), Msg: "list response items are not an array"}
		}
		page.Items = items
	}
	if s, ok := stringField(m, cursorAliases); ok && s != "" {
		page.NextCursor = &s
	}
	if n, ok := int64Field(m, totalAliases); ok {
		t := int(n)
		page.Total = &t
	}
	return page, nil
}
