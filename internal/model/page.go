package model

// TotalMode tells callers how to read PaginatedResult.TotalCount.
type TotalMode string

const (
	// TotalUpstream means the upstream reported the total. Depending on the
	// endpoint it may describe a window rather than the whole collection.
	TotalUpstream TotalMode = "upstream"
	// TotalPage means no total was reported; the count is the current page size.
	TotalPage TotalMode = "page"
	// TotalFiltered means the gateway filtered the full collection locally and
	// counted every match before truncating to the limit.
	TotalFiltered TotalMode = "filtered"
)

// PaginatedResult is one window of an ordered result set.
type PaginatedResult[T any] struct {
	Items      []T       `json:"items"`
	NextCursor *string   `json:"next_cursor,omitempty" jsonschema:"opaque cursor for the next page; absent when there is none"`
	TotalCount *int      `json:"total_count,omitempty"`
	TotalMode  TotalMode `json:"total_mode" jsonschema:"upstream: total reported by the API; page: size of this page only; filtered: all local matches before truncation"`
}
