package service

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"qualermcp/internal/apperr"
	"qualermcp/internal/model"
	"qualermcp/internal/normalize"
	"qualermcp/internal/upstream"
)

// Page size bounds for searches. A nil limit means DefaultLimit.
const (
	DefaultLimit = 25
	MinLimit     = 1
	MaxLimit     = 100
)

type matchMode int

const (
	// matchEqual compares the whole normalized value.
	matchEqual matchMode = iota
	// matchContains is a case-insensitive substring test on one field.
	matchContains
	// matchText is a case-insensitive substring test on any searchable field.
	matchText
)

// filter is one active search criterion.
type filter struct {
	name  string
	value string
	mode  matchMode
}

// entitySpec declares, per entity kind, what the upstream can filter on and
// how to filter locally when it cannot. Server capability is declared here,
// never probed at runtime.
type entitySpec[T any] struct {
	kind model.Kind
	// searchPath accepts serverParams plus limit and cursor.
	searchPath string
	// listPath returns the whole unfiltered collection.
	listPath string
	// serverParams maps a filter name to its upstream query parameter.
	serverParams map[string]string
	// fields returns the value a named filter is matched against.
	fields map[string]func(T) *string
	// searchable lists the free-text fields in match order.
	searchable func(T) []*string
	normalize  func(any) (T, error)
}

// searchRequest is a validated search.
type searchRequest struct {
	filters    []filter
	limit      int
	cursor     string
	serverSide bool
}

// serverCapable reports whether every active filter can be applied upstream.
func (s entitySpec[T]) serverCapable(filters []filter) bool {
	for _, f := range filters {
		if _, ok := s.serverParams[f.name]; !ok {
			return false
		}
	}
	return true
}

func search[T any](ctx context.Context, req upstream.Requester, spec entitySpec[T], sr searchRequest) (*model.PaginatedResult[T], error) {
	if sr.serverSide && spec.serverCapable(sr.filters) {
		return serverSearch(ctx, req, spec, sr)
	}
	return clientSearch(ctx, req, spec, sr)
}

// serverSearch forwards filters and the cursor verbatim and passes the
// upstream page through.
func serverSearch[T any](ctx context.Context, req upstream.Requester, spec entitySpec[T], sr searchRequest) (*model.PaginatedResult[T], error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(sr.limit))
	for _, f := range sr.filters {
		q.Set(spec.serverParams[f.name], f.value)
	}
	if sr.cursor != "" {
		q.Set("cursor", sr.cursor)
	}

	raw, err := req.Get(ctx, spec.searchPath, q)
	if err != nil {
		return nil, err
	}
	page, err := normalize.Page(spec.kind, raw)
	if err != nil {
		return nil, err
	}
	items, err := normalize.Records(page.Items, spec.normalize)
	if err != nil {
		return nil, err
	}

	res := &model.PaginatedResult[T]{
		Items:      items,
		NextCursor: page.NextCursor,
		TotalCount: page.Total,
		TotalMode:  model.TotalUpstream,
	}
	if res.TotalCount == nil {
		n := len(items)
		res.TotalCount = &n
		res.TotalMode = model.TotalPage
	}
	return res, nil
}

// clientSearch fetches the full collection in one call, filters it locally,
// counts every match and then truncates to the limit. It never yields a
// cursor and ignores one it is given.
func clientSearch[T any](ctx context.Context, req upstream.Requester, spec entitySpec[T], sr searchRequest) (*model.PaginatedResult[T], error) {
	raw, err := req.Get(ctx, spec.listPath, nil)
	if err != nil {
		return nil, err
	}
	page, err := normalize.Page(spec.kind, raw)
	if err != nil {
		return nil, err
	}
	all, err := normalize.Records(page.Items, spec.normalize)
	if err != nil {
		return nil, err
	}

	matched := make([]T, 0, len(all))
	for _, rec := range all {
		if spec.matches(rec, sr.filters) {
			matched = append(matched, rec)
		}
	}

	total := len(matched)
	if len(matched) > sr.limit {
		matched = matched[:sr.limit]
	}
	return &model.PaginatedResult[T]{
		Items:      matched,
		TotalCount: &total,
		TotalMode:  model.TotalFiltered,
	}, nil
}

func (s entitySpec[T]) matches(rec T, filters []filter) bool {
	for _, f := range filters {
		if !s.matchOne(rec, f) {
			return false
		}
	}
	return true
}

func (s entitySpec[T]) matchOne(rec T, f filter) bool {
	switch f.mode {
	case matchText:
		needle := strings.ToLower(f.value)
		for _, v := range s.searchable(rec) {
			if v != nil && strings.Contains(strings.ToLower(*v), needle) {
				return true
			}
		}
		return false
	case matchContains:
		v := s.field(rec, f.name)
		return v != nil && strings.Contains(strings.ToLower(*v), strings.ToLower(f.value))
	default:
		v := s.field(rec, f.name)
		return v != nil && *v == f.value
	}
}

func (s entitySpec[T]) field(rec T, name string) *string {
	get, ok := s.fields[name]
	if !ok {
		return nil
	}
	return get(rec)
}

// resolveLimit applies the default and rejects out-of-range values.
func resolveLimit(limit *int) (int, error) {
	if limit == nil {
		return DefaultLimit, nil
	}
	if *limit < MinLimit || *limit > MaxLimit {
		return 0, apperr.InvalidArgument("limit must be between %d and %d, got %d", MinLimit, MaxLimit, *limit)
	}
	return *limit, nil
}

// textFilter adds a string filter unless v is nil or blank.
func textFilter(filters []filter, name string, v *string, mode matchMode) []filter {
	if v == nil || strings.TrimSpace(*v) == "" {
		return filters
	}
	return append(filters, filter{name: name, value: strings.TrimSpace(*v), mode: mode})
}

// idFilter adds an equality filter on an identifier unless v is nil.
func idFilter(filters []filter, name string, v *int64) ([]filter, error) {
	if v == nil {
		return filters, nil
	}
	if *v <= 0 {
		return nil, apperr.InvalidArgument("%s must be a positive integer, got %d", name, *v)
	}
	return append(filters, filter{name: name, value: strconv.FormatInt(*v, 10), mode: matchEqual}), nil
}

func formatID(v *int64) *string {
	if v == nil {
		return nil
	}
	s := strconv.FormatInt(*v, 10)
	return &s
}
