package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hupe1980/hsearch"
	"github.com/hupe1980/hsearch/search"
	"github.com/hupe1980/hsearch/types"
)

// queryFlags are the raw query flags of the search command.
type queryFlags struct {
	Match  []string // path=value, value "null" matches the null replacement
	Range  []string // path=from..to, either bound may be empty
	Exists []string // path
	Not    []string // path=value
}

// buildQuery combines every clause with AND. Without clauses it matches all
// documents.
func buildQuery(scope *hsearch.Scope, f queryFlags) (search.Query, error) {
	var q search.BooleanQuery
	for _, m := range f.Match {
		clause, err := matchClause(scope, m)
		if err != nil {
			return nil, err
		}
		q.Must = append(q.Must, clause)
	}
	for _, m := range f.Not {
		clause, err := matchClause(scope, m)
		if err != nil {
			return nil, err
		}
		q.MustNot = append(q.MustNot, clause)
	}
	for _, r := range f.Range {
		path, expr, err := splitAssignment(r)
		if err != nil {
			return nil, err
		}
		from, to, err := splitRange(expr)
		if err != nil {
			return nil, fmt.Errorf("range %s: %w", path, err)
		}
		clause, err := scope.Range(path, hsearch.Bounds{From: from, To: to})
		if err != nil {
			return nil, err
		}
		q.Filter = append(q.Filter, clause)
	}
	for _, path := range f.Exists {
		clause, err := scope.Exists(path)
		if err != nil {
			return nil, err
		}
		q.Filter = append(q.Filter, clause)
	}

	if len(q.Must)+len(q.Filter) == 0 {
		if len(q.MustNot) == 0 {
			return search.MatchAllQuery{}, nil
		}
		q.Filter = []search.Query{search.MatchAllQuery{}}
	}
	return q, nil
}

func matchClause(scope *hsearch.Scope, expr string) (search.Query, error) {
	path, value, err := splitAssignment(expr)
	if err != nil {
		return nil, err
	}
	var v any = value
	if value == "null" {
		v = nil
	}
	return scope.Match(path, v)
}

// parseAggregation parses "name:terms:path[:size]" and
// "name:range:path:key=from..to,key=from..to".
func parseAggregation(expr string) (hsearch.AggregationRequest, error) {
	parts := strings.SplitN(expr, ":", 4)
	if len(parts) < 3 {
		return hsearch.AggregationRequest{}, fmt.Errorf("aggregation %q: want name:kind:path", expr)
	}
	req := hsearch.AggregationRequest{Name: parts[0], Path: parts[2]}

	switch parts[1] {
	case "terms":
		req.Kind = hsearch.AggregationTerms
		if len(parts) == 4 {
			n, err := strconv.Atoi(parts[3])
			if err != nil || n < 0 {
				return req, fmt.Errorf("aggregation %q: invalid size %q", expr, parts[3])
			}
			req.Size = n
		}
	case "range":
		req.Kind = hsearch.AggregationRange
		if len(parts) < 4 {
			return req, fmt.Errorf("aggregation %q: range needs buckets", expr)
		}
		for _, bucket := range strings.Split(parts[3], ",") {
			key, bounds, err := splitAssignment(bucket)
			if err != nil {
				return req, err
			}
			from, to, err := splitRange(bounds)
			if err != nil {
				return req, fmt.Errorf("aggregation %q: %w", expr, err)
			}
			req.Ranges = append(req.Ranges, types.RangeSpec{Key: key, From: from, To: to})
		}
	default:
		return req, fmt.Errorf("aggregation %q: unknown kind %q", expr, parts[1])
	}
	return req, nil
}

func splitAssignment(expr string) (string, string, error) {
	k, v, ok := strings.Cut(expr, "=")
	if !ok || k == "" {
		return "", "", fmt.Errorf("expected key=value, got %q", expr)
	}
	return k, v, nil
}

// splitRange parses "from..to". Empty bounds are returned as nil.
func splitRange(expr string) (any, any, error) {
	from, to, ok := strings.Cut(expr, "..")
	if !ok {
		return nil, nil, fmt.Errorf("expected from..to, got %q", expr)
	}
	var lo, hi any
	if from != "" {
		lo = from
	}
	if to != "" {
		hi = to
	}
	return lo, hi, nil
}
