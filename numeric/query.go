package numeric

import (
	"fmt"

	"github.com/hupe1980/hsearch/search"
)

func exactQuery[E Number](d Domain[E], field string, v E) search.Query {
	p := d.EncodePoint(v)
	return search.PointRangeQuery{Field: field, Lower: p, Upper: p}
}

func rangeQuery[E Number](d Domain[E], field string, lower, upper *E, excludeLower, excludeUpper bool) search.Query {
	q := search.PointRangeQuery{Field: field}

	var lo, hi E
	if lower != nil {
		lo = *lower
		if excludeLower {
			if d.Compare(lo, d.MaxValue()) >= 0 {
				return emptyRange(field, lower, upper)
			}
			lo = d.NextValue(lo)
		}
		q.Lower = d.EncodePoint(lo)
	}
	if upper != nil {
		hi = *upper
		if excludeUpper {
			if d.Compare(hi, d.MinValue()) <= 0 {
				return emptyRange(field, lower, upper)
			}
			hi = d.PreviousValue(hi)
		}
		q.Upper = d.EncodePoint(hi)
	}
	if lower != nil && upper != nil && d.Compare(lo, hi) > 0 {
		return emptyRange(field, lower, upper)
	}
	return q
}

func emptyRange[E Number](field string, lower, upper *E) search.Query {
	bound := func(p *E) string {
		if p == nil {
			return "*"
		}
		return fmt.Sprint(*p)
	}
	return search.MatchNoneQuery{Reason: fmt.Sprintf("empty range on %s: [%s, %s]", field, bound(lower), bound(upper))}
}
