package api

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/bisicus/segreteriacanti-api/internal/archive"
	"github.com/bisicus/segreteriacanti-api/internal/domain"
	"github.com/bisicus/segreteriacanti-api/internal/filter"
)

// Query keys that control the listing rather than filter it.
const (
	keyLimit   = "limit"
	keyOffset  = "offset"
	keySort    = "sort"
	keyInclude = "include"
)

// ReservedKeys are removed from the query before filter compilation.
var ReservedKeys = []string{keyLimit, keyOffset, keySort, keyInclude}

func listParams(q url.Values) (archive.ListParams, error) {
	page := domain.Page{}

	var err error
	if page.Limit, err = intParam(q, keyLimit); err != nil {
		return archive.ListParams{}, err
	}
	if page.Offset, err = intParam(q, keyOffset); err != nil {
		return archive.ListParams{}, err
	}
	if page.Limit < 0 || page.Offset < 0 {
		return archive.ListParams{}, domain.Validationf("page", "limit and offset cannot be negative")
	}
	page.Sort = sortParam(q[keySort])

	return archive.ListParams{
		Filters: filter.FromQuery(q, ReservedKeys...),
		Page:    page,
		Include: q[keyInclude],
	}, nil
}

func intParam(q url.Values, key string) (int, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.Validationf(key, "'%s' is not a number", key)
	}
	return n, nil
}

// sortParam reads "title,-id" style values; a leading '-' sorts descending.
func sortParam(values []string) []domain.SortField {
	var out []domain.SortField
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			dir := domain.SortDirectionAsc
			switch {
			case strings.HasPrefix(part, "-"):
				dir, part = domain.SortDirectionDesc, part[1:]
			case strings.HasPrefix(part, "+"):
				part = part[1:]
			}
			out = append(out, domain.SortField{Property: part, Direction: dir})
		}
	}
	return out
}

func pathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.Validationf("id", "'id' must be a positive integer")
	}
	return id, nil
}
