package request

import (
	"net/http"
	"strconv"
)

// ListParams holds pagination, search and filter parameters.
type ListParams struct {
	Limit   int
	Cursor  int64
	Search  string
	Active  *bool
	VhostID int64 // set from the route, not the query string
}

// ParseListParams extracts list parameters from the query string.
func ParseListParams(r *http.Request) ListParams {
	pg := ParsePagination(r)
	p := ListParams{
		Limit:  pg.Limit,
		Cursor: pg.CursorID(),
		Search: r.URL.Query().Get("search"),
	}
	if v := r.URL.Query().Get("active"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			p.Active = &b
		}
	}
	if v := r.URL.Query().Get("vhost_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil && id > 0 {
			p.VhostID = id
		}
	}
	return p
}
